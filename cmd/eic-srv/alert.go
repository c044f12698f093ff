// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"crypto/tls"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/go-lpc/eic"
	mail "gopkg.in/gomail.v2"
)

const maxAlerts = 5

type alerter struct {
	usr  string
	pwd  string
	srv  string
	port int
	tgts []string

	mu   sync.Mutex
	n    int
	send func(msg *mail.Message) error

	wg sync.WaitGroup // in-flight mails
}

func newAlerter() *alerter {
	a := &alerter{
		usr:  os.Getenv("MAIL_USERNAME"),
		pwd:  os.Getenv("MAIL_PASSWORD"),
		srv:  os.Getenv("MAIL_SERVER"),
		port: atoi(os.Getenv("MAIL_PORT")),
	}
	if v := os.Getenv("MAIL_TGTS"); v != "" {
		a.tgts = strings.Split(v, ",")
	}
	a.send = a.dial
	return a
}

func (a *alerter) ok() bool {
	return a.usr != "" && a.pwd != "" && a.srv != "" && a.port != 0 && len(a.tgts) > 0
}

// alert mails a notification for a serviced NMI.
// At most maxAlerts mails are sent over the life of the server.
// Mails are sent in the background so interrupt servicing never waits on
// the mail server.
func (a *alerter) alert(evt eic.Event) {
	log.Printf("non-maskable interrupt: %v", evt)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.n++
	if a.n > maxAlerts {
		return
	}

	if !a.ok() {
		log.Printf("could not send mail alert: missing credentials")
		return
	}

	host, _ := os.Hostname()
	msg := mail.NewMessage()
	msg.SetHeader("From", a.usr)
	msg.SetHeader("Bcc", a.tgts...)
	msg.SetHeader("Subject", fmt.Sprintf("[eic-srv] NMI alert on %s", host))
	msg.SetBody("text/plain", fmt.Sprintf("host:  %s\nevent: %v\ncount: %d",
		host, evt, a.n,
	))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := a.send(msg)
		if err != nil {
			log.Printf("could not send mail alert: %+v", err)
		}
	}()
}

// wait waits for the in-flight mails to be sent.
func (a *alerter) wait() {
	a.wg.Wait()
}

func (a *alerter) dial(msg *mail.Message) error {
	dial := mail.NewDialer(a.srv, a.port, a.usr, a.pwd)
	dial.TLSConfig = &tls.Config{
		InsecureSkipVerify: true,
	}
	return dial.DialAndSend(msg)
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
