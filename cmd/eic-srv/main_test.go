// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-lpc/eic"
	mail "gopkg.in/gomail.v2"
)

func TestNewController(t *testing.T) {
	ctl, err := newController(true, "", "uc3l")
	if err != nil {
		t.Fatalf("could not create simulated controller: %+v", err)
	}
	defer ctl.Close()

	if got, want := ctl.Family(), eic.UC3L; got != want {
		t.Fatalf("invalid family: got=%v, want=%v", got, want)
	}

	_, err = newController(true, "", "avr8")
	if err == nil {
		t.Fatalf("expected an error for an invalid family")
	}

	_, err = newController(false, filepath.Join(t.TempDir(), "not-there"), "")
	if err == nil {
		t.Fatalf("expected an error for a missing device")
	}
}

func newTestAlerter(send func(msg *mail.Message) error) *alerter {
	a := &alerter{
		usr:  "eic@example.com",
		pwd:  "s3cr3t",
		srv:  "smtp.example.com",
		port: 587,
		tgts: []string{"shift@example.com"},
	}
	a.send = send
	return a
}

func TestAlerter(t *testing.T) {
	var (
		mu   sync.Mutex
		sent int
		tgts []string
	)
	a := newTestAlerter(func(msg *mail.Message) error {
		mu.Lock()
		defer mu.Unlock()
		sent++
		tgts = msg.GetHeader("Bcc")
		return nil
	})

	evt := eic.Event{Line: eic.NMI, Pad: -1, Time: time.Unix(0, 0)}
	for i := 0; i < 2*maxAlerts; i++ {
		a.alert(evt)
	}
	a.wait()

	if got, want := sent, maxAlerts; got != want {
		t.Fatalf("invalid number of mails: got=%d, want=%d", got, want)
	}
	if len(tgts) != 1 || tgts[0] != a.tgts[0] {
		t.Fatalf("invalid targets: got=%v, want=%v", tgts, a.tgts)
	}

	a = &alerter{}
	a.send = func(msg *mail.Message) error {
		t.Errorf("mail sent without credentials")
		return nil
	}
	a.alert(evt)
	a.wait()
}

func TestAlerterSlowServer(t *testing.T) {
	release := make(chan struct{})
	a := newTestAlerter(func(msg *mail.Message) error {
		<-release
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		evt := eic.Event{Line: eic.NMI, Pad: -1, Time: time.Unix(0, 0)}
		a.alert(evt)
		a.alert(evt)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("alert blocked on the mail server")
	}

	close(release)
	a.wait()
}

func TestAtoi(t *testing.T) {
	for _, tc := range []struct {
		s    string
		want int
	}{
		{"587", 587},
		{"", 0},
		{"smtp", 0},
	} {
		if got := atoi(tc.s); got != tc.want {
			t.Fatalf("atoi(%q): got=%d, want=%d", tc.s, got, tc.want)
		}
	}
}
