// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command eic-srv starts a TDAQ server driving the external interrupt
// controller of a UC3 node.
//
// The first positional argument names the setup to load from the
// conditions database ("" for the last stored one).
//
// Environment:
//   - EIC_DEVMEM: memory device to map (default: /dev/mem)
//   - EIC_FAMILY: UC3 family of the part (default: uc3a)
//   - EIC_SIM: when set, drive an in-memory controller instead
//   - EIC_DB: name of the conditions database (default: built-in setup)
//   - EIC_PMON: when set, monitor the server process at that frequency
//   - MAIL_*: credentials for NMI mail alerts
package main // import "github.com/go-lpc/eic/cmd/eic-srv"

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/eic"
	"github.com/go-lpc/eic/conddb"
	"github.com/go-lpc/eic/internal/eicsim"
	"github.com/sbinet/pmon"
)

func main() {
	cmd := flags.New()

	name := ""
	if len(cmd.Args) > 0 {
		name = cmd.Args[0]
	}

	log.Printf("eic-srv %s", version())

	ctl, err := newController(os.Getenv("EIC_SIM") != "", os.Getenv("EIC_DEVMEM"), os.Getenv("EIC_FAMILY"))
	if err != nil {
		log.Panicf("could not create EIC controller: %+v", err)
	}
	defer ctl.Close()

	var db *conddb.DB
	if v := os.Getenv("EIC_DB"); v != "" {
		db, err = conddb.Open(v)
		if err != nil {
			log.Panicf("could not open EIC db: %+v", err)
		}
		defer db.Close()
	}

	if v := os.Getenv("EIC_PMON"); v != "" {
		freq, err := time.ParseDuration(v)
		if err != nil {
			log.Panicf("could not parse pmon frequency %q: %+v", v, err)
		}
		stop, err := monitor(os.Getpid(), freq)
		if err != nil {
			log.Panicf("could not monitor eic-srv: %+v", err)
		}
		defer stop()
	}

	alerts := newAlerter()
	defer alerts.wait()

	dev := eic.NewServer(ctl, db, name)
	dev.Alert = alerts.alert

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/irq", dev.IRQ)

	srv.RunHandle(dev.Run)

	err = srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

func version() string {
	v, _ := eic.Version()
	if v == "" {
		return "(devel)"
	}
	return v
}

func newController(sim bool, devmem, family string) (*eic.Controller, error) {
	fam := eic.UC3A
	if family != "" {
		v, err := eic.ParseFamily(family)
		if err != nil {
			return nil, err
		}
		fam = v
	}

	if sim {
		return eic.New(eicsim.New(), eic.WithFamily(fam)), nil
	}

	if devmem == "" {
		devmem = "/dev/mem"
	}
	ctl, err := eic.Open(devmem, eic.WithFamily(fam))
	if err != nil {
		return nil, fmt.Errorf("could not open %q: %w", devmem, err)
	}
	return ctl, nil
}

func monitor(pid int, freq time.Duration) (func(), error) {
	p, err := pmon.Monitor(pid)
	if err != nil {
		return nil, fmt.Errorf("could not start monitoring pid=%d: %w", pid, err)
	}
	f, err := os.Create(fmt.Sprintf("eic-srv-%d-pmon.log", pid))
	if err != nil {
		return nil, fmt.Errorf("could not create pmon log file: %w", err)
	}
	p.W = f
	p.Freq = freq

	go func() {
		err := p.Run()
		if err != nil {
			log.Printf("could not run pmon: %+v", err)
		}
	}()

	return func() {
		err := p.Kill()
		if err != nil {
			log.Printf("could not stop monitoring: %+v", err)
		}
		_ = f.Close()
	}, nil
}
