// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eic

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/eic/conddb"
)

// Server exposes a Controller as a tdaq run-control process.
//
// Commands: /config loads the setup, /init writes it to the controller,
// /start enables its lines and interrupts, /stop disables them, /reset
// returns the controller to a quiet state and /quit releases it.
// Serviced interrupts are published on the /irq output.
type Server struct {
	ctl  *Controller
	db   *conddb.DB // nil: use DefaultSetup
	name string     // setup name, "" for the last one

	// Alert, when set, is called for every serviced NMI.
	Alert func(evt Event)

	mu    sync.Mutex
	setup Setup
	disp  *Dispatcher
	evts  chan Event
	drops uint64
}

// NewServer returns a run-control server for ctl.
// Setups are loaded from db when it is not nil.
func NewServer(ctl *Controller, db *conddb.DB, setup string, opts ...Option) *Server {
	return &Server{
		ctl:  ctl,
		db:   db,
		name: setup,
		disp: NewDispatcher(ctl, opts...),
		evts: make(chan Event, 1024),
	}
}

func (srv *Server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")

	setup := DefaultSetup()
	if srv.db != nil {
		var err error
		setup, err = LoadSetup(ctx.Ctx, srv.db, srv.name)
		if err != nil {
			ctx.Msg.Errorf("could not load setup %q: %+v", srv.name, err)
			return fmt.Errorf("could not load setup %q: %w", srv.name, err)
		}
	}

	srv.mu.Lock()
	srv.setup = setup
	srv.mu.Unlock()

	ctx.Msg.Infof("setup %q: lines=%v, scan=%v", setup.Name, setup.Mask(), setup.Scan.Enabled)
	return nil
}

func (srv *Server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")

	srv.mu.Lock()
	setup := srv.setup
	srv.mu.Unlock()

	if len(setup.Lines) == 0 {
		return fmt.Errorf("no setup loaded (missing /config?)")
	}

	srv.ctl.Init(setup.Lines...)
	srv.ctl.ClearInterruptLines(setup.Mask())
	for _, l := range setup.Mask().Lines() {
		srv.disp.Handle(l, srv.publish)
	}

	if err := srv.ctl.Err(); err != nil {
		ctx.Msg.Errorf("could not initialize controller: %+v", err)
		return fmt.Errorf("could not initialize controller: %w", err)
	}
	return nil
}

func (srv *Server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	srv.quiet()
	if err := srv.ctl.Err(); err != nil {
		return fmt.Errorf("could not reset controller: %w", err)
	}
	return nil
}

func (srv *Server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")

	srv.mu.Lock()
	setup := srv.setup
	srv.mu.Unlock()

	mask := setup.Mask()
	if setup.Scan.Enabled {
		srv.ctl.EnableInterruptScan(setup.Scan.Presc)
	}
	srv.ctl.EnableLines(mask)
	srv.ctl.EnableInterruptLines(mask)

	if err := srv.ctl.Err(); err != nil {
		ctx.Msg.Errorf("could not start controller: %+v", err)
		return fmt.Errorf("could not start controller: %w", err)
	}
	ctx.Msg.Infof("enabled lines %v", srv.ctl.Enabled())
	return nil
}

func (srv *Server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	lines, spurious := srv.disp.Stats()
	ctx.Msg.Debugf("received /stop command... -> serviced=%v, spurious=%d, dropped=%d",
		lines, spurious, srv.dropped(),
	)

	srv.mu.Lock()
	mask := srv.setup.Mask()
	srv.mu.Unlock()

	srv.ctl.DisableInterruptLines(mask)
	srv.ctl.DisableLines(mask)
	srv.ctl.DisableInterruptScan()

	if err := srv.ctl.Err(); err != nil {
		return fmt.Errorf("could not stop controller: %w", err)
	}
	return nil
}

func (srv *Server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	srv.quiet()
	return srv.ctl.Close()
}

// quiet disables every line, interrupt and the scan mode, and clears all
// pending flags.
func (srv *Server) quiet() {
	srv.ctl.DisableInterruptLines(AllLines)
	srv.ctl.DisableLines(AllLines)
	srv.ctl.DisableInterruptScan()
	srv.ctl.ClearInterruptLines(AllLines)
}

// IRQ is the tdaq output handler publishing serviced interrupts.
func (srv *Server) IRQ(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case evt := <-srv.evts:
		raw, err := evt.MarshalBinary()
		if err != nil {
			return fmt.Errorf("could not encode event %v: %w", evt, err)
		}
		dst.Body = raw
	}
	return nil
}

// Run is the tdaq run handler servicing interrupts.
func (srv *Server) Run(ctx tdaq.Context) error {
	err := srv.disp.Run(ctx.Ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return nil
	default:
		ctx.Msg.Errorf("could not service interrupts: %+v", err)
		return err
	}
}

func (srv *Server) publish(ctx context.Context, evt Event) error {
	if evt.Line == NMI && srv.Alert != nil {
		srv.Alert(evt)
	}
	select {
	case srv.evts <- evt:
	default:
		srv.mu.Lock()
		srv.drops++
		srv.mu.Unlock()
	}
	return nil
}

func (srv *Server) dropped() uint64 {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.drops
}
