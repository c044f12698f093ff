// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eic

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Handler services an interrupt line.
// The line flag is acknowledged once the handler returned without error.
// A handler interrupted by the cancellation of ctx should return ctx.Err()
// so the line stays pending.
type Handler func(ctx context.Context, evt Event) error

// Dispatcher polls a controller for pending interrupts and runs the
// handlers registered for the pending lines.
//
// Only lines whose interrupt is enabled are serviced. After each round,
// the flags of the successfully serviced lines are cleared; lines without a
// handler are acknowledged as spurious.
type Dispatcher struct {
	ctl  *Controller
	msg  *log.Logger
	poll time.Duration

	mu    sync.RWMutex
	hdlrs [NumLines]Handler

	stats struct {
		sync.Mutex
		lines    [NumLines]uint64
		spurious uint64
	}
}

// NewDispatcher returns a dispatcher servicing the lines of ctl.
func NewDispatcher(ctl *Controller, opts ...Option) *Dispatcher {
	cfg := newConfig()
	cfg.msg = ctl.msg
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Dispatcher{
		ctl:  ctl,
		msg:  cfg.msg,
		poll: cfg.poll,
	}
}

// Handle registers h as the handler of line l.
// A nil handler unregisters the current one.
func (d *Dispatcher) Handle(l Line, h Handler) {
	if !l.Valid() {
		panic(fmt.Errorf("eic: invalid line %d", uint8(l)))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hdlrs[l] = h
}

// Run polls the controller until ctx is done or a handler fails.
func (d *Dispatcher) Run(ctx context.Context) error {
	tick := time.NewTicker(d.poll)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			_, err := d.Poll(ctx)
			if err != nil {
				return err
			}
		}
	}
}

// Poll performs a single servicing round and returns the lines that were
// acknowledged: the lines whose handler succeeded and the spurious ones.
// Lines whose handler failed stay pending.
func (d *Dispatcher) Poll(ctx context.Context) (Mask, error) {
	pending := d.ctl.Pending() & d.ctl.InterruptsEnabled()
	if err := d.ctl.Err(); err != nil {
		return 0, fmt.Errorf("eic: could not read interrupt status: %w", err)
	}
	if pending == 0 {
		return 0, nil
	}

	pad := -1
	if d.ctl.ScanEnabled() {
		pad = d.ctl.InterruptPadScan()
	}

	var (
		now     = time.Now()
		grp, gx = errgroup.WithContext(ctx)

		mu   sync.Mutex
		done Mask // lines to acknowledge
	)
	d.mu.RLock()
	for _, l := range pending.Lines() {
		h := d.hdlrs[l]
		if h == nil {
			d.stats.Lock()
			d.stats.spurious++
			d.stats.Unlock()
			d.msg.Printf("spurious interrupt on line %v", l)
			mu.Lock()
			done |= MaskOf(l)
			mu.Unlock()
			continue
		}
		evt := Event{Line: l, Pad: pad, Time: now}
		grp.Go(func() error {
			err := h(gx, evt)
			if err != nil {
				return fmt.Errorf("eic: could not service line %v: %w", evt.Line, err)
			}
			mu.Lock()
			done |= MaskOf(evt.Line)
			mu.Unlock()

			d.stats.Lock()
			d.stats.lines[evt.Line]++
			d.stats.Unlock()
			return nil
		})
	}
	d.mu.RUnlock()

	err := grp.Wait()
	if done != 0 {
		d.ctl.ClearInterruptLines(done)
	}
	if err != nil {
		return done, err
	}
	if err := d.ctl.Err(); err != nil {
		return done, fmt.Errorf("eic: could not acknowledge %v: %w", done, err)
	}
	return done, nil
}

// Stats returns the number of serviced interrupts per line and the number
// of spurious ones.
func (d *Dispatcher) Stats() (lines [NumLines]uint64, spurious uint64) {
	d.stats.Lock()
	defer d.stats.Unlock()
	return d.stats.lines, d.stats.spurious
}
