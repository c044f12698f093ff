// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eic

import (
	"log"
	"os"
	"time"

	"github.com/go-lpc/eic/internal/regs"
)

type config struct {
	base   int64
	family Family
	msg    *log.Logger
	poll   time.Duration
}

func newConfig() config {
	return config{
		base:   regs.EIC_BASE,
		family: UC3A,
		msg:    log.New(os.Stdout, "eic: ", 0),
		poll:   time.Millisecond,
	}
}

// Option configures a Controller or a Dispatcher.
type Option func(*config)

// WithBase sets the physical address of the register block.
func WithBase(addr int64) Option {
	return func(cfg *config) {
		cfg.base = addr
	}
}

// WithFamily sets the UC3 family, and thus the register layout of lines.
func WithFamily(f Family) Option {
	return func(cfg *config) {
		cfg.family = f
	}
}

// WithLogger sets the logger used to report activity.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

// WithPollInterval sets the period at which a Dispatcher inspects the
// pending flags.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.poll = d
		}
	}
}
