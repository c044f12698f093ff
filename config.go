// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eic

import (
	"fmt"
)

// EdgePolarity selects the transition an edge-triggered line reacts to.
type EdgePolarity uint8

const (
	Falling EdgePolarity = iota
	Rising
)

func (p EdgePolarity) String() string {
	switch p {
	case Falling:
		return "falling"
	case Rising:
		return "rising"
	default:
		return fmt.Sprintf("EdgePolarity(%d)", uint8(p))
	}
}

// LevelPolarity selects the level a level-triggered line reacts to.
type LevelPolarity uint8

const (
	Low LevelPolarity = iota
	High
)

func (p LevelPolarity) String() string {
	switch p {
	case Low:
		return "low"
	case High:
		return "high"
	default:
		return fmt.Sprintf("LevelPolarity(%d)", uint8(p))
	}
}

// Trigger is the trigger condition of a line.
// It is either an Edge or a Level.
type Trigger interface {
	trigger()
	String() string
}

// Edge triggers on a signal transition.
type Edge struct {
	Polarity EdgePolarity
}

// Level triggers on a sustained signal state.
type Level struct {
	Polarity LevelPolarity
}

func (Edge) trigger()  {}
func (Level) trigger() {}

func (t Edge) String() string  { return "edge-" + t.Polarity.String() }
func (t Level) String() string { return "level-" + t.Polarity.String() }

// Sampling selects how a line is sampled.
type Sampling uint8

const (
	// Synchronous lines are sampled against the system clock.
	Synchronous Sampling = iota
	// Asynchronous lines bypass the clock and can wake the device up.
	Asynchronous
)

func (s Sampling) String() string {
	switch s {
	case Synchronous:
		return "sync"
	case Asynchronous:
		return "async"
	default:
		return fmt.Sprintf("Sampling(%d)", uint8(s))
	}
}

// Config describes the configuration of a single line.
//
// A nil Trigger is the register reset value: a falling edge.
// Pointers to Edge and Level are accepted as well.
type Config struct {
	Line     Line
	Trigger  Trigger
	Filter   bool
	Sampling Sampling
}

func (cfg Config) String() string {
	trig := cfg.Trigger
	if trig == nil {
		trig = Edge{Falling}
	}
	filter := "nofilter"
	if cfg.Filter {
		filter = "filter"
	}
	return fmt.Sprintf("%v: %v %s %v", cfg.Line, trig, filter, cfg.Sampling)
}

// fields returns the register values of the line: mode, edge, level,
// filter and async bits.
func (cfg Config) fields() (mode, edge, level, filter, async bool) {
	switch trig := cfg.Trigger.(type) {
	case Level:
		mode = true
		level = trig.Polarity == High
	case Edge:
		edge = trig.Polarity == Rising
	case *Level:
		if trig != nil {
			mode = true
			level = trig.Polarity == High
		}
	case *Edge:
		if trig != nil {
			edge = trig.Polarity == Rising
		}
	case nil:
	default:
		panic(fmt.Errorf("eic: invalid trigger type %T", trig))
	}
	filter = cfg.Filter
	async = cfg.Sampling == Asynchronous
	return mode, edge, level, filter, async
}

// configFrom builds a line configuration from its register bits.
func configFrom(l Line, mode, edge, level, filter, async bool) Config {
	cfg := Config{Line: l, Filter: filter}
	switch {
	case mode && level:
		cfg.Trigger = Level{High}
	case mode:
		cfg.Trigger = Level{Low}
	case edge:
		cfg.Trigger = Edge{Rising}
	default:
		cfg.Trigger = Edge{Falling}
	}
	if async {
		cfg.Sampling = Asynchronous
	}
	return cfg
}
