// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eic

import (
	"context"
	"fmt"

	"github.com/go-lpc/eic/conddb"
)

// Setup is a batch of line configurations with its keypad scan setting.
type Setup struct {
	Name  string
	Lines []Config
	Scan  Scan
}

// Scan is the keypad scan setting of a setup.
type Scan struct {
	Enabled bool
	Presc   uint32 // prescale select, 0 to 31
}

// Mask returns the lines configured by the setup.
func (s Setup) Mask() Mask {
	var m Mask
	for _, cfg := range s.Lines {
		m |= MaskOf(cfg.Line)
	}
	return m
}

// DefaultSetup configures every line on a filtered, synchronous falling
// edge, without keypad scan.
func DefaultSetup() Setup {
	s := Setup{Name: "default"}
	for l := INT0; l < NumLines; l++ {
		s.Lines = append(s.Lines, Config{
			Line:    l,
			Trigger: Edge{Falling},
			Filter:  true,
		})
	}
	return s
}

// LoadSetup retrieves the named setup from db.
// An empty name selects the most recently stored setup.
func LoadSetup(ctx context.Context, db *conddb.DB, name string) (Setup, error) {
	if name == "" {
		v, err := db.LastConfig(ctx)
		if err != nil {
			return Setup{}, fmt.Errorf("eic: could not find last setup: %w", err)
		}
		name = v
	}

	rows, err := db.Lines(ctx, name)
	if err != nil {
		return Setup{}, fmt.Errorf("eic: could not load lines of setup %q: %w", name, err)
	}

	scan, err := db.Scan(ctx, name)
	if err != nil {
		return Setup{}, fmt.Errorf("eic: could not load scan of setup %q: %w", name, err)
	}

	s := Setup{
		Name: name,
		Scan: Scan{Enabled: scan.Enabled, Presc: scan.Presc},
	}
	for _, row := range rows {
		cfg, err := configFromDB(row)
		if err != nil {
			return Setup{}, fmt.Errorf("eic: invalid setup %q: %w", name, err)
		}
		s.Lines = append(s.Lines, cfg)
	}
	return s, nil
}

// SaveSetup stores s into db.
func SaveSetup(ctx context.Context, db *conddb.DB, s Setup) error {
	rows := make([]conddb.Line, len(s.Lines))
	for i, cfg := range s.Lines {
		rows[i] = configToDB(cfg)
	}
	scan := conddb.Scan{Enabled: s.Scan.Enabled, Presc: s.Scan.Presc}
	err := db.Save(ctx, s.Name, scan, rows)
	if err != nil {
		return fmt.Errorf("eic: could not save setup %q: %w", s.Name, err)
	}
	return nil
}

func configFromDB(row conddb.Line) (Config, error) {
	l := Line(row.ID)
	if !l.Valid() {
		return Config{}, fmt.Errorf("invalid line %d", row.ID)
	}
	if row.Mode > 1 || row.Edge > 1 || row.Level > 1 {
		return Config{}, fmt.Errorf(
			"invalid trigger for line %v (mode=%d, edge=%d, level=%d)",
			l, row.Mode, row.Edge, row.Level,
		)
	}
	return configFrom(l, row.Mode == 1, row.Edge == 1, row.Level == 1, row.Filter, row.Async), nil
}

func configToDB(cfg Config) conddb.Line {
	mode, edge, level, filter, async := cfg.fields()
	b2u := func(v bool) uint8 {
		if v {
			return 1
		}
		return 0
	}
	return conddb.Line{
		ID:     uint8(cfg.Line),
		Mode:   b2u(mode),
		Edge:   b2u(edge),
		Level:  b2u(level),
		Filter: filter,
		Async:  async,
	}
}
