// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb holds types to describe the configuration database
// of external interrupt line setups.
//
// A setup is a named batch of line configurations (table eic_lines) plus
// its keypad scan settings (table eic_configs).
package conddb // import "github.com/go-lpc/eic/conddb"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const (
	host = "localhost"
)

var (
	usr = "username"
	pwd = "s3cr3t"

	drvName = "mysql"
)

// Line is the stored configuration of an interrupt line.
type Line struct {
	ID     uint8 // line number, 8 is NMI
	Mode   uint8 // 0: edge, 1: level
	Edge   uint8 // 0: falling, 1: rising
	Level  uint8 // 0: low, 1: high
	Filter bool
	Async  bool
}

// Scan is the stored keypad scan setting of a setup.
type Scan struct {
	Enabled bool
	Presc   uint32
}

// DB exposes convenience methods to easily retrieve and store line
// setups from the EIC database.
type DB struct {
	db   *sql.DB
	name string // name of the EIC database
}

// Open opens a connection to the EIC database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

// New wraps an already opened connection to the EIC database dbname.
func New(db *sql.DB, dbname string) *DB {
	return &DB{db: db, name: dbname}
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// LastConfig returns the name of the most recently stored setup.
func (db *DB) LastConfig(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	name := ""
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name FROM eic_configs ORDER BY datetime DESC LIMIT 1",
	)
	if err != nil {
		return name, fmt.Errorf("conddb: could not query last setup: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&name)
		if err != nil {
			return name, fmt.Errorf("conddb: could not get setup name: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return name, fmt.Errorf("conddb: could not scan db for last setup: %w", err)
	}

	if name == "" {
		return name, fmt.Errorf("conddb: no setup in db %q", db.name)
	}

	return name, nil
}

// Lines returns the line configurations of the named setup, in the order
// they were stored.
func (db *DB) Lines(ctx context.Context, name string) ([]Line, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := db.db.QueryContext(
		ctx,
		"SELECT line, mode, edge, level, filter, async FROM eic_lines WHERE config=? ORDER BY id",
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("conddb: could not query lines of setup %q: %w", name, err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var line Line
		err = rows.Scan(
			&line.ID, &line.Mode, &line.Edge, &line.Level,
			&line.Filter, &line.Async,
		)
		if err != nil {
			return nil, fmt.Errorf("conddb: could not scan line of setup %q: %w", name, err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conddb: could not scan db for lines of setup %q: %w", name, err)
	}

	return lines, nil
}

// Scan returns the keypad scan setting of the named setup.
func (db *DB) Scan(ctx context.Context, name string) (Scan, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var scan Scan
	err := db.db.QueryRowContext(
		ctx,
		"SELECT scan, presc FROM eic_configs WHERE name=?",
		name,
	).Scan(&scan.Enabled, &scan.Presc)
	if err != nil {
		return scan, fmt.Errorf("conddb: could not query scan setting of setup %q: %w", name, err)
	}

	return scan, nil
}

// Save stores a setup, replacing any previous setup of the same name.
func (db *DB) Save(ctx context.Context, name string, scan Scan, lines []Line) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("conddb: could not start transaction for setup %q: %w", name, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// a setup is replaced as a whole.
	_, err = tx.ExecContext(ctx, "DELETE FROM eic_lines WHERE config=?", name)
	if err != nil {
		return fmt.Errorf("conddb: could not remove lines of setup %q: %w", name, err)
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM eic_configs WHERE name=?", name)
	if err != nil {
		return fmt.Errorf("conddb: could not remove setup %q: %w", name, err)
	}

	_, err = tx.ExecContext(
		ctx,
		"INSERT INTO eic_configs (name, scan, presc, datetime) VALUES (?, ?, ?, ?)",
		name, scan.Enabled, int64(scan.Presc), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("conddb: could not insert setup %q: %w", name, err)
	}

	for _, line := range lines {
		_, err = tx.ExecContext(
			ctx,
			"INSERT INTO eic_lines (config, line, mode, edge, level, filter, async) VALUES (?, ?, ?, ?, ?, ?, ?)",
			name, int64(line.ID), int64(line.Mode), int64(line.Edge), int64(line.Level),
			line.Filter, line.Async,
		)
		if err != nil {
			return fmt.Errorf("conddb: could not insert line %d of setup %q: %w", line.ID, name, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("conddb: could not commit setup %q: %w", name, err)
	}
	return nil
}
