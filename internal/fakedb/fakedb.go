// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakedb holds types to fake an in-memory DB.
//
// Queries are answered, in order, with the result sets handed to Run.
// Statements that do not return rows are recorded.
package fakedb // import "github.com/go-lpc/eic/internal/fakedb"

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
)

var db struct {
	mu sync.Mutex // serializes Run sessions

	state sync.Mutex // protects the fields below
	rows  []Rows
	execs []Exec
}

// Exec is a recorded statement.
type Exec struct {
	Query string
	Args  []driver.Value
}

// Run runs f with the provided result sets queued for the queries f will
// issue. Run returns the statements executed by f that did not return rows.
func Run(ctx context.Context, f func(ctx context.Context) error, rows ...Rows) ([]Exec, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.state.Lock()
	db.rows = rows
	db.execs = nil
	db.state.Unlock()

	err := f(ctx)

	db.state.Lock()
	defer db.state.Unlock()
	execs := db.execs
	db.rows = nil
	db.execs = nil
	return execs, err
}

func init() {
	sql.Register("fakedb", &Driver{})
}

type Driver struct{}

// Open returns a new connection to the database.
func (drv *Driver) Open(name string) (driver.Conn, error) {
	return &Conn{}, nil
}

type Conn struct{}

// Prepare returns a prepared statement, bound to this connection.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &Stmt{query: query}, nil
}

// Close invalidates the connection.
func (c *Conn) Close() error {
	return nil
}

// Begin starts and returns a new transaction.
func (c *Conn) Begin() (driver.Tx, error) {
	return tx{}, nil
}

type tx struct{}

func (tx) Commit() error   { return nil }
func (tx) Rollback() error { return nil }

type Stmt struct {
	query string
}

// Close closes the statement.
func (stmt *Stmt) Close() error {
	return nil
}

// NumInput returns -1: the number of placeholders is not checked.
func (stmt *Stmt) NumInput() int {
	return -1
}

// Exec records the statement and its arguments.
func (stmt *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	db.state.Lock()
	defer db.state.Unlock()

	db.execs = append(db.execs, Exec{
		Query: stmt.query,
		Args:  append([]driver.Value(nil), args...),
	})
	return driver.RowsAffected(1), nil
}

// Query returns the next queued result set.
func (stmt *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	db.state.Lock()
	defer db.state.Unlock()

	if len(db.rows) == 0 {
		return nil, errors.New("fakedb: no more result sets")
	}
	rows := db.rows[0]
	db.rows = db.rows[1:]
	if rows.Err != nil {
		return nil, rows.Err
	}
	return &rows, nil
}

// Rows is a result set.
type Rows struct {
	Names  []string
	Values [][]driver.Value
	Err    error // error returned by the query, if any
}

// Columns returns the names of the columns.
func (rows *Rows) Columns() []string {
	return rows.Names
}

// Close closes the rows iterator.
func (rows *Rows) Close() error {
	return nil
}

// Next populates dest with the next row, or returns io.EOF.
func (rows *Rows) Next(dest []driver.Value) error {
	if len(rows.Values) == 0 {
		return io.EOF
	}
	copy(dest, rows.Values[0])
	rows.Values = rows.Values[1:]
	return nil
}

var (
	_ driver.Driver = (*Driver)(nil)
	_ driver.Conn   = (*Conn)(nil)
	_ driver.Tx     = tx{}
	_ driver.Stmt   = (*Stmt)(nil)
	_ driver.Rows   = (*Rows)(nil)
)
