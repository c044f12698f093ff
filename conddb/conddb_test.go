// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conddb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/go-lpc/eic/internal/fakedb"
)

func init() {
	drvName = "fakedb"
}

func TestOpen(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open conddb: %+v", err)
	}
	defer db.Close()
}

func TestLastConfig(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open conddb: %+v", err)
	}
	defer db.Close()

	_, err = fakedb.Run(context.Background(), func(ctx context.Context) error {
		name, err := db.LastConfig(ctx)
		if err != nil {
			t.Fatalf("could not retrieve last setup: %+v", err)
		}

		if got, want := name, "keypad-2021"; got != want {
			t.Fatalf("invalid last setup: got=%q, want=%q", got, want)
		}
		return nil
	}, fakedb.Rows{
		Names: []string{"name"},
		Values: [][]driver.Value{
			{"keypad-2021"},
		},
	})
	if err != nil {
		t.Fatalf("could not run query: %+v", err)
	}

	_, err = fakedb.Run(context.Background(), func(ctx context.Context) error {
		_, err := db.LastConfig(ctx)
		if err == nil {
			t.Fatalf("expected an error on empty db")
		}
		if got, want := err.Error(), `conddb: no setup in db "fakedb"`; got != want {
			t.Fatalf("invalid error:\ngot= %v\nwant=%v", got, want)
		}
		return nil
	}, fakedb.Rows{Names: []string{"name"}})
	if err != nil {
		t.Fatalf("could not run query: %+v", err)
	}
}

func TestLines(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open conddb: %+v", err)
	}
	defer db.Close()

	_, err = fakedb.Run(context.Background(), func(ctx context.Context) error {
		lines, err := db.Lines(ctx, "keypad-2021")
		if err != nil {
			t.Fatalf("could not retrieve lines: %+v", err)
		}

		want := []Line{
			{ID: 3, Mode: 0, Edge: 1, Filter: true},
			{ID: 8, Mode: 1, Level: 1, Async: true},
		}
		if got := lines; !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid lines:\ngot= %+v\nwant=%+v", got, want)
		}
		return nil
	}, fakedb.Rows{
		Names: []string{"line", "mode", "edge", "level", "filter", "async"},
		Values: [][]driver.Value{
			{int64(3), int64(0), int64(1), int64(0), int64(1), int64(0)},
			{int64(8), int64(1), int64(0), int64(1), false, true},
		},
	})
	if err != nil {
		t.Fatalf("could not run query: %+v", err)
	}

	_, err = fakedb.Run(context.Background(), func(ctx context.Context) error {
		_, err := db.Lines(ctx, "keypad-2021")
		if !errors.Is(err, errBoom) {
			t.Fatalf("invalid error: %+v", err)
		}
		return nil
	}, fakedb.Rows{Err: errBoom})
	if err != nil {
		t.Fatalf("could not run query: %+v", err)
	}
}

var errBoom = errors.New("boom")

func TestScan(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open conddb: %+v", err)
	}
	defer db.Close()

	_, err = fakedb.Run(context.Background(), func(ctx context.Context) error {
		scan, err := db.Scan(ctx, "keypad-2021")
		if err != nil {
			t.Fatalf("could not retrieve scan setting: %+v", err)
		}
		if got, want := scan, (Scan{Enabled: true, Presc: 12}); got != want {
			t.Fatalf("invalid scan setting: got=%+v, want=%+v", got, want)
		}

		_, err = db.Scan(ctx, "not-there")
		if !errors.Is(err, sql.ErrNoRows) {
			t.Fatalf("invalid error: %+v", err)
		}
		return nil
	},
		fakedb.Rows{
			Names:  []string{"scan", "presc"},
			Values: [][]driver.Value{{int64(1), int64(12)}},
		},
		fakedb.Rows{Names: []string{"scan", "presc"}},
	)
	if err != nil {
		t.Fatalf("could not run query: %+v", err)
	}
}

func TestSave(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open conddb: %+v", err)
	}
	defer db.Close()

	execs, err := fakedb.Run(context.Background(), func(ctx context.Context) error {
		return db.Save(ctx, "bench", Scan{Presc: 3}, []Line{
			{ID: 0, Edge: 1},
			{ID: 8, Mode: 1, Async: true},
		})
	})
	if err != nil {
		t.Fatalf("could not save setup: %+v", err)
	}

	if got, want := len(execs), 5; got != want {
		t.Fatalf("invalid number of statements: got=%d, want=%d", got, want)
	}
	for i, query := range []string{
		"DELETE FROM eic_lines WHERE config=?",
		"DELETE FROM eic_configs WHERE name=?",
	} {
		if got, want := execs[i].Query, query; got != want {
			t.Fatalf("invalid statement %d:\ngot= %q\nwant=%q", i, got, want)
		}
		if got, want := execs[i].Args, []driver.Value{"bench"}; !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid statement %d args: got=%v, want=%v", i, got, want)
		}
	}
	if !strings.HasPrefix(execs[2].Query, "INSERT INTO eic_configs") {
		t.Fatalf("invalid setup statement: %q", execs[2].Query)
	}
	if got, want := execs[2].Args[:3], []driver.Value{"bench", false, int64(3)}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid setup args: got=%v, want=%v", got, want)
	}
	for i, id := range []int64{0, 8} {
		exec := execs[i+3]
		if !strings.HasPrefix(exec.Query, "INSERT INTO eic_lines") {
			t.Fatalf("invalid line statement: %q", exec.Query)
		}
		if got, want := exec.Args[1], driver.Value(id); got != want {
			t.Fatalf("invalid line id: got=%v, want=%v", got, want)
		}
	}
}
