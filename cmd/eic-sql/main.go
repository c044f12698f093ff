// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command eic-sql inspects or stores interrupt line setups in the
// conditions database.
package main // import "github.com/go-lpc/eic/cmd/eic-sql"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-lpc/eic"
	"github.com/go-lpc/eic/conddb"
)

const (
	dbname = "eicsrv"
)

func main() {
	log.SetPrefix("eic-sql: ")
	log.SetFlags(0)

	var (
		name  = flag.String("setup", "", "setup to inspect (default: last one)")
		dflt  = flag.Bool("save-default", false, "store the default setup")
		dbArg = flag.String("db", dbname, "name of the conditions database")
	)

	flag.Parse()

	db, err := conddb.Open(*dbArg)
	if err != nil {
		log.Fatalf("could not open EIC db: %+v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if *dflt {
		err = eic.SaveSetup(ctx, db, eic.DefaultSetup())
		if err != nil {
			log.Fatalf("could not store default setup: %+v", err)
		}
	}

	err = doQuery(ctx, os.Stdout, db, *name)
	if err != nil {
		log.Fatalf("could not do query: %+v", err)
	}
}

func doQuery(ctx context.Context, w io.Writer, db *conddb.DB, name string) error {
	setup, err := eic.LoadSetup(ctx, db, name)
	if err != nil {
		return fmt.Errorf("could not load setup %q: %w", name, err)
	}

	fmt.Fprintf(w, "setup: %q\n", setup.Name)
	fmt.Fprintf(w, "lines: %v\n", setup.Mask())
	for _, cfg := range setup.Lines {
		fmt.Fprintf(w, ">>> %v\n", cfg)
	}
	switch {
	case setup.Scan.Enabled:
		fmt.Fprintf(w, "scan:  presc=%d\n", setup.Scan.Presc)
	default:
		fmt.Fprintf(w, "scan:  off\n")
	}
	return nil
}
