// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command eic-ctl is an interactive shell driving the external interrupt
// controller of a UC3 node.
//
// Usage:
//
//	$> eic-ctl [OPTIONS]
//	eic> help
//	eic> en 0 3 nmi
//	eic> cfg 3 level-high filter
//	eic> status
package main // import "github.com/go-lpc/eic/cmd/eic-ctl"

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-lpc/eic"
	"github.com/go-lpc/eic/conddb"
	"github.com/go-lpc/eic/internal/eicsim"
	"github.com/peterh/liner"
)

func main() {
	var (
		devmem = flag.String("dev", "/dev/mem", "memory device to map")
		family = flag.String("family", "uc3a", "UC3 family of the part")
		sim    = flag.Bool("sim", false, "drive a simulated controller")
		dbname = flag.String("db", "", "name of the conditions database")
	)

	flag.Parse()

	log.SetPrefix("eic-ctl: ")
	log.SetFlags(0)

	if v, _ := eic.Version(); v != "" {
		log.Printf("version %s", v)
	}

	fam, err := eic.ParseFamily(*family)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	sh := &shell{out: os.Stdout}
	switch {
	case *sim:
		sh.sim = eicsim.New()
		sh.ctl = eic.New(sh.sim, eic.WithFamily(fam))
	default:
		sh.ctl, err = eic.Open(*devmem, eic.WithFamily(fam))
		if err != nil {
			log.Fatalf("could not open EIC controller: %+v", err)
		}
	}
	defer sh.ctl.Close()

	if *dbname != "" {
		sh.db, err = conddb.Open(*dbname)
		if err != nil {
			log.Fatalf("could not open EIC db: %+v", err)
		}
		defer sh.db.Close()
	}

	err = run(sh)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(sh *shell) error {
	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(sh.complete)

	for {
		line, err := term.Prompt("eic> ")
		switch {
		case err == nil:
		case errors.Is(err, liner.ErrPromptAborted), errors.Is(err, io.EOF):
			return nil
		default:
			return fmt.Errorf("could not read command: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		term.AppendHistory(line)

		err = sh.exec(line)
		switch {
		case err == nil:
		case errors.Is(err, errQuit):
			return nil
		default:
			fmt.Fprintf(sh.out, "error: %+v\n", err)
		}
	}
}

var errQuit = errors.New("eic-ctl: quit")

type shell struct {
	ctl *eic.Controller
	sim *eicsim.EIC // nil when driving real hardware
	db  *conddb.DB
	out io.Writer
}

type command struct {
	help string
	fct  func(sh *shell, args []string) error
}

var cmds map[string]command

func init() {
	cmds = map[string]command{
		"help":    {"print this help", (*shell).help},
		"quit":    {"leave the shell", func(*shell, []string) error { return errQuit }},
		"en":      {"en LINE...: enable lines", lines((*eic.Controller).EnableLines)},
		"dis":     {"dis LINE...: disable lines", lines((*eic.Controller).DisableLines)},
		"ien":     {"ien LINE...: enable interrupts of lines", lines((*eic.Controller).EnableInterruptLines)},
		"idis":    {"idis LINE...: disable interrupts of lines", lines((*eic.Controller).DisableInterruptLines)},
		"clr":     {"clr LINE...: clear pending flags of lines", lines((*eic.Controller).ClearInterruptLines)},
		"cfg":     {"cfg LINE TRIGGER [filter] [async]: configure a line", (*shell).config},
		"scan":    {"scan PRESC|off: enable or disable keypad scan", (*shell).scan},
		"status":  {"print the state of every line", (*shell).status},
		"load":    {"load [NAME]: apply a setup from the conditions database", (*shell).load},
		"raise":   {"raise LINE...: latch pending flags (simulator only)", (*shell).raise},
		"pending": {"print the pending lines", (*shell).pending},
	}
}

func (sh *shell) exec(line string) error {
	toks := strings.Fields(line)
	cmd, ok := cmds[toks[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", toks[0])
	}
	err := cmd.fct(sh, toks[1:])
	if err != nil {
		return err
	}
	return sh.ctl.Err()
}

func (sh *shell) complete(line string) []string {
	var o []string
	for name := range cmds {
		if strings.HasPrefix(name, line) {
			o = append(o, name)
		}
	}
	return o
}

func (sh *shell) help(args []string) error {
	for _, name := range []string{
		"en", "dis", "ien", "idis", "clr", "pending",
		"cfg", "scan", "status", "load", "raise", "help", "quit",
	} {
		fmt.Fprintf(sh.out, "  %-8s %s\n", name, cmds[name].help)
	}
	return nil
}

func lines(op func(*eic.Controller, eic.Mask)) func(*shell, []string) error {
	return func(sh *shell, args []string) error {
		m, err := parseMask(args)
		if err != nil {
			return err
		}
		op(sh.ctl, m)
		return nil
	}
}

func (sh *shell) config(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("missing line or trigger")
	}
	l, err := parseLine(args[0])
	if err != nil {
		return err
	}
	cfg := eic.Config{Line: l}
	switch args[1] {
	case "edge-falling":
		cfg.Trigger = eic.Edge{Polarity: eic.Falling}
	case "edge-rising":
		cfg.Trigger = eic.Edge{Polarity: eic.Rising}
	case "level-low":
		cfg.Trigger = eic.Level{Polarity: eic.Low}
	case "level-high":
		cfg.Trigger = eic.Level{Polarity: eic.High}
	default:
		return fmt.Errorf("invalid trigger %q", args[1])
	}
	for _, opt := range args[2:] {
		switch opt {
		case "filter":
			cfg.Filter = true
		case "async":
			cfg.Sampling = eic.Asynchronous
		default:
			return fmt.Errorf("invalid option %q", opt)
		}
	}
	sh.ctl.Init(cfg)
	return nil
}

func (sh *shell) scan(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("missing prescaler")
	}
	if args[0] == "off" {
		sh.ctl.DisableInterruptScan()
		return nil
	}
	v, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid prescaler %q: %w", args[0], err)
	}
	if v > 31 {
		return fmt.Errorf("invalid prescaler %d (max=31)", v)
	}
	sh.ctl.EnableInterruptScan(uint32(v))
	return nil
}

func (sh *shell) status(args []string) error {
	for l := eic.INT0; l < eic.NumLines; l++ {
		fmt.Fprintf(sh.out, "%-4v enabled=%-5v irq=%-5v pending=%-5v %v\n",
			l,
			sh.ctl.IsLineEnabled(l),
			sh.ctl.IsInterruptLineEnabled(l),
			sh.ctl.IsInterruptLinePending(l),
			sh.ctl.Config(l),
		)
	}
	switch {
	case sh.ctl.ScanEnabled():
		fmt.Fprintf(sh.out, "scan: presc=%d pad=%d\n", sh.ctl.ScanPrescaler(), sh.ctl.InterruptPadScan())
	default:
		fmt.Fprintf(sh.out, "scan: off\n")
	}
	return nil
}

func (sh *shell) pending(args []string) error {
	fmt.Fprintf(sh.out, "%v\n", sh.ctl.Pending())
	return nil
}

func (sh *shell) load(args []string) error {
	if sh.db == nil {
		return fmt.Errorf("no conditions database (missing -db?)")
	}
	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	setup, err := eic.LoadSetup(ctx, sh.db, name)
	if err != nil {
		return err
	}
	sh.ctl.Init(setup.Lines...)
	if setup.Scan.Enabled {
		sh.ctl.EnableInterruptScan(setup.Scan.Presc)
	}
	fmt.Fprintf(sh.out, "loaded setup %q: %v\n", setup.Name, setup.Mask())
	return nil
}

func (sh *shell) raise(args []string) error {
	if sh.sim == nil {
		return fmt.Errorf("raise needs a simulated controller (missing -sim?)")
	}
	m, err := parseMask(args)
	if err != nil {
		return err
	}
	sh.sim.Raise(sh.ctl.Family().Bits(m))
	return nil
}

func parseLine(s string) (eic.Line, error) {
	if strings.EqualFold(s, "nmi") {
		return eic.NMI, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "int"), 10, 8)
	if err != nil || !eic.Line(v).Valid() {
		return 0, fmt.Errorf("invalid line %q", s)
	}
	return eic.Line(v), nil
}

func parseMask(args []string) (eic.Mask, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("missing lines")
	}
	if len(args) == 1 && args[0] == "all" {
		return eic.AllLines, nil
	}
	var m eic.Mask
	for _, arg := range args {
		l, err := parseLine(arg)
		if err != nil {
			return 0, err
		}
		m |= eic.MaskOf(l)
	}
	return m, nil
}
