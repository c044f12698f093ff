// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eicsim

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/go-lpc/eic/internal/regs"
)

func write(t *testing.T, sim *EIC, off int64, v uint32) {
	t.Helper()
	var buf [4]byte
	binary.NativeEndian.PutUint32(buf[:], v)
	_, err := sim.WriteAt(buf[:], off)
	if err != nil {
		t.Fatalf("could not write 0x%x @0x%x: %+v", v, off, err)
	}
}

func read(t *testing.T, sim *EIC, off int64) uint32 {
	t.Helper()
	var buf [4]byte
	_, err := sim.ReadAt(buf[:], off)
	if err != nil {
		t.Fatalf("could not read @0x%x: %+v", off, err)
	}
	return binary.NativeEndian.Uint32(buf[:])
}

func TestAliases(t *testing.T) {
	sim := New()

	write(t, sim, regs.EIC_EN, 0x0a)
	write(t, sim, regs.EIC_EN, 0x100)
	write(t, sim, regs.EIC_DIS, 0x02)
	if got, want := read(t, sim, regs.EIC_CTRL), uint32(0x108); got != want {
		t.Fatalf("invalid ctrl: got=0x%x, want=0x%x", got, want)
	}

	write(t, sim, regs.EIC_IER, 0xff)
	write(t, sim, regs.EIC_IDR, 0x0f)
	if got, want := read(t, sim, regs.EIC_IMR), uint32(0xf0); got != want {
		t.Fatalf("invalid imr: got=0x%x, want=0x%x", got, want)
	}

	write(t, sim, regs.EIC_CTRL, 0)
	write(t, sim, regs.EIC_IMR, 0)
	if got, want := read(t, sim, regs.EIC_CTRL), uint32(0x108); got != want {
		t.Fatalf("ctrl is not read-only: got=0x%x, want=0x%x", got, want)
	}

	sim.Raise(0x1ff)
	write(t, sim, regs.EIC_ICR, 0x0f)
	if got, want := read(t, sim, regs.EIC_ISR), uint32(0x1f0); got != want {
		t.Fatalf("invalid isr: got=0x%x, want=0x%x", got, want)
	}
	if !sim.IRQ() {
		t.Fatalf("expected an asserted IRQ")
	}

	if got, want := sim.Writes(), 8; got != want {
		t.Fatalf("invalid number of writes: got=%d, want=%d", got, want)
	}
}

func TestDrive(t *testing.T) {
	for _, tc := range []struct {
		name  string
		mode  uint32
		edge  uint32
		level uint32
		seq   []bool
		want  bool
	}{
		{name: "rising", edge: 1 << 3, seq: []bool{true}, want: true},
		{name: "rising-then-low", edge: 1 << 3, seq: []bool{true, false}, want: true},
		{name: "falling", seq: []bool{true}, want: false},
		{name: "falling-edge", seq: []bool{true, false}, want: true},
		{name: "level-high", mode: 1 << 3, level: 1 << 3, seq: []bool{true}, want: true},
		{name: "level-low", mode: 1 << 3, seq: []bool{true}, want: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sim := New()
			write(t, sim, regs.EIC_MODE, tc.mode)
			write(t, sim, regs.EIC_EDGE, tc.edge)
			write(t, sim, regs.EIC_LEVEL, tc.level)
			write(t, sim, regs.EIC_EN, 1<<3)

			for _, v := range tc.seq {
				sim.Drive(3, v)
			}

			if got, want := read(t, sim, regs.EIC_ISR)&(1<<3) != 0, tc.want; got != want {
				t.Fatalf("invalid pending flag: got=%v, want=%v", got, want)
			}
		})
	}

	t.Run("disabled", func(t *testing.T) {
		sim := New()
		write(t, sim, regs.EIC_EDGE, 1<<2)
		sim.Drive(2, true)
		if got := read(t, sim, regs.EIC_ISR); got != 0 {
			t.Fatalf("disabled line latched a flag: 0x%x", got)
		}
	})

	t.Run("level-reasserts", func(t *testing.T) {
		sim := New()
		write(t, sim, regs.EIC_MODE, 1<<1)
		write(t, sim, regs.EIC_LEVEL, 1<<1)
		write(t, sim, regs.EIC_EN, 1<<1)
		sim.Drive(1, true)
		write(t, sim, regs.EIC_ICR, 1<<1)
		if got, want := read(t, sim, regs.EIC_ISR), uint32(1<<1); got != want {
			t.Fatalf("level flag not re-asserted: got=0x%x, want=0x%x", got, want)
		}
		sim.Drive(1, false)
		write(t, sim, regs.EIC_ICR, 1<<1)
		if got := read(t, sim, regs.EIC_ISR); got != 0 {
			t.Fatalf("level flag not cleared: 0x%x", got)
		}
	})
}

func TestScan(t *testing.T) {
	sim := New()
	sim.Scan(5)
	if got := sim.Reg(regs.EIC_ISR); got != 0 {
		t.Fatalf("scan disabled but flag latched: 0x%x", got)
	}

	write(t, sim, regs.EIC_SCAN, 0x1f<<regs.SCAN_PRESC_OFFSET|1|regs.SCAN_PIN_MASK)
	if got, want := sim.Reg(regs.EIC_SCAN), uint32(0x1f01); got != want {
		t.Fatalf("invalid scan register: got=0x%x, want=0x%x", got, want)
	}

	sim.Scan(5)
	if got, want := sim.Reg(regs.EIC_SCAN)>>regs.SCAN_PIN_OFFSET, uint32(5); got != want {
		t.Fatalf("invalid scan pad: got=%d, want=%d", got, want)
	}
	if got, want := sim.Reg(regs.EIC_ISR), uint32(1<<5); got != want {
		t.Fatalf("invalid isr: got=0x%x, want=0x%x", got, want)
	}
}

func TestFail(t *testing.T) {
	sim := New()
	sim.Fail(io.ErrUnexpectedEOF)

	var buf [4]byte
	_, err := sim.ReadAt(buf[:], 0)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("invalid error: %+v", err)
	}
	_, err = sim.WriteAt(buf[:], 0)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("invalid error: %+v", err)
	}

	sim.Fail(nil)
	for _, tc := range []struct {
		p   []byte
		off int64
	}{
		{buf[:2], 0},
		{buf[:], 2},
		{buf[:], regs.EIC_SPAN},
		{buf[:], -4},
	} {
		_, err = sim.ReadAt(tc.p, tc.off)
		if err == nil {
			t.Fatalf("expected an error for len=%d off=%d", len(tc.p), tc.off)
		}
	}
}
