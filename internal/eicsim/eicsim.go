// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package eicsim simulates the register block of an AVR32 UC3 External
// Interrupt Controller in memory.
//
// The simulator honours the set/clear aliases (IER/IDR, EN/DIS), the
// write-one-to-clear flag register (ICR), the read-only status registers
// and the edge/level detection of each input.
// All bit arguments are register bits, not line numbers.
package eicsim // import "github.com/go-lpc/eic/internal/eicsim"

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/go-lpc/eic/internal/regs"
)

const lineBits = 1<<regs.NLINES - 1

// EIC is an in-memory External Interrupt Controller.
type EIC struct {
	mu   sync.Mutex
	regs [regs.EIC_SPAN / 4]uint32
	pins uint32 // input levels
	err  error

	nw int // number of register writes
}

// New returns a simulated EIC with all registers at their reset value.
func New() *EIC {
	return &EIC{}
}

// ReadAt implements io.ReaderAt for aligned 32-bit accesses.
func (sim *EIC) ReadAt(p []byte, off int64) (int, error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if sim.err != nil {
		return 0, sim.err
	}
	if err := check(p, off); err != nil {
		return 0, err
	}

	binary.NativeEndian.PutUint32(p, sim.regs[off/4])
	return 4, nil
}

// WriteAt implements io.WriterAt for aligned 32-bit accesses.
func (sim *EIC) WriteAt(p []byte, off int64) (int, error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if sim.err != nil {
		return 0, sim.err
	}
	if err := check(p, off); err != nil {
		return 0, err
	}

	sim.nw++
	v := binary.NativeEndian.Uint32(p)
	switch off {
	case regs.EIC_IER:
		sim.regs[regs.EIC_IMR/4] |= v & lineBits
	case regs.EIC_IDR:
		sim.regs[regs.EIC_IMR/4] &^= v
	case regs.EIC_ICR:
		sim.regs[regs.EIC_ISR/4] &^= v
		// a level-triggered input still at its active level re-asserts.
		sim.regs[regs.EIC_ISR/4] |= v & sim.activeLevels()
	case regs.EIC_EN:
		sim.regs[regs.EIC_CTRL/4] |= v & lineBits
	case regs.EIC_DIS:
		sim.regs[regs.EIC_CTRL/4] &^= v
	case regs.EIC_SCAN:
		scan := &sim.regs[regs.EIC_SCAN/4]
		*scan = (*scan & regs.SCAN_PIN_MASK) | (v & (regs.SCAN_EN_MASK | regs.SCAN_PRESC_MASK))
	case regs.EIC_IMR, regs.EIC_ISR, regs.EIC_CTRL:
		// read-only.
	case regs.EIC_TEST:
		sim.regs[off/4] = v
	default:
		sim.regs[off/4] = v & lineBits
	}
	return 4, nil
}

func check(p []byte, off int64) error {
	if len(p) != 4 {
		return fmt.Errorf("eicsim: invalid access size %d at 0x%x", len(p), off)
	}
	if off < 0 || off%4 != 0 || off >= regs.EIC_SPAN {
		return fmt.Errorf("eicsim: invalid register offset 0x%x", off)
	}
	return nil
}

// Reg returns the raw content of the register at offset off.
func (sim *EIC) Reg(off int) uint32 {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.regs[off/4]
}

// Writes returns the number of register writes performed so far.
func (sim *EIC) Writes() int {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.nw
}

// Fail makes every subsequent register access fail with err.
// Fail(nil) restores the device.
func (sim *EIC) Fail(err error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.err = err
}

// Raise latches the pending flags of the provided register bits,
// regardless of the trigger configuration.
func (sim *EIC) Raise(bits uint32) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.regs[regs.EIC_ISR/4] |= bits & lineBits
}

// Drive sets the input level of the pin behind register bit.
// The pending flag is latched when the line is enabled and the new level
// matches its edge or level trigger condition.
func (sim *EIC) Drive(bit int, high bool) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	var (
		mask = uint32(1) << bit
		prev = sim.pins&mask != 0
	)
	if high {
		sim.pins |= mask
	} else {
		sim.pins &^= mask
	}

	if sim.regs[regs.EIC_CTRL/4]&mask == 0 {
		return
	}

	switch {
	case sim.regs[regs.EIC_MODE/4]&mask != 0:
		sim.regs[regs.EIC_ISR/4] |= mask & sim.activeLevels()
	default:
		rising := sim.regs[regs.EIC_EDGE/4]&mask != 0
		if prev != high && high == rising {
			sim.regs[regs.EIC_ISR/4] |= mask
		}
	}
}

// activeLevels returns the enabled level-triggered lines whose input
// currently sits at the active level.
func (sim *EIC) activeLevels() uint32 {
	var (
		mode  = sim.regs[regs.EIC_MODE/4]
		level = sim.regs[regs.EIC_LEVEL/4]
		ctrl  = sim.regs[regs.EIC_CTRL/4]
	)
	return mode & ctrl & ^(sim.pins ^ level) & lineBits
}

// Scan reports pad as the source of a keypad scan interrupt.
// Nothing happens when scan mode is disabled.
func (sim *EIC) Scan(pad int) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	scan := &sim.regs[regs.EIC_SCAN/4]
	if *scan&regs.SCAN_EN_MASK == 0 {
		return
	}
	pin := uint32(pad) << regs.SCAN_PIN_OFFSET & regs.SCAN_PIN_MASK
	*scan = (*scan &^ regs.SCAN_PIN_MASK) | pin
	sim.regs[regs.EIC_ISR/4] |= 1 << (pad & (1<<regs.SCAN_PIN_SIZE - 1))
}

// IRQ reports whether the controller currently asserts its CPU interrupt.
func (sim *EIC) IRQ() bool {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.regs[regs.EIC_ISR/4]&sim.regs[regs.EIC_IMR/4] != 0
}

var (
	_ io.ReaderAt = (*EIC)(nil)
	_ io.WriterAt = (*EIC)(nil)
)
