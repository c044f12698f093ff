// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eic

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/go-lpc/eic/internal/mmap"
	"github.com/go-lpc/eic/internal/regs"
)

// Controller drives the register block of an External Interrupt Controller.
//
// Line enable and interrupt mask changes go through the EN/DIS and
// IER/IDR set/clear registers: they are single writes and never race with
// other writers of the block.
// Trigger configuration and scan control are read-modify-write sequences;
// a Controller serializes them, but two processes mapping the same block
// must disable a line before reconfiguring it.
//
// Register I/O failures of the underlying transport are sticky: once an
// access failed, all further accesses are no-ops, queries report false or
// zero and Err reports the first failure.
type Controller struct {
	mu  sync.Mutex
	msg *log.Logger
	fam Family

	mem  io.Closer
	regs pins

	err error
	buf [4]byte
}

// New returns a controller over the register block exposed by rw.
// Offset 0 of rw is the base of the block.
func New(rw interface {
	io.ReaderAt
	io.WriterAt
}, opts ...Option) *Controller {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctl := &Controller{
		msg: cfg.msg,
		fam: cfg.family,
	}
	ctl.bind(rw)
	return ctl
}

// Open maps the register block from devmem (usually /dev/mem) and returns
// a controller over it.
func Open(devmem string, opts ...Option) (*Controller, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	mem, err := mmap.Open(devmem, cfg.base, regs.EIC_SPAN)
	if err != nil {
		return nil, fmt.Errorf("eic: could not map register block at 0x%x: %w", cfg.base, err)
	}

	ctl := New(mem, opts...)
	ctl.mem = mem
	ctl.msg.Printf("mapped %s controller at 0x%x", ctl.fam, cfg.base)
	return ctl, nil
}

// Close releases the register mapping, if any.
func (ctl *Controller) Close() error {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	if ctl.mem == nil {
		return nil
	}
	err := ctl.mem.Close()
	ctl.mem = nil
	if err != nil {
		return fmt.Errorf("eic: could not unmap register block: %w", err)
	}
	return nil
}

// Err returns the first register I/O error encountered, if any.
func (ctl *Controller) Err() error {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.err
}

// Family returns the register layout used by the controller.
func (ctl *Controller) Family() Family { return ctl.fam }

// Init configures the trigger mode, polarity, filter and sampling of each
// provided line, in order. When a line appears more than once, the last
// configuration wins.
// Init does not enable lines nor their interrupts.
func (ctl *Controller) Init(cfgs ...Config) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	for _, cfg := range cfgs {
		bit := ctl.fam.Bits(MaskOf(cfg.Line))
		mode, edge, level, filter, async := cfg.fields()
		setBit(ctl.regs.mode, bit, mode)
		setBit(ctl.regs.edge, bit, edge)
		setBit(ctl.regs.level, bit, level)
		setBit(ctl.regs.filter, bit, filter)
		setBit(ctl.regs.async, bit, async)
	}
}

func setBit(reg reg32, bit uint32, v bool) {
	if v {
		modify(reg, bit, 0)
		return
	}
	modify(reg, 0, bit)
}

// Config reads back the configuration of line l from the registers.
func (ctl *Controller) Config(l Line) Config {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	bit := ctl.fam.Bits(MaskOf(l))
	return configFrom(l,
		ctl.regs.mode.r()&bit != 0,
		ctl.regs.edge.r()&bit != 0,
		ctl.regs.level.r()&bit != 0,
		ctl.regs.filter.r()&bit != 0,
		ctl.regs.async.r()&bit != 0,
	)
}

// EnableLines enables the lines of the mask.
// Other lines are left untouched.
func (ctl *Controller) EnableLines(m Mask) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	ctl.regs.en.w(ctl.fam.Bits(m))
}

// EnableLine enables line l.
func (ctl *Controller) EnableLine(l Line) { ctl.EnableLines(MaskOf(l)) }

// DisableLines disables the lines of the mask.
// Pending flags of these lines are not cleared.
func (ctl *Controller) DisableLines(m Mask) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	ctl.regs.dis.w(ctl.fam.Bits(m))
}

// DisableLine disables line l.
func (ctl *Controller) DisableLine(l Line) { ctl.DisableLines(MaskOf(l)) }

// Enabled returns the set of enabled lines.
func (ctl *Controller) Enabled() Mask {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.fam.mask(ctl.regs.ctrl.r())
}

// IsLineEnabled reports whether line l is enabled.
func (ctl *Controller) IsLineEnabled(l Line) bool {
	return ctl.Enabled().Has(l)
}

// EnableInterruptLines lets the lines of the mask raise the CPU interrupt.
func (ctl *Controller) EnableInterruptLines(m Mask) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	ctl.regs.ier.w(ctl.fam.Bits(m))
	_ = ctl.regs.imr.r() // make sure the write reached the peripheral.
}

// EnableInterruptLine lets line l raise the CPU interrupt.
func (ctl *Controller) EnableInterruptLine(l Line) { ctl.EnableInterruptLines(MaskOf(l)) }

// DisableInterruptLines prevents the lines of the mask from raising the
// CPU interrupt.
func (ctl *Controller) DisableInterruptLines(m Mask) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	ctl.regs.idr.w(ctl.fam.Bits(m))
	_ = ctl.regs.imr.r()
}

// DisableInterruptLine prevents line l from raising the CPU interrupt.
func (ctl *Controller) DisableInterruptLine(l Line) { ctl.DisableInterruptLines(MaskOf(l)) }

// InterruptsEnabled returns the set of lines allowed to raise the CPU
// interrupt.
func (ctl *Controller) InterruptsEnabled() Mask {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.fam.mask(ctl.regs.imr.r())
}

// IsInterruptLineEnabled reports whether line l may raise the CPU interrupt.
func (ctl *Controller) IsInterruptLineEnabled(l Line) bool {
	return ctl.InterruptsEnabled().Has(l)
}

// ClearInterruptLines acknowledges the pending flags of the lines of the
// mask. Interrupt handlers must call it once a line has been serviced,
// otherwise the interrupt fires again.
func (ctl *Controller) ClearInterruptLines(m Mask) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	ctl.regs.icr.w(ctl.fam.Bits(m))
	_ = ctl.regs.isr.r()
}

// ClearInterruptLine acknowledges the pending flag of line l.
func (ctl *Controller) ClearInterruptLine(l Line) { ctl.ClearInterruptLines(MaskOf(l)) }

// Pending returns the set of lines with a latched interrupt flag.
func (ctl *Controller) Pending() Mask {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.fam.mask(ctl.regs.isr.r())
}

// IsInterruptLinePending reports whether line l has a latched interrupt flag.
func (ctl *Controller) IsInterruptLinePending(l Line) bool {
	return ctl.Pending().Has(l)
}

// EnableInterruptScan enables the keypad scan mode.
// presc selects the scan rate; only its 5 low bits are used.
func (ctl *Controller) EnableInterruptScan(presc uint32) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	presc = presc << regs.SCAN_PRESC_OFFSET & regs.SCAN_PRESC_MASK
	modify(ctl.regs.scan, regs.SCAN_EN_MASK|presc, regs.SCAN_PRESC_MASK)
}

// DisableInterruptScan disables the keypad scan mode.
func (ctl *Controller) DisableInterruptScan() {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	modify(ctl.regs.scan, 0, regs.SCAN_EN_MASK)
}

// ScanEnabled reports whether the keypad scan mode is enabled.
func (ctl *Controller) ScanEnabled() bool {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.regs.scan.r()&regs.SCAN_EN_MASK != 0
}

// ScanPrescaler returns the prescale select of the keypad scan.
func (ctl *Controller) ScanPrescaler() uint32 {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.regs.scan.r() & regs.SCAN_PRESC_MASK >> regs.SCAN_PRESC_OFFSET
}

// InterruptPadScan returns the pad that caused the last scan interrupt.
// The value is only meaningful right after a scan interrupt.
func (ctl *Controller) InterruptPadScan() int {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return int(ctl.regs.scan.r() & regs.SCAN_PIN_MASK >> regs.SCAN_PIN_OFFSET)
}
