// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eic

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-lpc/eic/internal/regs"
)

type rwer interface {
	io.ReaderAt
	io.WriterAt
}

type reg32 struct {
	r func() uint32
	w func(v uint32)
}

func newReg32(ctl *Controller, rw rwer, offset int64) reg32 {
	return reg32{
		r: func() uint32 {
			return ctl.readU32(rw, offset)
		},
		w: func(v uint32) {
			ctl.writeU32(rw, offset, v)
		},
	}
}

// pins holds the registers of the EIC block.
type pins struct {
	ier reg32
	idr reg32
	imr reg32
	isr reg32
	icr reg32

	mode   reg32
	edge   reg32
	level  reg32
	filter reg32
	async  reg32
	scan   reg32

	en   reg32
	dis  reg32
	ctrl reg32
}

func (ctl *Controller) bind(rw rwer) {
	ctl.regs.ier = newReg32(ctl, rw, regs.EIC_IER)
	ctl.regs.idr = newReg32(ctl, rw, regs.EIC_IDR)
	ctl.regs.imr = newReg32(ctl, rw, regs.EIC_IMR)
	ctl.regs.isr = newReg32(ctl, rw, regs.EIC_ISR)
	ctl.regs.icr = newReg32(ctl, rw, regs.EIC_ICR)

	ctl.regs.mode = newReg32(ctl, rw, regs.EIC_MODE)
	ctl.regs.edge = newReg32(ctl, rw, regs.EIC_EDGE)
	ctl.regs.level = newReg32(ctl, rw, regs.EIC_LEVEL)
	ctl.regs.filter = newReg32(ctl, rw, regs.EIC_FILTER)
	ctl.regs.async = newReg32(ctl, rw, regs.EIC_ASYNC)
	ctl.regs.scan = newReg32(ctl, rw, regs.EIC_SCAN)

	ctl.regs.en = newReg32(ctl, rw, regs.EIC_EN)
	ctl.regs.dis = newReg32(ctl, rw, regs.EIC_DIS)
	ctl.regs.ctrl = newReg32(ctl, rw, regs.EIC_CTRL)
}

func (ctl *Controller) readU32(r io.ReaderAt, off int64) uint32 {
	if ctl.err != nil {
		return 0
	}
	_, ctl.err = r.ReadAt(ctl.buf[:4], off)
	if ctl.err != nil {
		ctl.err = fmt.Errorf("eic: could not read register 0x%x: %w", off, ctl.err)
		return 0
	}
	return binary.NativeEndian.Uint32(ctl.buf[:4])
}

func (ctl *Controller) writeU32(w io.WriterAt, off int64, v uint32) {
	if ctl.err != nil {
		return
	}
	binary.NativeEndian.PutUint32(ctl.buf[:4], v)
	_, ctl.err = w.WriteAt(ctl.buf[:4], off)
	if ctl.err != nil {
		ctl.err = fmt.Errorf("eic: could not write register 0x%x: %w", off, ctl.err)
		return
	}
}

// modify performs a read-modify-write of reg, setting the set bits and
// clearing the clr bits.
func modify(reg reg32, set, clr uint32) {
	v := reg.r()
	reg.w(v&^clr | set)
}
