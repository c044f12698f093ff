// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regs holds the register map of the AVR32 UC3 External Interrupt Controller.
package regs // import "github.com/go-lpc/eic/internal/regs"

const (
	// EIC_BASE is the physical address of the EIC on UC3A/UC3B parts.
	EIC_BASE = 0xFFFF0D80
	EIC_SPAN = 0x40
)

// register offsets, relative to EIC_BASE.
const (
	EIC_IER    = 0x00
	EIC_IDR    = 0x04
	EIC_IMR    = 0x08
	EIC_ISR    = 0x0C
	EIC_ICR    = 0x10
	EIC_MODE   = 0x14
	EIC_EDGE   = 0x18
	EIC_LEVEL  = 0x1C
	EIC_FILTER = 0x20
	EIC_TEST   = 0x24
	EIC_ASYNC  = 0x28
	EIC_SCAN   = 0x2C
	EIC_EN     = 0x30
	EIC_DIS    = 0x34
	EIC_CTRL   = 0x38
)

// SCAN register fields.
const (
	SCAN_EN_OFFSET    = 0
	SCAN_EN_MASK      = 0x00000001
	SCAN_PRESC_OFFSET = 8
	SCAN_PRESC_SIZE   = 5
	SCAN_PRESC_MASK   = 0x00001f00
	SCAN_PIN_OFFSET   = 24
	SCAN_PIN_SIZE     = 3
	SCAN_PIN_MASK     = 0x07000000
)

// NLINES is the number of register bits carrying an external interrupt line.
const NLINES = 9
