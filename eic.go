// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eic

import (
	"fmt"
	"math/bits"
	"strings"
)

// Line identifies one of the external interrupt lines of the controller.
type Line uint8

const (
	INT0 Line = iota
	INT1
	INT2
	INT3
	INT4
	INT5
	INT6
	INT7
	NMI // non-maskable interrupt

	NumLines = 9
)

// Valid reports whether l names an existing line.
func (l Line) Valid() bool { return l < NumLines }

func (l Line) String() string {
	switch {
	case l == NMI:
		return "NMI"
	case l.Valid():
		return fmt.Sprintf("INT%d", uint8(l))
	default:
		return fmt.Sprintf("Line(%d)", uint8(l))
	}
}

// Mask is a set of lines: bit i holds line i.
type Mask uint32

// AllLines holds every line of the controller.
const AllLines Mask = 1<<NumLines - 1

// MaskOf returns the mask holding the provided lines.
// Invalid lines are ignored.
func MaskOf(lines ...Line) Mask {
	var m Mask
	for _, l := range lines {
		if !l.Valid() {
			continue
		}
		m |= 1 << l
	}
	return m
}

// Has reports whether l is part of the mask.
func (m Mask) Has(l Line) bool {
	return l.Valid() && m&(1<<l) != 0
}

// Lines returns the lines held by the mask, in increasing order.
func (m Mask) Lines() []Line {
	m &= AllLines
	o := make([]Line, 0, bits.OnesCount32(uint32(m)))
	for m != 0 {
		i := bits.TrailingZeros32(uint32(m))
		o = append(o, Line(i))
		m &^= 1 << i
	}
	return o
}

func (m Mask) String() string {
	lines := m.Lines()
	if len(lines) == 0 {
		return "{}"
	}
	o := new(strings.Builder)
	o.WriteString("{")
	for i, l := range lines {
		if i > 0 {
			o.WriteString(", ")
		}
		o.WriteString(l.String())
	}
	o.WriteString("}")
	return o.String()
}

// Family selects how lines are laid out in the registers of a given
// UC3 part.
type Family uint8

const (
	// UC3A covers UC3A and UC3B parts: line n sits on bit n, NMI on bit 8.
	UC3A Family = iota
	// UC3L covers UC3C, UC3D and UC3L parts: NMI sits on bit 0, line n on bit n+1.
	UC3L
)

func (f Family) String() string {
	switch f {
	case UC3A:
		return "uc3a"
	case UC3L:
		return "uc3l"
	default:
		return fmt.Sprintf("Family(%d)", uint8(f))
	}
}

// ParseFamily returns the family named by s ("uc3a", "uc3b", "uc3c",
// "uc3d" or "uc3l").
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(s) {
	case "uc3a", "uc3b":
		return UC3A, nil
	case "uc3c", "uc3d", "uc3l":
		return UC3L, nil
	default:
		return 0, fmt.Errorf("eic: unknown UC3 family %q", s)
	}
}

// Bits converts a line mask into the register bits of the family.
// Invalid lines are ignored.
func (f Family) Bits(m Mask) uint32 {
	m &= AllLines
	switch f {
	case UC3L:
		nmi := uint32(m>>NMI) & 1
		return uint32(m&^(1<<NMI))<<1 | nmi
	default:
		return uint32(m)
	}
}

// mask converts register bits into a line mask.
func (f Family) mask(v uint32) Mask {
	switch f {
	case UC3L:
		nmi := Mask(v&1) << NMI
		return Mask(v>>1)&(AllLines>>1) | nmi
	default:
		return Mask(v) & AllLines
	}
}
