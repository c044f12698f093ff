// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eic

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	evtSize = 12 // line:u8, pad:u8, reserved:u16, time:i64
	noPad   = 0xff
)

// Event describes the servicing of an interrupt line.
type Event struct {
	Line Line
	Pad  int // scan pad that caused the interrupt, -1 outside scan mode.
	Time time.Time
}

func (evt Event) String() string {
	if evt.Pad < 0 {
		return fmt.Sprintf("%v @%v", evt.Line, evt.Time.Format(time.RFC3339Nano))
	}
	return fmt.Sprintf("%v (pad=%d) @%v", evt.Line, evt.Pad, evt.Time.Format(time.RFC3339Nano))
}

// MarshalBinary encodes the event in little-endian order.
func (evt Event) MarshalBinary() ([]byte, error) {
	buf := make([]byte, evtSize)
	buf[0] = uint8(evt.Line)
	buf[1] = noPad
	if evt.Pad >= 0 {
		buf[1] = uint8(evt.Pad)
	}
	binary.LittleEndian.PutUint64(buf[4:], uint64(evt.Time.UnixNano()))
	return buf, nil
}

// UnmarshalBinary decodes an event encoded by MarshalBinary.
func (evt *Event) UnmarshalBinary(p []byte) error {
	if len(p) != evtSize {
		return fmt.Errorf("eic: invalid event size (got=%d, want=%d)", len(p), evtSize)
	}
	evt.Line = Line(p[0])
	if !evt.Line.Valid() {
		return fmt.Errorf("eic: invalid event line %d", p[0])
	}
	evt.Pad = int(p[1])
	if p[1] == noPad {
		evt.Pad = -1
	}
	evt.Time = time.Unix(0, int64(binary.LittleEndian.Uint64(p[4:])))
	return nil
}
