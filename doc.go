// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package eic drives the External Interrupt Controller (EIC) of AVR32 UC3
// microcontrollers.
//
// The controller multiplexes nine external interrupt lines (INT0 to INT7
// and the non-maskable NMI line) onto a single memory-mapped register
// block. A Controller translates line-level operations (enable, trigger
// configuration, interrupt masking, flag acknowledgement and keypad scan)
// into accesses to that block, either through /dev/mem or through any
// io.ReaderAt and io.WriterAt of the same layout.
package eic // import "github.com/go-lpc/eic"

import (
	"fmt"
	"runtime/debug"
)

// Version returns the version of eic and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	const root = "github.com/go-lpc/eic"
	if b.Main.Path == root {
		return b.Main.Version, b.Main.Sum
	}
	for _, m := range b.Deps {
		if m.Path != root {
			continue
		}
		if m.Replace != nil {
			switch {
			case m.Replace.Version != "" && m.Replace.Path != "":
				return fmt.Sprintf("%s %s", m.Replace.Path, m.Replace.Version), m.Replace.Sum
			case m.Replace.Version != "":
				return m.Replace.Version, m.Replace.Sum
			default:
				return m.Replace.Path, m.Replace.Sum
			}
		}
		return m.Version, m.Sum
	}
	return "", ""
}
