// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eic

import (
	"runtime/debug"
	"testing"
)

func TestVersion(t *testing.T) {
	const root = "github.com/go-lpc/eic"
	for _, tc := range []struct {
		name    string
		b       *debug.BuildInfo
		version string
		sum     string
	}{
		{
			name: "nil",
		},
		{
			name: "main",
			b: &debug.BuildInfo{
				Main: debug.Module{Path: root, Version: "v0.3.0", Sum: "h1:main"},
			},
			version: "v0.3.0",
			sum:     "h1:main",
		},
		{
			name: "dep",
			b: &debug.BuildInfo{
				Main: debug.Module{Path: "example.org/daq"},
				Deps: []*debug.Module{
					{Path: "github.com/go-daq/tdaq", Version: "v0.14.2"},
					{Path: root, Version: "v0.2.1", Sum: "h1:dep"},
				},
			},
			version: "v0.2.1",
			sum:     "h1:dep",
		},
		{
			name: "replace-path-version",
			b: &debug.BuildInfo{
				Main: debug.Module{Path: "example.org/daq"},
				Deps: []*debug.Module{{
					Path: root, Version: "v0.2.1",
					Replace: &debug.Module{Path: "example.org/eic", Version: "v0.2.2", Sum: "h1:fork"},
				}},
			},
			version: "example.org/eic v0.2.2",
			sum:     "h1:fork",
		},
		{
			name: "replace-version",
			b: &debug.BuildInfo{
				Main: debug.Module{Path: "example.org/daq"},
				Deps: []*debug.Module{{
					Path: root, Version: "v0.2.1",
					Replace: &debug.Module{Version: "v0.2.3", Sum: "h1:repl"},
				}},
			},
			version: "v0.2.3",
			sum:     "h1:repl",
		},
		{
			name: "replace-path",
			b: &debug.BuildInfo{
				Main: debug.Module{Path: "example.org/daq"},
				Deps: []*debug.Module{{
					Path: root, Version: "v0.2.1",
					Replace: &debug.Module{Path: "../eic"},
				}},
			},
			version: "../eic",
		},
		{
			name: "missing",
			b: &debug.BuildInfo{
				Main: debug.Module{Path: "example.org/daq"},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			version, sum := versionOf(tc.b)
			if version != tc.version || sum != tc.sum {
				t.Fatalf("invalid version: got=(%q, %q), want=(%q, %q)",
					version, sum, tc.version, tc.sum,
				)
			}
		})
	}
}
