// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmap gives register-level access to memory-mapped device windows.
package mmap // import "github.com/go-lpc/eic/internal/mmap"

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

var (
	errClosed = errors.New("mmap: closed")
)

// Handle is a window over a memory-mapped physical address range.
//
// Aligned 4-byte reads and writes are performed as a single 32-bit
// load or store, so a device register is never accessed byte-wise.
type Handle struct {
	data []byte // device window
	raw  []byte // page-aligned mapping, nil when not mmap'd
}

// Open maps span bytes of fname (usually /dev/mem) starting at the
// physical address base.
// base does not need to be page aligned.
func Open(fname string, base, span int64) (*Handle, error) {
	f, err := os.OpenFile(fname, os.O_RDWR|os.O_SYNC, 0666)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not open %q: %w", fname, err)
	}
	defer f.Close()

	var (
		page = int64(os.Getpagesize())
		beg  = base &^ (page - 1)
		skip = base - beg
		size = (skip + span + page - 1) &^ (page - 1)
	)

	raw, err := unix.Mmap(
		int(f.Fd()),
		beg, int(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not mmap 0x%x (span=0x%x): %w", base, span, err)
	}
	if raw == nil || int64(len(raw)) != size {
		_ = unix.Munmap(raw)
		return nil, fmt.Errorf("mmap: invalid mmap'd data: %d", len(raw))
	}

	h := &Handle{data: raw[skip : skip+span], raw: raw}
	runtime.SetFinalizer(h, (*Handle).Close)
	return h, nil
}

// HandleFrom returns a handle over an already allocated memory region.
func HandleFrom(data []byte) *Handle {
	return &Handle{data: data}
}

// Close closes the mmap handle.
func (h *Handle) Close() error {
	if h == nil {
		return os.ErrInvalid
	}

	if h.data == nil {
		return nil
	}
	raw := h.raw
	h.data = nil
	h.raw = nil
	runtime.SetFinalizer(h, nil)

	if raw == nil {
		return nil
	}
	return unix.Munmap(raw)
}

// Len returns the length of the device window.
func (h *Handle) Len() int {
	return len(h.data)
}

func (h *Handle) word(off int64) *uint32 {
	return (*uint32)(unsafe.Pointer(&h.data[off]))
}

func (h *Handle) aligned(p []byte, off int64) bool {
	return len(p) == 4 && off%4 == 0 &&
		uintptr(unsafe.Pointer(&h.data[off]))%4 == 0
}

// ReadAt implements the io.ReaderAt interface.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid ReadAt offset %d", off)
	}
	if int64(len(h.data))-off >= 4 && h.aligned(p, off) {
		binary.NativeEndian.PutUint32(p, atomic.LoadUint32(h.word(off)))
		return 4, nil
	}
	n := copy(p, h.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements the io.WriterAt interface.
func (h *Handle) WriteAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid WriteAt offset %d", off)
	}
	if int64(len(h.data))-off >= 4 && h.aligned(p, off) {
		atomic.StoreUint32(h.word(off), binary.NativeEndian.Uint32(p))
		return 4, nil
	}
	n := copy(h.data[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

var (
	_ io.ReaderAt = (*Handle)(nil)
	_ io.WriterAt = (*Handle)(nil)
	_ io.Closer   = (*Handle)(nil)
)
