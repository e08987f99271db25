// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpython

import "github.com/pywalk/pywalk/internal/memory"

// A Pointer is a word-sized address in the inferior. It is the sole
// identity of a foreign object. The zero value is the null pointer.
type Pointer uint64

// IsNull reports whether p is the null pointer.
func (p Pointer) IsNull() bool { return p == 0 }

// Add returns p advanced by n bytes, wrapping in address space.
func (p Pointer) Add(n uint64) Pointer { return p + Pointer(n) }

// Offset returns p advanced by the signed byte offset n, wrapping in
// address space. Negative offsets move toward lower addresses.
func (p Pointer) Offset(n int64) Pointer { return Pointer(uint64(p) + uint64(n)) }

// Deref reads one word at p and interprets it as another pointer.
func (p Pointer) Deref(m memory.Memory) (Pointer, error) {
	if p.IsNull() {
		return 0, memory.ErrNullPointer
	}
	w, err := memory.Word(m, uint64(p))
	if err != nil {
		return 0, err
	}
	return Pointer(w), nil
}

// CStr reads a NUL-terminated byte sequence of at most max bytes at p.
func (p Pointer) CStr(m memory.Memory, max int) (string, error) {
	if p.IsNull() {
		return "", memory.ErrNullPointer
	}
	return memory.CStr(m, uint64(p), max)
}

// readAt reads size bytes at p, refusing null dereferences before the
// reader is consulted.
func readAt(m memory.Memory, p Pointer, size uint64) ([]byte, error) {
	if p.IsNull() {
		return nil, memory.ErrNullPointer
	}
	return m.ReadAt(uint64(p), size)
}
