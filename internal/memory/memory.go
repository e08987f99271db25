// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The memory library provides read-only access to the address space of
// a target process, called the "inferior". A Memory is an address-indexed
// byte store; the typed accessors in this package build on it. There is
// nothing Python-specific about this library: it could just as easily
// back a reader for any foreign process. See ../cpython for the next
// layer up, the CPython-specific object decoders.
//
// All reads are point-in-time: a Memory does not require the inferior to
// be stopped, only that each individual read observes readable bytes.
// A short read is an error, never a truncated result.
package memory

// A Memory is a read-only view of an inferior's address space.
//
// Implementations must be safe for concurrent readers.
type Memory interface {
	// ReadAt returns size bytes starting at addr.
	// It returns a *SegfaultError if any byte in [addr, addr+size)
	// is not readable.
	ReadAt(addr, size uint64) ([]byte, error)
}
