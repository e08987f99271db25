// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memory

import "fmt"

// A Buffer is an in-memory Memory implementation backed by a sparse set
// of byte segments. It stands in for a live inferior in tests and lets
// synthetic heaps place data at arbitrary addresses.
//
// Reads outside the mapped segments fail with a *SegfaultError, the same
// way an unmapped page would in a real target.
type Buffer struct {
	segments []segment
}

type segment struct {
	base uint64
	data []byte
}

// Map places data at base. Later mappings shadow earlier ones.
func (b *Buffer) Map(base uint64, data []byte) {
	b.segments = append(b.segments, segment{base: base, data: data})
}

// ReadAt implements Memory. The requested range must fall entirely
// within a single mapped segment.
func (b *Buffer) ReadAt(addr, size uint64) ([]byte, error) {
	for i := len(b.segments) - 1; i >= 0; i-- {
		s := b.segments[i]
		if addr < s.base || addr-s.base > uint64(len(s.data)) {
			continue
		}
		off := addr - s.base
		if size > uint64(len(s.data))-off {
			continue
		}
		out := make([]byte, size)
		copy(out, s.data[off:])
		return out, nil
	}
	return nil, Segfault(fmt.Errorf("unmapped range [%#x, %#x)", addr, addr+size))
}
