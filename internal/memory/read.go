// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Functions for reading values of various types from an inferior's memory.
// The inferior is assumed little-endian with a 64-bit word; both addresses
// and the C long type are one word.

package memory

import (
	"encoding/binary"
	"fmt"
)

// WordSize is the size in bytes of an inferior pointer and of a C long.
const WordSize = 8

// U8 reads a single byte at addr.
func U8(m Memory, addr uint64) (byte, error) {
	b, err := m.ReadAt(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16Slice reads size bytes at addr and returns them as little-endian
// 16-bit units. size must be a multiple of 2.
func U16Slice(m Memory, addr, size uint64) ([]uint16, error) {
	if size%2 != 0 {
		return nil, Segfault(fmt.Errorf("invalid size %d: must be a multiple of 2", size))
	}
	b, err := m.ReadAt(addr, size)
	if err != nil {
		return nil, err
	}
	u := make([]uint16, size/2)
	for i := range u {
		u[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return u, nil
}

// U64 reads a little-endian 64-bit value at addr.
func U64(m Memory, addr uint64) (uint64, error) {
	b, err := m.ReadAt(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Word reads one inferior word at addr.
func Word(m Memory, addr uint64) (uint64, error) {
	return U64(m, addr)
}

// SWord reads one inferior word at addr and interprets it as signed.
func SWord(m Memory, addr uint64) (int64, error) {
	u, err := U64(m, addr)
	return int64(u), err
}

// CStr reads a C string at addr: bytes up to a NUL terminator or up to
// max bytes, whichever comes first. Non-ASCII bytes are passed through
// unchanged as codepoints.
func CStr(m Memory, addr uint64, max int) (string, error) {
	var runes []rune
	for off := 0; off < max; off++ {
		b, err := U8(m, addr+uint64(off))
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		runes = append(runes, rune(b))
	}
	return string(runes), nil
}
