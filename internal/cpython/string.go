// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpython

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/pywalk/pywalk/internal/memory"
)

// A StringObject is a decoded narrow (byte) string header. The
// character data sits inline after the header; its exact offset comes
// from the profile the object was decoded with.
type StringObject struct {
	VarObject
	hash    int64
	payload Pointer
}

func (s *StringObject) typedObject() {}

// DerefString reads the string header at p. The profile fixes the
// payload offset.
func DerefString(m memory.Memory, p Pointer, prof Profile) (*StringObject, error) {
	b, err := readAt(m, p, StringObjectSize)
	if err != nil {
		return nil, err
	}
	return &StringObject{
		VarObject: varFromBytes(p, b),
		hash:      int64(binary.LittleEndian.Uint64(b[stringHashOff:])),
		payload:   p.Add(prof.stringPayload),
	}, nil
}

// Bytes returns the ob_size bytes of character data.
func (s *StringObject) Bytes(m memory.Memory) ([]byte, error) {
	n := s.Size()
	if n < 0 {
		return nil, memory.Segfault(fmt.Errorf("string at %#x has negative length %d", uint64(s.Addr()), n))
	}
	return readAt(m, s.payload, uint64(n))
}

// Text returns the character data decoded as UTF-8, replacing invalid
// sequences rather than failing on them.
func (s *StringObject) Text(m memory.Memory) (string, error) {
	b, err := s.Bytes(m)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError)), nil
}

// A UnicodeObject is a decoded wide string header. The payload is
// ob_size 16-bit code units stored inline.
type UnicodeObject struct {
	VarObject
}

func (u *UnicodeObject) typedObject() {}

// DerefUnicode reads the wide string header at p.
func DerefUnicode(m memory.Memory, p Pointer) (*UnicodeObject, error) {
	b, err := readAt(m, p, StringObjectSize)
	if err != nil {
		return nil, err
	}
	return &UnicodeObject{VarObject: varFromBytes(p, b)}, nil
}

// Bytes returns the raw payload: 2·ob_size bytes.
func (u *UnicodeObject) Bytes(m memory.Memory) ([]byte, error) {
	n := u.Size()
	if n < 0 {
		return nil, memory.Segfault(fmt.Errorf("unicode at %#x has negative length %d", uint64(u.Addr()), n))
	}
	return readAt(m, u.Addr().Add(unicodePayloadOff), uint64(2*n))
}

// Text returns the payload decoded as UTF-16LE, replacing unpaired
// surrogates rather than failing on them.
func (u *UnicodeObject) Text(m memory.Memory) (string, error) {
	n := u.Size()
	if n < 0 {
		return "", memory.Segfault(fmt.Errorf("unicode at %#x has negative length %d", uint64(u.Addr()), n))
	}
	units, err := memory.U16Slice(m, uint64(u.Addr().Add(unicodePayloadOff)), uint64(2*n))
	if err != nil {
		return "", err
	}
	return string(utf16.Decode(units)), nil
}
