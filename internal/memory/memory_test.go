// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferReadAt(t *testing.T) {
	var b Buffer
	b.Map(0x1000, []byte{1, 2, 3, 4})

	got, err := b.ReadAt(0x1001, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3}, got)

	// Whole segment.
	got, err = b.ReadAt(0x1000, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, got)

	// Short reads are failures, not truncations.
	_, err = b.ReadAt(0x1002, 4)
	var segv *SegfaultError
	assert.ErrorAs(t, err, &segv)

	_, err = b.ReadAt(0x2000, 1)
	assert.ErrorAs(t, err, &segv)
}

func TestBufferShadowing(t *testing.T) {
	var b Buffer
	b.Map(0x1000, []byte{1, 2, 3, 4})
	b.Map(0x1000, []byte{9, 9, 9, 9})

	got, err := b.ReadAt(0x1000, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9, 9, 9}, got)
}

func TestTypedReads(t *testing.T) {
	var b Buffer
	b.Map(0x100, []byte{0xef, 0xbe, 0xad, 0xde, 0x00, 0x00, 0x00, 0x00})

	u, err := U64(&b, 0x100)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xdeadbeef), u)

	w, err := Word(&b, 0x100)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xdeadbeef), w)

	c, err := U8(&b, 0x102)
	require.NoError(t, err)
	assert.Equal(t, byte(0xad), c)
}

func TestSWord(t *testing.T) {
	var b Buffer
	b.Map(0x100, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})

	v, err := SWord(&b, 0x100)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v)
}

func TestU16Slice(t *testing.T) {
	var b Buffer
	b.Map(0x100, []byte{0x68, 0x00, 0x69, 0x00})

	u, err := U16Slice(&b, 0x100, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint16{'h', 'i'}, u)

	// Odd byte counts cannot hold 16-bit units.
	_, err = U16Slice(&b, 0x100, 3)
	var segv *SegfaultError
	require.ErrorAs(t, err, &segv)
	assert.Contains(t, segv.Cause.Error(), "multiple of 2")
}

func TestCStr(t *testing.T) {
	var b Buffer
	b.Map(0x100, []byte("hello\x00world"))

	s, err := CStr(&b, 0x100, 100)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	// The max cap stops the scan before the terminator.
	s, err = CStr(&b, 0x100, 3)
	require.NoError(t, err)
	assert.Equal(t, "hel", s)

	// Non-ASCII bytes pass through as codepoints.
	b.Map(0x200, []byte{0xff, 'x', 0x00})
	s, err = CStr(&b, 0x200, 100)
	require.NoError(t, err)
	assert.Equal(t, "ÿx", s)

	// Running off the mapping is a segfault.
	b.Map(0x300, []byte("no terminator"))
	_, err = CStr(&b, 0x300, 100)
	var segv *SegfaultError
	assert.ErrorAs(t, err, &segv)
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "Attempted to access invalid memory.", Segfault(nil).Error())
	assert.Equal(t, "Attempted to dereference a null pointer.", ErrNullPointer.Error())
	assert.Equal(t, "Attempted to decode seemingly invalid memory.", (&DecodeError{}).Error())
	assert.Equal(t, "Could not connect to remote process.", (&ConnectError{}).Error())
}
