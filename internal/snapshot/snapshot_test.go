// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snapshot_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pywalk/pywalk/internal/cpython"
	"github.com/pywalk/pywalk/internal/heaptest"
	"github.com/pywalk/pywalk/internal/snapshot"
	"github.com/pywalk/pywalk/internal/walker"
)

func TestRoundTrip(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()

	name := h.Str(b.Str, "Something")
	class := h.Class(b.Class, name, 0, 0)
	k := h.Str(b.Str, "anything")
	v := h.Str(b.Str, "I'm here!")
	dict := h.Dict(b.Dict, heaptest.Pair{Key: k, Value: v})
	inst := h.Instance(b.Instance, class, dict)
	i := h.Int(b.Int, 42)
	f := h.Float(b.Float, 2.5)
	truth := h.Bool(b.Bool, true)
	none := h.None(b.None)
	bad := h.Object(b.Int, cpython.IntObjectSize)
	h.WriteWord(bad+8, 0xdead0000)
	root := h.List(b.List, inst, i, f, truth, none, bad)

	g := walker.Walk(h, cpython.Pointer(root), cpython.StandardStrings)

	var buf bytes.Buffer
	id, err := snapshot.Write(&buf, g, cpython.Pointer(root), cpython.StandardStrings)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	s, err := snapshot.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, id, s.ID)
	assert.Equal(t, "standard", s.Profile)

	gotRoot, err := s.RootAddr()
	require.NoError(t, err)
	assert.Equal(t, cpython.Pointer(root), gotRoot)

	restored, err := s.Graph()
	require.NoError(t, err)
	require.Equal(t, g.Addresses(), restored.Addresses())
	for _, a := range g.Addresses() {
		orig := g.Node(a)
		back := restored.Node(a)
		if _, isErr := orig.(walker.Error); isErr {
			// Error nodes survive as their message.
			assert.Equal(t, orig.String(), back.String(), "node %#x", uint64(a))
			continue
		}
		assert.Equal(t, orig, back, "node %#x", uint64(a))
	}
}

func TestReadGarbage(t *testing.T) {
	_, err := snapshot.Read(bytes.NewReader([]byte("not a snapshot")))
	assert.Error(t, err)
}

func TestSnapshotIDsDiffer(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()
	root := h.Int(b.Int, 1)
	g := walker.Walk(h, cpython.Pointer(root), cpython.StandardStrings)

	var b1, b2 bytes.Buffer
	id1, err := snapshot.Write(&b1, g, cpython.Pointer(root), cpython.StandardStrings)
	require.NoError(t, err)
	id2, err := snapshot.Write(&b2, g, cpython.Pointer(root), cpython.StandardStrings)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}
