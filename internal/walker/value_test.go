// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package walker_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pywalk/pywalk/internal/cpython"
	"github.com/pywalk/pywalk/internal/heaptest"
	"github.com/pywalk/pywalk/internal/walker"
)

func TestMaterializeScalars(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()

	i := h.Int(b.Int, 42)
	s := h.Str(b.Str, "hi")
	f := h.Float(b.Float, 1.5)
	truth := h.Bool(b.Bool, true)
	none := h.None(b.None)
	addr := h.Tuple(b.Tuple, i, s, f, truth, none)

	g := walk(h, addr)

	v := g.Materialize(cpython.Pointer(addr))
	tuple, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, tuple, 5)
	assert.Equal(t, big.NewInt(42), tuple[0])
	assert.Equal(t, "hi", tuple[1])
	assert.Equal(t, 1.5, tuple[2])
	assert.Equal(t, true, tuple[3])
	assert.Nil(t, tuple[4])
}

func TestMaterializeDict(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()

	k := h.Int(b.Int, 1)
	v := h.Str(b.Str, "one")
	addr := h.Dict(b.Dict, heaptest.Pair{Key: k, Value: v})

	g := walk(h, addr)

	d, ok := g.Materialize(cpython.Pointer(addr)).(*walker.PyDict)
	require.True(t, ok)
	assert.Equal(t, 1, d.Len())

	// Python key equality: int(1), float(1.0) and True address the
	// same entry.
	got, ok := d.Get(big.NewInt(1))
	require.True(t, ok)
	assert.Equal(t, "one", got)

	got, ok = d.Get(1.0)
	require.True(t, ok)
	assert.Equal(t, "one", got)

	got, ok = d.Get(true)
	require.True(t, ok)
	assert.Equal(t, "one", got)

	_, ok = d.Get(big.NewInt(2))
	assert.False(t, ok)
}

func TestMaterializeInstance(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()

	name := h.Str(b.Str, "Something")
	class := h.Class(b.Class, name, 0, 0)
	k := h.Str(b.Str, "anything")
	v := h.Str(b.Str, "I'm here!")
	dict := h.Dict(b.Dict, heaptest.Pair{Key: k, Value: v})
	inst := h.Instance(b.Instance, class, dict)

	g := walk(h, inst)

	iv, ok := g.Materialize(cpython.Pointer(inst)).(walker.InstanceValue)
	require.True(t, ok)
	assert.Equal(t, "Something", iv.ClassName)
	assert.Equal(t, "I'm here!", iv.Attributes["anything"])
}

func TestMaterializeCycle(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()

	items := h.Alloc(8)
	addr := h.Object(b.List, cpython.ListObjectSize)
	h.WriteSWord(addr+16, 1)
	h.WriteWord(addr+24, items)
	h.WriteSWord(addr+32, 1)
	h.WriteWord(items, addr)

	g := walk(h, addr)

	v, ok := g.Materialize(cpython.Pointer(addr)).([]any)
	require.True(t, ok)
	require.Len(t, v, 1)
	assert.Equal(t, walker.Ref(addr), v[0])
}

func TestMaterializeMissing(t *testing.T) {
	g := walker.NewGraph(map[cpython.Pointer]walker.Node{})
	assert.Equal(t, walker.Ref(0x1234), g.Materialize(0x1234))
}

func TestPyDictTupleKeys(t *testing.T) {
	d := walker.NewPyDict(0)
	d.Set([]any{big.NewInt(1), "two"}, "entry")

	got, ok := d.Get([]any{big.NewInt(1), "two"})
	require.True(t, ok)
	assert.Equal(t, "entry", got)

	// Numeric members follow Python equality inside tuple keys too.
	got, ok = d.Get([]any{1.0, "two"})
	require.True(t, ok)
	assert.Equal(t, "entry", got)

	_, ok = d.Get([]any{big.NewInt(2), "two"})
	assert.False(t, ok)
}

func TestPyDictNoneKey(t *testing.T) {
	d := walker.NewPyDict(0)
	d.Set(nil, "none")
	got, ok := d.Get(nil)
	require.True(t, ok)
	assert.Equal(t, "none", got)
}

func TestPyDictReplacesEqualKey(t *testing.T) {
	d := walker.NewPyDict(0)
	d.Set(big.NewInt(1), "int")
	d.Set(1.0, "float")
	assert.Equal(t, 1, d.Len())
	got, _ := d.Get(true)
	assert.Equal(t, "float", got)
}

func TestPyDictUnhashable(t *testing.T) {
	d := walker.NewPyDict(0)
	assert.Panics(t, func() { d.Set(map[string]any{}, "x") })
}

func TestPyDictIter(t *testing.T) {
	d := walker.NewPyDict(0)
	d.Set("a", 1)
	d.Set("b", 2)

	seen := map[string]int{}
	d.Iter()(func(k, v any) bool {
		seen[k.(string)] = v.(int)
		return true
	})
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, seen)
}
