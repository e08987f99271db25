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

func walk(h *heaptest.Heap, root uint64) *walker.Graph {
	return walker.Walk(h, cpython.Pointer(root), cpython.StandardStrings)
}

func TestWalkInt(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()
	addr := h.Int(b.Int, 42)

	g := walk(h, addr)

	assert.Equal(t, walker.Int{Value: big.NewInt(42)}, g.Node(cpython.Pointer(addr)))
	assert.Equal(t, walker.Type{Name: "int"}, g.Node(cpython.Pointer(b.Int)))
}

func TestWalkString(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()
	addr := h.Str(b.Str, "hello world")

	g := walk(h, addr)

	assert.Equal(t, walker.String("hello world"), g.Node(cpython.Pointer(addr)))
	assert.Equal(t, walker.Type{Name: "str"}, g.Node(cpython.Pointer(b.Str)))
}

func TestWalkSmallStrings(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()
	addr := h.SmallStr(b.Str, "hello world")

	g := walker.Walk(h, cpython.Pointer(addr), cpython.SmallStrings)

	assert.Equal(t, walker.String("hello world"), g.Node(cpython.Pointer(addr)))
}

func TestWalkUnicode(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()
	addr := h.Unicode(b.Unicode, "héllo")

	g := walk(h, addr)

	assert.Equal(t, walker.String("héllo"), g.Node(cpython.Pointer(addr)))
}

func TestWalkScalars(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()
	truth := h.Bool(b.Bool, true)
	none := h.None(b.None)
	pi := h.Float(b.Float, 3.14)
	addr := h.Tuple(b.Tuple, truth, none, pi)

	g := walk(h, addr)

	assert.Equal(t,
		walker.Tuple{cpython.Pointer(truth), cpython.Pointer(none), cpython.Pointer(pi)},
		g.Node(cpython.Pointer(addr)))
	assert.Equal(t, walker.Bool(true), g.Node(cpython.Pointer(truth)))
	assert.Equal(t, walker.None{}, g.Node(cpython.Pointer(none)))
	assert.Equal(t, walker.Float(3.14), g.Node(cpython.Pointer(pi)))
}

// The mixed-list scenario: a list holding an int, a string and an
// instance whose attribute dict leads to one more string.
func TestWalkListMixed(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()

	intAddr := h.Int(b.Int, 42)
	strAddr := h.Str(b.Str, "hello world")

	className := h.Str(b.Str, "Something")
	classAddr := h.Class(b.Class, className, 0, 0)
	attrKey := h.Str(b.Str, "anything")
	attrVal := h.Str(b.Str, "I'm here!")
	dictAddr := h.Dict(b.Dict, heaptest.Pair{Key: attrKey, Value: attrVal})
	instAddr := h.Instance(b.Instance, classAddr, dictAddr)

	listAddr := h.List(b.List, intAddr, strAddr, instAddr)

	g := walk(h, listAddr)

	assert.Equal(t,
		walker.List{cpython.Pointer(intAddr), cpython.Pointer(strAddr), cpython.Pointer(instAddr)},
		g.Node(cpython.Pointer(listAddr)))
	assert.Equal(t, walker.Int{Value: big.NewInt(42)}, g.Node(cpython.Pointer(intAddr)))
	assert.Equal(t, walker.String("hello world"), g.Node(cpython.Pointer(strAddr)))

	inst, ok := g.Node(cpython.Pointer(instAddr)).(walker.Instance)
	require.True(t, ok)
	assert.Equal(t, "Something", inst.ClassName)
	assert.Equal(t, cpython.Pointer(classAddr), inst.Class)
	require.Contains(t, inst.Attributes, "anything")
	assert.Equal(t, cpython.Pointer(attrVal), inst.Attributes["anything"])

	// The attribute value and the class are reachable through the
	// instance and must be in the graph.
	assert.Equal(t, walker.String("I'm here!"), g.Node(cpython.Pointer(attrVal)))
	cls, ok := g.Node(cpython.Pointer(classAddr)).(walker.Class)
	require.True(t, ok)
	assert.Equal(t, "Something", cls.Name)
}

func TestWalkCycle(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()

	// A list whose only element is the list itself.
	items := h.Alloc(8)
	addr := h.Object(b.List, cpython.ListObjectSize)
	h.WriteSWord(addr+16, 1)
	h.WriteWord(addr+24, items)
	h.WriteSWord(addr+32, 1)
	h.WriteWord(items, addr)

	g := walk(h, addr)

	assert.Equal(t, walker.List{cpython.Pointer(addr)}, g.Node(cpython.Pointer(addr)))
}

func TestWalkCorruptTypePointer(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()

	intAddr := h.Int(b.Int, 42)
	bad := h.Object(b.Int, cpython.IntObjectSize)
	h.WriteWord(bad+8, 0xdead0000) // ob_type into unreadable memory
	listAddr := h.List(b.List, intAddr, bad)

	g := walk(h, listAddr)

	// The corrupt object becomes an Error node; everything else is
	// unaffected.
	_, ok := g.Node(cpython.Pointer(bad)).(walker.Error)
	assert.True(t, ok)
	assert.Equal(t, walker.Int{Value: big.NewInt(42)}, g.Node(cpython.Pointer(intAddr)))
	assert.Equal(t,
		walker.List{cpython.Pointer(intAddr), cpython.Pointer(bad)},
		g.Node(cpython.Pointer(listAddr)))
}

func TestWalkOversizedDict(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()

	k1 := h.Str(b.Str, "a")
	k2 := h.Str(b.Str, "b")
	k3 := h.Str(b.Str, "c")
	v := h.Int(b.Int, 1)
	addr := h.DictSpec(b.Dict, 10_000_000, 10_000,
		heaptest.Pair{Key: k1, Value: v},
		heaptest.Pair{Key: k2, Value: v},
		heaptest.Pair{Key: k3, Value: v})

	g := walk(h, addr)

	d, ok := g.Node(cpython.Pointer(addr)).(walker.Dict)
	require.True(t, ok)
	assert.Len(t, d, 3)
	assert.Equal(t, cpython.Pointer(v), d[cpython.Pointer(k1)])
}

func TestWalkDict(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()

	k := h.Str(b.Str, "n")
	v := h.Int(b.Int, 9)
	addr := h.Dict(b.Dict, heaptest.Pair{Key: k, Value: v})

	g := walk(h, addr)

	assert.Equal(t,
		walker.Dict{cpython.Pointer(k): cpython.Pointer(v)},
		g.Node(cpython.Pointer(addr)))
	// Dict keys and values both get their own nodes.
	assert.Equal(t, walker.String("n"), g.Node(cpython.Pointer(k)))
	assert.Equal(t, walker.Int{Value: big.NewInt(9)}, g.Node(cpython.Pointer(v)))
}

func TestWalkListTruncated(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()

	e1 := h.Int(b.Int, 1)
	e2 := h.Int(b.Int, 2)
	addr := h.List(b.List, e1, e2, 0xdead0000)

	g := walk(h, addr)

	// The unreadable tail is dropped; the node stays a List.
	assert.Equal(t,
		walker.List{cpython.Pointer(e1), cpython.Pointer(e2)},
		g.Node(cpython.Pointer(addr)))
}

func TestWalkNonStringAttributeKeysDropped(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()

	name := h.Str(b.Str, "Odd")
	class := h.Class(b.Class, name, 0, 0)
	goodKey := h.Str(b.Str, "ok")
	intKey := h.Int(b.Int, 5)
	v := h.Int(b.Int, 1)
	dict := h.Dict(b.Dict,
		heaptest.Pair{Key: intKey, Value: v},
		heaptest.Pair{Key: goodKey, Value: v})
	inst := h.Instance(b.Instance, class, dict)

	g := walk(h, inst)

	node, ok := g.Node(cpython.Pointer(inst)).(walker.Instance)
	require.True(t, ok)
	assert.Equal(t, map[string]cpython.Pointer{"ok": cpython.Pointer(v)}, node.Attributes)
}

func TestWalkGenericObject(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()

	k := h.Str(b.Str, "attr")
	v := h.Int(b.Int, 3)
	dict := h.Dict(b.Dict, heaptest.Pair{Key: k, Value: v})

	typ := h.Type("closure", 32, 0, -8)
	addr := h.Object(typ, 32)
	h.WriteWord(addr-8, dict)

	g := walk(h, addr)

	node, ok := g.Node(cpython.Pointer(addr)).(walker.Object)
	require.True(t, ok)
	assert.Equal(t, "closure", node.TypeName)
	assert.Equal(t, cpython.Pointer(typ), node.Type)
	assert.Equal(t, map[string]cpython.Pointer{"attr": cpython.Pointer(v)}, node.Attributes)
	assert.Equal(t, walker.Int{Value: big.NewInt(3)}, g.Node(cpython.Pointer(v)))
}

func TestWalkClassBases(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()

	baseName := h.Str(b.Str, "Base")
	base := h.Class(b.Class, baseName, 0, 0)
	name := h.Str(b.Str, "Derived")
	class := h.Class(b.Class, name, base, 0)

	g := walk(h, class)

	node, ok := g.Node(cpython.Pointer(class)).(walker.Class)
	require.True(t, ok)
	assert.Equal(t, "Derived", node.Name)
	assert.Equal(t, cpython.Pointer(base), node.Bases)

	// Whatever cl_bases points at is decoded in its own right.
	baseNode, ok := g.Node(cpython.Pointer(base)).(walker.Class)
	require.True(t, ok)
	assert.Equal(t, "Base", baseNode.Name)
}

func TestWalkUnreadableRoot(t *testing.T) {
	h := heaptest.New()

	g := walk(h, 0xdead0000)
	assert.Equal(t, 0, g.Len())

	g = walk(h, 0)
	assert.Equal(t, 0, g.Len())
}

func TestWalkNeverStoresAddressZero(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()
	// A tuple with a null element pointer: the null ends the element
	// sequence and address 0 never becomes a graph key.
	addr := h.Tuple(b.Tuple, 0)

	g := walk(h, addr)

	assert.Nil(t, g.Node(0))
	assert.Equal(t, walker.Tuple(nil), g.Node(cpython.Pointer(addr)))
}

func TestWalkPure(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()

	k := h.Str(b.Str, "x")
	v := h.Int(b.Int, 1)
	dict := h.Dict(b.Dict, heaptest.Pair{Key: k, Value: v})
	name := h.Str(b.Str, "P")
	class := h.Class(b.Class, name, 0, 0)
	inst := h.Instance(b.Instance, class, dict)
	list := h.List(b.List, inst, v, v)

	g1 := walk(h, list)
	g2 := walk(h, list)

	require.Equal(t, g1.Addresses(), g2.Addresses())
	for _, a := range g1.Addresses() {
		assert.Equal(t, g1.Node(a), g2.Node(a))
	}
}

func TestWalkDedup(t *testing.T) {
	h := heaptest.New()
	b := h.NewBuiltins()

	shared := h.Int(b.Int, 7)
	addr := h.Tuple(b.Tuple, shared, shared, shared)

	g := walk(h, addr)

	// Three references, one node.
	assert.Equal(t,
		walker.Tuple{cpython.Pointer(shared), cpython.Pointer(shared), cpython.Pointer(shared)},
		g.Node(cpython.Pointer(addr)))
	assert.Equal(t, walker.Int{Value: big.NewInt(7)}, g.Node(cpython.Pointer(shared)))
}
