// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package heaptest synthesizes CPython 2.7 heaps in local memory so
// decoder and walker tests can run against byte-exact object layouts
// without a live interpreter.
package heaptest

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"

	"github.com/pywalk/pywalk/internal/cpython"
	"github.com/pywalk/pywalk/internal/memory"
)

// A Heap is a sparse byte store with a bump allocator and constructors
// for each object kind. It implements memory.Memory; reads of bytes
// never written fail like an unmapped page.
type Heap struct {
	data map[uint64]byte
	next uint64
}

// New returns an empty heap allocating from 0x1000 upward.
func New() *Heap {
	return &Heap{data: map[uint64]byte{}, next: 0x1000}
}

// ReadAt implements memory.Memory.
func (h *Heap) ReadAt(addr, size uint64) ([]byte, error) {
	out := make([]byte, size)
	for i := uint64(0); i < size; i++ {
		b, ok := h.data[addr+i]
		if !ok {
			return nil, memory.Segfault(fmt.Errorf("unmapped address %#x", addr+i))
		}
		out[i] = b
	}
	return out, nil
}

// Alloc maps n zeroed bytes and returns their address. Allocations are
// 16-byte aligned.
func (h *Heap) Alloc(n uint64) uint64 {
	addr := h.next
	h.next += (n + 15) &^ 15
	for i := uint64(0); i < n; i++ {
		h.data[addr+i] = 0
	}
	return addr
}

// WriteBytes places b at addr, mapping the range.
func (h *Heap) WriteBytes(addr uint64, b []byte) {
	for i, c := range b {
		h.data[addr+uint64(i)] = c
	}
}

// WriteWord places one little-endian word at addr.
func (h *Heap) WriteWord(addr, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	h.WriteBytes(addr, b[:])
}

// WriteSWord places one signed little-endian word at addr.
func (h *Heap) WriteSWord(addr uint64, v int64) {
	h.WriteWord(addr, uint64(v))
}

// Unmap removes the mapping for [addr, addr+n), making reads there
// fail. It simulates memory that became unreadable.
func (h *Heap) Unmap(addr, n uint64) {
	for i := uint64(0); i < n; i++ {
		delete(h.data, addr+i)
	}
}

// header writes a generic object header at addr.
func (h *Heap) header(addr, typ uint64) {
	h.WriteWord(addr, 1) // ob_refcnt
	h.WriteWord(addr+8, typ)
}

// CString maps a NUL-terminated copy of s and returns its address.
func (h *Heap) CString(s string) uint64 {
	addr := h.Alloc(uint64(len(s)) + 1)
	h.WriteBytes(addr, append([]byte(s), 0))
	return addr
}

// Type builds a type object named name with the given size fields. The
// type's own ob_type is left null; the decoders never follow it.
func (h *Heap) Type(name string, basicsize, itemsize, dictoffset int64) uint64 {
	addr := h.Alloc(cpython.TypeObjectSize)
	h.header(addr, 0)
	h.WriteWord(addr+24, h.CString(name)) // tp_name
	h.WriteSWord(addr+32, basicsize)
	h.WriteSWord(addr+40, itemsize)
	h.WriteSWord(addr+288, dictoffset)
	return addr
}

// Builtins is one allocation of each builtin type object a test heap
// commonly needs. Basic sizes are the header sizes pinned in package
// cpython, not the tp_basicsize values of a stock 2.7 build.
type Builtins struct {
	Type, None, Class, Instance     uint64
	Str, Unicode, Tuple, List, Dict uint64
	Bool, Int, Float                uint64
}

// NewBuiltins allocates the builtin type objects.
func (h *Heap) NewBuiltins() *Builtins {
	return &Builtins{
		Type:     h.Type("type", cpython.TypeObjectSize, 0, 264),
		None:     h.Type("NoneType", cpython.ObjectSize, 0, 0),
		Class:    h.Type("classobj", cpython.ClassObjectSize, 0, 0),
		Instance: h.Type("instance", cpython.InstanceObjSize, 0, 0),
		Str:      h.Type("str", cpython.StringObjectSize, 1, 0),
		Unicode:  h.Type("unicode", cpython.StringObjectSize, 0, 0),
		Tuple:    h.Type("tuple", cpython.TupleObjectSize, 8, 0),
		List:     h.Type("list", cpython.ListObjectSize, 0, 0),
		Dict:     h.Type("dict", cpython.DictObjectSize, 0, 0),
		Bool:     h.Type("bool", cpython.IntObjectSize, 0, 0),
		Int:      h.Type("int", cpython.IntObjectSize, 0, 0),
		Float:    h.Type("float", cpython.FloatObjectSize, 0, 0),
	}
}

// None builds the None singleton.
func (h *Heap) None(typ uint64) uint64 {
	addr := h.Alloc(cpython.ObjectSize)
	h.header(addr, typ)
	return addr
}

// Int builds an int object holding v.
func (h *Heap) Int(typ uint64, v int64) uint64 {
	addr := h.Alloc(cpython.IntObjectSize)
	h.header(addr, typ)
	h.WriteSWord(addr+16, v)
	return addr
}

// Bool builds a bool object.
func (h *Heap) Bool(typ uint64, v bool) uint64 {
	var i int64
	if v {
		i = 1
	}
	return h.Int(typ, i)
}

// Float builds a float object holding v.
func (h *Heap) Float(typ uint64, v float64) uint64 {
	addr := h.Alloc(cpython.FloatObjectSize)
	h.header(addr, typ)
	h.WriteWord(addr+16, math.Float64bits(v))
	return addr
}

// Str builds a narrow string with the standard payload placement.
func (h *Heap) Str(typ uint64, s string) uint64 {
	return h.strAt(typ, s, 36)
}

// SmallStr builds a narrow string with the payload four bytes early,
// matching the small-string calibration.
func (h *Heap) SmallStr(typ uint64, s string) uint64 {
	return h.strAt(typ, s, 32)
}

func (h *Heap) strAt(typ uint64, s string, payload uint64) uint64 {
	// Allocate at least the full header so short strings stay readable
	// whichever profile decodes them.
	addr := h.Alloc(cpython.StringObjectSize + uint64(len(s)) + 1)
	h.header(addr, typ)
	h.WriteSWord(addr+16, int64(len(s))) // ob_size
	h.WriteBytes(addr+payload, append([]byte(s), 0))
	return addr
}

// Unicode builds a wide string holding the UTF-16 encoding of s.
func (h *Heap) Unicode(typ uint64, s string) uint64 {
	units := utf16.Encode([]rune(s))
	addr := h.Alloc(cpython.StringObjectSize + uint64(2*len(units)))
	h.header(addr, typ)
	h.WriteSWord(addr+16, int64(len(units)))
	for i, u := range units {
		h.data[addr+36+uint64(2*i)] = byte(u)
		h.data[addr+36+uint64(2*i)+1] = byte(u >> 8)
	}
	return addr
}

// Tuple builds a tuple whose inline slots point at elems.
func (h *Heap) Tuple(typ uint64, elems ...uint64) uint64 {
	n := 24 + uint64(len(elems))*8
	if n < cpython.TupleObjectSize {
		n = cpython.TupleObjectSize
	}
	addr := h.Alloc(n)
	h.header(addr, typ)
	h.WriteSWord(addr+16, int64(len(elems)))
	for i, e := range elems {
		h.WriteWord(addr+24+uint64(i)*8, e)
	}
	return addr
}

// List builds a list with a separately allocated element array.
func (h *Heap) List(typ uint64, elems ...uint64) uint64 {
	items := h.Alloc(uint64(len(elems)) * 8)
	for i, e := range elems {
		h.WriteWord(items+uint64(i)*8, e)
	}
	addr := h.Alloc(cpython.ListObjectSize)
	h.header(addr, typ)
	h.WriteSWord(addr+16, int64(len(elems)))
	h.WriteWord(addr+24, items)              // ob_item
	h.WriteSWord(addr+32, int64(len(elems))) // allocated
	return addr
}

// Pair is one dict entry: key and value object addresses.
type Pair struct {
	Key, Value uint64
}

// Dict builds a dict whose slot table holds pairs in slot order,
// followed by empty slots up to a power-of-two table length.
func (h *Heap) Dict(typ uint64, pairs ...Pair) uint64 {
	slots := int64(8)
	for slots < int64(len(pairs)) {
		slots *= 2
	}
	return h.DictSpec(typ, slots-1, slots, pairs...)
}

// DictSpec builds a dict with an explicit ma_mask and slot-table
// length, so tests can declare masks far larger than the table that
// actually exists.
func (h *Heap) DictSpec(typ uint64, mask int64, tableSlots int64, pairs ...Pair) uint64 {
	table := h.Alloc(uint64(tableSlots) * cpython.DictEntrySize)
	for i, p := range pairs {
		base := table + uint64(i)*cpython.DictEntrySize
		h.WriteSWord(base, int64(i)) // me_hash, arbitrary
		h.WriteWord(base+8, p.Key)
		h.WriteWord(base+16, p.Value)
	}
	addr := h.Alloc(cpython.DictObjectSize)
	h.header(addr, typ)
	h.WriteSWord(addr+16, int64(len(pairs))) // ma_fill
	h.WriteSWord(addr+24, int64(len(pairs))) // ma_used
	h.WriteSWord(addr+32, mask)
	h.WriteWord(addr+40, table)
	return addr
}

// Class builds a class object. name is the address of a string object;
// bases and dict may be zero.
func (h *Heap) Class(typ, name, bases, dict uint64) uint64 {
	addr := h.Alloc(cpython.ClassObjectSize)
	h.header(addr, typ)
	h.WriteWord(addr+16, bases)
	h.WriteWord(addr+24, dict)
	h.WriteWord(addr+32, name)
	return addr
}

// Instance builds an instance object pointing at its class and
// attribute dict.
func (h *Heap) Instance(typ, class, dict uint64) uint64 {
	addr := h.Alloc(cpython.InstanceObjSize)
	h.header(addr, typ)
	h.WriteWord(addr+16, class)
	h.WriteWord(addr+24, dict)
	return addr
}

// Object builds a bare object of size n with only the generic header
// filled in. Tests use it for kinds with no dedicated decoder.
func (h *Heap) Object(typ, n uint64) uint64 {
	if n < cpython.ObjectSize {
		n = cpython.ObjectSize
	}
	addr := h.Alloc(n)
	h.header(addr, typ)
	return addr
}
