// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpython

import (
	"encoding/binary"

	"github.com/pywalk/pywalk/internal/memory"
)

// An Object is the generic two-word header shared by every inferior
// object: reference count and type pointer.
type Object struct {
	addr   Pointer
	refcnt int64
	typ    Pointer
}

// DerefObject reads the generic object header at p.
func DerefObject(m memory.Memory, p Pointer) (Object, error) {
	b, err := readAt(m, p, ObjectSize)
	if err != nil {
		return Object{}, err
	}
	return Object{
		addr:   p,
		refcnt: int64(binary.LittleEndian.Uint64(b[objectRefcntOff:])),
		typ:    Pointer(binary.LittleEndian.Uint64(b[objectTypeOff:])),
	}, nil
}

// Addr returns the address the object was read from.
func (o Object) Addr() Pointer { return o.addr }

// RefCount returns the inferior's reference count at read time.
func (o Object) RefCount() int64 { return o.refcnt }

// Type returns the object's type pointer.
func (o Object) Type() Pointer { return o.typ }

// TypeObject dereferences the object's type pointer.
func (o Object) TypeObject(m memory.Memory) (*TypeObject, error) {
	return DerefType(m, o.typ)
}

// A VarObject is the header of a variable-size object: the generic
// header plus the signed ob_size word.
type VarObject struct {
	Object
	size int64
}

// DerefVar reads the variable-size object header at p.
func DerefVar(m memory.Memory, p Pointer) (VarObject, error) {
	b, err := readAt(m, p, VarObjectSize)
	if err != nil {
		return VarObject{}, err
	}
	return varFromBytes(p, b), nil
}

func varFromBytes(p Pointer, b []byte) VarObject {
	return VarObject{
		Object: Object{
			addr:   p,
			refcnt: int64(binary.LittleEndian.Uint64(b[objectRefcntOff:])),
			typ:    Pointer(binary.LittleEndian.Uint64(b[objectTypeOff:])),
		},
		size: int64(binary.LittleEndian.Uint64(b[varSizeOff:])),
	}
}

// Size returns ob_size. It is signed and may legitimately be negative.
func (v VarObject) Size() int64 { return v.size }

// A GenericObject is an object whose type name matched no dedicated
// decoder. It carries the generic header and the resolved type.
type GenericObject struct {
	obj Object
	typ *TypeObject
}

func (g *GenericObject) typedObject() {}

// Addr returns the address the object was read from.
func (g *GenericObject) Addr() Pointer { return g.obj.addr }

// TypeName returns the name of the object's type.
func (g *GenericObject) TypeName() string { return g.typ.Name() }

// TypeAddr returns the address of the object's type.
func (g *GenericObject) TypeAddr() Pointer { return g.obj.typ }

// Attributes locates the object's attribute dict via the type's
// tp_dictoffset and dereferences it. It returns nil with no error when
// the type has no attribute dict.
//
// A negative dictoffset is added to the object's own address. A
// positive one is measured past the fixed part plus |ob_size| items,
// rounded up to a word boundary.
func (g *GenericObject) Attributes(m memory.Memory) (*DictObject, error) {
	off := g.typ.DictOffset()
	if off == 0 {
		return nil, nil
	}
	var slot Pointer
	if off < 0 {
		slot = g.obj.addr.Offset(off)
	} else {
		size, err := memory.SWord(m, uint64(g.obj.addr)+varSizeOff)
		if err != nil {
			return nil, err
		}
		if size < 0 {
			size = -size
		}
		n := g.typ.BasicSize() + size*g.typ.ItemSize() + off
		n = (n + memory.WordSize - 1) / memory.WordSize * memory.WordSize
		slot = g.obj.addr.Offset(n)
	}
	dictPtr, err := slot.Deref(m)
	if err != nil {
		return nil, err
	}
	return DerefDict(m, dictPtr)
}
