// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpython

import (
	"encoding/binary"

	"github.com/pywalk/pywalk/internal/memory"
)

// maxTypeNameLen bounds the tp_name read. A name with no terminator
// within this many bytes is cut off at the bound, without an error.
const maxTypeNameLen = 1000

// A Typed is an object decoded at the layout its type name selects.
// The concrete type is one of the decoder types in this package;
// unrecognized names produce a *GenericObject.
type Typed interface {
	typedObject()
}

// A TypeObject is a decoded type header. The name is resolved eagerly
// because it is the sole means of kind classification; the size fields
// are needed to locate attribute dicts of instances of the type.
type TypeObject struct {
	addr       Pointer
	name       string
	basicsize  int64
	itemsize   int64
	dictoffset int64
}

func (t *TypeObject) typedObject() {}

// DerefType reads the type header at p and resolves its name.
func DerefType(m memory.Memory, p Pointer) (*TypeObject, error) {
	b, err := readAt(m, p, TypeObjectSize)
	if err != nil {
		return nil, err
	}
	namePtr := Pointer(binary.LittleEndian.Uint64(b[typeNameOff:]))
	name, err := namePtr.CStr(m, maxTypeNameLen)
	if err != nil {
		return nil, err
	}
	return &TypeObject{
		addr:       p,
		name:       name,
		basicsize:  int64(binary.LittleEndian.Uint64(b[typeBasicsizeOff:])),
		itemsize:   int64(binary.LittleEndian.Uint64(b[typeItemsizeOff:])),
		dictoffset: int64(binary.LittleEndian.Uint64(b[typeDictoffsetOff:])),
	}, nil
}

// Addr returns the address the type was read from.
func (t *TypeObject) Addr() Pointer { return t.addr }

// Name returns tp_name.
func (t *TypeObject) Name() string { return t.name }

// BasicSize returns tp_basicsize.
func (t *TypeObject) BasicSize() int64 { return t.basicsize }

// ItemSize returns tp_itemsize.
func (t *TypeObject) ItemSize() int64 { return t.itemsize }

// DictOffset returns tp_dictoffset.
func (t *TypeObject) DictOffset() int64 { return t.dictoffset }

// Downcast re-dereferences obj at the layout selected by the type's
// name. Unrecognized names yield a *GenericObject carrying t and the
// generic header.
func (t *TypeObject) Downcast(m memory.Memory, prof Profile, obj Object) (Typed, error) {
	switch t.name {
	case "type":
		return DerefType(m, obj.addr)
	case "NoneType":
		return DerefNone(m, obj.addr)
	case "classobj":
		return DerefClass(m, obj.addr, prof)
	case "instance":
		return DerefInstance(m, obj.addr)
	case "str":
		return DerefString(m, obj.addr, prof)
	case "unicode":
		return DerefUnicode(m, obj.addr)
	case "tuple":
		return DerefTuple(m, obj.addr)
	case "list":
		return DerefList(m, obj.addr)
	case "dict":
		return DerefDict(m, obj.addr)
	case "bool":
		return DerefBool(m, obj.addr)
	case "int":
		return DerefInt(m, obj.addr)
	case "float":
		return DerefFloat(m, obj.addr)
	}
	return &GenericObject{obj: obj, typ: t}, nil
}
