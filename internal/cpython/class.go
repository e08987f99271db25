// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpython

import (
	"encoding/binary"

	"github.com/pywalk/pywalk/internal/memory"
)

// A ClassObject is a decoded old-style class header. The class name is
// resolved eagerly: cl_name points at a string object in the target,
// not at a bare C string, so resolving it needs the string profile.
type ClassObject struct {
	Object
	bases Pointer
	dict  Pointer
	name  string
}

func (c *ClassObject) typedObject() {}

// DerefClass reads the class header at p and resolves its name.
func DerefClass(m memory.Memory, p Pointer, prof Profile) (*ClassObject, error) {
	b, err := readAt(m, p, ClassObjectSize)
	if err != nil {
		return nil, err
	}
	namePtr := Pointer(binary.LittleEndian.Uint64(b[classNameOff:]))
	nameObj, err := DerefString(m, namePtr, prof)
	if err != nil {
		return nil, err
	}
	name, err := nameObj.Text(m)
	if err != nil {
		return nil, err
	}
	return &ClassObject{
		Object: Object{
			addr:   p,
			refcnt: int64(binary.LittleEndian.Uint64(b[objectRefcntOff:])),
			typ:    Pointer(binary.LittleEndian.Uint64(b[objectTypeOff:])),
		},
		bases: Pointer(binary.LittleEndian.Uint64(b[classBasesOff:])),
		dict:  Pointer(binary.LittleEndian.Uint64(b[classDictOff:])),
		name:  name,
	}, nil
}

// Name returns the class's resolved name.
func (c *ClassObject) Name() string { return c.name }

// BasesAddr returns the raw cl_bases pointer, null when the class has
// no recorded bases. The target stores a tuple there; callers that
// need the contents decode whatever lives at the address.
func (c *ClassObject) BasesAddr() Pointer { return c.bases }

// DictAddr returns the raw cl_dict pointer.
func (c *ClassObject) DictAddr() Pointer { return c.dict }

// Bases dereferences cl_bases as a class header. It returns nil with no
// error when the pointer is null.
func (c *ClassObject) Bases(m memory.Memory, prof Profile) (*ClassObject, error) {
	if c.bases.IsNull() {
		return nil, nil
	}
	return DerefClass(m, c.bases, prof)
}

// An InstanceObject is a decoded old-style instance header.
type InstanceObject struct {
	Object
	class Pointer
	dict  Pointer
}

func (i *InstanceObject) typedObject() {}

// DerefInstance reads the instance header at p.
func DerefInstance(m memory.Memory, p Pointer) (*InstanceObject, error) {
	b, err := readAt(m, p, InstanceObjSize)
	if err != nil {
		return nil, err
	}
	return &InstanceObject{
		Object: Object{
			addr:   p,
			refcnt: int64(binary.LittleEndian.Uint64(b[objectRefcntOff:])),
			typ:    Pointer(binary.LittleEndian.Uint64(b[objectTypeOff:])),
		},
		class: Pointer(binary.LittleEndian.Uint64(b[instanceClassOff:])),
		dict:  Pointer(binary.LittleEndian.Uint64(b[instanceDictOff:])),
	}, nil
}

// ClassAddr returns the raw in_class pointer.
func (i *InstanceObject) ClassAddr() Pointer { return i.class }

// Class dereferences in_class.
func (i *InstanceObject) Class(m memory.Memory, prof Profile) (*ClassObject, error) {
	return DerefClass(m, i.class, prof)
}

// Attributes dereferences in_dict.
func (i *InstanceObject) Attributes(m memory.Memory) (*DictObject, error) {
	return DerefDict(m, i.dict)
}
