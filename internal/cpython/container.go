// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpython

import (
	"encoding/binary"

	"github.com/pywalk/pywalk/internal/memory"
)

// A TupleObject is a decoded tuple header. Element pointers are stored
// inline directly after the header.
type TupleObject struct {
	VarObject
}

func (t *TupleObject) typedObject() {}

// DerefTuple reads the tuple header at p.
func DerefTuple(m memory.Memory, p Pointer) (*TupleObject, error) {
	b, err := readAt(m, p, TupleObjectSize)
	if err != nil {
		return nil, err
	}
	return &TupleObject{VarObject: varFromBytes(p, b)}, nil
}

// Items enumerates the tuple's elements.
func (t *TupleObject) Items(m memory.Memory) *Items {
	return newItems(m, t.Addr().Add(tupleItemsOff), t.Size())
}

// A ListObject is a decoded list header. Element pointers live in a
// separate array addressed by the ob_item field.
type ListObject struct {
	VarObject
	items Pointer
}

func (l *ListObject) typedObject() {}

// DerefList reads the list header at p.
func DerefList(m memory.Memory, p Pointer) (*ListObject, error) {
	b, err := readAt(m, p, ListObjectSize)
	if err != nil {
		return nil, err
	}
	return &ListObject{
		VarObject: varFromBytes(p, b),
		items:     Pointer(binary.LittleEndian.Uint64(b[listItemsOff:])),
	}, nil
}

// Items enumerates the list's elements.
func (l *ListObject) Items(m memory.Memory) *Items {
	return newItems(m, l.items, l.Size())
}

// Items walks the element pointers of a tuple or list lazily. Each
// element is produced independently; the first read error ends the
// sequence without poisoning elements already produced. A negative
// declared length yields an empty sequence.
type Items struct {
	m    memory.Memory
	next Pointer
	end  Pointer
	err  error
}

func newItems(m memory.Memory, base Pointer, n int64) *Items {
	if n < 0 {
		n = 0
	}
	return &Items{m: m, next: base, end: base.Add(uint64(n) * memory.WordSize)}
}

// Next returns the next element's generic header. It reports false when
// the sequence is exhausted or a read failed; see Err.
func (it *Items) Next() (Object, bool) {
	if it.err != nil || it.next >= it.end {
		return Object{}, false
	}
	elem, err := it.next.Deref(it.m)
	var obj Object
	if err == nil {
		obj, err = DerefObject(it.m, elem)
	}
	it.next = it.next.Add(memory.WordSize)
	if err != nil {
		it.err = err
		return Object{}, false
	}
	return obj, true
}

// Err returns the read error that ended the sequence early, if any.
func (it *Items) Err() error { return it.err }
