// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The cpython library decodes objects of a CPython 2.7 interpreter from
// the raw bytes of its address space. Each decoder reads a fixed-size
// header whose layout is pinned below, retains the address it came from,
// and follows pointer fields only on demand.
//
// Decoding never writes to the target and never allocates in it; the
// only trusted inputs are the pinned field offsets and the byte counts
// of the reads.
package cpython

// Struct offsets and sizes for CPython 2.7 built with the default ABI
// on a little-endian 64-bit platform (linux/amd64). They mirror the
// structs in Include/object.h, stringobject.h, unicodeobject.h,
// tupleobject.h, listobject.h, dictobject.h, intobject.h,
// floatobject.h and classobject.h of the 2.7 tree, and are fixed at
// compile time; nothing is ever read from the target to discover them.
const (
	// PyObject: ob_refcnt, ob_type.
	objectRefcntOff = 0
	objectTypeOff   = 8
	ObjectSize      = 16

	// PyVarObject: PyObject + ob_size.
	varSizeOff    = 16
	VarObjectSize = 24

	// PyTypeObject. Only the named fields are decoded; the rest of the
	// struct matters solely for its total size.
	typeNameOff       = 24  // const char *tp_name
	typeBasicsizeOff  = 32  // Py_ssize_t tp_basicsize
	typeItemsizeOff   = 40  // Py_ssize_t tp_itemsize
	typeDictoffsetOff = 288 // Py_ssize_t tp_dictoffset
	TypeObjectSize    = 392

	// PyStringObject: PyVarObject + ob_shash + ob_sstate + inline chars.
	stringHashOff    = 24
	stringStateOff   = 32
	stringPayloadOff = 36 // offsetof(PyStringObject, ob_sval)
	StringObjectSize = 40

	// PyTupleObject: PyVarObject + inline ob_item array.
	tupleItemsOff   = 24
	TupleObjectSize = 32

	// PyListObject: PyVarObject + ob_item pointer + allocated.
	listItemsOff     = 24
	listAllocatedOff = 32
	ListObjectSize   = 40

	// PyDictObject, up to and including ma_table. ma_lookup and the
	// small table that follow are never consulted.
	dictFillOff    = 16
	dictUsedOff    = 24
	dictMaskOff    = 32
	dictTableOff   = 40
	DictObjectSize = 48

	// PyDictEntry: me_hash, me_key, me_value.
	entryHashOff  = 0
	entryKeyOff   = 8
	entryValueOff = 16
	DictEntrySize = 24

	// PyIntObject (PyBoolObject shares the layout): PyObject + ob_ival.
	intValueOff   = 16
	IntObjectSize = 24

	// PyFloatObject: PyObject + ob_fval.
	floatValueOff   = 16
	FloatObjectSize = 24

	// PyClassObject: PyObject + cl_bases, cl_dict, cl_name, then the
	// getattr/setattr/delattr slots and cl_weakreflist.
	classBasesOff   = 16
	classDictOff    = 24
	classNameOff    = 32
	ClassObjectSize = 72

	// PyInstanceObject: PyObject + in_class, in_dict, in_weakreflist.
	instanceClassOff = 16
	instanceDictOff  = 24
	InstanceObjSize  = 40
)

// Unicode payloads are 16-bit code units stored inline at the same
// offset the narrow string payload uses.
const unicodePayloadOff = stringPayloadOff
