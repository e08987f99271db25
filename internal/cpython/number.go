// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpython

import (
	"encoding/binary"
	"math"
	"math/big"

	"github.com/pywalk/pywalk/internal/memory"
)

// An IntObject is a decoded int header: the generic header plus the
// embedded signed long.
type IntObject struct {
	Object
	value int64
}

func (i *IntObject) typedObject() {}

// DerefInt reads the int header at p.
func DerefInt(m memory.Memory, p Pointer) (*IntObject, error) {
	b, err := readAt(m, p, IntObjectSize)
	if err != nil {
		return nil, err
	}
	return &IntObject{
		Object: Object{
			addr:   p,
			refcnt: int64(binary.LittleEndian.Uint64(b[objectRefcntOff:])),
			typ:    Pointer(binary.LittleEndian.Uint64(b[objectTypeOff:])),
		},
		value: int64(binary.LittleEndian.Uint64(b[intValueOff:])),
	}, nil
}

// Value widens the embedded long to an arbitrary-precision integer.
func (i *IntObject) Value() *big.Int { return big.NewInt(i.value) }

// A BoolObject shares the int layout; its value is the truth of the
// embedded long.
type BoolObject struct {
	Object
	value int64
}

func (b *BoolObject) typedObject() {}

// DerefBool reads the bool header at p.
func DerefBool(m memory.Memory, p Pointer) (*BoolObject, error) {
	i, err := DerefInt(m, p)
	if err != nil {
		return nil, err
	}
	return &BoolObject{Object: i.Object, value: i.value}, nil
}

// Value reports whether the embedded long is nonzero.
func (b *BoolObject) Value() bool { return b.value != 0 }

// A FloatObject is a decoded float header: the generic header plus the
// embedded IEEE-754 double.
type FloatObject struct {
	Object
	value float64
}

func (f *FloatObject) typedObject() {}

// DerefFloat reads the float header at p.
func DerefFloat(m memory.Memory, p Pointer) (*FloatObject, error) {
	b, err := readAt(m, p, FloatObjectSize)
	if err != nil {
		return nil, err
	}
	return &FloatObject{
		Object: Object{
			addr:   p,
			refcnt: int64(binary.LittleEndian.Uint64(b[objectRefcntOff:])),
			typ:    Pointer(binary.LittleEndian.Uint64(b[objectTypeOff:])),
		},
		value: math.Float64frombits(binary.LittleEndian.Uint64(b[floatValueOff:])),
	}, nil
}

// Value returns the embedded double.
func (f *FloatObject) Value() float64 { return f.value }
