// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Python-like dictionary over materialized values, with Python's notion
// of key equality: True, 1 and 1.0 address the same slot, tuples compare
// element-wise, and strings compare by content.

package walker

import (
	"encoding/binary"
	"fmt"
	"hash/maphash"
	"math"
	"math/big"
	"sort"

	"github.com/aristanetworks/gomap"
)

// A PyDict is a materialized Python dict. Keys follow Python equality,
// so numeric keys of different Go types that Python would consider
// equal share an entry.
//
// Keys must be hashable in Python's sense: nil (None), bool, *big.Int,
// float64, string, Ref, TypeValue, ClassValue and tuples ([]any) of
// hashable values. Set and Get panic on anything else, the way Python
// raises TypeError.
type PyDict struct {
	m *gomap.Map[any, any]
}

// NewPyDict returns a new empty dictionary with room for size entries.
func NewPyDict(size int) *PyDict {
	return &PyDict{m: gomap.NewHint[any, any](size, pyEqual, pyHash)}
}

// Get returns the value stored under a key equal to key, or nil and
// false when none is present.
func (d *PyDict) Get(key any) (any, bool) { return d.m.Get(key) }

// Set associates key with value, replacing any equal key.
func (d *PyDict) Set(key, value any) { d.m.Set(key, value) }

// Len returns the number of entries.
func (d *PyDict) Len() int { return d.m.Len() }

// Iter visits every entry in arbitrary order.
func (d *PyDict) Iter() func(yield func(key, value any) bool) {
	it := d.m.Iter()
	return func(yield func(any, any) bool) {
		for it.Next() {
			if !yield(it.Key(), it.Elem()) {
				break
			}
		}
	}
}

// String returns a sorted human-readable rendering.
func (d *PyDict) String() string {
	type kv struct{ k, v string }
	pairs := make([]kv, 0, d.Len())
	d.Iter()(func(k, v any) bool {
		pairs = append(pairs, kv{fmt.Sprintf("%v", k), fmt.Sprintf("%v", v)})
		return true
	})
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })
	s := "{"
	for i, p := range pairs {
		if i > 0 {
			s += ", "
		}
		s += p.k + ": " + p.v
	}
	return s + "}"
}

// pyEqual implements Python == over materialized key values.
func pyEqual(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		y, ok := b.(string)
		return ok && x == y
	case Ref:
		y, ok := b.(Ref)
		return ok && x == y
	case TypeValue:
		y, ok := b.(TypeValue)
		return ok && x == y
	case ClassValue:
		y, ok := b.(ClassValue)
		return ok && x == y
	case bool, *big.Int, float64:
		return numEqual(a, b)
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !pyEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	panic(fmt.Sprintf("unhashable type: %T", a))
}

// numEqual compares two values from the numeric category (bool,
// *big.Int, float64) the way Python would.
func numEqual(a, b any) bool {
	x, ok := asBigFloat(a)
	if !ok {
		return false
	}
	y, ok := asBigFloat(b)
	if !ok {
		return false
	}
	return x.Cmp(y) == 0
}

// asBigFloat widens a numeric key to an exact big.Float. NaN has no
// exact representation and compares unequal to everything, so it
// reports false.
func asBigFloat(v any) (*big.Float, bool) {
	switch x := v.(type) {
	case bool:
		if x {
			return big.NewFloat(1), true
		}
		return big.NewFloat(0), true
	case *big.Int:
		return new(big.Float).SetInt(x), true
	case float64:
		if math.IsNaN(x) {
			return nil, false
		}
		return big.NewFloat(x), true
	}
	return nil, false
}

// pyHash hashes a key consistently with pyEqual: equal keys hash alike.
func pyHash(seed maphash.Seed, key any) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)

	hashUint := func(u uint64) {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], u)
		h.Write(b[:])
	}
	hashInt := func(i int64) { hashUint(uint64(i)) }
	// Integral floats hash as the integer they equal; everything else
	// hashes by its bit pattern.
	hashFloat := func(f float64) {
		if i := int64(f); float64(i) == f {
			hashInt(i)
		} else {
			hashUint(math.Float64bits(f))
		}
	}

	switch x := key.(type) {
	case nil:
		h.WriteString("None")
	case string:
		return maphash.String(seed, x)
	case Ref:
		h.WriteString("ref")
		hashUint(uint64(x))
	case TypeValue:
		h.WriteString("type")
		h.WriteString(x.Name)
	case ClassValue:
		h.WriteString("class")
		h.WriteString(x.Name)
	case bool:
		if x {
			hashInt(1)
		} else {
			hashInt(0)
		}
	case *big.Int:
		switch {
		case x.IsInt64():
			hashInt(x.Int64())
		default:
			if f, acc := new(big.Float).SetInt(x).Float64(); acc == big.Exact {
				hashFloat(f)
			} else {
				h.WriteString("bigInt")
				h.Write(x.Bytes())
			}
		}
	case float64:
		hashFloat(x)
	case []any:
		h.WriteString("tuple")
		for _, item := range x {
			hashUint(pyHash(seed, item))
		}
	default:
		panic(fmt.Sprintf("unhashable type: %T", key))
	}
	return h.Sum64()
}
