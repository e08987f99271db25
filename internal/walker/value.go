// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package walker

import (
	"fmt"

	"github.com/pywalk/pywalk/internal/cpython"
)

// A Ref stands in for an address that materialization could not expand:
// a cycle back into the value under construction, or an address the
// walk never decoded.
type Ref cpython.Pointer

func (r Ref) String() string { return fmt.Sprintf("<ref %#x>", uint64(r)) }

// A TypeValue is a materialized type object.
type TypeValue struct {
	Name string
}

// A ClassValue is a materialized class. Bases holds the materialized
// cl_bases value, or nil.
type ClassValue struct {
	Name  string
	Bases any
}

// An InstanceValue is a materialized instance.
type InstanceValue struct {
	ClassName  string
	Attributes map[string]any
}

// An ObjectValue is a materialized object of an unrecognized kind.
type ObjectValue struct {
	TypeName   string
	Attributes map[string]any
}

// Materialize converts the subgraph rooted at addr into ordinary Go
// values: None becomes nil, numbers become bool/*big.Int/float64,
// strings become string, tuples and lists become []any, and dicts
// become *PyDict with Python key equality. Error nodes materialize as
// their error. Addresses revisited within one value chain come back as
// Ref placeholders, so cyclic graphs materialize to finite values.
func (g *Graph) Materialize(addr cpython.Pointer) any {
	return g.materialize(addr, map[cpython.Pointer]bool{})
}

func (g *Graph) materialize(addr cpython.Pointer, busy map[cpython.Pointer]bool) any {
	n := g.nodes[addr]
	if n == nil || busy[addr] {
		return Ref(addr)
	}
	busy[addr] = true
	defer delete(busy, addr)

	switch v := n.(type) {
	case Type:
		return TypeValue{Name: v.Name}
	case None:
		return nil
	case Bool:
		return bool(v)
	case Int:
		return v.Value
	case Float:
		return float64(v)
	case String:
		return string(v)
	case Bytes:
		return []byte(v)
	case Tuple:
		return g.materializeSlice(v, busy)
	case List:
		return g.materializeSlice(v, busy)
	case Dict:
		d := NewPyDict(len(v))
		for k, val := range v {
			d.Set(g.materialize(k, busy), g.materialize(val, busy))
		}
		return d
	case Class:
		c := ClassValue{Name: v.Name}
		if !v.Bases.IsNull() {
			c.Bases = g.materialize(v.Bases, busy)
		}
		return c
	case Instance:
		return InstanceValue{
			ClassName:  v.ClassName,
			Attributes: g.materializeAttrs(v.Attributes, busy),
		}
	case Object:
		return ObjectValue{
			TypeName:   v.TypeName,
			Attributes: g.materializeAttrs(v.Attributes, busy),
		}
	case Error:
		return v.Err
	}
	return Ref(addr)
}

func (g *Graph) materializeSlice(addrs []cpython.Pointer, busy map[cpython.Pointer]bool) []any {
	out := make([]any, len(addrs))
	for i, a := range addrs {
		out[i] = g.materialize(a, busy)
	}
	return out
}

func (g *Graph) materializeAttrs(attrs map[string]cpython.Pointer, busy map[cpython.Pointer]bool) map[string]any {
	out := make(map[string]any, len(attrs))
	for name, a := range attrs {
		out[name] = g.materialize(a, busy)
	}
	return out
}
