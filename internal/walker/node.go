// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package walker

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/pywalk/pywalk/internal/cpython"
)

// A Node is one decoded value in a walked graph. Nodes reference each
// other by inferior address; the graph resolves those addresses. Once
// inserted into a graph a node is never mutated.
type Node interface {
	node()
	String() string
}

// Type names an inferior type object.
type Type struct {
	Name string
}

// Object is a value of a kind with no dedicated decoder: its type
// address and name, and its attribute dict flattened to name → value
// address.
type Object struct {
	Type       cpython.Pointer
	TypeName   string
	Attributes map[string]cpython.Pointer
}

// None is the None singleton.
type None struct{}

// Class is an old-style class: its name and the raw cl_bases address
// (zero when the class records no bases).
type Class struct {
	Name  string
	Bases cpython.Pointer
}

// Instance is an old-style instance: its class address and name, and
// its attribute dict flattened to name → value address.
type Instance struct {
	Class      cpython.Pointer
	ClassName  string
	Attributes map[string]cpython.Pointer
}

// Bytes is a byte-string payload. No CPython 2.7 kind produces it; it
// exists so graphs restored from dumps of other producers keep their
// byte-string nodes intact.
type Bytes []byte

// String is a decoded str or unicode payload.
type String string

// Tuple holds element addresses in element order.
type Tuple []cpython.Pointer

// List holds element addresses in element order.
type List []cpython.Pointer

// Dict maps key addresses to value addresses.
type Dict map[cpython.Pointer]cpython.Pointer

// Bool is a decoded bool.
type Bool bool

// Int is a decoded int, widened to arbitrary precision.
type Int struct {
	Value *big.Int
}

// Float is a decoded float.
type Float float64

// Error marks an address whose decoding failed. The rest of the graph
// is unaffected.
type Error struct {
	Err error
}

func (Type) node()     {}
func (Object) node()   {}
func (None) node()     {}
func (Class) node()    {}
func (Instance) node() {}
func (Bytes) node()    {}
func (String) node()   {}
func (Tuple) node()    {}
func (List) node()     {}
func (Dict) node()     {}
func (Bool) node()     {}
func (Int) node()      {}
func (Float) node()    {}
func (Error) node()    {}

func (t Type) String() string { return "type " + t.Name }

func (o Object) String() string {
	return fmt.Sprintf("%s object, %d attributes", o.TypeName, len(o.Attributes))
}

func (None) String() string { return "None" }

func (c Class) String() string {
	if c.Bases.IsNull() {
		return "class " + c.Name
	}
	return fmt.Sprintf("class %s, bases at %#x", c.Name, uint64(c.Bases))
}

func (i Instance) String() string {
	return fmt.Sprintf("%s instance, %d attributes", i.ClassName, len(i.Attributes))
}

func (b Bytes) String() string { return fmt.Sprintf("bytes[%d]", len(b)) }

func (s String) String() string { return strconv.Quote(string(s)) }

func (t Tuple) String() string { return "tuple" + formatAddrs(t) }

func (l List) String() string { return "list" + formatAddrs(l) }

func (d Dict) String() string { return fmt.Sprintf("dict[%d]", len(d)) }

func (b Bool) String() string {
	if b {
		return "True"
	}
	return "False"
}

func (i Int) String() string { return i.Value.String() }

func (f Float) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

func (e Error) String() string { return "error: " + e.Err.Error() }

// formatAddrs renders a short element-address listing, eliding long
// sequences.
func formatAddrs(addrs []cpython.Pointer) string {
	const show = 8
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d]{", len(addrs))
	for i, a := range addrs {
		if i == show {
			sb.WriteString(", …")
			break
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%#x", uint64(a))
	}
	sb.WriteString("}")
	return sb.String()
}
