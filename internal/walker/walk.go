// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The walker library discovers every object transitively reachable from
// a root pointer in a CPython 2.7 inferior and decodes each one into a
// Node. Decoding failures are confined to the address they occur at: a
// walk itself never fails, it just records Error nodes.
package walker

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/pywalk/pywalk/internal/cpython"
	"github.com/pywalk/pywalk/internal/memory"
)

// A Graph is the output of one walk: decoded nodes keyed by the address
// they were decoded from.
type Graph struct {
	nodes map[cpython.Pointer]Node
}

// NewGraph wraps nodes in a Graph. It is meant for restoring persisted
// graphs; walks build their own.
func NewGraph(nodes map[cpython.Pointer]Node) *Graph {
	return &Graph{nodes: nodes}
}

// Node returns the node decoded at addr, or nil if the walk never
// reached it.
func (g *Graph) Node(addr cpython.Pointer) Node { return g.nodes[addr] }

// Len returns the number of decoded addresses.
func (g *Graph) Len() int { return len(g.nodes) }

// Addresses returns every decoded address in ascending order.
func (g *Graph) Addresses() []cpython.Pointer {
	addrs := maps.Keys(g.nodes)
	slices.Sort(addrs)
	return addrs
}

type walker struct {
	mem   memory.Memory
	prof  cpython.Profile
	graph *Graph
	queue []cpython.Object
	types map[cpython.Pointer]*cpython.TypeObject
}

// Walk traverses the object graph rooted at root breadth-first and
// returns the decoded graph. If the root itself cannot be read the
// graph is empty. Each address is taken from the queue and stored at
// most once; cycles terminate on the revisit check.
func Walk(mem memory.Memory, root cpython.Pointer, prof cpython.Profile) *Graph {
	w := &walker{
		mem:   mem,
		prof:  prof,
		graph: &Graph{nodes: map[cpython.Pointer]Node{}},
		types: map[cpython.Pointer]*cpython.TypeObject{},
	}
	if obj, err := cpython.DerefObject(mem, root); err == nil {
		w.queue = append(w.queue, obj)
	}
	for len(w.queue) > 0 {
		obj := w.queue[0]
		w.queue = w.queue[1:]
		addr := obj.Addr()
		if _, ok := w.graph.nodes[addr]; ok {
			continue
		}
		node, typeAddr, typeName, err := w.step(obj)
		if err != nil {
			w.graph.nodes[addr] = Error{Err: err}
			continue
		}
		w.graph.nodes[typeAddr] = Type{Name: typeName}
		w.graph.nodes[addr] = node
	}
	return w.graph
}

// step decodes one object: resolve its type (memoized per walk),
// downcast by type name, decode the typed variant, and enqueue the
// children it discovers. It also reports the type's address and name so
// the caller can record the Type node.
func (w *walker) step(obj cpython.Object) (Node, cpython.Pointer, string, error) {
	typeAddr := obj.Type()
	t := w.types[typeAddr]
	if t == nil {
		var err error
		t, err = cpython.DerefType(w.mem, typeAddr)
		if err != nil {
			return nil, 0, "", err
		}
		w.types[typeAddr] = t
	}
	typed, err := t.Downcast(w.mem, w.prof, obj)
	if err != nil {
		return nil, 0, "", err
	}
	node, err := w.decode(typed)
	if err != nil {
		return nil, 0, "", err
	}
	return node, typeAddr, t.Name(), nil
}

func (w *walker) decode(typed cpython.Typed) (Node, error) {
	switch v := typed.(type) {
	case *cpython.TypeObject:
		return Type{Name: v.Name()}, nil

	case *cpython.NoneObject:
		return None{}, nil

	case *cpython.ClassObject:
		if bases := v.BasesAddr(); !bases.IsNull() {
			obj, err := cpython.DerefObject(w.mem, bases)
			if err != nil {
				return nil, err
			}
			w.queue = append(w.queue, obj)
		}
		return Class{Name: v.Name(), Bases: v.BasesAddr()}, nil

	case *cpython.InstanceObject:
		class, err := v.Class(w.mem, w.prof)
		if err != nil {
			return nil, err
		}
		classObj, err := cpython.DerefObject(w.mem, v.ClassAddr())
		if err != nil {
			return nil, err
		}
		w.queue = append(w.queue, classObj)
		dict, err := v.Attributes(w.mem)
		if err != nil {
			return nil, err
		}
		attrs, err := w.attributes(dict)
		if err != nil {
			return nil, err
		}
		return Instance{Class: v.ClassAddr(), ClassName: class.Name(), Attributes: attrs}, nil

	case *cpython.StringObject:
		text, err := v.Text(w.mem)
		if err != nil {
			return nil, err
		}
		return String(text), nil

	case *cpython.UnicodeObject:
		text, err := v.Text(w.mem)
		if err != nil {
			return nil, err
		}
		return String(text), nil

	case *cpython.TupleObject:
		return Tuple(w.elements(v.Items(w.mem))), nil

	case *cpython.ListObject:
		return List(w.elements(v.Items(w.mem))), nil

	case *cpython.DictObject:
		entries, err := v.Entries(w.mem)
		if err != nil {
			return nil, err
		}
		d := make(Dict, len(entries))
		for _, e := range entries {
			d[e.Key.Addr()] = e.Value.Addr()
			w.queue = append(w.queue, e.Key, e.Value)
		}
		return d, nil

	case *cpython.BoolObject:
		return Bool(v.Value()), nil

	case *cpython.IntObject:
		return Int{Value: v.Value()}, nil

	case *cpython.FloatObject:
		return Float(v.Value()), nil

	case *cpython.GenericObject:
		dict, err := v.Attributes(w.mem)
		if err != nil {
			return nil, err
		}
		attrs, err := w.attributes(dict)
		if err != nil {
			return nil, err
		}
		return Object{Type: v.TypeAddr(), TypeName: v.TypeName(), Attributes: attrs}, nil
	}
	return nil, &memory.DecodeError{Cause: fmt.Errorf("no decoder for %T", typed)}
}

// elements drains a lazy element sequence, enqueueing each element and
// collecting its address. A read error mid-array keeps the elements
// already produced; the node is still a Tuple or List, never an Error.
func (w *walker) elements(it *cpython.Items) []cpython.Pointer {
	var addrs []cpython.Pointer
	for {
		obj, ok := it.Next()
		if !ok {
			break
		}
		addrs = append(addrs, obj.Addr())
		w.queue = append(w.queue, obj)
	}
	return addrs
}

// attributes flattens an attribute dict to name → value address. Keys
// are decoded inline, not via the queue, because their text forms the
// map keys; only keys that decode as strings are kept, anything else,
// including a key whose decoding fails, is dropped. Attribute dicts are string-keyed in a healthy 2.7 target, so
// a non-string key means corruption. Inline decoding can revisit the
// same addresses on pathological inputs.
func (w *walker) attributes(dict *cpython.DictObject) (map[string]cpython.Pointer, error) {
	attrs := map[string]cpython.Pointer{}
	if dict == nil {
		return attrs, nil
	}
	entries, err := dict.Entries(w.mem)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		keyNode, _, _, err := w.step(e.Key)
		if err != nil {
			continue
		}
		if s, ok := keyNode.(String); ok {
			attrs[string(s)] = e.Value.Addr()
			w.queue = append(w.queue, e.Value)
		}
	}
	return attrs, nil
}
