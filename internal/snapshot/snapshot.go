// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package snapshot persists walked graphs as compressed dumps so a
// capture taken at an incident can be explored later, away from the
// process it came from. A dump is a zstd-compressed JSON document
// stamped with a fresh UUID and the profile the walk used.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/pywalk/pywalk/internal/cpython"
	"github.com/pywalk/pywalk/internal/walker"
)

// A Snapshot is a decoded dump: identity, provenance and the graph's
// nodes in portable form.
type Snapshot struct {
	ID      string                `json:"id"`
	Profile string                `json:"profile"`
	Root    string                `json:"root"`
	Nodes   map[string]nodeRecord `json:"nodes"`
}

// nodeRecord is the wire form of one node. Kind selects which of the
// remaining fields are meaningful. Addresses travel as hex strings to
// survive JSON number precision.
type nodeRecord struct {
	Kind       string            `json:"kind"`
	Name       string            `json:"name,omitempty"`
	Type       string            `json:"type,omitempty"`
	TypeName   string            `json:"typeName,omitempty"`
	Class      string            `json:"class,omitempty"`
	ClassName  string            `json:"className,omitempty"`
	Bases      string            `json:"bases,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Text       string            `json:"text,omitempty"`
	Data       []byte            `json:"data,omitempty"`
	Items      []string          `json:"items,omitempty"`
	Entries    map[string]string `json:"entries,omitempty"`
	Bool       bool              `json:"bool,omitempty"`
	Int        string            `json:"int,omitempty"`
	Float      string            `json:"float,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func formatAddr(a cpython.Pointer) string { return fmt.Sprintf("%#x", uint64(a)) }

func parseAddr(s string) (cpython.Pointer, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %w", s, err)
	}
	return cpython.Pointer(v), nil
}

func formatAddrs(addrs []cpython.Pointer) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = formatAddr(a)
	}
	return out
}

// Write compresses g into w and returns the snapshot's generated ID.
func Write(w io.Writer, g *walker.Graph, root cpython.Pointer, prof cpython.Profile) (string, error) {
	s := &Snapshot{
		ID:      uuid.New().String(),
		Profile: prof.String(),
		Root:    formatAddr(root),
		Nodes:   make(map[string]nodeRecord, g.Len()),
	}
	for _, addr := range g.Addresses() {
		rec, err := encodeNode(g.Node(addr))
		if err != nil {
			return "", err
		}
		s.Nodes[formatAddr(addr)] = rec
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return "", err
	}
	if err := json.NewEncoder(zw).Encode(s); err != nil {
		zw.Close()
		return "", err
	}
	return s.ID, zw.Close()
}

// Read decompresses and decodes a dump produced by Write.
func Read(r io.Reader) (*Snapshot, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	s := &Snapshot{}
	if err := json.NewDecoder(zr).Decode(s); err != nil {
		return nil, err
	}
	return s, nil
}

// RootAddr returns the walk's root address.
func (s *Snapshot) RootAddr() (cpython.Pointer, error) {
	return parseAddr(s.Root)
}

// Graph reconstructs the walked graph from the dump.
func (s *Snapshot) Graph() (*walker.Graph, error) {
	nodes := make(map[cpython.Pointer]walker.Node, len(s.Nodes))
	for as, rec := range s.Nodes {
		addr, err := parseAddr(as)
		if err != nil {
			return nil, err
		}
		n, err := decodeNode(rec)
		if err != nil {
			return nil, err
		}
		nodes[addr] = n
	}
	return walker.NewGraph(nodes), nil
}

func encodeNode(n walker.Node) (nodeRecord, error) {
	switch v := n.(type) {
	case walker.Type:
		return nodeRecord{Kind: "type", Name: v.Name}, nil
	case walker.Object:
		return nodeRecord{
			Kind:       "object",
			Type:       formatAddr(v.Type),
			TypeName:   v.TypeName,
			Attributes: encodeAttrs(v.Attributes),
		}, nil
	case walker.None:
		return nodeRecord{Kind: "none"}, nil
	case walker.Class:
		rec := nodeRecord{Kind: "class", Name: v.Name}
		if !v.Bases.IsNull() {
			rec.Bases = formatAddr(v.Bases)
		}
		return rec, nil
	case walker.Instance:
		return nodeRecord{
			Kind:       "instance",
			Class:      formatAddr(v.Class),
			ClassName:  v.ClassName,
			Attributes: encodeAttrs(v.Attributes),
		}, nil
	case walker.Bytes:
		return nodeRecord{Kind: "bytes", Data: v}, nil
	case walker.String:
		return nodeRecord{Kind: "string", Text: string(v)}, nil
	case walker.Tuple:
		return nodeRecord{Kind: "tuple", Items: formatAddrs(v)}, nil
	case walker.List:
		return nodeRecord{Kind: "list", Items: formatAddrs(v)}, nil
	case walker.Dict:
		entries := make(map[string]string, len(v))
		for k, val := range v {
			entries[formatAddr(k)] = formatAddr(val)
		}
		return nodeRecord{Kind: "dict", Entries: entries}, nil
	case walker.Bool:
		return nodeRecord{Kind: "bool", Bool: bool(v)}, nil
	case walker.Int:
		return nodeRecord{Kind: "int", Int: v.Value.String()}, nil
	case walker.Float:
		return nodeRecord{Kind: "float", Float: strconv.FormatFloat(float64(v), 'g', -1, 64)}, nil
	case walker.Error:
		return nodeRecord{Kind: "error", Error: v.Err.Error()}, nil
	}
	return nodeRecord{}, fmt.Errorf("unknown node %T", n)
}

func decodeNode(rec nodeRecord) (walker.Node, error) {
	switch rec.Kind {
	case "type":
		return walker.Type{Name: rec.Name}, nil
	case "object":
		typ, err := parseAddr(rec.Type)
		if err != nil {
			return nil, err
		}
		attrs, err := decodeAttrs(rec.Attributes)
		if err != nil {
			return nil, err
		}
		return walker.Object{Type: typ, TypeName: rec.TypeName, Attributes: attrs}, nil
	case "none":
		return walker.None{}, nil
	case "class":
		c := walker.Class{Name: rec.Name}
		if rec.Bases != "" {
			bases, err := parseAddr(rec.Bases)
			if err != nil {
				return nil, err
			}
			c.Bases = bases
		}
		return c, nil
	case "instance":
		class, err := parseAddr(rec.Class)
		if err != nil {
			return nil, err
		}
		attrs, err := decodeAttrs(rec.Attributes)
		if err != nil {
			return nil, err
		}
		return walker.Instance{Class: class, ClassName: rec.ClassName, Attributes: attrs}, nil
	case "bytes":
		return walker.Bytes(rec.Data), nil
	case "string":
		return walker.String(rec.Text), nil
	case "tuple":
		items, err := decodeAddrs(rec.Items)
		return walker.Tuple(items), err
	case "list":
		items, err := decodeAddrs(rec.Items)
		return walker.List(items), err
	case "dict":
		d := make(walker.Dict, len(rec.Entries))
		for ks, vs := range rec.Entries {
			k, err := parseAddr(ks)
			if err != nil {
				return nil, err
			}
			v, err := parseAddr(vs)
			if err != nil {
				return nil, err
			}
			d[k] = v
		}
		return d, nil
	case "bool":
		return walker.Bool(rec.Bool), nil
	case "int":
		i, ok := new(big.Int).SetString(rec.Int, 10)
		if !ok {
			return nil, fmt.Errorf("bad integer %q", rec.Int)
		}
		return walker.Int{Value: i}, nil
	case "float":
		f, err := strconv.ParseFloat(rec.Float, 64)
		if err != nil {
			return nil, err
		}
		return walker.Float(f), nil
	case "error":
		return walker.Error{Err: errors.New(rec.Error)}, nil
	}
	return nil, fmt.Errorf("unknown node kind %q", rec.Kind)
}

func encodeAttrs(attrs map[string]cpython.Pointer) map[string]string {
	out := make(map[string]string, len(attrs))
	for name, a := range attrs {
		out[name] = formatAddr(a)
	}
	return out
}

func decodeAttrs(attrs map[string]string) (map[string]cpython.Pointer, error) {
	out := make(map[string]cpython.Pointer, len(attrs))
	for name, as := range attrs {
		a, err := parseAddr(as)
		if err != nil {
			return nil, err
		}
		out[name] = a
	}
	return out, nil
}

func decodeAddrs(items []string) ([]cpython.Pointer, error) {
	out := make([]cpython.Pointer, len(items))
	for i, s := range items {
		a, err := parseAddr(s)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}
