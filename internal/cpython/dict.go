// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpython

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/pywalk/pywalk/internal/memory"
)

// maxDictSlots caps the number of hash slots scanned in one dict. A
// corrupt target can claim an arbitrarily large mask; the cap bounds
// the work spent on it.
const maxDictSlots = 10000

// A DictObject is a decoded dict header: fill, used, mask and the
// address of the entry table.
type DictObject struct {
	Object
	fill  int64
	used  int64
	mask  int64
	table Pointer
}

func (d *DictObject) typedObject() {}

// DerefDict reads the dict header at p.
func DerefDict(m memory.Memory, p Pointer) (*DictObject, error) {
	b, err := readAt(m, p, DictObjectSize)
	if err != nil {
		return nil, err
	}
	return &DictObject{
		Object: Object{
			addr:   p,
			refcnt: int64(binary.LittleEndian.Uint64(b[objectRefcntOff:])),
			typ:    Pointer(binary.LittleEndian.Uint64(b[objectTypeOff:])),
		},
		fill:  int64(binary.LittleEndian.Uint64(b[dictFillOff:])),
		used:  int64(binary.LittleEndian.Uint64(b[dictUsedOff:])),
		mask:  int64(binary.LittleEndian.Uint64(b[dictMaskOff:])),
		table: Pointer(binary.LittleEndian.Uint64(b[dictTableOff:])),
	}, nil
}

// Fill returns ma_fill, the count of non-empty slots including dummies.
func (d *DictObject) Fill() int64 { return d.fill }

// Used returns ma_used, the count of live entries.
func (d *DictObject) Used() int64 { return d.used }

// Mask returns ma_mask; mask+1 is the declared slot-table length.
func (d *DictObject) Mask() int64 { return d.mask }

// A DictEntry is one occupied slot: the stored hash and the key and
// value headers.
type DictEntry struct {
	Hash  int64
	Key   Object
	Value Object
}

// Entries scans the slot table and returns the occupied entries in slot
// order. Slots with a null key or value are skipped. At most
// maxDictSlots slots are scanned regardless of the declared mask; the
// truncation is reported once on stderr.
func (d *DictObject) Entries(m memory.Memory) ([]DictEntry, error) {
	slots := d.mask + 1
	if slots < 0 {
		slots = 0
	}
	if slots > maxDictSlots {
		fmt.Fprintf(os.Stderr, "WARNING: dict at %#x declares %d slots; scanning %d\n",
			uint64(d.addr), slots, maxDictSlots)
		slots = maxDictSlots
	}

	var entries []DictEntry
	for slot := int64(0); slot < slots; slot++ {
		b, err := readAt(m, d.table.Add(uint64(slot)*DictEntrySize), DictEntrySize)
		if err != nil {
			return nil, err
		}
		key := Pointer(binary.LittleEndian.Uint64(b[entryKeyOff:]))
		value := Pointer(binary.LittleEndian.Uint64(b[entryValueOff:]))
		if key.IsNull() || value.IsNull() {
			continue
		}
		keyObj, err := DerefObject(m, key)
		if err != nil {
			return nil, err
		}
		valueObj, err := DerefObject(m, value)
		if err != nil {
			return nil, err
		}
		entries = append(entries, DictEntry{
			Hash:  int64(binary.LittleEndian.Uint64(b[entryHashOff:])),
			Key:   keyObj,
			Value: valueObj,
		})
	}
	return entries, nil
}
