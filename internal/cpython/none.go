// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpython

import "github.com/pywalk/pywalk/internal/memory"

// A NoneObject is the decoded None singleton. It carries nothing beyond
// the generic header.
type NoneObject struct {
	Object
}

func (n *NoneObject) typedObject() {}

// DerefNone reads the None header at p.
func DerefNone(m memory.Memory, p Pointer) (*NoneObject, error) {
	obj, err := DerefObject(m, p)
	if err != nil {
		return nil, err
	}
	return &NoneObject{Object: obj}, nil
}
