// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memory

import "errors"

// ErrNullPointer is returned when address 0 is dereferenced.
// The reader is never consulted for a null dereference.
var ErrNullPointer = errors.New("Attempted to dereference a null pointer.")

// A SegfaultError reports that the inferior was not readable at the
// requested addresses. It wraps the underlying cause, typically an OS
// error or an unmapped-range report from a Buffer.
type SegfaultError struct {
	Cause error
}

func (e *SegfaultError) Error() string { return "Attempted to access invalid memory." }

func (e *SegfaultError) Unwrap() error { return e.Cause }

// Segfault wraps cause in a *SegfaultError.
func Segfault(cause error) error { return &SegfaultError{Cause: cause} }

// A DecodeError reports bytes that were readable but structurally
// unusable, for example a header whose fields cannot describe a real
// object. The target may have freed or reused the memory.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string { return "Attempted to decode seemingly invalid memory." }

func (e *DecodeError) Unwrap() error { return e.Cause }

// A ConnectError reports a failure to acquire a read handle on a
// remote process: the process is absent, or access was denied.
type ConnectError struct {
	Cause error
}

func (e *ConnectError) Error() string { return "Could not connect to remote process." }

func (e *ConnectError) Unwrap() error { return e.Cause }
