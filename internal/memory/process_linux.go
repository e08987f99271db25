// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memory

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// A Process reads the address space of a live process via
// process_vm_readv(2). Unlike a ptrace peek loop, process_vm_readv does
// not require the target to be stopped and is safe to call from any
// thread, so multiple walkers may share one Process.
//
// Reading another user's process requires CAP_SYS_PTRACE or a matching
// uid, the same rule ptrace attachment follows.
type Process struct {
	pid int
}

// Connect acquires a read handle on the process identified by pid.
// It fails with a *ConnectError if the process does not exist or is not
// signalable by the current user.
func Connect(pid int) (*Process, error) {
	if err := unix.Kill(pid, 0); err != nil {
		return nil, &ConnectError{Cause: fmt.Errorf("process %d: %w", pid, err)}
	}
	return &Process{pid: pid}, nil
}

// Pid returns the target's process identifier.
func (p *Process) Pid() int { return p.pid }

// ReadAt implements Memory.
func (p *Process) ReadAt(addr, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	buf := make([]byte, size)
	local := unix.Iovec{Base: &buf[0]}
	local.SetLen(int(size))
	remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: int(size)}}
	n, err := unix.ProcessVMReadv(p.pid, []unix.Iovec{local}, remote, 0)
	if err != nil {
		return nil, Segfault(fmt.Errorf("process %d at %#x: %w", p.pid, addr, err))
	}
	if uint64(n) != size {
		return nil, Segfault(fmt.Errorf("process %d at %#x: read %d bytes, want %d", p.pid, addr, n, size))
	}
	return buf, nil
}
