// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pywalk/pywalk/internal/memory"
)

var cmdRead = &cobra.Command{
	Use:   "read",
	Short: "hex dump a chunk of the target's memory",
	RunE:  runRead,
}

func init() {
	cmdRead.Flags().Int("pid", 0, "pid of the target process")
	cmdRead.Flags().String("addr", "", "address to read (hex or decimal)")
	cmdRead.Flags().Uint64("len", 256, "number of bytes to read")
}

func runRead(cmd *cobra.Command, args []string) error {
	pid, _ := cmd.Flags().GetInt("pid")
	if pid == 0 {
		return fmt.Errorf("no pid specified")
	}
	addrStr, _ := cmd.Flags().GetString("addr")
	addr, err := parseAddr(addrStr)
	if err != nil {
		return err
	}
	n, _ := cmd.Flags().GetUint64("len")

	proc, err := memory.Connect(pid)
	if err != nil {
		return err
	}
	b, err := proc.ReadAt(uint64(addr), n)
	if err != nil {
		return err
	}
	for i, x := range b {
		if i%16 == 0 {
			if i > 0 {
				fmt.Println()
			}
			fmt.Printf("%x:", uint64(addr)+uint64(i))
		}
		fmt.Printf(" %02x", x)
	}
	fmt.Println()
	return nil
}
