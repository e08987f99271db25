// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pywalk/pywalk/internal/snapshot"
)

var cmdSnapshot = &cobra.Command{
	Use:   "snapshot",
	Short: "walk the object graph and save a compressed dump",
	RunE:  runSnapshot,
}

func init() {
	addTargetFlags(cmdSnapshot)
	cmdSnapshot.Flags().StringP("out", "o", "pywalk.snap", "output file")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(cmd)
	if err != nil {
		return err
	}
	g, err := walkTarget(t)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	id, err := snapshot.Write(f, g, t.root, t.prof)
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %d nodes to %s (snapshot %s)\n", g.Len(), out, id)
	return nil
}
