// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/spf13/cobra"
)

var cmdWalk = &cobra.Command{
	Use:   "walk",
	Short: "walk the object graph and print every decoded node",
	RunE:  runWalk,
}

func init() {
	addTargetFlags(cmdWalk)
}

func runWalk(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(cmd)
	if err != nil {
		return err
	}
	g, err := walkTarget(t)
	if err != nil {
		return err
	}
	printGraph(g)
	return nil
}
