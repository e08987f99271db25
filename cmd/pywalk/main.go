// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The pywalk tool reads the memory of a live CPython 2.7 process and
// reconstructs the graph of objects reachable from a root address.
// Run "pywalk help" for a list of commands.
package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pywalk/pywalk/internal/cpython"
	"github.com/pywalk/pywalk/internal/memory"
	"github.com/pywalk/pywalk/internal/walker"
)

var cmdRoot = &cobra.Command{
	Use:   "pywalk",
	Short: "explore the object graph of a live CPython 2.7 process",
}

func main() {
	cmdRoot.AddCommand(cmdWalk, cmdRead, cmdSnapshot, cmdExplore)
	if err := cmdRoot.Execute(); err != nil {
		os.Exit(1)
	}
}

func exitf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

// target is the resolved walk destination: a process, a root address
// and the decoder profile.
type target struct {
	pid  int
	root cpython.Pointer
	prof cpython.Profile
}

// addTargetFlags registers the flags every walking command shares.
func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().Int("pid", 0, "pid of the target process")
	cmd.Flags().String("root", "", "root object address (hex or decimal)")
	cmd.Flags().Bool("small-strings", false, "use the small-string layout calibration")
	cmd.Flags().String("config", "", "optional YAML config with pid/root/profile defaults")
}

// resolveTarget merges the config file (if any) with flags; flags win.
func resolveTarget(cmd *cobra.Command) (*target, error) {
	t := &target{prof: cpython.StandardStrings}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err := loadConfig(path)
		if err != nil {
			return nil, err
		}
		t.pid = cfg.Pid
		if cfg.Root != "" {
			root, err := parseAddr(cfg.Root)
			if err != nil {
				return nil, err
			}
			t.root = root
		}
		if cfg.Profile != "" {
			prof, ok := cpython.ProfileByName(cfg.Profile)
			if !ok {
				return nil, fmt.Errorf("unknown profile %q", cfg.Profile)
			}
			t.prof = prof
		}
	}

	if pid, _ := cmd.Flags().GetInt("pid"); pid != 0 {
		t.pid = pid
	}
	if rootStr, _ := cmd.Flags().GetString("root"); rootStr != "" {
		root, err := parseAddr(rootStr)
		if err != nil {
			return nil, err
		}
		t.root = root
	}
	if small, _ := cmd.Flags().GetBool("small-strings"); small {
		t.prof = cpython.SmallStrings
	}

	if t.pid == 0 {
		return nil, fmt.Errorf("no pid specified")
	}
	if t.root.IsNull() {
		return nil, fmt.Errorf("no root address specified")
	}
	return t, nil
}

func parseAddr(s string) (cpython.Pointer, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("can't parse %q as an address", s)
	}
	return cpython.Pointer(v), nil
}

// walkTarget connects to the target and walks its graph.
func walkTarget(t *target) (*walker.Graph, error) {
	proc, err := memory.Connect(t.pid)
	if err != nil {
		return nil, err
	}
	return walker.Walk(proc, t.root, t.prof), nil
}

// printGraph lists every decoded address with its node summary.
func printGraph(g *walker.Graph) {
	t := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
	for _, a := range g.Addresses() {
		fmt.Fprintf(t, "%#x\t%s\n", uint64(a), g.Node(a))
	}
	t.Flush()
}
