// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/pywalk/pywalk/internal/cpython"
	"github.com/pywalk/pywalk/internal/snapshot"
	"github.com/pywalk/pywalk/internal/walker"
)

const exploreLongHelp = `Explore walks a live process (or loads a saved snapshot) and then
reads commands on an interactive prompt:

  ls            list every decoded address
  node ADDR     show the node decoded at ADDR
  py ADDR       materialize the value rooted at ADDR as Python-ish data
  root          show the walk's root address
  quit          leave`

var cmdExplore = &cobra.Command{
	Use:   "explore",
	Short: "browse a walked graph interactively",
	Long:  exploreLongHelp,
	RunE:  runExplore,
}

func init() {
	addTargetFlags(cmdExplore)
	cmdExplore.Flags().String("snapshot", "", "explore a saved snapshot instead of a live process")
}

func runExplore(cmd *cobra.Command, args []string) error {
	var g *walker.Graph
	var root cpython.Pointer

	if path, _ := cmd.Flags().GetString("snapshot"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		s, err := snapshot.Read(f)
		if err != nil {
			return err
		}
		if g, err = s.Graph(); err != nil {
			return err
		}
		if root, err = s.RootAddr(); err != nil {
			return err
		}
	} else {
		t, err := resolveTarget(cmd)
		if err != nil {
			return err
		}
		if g, err = walkTarget(t); err != nil {
			return err
		}
		root = t.root
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "(pywalk) ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("ls"),
			readline.PcItem("node"),
			readline.PcItem("py"),
			readline.PcItem("root"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Printf("%d nodes, root %#x\n", g.Len(), uint64(root))
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Print(exploreLongHelp, "\n")
		case "root":
			fmt.Printf("%#x\n", uint64(root))
		case "ls":
			printGraph(g)
		case "node", "py":
			if len(fields) < 2 {
				fmt.Fprintf(os.Stderr, "usage: %s ADDR\n", fields[0])
				continue
			}
			addr, err := parseAddr(fields[1])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			if fields[0] == "node" {
				n := g.Node(addr)
				if n == nil {
					fmt.Printf("%#x not in graph\n", uint64(addr))
					continue
				}
				fmt.Println(n)
			} else {
				fmt.Printf("%v\n", g.Materialize(addr))
			}
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q; try help\n", fields[0])
		}
	}
}
