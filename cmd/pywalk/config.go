// Copyright 2021 The Pywalk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// fileConfig is the optional YAML config a walking command may load,
// e.g.:
//
//	pid: 1234
//	root: 0x7f3a80001000
//	profile: small-strings
type fileConfig struct {
	Pid     int    `json:"pid"`
	Root    string `json:"root"`
	Profile string `json:"profile"`
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &fileConfig{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return cfg, nil
}
