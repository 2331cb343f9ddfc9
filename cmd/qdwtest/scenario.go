// Copyright 2026 qnnpack-go Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aliushn/QNNPACK/qnnp/dwconv"
	"github.com/aliushn/QNNPACK/qnnp/dwtest"
)

// Scenario is one entry of a scenario file: a test configuration plus the
// kernel flavor to run it against.
type Scenario struct {
	Name   string `yaml:"name" json:"name"`
	Kernel string `yaml:"kernel" json:"kernel"`

	Width        int   `yaml:"width" json:"width"`
	Subsampling  int   `yaml:"subsampling" json:"subsampling"`
	Channels     int   `yaml:"channels" json:"channels"`
	CR           int   `yaml:"cr" json:"cr"`
	KernelHeight int   `yaml:"kernel_height" json:"kernel_height"`
	KernelWidth  int   `yaml:"kernel_width" json:"kernel_width"`
	InputStride  int   `yaml:"input_stride" json:"input_stride"`
	OutputStride int   `yaml:"output_stride" json:"output_stride"`
	QMin         uint8 `yaml:"qmin" json:"qmin"`
	QMax         uint8 `yaml:"qmax" json:"qmax"`
	Iterations   int   `yaml:"iterations" json:"iterations"`
	Seed         int64 `yaml:"seed" json:"seed"`
}

type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// loadScenarios reads a YAML scenario file.
func loadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	var file scenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse scenario file %s: %w", path, err)
	}
	if len(file.Scenarios) == 0 {
		return nil, fmt.Errorf("scenario file %s lists no scenarios", path)
	}
	for i := range file.Scenarios {
		if file.Scenarios[i].Name == "" {
			file.Scenarios[i].Name = fmt.Sprintf("scenario-%d", i)
		}
	}
	return file.Scenarios, nil
}

// applyOverrides copies flag values the user set explicitly over a scenario
// loaded from a file. isSet reports whether the named flag appeared on the
// command line; flags carries the parsed flag values.
func applyOverrides(s Scenario, isSet func(string) bool, flags Scenario) Scenario {
	if isSet("kernel") {
		s.Kernel = flags.Kernel
	}
	if isSet("width") {
		s.Width = flags.Width
	}
	if isSet("subsampling") {
		s.Subsampling = flags.Subsampling
	}
	if isSet("channels") {
		s.Channels = flags.Channels
	}
	if isSet("cr") {
		s.CR = flags.CR
	}
	if isSet("kernel-height") {
		s.KernelHeight = flags.KernelHeight
	}
	if isSet("kernel-width") {
		s.KernelWidth = flags.KernelWidth
	}
	if isSet("input-stride") {
		s.InputStride = flags.InputStride
	}
	if isSet("output-stride") {
		s.OutputStride = flags.OutputStride
	}
	if isSet("qmin") {
		s.QMin = flags.QMin
	}
	if isSet("qmax") {
		s.QMax = flags.QMax
	}
	if isSet("iterations") {
		s.Iterations = flags.Iterations
	}
	if isSet("seed") {
		s.Seed = flags.Seed
	}
	return s
}

func (s Scenario) config() dwtest.Config {
	return dwtest.Config{
		Width:        s.Width,
		Subsampling:  s.Subsampling,
		Channels:     s.Channels,
		CR:           s.CR,
		KernelHeight: s.KernelHeight,
		KernelWidth:  s.KernelWidth,
		InputStride:  s.InputStride,
		OutputStride: s.OutputStride,
		QMin:         s.QMin,
		QMax:         s.QMax,
		Iterations:   s.Iterations,
		Seed:         s.Seed,
	}
}

// kernel resolves the scenario's kernel flavor against the normalized config.
func (s Scenario) kernel(cfg dwtest.Config) (dwconv.Kernel, error) {
	switch s.Kernel {
	case "", "generic":
		return dwconv.Generic(cfg.KernelSize(), cfg.CR), nil
	case "scalar":
		return dwconv.Scalar(cfg.KernelSize(), cfg.CR), nil
	default:
		return nil, fmt.Errorf("unknown kernel flavor %q (want generic or scalar)", s.Kernel)
	}
}
