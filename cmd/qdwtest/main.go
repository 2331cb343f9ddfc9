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

// Command qdwtest differentially tests quantized depthwise convolution
// kernels from the command line, either for a single shape given by flags or
// for a YAML scenario file.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/sys/cpu"

	"github.com/aliushn/QNNPACK/internal/logger"
	"github.com/aliushn/QNNPACK/qnnp/dwconv"
	"github.com/aliushn/QNNPACK/qnnp/dwtest"
)

func main() {
	app := &cli.Command{
		Name:  "qdwtest",
		Usage: "Differential tester for 8-bit quantized depthwise convolution kernels",
		Commands: []*cli.Command{
			runCmd(),
			featuresCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cli.Command {
	var (
		scenarioPath string
		reportPath   string
		logLevel     string
		logFormat    string

		kernelFlavor string
		width        int
		subsampling  int
		channels     int
		cr           int
		kernelHeight int
		kernelWidth  int
		inputStride  int
		outputStride int
		qmin         int64
		qmax         int64
		iterations   int
		seed         int64
		randomSeed   bool
	)

	return &cli.Command{
		Name:  "run",
		Usage: "Run one or more test scenarios",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "scenario", Aliases: []string{"s"}, Usage: "YAML scenario file; explicitly set shape flags override file values", Destination: &scenarioPath},
			&cli.StringFlag{Name: "report", Usage: "write a JSON report to this path", Destination: &reportPath},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn, or error", Destination: &logLevel},
			&cli.StringFlag{Name: "log-format", Value: "console", Usage: "console or json", Destination: &logFormat},

			&cli.StringFlag{Name: "kernel", Value: "generic", Usage: "kernel flavor: generic or scalar", Destination: &kernelFlavor},
			&cli.IntFlag{Name: "width", Value: 2, Usage: "output pixels per row", Destination: &width},
			&cli.IntFlag{Name: "subsampling", Value: 1, Usage: "convolution stride along the row", Destination: &subsampling},
			&cli.IntFlag{Name: "channels", Value: 8, Usage: "channel count", Destination: &channels},
			&cli.IntFlag{Name: "cr", Value: dwconv.PreferredCR(), Usage: "channel block width (power of two)", Destination: &cr},
			&cli.IntFlag{Name: "kernel-height", Value: 3, Destination: &kernelHeight},
			&cli.IntFlag{Name: "kernel-width", Value: 3, Destination: &kernelWidth},
			&cli.IntFlag{Name: "input-stride", Usage: "input row stride in bytes (0 = channels)", Destination: &inputStride},
			&cli.IntFlag{Name: "output-stride", Usage: "output row stride in bytes (0 = channels)", Destination: &outputStride},
			&cli.Int64Flag{Name: "qmin", Value: 0, Usage: "output clamp lower bound", Destination: &qmin},
			&cli.Int64Flag{Name: "qmax", Value: 255, Usage: "output clamp upper bound", Destination: &qmax},
			&cli.IntFlag{Name: "iterations", Aliases: []string{"n"}, Value: 3, Destination: &iterations},
			&cli.Int64Flag{Name: "seed", Value: 0, Usage: "random seed; equal seeds reproduce runs exactly", Destination: &seed},
			&cli.BoolFlag{Name: "randomize-seed", Usage: "draw a fresh seed per scenario for fuzz-style exploration", Destination: &randomSeed},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			log := logger.New(os.Stderr, logLevel, logFormat)
			runID := uuid.NewString()
			log = log.With().Str("run_id", runID).Logger()

			if qmin < 0 || qmin > 255 || qmax < 0 || qmax > 255 {
				return fmt.Errorf("qmin/qmax must be within [0, 255]")
			}
			flagScenario := Scenario{
				Name:         "cli",
				Kernel:       kernelFlavor,
				Width:        width,
				Subsampling:  subsampling,
				Channels:     channels,
				CR:           cr,
				KernelHeight: kernelHeight,
				KernelWidth:  kernelWidth,
				InputStride:  inputStride,
				OutputStride: outputStride,
				QMin:         uint8(qmin),
				QMax:         uint8(qmax),
				Iterations:   iterations,
				Seed:         seed,
			}

			var scenarios []Scenario
			if scenarioPath != "" {
				var err error
				scenarios, err = loadScenarios(scenarioPath)
				if err != nil {
					return err
				}
				for i := range scenarios {
					scenarios[i] = applyOverrides(scenarios[i], c.IsSet, flagScenario)
				}
			} else {
				scenarios = []Scenario{flagScenario}
			}

			report := Report{RunID: runID, StartedAt: time.Now(), Passed: true}
			failed := 0
			for _, scenario := range scenarios {
				if randomSeed {
					scenario.Seed = time.Now().UnixNano()
				}
				result := runScenario(log, scenario)
				report.Results = append(report.Results, result)
				if !result.Passed {
					report.Passed = false
					failed++
				}
			}

			if reportPath != "" {
				if err := writeReport(reportPath, report); err != nil {
					return err
				}
				log.Info().Str("path", reportPath).Msg("report written")
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(scenarios))
			}
			log.Info().Int("scenarios", len(scenarios)).Msg("all scenarios passed")
			return nil
		},
	}
}

func runScenario(log zerolog.Logger, scenario Scenario) Result {
	cfg := scenario.config()
	slog := log.With().
		Str("scenario", scenario.Name).
		Int64("seed", scenario.Seed).
		Logger()

	tester, err := dwtest.New(cfg)
	if err != nil {
		slog.Error().Err(err).Msg("invalid configuration")
		return Result{Scenario: scenario, Error: err.Error()}
	}
	cfg = tester.Config()
	kernel, err := scenario.kernel(cfg)
	if err != nil {
		slog.Error().Err(err).Msg("invalid kernel flavor")
		return Result{Scenario: scenario, Error: err.Error()}
	}

	slog.Debug().
		Int("channels", cfg.Channels).
		Int("width", cfg.Width).
		Int("kernel_size", cfg.KernelSize()).
		Int("packed_channels", cfg.PackedChannels()).
		Msg("running scenario")

	start := time.Now()
	err = tester.Test(kernel)
	elapsed := time.Since(start)

	if err != nil {
		slog.Error().Err(err).Dur("elapsed", elapsed).Msg("scenario failed")
		return Result{Scenario: scenario, Error: err.Error(), Duration: elapsed, Iterations: cfg.Iterations}
	}
	slog.Info().Dur("elapsed", elapsed).Int("iterations", cfg.Iterations).Msg("scenario passed")
	return Result{Scenario: scenario, Passed: true, Duration: elapsed, Iterations: cfg.Iterations}
}

func featuresCmd() *cli.Command {
	return &cli.Command{
		Name:  "features",
		Usage: "Print detected CPU features and the preferred channel block width",
		Action: func(ctx context.Context, c *cli.Command) error {
			fmt.Printf("GOOS:   %s\n", runtime.GOOS)
			fmt.Printf("GOARCH: %s\n", runtime.GOARCH)
			fmt.Println()

			switch runtime.GOARCH {
			case "amd64":
				fmt.Println("golang.org/x/sys/cpu.X86:")
				fmt.Printf("  HasSSE2:    %v\n", cpu.X86.HasSSE2)
				fmt.Printf("  HasSSE41:   %v\n", cpu.X86.HasSSE41)
				fmt.Printf("  HasAVX2:    %v\n", cpu.X86.HasAVX2)
				fmt.Printf("  HasAVX512F: %v\n", cpu.X86.HasAVX512F)
			case "arm64":
				fmt.Println("golang.org/x/sys/cpu.ARM64:")
				fmt.Printf("  HasASIMD:   %v\n", cpu.ARM64.HasASIMD)
				fmt.Printf("  HasASIMDDP: %v\n", cpu.ARM64.HasASIMDDP)
				fmt.Printf("  HasSVE:     %v\n", cpu.ARM64.HasSVE)
			}

			fmt.Println()
			fmt.Printf("preferred cr: %d\n", dwconv.PreferredCR())
			return nil
		},
	}
}
