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

// Package dwtest differentially tests 8-bit quantized depthwise convolution
// kernels against an independent fixed-point reference.
//
// For each iteration the tester generates a random problem instance, computes
// every output accumulator with plain 32-bit arithmetic, calibrates output
// quantization from the observed accumulator range, invokes the kernel under
// test through the dwconv.Kernel contract, and checks every output element
// against the dequantized reference within a tolerance that admits one unit
// of rounding disagreement and nothing more.
//
// The indirection table handed to the kernel is randomly permuted each
// iteration. The reference engine reads through the identical permuted table
// with the identical index arithmetic, so a kernel only passes if it treats
// the table as an opaque array of addresses.
package dwtest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/aliushn/QNNPACK/qnnp/dwconv"
	"github.com/aliushn/QNNPACK/qnnp/pack"
	"github.com/aliushn/QNNPACK/qnnp/requantize"
)

// Both zero points sit at the uint8 midpoint so uniformly random bytes
// exercise both signs of the dequantized value.
const (
	InputZeroPoint  uint8 = 127
	KernelZeroPoint uint8 = 127
)

// Tolerance is the maximum allowed distance between the clamped dequantized
// reference and the kernel output, in output units. One unit of rounding
// disagreement between independent rounding strategies stays under it; a
// structurally wrong computation does not.
const Tolerance = 0.6

// inputPadding is spare bytes after the last valid input element, for
// kernels that read whole channel blocks.
const inputPadding = 8

// biasBound bounds the magnitude of generated bias values.
const biasBound = 10000

var (
	// ErrDegenerateData reports a random buffer whose bytes are all equal.
	// Such an instance cannot catch a broken kernel, so it fails the run
	// instead of silently passing.
	ErrDegenerateData = errors.New("random data has no dynamic range")

	// ErrZeroRange reports that every reference accumulator came out equal,
	// leaving nothing to calibrate output quantization from.
	ErrZeroRange = errors.New("accumulator range is zero")
)

// MismatchError reports one output element outside Tolerance.
type MismatchError struct {
	// X and Channel locate the offending output element.
	X       int
	Channel int
	// Reference is the clamped dequantized reference value, relative to the
	// output zero point.
	Reference float64
	// Output is the checked quantized value minus the output zero point.
	Output int32
	// Source names which output was checked: "kernel" or "scalar reference".
	Source string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s output at x=%d channel=%d: got %d, reference %v (tolerance %v)",
		e.Source, e.X, e.Channel, e.Output, e.Reference, Tolerance)
}

// Tester drives differential testing of depthwise kernels for one Config.
type Tester struct {
	cfg Config
	rng *rand.Rand
}

// New validates cfg and returns a Tester for it. The returned Tester owns a
// random source seeded with cfg.Seed; two Testers built from equal configs
// produce identical test sequences.
func New(cfg Config) (*Tester, error) {
	cfg = cfg.normalized()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Tester{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Config returns the normalized configuration the Tester runs with.
func (t *Tester) Config() Config {
	return t.cfg
}

// Test runs the configured number of randomized iterations against kernel.
// It returns on the first failure; the error carries the iteration index and
// seed needed to reproduce it.
func (t *Tester) Test(kernel dwconv.Kernel) error {
	for iteration := 0; iteration < t.cfg.Iterations; iteration++ {
		if err := t.run(kernel); err != nil {
			return fmt.Errorf("iteration %d (seed %d): %w", iteration, t.cfg.Seed, err)
		}
	}
	return nil
}

// run executes a single iteration: generate, pack, compute the reference,
// calibrate, invoke, compare.
func (t *Tester) run(kernel dwconv.Kernel) error {
	cfg := t.cfg
	kernelSize := cfg.KernelSize()
	packedChannels := cfg.PackedChannels()
	inputStride := cfg.EffectiveInputStride()
	outputStride := cfg.EffectiveOutputStride()
	entries := kernelSize + (cfg.Width-1)*cfg.KernelHeight*cfg.Subsampling

	input := make([]uint8, (entries-1)*inputStride+cfg.Channels+inputPadding)
	weights := make([]uint8, cfg.Channels*kernelSize)
	bias := make([]int32, packedChannels)
	fillBytes(t.rng, input)
	fillBytes(t.rng, weights)
	for i := range bias {
		bias[i] = int32(t.rng.Intn(2*biasBound+1) - biasBound)
	}

	if allEqual(input) {
		return fmt.Errorf("input tensor: %w", ErrDegenerateData)
	}
	if allEqual(weights) {
		return fmt.Errorf("kernel weights: %w", ErrDegenerateData)
	}

	packedWeights := make([]uint8, kernelSize*packedChannels)
	for i := range packedWeights {
		packedWeights[i] = KernelZeroPoint
	}
	pack.Weights(cfg.Channels, kernelSize, cfg.CR, 1, weights, packedWeights)

	indirection := t.buildIndirection(input, entries, inputStride)

	accumulators := t.reference(indirection, weights, bias)

	outputScale, outputZeroPoint, err := calibrate(accumulators)
	if err != nil {
		return err
	}
	requantizationScale := float32(1.0 / outputScale)
	params := requantize.ComputeParams(requantizationScale, outputZeroPoint, cfg.QMin, cfg.QMax)
	scalarParams := requantize.ComputeScalarParams(requantizationScale, outputZeroPoint, cfg.QMin, cfg.QMax)

	output := make([]uint8, (cfg.Width-1)*outputStride+cfg.Channels)
	kernel(
		cfg.Channels, cfg.Width,
		indirection, packedWeights, bias, output,
		cfg.KernelHeight*cfg.Subsampling,
		outputStride-cfg.Channels,
		InputZeroPoint, KernelZeroPoint,
		&params,
	)

	return t.compare(accumulators, output, outputScale, outputZeroPoint, scalarParams)
}

// buildIndirection builds the table in canonical order, entry i addressing
// input at i*inputStride, then shuffles it. Reference and kernel both consume
// the shuffled table.
func (t *Tester) buildIndirection(input []uint8, entries, inputStride int) [][]uint8 {
	indirection := make([][]uint8, entries)
	for i := range indirection {
		indirection[i] = input[i*inputStride:]
	}
	t.rng.Shuffle(len(indirection), func(i, j int) {
		indirection[i], indirection[j] = indirection[j], indirection[i]
	})
	return indirection
}

// reference computes the int32 accumulator for every (x, channel) output
// element with plain arithmetic, reading inputs through the same permuted
// indirection table the kernel will see.
func (t *Tester) reference(indirection [][]uint8, weights []uint8, bias []int32) []int32 {
	cfg := t.cfg
	kernelSize := cfg.KernelSize()
	izp := int32(InputZeroPoint)
	kzp := int32(KernelZeroPoint)

	accumulators := make([]int32, cfg.Width*cfg.Channels)
	for x := 0; x < cfg.Width; x++ {
		rows := indirection[x*cfg.KernelHeight*cfg.Subsampling:]
		for c := 0; c < cfg.Channels; c++ {
			acc := bias[c]
			for k := 0; k < kernelSize; k++ {
				acc += (int32(rows[k][c]) - izp) * (int32(weights[c*kernelSize+k]) - kzp)
			}
			accumulators[x*cfg.Channels+c] = acc
		}
	}
	return accumulators
}

// calibrate derives the output scale and zero point from the accumulator
// range. The scale maps the full range onto the byte range; when the range is
// under 256 the scale is pinned just above 1 so quantization error never
// vanishes entirely. The zero point centers the representable range on the
// accumulator midpoint.
func calibrate(accumulators []int32) (outputScale float64, outputZeroPoint uint8, err error) {
	accMin, accMax := accumulators[0], accumulators[0]
	for _, a := range accumulators[1:] {
		if a < accMin {
			accMin = a
		}
		if a > accMax {
			accMax = a
		}
	}
	accRange := int64(accMax) - int64(accMin)
	if accRange == 0 {
		return 0, 0, ErrZeroRange
	}

	if accRange >= 256 {
		outputScale = float64(accRange) / 255.0
	} else {
		outputScale = 1.00001
	}

	zp := math.RoundToEven(127.5 - 0.5*float64(int64(accMin)+int64(accMax))/outputScale)
	if zp < 0 {
		zp = 0
	}
	if zp > 255 {
		zp = 255
	}
	return outputScale, uint8(zp), nil
}

// compare checks every kernel output element against the clamped dequantized
// reference, and the scalar-reference requantization of the same accumulator
// against the same bound.
func (t *Tester) compare(accumulators []int32, output []uint8, outputScale float64, outputZeroPoint uint8, scalarParams requantize.ScalarParams) error {
	cfg := t.cfg
	outputStride := cfg.EffectiveOutputStride()
	lo := float64(cfg.QMin) - float64(outputZeroPoint)
	hi := float64(cfg.QMax) - float64(outputZeroPoint)

	for x := 0; x < cfg.Width; x++ {
		for c := 0; c < cfg.Channels; c++ {
			acc := accumulators[x*cfg.Channels+c]
			reference := float64(acc) / outputScale
			if reference < lo {
				reference = lo
			}
			if reference > hi {
				reference = hi
			}

			got := int32(output[x*outputStride+c]) - int32(outputZeroPoint)
			if math.Abs(reference-float64(got)) > Tolerance {
				return &MismatchError{X: x, Channel: c, Reference: reference, Output: got, Source: "kernel"}
			}

			scalar := int32(scalarParams.Requantize(acc)) - int32(outputZeroPoint)
			if math.Abs(reference-float64(scalar)) > Tolerance {
				return &MismatchError{X: x, Channel: c, Reference: reference, Output: scalar, Source: "scalar reference"}
			}
		}
	}
	return nil
}

func fillBytes(rng *rand.Rand, buf []uint8) {
	for i := range buf {
		buf[i] = uint8(rng.Intn(256))
	}
}

func allEqual(buf []uint8) bool {
	first := buf[0]
	for _, b := range buf[1:] {
		if b != first {
			return false
		}
	}
	return true
}
