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

package dwconv

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/aliushn/QNNPACK/qnnp/pack"
	"github.com/aliushn/QNNPACK/qnnp/requantize"
)

const testZeroPoint = 127

// buildCase assembles the buffers one kernel invocation needs: a random
// input tensor, an indirection table over it, packed weights, and bias.
func buildCase(rng *rand.Rand, channels, width, kernelSize, cr, inputStride int) (indirection [][]uint8, weights []uint8, bias []int32) {
	entries := kernelSize + (width-1)*kernelSize
	input := make([]uint8, (entries-1)*inputStride+channels+8)
	for i := range input {
		input[i] = uint8(rng.Intn(256))
	}

	indirection = make([][]uint8, entries)
	for i := range indirection {
		indirection[i] = input[i*inputStride:]
	}

	raw := make([]uint8, channels*kernelSize)
	for i := range raw {
		raw[i] = uint8(rng.Intn(256))
	}
	weights = make([]uint8, kernelSize*pack.PackedChannels(channels, cr))
	for i := range weights {
		weights[i] = testZeroPoint
	}
	pack.Weights(channels, kernelSize, cr, 1, raw, weights)

	bias = make([]int32, pack.PackedChannels(channels, cr))
	for i := range bias {
		bias[i] = int32(rng.Intn(20001) - 10000)
	}
	return indirection, weights, bias
}

func TestGenericSingleElement(t *testing.T) {
	// One channel, one pixel, 1x1 kernel: the output is fully predictable.
	// acc = bias + (input-127)*(weight-127) = 100 + 2*4 = 108,
	// then requantized with scale 0.5 around zero point 128: 54 + 128.
	input := []uint8{129, 0, 0, 0, 0, 0, 0, 0, 0}
	indirection := [][]uint8{input}
	weights := []uint8{131}
	bias := []int32{100}
	output := make([]uint8, 1)
	params := requantize.ComputeParams(0.5, 128, 0, 255)

	Generic(1, 1)(1, 1, indirection, weights, bias, output, 1, 0, testZeroPoint, testZeroPoint, &params)

	if output[0] != 182 {
		t.Errorf("output = %d, want 182", output[0])
	}
}

func TestGenericMatchesScalar(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	shapes := []struct {
		channels, width, kernelSize, cr int
	}{
		{1, 1, 1, 1},
		{8, 2, 9, 8},
		{17, 3, 9, 8},
		{5, 4, 3, 4},
		{24, 2, 25, 8},
	}
	for _, s := range shapes {
		t.Run(fmt.Sprintf("c%dw%dk%dcr%d", s.channels, s.width, s.kernelSize, s.cr), func(t *testing.T) {
			inputStride := s.channels + rng.Intn(3)
			indirection, weights, bias := buildCase(rng, s.channels, s.width, s.kernelSize, s.cr, inputStride)
			params := requantize.ComputeParams(0x1p-12, 128, 0, 255)

			outGeneric := make([]uint8, s.width*s.channels)
			outScalar := make([]uint8, s.width*s.channels)
			Generic(s.kernelSize, s.cr)(s.channels, s.width, indirection, weights, bias, outGeneric, s.kernelSize, 0, testZeroPoint, testZeroPoint, &params)
			Scalar(s.kernelSize, s.cr)(s.channels, s.width, indirection, weights, bias, outScalar, s.kernelSize, 0, testZeroPoint, testZeroPoint, &params)

			for i := range outGeneric {
				if outGeneric[i] != outScalar[i] {
					t.Fatalf("output[%d]: Generic=%d Scalar=%d", i, outGeneric[i], outScalar[i])
				}
			}
		})
	}
}

func TestGenericHonorsOutputIncrement(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const (
		channels   = 3
		width      = 3
		kernelSize = 2
		cr         = 2
		increment  = 4
	)
	indirection, weights, bias := buildCase(rng, channels, width, kernelSize, cr, channels)
	params := requantize.ComputeParams(0x1p-10, 128, 0, 255)

	const sentinel = 0xAA
	output := make([]uint8, (width-1)*(channels+increment)+channels)
	for i := range output {
		output[i] = sentinel
	}

	Generic(kernelSize, cr)(channels, width, indirection, weights, bias, output, kernelSize, increment, testZeroPoint, testZeroPoint, &params)

	for x := 0; x < width-1; x++ {
		gap := output[x*(channels+increment)+channels : (x+1)*(channels+increment)]
		for i, b := range gap {
			if b != sentinel {
				t.Errorf("gap byte %d after pixel %d overwritten: %d", i, x, b)
			}
		}
	}
}

func TestKernelContractPanics(t *testing.T) {
	params := requantize.ComputeParams(0.5, 128, 0, 255)
	input := make([]uint8, 64)
	ind := [][]uint8{input}

	tests := []struct {
		name string
		call func()
	}{
		{"short indirection", func() {
			Generic(2, 1)(1, 1, ind, make([]uint8, 2), make([]int32, 1), make([]uint8, 1), 1, 0, 127, 127, &params)
		}},
		{"short weights", func() {
			Generic(1, 8)(4, 1, ind, make([]uint8, 4), make([]int32, 8), make([]uint8, 4), 1, 0, 127, 127, &params)
		}},
		{"short bias", func() {
			Generic(1, 1)(4, 1, ind, make([]uint8, 4), make([]int32, 2), make([]uint8, 4), 1, 0, 127, 127, &params)
		}},
		{"short output", func() {
			Generic(1, 1)(4, 1, ind, make([]uint8, 4), make([]int32, 4), make([]uint8, 2), 1, 0, 127, 127, &params)
		}},
		{"bad kernel size", func() { Generic(0, 1) }},
		{"bad cr", func() { Scalar(1, 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.call()
		})
	}
}

func TestPreferredCR(t *testing.T) {
	cr := PreferredCR()
	if cr < 1 {
		t.Fatalf("PreferredCR() = %d", cr)
	}
	if cr&(cr-1) != 0 {
		t.Fatalf("PreferredCR() = %d, not a power of two", cr)
	}
}
