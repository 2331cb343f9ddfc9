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

// Package dwconv defines the calling contract for 8-bit quantized depthwise
// convolution row kernels and provides portable implementations of it.
//
// A depthwise kernel computes one output row at a time. It never assumes the
// input rows are contiguous: every input access goes through an indirection
// table of row slices, so the same kernel serves padded, strided, and dilated
// convolutions. Kernel shape and channel block width are fixed per kernel
// instance; everything else arrives through the call.
package dwconv

import "github.com/aliushn/QNNPACK/qnnp/requantize"

// Kernel computes one output row of a quantized depthwise convolution.
//
// Arguments:
//   - channels: number of (input and output) channels.
//   - width: number of output pixels in the row.
//   - indirection: table of input row slices. Pixel x consumes entries
//     indirection[x*indirectionStride : x*indirectionStride+kernelSize], and
//     treats them as opaque addresses; no adjacency between entries may be
//     assumed.
//   - weights: kernel weights in the channel-blocked layout produced by
//     pack.Weights, with padding lanes filled with the kernel zero point.
//   - bias: per-channel int32 bias, at least channels entries.
//   - output: receives width pixels of channels quantized bytes each,
//     with outputIncrement bytes skipped between consecutive pixels.
//   - indirectionStride: table entries to advance per output pixel.
//   - outputIncrement: output bytes to skip after each pixel.
//   - inputZeroPoint, kernelZeroPoint: the 8-bit zero points.
//   - params: Q31 requantization parameters for the accumulator→byte step.
//
// Implementations panic when a slice is too small for the requested shape;
// those are programmer errors, not runtime conditions.
type Kernel func(
	channels, width int,
	indirection [][]uint8,
	weights []uint8,
	bias []int32,
	output []uint8,
	indirectionStride, outputIncrement int,
	inputZeroPoint, kernelZeroPoint uint8,
	params *requantize.Params,
)

func checkContract(kernelSize, cr, channels, width int, indirection [][]uint8, weights []uint8, bias []int32, output []uint8, indirectionStride, outputIncrement int) {
	if channels < 1 || width < 1 {
		panic("dwconv: channels and width must be at least 1")
	}
	if len(indirection) < (width-1)*indirectionStride+kernelSize {
		panic("dwconv: indirection table too small")
	}
	packed := (channels + cr - 1) / cr * cr
	if len(weights) < kernelSize*packed {
		panic("dwconv: weights slice too small")
	}
	if len(bias) < channels {
		panic("dwconv: bias slice too small")
	}
	if len(output) < (width-1)*(channels+outputIncrement)+channels {
		panic("dwconv: output slice too small")
	}
}
