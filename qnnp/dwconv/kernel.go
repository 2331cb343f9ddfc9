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

import "github.com/aliushn/QNNPACK/qnnp/requantize"

// Generic returns a portable Kernel for the given kernel size and channel
// block width cr. It mirrors the shape of the vectorized kernels: channels
// are processed cr lanes at a time, with weights read as contiguous
// cr-wide rows from the blocked layout.
//
// Panics if kernelSize or cr is not positive.
func Generic(kernelSize, cr int) Kernel {
	if kernelSize < 1 {
		panic("dwconv: kernelSize must be at least 1")
	}
	if cr < 1 {
		panic("dwconv: cr must be at least 1")
	}
	return func(
		channels, width int,
		indirection [][]uint8,
		weights []uint8,
		bias []int32,
		output []uint8,
		indirectionStride, outputIncrement int,
		inputZeroPoint, kernelZeroPoint uint8,
		params *requantize.Params,
	) {
		checkContract(kernelSize, cr, channels, width, indirection, weights, bias, output, indirectionStride, outputIncrement)
		izp := int32(inputZeroPoint)
		kzp := int32(kernelZeroPoint)

		acc := make([]int32, cr)
		o := 0
		for x := 0; x < width; x++ {
			rows := indirection[x*indirectionStride : x*indirectionStride+kernelSize]
			for blockStart := 0; blockStart < channels; blockStart += cr {
				blockSize := cr
				if channels-blockStart < cr {
					blockSize = channels - blockStart
				}
				block := weights[blockStart/cr*kernelSize*cr:]

				for i := 0; i < blockSize; i++ {
					acc[i] = bias[blockStart+i]
				}
				for k := 0; k < kernelSize; k++ {
					row := rows[k]
					wrow := block[k*cr:]
					for i := 0; i < blockSize; i++ {
						acc[i] += (int32(row[blockStart+i]) - izp) * (int32(wrow[i]) - kzp)
					}
				}
				for i := 0; i < blockSize; i++ {
					output[o] = params.Requantize(acc[i])
					o++
				}
			}
			o += outputIncrement
		}
	}
}

// Scalar returns a straightforward per-channel Kernel for the given kernel
// size and channel block width. It consumes the same blocked weight layout
// as Generic but walks one channel at a time; it exists as an independent
// conforming implementation of the contract.
func Scalar(kernelSize, cr int) Kernel {
	if kernelSize < 1 {
		panic("dwconv: kernelSize must be at least 1")
	}
	if cr < 1 {
		panic("dwconv: cr must be at least 1")
	}
	return func(
		channels, width int,
		indirection [][]uint8,
		weights []uint8,
		bias []int32,
		output []uint8,
		indirectionStride, outputIncrement int,
		inputZeroPoint, kernelZeroPoint uint8,
		params *requantize.Params,
	) {
		checkContract(kernelSize, cr, channels, width, indirection, weights, bias, output, indirectionStride, outputIncrement)
		izp := int32(inputZeroPoint)
		kzp := int32(kernelZeroPoint)

		o := 0
		for x := 0; x < width; x++ {
			rows := indirection[x*indirectionStride : x*indirectionStride+kernelSize]
			for c := 0; c < channels; c++ {
				acc := bias[c]
				for k := 0; k < kernelSize; k++ {
					w := weights[c/cr*kernelSize*cr+k*cr+c%cr]
					acc += (int32(rows[k][c]) - izp) * (int32(w) - kzp)
				}
				output[o] = params.Requantize(acc)
				o++
			}
			o += outputIncrement
		}
	}
}
