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

// Package pack rearranges quantized kernel weights into the blocked layout
// consumed by the depthwise convolution kernels.
package pack

// PackedChannels returns channels rounded up to the next multiple of cr.
func PackedChannels(channels, cr int) int {
	return (channels + cr - 1) / cr * cr
}

// Weights packs depthwise kernel weights from the row-major source layout
// src[c*kernelSize + k] into the channel-blocked destination layout
//
//	dst[(c/cr)*kernelSize*cr + k*cr + c%cr]
//
// so a kernel can load cr adjacent channel lanes for one kernel position with
// a single contiguous read. Groups pack independent channel slabs
// consecutively: group g reads src starting at g*channels*kernelSize and
// writes dst starting at g*kernelSize*packedChannels.
//
// Destination positions for channel lanes at or beyond channels are left
// untouched; the caller must pre-fill dst with the kernel zero-point value so
// those lanes contribute nothing to any accumulation that reads them.
//
// Panics if src or dst is too small for the requested shape.
func Weights(channels, kernelSize, cr, groups int, src, dst []uint8) {
	packed := PackedChannels(channels, cr)
	if len(src) < groups*channels*kernelSize {
		panic("pack: source slice too small")
	}
	if len(dst) < groups*kernelSize*packed {
		panic("pack: destination slice too small")
	}

	for g := 0; g < groups; g++ {
		sg := src[g*channels*kernelSize:]
		dg := dst[g*kernelSize*packed:]
		for blockStart := 0; blockStart < channels; blockStart += cr {
			blockSize := cr
			if channels-blockStart < cr {
				blockSize = channels - blockStart
			}
			base := blockStart / cr * kernelSize * cr
			for k := 0; k < kernelSize; k++ {
				for i := 0; i < blockSize; i++ {
					dg[base+k*cr+i] = sg[(blockStart+i)*kernelSize+k]
				}
			}
		}
	}
}
