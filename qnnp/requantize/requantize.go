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

// Package requantize derives the fixed-point parameters that convert a
// 32-bit convolution accumulator into an 8-bit quantized output.
//
// Two parameter flavors are provided. Params carries a Q31 fixed-point
// multiplier and is what the vectorized kernels consume: the multiply is a
// doubling high half with a rounding nudge, followed by an arithmetic shift
// whose truncation is corrected through a remainder comparison. ScalarParams
// carries the raw 24-bit float significand and requantizes the magnitude with
// round-half-away-from-zero. The two strategies round exact-half products in
// different directions, so matching outputs may legitimately differ by one
// unit; comparisons against either flavor must budget for that.
package requantize

import (
	"fmt"
	"math"
)

// Params is the requantization parameter block consumed by kernels that use
// Q31 fixed-point arithmetic.
type Params struct {
	Multiplier         int32
	RemainderMask      int32
	RemainderThreshold int32
	Shift              uint32
	MinLessZeroPoint   int32
	MaxLessZeroPoint   int32
	ZeroPoint          int32
}

// ScalarParams is the requantization parameter block for the portable scalar
// reference path.
type ScalarParams struct {
	Multiplier       uint32
	Shift            uint32
	MinLessZeroPoint int64
	MaxLessZeroPoint int64
	ZeroPoint        int32
}

func checkScale(scale float32) {
	if !(scale >= 0x1p-32 && scale < 1.0) {
		panic(fmt.Sprintf("requantize: scale %v outside [0x1p-32, 1)", scale))
	}
}

// ComputeParams derives the Q31 parameter block from a requantization scale,
// output zero point, and output clamp bounds.
//
// Panics if scale is outside [2^-32, 1).
func ComputeParams(scale float32, zeroPoint, qmin, qmax uint8) Params {
	checkScale(scale)
	scaleBits := math.Float32bits(scale)

	// Multiplier is the significand scaled into [0x40000000, 0x7FFFFF80].
	multiplier := int32((scaleBits&0x007FFFFF | 0x00800000) << 7)

	// Shift is in [0, 31].
	shift := uint32(127 + 31 - 32 - scaleBits>>23)
	remainderMask := int32(uint32(1)<<shift - 1)

	return Params{
		Multiplier:         multiplier,
		RemainderMask:      remainderMask,
		RemainderThreshold: remainderMask >> 1,
		Shift:              shift,
		MinLessZeroPoint:   int32(qmin) - int32(zeroPoint),
		MaxLessZeroPoint:   int32(qmax) - int32(zeroPoint),
		ZeroPoint:          int32(zeroPoint),
	}
}

// Requantize converts one 32-bit accumulator to the quantized output using
// the Q31 strategy: doubling multiply-high with rounding, arithmetic shift,
// and a remainder nudge that rounds exact halves up.
func (p Params) Requantize(acc int32) uint8 {
	product := int64(acc) * int64(p.Multiplier)
	q31 := int32(uint32(uint64(product+(1<<30)) >> 31))

	remainder := q31 & p.RemainderMask
	if q31 < 0 {
		remainder--
	}
	out := q31 >> p.Shift
	if remainder > p.RemainderThreshold {
		out++
	}

	if out < p.MinLessZeroPoint {
		out = p.MinLessZeroPoint
	}
	if out > p.MaxLessZeroPoint {
		out = p.MaxLessZeroPoint
	}
	return uint8(out + p.ZeroPoint)
}

// ComputeScalarParams derives the portable scalar parameter block from the
// same inputs as ComputeParams.
//
// Panics if scale is outside [2^-32, 1).
func ComputeScalarParams(scale float32, zeroPoint, qmin, qmax uint8) ScalarParams {
	checkScale(scale)
	scaleBits := math.Float32bits(scale)

	// 24-bit significand; shift is in [24, 56).
	multiplier := scaleBits&0x007FFFFF | 0x00800000
	shift := uint32(127 + 23 - scaleBits>>23)

	return ScalarParams{
		Multiplier:       multiplier,
		Shift:            shift,
		MinLessZeroPoint: int64(qmin) - int64(zeroPoint),
		MaxLessZeroPoint: int64(qmax) - int64(zeroPoint),
		ZeroPoint:        int32(zeroPoint),
	}
}

// Requantize converts one 32-bit accumulator to the quantized output by
// scaling the magnitude with round-half-away-from-zero.
func (p ScalarParams) Requantize(acc int32) uint8 {
	abs := uint32(acc)
	if acc < 0 {
		abs = uint32(-int64(acc))
	}

	product := uint64(abs) * uint64(p.Multiplier)
	rounding := uint64(1) << (p.Shift - 1)
	absScaled := int64((product + rounding) >> p.Shift)

	scaled := absScaled
	if acc < 0 {
		scaled = -absScaled
	}
	if scaled < p.MinLessZeroPoint {
		scaled = p.MinLessZeroPoint
	}
	if scaled > p.MaxLessZeroPoint {
		scaled = p.MaxLessZeroPoint
	}
	return uint8(scaled + int64(p.ZeroPoint))
}
