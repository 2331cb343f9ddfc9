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

package dwtest

import "fmt"

// Config describes one depthwise-kernel test scenario. The zero value is a
// runnable minimal scenario: unset dimensions default to 1, Iterations to 3,
// and QMax to 255 when both clamp bounds are zero. A Config is a plain value;
// normalize and validate happen in New, never by mutation.
type Config struct {
	// Width is the number of output pixels per row.
	Width int
	// Subsampling is the convolution stride along the row.
	Subsampling int
	// Channels is the channel count; depthwise kernels produce one output
	// channel per input channel.
	Channels int
	// CR is the channel block width of the kernel under test. Must be a
	// power of two.
	CR int

	KernelHeight int
	KernelWidth  int

	// InputStride and OutputStride are row strides in bytes. Zero means
	// Channels; explicit values must be at least Channels.
	InputStride  int
	OutputStride int

	// QMin and QMax clamp the quantized output.
	QMin uint8
	QMax uint8

	// Iterations is the number of randomized instances to test.
	Iterations int

	// Seed fixes the random source so failures reproduce. Runs with equal
	// Config values behave identically.
	Seed int64
}

func defaultDim(v int) int {
	if v == 0 {
		return 1
	}
	return v
}

// normalized returns the config with zero-value defaults applied.
func (c Config) normalized() Config {
	c.Width = defaultDim(c.Width)
	c.Subsampling = defaultDim(c.Subsampling)
	c.Channels = defaultDim(c.Channels)
	c.CR = defaultDim(c.CR)
	c.KernelHeight = defaultDim(c.KernelHeight)
	c.KernelWidth = defaultDim(c.KernelWidth)
	if c.Iterations == 0 {
		c.Iterations = 3
	}
	if c.QMin == 0 && c.QMax == 0 {
		c.QMax = 255
	}
	return c
}

// Validate reports the first contract violation in the config, if any. It is
// pure: defaults are applied for the check without mutating the receiver.
func (c Config) Validate() error {
	c = c.normalized()
	switch {
	case c.Width < 1:
		return fmt.Errorf("dwtest: width %d, must be at least 1", c.Width)
	case c.Subsampling < 1:
		return fmt.Errorf("dwtest: subsampling %d, must be at least 1", c.Subsampling)
	case c.Channels < 1:
		return fmt.Errorf("dwtest: channels %d, must be at least 1", c.Channels)
	case c.CR < 1 || c.CR&(c.CR-1) != 0:
		return fmt.Errorf("dwtest: cr %d, must be a positive power of two", c.CR)
	case c.KernelHeight < 1:
		return fmt.Errorf("dwtest: kernel height %d, must be at least 1", c.KernelHeight)
	case c.KernelWidth < 1:
		return fmt.Errorf("dwtest: kernel width %d, must be at least 1", c.KernelWidth)
	case c.InputStride < 0 || (c.InputStride != 0 && c.InputStride < c.Channels):
		return fmt.Errorf("dwtest: input stride %d smaller than %d channels", c.InputStride, c.Channels)
	case c.OutputStride < 0 || (c.OutputStride != 0 && c.OutputStride < c.Channels):
		return fmt.Errorf("dwtest: output stride %d smaller than %d channels", c.OutputStride, c.Channels)
	case c.QMin > c.QMax:
		return fmt.Errorf("dwtest: qmin %d greater than qmax %d", c.QMin, c.QMax)
	case c.Iterations < 1:
		return fmt.Errorf("dwtest: iterations %d, must be at least 1", c.Iterations)
	}
	return nil
}

// KernelSize returns KernelHeight * KernelWidth with defaults applied.
func (c Config) KernelSize() int {
	return defaultDim(c.KernelHeight) * defaultDim(c.KernelWidth)
}

// PackedChannels returns the padded channel count of the packed weight and
// bias buffers: (Channels | (CR-1)) + 1, the smallest multiple of CR strictly
// greater than Channels. An exact multiple gains one full padding block.
func (c Config) PackedChannels() int {
	return (defaultDim(c.Channels) | (defaultDim(c.CR) - 1)) + 1
}

// EffectiveInputStride returns InputStride, or Channels when unset.
func (c Config) EffectiveInputStride() int {
	if c.InputStride == 0 {
		return defaultDim(c.Channels)
	}
	return c.InputStride
}

// EffectiveOutputStride returns OutputStride, or Channels when unset.
func (c Config) EffectiveOutputStride() int {
	if c.OutputStride == 0 {
		return defaultDim(c.Channels)
	}
	return c.OutputStride
}
