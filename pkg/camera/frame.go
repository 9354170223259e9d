/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package camera records camera streams at a fixed rate, either as still
// images or as encoded video segments that are rotated on every save.
package camera

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Mode selects how a stream is persisted.
type Mode int

const (
	ModeFrame Mode = iota
	ModeVideo
)

func (m Mode) String() string {
	if m == ModeVideo {
		return "video"
	}

	return "frame"
}

// ParseMode accepts "frame" or "video".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "frame":
		return ModeFrame, nil
	case "video":
		return ModeVideo, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// StreamKind names a camera stream; it is used in channel and file names.
type StreamKind string

const (
	Color StreamKind = "rgb"
	Depth StreamKind = "depth"
)

// Dimensions is a frame size in pixels.
type Dimensions struct {
	Width  int `json:"width" yaml:"width" cbor:"width"`
	Height int `json:"height" yaml:"height" cbor:"height"`
}

// Metadata is the static description of the available cameras.
type Metadata struct {
	RGB        []string
	RGBD       []string
	Dimensions map[string]Dimensions
}

// Bridge gives access to the newest frames of every camera.
type Bridge interface {
	Metadata() Metadata
	ColorFrame(name string) (image.Image, error)
	DepthFrame(name string) (*DepthFrame, error)
}

// DepthFrame is a single-channel depth image in sensor units.
type DepthFrame struct {
	Width  int       `cbor:"width"`
	Height int       `cbor:"height"`
	Pix    []float32 `cbor:"pix"`
}

// Scaled returns a copy of d with every value multiplied by factor.
func (d *DepthFrame) Scaled(factor float64) *DepthFrame {
	out := &DepthFrame{Width: d.Width, Height: d.Height, Pix: make([]float32, len(d.Pix))}
	for i, v := range d.Pix {
		out.Pix[i] = float32(float64(v) * factor)
	}

	return out
}

func (d *DepthFrame) at(x, y int) float64 {
	i := y*d.Width + x
	if i < 0 || i >= len(d.Pix) {
		return 0
	}

	return float64(d.Pix[i])
}

func saturate(v, limit float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}

	return math.Min(math.Round(v), limit)
}

// Gray16 converts the frame to a 16-bit image, saturating out-of-range
// values.
func (d *DepthFrame) Gray16() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, d.Width, d.Height))

	for y := 0; y < d.Height; y++ {
		for x := 0; x < d.Width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(saturate(d.at(x, y), math.MaxUint16))})
		}
	}

	return img
}

// Gray8 converts the frame to an 8-bit image. Precision is lost for values
// above 255.
func (d *DepthFrame) Gray8() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, d.Width, d.Height))

	for y := 0; y < d.Height; y++ {
		for x := 0; x < d.Width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(saturate(d.at(x, y), math.MaxUint8))})
		}
	}

	return img
}
