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

package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"github.com/icza/mjpeg"
)

const (
	DefaultCodec = "MJPG"
	jpegQuality  = 90
)

// Encoder appends frames to one video file.
type Encoder interface {
	WriteFrame(img image.Image) error
	Close() error
}

// EncoderFactory opens an encoder writing to path.
type EncoderFactory func(path string, size Dimensions, fps float64) (Encoder, error)

// Codec binds a four-character code to a container extension and an
// encoder implementation.
type Codec struct {
	FourCC string
	Ext    string
	Open   EncoderFactory
}

// Codecs is a codec registry keyed by four-character code.
type Codecs map[string]Codec

// DefaultCodecs returns the built-in registry.
func DefaultCodecs() Codecs {
	return Codecs{
		DefaultCodec: {FourCC: DefaultCodec, Ext: ".avi", Open: openMJPEG},
	}
}

// Lookup validates fourcc and returns its codec.
func (c Codecs) Lookup(fourcc string) (Codec, error) {
	if len(fourcc) != 4 {
		return Codec{}, fmt.Errorf("%w: %q must have four characters", ErrInvalidCodec, fourcc)
	}

	codec, ok := c[fourcc]
	if !ok {
		return Codec{}, fmt.Errorf("%w: %q", ErrUnsupportedCodec, fourcc)
	}

	return codec, nil
}

type mjpegEncoder struct {
	aw  mjpeg.AviWriter
	buf bytes.Buffer
}

func openMJPEG(path string, size Dimensions, fps float64) (Encoder, error) {
	rate := int32(math.Max(1, math.Round(fps)))

	aw, err := mjpeg.New(path, int32(size.Width), int32(size.Height), rate)
	if err != nil {
		return nil, fmt.Errorf("open MJPEG writer %s: %w", path, err)
	}

	return &mjpegEncoder{aw: aw}, nil
}

func (e *mjpegEncoder) WriteFrame(img image.Image) error {
	e.buf.Reset()

	if err := jpeg.Encode(&e.buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return err
	}

	return e.aw.AddFrame(e.buf.Bytes())
}

func (e *mjpegEncoder) Close() error {
	return e.aw.Close()
}
