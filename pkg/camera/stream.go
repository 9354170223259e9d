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
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

var (
	ErrInvalidRate      = errors.New("camera rate must be positive")
	ErrInvalidMode      = errors.New("invalid save mode")
	ErrInvalidCodec     = errors.New("invalid video codec")
	ErrUnsupportedCodec = errors.New("unsupported video codec")
	ErrMissingSize      = errors.New("frame dimensions are required for video recording")
	// ErrFinalize wraps failures closing or renaming a finished segment.
	ErrFinalize = errors.New("failed to finalize recording")
	// ErrReopen wraps failures opening the next segment.
	ErrReopen = errors.New("failed to reopen recording")

	errNoOutput  = errors.New("stream has no open output")
	errFinalized = errors.New("stream was finalized")
)

// Output is where a stream currently writes. It is either a FrameOutput or
// a VideoOutput.
type Output interface {
	// WorkingPath is the file or folder being written.
	WorkingPath() string
	isOutput()
}

// FrameOutput writes one PNG per iteration into a folder.
type FrameOutput struct {
	Dir string
}

func (o *FrameOutput) WorkingPath() string { return o.Dir }
func (*FrameOutput) isOutput()             {}

// VideoOutput appends frames to an open encoder.
type VideoOutput struct {
	Path    string
	Encoder Encoder
}

func (o *VideoOutput) WorkingPath() string { return o.Path }
func (*VideoOutput) isOutput()             {}

// Stream is one recorded stream of a camera. Writes and rotation are
// serialized by the stream lock.
type Stream struct {
	camera string
	kind   StreamKind
	mode   Mode
	dir    string
	codec  Codec
	size   Dimensions
	fps    float64

	mu     sync.Mutex
	output Output
	// final is set by a rotation without reopen
	final bool
	// stranded holds working paths whose rename failed; they are never
	// reused for a new segment
	stranded map[string]struct{}
}

func newStream(camera string, kind StreamKind, mode Mode, cfg *Config) *Stream {
	return &Stream{
		camera: camera,
		kind:   kind,
		mode:   mode,
		dir:    cfg.Dir,
		codec:  cfg.Codec,
		size:   cfg.Size,
		fps:    cfg.FPS,
	}
}

func (s *Stream) Kind() StreamKind { return s.kind }
func (s *Stream) Mode() Mode       { return s.mode }

// Channel is the telemetry channel frame timestamps are pushed to.
func (s *Stream) Channel() string {
	return "camera::" + s.camera + "::" + string(s.kind)
}

func (s *Stream) baseName() string {
	return s.camera + "_" + string(s.kind)
}

func (s *Stream) ext() string {
	if s.mode == ModeVideo {
		return s.codec.Ext
	}

	return ""
}

// workingPath is the name of the segment being recorded. It is
// output_<camera>_<kind>, with a numeric suffix while a segment that could
// not be finalized still occupies that name.
func (s *Stream) workingPath() string {
	path := filepath.Join(s.dir, "output_"+s.baseName()+s.ext())

	for n := 1; ; n++ {
		if _, taken := s.stranded[path]; !taken {
			return path
		}

		path = filepath.Join(s.dir, "output_"+s.baseName()+"_"+strconv.Itoa(n)+s.ext())
	}
}

// FinalPath is the name a segment gets when rotated with prefix.
func (s *Stream) FinalPath(prefix string) string {
	return prefix + "_" + s.baseName() + s.ext()
}

// Output returns the current output, nil after a final rotation.
func (s *Stream) Output() Output {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.output
}

func (s *Stream) openLocked() error {
	path := s.workingPath()

	if s.mode == ModeVideo {
		enc, err := s.codec.Open(path, s.size, s.fps)
		if err != nil {
			return err
		}

		s.output = &VideoOutput{Path: path, Encoder: enc}

		return nil
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}

	s.output = &FrameOutput{Dir: path}

	return nil
}

func (s *Stream) open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.openLocked()
}

// write persists img as frame index. Frame outputs get img_<index>.png.
func (s *Stream) write(img image.Image, index uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch out := s.output.(type) {
	case *VideoOutput:
		return out.Encoder.WriteFrame(img)
	case *FrameOutput:
		return writePNG(filepath.Join(out.Dir, "img_"+strconv.FormatUint(index, 10)+".png"), img)
	default:
		if s.final {
			return errFinalized
		}

		return errNoOutput
	}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := png.Encode(f, img); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}

// rotate finalizes the current segment, renames it after prefix and, when
// reopen is set, starts a new segment under the working name. A stream left
// without output by an earlier failure is reopened.
func (s *Stream) rotate(prefix string, reopen bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !reopen {
		s.final = true
	}

	if s.output == nil {
		if !reopen {
			return fmt.Errorf("%w: %s: %w", ErrFinalize, s.baseName(), errNoOutput)
		}

		if err := s.openLocked(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrReopen, s.baseName(), err)
		}

		return nil
	}

	var closeErr error
	if out, ok := s.output.(*VideoOutput); ok {
		closeErr = out.Encoder.Close()
	}

	working := s.output.WorkingPath()
	s.output = nil

	var errs []error

	// a segment that could not be renamed stays under the working name and
	// must not be overwritten by a reopen
	if err := os.Rename(working, s.FinalPath(prefix)); err != nil {
		if s.stranded == nil {
			s.stranded = make(map[string]struct{})
		}

		s.stranded[working] = struct{}{}
		errs = append(errs, fmt.Errorf("%w: %s: segment left at %s: %w", ErrFinalize, s.baseName(), working, errors.Join(closeErr, err)))
	} else if closeErr != nil {
		errs = append(errs, fmt.Errorf("%w: %s: %w", ErrFinalize, s.baseName(), closeErr))
	}

	if reopen {
		if err := s.openLocked(); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrReopen, s.baseName(), err))
		}
	}

	return errors.Join(errs...)
}

// close releases an encoder left open without renaming it.
func (s *Stream) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, ok := s.output.(*VideoOutput)
	s.output = nil

	if !ok {
		return nil
	}

	return out.Encoder.Close()
}
