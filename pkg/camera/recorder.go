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
	"sync/atomic"
	"time"

	"github.com/carverauto/robotlogger/pkg/clock"
	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/schema"
	"github.com/carverauto/robotlogger/pkg/telemetry"
)

// Config describes one camera recorder.
type Config struct {
	Name string
	FPS  float64
	// ColorMode applies to every camera; DepthMode only when HasDepth.
	ColorMode  Mode
	HasDepth   bool
	DepthMode  Mode
	DepthScale float64
	// Dir holds the working outputs.
	Dir   string
	Codec Codec
	Size  Dimensions
}

// Recorder samples the frames of one camera on its own worker.
type Recorder struct {
	log    logger.Logger
	clock  clock.Clock
	bridge Bridge
	store  telemetry.Writer
	cfg    Config
	period time.Duration

	color *Stream
	depth *Stream

	// loop-owned state
	index     uint64
	lastColor image.Image
	lastDepth *DepthFrame

	worker *clock.Worker

	fetchFailures atomic.Uint64
	writeFailures atomic.Uint64
	overruns      atomic.Uint64
}

// NewRecorder validates cfg and builds the recorder. Outputs are opened by
// Open.
func NewRecorder(log logger.Logger, clk clock.Clock, bridge Bridge, store telemetry.Writer, cfg Config) (*Recorder, error) {
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("%w: camera %s has rate %v", ErrInvalidRate, cfg.Name, cfg.FPS)
	}

	usesVideo := cfg.ColorMode == ModeVideo || (cfg.HasDepth && cfg.DepthMode == ModeVideo)
	if usesVideo {
		if cfg.Codec.Open == nil {
			return nil, fmt.Errorf("%w: camera %s has no encoder", ErrInvalidCodec, cfg.Name)
		}

		if cfg.Size.Width <= 0 || cfg.Size.Height <= 0 {
			return nil, fmt.Errorf("%w: camera %s", ErrMissingSize, cfg.Name)
		}
	}

	if cfg.DepthScale == 0 {
		cfg.DepthScale = 1
	}

	if clk == nil {
		clk = clock.Real()
	}

	r := &Recorder{
		log:    log,
		clock:  clk,
		bridge: bridge,
		store:  store,
		cfg:    cfg,
		period: time.Duration(float64(time.Second) / cfg.FPS),
	}

	r.color = newStream(cfg.Name, Color, cfg.ColorMode, &r.cfg)
	if cfg.HasDepth {
		r.depth = newStream(cfg.Name, Depth, cfg.DepthMode, &r.cfg)
	}

	return r, nil
}

func (r *Recorder) Name() string          { return r.cfg.Name }
func (r *Recorder) Period() time.Duration { return r.period }

// Streams returns the color stream followed by the depth stream, if any.
func (r *Recorder) Streams() []*Stream {
	if r.depth == nil {
		return []*Stream{r.color}
	}

	return []*Stream{r.color, r.depth}
}

// Open registers the timestamp channels of frame-mode streams and opens
// every working output.
func (r *Recorder) Open() error {
	for _, s := range r.Streams() {
		if s.mode == ModeFrame {
			if err := r.store.AddChannel(schema.Channel{Name: s.Channel(), Length: 1}); err != nil {
				return err
			}
		}

		if err := s.open(); err != nil {
			return fmt.Errorf("open %s output: %w", s.Channel(), err)
		}
	}

	if r.depth != nil && r.depth.mode == ModeVideo {
		r.log.Warn().
			Str("camera", r.cfg.Name).
			Msg("Depth video is stored as 8-bit grayscale; values above 255 saturate")
	}

	return nil
}

// Tick records one iteration at time now.
func (r *Recorder) Tick(now time.Time) {
	ts := clock.Seconds(now)

	if img, err := r.bridge.ColorFrame(r.cfg.Name); err != nil {
		r.fetchFailures.Add(1)
		r.log.Info().Err(err).Str("camera", r.cfg.Name).Msg("Unable to get color frame, reusing the previous one")
	} else {
		r.lastColor = img
	}

	if r.lastColor != nil {
		r.record(r.color, r.lastColor, ts)
	}

	if r.depth != nil {
		if frame, err := r.bridge.DepthFrame(r.cfg.Name); err != nil {
			r.fetchFailures.Add(1)
			r.log.Info().Err(err).Str("camera", r.cfg.Name).Msg("Unable to get depth frame, reusing the previous one")
		} else {
			r.lastDepth = frame.Scaled(r.cfg.DepthScale)
		}

		if r.lastDepth != nil {
			var img image.Image = r.lastDepth.Gray16()
			if r.depth.mode == ModeVideo {
				img = r.lastDepth.Gray8()
			}

			r.record(r.depth, img, ts)
		}
	}

	r.index++
}

func (r *Recorder) record(s *Stream, img image.Image, ts float64) {
	if err := s.write(img, r.index); err != nil {
		if errors.Is(err, errFinalized) {
			return
		}

		r.writeFailures.Add(1)
		r.log.Info().Err(err).Str("stream", s.Channel()).Msg("Unable to write frame")

		return
	}

	if s.mode != ModeFrame {
		return
	}

	if err := r.store.Push(s.Channel(), ts, []float64{ts}); err != nil {
		r.log.Debug().Err(err).Str("stream", s.Channel()).Msg("Unable to push frame timestamp")
	}
}

// Rotate finalizes every stream under prefix, color first. With reopen the
// next segments start immediately. All streams are attempted even if one
// fails.
func (r *Recorder) Rotate(prefix string, reopen bool) error {
	var errs []error

	for _, s := range r.Streams() {
		if err := s.rotate(prefix, reopen); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Start launches the recording worker.
func (r *Recorder) Start() error {
	w, err := clock.NewWorker("camera-"+r.cfg.Name, r.clock, r.period)
	if err != nil {
		return err
	}

	w.OnOverrun(func(late time.Duration) {
		r.overruns.Add(1)
		r.log.Info().Str("camera", r.cfg.Name).Dur("late", late).Msg("Camera worker spent more time than expected")
	})

	r.worker = w

	return w.Start(r.Tick)
}

// Stop stops the worker; outputs stay open for the final rotation.
func (r *Recorder) Stop() {
	if r.worker != nil {
		r.worker.Stop()
	}
}

// Close releases encoders that were not finalized by a rotation.
func (r *Recorder) Close() error {
	var errs []error

	for _, s := range r.Streams() {
		errs = append(errs, s.close())
	}

	return errors.Join(errs...)
}

// Index returns the index the next frame will be written with.
func (r *Recorder) Index() uint64 { return r.index }

func (r *Recorder) FetchFailures() uint64 { return r.fetchFailures.Load() }
func (r *Recorder) WriteFailures() uint64 { return r.writeFailures.Load() }
func (r *Recorder) Overruns() uint64      { return r.overruns.Load() }
