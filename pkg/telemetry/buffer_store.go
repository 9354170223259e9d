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

package telemetry

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/robotlogger/pkg/clock"
	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/schema"
)

// pollSlice bounds how long the flush loop sleeps before re-checking its
// run flag.
const pollSlice = 100 * time.Millisecond

const defaultFilePrefix = "robot_logger_device"

type series struct {
	channel schema.Channel
	buf     *ring
}

// BufferStore keeps one ring buffer per channel and writes them to a
// zstd-compressed CBOR file on every flush.
type BufferStore struct {
	log      logger.Logger
	clock    clock.Clock
	registry *schema.Registry

	mu         sync.Mutex
	cfg        Config
	capacity   int
	configured bool
	closed     bool
	series     map[string]*series
	since      float64
	callback   SaveCallback

	// flushMu serializes flushes so data files and rotations stay ordered.
	flushMu sync.Mutex

	running atomic.Bool
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

var _ Store = (*BufferStore)(nil)

// NewBufferStore returns an unconfigured store. Channels are recorded in
// registry, which may be shared with readers of the schema.
func NewBufferStore(log logger.Logger, clk clock.Clock, registry *schema.Registry) *BufferStore {
	if clk == nil {
		clk = clock.Real()
	}

	if registry == nil {
		registry = schema.NewRegistry()
	}

	return &BufferStore{
		log:      log,
		clock:    clk,
		registry: registry,
		series:   make(map[string]*series),
	}
}

// Registry returns the channel registry backing the store.
func (s *BufferStore) Registry() *schema.Registry {
	return s.registry
}

func (s *BufferStore) Configure(cfg Config) error {
	if cfg.SamplingPeriod <= 0 || cfg.FlushPeriod <= 0 {
		return fmt.Errorf("%w: sampling and flush periods must be positive", ErrInvalidConfig)
	}

	capacity, err := Capacity(cfg.SamplingPeriod, cfg.FlushPeriod)
	if err != nil {
		return err
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}

	if cfg.FilePrefix == "" {
		cfg.FilePrefix = defaultFilePrefix
	}

	if cfg.FileIndexing == "" {
		cfg.FileIndexing = DefaultFileIndexing
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.configured {
		return ErrAlreadyConfigured
	}

	s.cfg = cfg
	s.capacity = capacity
	s.configured = true
	s.since = clock.Seconds(s.clock.Now())

	s.log.Info().
		Int("capacity", capacity).
		Dur("flush_period", cfg.FlushPeriod).
		Str("output_dir", cfg.OutputDir).
		Msg("Telemetry store configured")

	return nil
}

// Capacity returns the per-channel buffer size.
func (s *BufferStore) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.capacity
}

func (s *BufferStore) SetSaveCallback(cb SaveCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callback = cb
}

func (s *BufferStore) AddChannel(ch schema.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addChannelLocked(ch)
}

func (s *BufferStore) Push(channel string, timestamp float64, values []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pushLocked(channel, entry{timestamp: timestamp, values: slices.Clone(values)}, len(values))
}

// PushRecord stores a structured record in a length-1 channel.
func (s *BufferStore) PushRecord(channel string, timestamp float64, record any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pushLocked(channel, entry{timestamp: timestamp, record: record}, 1)
}

func (s *BufferStore) Batch(fn func(w Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(lockedWriter{s: s})
}

// Len returns the number of buffered samples of a channel.
func (s *BufferStore) Len(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sr, ok := s.series[channel]; ok {
		return sr.buf.len()
	}

	return 0
}

// Dropped returns the number of samples overwritten before being flushed.
func (s *BufferStore) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *BufferStore) addChannelLocked(ch schema.Channel) error {
	if !s.configured {
		return ErrNotConfigured
	}

	if s.closed {
		return ErrClosed
	}

	if _, err := s.registry.Register(ch); err != nil {
		return err
	}

	if _, ok := s.series[ch.Name]; !ok {
		registered, _ := s.registry.Lookup(ch.Name)
		s.series[ch.Name] = &series{channel: registered, buf: newRing(s.capacity)}
	}

	return nil
}

func (s *BufferStore) pushLocked(channel string, e entry, length int) error {
	if !s.configured {
		return ErrNotConfigured
	}

	if s.closed {
		return ErrClosed
	}

	sr, ok := s.series[channel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}

	if sr.channel.Length != length {
		return fmt.Errorf("%w: %s expects %d, got %d", ErrLengthMismatch, channel, sr.channel.Length, length)
	}

	if sr.buf.push(e) {
		s.dropped.Add(1)
	}

	return nil
}

// Flush writes everything buffered so far to a new data file and runs the
// save callback with the file prefix. Pushes are excluded only while the
// buffers are swapped. A callback error is returned after the data file has
// been written. After a SaveLast flush the store rejects further pushes.
func (s *BufferStore) Flush(ctx context.Context, method SaveMethod) (string, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	doc, cfg, cb, err := s.swap(method)
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	prefix := filepath.Join(cfg.OutputDir, cfg.FilePrefix+"_"+now.Format(cfg.FileIndexing))

	prefix, err = writeDataFile(prefix, doc)
	if err != nil {
		return "", err
	}

	s.log.Debug().
		Str("prefix", prefix).
		Str("method", method.String()).
		Int("channels", len(doc.Channels)).
		Msg("Telemetry flushed")

	if cb == nil {
		return prefix, nil
	}

	if err := cb(ctx, prefix, method); err != nil {
		return prefix, fmt.Errorf("save callback for %s: %w", prefix, err)
	}

	return prefix, nil
}

func (s *BufferStore) swap(method SaveMethod) (*Document, Config, SaveCallback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.configured {
		return nil, Config{}, nil, ErrNotConfigured
	}

	if s.closed {
		return nil, Config{}, nil, ErrClosed
	}

	end := clock.Seconds(s.clock.Now())
	doc := &Document{
		RobotName: s.cfg.RobotName,
		Method:    method.String(),
		Start:     s.since,
		End:       end,
		Channels:  make([]ChannelRecord, 0, len(s.series)),
	}

	for _, ch := range s.registry.Channels() {
		sr, ok := s.series[ch.Name]
		if !ok {
			continue
		}

		old := sr.buf
		sr.buf = newRing(s.capacity)

		doc.Channels = append(doc.Channels, toRecord(sr.channel, old.entries()))
	}

	s.since = end

	if method == SaveLast {
		s.closed = true
	}

	return doc, s.cfg, s.callback, nil
}

func toRecord(ch schema.Channel, entries []entry) ChannelRecord {
	rec := ChannelRecord{
		Name:       ch.Name,
		Length:     ch.Length,
		Labels:     ch.Labels,
		Timestamps: make([]float64, 0, len(entries)),
	}

	for _, e := range entries {
		rec.Timestamps = append(rec.Timestamps, e.timestamp)

		if e.record != nil {
			rec.Records = append(rec.Records, e.record)
		} else {
			rec.Values = append(rec.Values, e.values)
		}
	}

	return rec
}

// Start launches the periodic flush loop. The first flush happens one flush
// period after Start.
func (s *BufferStore) Start() error {
	s.mu.Lock()
	configured, closed, period := s.configured, s.closed, s.cfg.FlushPeriod
	s.mu.Unlock()

	if !configured {
		return ErrNotConfigured
	}

	if closed {
		return ErrClosed
	}

	if !s.running.CompareAndSwap(false, true) {
		return nil
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.flushLoop(period)
	}()

	return nil
}

func (s *BufferStore) flushLoop(period time.Duration) {
	schedule := clock.NewSchedule(period)
	last := s.clock.Now()
	wake := schedule.Next(last)

	for s.running.Load() {
		now := s.clock.Now()

		if now.Before(last) {
			wake = schedule.Next(now)
		}

		last = now

		if now.Before(wake) {
			s.clock.SleepFor(min(wake.Sub(now), pollSlice))

			continue
		}

		if _, err := s.Flush(context.Background(), SavePeriodic); err != nil {
			s.log.Error().Err(err).Msg("Periodic telemetry flush failed")
		}

		wake = schedule.Next(now)
	}
}

// Close stops the flush loop and performs the final flush.
func (s *BufferStore) Close(ctx context.Context) error {
	s.running.Store(false)
	s.wg.Wait()

	s.mu.Lock()
	if s.closed || !s.configured {
		s.mu.Unlock()

		return nil
	}
	s.mu.Unlock()

	_, err := s.Flush(ctx, SaveLast)

	return err
}

// lockedWriter pushes while the store lock is already held by Batch.
type lockedWriter struct {
	s *BufferStore
}

func (w lockedWriter) AddChannel(ch schema.Channel) error {
	return w.s.addChannelLocked(ch)
}

func (w lockedWriter) Push(channel string, timestamp float64, values []float64) error {
	return w.s.pushLocked(channel, entry{timestamp: timestamp, values: slices.Clone(values)}, len(values))
}

func (w lockedWriter) PushRecord(channel string, timestamp float64, record any) error {
	return w.s.pushLocked(channel, entry{timestamp: timestamp, record: record}, 1)
}
