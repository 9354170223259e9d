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

// Package telemetry defines the buffered telemetry store the recorder pushes
// samples into, and a file-backed implementation of it.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/carverauto/robotlogger/pkg/schema"
)

var (
	ErrNotConfigured     = errors.New("telemetry store is not configured")
	ErrAlreadyConfigured = errors.New("telemetry store is already configured")
	ErrInvalidConfig     = errors.New("invalid telemetry store configuration")
	ErrInvalidCapacity   = errors.New("buffer capacity must be at least one sample")
	ErrUnknownChannel    = errors.New("unknown channel")
	ErrLengthMismatch    = errors.New("sample length does not match channel length")
	ErrClosed            = errors.New("telemetry store is closed")
)

// SaveMethod tells the save callback why a flush happened.
type SaveMethod int

const (
	// SavePeriodic is a flush triggered by the flush period. Recording
	// continues afterwards.
	SavePeriodic SaveMethod = iota
	// SaveLast is the final flush on close.
	SaveLast
)

func (m SaveMethod) String() string {
	switch m {
	case SavePeriodic:
		return "periodic"
	case SaveLast:
		return "last"
	default:
		return "unknown"
	}
}

// Sample is one timestamped observation of a channel. Timestamp is in
// seconds since the epoch of the clock that produced it.
type Sample struct {
	Channel   string
	Timestamp float64
	Values    []float64
	Record    any
}

const DefaultFileIndexing = "2006_01_02_15_04_05"

// Config sizes the buffers and names the flushed files.
type Config struct {
	SamplingPeriod time.Duration
	FlushPeriod    time.Duration
	OutputDir      string
	FilePrefix     string
	// FileIndexing is a time layout appended to FilePrefix.
	FileIndexing string
	RobotName    string
}

// SaveCallback runs after every flush. prefix is the path of the data file
// without extension; companion artifacts are named after it.
type SaveCallback func(ctx context.Context, prefix string, method SaveMethod) error

// Writer is the push side of a store.
type Writer interface {
	AddChannel(ch schema.Channel) error
	Push(channel string, timestamp float64, values []float64) error
	PushRecord(channel string, timestamp float64, record any) error
}

// Store buffers samples and flushes them to durable storage every flush
// period and once more on Close.
type Store interface {
	Writer
	Configure(cfg Config) error
	// Batch runs fn holding the store-wide lock, so all pushes inside it
	// land in the same flush interval.
	Batch(fn func(w Writer) error) error
	SetSaveCallback(cb SaveCallback)
	Flush(ctx context.Context, method SaveMethod) (string, error)
	Start() error
	Close(ctx context.Context) error
}
