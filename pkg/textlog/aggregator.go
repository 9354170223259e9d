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

// Package textlog discovers remote text-log publishers, routes them into a
// single collector endpoint and records each entry under its process
// identity.
package textlog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/robotlogger/pkg/clock"
	"github.com/carverauto/robotlogger/pkg/codec"
	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/schema"
	"github.com/carverauto/robotlogger/pkg/telemetry"
	"github.com/carverauto/robotlogger/pkg/transport"
)

const (
	DefaultPeriod    = 2 * time.Second
	DefaultPrefix    = "/log/"
	DefaultCollector = "/robot-logger/text_logging:i"
)

var errNotOpen = errors.New("text log collector is not open")

// Config selects which publishers are aggregated.
type Config struct {
	Collector string        `json:"collector" yaml:"collector"`
	Prefix    string        `json:"prefix" yaml:"prefix"`
	Subnames  []string      `json:"subnames" yaml:"subnames"`
	Period    time.Duration `json:"-" yaml:"-"`
}

// Aggregator connects every matching publisher to the collector endpoint
// with the lossy transport. A publisher is attempted at most once.
type Aggregator struct {
	log   logger.Logger
	clock clock.Clock
	ns    transport.Namespace
	cfg   Config

	endpoint transport.Endpoint
	worker   *clock.Worker

	mu   sync.Mutex
	seen map[string]struct{}

	// identities is only touched by Drain, which runs on the sampling loop.
	identities map[string]struct{}

	connectFailures atomic.Uint64
	malformed       atomic.Uint64
}

func NewAggregator(log logger.Logger, clk clock.Clock, ns transport.Namespace, cfg Config) *Aggregator {
	if cfg.Collector == "" {
		cfg.Collector = DefaultCollector
	}

	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}

	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}

	if clk == nil {
		clk = clock.Real()
	}

	return &Aggregator{
		log:        log,
		clock:      clk,
		ns:         ns,
		cfg:        cfg,
		seen:       make(map[string]struct{}),
		identities: make(map[string]struct{}),
	}
}

// Open declares the collector endpoint.
func (a *Aggregator) Open() error {
	ep, err := a.ns.Declare(a.cfg.Collector)
	if err != nil {
		return err
	}

	a.endpoint = ep

	return nil
}

func (a *Aggregator) matches(name string) bool {
	if !strings.HasPrefix(name, a.cfg.Prefix) {
		return false
	}

	if len(a.cfg.Subnames) == 0 {
		return true
	}

	for _, sub := range a.cfg.Subnames {
		if strings.Contains(name, sub) {
			return true
		}
	}

	return false
}

// Pass lists the namespace and connects new matching publishers. A name is
// recorded before connecting, so a failed connection is not retried. It
// returns the number of publishers attempted.
func (a *Aggregator) Pass(ctx context.Context) (int, error) {
	if a.endpoint == nil {
		return 0, errNotOpen
	}

	names, err := a.ns.List(ctx)
	if err != nil {
		return 0, err
	}

	attempted := 0

	for _, name := range names {
		if !a.matches(name) || !a.claim(ctx, name) {
			continue
		}

		attempted++

		if err := a.ns.Connect(ctx, name, a.cfg.Collector, transport.Lossy); err != nil {
			a.connectFailures.Add(1)
			a.log.Warn().Err(err).Str("publisher", name).Msg("Failed to connect text log publisher")

			continue
		}

		a.log.Info().Str("publisher", name).Msg("Text log publisher connected")
	}

	return attempted, nil
}

// claim records name in the seen-set and reports whether it should be
// connected. Names that vanished between listing and probing are left
// unrecorded.
func (a *Aggregator) claim(ctx context.Context, name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.seen[name]; ok {
		return false
	}

	if !a.ns.Exists(ctx, name) {
		return false
	}

	a.seen[name] = struct{}{}

	return true
}

// Identity returns the channel name of an entry.
func Identity(e *transport.TextLogEntry) string {
	return schema.SanitizeKey(schema.Join(e.System, e.Component, e.Process, "p"+e.PID))
}

// Drain decodes every queued entry and pushes it as a record stamped now.
// Malformed entries are dropped. It returns the number of entries stored.
func (a *Aggregator) Drain(w telemetry.Writer, now float64) int {
	if a.endpoint == nil {
		return 0
	}

	stored := 0

	for {
		msg, ok := a.endpoint.Receive()
		if !ok {
			return stored
		}

		var entry transport.TextLogEntry
		if err := codec.Unmarshal(msg, &entry); err != nil || !entry.Valid() {
			a.malformed.Add(1)

			continue
		}

		entry.LocalTimestamp = now
		key := Identity(&entry)

		if _, ok := a.identities[key]; !ok {
			if err := w.AddChannel(schema.Channel{Name: key, Length: 1}); err != nil {
				a.malformed.Add(1)
				a.log.Debug().Err(err).Str("channel", key).Msg("Cannot register text log channel")

				continue
			}

			a.identities[key] = struct{}{}
		}

		if err := w.PushRecord(key, now, entry); err != nil {
			a.log.Debug().Err(err).Str("channel", key).Msg("Dropped text log entry")

			continue
		}

		stored++
	}
}

// Start runs aggregation passes every period until Stop.
func (a *Aggregator) Start() error {
	if a.endpoint == nil {
		return errNotOpen
	}

	w, err := clock.NewWorker("text-log-aggregator", a.clock, a.cfg.Period)
	if err != nil {
		return err
	}

	w.OnOverrun(func(late time.Duration) {
		a.log.Info().Dur("late", late).Msg("Text log aggregation overran its period")
	})

	a.worker = w

	return w.Start(func(time.Time) {
		if _, err := a.Pass(context.Background()); err != nil {
			a.log.Warn().Err(err).Msg("Text log discovery pass failed")
		}
	})
}

func (a *Aggregator) Stop() {
	if a.worker != nil {
		a.worker.Stop()
	}
}

// Close releases the collector endpoint.
func (a *Aggregator) Close() error {
	if a.endpoint == nil {
		return nil
	}

	return a.endpoint.Close()
}

// ConnectFailures returns how many publisher connections failed.
func (a *Aggregator) ConnectFailures() uint64 { return a.connectFailures.Load() }

// Malformed returns how many entries were dropped.
func (a *Aggregator) Malformed() uint64 { return a.malformed.Load() }
