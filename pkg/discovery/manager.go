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

// Package discovery connects configured external signal streams once their
// publishers appear and drains them into the telemetry store.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/carverauto/robotlogger/pkg/clock"
	"github.com/carverauto/robotlogger/pkg/codec"
	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/schema"
	"github.com/carverauto/robotlogger/pkg/telemetry"
	"github.com/carverauto/robotlogger/pkg/transport"
)

// DefaultPeriod is how often unconnected signals are probed.
const DefaultPeriod = time.Second

// Manager owns the configured signals. Discovery passes run on their own
// worker; Drain is called from the sampling loop.
type Manager struct {
	log     logger.Logger
	clock   clock.Clock
	ns      transport.Namespace
	period  time.Duration
	signals []*Signal
	worker  *clock.Worker

	misses          atomic.Uint64
	connectFailures atomic.Uint64
	rejected        atomic.Uint64
}

// NewManager returns a manager without signals. A non-positive period uses
// DefaultPeriod.
func NewManager(log logger.Logger, clk clock.Clock, ns transport.Namespace, period time.Duration) *Manager {
	if period <= 0 {
		period = DefaultPeriod
	}

	if clk == nil {
		clk = clock.Real()
	}

	return &Manager{
		log:    log,
		clock:  clk,
		ns:     ns,
		period: period,
	}
}

// Setup validates the signal list and declares a local endpoint for each
// signal. Nothing is connected yet.
func (m *Manager) Setup(groups, vectors []SignalConfig) error {
	var errs []error

	for _, cfg := range groups {
		errs = append(errs, cfg.Validate())
	}

	for _, cfg := range vectors {
		errs = append(errs, cfg.Validate())
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	add := func(cfg SignalConfig, kind Kind) error {
		ep, err := m.ns.Declare(cfg.Local)
		if err != nil {
			return fmt.Errorf("failed to declare %s: %w", cfg.Local, err)
		}

		sig := newSignal(cfg, kind)
		sig.endpoint = ep
		m.signals = append(m.signals, sig)

		return nil
	}

	for _, cfg := range groups {
		if err := add(cfg, KindGroup); err != nil {
			return err
		}
	}

	for _, cfg := range vectors {
		if err := add(cfg, KindVector); err != nil {
			return err
		}
	}

	m.log.Info().Int("groups", len(groups)).Int("vectors", len(vectors)).Msg("Signal discovery configured")

	return nil
}

// Signals returns the managed signals in configuration order.
func (m *Manager) Signals() []*Signal {
	return slices.Clone(m.signals)
}

// Pass probes every unconnected signal and connects the ones whose remote
// exists. Failures are retried on the next pass. A pass is bounded by the
// discovery period. It returns the number of signals connected by this pass.
// Passes must not run concurrently with each other.
func (m *Manager) Pass(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, m.period)
	defer cancel()

	connected := 0

	for _, sig := range m.signals {
		if m.tryConnect(ctx, sig) {
			connected++
		}
	}

	return connected
}

// tryConnect holds no signal lock while talking to the namespace, so the
// sampling loop never waits on namespace I/O.
func (m *Manager) tryConnect(ctx context.Context, sig *Signal) bool {
	if sig.connected.Load() {
		return false
	}

	if !m.ns.Exists(ctx, sig.remote) {
		m.misses.Add(1)

		return false
	}

	if err := m.ns.Connect(ctx, sig.remote, sig.local, sig.carrier); err != nil {
		m.connectFailures.Add(1)
		m.log.Debug().Err(err).Str("remote", sig.remote).Msg("Signal connect failed, will retry")

		return false
	}

	sig.connected.Store(true)

	m.log.Info().
		Str("remote", sig.remote).
		Str("local", sig.local).
		Str("carrier", string(sig.carrier)).
		Msg("Signal connected")

	return true
}

// Drain reads the newest message of every signal and pushes it to w with
// timestamp now. Older queued messages are discarded.
func (m *Manager) Drain(w telemetry.Writer, now float64) {
	for _, sig := range m.signals {
		m.drainSignal(w, sig, now)
	}
}

func (m *Manager) drainSignal(w telemetry.Writer, sig *Signal, now float64) {
	if !sig.connected.Load() {
		return
	}

	sig.mu.Lock()
	defer sig.mu.Unlock()

	msg, ok := transport.ReceiveLatest(sig.endpoint)
	if !ok {
		return
	}

	var err error

	switch sig.kind {
	case KindGroup:
		err = m.pushGroup(w, sig, msg, now)
	case KindVector:
		err = m.pushVector(w, sig, msg, now)
	}

	if err != nil {
		m.rejected.Add(1)
		m.log.Debug().Err(err).Str("signal", sig.display).Msg("Dropped signal message")
	}
}

func (m *Manager) pushGroup(w telemetry.Writer, sig *Signal, msg []byte, now float64) error {
	var coll transport.VectorsCollection
	if err := codec.Unmarshal(msg, &coll); err != nil {
		return fmt.Errorf("%w: %w", errMalformedCollection, err)
	}

	keys := make([]string, 0, len(coll.Vectors))
	for key := range coll.Vectors {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	if !sig.seen {
		for _, key := range keys {
			ch := schema.Channel{Name: schema.Join(sig.display, key), Length: len(coll.Vectors[key])}
			if err := w.AddChannel(ch); err != nil {
				return err
			}
		}

		sig.seen = true
	}

	var errs []error

	for _, key := range keys {
		errs = append(errs, pushOrRegister(w, schema.Join(sig.display, key), coll.Vectors[key], now))
	}

	return errors.Join(errs...)
}

func (m *Manager) pushVector(w telemetry.Writer, sig *Signal, msg []byte, now float64) error {
	var vec transport.Vector
	if err := codec.Unmarshal(msg, &vec); err != nil {
		return fmt.Errorf("%w: %w", errMalformedVector, err)
	}

	if !sig.seen {
		if err := w.AddChannel(schema.Channel{Name: sig.display, Length: len(vec.Values)}); err != nil {
			return err
		}

		sig.seen = true
	}

	return w.Push(sig.display, now, vec.Values)
}

// pushOrRegister pushes values, registering the channel first when a
// sub-vector appears after the first message.
func pushOrRegister(w telemetry.Writer, name string, values []float64, now float64) error {
	err := w.Push(name, now, values)
	if !errors.Is(err, telemetry.ErrUnknownChannel) {
		return err
	}

	if err := w.AddChannel(schema.Channel{Name: name, Length: len(values)}); err != nil {
		return err
	}

	return w.Push(name, now, values)
}

// Start runs discovery passes every period until Stop.
func (m *Manager) Start() error {
	w, err := clock.NewWorker("signal-discovery", m.clock, m.period)
	if err != nil {
		return err
	}

	w.OnOverrun(func(late time.Duration) {
		m.log.Info().Dur("late", late).Msg("Signal discovery pass overran its period")
	})

	m.worker = w

	return w.Start(func(time.Time) {
		m.Pass(context.Background())
	})
}

// Stop stops the discovery worker. Connected signals keep receiving.
func (m *Manager) Stop() {
	if m.worker != nil {
		m.worker.Stop()
	}
}

// Close releases every local endpoint.
func (m *Manager) Close() error {
	var errs []error

	for _, sig := range m.signals {
		sig.mu.Lock()
		if sig.endpoint != nil {
			errs = append(errs, sig.endpoint.Close())
		}
		sig.mu.Unlock()
	}

	return errors.Join(errs...)
}

// Misses returns how many probes found no remote.
func (m *Manager) Misses() uint64 { return m.misses.Load() }

// ConnectFailures returns how many connection attempts failed.
func (m *Manager) ConnectFailures() uint64 { return m.connectFailures.Load() }

// Rejected returns how many messages could not be decoded or stored.
func (m *Manager) Rejected() uint64 { return m.rejected.Load() }
