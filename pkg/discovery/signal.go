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

package discovery

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/carverauto/robotlogger/pkg/transport"
)

// Kind is the payload shape of a signal.
type Kind int

const (
	// KindGroup signals carry named sub-vectors (transport.VectorsCollection).
	KindGroup Kind = iota
	// KindVector signals carry one vector (transport.Vector).
	KindVector
)

func (k Kind) String() string {
	if k == KindGroup {
		return "group"
	}

	return "vector"
}

// State is the connection state of a signal. It only moves forward.
type State int

const (
	Unconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}

	return "unconnected"
}

// SignalConfig describes one external stream to record.
type SignalConfig struct {
	Local       string `json:"local" yaml:"local"`
	Remote      string `json:"remote" yaml:"remote"`
	Carrier     string `json:"carrier" yaml:"carrier"`
	DisplayName string `json:"signal_name" yaml:"signal_name"`
}

// Validate checks that every field is set and the carrier is known.
func (c SignalConfig) Validate() error {
	var errs []error

	if c.Local == "" {
		errs = append(errs, fmt.Errorf("%w: local endpoint is required", errInvalidSignal))
	}

	if c.Remote == "" {
		errs = append(errs, fmt.Errorf("%w: remote endpoint is required", errInvalidSignal))
	}

	if c.DisplayName == "" {
		errs = append(errs, fmt.Errorf("%w: signal_name is required", errInvalidSignal))
	}

	if _, err := transport.ParseKind(c.Carrier); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", errInvalidSignal, err))
	}

	return errors.Join(errs...)
}

// Signal is a discovered external stream. Identity fields never change after
// construction. The connected flag is set once by the discovery worker and
// read lock-free by the sampling loop; seen and the endpoint are guarded by
// the signal lock.
type Signal struct {
	local     string
	remote    string
	carrier   transport.Kind
	display   string
	kind      Kind
	connected atomic.Bool

	mu       sync.Mutex
	seen     bool
	endpoint transport.Endpoint
}

func newSignal(cfg SignalConfig, kind Kind) *Signal {
	return &Signal{
		local:   cfg.Local,
		remote:  cfg.Remote,
		carrier: transport.Kind(cfg.Carrier),
		display: cfg.DisplayName,
		kind:    kind,
	}
}

func (s *Signal) Local() string           { return s.local }
func (s *Signal) Remote() string          { return s.remote }
func (s *Signal) Carrier() transport.Kind { return s.carrier }
func (s *Signal) DisplayName() string     { return s.display }
func (s *Signal) Kind() Kind              { return s.kind }

func (s *Signal) State() State {
	if s.connected.Load() {
		return Connected
	}

	return Unconnected
}

// Seen reports whether a first message has registered the signal channels.
func (s *Signal) Seen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.seen
}
