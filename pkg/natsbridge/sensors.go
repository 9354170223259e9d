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

// Package natsbridge feeds the recorder from robot measurements and camera
// frames published on NATS.
package natsbridge

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/robotlogger/pkg/codec"
	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/sensors"
)

const DefaultSensorSubject = "robotlogger.sensors"

var (
	// ErrNoSnapshot is returned by Advance until the first snapshot arrives.
	ErrNoSnapshot = errors.New("no sensor snapshot received yet")

	errNoConnection = errors.New("nats connection is required")
)

// SensorsConfig describes the robot whose snapshots are received.
type SensorsConfig struct {
	Subject string                    `json:"subject" yaml:"subject"`
	Joints  []string                  `json:"joints" yaml:"joints"`
	Lists   map[sensors.Kind][]string `json:"sensors" yaml:"sensors"`
}

// Sensors is a sensors.Bridge over snapshots received on one subject. The
// newest snapshot is latched by Advance; getters read the latched one.
type Sensors struct {
	cfg SensorsConfig
	log logger.Logger
	sub *nats.Subscription

	incoming atomic.Pointer[sensors.Snapshot]
	current  *sensors.Snapshot

	received       atomic.Uint64
	decodeFailures atomic.Uint64
}

var _ sensors.Bridge = (*Sensors)(nil)

// NewSensors subscribes to the snapshot subject.
func NewSensors(nc *nats.Conn, cfg SensorsConfig, log logger.Logger) (*Sensors, error) {
	if nc == nil {
		return nil, errNoConnection
	}

	if cfg.Subject == "" {
		cfg.Subject = DefaultSensorSubject
	}

	s := &Sensors{cfg: cfg, log: log}

	sub, err := nc.Subscribe(cfg.Subject, s.handle)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", cfg.Subject, err)
	}

	if err := nc.Flush(); err != nil {
		_ = sub.Unsubscribe()

		return nil, fmt.Errorf("failed to flush subscription to %s: %w", cfg.Subject, err)
	}

	s.sub = sub

	return s, nil
}

func (s *Sensors) handle(msg *nats.Msg) {
	var snap sensors.Snapshot
	if err := codec.Unmarshal(msg.Data, &snap); err != nil {
		s.decodeFailures.Add(1)
		s.log.Debug().Err(err).Str("subject", msg.Subject).Msg("Dropping malformed sensor snapshot")

		return
	}

	s.incoming.Store(&snap)
	s.received.Add(1)
}

// Advance latches the newest snapshot received so far.
func (s *Sensors) Advance() error {
	snap := s.incoming.Load()
	if snap == nil {
		return ErrNoSnapshot
	}

	s.current = snap

	return nil
}

func (s *Sensors) Joints() []string { return s.cfg.Joints }

func (s *Sensors) Sensors(kind sensors.Kind) []string { return s.cfg.Lists[kind] }

func (s *Sensors) JointState(q sensors.Quantity, dst []float64) bool {
	return s.current.JointState(q, dst)
}

func (s *Sensors) MotorState(q sensors.Quantity, dst []float64) bool {
	return s.current.MotorState(q, dst)
}

func (s *Sensors) PIDs(dst []float64) bool { return s.current.PIDValues(dst) }

func (s *Sensors) Measure(kind sensors.Kind, name string, dst []float64) bool {
	return s.current.Measure(kind, name, dst)
}

func (s *Sensors) Received() uint64       { return s.received.Load() }
func (s *Sensors) DecodeFailures() uint64 { return s.decodeFailures.Load() }

// Close drops the subscription.
func (s *Sensors) Close() error {
	return s.sub.Unsubscribe()
}

// PublishSnapshot encodes snap and publishes it on subject.
func PublishSnapshot(nc *nats.Conn, subject string, snap *sensors.Snapshot) error {
	data, err := codec.Marshal(snap)
	if err != nil {
		return err
	}

	return nc.Publish(subject, data)
}
