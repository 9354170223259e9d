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

package sensors

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/telemetry"
)

// Miss categories.
const (
	CategoryJointState = "joint_state"
	CategoryMotorState = "motor_state"
	CategoryMotorPWM   = "motor_pwm"
	CategoryPIDs       = "pids"
)

type reading struct {
	category string
	buf      []float64
	read     func(dst []float64) bool
	parts    []part
}

// Sampler reads the enabled categories from a Bridge once per tick and
// pushes them to the telemetry store. Readings that are not available are
// counted per category and skipped.
type Sampler struct {
	log     logger.Logger
	bridge  Bridge
	streams Streams

	readings []reading
	misses   map[string]*atomic.Uint64

	advanceFailures atomic.Uint64
}

func NewSampler(log logger.Logger, bridge Bridge, streams Streams) *Sampler {
	return &Sampler{
		log:     log,
		bridge:  bridge,
		streams: streams,
		misses:  make(map[string]*atomic.Uint64),
	}
}

func (s *Sampler) add(r reading) {
	s.readings = append(s.readings, r)

	if _, ok := s.misses[r.category]; !ok {
		s.misses[r.category] = new(atomic.Uint64)
	}
}

func (s *Sampler) layout() {
	joints := s.bridge.Joints()
	dofs := len(joints)

	jointCategories := s.streams.JointStates || s.streams.MotorStates || s.streams.MotorPWM || s.streams.PIDs
	if jointCategories && dofs == 0 {
		s.log.Warn().Msg("The sensor bridge reports no joints, joint and motor channels are not logged")
	}

	perJoint := func(category, name string, read func([]float64) bool) {
		if dofs == 0 {
			return
		}

		s.add(reading{
			category: category,
			buf:      make([]float64, dofs),
			read:     read,
			parts:    []part{whole(name, joints)},
		})
	}

	if s.streams.JointStates {
		for _, q := range jointQuantities {
			perJoint(CategoryJointState, JointChannel(q), func(dst []float64) bool { return s.bridge.JointState(q, dst) })
		}
	}

	if s.streams.MotorStates {
		for _, q := range motorQuantities {
			perJoint(CategoryMotorState, MotorChannel(q), func(dst []float64) bool { return s.bridge.MotorState(q, dst) })
		}
	}

	if s.streams.MotorPWM {
		perJoint(CategoryMotorPWM, MotorChannel(PWM), func(dst []float64) bool { return s.bridge.MotorState(PWM, dst) })
	}

	if s.streams.PIDs {
		perJoint(CategoryPIDs, PIDChannel, s.bridge.PIDs)
	}

	for _, kind := range Kinds {
		if !s.streams.Enabled(kind) {
			continue
		}

		for _, name := range s.bridge.Sensors(kind) {
			s.add(reading{
				category: string(kind),
				buf:      make([]float64, kind.Size()),
				read:     func(dst []float64) bool { return s.bridge.Measure(kind, name, dst) },
				parts:    sensorParts(kind, name),
			})
		}
	}
}

// Setup queries the bridge for its joints and sensors and creates every
// channel. It must be called once, before the first Sample.
func (s *Sampler) Setup(w telemetry.Writer) error {
	s.layout()

	for _, r := range s.readings {
		for _, p := range r.parts {
			if err := w.AddChannel(p.channel); err != nil {
				return fmt.Errorf("failed to add channel %s: %w", p.channel.Name, err)
			}
		}
	}

	s.log.Info().Int("readings", len(s.readings)).Msg("Sensor channels created")

	return nil
}

// Advance latches fresh measurements. Failures are logged and counted;
// the tick goes on with whatever the bridge still holds.
func (s *Sampler) Advance() error {
	if err := s.bridge.Advance(); err != nil {
		s.advanceFailures.Add(1)
		s.log.Error().Err(err).Msg("Could not advance sensor bridge")

		return err
	}

	return nil
}

// Sample pushes every available reading stamped now.
func (s *Sampler) Sample(w telemetry.Writer, now float64) {
	for i := range s.readings {
		r := &s.readings[i]

		if !r.read(r.buf) {
			s.misses[r.category].Add(1)

			continue
		}

		for _, p := range r.parts {
			if err := w.Push(p.channel.Name, now, r.buf[p.from:p.to]); err != nil {
				s.log.Debug().Err(err).Str("channel", p.channel.Name).Msg("Unable to push sensor sample")
			}
		}
	}
}

// Categories returns the miss categories in use, sorted.
func (s *Sampler) Categories() []string {
	out := make([]string, 0, len(s.misses))
	for c := range s.misses {
		out = append(out, c)
	}

	slices.Sort(out)

	return out
}

// Misses returns the number of unavailable readings of category.
func (s *Sampler) Misses(category string) uint64 {
	if c, ok := s.misses[category]; ok {
		return c.Load()
	}

	return 0
}

func (s *Sampler) AdvanceFailures() uint64 { return s.advanceFailures.Load() }
