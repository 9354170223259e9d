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

// Snapshot is one set of measurements as published by the robot. Joint and
// motor readings are keyed by quantity, sensors by kind then name.
type Snapshot struct {
	Timestamp float64                       `cbor:"timestamp"`
	Joints    map[Quantity][]float64        `cbor:"joints,omitempty"`
	Motors    map[Quantity][]float64        `cbor:"motors,omitempty"`
	PIDs      []float64                     `cbor:"pids,omitempty"`
	Sensors   map[Kind]map[string][]float64 `cbor:"sensors,omitempty"`
}

func fill(dst, src []float64) bool {
	if len(src) != len(dst) {
		return false
	}

	copy(dst, src)

	return true
}

// JointState copies the joint reading q into dst.
func (s *Snapshot) JointState(q Quantity, dst []float64) bool {
	if s == nil {
		return false
	}

	return fill(dst, s.Joints[q])
}

// MotorState copies the motor reading q into dst.
func (s *Snapshot) MotorState(q Quantity, dst []float64) bool {
	if s == nil {
		return false
	}

	return fill(dst, s.Motors[q])
}

func (s *Snapshot) PIDValues(dst []float64) bool {
	if s == nil {
		return false
	}

	return fill(dst, s.PIDs)
}

// Measure copies the measurement of the named sensor into dst.
func (s *Snapshot) Measure(kind Kind, name string, dst []float64) bool {
	if s == nil {
		return false
	}

	return fill(dst, s.Sensors[kind][name])
}
