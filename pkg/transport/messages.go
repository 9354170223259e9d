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

package transport

// VectorsCollection is a group signal message: named sub-vectors that are
// recorded as separate channels.
type VectorsCollection struct {
	Vectors map[string][]float64 `cbor:"vectors" json:"vectors"`
}

// Vector is a single-vector signal message.
type Vector struct {
	Values []float64 `cbor:"values" json:"values"`
}

// TextLogEntry is a structured log line published by a remote process.
// System, Component, Process and PID identify the emitting process.
type TextLogEntry struct {
	Level        string  `cbor:"level" json:"level"`
	Text         string  `cbor:"text" json:"text"`
	Filename     string  `cbor:"filename,omitempty" json:"filename,omitempty"`
	Line         int     `cbor:"line,omitempty" json:"line,omitempty"`
	Function     string  `cbor:"function,omitempty" json:"function,omitempty"`
	Hostname     string  `cbor:"hostname,omitempty" json:"hostname,omitempty"`
	ThreadID     string  `cbor:"thread_id,omitempty" json:"thread_id,omitempty"`
	Backtrace    string  `cbor:"backtrace,omitempty" json:"backtrace,omitempty"`
	SystemTime   float64 `cbor:"system_time,omitempty" json:"system_time,omitempty"`
	NetworkTime  float64 `cbor:"network_time,omitempty" json:"network_time,omitempty"`
	ExternalTime float64 `cbor:"external_time,omitempty" json:"external_time,omitempty"`
	System       string  `cbor:"system" json:"system"`
	Component    string  `cbor:"component" json:"component"`
	Process      string  `cbor:"process" json:"process"`
	PID          string  `cbor:"pid" json:"pid"`
	// LocalTimestamp is filled in by the receiver.
	LocalTimestamp float64 `cbor:"local_timestamp,omitempty" json:"local_timestamp,omitempty"`
}

// Valid reports whether the entry carries a complete process identity.
func (e *TextLogEntry) Valid() bool {
	return e.System != "" && e.Component != "" && e.Process != "" && e.PID != ""
}
