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

// Package schema keeps the append-only set of telemetry channels.
package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Separator joins the levels of a hierarchical channel name.
const Separator = "::"

var (
	// ErrInvalidChannel is returned for channels with an empty name, no
	// elements or a label count that does not match the element count.
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrShapeConflict is returned when a channel is registered again with
	// a different shape.
	ErrShapeConflict = errors.New("channel already registered with a different shape")
)

// Channel describes a named, fixed-size time series.
type Channel struct {
	Name   string   `json:"name" cbor:"name"`
	Length int      `json:"length" cbor:"length"`
	Labels []string `json:"labels,omitempty" cbor:"labels,omitempty"`
}

// Validate checks the channel shape.
func (c Channel) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidChannel)
	}

	if c.Length < 1 {
		return fmt.Errorf("%w: %s has length %d", ErrInvalidChannel, c.Name, c.Length)
	}

	if len(c.Labels) != 0 && len(c.Labels) != c.Length {
		return fmt.Errorf("%w: %s has %d labels for %d elements", ErrInvalidChannel, c.Name, len(c.Labels), c.Length)
	}

	return nil
}

func (c Channel) sameShape(other Channel) bool {
	return c.Length == other.Length && slices.Equal(c.Labels, other.Labels)
}

// Registry maps channel names to shapes. Entries are never removed or
// modified once added.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Register inserts the channel if absent. It reports whether the channel
// was added; registering an identical shape again is a no-op.
func (r *Registry) Register(ch Channel) (bool, error) {
	if err := ch.Validate(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.channels[ch.Name]; ok {
		if !existing.sameShape(ch) {
			return false, fmt.Errorf("%w: %s", ErrShapeConflict, ch.Name)
		}

		return false, nil
	}

	ch.Labels = slices.Clone(ch.Labels)
	r.channels[ch.Name] = ch

	return true, nil
}

// Lookup returns the channel registered under name.
func (r *Registry) Lookup(name string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[name]

	return ch, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)

	return ok
}

// Len returns the number of channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.channels)
}

// Channels returns the registered channels sorted by name.
func (r *Registry) Channels() []Channel {
	r.mu.RLock()
	out := make([]Channel, 0, len(r.channels))

	for _, ch := range r.channels {
		out = append(out, ch)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Channel) int { return strings.Compare(a.Name, b.Name) })

	return out
}

// Join builds a hierarchical channel name.
func Join(parts ...string) string {
	return strings.Join(parts, Separator)
}

// SanitizeKey replaces characters that downstream struct-based readers
// cannot use in field names.
func SanitizeKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
