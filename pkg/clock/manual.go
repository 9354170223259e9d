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

package clock

import (
	"runtime"
	"sync"
	"time"
)

// Manual is a Clock driven by the caller. In blocking mode SleepUntil parks
// the caller until Advance or Set moves the reading past the target; in
// simulated mode SleepUntil jumps the reading to the target and returns.
type Manual struct {
	mu       sync.Mutex
	cond     *sync.Cond
	now      time.Time
	simulate bool
	sleepers int
}

// NewManual returns a blocking manual clock starting at start.
func NewManual(start time.Time) *Manual {
	m := &Manual{now: start}
	m.cond = sync.NewCond(&m.mu)

	return m
}

// NewSimulated returns a manual clock whose sleeps advance time instantly.
func NewSimulated(start time.Time) *Manual {
	m := NewManual(start)
	m.simulate = true

	return m
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

func (m *Manual) SleepUntil(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.simulate {
		if t.After(m.now) {
			m.now = t
		}

		m.cond.Broadcast()

		return
	}

	m.sleepers++
	m.cond.Broadcast()

	for m.now.Before(t) {
		m.cond.Wait()
	}

	m.sleepers--
	m.cond.Broadcast()
}

func (m *Manual) SleepFor(d time.Duration) {
	m.SleepUntil(m.Now().Add(d))
}

func (*Manual) Yield() {
	runtime.Gosched()
}

// Advance moves the reading forward and wakes due sleepers.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)
	m.cond.Broadcast()
}

// Set replaces the reading. Moving it backwards simulates a clock reset.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = t
	m.cond.Broadcast()
}

// Sleepers returns the number of goroutines parked in SleepUntil.
func (m *Manual) Sleepers() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sleepers
}

// WaitForSleepers blocks until at least n goroutines are parked.
func (m *Manual) WaitForSleepers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.sleepers < n {
		m.cond.Wait()
	}
}
