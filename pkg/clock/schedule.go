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

import "time"

// Schedule computes absolute wake-up times for a periodic loop. The baseline
// is advanced by one period per iteration instead of being recomputed from
// the current time, so execution jitter never accumulates.
type Schedule struct {
	period  time.Duration
	last    time.Time
	wake    time.Time
	started bool
}

// NewSchedule returns a schedule for the given period.
func NewSchedule(period time.Duration) *Schedule {
	return &Schedule{period: period}
}

// Period returns the schedule period.
func (s *Schedule) Period() time.Duration {
	return s.period
}

// Next records the reading taken at the start of an iteration and returns
// the time the loop must sleep until. A reading earlier than the previous
// one means the clock was reset; the baseline restarts from the new reading.
func (s *Schedule) Next(now time.Time) time.Time {
	if !s.started || now.Before(s.last) {
		s.wake = now
		s.started = true
	}

	s.last = now
	s.wake = s.wake.Add(s.period)

	return s.wake
}
