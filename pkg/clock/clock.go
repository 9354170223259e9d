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

// Package clock provides the time source used by every periodic loop in the
// recorder together with the drift-corrected scheduling built on top of it.
package clock

//go:generate mockgen -destination=mock_clock.go -package=clock github.com/carverauto/robotlogger/pkg/clock Clock

import (
	"runtime"
	"time"
)

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	SleepUntil(t time.Time)
	SleepFor(d time.Duration)
	Yield()
}

// Seconds converts a clock reading to the float timestamp stored with samples.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// realClock implements Clock using the real time package.
type realClock struct{}

// Real returns the wall clock. Readings carry the monotonic component, so
// sleeps computed from them are not affected by wall clock adjustments.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) SleepUntil(t time.Time) {
	if d := time.Until(t); d > 0 {
		time.Sleep(d)
	}
}

func (realClock) SleepFor(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

func (realClock) Yield() {
	runtime.Gosched()
}
