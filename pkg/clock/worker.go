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
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	errNonPositivePeriod = errors.New("worker period must be positive")
	errWorkerRunning     = errors.New("worker already running")
)

// TickFunc is the body of one iteration. now is the reading the schedule was
// advanced with.
type TickFunc func(now time.Time)

// OverrunFunc is notified when an iteration finished after its wake-up time.
type OverrunFunc func(late time.Duration)

// Worker runs a TickFunc every period on its own goroutine. Sleeping is the
// only suspension point; the run flag is checked right after every wake-up,
// so Stop returns within one period.
type Worker struct {
	name      string
	clock     Clock
	period    time.Duration
	onOverrun OverrunFunc
	running   atomic.Bool
	wg        sync.WaitGroup
	mu        sync.Mutex
}

// NewWorker creates a stopped worker.
func NewWorker(name string, clk Clock, period time.Duration) (*Worker, error) {
	if period <= 0 {
		return nil, errNonPositivePeriod
	}

	if clk == nil {
		clk = Real()
	}

	return &Worker{
		name:   name,
		clock:  clk,
		period: period,
	}, nil
}

// OnOverrun installs the overrun hook. It must be called before Start.
func (w *Worker) OnOverrun(fn OverrunFunc) {
	w.onOverrun = fn
}

// Name returns the worker name.
func (w *Worker) Name() string {
	return w.name
}

// Period returns the worker period.
func (w *Worker) Period() time.Duration {
	return w.period
}

// Running reports whether the run flag is set.
func (w *Worker) Running() bool {
	return w.running.Load()
}

// Start launches the loop.
func (w *Worker) Start(tick TickFunc) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running.CompareAndSwap(false, true) {
		return errWorkerRunning
	}

	w.wg.Add(1)

	go func() {
		defer w.wg.Done()

		w.loop(tick)
	}()

	return nil
}

// Stop clears the run flag and waits for the loop to return.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.running.Store(false)
	w.wg.Wait()
}

func (w *Worker) loop(tick TickFunc) {
	schedule := NewSchedule(w.period)

	for w.running.Load() {
		now := w.clock.Now()
		wake := schedule.Next(now)

		tick(now)

		w.clock.Yield()

		if w.onOverrun != nil {
			if late := w.clock.Now().Sub(wake); late > 0 {
				w.onOverrun(late)
			}
		}

		w.clock.SleepUntil(wake)
	}
}
