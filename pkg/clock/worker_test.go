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
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestScheduleAdvancesBaseline(t *testing.T) {
	s := NewSchedule(10 * time.Millisecond)

	assert.Equal(t, epoch.Add(10*time.Millisecond), s.Next(epoch))
	// late reading does not shift the baseline
	assert.Equal(t, epoch.Add(20*time.Millisecond), s.Next(epoch.Add(17*time.Millisecond)))
	assert.Equal(t, epoch.Add(30*time.Millisecond), s.Next(epoch.Add(20*time.Millisecond)))
}

func TestScheduleResyncsAfterReset(t *testing.T) {
	period := time.Second
	s := NewSchedule(period)

	s.Next(epoch)
	s.Next(epoch.Add(period))

	reset := epoch.Add(-time.Hour)
	wake := s.Next(reset)

	assert.Equal(t, reset.Add(period), wake)
	assert.Positive(t, wake.Sub(reset))
	assert.LessOrEqual(t, wake.Sub(reset), period)
}

func TestWorkerDriftCorrection(t *testing.T) {
	const (
		ticks  = 500
		period = 10 * time.Millisecond
	)

	clk := NewSimulated(epoch)
	w, err := NewWorker("drift", clk, period)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	wakes := make([]time.Time, 0, ticks)

	w.running.Store(true)
	w.loop(func(now time.Time) {
		wakes = append(wakes, now)
		// execution time varies but stays below the period
		clk.Advance(time.Duration(rng.Int63n(int64(period))))

		if len(wakes) == ticks {
			w.running.Store(false)
		}
	})

	require.Len(t, wakes, ticks)

	for k, got := range wakes {
		ideal := epoch.Add(time.Duration(k) * period)
		deviation := got.Sub(ideal)

		assert.GreaterOrEqual(t, deviation, time.Duration(0), "tick %d", k)
		assert.Less(t, deviation, period, "tick %d", k)
	}
}

func TestWorkerResyncsAfterClockReset(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	period := time.Second
	reset := epoch.Add(-30 * time.Minute)

	clk := NewMockClock(ctrl)
	clk.EXPECT().Yield().AnyTimes()

	gomock.InOrder(
		clk.EXPECT().Now().Return(epoch),
		clk.EXPECT().SleepUntil(epoch.Add(period)),
		clk.EXPECT().Now().Return(epoch.Add(period)),
		clk.EXPECT().SleepUntil(epoch.Add(2*period)),
		clk.EXPECT().Now().Return(reset),
		clk.EXPECT().SleepUntil(reset.Add(period)),
	)

	w, err := NewWorker("reset", clk, period)
	require.NoError(t, err)

	calls := 0

	w.running.Store(true)
	w.loop(func(time.Time) {
		calls++
		if calls == 3 {
			w.running.Store(false)
		}
	})

	assert.Equal(t, 3, calls)
}

func TestWorkerReportsOverrun(t *testing.T) {
	period := 100 * time.Millisecond
	clk := NewSimulated(epoch)

	w, err := NewWorker("overrun", clk, period)
	require.NoError(t, err)

	var late []time.Duration

	w.OnOverrun(func(d time.Duration) { late = append(late, d) })

	calls := 0

	w.running.Store(true)
	w.loop(func(time.Time) {
		calls++
		if calls == 1 {
			clk.Advance(250 * time.Millisecond)
		}

		if calls == 3 {
			w.running.Store(false)
		}
	})

	// the baseline stays behind until the loop catches up
	assert.Equal(t, []time.Duration{150 * time.Millisecond, 50 * time.Millisecond}, late)
}

func TestWorkerStopsWithinOnePeriod(t *testing.T) {
	period := 2 * time.Second
	clk := NewManual(epoch)

	w, err := NewWorker("shutdown", clk, period)
	require.NoError(t, err)

	ticks := 0
	require.NoError(t, w.Start(func(time.Time) { ticks++ }))

	clk.WaitForSleepers(1)

	stopped := make(chan struct{})

	go func() {
		w.Stop()
		close(stopped)
	}()

	require.Eventually(t, func() bool { return !w.Running() }, time.Second, time.Millisecond)

	select {
	case <-stopped:
		t.Fatal("worker returned before its sleep elapsed")
	default:
	}

	clk.Advance(period)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after one period")
	}

	assert.Equal(t, 1, ticks)
}

func TestNewWorkerRejectsNonPositivePeriod(t *testing.T) {
	_, err := NewWorker("bad", Real(), 0)
	require.ErrorIs(t, err, errNonPositivePeriod)
}

func TestWorkerStartTwice(t *testing.T) {
	clk := NewManual(epoch)

	w, err := NewWorker("twice", clk, time.Second)
	require.NoError(t, err)

	require.NoError(t, w.Start(func(time.Time) {}))
	require.ErrorIs(t, w.Start(func(time.Time) {}), errWorkerRunning)

	clk.WaitForSleepers(1)

	stopped := make(chan struct{})

	go func() {
		w.Stop()
		close(stopped)
	}()

	require.Eventually(t, func() bool { return !w.Running() }, time.Second, time.Millisecond)
	clk.Advance(time.Second)
	<-stopped
}
