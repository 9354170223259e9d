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

package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/robotlogger/pkg/clock"
	"github.com/carverauto/robotlogger/pkg/codec"
	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/telemetry"
	"github.com/carverauto/robotlogger/pkg/transport"
	"github.com/carverauto/robotlogger/pkg/transport/memory"
)

func newStore(t *testing.T) *telemetry.BufferStore {
	t.Helper()

	s := telemetry.NewBufferStore(logger.NewTestLogger(), clock.NewManual(time.Unix(0, 0)), nil)
	require.NoError(t, s.Configure(telemetry.Config{
		SamplingPeriod: 10 * time.Millisecond,
		FlushPeriod:    time.Second,
		OutputDir:      t.TempDir(),
	}))

	return s
}

func publish(t *testing.T, pub transport.Publisher, v any) {
	t.Helper()

	data, err := codec.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), data))
}

func TestDiscoveryIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	ns := transport.NewMockNamespace(ctrl)
	ep := transport.NewMockEndpoint(ctrl)
	ctx := context.Background()

	ns.EXPECT().Declare("/logger/wrenches:i").Return(ep, nil)

	gomock.InOrder(
		ns.EXPECT().Exists(gomock.Any(), "/robot/wrenches:o").Return(false),
		ns.EXPECT().Exists(gomock.Any(), "/robot/wrenches:o").Return(true),
		ns.EXPECT().Connect(gomock.Any(), "/robot/wrenches:o", "/logger/wrenches:i", transport.Reliable).
			Return(errors.New("refused")),
		ns.EXPECT().Exists(gomock.Any(), "/robot/wrenches:o").Return(true),
		ns.EXPECT().Connect(gomock.Any(), "/robot/wrenches:o", "/logger/wrenches:i", transport.Reliable).
			Return(nil),
	)

	m := NewManager(logger.NewTestLogger(), nil, ns, 0)
	require.NoError(t, m.Setup([]SignalConfig{{
		Local:       "/logger/wrenches:i",
		Remote:      "/robot/wrenches:o",
		Carrier:     "tcp",
		DisplayName: "wrenches",
	}}, nil))

	sig := m.Signals()[0]

	assert.Zero(t, m.Pass(ctx))
	assert.Equal(t, Unconnected, sig.State())
	assert.Zero(t, m.Pass(ctx))
	assert.Equal(t, Unconnected, sig.State())
	assert.Equal(t, 1, m.Pass(ctx))
	assert.Equal(t, Connected, sig.State())

	// Connected signals are never probed again; the mock fails on any
	// further call.
	for range 3 {
		assert.Zero(t, m.Pass(ctx))
	}

	assert.Equal(t, uint64(1), m.Misses())
	assert.Equal(t, uint64(1), m.ConnectFailures())
}

func TestGroupSignalCreatesChannelsOnFirstMessage(t *testing.T) {
	ns := memory.New(0)
	store := newStore(t)
	ctx := context.Background()

	pub, err := ns.Advertise("/balancing/vectors:o")
	require.NoError(t, err)

	m := NewManager(logger.NewTestLogger(), nil, ns, 0)
	require.NoError(t, m.Setup([]SignalConfig{{
		Local:       "/logger/balancing:i",
		Remote:      "/balancing/vectors:o",
		Carrier:     "udp",
		DisplayName: "balancing",
	}}, nil))
	require.Equal(t, 1, m.Pass(ctx))

	msg := transport.VectorsCollection{Vectors: map[string][]float64{
		"a": {1, 2, 3},
		"b": {4},
	}}

	publish(t, pub, msg)
	m.Drain(store, 0.01)

	assert.Equal(t, 2, store.Registry().Len())
	assert.True(t, store.Registry().Has("balancing::a"))
	assert.True(t, store.Registry().Has("balancing::b"))
	assert.True(t, m.Signals()[0].Seen())

	publish(t, pub, msg)
	m.Drain(store, 0.02)

	assert.Equal(t, 2, store.Registry().Len())
	assert.Equal(t, 2, store.Len("balancing::a"))
	assert.Equal(t, 2, store.Len("balancing::b"))
}

func TestVectorSignalKeepsLatestMessage(t *testing.T) {
	ns := memory.New(0)
	store := newStore(t)

	pub, err := ns.Advertise("/planner/com:o")
	require.NoError(t, err)

	m := NewManager(logger.NewTestLogger(), nil, ns, 0)
	require.NoError(t, m.Setup(nil, []SignalConfig{{
		Local:       "/logger/com:i",
		Remote:      "/planner/com:o",
		Carrier:     "tcp",
		DisplayName: "com",
	}}))

	// Nothing is read before the signal is connected.
	m.Drain(store, 0)
	assert.False(t, store.Registry().Has("com"))

	m.Pass(context.Background())

	for i := range 3 {
		publish(t, pub, transport.Vector{Values: []float64{float64(i), 0}})
	}

	m.Drain(store, 1)

	assert.Equal(t, 1, store.Len("com"))

	prefix, err := store.Flush(context.Background(), telemetry.SavePeriodic)
	require.NoError(t, err)

	doc, err := telemetry.ReadDataFile(prefix + telemetry.DataFileExt)
	require.NoError(t, err)

	com, ok := doc.Channel("com")
	require.True(t, ok)
	assert.Equal(t, [][]float64{{2, 0}}, com.Values)
}

func TestMalformedMessageIsDropped(t *testing.T) {
	ns := memory.New(0)
	store := newStore(t)

	pub, err := ns.Advertise("/remote")
	require.NoError(t, err)

	m := NewManager(logger.NewTestLogger(), nil, ns, 0)
	require.NoError(t, m.Setup(nil, []SignalConfig{{Local: "/local", Remote: "/remote", Carrier: "tcp", DisplayName: "sig"}}))
	m.Pass(context.Background())

	require.NoError(t, pub.Publish(context.Background(), []byte{0xff, 0x00}))
	m.Drain(store, 0)

	assert.Equal(t, uint64(1), m.Rejected())
	assert.False(t, m.Signals()[0].Seen())
}

func TestSetupValidation(t *testing.T) {
	m := NewManager(logger.NewTestLogger(), nil, memory.New(0), 0)

	err := m.Setup([]SignalConfig{{Local: "/l", Remote: "/r", Carrier: "mcast", DisplayName: "x"}}, nil)
	require.ErrorIs(t, err, errInvalidSignal)
	require.ErrorIs(t, err, transport.ErrUnknownKind)

	err = m.Setup(nil, []SignalConfig{{Carrier: "tcp"}})
	require.ErrorIs(t, err, errInvalidSignal)
	assert.Empty(t, m.Signals())
}

func TestWorkerConnectsAndStops(t *testing.T) {
	ns := memory.New(0)

	_, err := ns.Advertise("/remote")
	require.NoError(t, err)

	m := NewManager(logger.NewTestLogger(), clock.Real(), ns, 10*time.Millisecond)
	require.NoError(t, m.Setup(nil, []SignalConfig{{Local: "/local", Remote: "/remote", Carrier: "tcp", DisplayName: "sig"}}))
	require.NoError(t, m.Start())

	assert.Eventually(t, func() bool {
		return m.Signals()[0].State() == Connected
	}, 2*time.Second, 5*time.Millisecond)

	m.Stop()
	require.NoError(t, m.Close())
}

func TestDrainDoesNotWaitForProbe(t *testing.T) {
	ctrl := gomock.NewController(t)
	ns := transport.NewMockNamespace(ctrl)
	ep := transport.NewMockEndpoint(ctrl)
	store := newStore(t)

	entered := make(chan struct{})
	release := make(chan struct{})

	ns.EXPECT().Declare("/logger/com:i").Return(ep, nil)
	ns.EXPECT().Exists(gomock.Any(), "/planner/com:o").DoAndReturn(func(ctx context.Context, _ string) bool {
		_, bounded := ctx.Deadline()
		assert.True(t, bounded)

		close(entered)

		select {
		case <-release:
		case <-ctx.Done():
		}

		return false
	})

	m := NewManager(logger.NewTestLogger(), nil, ns, 5*time.Second)
	require.NoError(t, m.Setup(nil, []SignalConfig{{
		Local:       "/logger/com:i",
		Remote:      "/planner/com:o",
		Carrier:     "tcp",
		DisplayName: "com",
	}}))

	done := make(chan int)

	go func() { done <- m.Pass(context.Background()) }()

	<-entered

	drained := make(chan struct{})

	go func() {
		_ = store.Batch(func(w telemetry.Writer) error {
			m.Drain(w, 1)

			return nil
		})

		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatal("sampling tick blocked behind a discovery pass")
	}

	assert.Equal(t, Unconnected, m.Signals()[0].State())

	close(release)
	assert.Zero(t, <-done)
	assert.Equal(t, uint64(1), m.Misses())
}

func TestPassIsBoundedByPeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	ns := transport.NewMockNamespace(ctrl)
	ep := transport.NewMockEndpoint(ctrl)

	ns.EXPECT().Declare("/local").Return(ep, nil)
	ns.EXPECT().Exists(gomock.Any(), "/remote").DoAndReturn(func(ctx context.Context, _ string) bool {
		<-ctx.Done()

		return false
	})

	m := NewManager(logger.NewTestLogger(), nil, ns, 20*time.Millisecond)
	require.NoError(t, m.Setup(nil, []SignalConfig{{Local: "/local", Remote: "/remote", Carrier: "tcp", DisplayName: "sig"}}))

	start := time.Now()
	assert.Zero(t, m.Pass(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}
