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

package natsbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/natsutil/natstest"
	"github.com/carverauto/robotlogger/pkg/transport"
)

func newNamespace(t *testing.T, url string) *Namespace {
	t.Helper()

	nc := natstest.Connect(t, url)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ns, err := New(ctx, nc, Config{Bucket: "names-test", SubjectPrefix: "test.data"}, logger.NewTestLogger())
	require.NoError(t, err)

	return ns
}

func TestKeyEncodingRoundTrip(t *testing.T) {
	for _, name := range []string{"/log/robot-interface/p12", "/vectors:o", "/a b.c"} {
		key := encodeKey(name)
		assert.NotContains(t, key, "/")
		assert.NotContains(t, key, ".")

		got, err := decodeKey(key)
		require.NoError(t, err)
		assert.Equal(t, name, got)
	}
}

func TestNamespaceAcrossConnections(t *testing.T) {
	srv := natstest.RunJetStreamServer(t)
	ctx := context.Background()

	robot := newNamespace(t, srv.ClientURL())
	recorder := newNamespace(t, srv.ClientURL())

	pub, err := robot.Advertise("/robot/wrenches:o")
	require.NoError(t, err)

	ep, err := recorder.Declare("/logger/wrenches:i")
	require.NoError(t, err)

	assert.True(t, recorder.Exists(ctx, "/robot/wrenches:o"))
	assert.False(t, recorder.Exists(ctx, "/robot/missing:o"))

	names, err := recorder.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/logger/wrenches:i", "/robot/wrenches:o"}, names)

	require.NoError(t, recorder.Connect(ctx, "/robot/wrenches:o", "/logger/wrenches:i", transport.Reliable))
	require.NoError(t, recorder.Connect(ctx, "/robot/wrenches:o", "/logger/wrenches:i", transport.Reliable))

	require.NoError(t, pub.Publish(ctx, []byte("first")))
	require.NoError(t, pub.Publish(ctx, []byte("second")))

	require.Eventually(t, func() bool {
		return ep.Pending() == 2
	}, 5*time.Second, 10*time.Millisecond)

	latest, ok := transport.ReceiveLatest(ep)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), latest)

	require.NoError(t, ep.Close())
	assert.False(t, robot.Exists(ctx, "/logger/wrenches:i"))
}

func TestConnectUnknownRemote(t *testing.T) {
	srv := natstest.RunJetStreamServer(t)
	ns := newNamespace(t, srv.ClientURL())

	_, err := ns.Declare("/in")
	require.NoError(t, err)

	err = ns.Connect(context.Background(), "/nobody", "/in", transport.Lossy)
	require.ErrorIs(t, err, transport.ErrNotFound)

	err = ns.Connect(context.Background(), "/in", "/undeclared", transport.Lossy)
	require.ErrorIs(t, err, transport.ErrNotFound)

	_, err = ns.Declare("/in")
	require.ErrorIs(t, err, transport.ErrAlreadyDeclared)
}
