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

package natsutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/models"
	"github.com/carverauto/robotlogger/pkg/natsutil/natstest"
)

func TestConnectPlain(t *testing.T) {
	srv := natstest.RunJetStreamServer(t)

	nc, err := Connect(logger.NewTestLogger(), srv.ClientURL(), "robot-logger-test", nil)
	require.NoError(t, err)
	defer nc.Close()

	assert.True(t, nc.IsConnected())
	assert.Equal(t, "robot-logger-test", nc.Opts.Name)
}

func TestTLSConfigRequiresTLSMode(t *testing.T) {
	_, err := TLSConfig(&models.SecurityConfig{Mode: models.SecurityModeNone})
	require.ErrorIs(t, err, ErrTLSRequired)

	_, err = TLSConfig(nil)
	require.ErrorIs(t, err, ErrTLSRequired)
}

func TestTLSConfigMissingCA(t *testing.T) {
	_, err := TLSConfig(&models.SecurityConfig{
		Mode: models.SecurityModeTLS,
		TLS:  models.TLSConfig{CAFile: t.TempDir() + "/missing.pem"},
	})
	require.Error(t, err)
}
