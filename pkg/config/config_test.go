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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/models"
)

var errNoName = errors.New("name is required")

type testNATS struct {
	URL      string                 `json:"url" yaml:"url"`
	Security *models.SecurityConfig `json:"security" yaml:"security"`
}

type testConfig struct {
	Name    string          `json:"name" yaml:"name"`
	Period  models.Duration `json:"period" yaml:"period"`
	Timeout time.Duration   `json:"timeout" yaml:"timeout"`
	Names   []string        `json:"names" yaml:"names"`
	FPS     float64         `json:"fps" yaml:"fps"`
	Debug   bool            `json:"debug" yaml:"debug"`
	NATS    testNATS        `json:"nats" yaml:"nats"`
}

func (c *testConfig) Validate() error {
	if c.Name == "" {
		return errNoName
	}

	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadJSONFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeFile(t, "robot.json", `{
		"name": "icub",
		"period": "10ms",
		"names": ["realsense"],
		"nats": {"url": "nats://localhost:4222", "security": {"mode": "mtls", "cert_dir": "/etc/certs", "tls": {"cert_file": "client.pem", "ca_file": "/abs/ca.pem"}}}
	}`)

	var cfg testConfig
	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, "icub", cfg.Name)
	assert.Equal(t, 10*time.Millisecond, cfg.Period.Std())
	assert.Equal(t, []string{"realsense"}, cfg.Names)
	require.NotNil(t, cfg.NATS.Security)
	assert.Equal(t, "/etc/certs/client.pem", cfg.NATS.Security.TLS.CertFile)
	assert.Equal(t, "/abs/ca.pem", cfg.NATS.Security.TLS.CAFile)
}

func TestLoadYAMLFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	path := writeFile(t, "robot.yaml", "name: ergocub\nperiod: 2s\nfps: 30\n")

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, "ergocub", cfg.Name)
	assert.Equal(t, 2*time.Second, cfg.Period.Std())
	assert.InDelta(t, 30.0, cfg.FPS, 1e-9)
}

func TestStrictRejectsUnknownKeys(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	yamlPath := writeFile(t, "robot.yaml", "name: ergocub\nfsp: 30\n")
	jsonPath := writeFile(t, "robot.json", `{"name": "ergocub", "fsp": 30}`)

	for _, path := range []string{yamlPath, jsonPath} {
		var cfg testConfig
		require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))
		require.Error(t, NewConfig(nil).Strict().LoadAndValidate(context.Background(), path, &cfg), path)
	}
}

func TestEmptyYAMLFileLoads(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeFile(t, "empty.yaml", "")

	var cfg testConfig
	require.ErrorIs(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg), errNoName)
}

func TestLoadRunsValidator(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeFile(t, "robot.json", `{"fps": 5}`)

	var cfg testConfig
	require.ErrorIs(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg), errNoName)
}

func TestLoadInvalidSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "consul")

	var cfg testConfig
	require.ErrorIs(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg), errInvalidConfigSource)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "")
	t.Setenv("ROBOTLOGGER_NAME", "r1")
	t.Setenv("ROBOTLOGGER_PERIOD", "20ms")
	t.Setenv("ROBOTLOGGER_TIMEOUT", "3s")
	t.Setenv("ROBOTLOGGER_NAMES", "head, chest")
	t.Setenv("ROBOTLOGGER_DEBUG", "true")
	t.Setenv("ROBOTLOGGER_NATS_URL", "nats://robot:4222")
	t.Setenv("ROBOTLOGGER_FPS", "not-a-number")

	var cfg testConfig
	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, "r1", cfg.Name)
	assert.Equal(t, 20*time.Millisecond, cfg.Period.Std())
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"head", "chest"}, cfg.Names)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "nats://robot:4222", cfg.NATS.URL)
	assert.Zero(t, cfg.FPS)
}

func TestEnvConfigJSONDocument(t *testing.T) {
	t.Setenv("APP_CONFIG_JSON", `{"name": "from-json"}`)

	var cfg testConfig
	require.NoError(t, NewEnvConfigLoader(logger.NewTestLogger(), "APP_").Load(context.Background(), "", &cfg))
	assert.Equal(t, "from-json", cfg.Name)
}

func TestEnvLoaderRejectsNonPointer(t *testing.T) {
	loader := NewEnvConfigLoader(logger.NewTestLogger(), "X_")

	require.ErrorIs(t, loader.Load(context.Background(), "", testConfig{}), ErrDstMustBeNonNilPointer)

	n := 3
	require.ErrorIs(t, loader.Load(context.Background(), "", &n), ErrDstMustBePointerToStruct)
}

type Toggles struct {
	Joints bool `json:"stream_joints" yaml:"stream_joints"`
}

type embeddingConfig struct {
	Toggles `yaml:",inline"`

	Subject string `json:"subject" yaml:"subject"`
}

func TestEnvLoaderFlattensEmbeddedStructs(t *testing.T) {
	t.Setenv("APP_STREAM_JOINTS", "true")
	t.Setenv("APP_SUBJECT", "robot.state")

	var cfg embeddingConfig
	require.NoError(t, NewEnvConfigLoader(logger.NewTestLogger(), "APP_").Load(context.Background(), "", &cfg))
	assert.True(t, cfg.Joints)
	assert.Equal(t, "robot.state", cfg.Subject)
}
