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

package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/robotlogger/pkg/camera"
	"github.com/carverauto/robotlogger/pkg/config"
	"github.com/carverauto/robotlogger/pkg/discovery"
	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/models"
	"github.com/carverauto/robotlogger/pkg/sensors"
)

const sampleYAML = `
sampling_period: 10ms
sensors:
  stream_joint_states: true
  stream_inertials: true
  joints: [torso_pitch, torso_yaw]
  sensor_lists:
    imu: [head_imu]
cameras:
  rgb:
    names: [head]
    fps: [30]
    rgb_save_mode: [video]
  rgbd:
    names: [realsense]
    fps: [15]
    depth_scale: [1000]
    rgb_save_mode: [frame]
    depth_save_mode: [frame]
  dimensions:
    head: {width: 640, height: 480}
exogenous_signals:
  vector_inputs:
    - local: /robot-logger/com:i
      remote: /walking/com:o
      carrier: udp
      signal_name: com
text_logging:
  subnames: [walking]
telemetry:
  save_period: 600s
  output_dir: /data
code_status_cmd_prefixes: ["ssh head"]
nats:
  url: nats://robot:4222
`

func validConfig() *Config {
	return &Config{
		SamplingPeriod: models.Duration(10 * time.Millisecond),
		Telemetry:      TelemetryConfig{SavePeriod: models.Duration(time.Minute)},
	}
}

func TestLoadYAMLConfig(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")
	t.Setenv(RobotNameEnv, "ergoCubSN001")

	path := filepath.Join(t.TempDir(), "robot-logger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	var cfg Config
	require.NoError(t, config.NewConfig(logger.NewTestLogger()).Strict().LoadAndValidate(context.Background(), path, &cfg))

	assert.True(t, cfg.Sensors.JointStates)
	assert.True(t, cfg.Sensors.Inertials)
	assert.Equal(t, []string{"head_imu"}, cfg.Sensors.Lists[sensors.IMU])
	assert.Equal(t, camera.Dimensions{Width: 640, Height: 480}, cfg.Cameras.Dimensions["head"])
	assert.Equal(t, camera.DefaultCodec, cfg.Cameras.VideoCodec)
	assert.Equal(t, 10*time.Minute, cfg.Telemetry.SavePeriod.Std())
	assert.Equal(t, "ergoCubSN001", cfg.Telemetry.RobotName)
	assert.Equal(t, "com", cfg.ExogenousSignals.VectorInputs[0].DisplayName)
	assert.Equal(t, []string{"walking"}, cfg.TextLogging.Subnames)
	assert.Equal(t, []string{"ssh head"}, cfg.CodeStatusCmdPrefixes)

	cams, err := cfg.cameraConfigs(camera.DefaultCodecs())
	require.NoError(t, err)
	require.Len(t, cams, 2)
	assert.Equal(t, camera.ModeVideo, cams[0].ColorMode)
	assert.True(t, cams[1].HasDepth)
	assert.InDelta(t, 1000, cams[1].DepthScale, 0)
}

func TestConfigDefaults(t *testing.T) {
	t.Setenv(RobotNameEnv, "")

	cfg := &Config{Telemetry: TelemetryConfig{SavePeriod: models.Duration(time.Second)}}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultSamplingPeriod, cfg.SamplingPeriod.Std())
	assert.Equal(t, camera.DefaultCodec, cfg.Cameras.VideoCodec)
	assert.Empty(t, cfg.Telemetry.RobotName)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		cause  error
	}{
		{
			name:   "missing save period",
			mutate: func(c *Config) { c.Telemetry.SavePeriod = 0 },
		},
		{
			name:   "negative sampling period",
			mutate: func(c *Config) { c.SamplingPeriod = models.Duration(-time.Millisecond) },
		},
		{
			name: "mismatched camera lists",
			mutate: func(c *Config) {
				c.Cameras.RGB = RGBCameras{Names: []string{"a", "b"}, FPS: []float64{30}, SaveMode: []string{"frame", "frame"}}
			},
		},
		{
			name: "mismatched rgbd lists",
			mutate: func(c *Config) {
				c.Cameras.RGBD = RGBDCameras{
					Names:       []string{"d"},
					FPS:         []float64{30},
					DepthScale:  []float64{1},
					RGBSaveMode: []string{"frame"},
				}
			},
		},
		{
			name: "non-positive rate",
			mutate: func(c *Config) {
				c.Cameras.RGB = RGBCameras{Names: []string{"a"}, FPS: []float64{0}, SaveMode: []string{"frame"}}
			},
			cause: camera.ErrInvalidRate,
		},
		{
			name: "unknown save mode",
			mutate: func(c *Config) {
				c.Cameras.RGB = RGBCameras{Names: []string{"a"}, FPS: []float64{30}, SaveMode: []string{"gif"}}
			},
			cause: camera.ErrInvalidMode,
		},
		{
			name:   "codec name length",
			mutate: func(c *Config) { c.Cameras.VideoCodec = "H26" },
			cause:  camera.ErrInvalidCodec,
		},
		{
			name: "unsupported codec used by a video stream",
			mutate: func(c *Config) {
				c.Cameras.VideoCodec = "XVID"
				c.Cameras.RGB = RGBCameras{Names: []string{"a"}, FPS: []float64{30}, SaveMode: []string{"video"}}
			},
			cause: camera.ErrUnsupportedCodec,
		},
		{
			name: "duplicate camera",
			mutate: func(c *Config) {
				c.Cameras.RGB = RGBCameras{Names: []string{"a", "a"}, FPS: []float64{30, 30}, SaveMode: []string{"frame", "frame"}}
			},
		},
		{
			name: "incomplete signal",
			mutate: func(c *Config) {
				c.ExogenousSignals.VectorsCollectionInputs = []discovery.SignalConfig{{Local: "/l:i", Carrier: "tcp"}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.ErrorIs(t, err, ErrConfiguration)

			if tt.cause != nil {
				require.ErrorIs(t, err, tt.cause)
			}
		})
	}
}

func TestUnsupportedCodecIgnoredWithoutVideo(t *testing.T) {
	cfg := validConfig()
	cfg.Cameras.VideoCodec = "XVID"
	cfg.Cameras.RGB = RGBCameras{Names: []string{"a"}, FPS: []float64{30}, SaveMode: []string{"frame"}}

	require.NoError(t, cfg.Validate())
}
