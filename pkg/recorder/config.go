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
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/robotlogger/pkg/camera"
	"github.com/carverauto/robotlogger/pkg/discovery"
	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/models"
	"github.com/carverauto/robotlogger/pkg/natsbridge"
	"github.com/carverauto/robotlogger/pkg/sensors"
	"github.com/carverauto/robotlogger/pkg/status"
	"github.com/carverauto/robotlogger/pkg/telemetry"
	"github.com/carverauto/robotlogger/pkg/textlog"
	"github.com/carverauto/robotlogger/pkg/transport/natsbus"
)

const (
	DefaultSamplingPeriod = 10 * time.Millisecond
	RobotNameEnv          = "ROBOT_NAME"
)

// SensorsConfig selects the sampled categories and describes the robot.
type SensorsConfig struct {
	sensors.Streams `yaml:",inline"`

	Joints  []string                  `json:"joints" yaml:"joints"`
	Lists   map[sensors.Kind][]string `json:"sensor_lists" yaml:"sensor_lists"`
	Subject string                    `json:"subject" yaml:"subject"`
}

// RGBCameras are cameras with a color stream only. Entries are matched by
// position.
type RGBCameras struct {
	Names    []string  `json:"names" yaml:"names"`
	FPS      []float64 `json:"fps" yaml:"fps"`
	SaveMode []string  `json:"rgb_save_mode" yaml:"rgb_save_mode"`
}

// RGBDCameras have a color and a depth stream.
type RGBDCameras struct {
	Names         []string  `json:"names" yaml:"names"`
	FPS           []float64 `json:"fps" yaml:"fps"`
	DepthScale    []float64 `json:"depth_scale" yaml:"depth_scale"`
	RGBSaveMode   []string  `json:"rgb_save_mode" yaml:"rgb_save_mode"`
	DepthSaveMode []string  `json:"depth_save_mode" yaml:"depth_save_mode"`
}

type CamerasConfig struct {
	RGB           RGBCameras                   `json:"rgb" yaml:"rgb"`
	RGBD          RGBDCameras                  `json:"rgbd" yaml:"rgbd"`
	Dimensions    map[string]camera.Dimensions `json:"dimensions" yaml:"dimensions"`
	VideoCodec    string                       `json:"video_codec" yaml:"video_codec"`
	SubjectPrefix string                       `json:"subject_prefix" yaml:"subject_prefix"`
}

// SignalsConfig lists the external streams to discover.
type SignalsConfig struct {
	VectorsCollectionInputs []discovery.SignalConfig `json:"vectors_collection_inputs" yaml:"vectors_collection_inputs"`
	VectorInputs            []discovery.SignalConfig `json:"vector_inputs" yaml:"vector_inputs"`
	Period                  models.Duration          `json:"discovery_period" yaml:"discovery_period"`
}

type TelemetryConfig struct {
	SavePeriod   models.Duration `json:"save_period" yaml:"save_period"`
	OutputDir    string          `json:"output_dir" yaml:"output_dir"`
	FilePrefix   string          `json:"file_prefix" yaml:"file_prefix"`
	FileIndexing string          `json:"file_indexing" yaml:"file_indexing"`
	RobotName    string          `json:"robot_name" yaml:"robot_name"`
}

type NATSConfig struct {
	URL           string                 `json:"url" yaml:"url"`
	Bucket        string                 `json:"bucket" yaml:"bucket"`
	SubjectPrefix string                 `json:"subject_prefix" yaml:"subject_prefix"`
	LossyDepth    int                    `json:"lossy_depth" yaml:"lossy_depth"`
	Security      *models.SecurityConfig `json:"security" yaml:"security"`
}

// Config is the recorder configuration file.
type Config struct {
	SamplingPeriod        models.Duration  `json:"sampling_period" yaml:"sampling_period"`
	Sensors               SensorsConfig    `json:"sensors" yaml:"sensors"`
	Cameras               CamerasConfig    `json:"cameras" yaml:"cameras"`
	ExogenousSignals      SignalsConfig    `json:"exogenous_signals" yaml:"exogenous_signals"`
	TextLogging           textlog.Config   `json:"text_logging" yaml:"text_logging"`
	Telemetry             TelemetryConfig  `json:"telemetry" yaml:"telemetry"`
	CodeStatusCmdPrefixes []string         `json:"code_status_cmd_prefixes" yaml:"code_status_cmd_prefixes"`
	StatusCommands        []status.Command `json:"status_commands" yaml:"status_commands"`
	StatusTimeout         models.Duration  `json:"status_timeout" yaml:"status_timeout"`
	NATS                  NATSConfig       `json:"nats" yaml:"nats"`
	MetricsAddr           string           `json:"metrics_addr" yaml:"metrics_addr"`
	Logging               *logger.Config   `json:"logging" yaml:"logging"`
}

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	if c.SamplingPeriod == 0 {
		c.SamplingPeriod = models.Duration(DefaultSamplingPeriod)
	}

	if c.Cameras.VideoCodec == "" {
		c.Cameras.VideoCodec = camera.DefaultCodec
	}

	if c.Telemetry.RobotName == "" {
		c.Telemetry.RobotName = os.Getenv(RobotNameEnv)
	}

	if c.NATS.URL == "" {
		c.NATS.URL = nats.DefaultURL
	}
}

// Validate checks everything that can be checked before connecting to the
// robot, against the built-in codec registry. Every failure wraps
// ErrConfiguration.
func (c *Config) Validate() error {
	return c.validate(camera.DefaultCodecs())
}

func (c *Config) validate(codecs camera.Codecs) error {
	c.ApplyDefaults()

	var errs []error

	if c.SamplingPeriod.Std() <= 0 {
		errs = append(errs, errors.New("sampling_period must be positive"))
	}

	if c.Telemetry.SavePeriod.Std() <= 0 {
		errs = append(errs, errors.New("telemetry.save_period must be positive"))
	}

	if c.SamplingPeriod.Std() > 0 && c.Telemetry.SavePeriod.Std() > 0 {
		if _, err := telemetry.Capacity(c.SamplingPeriod.Std(), c.Telemetry.SavePeriod.Std()); err != nil {
			errs = append(errs, err)
		}
	}

	if _, err := c.cameraConfigs(codecs); err != nil {
		errs = append(errs, err)
	}

	for _, sig := range c.ExogenousSignals.VectorsCollectionInputs {
		errs = append(errs, sig.Validate())
	}

	for _, sig := range c.ExogenousSignals.VectorInputs {
		errs = append(errs, sig.Validate())
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return nil
}

func (c *Config) storeConfig() telemetry.Config {
	return telemetry.Config{
		SamplingPeriod: c.SamplingPeriod.Std(),
		FlushPeriod:    c.Telemetry.SavePeriod.Std(),
		OutputDir:      c.Telemetry.OutputDir,
		FilePrefix:     c.Telemetry.FilePrefix,
		FileIndexing:   c.Telemetry.FileIndexing,
		RobotName:      c.Telemetry.RobotName,
	}
}

func (c *Config) statusConfig() status.Config {
	return status.Config{
		Commands: c.StatusCommands,
		Prefixes: c.CodeStatusCmdPrefixes,
		Timeout:  c.StatusTimeout,
	}
}

// NATSBusConfig returns the namespace settings.
func (c *Config) NATSBusConfig() natsbus.Config {
	return natsbus.Config{
		Bucket:        c.NATS.Bucket,
		SubjectPrefix: c.NATS.SubjectPrefix,
		LossyDepth:    c.NATS.LossyDepth,
	}
}

// SensorBridgeConfig returns the NATS sensor bridge settings.
func (c *Config) SensorBridgeConfig() natsbridge.SensorsConfig {
	return natsbridge.SensorsConfig{
		Subject: c.Sensors.Subject,
		Joints:  c.Sensors.Joints,
		Lists:   c.Sensors.Lists,
	}
}

// CameraBridgeConfig returns the NATS camera bridge settings.
func (c *Config) CameraBridgeConfig() natsbridge.CamerasConfig {
	return natsbridge.CamerasConfig{
		SubjectPrefix: c.Cameras.SubjectPrefix,
		RGB:           c.Cameras.RGB.Names,
		RGBD:          c.Cameras.RGBD.Names,
		Dimensions:    c.Cameras.Dimensions,
	}
}

// HasCameras reports whether any camera is configured.
func (c *Config) HasCameras() bool {
	return len(c.Cameras.RGB.Names)+len(c.Cameras.RGBD.Names) > 0
}

// cameraConfigs expands the positional camera lists into recorder configs.
// Dir and Size are filled in by the engine.
func (c *Config) cameraConfigs(codecs camera.Codecs) ([]camera.Config, error) {
	var errs []error

	rgb, rgbd := c.Cameras.RGB, c.Cameras.RGBD

	if len(rgb.FPS) != len(rgb.Names) || len(rgb.SaveMode) != len(rgb.Names) {
		errs = append(errs, fmt.Errorf("cameras.rgb: fps and rgb_save_mode must have one entry per camera (%d)", len(rgb.Names)))
	}

	n := len(rgbd.Names)
	if len(rgbd.FPS) != n || len(rgbd.DepthScale) != n || len(rgbd.RGBSaveMode) != n || len(rgbd.DepthSaveMode) != n {
		errs = append(errs, fmt.Errorf("cameras.rgbd: fps, depth_scale, rgb_save_mode and depth_save_mode must have one entry per camera (%d)", n))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	var (
		cams      []camera.Config
		usesVideo bool
	)

	parseMode := func(cam, field, raw string) camera.Mode {
		m, err := camera.ParseMode(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("camera %s %s: %w", cam, field, err))
		}

		usesVideo = usesVideo || m == camera.ModeVideo

		return m
	}

	seen := make(map[string]struct{})
	addCamera := func(cc camera.Config) {
		if cc.FPS <= 0 {
			errs = append(errs, fmt.Errorf("%w: camera %s has rate %v", camera.ErrInvalidRate, cc.Name, cc.FPS))
		}

		if _, dup := seen[cc.Name]; dup {
			errs = append(errs, fmt.Errorf("camera %s is listed twice", cc.Name))
		}

		seen[cc.Name] = struct{}{}
		cams = append(cams, cc)
	}

	for i, name := range rgb.Names {
		addCamera(camera.Config{
			Name:      name,
			FPS:       rgb.FPS[i],
			ColorMode: parseMode(name, "rgb_save_mode", rgb.SaveMode[i]),
		})
	}

	for i, name := range rgbd.Names {
		addCamera(camera.Config{
			Name:       name,
			FPS:        rgbd.FPS[i],
			ColorMode:  parseMode(name, "rgb_save_mode", rgbd.RGBSaveMode[i]),
			HasDepth:   true,
			DepthMode:  parseMode(name, "depth_save_mode", rgbd.DepthSaveMode[i]),
			DepthScale: rgbd.DepthScale[i],
		})
	}

	codec, err := codecs.Lookup(c.Cameras.VideoCodec)
	if err != nil && (usesVideo || errors.Is(err, camera.ErrInvalidCodec)) {
		errs = append(errs, err)
	}

	for i := range cams {
		cams[i].Codec = codec
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return cams, nil
}
