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

// Command robot-logger records robot telemetry, camera streams, external
// signals and text logs into rotating data files.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/carverauto/robotlogger/pkg/config"
	"github.com/carverauto/robotlogger/pkg/lifecycle"
	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/natsbridge"
	"github.com/carverauto/robotlogger/pkg/natsutil"
	"github.com/carverauto/robotlogger/pkg/recorder"
	"github.com/carverauto/robotlogger/pkg/transport/natsbus"
	"github.com/carverauto/robotlogger/pkg/version"
)

const (
	serviceName        = "robot-logger"
	readHeaderTimeout  = 5 * time.Second
	defaultConfigPath  = "/etc/robot-logger/robot-logger.yaml"
	metricsShutdownMax = 2 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("robot-logger: %v", err)
	}
}

func run() error {
	flags := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", defaultConfigPath, "path to the YAML or JSON configuration file")
	metricsAddr := flags.String("metrics-addr", "", "address serving Prometheus metrics; overrides metrics_addr")
	debug := flags.Bool("debug", false, "enable debug logging")
	showVersion := flags.Bool("version", false, "print the version and exit")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}

		return err
	}

	if *showVersion {
		fmt.Println(version.GetFullVersion())

		return nil
	}

	ctx := context.Background()

	var cfg recorder.Config
	if err := config.NewConfig(nil).Strict().LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := cfg.Logging
	if logCfg == nil {
		logCfg = logger.DefaultConfig()
	}

	if *debug {
		logCfg.Debug = true
		logCfg.Level = "debug"
	}

	appLog, err := lifecycle.CreateComponentLogger(serviceName, logCfg)
	if err != nil {
		return err
	}

	appLog.Info().Str("version", version.GetFullVersion()).Msg("Starting robot logger")

	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	svc, err := newService(ctx, &cfg, appLog)
	if err != nil {
		_ = logger.Shutdown(ctx, appLog)

		return err
	}

	return lifecycle.RunService(ctx, &lifecycle.ServiceOptions{
		ServiceName: serviceName,
		Service:     svc,
		Logger:      appLog,
	})
}

// service ties the recorder engine to its NATS bridges and the metrics
// endpoint.
type service struct {
	log     logger.Logger
	nc      *nats.Conn
	bus     *natsbus.Namespace
	sensors *natsbridge.Sensors
	cameras *natsbridge.Cameras
	engine  *recorder.Engine
	metrics *http.Server
}

func newService(ctx context.Context, cfg *recorder.Config, log logger.Logger) (_ *service, err error) {
	svc := &service{log: log}

	defer func() {
		if err != nil {
			svc.closeBridges()
		}
	}()

	svc.nc, err = natsutil.Connect(logger.Component(log, "nats"), cfg.NATS.URL, serviceName, cfg.NATS.Security)
	if err != nil {
		return nil, err
	}

	svc.bus, err = natsbus.New(ctx, svc.nc, cfg.NATSBusConfig(), logger.Component(log, "natsbus"))
	if err != nil {
		return nil, err
	}

	svc.sensors, err = natsbridge.NewSensors(svc.nc, cfg.SensorBridgeConfig(), logger.Component(log, "sensor-bridge"))
	if err != nil {
		return nil, err
	}

	deps := recorder.Deps{
		Logger:    log,
		Sensors:   svc.sensors,
		Namespace: svc.bus,
	}

	if cfg.HasCameras() {
		svc.cameras, err = natsbridge.NewCameras(svc.nc, cfg.CameraBridgeConfig(), logger.Component(log, "camera-bridge"))
		if err != nil {
			return nil, err
		}

		deps.Cameras = svc.cameras
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps.Registerer = reg

	svc.engine, err = recorder.New(cfg, deps)
	if err != nil {
		return nil, err
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

		svc.metrics = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		}
	}

	return svc, nil
}

func (s *service) Start(ctx context.Context) error {
	if err := s.engine.Start(ctx); err != nil {
		return err
	}

	if s.metrics != nil {
		go func() {
			s.log.Info().Str("addr", s.metrics.Addr).Msg("Serving metrics")

			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	return nil
}

func (s *service) Stop(ctx context.Context) error {
	if s.metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, metricsShutdownMax)
		defer cancel()

		if err := s.metrics.Shutdown(shutdownCtx); err != nil {
			s.log.Warn().Err(err).Msg("Metrics server did not shut down cleanly")
		}
	}

	err := s.engine.Stop(ctx)

	s.closeBridges()

	return err
}

func (s *service) closeBridges() {
	if s.cameras != nil {
		_ = s.cameras.Close()
	}

	if s.sensors != nil {
		_ = s.sensors.Close()
	}

	if s.bus != nil {
		_ = s.bus.Close()
	}

	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			s.log.Debug().Err(err).Msg("NATS drain failed")
			s.nc.Close()
		}
	}
}
