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

// Package lifecycle builds injected loggers and runs long-lived services
// until they are signalled to stop.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/carverauto/robotlogger/pkg/logger"
)

// CreateLogger creates a new logger instance with the provided configuration.
// This returns a logger that can be injected into services. When OTel export
// is enabled every line is also shipped to the collector; logger.Shutdown
// flushes it.
func CreateLogger(config *logger.Config) (logger.Logger, error) {
	if config == nil {
		config = logger.DefaultConfig()
	}

	var (
		opts       []logger.Option
		otelWriter *logger.OTelWriter
		err        error
	)

	if config.OTel.Enabled {
		otelWriter, err = logger.NewOTelWriter(context.Background(), config.OTel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OTel log export: %w", err)
		}

		opts = append(opts, logger.WithWriter(otelWriter), logger.WithShutdown(otelWriter.Shutdown))
	}

	log, err := logger.New(config, opts...)
	if err != nil {
		if otelWriter != nil {
			_ = otelWriter.Shutdown(context.Background())
		}

		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return log, nil
}

// CreateComponentLogger creates a logger for a specific component.
func CreateComponentLogger(component string, config *logger.Config) (logger.Logger, error) {
	log, err := CreateLogger(config)
	if err != nil {
		return nil, err
	}

	return logger.Component(log, component), nil
}
