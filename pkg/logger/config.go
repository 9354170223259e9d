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

package logger

import (
	"os"
	"strings"

	"github.com/carverauto/robotlogger/pkg/models"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config selects the level, destination and encoding of log lines. Output is
// "stdout", "stderr" or a file path opened for appending. TimeFormat only
// applies to console output.
type Config struct {
	Level      string `json:"level" yaml:"level"`
	Debug      bool   `json:"debug" yaml:"debug"`
	Output     string `json:"output" yaml:"output"`
	Format     string `json:"format" yaml:"format"`
	TimeFormat string `json:"time_format" yaml:"time_format"`
	// OTel is disabled unless enabled explicitly.
	OTel OTelConfig `json:"otel" yaml:"otel"`
}

// DefaultConfig reads LOG_LEVEL, DEBUG, LOG_OUTPUT, LOG_FORMAT,
// LOG_TIME_FORMAT and the OTEL_LOGS_* variables.
func DefaultConfig() *Config {
	return &Config{
		Level:      envOr("LOG_LEVEL", "info"),
		Debug:      envBool("DEBUG"),
		Output:     envOr("LOG_OUTPUT", "stdout"),
		Format:     envOr("LOG_FORMAT", FormatJSON),
		TimeFormat: os.Getenv("LOG_TIME_FORMAT"),
		OTel:       DefaultOTelConfig(),
	}
}

// DefaultOTelConfig reads OTEL_LOGS_ENABLED, OTEL_LOGS_ENDPOINT and
// OTEL_LOGS_INSECURE.
func DefaultOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      envBool("OTEL_LOGS_ENABLED"),
		Endpoint:     os.Getenv("OTEL_LOGS_ENDPOINT"),
		Insecure:     envBool("OTEL_LOGS_INSECURE"),
		ServiceName:  defaultOTelServiceName,
		BatchTimeout: models.Duration(defaultOTelBatchTimeout),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
