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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewDebugOverridesLevel(t *testing.T) {
	log, err := New(&Config{Level: "warn", Debug: true, Output: "stdout"})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	if !log.Debug().Enabled() {
		t.Error("Expected debug events to be enabled when Debug is set")
	}
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}); err == nil {
		t.Error("Expected an error for an unknown level")
	}

	if _, err := New(&Config{Format: "xml"}); err == nil {
		t.Error("Expected an error for an unknown format")
	}
}

func TestSetDebugRestoresConfiguredLevel(t *testing.T) {
	log, err := New(&Config{Level: "warn"})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	log.SetDebug(true)

	if !log.Debug().Enabled() {
		t.Error("Expected debug level after SetDebug(true)")
	}

	log.SetDebug(false)

	if log.Info().Enabled() {
		t.Error("Expected warn level after SetDebug(false)")
	}

	if !log.Warn().Enabled() {
		t.Error("Expected warn events to stay enabled")
	}
}

func TestFileOutputAppendsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot-logger.log")

	for _, msg := range []string{"first", "second"} {
		log, err := New(&Config{Output: path})
		if err != nil {
			t.Fatalf("Failed to initialize logger: %v", err)
		}

		log.Info().Msg(msg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d", len(lines))
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("Failed to decode log line: %v", err)
	}

	if entry["message"] != "second" {
		t.Errorf("Expected the second message last, got %v", entry["message"])
	}
}

func TestConsoleFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")

	log, err := New(&Config{Output: path, Format: FormatConsole, TimeFormat: "15:04"})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	Component(log, "camera").Info().Msg("segment rotated")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	line := string(data)
	if !strings.Contains(line, "segment rotated") || !strings.Contains(line, "component=camera") {
		t.Errorf("Unexpected console line %q", line)
	}

	if json.Valid(data) {
		t.Error("Console output should not be JSON")
	}
}

func TestComponentAddsField(t *testing.T) {
	var buf bytes.Buffer

	log := Component(Wrap(zerolog.New(&buf)), "camera")
	log.Info().Msg("frame dropped")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to decode log line: %v", err)
	}

	if entry["component"] != "camera" {
		t.Errorf("Expected component field, got %v", entry["component"])
	}
}

func TestDefaultConfigReadsEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_OUTPUT", "")
	t.Setenv("DEBUG", "yes")
	t.Setenv("LOG_FORMAT", FormatConsole)

	config := DefaultConfig()

	if config.Level != "info" || config.Output != "stdout" {
		t.Errorf("Unexpected defaults %+v", config)
	}

	if !config.Debug || config.Format != FormatConsole {
		t.Errorf("Environment not applied: %+v", config)
	}
}

func TestTestLoggerDiscards(t *testing.T) {
	log := NewTestLogger()

	if log.Error().Enabled() {
		t.Error("Test logger should be disabled")
	}

	if Component(log, "status").Error().Enabled() {
		t.Error("Component of a test logger should be disabled")
	}
}
