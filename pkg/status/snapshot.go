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

package status

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/models"
)

const (
	DefaultTimeout = 30 * time.Second
	FileExt        = ".md"

	description = "File containing all the installed software required to replicate the experiment.  "
)

// Command is one code status section.
type Command struct {
	Title string `json:"title" yaml:"title"`
	Cmd   string `json:"cmd" yaml:"cmd"`
}

// DefaultCommands lists the superbuild git status and the installed
// packages.
func DefaultCommands() []Command {
	return []Command{
		{Title: "ROBOTOLOGY", Cmd: "bash ${ROBOTOLOGY_SUPERBUILD_SOURCE_DIR}/scripts/robotologyGitStatus.sh"},
		{Title: "APT", Cmd: "apt list --installed"},
	}
}

// Config selects what the snapshot runs. With Prefixes every command is
// run once per prefix as `<prefix> "<cmd>"`.
type Config struct {
	Commands []Command       `json:"status_commands" yaml:"status_commands"`
	Prefixes []string        `json:"code_status_cmd_prefixes" yaml:"code_status_cmd_prefixes"`
	Timeout  models.Duration `json:"status_timeout" yaml:"status_timeout"`
}

// Session identifies one run of the recorder.
type Session struct {
	ID        uuid.UUID
	Start     time.Time
	RobotName string
}

func NewSession(robotName string, start time.Time) Session {
	return Session{ID: uuid.New(), Start: start, RobotName: robotName}
}

type Option func(*Writer)

// WithEnvironment replaces the host environment collector.
func WithEnvironment(fn EnvironmentFunc) Option {
	return func(w *Writer) { w.environment = fn }
}

// Writer renders status snapshots.
type Writer struct {
	log         logger.Logger
	runner      Runner
	session     Session
	commands    []Command
	prefixes    []string
	timeout     time.Duration
	environment EnvironmentFunc
}

func NewWriter(log logger.Logger, runner Runner, session Session, cfg Config, opts ...Option) *Writer {
	w := &Writer{
		log:         log,
		runner:      runner,
		session:     session,
		commands:    cfg.Commands,
		prefixes:    cfg.Prefixes,
		timeout:     cfg.Timeout.Std(),
		environment: HostEnvironment(log),
	}

	if len(w.commands) == 0 {
		w.commands = DefaultCommands()
	}

	if w.timeout <= 0 {
		w.timeout = DefaultTimeout
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

func (w *Writer) Session() Session { return w.session }

// section runs cmd and renders its output, or nothing if it did not exit
// cleanly.
func (w *Writer) section(ctx context.Context, buf *bytes.Buffer, title, cmd string) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	out, exit, err := w.runner.Run(ctx, cmd)
	if err != nil {
		w.log.Warn().Err(err).Str("command", cmd).Msg("Unable to run status command")

		return
	}

	if exit != 0 {
		w.log.Debug().Str("command", cmd).Int("exit", exit).Msg("Status command failed, section omitted")

		return
	}

	fmt.Fprintf(buf, "### %s\n```\n%s\n```\n", title, out)
}

// Render builds the snapshot of a recording saved under prefix.
func (w *Writer) Render(ctx context.Context, prefix string) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n%s\n\n", filepath.Base(prefix), description)

	buf.WriteString("## Session\n")
	fmt.Fprintf(&buf, "- id: %s\n", w.session.ID)
	fmt.Fprintf(&buf, "- start: %s\n", w.session.Start.Format(time.RFC3339))

	if w.session.RobotName != "" {
		fmt.Fprintf(&buf, "- robot: %s\n", w.session.RobotName)
	}

	if facts := w.environment(ctx); len(facts) > 0 {
		buf.WriteString("\n## Environment\n")

		for _, f := range facts {
			fmt.Fprintf(&buf, "- %s: %s\n", f.Name, f.Value)
		}
	}

	buf.WriteString("\n")

	if len(w.prefixes) == 0 {
		for _, c := range w.commands {
			w.section(ctx, &buf, c.Title, c.Cmd)
		}

		return buf.Bytes()
	}

	for _, p := range w.prefixes {
		fmt.Fprintf(&buf, "## `%s`\n", p)

		for _, c := range w.commands {
			w.section(ctx, &buf, c.Title, p+` "`+c.Cmd+`"`)
		}
	}

	return buf.Bytes()
}

// Write renders the snapshot and stores it as <prefix>.md.
func (w *Writer) Write(ctx context.Context, prefix string) (string, error) {
	path := prefix + FileExt

	if err := os.WriteFile(path, w.Render(ctx, prefix), 0o644); err != nil {
		return "", fmt.Errorf("failed to write status file %s: %w", path, err)
	}

	return path, nil
}
