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

// Package logger provides structured logging on top of zerolog. Loggers are
// values passed to components; nothing here touches zerolog's globals.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type impl struct {
	logger zerolog.Logger
	// base is the level restored by SetDebug(false).
	base     zerolog.Level
	shutdown func(context.Context) error
}

type options struct {
	writers  []io.Writer
	shutdown []func(context.Context) error
}

// Option extends a logger built by New.
type Option func(*options)

// WithWriter copies every JSON log line to w, ahead of any console
// formatting.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writers = append(o.writers, w) }
}

// WithShutdown registers fn to run from Shutdown.
func WithShutdown(fn func(context.Context) error) Option {
	return func(o *options) { o.shutdown = append(o.shutdown, fn) }
}

// New builds a Logger from config. A nil config uses DefaultConfig.
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	level, err := parseLevel(config)
	if err != nil {
		return nil, err
	}

	out, err := openOutput(config.Output)
	if err != nil {
		return nil, err
	}

	switch config.Format {
	case "", FormatJSON:
	case FormatConsole:
		timeFormat := config.TimeFormat
		if timeFormat == "" {
			timeFormat = time.RFC3339
		}

		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat, NoColor: out != os.Stdout && out != os.Stderr}
	default:
		return nil, fmt.Errorf("unknown log format %q", config.Format)
	}

	if len(o.writers) > 0 {
		out = zerolog.MultiLevelWriter(append([]io.Writer{out}, o.writers...)...)
	}

	zlog := zerolog.New(out).Level(level).With().Timestamp().Logger()

	l := &impl{logger: zlog, base: level}
	if len(o.shutdown) > 0 {
		l.shutdown = func(ctx context.Context) error {
			var errs []error

			for _, fn := range o.shutdown {
				errs = append(errs, fn(ctx))
			}

			return errors.Join(errs...)
		}
	}

	return l, nil
}

// Shutdown flushes whatever log exporters were attached to log or to the
// logger it was derived from with Component.
func Shutdown(ctx context.Context, log Logger) error {
	if l, ok := log.(*impl); ok && l.shutdown != nil {
		return l.shutdown(ctx)
	}

	return nil
}

// Wrap adapts an existing zerolog.Logger.
func Wrap(zlog zerolog.Logger) Logger {
	return &impl{logger: zlog, base: zlog.GetLevel()}
}

// Component returns a Logger scoped to a component of an existing logger.
func Component(parent Logger, component string) Logger {
	zlog := parent.WithComponent(component)
	l := &impl{logger: zlog, base: zlog.GetLevel()}

	if p, ok := parent.(*impl); ok {
		l.shutdown = p.shutdown
	}

	return l
}

func parseLevel(config *Config) (zerolog.Level, error) {
	if config.Debug {
		return zerolog.DebugLevel, nil
	}

	if config.Level == "" {
		return zerolog.InfoLevel, nil
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", config.Level, err)
	}

	return level, nil
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log output: %w", err)
	}

	return f, nil
}

func (l *impl) Trace() *zerolog.Event { return l.logger.Trace() }
func (l *impl) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *impl) Info() *zerolog.Event  { return l.logger.Info() }
func (l *impl) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *impl) Error() *zerolog.Event { return l.logger.Error() }
func (l *impl) Fatal() *zerolog.Event { return l.logger.Fatal() }
func (l *impl) Panic() *zerolog.Event { return l.logger.Panic() }
func (l *impl) With() zerolog.Context { return l.logger.With() }

func (l *impl) WithComponent(component string) zerolog.Logger {
	return l.logger.With().Str("component", component).Logger()
}

func (l *impl) SetLevel(level zerolog.Level) {
	l.logger = l.logger.Level(level)
	l.base = level
}

func (l *impl) SetDebug(debug bool) {
	if debug {
		l.logger = l.logger.Level(zerolog.DebugLevel)

		return
	}

	l.logger = l.logger.Level(l.base)
}
