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

// Package recorder assembles the telemetry recorder: the main sampling
// loop, signal discovery, text log aggregation, camera recording and the
// save and rotation lifecycle around the telemetry store.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carverauto/robotlogger/pkg/camera"
	"github.com/carverauto/robotlogger/pkg/clock"
	"github.com/carverauto/robotlogger/pkg/discovery"
	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/sensors"
	"github.com/carverauto/robotlogger/pkg/status"
	"github.com/carverauto/robotlogger/pkg/telemetry"
	"github.com/carverauto/robotlogger/pkg/textlog"
	"github.com/carverauto/robotlogger/pkg/transport"
)

// Deps are the collaborators of an Engine. Every field has a default or is
// optional.
type Deps struct {
	Logger logger.Logger
	Clock  clock.Clock
	// Sensors is required when any sensor stream is enabled.
	Sensors sensors.Bridge
	// Cameras is required when cameras are configured.
	Cameras camera.Bridge
	// Namespace is required when signals are configured. Text logs are
	// aggregated whenever it is set.
	Namespace transport.Namespace
	// Store defaults to a telemetry.BufferStore.
	Store      telemetry.Store
	Runner     status.Runner
	Registerer prometheus.Registerer
	Codecs     camera.Codecs
	// StatusOptions are passed to the status writer.
	StatusOptions []status.Option
}

// Engine owns every recording worker.
type Engine struct {
	cfg   *Config
	log   logger.Logger
	clock clock.Clock
	store telemetry.Store
	reg   prometheus.Registerer

	sampler    *sensors.Sampler
	discovery  *discovery.Manager
	aggregator *textlog.Aggregator
	cameras    []*camera.Recorder
	status     *status.Writer

	worker *clock.Worker

	mu      sync.Mutex
	opened  bool
	started bool
	closed  bool

	ticks            atomic.Uint64
	overruns         atomic.Uint64
	batchFailures    atomic.Uint64
	rotationFailures atomic.Uint64
	statusFailures   atomic.Uint64
}

func anySensorStream(s sensors.Streams) bool {
	return s.JointStates || s.MotorStates || s.MotorPWM || s.PIDs ||
		s.ForceTorque || s.Inertials || s.CartesianWrenches || s.Temperatures
}

// New validates cfg and builds every component. Nothing runs and nothing
// is written until Open.
func New(cfg *Config, deps Deps) (*Engine, error) {
	codecs := deps.Codecs
	if codecs == nil {
		codecs = camera.DefaultCodecs()
	}

	if err := cfg.validate(codecs); err != nil {
		return nil, err
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}

	if anySensorStream(cfg.Sensors.Streams) && deps.Sensors == nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, errNoSensors)
	}

	if cfg.HasCameras() && deps.Cameras == nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, errNoCameras)
	}

	signals := cfg.ExogenousSignals
	if len(signals.VectorsCollectionInputs)+len(signals.VectorInputs) > 0 && deps.Namespace == nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, errNoNamespace)
	}

	store := deps.Store
	if store == nil {
		store = telemetry.NewBufferStore(logger.Component(log, "telemetry"), clk, nil)
	}

	reg := deps.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	runner := deps.Runner
	if runner == nil {
		runner = status.ShellRunner{}
	}

	e := &Engine{
		cfg:   cfg,
		log:   log,
		clock: clk,
		store: store,
		reg:   reg,
	}

	if deps.Sensors != nil {
		e.sampler = sensors.NewSampler(logger.Component(log, "sensors"), deps.Sensors, cfg.Sensors.Streams)
	}

	if deps.Namespace != nil {
		e.discovery = discovery.NewManager(logger.Component(log, "discovery"), clk, deps.Namespace, signals.Period.Std())
		e.aggregator = textlog.NewAggregator(logger.Component(log, "textlog"), clk, deps.Namespace, cfg.TextLogging)
	}

	cams, err := cfg.cameraConfigs(codecs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if err := e.buildCameras(cams, deps.Cameras); err != nil {
		return nil, err
	}

	session := status.NewSession(cfg.Telemetry.RobotName, clk.Now())
	e.status = status.NewWriter(logger.Component(log, "status"), runner, session, cfg.statusConfig(), deps.StatusOptions...)

	return e, nil
}

func (e *Engine) buildCameras(cams []camera.Config, bridge camera.Bridge) error {
	if len(cams) == 0 {
		return nil
	}

	dir := e.cfg.Telemetry.OutputDir
	if dir == "" {
		dir = "."
	}

	meta := bridge.Metadata()

	for _, cc := range cams {
		cc.Dir = dir

		if size, ok := e.cfg.Cameras.Dimensions[cc.Name]; ok {
			cc.Size = size
		} else {
			cc.Size = meta.Dimensions[cc.Name]
		}

		rec, err := camera.NewRecorder(logger.Component(e.log, "camera"), e.clock, bridge, e.store, cc)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfiguration, err)
		}

		e.cameras = append(e.cameras, rec)
	}

	return nil
}

// Open configures the store, creates every static channel, declares the
// transport endpoints, opens the camera outputs and registers metrics.
func (e *Engine) Open() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.openLocked()
}

func (e *Engine) openLocked() error {
	if e.closed {
		return errClosed
	}

	if e.opened {
		return nil
	}

	if err := e.store.Configure(e.cfg.storeConfig()); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if e.sampler != nil {
		if err := e.sampler.Setup(e.store); err != nil {
			return err
		}
	}

	if e.discovery != nil {
		signals := e.cfg.ExogenousSignals
		if err := e.discovery.Setup(signals.VectorsCollectionInputs, signals.VectorInputs); err != nil {
			return fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
	}

	if e.aggregator != nil {
		if err := e.aggregator.Open(); err != nil {
			return fmt.Errorf("failed to open text log collector: %w", err)
		}
	}

	for _, cam := range e.cameras {
		if err := cam.Open(); err != nil {
			return fmt.Errorf("failed to open camera %s: %w", cam.Name(), err)
		}
	}

	e.store.SetSaveCallback(e.save)

	if err := e.registerMetrics(); err != nil {
		return err
	}

	e.opened = true

	e.log.Info().
		Dur("sampling_period", e.cfg.SamplingPeriod.Std()).
		Dur("save_period", e.cfg.Telemetry.SavePeriod.Std()).
		Int("cameras", len(e.cameras)).
		Msg("Recorder ready")

	return nil
}

// Tick runs one iteration of the main sampling loop. All pushes of the
// iteration land in the same flush interval.
func (e *Engine) Tick(time.Time) {
	if e.sampler != nil {
		_ = e.sampler.Advance()
	}

	now := clock.Seconds(e.clock.Now())

	err := e.store.Batch(func(w telemetry.Writer) error {
		if e.sampler != nil {
			e.sampler.Sample(w, now)
		}

		if e.discovery != nil {
			e.discovery.Drain(w, now)
		}

		if e.aggregator != nil {
			e.aggregator.Drain(w, now)
		}

		return nil
	})
	if err != nil {
		e.batchFailures.Add(1)
		e.log.Debug().Err(err).Msg("Sampling iteration rejected by the store")
	}

	e.ticks.Add(1)
}

// Start opens the engine if needed and launches every worker.
func (e *Engine) Start(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return errAlreadyStarted
	}

	if err := e.openLocked(); err != nil {
		return err
	}

	if e.discovery != nil {
		if err := e.discovery.Start(); err != nil {
			return err
		}
	}

	if e.aggregator != nil {
		if err := e.aggregator.Start(); err != nil {
			return err
		}
	}

	for _, cam := range e.cameras {
		if err := cam.Start(); err != nil {
			return fmt.Errorf("failed to start camera %s: %w", cam.Name(), err)
		}
	}

	if err := e.store.Start(); err != nil {
		return err
	}

	w, err := clock.NewWorker("main-loop", e.clock, e.cfg.SamplingPeriod.Std())
	if err != nil {
		return err
	}

	w.OnOverrun(func(late time.Duration) {
		e.overruns.Add(1)
		e.log.Info().Dur("late", late).Msg("Sampling loop spent more time than its period")
	})

	e.worker = w

	if err := w.Start(e.Tick); err != nil {
		return err
	}

	e.started = true

	return nil
}

// Stop is Close; it lets the engine run as a lifecycle service.
func (e *Engine) Stop(ctx context.Context) error {
	return e.Close(ctx)
}

// Close stops the main loop, the camera workers, the text log aggregator
// and signal discovery in that order, then closes the store. Closing the
// store performs the final save, which finalizes the camera outputs
// without reopening them. Close is idempotent.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.closed = true

	if e.worker != nil {
		e.worker.Stop()
	}

	for _, cam := range e.cameras {
		cam.Stop()
	}

	if e.aggregator != nil {
		e.aggregator.Stop()
	}

	if e.discovery != nil {
		e.discovery.Stop()
	}

	var errs []error

	if e.opened {
		if err := e.store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("final save: %w", err))
		}
	}

	for _, cam := range e.cameras {
		errs = append(errs, cam.Close())
	}

	if e.aggregator != nil {
		errs = append(errs, e.aggregator.Close())
	}

	if e.discovery != nil {
		errs = append(errs, e.discovery.Close())
	}

	err := errors.Join(errs...)
	if err != nil {
		e.log.Error().Err(err).Msg("Recorder closed with errors")
	} else {
		e.log.Info().Msg("Recorder closed")
	}

	return err
}

// Cameras returns the camera recorders in configuration order, RGB cameras
// first.
func (e *Engine) Cameras() []*camera.Recorder { return e.cameras }

// Session returns the recording session stamped in status snapshots.
func (e *Engine) Session() status.Session { return e.status.Session() }

// Store returns the telemetry store the engine writes to.
func (e *Engine) Store() telemetry.Store { return e.store }
