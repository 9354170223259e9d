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
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "robotlogger"

func counterFunc(name, help string, labels prometheus.Labels, fn func() uint64) prometheus.Collector {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	}, func() float64 { return float64(fn()) })
}

func (e *Engine) collectors() []prometheus.Collector {
	cs := []prometheus.Collector{
		counterFunc("ticks_total", "Main sampling loop iterations.", nil, e.ticks.Load),
		counterFunc("loop_overruns_total", "Main sampling loop iterations that missed their deadline.", nil, e.overruns.Load),
		counterFunc("batch_failures_total", "Sampling iterations rejected by the telemetry store.", nil, e.batchFailures.Load),
		counterFunc("rotation_failures_total", "Camera outputs that could not be finalized or reopened.", nil, e.rotationFailures.Load),
		counterFunc("status_failures_total", "Status snapshots that could not be written.", nil, e.statusFailures.Load),
	}

	if e.sampler != nil {
		cs = append(cs, counterFunc("sensor_advance_failures_total", "Sensor bridge advance failures.", nil, e.sampler.AdvanceFailures))

		for _, category := range e.sampler.Categories() {
			cs = append(cs, counterFunc("sensor_misses_total", "Sensor readings that were not available.",
				prometheus.Labels{"category": category},
				func() uint64 { return e.sampler.Misses(category) }))
		}
	}

	if e.discovery != nil {
		cs = append(cs,
			counterFunc("discovery_misses_total", "Discovery probes that did not find the remote endpoint.", nil, e.discovery.Misses),
			counterFunc("discovery_connect_failures_total", "Failed signal connections.", nil, e.discovery.ConnectFailures),
			counterFunc("discovery_rejected_messages_total", "Signal messages that could not be decoded or stored.", nil, e.discovery.Rejected),
		)
	}

	if e.aggregator != nil {
		cs = append(cs,
			counterFunc("textlog_connect_failures_total", "Failed text log publisher connections.", nil, e.aggregator.ConnectFailures),
			counterFunc("textlog_malformed_total", "Dropped malformed text log entries.", nil, e.aggregator.Malformed),
		)
	}

	for _, cam := range e.cameras {
		labels := prometheus.Labels{"camera": cam.Name()}

		cs = append(cs,
			counterFunc("camera_fetch_failures_total", "Frames that could not be fetched.", labels, cam.FetchFailures),
			counterFunc("camera_write_failures_total", "Frames that could not be written.", labels, cam.WriteFailures),
			counterFunc("camera_overruns_total", "Camera iterations that missed their deadline.", labels, cam.Overruns),
		)
	}

	if d, ok := e.store.(interface{ Dropped() uint64 }); ok {
		cs = append(cs, counterFunc("store_dropped_samples_total", "Samples evicted from full buffers.", nil, d.Dropped))
	}

	return cs
}

func (e *Engine) registerMetrics() error {
	for _, c := range e.collectors() {
		if err := e.reg.Register(c); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	return nil
}
