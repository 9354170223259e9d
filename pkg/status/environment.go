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
	"context"
	"runtime"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/version"
)

// Fact is one line of the environment section.
type Fact struct {
	Name  string
	Value string
}

// EnvironmentFunc describes the machine the recorder runs on.
type EnvironmentFunc func(ctx context.Context) []Fact

// HostEnvironment collects host facts with gopsutil. Items that cannot be
// read are left out.
func HostEnvironment(log logger.Logger) EnvironmentFunc {
	return func(ctx context.Context) []Fact {
		facts := []Fact{
			{Name: "robot_logger", Value: version.GetFullVersion()},
			{Name: "go_runtime", Value: runtime.Version()},
		}

		if info, err := host.InfoWithContext(ctx); err != nil {
			log.Debug().Err(err).Msg("host info unavailable")
		} else {
			facts = append(facts,
				Fact{Name: "hostname", Value: info.Hostname},
				Fact{Name: "os", Value: info.OS + " " + info.Platform + " " + info.PlatformVersion},
				Fact{Name: "kernel", Value: info.KernelVersion + " (" + info.KernelArch + ")"},
				Fact{Name: "uptime", Value: (time.Duration(info.Uptime) * time.Second).String()},
				Fact{Name: "processes", Value: strconv.FormatUint(info.Procs, 10)},
			)
		}

		if n, err := cpu.CountsWithContext(ctx, true); err != nil {
			log.Debug().Err(err).Msg("cpu count unavailable")
		} else {
			facts = append(facts, Fact{Name: "cpus", Value: strconv.Itoa(n)})
		}

		if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
			log.Debug().Err(err).Msg("memory stats unavailable")
		} else {
			memory := strconv.FormatUint(vm.Available>>20, 10) + " MiB available of " + strconv.FormatUint(vm.Total>>20, 10) + " MiB"
			facts = append(facts, Fact{Name: "memory", Value: memory})
		}

		if avg, err := load.AvgWithContext(ctx); err != nil {
			log.Debug().Err(err).Msg("load average unavailable")
		} else {
			loads := strconv.FormatFloat(avg.Load1, 'f', 2, 64) + " " +
				strconv.FormatFloat(avg.Load5, 'f', 2, 64) + " " +
				strconv.FormatFloat(avg.Load15, 'f', 2, 64)
			facts = append(facts, Fact{Name: "load", Value: loads})
		}

		return facts
	}
}
