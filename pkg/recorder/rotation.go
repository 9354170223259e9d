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
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/robotlogger/pkg/telemetry"
)

// save is the store's save callback. Camera outputs are renamed after the
// data file, color before depth, and reopened unless this is the final
// save. The status snapshot is best effort.
func (e *Engine) save(ctx context.Context, prefix string, method telemetry.SaveMethod) error {
	reopen := method == telemetry.SavePeriodic

	var errs []error

	for _, cam := range e.cameras {
		if err := cam.Rotate(prefix, reopen); err != nil {
			e.rotationFailures.Add(1)
			e.log.Error().Err(err).Str("camera", cam.Name()).Str("prefix", prefix).Msg("Unable to rotate camera outputs")

			errs = append(errs, err)
		}
	}

	if path, err := e.status.Write(ctx, prefix); err != nil {
		e.statusFailures.Add(1)
		e.log.Warn().Err(err).Str("prefix", prefix).Msg("Unable to save the status snapshot")
	} else {
		e.log.Debug().Str("path", path).Msg("Status snapshot saved")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrRotation, errors.Join(errs...))
	}

	e.log.Info().Str("prefix", prefix).Str("method", method.String()).Msg("Recording saved")

	return nil
}
