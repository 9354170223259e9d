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

package telemetry

import (
	"fmt"
	"time"
)

// headroomPercent is the extra room kept in every buffer so a late flush
// does not lose samples.
const headroomPercent = 10

// Capacity returns the number of samples a channel buffer must hold:
// ceil((1 + 0.1) * flush / sampling).
func Capacity(sampling, flush time.Duration) (int, error) {
	if sampling <= 0 || flush <= 0 {
		return 0, fmt.Errorf("%w: sampling %v, flush %v", ErrInvalidCapacity, sampling, flush)
	}

	num := int64(flush) * (100 + headroomPercent)
	den := int64(sampling) * 100

	n := (num + den - 1) / den
	if n < 1 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidCapacity, n)
	}

	return int(n), nil
}
