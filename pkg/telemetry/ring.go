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

type entry struct {
	timestamp float64
	values    []float64
	record    any
}

// ring is a fixed-capacity sample buffer that overwrites its oldest entry
// when full.
type ring struct {
	buf  []entry
	head int
	n    int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]entry, capacity)}
}

// push stores e and reports whether an older entry was dropped.
func (r *ring) push(e entry) bool {
	if r.n == len(r.buf) {
		r.buf[r.head] = e
		r.head = (r.head + 1) % len(r.buf)

		return true
	}

	r.buf[(r.head+r.n)%len(r.buf)] = e
	r.n++

	return false
}

func (r *ring) len() int {
	return r.n
}

// entries returns the buffered entries oldest first.
func (r *ring) entries() []entry {
	out := make([]entry, 0, r.n)
	for i := 0; i < r.n; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}

	return out
}
