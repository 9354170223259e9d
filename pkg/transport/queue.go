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

package transport

import "sync"

// DefaultLossyDepth bounds how many lossy messages an endpoint queues.
const DefaultLossyDepth = 64

// Queue is the receive buffer behind an endpoint. Reliable messages are
// always kept; a lossy message arriving at a full queue evicts the oldest
// entry.
type Queue struct {
	mu         sync.Mutex
	msgs       [][]byte
	lossyDepth int
	dropped    uint64
	closed     bool
}

// NewQueue returns a queue bounding lossy deliveries at depth messages.
func NewQueue(depth int) *Queue {
	if depth <= 0 {
		depth = DefaultLossyDepth
	}

	return &Queue{lossyDepth: depth}
}

// Put enqueues a copy of msg. It reports false once the queue is closed.
func (q *Queue) Put(msg []byte, kind Kind) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	if kind == Lossy && len(q.msgs) >= q.lossyDepth {
		q.msgs[0] = nil
		q.msgs = q.msgs[1:]
		q.dropped++
	}

	q.msgs = append(q.msgs, append([]byte(nil), msg...))

	return true
}

func (q *Queue) Take() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.msgs) == 0 {
		return nil, false
	}

	msg := q.msgs[0]
	q.msgs[0] = nil
	q.msgs = q.msgs[1:]

	return msg, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.msgs)
}

// Dropped returns the number of lossy messages evicted.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.dropped
}

func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.msgs = nil
}
