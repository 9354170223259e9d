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

//go:generate mockgen -destination=mock_transport.go -package=transport github.com/carverauto/robotlogger/pkg/transport Namespace,Endpoint,Publisher

// Package transport defines the named-endpoint publish/subscribe contract
// the recorder discovers and reads external streams through.
package transport

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnknownKind     = errors.New("unknown transport kind")
	ErrNotFound        = errors.New("endpoint not found")
	ErrAlreadyDeclared = errors.New("endpoint already declared")
	ErrClosed          = errors.New("endpoint closed")
)

// Kind selects the delivery guarantees of a connection.
type Kind string

const (
	// Reliable delivers every message in order.
	Reliable Kind = "tcp"
	// Lossy may drop the oldest queued messages when the reader falls behind.
	Lossy Kind = "udp"
)

// ParseKind maps a carrier name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Reliable, Lossy:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Endpoint is a local named input. Receive never blocks.
type Endpoint interface {
	Name() string
	// Receive pops the oldest queued message, if any.
	Receive() ([]byte, bool)
	Pending() int
	Close() error
}

// Publisher is a named output other processes can connect to.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, data []byte) error
	Close() error
}

// Namespace resolves names to endpoints and wires them together.
type Namespace interface {
	Declare(local string) (Endpoint, error)
	Advertise(name string) (Publisher, error)
	// Connect routes messages published on remote into the local endpoint.
	Connect(ctx context.Context, remote, local string, kind Kind) error
	Exists(ctx context.Context, name string) bool
	List(ctx context.Context) ([]string, error)
}

// ReceiveLatest drains ep and returns only the newest message.
func ReceiveLatest(ep Endpoint) ([]byte, bool) {
	var (
		latest []byte
		got    bool
	)

	for {
		msg, ok := ep.Receive()
		if !ok {
			return latest, got
		}

		latest, got = msg, true
	}
}
