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

// Package memory is an in-process transport.Namespace.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/carverauto/robotlogger/pkg/transport"
)

type route struct {
	ep   *endpoint
	kind transport.Kind
}

// Namespace keeps publishers and endpoints of one process. It is safe for
// concurrent use.
type Namespace struct {
	mu         sync.RWMutex
	endpoints  map[string]*endpoint
	publishers map[string]*publisher
	depth      int
}

var _ transport.Namespace = (*Namespace)(nil)

// New returns an empty namespace. depth bounds lossy endpoint queues; zero
// uses transport.DefaultLossyDepth.
func New(depth int) *Namespace {
	return &Namespace{
		endpoints:  make(map[string]*endpoint),
		publishers: make(map[string]*publisher),
		depth:      depth,
	}
}

func (n *Namespace) Declare(local string) (transport.Endpoint, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.taken(local) {
		return nil, fmt.Errorf("%w: %s", transport.ErrAlreadyDeclared, local)
	}

	ep := &endpoint{ns: n, name: local, queue: transport.NewQueue(n.depth)}
	n.endpoints[local] = ep

	return ep, nil
}

func (n *Namespace) Advertise(name string) (transport.Publisher, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.taken(name) {
		return nil, fmt.Errorf("%w: %s", transport.ErrAlreadyDeclared, name)
	}

	pub := &publisher{ns: n, name: name}
	n.publishers[name] = pub

	return pub, nil
}

func (n *Namespace) Connect(_ context.Context, remote, local string, kind transport.Kind) error {
	if _, err := transport.ParseKind(string(kind)); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	pub, ok := n.publishers[remote]
	if !ok {
		return fmt.Errorf("%w: %s", transport.ErrNotFound, remote)
	}

	ep, ok := n.endpoints[local]
	if !ok {
		return fmt.Errorf("%w: %s", transport.ErrNotFound, local)
	}

	if slices.ContainsFunc(pub.routes, func(r route) bool { return r.ep == ep }) {
		return nil
	}

	pub.routes = append(pub.routes, route{ep: ep, kind: kind})

	return nil
}

func (n *Namespace) Exists(_ context.Context, name string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.taken(name)
}

func (n *Namespace) List(context.Context) ([]string, error) {
	n.mu.RLock()
	names := make([]string, 0, len(n.endpoints)+len(n.publishers))

	for name := range n.endpoints {
		names = append(names, name)
	}

	for name := range n.publishers {
		names = append(names, name)
	}
	n.mu.RUnlock()

	slices.Sort(names)

	return names, nil
}

func (n *Namespace) taken(name string) bool {
	_, isEndpoint := n.endpoints[name]
	_, isPublisher := n.publishers[name]

	return isEndpoint || isPublisher
}

type endpoint struct {
	ns    *Namespace
	name  string
	queue *transport.Queue
}

func (e *endpoint) Name() string { return e.name }

func (e *endpoint) Receive() ([]byte, bool) { return e.queue.Take() }

func (e *endpoint) Pending() int { return e.queue.Len() }

func (e *endpoint) Close() error {
	e.ns.mu.Lock()
	defer e.ns.mu.Unlock()

	if e.ns.endpoints[e.name] == e {
		delete(e.ns.endpoints, e.name)
	}

	for _, pub := range e.ns.publishers {
		pub.routes = slices.DeleteFunc(pub.routes, func(r route) bool { return r.ep == e })
	}

	e.queue.Close()

	return nil
}

type publisher struct {
	ns     *Namespace
	name   string
	routes []route
}

func (p *publisher) Name() string { return p.name }

func (p *publisher) Publish(_ context.Context, data []byte) error {
	p.ns.mu.RLock()
	defer p.ns.mu.RUnlock()

	if p.ns.publishers[p.name] != p {
		return fmt.Errorf("%w: %s", transport.ErrClosed, p.name)
	}

	for _, r := range p.routes {
		r.ep.queue.Put(data, r.kind)
	}

	return nil
}

func (p *publisher) Close() error {
	p.ns.mu.Lock()
	defer p.ns.mu.Unlock()

	if p.ns.publishers[p.name] == p {
		delete(p.ns.publishers, p.name)
	}

	p.routes = nil

	return nil
}
