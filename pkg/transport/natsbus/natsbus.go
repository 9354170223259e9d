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

// Package natsbus implements transport.Namespace on NATS. Names are
// registered in a JetStream key-value bucket so every process sharing the
// bucket can list and resolve them; messages travel on core NATS subjects.
package natsbus

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/robotlogger/pkg/codec"
	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/transport"
)

const (
	DefaultBucket        = "robotlogger-names"
	DefaultSubjectPrefix = "robotlogger.data"

	roleInput  = "input"
	roleOutput = "output"
)

var errNoConnection = errors.New("nats connection is required")

// Config selects the registry bucket and subject namespace.
type Config struct {
	Bucket        string `json:"bucket" yaml:"bucket"`
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`
	LossyDepth    int    `json:"lossy_depth" yaml:"lossy_depth"`
}

type registration struct {
	Name    string `cbor:"name"`
	Role    string `cbor:"role"`
	Subject string `cbor:"subject"`
}

// Namespace is a transport.Namespace backed by a NATS connection it does
// not own.
type Namespace struct {
	nc     *nats.Conn
	kv     jetstream.KeyValue
	prefix string
	depth  int
	log    logger.Logger

	mu        sync.Mutex
	endpoints map[string]*endpoint
}

var _ transport.Namespace = (*Namespace)(nil)

// New opens (creating if needed) the registry bucket.
func New(ctx context.Context, nc *nats.Conn, cfg Config, log logger.Logger) (*Namespace, error) {
	if nc == nil {
		return nil, errNoConnection
	}

	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}

	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "robot logger endpoint registry",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open registry bucket %s: %w", cfg.Bucket, err)
	}

	return &Namespace{
		nc:        nc,
		kv:        kv,
		prefix:    cfg.SubjectPrefix,
		depth:     cfg.LossyDepth,
		log:       log,
		endpoints: make(map[string]*endpoint),
	}, nil
}

// encodeKey maps an arbitrary endpoint name onto the key and subject token
// alphabet.
func encodeKey(name string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(name))
}

func decodeKey(key string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(key)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func (n *Namespace) subject(name string) string {
	return n.prefix + "." + encodeKey(name)
}

func (n *Namespace) register(ctx context.Context, name, role string) error {
	data, err := codec.Marshal(registration{Name: name, Role: role, Subject: n.subject(name)})
	if err != nil {
		return err
	}

	if _, err := n.kv.Put(ctx, encodeKey(name), data); err != nil {
		return fmt.Errorf("failed to register %s: %w", name, err)
	}

	return nil
}

func (n *Namespace) lookup(ctx context.Context, name string) (*registration, error) {
	entry, err := n.kv.Get(ctx, encodeKey(name))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", transport.ErrNotFound, name)
		}

		return nil, err
	}

	var reg registration
	if err := codec.Unmarshal(entry.Value(), &reg); err != nil {
		return nil, fmt.Errorf("corrupt registration for %s: %w", name, err)
	}

	return &reg, nil
}

func (n *Namespace) Declare(local string) (transport.Endpoint, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.endpoints[local]; ok {
		return nil, fmt.Errorf("%w: %s", transport.ErrAlreadyDeclared, local)
	}

	if err := n.register(context.Background(), local, roleInput); err != nil {
		return nil, err
	}

	ep := &endpoint{
		ns:    n,
		name:  local,
		queue: transport.NewQueue(n.depth),
		subs:  make(map[string]*nats.Subscription),
	}
	n.endpoints[local] = ep

	return ep, nil
}

func (n *Namespace) Advertise(name string) (transport.Publisher, error) {
	if err := n.register(context.Background(), name, roleOutput); err != nil {
		return nil, err
	}

	return &publisher{ns: n, name: name, subject: n.subject(name)}, nil
}

func (n *Namespace) Connect(ctx context.Context, remote, local string, kind transport.Kind) error {
	if _, err := transport.ParseKind(string(kind)); err != nil {
		return err
	}

	reg, err := n.lookup(ctx, remote)
	if err != nil {
		return err
	}

	n.mu.Lock()
	ep, ok := n.endpoints[local]
	n.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", transport.ErrNotFound, local)
	}

	return ep.subscribe(ctx, remote, reg.Subject, kind)
}

func (n *Namespace) Exists(ctx context.Context, name string) bool {
	_, err := n.lookup(ctx, name)

	return err == nil
}

func (n *Namespace) List(ctx context.Context) ([]string, error) {
	lister, err := n.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list registry: %w", err)
	}

	defer func() { _ = lister.Stop() }()

	var names []string

	for key := range lister.Keys() {
		name, err := decodeKey(key)
		if err != nil {
			n.log.Debug().Str("key", key).Msg("Skipping foreign registry key")

			continue
		}

		names = append(names, name)
	}

	slices.Sort(names)

	return names, nil
}

// Close closes every endpoint declared through n.
func (n *Namespace) Close() error {
	n.mu.Lock()
	eps := make([]*endpoint, 0, len(n.endpoints))

	for _, ep := range n.endpoints {
		eps = append(eps, ep)
	}
	n.mu.Unlock()

	var errs []error

	for _, ep := range eps {
		errs = append(errs, ep.Close())
	}

	return errors.Join(errs...)
}

type endpoint struct {
	ns    *Namespace
	name  string
	queue *transport.Queue

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

func (e *endpoint) Name() string { return e.name }

func (e *endpoint) Receive() ([]byte, bool) { return e.queue.Take() }

func (e *endpoint) Pending() int { return e.queue.Len() }

func (e *endpoint) subscribe(ctx context.Context, remote, subject string, kind transport.Kind) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.subs == nil {
		return fmt.Errorf("%w: %s", transport.ErrClosed, e.name)
	}

	if _, ok := e.subs[remote]; ok {
		return nil
	}

	sub, err := e.ns.nc.Subscribe(subject, func(msg *nats.Msg) {
		e.queue.Put(msg.Data, kind)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe %s to %s: %w", e.name, remote, err)
	}

	if kind == transport.Reliable {
		_ = sub.SetPendingLimits(-1, -1)
	}

	// make sure the server knows about the interest before returning
	if err := flush(ctx, e.ns.nc); err != nil {
		_ = sub.Unsubscribe()

		return fmt.Errorf("failed to flush subscription: %w", err)
	}

	e.subs[remote] = sub

	return nil
}

// flush honors the caller's deadline when there is one.
func flush(ctx context.Context, nc *nats.Conn) error {
	if _, ok := ctx.Deadline(); ok {
		return nc.FlushWithContext(ctx)
	}

	return nc.Flush()
}

func (e *endpoint) Close() error {
	e.mu.Lock()
	subs := e.subs
	e.subs = nil
	e.mu.Unlock()

	if subs == nil {
		return nil
	}

	var errs []error

	for _, sub := range subs {
		errs = append(errs, sub.Unsubscribe())
	}

	e.ns.mu.Lock()
	delete(e.ns.endpoints, e.name)
	e.ns.mu.Unlock()

	e.queue.Close()

	if err := e.ns.kv.Delete(context.Background(), encodeKey(e.name)); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

type publisher struct {
	ns      *Namespace
	name    string
	subject string
}

func (p *publisher) Name() string { return p.name }

func (p *publisher) Publish(_ context.Context, data []byte) error {
	return p.ns.nc.Publish(p.subject, data)
}

func (p *publisher) Close() error {
	return p.ns.kv.Delete(context.Background(), encodeKey(p.name))
}
