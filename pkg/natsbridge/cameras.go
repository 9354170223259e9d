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

package natsbridge

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	// frame decoders
	_ "image/jpeg"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/robotlogger/pkg/camera"
	"github.com/carverauto/robotlogger/pkg/codec"
	"github.com/carverauto/robotlogger/pkg/logger"
)

const DefaultCameraSubjectPrefix = "robotlogger.cameras"

var (
	// ErrNoFrame is returned until a camera published its first frame.
	ErrNoFrame = errors.New("no frame received yet")

	errBadDepthFrame = errors.New("depth frame size does not match its dimensions")
)

// CamerasConfig lists the cameras whose frames are received. Color frames
// are published as encoded PNG or JPEG images on <prefix>.<camera>.rgb,
// depth frames as CBOR camera.DepthFrame on <prefix>.<camera>.depth.
type CamerasConfig struct {
	SubjectPrefix string
	RGB           []string
	RGBD          []string
	Dimensions    map[string]camera.Dimensions
}

func subject(prefix, name string, kind camera.StreamKind) string {
	return prefix + "." + name + "." + string(kind)
}

// Cameras is a camera.Bridge keeping the newest payload per stream. Frames
// are decoded when fetched.
type Cameras struct {
	cfg  CamerasConfig
	log  logger.Logger
	subs []*nats.Subscription

	mu     sync.Mutex
	latest map[string][]byte
}

var _ camera.Bridge = (*Cameras)(nil)

// NewCameras subscribes to the color stream of every camera and the depth
// stream of RGBD cameras.
func NewCameras(nc *nats.Conn, cfg CamerasConfig, log logger.Logger) (*Cameras, error) {
	if nc == nil {
		return nil, errNoConnection
	}

	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultCameraSubjectPrefix
	}

	c := &Cameras{cfg: cfg, log: log, latest: make(map[string][]byte)}

	var subjects []string
	for _, name := range cfg.RGB {
		subjects = append(subjects, subject(cfg.SubjectPrefix, name, camera.Color))
	}

	for _, name := range cfg.RGBD {
		subjects = append(subjects,
			subject(cfg.SubjectPrefix, name, camera.Color),
			subject(cfg.SubjectPrefix, name, camera.Depth))
	}

	for _, subj := range subjects {
		sub, err := nc.Subscribe(subj, c.handle)
		if err != nil {
			_ = c.Close()

			return nil, fmt.Errorf("failed to subscribe to %s: %w", subj, err)
		}

		c.subs = append(c.subs, sub)
	}

	if err := nc.Flush(); err != nil {
		_ = c.Close()

		return nil, fmt.Errorf("failed to flush camera subscriptions: %w", err)
	}

	log.Info().Int("subjects", len(subjects)).Msg("Subscribed to camera streams")

	return c, nil
}

func (c *Cameras) handle(msg *nats.Msg) {
	c.mu.Lock()
	c.latest[msg.Subject] = msg.Data
	c.mu.Unlock()
}

func (c *Cameras) payload(name string, kind camera.StreamKind) ([]byte, error) {
	c.mu.Lock()
	data, ok := c.latest[subject(c.cfg.SubjectPrefix, name, kind)]
	c.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNoFrame, name, kind)
	}

	return data, nil
}

func (c *Cameras) Metadata() camera.Metadata {
	return camera.Metadata{RGB: c.cfg.RGB, RGBD: c.cfg.RGBD, Dimensions: c.cfg.Dimensions}
}

func (c *Cameras) ColorFrame(name string) (image.Image, error) {
	data, err := c.payload(name, camera.Color)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s color frame: %w", name, err)
	}

	return img, nil
}

func (c *Cameras) DepthFrame(name string) (*camera.DepthFrame, error) {
	data, err := c.payload(name, camera.Depth)
	if err != nil {
		return nil, err
	}

	var frame camera.DepthFrame
	if err := codec.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("decode %s depth frame: %w", name, err)
	}

	if frame.Width < 0 || frame.Height < 0 || len(frame.Pix) != frame.Width*frame.Height {
		return nil, fmt.Errorf("%w: %s", errBadDepthFrame, name)
	}

	return &frame, nil
}

// Close drops every subscription.
func (c *Cameras) Close() error {
	var errs []error

	for _, sub := range c.subs {
		errs = append(errs, sub.Unsubscribe())
	}

	c.subs = nil

	return errors.Join(errs...)
}

// PublishColor encodes img as PNG and publishes it for camera name.
func PublishColor(nc *nats.Conn, prefix, name string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}

	return nc.Publish(subject(prefix, name, camera.Color), buf.Bytes())
}

// PublishDepth publishes a depth frame for camera name.
func PublishDepth(nc *nats.Conn, prefix, name string, frame *camera.DepthFrame) error {
	data, err := codec.Marshal(frame)
	if err != nil {
		return err
	}

	return nc.Publish(subject(prefix, name, camera.Depth), data)
}
