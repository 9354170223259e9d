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

package camera

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/robotlogger/pkg/clock"
	"github.com/carverauto/robotlogger/pkg/logger"
	"github.com/carverauto/robotlogger/pkg/telemetry"
)

var errNoFrame = errors.New("no frame yet")

type fakeBridge struct {
	mu        sync.Mutex
	colorErrs []bool
	depth     *DepthFrame
	calls     atomic.Int64
}

func (*fakeBridge) Metadata() Metadata { return Metadata{} }

func (b *fakeBridge) ColorFrame(string) (image.Image, error) {
	b.calls.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.colorErrs) > 0 {
		fail := b.colorErrs[0]
		b.colorErrs = b.colorErrs[1:]

		if fail {
			return nil, errNoFrame
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	return img, nil
}

func (b *fakeBridge) DepthFrame(string) (*DepthFrame, error) {
	if b.depth == nil {
		return nil, errNoFrame
	}

	return b.depth, nil
}

type fakeEncoder struct {
	f      *os.File
	frames int
}

func (e *fakeEncoder) WriteFrame(image.Image) error {
	e.frames++
	_, err := e.f.Write([]byte{'f'})

	return err
}

func (e *fakeEncoder) Close() error { return e.f.Close() }

func fakeCodec() Codec {
	return Codec{
		FourCC: "FAKE",
		Ext:    ".fake",
		Open: func(path string, _ Dimensions, _ float64) (Encoder, error) {
			f, err := os.Create(path)
			if err != nil {
				return nil, err
			}

			return &fakeEncoder{f: f}, nil
		},
	}
}

func newStore(t *testing.T) *telemetry.BufferStore {
	t.Helper()

	s := telemetry.NewBufferStore(logger.NewTestLogger(), clock.NewManual(time.Unix(0, 0)), nil)
	require.NoError(t, s.Configure(telemetry.Config{
		SamplingPeriod: 10 * time.Millisecond,
		FlushPeriod:    time.Second,
		OutputDir:      t.TempDir(),
	}))

	return s
}

func newRecorder(t *testing.T, bridge Bridge, store telemetry.Writer, cfg Config) *Recorder {
	t.Helper()

	if cfg.Name == "" {
		cfg.Name = "head"
	}

	if cfg.FPS == 0 {
		cfg.FPS = 5
	}

	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}

	r, err := NewRecorder(logger.NewTestLogger(), nil, bridge, store, cfg)
	require.NoError(t, err)
	require.NoError(t, r.Open())

	return r
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()

	info, err := os.Stat(path)
	require.NoError(t, err)

	return info.Size()
}

func TestNewRecorderValidation(t *testing.T) {
	_, err := NewRecorder(logger.NewTestLogger(), nil, &fakeBridge{}, newStore(t), Config{Name: "head", FPS: 0})
	require.ErrorIs(t, err, ErrInvalidRate)

	_, err = NewRecorder(logger.NewTestLogger(), nil, &fakeBridge{}, newStore(t), Config{Name: "head", FPS: -1})
	require.ErrorIs(t, err, ErrInvalidRate)

	_, err = NewRecorder(logger.NewTestLogger(), nil, &fakeBridge{}, newStore(t), Config{
		Name: "head", FPS: 30, ColorMode: ModeVideo, Codec: fakeCodec(),
	})
	require.ErrorIs(t, err, ErrMissingSize)
}

func TestCodecLookup(t *testing.T) {
	codecs := DefaultCodecs()

	c, err := codecs.Lookup("MJPG")
	require.NoError(t, err)
	assert.Equal(t, ".avi", c.Ext)

	_, err = codecs.Lookup("MJP")
	require.ErrorIs(t, err, ErrInvalidCodec)

	_, err = codecs.Lookup("H264")
	require.ErrorIs(t, err, ErrUnsupportedCodec)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("video")
	require.NoError(t, err)
	assert.Equal(t, ModeVideo, m)

	_, err = ParseMode("gif")
	require.ErrorIs(t, err, ErrInvalidMode)
}

func TestFrameModeWritesIndexedImages(t *testing.T) {
	store := newStore(t)
	dir := t.TempDir()
	r := newRecorder(t, &fakeBridge{}, store, Config{Dir: dir})

	start := time.Unix(100, 0)
	for i := range 3 {
		r.Tick(start.Add(time.Duration(i) * r.Period()))
	}

	for i := range 3 {
		assert.FileExists(t, filepath.Join(dir, "output_head_rgb", "img_"+strconv.Itoa(i)+".png"))
	}

	assert.Equal(t, 3, store.Len("camera::head::rgb"))
	assert.Equal(t, uint64(3), r.Index())
}

func TestRotationFrameModeKeepsIndex(t *testing.T) {
	store := newStore(t)
	dir := t.TempDir()
	r := newRecorder(t, &fakeBridge{}, store, Config{Dir: dir})

	r.Tick(time.Unix(1, 0))
	r.Tick(time.Unix(2, 0))

	prefix := filepath.Join(dir, "robot_2025_01_01_00_00_00")
	require.NoError(t, r.Rotate(prefix, true))

	assert.FileExists(t, filepath.Join(prefix+"_head_rgb", "img_1.png"))
	assert.DirExists(t, filepath.Join(dir, "output_head_rgb"))

	r.Tick(time.Unix(3, 0))

	assert.FileExists(t, filepath.Join(dir, "output_head_rgb", "img_2.png"))
	assert.NoFileExists(t, filepath.Join(dir, "output_head_rgb", "img_0.png"))
}

func TestRotationAtomicityVideo(t *testing.T) {
	dir := t.TempDir()
	r := newRecorder(t, &fakeBridge{}, newStore(t), Config{
		Dir:       dir,
		FPS:       30,
		ColorMode: ModeVideo,
		Codec:     fakeCodec(),
		Size:      Dimensions{Width: 4, Height: 2},
	})

	r.Tick(time.Unix(1, 0))
	r.Tick(time.Unix(2, 0))

	working := filepath.Join(dir, "output_head_rgb.fake")
	first := filepath.Join(dir, "seg1")

	require.NoError(t, r.Rotate(first, true))

	assert.Equal(t, int64(2), fileSize(t, first+"_head_rgb.fake"))
	assert.Equal(t, int64(0), fileSize(t, working))
	require.IsType(t, &VideoOutput{}, r.Streams()[0].Output())

	r.Tick(time.Unix(3, 0))

	second := filepath.Join(dir, "seg2")
	require.NoError(t, r.Rotate(second, false))

	assert.Equal(t, int64(1), fileSize(t, second+"_head_rgb.fake"))
	assert.NoFileExists(t, working)
	assert.Nil(t, r.Streams()[0].Output())

	// After the final rotation frames are no longer written.
	r.Tick(time.Unix(4, 0))
	assert.NoFileExists(t, working)
	assert.Zero(t, r.WriteFailures())
	require.NoError(t, r.Close())
}

func TestRotationFailureReported(t *testing.T) {
	dir := t.TempDir()
	r := newRecorder(t, &fakeBridge{}, newStore(t), Config{Dir: dir})

	r.Tick(time.Unix(1, 0))

	err := r.Rotate(filepath.Join(dir, "missing", "deeper", "prefix"), true)
	require.ErrorIs(t, err, ErrFinalize)

	// the working folder is kept so nothing recorded is lost
	stranded := filepath.Join(dir, "output_head_rgb")
	assert.FileExists(t, filepath.Join(stranded, "img_0.png"))

	// capture continues in a fresh folder next to it
	next := filepath.Join(dir, "output_head_rgb_1")
	out := r.Streams()[0].Output()
	require.NotNil(t, out)
	assert.Equal(t, next, out.WorkingPath())

	r.Tick(time.Unix(2, 0))
	r.Tick(time.Unix(3, 0))

	assert.FileExists(t, filepath.Join(next, "img_1.png"))
	assert.FileExists(t, filepath.Join(next, "img_2.png"))
	assert.NoFileExists(t, filepath.Join(stranded, "img_1.png"))
	assert.Zero(t, r.WriteFailures())

	prefix := filepath.Join(dir, "seg")
	require.NoError(t, r.Rotate(prefix, true))
	assert.FileExists(t, filepath.Join(prefix+"_head_rgb", "img_2.png"))

	r.Tick(time.Unix(4, 0))
	assert.FileExists(t, filepath.Join(next, "img_3.png"))
	assert.FileExists(t, filepath.Join(stranded, "img_0.png"))
}

func TestRotationReopensMissingOutput(t *testing.T) {
	dir := t.TempDir()

	var failOpen atomic.Bool

	codec := fakeCodec()
	open := codec.Open
	codec.Open = func(path string, size Dimensions, fps float64) (Encoder, error) {
		if failOpen.Load() {
			return nil, errors.New("device busy")
		}

		return open(path, size, fps)
	}

	r := newRecorder(t, &fakeBridge{}, newStore(t), Config{
		Dir:       dir,
		ColorMode: ModeVideo,
		Codec:     codec,
		Size:      Dimensions{Width: 4, Height: 2},
	})

	failOpen.Store(true)
	require.ErrorIs(t, r.Rotate(filepath.Join(dir, "seg1"), true), ErrReopen)
	assert.Nil(t, r.Streams()[0].Output())

	// frames without an output are counted while saves are still pending
	r.Tick(time.Unix(1, 0))
	assert.Equal(t, uint64(1), r.WriteFailures())

	failOpen.Store(false)
	require.NoError(t, r.Rotate(filepath.Join(dir, "seg2"), true))
	require.IsType(t, &VideoOutput{}, r.Streams()[0].Output())

	r.Tick(time.Unix(2, 0))
	r.Tick(time.Unix(3, 0))
	assert.Equal(t, uint64(1), r.WriteFailures())

	require.NoError(t, r.Rotate(filepath.Join(dir, "seg3"), false))
	assert.Equal(t, int64(2), fileSize(t, filepath.Join(dir, "seg3_head_rgb.fake")))
}

func TestFetchFailureReusesPreviousFrame(t *testing.T) {
	store := newStore(t)
	dir := t.TempDir()
	bridge := &fakeBridge{colorErrs: []bool{true, false, true}}
	r := newRecorder(t, bridge, store, Config{Dir: dir})

	for i := range 3 {
		r.Tick(time.Unix(int64(i+1), 0))
	}

	// no frame existed on the first iteration; the third reuses the second
	assert.NoFileExists(t, filepath.Join(dir, "output_head_rgb", "img_0.png"))
	assert.FileExists(t, filepath.Join(dir, "output_head_rgb", "img_1.png"))
	assert.FileExists(t, filepath.Join(dir, "output_head_rgb", "img_2.png"))
	assert.Equal(t, uint64(2), r.FetchFailures())
	assert.Equal(t, 2, store.Len("camera::head::rgb"))
}

func TestDepthFrameScaledTo16Bit(t *testing.T) {
	store := newStore(t)
	dir := t.TempDir()
	bridge := &fakeBridge{depth: &DepthFrame{Width: 2, Height: 1, Pix: []float32{1.5, 100}}}
	r := newRecorder(t, bridge, store, Config{Dir: dir, HasDepth: true, DepthMode: ModeFrame, DepthScale: 1000})

	r.Tick(time.Unix(1, 0))

	f, err := os.Open(filepath.Join(dir, "output_head_depth", "img_0.png"))
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)

	gray, ok := img.(*image.Gray16)
	require.True(t, ok)
	assert.Equal(t, uint16(1500), gray.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(65535), gray.Gray16At(1, 0).Y)
	assert.Equal(t, 1, store.Len("camera::head::depth"))
}

func TestDepthGray8Saturates(t *testing.T) {
	d := &DepthFrame{Width: 3, Height: 1, Pix: []float32{-4, 12.4, 300}}
	g := d.Gray8()

	assert.Equal(t, uint8(0), g.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(12), g.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(255), g.GrayAt(2, 0).Y)
}

func TestMJPEGEncoderWritesAVI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.avi")

	enc, err := openMJPEG(path, Dimensions{Width: 4, Height: 2}, 5)
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	require.NoError(t, enc.WriteFrame(img))
	require.NoError(t, enc.WriteFrame(img))
	require.NoError(t, enc.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 12)
	assert.Equal(t, "RIFF", string(data[:4]))
	assert.Equal(t, "AVI ", string(data[8:12]))
}

func TestWorkerStops(t *testing.T) {
	bridge := &fakeBridge{}
	r, err := NewRecorder(logger.NewTestLogger(), clock.Real(), bridge, newStore(t), Config{
		Name: "head", FPS: 200, Dir: t.TempDir(),
	})
	require.NoError(t, err)
	require.NoError(t, r.Open())
	require.NoError(t, r.Start())

	assert.Eventually(t, func() bool { return bridge.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	r.Stop()

	calls := bridge.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, bridge.calls.Load())
}
