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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/carverauto/robotlogger/pkg/codec"
)

// DataFileExt is the extension of flushed data files.
const DataFileExt = ".cbor.zst"

// Document is the content of one data file.
type Document struct {
	RobotName string          `cbor:"robot_name,omitempty" json:"robot_name,omitempty"`
	Method    string          `cbor:"method" json:"method"`
	Start     float64         `cbor:"start" json:"start"`
	End       float64         `cbor:"end" json:"end"`
	Channels  []ChannelRecord `cbor:"channels" json:"channels"`
}

// ChannelRecord holds the samples of one channel for one flush interval.
type ChannelRecord struct {
	Name       string      `cbor:"name" json:"name"`
	Length     int         `cbor:"length" json:"length"`
	Labels     []string    `cbor:"labels,omitempty" json:"labels,omitempty"`
	Timestamps []float64   `cbor:"timestamps" json:"timestamps"`
	Values     [][]float64 `cbor:"values,omitempty" json:"values,omitempty"`
	Records    []any       `cbor:"records,omitempty" json:"records,omitempty"`
}

// Channel returns the record for name.
func (d *Document) Channel(name string) (ChannelRecord, bool) {
	for _, ch := range d.Channels {
		if ch.Name == name {
			return ch, true
		}
	}

	return ChannelRecord{}, false
}

// createUnique opens prefix+DataFileExt for writing, appending a counter to
// prefix when a file with that name already exists.
func createUnique(prefix string) (*os.File, string, error) {
	candidate := prefix

	for i := 1; ; i++ {
		f, err := os.OpenFile(candidate+DataFileExt, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, candidate, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}

		candidate = fmt.Sprintf("%s_%d", prefix, i)
	}
}

func writeDataFile(prefix string, doc *Document) (string, error) {
	if err := os.MkdirAll(filepath.Dir(prefix), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	f, final, err := createUnique(prefix)
	if err != nil {
		return "", fmt.Errorf("create data file: %w", err)
	}

	zw, err := zstd.NewWriter(f)
	if err != nil {
		_ = f.Close()

		return "", fmt.Errorf("zstd writer: %w", err)
	}

	encErr := codec.NewEncoder(zw).Encode(doc)

	if err := errors.Join(encErr, zw.Close(), f.Close()); err != nil {
		return "", fmt.Errorf("write data file %s: %w", f.Name(), err)
	}

	return final, nil
}

// ReadDataFile decodes a data file written by BufferStore.
func ReadDataFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer zr.Close()

	var doc Document
	if err := codec.NewDecoder(zr).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return &doc, nil
}
