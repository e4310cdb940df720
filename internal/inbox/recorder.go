// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/toeirei/inbound/internal/ldterm"
	"github.com/toeirei/inbound/internal/logging"
	"github.com/toeirei/inbound/internal/model"
)

// Bucket names the fallback a sample was filed under.
type Bucket string

const (
	BucketUnhandled Bucket = "unhandled"
	BucketUnknown   Bucket = "unknown"
)

// Sample is the diagnostic snapshot of one fallback activity.
type Sample struct {
	Bucket    Bucket            `json:"bucket"`
	Name      string            `json:"name"`
	Activity  ldterm.Document   `json:"activity"`
	Body      []byte            `json:"body,omitempty"`
	UID       int64             `json:"uid"`
	Trusted   bool              `json:"trusted"`
	Push      bool              `json:"push"`
	Signers   []string          `json:"signers,omitempty"`
	Record    *model.ObjectData `json:"record"`
	CreatedAt time.Time         `json:"created_at"`
}

// SampleName joins bucket and kinds, e.g. "unhandled-as-Create-as-Widget".
func SampleName(b Bucket, kinds ...model.Kind) string {
	parts := []string{string(b)}
	for _, k := range kinds {
		if k != model.Undetermined {
			parts = append(parts, strings.ReplaceAll(string(k), ":", "-"))
		}
	}
	return strings.Join(parts, "-")
}

// Recorder files samples when enabled. It never fails the delivery.
type Recorder struct {
	enabled bool
	sink    SampleSink
	now     func() time.Time
}

// NewRecorder returns a recorder; a nil sink disables it.
func NewRecorder(enabled bool, sink SampleSink) *Recorder {
	return &Recorder{enabled: enabled && sink != nil, sink: sink, now: time.Now}
}

// Enabled reports whether samples are stored.
func (r *Recorder) Enabled() bool { return r != nil && r.enabled }

// Record stores s with its name and timestamp filled in.
func (r *Recorder) Record(ctx context.Context, s Sample) {
	if !r.Enabled() {
		return
	}
	if s.Name == "" && s.Record != nil {
		s.Name = SampleName(s.Bucket, s.Record.Type, s.Record.ObjectType, s.Record.NestedType())
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now().UTC()
	}
	if err := r.sink.StoreSample(ctx, s); err != nil {
		logging.L.Warn("Could not store sample", "name", s.Name, "err", err)
		return
	}
	logging.L.Info("Stored sample", "bucket", s.Bucket, "name", s.Name)
}

// FileSink writes each sample as a zstd compressed JSON file into Dir.
type FileSink struct {
	Dir string
}

// StoreSample implements SampleSink.
func (f FileSink) StoreSample(_ context.Context, s Sample) error {
	if err := os.MkdirAll(f.Dir, 0o750); err != nil {
		return fmt.Errorf("could not create sample directory: %w", err)
	}
	name := filepath.Join(f.Dir, fmt.Sprintf("%s-%d.json.zst", s.Name, s.CreatedAt.UnixNano()))
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer func() { _ = file.Close() }()

	zw, err := zstd.NewWriter(file)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		_ = zw.Close()
		return fmt.Errorf("could not encode json to zstd writer: %w", err)
	}
	return zw.Close()
}

// ReadSampleFile decodes a file written by FileSink.
func ReadSampleFile(path string) (*Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	zr, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zr.Close()

	var s Sample
	if err := json.NewDecoder(zr).Decode(&s); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}
	return &s, nil
}

// ListSampleFiles returns the sample files in dir, oldest name first.
func ListSampleFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json.zst"))
	if err != nil {
		return nil, err
	}
	return matches, nil
}
