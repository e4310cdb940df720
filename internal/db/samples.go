// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/toeirei/inbound/internal/inbox"
	"github.com/toeirei/inbound/internal/model"
)

var _ inbox.SampleSink = (*Store)(nil)

// Shared codecs; EncodeAll and DecodeAll are safe for concurrent use.
var (
	sampleEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	sampleDecoder, _ = zstd.NewReader(nil)
)

// StoreSample implements inbox.SampleSink. The raw body is kept zstd compressed.
func (s *Store) StoreSample(ctx context.Context, smp inbox.Sample) error {
	activity, err := json.Marshal(smp.Activity)
	if err != nil {
		return fmt.Errorf("could not encode activity: %w", err)
	}
	record, err := json.Marshal(smp.Record)
	if err != nil {
		return fmt.Errorf("could not encode record: %w", err)
	}
	m := &SampleModel{
		Bucket:    string(smp.Bucket),
		Name:      smp.Name,
		UID:       smp.UID,
		Trusted:   smp.Trusted,
		Push:      smp.Push,
		Signers:   strings.Join(smp.Signers, " "),
		Activity:  string(activity),
		Record:    string(record),
		CreatedAt: smp.CreatedAt,
	}
	if len(smp.Body) > 0 {
		m.Body = sampleEncoder.EncodeAll(smp.Body, nil)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err = s.bun.NewInsert().Model(m).Exec(ctx)
	return MapDBError(err)
}

// SampleSummary is one row of ListSamples.
type SampleSummary struct {
	ID        int64
	Bucket    string
	Name      string
	UID       int64
	CreatedAt time.Time
}

// ListSamples returns the newest samples, optionally filtered by name prefix.
func (s *Store) ListSamples(ctx context.Context, prefix string, limit int) ([]SampleSummary, error) {
	var ms []SampleModel
	q := s.bun.NewSelect().Model(&ms).
		Column("id", "bucket", "name", "uid", "created_at").
		OrderExpr("id DESC")
	if prefix != "" {
		q = q.Where("name LIKE ?", prefix+"%")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]SampleSummary, 0, len(ms))
	for _, m := range ms {
		out = append(out, SampleSummary{ID: m.ID, Bucket: m.Bucket, Name: m.Name, UID: m.UID, CreatedAt: m.CreatedAt})
	}
	return out, nil
}

// Sample loads one stored sample with its decompressed body.
func (s *Store) Sample(ctx context.Context, id int64) (*inbox.Sample, error) {
	var m SampleModel
	if err := s.bun.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		if noRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	smp := &inbox.Sample{
		Bucket:    inbox.Bucket(m.Bucket),
		Name:      m.Name,
		UID:       m.UID,
		Trusted:   m.Trusted,
		Push:      m.Push,
		Signers:   strings.Fields(m.Signers),
		CreatedAt: m.CreatedAt,
	}
	if m.Activity != "" {
		if err := json.Unmarshal([]byte(m.Activity), &smp.Activity); err != nil {
			return nil, fmt.Errorf("could not decode activity: %w", err)
		}
	}
	if m.Record != "" && m.Record != "null" {
		smp.Record = &model.ObjectData{}
		if err := json.Unmarshal([]byte(m.Record), smp.Record); err != nil {
			return nil, fmt.Errorf("could not decode record: %w", err)
		}
	}
	if len(m.Body) > 0 {
		body, err := sampleDecoder.DecodeAll(m.Body, nil)
		if err != nil {
			return nil, fmt.Errorf("could not decompress body: %w", err)
		}
		smp.Body = body
	}
	return smp, nil
}
