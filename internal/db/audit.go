// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"strings"
	"time"

	"github.com/toeirei/inbound/internal/model"
)

// LogAction inserts an entry into the handler journal.
func (s *Store) LogAction(action string, details string) error {
	_, err := ExecRaw(context.Background(), s.bun, "INSERT INTO audit_log (timestamp, action, details) VALUES (?, ?, ?)",
		time.Now().UTC().Format(time.RFC3339), action, details)
	return MapDBError(err)
}

// AuditLogEntries returns the journal, newest first.
func (s *Store) AuditLogEntries(ctx context.Context) ([]model.AuditLogEntry, error) {
	var am []AuditLogModel
	if err := s.bun.NewSelect().Model(&am).OrderExpr("id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.AuditLogEntry, 0, len(am))
	for _, a := range am {
		out = append(out, model.AuditLogEntry{ID: a.ID, Timestamp: a.Timestamp, Action: a.Action, Details: a.Details})
	}
	return out, nil
}

// Report is a stored moderation report.
type Report struct {
	ID        int64
	Reporter  string
	ObjectIDs []string
	Content   string
	CreatedAt time.Time
}

// AddReport stores a moderation report filed by a remote actor.
func (s *Store) AddReport(ctx context.Context, reporter string, objectIDs []string, content string) (int64, error) {
	m := &ReportModel{Reporter: reporter, ObjectIDs: strings.Join(objectIDs, " "), Content: content, CreatedAt: time.Now().UTC()}
	if _, err := s.bun.NewInsert().Model(m).Returning("id").Exec(ctx); err != nil {
		return 0, MapDBError(err)
	}
	return m.ID, nil
}

// Reports lists the stored reports, newest first.
func (s *Store) Reports(ctx context.Context) ([]Report, error) {
	var ms []ReportModel
	if err := s.bun.NewSelect().Model(&ms).OrderExpr("id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]Report, 0, len(ms))
	for _, m := range ms {
		out = append(out, Report{ID: m.ID, Reporter: m.Reporter, ObjectIDs: strings.Fields(m.ObjectIDs), Content: m.Content, CreatedAt: m.CreatedAt})
	}
	return out, nil
}
