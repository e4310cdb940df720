// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"github.com/uptrace/bun"
)

// Store is the bun-backed persistence layer. It implements inbox.Graph,
// inbox.SampleSink and inbox.ContactUpgrader and backs the identity cache
// and the side-effect handlers.
type Store struct {
	bun    *bun.DB
	dbType string
}

// BunDB exposes the underlying handle, e.g. for transactions in callers.
func (s *Store) BunDB() *bun.DB { return s.bun }

// DBType returns "sqlite", "postgres" or "mysql".
func (s *Store) DBType() string { return s.dbType }

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.bun == nil {
		return nil
	}
	return s.bun.Close()
}
