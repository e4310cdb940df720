// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"time"

	"github.com/toeirei/inbound/internal/model"
)

// Actor returns the cached actor for url, or nil.
func (s *Store) Actor(ctx context.Context, url string) (*model.Actor, error) {
	var m ActorModel
	if err := s.bun.NewSelect().Model(&m).Where("nurl = ?", nurl(url)).Limit(1).Scan(ctx); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	a := actorModelToModel(m)
	return &a, nil
}

// ActorByKeyID returns the cached actor that published keyID, or nil.
func (s *Store) ActorByKeyID(ctx context.Context, keyID string) (*model.Actor, error) {
	var m ActorModel
	if err := s.bun.NewSelect().Model(&m).Where("key_id = ?", keyID).Limit(1).Scan(ctx); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	a := actorModelToModel(m)
	return &a, nil
}

// SaveActor stores a, replacing the cached copy. LastActivity is preserved
// when a carries none.
func (s *Store) SaveActor(ctx context.Context, a model.Actor) error {
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now().UTC()
	}
	m := actorToModel(a)
	cols := []string{"nurl", "kind", "followers", "featured", "inbox", "nickname", "key_id", "public_key_pem", "gone", "suspended", "relay", "updated_at"}
	if !a.LastActivity.IsZero() {
		cols = append(cols, "last_activity")
	}
	res, err := s.bun.NewUpdate().Model(&m).Column(cols...).Where("url = ?", a.URL).Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = s.bun.NewInsert().Model(&m).Exec(ctx)
	return MapDBError(err)
}

// TouchActor records the time of the latest delivery from url.
func (s *Store) TouchActor(ctx context.Context, url string, at time.Time) error {
	_, err := s.bun.NewUpdate().Model((*ActorModel)(nil)).
		Set("last_activity = ?", at.UTC()).
		Where("nurl = ?", nurl(url)).
		Exec(ctx)
	return err
}

// MarkActorGone flags the cached actor as deleted at its origin.
func (s *Store) MarkActorGone(ctx context.Context, url string) error {
	_, err := s.bun.NewUpdate().Model((*ActorModel)(nil)).
		Set("gone = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("nurl = ?", nurl(url)).
		Exec(ctx)
	return err
}
