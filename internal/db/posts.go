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

// InsertPost stores p and returns its id. A second copy of the same uri for
// the same account fails with ErrDuplicate.
func (s *Store) InsertPost(ctx context.Context, p model.Post) (int64, error) {
	m := postToModel(p)
	m.ID = 0
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.UpdatedAt = m.CreatedAt
	if _, err := s.bun.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		return 0, MapDBError(err)
	}
	return m.ID, nil
}

// PostsByURI returns every stored copy of uri.
func (s *Store) PostsByURI(ctx context.Context, uri string) ([]model.Post, error) {
	var ms []PostModel
	if err := s.bun.NewSelect().Model(&ms).Where("uri = ?", uri).OrderExpr("account_id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Post, 0, len(ms))
	for _, m := range ms {
		out = append(out, postModelToModel(m))
	}
	return out, nil
}

// UpdatePosts replaces the content of every copy of uri written by author.
func (s *Store) UpdatePosts(ctx context.Context, uri, author, content string) (int64, error) {
	res, err := s.bun.NewUpdate().Model((*PostModel)(nil)).
		Set("content = ?", content).
		Set("updated_at = ?", time.Now().UTC()).
		Where("uri = ?", uri).
		Where("author = ?", author).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeletePosts removes every copy of uri written by author, including the
// activities that point at it.
func (s *Store) DeletePosts(ctx context.Context, uri, author string) (int64, error) {
	res, err := s.bun.NewDelete().Model((*PostModel)(nil)).
		Where("(uri = ? AND author = ?) OR (parent_uri = ? AND gravity = ?)", uri, author, uri, int(model.GravityActivity)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteActivity removes the stored activity uri of author.
func (s *Store) DeleteActivity(ctx context.Context, uri, author string) (int64, error) {
	res, err := s.bun.NewDelete().Model((*PostModel)(nil)).
		Where("uri = ?", uri).
		Where("author = ?", author).
		Where("gravity = ?", int(model.GravityActivity)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteAuthorPosts removes everything written by author.
func (s *Store) DeleteAuthorPosts(ctx context.Context, author string) (int64, error) {
	res, err := s.bun.NewDelete().Model((*PostModel)(nil)).Where("author = ?", author).Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetFeatured pins or unpins every copy of uri.
func (s *Store) SetFeatured(ctx context.Context, uri string, featured bool) (int64, error) {
	res, err := s.bun.NewUpdate().Model((*PostModel)(nil)).
		Set("featured = ?", featured).
		Set("updated_at = ?", time.Now().UTC()).
		Where("uri = ?", uri).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AddPostTag appends tag to the comma separated tag list of every copy of uri.
func (s *Store) AddPostTag(ctx context.Context, uri, tag string) (int64, error) {
	posts, err := s.PostsByURI(ctx, uri)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, p := range posts {
		var m PostModel
		if err := s.bun.NewSelect().Model(&m).Where("id = ?", p.ID).Scan(ctx); err != nil {
			return n, err
		}
		tags := splitTags(m.Tags)
		if containsFold(tags, tag) {
			continue
		}
		tags = append(tags, tag)
		if _, err := s.bun.NewUpdate().Model((*PostModel)(nil)).
			Set("tags = ?", strings.Join(tags, ",")).
			Where("id = ?", p.ID).
			Exec(ctx); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// PostTags returns the tags of the first stored copy of uri.
func (s *Store) PostTags(ctx context.Context, uri string) ([]string, error) {
	var tags string
	err := s.bun.NewSelect().Model((*PostModel)(nil)).Column("tags").
		Where("uri = ?", uri).OrderExpr("account_id ASC").Limit(1).Scan(ctx, &tags)
	if noRows(err) {
		return nil, nil
	}
	return splitTags(tags), err
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
