// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"strings"

	"github.com/uptrace/bun"

	"github.com/toeirei/inbound/internal/inbox"
	"github.com/toeirei/inbound/internal/model"
)

var _ inbox.Graph = (*Store)(nil)

// nurl is the stored comparison form of a profile link.
func nurl(link string) string {
	return strings.ToLower(model.NormalizeLink(link))
}

// Account returns the local account with the given id, or nil.
func (s *Store) Account(ctx context.Context, id int64) (*model.Account, error) {
	var m AccountModel
	if err := s.bun.NewSelect().Model(&m).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	a := accountModelToModel(m)
	return &a, nil
}

// AccountByURL returns the local account whose profile URL matches url.
func (s *Store) AccountByURL(ctx context.Context, url string) (*model.Account, error) {
	var m AccountModel
	if err := s.bun.NewSelect().Model(&m).Where("nurl = ?", nurl(url)).Limit(1).Scan(ctx); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	a := accountModelToModel(m)
	return &a, nil
}

// followerRow is the joined row scanned by Followers.
type followerRow struct {
	ContactModel `bun:",extend"`
	Nickname     string `bun:"a_nickname"`
	AccountURL   string `bun:"a_url"`
	AccountType  int    `bun:"a_type"`
}

// Followers lists the local accounts with an active relationship to actorURL.
func (s *Store) Followers(ctx context.Context, actorURL string) ([]inbox.Follower, error) {
	var rows []followerRow
	err := s.bun.NewSelect().
		Model(&rows).
		ModelTableExpr("contacts AS c").
		ColumnExpr("c.*").
		ColumnExpr("a.nickname AS a_nickname, a.url AS a_url, a.type AS a_type").
		Join("JOIN accounts AS a ON a.id = c.account_id").
		Where("c.nurl = ?", nurl(actorURL)).
		Where("c.rel <> ?", int(model.RelNone)).
		Where("c.blocked = ?", false).
		Where("c.pending = ?", false).
		Where("c.archived = ?", false).
		OrderExpr("a.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]inbox.Follower, 0, len(rows))
	for _, r := range rows {
		out = append(out, inbox.Follower{
			Account: model.Account{ID: r.AccountID, Nickname: r.Nickname, URL: r.AccountURL, Type: model.AccountType(r.AccountType)},
			Contact: contactModelToModel(r.ContactModel),
		})
	}
	return out, nil
}

// Contact returns the contact record of actorURL for one account, or nil.
func (s *Store) Contact(ctx context.Context, accountID int64, actorURL string) (*model.Contact, error) {
	var m ContactModel
	err := s.bun.NewSelect().Model(&m).
		Where("account_id = ?", accountID).
		Where("nurl = ?", nurl(actorURL)).
		Limit(1).Scan(ctx)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	c := contactModelToModel(m)
	return &c, nil
}

// PostOwners returns the distinct local accounts that store any of uris.
func (s *Store) PostOwners(ctx context.Context, uris []string) ([]int64, error) {
	if len(uris) == 0 {
		return nil, nil
	}
	var ids []int64
	err := s.bun.NewSelect().
		Model((*PostModel)(nil)).
		ColumnExpr("DISTINCT account_id").
		Where("uri IN (?)", bun.In(uris)).
		Where("account_id > 0").
		OrderExpr("account_id ASC").
		Scan(ctx, &ids)
	return ids, err
}

// PostByURI returns a stored copy of uri, the public one first, or nil.
func (s *Store) PostByURI(ctx context.Context, uri string) (*model.Post, error) {
	var m PostModel
	if err := s.bun.NewSelect().Model(&m).Where("uri = ?", uri).OrderExpr("account_id ASC").Limit(1).Scan(ctx); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	p := postModelToModel(m)
	return &p, nil
}

// URIByLink maps a plink onto the canonical item uri, or "".
func (s *Store) URIByLink(ctx context.Context, link string) (string, error) {
	if link == "" {
		return "", nil
	}
	var uri string
	err := s.bun.NewSelect().Model((*PostModel)(nil)).Column("uri").
		Where("plink = ?", link).Where("uri <> plink").Limit(1).Scan(ctx, &uri)
	if noRows(err) {
		return "", nil
	}
	return uri, err
}

// IsPrivateThread reports whether uri is stored as a private item.
func (s *Store) IsPrivateThread(ctx context.Context, uri string) (bool, error) {
	return s.bun.NewSelect().Model((*PostModel)(nil)).
		Where("uri = ?", uri).Where("private = ?", true).Exists(ctx)
}
