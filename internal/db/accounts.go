// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/toeirei/inbound/internal/model"
)

// AddAccount creates a local account and returns its id.
func (s *Store) AddAccount(ctx context.Context, nickname, url string, typ model.AccountType) (int64, error) {
	m := &AccountModel{Nickname: nickname, URL: url, NURL: nurl(url), Type: int(typ)}
	if _, err := s.bun.NewInsert().Model(m).Returning("id").Exec(ctx); err != nil {
		return 0, MapDBError(err)
	}
	return m.ID, nil
}

// Accounts lists all local accounts ordered by id.
func (s *Store) Accounts(ctx context.Context) ([]model.Account, error) {
	var ms []AccountModel
	if err := s.bun.NewSelect().Model(&ms).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Account, 0, len(ms))
	for _, m := range ms {
		out = append(out, accountModelToModel(m))
	}
	return out, nil
}

// AccountByNickname returns the local account with the given nickname, or nil.
func (s *Store) AccountByNickname(ctx context.Context, nickname string) (*model.Account, error) {
	var m AccountModel
	if err := s.bun.NewSelect().Model(&m).Where("nickname = ?", nickname).Limit(1).Scan(ctx); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	a := accountModelToModel(m)
	return &a, nil
}

// SaveContact inserts c or updates the existing contact of the same account
// and actor. It returns the contact id.
func (s *Store) SaveContact(ctx context.Context, c model.Contact) (int64, error) {
	if c.Protocol == "" {
		c.Protocol = model.ProtocolActivityPub
	}
	var id int64
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		var existing ContactModel
		err := tx.NewSelect().Model(&existing).
			Where("account_id = ?", c.AccountID).
			Where("nurl = ?", nurl(c.URL)).
			Limit(1).Scan(ctx)
		m := &ContactModel{
			AccountID: c.AccountID,
			URL:       c.URL,
			NURL:      nurl(c.URL),
			Protocol:  string(c.Protocol),
			Rel:       int(c.Rel),
			Pending:   c.Pending,
			Archived:  c.Archived,
			Blocked:   c.Blocked,
			BlockedUs: c.BlockedUs,
			UpdatedAt: time.Now().UTC(),
		}
		switch {
		case err == nil:
			m.ID = existing.ID
			m.CreatedAt = existing.CreatedAt
			_, err = tx.NewUpdate().Model(m).WherePK().
				Column("url", "protocol", "rel", "pending", "archived", "blocked", "blocked_us", "updated_at").
				Exec(ctx)
		case noRows(err):
			_, err = tx.NewInsert().Model(m).Returning("id").Exec(ctx)
		}
		if err != nil {
			return MapDBError(err)
		}
		id = m.ID
		return nil
	})
	return id, err
}

// Contacts lists the contacts of one account.
func (s *Store) Contacts(ctx context.Context, accountID int64) ([]model.Contact, error) {
	var ms []ContactModel
	if err := s.bun.NewSelect().Model(&ms).Where("account_id = ?", accountID).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Contact, 0, len(ms))
	for _, m := range ms {
		out = append(out, contactModelToModel(m))
	}
	return out, nil
}

// UpgradeProtocol switches the contact of accountID for actorURL to
// ActivityPub. Repeated calls are no-ops.
func (s *Store) UpgradeProtocol(ctx context.Context, accountID int64, actorURL string) error {
	res, err := s.bun.NewUpdate().Model((*ContactModel)(nil)).
		Set("protocol = ?", string(model.ProtocolActivityPub)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("account_id = ?", accountID).
		Where("nurl = ?", nurl(actorURL)).
		Where("protocol <> ?", string(model.ProtocolActivityPub)).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		_ = s.LogAction("UPGRADE_PROTOCOL", fmt.Sprintf("account: %d, actor: %s", accountID, actorURL))
	}
	return nil
}

// ArchiveContacts marks every contact of actorURL as archived and returns
// the number of affected rows.
func (s *Store) ArchiveContacts(ctx context.Context, actorURL string) (int64, error) {
	res, err := s.bun.NewUpdate().Model((*ContactModel)(nil)).
		Set("archived = ?", true).
		Set("rel = ?", int(model.RelNone)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("nurl = ?", nurl(actorURL)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
