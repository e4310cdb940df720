// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/toeirei/inbound/internal/logging"
	"github.com/toeirei/inbound/internal/model"
)

// updateContacts applies fn to the contact of rec.Actor for every local
// account resolved from accountURL and stores the result.
func (p *Processor) updateContacts(ctx context.Context, rec *model.ObjectData, accountURL string, fn func(*model.Contact)) ([]model.Account, error) {
	accounts, err := p.localAccounts(ctx, rec, accountURL)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		c, err := p.contact(ctx, a.ID, rec.Actor)
		if err != nil {
			return nil, err
		}
		fn(&c)
		if _, err := p.store.SaveContact(ctx, c); err != nil {
			return nil, err
		}
	}
	return accounts, nil
}

// updateRequests applies fn to the contact of rec.Actor for every local
// account that asked rec.Actor for a follow or already shares with it.
// Responses nobody asked for are refused.
func (p *Processor) updateRequests(ctx context.Context, rec *model.ObjectData, accountURL string, fn func(*model.Contact)) ([]model.Account, error) {
	accounts, err := p.localAccounts(ctx, rec, accountURL)
	if err != nil {
		return nil, err
	}
	var updated []model.Account
	for _, a := range accounts {
		c, err := p.store.Contact(ctx, a.ID, rec.Actor)
		if err != nil {
			return nil, err
		}
		if c == nil || !(c.Pending || c.Rel.Shares()) {
			logging.L.Info("No follow request for this response", "account", a.Nickname, "actor", rec.Actor)
			continue
		}
		fn(c)
		if _, err := p.store.SaveContact(ctx, *c); err != nil {
			return nil, err
		}
		updated = append(updated, a)
	}
	if len(updated) == 0 {
		return nil, fmt.Errorf("%w: no follow request to %s", ErrNotPermitted, rec.Actor)
	}
	return updated, nil
}

// FollowUser records rec.Actor as a follower of the followed local account.
func (p *Processor) FollowUser(ctx context.Context, rec *model.ObjectData) error {
	accounts, err := p.updateContacts(ctx, rec, rec.ObjectID, func(c *model.Contact) {
		if c.Rel.Shares() {
			c.Rel = model.RelFriend
		} else {
			c.Rel = model.RelFollower
		}
		c.Archived = false
	})
	if err != nil {
		return err
	}
	for _, a := range accounts {
		p.journal("FOLLOW", "account: %s, follower: %s", a.Nickname, rec.Actor)
	}
	return nil
}

// AcceptFollowUser completes a follow request sent by a local account.
func (p *Processor) AcceptFollowUser(ctx context.Context, rec *model.ObjectData) error {
	accounts, err := p.updateRequests(ctx, rec, rec.ObjectActor, func(c *model.Contact) {
		if c.Rel == model.RelFollower || c.Rel == model.RelFriend {
			c.Rel = model.RelFriend
		} else {
			c.Rel = model.RelSharing
		}
		c.Pending = false
	})
	if err != nil {
		return err
	}
	for _, a := range accounts {
		p.journal("FOLLOW_ACCEPTED", "account: %s, contact: %s", a.Nickname, rec.Actor)
	}
	return nil
}

// RejectFollowUser withdraws the sharing relationship of a local account.
// It also handles an undone Accept.
func (p *Processor) RejectFollowUser(ctx context.Context, rec *model.ObjectData) error {
	accounts, err := p.updateRequests(ctx, rec, rec.ObjectActor, func(c *model.Contact) {
		switch c.Rel {
		case model.RelFriend:
			c.Rel = model.RelFollower
		case model.RelSharing:
			c.Rel = model.RelNone
		}
		c.Pending = false
	})
	if err != nil {
		return err
	}
	for _, a := range accounts {
		p.journal("FOLLOW_REJECTED", "account: %s, contact: %s", a.Nickname, rec.Actor)
	}
	return nil
}

// UndoFollowUser removes rec.Actor from the followers of the local account.
func (p *Processor) UndoFollowUser(ctx context.Context, rec *model.ObjectData) error {
	accounts, err := p.updateContacts(ctx, rec, rec.ObjectObject, func(c *model.Contact) {
		switch c.Rel {
		case model.RelFriend:
			c.Rel = model.RelSharing
		case model.RelFollower:
			c.Rel = model.RelNone
		}
	})
	if err != nil {
		return err
	}
	for _, a := range accounts {
		p.journal("UNFOLLOW", "account: %s, follower: %s", a.Nickname, rec.Actor)
	}
	return nil
}

// BlockAccount notes that rec.Actor blocked the local account.
func (p *Processor) BlockAccount(ctx context.Context, rec *model.ObjectData) error {
	_, err := p.updateContacts(ctx, rec, rec.ObjectID, func(c *model.Contact) { c.BlockedUs = true })
	if err == nil {
		p.journal("BLOCKED_BY", "contact: %s", rec.Actor)
	}
	return err
}

// UnblockAccount lifts a block set by BlockAccount.
func (p *Processor) UnblockAccount(ctx context.Context, rec *model.ObjectData) error {
	_, err := p.updateContacts(ctx, rec, rec.ObjectObject, func(c *model.Contact) { c.BlockedUs = false })
	if err == nil {
		p.journal("UNBLOCKED_BY", "contact: %s", rec.Actor)
	}
	return err
}

// UpdatePerson refetches the updated profile.
func (p *Processor) UpdatePerson(ctx context.Context, rec *model.ObjectData) error {
	if p.profiles == nil {
		return errors.New("no profile refresher configured")
	}
	url := rec.ObjectID
	if url == "" {
		url = rec.Actor
	}
	a, err := p.profiles.Refresh(ctx, url)
	if err != nil {
		return err
	}
	logging.L.Info("Profile updated", "actor", a.URL, "nickname", a.Nickname)
	return nil
}

// DeletePerson archives every contact of the deleted actor and removes its
// items. An actor can only delete itself.
func (p *Processor) DeletePerson(ctx context.Context, rec *model.ObjectData) error {
	url := rec.ObjectID
	if url == "" {
		url = rec.Actor
	}
	if !model.CompareLinks(url, rec.Actor) {
		return fmt.Errorf("%w: %s cannot delete %s", ErrNotPermitted, rec.Actor, url)
	}
	if err := p.store.MarkActorGone(ctx, url); err != nil {
		return err
	}
	archived, err := p.store.ArchiveContacts(ctx, url)
	if err != nil {
		return err
	}
	removed, err := p.store.DeleteAuthorPosts(ctx, url)
	if err != nil {
		return err
	}
	p.journal("DELETE_PERSON", "actor: %s, contacts: %d, items: %d", url, archived, removed)
	return nil
}
