// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package processor applies dispatched activities to local state. It is the
// default inbox.Handlers implementation and writes through the db layer.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/toeirei/inbound/internal/inbox"
	"github.com/toeirei/inbound/internal/logging"
	"github.com/toeirei/inbound/internal/model"
)

// Storage is the subset of *db.Store the processor writes through.
type Storage interface {
	inbox.Graph
	SaveContact(ctx context.Context, c model.Contact) (int64, error)
	ArchiveContacts(ctx context.Context, actorURL string) (int64, error)
	InsertPost(ctx context.Context, p model.Post) (int64, error)
	UpdatePosts(ctx context.Context, uri, author, content string) (int64, error)
	DeletePosts(ctx context.Context, uri, author string) (int64, error)
	DeleteActivity(ctx context.Context, uri, author string) (int64, error)
	DeleteAuthorPosts(ctx context.Context, author string) (int64, error)
	SetFeatured(ctx context.Context, uri string, featured bool) (int64, error)
	AddPostTag(ctx context.Context, uri, tag string) (int64, error)
	MarkActorGone(ctx context.Context, url string) error
	Actor(ctx context.Context, url string) (*model.Actor, error)
	AddReport(ctx context.Context, reporter string, objectIDs []string, content string) (int64, error)
	LogAction(action string, details string) error
}

// Refresher refetches remote profiles, implemented by identity.Directory.
type Refresher interface {
	Refresh(ctx context.Context, url string) (*model.Actor, error)
}

var (
	// ErrNoAccount is returned when an activity names no known local account.
	ErrNoAccount = errors.New("processor: no local account addressed")
	// ErrNotPermitted is returned when the actor changes state it does not own.
	ErrNotPermitted = errors.New("processor: actor does not own the object")
)

// Processor implements inbox.Handlers.
type Processor struct {
	store    Storage
	profiles Refresher
}

var _ inbox.Handlers = (*Processor)(nil)

// New returns a processor writing to store.
func New(store Storage, profiles Refresher) *Processor {
	return &Processor{store: store, profiles: profiles}
}

func (p *Processor) journal(action string, format string, args ...any) {
	if err := p.store.LogAction(action, fmt.Sprintf(format, args...)); err != nil {
		logging.L.Warn("Could not write journal entry", "action", action, "err", err)
	}
}

// author returns the author of rec, falling back to the activity actor.
func author(rec *model.ObjectData) string {
	if rec.Author != "" {
		return rec.Author
	}
	return rec.Actor
}

// receivers returns the sorted receiver ids of rec.
func receivers(rec *model.ObjectData) []int64 {
	out := make([]int64, 0, len(rec.Receivers))
	for uid, ok := range rec.Receivers {
		if ok && uid >= 0 {
			out = append(out, uid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// localAccounts resolves the local accounts an account-directed activity is
// about: the account at url when it is local, the addressed receivers otherwise.
func (p *Processor) localAccounts(ctx context.Context, rec *model.ObjectData, url string) ([]model.Account, error) {
	if url != "" {
		a, err := p.store.AccountByURL(ctx, url)
		if err != nil {
			return nil, err
		}
		if a != nil {
			return []model.Account{*a}, nil
		}
	}
	var out []model.Account
	for _, uid := range receivers(rec) {
		if uid == model.PublicAccount {
			continue
		}
		a, err := p.store.Account(ctx, uid)
		if err != nil {
			return nil, err
		}
		if a != nil {
			out = append(out, *a)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoAccount
	}
	return out, nil
}

// contact returns the stored contact of actor for account, or a fresh one.
func (p *Processor) contact(ctx context.Context, accountID int64, actor string) (model.Contact, error) {
	c, err := p.store.Contact(ctx, accountID, actor)
	if err != nil {
		return model.Contact{}, err
	}
	if c == nil {
		return model.Contact{AccountID: accountID, URL: actor, Protocol: model.ProtocolActivityPub}, nil
	}
	return *c, nil
}

// ownedPost returns the stored post at uri when it was written by actor.
func (p *Processor) ownedPost(ctx context.Context, uri, actor string) (*model.Post, error) {
	post, err := p.store.PostByURI(ctx, uri)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("unknown item %s", uri)
	}
	if !model.CompareLinks(post.Author, actor) {
		return nil, fmt.Errorf("%w: %s is not the author of %s", ErrNotPermitted, actor, uri)
	}
	return post, nil
}

// hashtags returns the hashtag names of rec without the leading '#'.
func hashtags(rec *model.ObjectData) []string {
	var names []string
	for _, t := range rec.Tags {
		if t.Type == "Hashtag" || t.Type == "as:Hashtag" {
			if n := strings.TrimPrefix(t.Name, "#"); n != "" {
				names = append(names, n)
			}
		}
	}
	return names
}
