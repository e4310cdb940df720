// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package identity keeps the remote actor cache: profiles are fetched from
// their origin, parsed from the compacted document and stored through the
// db layer.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/toeirei/inbound/internal/fetch"
	"github.com/toeirei/inbound/internal/inbox"
	"github.com/toeirei/inbound/internal/ldterm"
	"github.com/toeirei/inbound/internal/logging"
	"github.com/toeirei/inbound/internal/model"
)

// ErrNotActor is returned when the fetched document is not an account.
var ErrNotActor = errors.New("identity: document is not an actor")

// Cache is the persistent actor store, implemented by *db.Store.
type Cache interface {
	Actor(ctx context.Context, url string) (*model.Actor, error)
	ActorByKeyID(ctx context.Context, keyID string) (*model.Actor, error)
	SaveActor(ctx context.Context, a model.Actor) error
	TouchActor(ctx context.Context, url string, at time.Time) error
	MarkActorGone(ctx context.Context, url string) error
}

// DefaultTTL is the age after which a cached profile is refetched.
const DefaultTTL = 24 * time.Hour

// Directory implements inbox.IdentityStore.
type Directory struct {
	cache   Cache
	fetcher fetch.Getter
	ld      inbox.Normalizer
	ttl     time.Duration
	now     func() time.Time
	flight  singleflight.Group
}

var _ inbox.IdentityStore = (*Directory)(nil)

// NewDirectory returns a directory; ttl <= 0 selects DefaultTTL.
func NewDirectory(cache Cache, fetcher fetch.Getter, ld inbox.Normalizer, ttl time.Duration) *Directory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ld == nil {
		ld = ldterm.NewCompactor()
	}
	return &Directory{cache: cache, fetcher: fetcher, ld: ld, ttl: ttl, now: time.Now}
}

// CachedActor returns the stored profile without touching the network.
func (d *Directory) CachedActor(ctx context.Context, url string) (*model.Actor, error) {
	return d.cache.Actor(ctx, url)
}

// ActorByURL returns the cached profile while it is fresh and refetches it
// otherwise. A stale copy is returned when the refetch fails.
func (d *Directory) ActorByURL(ctx context.Context, url string) (*model.Actor, error) {
	cached, err := d.cache.Actor(ctx, url)
	if err != nil {
		return nil, err
	}
	if cached != nil && (cached.Gone || d.now().Sub(cached.UpdatedAt) < d.ttl) {
		return cached, nil
	}
	a, err := d.Refresh(ctx, url)
	if err != nil {
		if cached != nil {
			logging.L.Debug("Using stale actor profile", "actor", url, "err", err)
			return cached, nil
		}
		return nil, err
	}
	return a, nil
}

// Refresh fetches the profile from its origin and stores it. A 410 marks a
// known actor as gone and returns it with Gone set.
func (d *Directory) Refresh(ctx context.Context, url string) (*model.Actor, error) {
	v, err, _ := d.flight.Do(url, func() (any, error) {
		return d.refresh(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	a := *v.(*model.Actor)
	return &a, nil
}

func (d *Directory) refresh(ctx context.Context, url string) (*model.Actor, error) {
	if d.fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured for %s", url)
	}
	raw, err := d.fetcher.Fetch(ctx, url, 0)
	if errors.Is(err, fetch.ErrGone) {
		if cached, _ := d.cache.Actor(ctx, url); cached != nil {
			if err := d.cache.MarkActorGone(ctx, url); err != nil {
				logging.L.Warn("Could not mark actor as gone", "actor", url, "err", err)
			}
			cached.Gone = true
			return cached, nil
		}
		return &model.Actor{URL: url, Gone: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not fetch actor %s: %w", url, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("empty actor document for %s", url)
	}

	a, err := ParseActor(d.ld.Compact(raw))
	if err != nil {
		return nil, err
	}
	if !model.CompareLinks(a.URL, url) {
		return nil, fmt.Errorf("actor %s answered with id %s", url, a.URL)
	}
	a.UpdatedAt = d.now().UTC()
	if err := d.cache.SaveActor(ctx, *a); err != nil {
		return nil, fmt.Errorf("could not store actor %s: %w", url, err)
	}
	logging.L.Debug("Actor profile updated", "actor", a.URL, "kind", a.Kind, "relay", a.Relay)
	return a, nil
}

// ActorByKeyID returns the owner of a signing key, fetching the key document
// (the key id without fragment) when the key is unknown.
func (d *Directory) ActorByKeyID(ctx context.Context, keyID string) (*model.Actor, error) {
	if a, err := d.cache.ActorByKeyID(ctx, keyID); err != nil || a != nil {
		return a, err
	}
	url := keyID
	if i := strings.IndexByte(url, '#'); i >= 0 {
		url = url[:i]
	}
	a, err := d.Refresh(ctx, url)
	if err != nil {
		return nil, err
	}
	if !a.Gone && a.KeyID != keyID {
		return nil, fmt.Errorf("actor %s does not publish key %s", a.URL, keyID)
	}
	return a, nil
}

// MarkActive records a delivery from a.
func (d *Directory) MarkActive(ctx context.Context, a *model.Actor) error {
	if a == nil {
		return nil
	}
	return d.cache.TouchActor(ctx, a.URL, d.now())
}

// ParseActor reads an actor profile from a compacted document.
func ParseActor(doc ldterm.Document) (*model.Actor, error) {
	kind := model.Kind(doc.Type())
	if doc.ID() == "" || !kind.IsAccount() {
		return nil, fmt.Errorf("%w: %q (%s)", ErrNotActor, doc.ID(), kind)
	}
	a := &model.Actor{
		URL:       doc.ID(),
		Kind:      kind,
		Followers: doc.String("as:followers", ""),
		Featured:  doc.String("toot:featured", ""),
		Inbox:     doc.String("ldp:inbox", ""),
		Nickname:  doc.String("as:preferredUsername", "@value"),
	}
	if pk := doc.Node("sec:publicKey"); pk != nil {
		a.KeyID = pk.ID()
		a.PublicKeyPEM = pk.String("sec:publicKeyPem", "@value")
		if owner := pk.String("sec:owner", ""); owner != "" && !model.CompareLinks(owner, a.URL) {
			return nil, fmt.Errorf("key %s of %s is owned by %s", a.KeyID, a.URL, owner)
		}
	} else if keyID := doc.String("sec:publicKey", ""); keyID != "" {
		a.KeyID = keyID
	}
	if suspended, ok := doc.Bool("toot:suspended"); ok {
		a.Suspended = suspended
	}
	a.Relay = model.LooksLikeRelay(kind, a.Nickname, a.URL)
	return a, nil
}
