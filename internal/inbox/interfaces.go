// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package inbox contains the inbound activity pipeline: trust evaluation,
// audience resolution, object normalization and dispatch. The interfaces below
// describe its side-effect boundaries; default implementations live in the
// sibling packages (ldterm, httpsig, fetch, identity, db, processor).
package inbox

import (
	"context"
	"net/http"

	"github.com/toeirei/inbound/internal/ldterm"
	"github.com/toeirei/inbound/internal/model"
)

// Normalizer compacts decoded JSON into the canonical key space.
type Normalizer interface {
	Compact(raw map[string]any) ldterm.Document
}

// Transport is the HTTP request context of one push delivery.
type Transport struct {
	Method string
	Path   string
	Host   string
	Header http.Header
}

// TransportVerifier checks the HTTP signature of a delivery and returns the
// URL of the signing actor. It fails with httpsig.ErrNoSignature,
// httpsig.ErrInvalidSignature or httpsig.ErrSignerGone.
type TransportVerifier interface {
	VerifyTransport(ctx context.Context, body []byte, t Transport) (string, error)
	// KeyOwner returns the actor that owns the signing key without verifying.
	KeyOwner(ctx context.Context, t Transport) string
}

// ContentVerifier handles signatures embedded in the document itself.
type ContentVerifier interface {
	IsContentSigned(raw map[string]any) bool
	// ContentSigner returns the verified signer, or "" when the signature is invalid.
	ContentSigner(ctx context.Context, raw map[string]any) string
}

// Fetcher retrieves a remote document, authenticated as the given local account.
// A nil map together with a nil error means "empty".
type Fetcher interface {
	Fetch(ctx context.Context, url string, uid int64) (map[string]any, error)
}

// IdentityStore is the actor profile cache.
type IdentityStore interface {
	// ActorByURL returns the actor, fetching it when it is not cached.
	ActorByURL(ctx context.Context, url string) (*model.Actor, error)
	// CachedActor never touches the network.
	CachedActor(ctx context.Context, url string) (*model.Actor, error)
	// Refresh refetches the actor from its origin.
	Refresh(ctx context.Context, url string) (*model.Actor, error)
	MarkActive(ctx context.Context, a *model.Actor) error
}

// Follower is a local account together with its contact record for one actor.
type Follower struct {
	Account model.Account
	Contact model.Contact
}

// Graph is the local account/contact/post store.
type Graph interface {
	Account(ctx context.Context, id int64) (*model.Account, error)
	AccountByURL(ctx context.Context, url string) (*model.Account, error)
	// Followers lists the federated, unblocked, non-pending contacts for actorURL.
	Followers(ctx context.Context, actorURL string) ([]Follower, error)
	Contact(ctx context.Context, accountID int64, actorURL string) (*model.Contact, error)
	PostOwners(ctx context.Context, uris []string) ([]int64, error)
	PostByURI(ctx context.Context, uri string) (*model.Post, error)
	// URIByLink maps a plink onto the canonical item uri, or "".
	URIByLink(ctx context.Context, link string) (string, error)
	IsPrivateThread(ctx context.Context, uri string) (bool, error)
}

// Handlers is the set of local side effects, one call per dispatch outcome.
type Handlers interface {
	CreateItem(ctx context.Context, rec *model.ObjectData) (*model.Post, error)
	PostItem(ctx context.Context, rec *model.ObjectData, post *model.Post) error
	UpdateItem(ctx context.Context, rec *model.ObjectData) error
	DeleteItem(ctx context.Context, rec *model.ObjectData) error
	CreateActivity(ctx context.Context, rec *model.ObjectData, verb model.Verb) error
	UndoActivity(ctx context.Context, rec *model.ObjectData) error
	UpdatePerson(ctx context.Context, rec *model.ObjectData) error
	DeletePerson(ctx context.Context, rec *model.ObjectData) error
	BlockAccount(ctx context.Context, rec *model.ObjectData) error
	UnblockAccount(ctx context.Context, rec *model.ObjectData) error
	FollowUser(ctx context.Context, rec *model.ObjectData) error
	AcceptFollowUser(ctx context.Context, rec *model.ObjectData) error
	RejectFollowUser(ctx context.Context, rec *model.ObjectData) error
	UndoFollowUser(ctx context.Context, rec *model.ObjectData) error
	AddTag(ctx context.Context, rec *model.ObjectData) error
	AddToFeaturedCollection(ctx context.Context, rec *model.ObjectData) error
	RemoveFromFeaturedCollection(ctx context.Context, rec *model.ObjectData) error
	Report(ctx context.Context, rec *model.ObjectData) error
}

// SampleSink stores diagnostic snapshots of activities that reached a fallback bucket.
type SampleSink interface {
	StoreSample(ctx context.Context, s Sample) error
}

// ProtocolUpgrade asks for a legacy contact to be switched to ActivityPub.
type ProtocolUpgrade struct {
	AccountID int64
	ActorURL  string
}

// UpgradeQueue accepts protocol upgrade events. Enqueue must not block.
type UpgradeQueue interface {
	Enqueue(u ProtocolUpgrade)
}
