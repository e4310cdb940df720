// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package processor

import (
	"context"
	"testing"

	"github.com/toeirei/inbound/internal/db"
	"github.com/toeirei/inbound/internal/fetch"
	"github.com/toeirei/inbound/internal/inbox"
	"github.com/toeirei/inbound/internal/model"
)

const malloryURL = "https://evil.example/users/mallory"

// signedBy verifies every delivery as signed by the named actor.
type signedBy string

func (s signedBy) VerifyTransport(context.Context, []byte, inbox.Transport) (string, error) {
	return string(s), nil
}

func (signedBy) KeyOwner(context.Context, inbox.Transport) string { return "" }

type offline struct{}

func (offline) Fetch(context.Context, string, int64) (map[string]any, error) {
	return nil, fetch.ErrNotFound
}

// storeIdentity serves actors from the cache table only.
type storeIdentity struct{ s *db.Store }

func (i storeIdentity) ActorByURL(ctx context.Context, url string) (*model.Actor, error) {
	return i.s.Actor(ctx, url)
}

func (i storeIdentity) CachedActor(ctx context.Context, url string) (*model.Actor, error) {
	return i.s.Actor(ctx, url)
}

func (i storeIdentity) Refresh(ctx context.Context, url string) (*model.Actor, error) {
	return i.s.Actor(ctx, url)
}

func (storeIdentity) MarkActive(context.Context, *model.Actor) error { return nil }

func (f *fixture) receiver(signer string) *inbox.Receiver {
	return inbox.NewReceiver(inbox.Deps{
		Transport: signedBy(signer),
		Fetcher:   offline{},
		Identity:  storeIdentity{f.store},
		Graph:     f.store,
		Handlers:  f.proc,
	})
}

func TestReceiverRefusesForeignAccountChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, a := range []model.Actor{
		{URL: bobURL, Kind: model.KindPerson},
		{URL: malloryURL, Kind: model.KindPerson},
	} {
		if err := f.store.SaveActor(ctx, a); err != nil {
			t.Fatalf("SaveActor: %v", err)
		}
	}
	if _, err := f.store.SaveContact(ctx, model.Contact{AccountID: f.alice, URL: bobURL, Rel: model.RelFriend}); err != nil {
		t.Fatalf("SaveContact: %v", err)
	}
	if _, err := f.store.InsertPost(ctx, model.Post{AccountID: f.alice, URI: "https://remote.example/notes/11", Author: bobURL}); err != nil {
		t.Fatalf("InsertPost: %v", err)
	}
	r := f.receiver(malloryURL)

	deletion := `{
		"id": "https://evil.example/deletes/1",
		"type": "Delete",
		"actor": "https://evil.example/users/mallory",
		"to": ["https://www.w3.org/ns/activitystreams#Public"],
		"object": "https://remote.example/users/bob"
	}`
	if got := r.ProcessInbox(ctx, []byte(deletion), inbox.Transport{}, 0); got != inbox.Dispatched {
		t.Fatalf("outcome = %v, want dispatched", got)
	}

	if a, _ := f.store.Actor(ctx, bobURL); a == nil || a.Gone {
		t.Fatalf("bob marked gone by mallory: %+v", a)
	}
	if c := f.contact(t, bobURL); c.Archived || c.Rel != model.RelFriend {
		t.Fatalf("bob's contact changed: %+v", c)
	}
	if p, _ := f.store.PostByURI(ctx, "https://remote.example/notes/11"); p == nil {
		t.Fatalf("bob's items removed by mallory")
	}

	accept := `{
		"id": "https://evil.example/accepts/1",
		"type": "Accept",
		"actor": "https://evil.example/users/mallory",
		"to": ["https://local.example/users/alice"],
		"object": {
			"id": "https://local.example/follows/1",
			"type": "Follow",
			"actor": "https://local.example/users/alice",
			"object": "https://evil.example/users/mallory"
		}
	}`
	r.ProcessInbox(ctx, []byte(accept), inbox.Transport{}, 0)
	if c := f.contact(t, malloryURL); c != nil {
		t.Fatalf("unsolicited accept created a contact: %+v", c)
	}
}
