// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package inbox

import (
	"context"
	"sync"
	"testing"

	"github.com/toeirei/inbound/internal/ldterm"
	"github.com/toeirei/inbound/internal/model"
)

const (
	aliceURL  = "https://local.example/users/alice"
	forumURL  = "https://local.example/users/forum"
	carolURL  = "https://local.example/users/carol"
	bobURL    = "https://remote.example/users/bob"
	bobFollow = "https://remote.example/users/bob/followers"
	groupURL  = "https://groups.example/g/cats"
	groupFoll = "https://groups.example/g/cats/followers"
	relayURL  = "https://relay.example/actor"
)

type fakeTransport struct {
	signer string
	err    error
	owner  string
}

func (f *fakeTransport) VerifyTransport(context.Context, []byte, Transport) (string, error) {
	return f.signer, f.err
}

func (f *fakeTransport) KeyOwner(context.Context, Transport) string { return f.owner }

type fakeContent struct {
	signed bool
	signer string
}

func (f *fakeContent) IsContentSigned(map[string]any) bool { return f.signed }

func (f *fakeContent) ContentSigner(context.Context, map[string]any) string { return f.signer }

// fakeFetcher serves JSON bodies by URL and records every request.
type fakeFetcher struct {
	mu    sync.Mutex
	docs  map[string]string
	errs  map[string]error
	calls []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{docs: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, _ int64) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	body, ok := f.docs[url]
	if !ok {
		return nil, nil
	}
	return ldterm.Decode([]byte(body))
}

func (f *fakeFetcher) requested(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == url {
			n++
		}
	}
	return n
}

type fakeIdentity struct {
	actors  map[string]*model.Actor
	refresh map[string]*model.Actor
	active  []string
}

func (f *fakeIdentity) ActorByURL(_ context.Context, url string) (*model.Actor, error) {
	return f.actors[url], nil
}

func (f *fakeIdentity) CachedActor(_ context.Context, url string) (*model.Actor, error) {
	return f.actors[url], nil
}

func (f *fakeIdentity) Refresh(_ context.Context, url string) (*model.Actor, error) {
	return f.refresh[url], nil
}

func (f *fakeIdentity) MarkActive(_ context.Context, a *model.Actor) error {
	f.active = append(f.active, a.URL)
	return nil
}

type fakeGraph struct {
	accounts []model.Account
	contacts []model.Contact
	posts    []model.Post
	links    map[string]string
	private  map[string]bool
	queries  int
}

func (g *fakeGraph) Account(_ context.Context, id int64) (*model.Account, error) {
	g.queries++
	for i := range g.accounts {
		if g.accounts[i].ID == id {
			return &g.accounts[i], nil
		}
	}
	return nil, nil
}

func (g *fakeGraph) AccountByURL(_ context.Context, url string) (*model.Account, error) {
	g.queries++
	for i := range g.accounts {
		if model.CompareLinks(g.accounts[i].URL, url) {
			return &g.accounts[i], nil
		}
	}
	return nil, nil
}

func (g *fakeGraph) Followers(_ context.Context, actor string) ([]Follower, error) {
	g.queries++
	var out []Follower
	for _, c := range g.contacts {
		if !model.CompareLinks(c.URL, actor) || c.Blocked || c.Pending || c.Archived || c.Rel == model.RelNone {
			continue
		}
		for _, a := range g.accounts {
			if a.ID == c.AccountID {
				out = append(out, Follower{Account: a, Contact: c})
			}
		}
	}
	return out, nil
}

func (g *fakeGraph) Contact(_ context.Context, accountID int64, actor string) (*model.Contact, error) {
	g.queries++
	for i := range g.contacts {
		if g.contacts[i].AccountID == accountID && model.CompareLinks(g.contacts[i].URL, actor) {
			return &g.contacts[i], nil
		}
	}
	return nil, nil
}

func (g *fakeGraph) PostOwners(_ context.Context, uris []string) ([]int64, error) {
	g.queries++
	var out []int64
	for _, p := range g.posts {
		for _, u := range uris {
			if p.URI == u {
				out = append(out, p.AccountID)
			}
		}
	}
	return out, nil
}

func (g *fakeGraph) PostByURI(_ context.Context, uri string) (*model.Post, error) {
	g.queries++
	for i := range g.posts {
		if g.posts[i].URI == uri {
			return &g.posts[i], nil
		}
	}
	return nil, nil
}

func (g *fakeGraph) URIByLink(_ context.Context, link string) (string, error) {
	return g.links[link], nil
}

func (g *fakeGraph) IsPrivateThread(_ context.Context, uri string) (bool, error) {
	return g.private[uri], nil
}

type handlerCall struct {
	name string
	rec  *model.ObjectData
	verb model.Verb
	post *model.Post
}

type fakeHandlers struct {
	calls []handlerCall
}

func (h *fakeHandlers) add(name string, rec *model.ObjectData) error {
	h.calls = append(h.calls, handlerCall{name: name, rec: rec})
	return nil
}

func (h *fakeHandlers) names() []string {
	var out []string
	for _, c := range h.calls {
		out = append(out, c.name)
	}
	return out
}

func (h *fakeHandlers) CreateItem(_ context.Context, rec *model.ObjectData) (*model.Post, error) {
	h.calls = append(h.calls, handlerCall{name: "CreateItem", rec: rec})
	return &model.Post{URI: rec.ID, Author: rec.Author, Content: rec.Content}, nil
}

func (h *fakeHandlers) PostItem(_ context.Context, rec *model.ObjectData, post *model.Post) error {
	h.calls = append(h.calls, handlerCall{name: "PostItem", rec: rec, post: post})
	return nil
}

func (h *fakeHandlers) CreateActivity(_ context.Context, rec *model.ObjectData, verb model.Verb) error {
	h.calls = append(h.calls, handlerCall{name: "CreateActivity", rec: rec, verb: verb})
	return nil
}

func (h *fakeHandlers) UpdateItem(_ context.Context, rec *model.ObjectData) error {
	return h.add("UpdateItem", rec)
}

func (h *fakeHandlers) DeleteItem(_ context.Context, rec *model.ObjectData) error {
	return h.add("DeleteItem", rec)
}

func (h *fakeHandlers) UndoActivity(_ context.Context, rec *model.ObjectData) error {
	return h.add("UndoActivity", rec)
}

func (h *fakeHandlers) UpdatePerson(_ context.Context, rec *model.ObjectData) error {
	return h.add("UpdatePerson", rec)
}

func (h *fakeHandlers) DeletePerson(_ context.Context, rec *model.ObjectData) error {
	return h.add("DeletePerson", rec)
}

func (h *fakeHandlers) BlockAccount(_ context.Context, rec *model.ObjectData) error {
	return h.add("BlockAccount", rec)
}

func (h *fakeHandlers) UnblockAccount(_ context.Context, rec *model.ObjectData) error {
	return h.add("UnblockAccount", rec)
}

func (h *fakeHandlers) FollowUser(_ context.Context, rec *model.ObjectData) error {
	return h.add("FollowUser", rec)
}

func (h *fakeHandlers) AcceptFollowUser(_ context.Context, rec *model.ObjectData) error {
	return h.add("AcceptFollowUser", rec)
}

func (h *fakeHandlers) RejectFollowUser(_ context.Context, rec *model.ObjectData) error {
	return h.add("RejectFollowUser", rec)
}

func (h *fakeHandlers) UndoFollowUser(_ context.Context, rec *model.ObjectData) error {
	return h.add("UndoFollowUser", rec)
}

func (h *fakeHandlers) AddTag(_ context.Context, rec *model.ObjectData) error {
	return h.add("AddTag", rec)
}

func (h *fakeHandlers) AddToFeaturedCollection(_ context.Context, rec *model.ObjectData) error {
	return h.add("AddToFeaturedCollection", rec)
}

func (h *fakeHandlers) RemoveFromFeaturedCollection(_ context.Context, rec *model.ObjectData) error {
	return h.add("RemoveFromFeaturedCollection", rec)
}

func (h *fakeHandlers) Report(_ context.Context, rec *model.ObjectData) error {
	return h.add("Report", rec)
}

type memorySink struct {
	samples []Sample
}

func (m *memorySink) StoreSample(_ context.Context, s Sample) error {
	m.samples = append(m.samples, s)
	return nil
}

type fakeQueue struct {
	events []ProtocolUpgrade
}

func (q *fakeQueue) Enqueue(u ProtocolUpgrade) { q.events = append(q.events, u) }

// testEnv bundles the fakes behind one Receiver.
type testEnv struct {
	transport *fakeTransport
	content   *fakeContent
	fetcher   *fakeFetcher
	identity  *fakeIdentity
	graph     *fakeGraph
	handlers  *fakeHandlers
	sink      *memorySink
	queue     *fakeQueue
	fetches   int
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		transport: &fakeTransport{signer: bobURL},
		content:   &fakeContent{},
		fetcher:   newFakeFetcher(),
		identity: &fakeIdentity{
			actors: map[string]*model.Actor{
				bobURL:   {URL: bobURL, Kind: model.KindPerson, Followers: bobFollow},
				groupURL: {URL: groupURL, Kind: model.KindGroup, Followers: groupFoll},
				relayURL: {URL: relayURL, Kind: model.KindApplication, Nickname: "relay", Relay: true},
			},
			refresh: map[string]*model.Actor{},
		},
		graph: &fakeGraph{
			accounts: []model.Account{
				{ID: 1, Nickname: "alice", URL: aliceURL, Type: model.AccountPerson},
				{ID: 2, Nickname: "forum", URL: forumURL, Type: model.AccountCommunity},
				{ID: 3, Nickname: "carol", URL: carolURL, Type: model.AccountPerson},
			},
			contacts: []model.Contact{
				{ID: 10, AccountID: 1, URL: bobURL, Protocol: model.ProtocolActivityPub, Rel: model.RelSharing},
				{ID: 11, AccountID: 1, URL: groupURL, Protocol: model.ProtocolActivityPub, Rel: model.RelSharing},
			},
			links:   map[string]string{},
			private: map[string]bool{},
		},
		handlers: &fakeHandlers{},
		sink:     &memorySink{},
		queue:    &fakeQueue{},
		fetches:  10,
	}
}

func (e *testEnv) receiver() *Receiver {
	return NewReceiver(Deps{
		Transport:  e.transport,
		Content:    e.content,
		Fetcher:    e.fetcher,
		Identity:   e.identity,
		Graph:      e.graph,
		Handlers:   e.handlers,
		Recorder:   NewRecorder(true, e.sink),
		Upgrades:   e.queue,
		MaxFetches: e.fetches,
	})
}

func (e *testEnv) session(d Delivery) *session {
	return e.receiver().newSession(d)
}

func compact(t *testing.T, body string) ldterm.Document {
	t.Helper()
	raw, err := ldterm.Decode([]byte(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return ldterm.NewCompactor().Compact(raw)
}

func trusted() Delivery {
	return Delivery{Trust: TrustContext{Trusted: true, Push: true}.WithSigner(bobURL)}
}
