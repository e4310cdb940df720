// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package processor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/toeirei/inbound/internal/db"
	"github.com/toeirei/inbound/internal/model"
)

const (
	aliceURL = "https://local.example/users/alice"
	bobURL   = "https://remote.example/users/bob"
	carolURL = "https://remote.example/users/carol"

	bobFeatured = "https://remote.example/users/bob/collections/featured"
)

type stubRefresher struct{ calls []string }

func (s *stubRefresher) Refresh(_ context.Context, url string) (*model.Actor, error) {
	s.calls = append(s.calls, url)
	return &model.Actor{URL: url, Nickname: "bob"}, nil
}

type fixture struct {
	store    *db.Store
	proc     *Processor
	profiles *stubRefresher
	alice    int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	s, err := db.NewStoreFromDSN("sqlite", dsn)
	if err != nil {
		t.Fatalf("NewStoreFromDSN: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	alice, err := s.AddAccount(context.Background(), "alice", aliceURL, model.AccountPerson)
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	r := &stubRefresher{}
	return &fixture{store: s, proc: New(s, r), profiles: r, alice: alice}
}

func (f *fixture) contact(t *testing.T, actor string) *model.Contact {
	t.Helper()
	c, err := f.store.Contact(context.Background(), f.alice, actor)
	if err != nil {
		t.Fatalf("Contact: %v", err)
	}
	return c
}

func TestFollowLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.proc.FollowUser(ctx, &model.ObjectData{Actor: bobURL, ObjectID: aliceURL}); err != nil {
		t.Fatalf("FollowUser: %v", err)
	}
	if c := f.contact(t, bobURL); c == nil || c.Rel != model.RelFollower {
		t.Fatalf("after follow: %+v", c)
	}

	// alice asks to follow bob back; bob accepts.
	c := f.contact(t, bobURL)
	c.Pending = true
	if _, err := f.store.SaveContact(ctx, *c); err != nil {
		t.Fatalf("SaveContact: %v", err)
	}
	if err := f.proc.AcceptFollowUser(ctx, &model.ObjectData{Actor: bobURL, ObjectActor: aliceURL}); err != nil {
		t.Fatalf("AcceptFollowUser: %v", err)
	}
	if c := f.contact(t, bobURL); c.Rel != model.RelFriend || c.Pending {
		t.Fatalf("after accept: %+v", c)
	}

	if err := f.proc.UndoFollowUser(ctx, &model.ObjectData{Actor: bobURL, ObjectObject: aliceURL}); err != nil {
		t.Fatalf("UndoFollowUser: %v", err)
	}
	if c := f.contact(t, bobURL); c.Rel != model.RelSharing {
		t.Fatalf("after undo follow: %+v", c)
	}

	if err := f.proc.RejectFollowUser(ctx, &model.ObjectData{Actor: bobURL, ObjectActor: aliceURL}); err != nil {
		t.Fatalf("RejectFollowUser: %v", err)
	}
	if c := f.contact(t, bobURL); c.Rel != model.RelNone {
		t.Fatalf("after reject: %+v", c)
	}

	entries, err := f.store.AuditLogEntries(ctx)
	if err != nil {
		t.Fatalf("AuditLogEntries: %v", err)
	}
	var actions []string
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	want := []string{"FOLLOW_REJECTED", "UNFOLLOW", "FOLLOW_ACCEPTED", "FOLLOW"}
	if diff := cmp.Diff(want, actions); diff != "" {
		t.Fatalf("journal mismatch (-want +got):\n%s", diff)
	}
}

func TestFollowUnknownAccount(t *testing.T) {
	f := newFixture(t)
	err := f.proc.FollowUser(context.Background(), &model.ObjectData{Actor: bobURL, ObjectID: "https://local.example/users/nobody"})
	if !errors.Is(err, ErrNoAccount) {
		t.Fatalf("expected ErrNoAccount, got %v", err)
	}
}

func TestAcceptFallsBackToReceivers(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.SaveContact(context.Background(), model.Contact{AccountID: f.alice, URL: bobURL, Pending: true}); err != nil {
		t.Fatalf("SaveContact: %v", err)
	}
	rec := &model.ObjectData{Actor: bobURL, Receivers: map[int64]bool{0: true, f.alice: true}}
	if err := f.proc.AcceptFollowUser(context.Background(), rec); err != nil {
		t.Fatalf("AcceptFollowUser: %v", err)
	}
	if c := f.contact(t, bobURL); c == nil || c.Rel != model.RelSharing || c.Pending {
		t.Fatalf("contact: %+v", c)
	}
}

func TestUnsolicitedFollowResponses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// alice follows bob, but never asked carol.
	if _, err := f.store.SaveContact(ctx, model.Contact{AccountID: f.alice, URL: bobURL, Pending: true}); err != nil {
		t.Fatalf("SaveContact: %v", err)
	}
	if _, err := f.store.SaveContact(ctx, model.Contact{AccountID: f.alice, URL: carolURL, Rel: model.RelFollower}); err != nil {
		t.Fatalf("SaveContact: %v", err)
	}

	for _, actor := range []string{carolURL, "https://remote.example/users/dave"} {
		err := f.proc.AcceptFollowUser(ctx, &model.ObjectData{Actor: actor, ObjectActor: aliceURL})
		if !errors.Is(err, ErrNotPermitted) {
			t.Fatalf("accept from %s: expected ErrNotPermitted, got %v", actor, err)
		}
		if err := f.proc.RejectFollowUser(ctx, &model.ObjectData{Actor: actor, ObjectActor: aliceURL}); !errors.Is(err, ErrNotPermitted) {
			t.Fatalf("reject from %s: expected ErrNotPermitted, got %v", actor, err)
		}
	}
	if c := f.contact(t, carolURL); c.Rel != model.RelFollower || c.Pending {
		t.Fatalf("carol's contact changed: %+v", c)
	}
	if c := f.contact(t, "https://remote.example/users/dave"); c != nil {
		t.Fatalf("contact created for unsolicited accept: %+v", c)
	}

	if err := f.proc.RejectFollowUser(ctx, &model.ObjectData{Actor: bobURL, ObjectActor: aliceURL}); err != nil {
		t.Fatalf("RejectFollowUser: %v", err)
	}
	if c := f.contact(t, bobURL); c.Rel != model.RelNone || c.Pending {
		t.Fatalf("pending request not withdrawn: %+v", c)
	}
}

func TestBlockAndUnblock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.proc.BlockAccount(ctx, &model.ObjectData{Actor: bobURL, ObjectID: aliceURL}); err != nil {
		t.Fatalf("BlockAccount: %v", err)
	}
	if c := f.contact(t, bobURL); c == nil || !c.BlockedUs {
		t.Fatalf("after block: %+v", c)
	}
	if err := f.proc.UnblockAccount(ctx, &model.ObjectData{Actor: bobURL, ObjectObject: aliceURL}); err != nil {
		t.Fatalf("UnblockAccount: %v", err)
	}
	if c := f.contact(t, bobURL); c.BlockedUs {
		t.Fatalf("after unblock: %+v", c)
	}
}

func TestItemLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := &model.ObjectData{
		ID:             "https://remote.example/notes/1",
		Type:           model.KindCreate,
		ObjectType:     model.KindNote,
		Actor:          bobURL,
		Author:         bobURL,
		Content:        "hello",
		AlternateURL:   "https://remote.example/@bob/1",
		Tags:           []model.Tag{{Type: "Hashtag", Name: "#go"}, {Type: "Mention", Name: "@alice"}},
		Receivers:      map[int64]bool{0: true, f.alice: true},
		ReceptionTypes: model.ReceiverMap{0: model.TargetGlobal, f.alice: model.TargetFollower},
	}

	post, err := f.proc.CreateItem(ctx, rec)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if post.Gravity != model.GravityParent || post.ThreadURI != rec.ID || post.Private {
		t.Fatalf("unexpected post %+v", post)
	}
	for i := 0; i < 2; i++ {
		if err := f.proc.PostItem(ctx, rec, post); err != nil {
			t.Fatalf("PostItem run %d: %v", i, err)
		}
	}
	copies, _ := f.store.PostsByURI(ctx, rec.ID)
	if len(copies) != 2 {
		t.Fatalf("expected two copies, got %+v", copies)
	}
	if copies[1].AccountID != f.alice || copies[1].Reason != model.ReasonFollow {
		t.Fatalf("follower copy: %+v", copies[1])
	}
	if tags, _ := f.store.PostTags(ctx, rec.ID); len(tags) != 1 || tags[0] != "go" {
		t.Fatalf("tags: %v", tags)
	}
	if uri, _ := f.store.URIByLink(ctx, rec.AlternateURL); uri != rec.ID {
		t.Fatalf("plink not stored: %q", uri)
	}

	like := &model.ObjectData{ID: "https://remote.example/likes/1", Type: model.KindLike, Actor: carolURL, ObjectID: rec.ID}
	if err := f.proc.CreateActivity(ctx, like, model.VerbLike); err != nil {
		t.Fatalf("CreateActivity: %v", err)
	}
	stored, _ := f.store.PostsByURI(ctx, like.ID)
	if len(stored) != 1 || stored[0].AccountID != f.alice || stored[0].Verb != "like" || stored[0].Gravity != model.GravityActivity {
		t.Fatalf("reaction copies: %+v", stored)
	}
	if err := f.proc.UndoActivity(ctx, &model.ObjectData{Actor: carolURL, ObjectID: like.ID}); err != nil {
		t.Fatalf("UndoActivity: %v", err)
	}
	if stored, _ := f.store.PostsByURI(ctx, like.ID); len(stored) != 0 {
		t.Fatalf("reaction not removed: %+v", stored)
	}

	if err := f.proc.UpdateItem(ctx, &model.ObjectData{ID: rec.ID, Actor: bobURL, Content: "edited"}); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if p, _ := f.store.PostByURI(ctx, rec.ID); p.Content != "edited" {
		t.Fatalf("content not updated: %+v", p)
	}

	if err := f.store.SaveActor(ctx, model.Actor{URL: bobURL, Kind: model.KindPerson, Featured: bobFeatured}); err != nil {
		t.Fatalf("SaveActor: %v", err)
	}
	pin := &model.ObjectData{Actor: bobURL, ObjectID: rec.ID, TargetID: bobFeatured}
	if err := f.proc.AddToFeaturedCollection(ctx, pin); err != nil {
		t.Fatalf("AddToFeaturedCollection: %v", err)
	}
	if p, _ := f.store.PostByURI(ctx, rec.ID); !p.Featured {
		t.Fatalf("item not featured")
	}
	if err := f.proc.RemoveFromFeaturedCollection(ctx, pin); err != nil {
		t.Fatalf("RemoveFromFeaturedCollection: %v", err)
	}
	if p, _ := f.store.PostByURI(ctx, rec.ID); p.Featured {
		t.Fatalf("item still featured")
	}
	if err := f.proc.AddTag(ctx, &model.ObjectData{Actor: bobURL, TargetID: rec.ID, ObjectContent: "fediverse"}); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if err := f.proc.AddTag(ctx, &model.ObjectData{Actor: bobURL, TargetID: rec.ID}); err == nil {
		t.Fatalf("AddTag without tag accepted")
	}

	// A delete by somebody else leaves the item alone.
	if err := f.proc.DeleteItem(ctx, &model.ObjectData{Actor: carolURL, ObjectID: rec.ID}); err != nil {
		t.Fatalf("DeleteItem foreign: %v", err)
	}
	if p, _ := f.store.PostByURI(ctx, rec.ID); p == nil {
		t.Fatalf("foreign delete removed the item")
	}
	if err := f.proc.DeleteItem(ctx, &model.ObjectData{Actor: bobURL, ObjectID: rec.ID}); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if p, _ := f.store.PostByURI(ctx, rec.ID); p != nil {
		t.Fatalf("item not deleted: %+v", p)
	}
}

func TestForeignItemChangesRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const uri = "https://remote.example/notes/f1"
	if _, err := f.store.InsertPost(ctx, model.Post{AccountID: f.alice, URI: uri, Author: bobURL}); err != nil {
		t.Fatalf("InsertPost: %v", err)
	}
	carolFeatured := carolURL + "/collections/featured"
	for _, a := range []model.Actor{
		{URL: bobURL, Kind: model.KindPerson, Featured: bobFeatured},
		{URL: carolURL, Kind: model.KindPerson, Featured: carolFeatured},
	} {
		if err := f.store.SaveActor(ctx, a); err != nil {
			t.Fatalf("SaveActor: %v", err)
		}
	}

	tests := []struct {
		name string
		run  func() error
	}{
		{"carol pins bob's item", func() error {
			return f.proc.AddToFeaturedCollection(ctx, &model.ObjectData{Actor: carolURL, ObjectID: uri, TargetID: carolFeatured})
		}},
		{"bob pins into a foreign collection", func() error {
			return f.proc.AddToFeaturedCollection(ctx, &model.ObjectData{Actor: bobURL, ObjectID: uri, TargetID: carolFeatured})
		}},
		{"bob pins without target", func() error {
			return f.proc.AddToFeaturedCollection(ctx, &model.ObjectData{Actor: bobURL, ObjectID: uri})
		}},
		{"carol unpins bob's item", func() error {
			return f.proc.RemoveFromFeaturedCollection(ctx, &model.ObjectData{Actor: carolURL, ObjectID: uri, TargetID: carolFeatured})
		}},
		{"carol tags bob's item", func() error {
			return f.proc.AddTag(ctx, &model.ObjectData{Actor: carolURL, TargetID: uri, ObjectContent: "spam"})
		}},
	}
	for _, tt := range tests {
		if err := tt.run(); !errors.Is(err, ErrNotPermitted) {
			t.Fatalf("%s: expected ErrNotPermitted, got %v", tt.name, err)
		}
	}

	if p, _ := f.store.PostByURI(ctx, uri); p.Featured {
		t.Fatalf("foreign pin applied")
	}
	if tags, _ := f.store.PostTags(ctx, uri); len(tags) != 0 {
		t.Fatalf("foreign tag applied: %v", tags)
	}
	if err := f.proc.AddTag(ctx, &model.ObjectData{Actor: bobURL, TargetID: "https://remote.example/notes/none", ObjectContent: "x"}); err == nil {
		t.Fatalf("tag on unknown item accepted")
	}
}

func TestCreateItemReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.store.InsertPost(ctx, model.Post{URI: "https://remote.example/notes/c1", ThreadURI: "https://remote.example/notes/root", Author: bobURL}); err != nil {
		t.Fatalf("InsertPost: %v", err)
	}
	post, err := f.proc.CreateItem(ctx, &model.ObjectData{
		ID:        "https://remote.example/notes/c2",
		Actor:     carolURL,
		ReplyToID: "https://remote.example/notes/c1",
		Receivers: map[int64]bool{f.alice: true},
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if post.Gravity != model.GravityComment || post.ThreadURI != "https://remote.example/notes/root" || !post.Private {
		t.Fatalf("unexpected reply %+v", post)
	}
	if _, err := f.proc.CreateItem(ctx, &model.ObjectData{}); err == nil {
		t.Fatalf("item without id accepted")
	}
}

func TestPersonHandlers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.SaveActor(ctx, model.Actor{URL: bobURL, Kind: model.KindPerson}); err != nil {
		t.Fatalf("SaveActor: %v", err)
	}
	if _, err := f.store.SaveContact(ctx, model.Contact{AccountID: f.alice, URL: bobURL, Rel: model.RelFriend}); err != nil {
		t.Fatalf("SaveContact: %v", err)
	}
	if _, err := f.store.InsertPost(ctx, model.Post{AccountID: f.alice, URI: "https://remote.example/notes/9", Author: bobURL}); err != nil {
		t.Fatalf("InsertPost: %v", err)
	}

	if err := f.proc.UpdatePerson(ctx, &model.ObjectData{Actor: bobURL, ObjectID: bobURL}); err != nil {
		t.Fatalf("UpdatePerson: %v", err)
	}
	if len(f.profiles.calls) != 1 || f.profiles.calls[0] != bobURL {
		t.Fatalf("profile not refreshed: %v", f.profiles.calls)
	}

	if err := f.proc.DeletePerson(ctx, &model.ObjectData{Actor: bobURL, ObjectID: bobURL}); err != nil {
		t.Fatalf("DeletePerson: %v", err)
	}
	if a, _ := f.store.Actor(ctx, bobURL); a == nil || !a.Gone {
		t.Fatalf("actor not gone: %+v", a)
	}
	if c := f.contact(t, bobURL); !c.Archived || c.Rel != model.RelNone {
		t.Fatalf("contact not archived: %+v", c)
	}
	if p, _ := f.store.PostByURI(ctx, "https://remote.example/notes/9"); p != nil {
		t.Fatalf("items of deleted person kept")
	}
}

func TestDeletePersonOfAnotherActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.SaveActor(ctx, model.Actor{URL: bobURL, Kind: model.KindPerson}); err != nil {
		t.Fatalf("SaveActor: %v", err)
	}
	if _, err := f.store.SaveContact(ctx, model.Contact{AccountID: f.alice, URL: bobURL, Rel: model.RelFriend}); err != nil {
		t.Fatalf("SaveContact: %v", err)
	}
	if _, err := f.store.InsertPost(ctx, model.Post{AccountID: f.alice, URI: "https://remote.example/notes/10", Author: bobURL}); err != nil {
		t.Fatalf("InsertPost: %v", err)
	}

	err := f.proc.DeletePerson(ctx, &model.ObjectData{Actor: carolURL, ObjectID: bobURL})
	if !errors.Is(err, ErrNotPermitted) {
		t.Fatalf("expected ErrNotPermitted, got %v", err)
	}
	if a, _ := f.store.Actor(ctx, bobURL); a == nil || a.Gone {
		t.Fatalf("actor marked gone: %+v", a)
	}
	if c := f.contact(t, bobURL); c.Archived || c.Rel != model.RelFriend {
		t.Fatalf("contact archived: %+v", c)
	}
	if p, _ := f.store.PostByURI(ctx, "https://remote.example/notes/10"); p == nil {
		t.Fatalf("items of bob removed by carol")
	}
	entries, _ := f.store.AuditLogEntries(ctx)
	if len(entries) != 0 {
		t.Fatalf("refused delete journaled: %+v", entries)
	}
}

func TestReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.proc.Report(ctx, &model.ObjectData{Actor: bobURL, ObjectID: carolURL, Content: "spam"}); err != nil {
		t.Fatalf("Report: %v", err)
	}
	reports, err := f.store.Reports(ctx)
	if err != nil || len(reports) != 1 || reports[0].ObjectIDs[0] != carolURL {
		t.Fatalf("reports: %+v %v", reports, err)
	}
}
