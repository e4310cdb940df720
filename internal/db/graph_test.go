// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/toeirei/inbound/internal/model"
)

const (
	bobURL   = "https://remote.example/users/bob"
	carolURL = "https://remote.example/users/carol"
)

func seedAccounts(t *testing.T, s *Store) (alice, forum int64) {
	t.Helper()
	ctx := context.Background()
	var err error
	if alice, err = s.AddAccount(ctx, "alice", "https://local.example/users/alice", model.AccountPerson); err != nil {
		t.Fatalf("AddAccount alice: %v", err)
	}
	if forum, err = s.AddAccount(ctx, "forum", "https://local.example/users/forum", model.AccountCommunity); err != nil {
		t.Fatalf("AddAccount forum: %v", err)
	}
	return alice, forum
}

func TestAccounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice, forum := seedAccounts(t, s)

	if _, err := s.AddAccount(ctx, "alice", "https://local.example/users/alice2", model.AccountPerson); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate nickname: got %v", err)
	}

	a, err := s.AccountByURL(ctx, "http://www.local.example/users/alice/")
	if err != nil || a == nil || a.ID != alice {
		t.Fatalf("AccountByURL normalized lookup: %+v %v", a, err)
	}
	f, err := s.Account(ctx, forum)
	if err != nil || f == nil || f.Type != model.AccountCommunity || f.Nickname != "forum" {
		t.Fatalf("Account(forum): %+v %v", f, err)
	}
	if missing, err := s.Account(ctx, 99); err != nil || missing != nil {
		t.Fatalf("missing account: %+v %v", missing, err)
	}
	if n, err := s.AccountByNickname(ctx, "forum"); err != nil || n == nil || n.ID != forum {
		t.Fatalf("AccountByNickname: %+v %v", n, err)
	}
	all, err := s.Accounts(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("Accounts: %v %v", all, err)
	}
}

func TestFollowersAndContacts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice, forum := seedAccounts(t, s)

	id, err := s.SaveContact(ctx, model.Contact{AccountID: alice, URL: bobURL, Rel: model.RelSharing})
	if err != nil {
		t.Fatalf("SaveContact: %v", err)
	}
	// Same actor under an equivalent link updates the row.
	again, err := s.SaveContact(ctx, model.Contact{AccountID: alice, URL: "http://remote.example/users/bob/", Rel: model.RelFriend})
	if err != nil || again != id {
		t.Fatalf("SaveContact update: id %d, want %d, err %v", again, id, err)
	}
	if _, err := s.SaveContact(ctx, model.Contact{AccountID: forum, URL: bobURL, Rel: model.RelFollower, Pending: true}); err != nil {
		t.Fatalf("SaveContact pending: %v", err)
	}

	followers, err := s.Followers(ctx, bobURL)
	if err != nil {
		t.Fatalf("Followers: %v", err)
	}
	if len(followers) != 1 {
		t.Fatalf("expected one follower, got %+v", followers)
	}
	got := followers[0]
	if got.Account.ID != alice || got.Account.Nickname != "alice" || got.Contact.Rel != model.RelFriend || got.Contact.Protocol != model.ProtocolActivityPub {
		t.Fatalf("unexpected follower %+v", got)
	}

	c, err := s.Contact(ctx, forum, bobURL)
	if err != nil || c == nil || !c.Pending {
		t.Fatalf("Contact(forum): %+v %v", c, err)
	}
	if c, err := s.Contact(ctx, alice, carolURL); err != nil || c != nil {
		t.Fatalf("unknown contact: %+v %v", c, err)
	}

	n, err := s.ArchiveContacts(ctx, bobURL)
	if err != nil || n != 2 {
		t.Fatalf("ArchiveContacts: %d %v", n, err)
	}
	if followers, _ := s.Followers(ctx, bobURL); len(followers) != 0 {
		t.Fatalf("archived contacts still follow: %+v", followers)
	}
}

func TestUpgradeProtocol(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice, _ := seedAccounts(t, s)
	if _, err := s.SaveContact(ctx, model.Contact{AccountID: alice, URL: bobURL, Protocol: model.ProtocolDFRN, Rel: model.RelSharing}); err != nil {
		t.Fatalf("SaveContact: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.UpgradeProtocol(ctx, alice, bobURL); err != nil {
			t.Fatalf("UpgradeProtocol run %d: %v", i, err)
		}
	}
	c, _ := s.Contact(ctx, alice, bobURL)
	if c == nil || c.Protocol != model.ProtocolActivityPub {
		t.Fatalf("contact not upgraded: %+v", c)
	}
	entries, err := s.AuditLogEntries(ctx)
	if err != nil {
		t.Fatalf("AuditLogEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "UPGRADE_PROTOCOL" {
		t.Fatalf("expected a single journal entry, got %+v", entries)
	}
	if _, err := time.Parse(time.RFC3339, entries[0].Timestamp); err != nil {
		t.Fatalf("timestamp %q: %v", entries[0].Timestamp, err)
	}
}

func TestPostLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice, forum := seedAccounts(t, s)

	posts := []model.Post{
		{AccountID: 0, URI: "https://remote.example/notes/1", Plink: "https://remote.example/@bob/1", Author: bobURL},
		{AccountID: forum, URI: "https://remote.example/notes/1", Plink: "https://remote.example/@bob/1", Author: bobURL},
		{AccountID: alice, URI: "https://remote.example/notes/2", Author: bobURL, Private: true},
	}
	for _, p := range posts {
		if _, err := s.InsertPost(ctx, p); err != nil {
			t.Fatalf("InsertPost: %v", err)
		}
	}
	if _, err := s.InsertPost(ctx, posts[1]); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate post: got %v", err)
	}

	owners, err := s.PostOwners(ctx, []string{"https://remote.example/notes/1", "https://remote.example/notes/2", "https://remote.example/notes/3"})
	if err != nil {
		t.Fatalf("PostOwners: %v", err)
	}
	if diff := cmp.Diff([]int64{alice, forum}, owners); diff != "" {
		t.Fatalf("owners mismatch (-want +got):\n%s", diff)
	}

	p, err := s.PostByURI(ctx, "https://remote.example/notes/1")
	if err != nil || p == nil || p.AccountID != 0 {
		t.Fatalf("PostByURI prefers the public copy: %+v %v", p, err)
	}
	if p, err := s.PostByURI(ctx, "https://remote.example/notes/9"); err != nil || p != nil {
		t.Fatalf("unknown post: %+v %v", p, err)
	}

	uri, err := s.URIByLink(ctx, "https://remote.example/@bob/1")
	if err != nil || uri != "https://remote.example/notes/1" {
		t.Fatalf("URIByLink: %q %v", uri, err)
	}
	if uri, _ := s.URIByLink(ctx, "https://remote.example/@bob/9"); uri != "" {
		t.Fatalf("unknown link resolved to %q", uri)
	}

	private, err := s.IsPrivateThread(ctx, "https://remote.example/notes/2")
	if err != nil || !private {
		t.Fatalf("IsPrivateThread: %v %v", private, err)
	}
	if private, _ := s.IsPrivateThread(ctx, "https://remote.example/notes/1"); private {
		t.Fatalf("public thread reported private")
	}
}
