// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model holds the plain domain types shared by the inbox pipeline,
// the storage layer and the side-effect handlers.
package model

import (
	"fmt"
	"time"
)

// AccountType distinguishes ordinary local users from community (forum) accounts.
type AccountType int

const (
	AccountPerson AccountType = iota
	AccountCommunity
)

// String returns the lowercase name of the account type.
func (t AccountType) String() string {
	if t == AccountCommunity {
		return "community"
	}
	return "person"
}

// ParseAccountType maps a CLI/config value onto an AccountType.
func ParseAccountType(s string) (AccountType, error) {
	switch s {
	case "", "person":
		return AccountPerson, nil
	case "community", "forum", "group":
		return AccountCommunity, nil
	}
	return AccountPerson, fmt.Errorf("unknown account type %q", s)
}

// Account is a local account that can receive deliveries.
type Account struct {
	ID       int64
	Nickname string
	URL      string
	Type     AccountType
}

// String returns the nickname with the profile URL.
func (a Account) String() string {
	return fmt.Sprintf("%s (%s)", a.Nickname, a.URL)
}

// Protocol is the federation protocol a contact is reached through.
type Protocol string

const (
	ProtocolActivityPub Protocol = "apub"
	ProtocolDFRN        Protocol = "dfrn"
	ProtocolOStatus     Protocol = "stat"
)

// Legacy reports whether the protocol should be switched to ActivityPub once
// the contact is seen delivering over it.
func (p Protocol) Legacy() bool {
	return p == ProtocolDFRN || p == ProtocolOStatus
}

// Relation describes the follow relationship between a local account and a contact.
type Relation int

const (
	// RelNone means no relationship.
	RelNone Relation = iota
	// RelFollower means the contact follows the local account.
	RelFollower
	// RelSharing means the local account follows the contact.
	RelSharing
	// RelFriend means both follow each other.
	RelFriend
)

// Shares reports whether the local account receives the contact's posts.
func (r Relation) Shares() bool {
	return r == RelSharing || r == RelFriend
}

// Contact is a remote actor as seen from one local account.
type Contact struct {
	ID        int64
	AccountID int64
	URL       string
	Protocol  Protocol
	Rel       Relation
	Pending   bool
	Archived  bool
	Blocked   bool
	// BlockedUs is set when the remote actor blocked the local account.
	BlockedUs bool
}

// Gravity separates thread starters, comments and activities in the post table.
type Gravity int

const (
	GravityParent   Gravity = 0
	GravityComment  Gravity = 6
	GravityActivity Gravity = 3
)

// PostReason records why a post is present for its account.
type PostReason int

const (
	ReasonNone PostReason = iota
	ReasonAnnouncement
	ReasonFollow
	ReasonRelay
)

// Post is a stored item that belongs to one local account (0 for public).
type Post struct {
	ID         int64
	AccountID  int64
	URI        string
	Plink      string
	ParentURI  string
	ThreadURI  string
	Author     string
	ObjectType string
	Verb       string
	Content    string
	Gravity    Gravity
	Reason     PostReason
	Private    bool
	Featured   bool
	CreatedAt  time.Time
}

// AuditLogEntry is one row of the handler journal.
type AuditLogEntry struct {
	ID        int64
	Timestamp string
	Action    string
	Details   string
}
