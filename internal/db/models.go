// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/toeirei/inbound/internal/model"
)

// AccountModel maps the accounts table.
type AccountModel struct {
	bun.BaseModel `bun:"table:accounts"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Nickname      string    `bun:"nickname"`
	URL           string    `bun:"url"`
	NURL          string    `bun:"nurl"`
	Type          int       `bun:"type"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// ContactModel maps the contacts table. NURL holds model.NormalizeLink(URL).
type ContactModel struct {
	bun.BaseModel `bun:"table:contacts"`
	ID            int64     `bun:"id,pk,autoincrement"`
	AccountID     int64     `bun:"account_id"`
	URL           string    `bun:"url"`
	NURL          string    `bun:"nurl"`
	Protocol      string    `bun:"protocol"`
	Rel           int       `bun:"rel"`
	Pending       bool      `bun:"pending"`
	Archived      bool      `bun:"archived"`
	Blocked       bool      `bun:"blocked"`
	BlockedUs     bool      `bun:"blocked_us"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// ActorModel maps the remote actor cache.
type ActorModel struct {
	bun.BaseModel `bun:"table:actors"`
	URL           string       `bun:"url,pk"`
	NURL          string       `bun:"nurl"`
	Kind          string       `bun:"kind"`
	Followers     string       `bun:"followers"`
	Featured      string       `bun:"featured"`
	Inbox         string       `bun:"inbox"`
	Nickname      string       `bun:"nickname"`
	KeyID         string       `bun:"key_id"`
	PublicKeyPEM  string       `bun:"public_key_pem"`
	Gone          bool         `bun:"gone"`
	Suspended     bool         `bun:"suspended"`
	Relay         bool         `bun:"relay"`
	LastActivity  bun.NullTime `bun:"last_activity"`
	UpdatedAt     bun.NullTime `bun:"updated_at"`
}

// PostModel maps the posts table.
type PostModel struct {
	bun.BaseModel `bun:"table:posts"`
	ID            int64     `bun:"id,pk,autoincrement"`
	AccountID     int64     `bun:"account_id"`
	URI           string    `bun:"uri"`
	Plink         string    `bun:"plink"`
	ParentURI     string    `bun:"parent_uri"`
	ThreadURI     string    `bun:"thread_uri"`
	Author        string    `bun:"author"`
	ObjectType    string    `bun:"object_type"`
	Verb          string    `bun:"verb"`
	Content       string    `bun:"content"`
	Tags          string    `bun:"tags"`
	Gravity       int       `bun:"gravity"`
	Reason        int       `bun:"reason"`
	Private       bool      `bun:"private"`
	Featured      bool      `bun:"featured"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// AuditLogModel maps the audit_log table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int64  `bun:"id,pk,autoincrement"`
	Timestamp     string `bun:"timestamp"`
	Action        string `bun:"action"`
	Details       string `bun:"details"`
}

// SampleModel maps unhandled_samples. Body is zstd compressed.
type SampleModel struct {
	bun.BaseModel `bun:"table:unhandled_samples"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Bucket        string    `bun:"bucket"`
	Name          string    `bun:"name"`
	UID           int64     `bun:"uid"`
	Trusted       bool      `bun:"trusted"`
	Push          bool      `bun:"push"`
	Signers       string    `bun:"signers"`
	Activity      string    `bun:"activity"`
	Record        string    `bun:"record"`
	Body          []byte    `bun:"body"`
	CreatedAt     time.Time `bun:"created_at,nullzero"`
}

// ReportModel maps the reports table.
type ReportModel struct {
	bun.BaseModel `bun:"table:reports"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Reporter      string    `bun:"reporter"`
	ObjectIDs     string    `bun:"object_ids"`
	Content       string    `bun:"content"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func accountModelToModel(m AccountModel) model.Account {
	return model.Account{ID: m.ID, Nickname: m.Nickname, URL: m.URL, Type: model.AccountType(m.Type)}
}

func contactModelToModel(m ContactModel) model.Contact {
	return model.Contact{
		ID:        m.ID,
		AccountID: m.AccountID,
		URL:       m.URL,
		Protocol:  model.Protocol(m.Protocol),
		Rel:       model.Relation(m.Rel),
		Pending:   m.Pending,
		Archived:  m.Archived,
		Blocked:   m.Blocked,
		BlockedUs: m.BlockedUs,
	}
}

func actorModelToModel(m ActorModel) model.Actor {
	return model.Actor{
		URL:          m.URL,
		Kind:         model.Kind(m.Kind),
		Followers:    m.Followers,
		Featured:     m.Featured,
		Inbox:        m.Inbox,
		Nickname:     m.Nickname,
		KeyID:        m.KeyID,
		PublicKeyPEM: m.PublicKeyPEM,
		Gone:         m.Gone,
		Suspended:    m.Suspended,
		Relay:        m.Relay,
		LastActivity: m.LastActivity.Time,
		UpdatedAt:    m.UpdatedAt.Time,
	}
}

func actorToModel(a model.Actor) ActorModel {
	return ActorModel{
		URL:          a.URL,
		NURL:         nurl(a.URL),
		Kind:         string(a.Kind),
		Followers:    a.Followers,
		Featured:     a.Featured,
		Inbox:        a.Inbox,
		Nickname:     a.Nickname,
		KeyID:        a.KeyID,
		PublicKeyPEM: a.PublicKeyPEM,
		Gone:         a.Gone,
		Suspended:    a.Suspended,
		Relay:        a.Relay,
		LastActivity: bun.NullTime{Time: a.LastActivity},
		UpdatedAt:    bun.NullTime{Time: a.UpdatedAt},
	}
}

func postModelToModel(m PostModel) model.Post {
	return model.Post{
		ID:         m.ID,
		AccountID:  m.AccountID,
		URI:        m.URI,
		Plink:      m.Plink,
		ParentURI:  m.ParentURI,
		ThreadURI:  m.ThreadURI,
		Author:     m.Author,
		ObjectType: m.ObjectType,
		Verb:       m.Verb,
		Content:    m.Content,
		Gravity:    model.Gravity(m.Gravity),
		Reason:     model.PostReason(m.Reason),
		Private:    m.Private,
		Featured:   m.Featured,
		CreatedAt:  m.CreatedAt,
	}
}

func postToModel(p model.Post) PostModel {
	return PostModel{
		ID:         p.ID,
		AccountID:  p.AccountID,
		URI:        p.URI,
		Plink:      p.Plink,
		ParentURI:  p.ParentURI,
		ThreadURI:  p.ThreadURI,
		Author:     p.Author,
		ObjectType: p.ObjectType,
		Verb:       p.Verb,
		Content:    p.Content,
		Gravity:    int(p.Gravity),
		Reason:     int(p.Reason),
		Private:    p.Private,
		Featured:   p.Featured,
		CreatedAt:  p.CreatedAt,
	}
}
