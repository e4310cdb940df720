// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"net/url"
	"strings"
	"time"
)

// Actor is a cached remote identity.
type Actor struct {
	URL          string
	Kind         Kind
	Followers    string
	Featured     string
	Inbox        string
	Nickname     string
	KeyID        string
	PublicKeyPEM string
	Gone         bool
	Suspended    bool
	Relay        bool
	LastActivity time.Time
	UpdatedAt    time.Time
}

// IsGroup reports whether the actor is a group/forum.
func (a *Actor) IsGroup() bool {
	return a != nil && a.Kind == KindGroup
}

// LooksLikeRelay applies the relay heuristic: an application or service whose
// nickname is "relay" or whose URL path is "/actor" or "/relay".
func LooksLikeRelay(kind Kind, nickname, actorURL string) bool {
	if kind != KindApplication && kind != KindService {
		return false
	}
	if strings.EqualFold(nickname, "relay") {
		return true
	}
	u, err := url.Parse(actorURL)
	if err != nil {
		return false
	}
	p := strings.TrimSuffix(u.Path, "/")
	return p == "/actor" || p == "/relay"
}

// NormalizeLink maps equivalent profile links onto one comparison form:
// the scheme becomes http, a leading "www." is dropped and trailing slashes are trimmed.
func NormalizeLink(link string) string {
	l := strings.Replace(link, "https:", "http:", 1)
	l = strings.Replace(l, "//www.", "//", 1)
	return strings.TrimRight(l, "/")
}

// CompareLinks reports whether two links are equal after normalization.
func CompareLinks(a, b string) bool {
	return strings.EqualFold(NormalizeLink(a), NormalizeLink(b))
}

// Host returns the lowercase host of a URL, or "" when it cannot be parsed.
func Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
