// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package inbox

import (
	"context"
	"sort"

	"github.com/toeirei/inbound/internal/ldterm"
	"github.com/toeirei/inbound/internal/logging"
	"github.com/toeirei/inbound/internal/model"
)

type audienceRequest struct {
	doc           ldterm.Document
	actor         string
	tags          []model.Tag
	fetchUnlisted bool
}

// resolveAudience maps the addressing of doc onto local accounts.
func (s *session) resolveAudience(ctx context.Context, req audienceRequest) model.ReceiverMap {
	m := model.ReceiverMap{}
	doc := req.doc

	var reply []string
	replyTo := doc.String("as:inReplyTo", "")
	if replyTo != "" {
		reply = append(reply, replyTo)
		if fixed, _ := s.graph.URIByLink(ctx, replyTo); fixed != "" && fixed != replyTo {
			reply = append(reply, fixed)
		}
	}
	if objectID := doc.String("as:object", ""); objectID != "" {
		reply = append(reply, objectID)
	}
	if len(reply) > 0 {
		owners, err := s.graph.PostOwners(ctx, reply)
		if err != nil {
			logging.L.Debug("Could not look up reply targets", "err", err)
		}
		for _, uid := range owners {
			m.Classify(uid, model.TargetAnswer)
		}
	}

	var followers string
	var isGroup bool
	if req.actor != "" {
		if a, err := s.identity.ActorByURL(ctx, req.actor); err == nil && a != nil {
			followers = a.Followers
			isGroup = a.IsGroup()
		}
	}
	followerTarget := model.TargetFollower
	if s.completion {
		followerTarget = model.TargetUnknown
	}

	for _, list := range model.AudienceLists {
		for _, entry := range doc.Strings(string(list), "") {
			public := model.IsPublic(entry)
			if public {
				m.Classify(model.PublicAccount, model.TargetGlobal)
				if req.fetchUnlisted && list == model.ListCC {
					m.Classify(model.UnlistedAccount, model.TargetGlobal)
				}
			}
			if req.actor != "" && ((followers != "" && entry == followers) || (public && !isGroup)) {
				s.expandFollowers(ctx, req.actor, isGroup, req.tags, followerTarget, m)
				continue
			}
			if public {
				continue
			}

			acct, err := s.graph.AccountByURL(ctx, entry)
			if err != nil || acct == nil {
				continue
			}
			community := acct.Type == model.AccountCommunity
			if (list != model.ListTo && replyTo == "") || community {
				if !s.follows(ctx, acct, req.actor) {
					continue
				}
			}
			m.Classify(acct.ID, list.Classification())
		}
	}

	s.emitUpgrades(ctx, m, req.actor)
	return m
}

// follows reports whether acct accepts posts from actor. Community accounts also
// accept posts from their followers.
func (s *session) follows(ctx context.Context, acct *model.Account, actor string) bool {
	c, err := s.graph.Contact(ctx, acct.ID, actor)
	if err != nil || c == nil || c.Pending || c.Archived || c.Blocked {
		return false
	}
	if c.Rel.Shares() {
		return true
	}
	return acct.Type == model.AccountCommunity && c.Rel == model.RelFollower
}

// expandFollowers adds the local followers of actor that are not yet classified.
// Group actors only reach community accounts that are mentioned in tags.
func (s *session) expandFollowers(ctx context.Context, actor string, isGroup bool, tags []model.Tag, target model.Classification, m model.ReceiverMap) {
	fs, err := s.graph.Followers(ctx, actor)
	if err != nil {
		logging.L.Debug("Could not list followers", "actor", actor, "err", err)
		return
	}
	for _, f := range fs {
		id := f.Account.ID
		if id <= 0 {
			continue
		}
		if _, ok := m[id]; ok {
			continue
		}
		if !validFollower(f, isGroup, tags) {
			continue
		}
		m[id] = target
	}
}

func validFollower(f Follower, isGroup bool, tags []model.Tag) bool {
	if !isGroup && f.Contact.Rel.Shares() {
		return true
	}
	if f.Account.Type != model.AccountCommunity {
		return false
	}
	for _, t := range tags {
		if t.Type == "Mention" && model.CompareLinks(f.Account.URL, t.Href) {
			return true
		}
	}
	return false
}

// emitUpgrades queues a protocol upgrade for every receiver whose contact for
// actor still uses a legacy protocol.
func (s *session) emitUpgrades(ctx context.Context, m model.ReceiverMap, actor string) {
	if actor == "" {
		return
	}
	for _, id := range sortedIDs(m) {
		if id <= 0 {
			continue
		}
		c, err := s.graph.Contact(ctx, id, actor)
		if err != nil || c == nil || !c.Protocol.Legacy() {
			continue
		}
		s.upgrades.Enqueue(ProtocolUpgrade{AccountID: id, ActorURL: actor})
	}
}

// forceTarget keeps a single-inbox delivery for its target account.
func (s *session) forceTarget(ctx context.Context, uid int64, m model.ReceiverMap, urls map[model.AudienceList][]string) {
	if uid <= 0 {
		return
	}
	if _, ok := m[uid]; !ok {
		m[uid] = model.TargetUnknown
	}
	if s.completion || !m[uid].Weak() {
		return
	}
	m[uid] = model.TargetBCC
	acct, err := s.graph.Account(ctx, uid)
	if err != nil || acct == nil || acct.URL == "" {
		return
	}
	urls[model.ListBCC] = append(urls[model.ListBCC], acct.URL)
}

// bestUser picks the local account used for authenticated fetches: an account
// addressed with "to" first, then any addressed account, then a follower.
func (s *session) bestUser(ctx context.Context, m model.ReceiverMap, actor string) int64 {
	ids := sortedIDs(m)
	for _, id := range ids {
		if id > 0 && m[id] == model.TargetTo {
			return id
		}
	}
	for _, id := range ids {
		if id > 0 {
			return id
		}
	}
	if actor == "" {
		return 0
	}
	fs, err := s.graph.Followers(ctx, actor)
	if err != nil {
		return 0
	}
	for _, f := range fs {
		if f.Account.ID > 0 && f.Contact.Rel.Shares() {
			return f.Account.ID
		}
	}
	return 0
}

// receiverURLs collects the raw addressing lists, with the public collection expanded.
func receiverURLs(doc ldterm.Document) map[model.AudienceList][]string {
	urls := map[model.AudienceList][]string{}
	for _, list := range model.AudienceLists {
		for _, u := range doc.Strings(string(list), "") {
			if model.IsPublic(u) {
				u = model.PublicCollectionURL
			}
			urls[list] = append(urls[list], u)
		}
	}
	return urls
}

func sortedIDs(m model.ReceiverMap) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
