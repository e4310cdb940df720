// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/toeirei/inbound/internal/db"
	"github.com/toeirei/inbound/internal/logging"
	"github.com/toeirei/inbound/internal/model"
)

// CreateItem builds the post for rec. Nothing is stored until PostItem.
func (p *Processor) CreateItem(ctx context.Context, rec *model.ObjectData) (*model.Post, error) {
	if rec.ID == "" {
		return nil, errors.New("item without id")
	}
	post := &model.Post{
		URI:        rec.ID,
		Plink:      rec.AlternateURL,
		ParentURI:  rec.ReplyToID,
		ThreadURI:  rec.ReplyToID,
		Author:     author(rec),
		ObjectType: string(rec.ObjectType),
		Verb:       "post",
		Content:    rec.Content,
		Gravity:    model.GravityComment,
		Private:    rec.DirectMessage || !rec.Receivers[model.PublicAccount],
	}
	if post.Plink == "" {
		post.Plink = rec.ID
	}
	if rec.ReplyToID == "" || rec.ReplyToID == rec.ID {
		post.ParentURI = rec.ID
		post.ThreadURI = rec.ID
		post.Gravity = model.GravityParent
	} else if parent, _ := p.store.PostByURI(ctx, rec.ReplyToID); parent != nil && parent.ThreadURI != "" {
		post.ThreadURI = parent.ThreadURI
	}
	if rec.FromRelay != "" {
		post.Reason = model.ReasonRelay
	}
	return post, nil
}

// PostItem stores one copy of post per receiver. Copies that already exist
// are skipped.
func (p *Processor) PostItem(ctx context.Context, rec *model.ObjectData, post *model.Post) error {
	uids := receivers(rec)
	if len(uids) == 0 && rec.FromRelay != "" {
		uids = []int64{model.PublicAccount}
	}
	tags := hashtags(rec)
	var stored int
	for _, uid := range uids {
		cp := *post
		cp.AccountID = uid
		if cp.Reason == model.ReasonNone && rec.ReceptionTypes[uid] == model.TargetFollower {
			cp.Reason = model.ReasonFollow
		}
		if _, err := p.store.InsertPost(ctx, cp); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				logging.L.Debug("Item already stored", "uri", cp.URI, "uid", uid)
				continue
			}
			return fmt.Errorf("could not store item %s for %d: %w", cp.URI, uid, err)
		}
		stored++
	}
	for _, tag := range tags {
		if _, err := p.store.AddPostTag(ctx, post.URI, tag); err != nil {
			logging.L.Warn("Could not tag item", "uri", post.URI, "tag", tag, "err", err)
		}
	}
	if stored > 0 {
		logging.L.Info("Item stored", "uri", post.URI, "copies", stored, "reason", post.Reason)
	}
	return nil
}

// UpdateItem replaces the content of the stored copies written by the author.
func (p *Processor) UpdateItem(ctx context.Context, rec *model.ObjectData) error {
	n, err := p.store.UpdatePosts(ctx, rec.ID, author(rec), rec.Content)
	if err != nil {
		return err
	}
	logging.L.Info("Item updated", "uri", rec.ID, "copies", n)
	return nil
}

// DeleteItem removes the stored copies of the deleted object.
func (p *Processor) DeleteItem(ctx context.Context, rec *model.ObjectData) error {
	n, err := p.store.DeletePosts(ctx, rec.ObjectID, rec.Actor)
	if err != nil {
		return err
	}
	p.journal("DELETE_ITEM", "uri: %s, actor: %s, removed: %d", rec.ObjectID, rec.Actor, n)
	return nil
}

// CreateActivity stores a reaction on rec.ObjectID for every account that
// holds the target and every addressed receiver.
func (p *Processor) CreateActivity(ctx context.Context, rec *model.ObjectData, verb model.Verb) error {
	if rec.ObjectID == "" {
		return errors.New("activity without target")
	}
	owners, err := p.store.PostOwners(ctx, []string{rec.ObjectID})
	if err != nil {
		return err
	}
	seen := map[int64]bool{}
	var uids []int64
	for _, uid := range append(owners, receivers(rec)...) {
		if !seen[uid] {
			seen[uid] = true
			uids = append(uids, uid)
		}
	}
	id := rec.ID
	if id == "" {
		id = fmt.Sprintf("%s#%s-%s", rec.ObjectID, verb, rec.Actor)
	}
	for _, uid := range uids {
		_, err := p.store.InsertPost(ctx, model.Post{
			AccountID:  uid,
			URI:        id,
			Plink:      id,
			ParentURI:  rec.ObjectID,
			ThreadURI:  rec.ObjectID,
			Author:     rec.Actor,
			ObjectType: string(rec.Type),
			Verb:       string(verb),
			Content:    rec.Content,
			Gravity:    model.GravityActivity,
		})
		if err != nil && !errors.Is(err, db.ErrDuplicate) {
			return fmt.Errorf("could not store %s activity for %d: %w", verb, uid, err)
		}
	}
	logging.L.Info("Activity stored", "verb", verb, "target", rec.ObjectID, "actor", rec.Actor, "copies", len(uids))
	return nil
}

// UndoActivity removes the reaction the actor had stored.
func (p *Processor) UndoActivity(ctx context.Context, rec *model.ObjectData) error {
	n, err := p.store.DeleteActivity(ctx, rec.ObjectID, rec.Actor)
	if err != nil {
		return err
	}
	logging.L.Info("Activity undone", "id", rec.ObjectID, "actor", rec.Actor, "removed", n)
	return nil
}

// AddTag attaches the tag in rec.ObjectContent to the target item. Only the
// author of the item may tag it.
func (p *Processor) AddTag(ctx context.Context, rec *model.ObjectData) error {
	tag := rec.ObjectContent
	if tag == "" || rec.TargetID == "" {
		return errors.New("tag activity without tag or target")
	}
	if _, err := p.ownedPost(ctx, rec.TargetID, rec.Actor); err != nil {
		return err
	}
	_, err := p.store.AddPostTag(ctx, rec.TargetID, tag)
	return err
}

// AddToFeaturedCollection pins the item.
func (p *Processor) AddToFeaturedCollection(ctx context.Context, rec *model.ObjectData) error {
	return p.setFeatured(ctx, rec, true)
}

// RemoveFromFeaturedCollection unpins the item.
func (p *Processor) RemoveFromFeaturedCollection(ctx context.Context, rec *model.ObjectData) error {
	return p.setFeatured(ctx, rec, false)
}

// setFeatured changes the pin of an item written by rec.Actor. The target
// must be the featured collection the actor publishes.
func (p *Processor) setFeatured(ctx context.Context, rec *model.ObjectData, featured bool) error {
	a, err := p.store.Actor(ctx, rec.Actor)
	if err != nil {
		return err
	}
	if a == nil || a.Featured == "" || !model.CompareLinks(a.Featured, rec.TargetID) {
		return fmt.Errorf("%w: %q is not the featured collection of %s", ErrNotPermitted, rec.TargetID, rec.Actor)
	}
	if _, err := p.ownedPost(ctx, rec.ObjectID, rec.Actor); err != nil {
		return err
	}
	_, err = p.store.SetFeatured(ctx, rec.ObjectID, featured)
	return err
}

// Report stores a moderation report.
func (p *Processor) Report(ctx context.Context, rec *model.ObjectData) error {
	ids := rec.ObjectIDs
	if len(ids) == 0 && rec.ObjectID != "" {
		ids = []string{rec.ObjectID}
	}
	id, err := p.store.AddReport(ctx, rec.Actor, ids, rec.Content)
	if err != nil {
		return err
	}
	p.journal("REPORT", "id: %d, reporter: %s, objects: %d", id, rec.Actor, len(ids))
	return nil
}
