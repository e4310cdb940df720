// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package inbox

import (
	"context"
	"errors"

	"github.com/toeirei/inbound/internal/fetch"
	"github.com/toeirei/inbound/internal/ldterm"
	"github.com/toeirei/inbound/internal/logging"
	"github.com/toeirei/inbound/internal/model"
)

// prepareObjectData turns an activity into the canonical record. ok is false
// when the activity has to be discarded.
func (s *session) prepareObjectData(ctx context.Context, activity ldterm.Document, uid int64, tc TrustContext) (*model.ObjectData, TrustContext, bool) {
	id := activity.ID()
	if id != "" && !tc.Trusted {
		activity, tc = s.upgradeTrust(ctx, activity, uid, tc)
		if !tc.Trusted {
			logging.L.Warn("Activity trust could not be achieved",
				"id", id, "type", activity.Type(), "signers", tc.Signers, "actor", activity.String("as:actor", ""))
			return nil, tc, false
		}
	}

	actor := activity.String("as:actor", "")
	if actor == "" {
		logging.L.Info("Empty actor", "id", id)
		return nil, tc, false
	}
	typ := model.Kind(activity.Type())

	receivers := s.resolveAudience(ctx, audienceRequest{doc: activity, actor: actor})
	receivers.StripUnlisted()
	urls := receiverURLs(activity)
	s.forceTarget(ctx, uid, receivers, urls)

	fetchUID := s.bestUser(ctx, receivers, actor)

	objectID := activity.String("as:object", "@id")
	if objectID == "" {
		logging.L.Info("No object found", "id", id)
		return nil, tc, false
	}
	objectType := s.lookupObjectType(ctx, activity, objectID, fetchUID)

	if typ == model.KindAnnounce && announcesActivity(objectType) {
		logging.L.Debug("Fetch announced activity", "id", objectID, "type", objectType)
		if fetched, _, _ := s.fetchDoc(ctx, objectID, fetchUID); fetched != nil && fetched.ID() == objectID {
			inner := fetched.String("as:actor", "")
			innerObject := fetched.String("as:object", "@id")
			if inner == "" || innerObject == "" {
				logging.L.Info("Announced activity is incomplete", "id", objectID)
				return nil, tc, false
			}
			activity = fetched
			typ = model.Kind(fetched.Type())
			actor = inner
			objectID = innerObject
			objectType = s.lookupObjectType(ctx, fetched, objectID, fetchUID)
			tc = tc.WithTrusted(true)
		}
	}

	var rec *model.ObjectData
	switch {
	case objectType.IsAccount():
		rec = nestedShape(activity)

	case typ == model.KindCreate || typ == model.KindUpdate || typ == model.KindAnnounce ||
		typ == model.KindInvite || typ.IsEmojiReaction():
		// The announced object is not covered by the signature of the wrapper.
		objTrust := tc.Trusted && typ != model.KindAnnounce
		var outcome fetchOutcome
		rec, outcome = s.fetchObject(ctx, objectID, activity.Node("as:object"), objTrust, fetchUID)
		if outcome == fetchUnresolved {
			logging.L.Info("Object data could not be processed", "id", objectID)
			return nil, tc, false
		}
		rec.ObjectID = objectID
		rec.DirectMessage, _ = activity.Bool("litepub:directMessage")
		if rec.ReplyToID != "" {
			if private, _ := s.graph.IsPrivateThread(ctx, rec.ReplyToID); private {
				rec.DirectMessage = true
			}
		}

	case (typ.IsActivity() || typ == model.KindFollow) && objectType.IsContent():
		rec = s.processObject(ctx, activity)
		rec.Name = string(typ)
		rec.Author = actor
		rec.ObjectID = objectID
		rec.ObjectType = model.Undetermined

	case typ == model.KindAdd || typ == model.KindRemove:
		obj := activity.Node("as:object")
		rec = &model.ObjectData{
			ID:            id,
			TargetID:      activity.String("as:target", ""),
			ObjectID:      objectID,
			ObjectType:    model.Kind(obj.Type()),
			ObjectContent: obj.String("as:content", "@value"),
		}

	case typ == model.KindFlag:
		rec = &model.ObjectData{
			ID:        activity.ID(),
			ObjectID:  objectID,
			ObjectIDs: activity.Strings("as:object", ""),
			Content:   activity.String("as:content", "@value"),
		}

	default:
		rec = nestedShape(activity)
		if typ == model.KindUndo && rec.ObjectObject != "" {
			rec.ObjectObjectType = model.KindPtr(s.lookupObjectType(ctx, nil, rec.ObjectObject, fetchUID))
		}
	}

	s.addActivityFields(ctx, rec, activity)
	if rec.ObjectType == model.Undetermined {
		rec.ObjectType = objectType
	}
	for _, list := range model.AudienceLists {
		rec.AddReceiverURLs(list, urls[list])
	}
	rec.Type = typ
	rec.Actor = actor
	rec.SetReceivers(receivers)
	rec.Push = tc.Push

	author := rec.Author
	if author == "" {
		author = actor
	}
	if author != "" && rec.ID != "" && model.Host(author) != model.Host(rec.ID) {
		logging.L.Warn("Differing hosts on author and id", "author", author, "id", rec.ID)
		tc = tc.WithTrusted(false)
	}
	logging.L.Debug("Processing", "type", rec.Type, "object_type", rec.ObjectType, "id", rec.ID, "trusted", tc.Trusted)
	return rec, tc, true
}

// upgradeTrust refetches the activity from its id. An exact id match makes
// the fetched copy the trusted activity.
func (s *session) upgradeTrust(ctx context.Context, activity ldterm.Document, uid int64, tc TrustContext) (ldterm.Document, TrustContext) {
	id := activity.ID()
	fetched, _, err := s.fetchDoc(ctx, id, uid)
	switch {
	case fetched != nil && fetched.ID() == id:
		logging.L.Info("Activity had been fetched successfully", "id", id)
		return fetched, tc.WithTrusted(true)
	case fetched != nil:
		logging.L.Info("Activity id is not equal", "id", id, "fetched", fetched.ID())
	case errors.Is(err, fetch.ErrGone) && model.Kind(activity.Type()) == model.KindDelete:
		logging.L.Info("Deleted activity is gone at its origin", "id", id)
		return activity, tc.WithTrusted(true)
	default:
		logging.L.Info("Activity could not be fetched", "id", id)
	}
	if model.Kind(activity.Type()) == model.KindDelete && s.targetGone(ctx, activity.String("as:object", "")) {
		return activity, tc.WithTrusted(true)
	}
	return activity, tc
}

// targetGone reports whether the origin vouches that a deleted target no longer exists.
func (s *session) targetGone(ctx context.Context, objectID string) bool {
	if objectID == "" {
		return false
	}
	if a, err := s.identity.Refresh(ctx, objectID); err == nil && a != nil {
		return a.Gone || a.Suspended || a.Kind == model.KindTombstone
	}
	doc, _, err := s.fetchDoc(ctx, objectID, 0)
	if errors.Is(err, fetch.ErrGone) {
		return true
	}
	return doc != nil && model.Kind(doc.Type()) == model.KindTombstone
}

func announcesActivity(k model.Kind) bool {
	return k.IsActivity() || k == model.KindDelete || k == model.KindUndo || k == model.KindUpdate
}

// nestedShape carries identifiers of the activity and its embedded object only.
func nestedShape(activity ldterm.Document) *model.ObjectData {
	obj := activity.Node("as:object")
	return &model.ObjectData{
		ID:           activity.ID(),
		ObjectID:     activity.String("as:object", ""),
		ObjectActor:  obj.String("as:actor", ""),
		ObjectObject: obj.String("as:object", ""),
		ObjectType:   model.Kind(obj.Type()),
	}
}

// lookupObjectType resolves the kind of objectID: embedded type, stored post,
// cached profile or local account, network fetch. Undetermined when none hits.
func (s *session) lookupObjectType(ctx context.Context, activity ldterm.Document, objectID string, uid int64) model.Kind {
	if t := activity.Node("as:object").Type(); t != "" {
		return model.Kind(t)
	}
	if objectID == "" {
		return model.Undetermined
	}
	if p, _ := s.graph.PostByURI(ctx, objectID); p != nil && p.Gravity != model.GravityActivity {
		// Any stored content behaves like a note from here on.
		return model.KindNote
	}
	if a, _ := s.identity.CachedActor(ctx, objectID); a != nil && a.Kind != model.Undetermined {
		return a.Kind
	}
	if acct, _ := s.graph.AccountByURL(ctx, objectID); acct != nil {
		if acct.Type == model.AccountCommunity {
			return model.KindGroup
		}
		return model.KindPerson
	}
	if doc, _, _ := s.fetchDoc(ctx, objectID, uid); doc != nil {
		return model.Kind(doc.Type())
	}
	return model.Undetermined
}

// addActivityFields copies activity level fields that the object lacks.
func (s *session) addActivityFields(ctx context.Context, rec *model.ObjectData, activity ldterm.Document) {
	if rec.Published == "" {
		rec.Published = activity.String("as:published", "@value")
	}
	if rec.GUID == "" {
		rec.GUID = activity.String("diaspora:guid", "@value")
	}
	if svc := activity.Node("as:instrument", ldterm.Filter{Key: "@type", Value: "as:Service"}); svc != nil {
		rec.Service = svc.String("as:name", "@value")
	}
	if rec.ObjectID != "" {
		if fixed, _ := s.graph.URIByLink(ctx, rec.ObjectID); fixed != "" && fixed != rec.ObjectID {
			rec.ObjectID = fixed
		}
	}
}
