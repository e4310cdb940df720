// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package inbox

import (
	"context"

	"github.com/toeirei/inbound/internal/ldterm"
	"github.com/toeirei/inbound/internal/logging"
	"github.com/toeirei/inbound/internal/model"
)

// call is the argument of a route action.
type call struct {
	s        *session
	activity ldterm.Document
	rec      *model.ObjectData
}

type action func(ctx context.Context, c call) error

// route matches on the object kind and the nested object kind. A nil action
// acknowledges the activity without effect.
type route struct {
	when func(object, nested model.Kind) bool
	do   action
}

func objectIs(kinds ...model.Kind) func(o, n model.Kind) bool {
	return func(o, _ model.Kind) bool { return in(o, kinds) }
}

func content(o, _ model.Kind) bool      { return o.IsContent() }
func account(o, _ model.Kind) bool      { return o.IsAccount() }
func ignorable(o, _ model.Kind) bool    { return o.IsIgnorable() }
func contentOrTomb(o, _ model.Kind) bool { return o.IsContent() || o == model.KindTombstone }

func undo(object []model.Kind, nested func(model.Kind) bool) func(o, n model.Kind) bool {
	return func(o, n model.Kind) bool { return in(o, object) && nested(n) }
}

func nestedAccount(n model.Kind) bool { return n.IsAccount() }
func nestedContent(n model.Kind) bool { return n.IsContent() }
func nestedEmpty(n model.Kind) bool   { return n == model.Undetermined }

func in(k model.Kind, set []model.Kind) bool {
	for _, s := range set {
		if k == s {
			return true
		}
	}
	return false
}

var (
	reactionOrAnnounce       = append(append([]model.Kind{}, model.ActivityKinds...), model.KindAnnounce)
	reactionAnnounceOrCreate = append(append([]model.Kind{}, reactionOrAnnounce...), model.KindCreate, model.Undetermined)
)

// routes is the dispatch table, keyed by activity kind. Rows are evaluated in order.
var routes = map[model.Kind][]route{
	model.KindCreate: {
		{content, createItem},
		{ignorable, nil},
	},
	model.KindInvite: {
		{objectIs(model.KindEvent), createItem},
	},
	model.KindAdd: {
		{objectIs(model.KindTag), handle(Handlers.AddTag)},
		{content, handle(Handlers.AddToFeaturedCollection)},
	},
	model.KindAnnounce: {
		{content, announce},
	},
	model.KindLike:            {{content, reaction(model.VerbLike)}},
	model.KindDislike:         {{content, reaction(model.VerbDislike)}},
	model.KindTentativeAccept: {{content, reaction(model.VerbAttendMaybe)}},
	model.KindView:            {{content, reaction(model.VerbView)}},
	model.KindEmojiReact:      {{content, reaction(model.VerbEmojiReact)}},
	model.KindUpdate: {
		{content, handle(Handlers.UpdateItem)},
		{account, handle(Handlers.UpdatePerson)},
		{ignorable, nil},
	},
	model.KindDelete: {
		{contentOrTomb, handle(Handlers.DeleteItem)},
		{account, handle(Handlers.DeletePerson)},
	},
	model.KindBlock: {
		{account, handle(Handlers.BlockAccount)},
	},
	model.KindRemove: {
		{content, handle(Handlers.RemoveFromFeaturedCollection)},
	},
	model.KindFollow: {
		{account, handle(Handlers.FollowUser)},
		{content, followContent},
	},
	model.KindAccept: {
		{objectIs(model.KindFollow), handle(Handlers.AcceptFollowUser)},
		{content, reaction(model.VerbAttend)},
	},
	model.KindReject: {
		{objectIs(model.KindFollow), handle(Handlers.RejectFollowUser)},
		{content, reaction(model.VerbAttendNo)},
	},
	model.KindUndo: {
		{undo([]model.Kind{model.KindFollow}, nestedAccount), handle(Handlers.UndoFollowUser)},
		{undo([]model.Kind{model.KindFollow}, nestedContent), handle(Handlers.UndoActivity)},
		{undo([]model.Kind{model.KindAccept}, nestedAccount), handle(Handlers.RejectFollowUser)},
		{undo([]model.Kind{model.KindBlock}, nestedAccount), handle(Handlers.UnblockAccount)},
		{undo([]model.Kind{model.KindCreate}, model.Kind.IsIgnorable), nil},
		{undo(reactionAnnounceOrCreate, nestedEmpty), nil},
		{undo(reactionOrAnnounce, func(n model.Kind) bool { return n == model.KindTombstone || n.IsContent() }), handle(Handlers.UndoActivity)},
	},
	model.KindFlag: {
		{func(o, _ model.Kind) bool { return o.IsAccount() || o.IsContent() }, handle(Handlers.Report)},
	},
}

func handle(fn func(Handlers, context.Context, *model.ObjectData) error) action {
	return func(ctx context.Context, c call) error { return fn(c.s.handlers, ctx, c.rec) }
}

func reaction(verb model.Verb) action {
	return func(ctx context.Context, c call) error {
		return c.s.handlers.CreateActivity(ctx, c.rec, verb)
	}
}

func createItem(ctx context.Context, c call) error {
	post, err := c.s.handlers.CreateItem(ctx, c.rec)
	if err != nil || post == nil {
		return err
	}
	return c.s.handlers.PostItem(ctx, c.rec, post)
}

func followContent(ctx context.Context, c call) error {
	c.rec.ReplyToID = c.rec.ObjectID
	return c.s.handlers.CreateActivity(ctx, c.rec, model.VerbFollow)
}

// announce stores the announced item and then records the announce itself as
// an activity on that item.
func announce(ctx context.Context, c call) error {
	h := c.s.handlers
	c.rec.ThreadCompletion = true
	c.rec.CompletionMode = CompletionAnnounce
	post, err := h.CreateItem(ctx, c.rec)
	if err != nil || post == nil {
		return err
	}
	post.Reason = model.ReasonAnnouncement
	if err := h.PostItem(ctx, c.rec, post); err != nil {
		return err
	}

	ann := c.s.processObject(ctx, c.activity)
	ann.Type = model.KindAnnounce
	ann.Name = string(model.KindAnnounce)
	ann.Actor = c.rec.Actor
	ann.Author = c.activity.String("as:actor", "")
	ann.ObjectID = c.rec.ObjectID
	ann.ObjectType = c.rec.ObjectType
	ann.Push = c.rec.Push
	if len(c.s.delivery.Body) > 0 {
		ann.Raw = string(c.s.delivery.Body)
	}
	return h.CreateActivity(ctx, ann, model.VerbAnnounce)
}

// dispatch routes a record to its handler or fallback bucket. Nothing mutates
// local state unless tc is trusted.
func (s *session) dispatch(ctx context.Context, activity ldterm.Document, rec *model.ObjectData, tc TrustContext) Outcome {
	if !tc.Trusted {
		logging.L.Warn("Activity trust could not be achieved",
			"id", rec.ObjectID, "type", rec.Type, "signers", tc.Signers, "actor", rec.Actor)
		return Discarded
	}

	if rec.ObjectType == model.KindQuestion || rec.NestedType() == model.KindQuestion {
		s.record(ctx, BucketUnhandled, activity, rec, tc)
	}

	rs, known := routes[rec.Type]
	if !known {
		s.record(ctx, BucketUnknown, activity, rec, tc)
		return Unknown
	}
	if rec.ObjectType == model.Undetermined {
		logging.L.Debug("Object type is undetermined, activity ignored", "type", rec.Type, "object_id", rec.ObjectID)
		return Ignored
	}
	for _, rt := range rs {
		if !rt.when(rec.ObjectType, rec.NestedType()) {
			continue
		}
		if rt.do == nil {
			return Ignored
		}
		if err := rt.do(ctx, call{s: s, activity: activity, rec: rec}); err != nil {
			logging.L.Error("Handler failed", "type", rec.Type, "object_type", rec.ObjectType, "id", rec.ID, "err", err)
		}
		return Dispatched
	}
	s.record(ctx, BucketUnhandled, activity, rec, tc)
	return Unhandled
}

func (s *session) record(ctx context.Context, b Bucket, activity ldterm.Document, rec *model.ObjectData, tc TrustContext) {
	s.recorder.Record(ctx, Sample{
		Bucket:   b,
		Activity: activity,
		Body:     s.delivery.Body,
		UID:      s.delivery.UID,
		Trusted:  tc.Trusted,
		Push:     tc.Push,
		Signers:  tc.Signers,
		Record:   rec,
	})
}
