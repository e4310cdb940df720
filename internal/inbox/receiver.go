// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package inbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/toeirei/inbound/internal/fetch"
	"github.com/toeirei/inbound/internal/ldterm"
	"github.com/toeirei/inbound/internal/logging"
	"github.com/toeirei/inbound/internal/model"
)

// Outcome is the result of processing one delivery.
type Outcome int

const (
	// Discarded covers malformed input, failed authentication and untrusted activities.
	Discarded Outcome = iota
	// Dispatched means a handler was invoked.
	Dispatched
	// Ignored means the activity was acknowledged without effect.
	Ignored
	// Unhandled means a known activity kind with an unmapped object combination.
	Unhandled
	// Unknown means the activity kind is not in the dispatch table.
	Unknown
)

var outcomeNames = [...]string{"discarded", "dispatched", "ignored", "unhandled", "unknown"}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "invalid"
	}
	return outcomeNames[o]
}

// Completion modes of synthesized deliveries.
const (
	CompletionAuto     = "auto"
	CompletionAnnounce = "announce"
	CompletionRelay    = "relay"
	CompletionReply    = "reply"
)

// Delivery is the context of an already normalized activity.
type Delivery struct {
	UID              int64
	Body             []byte
	Trust            TrustContext
	ThreadCompletion bool
	CompletionMode   string
	FromRelay        string
}

// Deps wires the collaborators of a Receiver. Recorder, Upgrades, Content and
// Normalizer are optional.
type Deps struct {
	Normalizer Normalizer
	Transport  TransportVerifier
	Content    ContentVerifier
	Fetcher    Fetcher
	Identity   IdentityStore
	Graph      Graph
	Handlers   Handlers
	Recorder   *Recorder
	Upgrades   UpgradeQueue
	// MaxFetches bounds the remote fetches of one delivery; 0 disables the bound.
	MaxFetches int
}

// Receiver is the entry point of the inbound pipeline. It holds no per-delivery
// state and is safe for concurrent use.
type Receiver struct {
	normalizer Normalizer
	transport  TransportVerifier
	content    ContentVerifier
	fetcher    Fetcher
	identity   IdentityStore
	graph      Graph
	handlers   Handlers
	recorder   *Recorder
	upgrades   UpgradeQueue
	maxFetches int
}

type discardQueue struct{}

func (discardQueue) Enqueue(ProtocolUpgrade) {}

// NewReceiver builds a Receiver from its collaborators.
func NewReceiver(d Deps) *Receiver {
	r := &Receiver{
		normalizer: d.Normalizer,
		transport:  d.Transport,
		content:    d.Content,
		fetcher:    d.Fetcher,
		identity:   d.Identity,
		graph:      d.Graph,
		handlers:   d.Handlers,
		recorder:   d.Recorder,
		upgrades:   d.Upgrades,
		maxFetches: d.MaxFetches,
	}
	if r.normalizer == nil {
		r.normalizer = ldterm.NewCompactor()
	}
	if r.recorder == nil {
		r.recorder = NewRecorder(false, nil)
	}
	if r.upgrades == nil {
		r.upgrades = discardQueue{}
	}
	return r
}

// session carries the per-delivery fetch budget and routing flags.
type session struct {
	*Receiver
	fetches    *fetch.Limited
	delivery   Delivery
	completion bool
}

func (r *Receiver) newSession(d Delivery) *session {
	return &session{
		Receiver:   r,
		fetches:    fetch.Limit(r.fetcher, r.maxFetches),
		delivery:   d,
		completion: d.ThreadCompletion,
	}
}

// fetchDoc fetches and compacts a remote document. Failures are logged and
// reported as a nil document.
func (s *session) fetchDoc(ctx context.Context, url string, uid int64) (ldterm.Document, map[string]any, error) {
	if url == "" {
		return nil, nil, nil
	}
	raw, err := s.fetches.Fetch(ctx, url, uid)
	if err != nil {
		logging.L.Debug("Fetch failed", "url", url, "uid", uid, "err", err)
		return nil, nil, err
	}
	if raw == nil {
		return nil, nil, nil
	}
	return s.normalizer.Compact(raw), raw, nil
}

// ProcessInbox handles one pushed delivery for the target account uid (0 for
// the shared inbox).
func (r *Receiver) ProcessInbox(ctx context.Context, body []byte, t Transport, uid int64) Outcome {
	raw, err := ldterm.Decode(body)
	if err != nil {
		logging.L.Info("Invalid body", "err", err)
		return Discarded
	}
	activity := r.normalizer.Compact(raw)
	actor := activity.String("as:actor", "")
	if actor == "" {
		logging.L.Info("Empty actor", "id", activity.ID())
		return Discarded
	}

	a, err := r.identity.ActorByURL(ctx, actor)
	if err != nil || a == nil {
		logging.L.Warn("Unable to retrieve actor, message is discarded", "actor", actor, "err", err)
		return Discarded
	}
	if a.Relay {
		return r.processRelayPost(ctx, activity, actor)
	}
	if err := r.identity.MarkActive(ctx, a); err != nil {
		logging.L.Debug("Could not mark actor active", "actor", actor, "err", err)
	}
	// The key owner is not verified here. A relayed delivery only yields the
	// object id, and the object is fetched from its origin.
	if owner := r.transport.KeyOwner(ctx, t); owner != "" && owner != actor {
		if oa, _ := r.identity.CachedActor(ctx, owner); oa != nil && oa.Relay {
			logging.L.Info("Message from a relay", "relay", owner, "actor", actor)
			return r.processRelayPost(ctx, activity, owner)
		}
	}

	tc, err := r.evaluateTrust(ctx, body, raw, actor, t)
	if err != nil {
		logging.L.Info("Delivery rejected", "actor", actor, "id", activity.ID(), "err", err)
		return Discarded
	}
	logging.L.Info("Message received", "uid", uid, "actor", actor, "trusted", tc.Trusted)
	return r.ProcessActivity(ctx, activity, Delivery{UID: uid, Body: body, Trust: tc})
}

// ProcessActivity handles an already normalized activity with an explicit
// trust context. It is used for replays and synthesized deliveries.
func (r *Receiver) ProcessActivity(ctx context.Context, activity ldterm.Document, d Delivery) Outcome {
	return r.newSession(d).process(ctx, activity)
}

func (s *session) process(ctx context.Context, activity ldterm.Document) Outcome {
	d := s.delivery
	if activity.Type() == "" {
		logging.L.Info("Empty type", "id", activity.ID())
		return Discarded
	}
	if activity.String("as:object", "") == "" {
		logging.L.Info("Empty object", "id", activity.ID())
		return Discarded
	}
	if activity.String("as:actor", "") == "" {
		logging.L.Info("Empty actor", "id", activity.ID())
		return Discarded
	}

	rec, tc, ok := s.prepareObjectData(ctx, activity, d.UID, d.Trust)
	if !ok {
		logging.L.Info("No object data found", "id", activity.ID())
		return Discarded
	}
	if rec.Raw == "" && len(d.Body) > 0 {
		rec.Raw = string(d.Body)
	}
	if d.ThreadCompletion {
		rec.ThreadCompletion = true
		rec.CompletionMode = d.CompletionMode
	}
	if d.FromRelay != "" {
		rec.FromRelay = d.FromRelay
	}
	return s.dispatch(ctx, activity, rec, tc)
}

// processRelayPost turns a relayed announce into a fetch of the announced object.
func (r *Receiver) processRelayPost(ctx context.Context, activity ldterm.Document, relay string) Outcome {
	typ := model.Kind(activity.Type())
	if typ != model.KindAnnounce && typ != model.KindCreate {
		logging.L.Info("Not an announce activity", "type", typ, "relay", relay)
		return Ignored
	}
	objectID := activity.String("as:object", "")
	if objectID == "" {
		logging.L.Info("Relayed activity without object", "relay", relay)
		return Discarded
	}
	if p, _ := r.graph.PostByURI(ctx, objectID); p != nil {
		logging.L.Debug("Relayed message already exists", "uri", objectID)
		return Ignored
	}
	return r.FetchMissingActivity(ctx, objectID, CompletionRelay, relay, 0)
}

// FetchMissingActivity fetches url from its origin and processes it. A bare
// object is wrapped into a synthesized Create.
func (r *Receiver) FetchMissingActivity(ctx context.Context, url, mode, relay string, uid int64) Outcome {
	s := r.newSession(Delivery{UID: uid, ThreadCompletion: true, CompletionMode: mode, FromRelay: relay})
	doc, raw, _ := s.fetchDoc(ctx, url, uid)
	if doc == nil {
		logging.L.Warn("Activity was not fetchable, aborting", "url", url, "uid", uid)
		return Discarded
	}
	if doc.ID() != url {
		logging.L.Info("Fetched id differs from provided id", "url", url, "id", doc.ID())
		return Discarded
	}

	if doc.Has("as:actor") && doc.Has("as:object") {
		body, _ := json.Marshal(raw)
		s.delivery.Body = body
		s.delivery.Trust = TrustContext{Trusted: true}.WithSigner(doc.String("as:actor", ""))
		return s.process(ctx, doc)
	}

	activity, signers := wrapCreate(raw, doc)
	body, err := json.Marshal(activity)
	if err != nil {
		logging.L.Warn("Could not encode synthesized activity", "url", url, "err", err)
		return Discarded
	}
	tc := TrustContext{Trusted: true}
	for _, sg := range signers {
		tc = tc.WithSigner(sg)
	}
	s.delivery.Body = body
	s.delivery.Trust = tc
	return s.process(ctx, r.normalizer.Compact(activity))
}

// wrapCreate builds a Create activity around a fetched object.
func wrapCreate(raw map[string]any, doc ldterm.Document) (map[string]any, []string) {
	attributedTo := doc.String("as:attributedTo", "")
	actor := doc.String("as:actor", "")
	if actor == "" {
		actor = attributedTo
	}
	published, _ := raw["published"].(string)
	if published == "" {
		published = time.Now().UTC().Format(time.RFC3339)
	}
	object := make(map[string]any, len(raw))
	for k, v := range raw {
		if k != "@context" {
			object[k] = v
		}
	}
	activity := map[string]any{
		"id":        doc.ID() + "#Create",
		"type":      "Create",
		"actor":     actor,
		"object":    object,
		"published": published,
	}
	for _, k := range []string{"to", "cc", "bto", "bcc", "audience"} {
		if v, ok := raw[k]; ok {
			activity[k] = v
		}
	}
	var signers []string
	if attributedTo != "" {
		signers = append(signers, attributedTo)
	}
	if actor != "" && actor != attributedTo {
		signers = append(signers, actor)
	}
	return activity, signers
}
