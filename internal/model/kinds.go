// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import "strings"

// Kind is an activity or object type in the compacted key space, e.g. "as:Note".
type Kind string

// Undetermined is the explicit sentinel for "type intentionally not known".
// It is distinct from an absent optional kind, which is a nil *Kind.
const Undetermined Kind = ""

// Activity kinds.
const (
	KindCreate          Kind = "as:Create"
	KindUpdate          Kind = "as:Update"
	KindDelete          Kind = "as:Delete"
	KindAnnounce        Kind = "as:Announce"
	KindInvite          Kind = "as:Invite"
	KindAdd             Kind = "as:Add"
	KindRemove          Kind = "as:Remove"
	KindLike            Kind = "as:Like"
	KindDislike         Kind = "as:Dislike"
	KindAccept          Kind = "as:Accept"
	KindReject          Kind = "as:Reject"
	KindTentativeAccept Kind = "as:TentativeAccept"
	KindView            Kind = "as:View"
	KindRead            Kind = "as:Read"
	KindEmojiReact      Kind = "litepub:EmojiReact"
	KindFollow          Kind = "as:Follow"
	KindUndo            Kind = "as:Undo"
	KindBlock           Kind = "as:Block"
	KindFlag            Kind = "as:Flag"
)

// Object kinds.
const (
	KindNote      Kind = "as:Note"
	KindArticle   Kind = "as:Article"
	KindVideo     Kind = "as:Video"
	KindImage     Kind = "as:Image"
	KindEvent     Kind = "as:Event"
	KindAudio     Kind = "as:Audio"
	KindPage      Kind = "as:Page"
	KindQuestion  Kind = "as:Question"
	KindTombstone Kind = "as:Tombstone"
	KindTag       Kind = "as:tag"
	KindCacheFile Kind = "pt:CacheFile"
	KindEmoji     Kind = "toot:Emoji"
	KindPlace     Kind = "as:Place"
	KindMention   Kind = "as:Mention"
	KindHashtag   Kind = "as:Hashtag"
	KindLink      Kind = "as:Link"
)

// Account kinds.
const (
	KindPerson       Kind = "as:Person"
	KindOrganization Kind = "as:Organization"
	KindService      Kind = "as:Service"
	KindGroup        Kind = "as:Group"
	KindApplication  Kind = "as:Application"
)

// The kind sets used by shape selection and dispatch.
var (
	AccountKinds  = []Kind{KindPerson, KindOrganization, KindService, KindGroup, KindApplication}
	ContentKinds  = []Kind{KindNote, KindArticle, KindVideo, KindImage, KindEvent, KindAudio, KindPage, KindQuestion}
	ActivityKinds = []Kind{KindLike, KindDislike, KindAccept, KindReject, KindTentativeAccept, KindView, KindRead, KindEmojiReact}
	// IgnorableKinds are external object kinds that are acknowledged without effect.
	IgnorableKinds = []Kind{KindCacheFile}
)

func (k Kind) in(set []Kind) bool {
	for _, s := range set {
		if k == s {
			return true
		}
	}
	return false
}

// IsAccount reports whether k is an actor kind.
func (k Kind) IsAccount() bool { return k.in(AccountKinds) }

// IsContent reports whether k is a content object kind.
func (k Kind) IsContent() bool { return k.in(ContentKinds) }

// IsActivity reports whether k is one of the reaction style activity kinds.
func (k Kind) IsActivity() bool { return k.in(ActivityKinds) }

// IsIgnorable reports whether k is acknowledged without effect.
func (k Kind) IsIgnorable() bool { return k.in(IgnorableKinds) }

// IsEmojiReaction matches Hubzilla style reaction types ending in "#emojiReaction".
func (k Kind) IsEmojiReaction() bool {
	return strings.HasSuffix(string(k), "#emojiReaction")
}

// Short strips the "as:" prefix, e.g. for attachment and tag types.
func (k Kind) Short() string {
	return strings.TrimPrefix(string(k), "as:")
}

// KindPtr returns a pointer to k for optional kind fields.
func KindPtr(k Kind) *Kind { return &k }

// Verb is the kind of reaction stored by the activity handler.
type Verb string

const (
	VerbLike        Verb = "like"
	VerbDislike     Verb = "dislike"
	VerbAttend      Verb = "attend"
	VerbAttendNo    Verb = "attendno"
	VerbAttendMaybe Verb = "attendmaybe"
	VerbView        Verb = "view"
	VerbEmojiReact  Verb = "emojireact"
	VerbAnnounce    Verb = "announce"
	VerbFollow      Verb = "follow"
)
