// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package model

// Classification is the reason a local account receives a delivery.
type Classification int

const (
	TargetUnknown Classification = iota
	TargetTo
	TargetCC
	TargetBTo
	TargetBCC
	TargetFollower
	TargetAnswer
	TargetGlobal
)

var classificationNames = [...]string{"unknown", "to", "cc", "bto", "bcc", "follower", "answer", "global"}

func (c Classification) String() string {
	if c < 0 || int(c) >= len(classificationNames) {
		return "invalid"
	}
	return classificationNames[c]
}

// Weak reports whether the classification may still be replaced by an
// explicit addressing classification (to/cc/bto/bcc).
func (c Classification) Weak() bool {
	switch c {
	case TargetUnknown, TargetFollower, TargetAnswer, TargetGlobal:
		return true
	}
	return false
}

// Reserved account ids.
const (
	// PublicAccount stands for "the public".
	PublicAccount int64 = 0
	// UnlistedAccount marks an unlisted delivery while the audience is resolved.
	UnlistedAccount int64 = -1
)

// ReceiverMap maps a local account id to its classification.
type ReceiverMap map[int64]Classification

// Classify sets id to c unless the account already carries a strong classification.
// It reports whether the map changed.
func (m ReceiverMap) Classify(id int64, c Classification) bool {
	if cur, ok := m[id]; ok && !cur.Weak() {
		return false
	}
	m[id] = c
	return true
}

// StripUnlisted removes the unlisted sentinel and reports whether it was present.
func (m ReceiverMap) StripUnlisted() bool {
	_, ok := m[UnlistedAccount]
	delete(m, UnlistedAccount)
	return ok
}

// Merge copies every entry of other into m, replacing existing values.
func (m ReceiverMap) Merge(other ReceiverMap) {
	for id, c := range other {
		m[id] = c
	}
}

// AudienceList names one of the four addressing lists.
type AudienceList string

const (
	ListTo  AudienceList = "as:to"
	ListCC  AudienceList = "as:cc"
	ListBTo AudienceList = "as:bto"
	ListBCC AudienceList = "as:bcc"
)

// AudienceLists is the fixed resolution order.
var AudienceLists = []AudienceList{ListTo, ListCC, ListBTo, ListBCC}

// Classification returns the explicit classification for entries of the list.
func (l AudienceList) Classification() Classification {
	switch l {
	case ListTo:
		return TargetTo
	case ListCC:
		return TargetCC
	case ListBTo:
		return TargetBTo
	case ListBCC:
		return TargetBCC
	}
	return TargetUnknown
}

// Blind reports whether the list is one of the blind variants.
func (l AudienceList) Blind() bool {
	return l == ListBTo || l == ListBCC
}

// PublicCollection is the compacted form of the public addressing target.
const PublicCollection = "as:Public"

// PublicCollectionURL is the expanded form of PublicCollection.
const PublicCollectionURL = "https://www.w3.org/ns/activitystreams#Public"

// IsPublic reports whether an addressing entry denotes the public.
func IsPublic(url string) bool {
	return url == PublicCollection || url == PublicCollectionURL || url == "Public"
}
