// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package model

// Attachment is one normalized media or link attachment.
type Attachment struct {
	Type      string `json:"type"`
	MediaType string `json:"mediaType,omitempty"`
	Name      string `json:"name,omitempty"`
	Title     string `json:"title,omitempty"`
	Desc      string `json:"desc,omitempty"`
	URL       string `json:"url,omitempty"`
	Image     string `json:"image,omitempty"`
	Height    int    `json:"height,omitempty"`
	Width     int    `json:"width,omitempty"`
}

// Tag is a mention, hashtag or other tag entry.
type Tag struct {
	Type string `json:"type"`
	Href string `json:"href"`
	Name string `json:"name"`
}

// Emoji is a custom emoji referenced by shortcode.
type Emoji struct {
	Name string `json:"name"`
	Href string `json:"href"`
}

// QuestionOption is one answer of a poll with its reply count.
type QuestionOption struct {
	Name    string `json:"name"`
	Replies int    `json:"replies"`
}

// Question is the poll structure of an as:Question object.
type Question struct {
	Multiple bool             `json:"multiple"`
	EndTime  string           `json:"endTime,omitempty"`
	Voters   int              `json:"voters"`
	Options  []QuestionOption `json:"options"`
}

// ObjectData is the canonical record handed from normalization to dispatch.
// Type and ObjectType are always set after normalization; Undetermined is a
// value, not an absence. ObjectObjectType is nil when it was never resolved.
type ObjectData struct {
	ID               string   `json:"id"`
	Type             Kind     `json:"type"`
	ObjectID         string   `json:"object_id"`
	ObjectIDs        []string `json:"object_ids,omitempty"`
	ObjectType       Kind     `json:"object_type"`
	ObjectActor      string   `json:"object_actor,omitempty"`
	ObjectObject     string   `json:"object_object,omitempty"`
	ObjectObjectType *Kind    `json:"object_object_type,omitempty"`
	ObjectContent    string   `json:"object_content,omitempty"`
	TargetID         string   `json:"target_id,omitempty"`

	Actor     string `json:"actor"`
	Author    string `json:"author,omitempty"`
	ReplyToID string `json:"reply-to-id,omitempty"`

	Published string `json:"published,omitempty"`
	Updated   string `json:"updated,omitempty"`

	Content         string   `json:"content,omitempty"`
	Source          string   `json:"source,omitempty"`
	SourceMediaType string   `json:"source_mediatype,omitempty"`
	Summary         string   `json:"summary,omitempty"`
	Name            string   `json:"name,omitempty"`
	MediaType       string   `json:"mediatype,omitempty"`
	Location        string   `json:"location,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	StartTime       string   `json:"start-time,omitempty"`
	EndTime         string   `json:"end-time,omitempty"`
	Sensitive       bool     `json:"sensitive,omitempty"`
	Context         string   `json:"context,omitempty"`
	Conversation    string   `json:"conversation,omitempty"`
	Generator       string   `json:"generator,omitempty"`
	Service         string   `json:"service,omitempty"`
	AlternateURL    string   `json:"alternate-url,omitempty"`
	CanComment      *bool    `json:"can-comment,omitempty"`
	GUID            string   `json:"guid,omitempty"`
	DirectMessage   bool     `json:"directmessage,omitempty"`
	Unlisted        bool     `json:"unlisted,omitempty"`

	Attachments []Attachment      `json:"attachments,omitempty"`
	Tags        []Tag             `json:"tags,omitempty"`
	Emojis      []Emoji           `json:"emojis,omitempty"`
	Languages   map[string]string `json:"languages,omitempty"`
	Question    *Question         `json:"question,omitempty"`

	Receivers      map[int64]bool            `json:"receiver,omitempty"`
	ReceptionTypes ReceiverMap               `json:"reception_type,omitempty"`
	ReceiverURLs   map[AudienceList][]string `json:"receiver_urls,omitempty"`

	Push             bool   `json:"push"`
	ThreadCompletion bool   `json:"thread-completion,omitempty"`
	CompletionMode   string `json:"completion-mode,omitempty"`
	FromRelay        string `json:"from-relay,omitempty"`
	Raw              string `json:"-"`
}

// NestedType returns the nested object kind, or Undetermined when absent.
func (o *ObjectData) NestedType() Kind {
	if o.ObjectObjectType == nil {
		return Undetermined
	}
	return *o.ObjectObjectType
}

// SetReceivers replaces the receiver set and classifications from m.
// The unlisted sentinel is never copied.
func (o *ObjectData) SetReceivers(m ReceiverMap) {
	if o.Receivers == nil {
		o.Receivers = map[int64]bool{}
	}
	if o.ReceptionTypes == nil {
		o.ReceptionTypes = ReceiverMap{}
	}
	for id, c := range m {
		if id == UnlistedAccount {
			continue
		}
		o.Receivers[id] = true
		o.ReceptionTypes[id] = c
	}
}

// AddReceiverURLs merges urls into the list. The to and cc lists keep their
// existing content when already populated; the blind lists always merge.
func (o *ObjectData) AddReceiverURLs(list AudienceList, urls []string) {
	if len(urls) == 0 {
		return
	}
	if o.ReceiverURLs == nil {
		o.ReceiverURLs = map[AudienceList][]string{}
	}
	cur := o.ReceiverURLs[list]
	if len(cur) > 0 && !list.Blind() {
		return
	}
	seen := make(map[string]bool, len(cur))
	for _, u := range cur {
		seen[u] = true
	}
	for _, u := range urls {
		if !seen[u] {
			cur = append(cur, u)
			seen[u] = true
		}
	}
	o.ReceiverURLs[list] = cur
}
