// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package inbox

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/toeirei/inbound/internal/ldterm"
	"github.com/toeirei/inbound/internal/model"
)

// processObject normalizes a content object (or an activity treated as one)
// including its own audience.
func (s *session) processObject(ctx context.Context, obj ldterm.Document) *model.ObjectData {
	rec := &model.ObjectData{
		ID:         obj.ID(),
		ObjectType: model.Kind(obj.Type()),
	}
	if rec.ID == "" {
		return rec
	}

	rec.ReplyToID = obj.String("as:inReplyTo", "")
	if rec.ReplyToID == "" || rec.ReplyToID == "./" {
		rec.ReplyToID = rec.ID
	} else if fixed, _ := s.graph.URIByLink(ctx, rec.ReplyToID); fixed != "" && fixed != rec.ReplyToID {
		rec.ReplyToID = fixed
	}

	rec.Published = obj.String("as:published", "@value")
	rec.Updated = obj.String("as:updated", "@value")
	if rec.Updated == "" {
		rec.Updated = rec.Published
	}
	if rec.Published == "" {
		rec.Published = rec.Updated
	}

	actor := obj.String("as:attributedTo", "")
	if actor == "" {
		actor = obj.String("as:actor", "")
	}
	rec.Actor, rec.Author = actor, actor

	if c := obj.String("as:context", ""); c != "./" {
		rec.Context = c
	}
	rec.Conversation = obj.String("ostatus:conversation", "@value")
	rec.Sensitive, _ = obj.Bool("as:sensitive")
	rec.Name = obj.String("as:name", "@value")
	rec.Summary = obj.String("as:summary", "@value")
	rec.Content = obj.String("as:content", "@value")
	rec.MediaType = obj.String("as:mediaType", "@value")
	rec.GUID = obj.String("diaspora:guid", "@value")
	if src := obj.Node("as:source"); src != nil {
		rec.Source = src.String("as:content", "@value")
		rec.SourceMediaType = src.String("as:mediaType", "@value")
	}
	rec.StartTime = obj.String("as:startTime", "@value")
	rec.EndTime = obj.String("as:endTime", "@value")
	if loc := obj.Node("as:location"); loc != nil {
		rec.Location = loc.String("as:name", "@value")
		if v, ok := loc.Float("as:latitude"); ok {
			rec.Latitude = &v
		}
		if v, ok := loc.Float("as:longitude"); ok {
			rec.Longitude = &v
		}
	}
	if gen := obj.Node("as:generator", ldterm.Filter{Key: "@type", Value: "as:Application"}); gen != nil {
		rec.Generator = gen.String("as:name", "@value")
	}
	if v, ok := obj.Bool("pt:commentsEnabled"); ok {
		rec.CanComment = &v
	}

	rec.Attachments = processAttachments(obj.Nodes("as:attachment"))
	rec.Tags = processTags(obj.Nodes("as:tag"))
	rec.Emojis = processEmojis(obj.Nodes("as:tag", ldterm.Filter{Key: "@type", Value: string(model.KindEmoji)}))
	rec.Languages = processLanguages(obj)

	rec.AlternateURL = alternateURL(obj)
	if rec.ObjectType == model.KindAudio || rec.ObjectType == model.KindVideo {
		rec.Attachments = append(rec.Attachments, processAttachmentURLs(obj.Nodes("as:url"))...)
	}
	if rec.ObjectType == model.KindQuestion {
		rec.Question = processQuestion(obj)
	}

	receivers := s.resolveAudience(ctx, audienceRequest{doc: obj, actor: actor, tags: rec.Tags, fetchUnlisted: true})
	rec.Unlisted = receivers.StripUnlisted()
	rec.ReceiverURLs = receiverURLs(obj)
	rec.SetReceivers(receivers)
	return rec
}

func processAttachments(nodes []ldterm.Document) []model.Attachment {
	var out []model.Attachment
	for _, n := range nodes {
		mediaType := n.String("as:mediaType", "@value")
		a := model.Attachment{
			Type:      model.Kind(n.Type()).Short(),
			MediaType: mediaType,
			Name:      n.String("as:name", "@value"),
			URL:       n.String("as:url", ""),
		}
		if a.URL == "" {
			a.URL = n.String("as:href", "")
		}
		a.Height, _ = n.Int("as:height")
		a.Width, _ = n.Int("as:width")
		switch {
		case strings.HasPrefix(mediaType, "image/"):
			a.Image = n.String("as:image", "")
		case mediaType == "text/html" || a.Type == "Page" || a.Type == "Link":
			a.Title = a.Name
			a.Desc = n.String("as:summary", "@value")
			if img := n.Node("as:image"); img != nil {
				a.Image = img.String("as:url", "")
				if a.Image == "" {
					a.Image = img.ID()
				}
			}
		}
		if a.URL == "" && a.Name == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}

// processAttachmentURLs turns the non-html link variants of media objects into attachments.
func processAttachmentURLs(nodes []ldterm.Document) []model.Attachment {
	var out []model.Attachment
	for _, n := range nodes {
		href := n.String("as:href", "")
		mediaType := n.String("as:mediaType", "@value")
		if href == "" || mediaType == "" || mediaType == "text/html" {
			continue
		}
		h, _ := n.Int("as:height")
		out = append(out, model.Attachment{Type: "Link", MediaType: mediaType, URL: href, Height: h})
	}
	return out
}

func processTags(nodes []ldterm.Document) []model.Tag {
	var out []model.Tag
	for _, n := range nodes {
		t := model.Tag{
			Type: model.Kind(n.Type()).Short(),
			Href: n.String("as:href", ""),
			Name: n.String("as:name", "@value"),
		}
		if t.Type == "" {
			continue
		}
		if t.Href == "" {
			t.Href = t.Name
		}
		out = append(out, t)
	}
	return out
}

func processEmojis(nodes []ldterm.Document) []model.Emoji {
	var out []model.Emoji
	for _, n := range nodes {
		icon := n.Node("as:icon")
		if icon == nil {
			continue
		}
		out = append(out, model.Emoji{Name: n.String("as:name", "@value"), Href: icon.String("as:url", "")})
	}
	return out
}

// processLanguages reads explicit language declarations and the languages of
// tagged content values. Missing display names are resolved from the tag.
func processLanguages(obj ldterm.Document) map[string]string {
	langs := map[string]string{}
	for _, n := range obj.Nodes("sc:inLanguage") {
		code := n.String("sc:identifier", "@value")
		if code == "" {
			continue
		}
		langs[code] = n.String("as:name", "@value")
	}
	for _, l := range obj.Literals("as:content") {
		if l.Language != "" {
			if _, ok := langs[l.Language]; !ok {
				langs[l.Language] = ""
			}
		}
	}
	if len(langs) == 0 {
		return nil
	}
	for code, name := range langs {
		if name != "" {
			continue
		}
		langs[code] = code
		if tag, err := language.Parse(code); err == nil {
			if n := display.English.Languages().Name(tag); n != "" {
				langs[code] = n
			}
		}
	}
	return langs
}

// alternateURL returns the first usable human readable link of an object.
func alternateURL(obj ldterm.Document) string {
	for _, n := range obj.Nodes("as:url") {
		link := n.ID()
		if href := n.String("as:href", ""); href != "" {
			mt := n.String("as:mediaType", "@value")
			if mt != "" && mt != "text/html" {
				continue
			}
			link = href
		}
		if validHTTPURL(link) {
			return link
		}
	}
	return ""
}

func validHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func processQuestion(obj ldterm.Document) *model.Question {
	q := &model.Question{}
	var options []ldterm.Document
	switch {
	case obj.Has("as:oneOf"):
		options = obj.Nodes("as:oneOf")
	case obj.Has("as:anyOf"):
		q.Multiple = true
		options = obj.Nodes("as:anyOf")
	default:
		return nil
	}
	q.EndTime = obj.String("as:endTime", "@value")
	if q.EndTime == "" {
		q.EndTime = obj.String("as:closed", "@value")
	}
	q.Voters, _ = obj.Int("toot:votersCount")
	for _, o := range options {
		if model.Kind(o.Type()) != model.KindNote {
			continue
		}
		replies := o.Node("as:replies")
		if replies == nil {
			continue
		}
		n, _ := replies.Int("as:totalItems")
		q.Options = append(q.Options, model.QuestionOption{Name: o.String("as:name", "@value"), Replies: n})
	}
	return q
}
