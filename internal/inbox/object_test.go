// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package inbox

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/toeirei/inbound/internal/model"
)

func TestProcessObjectFields(t *testing.T) {
	env := newEnv(t)
	env.graph.links["https://remote.example/@bob/10"] = "https://remote.example/notes/10"
	s := env.session(Delivery{})
	obj := compact(t, `{
		"id": "https://remote.example/notes/11",
		"type": "Note",
		"attributedTo": "https://remote.example/users/bob",
		"inReplyTo": "https://remote.example/@bob/10",
		"published": "2026-01-02T03:04:05Z",
		"summary": "cw",
		"sensitive": true,
		"content": "<p>hallo</p>",
		"contentMap": {"de": "<p>hallo</p>"},
		"mediaType": "text/html",
		"source": {"content": "hallo", "mediaType": "text/markdown"},
		"url": "https://remote.example/@bob/11",
		"location": {"name": "Berlin", "latitude": 52.5, "longitude": 13.4},
		"generator": {"type": "Application", "name": "client"},
		"tag": [
			{"type": "Mention", "href": "https://local.example/users/alice", "name": "@alice"},
			{"type": "Hashtag", "name": "#go"},
			{"type": "Emoji", "name": ":blob:", "icon": {"type": "Image", "url": "https://remote.example/emoji/blob.png"}}
		],
		"attachment": [
			{"type": "Document", "mediaType": "image/png", "url": "https://remote.example/media/1.png", "name": "alt", "width": 640, "height": 480},
			{"type": "Document", "name": ""}
		]
	}`)

	rec := s.processObject(context.Background(), obj)
	if rec.ReplyToID != "https://remote.example/notes/10" {
		t.Fatalf("reply link not resolved: %q", rec.ReplyToID)
	}
	if rec.Published != "2026-01-02T03:04:05Z" || rec.Updated != rec.Published {
		t.Fatalf("timestamps: %q %q", rec.Published, rec.Updated)
	}
	if !rec.Sensitive || rec.Summary != "cw" || rec.Content != "<p>hallo</p>" || rec.MediaType != "text/html" {
		t.Fatalf("content fields: %+v", rec)
	}
	if rec.Source != "hallo" || rec.SourceMediaType != "text/markdown" {
		t.Fatalf("source: %q %q", rec.Source, rec.SourceMediaType)
	}
	if rec.AlternateURL != "https://remote.example/@bob/11" {
		t.Fatalf("alternate url: %q", rec.AlternateURL)
	}
	if rec.Location != "Berlin" || rec.Latitude == nil || *rec.Latitude != 52.5 || rec.Longitude == nil {
		t.Fatalf("location: %+v", rec)
	}
	if rec.Generator != "client" {
		t.Fatalf("generator: %q", rec.Generator)
	}
	if diff := cmp.Diff(map[string]string{"de": "German"}, rec.Languages); diff != "" {
		t.Fatalf("languages mismatch (-want +got):\n%s", diff)
	}
	wantTags := []model.Tag{
		{Type: "Mention", Href: "https://local.example/users/alice", Name: "@alice"},
		{Type: "Hashtag", Href: "#go", Name: "#go"},
		{Type: "toot:Emoji", Href: ":blob:", Name: ":blob:"},
	}
	if diff := cmp.Diff(wantTags, rec.Tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]model.Emoji{{Name: ":blob:", Href: "https://remote.example/emoji/blob.png"}}, rec.Emojis); diff != "" {
		t.Fatalf("emojis mismatch (-want +got):\n%s", diff)
	}
	wantAttachments := []model.Attachment{{
		Type: "Document", MediaType: "image/png", Name: "alt",
		URL: "https://remote.example/media/1.png", Width: 640, Height: 480,
	}}
	if diff := cmp.Diff(wantAttachments, rec.Attachments); diff != "" {
		t.Fatalf("attachments mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessObjectThreadStarter(t *testing.T) {
	env := newEnv(t)
	rec := env.session(Delivery{}).processObject(context.Background(), compact(t, `{"id":"https://remote.example/notes/12","type":"Article","actor":"https://remote.example/users/bob"}`))
	if rec.ReplyToID != rec.ID {
		t.Fatalf("thread starter replies to %q", rec.ReplyToID)
	}
	if rec.Author != bobURL {
		t.Fatalf("actor fallback not used: %q", rec.Author)
	}
}

func TestProcessObjectQuestion(t *testing.T) {
	env := newEnv(t)
	obj := compact(t, `{
		"id": "https://remote.example/polls/1",
		"type": "Question",
		"attributedTo": "https://remote.example/users/bob",
		"endTime": "2026-02-01T00:00:00Z",
		"votersCount": 5,
		"anyOf": [
			{"type": "Note", "name": "yes", "replies": {"type": "Collection", "totalItems": 3}},
			{"type": "Note", "name": "no", "replies": {"type": "Collection", "totalItems": 2}}
		]
	}`)

	rec := env.session(Delivery{}).processObject(context.Background(), obj)
	want := &model.Question{
		Multiple: true,
		EndTime:  "2026-02-01T00:00:00Z",
		Voters:   5,
		Options:  []model.QuestionOption{{Name: "yes", Replies: 3}, {Name: "no", Replies: 2}},
	}
	if diff := cmp.Diff(want, rec.Question); diff != "" {
		t.Fatalf("question mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessObjectVideoLinks(t *testing.T) {
	env := newEnv(t)
	obj := compact(t, `{
		"id": "https://video.example/videos/1",
		"type": "Video",
		"attributedTo": "https://video.example/accounts/v",
		"url": [
			{"type": "Link", "mediaType": "text/html", "href": "https://video.example/w/1"},
			{"type": "Link", "mediaType": "video/mp4", "href": "https://video.example/static/1.mp4", "height": 720}
		]
	}`)

	rec := env.session(Delivery{}).processObject(context.Background(), obj)
	if rec.AlternateURL != "https://video.example/w/1" {
		t.Fatalf("alternate url: %q", rec.AlternateURL)
	}
	want := []model.Attachment{{Type: "Link", MediaType: "video/mp4", URL: "https://video.example/static/1.mp4", Height: 720}}
	if diff := cmp.Diff(want, rec.Attachments); diff != "" {
		t.Fatalf("attachments mismatch (-want +got):\n%s", diff)
	}
}
