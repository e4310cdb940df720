// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package ldterm

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

// ErrNotObject is returned when a body does not decode to a JSON object.
var ErrNotObject = errors.New("ldterm: document is not a JSON object")

type termClass int

const (
	classLiteral termClass = iota
	classRef
	classLangMap
)

type term struct {
	key   string
	class termClass
}

// namespaces maps vocabulary IRIs onto the prefixes used in compacted keys.
var namespaces = []struct{ iri, prefix string }{
	{"https://www.w3.org/ns/activitystreams#", "as:"},
	{"http://www.w3.org/ns/activitystreams#", "as:"},
	{"http://joinmastodon.org/ns#", "toot:"},
	{"http://litepub.social/ns#", "litepub:"},
	{"http://schema.org#", "sc:"},
	{"http://schema.org/", "sc:"},
	{"https://schema.org/", "sc:"},
	{"https://w3id.org/security#", "sec:"},
	{"http://www.w3.org/ns/ldp#", "ldp:"},
	{"http://ostatus.org#", "ostatus:"},
	{"https://diasporafoundation.org/ns/", "diaspora:"},
	{"https://joinpeertube.org/ns#", "pt:"},
	{"https://purl.archive.org/socialweb/webfinger#", "webfinger:"},
}

var terms = map[string]term{}

// refKeys are the compacted predicates whose plain string values are IRIs.
var refKeys = []string{
	"as:actor", "as:object", "as:target", "as:origin", "as:result", "as:instrument",
	"as:to", "as:cc", "as:bto", "as:bcc", "as:audience", "as:attributedTo", "as:inReplyTo",
	"as:url", "as:href", "as:tag", "as:attachment", "as:icon", "as:image", "as:generator",
	"as:location", "as:replies", "as:oneOf", "as:anyOf", "as:followers", "as:following",
	"as:outbox", "as:endpoints", "as:sharedInbox", "as:context", "as:movedTo",
	"as:alsoKnownAs", "as:source", "as:first", "as:next", "as:items", "as:orderedItems",
	"as:partOf", "ldp:inbox", "toot:featured", "toot:featuredTags", "sec:publicKey",
	"sec:owner", "sc:inLanguage",
}

// literalTerms are plain term names of literal predicates.
var literalTerms = map[string]string{
	"name": "as:name", "summary": "as:summary", "content": "as:content",
	"preferredUsername": "as:preferredUsername", "mediaType": "as:mediaType",
	"published": "as:published", "updated": "as:updated", "startTime": "as:startTime",
	"endTime": "as:endTime", "closed": "as:closed", "totalItems": "as:totalItems",
	"sensitive": "as:sensitive", "latitude": "as:latitude", "longitude": "as:longitude",
	"height": "as:height", "width": "as:width", "manuallyApprovesFollowers": "as:manuallyApprovesFollowers",
	"votersCount": "toot:votersCount", "discoverable": "toot:discoverable", "blurhash": "toot:blurhash",
	"conversation": "ostatus:conversation", "guid": "diaspora:guid", "commentsEnabled": "pt:commentsEnabled",
	"identifier": "sc:identifier", "publicKeyPem": "sec:publicKeyPem", "directMessage": "litepub:directMessage",
	"capabilities": "litepub:capabilities", "quoteUrl": "as:quoteUrl", "suspended": "toot:suspended",
}

// langTerms fold language maps into the base literal predicate.
var langTerms = map[string]string{
	"nameMap": "as:name", "summaryMap": "as:summary", "contentMap": "as:content",
}

// refTerms are plain term names of reference predicates that do not follow the
// "as:" + name rule.
var refTerms = map[string]string{
	"inbox": "ldp:inbox", "featured": "toot:featured", "featuredTags": "toot:featuredTags",
	"publicKey": "sec:publicKey", "owner": "sec:owner", "inLanguage": "sc:inLanguage",
}

// typeTerms maps plain type names that are not in the as: namespace.
var typeTerms = map[string]string{
	"EmojiReact": "litepub:EmojiReact", "ChatMessage": "litepub:ChatMessage",
	"Emoji": "toot:Emoji", "IdentityProof": "toot:IdentityProof",
	"CacheFile": "pt:CacheFile", "PropertyValue": "sc:PropertyValue",
	"Language": "sc:Language",
}

var isRef = map[string]bool{}

func init() {
	for _, k := range refKeys {
		isRef[k] = true
		name := strings.TrimPrefix(k, "as:")
		if name != k {
			terms[name] = term{key: k, class: classRef}
		}
	}
	for name, k := range refTerms {
		terms[name] = term{key: k, class: classRef}
	}
	for name, k := range literalTerms {
		terms[name] = term{key: k, class: classLiteral}
	}
	for name, k := range langTerms {
		terms[name] = term{key: k, class: classLangMap}
	}
}

// Compactor turns decoded activity JSON into compacted documents using a fixed
// ActivityStreams term table. Unknown plain terms are dropped.
type Compactor struct{}

// NewCompactor returns the default compactor.
func NewCompactor() *Compactor { return &Compactor{} }

// Decode parses a body into a raw JSON object.
func Decode(body []byte) (map[string]any, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return m, nil
}

// Compact compacts one raw node.
func (c *Compactor) Compact(raw map[string]any) Document {
	if raw == nil {
		return nil
	}
	return Document(compactNode(raw))
}

func compactNode(raw map[string]any) map[string]any {
	out := map[string]any{}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	// Sorted so that "content" precedes "contentMap" in the merged predicate.
	sort.Strings(keys)
	for _, k := range keys {
		v := raw[k]
		switch k {
		case "@context":
			continue
		case "id", "@id":
			if s, ok := v.(string); ok {
				out["@id"] = compactIRI(s)
			}
			continue
		case "type", "@type":
			if t := compactTypes(v); t != nil {
				out["@type"] = t
			}
			continue
		case "@value", "@language":
			out[k] = v
			continue
		}
		t, ok := lookup(k)
		if !ok {
			continue
		}
		var cv any
		switch t.class {
		case classRef:
			cv = compactValues(v, true)
		case classLiteral:
			cv = compactValues(v, false)
		case classLangMap:
			cv = compactLangMap(v)
		}
		if cv == nil {
			continue
		}
		out[t.key] = merge(out[t.key], cv)
	}
	return out
}

func lookup(k string) (term, bool) {
	if t, ok := terms[k]; ok {
		return t, true
	}
	key := compactIRI(k)
	if !strings.Contains(key, ":") || strings.Contains(key, "://") {
		return term{}, false
	}
	if isRef[key] {
		return term{key: key, class: classRef}, true
	}
	return term{key: key, class: classLiteral}, true
}

// compactIRI rewrites vocabulary IRIs to prefixed form; other IRIs are unchanged.
func compactIRI(s string) string {
	for _, ns := range namespaces {
		if strings.HasPrefix(s, ns.iri) {
			return ns.prefix + strings.TrimPrefix(s, ns.iri)
		}
	}
	if s == "Public" {
		return "as:Public"
	}
	return s
}

func compactType(s string) string {
	if t, ok := typeTerms[s]; ok {
		return t
	}
	if strings.Contains(s, ":") {
		return compactIRI(s)
	}
	return "as:" + s
}

func compactTypes(v any) any {
	switch t := v.(type) {
	case string:
		return compactType(t)
	case []any:
		var out []any
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, compactType(s))
			}
		}
		switch len(out) {
		case 0:
			return nil
		case 1:
			return out[0]
		}
		return out
	}
	return nil
}

func compactValues(v any, ref bool) any {
	if list, ok := v.([]any); ok {
		var out []any
		for _, x := range list {
			if c := compactValue(x, ref); c != nil {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return compactValue(v, ref)
}

func compactValue(v any, ref bool) any {
	switch x := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return compactNode(x)
	case string:
		if ref {
			return map[string]any{"@id": compactIRI(x)}
		}
		return map[string]any{"@value": x}
	default:
		return map[string]any{"@value": x}
	}
}

func compactLangMap(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	langs := make([]string, 0, len(m))
	for lang := range m {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	var out []any
	for _, lang := range langs {
		if s, ok := m[lang].(string); ok {
			out = append(out, map[string]any{"@value": s, "@language": lang})
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// merge appends b to an existing predicate value.
func merge(a, b any) any {
	if a == nil {
		return b
	}
	var out []any
	for _, x := range []any{a, b} {
		if l, ok := x.([]any); ok {
			out = append(out, l...)
		} else {
			out = append(out, x)
		}
	}
	return out
}
