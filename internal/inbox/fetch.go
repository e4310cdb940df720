// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package inbox

import (
	"context"
	"encoding/json"

	"github.com/toeirei/inbound/internal/ldterm"
	"github.com/toeirei/inbound/internal/logging"
	"github.com/toeirei/inbound/internal/model"
)

type fetchOutcome int

const (
	fetchResolved fetchOutcome = iota
	// fetchUnhandled carries a stub record with the kind that could not be processed.
	fetchUnhandled
	// fetchUnresolved means nothing usable was found.
	fetchUnresolved
)

// maxAnnounceHops is the number of Announce wrappers fetchObject unwraps.
const maxAnnounceHops = 1

// fetchObject resolves the content object behind objectID. An embedded
// object is used as is when it is trusted and typed; everything else is
// fetched from its origin and must carry exactly the requested id.
func (s *session) fetchObject(ctx context.Context, objectID string, embedded ldterm.Document, trusted bool, uid int64) (*model.ObjectData, fetchOutcome) {
	hops := 0
	for {
		var obj ldterm.Document
		var raw map[string]any
		if trusted && embedded.Type() != "" {
			logging.L.Debug("Using original object", "id", objectID)
			obj = embedded
		} else {
			obj, raw, _ = s.fetchDoc(ctx, objectID, uid)
			if obj == nil {
				obj = s.storedCopy(ctx, objectID)
				if obj == nil {
					logging.L.Info("Object was not found", "id", objectID)
					return nil, fetchUnresolved
				}
				logging.L.Info("Using already stored item", "id", objectID)
			}
			if obj.ID() != objectID {
				logging.L.Info("Fetched id differs from provided id", "id", objectID, "fetched", obj.ID())
				return nil, fetchUnresolved
			}
		}

		typ := model.Kind(obj.Type())
		if typ == model.KindCreate {
			obj = obj.Node("as:object")
			typ = model.Kind(obj.Type())
		}
		if typ == model.Undetermined {
			logging.L.Info("Empty type", "id", objectID)
			return nil, fetchUnresolved
		}

		if typ.IsContent() || typ.IsIgnorable() {
			rec := s.processObject(ctx, obj)
			if raw != nil {
				if b, err := json.Marshal(raw); err == nil {
					rec.Raw = string(b)
				}
			}
			return rec, fetchResolved
		}

		if typ == model.KindAnnounce {
			next := obj.String("as:object", "")
			if next == "" {
				return nil, fetchUnresolved
			}
			if hops >= maxAnnounceHops {
				logging.L.Info("Announce chain too deep", "id", obj.ID())
				return &model.ObjectData{ID: obj.ID(), ObjectType: typ}, fetchUnhandled
			}
			hops++
			objectID, embedded, trusted = next, nil, false
			continue
		}

		logging.L.Info("Unhandled object type", "type", typ, "id", obj.ID())
		return &model.ObjectData{ID: obj.ID(), ObjectType: typ}, fetchUnhandled
	}
}

// storedCopy rebuilds a document from a locally stored item.
func (s *session) storedCopy(ctx context.Context, uri string) ldterm.Document {
	p, err := s.graph.PostByURI(ctx, uri)
	if err != nil || p == nil {
		return nil
	}
	typ := p.ObjectType
	if typ == "" {
		typ = string(model.KindNote)
	}
	doc := ldterm.Document{
		"@id":             p.URI,
		"@type":           typ,
		"as:attributedTo": map[string]any{"@id": p.Author},
		"as:content":      map[string]any{"@value": p.Content},
	}
	if p.ParentURI != "" && p.ParentURI != p.URI {
		doc["as:inReplyTo"] = map[string]any{"@id": p.ParentURI}
	}
	if p.Plink != "" {
		doc["as:url"] = map[string]any{"@id": p.Plink}
	}
	if !p.CreatedAt.IsZero() {
		doc["as:published"] = map[string]any{"@value": p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z")}
	}
	return doc
}
