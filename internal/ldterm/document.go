// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package ldterm provides the compacted activity document and its accessors.
//
// A compacted document keys every node by "@id"/"@type" and by namespaced
// predicates ("as:object", "toot:Emoji", ...). Literal values are wrapped as
// {"@value": v} (optionally with "@language"), references as {"@id": iri}.
package ldterm

// Document is one compacted node.
type Document map[string]any

// Filter restricts array accessors to entries whose Key equals Value.
type Filter struct {
	Key   string
	Value string
}

// ID returns the node id.
func (d Document) ID() string {
	s, _ := d["@id"].(string)
	return s
}

// Type returns the first node type, or "".
func (d Document) Type() string {
	return d.String("@type", "")
}

// Types returns all node types.
func (d Document) Types() []string {
	return d.Strings("@type", "")
}

// Has reports whether the predicate carries a non-empty value.
func (d Document) Has(elem string) bool {
	return !empty(d[elem])
}

// entries returns the predicate value as a list. A single node or scalar becomes a one
// element list.
func (d Document) entries(elem string) []any {
	if d == nil {
		return nil
	}
	switch v := d[elem].(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}

func match(e any, f []Filter) bool {
	if len(f) == 0 {
		return true
	}
	n := asDocument(e)
	if n == nil {
		return false
	}
	for _, c := range f {
		if !containsString(n, c.Key, c.Value) {
			return false
		}
	}
	return true
}

// containsString handles keys like "@type" whose value may be a single string or a list.
func containsString(n Document, key, value string) bool {
	switch v := n[key].(type) {
	case string:
		return v == value
	case []any:
		for _, x := range v {
			if s, ok := x.(string); ok && s == value {
				return true
			}
		}
	case map[string]any:
		return scalarString(v["@id"]) == value || scalarString(v["@value"]) == value
	}
	return false
}

// String returns the first value of elem. A plain string value is returned as is;
// for node values the given key is read ("@id" when key is "").
func (d Document) String(elem, key string, f ...Filter) string {
	if key == "" {
		key = "@id"
	}
	for _, e := range d.entries(elem) {
		if !match(e, f) {
			continue
		}
		if s, ok := e.(string); ok {
			return s
		}
		if n := asDocument(e); n != nil {
			if s := scalarString(n[key]); s != "" {
				return s
			}
		}
		return ""
	}
	return ""
}

// Strings returns the key of every entry of elem, skipping empty values.
func (d Document) Strings(elem, key string, f ...Filter) []string {
	if key == "" {
		key = "@id"
	}
	var out []string
	for _, e := range d.entries(elem) {
		if !match(e, f) {
			continue
		}
		var s string
		if str, ok := e.(string); ok {
			s = str
		} else if n := asDocument(e); n != nil {
			s = scalarString(n[key])
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Nodes returns the entries of elem that are nodes.
func (d Document) Nodes(elem string, f ...Filter) []Document {
	var out []Document
	for _, e := range d.entries(elem) {
		if !match(e, f) {
			continue
		}
		if n := asDocument(e); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Node returns the first node of elem, or nil.
func (d Document) Node(elem string, f ...Filter) Document {
	nodes := d.Nodes(elem, f...)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// Value returns the raw "@value" of the first entry of elem.
func (d Document) Value(elem string) any {
	for _, e := range d.entries(elem) {
		if n := asDocument(e); n != nil {
			return n["@value"]
		}
		return e
	}
	return nil
}

// Bool returns the boolean literal of elem.
func (d Document) Bool(elem string) (bool, bool) {
	switch v := d.Value(elem).(type) {
	case bool:
		return v, true
	case string:
		return v == "true", v == "true" || v == "false"
	}
	return false, false
}

// Float returns the numeric literal of elem.
func (d Document) Float(elem string) (float64, bool) {
	switch v := d.Value(elem).(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Int returns the numeric literal of elem truncated to an int.
func (d Document) Int(elem string) (int, bool) {
	f, ok := d.Float(elem)
	return int(f), ok
}

// Literals returns every "@value"/"@language" pair of elem.
func (d Document) Literals(elem string) []Literal {
	var out []Literal
	for _, e := range d.entries(elem) {
		switch v := e.(type) {
		case string:
			out = append(out, Literal{Value: v})
		default:
			n := asDocument(v)
			if n == nil {
				continue
			}
			s := scalarString(n["@value"])
			if s == "" {
				continue
			}
			out = append(out, Literal{Value: s, Language: scalarString(n["@language"])})
		}
	}
	return out
}

// Literal is one language tagged value.
type Literal struct {
	Value    string
	Language string
}

func asDocument(v any) Document {
	switch n := v.(type) {
	case Document:
		return n
	case map[string]any:
		return Document(n)
	}
	return nil
}

func scalarString(v any) string {
	s, _ := v.(string)
	return s
}

func empty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	case Document:
		return len(x) == 0
	}
	return false
}
