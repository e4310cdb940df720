// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/note":
			if !strings.Contains(r.Header.Get("Accept"), "application/activity+json") {
				t.Errorf("missing activity accept header: %q", r.Header.Get("Accept"))
			}
			_, _ = w.Write([]byte(`{"id":"x","type":"Note"}`))
		case "/gone":
			w.WriteHeader(http.StatusGone)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/big":
			_, _ = w.Write([]byte(`{"content":"` + strings.Repeat("a", 200) + `"}`))
		case "/error":
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{MaxBodyBytes: 100})
	ctx := context.Background()

	doc, err := c.Fetch(ctx, srv.URL+"/note", 0)
	if err != nil {
		t.Fatalf("fetch note: %v", err)
	}
	if doc["type"] != "Note" {
		t.Fatalf("unexpected document %v", doc)
	}
	if _, err := c.Fetch(ctx, srv.URL+"/gone", 0); !errors.Is(err, ErrGone) {
		t.Fatalf("expected ErrGone, got %v", err)
	}
	if _, err := c.Fetch(ctx, srv.URL+"/missing", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.Fetch(ctx, srv.URL+"/big", 0); err == nil {
		t.Fatalf("expected size limit error")
	}
	if _, err := c.Fetch(ctx, srv.URL+"/error", 0); err == nil {
		t.Fatalf("expected status error")
	}
}

type countingGetter struct{ calls int }

func (c *countingGetter) Fetch(context.Context, string, int64) (map[string]any, error) {
	c.calls++
	return map[string]any{}, nil
}

func TestLimit(t *testing.T) {
	g := &countingGetter{}
	l := Limit(g, 2)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := l.Fetch(ctx, "u", 0); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if _, err := l.Fetch(ctx, "u", 0); !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("expected ErrBudgetExhausted, got %v", err)
	}
	if g.calls != 2 {
		t.Fatalf("inner getter called %d times", g.calls)
	}
	if l.Remaining() != 0 {
		t.Fatalf("unexpected remaining %d", l.Remaining())
	}

	unbounded := Limit(g, 0)
	if unbounded.Remaining() != -1 {
		t.Fatalf("expected unbounded limiter")
	}
	if _, err := Limit(nil, 3).Fetch(ctx, "u", 0); err != nil {
		t.Fatalf("nil getter must behave as empty: %v", err)
	}
}
