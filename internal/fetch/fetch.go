// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package fetch retrieves remote activity documents over HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/toeirei/inbound/internal/ldterm"
)

var (
	// ErrGone is returned for 410 responses.
	ErrGone = errors.New("fetch: gone")
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("fetch: not found")
	// ErrBudgetExhausted is returned once a Limited getter used up its fetches.
	ErrBudgetExhausted = errors.New("fetch: budget exhausted")
)

// AcceptHeader is sent with every request.
const AcceptHeader = `application/activity+json, application/ld+json; profile="https://www.w3.org/ns/activitystreams"`

// Getter retrieves a document authenticated as the local account uid.
type Getter interface {
	Fetch(ctx context.Context, url string, uid int64) (map[string]any, error)
}

// Config controls the HTTP client.
type Config struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// Client is the default Getter. Requests are unsigned; uid is only logged by callers.
type Client struct {
	http *http.Client
	cfg  Config
}

// NewClient returns a client with defaults applied to zero values.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "inbound"
	}
	return &Client{http: &http.Client{Timeout: cfg.Timeout}, cfg: cfg}
}

// Fetch implements Getter.
func (c *Client) Fetch(ctx context.Context, url string, _ int64) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request: %w", err)
	}
	req.Header.Set("Accept", AcceptHeader)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusGone:
		return nil, ErrGone
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("could not read body: %w", err)
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("body of %s exceeds %d bytes", url, c.cfg.MaxBodyBytes)
	}
	if len(body) == 0 {
		return nil, nil
	}
	return ldterm.Decode(body)
}

// Limited wraps a Getter with a fixed number of allowed fetches.
type Limited struct {
	g         Getter
	mu        sync.Mutex
	remaining int
	unlimited bool
}

// Limit returns a Limited getter. n <= 0 disables the bound.
func Limit(g Getter, n int) *Limited {
	return &Limited{g: g, remaining: n, unlimited: n <= 0}
}

// Fetch implements Getter.
func (l *Limited) Fetch(ctx context.Context, url string, uid int64) (map[string]any, error) {
	if l.g == nil {
		return nil, nil
	}
	l.mu.Lock()
	if !l.unlimited {
		if l.remaining <= 0 {
			l.mu.Unlock()
			return nil, ErrBudgetExhausted
		}
		l.remaining--
	}
	l.mu.Unlock()
	return l.g.Fetch(ctx, url, uid)
}

// Remaining returns the fetches left, or -1 when unbounded.
func (l *Limited) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unlimited {
		return -1
	}
	return l.remaining
}
