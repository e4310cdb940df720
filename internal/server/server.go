// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package server exposes the inbox endpoints over HTTP and feeds accepted
// deliveries to a worker pool.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/toeirei/inbound/internal/inbox"
	"github.com/toeirei/inbound/internal/logging"
	"github.com/toeirei/inbound/internal/model"
)

// Accounts resolves single-inbox nicknames, implemented by *db.Store.
type Accounts interface {
	AccountByNickname(ctx context.Context, nickname string) (*model.Account, error)
}

// Config holds the HTTP settings.
type Config struct {
	Listen       string
	MaxBodyBytes int64
}

// Server is the inbox HTTP front end.
type Server struct {
	cfg      Config
	pool     *Pool
	accounts Accounts
	router   chi.Router
	newID    func() string
}

// New builds the router.
func New(cfg Config, pool *Pool, accounts Accounts) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	s := &Server{cfg: cfg, pool: pool, accounts: accounts, newID: func() string { return uuid.NewString() }}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/inbox", s.sharedInbox)
	r.Post("/users/{nickname}/inbox", s.userInbox)
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) sharedInbox(w http.ResponseWriter, r *http.Request) {
	s.accept(w, r, model.PublicAccount)
}

func (s *Server) userInbox(w http.ResponseWriter, r *http.Request) {
	nickname := chi.URLParam(r, "nickname")
	a, err := s.accounts.AccountByNickname(r.Context(), nickname)
	if err != nil {
		logging.L.Error("Account lookup failed", "nickname", nickname, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if a == nil {
		http.NotFound(w, r)
		return
	}
	s.accept(w, r, a.ID)
}

func (s *Server) accept(w http.ResponseWriter, r *http.Request, uid int64) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "could not read body", http.StatusBadRequest)
		return
	}
	j := Job{
		ID:   s.newID(),
		Body: body,
		Transport: inbox.Transport{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Host:   r.Host,
			Header: r.Header.Clone(),
		},
		UID:      uid,
		Received: time.Now(),
	}
	if err := s.pool.Submit(j); err != nil {
		logging.L.Warn("Delivery rejected", "delivery", j.ID, "uid", uid, "err", err)
		w.Header().Set("Retry-After", "30")
		http.Error(w, "queue full", http.StatusServiceUnavailable)
		return
	}
	logging.L.Debug("Delivery accepted", "delivery", j.ID, "uid", uid, "bytes", len(body), "remote", r.RemoteAddr)
	w.Header().Set("X-Delivery-Id", j.ID)
	w.WriteHeader(http.StatusAccepted)
}

// ListenAndServe serves until ctx is done and then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.L.Info("Inbox listening", "addr", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
