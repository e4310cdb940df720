// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package server

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/toeirei/inbound/internal/inbox"
	"github.com/toeirei/inbound/internal/logging"
)

// ErrQueueFull is returned by Submit when no slot is free.
var ErrQueueFull = errors.New("server: delivery queue full")

// Job is one accepted delivery.
type Job struct {
	ID        string
	Body      []byte
	Transport inbox.Transport
	UID       int64
	Received  time.Time
}

// InboxProcessor is the programmatic entry point, implemented by *inbox.Receiver.
type InboxProcessor interface {
	ProcessInbox(ctx context.Context, body []byte, t inbox.Transport, uid int64) inbox.Outcome
}

// Pool runs a fixed number of workers over a bounded queue.
type Pool struct {
	proc    InboxProcessor
	jobs    chan Job
	workers int
}

// NewPool returns a pool; non-positive sizes select 4 workers and 256 slots.
func NewPool(proc InboxProcessor, workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Pool{proc: proc, jobs: make(chan Job, queueSize), workers: workers}
}

// Submit enqueues j without blocking.
func (p *Pool) Submit(j Job) error {
	select {
	case p.jobs <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued deliveries.
func (p *Pool) Pending() int { return len(p.jobs) }

// Run starts the workers and blocks until ctx is done and every worker has
// finished its current delivery.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		worker := i
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case j := <-p.jobs:
					p.handle(ctx, worker, j)
				}
			}
		})
	}
	return g.Wait()
}

func (p *Pool) handle(ctx context.Context, worker int, j Job) {
	start := time.Now()
	outcome := p.proc.ProcessInbox(ctx, j.Body, j.Transport, j.UID)
	logging.L.Debug("Delivery processed", "delivery", j.ID, "worker", worker, "uid", j.UID,
		"outcome", outcome, "took", time.Since(start), "queued", start.Sub(j.Received))
}
