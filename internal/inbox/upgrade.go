// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package inbox

import (
	"context"

	"github.com/toeirei/inbound/internal/logging"
)

// ContactUpgrader switches a contact to ActivityPub. It must be idempotent.
type ContactUpgrader interface {
	UpgradeProtocol(ctx context.Context, accountID int64, actorURL string) error
}

// UpgradeWorker executes protocol upgrades outside of the delivery that found them.
type UpgradeWorker struct {
	ch chan ProtocolUpgrade
	up ContactUpgrader
}

// NewUpgradeWorker returns a worker with a queue of the given size.
func NewUpgradeWorker(up ContactUpgrader, size int) *UpgradeWorker {
	if size <= 0 {
		size = 64
	}
	return &UpgradeWorker{ch: make(chan ProtocolUpgrade, size), up: up}
}

// Enqueue implements UpgradeQueue. A full queue drops the event; the next
// delivery from the same contact emits it again.
func (w *UpgradeWorker) Enqueue(u ProtocolUpgrade) {
	select {
	case w.ch <- u:
	default:
		logging.L.Warn("Upgrade queue full, event dropped", "account", u.AccountID, "actor", u.ActorURL)
	}
}

// Run drains the queue until ctx is done.
func (w *UpgradeWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-w.ch:
			if err := w.up.UpgradeProtocol(ctx, u.AccountID, u.ActorURL); err != nil {
				logging.L.Warn("Protocol upgrade failed", "account", u.AccountID, "actor", u.ActorURL, "err", err)
				continue
			}
			logging.L.Info("Contact switched to ActivityPub", "account", u.AccountID, "actor", u.ActorURL)
		}
	}
}
