// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"github.com/toeirei/inbound/internal/config"
	"github.com/toeirei/inbound/internal/db"
	"github.com/toeirei/inbound/internal/fetch"
	"github.com/toeirei/inbound/internal/httpsig"
	"github.com/toeirei/inbound/internal/identity"
	"github.com/toeirei/inbound/internal/inbox"
	"github.com/toeirei/inbound/internal/ldterm"
	"github.com/toeirei/inbound/internal/processor"
)

// pipeline is the wired inbox stack over one store.
type pipeline struct {
	receiver   *inbox.Receiver
	upgrades   *inbox.UpgradeWorker
	normalizer *ldterm.Compactor
}

// sampleSink picks the configured destination of diagnostic samples.
func sampleSink(cfg config.Config, store *db.Store) inbox.SampleSink {
	if cfg.Debug.SampleSink == "file" {
		return inbox.FileSink{Dir: cfg.Debug.SampleDir}
	}
	return store
}

// buildPipeline wires fetcher, actor directory, signature checks, handlers and
// recorder around store.
func buildPipeline(cfg config.Config, store *db.Store, fetcher fetch.Getter) *pipeline {
	if fetcher == nil {
		fetcher = fetch.NewClient(fetch.Config{
			Timeout:      cfg.Fetch.Timeout,
			MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
			UserAgent:    cfg.Fetch.UserAgent,
		})
	}
	ld := ldterm.NewCompactor()
	dir := identity.NewDirectory(store, fetcher, ld, identity.DefaultTTL)
	upgrades := inbox.NewUpgradeWorker(store, 64)

	receiver := inbox.NewReceiver(inbox.Deps{
		Normalizer: ld,
		Transport:  httpsig.NewVerifier(dir),
		Content:    httpsig.NewContentVerifier(dir, nil),
		Fetcher:    fetcher,
		Identity:   dir,
		Graph:      store,
		Handlers:   processor.New(store, dir),
		Recorder:   inbox.NewRecorder(cfg.Debug.APLogUnknown, sampleSink(cfg, store)),
		Upgrades:   upgrades,
		MaxFetches: cfg.Fetch.MaxPerDelivery,
	})
	return &pipeline{receiver: receiver, upgrades: upgrades, normalizer: ld}
}
