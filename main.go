// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Inbound.
//
// Usage:
//
//	go run . serve
//	./inbound [command] [flags]
//
// See --help for options.
package main

import (
	"os"

	"github.com/toeirei/inbound/internal/logging"
	"github.com/toeirei/inbound/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.L.Error("Inbound CLI error", "err", err)
		os.Exit(1)
	}
}
