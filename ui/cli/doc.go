// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the command-line interface for Inbound using Cobra.
// It loads configuration, opens the store and wires the inbox pipeline; the
// commands themselves stay thin.
package cli
