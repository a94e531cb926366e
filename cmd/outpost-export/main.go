// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

// outpost-export snapshots the durable store and pushes it to the
// central store's sync endpoint. It is invoked by the sandbox teardown
// path and always exits zero: a lost snapshot is acceptable, a failed
// teardown is not.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/outpost-foundation/outpost/exporter"
	"github.com/outpost-foundation/outpost/lib/clock"
	"github.com/outpost-foundation/outpost/lib/config"
	"github.com/outpost-foundation/outpost/lib/synctoken"
	"github.com/outpost-foundation/outpost/lib/version"
	"github.com/outpost-foundation/outpost/store"
)

func main() {
	var (
		root        string
		timeout     time.Duration
		showVersion bool
	)
	pflag.StringVar(&root, "root", "", "store root directory (overrides OUTPOST_ROOT)")
	pflag.DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline for the export")
	pflag.BoolVar(&showVersion, "version", false, "print version and exit")
	pflag.Parse()

	if showVersion {
		fmt.Println(version.Info())
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("export skipped: loading configuration failed", "error", err)
		return
	}
	if root != "" {
		cfg.Root = root
	}

	st, err := store.Open(cfg.Root)
	if err != nil {
		logger.Error("export skipped: opening store failed", "root", cfg.Root, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Run logs and swallows every failure; the exit code stays zero.
	_ = exporter.New(st, nil, cfg.CallbackURL, exportToken(cfg), logger).Run(ctx)
}

// exportToken builds the bearer-token source for the sync endpoint: a
// fresh signed token when a sync key is configured, the static task
// token otherwise.
func exportToken(cfg *config.Config) exporter.TokenSource {
	if cfg.SyncKeySeed != "" {
		_, privateKey, err := synctoken.KeypairFromSeed(cfg.SyncKeySeed)
		if err == nil {
			clk := clock.Real()
			return func() (string, bool) {
				token, err := synctoken.MintFor(privateKey, cfg.AgentName, cfg.OrchestrationID, synctoken.AudienceMemorySync, clk.Now())
				return token, err == nil
			}
		}
	}
	return func() (string, bool) {
		return cfg.TaskToken, cfg.TaskToken != ""
	}
}
