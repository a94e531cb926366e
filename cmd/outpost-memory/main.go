// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

// outpost-memory is the tool-call server that exposes the sandbox's
// coordination substrate — mailbox, task registry, orchestration plan,
// and knowledge memory — to the agent process over newline-delimited
// JSON-RPC on stdin/stdout.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/outpost-foundation/outpost/knowledge"
	"github.com/outpost-foundation/outpost/lib/clock"
	"github.com/outpost-foundation/outpost/lib/config"
	"github.com/outpost-foundation/outpost/lib/synctoken"
	"github.com/outpost-foundation/outpost/lib/version"
	"github.com/outpost-foundation/outpost/mailbox"
	"github.com/outpost-foundation/outpost/orchestration"
	"github.com/outpost-foundation/outpost/store"
	"github.com/outpost-foundation/outpost/tasks"
	"github.com/outpost-foundation/outpost/toolserver"
)

func main() {
	var (
		root        string
		showVersion bool
	)
	pflag.StringVar(&root, "root", "", "store root directory (overrides OUTPOST_ROOT)")
	pflag.BoolVar(&showVersion, "version", false, "print version and exit")
	pflag.Parse()

	if showVersion {
		fmt.Println(version.Info())
		return
	}

	// Stdout carries the wire protocol; all logging goes to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(root, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(rootOverride string, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if rootOverride != "" {
		cfg.Root = rootOverride
	}

	// Identity is the one fatal configuration error: without an agent
	// name there is no mailbox addressing and nothing useful to serve.
	if err := cfg.RequireIdentity(); err != nil {
		return err
	}

	st, err := store.Open(cfg.Root)
	if err != nil {
		return err
	}

	clk := clock.Real()
	mailboxService := mailbox.NewService(st, clk, cfg.AgentName)
	taskService := tasks.NewService(st, clk)
	knowledgeService := knowledge.NewService(st, clk, logger)

	var pull *orchestration.PullClient
	if cfg.HasCallback() {
		pull = orchestration.NewPullClient(nil, cfg.CallbackURL, pullToken(cfg, clk), logger)
	}
	engine := orchestration.NewEngine(st, clk, logger, cfg.AgentName, cfg.OrchestrationID, pull)

	// Seed canonical defaults; seeding never overwrites live data.
	for _, seed := range []func() error{
		mailboxService.Seed,
		taskService.Seed,
		knowledgeService.Seed,
		engine.Seed,
	} {
		if err := seed(); err != nil {
			return err
		}
	}

	logger.Info("outpost-memory serving",
		"agent", cfg.AgentName, "root", cfg.Root, "version", version.Short())

	server := toolserver.New(toolserver.Services{
		Mailbox:   mailboxService,
		Tasks:     taskService,
		Knowledge: knowledgeService,
		Engine:    engine,
	}, logger)
	return server.Serve()
}

// pullToken builds the bearer-token source for the pull path: a fresh
// short-lived signed token per request when a sync key is configured,
// the static task token otherwise.
func pullToken(cfg *config.Config, clk clock.Clock) orchestration.TokenSource {
	if cfg.SyncKeySeed != "" {
		_, privateKey, err := synctoken.KeypairFromSeed(cfg.SyncKeySeed)
		if err == nil {
			return func() (string, bool) {
				token, err := synctoken.MintFor(privateKey, cfg.AgentName, cfg.OrchestrationID, synctoken.AudiencePull, clk.Now())
				return token, err == nil
			}
		}
	}
	return orchestration.StaticToken(cfg.TaskToken)
}
