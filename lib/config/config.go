// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Outpost binaries.
//
// The sandbox launcher communicates through the environment, so the
// environment is the primary source. An optional YAML file named by
// OUTPOST_CONFIG supplies base values; environment variables override
// non-empty fields from the file. There is no other discovery.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvRoot            = "OUTPOST_ROOT"
	EnvAgentName       = "OUTPOST_AGENT_NAME"
	EnvCallbackURL     = "OUTPOST_CALLBACK_URL"
	EnvTaskToken       = "OUTPOST_TASK_TOKEN"
	EnvOrchestrationID = "OUTPOST_ORCHESTRATION_ID"
	EnvSyncKeySeed     = "OUTPOST_SYNC_KEY"
	EnvConfigFile      = "OUTPOST_CONFIG"
)

// Config carries everything the tool-call server and the exporter need.
type Config struct {
	// Root is the store root directory holding the entity files.
	Root string `yaml:"root"`

	// AgentName is this sandbox's agent identity. It is the default
	// sender and recipient for every mailbox operation. The tool-call
	// server refuses to start without it.
	AgentName string `yaml:"agent_name"`

	// CallbackURL is the base URL of the central store. Empty disables
	// the exporter and the pull path (soft no-op, not an error).
	CallbackURL string `yaml:"callback_url"`

	// TaskToken is the static bearer token for the callback endpoint.
	TaskToken string `yaml:"task_token"`

	// OrchestrationID scopes pull requests to one multi-agent run.
	OrchestrationID string `yaml:"orchestration_id"`

	// SyncKeySeed is an optional hex-encoded Ed25519 seed. When set,
	// the export and pull paths mint short-lived signed tokens instead
	// of sending TaskToken.
	SyncKeySeed string `yaml:"sync_key"`
}

// Load builds the configuration from the optional OUTPOST_CONFIG file
// plus the environment. Environment values win over file values.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv(EnvConfigFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	overlayEnv(cfg)

	if cfg.Root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("config: no %s and no home directory: %w", EnvRoot, err)
		}
		cfg.Root = filepath.Join(home, ".outpost")
	}

	return cfg, nil
}

// overlayEnv applies non-empty environment values over cfg.
func overlayEnv(cfg *Config) {
	apply := func(target *string, name string) {
		if value := os.Getenv(name); value != "" {
			*target = value
		}
	}
	apply(&cfg.Root, EnvRoot)
	apply(&cfg.AgentName, EnvAgentName)
	apply(&cfg.CallbackURL, EnvCallbackURL)
	apply(&cfg.TaskToken, EnvTaskToken)
	apply(&cfg.OrchestrationID, EnvOrchestrationID)
	apply(&cfg.SyncKeySeed, EnvSyncKeySeed)
}

// RequireIdentity fails when no agent name is configured. Identity is
// the one fatal configuration error: without it the server cannot
// address mail, so there is nothing useful it could serve.
func (c *Config) RequireIdentity() error {
	if c.AgentName == "" {
		return fmt.Errorf("config: %s is not set", EnvAgentName)
	}
	return nil
}

// HasCallback reports whether the remote callback endpoint is usable.
// Both the URL and a credential (static token or sync key) must be
// present; anything less and the export/pull paths skip quietly.
func (c *Config) HasCallback() bool {
	return c.CallbackURL != "" && (c.TaskToken != "" || c.SyncKeySeed != "")
}
