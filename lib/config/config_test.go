// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvRoot, EnvAgentName, EnvCallbackURL, EnvTaskToken, EnvOrchestrationID, EnvSyncKeySeed, EnvConfigFile} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvRoot, "/srv/outpost")
	t.Setenv(EnvAgentName, "worker-3")
	t.Setenv(EnvCallbackURL, "https://central.example")
	t.Setenv(EnvTaskToken, "tok")
	t.Setenv(EnvOrchestrationID, "orch-9")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Root != "/srv/outpost" || cfg.AgentName != "worker-3" || cfg.OrchestrationID != "orch-9" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.HasCallback() {
		t.Error("HasCallback = false with URL and token set")
	}
}

func TestLoadDefaultsRootToHome(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Root != filepath.Join(home, ".outpost") {
		t.Errorf("Root = %q", cfg.Root)
	}
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "outpost.yaml")
	contents := "root: /from/file\nagent_name: file-agent\ncallback_url: https://file.example\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvAgentName, "env-agent")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Root != "/from/file" {
		t.Errorf("Root = %q, want file value", cfg.Root)
	}
	if cfg.AgentName != "env-agent" {
		t.Errorf("AgentName = %q, want env override", cfg.AgentName)
	}
	if cfg.CallbackURL != "https://file.example" {
		t.Errorf("CallbackURL = %q", cfg.CallbackURL)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Error("Load succeeded with a named but missing config file")
	}
}

func TestRequireIdentity(t *testing.T) {
	if err := (&Config{}).RequireIdentity(); err == nil {
		t.Error("RequireIdentity passed without an agent name")
	}
	if err := (&Config{AgentName: "head"}).RequireIdentity(); err != nil {
		t.Errorf("RequireIdentity: %v", err)
	}
}

func TestHasCallback(t *testing.T) {
	cases := []struct {
		cfg  Config
		want bool
	}{
		{Config{}, false},
		{Config{CallbackURL: "https://c"}, false},
		{Config{TaskToken: "tok"}, false},
		{Config{CallbackURL: "https://c", TaskToken: "tok"}, true},
		{Config{CallbackURL: "https://c", SyncKeySeed: "aa"}, true},
	}
	for _, tc := range cases {
		if got := tc.cfg.HasCallback(); got != tc.want {
			t.Errorf("HasCallback(%+v) = %v, want %v", tc.cfg, got, tc.want)
		}
	}
}
