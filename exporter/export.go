// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

// Package exporter pushes a capped snapshot of every durable store
// file to the central store, typically at sandbox shutdown. It runs
// independently of the tool-call server and only ever reads the store.
//
// The failure model is absolute: missing configuration, oversized
// files, non-2xx responses, and network errors are all logged and
// swallowed. The exporter must never cause its caller — the sandbox
// teardown path — to fail.
package exporter

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/zeebo/blake3"

	"github.com/outpost-foundation/outpost/store"
)

// ByteCap is the per-file snapshot limit. Longer files are truncated,
// never skipped: a partial knowledge document beats no knowledge
// document.
const ByteCap = 64 * 1024

// File is one exported store file.
type File struct {
	// MemoryType classifies the entity (tasks, mailbox, knowledge,
	// daily, orchestration-plan, orchestration-agents,
	// orchestration-events).
	MemoryType string `json:"memoryType"`

	// Content is the file content, truncated at ByteCap.
	Content string `json:"content"`

	// FileName is the store-relative path.
	FileName string `json:"fileName"`

	// Date is set for daily logs (YYYY-MM-DD).
	Date string `json:"date,omitempty"`

	// Digest is the BLAKE3 hash (hex) of the full, pre-truncation
	// content, letting the central store skip files it already has.
	Digest string `json:"digest"`
}

// payload is the POST body shape.
type payload struct {
	Files []File `json:"files"`
}

// TokenSource produces a bearer token for one request. The second
// return is false when no credential is available.
type TokenSource func() (string, bool)

// Exporter snapshots a store to the callback endpoint.
type Exporter struct {
	store       *store.Store
	httpClient  *http.Client
	callbackURL string
	token       TokenSource
	logger      *slog.Logger
}

// New creates an exporter. callbackURL may be empty and token may
// yield nothing; Run then logs the skip and returns success.
func New(st *store.Store, httpClient *http.Client, callbackURL string, token TokenSource, logger *slog.Logger) *Exporter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Exporter{
		store:       st,
		httpClient:  httpClient,
		callbackURL: callbackURL,
		token:       token,
		logger:      logger,
	}
}

// Run collects every existing store file and POSTs the snapshot. The
// returned error is always nil — the signature keeps the option open,
// but per the failure model every problem is logged and swallowed.
func (e *Exporter) Run(ctx context.Context) error {
	if e.callbackURL == "" {
		e.logger.Info("export skipped: no callback URL configured")
		return nil
	}
	token, ok := e.token()
	if !ok {
		e.logger.Info("export skipped: no credential configured")
		return nil
	}

	files := e.collect()
	if len(files) == 0 {
		e.logger.Info("export: nothing to send")
		return nil
	}

	body, err := json.Marshal(payload{Files: files})
	if err != nil {
		e.logger.Error("export: encoding payload failed", "error", err)
		return nil
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, e.callbackURL+"/api/memory/sync", bytes.NewReader(body))
	if err != nil {
		e.logger.Error("export: creating request failed", "error", err)
		return nil
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+token)

	response, err := e.httpClient.Do(request)
	if err != nil {
		e.logger.Error("export: request failed", "error", err)
		return nil
	}
	defer response.Body.Close()

	responseBody, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		e.logger.Error("export: sync endpoint rejected snapshot",
			"status", response.StatusCode, "body", string(responseBody))
		return nil
	}

	e.logger.Info("export: snapshot sent", "files", len(files), "response", string(responseBody))
	return nil
}

// collect gathers every existing entity file, capped and digested.
func (e *Exporter) collect() []File {
	var files []File

	fixed := []struct {
		name       string
		memoryType string
	}{
		{store.TasksFile, "tasks"},
		{store.MailboxFile, "mailbox"},
		{store.KnowledgeFile, "knowledge"},
		{store.PlanFile, "orchestration-plan"},
		{store.AgentsFile, "orchestration-agents"},
		{store.EventsFile, "orchestration-events"},
	}
	for _, entry := range fixed {
		if file, ok := e.snapshot(entry.name, entry.memoryType, ""); ok {
			files = append(files, file)
		}
	}

	for _, date := range e.store.ListDaily() {
		if file, ok := e.snapshot(store.DailyFile(date), "daily", date); ok {
			files = append(files, file)
		}
	}

	return files
}

// snapshot reads one file, truncating at ByteCap and hashing the full
// content.
func (e *Exporter) snapshot(name, memoryType, date string) (File, bool) {
	content, ok := e.store.ReadText(name)
	if !ok {
		return File{}, false
	}

	digest := blake3.Sum256([]byte(content))
	if len(content) > ByteCap {
		e.logger.Warn("export: truncating oversized file",
			"file", name, "size", len(content), "cap", ByteCap)
		content = content[:ByteCap]
	}

	return File{
		MemoryType: memoryType,
		Content:    content,
		FileName:   name,
		Date:       date,
		Digest:     hex.EncodeToString(digest[:]),
	}, true
}
