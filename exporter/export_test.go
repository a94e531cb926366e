// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

package exporter

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zeebo/blake3"

	"github.com/outpost-foundation/outpost/store"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	return st
}

func staticToken(token string) TokenSource {
	return func() (string, bool) { return token, token != "" }
}

func TestRunPostsSnapshot(t *testing.T) {
	st := newStore(t)
	if err := st.WriteText(store.TasksFile, `{"version":1,"tasks":[]}`); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if err := st.WriteText(store.KnowledgeFile, "# Agent Memory\n"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if err := st.AppendText(store.DailyFile("2026-08-25"), "# 2026-08-25\n\n- 10:00 entry\n"); err != nil {
		t.Fatalf("AppendText: %v", err)
	}

	var gotPath, gotAuth, gotContentType string
	var gotBody payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	exporter := New(st, server.Client(), server.URL, staticToken("tok"), discard())
	if err := exporter.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if gotPath != "/api/memory/sync" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}

	byName := make(map[string]File, len(gotBody.Files))
	for _, file := range gotBody.Files {
		byName[file.FileName] = file
	}
	if len(gotBody.Files) != 3 {
		t.Fatalf("exported %d files, want 3: %v", len(gotBody.Files), byName)
	}

	knowledgeFile := byName[store.KnowledgeFile]
	if knowledgeFile.MemoryType != "knowledge" || knowledgeFile.Content != "# Agent Memory\n" {
		t.Errorf("knowledge file = %+v", knowledgeFile)
	}
	digest := blake3.Sum256([]byte("# Agent Memory\n"))
	if knowledgeFile.Digest != hex.EncodeToString(digest[:]) {
		t.Errorf("digest = %q", knowledgeFile.Digest)
	}

	daily := byName[store.DailyFile("2026-08-25")]
	if daily.MemoryType != "daily" || daily.Date != "2026-08-25" {
		t.Errorf("daily file = %+v", daily)
	}
	if byName[store.TasksFile].Date != "" {
		t.Errorf("tasks file carries a date: %+v", byName[store.TasksFile])
	}
}

func TestRunTruncatesOversizedFiles(t *testing.T) {
	st := newStore(t)
	oversized := strings.Repeat("x", ByteCap+100)
	if err := st.WriteText(store.KnowledgeFile, oversized); err != nil {
		t.Fatalf("WriteText: %v", err)
	}

	var gotBody payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer server.Close()

	New(st, server.Client(), server.URL, staticToken("tok"), discard()).Run(context.Background())

	if len(gotBody.Files) != 1 {
		t.Fatalf("exported %d files, want 1", len(gotBody.Files))
	}
	file := gotBody.Files[0]
	if len(file.Content) != ByteCap {
		t.Errorf("content length = %d, want %d", len(file.Content), ByteCap)
	}
	// The digest covers the full content, not the truncation.
	digest := blake3.Sum256([]byte(oversized))
	if file.Digest != hex.EncodeToString(digest[:]) {
		t.Errorf("digest computed over truncated content")
	}
}

func TestRunSkipsWithoutConfiguration(t *testing.T) {
	st := newStore(t)
	st.WriteText(store.TasksFile, "{}")

	if err := New(st, nil, "", staticToken("tok"), discard()).Run(context.Background()); err != nil {
		t.Errorf("Run without callback URL: %v", err)
	}
	if err := New(st, nil, "http://localhost:0", staticToken(""), discard()).Run(context.Background()); err != nil {
		t.Errorf("Run without credential: %v", err)
	}
}

func TestRunEmptyStoreSendsNothing(t *testing.T) {
	st := newStore(t)
	requested := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = true
	}))
	defer server.Close()

	if err := New(st, server.Client(), server.URL, staticToken("tok"), discard()).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if requested {
		t.Error("empty store produced a sync request")
	}
}

func TestRunSwallowsServerFailures(t *testing.T) {
	st := newStore(t)
	st.WriteText(store.TasksFile, "{}")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusInsufficientStorage)
	}))
	defer server.Close()

	if err := New(st, server.Client(), server.URL, staticToken("tok"), discard()).Run(context.Background()); err != nil {
		t.Errorf("Run returned an error on a 507: %v", err)
	}
}

func TestRunSwallowsNetworkFailures(t *testing.T) {
	st := newStore(t)
	st.WriteText(store.TasksFile, "{}")

	// Nothing listens here.
	if err := New(st, nil, "http://127.0.0.1:1", staticToken("tok"), discard()).Run(context.Background()); err != nil {
		t.Errorf("Run returned an error on a connection failure: %v", err)
	}
}
