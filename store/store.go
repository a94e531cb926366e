// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

// Package store is the durable file store under one sandbox-private
// root directory. Each entity lives in its own file; JSON documents
// are replaced whole, the event log and daily logs are appended.
//
// The failure model is deliberate: reads of missing or corrupt files
// report absence instead of returning errors, and seeding writes the
// canonical default only when nothing exists yet. Services layered on
// the store decide what a canonical default looks like.
//
// Writes funnel through one mutex per Store and whole-file writes go
// through a temp file renamed into place, so a concurrent reader (the
// exporter) sees either the old or the new document, never a torn one.
// There is no cross-process locking: exactly one agent process owns a
// sandbox root.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Entity file names, relative to the store root.
const (
	TasksFile     = "TASKS.json"
	MailboxFile   = "MAILBOX.json"
	KnowledgeFile = "knowledge/MEMORY.md"
	PlanFile      = "orchestration/PLAN.json"
	AgentsFile    = "orchestration/AGENTS.json"
	EventsFile    = "orchestration/EVENTS.jsonl"

	// DailyDir holds one free-form log per calendar date.
	DailyDir = "daily"
)

// Store reads and writes entity files under a private root.
type Store struct {
	root string
	mu   sync.Mutex
}

// Open prepares a store rooted at root, creating the directory layout
// if needed.
func Open(root string) (*Store, error) {
	for _, dir := range []string{root, filepath.Join(root, "knowledge"), filepath.Join(root, DailyDir), filepath.Join(root, "orchestration")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: creating %s: %w", dir, err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// path resolves an entity name to an absolute path.
func (s *Store) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// DailyFile returns the entity name of the daily log for date
// (YYYY-MM-DD).
func DailyFile(date string) string {
	return DailyDir + "/" + date + ".md"
}

// Exists reports whether the entity file is present.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// ReadJSON decodes the entity into v. Returns false when the file is
// missing or does not parse; it never returns an error — a corrupt
// entity is treated the same as an absent one and the caller falls
// back to its canonical default.
func (s *Store) ReadJSON(name string, v any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readJSONLocked(name, v)
}

func (s *Store) readJSONLocked(name string, v any) bool {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// WriteJSON replaces the entity with v, pretty-printed.
func (s *Store) WriteJSON(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSONLocked(name, v)
}

func (s *Store) writeJSONLocked(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encoding %s: %w", name, err)
	}
	return s.replaceLocked(name, append(data, '\n'))
}

// Mutate reads the entity into v, calls fn, and writes v back when fn
// returns true. The read-modify-write runs under the store lock, so a
// mutation never interleaves with another writer in this process.
//
// When the file is missing or corrupt, fn receives v untouched (the
// caller passes the canonical default).
func (s *Store) Mutate(name string, v any, fn func(loaded bool) (write bool, err error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := s.readJSONLocked(name, v)
	write, err := fn(loaded)
	if err != nil {
		return err
	}
	if !write {
		return nil
	}
	return s.writeJSONLocked(name, v)
}

// ReadText returns the entity's content. Returns false when missing.
func (s *Store) ReadText(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// WriteText replaces the entity with content.
func (s *Store) WriteText(name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(name, []byte(content))
}

// AppendLine appends one line to the entity (the JSON-Lines event log).
// Line-based appends cannot corrupt prior lines: O_APPEND writes of a
// single line land after whatever is already there.
func (s *Store) AppendLine(name string, line []byte) error {
	if !strings.HasSuffix(string(line), "\n") {
		line = append(line, '\n')
	}
	return s.appendBytes(name, line)
}

// AppendText appends content to the entity, creating it if needed.
func (s *Store) AppendText(name, content string) error {
	return s.appendBytes(name, []byte(content))
}

func (s *Store) appendBytes(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path(name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("store: opening %s for append: %w", name, err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("store: appending to %s: %w", name, err)
	}
	return nil
}

// SeedJSON writes v as the entity's canonical default, only when the
// file does not exist. Seeding on top of live data is a no-op: the
// existing document is preserved verbatim.
func (s *Store) SeedJSON(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path(name)); err == nil {
		return nil
	}
	return s.writeJSONLocked(name, v)
}

// SeedText writes content as the entity's canonical default, only when
// the file does not exist.
func (s *Store) SeedText(name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path(name)); err == nil {
		return nil
	}
	return s.replaceLocked(name, []byte(content))
}

// ListDaily returns the dates (YYYY-MM-DD) of all daily logs, sorted
// ascending.
func (s *Store) ListDaily() []string {
	entries, err := os.ReadDir(filepath.Join(s.root, DailyDir))
	if err != nil {
		return nil
	}
	var dates []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		dates = append(dates, strings.TrimSuffix(name, ".md"))
	}
	sort.Strings(dates)
	return dates
}

// replaceLocked writes data to a temp file in the entity's directory
// and renames it into place. Rename is atomic on POSIX filesystems,
// so concurrent readers never observe a partial write.
func (s *Store) replaceLocked(name string, data []byte) error {
	target := s.path(name)
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("store: creating temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: closing temp file for %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: setting mode on %s: %w", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: replacing %s: %w", name, err)
	}
	return nil
}
