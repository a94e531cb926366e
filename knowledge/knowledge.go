// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

// Package knowledge is the priority-tiered note store in
// knowledge/MEMORY.md plus the per-day logs under daily/.
//
// The document has three sections. P0 entries are permanent and
// undated. P1 and P2 entries carry a leading [YYYY-MM-DD] tag and
// expire on a per-tier TTL: stale entries are flagged (or removed) by
// CheckStale so the agent can promote what still matters and drop the
// rest. New entries land at the top of their section, immediately
// after the header and its comment hint, so the freshest context reads
// first.
package knowledge

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/outpost-foundation/outpost/lib/clock"
	"github.com/outpost-foundation/outpost/store"
)

// Section is a knowledge tier.
type Section string

const (
	P0 Section = "P0"
	P1 Section = "P1"
	P2 Section = "P2"
)

// TTLDays returns the tier's time-to-live in days. P0 never expires.
func (s Section) TTLDays() int {
	switch s {
	case P1:
		return 90
	case P2:
		return 30
	}
	return 0
}

// Known reports whether s is a valid tier name.
func (s Section) Known() bool {
	return s == P0 || s == P1 || s == P2
}

// Template is the canonical empty knowledge document: three sections,
// each with a comment hint and no entries.
const Template = `# Agent Memory

## P0 — Critical
<!-- Permanent knowledge. Entries are undated and never expire. -->

## P1 — Important
<!-- TTL 90 days. Format: - [YYYY-MM-DD] entry -->

## P2 — Contextual
<!-- TTL 30 days. Format: - [YYYY-MM-DD] entry -->
`

// Service provides knowledge and daily-log operations.
type Service struct {
	store  *store.Store
	clock  clock.Clock
	logger *slog.Logger
}

// NewService creates a knowledge service.
func NewService(st *store.Store, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{store: st, clock: clk, logger: logger}
}

// Seed writes the template document if none exists.
func (s *Service) Seed() error {
	return s.store.SeedText(store.KnowledgeFile, Template)
}

// Read returns the full knowledge document, seeding the template first
// if the file is missing.
func (s *Service) Read() (string, error) {
	if content, ok := s.store.ReadText(store.KnowledgeFile); ok {
		return content, nil
	}
	if err := s.Seed(); err != nil {
		return "", err
	}
	return Template, nil
}

// today returns the clock's current UTC date.
func (s *Service) today() string {
	return s.clock.Now().UTC().Format("2006-01-02")
}

// Update appends an entry to the given section. P1/P2 entries are
// date-tagged with today; P0 entries are undated. The entry is
// inserted at the top of the section — after the header line and any
// comment-hint or blank lines that lead it — so newest context comes
// first.
func (s *Service) Update(section Section, content string) error {
	if !section.Known() {
		return fmt.Errorf("knowledge: unknown section %q (want P0, P1, or P2)", section)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("knowledge: content is required")
	}

	document, err := s.Read()
	if err != nil {
		return err
	}

	entry := "- " + content
	if section != P0 {
		entry = fmt.Sprintf("- [%s] %s", s.today(), content)
	}

	lines := strings.Split(document, "\n")
	insertAt := -1
	for i, line := range lines {
		if !isSectionHeader(line, section) {
			continue
		}
		insertAt = i + 1
		// Skip the section's leading comment hint and blank lines so
		// the entry lands above existing entries, not above the hint.
		for insertAt < len(lines) {
			trimmed := strings.TrimSpace(lines[insertAt])
			if trimmed == "" || strings.HasPrefix(trimmed, "<!--") {
				insertAt++
				continue
			}
			break
		}
		break
	}
	if insertAt < 0 {
		return fmt.Errorf("knowledge: section %s not found in document", section)
	}

	updated := make([]string, 0, len(lines)+1)
	updated = append(updated, lines[:insertAt]...)
	updated = append(updated, entry)
	updated = append(updated, lines[insertAt:]...)

	return s.store.WriteText(store.KnowledgeFile, strings.Join(updated, "\n"))
}

// isSectionHeader matches a markdown H2 introducing the given tier,
// tolerating any suffix after the tier name ("## P1 — Important").
func isSectionHeader(line string, section Section) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "## ") {
		return false
	}
	rest := strings.TrimPrefix(trimmed, "## ")
	return rest == string(section) || strings.HasPrefix(rest, string(section)+" ")
}

// sectionOf returns which tier a document line belongs to, given the
// most recent header seen. Helper for the staleness scan.
func sectionOf(line string, current Section) Section {
	for _, candidate := range []Section{P0, P1, P2} {
		if isSectionHeader(line, candidate) {
			return candidate
		}
	}
	if strings.HasPrefix(strings.TrimSpace(line), "## ") {
		// Some other H2: leave the tier scope.
		return ""
	}
	return current
}

// entryDate extracts the YYYY-MM-DD tag from an entry line. Returns
// false for lines that are not date-tagged entries — including
// malformed tags, which are deliberately skipped rather than surfaced
// as errors.
func entryDate(line string) (time.Time, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "- [") {
		return time.Time{}, false
	}
	end := strings.Index(trimmed, "]")
	if end < 0 {
		return time.Time{}, false
	}
	date, err := time.Parse("2006-01-02", trimmed[3:end])
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
