// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

package knowledge

import (
	"strings"
	"time"

	"github.com/outpost-foundation/outpost/store"
)

// StaleEntry describes one expired P1/P2 entry.
type StaleEntry struct {
	// Section is the tier the entry was found in (P1 or P2).
	Section Section `json:"section"`

	// Line is the 1-based line number in the document.
	Line int `json:"line"`

	// Date is the entry's YYYY-MM-DD tag.
	Date string `json:"date"`

	// Content is the entry text, truncated for reporting.
	Content string `json:"content"`

	// DaysSince is the entry's age in whole days.
	DaysSince int `json:"daysSince"`

	// TTL is the tier's limit in days.
	TTL int `json:"ttl"`
}

// reportLimit caps Content length in staleness reports.
const reportLimit = 120

// CheckStale scans P1 and P2 entries and flags those older than their
// tier's TTL. An entry dated exactly TTL days ago is not stale; TTL+1
// is. P0 entries are exempt regardless of content, and lines without a
// well-formed date tag are silently skipped.
//
// With autoRemove, flagged lines are deleted and the document
// rewritten; otherwise the report is for manual promotion or removal.
func (s *Service) CheckStale(autoRemove bool) ([]StaleEntry, error) {
	document, err := s.Read()
	if err != nil {
		return nil, err
	}

	today, err := time.Parse("2006-01-02", s.today())
	if err != nil {
		return nil, err
	}

	lines := strings.Split(document, "\n")
	staleLines := make(map[int]bool)
	var stale []StaleEntry

	var current Section
	for i, line := range lines {
		current = sectionOf(line, current)
		if current != P1 && current != P2 {
			continue
		}

		date, ok := entryDate(line)
		if !ok {
			continue
		}

		daysSince := int(today.Sub(date).Hours() / 24)
		ttl := current.TTLDays()
		if daysSince <= ttl {
			continue
		}

		content := strings.TrimSpace(line)
		if len(content) > reportLimit {
			content = content[:reportLimit] + "..."
		}
		stale = append(stale, StaleEntry{
			Section:   current,
			Line:      i + 1,
			Date:      date.Format("2006-01-02"),
			Content:   content,
			DaysSince: daysSince,
			TTL:       ttl,
		})
		staleLines[i] = true
	}

	if autoRemove && len(staleLines) > 0 {
		kept := make([]string, 0, len(lines)-len(staleLines))
		for i, line := range lines {
			if !staleLines[i] {
				kept = append(kept, line)
			}
		}
		if err := s.store.WriteText(store.KnowledgeFile, strings.Join(kept, "\n")); err != nil {
			return stale, err
		}
		s.logger.Info("removed stale knowledge entries", "count", len(staleLines))
	}

	return stale, nil
}
