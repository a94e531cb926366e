// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

package knowledge

import (
	"fmt"
	"strings"

	"github.com/outpost-foundation/outpost/lib/bm25"
	"github.com/outpost-foundation/outpost/store"
)

// SearchResult is one search_memory hit.
type SearchResult struct {
	// Source is the file the line came from, relative to the store
	// root.
	Source string `json:"source"`

	// Line is the matching line's text.
	Line string `json:"line"`

	// Score is the BM25 relevance score.
	Score float64 `json:"score"`
}

// defaultSearchLimit caps results when the caller does not specify.
const defaultSearchLimit = 10

// Search ranks knowledge entries and daily-log lines against query.
// The corpus is line-granular: each non-empty, non-structural line of
// MEMORY.md and of every daily log is one searchable entry.
func (s *Service) Search(query string, limit int) []SearchResult {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var entries []bm25.Entry
	text := make(map[string]string)

	add := func(source string, lineNumber int, line string) {
		id := fmt.Sprintf("%s:%d", source, lineNumber)
		entries = append(entries, bm25.Entry{ID: id, Text: line})
		text[id] = line
	}

	collect := func(source, content string) {
		for i, line := range strings.Split(content, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "<!--") {
				continue
			}
			add(source, i+1, trimmed)
		}
	}

	if content, ok := s.store.ReadText(store.KnowledgeFile); ok {
		collect(store.KnowledgeFile, content)
	}
	for _, date := range s.store.ListDaily() {
		if content, ok := s.store.ReadText(store.DailyFile(date)); ok {
			collect(store.DailyFile(date), content)
		}
	}

	hits := bm25.Search(entries, query, limit)
	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		source := hit.ID
		if colon := strings.LastIndex(hit.ID, ":"); colon >= 0 {
			source = hit.ID[:colon]
		}
		results = append(results, SearchResult{
			Source: source,
			Line:   text[hit.ID],
			Score:  hit.Score,
		})
	}
	return results
}
