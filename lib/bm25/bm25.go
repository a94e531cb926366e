// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

// Package bm25 ranks short text entries against a query using the
// Okapi BM25 function. The knowledge memory uses it to answer
// search_memory calls over knowledge entries and daily-log lines; the
// corpora are small (hundreds of lines), so the index is rebuilt per
// query rather than maintained incrementally.
package bm25

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Okapi parameters, standard values.
const (
	paramK1 = 1.2
	paramB  = 0.75
)

// tokenPattern splits text into alphanumeric runs.
var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Entry is one searchable unit of text.
type Entry struct {
	// ID identifies the entry in results (e.g., "knowledge/MEMORY.md:17").
	ID string

	// Text is the content to score.
	Text string
}

// Hit is a single search result.
type Hit struct {
	// ID is the matching entry's identifier.
	ID string

	// Score is the BM25 relevance score. Higher is more relevant;
	// the scale depends on the corpus.
	Score float64
}

// Search ranks entries by BM25 relevance to query and returns up to
// limit hits with positive scores. A limit of 0 means no limit.
func Search(entries []Entry, query string, limit int) []Hit {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 || len(entries) == 0 {
		return nil
	}

	// Per-entry term frequencies and corpus-wide document frequency.
	termFrequencies := make([]map[string]int, len(entries))
	lengths := make([]int, len(entries))
	documentFrequency := make(map[string]int)
	var totalLength int

	for i, entry := range entries {
		tokens := tokenize(entry.Text)
		lengths[i] = len(tokens)
		totalLength += len(tokens)

		frequency := make(map[string]int, len(tokens))
		for _, token := range tokens {
			if frequency[token] == 0 {
				documentFrequency[token]++
			}
			frequency[token]++
		}
		termFrequencies[i] = frequency
	}

	averageLength := float64(totalLength) / float64(len(entries))
	if averageLength == 0 {
		return nil
	}

	entryCount := float64(len(entries))
	idf := func(term string) float64 {
		frequency, ok := documentFrequency[term]
		if !ok {
			return 0
		}
		score := math.Log(1 + (entryCount-float64(frequency)+0.5)/(float64(frequency)+0.5))
		if score < 0 {
			return 0
		}
		return score
	}

	var hits []Hit
	for i := range entries {
		var score float64
		length := float64(lengths[i])
		for _, token := range queryTokens {
			frequency := float64(termFrequencies[i][token])
			if frequency == 0 {
				continue
			}
			numerator := frequency * (paramK1 + 1)
			denominator := frequency + paramK1*(1-paramB+paramB*length/averageLength)
			score += idf(token) * numerator / denominator
		}
		if score > 0 {
			hits = append(hits, Hit{ID: entries[i].ID, Score: score})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// tokenize lowercases text and splits it into alphanumeric tokens,
// discarding single-character noise.
func tokenize(text string) []string {
	matches := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := matches[:0]
	for _, match := range matches {
		if len(match) >= 2 {
			tokens = append(tokens, match)
		}
	}
	return tokens
}
