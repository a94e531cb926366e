// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

package bm25

import "testing"

var corpus = []Entry{
	{ID: "a", Text: "postgres connection pool tuning notes"},
	{ID: "b", Text: "redis cache eviction policy"},
	{ID: "c", Text: "postgres replication lag investigation"},
	{ID: "d", Text: "lunch menu for the offsite"},
}

func TestSearchRanksByRelevance(t *testing.T) {
	hits := Search(corpus, "postgres pool", 0)
	if len(hits) != 2 {
		t.Fatalf("hits = %+v, want 2", hits)
	}
	// Both query terms match "a"; only one matches "c".
	if hits[0].ID != "a" || hits[1].ID != "c" {
		t.Errorf("order = [%s %s], want [a c]", hits[0].ID, hits[1].ID)
	}
	if hits[0].Score <= hits[1].Score {
		t.Errorf("scores not descending: %v", hits)
	}
}

func TestSearchLimit(t *testing.T) {
	if hits := Search(corpus, "postgres", 1); len(hits) != 1 {
		t.Errorf("limit ignored: %+v", hits)
	}
}

func TestSearchNoMatch(t *testing.T) {
	if hits := Search(corpus, "kubernetes", 0); len(hits) != 0 {
		t.Errorf("hits = %+v, want none", hits)
	}
}

func TestSearchEmptyInputs(t *testing.T) {
	if hits := Search(nil, "postgres", 0); hits != nil {
		t.Errorf("empty corpus: %+v", hits)
	}
	if hits := Search(corpus, "", 0); hits != nil {
		t.Errorf("empty query: %+v", hits)
	}
	// Single-character tokens are noise and are discarded.
	if hits := Search(corpus, "a b c", 0); hits != nil {
		t.Errorf("single-character query: %+v", hits)
	}
}

func TestSearchCaseInsensitive(t *testing.T) {
	hits := Search(corpus, "POSTGRES Replication", 0)
	if len(hits) == 0 || hits[0].ID != "c" {
		t.Errorf("hits = %+v, want c first", hits)
	}
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("Re-try the HTTP/2 fetch, x 3!")
	want := []string{"re", "try", "the", "http", "fetch"}
	if len(tokens) != len(want) {
		t.Fatalf("tokens = %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("tokens[%d] = %q, want %q", i, tokens[i], want[i])
		}
	}
}
