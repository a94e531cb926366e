// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

package mailbox

import (
	"testing"
	"time"

	"github.com/outpost-foundation/outpost/lib/clock"
	"github.com/outpost-foundation/outpost/store"
)

func newFixture(t *testing.T) (*store.Store, *clock.FakeClock) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	return st, clock.Fake(time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC))
}

func TestSendAndList(t *testing.T) {
	st, clk := newFixture(t)
	alice := NewService(st, clk, "alice")
	bob := NewService(st, clk, "bob")

	id, err := alice.Send("bob", "please review the diff", TypeRequest)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id == "" {
		t.Fatal("Send returned an empty ID")
	}

	messages := bob.List(false)
	if len(messages) != 1 {
		t.Fatalf("bob has %d messages, want 1", len(messages))
	}
	got := messages[0]
	if got.From != "alice" || got.To != "bob" || got.Type != TypeRequest {
		t.Errorf("message = %+v", got)
	}
	if got.Timestamp != "2026-08-25T10:00:00Z" {
		t.Errorf("timestamp = %q", got.Timestamp)
	}
	if got.Read {
		t.Error("new message already marked read")
	}
}

func TestSendRequiresRecipient(t *testing.T) {
	st, clk := newFixture(t)
	svc := NewService(st, clk, "alice")
	if _, err := svc.Send("", "body", TypeStatus); err == nil {
		t.Error("Send with empty recipient succeeded")
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	st, clk := newFixture(t)
	alice := NewService(st, clk, "alice")
	bob := NewService(st, clk, "bob")

	if _, err := alice.Send(Broadcast, "standup in five", TypeStatus); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got := bob.List(false); len(got) != 1 {
		t.Errorf("bob sees %d broadcast messages, want 1", len(got))
	}
	if got := alice.List(false); len(got) != 0 {
		t.Errorf("alice sees her own broadcast: %v", got)
	}
}

func TestListUnreadFirstThenTimestamp(t *testing.T) {
	st, clk := newFixture(t)
	alice := NewService(st, clk, "alice")
	bob := NewService(st, clk, "bob")

	first, _ := alice.Send("bob", "first", TypeStatus)
	clk.Advance(time.Minute)
	second, _ := alice.Send("bob", "second", TypeStatus)
	clk.Advance(time.Minute)
	third, _ := alice.Send("bob", "third", TypeStatus)

	if !bob.MarkRead(second) {
		t.Fatal("MarkRead failed")
	}

	messages := bob.List(true)
	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(messages))
	}
	// Unread in timestamp order, then the read one.
	wantOrder := []string{first, third, second}
	for i, want := range wantOrder {
		if messages[i].ID != want {
			t.Errorf("messages[%d].ID = %s, want %s", i, messages[i].ID, want)
		}
	}
}

func TestListExcludesReadByDefault(t *testing.T) {
	st, clk := newFixture(t)
	alice := NewService(st, clk, "alice")
	bob := NewService(st, clk, "bob")

	id, _ := alice.Send("bob", "handing off auth work", TypeHandoff)
	bob.MarkRead(id)

	if got := bob.List(false); len(got) != 0 {
		t.Errorf("List(false) returned read messages: %v", got)
	}
	if got := bob.List(true); len(got) != 1 {
		t.Errorf("List(true) = %d messages, want 1", len(got))
	}
}

func TestMarkReadUnknownID(t *testing.T) {
	st, clk := newFixture(t)
	svc := NewService(st, clk, "alice")
	if svc.MarkRead("msg-nope") {
		t.Error("MarkRead succeeded for an unknown ID")
	}
}

func TestMessagesPersistAcrossServices(t *testing.T) {
	st, clk := newFixture(t)
	alice := NewService(st, clk, "alice")
	if _, err := alice.Send("bob", "persisted", TypeStatus); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// A fresh service over the same store sees the same mailbox.
	bob := NewService(st, clk, "bob")
	if got := bob.List(false); len(got) != 1 {
		t.Errorf("fresh service sees %d messages, want 1", len(got))
	}
}

func TestSeedDoesNotClobber(t *testing.T) {
	st, clk := newFixture(t)
	alice := NewService(st, clk, "alice")
	if _, err := alice.Send("bob", "before seed", TypeStatus); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := alice.Seed(); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	bob := NewService(st, clk, "bob")
	if got := bob.List(false); len(got) != 1 {
		t.Errorf("seed clobbered the mailbox: %d messages", len(got))
	}
}

func TestTypeKnown(t *testing.T) {
	for _, typ := range []Type{TypeHandoff, TypeRequest, TypeStatus} {
		if !typ.Known() {
			t.Errorf("%s.Known() = false", typ)
		}
	}
	if Type("urgent").Known() {
		t.Error(`Type("urgent").Known() = true`)
	}
}
