// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

// Package mailbox implements inter-agent messaging on top of the
// durable store's MAILBOX.json entity. Addressing is a flat agent name
// or the broadcast token "*"; read state is a single boolean flipped by
// mark_read. Messages are never deleted.
//
// Broadcast plus directed addressing covers both "tell everyone"
// status pings and targeted ask/assign coordination without a
// subscription model.
package mailbox

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/outpost-foundation/outpost/lib/clock"
	"github.com/outpost-foundation/outpost/store"
)

// Broadcast addresses a message to every agent.
const Broadcast = "*"

// Type classifies a message. Unrecognized values read from disk are
// preserved but report Known() == false.
type Type string

const (
	TypeHandoff Type = "handoff"
	TypeRequest Type = "request"
	TypeStatus  Type = "status"
)

// Known reports whether t is part of the closed type set.
func (t Type) Known() bool {
	switch t {
	case TypeHandoff, TypeRequest, TypeStatus:
		return true
	}
	return false
}

// Message is one mailbox entry.
type Message struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Type      Type   `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
}

// Document is the MAILBOX.json file shape.
type Document struct {
	Version  int       `json:"version"`
	Messages []Message `json:"messages"`
}

// DefaultDocument returns the canonical empty mailbox.
func DefaultDocument() *Document {
	return &Document{Version: 1, Messages: []Message{}}
}

// Service provides mailbox operations for one agent identity. The
// identity is injected at construction rather than read from a global,
// so one process can serve multiple identities in tests.
type Service struct {
	store *store.Store
	clock clock.Clock
	agent string
}

// NewService creates a mailbox service sending as agentName.
func NewService(st *store.Store, clk clock.Clock, agentName string) *Service {
	return &Service{store: st, clock: clk, agent: agentName}
}

// Seed writes the canonical empty mailbox if none exists.
func (s *Service) Seed() error {
	return s.store.SeedJSON(store.MailboxFile, DefaultDocument())
}

// Send appends a message from this service's identity and returns the
// new message ID. to is an agent name or Broadcast.
func (s *Service) Send(to, body string, typ Type) (string, error) {
	if to == "" {
		return "", fmt.Errorf("mailbox: recipient is required")
	}
	message := Message{
		ID:        "msg-" + uuid.NewString(),
		From:      s.agent,
		To:        to,
		Type:      typ,
		Message:   body,
		Timestamp: s.clock.Now().UTC().Format(time.RFC3339),
		Read:      false,
	}

	document := DefaultDocument()
	err := s.store.Mutate(store.MailboxFile, document, func(bool) (bool, error) {
		document.Messages = append(document.Messages, message)
		return true, nil
	})
	if err != nil {
		return "", err
	}
	return message.ID, nil
}

// List returns messages addressed to this service's identity. See
// ListFor.
func (s *Service) List(includeRead bool) []Message {
	return s.ListFor(s.agent, includeRead)
}

// ListFor returns messages where to equals agentName or Broadcast,
// excluding messages the agent sent itself (an agent never sees its
// own outgoing broadcast). With includeRead false, only unread
// messages are returned. Ordering is unread first, then timestamp
// ascending within each group.
func (s *Service) ListFor(agentName string, includeRead bool) []Message {
	document := DefaultDocument()
	s.store.ReadJSON(store.MailboxFile, document)

	var matched []Message
	for _, message := range document.Messages {
		if message.To != agentName && message.To != Broadcast {
			continue
		}
		if message.From == agentName {
			continue
		}
		if message.Read && !includeRead {
			continue
		}
		matched = append(matched, message)
	}

	// RFC 3339 timestamps sort correctly as strings.
	sort.SliceStable(matched, func(a, b int) bool {
		if matched[a].Read != matched[b].Read {
			return !matched[a].Read
		}
		return matched[a].Timestamp < matched[b].Timestamp
	})
	return matched
}

// MarkRead flips a message's read flag. Returns false when the ID is
// not found; never an error the caller has to branch on beyond that.
func (s *Service) MarkRead(messageID string) bool {
	found := false
	document := DefaultDocument()
	err := s.store.Mutate(store.MailboxFile, document, func(bool) (bool, error) {
		for i := range document.Messages {
			if document.Messages[i].ID == messageID {
				document.Messages[i].Read = true
				found = true
				return true, nil
			}
		}
		return false, nil
	})
	return err == nil && found
}
