// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

// Package tasks is the flat todo registry in TASKS.json. It is the
// deliberately simple tier: no dependencies, no ordering, just status
// transitions on a list. Dependency-aware scheduling lives in the
// orchestration package.
package tasks

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/outpost-foundation/outpost/lib/clock"
	"github.com/outpost-foundation/outpost/store"
)

// Status is a task's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Known reports whether s is part of the closed status set.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is one registry entry.
type Task struct {
	ID          string `json:"id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Status      Status `json:"status"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// Document is the TASKS.json file shape.
type Document struct {
	Version int    `json:"version"`
	Tasks   []Task `json:"tasks"`
}

// DefaultDocument returns the canonical empty registry.
func DefaultDocument() *Document {
	return &Document{Version: 1, Tasks: []Task{}}
}

// Service provides registry operations.
type Service struct {
	store *store.Store
	clock clock.Clock
}

// NewService creates a task registry service.
func NewService(st *store.Store, clk clock.Clock) *Service {
	return &Service{store: st, clock: clk}
}

// Seed writes the canonical empty registry if none exists.
func (s *Service) Seed() error {
	return s.store.SeedJSON(store.TasksFile, DefaultDocument())
}

// Add appends a pending task and returns it.
func (s *Service) Add(subject, description string) (Task, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Task{}, fmt.Errorf("tasks: subject is required")
	}

	now := s.clock.Now().UTC().Format(time.RFC3339)
	task := Task{
		ID:          "task-" + uuid.NewString(),
		Subject:     subject,
		Description: description,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	document := DefaultDocument()
	err := s.store.Mutate(store.TasksFile, document, func(bool) (bool, error) {
		document.Tasks = append(document.Tasks, task)
		return true, nil
	})
	if err != nil {
		return Task{}, err
	}
	return task, nil
}

// Update sets a task's status and refreshes updatedAt. An unknown task
// ID is a reported error, not a panic: the caller gets error text and
// the process continues.
func (s *Service) Update(taskID string, status Status) error {
	if !status.Known() {
		return fmt.Errorf("tasks: invalid status %q (want pending, in_progress, or completed)", status)
	}

	found := false
	document := DefaultDocument()
	err := s.store.Mutate(store.TasksFile, document, func(bool) (bool, error) {
		for i := range document.Tasks {
			if document.Tasks[i].ID == taskID {
				document.Tasks[i].Status = status
				document.Tasks[i].UpdatedAt = s.clock.Now().UTC().Format(time.RFC3339)
				found = true
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("tasks: no task with id %q", taskID)
	}
	return nil
}

// List returns all tasks in insertion order.
func (s *Service) List() []Task {
	document := DefaultDocument()
	s.store.ReadJSON(store.TasksFile, document)
	return document.Tasks
}
