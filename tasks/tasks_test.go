// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"strings"
	"testing"
	"time"

	"github.com/outpost-foundation/outpost/lib/clock"
	"github.com/outpost-foundation/outpost/store"
)

func newService(t *testing.T) (*Service, *clock.FakeClock) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	clk := clock.Fake(time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	return NewService(st, clk), clk
}

func TestAddAndList(t *testing.T) {
	svc, _ := newService(t)

	task, err := svc.Add("wire the exporter", "snapshot push at teardown")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !strings.HasPrefix(task.ID, "task-") {
		t.Errorf("ID = %q, want task- prefix", task.ID)
	}
	if task.Status != StatusPending {
		t.Errorf("status = %s, want pending", task.Status)
	}
	if task.CreatedAt != "2026-08-25T09:00:00Z" || task.UpdatedAt != task.CreatedAt {
		t.Errorf("timestamps = %q / %q", task.CreatedAt, task.UpdatedAt)
	}

	list := svc.List()
	if len(list) != 1 || list[0].ID != task.ID {
		t.Errorf("List = %+v", list)
	}
}

func TestAddRequiresSubject(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.Add("   ", "whitespace only"); err == nil {
		t.Error("Add with blank subject succeeded")
	}
}

func TestUpdateStatus(t *testing.T) {
	svc, clk := newService(t)
	task, _ := svc.Add("subject", "")

	clk.Advance(time.Hour)
	if err := svc.Update(task.ID, StatusInProgress); err != nil {
		t.Fatalf("Update: %v", err)
	}

	list := svc.List()
	if list[0].Status != StatusInProgress {
		t.Errorf("status = %s, want in_progress", list[0].Status)
	}
	if list[0].UpdatedAt != "2026-08-25T10:00:00Z" {
		t.Errorf("updatedAt = %q, not refreshed", list[0].UpdatedAt)
	}
	if list[0].CreatedAt != "2026-08-25T09:00:00Z" {
		t.Errorf("createdAt = %q, changed on update", list[0].CreatedAt)
	}
}

func TestUpdateUnknownTask(t *testing.T) {
	svc, _ := newService(t)
	err := svc.Update("task-missing", StatusCompleted)
	if err == nil {
		t.Fatal("Update of unknown task succeeded")
	}
	if !strings.Contains(err.Error(), "task-missing") {
		t.Errorf("error %q does not name the task", err)
	}
}

func TestUpdateInvalidStatus(t *testing.T) {
	svc, _ := newService(t)
	task, _ := svc.Add("subject", "")
	if err := svc.Update(task.ID, Status("done")); err == nil {
		t.Error("Update with invalid status succeeded")
	}
}

func TestListInsertionOrder(t *testing.T) {
	svc, _ := newService(t)
	first, _ := svc.Add("first", "")
	second, _ := svc.Add("second", "")
	third, _ := svc.Add("third", "")

	list := svc.List()
	want := []string{first.ID, second.ID, third.ID}
	if len(list) != 3 {
		t.Fatalf("got %d tasks, want 3", len(list))
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("list[%d].ID = %s, want %s", i, list[i].ID, id)
		}
	}
}
