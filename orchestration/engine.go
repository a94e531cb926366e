// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

// Package orchestration is the dependency-aware coordination tier: the
// plan of sub-tasks in orchestration/PLAN.json, the spawned-agent
// registry in AGENTS.json, the append-only event log in EVENTS.jsonl,
// and the pull path that refreshes the local plan from the central
// store.
//
// The engine does not schedule. dependsOn is stored, indexed, and
// exposed through EligibleTasks, and terminal-success transitions
// report which tasks they unblocked — but the decision to spawn stays
// with the head agent, matching the original manual/polled pattern.
package orchestration

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/outpost-foundation/outpost/lib/clock"
	"github.com/outpost-foundation/outpost/store"
)

// Engine owns the orchestration entities for one sandbox.
type Engine struct {
	store           *store.Store
	clock           clock.Clock
	logger          *slog.Logger
	agent           string
	orchestrationID string
	pull            *PullClient
}

// NewEngine creates an engine acting as agentName. pull may be nil
// when no callback endpoint is configured; PullUpdates then reports a
// soft skip.
func NewEngine(st *store.Store, clk clock.Clock, logger *slog.Logger, agentName, orchestrationID string, pull *PullClient) *Engine {
	return &Engine{
		store:           st,
		clock:           clk,
		logger:          logger,
		agent:           agentName,
		orchestrationID: orchestrationID,
		pull:            pull,
	}
}

// defaultPlan returns the canonical empty plan for this engine's run.
func (e *Engine) defaultPlan() *Plan {
	now := e.now()
	return &Plan{
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
		Status:          PlanPending,
		HeadAgent:       e.agent,
		OrchestrationID: e.orchestrationID,
		Tasks:           []Task{},
	}
}

func (e *Engine) now() string {
	return e.clock.Now().UTC().Format(time.RFC3339)
}

// Seed writes canonical empty plan and agents documents if absent.
func (e *Engine) Seed() error {
	if err := e.store.SeedJSON(store.PlanFile, e.defaultPlan()); err != nil {
		return err
	}
	return e.store.SeedJSON(store.AgentsFile, &AgentsRegistry{
		Version:         1,
		OrchestrationID: e.orchestrationID,
		HeadAgent:       e.agent,
		Agents:          []SpawnedAgent{},
	})
}

// ReadPlan returns the current plan. Missing or corrupt file yields
// the canonical empty plan and false.
func (e *Engine) ReadPlan() (*Plan, bool) {
	plan := e.defaultPlan()
	ok := e.store.ReadJSON(store.PlanFile, plan)
	return plan, ok
}

// AddPlanTask appends a pending task to the plan and returns it. The
// head agent calls this before spawning; taskRunId is attached later
// by RecordSpawn.
func (e *Engine) AddPlanTask(prompt, agentName string, dependsOn []string, priority int) (Task, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Task{}, fmt.Errorf("orchestration: prompt is required")
	}
	if dependsOn == nil {
		dependsOn = []string{}
	}

	task := Task{
		ID:        "otask-" + uuid.NewString(),
		Prompt:    prompt,
		AgentName: agentName,
		Status:    TaskPending,
		DependsOn: dependsOn,
		Priority:  priority,
		CreatedAt: e.now(),
	}

	plan := e.defaultPlan()
	err := e.store.Mutate(store.PlanFile, plan, func(bool) (bool, error) {
		plan.Tasks = append(plan.Tasks, task)
		plan.UpdatedAt = e.now()
		return true, nil
	})
	if err != nil {
		return Task{}, err
	}
	return task, nil
}

// UpdateResult reports what a plan-task update did.
type UpdateResult struct {
	// Task is the task after the update.
	Task Task

	// Unblocked lists IDs of pending tasks whose prerequisites all
	// became terminal-successful because of this update. Reported as
	// data for the head agent; nothing is spawned automatically.
	Unblocked []string
}

// UpdatePlanTask applies a client-declared status to a plan task.
// Returns false when the plan file is absent or the ID is unknown.
//
// The engine's only enforced invariants are the once-only timestamps:
// startedAt is set on the first transition into running and never
// touched again; completedAt is set on the first transition into a
// terminal status. Declared transitions are otherwise taken at face
// value — the edge set is not validated.
func (e *Engine) UpdatePlanTask(taskID string, status TaskStatus, result, errorMessage string) (UpdateResult, bool) {
	var update UpdateResult
	found := false

	if !e.store.Exists(store.PlanFile) {
		return update, false
	}

	plan := e.defaultPlan()
	err := e.store.Mutate(store.PlanFile, plan, func(loaded bool) (bool, error) {
		if !loaded {
			return false, nil
		}
		for i := range plan.Tasks {
			task := &plan.Tasks[i]
			if task.ID != taskID {
				continue
			}
			found = true

			task.Status = status
			if result != "" {
				task.Result = result
			}
			if errorMessage != "" {
				task.ErrorMessage = errorMessage
			}
			if status == TaskRunning && task.StartedAt == "" {
				task.StartedAt = e.now()
			}
			if status.Terminal() && task.CompletedAt == "" {
				task.CompletedAt = e.now()
			}

			if status == TaskCompleted {
				update.Unblocked = e.newlyUnblocked(plan, task.ID)
			}
			update.Task = *task
			plan.UpdatedAt = e.now()
			return true, nil
		}
		return false, nil
	})
	if err != nil || !found {
		return update, false
	}

	for _, unblockedID := range update.Unblocked {
		e.appendEventBestEffort(EventDependencyResolved,
			fmt.Sprintf("task %s is now eligible (all dependencies completed)", unblockedID),
			EventFields{Metadata: map[string]string{"taskId": unblockedID, "resolvedBy": taskID}})
	}

	return update, true
}

// newlyUnblocked returns pending tasks that depend on completedID and
// whose dependencies are now all completed. Called after the plan
// already reflects the completing task's new status.
func (e *Engine) newlyUnblocked(plan *Plan, completedID string) []string {
	var unblocked []string
	for _, task := range plan.Tasks {
		if task.Status != TaskPending || !dependsOn(task, completedID) {
			continue
		}
		if planTasksCompleted(plan, task.DependsOn) {
			unblocked = append(unblocked, task.ID)
		}
	}
	return unblocked
}

func dependsOn(task Task, id string) bool {
	for _, dep := range task.DependsOn {
		if dep == id {
			return true
		}
	}
	return false
}

// planTasksCompleted reports whether every listed task ID exists in
// the plan with status completed. IDs that reference nothing are
// treated as unsatisfied: a dangling dependency never unblocks.
func planTasksCompleted(plan *Plan, ids []string) bool {
	for _, id := range ids {
		satisfied := false
		for _, task := range plan.Tasks {
			if task.ID == id && task.Status == TaskCompleted {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return false
		}
	}
	return true
}

// EligibleTasks returns pending tasks whose dependsOn are all
// completed, priority order preserved as stored. This is the
// first-class "what could run now" query; acting on it is the head
// agent's call.
func (e *Engine) EligibleTasks() []Task {
	plan, ok := e.ReadPlan()
	if !ok {
		return nil
	}
	var eligible []Task
	for _, task := range plan.Tasks {
		if task.Status == TaskPending && planTasksCompleted(plan, task.DependsOn) {
			eligible = append(eligible, task)
		}
	}
	return eligible
}

// SetPlanStatus updates the plan-level status and emits the matching
// lifecycle event.
func (e *Engine) SetPlanStatus(status PlanStatus) error {
	plan := e.defaultPlan()
	err := e.store.Mutate(store.PlanFile, plan, func(bool) (bool, error) {
		plan.Status = status
		plan.UpdatedAt = e.now()
		return true, nil
	})
	if err != nil {
		return err
	}

	kind := map[PlanStatus]EventKind{
		PlanRunning:   EventOrchestrationStarted,
		PlanCompleted: EventOrchestrationCompleted,
		PlanFailed:    EventOrchestrationFailed,
		PlanPaused:    EventOrchestrationPaused,
	}[status]
	if kind != "" {
		e.appendEventBestEffort(kind, "orchestration "+string(status), EventFields{})
	}
	return nil
}

// RecordSpawn books a sub-agent launch into AGENTS.json and stamps the
// taskRunId onto the matching plan task when planTaskID is non-empty.
func (e *Engine) RecordSpawn(taskRunID, agentName, prompt, sandboxID, planTaskID string) error {
	registry := &AgentsRegistry{Version: 1, OrchestrationID: e.orchestrationID, HeadAgent: e.agent, Agents: []SpawnedAgent{}}
	err := e.store.Mutate(store.AgentsFile, registry, func(bool) (bool, error) {
		registry.Agents = append(registry.Agents, SpawnedAgent{
			TaskRunID: taskRunID,
			AgentName: agentName,
			Status:    TaskAssigned,
			SandboxID: sandboxID,
			Prompt:    prompt,
			SpawnedAt: e.now(),
		})
		return true, nil
	})
	if err != nil {
		return err
	}

	if planTaskID != "" {
		plan := e.defaultPlan()
		err := e.store.Mutate(store.PlanFile, plan, func(loaded bool) (bool, error) {
			if !loaded {
				return false, nil
			}
			for i := range plan.Tasks {
				if plan.Tasks[i].ID == planTaskID {
					plan.Tasks[i].TaskRunID = taskRunID
					plan.Tasks[i].Status = TaskAssigned
					plan.UpdatedAt = e.now()
					return true, nil
				}
			}
			return false, nil
		})
		if err != nil {
			return err
		}
	}

	e.appendEventBestEffort(EventAgentSpawned, fmt.Sprintf("spawned %s", agentName),
		EventFields{TaskRunID: taskRunID, AgentName: agentName})
	return nil
}

// CompleteSpawn records a sub-agent's terminal state in AGENTS.json.
// Unknown taskRunId returns false.
func (e *Engine) CompleteSpawn(taskRunID string, status TaskStatus, result, errorMessage string) bool {
	found := false
	registry := &AgentsRegistry{Version: 1, OrchestrationID: e.orchestrationID, HeadAgent: e.agent, Agents: []SpawnedAgent{}}
	err := e.store.Mutate(store.AgentsFile, registry, func(bool) (bool, error) {
		for i := range registry.Agents {
			agent := &registry.Agents[i]
			if agent.TaskRunID != taskRunID {
				continue
			}
			found = true
			agent.Status = status
			if result != "" {
				agent.Result = result
			}
			if errorMessage != "" {
				agent.ErrorMessage = errorMessage
			}
			if status.Terminal() && agent.CompletedAt == "" {
				agent.CompletedAt = e.now()
			}
			return true, nil
		}
		return false, nil
	})
	return err == nil && found
}

// ReadAgents returns the spawned-agent registry.
func (e *Engine) ReadAgents() *AgentsRegistry {
	registry := &AgentsRegistry{Version: 1, OrchestrationID: e.orchestrationID, HeadAgent: e.agent, Agents: []SpawnedAgent{}}
	e.store.ReadJSON(store.AgentsFile, registry)
	return registry
}

// AppendEvent stamps the event with the current time and appends it to
// EVENTS.jsonl. Line-based appends cannot corrupt prior lines.
func (e *Engine) AppendEvent(kind EventKind, message string, fields EventFields) error {
	event := Event{
		Timestamp: e.now(),
		Event:     kind,
		TaskRunID: fields.TaskRunID,
		AgentName: fields.AgentName,
		Status:    fields.Status,
		Message:   message,
		From:      fields.From,
		To:        fields.To,
		Type:      fields.Type,
		Metadata:  fields.Metadata,
	}
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("orchestration: encoding event: %w", err)
	}
	return e.store.AppendLine(store.EventsFile, line)
}

// appendEventBestEffort logs and swallows append failures. Engine
// mutations never fail because their audit line could not be written.
func (e *Engine) appendEventBestEffort(kind EventKind, message string, fields EventFields) {
	if err := e.AppendEvent(kind, message, fields); err != nil {
		e.logger.Warn("event append failed", "event", string(kind), "error", err)
	}
}

// ReadEvents returns up to limit most recent events, oldest first.
// Unparseable lines are skipped; a partial trailing write never hides
// the rest of the log.
func (e *Engine) ReadEvents(limit int) []Event {
	content, ok := e.store.ReadText(store.EventsFile)
	if !ok {
		return nil
	}

	var events []Event
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}
		events = append(events, event)
	}

	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events
}

// State is the composite view served by the read_orchestration tool.
type State struct {
	Plan     *Plan           `json:"plan"`
	Agents   *AgentsRegistry `json:"agents"`
	Events   []Event         `json:"recentEvents"`
	Eligible []Task          `json:"eligibleTasks"`
}

// ReadState assembles the plan, the agent registry, the most recent
// events, and the eligibility query into one view.
func (e *Engine) ReadState() *State {
	plan, _ := e.ReadPlan()
	return &State{
		Plan:     plan,
		Agents:   e.ReadAgents(),
		Events:   e.ReadEvents(20),
		Eligible: e.EligibleTasks(),
	}
}
