// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

package orchestration

// TaskStatus is an orchestration task's lifecycle state. Transitions
// are client-driven: the engine records whatever status the caller
// declares and enforces only the once-only startedAt/completedAt
// stamping. Statuses read from disk that are not in the closed set are
// preserved verbatim and report Known() == false.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskAssigned  TaskStatus = "assigned"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Known reports whether s is part of the closed status set.
func (s TaskStatus) Known() bool {
	switch s {
	case TaskPending, TaskAssigned, TaskRunning, TaskCompleted, TaskFailed, TaskCancelled:
		return true
	}
	return false
}

// Terminal reports whether s ends a task's lifecycle.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// PlanStatus is the whole plan's lifecycle state.
type PlanStatus string

const (
	PlanPending   PlanStatus = "pending"
	PlanRunning   PlanStatus = "running"
	PlanCompleted PlanStatus = "completed"
	PlanFailed    PlanStatus = "failed"
	PlanPaused    PlanStatus = "paused"
)

// Known reports whether s is part of the closed status set.
func (s PlanStatus) Known() bool {
	switch s {
	case PlanPending, PlanRunning, PlanCompleted, PlanFailed, PlanPaused:
		return true
	}
	return false
}

// Task is one sub-task inside the plan. Relationships are held as
// string IDs; there is no foreign-key enforcement.
type Task struct {
	ID           string     `json:"id"`
	Prompt       string     `json:"prompt"`
	AgentName    string     `json:"agentName"`
	Status       TaskStatus `json:"status"`
	TaskRunID    string     `json:"taskRunId,omitempty"`
	DependsOn    []string   `json:"dependsOn"`
	Priority     int        `json:"priority,omitempty"`
	Result       string     `json:"result,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    string     `json:"createdAt"`
	StartedAt    string     `json:"startedAt,omitempty"`
	CompletedAt  string     `json:"completedAt,omitempty"`
}

// Plan is the singleton orchestration plan for one multi-agent run.
type Plan struct {
	Version         int               `json:"version"`
	CreatedAt       string            `json:"createdAt"`
	UpdatedAt       string            `json:"updatedAt"`
	Status          PlanStatus        `json:"status"`
	HeadAgent       string            `json:"headAgent"`
	OrchestrationID string            `json:"orchestrationId"`
	Description     string            `json:"description,omitempty"`
	Tasks           []Task            `json:"tasks"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// SpawnedAgent records one sub-agent launched by the head agent. The
// spawn mechanism itself is external; the engine only keeps the book.
type SpawnedAgent struct {
	TaskRunID    string     `json:"taskRunId"`
	AgentName    string     `json:"agentName"`
	Status       TaskStatus `json:"status"`
	SandboxID    string     `json:"sandboxId,omitempty"`
	Prompt       string     `json:"prompt"`
	SpawnedAt    string     `json:"spawnedAt"`
	CompletedAt  string     `json:"completedAt,omitempty"`
	Result       string     `json:"result,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

// AgentsRegistry is the AGENTS.json file shape.
type AgentsRegistry struct {
	Version         int            `json:"version"`
	OrchestrationID string         `json:"orchestrationId"`
	HeadAgent       string         `json:"headAgent"`
	Agents          []SpawnedAgent `json:"agents"`
}

// EventKind is the event taxonomy for EVENTS.jsonl. Unrecognized
// values read back from the log are preserved and report
// Known() == false.
type EventKind string

const (
	EventOrchestrationStarted   EventKind = "orchestration_started"
	EventOrchestrationCompleted EventKind = "orchestration_completed"
	EventOrchestrationFailed    EventKind = "orchestration_failed"
	EventOrchestrationPaused    EventKind = "orchestration_paused"
	EventOrchestrationResumed   EventKind = "orchestration_resumed"
	EventAgentSpawned           EventKind = "agent_spawned"
	EventAgentStarted           EventKind = "agent_started"
	EventAgentCompleted         EventKind = "agent_completed"
	EventAgentFailed            EventKind = "agent_failed"
	EventAgentCancelled         EventKind = "agent_cancelled"
	EventMessageSent            EventKind = "message_sent"
	EventMessageReceived        EventKind = "message_received"
	EventDependencyResolved     EventKind = "dependency_resolved"
	EventPlanUpdated            EventKind = "plan_updated"
)

// Known reports whether k is part of the closed taxonomy.
func (k EventKind) Known() bool {
	switch k {
	case EventOrchestrationStarted, EventOrchestrationCompleted, EventOrchestrationFailed,
		EventOrchestrationPaused, EventOrchestrationResumed,
		EventAgentSpawned, EventAgentStarted, EventAgentCompleted, EventAgentFailed, EventAgentCancelled,
		EventMessageSent, EventMessageReceived,
		EventDependencyResolved, EventPlanUpdated:
		return true
	}
	return false
}

// Event is one append-only log line. The engine only ever appends;
// nothing in this core rewrites or compacts the log.
type Event struct {
	Timestamp string            `json:"timestamp"`
	Event     EventKind         `json:"event"`
	TaskRunID string            `json:"taskRunId,omitempty"`
	AgentName string            `json:"agentName,omitempty"`
	Status    string            `json:"status,omitempty"`
	Message   string            `json:"message,omitempty"`
	From      string            `json:"from,omitempty"`
	To        string            `json:"to,omitempty"`
	Type      string            `json:"type,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// EventFields carries the optional fields of an appended event.
type EventFields struct {
	TaskRunID string
	AgentName string
	Status    string
	From      string
	To        string
	Type      string
	Metadata  map[string]string
}
