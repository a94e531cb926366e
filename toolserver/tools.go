// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

package toolserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/outpost-foundation/outpost/knowledge"
	"github.com/outpost-foundation/outpost/mailbox"
	"github.com/outpost-foundation/outpost/orchestration"
	"github.com/outpost-foundation/outpost/tasks"
)

// Services are the coordination services the server exposes.
type Services struct {
	Mailbox   *mailbox.Service
	Tasks     *tasks.Service
	Knowledge *knowledge.Service
	Engine    *orchestration.Engine
}

// tool is one catalog entry: a name, a description for the agent, a
// JSON Schema for its parameters, and the handler.
type tool struct {
	name        string
	description string
	inputSchema map[string]any
	handler     func(arguments json.RawMessage) (string, error)
}

// objectSchema builds a JSON Schema object with the given properties.
func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProperty(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func boolProperty(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

func intProperty(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

// decode unmarshals arguments into params, tolerating absent
// arguments for tools whose parameters are all optional.
func decode(arguments json.RawMessage, params any) error {
	if len(arguments) == 0 || string(arguments) == "null" {
		return nil
	}
	if err := json.Unmarshal(arguments, params); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// pretty renders a result value as indented JSON for the text block.
func pretty(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return string(data), nil
}

// catalog builds the fixed tool table. Tool names are the wire
// contract; the agent prompts reference them verbatim.
func catalog(services Services) []tool {
	return []tool{
		{
			name:        "read_memory",
			description: "Read the full knowledge document (P0/P1/P2 tiers).",
			inputSchema: objectSchema(map[string]any{}),
			handler: func(json.RawMessage) (string, error) {
				return services.Knowledge.Read()
			},
		},
		{
			name:        "update_knowledge",
			description: "Append an entry to a knowledge tier. P1 and P2 entries are date-tagged with today and expire after 90 and 30 days respectively; P0 entries are permanent.",
			inputSchema: objectSchema(map[string]any{
				"section": map[string]any{"type": "string", "enum": []string{"P0", "P1", "P2"}, "description": "Knowledge tier to append to."},
				"content": stringProperty("Entry text."),
			}, "section", "content"),
			handler: func(arguments json.RawMessage) (string, error) {
				var params struct {
					Section string `json:"section"`
					Content string `json:"content"`
				}
				if err := decode(arguments, &params); err != nil {
					return "", err
				}
				if err := services.Knowledge.Update(knowledge.Section(params.Section), params.Content); err != nil {
					return "", err
				}
				return fmt.Sprintf("added %s entry", params.Section), nil
			},
		},
		{
			name:        "check_stale_entries",
			description: "Report P1/P2 knowledge entries older than their TTL. With autoRemove, delete them from the document.",
			inputSchema: objectSchema(map[string]any{
				"autoRemove": boolProperty("Delete stale entries instead of only reporting them."),
			}),
			handler: func(arguments json.RawMessage) (string, error) {
				var params struct {
					AutoRemove bool `json:"autoRemove"`
				}
				if err := decode(arguments, &params); err != nil {
					return "", err
				}
				stale, err := services.Knowledge.CheckStale(params.AutoRemove)
				if err != nil {
					return "", err
				}
				if stale == nil {
					stale = []knowledge.StaleEntry{}
				}
				return pretty(map[string]any{"stale": stale, "removed": params.AutoRemove && len(stale) > 0})
			},
		},
		{
			name:        "search_memory",
			description: "Search knowledge entries and daily logs, ranked by relevance.",
			inputSchema: objectSchema(map[string]any{
				"query": stringProperty("Search terms."),
				"limit": intProperty("Maximum results (default 10)."),
			}, "query"),
			handler: func(arguments json.RawMessage) (string, error) {
				var params struct {
					Query string `json:"query"`
					Limit int    `json:"limit"`
				}
				if err := decode(arguments, &params); err != nil {
					return "", err
				}
				results := services.Knowledge.Search(params.Query, params.Limit)
				if results == nil {
					results = []knowledge.SearchResult{}
				}
				return pretty(results)
			},
		},
		{
			name:        "append_daily_log",
			description: "Append a timestamped entry to today's daily log.",
			inputSchema: objectSchema(map[string]any{
				"content": stringProperty("Entry text."),
			}, "content"),
			handler: func(arguments json.RawMessage) (string, error) {
				var params struct {
					Content string `json:"content"`
				}
				if err := decode(arguments, &params); err != nil {
					return "", err
				}
				if err := services.Knowledge.AppendDailyLog(params.Content); err != nil {
					return "", err
				}
				return "logged", nil
			},
		},
		{
			name:        "list_daily_logs",
			description: "List the dates that have a daily log.",
			inputSchema: objectSchema(map[string]any{}),
			handler: func(json.RawMessage) (string, error) {
				dates := services.Knowledge.ListDailyLogs()
				if dates == nil {
					dates = []string{}
				}
				return pretty(dates)
			},
		},
		{
			name:        "read_daily_log",
			description: "Read the daily log for a date (YYYY-MM-DD).",
			inputSchema: objectSchema(map[string]any{
				"date": stringProperty("Date in YYYY-MM-DD form."),
			}, "date"),
			handler: func(arguments json.RawMessage) (string, error) {
				var params struct {
					Date string `json:"date"`
				}
				if err := decode(arguments, &params); err != nil {
					return "", err
				}
				content, ok, err := services.Knowledge.ReadDailyLog(params.Date)
				if err != nil {
					return "", err
				}
				if !ok {
					return "", fmt.Errorf("no daily log for %s", params.Date)
				}
				return content, nil
			},
		},
		{
			name:        "send_message",
			description: "Send a message to another agent, or to every agent with to set to \"*\".",
			inputSchema: objectSchema(map[string]any{
				"to":      stringProperty("Recipient agent name, or \"*\" to broadcast."),
				"message": stringProperty("Message body."),
				"type":    map[string]any{"type": "string", "enum": []string{"handoff", "request", "status"}, "description": "Message kind."},
			}, "to", "message", "type"),
			handler: func(arguments json.RawMessage) (string, error) {
				var params struct {
					To      string `json:"to"`
					Message string `json:"message"`
					Type    string `json:"type"`
				}
				if err := decode(arguments, &params); err != nil {
					return "", err
				}
				messageType := mailbox.Type(params.Type)
				if !messageType.Known() {
					return "", fmt.Errorf("invalid message type %q (want handoff, request, or status)", params.Type)
				}
				id, err := services.Mailbox.Send(params.To, params.Message, messageType)
				if err != nil {
					return "", err
				}
				return pretty(map[string]string{"messageId": id})
			},
		},
		{
			name:        "get_my_messages",
			description: "List messages addressed to this agent (directed or broadcast), unread first.",
			inputSchema: objectSchema(map[string]any{
				"includeRead": boolProperty("Also return messages already marked read."),
			}),
			handler: func(arguments json.RawMessage) (string, error) {
				var params struct {
					IncludeRead bool `json:"includeRead"`
				}
				if err := decode(arguments, &params); err != nil {
					return "", err
				}
				messages := services.Mailbox.List(params.IncludeRead)
				if messages == nil {
					messages = []mailbox.Message{}
				}
				return pretty(messages)
			},
		},
		{
			name:        "mark_read",
			description: "Mark a message as read.",
			inputSchema: objectSchema(map[string]any{
				"messageId": stringProperty("ID of the message to mark."),
			}, "messageId"),
			handler: func(arguments json.RawMessage) (string, error) {
				var params struct {
					MessageID string `json:"messageId"`
				}
				if err := decode(arguments, &params); err != nil {
					return "", err
				}
				if !services.Mailbox.MarkRead(params.MessageID) {
					return "", fmt.Errorf("no message with id %q", params.MessageID)
				}
				return "marked read", nil
			},
		},
		{
			name:        "add_task",
			description: "Add a task to the flat task registry.",
			inputSchema: objectSchema(map[string]any{
				"subject":     stringProperty("Short task summary."),
				"description": stringProperty("Longer task description."),
			}, "subject"),
			handler: func(arguments json.RawMessage) (string, error) {
				var params struct {
					Subject     string `json:"subject"`
					Description string `json:"description"`
				}
				if err := decode(arguments, &params); err != nil {
					return "", err
				}
				task, err := services.Tasks.Add(params.Subject, params.Description)
				if err != nil {
					return "", err
				}
				return pretty(task)
			},
		},
		{
			name:        "update_task",
			description: "Set a registry task's status (pending, in_progress, or completed).",
			inputSchema: objectSchema(map[string]any{
				"taskId": stringProperty("ID of the task to update."),
				"status": map[string]any{"type": "string", "enum": []string{"pending", "in_progress", "completed"}, "description": "New status."},
			}, "taskId", "status"),
			handler: func(arguments json.RawMessage) (string, error) {
				var params struct {
					TaskID string `json:"taskId"`
					Status string `json:"status"`
				}
				if err := decode(arguments, &params); err != nil {
					return "", err
				}
				if err := services.Tasks.Update(params.TaskID, tasks.Status(params.Status)); err != nil {
					return "", err
				}
				return "updated", nil
			},
		},
		{
			name:        "read_orchestration",
			description: "Read the orchestration plan, the spawned-agent registry, recent events, and the set of tasks whose dependencies are all completed.",
			inputSchema: objectSchema(map[string]any{}),
			handler: func(json.RawMessage) (string, error) {
				return pretty(services.Engine.ReadState())
			},
		},
		{
			name:        "update_plan_task",
			description: "Set an orchestration task's status. startedAt is stamped on the first transition into running, completedAt on the first terminal status; completion reports which pending tasks it unblocked.",
			inputSchema: objectSchema(map[string]any{
				"taskId":       stringProperty("ID of the plan task."),
				"status":       map[string]any{"type": "string", "enum": []string{"pending", "assigned", "running", "completed", "failed", "cancelled"}, "description": "Declared status."},
				"result":       stringProperty("Result text, for terminal statuses."),
				"errorMessage": stringProperty("Error text, for failed tasks."),
			}, "taskId", "status"),
			handler: func(arguments json.RawMessage) (string, error) {
				var params struct {
					TaskID       string `json:"taskId"`
					Status       string `json:"status"`
					Result       string `json:"result"`
					ErrorMessage string `json:"errorMessage"`
				}
				if err := decode(arguments, &params); err != nil {
					return "", err
				}
				update, ok := services.Engine.UpdatePlanTask(params.TaskID, orchestration.TaskStatus(params.Status), params.Result, params.ErrorMessage)
				if !ok {
					return "", fmt.Errorf("no plan task with id %q", params.TaskID)
				}
				return pretty(update)
			},
		},
		{
			name:        "append_event",
			description: "Append an event to the orchestration event log.",
			inputSchema: objectSchema(map[string]any{
				"event":     stringProperty("Event kind (e.g. agent_started, plan_updated)."),
				"message":   stringProperty("Human-readable event description."),
				"agentName": stringProperty("Agent the event concerns."),
				"taskRunId": stringProperty("Task run the event concerns."),
			}, "event", "message"),
			handler: func(arguments json.RawMessage) (string, error) {
				var params struct {
					Event     string `json:"event"`
					Message   string `json:"message"`
					AgentName string `json:"agentName"`
					TaskRunID string `json:"taskRunId"`
				}
				if err := decode(arguments, &params); err != nil {
					return "", err
				}
				kind := orchestration.EventKind(params.Event)
				if !kind.Known() {
					return "", fmt.Errorf("unknown event kind %q", params.Event)
				}
				err := services.Engine.AppendEvent(kind, params.Message, orchestration.EventFields{
					AgentName: params.AgentName,
					TaskRunID: params.TaskRunID,
				})
				if err != nil {
					return "", err
				}
				return "appended", nil
			},
		},
		{
			name:        "pull_orchestration_updates",
			description: "Fetch remote orchestration state from the central store and merge remote task statuses into the local plan. Skips quietly when no callback endpoint is configured.",
			inputSchema: objectSchema(map[string]any{
				"orchestrationId": stringProperty("Orchestration to pull; defaults to this sandbox's run."),
			}),
			handler: func(arguments json.RawMessage) (string, error) {
				var params struct {
					OrchestrationID string `json:"orchestrationId"`
				}
				if err := decode(arguments, &params); err != nil {
					return "", err
				}
				summary, err := services.Engine.PullUpdates(context.Background(), params.OrchestrationID)
				if err != nil {
					return "", err
				}
				return pretty(summary)
			},
		},
	}
}
