// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

package orchestration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

// PullClient fetches remote orchestration state from the central
// store. This is the engine's only networked operation; everything
// else is local-file only.
type PullClient struct {
	httpClient  *http.Client
	callbackURL string
	token       TokenSource
	logger      *slog.Logger
}

// TokenSource produces a bearer token for one request. The second
// return is false when no credential is available, which callers treat
// as a soft skip.
type TokenSource func() (string, bool)

// StaticToken returns a TokenSource that always yields token.
func StaticToken(token string) TokenSource {
	return func() (string, bool) { return token, token != "" }
}

// NewPullClient creates a pull client for the given callback base URL.
// httpClient may be nil to use http.DefaultClient; any timeout is the
// HTTP client's responsibility, not this package's.
func NewPullClient(httpClient *http.Client, callbackURL string, token TokenSource, logger *slog.Logger) *PullClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &PullClient{
		httpClient:  httpClient,
		callbackURL: callbackURL,
		token:       token,
		logger:      logger,
	}
}

// RemoteTask is one task's state as reported by the central store.
type RemoteTask struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Result       string `json:"result,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// RemoteState is the decoded pull response.
type RemoteState struct {
	Tasks              []RemoteTask `json:"tasks"`
	UnreadMessageCount int          `json:"unreadMessageCount"`
	CompletedCount     int          `json:"completedCount"`
	TotalCount         int          `json:"totalCount"`
}

// Fetch GETs /api/orchestration/pull and decodes the response. The
// response is produced by a central store whose version may differ
// from this process, so decoding is lenient: fields are probed by path
// and anything unrecognized is ignored.
func (c *PullClient) Fetch(ctx context.Context, orchestrationID string) (*RemoteState, error) {
	token, ok := c.token()
	if !ok {
		return nil, fmt.Errorf("orchestration: no pull credential configured")
	}

	requestURL := c.callbackURL + "/api/orchestration/pull"
	if orchestrationID != "" {
		requestURL += "?orchestrationId=" + url.QueryEscape(orchestrationID)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("orchestration: creating pull request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+token)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("orchestration: pull request failed: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("orchestration: reading pull response: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("orchestration: pull returned %d: %s", response.StatusCode, string(body))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("orchestration: pull returned invalid JSON")
	}

	state := &RemoteState{}
	root := gjson.ParseBytes(body)
	for _, task := range root.Get("tasks").Array() {
		state.Tasks = append(state.Tasks, RemoteTask{
			ID:           task.Get("id").String(),
			Status:       task.Get("status").String(),
			Result:       task.Get("result").String(),
			ErrorMessage: task.Get("errorMessage").String(),
		})
	}
	state.UnreadMessageCount = int(root.Get("unreadMessageCount").Int())
	state.CompletedCount = int(root.Get("completedCount").Int())
	state.TotalCount = int(root.Get("totalCount").Int())
	return state, nil
}

// PullSummary is the result of PullUpdates.
type PullSummary struct {
	// Skipped is true when no callback endpoint is configured. A skip
	// is a soft no-op, not an error.
	Skipped bool `json:"skipped"`

	// Remote is the fetched state, nil when skipped.
	Remote *RemoteState `json:"remote,omitempty"`

	// Merged lists plan-task IDs whose status changed locally.
	Merged []string `json:"merged,omitempty"`
}

// PullUpdates fetches remote state and merges remote task statuses
// into the local plan. Remote statuses flow through the same once-only
// timestamp rules as local updates. Tasks unknown locally are ignored:
// cross-sandbox visibility is eventual, and a later pull will find
// them once the head agent's plan catches up.
func (e *Engine) PullUpdates(ctx context.Context, orchestrationID string) (*PullSummary, error) {
	if e.pull == nil {
		e.logger.Info("pull skipped: no callback endpoint configured")
		return &PullSummary{Skipped: true}, nil
	}
	if orchestrationID == "" {
		orchestrationID = e.orchestrationID
	}

	remote, err := e.pull.Fetch(ctx, orchestrationID)
	if err != nil {
		return nil, err
	}

	summary := &PullSummary{Remote: remote}
	for _, remoteTask := range remote.Tasks {
		status := TaskStatus(remoteTask.Status)
		if !status.Known() {
			// Forward compatibility: a newer central store may report
			// statuses this version does not model. Leave the local
			// task alone rather than recording something unknown.
			e.logger.Warn("pull: ignoring unknown remote status",
				"taskId", remoteTask.ID, "status", remoteTask.Status)
			continue
		}
		plan, ok := e.ReadPlan()
		if !ok {
			break
		}
		for _, localTask := range plan.Tasks {
			if localTask.ID != remoteTask.ID || localTask.Status == status {
				continue
			}
			if _, ok := e.UpdatePlanTask(remoteTask.ID, status, remoteTask.Result, remoteTask.ErrorMessage); ok {
				summary.Merged = append(summary.Merged, remoteTask.ID)
			}
		}
	}
	return summary, nil
}
