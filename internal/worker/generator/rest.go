package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"

	"simplane/internal/schedule"
	"simplane/internal/store"
)

// Rest drives an external project-management-style platform API. Delta
// construction is delegated to the synthetic generator; Rest mirrors each
// mutation onto the platform with the acting user's bearer token.
type Rest struct {
	local      *Synthetic
	baseURL    string
	tokens     map[string]string // person id -> bearer token
	defaultTok string
	client     *http.Client
}

// NewRest creates a platform-backed generator. tokens maps simulated user
// ids to their platform tokens; defaultToken is used for users without one.
func NewRest(industry, baseURL string, tokens map[string]string, defaultToken string) *Rest {
	return &Rest{
		local:      NewSynthetic(industry),
		baseURL:    baseURL,
		tokens:     tokens,
		defaultTok: defaultToken,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// platformError represents a non-2xx platform response.
type platformError struct {
	StatusCode int
	Message    string
}

func (e *platformError) Error() string {
	return fmt.Sprintf("platform error (%d): %s", e.StatusCode, e.Message)
}

func (r *Rest) Bootstrap(ctx context.Context, cfg store.JobConfig) (*store.Delta, error) {
	delta, err := r.local.Bootstrap(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := r.push(ctx, delta, nil); err != nil {
		return nil, err
	}
	return delta, nil
}

func (r *Rest) Perform(ctx context.Context, activity schedule.ActivityType, subject *store.WorkItem, world *store.WorldState) (*store.Delta, error) {
	delta, err := r.local.Perform(ctx, activity, subject, world)
	if err != nil {
		return nil, err
	}
	if err := r.push(ctx, delta, world); err != nil {
		return nil, err
	}
	return delta, nil
}

// Cleanup deletes every container on the platform. Failures are collected;
// a half-cleaned platform is still better than an untouched one.
func (r *Rest) Cleanup(ctx context.Context, world *store.WorldState) *CleanupReport {
	report := &CleanupReport{}
	for i := range world.Containers {
		c := &world.Containers[i]
		err := r.do(ctx, http.MethodDelete, fmt.Sprintf("/api/containers/%s", c.ID), "", nil, nil)
		if err != nil {
			report.Errors = multierror.Append(report.Errors,
				fmt.Errorf("delete container %s: %w", c.ID, err))
			continue
		}
		report.ContainersRemoved++
		report.ItemsRemoved += len(c.Items)
	}
	return report
}

// push replays a delta against the platform API in dependency order:
// containers, then items, then item updates.
func (r *Rest) push(ctx context.Context, delta *store.Delta, world *store.WorldState) error {
	for i := range delta.NewContainers {
		c := &delta.NewContainers[i]
		if err := r.do(ctx, http.MethodPost, "/api/containers", "", c, nil); err != nil {
			return fmt.Errorf("create container %s: %w", c.Name, err)
		}
		for j := range c.Items {
			item := &c.Items[j]
			path := fmt.Sprintf("/api/containers/%s/items", c.ID)
			if err := r.do(ctx, http.MethodPost, path, item.Assignee, item, nil); err != nil {
				return fmt.Errorf("create item %s: %w", item.Name, err)
			}
		}
	}

	for containerID, items := range delta.NewItems {
		for i := range items {
			item := &items[i]
			path := fmt.Sprintf("/api/containers/%s/items", containerID)
			if err := r.do(ctx, http.MethodPost, path, item.Assignee, item, nil); err != nil {
				return fmt.Errorf("create item %s: %w", item.Name, err)
			}
		}
	}

	for _, u := range delta.Updates {
		if err := r.pushUpdate(ctx, u, world); err != nil {
			return err
		}
	}
	return nil
}

func (r *Rest) pushUpdate(ctx context.Context, u store.ItemUpdate, world *store.WorldState) error {
	actor := u.Assignee
	if actor == "" && world != nil {
		if item := world.FindItem(u.ItemID); item != nil {
			actor = item.Assignee
		}
	}

	if u.Status != "" || u.Assignee != "" {
		body := map[string]string{}
		if u.Status != "" {
			body["status"] = string(u.Status)
		}
		if u.Assignee != "" {
			body["assignee"] = u.Assignee
		}
		if u.BlockerReason != "" {
			body["blocker_reason"] = u.BlockerReason
		}
		path := fmt.Sprintf("/api/items/%s", u.ItemID)
		if err := r.do(ctx, http.MethodPatch, path, actor, body, nil); err != nil {
			return fmt.Errorf("update item %s: %w", u.ItemID, err)
		}
	}

	if u.CommentAdded {
		body := map[string]string{"text": r.local.catalog.RandomComment(r.local.rng)}
		path := fmt.Sprintf("/api/items/%s/comments", u.ItemID)
		if err := r.do(ctx, http.MethodPost, path, actor, body, nil); err != nil {
			return fmt.Errorf("comment on item %s: %w", u.ItemID, err)
		}
	}
	return nil
}

// do executes one platform request as the given actor. A 429 response maps
// to RateLimitError so the runner can apply its extended cooldown.
func (r *Rest) do(ctx context.Context, method, path, actor string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", r.tokenFor(actor)))
	req.Header.Add("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &platformError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func (r *Rest) tokenFor(actor string) string {
	if tok, ok := r.tokens[actor]; ok {
		return tok
	}
	return r.defaultTok
}

func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
