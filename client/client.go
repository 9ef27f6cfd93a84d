// Package client is a typed HTTP client for the agentmail coordination
// server: identity resolution, file reservations, lock status, and the
// event journal.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
	APIKey  string
	Project string
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.APIKey = strings.TrimSpace(key)
	}
}

func WithProject(project string) Option {
	return func(c *Client) {
		c.Project = strings.TrimSpace(project)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.HTTP = httpClient
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Identity mirrors the server's resolved project identity.
type Identity struct {
	HumanKey         string `json:"human_key"`
	CanonicalPath    string `json:"canonical_path"`
	IdentityModeUsed string `json:"identity_mode_used"`
	ProjectUID       string `json:"project_uid,omitempty"`
	NormalizedRemote string `json:"normalized_remote,omitempty"`
	CoreIgnoreCase   string `json:"core_ignorecase,omitempty"`
	Slug             string `json:"slug"`
}

type Reservation struct {
	Agent       string  `json:"agent"`
	Project     string  `json:"project"`
	PathPattern string  `json:"path_pattern"`
	Exclusive   bool    `json:"exclusive"`
	Reason      string  `json:"reason,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
	ExpiresAt   *string `json:"expires_at,omitempty"`
	ReleasedAt  *string `json:"released_at,omitempty"`
	Active      bool    `json:"active"`
}

type Conflict struct {
	Pattern     string `json:"pattern"`
	HeldPattern string `json:"held_pattern"`
	HeldBy      string `json:"held_by"`
	Exclusive   bool   `json:"exclusive"`
	Reason      string `json:"reason,omitempty"`
}

type ClaimRequest struct {
	Agent      string   `json:"agent"`
	Project    string   `json:"project,omitempty"`
	Patterns   []string `json:"patterns"`
	Exclusive  bool     `json:"exclusive"`
	Reason     string   `json:"reason,omitempty"`
	TTLSeconds int      `json:"ttl_seconds,omitempty"`
}

type ClaimResult struct {
	Granted   []Reservation `json:"granted"`
	Conflicts []Conflict    `json:"conflicts"`
}

type LockStatus struct {
	Path           string `json:"path"`
	PID            int    `json:"pid"`
	CreatedAt      string `json:"created_at"`
	StaleSuspected bool   `json:"stale_suspected"`
}

type Event struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Project     string `json:"project"`
	Agent       string `json:"agent,omitempty"`
	PathPattern string `json:"path_pattern,omitempty"`
	Detail      string `json:"detail,omitempty"`
	CreatedAt   string `json:"created_at"`
	Cursor      uint64 `json:"cursor,omitempty"`
}

// Identity resolves the project identity for a working directory on the
// server's filesystem.
func (c *Client) Identity(ctx context.Context, path string) (Identity, error) {
	resp, err := c.get(ctx, "/api/identity?path="+url.QueryEscape(path))
	if err != nil {
		return Identity{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("identity failed: %d", resp.StatusCode)
	}
	var out Identity
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Identity{}, err
	}
	return out, nil
}

// Claim requests reservations for the given patterns. The claim is advisory:
// it always grants and reports any conflicts alongside.
func (c *Client) Claim(ctx context.Context, req ClaimRequest) (ClaimResult, error) {
	if req.Project == "" {
		req.Project = c.Project
	}
	resp, err := c.postJSON(ctx, "/api/reservations", req)
	if err != nil {
		return ClaimResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return ClaimResult{}, fmt.Errorf("claim failed: %d", resp.StatusCode)
	}
	var out ClaimResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ClaimResult{}, err
	}
	return out, nil
}

// Reservations lists a project's active reservations; includeInactive also
// returns released and expired artifacts.
func (c *Client) Reservations(ctx context.Context, project string, includeInactive bool) ([]Reservation, error) {
	if project == "" {
		project = c.Project
	}
	values := url.Values{}
	values.Set("project", project)
	if includeInactive {
		values.Set("all", "true")
	}
	resp, err := c.get(ctx, "/api/reservations?"+values.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list reservations failed: %d", resp.StatusCode)
	}
	var out struct {
		Reservations []Reservation `json:"reservations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Reservations, nil
}

// Renew extends the expiry of an agent's reservations to now+extend. Empty
// patterns means all of the agent's active reservations.
func (c *Client) Renew(ctx context.Context, project, agent string, patterns []string, extend time.Duration) (int, error) {
	return c.mutate(ctx, "/api/reservations/renew", project, agent, patterns, int(extend/time.Second))
}

// Release marks reservations released. Empty patterns means all of the
// agent's active reservations.
func (c *Client) Release(ctx context.Context, project, agent string, patterns []string) (int, error) {
	return c.mutate(ctx, "/api/reservations/release", project, agent, patterns, 0)
}

func (c *Client) mutate(ctx context.Context, path, project, agent string, patterns []string, extendSeconds int) (int, error) {
	if project == "" {
		project = c.Project
	}
	payload := map[string]any{
		"agent":    agent,
		"project":  project,
		"patterns": patterns,
	}
	if extendSeconds > 0 {
		payload["extend_seconds"] = extendSeconds
	}
	resp, err := c.postJSON(ctx, path, payload)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s failed: %d", path, resp.StatusCode)
	}
	var out struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Locks reports the archive locks in a project namespace.
func (c *Client) Locks(ctx context.Context, project string) ([]LockStatus, error) {
	if project == "" {
		project = c.Project
	}
	resp, err := c.get(ctx, "/api/locks?project="+url.QueryEscape(project))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("locks failed: %d", resp.StatusCode)
	}
	var out struct {
		Locks []LockStatus `json:"locks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Locks, nil
}

// Events returns recent journal entries, newest first.
func (c *Client) Events(ctx context.Context, project string, limit int) ([]Event, error) {
	if project == "" {
		project = c.Project
	}
	values := url.Values{}
	if project != "" {
		values.Set("project", project)
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	resp, err := c.get(ctx, "/api/events?"+values.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("events failed: %d", resp.StatusCode)
	}
	var out struct {
		Events []Event `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	c.applyHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	return c.HTTP.Do(req)
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.applyHeaders(req)
	return c.HTTP.Do(req)
}

func (c *Client) applyHeaders(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}
