package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/koustreak/clusterdash/internal/errs"
	"github.com/koustreak/clusterdash/internal/metrics"
)

// Action is one dashboard button: a named pass-through to the cluster.
type Action struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	run func(ctx context.Context, client Client, pub Published) (any, error)
}

// Actions dispatches action names to calls on the session's open client.
type Actions struct {
	session *Session
	http    *http.Client
	table   map[string]Action
}

// NewActions builds the dispatch table. httpClient serves the actions that
// call the REST API directly; nil means http.DefaultClient.
func NewActions(session *Session, httpClient *http.Client) *Actions {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	a := &Actions{session: session, http: httpClient}
	a.table = map[string]Action{
		"check_shard_consistency": {
			Name:        "check_shard_consistency",
			Description: "Shards whose replicas report different object counts",
			run: func(ctx context.Context, c Client, _ Published) (any, error) {
				return checkShardConsistency(ctx, c)
			},
		},
		"metadata": {
			Name:        "metadata",
			Description: "Server hostname, version and enabled modules",
			run: func(ctx context.Context, c Client, _ Published) (any, error) {
				return c.Meta(ctx)
			},
		},
		"nodes": {
			Name:        "nodes",
			Description: "Nodes and shards with verbose status",
			run: func(ctx context.Context, c Client, _ Published) (any, error) {
				return c.Nodes(ctx)
			},
		},
		"schema": {
			Name:        "schema",
			Description: "Collection definitions",
			run: func(ctx context.Context, c Client, _ Published) (any, error) {
				return c.Schema(ctx)
			},
		},
		"statistics": {
			Name:        "statistics",
			Description: "Raft statistics from the REST API",
			run: func(ctx context.Context, _ Client, pub Published) (any, error) {
				return a.getJSON(ctx, pub, "/v1/cluster/statistics")
			},
		},
	}
	return a
}

// Lookup returns the action registered under name.
func (a *Actions) Lookup(name string) (Action, bool) {
	act, ok := a.table[name]
	return act, ok
}

// List returns the available actions sorted by name.
func (a *Actions) List() []Action {
	out := make([]Action, 0, len(a.table))
	for _, act := range a.table {
		out = append(out, act)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Run executes the named action against the open connection.
func (a *Actions) Run(ctx context.Context, name string) (any, error) {
	act, ok := a.table[name]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("no action named %q", name))
	}

	client, ok := a.session.Manager().Current()
	if !ok {
		return nil, errs.New(errs.ErrKindConnectionFailed, "connect to a cluster first")
	}
	pub, _ := a.session.Snapshot()

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ActionDuration.WithLabelValues(name))

	result, err := act.run(ctx, client, pub)
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) {
			return nil, err
		}
		return nil, errs.Wrap(errs.ErrKindQueryFailed, name+" failed", err)
	}
	return result, nil
}

// getJSON performs an authenticated GET against the published endpoint.
func (a *Actions) getJSON(ctx context.Context, pub Published, path string) (any, error) {
	if pub.Endpoint == "" {
		return nil, errs.New(errs.ErrKindConnectionFailed, "no published endpoint")
	}
	url := strings.TrimRight(pub.Endpoint, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if pub.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+pub.APIKey)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errs.Wrap(errs.ErrKindTimeout, "GET "+path, err)
		}
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "GET "+path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errs.New(errs.ErrKindPermissionDenied, fmt.Sprintf("GET %s: %s", path, resp.Status))
	case resp.StatusCode == http.StatusNotFound:
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("GET %s: %s", path, resp.Status))
	case resp.StatusCode >= 300:
		return nil, errs.New(errs.ErrKindQueryFailed, fmt.Sprintf("GET %s: %s: %s", path, resp.Status, strings.TrimSpace(string(body))))
	}

	var out any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "decode response", err)
	}
	return out, nil
}
