package cluster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koustreak/clusterdash/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActions_List(t *testing.T) {
	a := NewActions(newTestSession(newFakeConnector(nil)), nil)

	var names []string
	for _, act := range a.List() {
		names = append(names, act.Name)
		assert.NotEmpty(t, act.Description)
	}
	assert.Equal(t, []string{"check_shard_consistency", "metadata", "nodes", "schema", "statistics"}, names)
}

func TestActions_Run_RequiresConnection(t *testing.T) {
	a := NewActions(newTestSession(newFakeConnector(nil)), nil)

	_, err := a.Run(context.Background(), "metadata")
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestActions_Run_UnknownAction(t *testing.T) {
	a := NewActions(newTestSession(newFakeConnector(nil)), nil)

	_, err := a.Run(context.Background(), "drop_everything")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestActions_Run_ClientPassThrough(t *testing.T) {
	client := newReadyClient("1.25.0")
	client.nodes = []string{"node-1", "node-2"}
	client.schema = map[string]any{"classes": []any{}}

	s := newTestSession(newFakeConnector(client))
	require.True(t, s.Initialize(context.Background(), Credentials{UseLocal: true}))
	a := NewActions(s, nil)

	meta, err := a.Run(context.Background(), "metadata")
	require.NoError(t, err)
	assert.Equal(t, &Meta{Version: "1.25.0"}, meta)

	nodes, err := a.Run(context.Background(), "nodes")
	require.NoError(t, err)
	assert.Equal(t, client.nodes, nodes)

	schema, err := a.Run(context.Background(), "schema")
	require.NoError(t, err)
	assert.Equal(t, client.schema, schema)
}

func TestActions_Run_Statistics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/cluster/statistics" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer admin-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"synchronized":true,"statistics":[{"name":"node-1","status":"HEALTHY"}]}`))
	}))
	defer srv.Close()

	conn := newFakeConnector(newReadyClient("1.25.0"))
	s := newTestSession(conn)
	require.True(t, s.Initialize(context.Background(), Credentials{Endpoint: srv.URL, APIKey: "admin-key"}))
	a := NewActions(s, srv.Client())

	out, err := a.Run(context.Background(), "statistics")
	require.NoError(t, err)

	stats, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, stats["synchronized"])
}

func TestActions_Run_StatisticsErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, ``, errs.IsPermissionDenied},
		{"not found", http.StatusNotFound, ``, errs.IsNotFound},
		{"server error", http.StatusInternalServerError, `{"error":"raft not ready"}`, errs.IsQueryFailed},
		{"bad json", http.StatusOK, `{`, errs.IsQueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s := newTestSession(newFakeConnector(newReadyClient("1.25.0")))
			require.True(t, s.Initialize(context.Background(), Credentials{Endpoint: srv.URL, APIKey: "k"}))

			_, err := NewActions(s, srv.Client()).Run(context.Background(), "statistics")
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)
		})
	}
}
