package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/koustreak/clusterdash/internal/cluster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	mu     sync.Mutex
	closed int
}

func (c *stubClient) IsReady(context.Context) (bool, error) { return true, nil }
func (c *stubClient) Meta(context.Context) (*cluster.Meta, error) {
	return &cluster.Meta{Hostname: "node-1", Version: "1.25.0"}, nil
}
func (c *stubClient) Nodes(context.Context) (any, error)  { return []string{"node-1"}, nil }
func (c *stubClient) Schema(context.Context) (any, error) { return map[string]any{}, nil }
func (c *stubClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *stubClient) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type stubConnector struct {
	client *stubClient
	err    error
}

func (s *stubConnector) ConnectLocal(context.Context, cluster.ConnectOptions) (cluster.Client, error) {
	return s.result()
}

func (s *stubConnector) ConnectCloud(context.Context, cluster.ConnectOptions) (cluster.Client, error) {
	return s.result()
}

func (s *stubConnector) result() (cluster.Client, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.client, nil
}

func (s *stubConnector) LibraryVersion() string { return "4.16.1" }

func newTestServer(t *testing.T, conn *stubConnector) (*httptest.Server, *cluster.Session) {
	t.Helper()
	mgr := cluster.NewManager(conn)
	t.Cleanup(func() { _ = mgr.Close() })

	session := cluster.NewSession(mgr, cluster.DefaultConfig(), nil)
	srv := NewServer(ServerConfig{
		Session: session,
		Actions: cluster.NewActions(session, nil),
	})

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, session
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(data) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(data, &out))
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, &stubConnector{client: &stubClient{}})

	resp, body := do(t, http.MethodGet, ts.URL+"/api/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "dev", body["version"])
}

func TestStatus_Disconnected(t *testing.T) {
	ts, _ := newTestServer(t, &stubConnector{client: &stubClient{}})

	resp, body := do(t, http.MethodGet, ts.URL+"/api/status", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["connected"])
	assert.NotContains(t, body, "server_version")
}

func TestConnect_Success(t *testing.T) {
	ts, _ := newTestServer(t, &stubConnector{client: &stubClient{}})

	resp, body := do(t, http.MethodPost, ts.URL+"/api/connect",
		`{"endpoint":"demo.weaviate.cloud","api_key":"secret-key-1234"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, true, body["connected"])
	assert.Equal(t, true, body["ready"])
	assert.Equal(t, "1.25.0", body["server_version"])
	assert.Equal(t, "4.16.1", body["client_version"])
	assert.Equal(t, "https://demo.weaviate.cloud", body["endpoint"])
	assert.Equal(t, "****1234", body["api_key"])
}

func TestConnect_Local(t *testing.T) {
	ts, _ := newTestServer(t, &stubConnector{client: &stubClient{}})

	resp, body := do(t, http.MethodPost, ts.URL+"/api/connect", `{"use_local":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, cluster.LocalEndpoint, body["endpoint"])
	assert.Equal(t, "local", body["mode"])
}

func TestConnect_Failure(t *testing.T) {
	ts, session := newTestServer(t, &stubConnector{err: errors.New("connection refused")})

	resp, body := do(t, http.MethodPost, ts.URL+"/api/connect", `{"use_local":true}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, false, body["connected"])
	assert.Contains(t, body["last_error"], "Connection Error")
	assert.False(t, session.Manager().IsOpen())
}

func TestConnect_BadBody(t *testing.T) {
	ts, _ := newTestServer(t, &stubConnector{client: &stubClient{}})

	resp, body := do(t, http.MethodPost, ts.URL+"/api/connect", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "invalid request body")
}

func TestConnect_ReplacesOpenConnection(t *testing.T) {
	client := &stubClient{}
	ts, _ := newTestServer(t, &stubConnector{client: client})

	resp, _ := do(t, http.MethodPost, ts.URL+"/api/connect", `{"use_local":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, http.MethodPost, ts.URL+"/api/connect", `{"endpoint":"demo.weaviate.cloud","api_key":"k"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://demo.weaviate.cloud", body["endpoint"])
	assert.Equal(t, 1, client.closeCount())
}

func TestDisconnect(t *testing.T) {
	client := &stubClient{}
	ts, _ := newTestServer(t, &stubConnector{client: client})

	resp, _ := do(t, http.MethodPost, ts.URL+"/api/connect", `{"use_local":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/disconnect", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, client.closeCount())

	_, body := do(t, http.MethodGet, ts.URL+"/api/status", "")
	assert.Equal(t, false, body["connected"])

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/disconnect", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, client.closeCount())
}

func TestActions(t *testing.T) {
	ts, _ := newTestServer(t, &stubConnector{client: &stubClient{}})

	resp, body := do(t, http.MethodGet, ts.URL+"/api/actions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["actions"], 5)

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/actions/drop_everything", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodPost, ts.URL+"/api/actions/metadata", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "not connected", body["error"])

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/connect", `{"use_local":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, http.MethodPost, ts.URL+"/api/actions/metadata", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "metadata", body["action"])
	result, ok := body["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1.25.0", result["version"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, &stubConnector{client: &stubClient{}})

	do(t, http.MethodGet, ts.URL+"/api/health", "")

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "clusterdash_api_requests_total")
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", maskKey(""))
	assert.Equal(t, "***", maskKey("abc"))
	assert.Equal(t, "****5678", maskKey("abcd5678"))
}
