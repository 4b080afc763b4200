package cluster

import (
	"context"
	"errors"
	"sync"
)

const fakeLibVersion = "4.16.1"

// fakeClient is a Client whose responses are set by the test.
type fakeClient struct {
	ready    bool
	readyErr error
	meta     *Meta
	metaErr  error
	nodes    any
	schema   any
	closeErr error

	mu     sync.Mutex
	closed int
}

func newReadyClient(version string) *fakeClient {
	return &fakeClient{ready: true, meta: &Meta{Version: version}}
}

func (c *fakeClient) IsReady(context.Context) (bool, error) { return c.ready, c.readyErr }
func (c *fakeClient) Meta(context.Context) (*Meta, error)    { return c.meta, c.metaErr }
func (c *fakeClient) Nodes(context.Context) (any, error)     { return c.nodes, nil }
func (c *fakeClient) Schema(context.Context) (any, error)    { return c.schema, nil }

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return c.closeErr
}

func (c *fakeClient) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeConnector records every construction call.
type fakeConnector struct {
	mu      sync.Mutex
	client  *fakeClient
	err     error
	local   []ConnectOptions
	cloud   []ConnectOptions
	version string
}

func newFakeConnector(client *fakeClient) *fakeConnector {
	return &fakeConnector{client: client, version: fakeLibVersion}
}

func (f *fakeConnector) ConnectLocal(_ context.Context, opts ConnectOptions) (Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.local = append(f.local, opts)
	return f.result()
}

func (f *fakeConnector) ConnectCloud(_ context.Context, opts ConnectOptions) (Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cloud = append(f.cloud, opts)
	return f.result()
}

func (f *fakeConnector) result() (Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.client == nil {
		return nil, nil
	}
	return f.client, nil
}

func (f *fakeConnector) LibraryVersion() string { return f.version }

func (f *fakeConnector) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.local) + len(f.cloud)
}

func (f *fakeConnector) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

var errUnreachable = errors.New("dial tcp 10.0.0.1:443: connect: connection refused")

func cloudConfig(endpoint, key string) Config {
	cfg := DefaultConfig()
	cfg.Mode = ModeCloud
	cfg.Endpoint = endpoint
	cfg.APIKey = key
	return cfg
}
