package weaviate

import (
	"context"
	"net/http"

	"github.com/koustreak/clusterdash/internal/cluster"
	"github.com/koustreak/clusterdash/internal/errs"
	wv "github.com/weaviate/weaviate-go-client/v4/weaviate"
)

// Client is an open Weaviate connection. It is safe for concurrent use.
type Client struct {
	sdk  *wv.Client
	http *http.Client
}

// IsReady calls the readiness endpoint.
func (c *Client) IsReady(ctx context.Context) (bool, error) {
	ready, err := c.sdk.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return false, mapError(err, "ready check failed")
	}
	return ready, nil
}

// Meta fetches server metadata.
func (c *Client) Meta(ctx context.Context) (*cluster.Meta, error) {
	m, err := c.sdk.Misc().MetaGetter().Do(ctx)
	if err != nil {
		return nil, mapError(err, "failed to fetch metadata")
	}
	if m == nil {
		return nil, errs.New(errs.ErrKindQueryFailed, "empty metadata response")
	}

	meta := &cluster.Meta{
		Hostname: m.Hostname,
		Version:  m.Version,
	}
	if modules, ok := m.Modules.(map[string]interface{}); ok {
		meta.Modules = modules
	}
	return meta, nil
}

// Nodes fetches verbose node and shard status.
func (c *Client) Nodes(ctx context.Context) (any, error) {
	nodes, err := c.sdk.Cluster().NodesStatusGetter().WithOutput("verbose").Do(ctx)
	if err != nil {
		return nil, mapError(err, "failed to fetch nodes status")
	}
	return nodes, nil
}

// Schema fetches every collection definition.
func (c *Client) Schema(ctx context.Context) (any, error) {
	dump, err := c.sdk.Schema().Getter().Do(ctx)
	if err != nil {
		return nil, mapError(err, "failed to fetch schema")
	}
	return dump, nil
}

// Close releases idle keep-alive connections. The SDK client itself holds
// no other resources.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
