// Package weaviate provides a Weaviate implementation of cluster.Connector.
//
// Usage:
//
//	mgr := cluster.NewManager(weaviate.NewConnector())
//	client, err := mgr.GetOrCreate(ctx, cfg)
package weaviate

import (
	"context"
	"maps"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/koustreak/clusterdash/internal/cluster"
	"github.com/koustreak/clusterdash/internal/errs"
	wv "github.com/weaviate/weaviate-go-client/v4/weaviate"
)

const modulePath = "github.com/weaviate/weaviate-go-client/v4"

// Connector builds Weaviate clients. The zero value is not usable; call NewConnector.
type Connector struct {
	transport http.RoundTripper
}

// Option configures a Connector.
type Option func(*Connector)

// WithTransport sets the HTTP transport used by every client built.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Connector) {
		c.transport = rt
	}
}

// NewConnector returns a Connector using the default HTTP transport.
func NewConnector(opts ...Option) *Connector {
	c := &Connector{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- cluster.Connector implementation ---

// ConnectLocal builds a client for a cluster on the loopback address.
func (c *Connector) ConnectLocal(ctx context.Context, opts cluster.ConnectOptions) (cluster.Client, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = cluster.LocalEndpoint
	}
	return c.connect(ctx, opts)
}

// ConnectCloud builds a client for a remote cluster.
func (c *Connector) ConnectCloud(ctx context.Context, opts cluster.ConnectOptions) (cluster.Client, error) {
	if opts.Endpoint == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "cloud endpoint is required")
	}
	return c.connect(ctx, opts)
}

// LibraryVersion reports the weaviate-go-client version linked into the binary.
func (c *Connector) LibraryVersion() string {
	return libraryVersion()
}

func (c *Connector) connect(ctx context.Context, opts cluster.ConnectOptions) (cluster.Client, error) {
	u, err := parseEndpoint(opts.Endpoint)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Transport: c.transport,
		Timeout:   max(opts.Timeouts.Query, opts.Timeouts.Insert),
	}

	sdk, err := wv.NewClient(wv.Config{
		Host:             u.Host,
		Scheme:           u.Scheme,
		ConnectionClient: httpClient,
		Headers:          requestHeaders(opts),
	})
	if err != nil {
		return nil, mapError(err, "failed to create weaviate client")
	}

	client := &Client{sdk: sdk, http: httpClient}

	if !opts.SkipInitChecks {
		initCtx := ctx
		if opts.Timeouts.Init > 0 {
			var cancel context.CancelFunc
			initCtx, cancel = context.WithTimeout(ctx, opts.Timeouts.Init)
			defer cancel()
		}
		ready, err := client.IsReady(initCtx)
		if err != nil {
			client.Close()
			return nil, err
		}
		if !ready {
			client.Close()
			return nil, errs.New(errs.ErrKindConnectionFailed, "cluster at "+u.Host+" is not ready")
		}
	}

	return client, nil
}

// requestHeaders returns the headers sent on every request. The SDK refuses
// an AuthConfig together with a custom ConnectionClient, so the API key
// travels as a bearer token header instead.
func requestHeaders(opts cluster.ConnectOptions) map[string]string {
	headers := make(map[string]string, len(opts.Headers)+1)
	maps.Copy(headers, opts.Headers)
	if opts.APIKey != "" {
		headers["Authorization"] = "Bearer " + opts.APIKey
	}
	return headers
}

// parseEndpoint splits an endpoint URL into scheme and host.
func parseEndpoint(endpoint string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid endpoint", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errs.New(errs.ErrKindInvalidInput, "endpoint scheme must be http or https: "+endpoint)
	}
	if u.Host == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "endpoint has no host: "+endpoint)
	}
	if u.Path != "" && u.Path != "/" {
		return nil, errs.New(errs.ErrKindInvalidInput, "endpoint must not carry a path: "+endpoint)
	}
	return u, nil
}

var libraryVersion = sync.OnceValue(func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return cluster.NotAvailable
	}
	for _, dep := range info.Deps {
		if dep.Path != modulePath {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return strings.TrimPrefix(dep.Replace.Version, "v")
		}
		if dep.Version != "" {
			return strings.TrimPrefix(dep.Version, "v")
		}
	}
	return cluster.NotAvailable
})
