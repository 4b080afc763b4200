package cluster

import "context"

// Client is an open connection to the cluster. All layers above this package
// talk only to this interface; they never import the SDK directly.
type Client interface {
	// IsReady asks the cluster whether it is ready to serve requests.
	IsReady(ctx context.Context) (bool, error)

	// Meta returns server metadata. Version must be set on success.
	Meta(ctx context.Context) (*Meta, error)

	// Nodes returns verbose node and shard status.
	Nodes(ctx context.Context) (any, error)

	// Schema returns every collection definition.
	Schema(ctx context.Context) (any, error)

	// Close releases the resources held by the connection.
	Close() error
}

// Meta is the subset of server metadata the dashboard needs.
type Meta struct {
	Hostname string         `json:"hostname"`
	Version  string         `json:"version"`
	Modules  map[string]any `json:"modules,omitempty"`
}

// ConnectOptions is what a Connector receives to build a Client.
type ConnectOptions struct {
	Endpoint       string
	APIKey         string
	SkipInitChecks bool
	Timeouts       Timeouts
	Headers        map[string]string
}

// Connector builds clients. Each method is a single blocking call that either
// returns a usable Client or an error.
type Connector interface {
	ConnectLocal(ctx context.Context, opts ConnectOptions) (Client, error)
	ConnectCloud(ctx context.Context, opts ConnectOptions) (Client, error)

	// LibraryVersion is the version of the client library, "N/A" when unknown.
	LibraryVersion() string
}
