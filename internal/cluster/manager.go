// Package cluster owns the connection to a vector-database cluster: building
// it, probing it, tearing it down, and the thin actions the dashboard runs
// against it.
//
// Usage:
//
//	mgr := cluster.NewManager(weaviate.NewConnector())
//	defer mgr.Close()
//
//	client, err := mgr.GetOrCreate(ctx, cfg)
//	if err != nil { ... }
//	probe := mgr.Status(ctx, client)
package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/koustreak/clusterdash/internal/errs"
	"github.com/koustreak/clusterdash/internal/logger"
	"github.com/koustreak/clusterdash/internal/metrics"
)

// Manager holds at most one open Client. It is safe for concurrent use;
// GetOrCreate and Close are serialized.
type Manager struct {
	connector Connector
	log       *logger.Logger

	mu     sync.Mutex
	client Client
	cfg    Config
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for connection lifecycle events.
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager returns a closed Manager that builds clients with connector.
func NewManager(connector Connector, opts ...Option) *Manager {
	m := &Manager{
		connector: connector,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With().Str("component", "cluster").Logger()
	return m
}

// GetOrCreate returns the open client, building one from cfg if none exists.
// While a client is open cfg is ignored. Construction failures are returned
// as connection errors (see errs.IsConnectionError) and leave the manager closed.
func (m *Manager) GetOrCreate(ctx context.Context, cfg Config) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return m.client, nil
	}

	if err := cfg.Validate(); err != nil {
		metrics.ConnectAttempts.WithLabelValues(string(cfg.Mode), "invalid").Inc()
		return nil, errs.Connection("invalid connection config", err)
	}

	cfg = cfg.clone()
	opts := ConnectOptions{
		Endpoint:       cfg.Endpoint,
		APIKey:         cfg.APIKey,
		SkipInitChecks: cfg.SkipInitChecks,
		Timeouts:       cfg.Timeouts,
		Headers:        cfg.VectorizerHeaders(),
	}

	m.log.InfoWith("connecting", map[string]interface{}{
		"mode":     cfg.Mode,
		"endpoint": cfg.Endpoint,
	})

	var (
		client Client
		err    error
	)
	if cfg.Mode == ModeLocal {
		client, err = m.connector.ConnectLocal(ctx, opts)
	} else {
		client, err = m.connector.ConnectCloud(ctx, opts)
	}
	if err == nil && client == nil {
		err = errs.New(errs.ErrKindConnectionFailed, "connector returned no client")
	}
	if err != nil {
		metrics.ConnectAttempts.WithLabelValues(string(cfg.Mode), "error").Inc()
		m.log.ErrorWith("connection failed", err, map[string]interface{}{
			"mode":     cfg.Mode,
			"endpoint": cfg.Endpoint,
		})
		return nil, errs.Connection("connect to "+cfg.Endpoint, err)
	}

	m.client = client
	m.cfg = cfg
	metrics.ConnectAttempts.WithLabelValues(string(cfg.Mode), "ok").Inc()
	metrics.Connected.Set(1)
	m.log.Info("connected")
	return client, nil
}

// Close closes the open client, if any. Calling it again is a no-op, so it can
// back both an explicit disconnect and the owner's deferred teardown.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}

	m.log.Info("disconnecting")
	client := m.client
	m.client = nil
	m.cfg = Config{}
	metrics.Connected.Set(0)

	if err := client.Close(); err != nil {
		m.log.WarnWith("close failed", err, nil)
		return errs.Wrap(errs.ErrKindConnectionFailed, "close connection", err)
	}
	return nil
}

// Status probes client for readiness and versions. It never fails: any error
// yields a Probe whose Status is Unknown and whose Err holds the cause.
func (m *Manager) Status(ctx context.Context, client Client) Probe {
	probe := m.probe(ctx, client)
	if probe.Known() {
		metrics.Probes.WithLabelValues("ok").Inc()
		m.log.Debug("status check ok")
	} else {
		metrics.Probes.WithLabelValues("unknown").Inc()
		m.log.WarnWith("status probe failed", probe.Err, nil)
	}
	return probe
}

func (m *Manager) probe(ctx context.Context, client Client) Probe {
	if client == nil {
		return unknownProbe(errs.New(errs.ErrKindConnectionFailed, "no open connection"))
	}

	if budget := m.queryTimeout(); budget > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, budget)
			defer cancel()
		}
	}

	ready, err := client.IsReady(ctx)
	if err != nil {
		return unknownProbe(err)
	}

	meta, err := client.Meta(ctx)
	if err != nil {
		return unknownProbe(err)
	}
	if meta == nil || meta.Version == "" {
		return unknownProbe(errs.New(errs.ErrKindQueryFailed, "metadata carries no version"))
	}

	libVersion := m.connector.LibraryVersion()
	if libVersion == "" {
		libVersion = NotAvailable
	}

	return Probe{Status: Status{
		Ready:         ready,
		ServerVersion: meta.Version,
		ClientVersion: libVersion,
	}}
}

func (m *Manager) queryTimeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Timeouts.Query
}

// Current returns the open client, if any.
func (m *Manager) Current() (Client, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client, m.client != nil
}

// IsOpen reports whether a client is open.
func (m *Manager) IsOpen() bool {
	_, ok := m.Current()
	return ok
}

// Config returns a copy of the config the open client was built from.
func (m *Manager) Config() (Config, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return Config{}, false
	}
	return m.cfg.clone(), true
}
