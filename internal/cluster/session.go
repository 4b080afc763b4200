package cluster

import (
	"context"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/koustreak/clusterdash/internal/errs"
	"github.com/koustreak/clusterdash/internal/logger"
)

// Credentials is what a user types into the connection form.
type Credentials struct {
	Endpoint       string            `json:"endpoint"`
	APIKey         string            `json:"api_key"`
	UseLocal       bool              `json:"use_local"`
	VectorizerKeys map[string]string `json:"vectorizer_keys,omitempty"`
}

// Published is the state a successful Initialize makes available to the UI
// and to actions that call the cluster's REST API directly.
type Published struct {
	Status
	Mode        Mode      `json:"mode"`
	Endpoint    string    `json:"endpoint"`
	APIKey      string    `json:"-"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Session turns form input into a connection and publishes the outcome.
type Session struct {
	mgr      *Manager
	defaults Config
	log      *logger.Logger

	mu        sync.RWMutex
	published *Published
	lastErr   string
}

// NewSession returns a Session using defaults for everything the form does
// not supply (timeouts, init checks, vectorizer keys).
func NewSession(mgr *Manager, defaults Config, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	return &Session{
		mgr:      mgr,
		defaults: defaults.clone(),
		log:      log.With().Str("component", "session").Logger(),
	}
}

// Manager returns the manager backing the session.
func (s *Session) Manager() *Manager {
	return s.mgr
}

// BuildConfig resolves creds against the session defaults.
func (s *Session) BuildConfig(creds Credentials) Config {
	cfg := s.defaults.clone()
	cfg.APIKey = strings.TrimSpace(creds.APIKey)

	if creds.UseLocal {
		cfg.Mode = ModeLocal
		cfg.Endpoint = LocalEndpoint
	} else {
		cfg.Mode = ModeCloud
		cfg.Endpoint = NormalizeEndpoint(creds.Endpoint)
	}

	if len(creds.VectorizerKeys) > 0 {
		if cfg.VectorizerKeys == nil {
			cfg.VectorizerKeys = make(map[string]string, len(creds.VectorizerKeys))
		}
		maps.Copy(cfg.VectorizerKeys, creds.VectorizerKeys)
	}
	return cfg
}

// Initialize connects with creds and probes the cluster. On failure it
// records the error message, leaves previously published state untouched and
// returns false.
func (s *Session) Initialize(ctx context.Context, creds Credentials) bool {
	cfg := s.BuildConfig(creds)

	client, err := s.mgr.GetOrCreate(ctx, cfg)
	if err != nil {
		s.fail(err)
		return false
	}

	// An already open client keeps the config it was built with; the
	// published endpoint is still the one resolved from creds.
	if open, ok := s.mgr.Config(); ok && open.Endpoint != cfg.Endpoint {
		s.log.InfoWith("reusing open connection", map[string]interface{}{
			"open_endpoint":      open.Endpoint,
			"requested_endpoint": cfg.Endpoint,
		})
	}

	probe := s.mgr.Status(ctx, client)

	s.mu.Lock()
	s.published = &Published{
		Status:      probe.Status,
		Mode:        cfg.Mode,
		Endpoint:    cfg.Endpoint,
		APIKey:      cfg.APIKey,
		ConnectedAt: time.Now(),
	}
	s.lastErr = ""
	s.mu.Unlock()

	s.log.InfoWith("session initialized", map[string]interface{}{
		"endpoint":       cfg.Endpoint,
		"ready":          probe.Status.Ready,
		"server_version": probe.Status.ServerVersion,
	})
	return true
}

// Reconnect drops any open connection and initializes with creds, so new
// credentials take effect.
func (s *Session) Reconnect(ctx context.Context, creds Credentials) bool {
	if err := s.Disconnect(); err != nil {
		s.log.WarnWith("disconnect before reconnect failed", err, nil)
	}
	return s.Initialize(ctx, creds)
}

// Disconnect closes the connection and clears the published state.
func (s *Session) Disconnect() error {
	err := s.mgr.Close()

	s.mu.Lock()
	s.published = nil
	s.lastErr = ""
	s.mu.Unlock()

	return err
}

// Refresh re-probes the open connection and republishes its status.
// It returns false when nothing is connected.
func (s *Session) Refresh(ctx context.Context) bool {
	client, ok := s.mgr.Current()
	if !ok {
		return false
	}
	probe := s.mgr.Status(ctx, client)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.published == nil {
		return false
	}
	updated := *s.published
	updated.Status = probe.Status
	s.published = &updated
	return true
}

// Snapshot returns the last published state.
func (s *Session) Snapshot() (Published, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.published == nil {
		return Published{}, false
	}
	return *s.published, true
}

// LastError returns the message of the last failed Initialize, or "".
func (s *Session) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Session) fail(err error) {
	msg := "Connection Error: " + err.Error()
	if errs.IsInvalidInput(err) {
		msg = "Invalid connection settings: " + err.Error()
	}

	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()

	s.log.WarnWith("initialize failed", err, nil)
}
