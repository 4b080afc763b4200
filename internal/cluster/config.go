package cluster

import (
	"maps"
	"sort"
	"strings"
	"time"

	"github.com/koustreak/clusterdash/internal/errs"
)

// Mode selects which constructor builds the connection.
type Mode string

const (
	ModeLocal Mode = "local"
	ModeCloud Mode = "cloud"
)

// LocalEndpoint is where a local-mode cluster is always reached.
const LocalEndpoint = "http://localhost:8080"

// Timeouts is the budget handed to the connection constructor.
type Timeouts struct {
	Init   time.Duration // establishing the connection and the initial ready check
	Query  time.Duration // read calls
	Insert time.Duration // write calls
}

// DefaultTimeouts returns the budget used when none is configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Init:   90 * time.Second,
		Query:  900 * time.Second,
		Insert: 900 * time.Second,
	}
}

// Config describes how to build a connection handle. Treat it as immutable:
// the manager keeps its own copy.
type Config struct {
	Mode     Mode
	Endpoint string
	APIKey   string

	// SkipInitChecks skips the readiness check during construction.
	SkipInitChecks bool

	Timeouts Timeouts

	// VectorizerKeys maps a model provider name (openai, cohere, etc.) to its
	// API key. Only used to build outbound request headers.
	VectorizerKeys map[string]string
}

// DefaultConfig returns a local-mode config with default timeouts.
func DefaultConfig() Config {
	return Config{
		Mode:           ModeLocal,
		Endpoint:       LocalEndpoint,
		SkipInitChecks: true,
		Timeouts:       DefaultTimeouts(),
	}
}

// Validate reports whether cfg can be handed to a connector.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeLocal:
	case ModeCloud:
		if c.Endpoint == "" {
			return errs.New(errs.ErrKindInvalidInput, "cloud endpoint is required")
		}
		if c.APIKey == "" {
			return errs.New(errs.ErrKindInvalidInput, "cloud API key is required")
		}
	default:
		return errs.New(errs.ErrKindInvalidInput, "unknown connection mode: "+string(c.Mode))
	}
	if c.Timeouts.Init <= 0 || c.Timeouts.Query <= 0 || c.Timeouts.Insert <= 0 {
		return errs.New(errs.ErrKindInvalidInput, "timeouts must be positive")
	}
	return nil
}

func (c Config) clone() Config {
	c.VectorizerKeys = maps.Clone(c.VectorizerKeys)
	return c
}

// vectorizerHeaderNames holds the header spelling for known providers.
var vectorizerHeaderNames = map[string]string{
	"openai":      "X-OpenAI-Api-Key",
	"cohere":      "X-Cohere-Api-Key",
	"jinaai":      "X-JinaAI-Api-Key",
	"huggingface": "X-HuggingFace-Api-Key",
}

// VectorizerHeaders turns the provider key map into request headers.
// Empty keys are skipped.
func (c Config) VectorizerHeaders() map[string]string {
	headers := make(map[string]string, len(c.VectorizerKeys))
	for provider, key := range c.VectorizerKeys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		headers[VectorizerHeader(provider)] = key
	}
	return headers
}

// VectorizerHeader returns the request header carrying the API key for provider.
func VectorizerHeader(provider string) string {
	name := strings.ToLower(strings.TrimSpace(provider))
	if h, ok := vectorizerHeaderNames[name]; ok {
		return h
	}
	return "X-" + strings.TrimSpace(provider) + "-Api-Key"
}

// KnownVectorizers lists the providers with a dedicated header spelling.
func KnownVectorizers() []string {
	names := make([]string, 0, len(vectorizerHeaderNames))
	for name := range vectorizerHeaderNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizeEndpoint trims s and prefixes https:// when no scheme is present.
func NormalizeEndpoint(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") {
		return s
	}
	return "https://" + s
}
