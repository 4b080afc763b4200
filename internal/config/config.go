// Package config loads clusterdash settings from defaults, a YAML file and
// CLUSTERDASH_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/koustreak/clusterdash/internal/cluster"
	"github.com/koustreak/clusterdash/internal/errs"
	"github.com/koustreak/clusterdash/internal/logger"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

const (
	// EnvPrefix prefixes every environment override, e.g. CLUSTERDASH_CLUSTER_API_KEY.
	EnvPrefix = "CLUSTERDASH"
	// FileName is the config file name searched for without an explicit path.
	FileName = "clusterdash"
	// DefaultFile is what `config init` writes when no path is given.
	DefaultFile = FileName + ".yaml"
)

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Cluster ClusterConfig `mapstructure:"cluster" yaml:"cluster"`

	// Vectorizers maps a model provider (openai, cohere, jinaai, huggingface)
	// to the API key forwarded to the cluster.
	Vectorizers map[string]string `mapstructure:"vectorizers" yaml:"vectorizers"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ClusterConfig holds the connection used at startup.
type ClusterConfig struct {
	Endpoint       string         `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey         string         `mapstructure:"api_key" yaml:"api_key"`
	Local          bool           `mapstructure:"local" yaml:"local"`
	SkipInitChecks bool           `mapstructure:"skip_init_checks" yaml:"skip_init_checks"`
	Timeouts       TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`
}

// TimeoutsConfig is written as duration strings ("90s") and read back with
// viper's duration decoding.
type TimeoutsConfig struct {
	Init   time.Duration `mapstructure:"init"`
	Query  time.Duration `mapstructure:"query"`
	Insert time.Duration `mapstructure:"insert"`
}

// MarshalYAML implements yaml.Marshaler.
func (t TimeoutsConfig) MarshalYAML() (interface{}, error) {
	return map[string]string{
		"init":   t.Init.String(),
		"query":  t.Query.String(),
		"insert": t.Insert.String(),
	}, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	t := cluster.DefaultTimeouts()

	vectorizers := make(map[string]string)
	for _, name := range cluster.KnownVectorizers() {
		vectorizers[name] = ""
	}

	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8501,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Cluster: ClusterConfig{
			SkipInitChecks: true,
			Timeouts: TimeoutsConfig{
				Init:   t.Init,
				Query:  t.Query,
				Insert: t.Insert,
			},
		},
		Vectorizers: vectorizers,
	}
}

// Load reads configuration. An empty path searches the working directory and
// $HOME/.config/clusterdash; a missing file there is not an error. An explicit
// path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "error reading config", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "error parsing config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("cluster.endpoint", d.Cluster.Endpoint)
	v.SetDefault("cluster.api_key", d.Cluster.APIKey)
	v.SetDefault("cluster.local", d.Cluster.Local)
	v.SetDefault("cluster.skip_init_checks", d.Cluster.SkipInitChecks)
	v.SetDefault("cluster.timeouts.init", d.Cluster.Timeouts.Init)
	v.SetDefault("cluster.timeouts.query", d.Cluster.Timeouts.Query)
	v.SetDefault("cluster.timeouts.insert", d.Cluster.Timeouts.Insert)
	for name, key := range d.Vectorizers {
		v.SetDefault("vectorizers."+name, key)
	}
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errs.New(errs.ErrKindInvalidInput, "log.format must be json or console, got "+c.Log.Format)
	}
	t := c.Cluster.Timeouts
	if t.Init <= 0 || t.Query <= 0 || t.Insert <= 0 {
		return errs.New(errs.ErrKindInvalidInput, "cluster.timeouts must be positive")
	}
	return nil
}

// WriteDefault writes the default configuration to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if path == "" {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		return errs.New(errs.ErrKindInvalidInput, "config file already exists: "+path)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "failed to encode default config", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrap(errs.ErrKindUnknown, "failed to create config directory", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "failed to write config", err)
	}
	return nil
}

// Logger returns the logger settings.
func (c *Config) Logger() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.Log.Level
	lc.Format = c.Log.Format
	return lc
}

// ClusterDefaults returns the connection settings that connection forms do
// not carry: timeouts, init checks and vectorizer keys.
func (c *Config) ClusterDefaults() cluster.Config {
	cfg := cluster.DefaultConfig()
	cfg.SkipInitChecks = c.Cluster.SkipInitChecks
	cfg.Timeouts = cluster.Timeouts{
		Init:   c.Cluster.Timeouts.Init,
		Query:  c.Cluster.Timeouts.Query,
		Insert: c.Cluster.Timeouts.Insert,
	}
	for name, key := range c.Vectorizers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		if cfg.VectorizerKeys == nil {
			cfg.VectorizerKeys = make(map[string]string)
		}
		cfg.VectorizerKeys[name] = key
	}
	return cfg
}

// Credentials returns the startup connection as form input.
func (c *Config) Credentials() cluster.Credentials {
	return cluster.Credentials{
		Endpoint: c.Cluster.Endpoint,
		APIKey:   c.Cluster.APIKey,
		UseLocal: c.Cluster.Local,
	}
}

// AutoConnect reports whether a connection is configured for startup.
func (c *Config) AutoConnect() bool {
	return c.Cluster.Local || strings.TrimSpace(c.Cluster.Endpoint) != ""
}
