package hdql

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperdim/hdql/index"
	"github.com/hyperdim/hdql/result"
)

// Config is the YAML representation of engine options, for deployments that
// configure the engine from a file rather than code.
type Config struct {
	TopK int `yaml:"top_k"`

	// Timeout is a Go duration string such as "5s" or "250ms".
	Timeout string `yaml:"timeout"`

	Strict    *bool    `yaml:"strict"`
	Parallel  bool     `yaml:"parallel"`
	Format    string   `yaml:"format"`
	CacheSize *int     `yaml:"cache_size"`
	Indexes   []string `yaml:"indexes"`

	RateLimit struct {
		QPS   float64 `yaml:"qps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if _, err := cfg.Options(); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return &cfg, nil
}

// Options converts the config into engine options. Zero-valued fields keep
// the engine defaults.
func (c *Config) Options() ([]Option, error) {
	var opts []Option

	if c.TopK < 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.TopK > 0 {
		opts = append(opts, WithTopK(c.TopK))
	}
	if c.Timeout != "" {
		timeout, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout: %w", err)
		}
		if timeout < 0 {
			return nil, fmt.Errorf("timeout must not be negative, got %s", timeout)
		}
		opts = append(opts, WithTimeout(timeout))
	}
	if c.Strict != nil {
		opts = append(opts, WithStrict(*c.Strict))
	}
	if c.Parallel {
		opts = append(opts, WithParallel(true))
	}
	if c.CacheSize != nil {
		opts = append(opts, WithCacheSize(*c.CacheSize))
	}

	if c.Format != "" {
		format, err := result.ParseFormat(c.Format)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithFormat(format))
	}

	if len(c.Indexes) > 0 {
		kinds, err := parseIndexKinds(c.Indexes)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithAllowedIndexes(kinds...))
	}

	if c.RateLimit.QPS > 0 {
		burst := c.RateLimit.Burst
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, WithRateLimit(c.RateLimit.QPS, burst))
	}

	if c.Log.Level != "" {
		logger, err := parseLogger(c.Log.Level, c.Log.Format)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithLogger(logger))
	}

	return opts, nil
}

func parseIndexKinds(names []string) ([]index.Kind, error) {
	kinds := make([]index.Kind, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "flat":
			kinds = append(kinds, index.KindFlat)
		case "ivf":
			kinds = append(kinds, index.KindIVF)
		case "hnsw":
			kinds = append(kinds, index.KindHNSW)
		default:
			return nil, fmt.Errorf("unknown index kind %q", name)
		}
	}
	return kinds, nil
}

func parseLogger(level, format string) (*Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	switch strings.ToLower(format) {
	case "", "text":
		return NewTextLogger(lvl), nil
	case "json":
		return NewJSONLogger(lvl), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
