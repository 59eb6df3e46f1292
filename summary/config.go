package summary

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tunables of the calendar summary cache. The zero value is
// not usable; start from DefaultConfig.
type Config struct {
	// Enabled turns the whole caching layer on. When false every read is a
	// direct mailbox scan scoped to the requested range.
	Enabled bool `yaml:"enabled"`

	// MaxRangeDays bounds the span a single summary request may ask for.
	MaxRangeDays int `yaml:"maxRangeDays"`
	// AnchorMonthsBefore and AnchorMonthsAfter define the anchor window the
	// cache eagerly maintains around the current time regardless of the
	// exact range a request asks for.
	AnchorMonthsBefore int `yaml:"anchorMonthsBefore"`
	AnchorMonthsAfter  int `yaml:"anchorMonthsAfter"`

	// LRUCapacity bounds the in-process summary tier; zero or less means
	// unbounded.
	LRUCapacity int `yaml:"lruCapacity"`
	// MaxStaleForIncremental is the largest stale-item count for which a
	// refresh re-fetches only the stale ids. Above it a full folder scan is
	// cheaper.
	MaxStaleForIncremental int `yaml:"maxStaleForIncremental"`
	// StaleEvictThreshold is the stale-item count at which the invalidation
	// listener gives up on per-item tracking and evicts the whole folder
	// entry.
	StaleEvictThreshold int `yaml:"staleEvictThreshold"`

	// CtagBackend and FolderSetBackend select the backend family for the
	// ctag and folder-set cache kinds: "memory" or "redis".
	CtagBackend      string `yaml:"ctagBackend"`
	FolderSetBackend string `yaml:"folderSetBackend"`
	// RenderCapacity bounds the pre-rendered response cache.
	RenderCapacity int `yaml:"renderCapacity"`

	Redis RedisConfig `yaml:"redis"`
	File  FileConfig  `yaml:"file"`
}

// RedisConfig configures the distributed tier.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	// TTL is the expiry applied to every distributed entry; zero means no
	// expiry.
	TTL time.Duration `yaml:"ttl"`
	// Timeout bounds every individual redis operation.
	Timeout time.Duration `yaml:"timeout"`
}

// UnmarshalYAML decodes the durations from strings like "500ms" or "24h",
// which plain yaml decoding does not handle, and leaves omitted fields at
// their current (default) values.
func (rc *RedisConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Enabled *bool  `yaml:"enabled"`
		Addr    string `yaml:"addr"`
		TTL     string `yaml:"ttl"`
		Timeout string `yaml:"timeout"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Enabled != nil {
		rc.Enabled = *raw.Enabled
	}
	if raw.Addr != "" {
		rc.Addr = raw.Addr
	}
	if raw.TTL != "" {
		d, err := time.ParseDuration(raw.TTL)
		if err != nil {
			return fmt.Errorf("parse redis ttl: %w", err)
		}
		rc.TTL = d
	}
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("parse redis timeout: %w", err)
		}
		rc.Timeout = d
	}
	return nil
}

// FileConfig configures the file persistence tier.
type FileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	// Shards is the number of hash subdirectories; zero selects the
	// backend default.
	Shards int `yaml:"shards"`
}

// DefaultConfig provides sensible defaults for production use.
var DefaultConfig = Config{
	Enabled:                true,
	MaxRangeDays:           200,
	AnchorMonthsBefore:     1,
	AnchorMonthsAfter:      3,
	LRUCapacity:            1000,
	MaxStaleForIncremental: 100,
	StaleEvictThreshold:    100,
	CtagBackend:            "memory",
	FolderSetBackend:       "memory",
	RenderCapacity:         1000,
	Redis: RedisConfig{
		Addr:    "localhost:6379",
		TTL:     24 * time.Hour,
		Timeout: 2 * time.Second,
	},
	File: FileConfig{
		Shards: 256,
	},
}

// LoadConfig reads a yaml config file over DefaultConfig, so omitted fields
// keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// maxRangeSpan returns the largest allowed request span.
func (c Config) maxRangeSpan() time.Duration {
	return time.Duration(c.MaxRangeDays) * 24 * time.Hour
}
