package glcompat

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/glcompat/backend"
	"github.com/gogpu/glcompat/internal/pixel"
)

// Config is the file form of the Context options plus the backend choice.
//
// Example file:
//
//	backend: native
//	strict: false
//	alignment_mode: ignore
//	workers: 4
//	queue_depth: 16
//	shadow_budget_mb: 256
//	trace: frame.trace.zst
type Config struct {
	Backend        string `yaml:"backend"`
	Strict         bool   `yaml:"strict"`
	AlignmentMode  string `yaml:"alignment_mode"`
	Workers        int    `yaml:"workers"`
	QueueDepth     int    `yaml:"queue_depth"`
	ShadowBudgetMB int    `yaml:"shadow_budget_mb"`

	// Trace is the path of the zstd trace written when the recorder backend
	// is used. Empty disables tracing.
	Trace string `yaml:"trace,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Backend:       backend.BackendNative,
		AlignmentMode: AlignmentIgnore.String(),
	}
}

// LoadConfig reads a YAML config file. An empty path returns DefaultConfig.
// Keys missing from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	return ParseConfig(b)
}

// ParseConfig decodes YAML config data over DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("glcompat config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("glcompat config: %w", err)
	}
	return cfg, nil
}

// Normalize trims and lower-cases the string fields.
func (c *Config) Normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.AlignmentMode = strings.ToLower(strings.TrimSpace(c.AlignmentMode))
	c.Trace = strings.TrimSpace(c.Trace)
	if c.Backend == "" {
		c.Backend = backend.BackendNative
	}
}

// Validate reports the first value that cannot be applied.
func (c Config) Validate() error {
	if _, ok := pixel.ParseAlignmentMode(c.AlignmentMode); !ok {
		return fmt.Errorf("alignment_mode %q: %w", c.AlignmentMode, ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers %d: %w", c.Workers, ErrInvalidConfig)
	}
	if c.QueueDepth < 0 {
		return fmt.Errorf("queue_depth %d: %w", c.QueueDepth, ErrInvalidConfig)
	}
	return nil
}

// Options converts the config to Context options. The config must have
// passed Validate.
func (c Config) Options() []Option {
	mode, _ := pixel.ParseAlignmentMode(c.AlignmentMode)
	return []Option{
		WithStrict(c.Strict),
		WithAlignmentMode(mode),
		WithWorkers(c.Workers),
		WithQueueDepth(c.QueueDepth),
		WithShadowBudget(c.ShadowBudgetMB),
	}
}

// OpenBackend creates the configured backend from the backend registry.
func (c Config) OpenBackend() (backend.Backend, error) {
	return backend.Get(c.Backend)
}
