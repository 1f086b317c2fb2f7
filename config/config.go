package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dendrascience/syncfs/store"
	"github.com/dendrascience/syncfs/util"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is joined with every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultFanoutThreshold is the entry count above which count and validate
// flag a directory.
const DefaultFanoutThreshold = util.FanoutThreshold

// Config is the syncfs configuration file.
type Config struct {
	// BaseDir holds the root container on the local filesystem.
	BaseDir string `yaml:"base_dir"`
	// RootName names the root container inside BaseDir.
	RootName string `yaml:"root_name"`
	// Worker routes every operation through a proxy worker goroutine.
	Worker bool `yaml:"worker"`
	// ReadConcurrency bounds parallel file reads in range loads (0 = NumCPU).
	ReadConcurrency int `yaml:"read_concurrency"`
	// FanoutThreshold is the per-directory entry count reported as too large.
	FanoutThreshold int `yaml:"fanout_threshold"`

	Log LogConfig `yaml:"log"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		BaseDir:         ".",
		RootName:        store.DefaultRootName,
		FanoutThreshold: DefaultFanoutThreshold,
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load reads a YAML file on top of Default. Missing keys keep their default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.BaseDir == "" {
		errs = append(errs, errors.New("base_dir must not be empty"))
	}
	if c.RootName == "" {
		errs = append(errs, errors.New("root_name must not be empty"))
	}
	if strings.ContainsAny(c.RootName, "/\x00") || c.RootName == "." || c.RootName == ".." {
		errs = append(errs, fmt.Errorf("root_name %q is not a valid directory name", c.RootName))
	}
	if c.ReadConcurrency < 0 {
		errs = append(errs, fmt.Errorf("read_concurrency must be >= 0, got %d", c.ReadConcurrency))
	}
	if c.FanoutThreshold <= 0 {
		errs = append(errs, fmt.Errorf("fanout_threshold must be > 0, got %d", c.FanoutThreshold))
	}
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
}

// Save writes the configuration as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
