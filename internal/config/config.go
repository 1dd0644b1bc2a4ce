package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Ning0612/typnote/internal/domain"
	"github.com/Ning0612/typnote/internal/logger"
	"github.com/Ning0612/typnote/internal/mutator"
	"github.com/Ning0612/typnote/internal/tree"
)

// Config is the complete typnote configuration
type Config struct {
	// DataDir holds the settings database, lock files and logs
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	Log   LogConfig   `mapstructure:"log" yaml:"log"`
	Tree  TreeConfig  `mapstructure:"tree" yaml:"tree"`
	Files FilesConfig `mapstructure:"files" yaml:"files"`
	Watch WatchConfig `mapstructure:"watch" yaml:"watch"`

	// Spaces are registered on first run when the settings store has none
	Spaces []domain.Space `mapstructure:"spaces" yaml:"spaces"`
}

// LogConfig controls logging
type LogConfig struct {
	Level  string        `mapstructure:"level" yaml:"level"`
	Format string        `mapstructure:"format" yaml:"format"`
	File   LogFileConfig `mapstructure:"file" yaml:"file"`
}

// LogFileConfig controls the rotating log file
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// TreeConfig controls the tree loader
type TreeConfig struct {
	FailurePolicy string `mapstructure:"failure_policy" yaml:"failure_policy"`
	MaxDepth      int    `mapstructure:"max_depth" yaml:"max_depth"`
	HiddenPrefix  string `mapstructure:"hidden_prefix" yaml:"hidden_prefix"`
	IgnoreFile    string `mapstructure:"ignore_file" yaml:"ignore_file"`
}

// FilesConfig controls generated names
type FilesConfig struct {
	Extension       string `mapstructure:"extension" yaml:"extension"`
	NewFilePrefix   string `mapstructure:"new_file_prefix" yaml:"new_file_prefix"`
	NewFolderPrefix string `mapstructure:"new_folder_prefix" yaml:"new_folder_prefix"`
}

// WatchConfig controls the watch command
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`

	// PollInterval adds a periodic full rescan; zero disables it
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// Validate checks values that would otherwise fail deep inside a command
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir cannot be empty", domain.ErrConfigInvalid)
	}
	if _, err := tree.ParseFailurePolicy(c.Tree.FailurePolicy); err != nil {
		return err
	}
	if c.Tree.MaxDepth <= 0 {
		return fmt.Errorf("%w: tree.max_depth must be positive, got %d", domain.ErrConfigInvalid, c.Tree.MaxDepth)
	}
	if c.Files.NewFilePrefix == "" || c.Files.NewFolderPrefix == "" {
		return fmt.Errorf("%w: files.new_file_prefix and files.new_folder_prefix cannot be empty", domain.ErrConfigInvalid)
	}
	if strings.ContainsAny(c.Files.Extension, `/\`) {
		return fmt.Errorf("%w: files.extension %q contains a path separator", domain.ErrConfigInvalid, c.Files.Extension)
	}
	if c.Watch.Debounce < 0 || c.Watch.PollInterval < 0 {
		return fmt.Errorf("%w: watch durations cannot be negative", domain.ErrConfigInvalid)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", domain.ErrConfigInvalid, c.Log.Format)
	}

	names := make(map[string]bool)
	for _, sp := range c.Spaces {
		if err := sp.Validate(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
		if names[sp.Name] {
			return fmt.Errorf("%w: duplicate space name: %s", domain.ErrConfigInvalid, sp.Name)
		}
		names[sp.Name] = true
	}
	return nil
}

// WriteYAML writes the effective configuration in config file form
func (c *Config) WriteYAML(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return encoder.Close()
}

// LoaderOptions converts the tree section
func (c *Config) LoaderOptions() tree.Options {
	policy, _ := tree.ParseFailurePolicy(c.Tree.FailurePolicy)
	return tree.Options{
		FailurePolicy: policy,
		MaxDepth:      c.Tree.MaxDepth,
		HiddenPrefix:  c.Tree.HiddenPrefix,
		IgnoreFile:    c.Tree.IgnoreFile,
	}
}

// MutatorOptions converts the files section
func (c *Config) MutatorOptions() mutator.Options {
	return mutator.Options{
		Extension:       c.Files.Extension,
		NewFilePrefix:   c.Files.NewFilePrefix,
		NewFolderPrefix: c.Files.NewFolderPrefix,
	}
}

// LoggerConfig converts the log section. Output goes to stderr, plus the
// rotating file when enabled.
func (c *Config) LoggerConfig() logger.Config {
	cfg := logger.Config{
		Level:   logger.ParseLevel(c.Log.Level),
		Format:  logger.ParseFormat(c.Log.Format),
		Outputs: []logger.OutputConfig{{Type: logger.OutputStderr}},
		File: logger.FileConfig{
			Enabled:    c.Log.File.Enabled,
			Path:       c.Log.File.Path,
			MaxSizeMB:  c.Log.File.MaxSizeMB,
			MaxAgeDays: c.Log.File.MaxAgeDays,
			MaxBackups: c.Log.File.MaxBackups,
			Compress:   c.Log.File.Compress,
		},
	}
	if cfg.File.Enabled {
		if cfg.File.Path == "" {
			cfg.File.Path = filepath.Join(c.DataDir, "logs", "typnote.log")
		}
		cfg.Outputs = append(cfg.Outputs, logger.OutputConfig{Type: logger.OutputFile})
	}
	return cfg
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			if len(path) == 1 {
				path = home
			} else if path[1] == '/' || path[1] == filepath.Separator {
				path = filepath.Join(home, path[2:])
			}
		}
	}
	return filepath.Clean(os.ExpandEnv(path))
}
