package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Ning0612/typnote/internal/domain"
	"github.com/Ning0612/typnote/internal/tree"
)

// EnvPrefix prefixes environment overrides, e.g. TYPNOTE_TREE_MAX_DEPTH
const EnvPrefix = "TYPNOTE"

// DefaultConfigPaths returns the directories searched for config.yaml
func DefaultConfigPaths() []string {
	paths := []string{
		".",
		"./configs",
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "typnote"))
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "typnote"))
		paths = append(paths, filepath.Join(homeDir, ".typnote"))
	}

	return paths
}

// DefaultDataDir is where state lives when data_dir is not configured
func DefaultDataDir() string {
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "typnote")
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".typnote")
	}
	return ".typnote"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size_mb", 10)
	v.SetDefault("log.file.max_age_days", 28)
	v.SetDefault("log.file.max_backups", 3)
	v.SetDefault("log.file.compress", false)

	v.SetDefault("tree.failure_policy", "skip")
	v.SetDefault("tree.max_depth", 64)
	v.SetDefault("tree.hidden_prefix", ".")
	v.SetDefault("tree.ignore_file", tree.DefaultIgnoreFile)

	v.SetDefault("files.extension", ".typ")
	v.SetDefault("files.new_file_prefix", "New File")
	v.SetDefault("files.new_folder_prefix", "New Folder")

	v.SetDefault("watch.debounce", "300ms")
	v.SetDefault("watch.poll_interval", "0s")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration. With an empty path the default locations are
// searched and a missing file yields the defaults; an explicit path that
// does not exist is domain.ErrConfigNotFound.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		path = ExpandPath(path)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// no file in the search paths means defaults only
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
	}

	return decode(v)
}

// LoadFromString parses configuration from YAML content
func LoadFromString(yamlContent string) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(strings.NewReader(yamlContent)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	cfg.DataDir = ExpandPath(cfg.DataDir)
	if cfg.Log.File.Path != "" {
		cfg.Log.File.Path = ExpandPath(cfg.Log.File.Path)
	}
	for i := range cfg.Spaces {
		cfg.Spaces[i].RootPath = ExpandPath(cfg.Spaces[i].RootPath)
		cfg.Spaces[i] = cfg.Spaces[i].WithDefaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
