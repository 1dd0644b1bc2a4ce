package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/typnote/internal/domain"
	"github.com/Ning0612/typnote/internal/logger"
	"github.com/Ning0612/typnote/internal/tree"
)

func TestLoadFromString_Defaults(t *testing.T) {
	cfg, err := LoadFromString("data_dir: /tmp/typnote\n")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/typnote", cfg.DataDir)
	assert.Equal(t, "skip", cfg.Tree.FailurePolicy)
	assert.Equal(t, 64, cfg.Tree.MaxDepth)
	assert.Equal(t, ".", cfg.Tree.HiddenPrefix)
	assert.Equal(t, ".typnoteignore", cfg.Tree.IgnoreFile)
	assert.Equal(t, ".typ", cfg.Files.Extension)
	assert.Equal(t, "New File", cfg.Files.NewFilePrefix)
	assert.Equal(t, "New Folder", cfg.Files.NewFolderPrefix)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Zero(t, cfg.Watch.PollInterval)
	assert.Empty(t, cfg.Spaces)
}

func TestLoadFromString_Overrides(t *testing.T) {
	cfg, err := LoadFromString(`
data_dir: /var/typnote
log:
  level: debug
  format: json
tree:
  failure_policy: abort
  max_depth: 8
  hidden_prefix: "_"
  ignore_file: ""
files:
  extension: .md
watch:
  debounce: 1s
  poll_interval: 30s
spaces:
  - name: Notes
    root_path: /home/me/notes
  - name: Work
    icon: "💼"
    root_path: /srv/work
`)
	require.NoError(t, err)

	opts := cfg.LoaderOptions()
	assert.Equal(t, tree.PolicyAbort, opts.FailurePolicy)
	assert.Equal(t, 8, opts.MaxDepth)
	assert.Equal(t, "_", opts.HiddenPrefix)
	assert.Empty(t, opts.IgnoreFile)

	mopts := cfg.MutatorOptions()
	assert.Equal(t, ".md", mopts.Extension)
	assert.Equal(t, "New File", mopts.NewFilePrefix)

	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, 30*time.Second, cfg.Watch.PollInterval)

	require.Len(t, cfg.Spaces, 2)
	assert.Equal(t, domain.DefaultSpaceIcon, cfg.Spaces[0].Icon)
	assert.Equal(t, filepath.Clean("/home/me/notes"), cfg.Spaces[0].RootPath)
	assert.Equal(t, "💼", cfg.Spaces[1].Icon)

	lc := cfg.LoggerConfig()
	assert.Equal(t, logger.LevelDebug, lc.Level)
	assert.Equal(t, logger.FormatJSON, lc.Format)
	assert.Len(t, lc.Outputs, 1)
}

func TestLoadFromString_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown policy", "tree:\n  failure_policy: retry\n"},
		{"zero depth", "tree:\n  max_depth: 0\n"},
		{"negative depth", "tree:\n  max_depth: -3\n"},
		{"empty prefix", "files:\n  new_file_prefix: \"\"\n"},
		{"separator in extension", "files:\n  extension: a/b\n"},
		{"negative debounce", "watch:\n  debounce: -1s\n"},
		{"unknown format", "log:\n  format: xml\n"},
		{"space without root", "spaces:\n  - name: Notes\n"},
		{"duplicate space", "spaces:\n  - {name: A, root_path: /a}\n  - {name: A, root_path: /b}\n"},
		{"malformed", "tree: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromString(tt.yaml)
			assert.ErrorIs(t, err, domain.ErrConfigInvalid)
		})
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "data_dir: " + filepath.ToSlash(dir) + "\ntree:\n  max_depth: 5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Tree.MaxDepth)
	assert.Equal(t, filepath.Clean(dir), cfg.DataDir)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tree:\n  max_depth: 5\n"), 0644))
	t.Setenv("TYPNOTE_TREE_MAX_DEPTH", "9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Tree.MaxDepth)
}

func TestLoggerConfig_FileDefaultsUnderDataDir(t *testing.T) {
	cfg, err := LoadFromString("data_dir: /tmp/tn\nlog:\n  file:\n    enabled: true\n")
	require.NoError(t, err)

	lc := cfg.LoggerConfig()
	require.Len(t, lc.Outputs, 2)
	assert.Equal(t, logger.OutputFile, lc.Outputs[1].Type)
	assert.Equal(t, filepath.Join("/tmp/tn", "logs", "typnote.log"), lc.File.Path)
	assert.Equal(t, 10, lc.File.MaxSizeMB)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("TYPNOTE_TEST_DIR", "/opt/x")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, filepath.Clean(home), ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "notes"), ExpandPath("~/notes"))
	assert.Equal(t, filepath.Clean("/opt/x/sub"), ExpandPath("$TYPNOTE_TEST_DIR/sub"))
	assert.Equal(t, filepath.Clean("/a/b"), ExpandPath("/a/./b/"))
}

func TestDefaultConfigPaths(t *testing.T) {
	paths := DefaultConfigPaths()
	require.NotEmpty(t, paths)
	assert.Equal(t, ".", paths[0])
	for _, p := range paths[2:] {
		assert.Contains(t, p, "typnote")
	}
}

func TestWriteYAML_Reloads(t *testing.T) {
	cfg, err := LoadFromString(`
data_dir: /var/lib/typnote
tree:
  max_depth: 12
watch:
  debounce: 750ms
spaces:
  - name: Notes
    root_path: /home/me/notes
`)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cfg.WriteYAML(&buf))
	assert.Contains(t, buf.String(), "max_depth: 12")
	assert.Contains(t, buf.String(), "debounce: 750ms")
	assert.Contains(t, buf.String(), "root_path: /home/me/notes")

	again, err := LoadFromString(buf.String())
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}
