package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	want := Default()
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load(\"\") mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
store:
  path: /var/lib/keel/index.db
frontend:
  temp_dir: /scratch
  boot_path:
    - /jdk/lib/rt.jar
    - /jdk/lib/jce.jar
analysis:
  verbose: true
  ignore_vname_roots: true
  override_corpus: mirror
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	want := &Config{
		Store: StoreConfig{Path: "/var/lib/keel/index.db"},
		Frontend: FrontendConfig{
			TempDir:  "/scratch",
			BootPath: []string{"/jdk/lib/rt.jar", "/jdk/lib/jce.jar"},
		},
		Analysis: AnalysisConfig{Verbose: true, IgnoreVNameRoots: true, OverrideCorpus: "mirror"},
		Log:      LogConfig{Level: "debug", Format: "json"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "analysis:\n  override_corpus: fromfile\n")
	t.Setenv("KEEL_ANALYSIS_OVERRIDE_CORPUS", "fromenv")
	t.Setenv("KEEL_FRONTEND_BOOT_PATH", strings.Join([]string{"/a.jar", "/b.jar"}, string(os.PathListSeparator)))
	t.Setenv("KEEL_STORE_PATH", "/tmp/env.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.Analysis.OverrideCorpus)
	assert.Equal(t, []string{"/a.jar", "/b.jar"}, cfg.Frontend.BootPath)
	assert.Equal(t, "/tmp/env.db", cfg.Store.Path)
}

func TestLoad_RelativeTempDirMadeAbsolute(t *testing.T) {
	path := writeConfig(t, "frontend:\n  temp_dir: scratch\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.Frontend.TempDir))
	assert.Equal(t, "scratch", filepath.Base(cfg.Frontend.TempDir))
}

func TestLoad_EmptyTempDirDisablesMaterialization(t *testing.T) {
	path := writeConfig(t, "frontend:\n  temp_dir: \"\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Frontend.TempDir)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "store: [", "parse"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad format", "log:\n  format: xml\n", "log.format"},
		{"empty store", "store:\n  path: \"\"\n", "store.path"},
		{"empty boot entry", "frontend:\n  boot_path: [\"\"]\n", "boot_path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "x", Format: "y"}}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"store.path", "log.level", "log.format"} {
		assert.Contains(t, err.Error(), want)
	}
}
