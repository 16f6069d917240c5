package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Import.Mode != "sync" {
		t.Errorf("expected sync mode, got %s", cfg.Import.Mode)
	}
	if cfg.Import.Workers != 0 {
		t.Errorf("expected 0 workers, got %d", cfg.Import.Workers)
	}
	if cfg.Import.GenerateNormals {
		t.Error("expected normal generation to be off by default")
	}
	if cfg.Import.Shaders != scene.DefaultShaderSet() {
		t.Error("expected default shader set")
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	yamlContent := `
import:
  mode: async
  workers: 4
  generate_normals: true
  search_paths:
    - ./assets
    - /opt/textures
  shaders:
    unlit: "Custom/Unlit"

logging:
  level: "debug"
  log_file: "import.log"
  max_backups: 5
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Import.Mode != "async" || cfg.Import.Workers != 4 || !cfg.Import.GenerateNormals {
		t.Errorf("unexpected import config %+v", cfg.Import)
	}
	if len(cfg.Import.SearchPaths) != 2 || cfg.Import.SearchPaths[1] != "/opt/textures" {
		t.Errorf("unexpected search paths %v", cfg.Import.SearchPaths)
	}
	if cfg.Import.Shaders.Unlit != "Custom/Unlit" {
		t.Errorf("expected custom unlit shader, got %s", cfg.Import.Shaders.Unlit)
	}
	// Unset shader names keep their defaults.
	if cfg.Import.Shaders.MetallicRoughness != scene.DefaultShaderSet().MetallicRoughness {
		t.Errorf("metallic shader should keep its default, got %s", cfg.Import.Shaders.MetallicRoughness)
	}

	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "import.log" {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.Logging.MaxBackups != 5 || cfg.Logging.MaxSizeMB != 50 {
		t.Errorf("unexpected rotation settings %+v", cfg.Logging)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
import:
  workers: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := Load("/nonexistent/path/" + FileName); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Import.Mode = "parallel"
	cfg.Import.Workers = -1
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, field := range []string{"import.mode", "import.workers", "logging.level"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error should mention %s: %v", field, err)
		}
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("HOME", tmpDir)

	// No config file exists - should return empty
	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, FileName), []byte("import:\n  workers: 2\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Errorf("expected to find %s in current directory", FileName)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Import.Workers != 2 {
		t.Errorf("expected workers from discovered file, got %d", cfg.Import.Workers)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	cfg := Default()
	cfg.Import.SearchPaths = []string{"textures"}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if len(loaded.Import.SearchPaths) != 1 || loaded.Import.SearchPaths[0] != "textures" {
		t.Errorf("search paths did not round trip: %v", loaded.Import.SearchPaths)
	}
}

func TestFlagsApply(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"-debug", "-async", "-workers", "8", "-log", "out.log"}); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	cfg := Default()
	flags.Apply(cfg)

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Import.Mode != "async" || cfg.Import.Workers != 8 {
		t.Errorf("unexpected import config %+v", cfg.Import)
	}
	if cfg.Logging.LogFile != "out.log" {
		t.Errorf("expected log file out.log, got %s", cfg.Logging.LogFile)
	}
	if cfg.Import.GenerateNormals {
		t.Error("unset flags must not change the config")
	}
}
