package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetDefaultOpener(t *testing.T) {
	expected := map[string]string{
		"darwin":  "open",
		"linux":   "xdg-open",
		"windows": "start",
	}

	opener := getDefaultOpener()

	if expectedOpener, ok := expected[runtime.GOOS]; ok {
		if opener != expectedOpener {
			t.Errorf("getDefaultOpener() = %s, want %s for %s", opener, expectedOpener, runtime.GOOS)
		}
	} else if opener != "open" {
		t.Errorf("getDefaultOpener() = %s, want 'open' for unknown OS", opener)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.API.BaseURL != "https://www.doomworld.com/idgames/api/api.php" {
		t.Errorf("API.BaseURL = %s", cfg.API.BaseURL)
	}
	if cfg.API.HTTPTimeout != 30*time.Second {
		t.Errorf("API.HTTPTimeout = %v, want 30s", cfg.API.HTTPTimeout)
	}
	if cfg.Cache.MaxSize != 5*1024*1024 {
		t.Errorf("Cache.MaxSize = %d, want 5 MiB", cfg.Cache.MaxSize)
	}
	if cfg.Cache.Version != 1 {
		t.Errorf("Cache.Version = %d, want 1", cfg.Cache.Version)
	}
	if cfg.Limits.NewFiles != 30 || cfg.Limits.NewVotes != 30 {
		t.Errorf("Limits = %+v, want 30/30", cfg.Limits)
	}

	ages := map[string]struct {
		got, want time.Duration
	}{
		"browse":    {cfg.MaxAge.Browse, 12 * time.Hour},
		"new_files": {cfg.MaxAge.NewFiles, 4 * time.Hour},
		"new_votes": {cfg.MaxAge.NewVotes, 4 * time.Hour},
		"details":   {cfg.MaxAge.Details, 24 * time.Hour},
		"search":    {cfg.MaxAge.Search, 12 * time.Hour},
	}
	for name, a := range ages {
		if a.got != a.want {
			t.Errorf("MaxAge.%s = %v, want %v", name, a.got, a.want)
		}
	}

	if cfg.Database.Timeout != 1*time.Second {
		t.Errorf("Database.Timeout = %v, want 1s", cfg.Database.Timeout)
	}
	if cfg.Media.DefaultOpener == "" {
		t.Error("Media.DefaultOpener should not be empty")
	}
	if cfg.Keys.Quit != "q" {
		t.Errorf("Keys.Quit = %s, want 'q'", cfg.Keys.Quit)
	}
}

func TestLoad_DefaultConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}
	if cfg.MaxAge.Details != 24*time.Hour {
		t.Errorf("MaxAge.Details = %v, want 24h", cfg.MaxAge.Details)
	}
	if !filepath.IsAbs(cfg.Cache.Dir) {
		t.Errorf("Cache.Dir should be absolute, got %s", cfg.Cache.Dir)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "test-config.toml")
	configContent := `
[api]
base_url = "http://localhost:9999/api.php"
http_timeout = "60s"
user_agent = "test-agent"

[cache]
dir = "/tmp/idgames-cache"
max_size = 1024

[max_age]
new_files = "10m"

[ui.colors]
primary = "#FF0000"
`

	if writeErr := os.WriteFile(configPath, []byte(configContent), 0o644); writeErr != nil {
		t.Fatal(writeErr)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:9999/api.php" {
		t.Errorf("API.BaseURL = %s", cfg.API.BaseURL)
	}
	if cfg.API.HTTPTimeout != 60*time.Second {
		t.Errorf("API.HTTPTimeout = %v, want 60s", cfg.API.HTTPTimeout)
	}
	if cfg.API.UserAgent != "test-agent" {
		t.Errorf("API.UserAgent = %s, want 'test-agent'", cfg.API.UserAgent)
	}
	if cfg.Cache.Dir != "/tmp/idgames-cache" {
		t.Errorf("Cache.Dir = %s", cfg.Cache.Dir)
	}
	if cfg.Cache.MaxSize != 1024 {
		t.Errorf("Cache.MaxSize = %d, want 1024", cfg.Cache.MaxSize)
	}
	if cfg.MaxAge.NewFiles != 10*time.Minute {
		t.Errorf("MaxAge.NewFiles = %v, want 10m", cfg.MaxAge.NewFiles)
	}
	// Keys absent from the file keep their defaults.
	if cfg.MaxAge.Browse != 12*time.Hour {
		t.Errorf("MaxAge.Browse = %v, want 12h", cfg.MaxAge.Browse)
	}
	if cfg.UI.Colors.Primary != "#FF0000" {
		t.Errorf("UI.Colors.Primary = %s, want '#FF0000'", cfg.UI.Colors.Primary)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("IDGAMES_CACHE_DIR", "/tmp/from-env")
	t.Setenv("IDGAMES_LIMITS_NEW_VOTES", "7")

	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cache.Dir != "/tmp/from-env" {
		t.Errorf("Cache.Dir = %s, want /tmp/from-env", cfg.Cache.Dir)
	}
	if cfg.Limits.NewVotes != 7 {
		t.Errorf("Limits.NewVotes = %d, want 7", cfg.Limits.NewVotes)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(configPath, []byte("[api\nbase_url ="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("Load() should fail on malformed TOML")
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := defaultConfig()
	cfg.API.UserAgent = "test-save-agent"
	cfg.Cache.Dir = "/test/cache"
	cfg.MaxAge.Search = 90 * time.Minute
	cfg.Keys.Quit = "x"

	savePath := filepath.Join(tmpDir, "nested", "saved-config.toml")
	if saveErr := Save(cfg, savePath); saveErr != nil {
		t.Fatalf("Save() error = %v", saveErr)
	}

	if _, statErr := os.Stat(savePath); os.IsNotExist(statErr) {
		t.Fatal("Save() did not create config file")
	}

	loaded, err := Load(savePath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.API.UserAgent != cfg.API.UserAgent {
		t.Errorf("Loaded API.UserAgent = %s, want %s", loaded.API.UserAgent, cfg.API.UserAgent)
	}
	if loaded.Cache.Dir != cfg.Cache.Dir {
		t.Errorf("Loaded Cache.Dir = %s, want %s", loaded.Cache.Dir, cfg.Cache.Dir)
	}
	if loaded.MaxAge.Search != 90*time.Minute {
		t.Errorf("Loaded MaxAge.Search = %v, want 1h30m", loaded.MaxAge.Search)
	}
	if loaded.Keys.Quit != "x" {
		t.Errorf("Loaded Keys.Quit = %s, want x", loaded.Keys.Quit)
	}
}

func TestGenerateDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "generated.toml")
	if genErr := GenerateDefaultConfig(configPath); genErr != nil {
		t.Fatalf("GenerateDefaultConfig() error = %v", genErr)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load generated config: %v", err)
	}
	if cfg.Search.DefaultCategory != "title" {
		t.Errorf("Generated config has Search.DefaultCategory = %s, want 'title'", cfg.Search.DefaultCategory)
	}
	if cfg.Cache.MaxSize != 5*1024*1024 {
		t.Errorf("Generated config has Cache.MaxSize = %d", cfg.Cache.MaxSize)
	}
}

func TestMarshal(t *testing.T) {
	data, err := Marshal(defaultConfig())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	out := string(data)
	for _, want := range []string{"[api]", "[cache]", "[max_age]", "24h0m0s", "new_files = 30"} {
		if !strings.Contains(out, want) {
			t.Errorf("Marshal() output missing %q:\n%s", want, out)
		}
	}
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()

	if cfg == nil {
		t.Fatal("TestConfig() returned nil")
	}
	if cfg.API.UserAgent != "idgames-test/1.0" {
		t.Errorf("TestConfig API.UserAgent = %s, want 'idgames-test/1.0'", cfg.API.UserAgent)
	}
	if cfg.Cache.Dir != "" {
		t.Errorf("TestConfig Cache.Dir = %s, want empty", cfg.Cache.Dir)
	}
}
