package config

import (
	"os"
	"path/filepath"
	"testing"
)

// isolate points HOME and the working directory at fresh temp dirs and
// clears every env override.
func isolate(t *testing.T) (homeDir, workspace string) {
	t.Helper()
	homeDir = t.TempDir()
	workspace = t.TempDir()
	t.Setenv("HOME", homeDir)
	for _, key := range []string{configDirEnvKey, trustProjectConfigEnvKey, apiURLEnvKey, dbPathEnvKey, backendEnvKey, logLevelEnvKey} {
		t.Setenv(key, "")
	}
	t.Chdir(workspace)
	return homeDir, workspace
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "" {
		t.Fatalf("expected empty db path, got %q", cfg.DBPath)
	}
	if cfg.Backend != BackendSQLite {
		t.Fatalf("expected sqlite backend, got %q", cfg.Backend)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.TasksPerPage != 20 {
		t.Fatalf("expected 20 tasks per page, got %d", cfg.TasksPerPage)
	}
	if cfg.RateLimit.RPS != 20 || cfg.RateLimit.Burst != 40 {
		t.Fatalf("unexpected rate limit defaults %+v", cfg.RateLimit)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	writeFile(t, path, `api_url = "http://localhost:9999"
log_level = "warn"
backend = "memory"
tasks_per_page = 50

[rate_limit]
rps = 2.5
burst = 5
`)

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://localhost:9999" || cfg.LogLevel != "warn" || cfg.Backend != BackendMemory {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.TasksPerPage != 50 || cfg.RateLimit.RPS != 2.5 || cfg.RateLimit.Burst != 5 {
		t.Fatalf("unexpected numeric config %+v", cfg)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/.tudor.toml", &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("defaults should be preserved")
	}
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	writeFile(t, path, "api_url = \n")
	cfg := Default()
	if err := loadFile(path, &cfg); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range []string{"api_url", "db_path", "backend", "log_level", "tasks_per_page", "rate_limit.rps", "rate_limit.burst"} {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q to be allowed", key)
		}
	}
	if IsAllowedKey("invalid") {
		t.Fatal("expected 'invalid' to not be allowed")
	}
}

func TestGetKey(t *testing.T) {
	cfg := Config{
		APIURL:       "http://test:1234",
		DBPath:       "/tmp/test.db",
		Backend:      BackendMemory,
		LogLevel:     "warn",
		TasksPerPage: 7,
		RateLimit:    RateLimitConfig{RPS: 1.5, Burst: 3},
	}

	cases := map[string]string{
		"api_url":          "http://test:1234",
		"db_path":          "/tmp/test.db",
		"backend":          "memory",
		"log_level":        "warn",
		"tasks_per_page":   "7",
		"rate_limit.rps":   "1.5",
		"rate_limit.burst": "3",
	}
	for key, want := range cases {
		got, err := cfg.Get(key)
		if err != nil || got != want {
			t.Fatalf("%s: expected %q, got %q (err: %v)", key, want, got, err)
		}
	}
	if _, err := cfg.Get("nope"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestSetKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "new.toml")
	writes := [][2]string{
		{"api_url", "http://keep"},
		{"log_level", "error"},
		{"tasks_per_page", "15"},
		{"rate_limit.burst", "9"},
		{"rate_limit.rps", "0.5"},
		{"backend", "Memory"},
	}
	for _, kv := range writes {
		if err := SetKey(path, kv[0], kv[1]); err != nil {
			t.Fatalf("set %s: %v", kv[0], err)
		}
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://keep" || cfg.LogLevel != "error" || cfg.Backend != BackendMemory {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.TasksPerPage != 15 || cfg.RateLimit.Burst != 9 || cfg.RateLimit.RPS != 0.5 {
		t.Fatalf("unexpected numeric config %+v", cfg)
	}
}

func TestSetKeyRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.toml")
	cases := [][2]string{
		{"invalid_key", "value"},
		{"tasks_per_page", "0"},
		{"tasks_per_page", "many"},
		{"rate_limit.rps", "-1"},
		{"backend", "postgres"},
	}
	for _, kv := range cases {
		if err := SetKey(path, kv[0], kv[1]); err == nil {
			t.Fatalf("expected error setting %s=%s", kv[0], kv[1])
		}
	}
}

func TestConfigDirOverridePaths(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	t.Setenv(configDirEnvKey, dir)

	globalPath, err := GlobalPath()
	if err != nil {
		t.Fatalf("global path: %v", err)
	}
	if globalPath != filepath.Join(dir, configFileName) {
		t.Fatalf("unexpected global path: %s", globalPath)
	}
	projectPath, err := ProjectPath()
	if err != nil {
		t.Fatalf("project path: %v", err)
	}
	if projectPath != filepath.Join(dir, configFileName) {
		t.Fatalf("unexpected project path: %s", projectPath)
	}
}

func TestLoadConfigDirOverride(t *testing.T) {
	homeDir, workspace := isolate(t)
	configDir := t.TempDir()
	writeFile(t, filepath.Join(configDir, configFileName), "api_url = \"http://127.0.0.1:9001\"\n")
	writeFile(t, filepath.Join(homeDir, configFileName), "api_url = \"http://home\"\n")
	t.Setenv(configDirEnvKey, configDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:9001" {
		t.Fatalf("expected config-dir api_url, got %q", cfg.APIURL)
	}
	if cfg.DBPath != filepath.Join(workspace, DefaultDBFileName) {
		t.Fatalf("expected default workspace db path, got %q", cfg.DBPath)
	}
}

func TestEnvOverrides(t *testing.T) {
	homeDir, _ := isolate(t)
	writeFile(t, filepath.Join(homeDir, configFileName), "api_url = \"http://home\"\nlog_level = \"error\"\n")
	t.Setenv(apiURLEnvKey, "http://example.com:8080")
	t.Setenv(dbPathEnvKey, "/tmp/override.db")
	t.Setenv(backendEnvKey, "MEMORY")
	t.Setenv(logLevelEnvKey, "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://example.com:8080" || cfg.DBPath != "/tmp/override.db" {
		t.Fatalf("expected env overrides, got %+v", cfg)
	}
	if cfg.Backend != BackendMemory || cfg.LogLevel != "debug" {
		t.Fatalf("expected env backend and log level, got %q %q", cfg.Backend, cfg.LogLevel)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	isolate(t)
	t.Setenv(backendEnvKey, "postgres")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported backend")
	}
}

func TestLoadNormalizesEmptyValues(t *testing.T) {
	homeDir, _ := isolate(t)
	writeFile(t, filepath.Join(homeDir, configFileName), "log_level = \"\"\ntasks_per_page = 0\n[rate_limit]\nburst = -1\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel || cfg.TasksPerPage != DefaultTasksPerPage || cfg.RateLimit.Burst != DefaultRateLimitBurst {
		t.Fatalf("expected defaults restored, got %+v", cfg)
	}
}

func TestProjectConfigTrust(t *testing.T) {
	cases := []struct {
		name    string
		trust   string
		wantURL string
		trusted bool
	}{
		{"ignored by default", "", "http://home", false},
		{"applied when trusted", "true", "http://project", true},
		{"ignored on invalid value", "definitely-not-bool", "http://home", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			homeDir, workspace := isolate(t)
			writeFile(t, filepath.Join(homeDir, configFileName), "api_url = \"http://home\"\n")
			writeFile(t, filepath.Join(workspace, configFileName), "api_url = \"http://project\"\n")
			t.Setenv(trustProjectConfigEnvKey, tc.trust)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.APIURL != tc.wantURL {
				t.Fatalf("expected %q, got %q", tc.wantURL, cfg.APIURL)
			}
			if got := cfg.TrustedProjectConfigPath != ""; got != tc.trusted {
				t.Fatalf("expected trusted=%v, got path %q", tc.trusted, cfg.TrustedProjectConfigPath)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	_, workspace := isolate(t)
	const marker = "TUDOR_DOTENV_MARKER"
	t.Setenv(marker, "")
	os.Unsetenv(marker)
	t.Setenv(dbPathEnvKey, "/real/env.db")
	writeFile(t, filepath.Join(workspace, dotEnvFileName), marker+"=from-file\nTUDOR_DB=/dotenv.db\n")

	if err := LoadDotEnv(workspace); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if got := os.Getenv(marker); got != "from-file" {
		t.Fatalf("expected dotenv value, got %q", got)
	}
	if got := os.Getenv(dbPathEnvKey); got != "/real/env.db" {
		t.Fatalf("expected real env to win, got %q", got)
	}

	if err := LoadDotEnv(t.TempDir()); err != nil {
		t.Fatalf("missing .env should not error: %v", err)
	}
}
