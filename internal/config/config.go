package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL       = "http://127.0.0.1:7333"
	DefaultDBFileName   = ".tudor.db"
	DefaultLogLevel     = "info"
	DefaultTasksPerPage = 20

	DefaultRateLimitRPS   = 20.0
	DefaultRateLimitBurst = 40

	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	configFileName = ".tudor.toml"
	dotEnvFileName = ".env"

	configDirEnvKey          = "TUDOR_CONFIG_DIR"
	trustProjectConfigEnvKey = "TUDOR_TRUST_PROJECT_CONFIG"
	apiURLEnvKey             = "TUDOR_API_URL"
	dbPathEnvKey             = "TUDOR_DB"
	backendEnvKey            = "TUDOR_BACKEND"
	logLevelEnvKey           = "TUDOR_LOG_LEVEL"
)

// RateLimitConfig bounds request throughput per client address.
type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

// Config defines runtime configuration for tudor.
type Config struct {
	APIURL                   string          `toml:"api_url"`
	DBPath                   string          `toml:"db_path"`
	Backend                  string          `toml:"backend"`
	LogLevel                 string          `toml:"log_level"`
	TasksPerPage             int             `toml:"tasks_per_page"`
	RateLimit                RateLimitConfig `toml:"rate_limit"`
	TrustedProjectConfigPath string          `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:       DefaultAPIURL,
		Backend:      BackendSQLite,
		LogLevel:     DefaultLogLevel,
		TasksPerPage: DefaultTasksPerPage,
		RateLimit: RateLimitConfig{
			RPS:   DefaultRateLimitRPS,
			Burst: DefaultRateLimitBurst,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

// LoadDotEnv exports the variables of dir/.env into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, dotEnvFileName)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"backend",
	"log_level",
	"tasks_per_page",
	"rate_limit.rps",
	"rate_limit.burst",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	return slices.Contains(allowedKeys, key)
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "backend":
		return c.Backend, nil
	case "log_level":
		return c.LogLevel, nil
	case "tasks_per_page":
		return strconv.Itoa(c.TasksPerPage), nil
	case "rate_limit.rps":
		return strconv.FormatFloat(c.RateLimit.RPS, 'f', -1, 64), nil
	case "rate_limit.burst":
		return strconv.Itoa(c.RateLimit.Burst), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if backend := strings.TrimSpace(os.Getenv(backendEnvKey)); backend != "" {
		cfg.Backend = backend
	}
	if level := strings.TrimSpace(os.Getenv(logLevelEnvKey)); level != "" {
		cfg.LogLevel = level
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case "":
		c.Backend = BackendSQLite
	case BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unsupported backend %q (want %s or %s)", c.Backend, BackendSQLite, BackendMemory)
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.TasksPerPage <= 0 {
		c.TasksPerPage = DefaultTasksPerPage
	}
	if c.RateLimit.RPS <= 0 {
		c.RateLimit.RPS = DefaultRateLimitRPS
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = DefaultRateLimitBurst
	}
	return nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "tasks_per_page", "rate_limit.burst":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return int64(parsed), nil
	case "rate_limit.rps":
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive number", key)
		}
		return parsed, nil
	case "backend":
		value = strings.ToLower(value)
		if value != BackendSQLite && value != BackendMemory {
			return nil, fmt.Errorf("%s must be %s or %s", key, BackendSQLite, BackendMemory)
		}
		return value, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}
