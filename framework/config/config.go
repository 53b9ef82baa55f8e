package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the typed bootstrap configuration read from the environment.
type Config struct {
	App  AppConfig
	Path PathConfig
	Log  LogConfig
}

type AppConfig struct {
	Name      string
	Namespace string
	Env       string // prod | dev | testing
	Debug     bool
	URL       string
	Port      string
	Key       string
}

// PathConfig locates the public root, the application tree and the
// application config file (relative to App).
type PathConfig struct {
	Public string
	App    string
	Conf   string
}

type LogConfig struct {
	Level  string
	Format string
}

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid")

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:      env("APP_NAME", "Peak"),
			Namespace: env("APP_NAMESPACE", "App"),
			Env:       env("APP_ENV", "prod"),
			Debug:     envBool("APP_DEBUG", false),
			URL:       env("APP_URL", "http://localhost"),
			Port:      env("APP_PORT", "8000"),
			Key:       env("APP_KEY", ""),
		},
		Path: PathConfig{
			Public: env("APP_PATH_PUBLIC", "public"),
			App:    env("APP_PATH", "app"),
			Conf:   env("APP_CONF", "config.yml"),
		},
		Log: LogConfig{
			Level:  env("LOG_LEVEL", "info"),
			Format: env("LOG_FORMAT", "text"),
		},
	}
}

// Validate checks the values the application cannot boot without.
func (c *Config) Validate() error {
	required := []struct {
		name, value string
	}{
		{"path.public (APP_PATH_PUBLIC)", c.Path.Public},
		{"path.app (APP_PATH)", c.Path.App},
		{"env (APP_ENV)", c.App.Env},
		{"conf (APP_CONF)", c.Path.Conf},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s is missing", ErrInvalid, r.name)
		}
	}
	return nil
}

// ConfFile returns the path of the application config file.
func (c *Config) ConfFile() string {
	if c.Path.App == "" {
		return c.Path.Conf
	}
	return c.Path.App + string(os.PathSeparator) + c.Path.Conf
}

// Items returns the bootstrap values in the dot-notation layout used by
// Repository, so both can be merged.
func (c *Config) Items() map[string]any {
	return map[string]any{
		"ns":   c.App.Namespace,
		"env":  c.App.Env,
		"conf": c.Path.Conf,
		"path": map[string]any{
			"public": c.Path.Public,
			"app":    c.Path.App,
		},
	}
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
