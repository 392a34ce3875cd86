package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/park285/chessmaster/internal/obslog"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

type AppConfig struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	StoreBackend string
	RedisURL     string
	BadgerDir    string
	DatabaseURL  string
	GameTTL      time.Duration

	MessagesDir    string
	AllowedOrigins []string

	Log obslog.Options
}

// fileConfig is the YAML layout of CHESS_CONFIG. Durations are Go duration
// strings ("24h").
type fileConfig struct {
	HTTPAddr        string   `yaml:"http_addr"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
	StoreBackend    string   `yaml:"store_backend"`
	RedisURL        string   `yaml:"redis_url"`
	BadgerDir       string   `yaml:"badger_dir"`
	DatabaseURL     string   `yaml:"database_url"`
	GameTTL         string   `yaml:"game_ttl"`
	MessagesDir     string   `yaml:"messages_dir"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	Log             struct {
		Level   string `yaml:"level"`
		Format  string `yaml:"format"`
		Console *bool  `yaml:"console"`
		File    string `yaml:"file"`
		Caller  bool   `yaml:"caller"`
	} `yaml:"log"`
}

func defaults() *AppConfig {
	return &AppConfig{
		HTTPAddr:        ":3000",
		ShutdownTimeout: 10 * time.Second,
		StoreBackend:    BackendMemory,
		GameTTL:         24 * time.Hour,
		Log:             obslog.DefaultOptions(),
	}
}

// Load applies defaults, then the YAML file named by CHESS_CONFIG (if any),
// then environment overrides, and validates the result.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CHESS_CONFIG")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads only the YAML file on top of defaults.
func LoadFile(path string) (*AppConfig, error) {
	cfg := defaults()
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *AppConfig) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.HTTPAddr, fc.HTTPAddr)
	setString(&cfg.StoreBackend, strings.ToLower(fc.StoreBackend))
	setString(&cfg.RedisURL, fc.RedisURL)
	setString(&cfg.BadgerDir, fc.BadgerDir)
	setString(&cfg.DatabaseURL, fc.DatabaseURL)
	setString(&cfg.MessagesDir, fc.MessagesDir)
	if err := setDuration(&cfg.GameTTL, fc.GameTTL, "game_ttl"); err != nil {
		return err
	}
	if err := setDuration(&cfg.ShutdownTimeout, fc.ShutdownTimeout, "shutdown_timeout"); err != nil {
		return err
	}
	if len(fc.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = cleanList(fc.AllowedOrigins)
	}

	setString(&cfg.Log.Level, fc.Log.Level)
	setString(&cfg.Log.Format, fc.Log.Format)
	setString(&cfg.Log.File, fc.Log.File)
	if fc.Log.Console != nil {
		cfg.Log.Console = *fc.Log.Console
	}
	if fc.Log.Caller {
		cfg.Log.Caller = true
	}
	return nil
}

func (cfg *AppConfig) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	} else if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("PORT must be numeric: %q", v)
		}
		cfg.HTTPAddr = ":" + v
	}

	setString(&cfg.StoreBackend, strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND"))))
	setString(&cfg.RedisURL, strings.TrimSpace(os.Getenv("REDIS_URL")))
	setString(&cfg.BadgerDir, strings.TrimSpace(os.Getenv("BADGER_DIR")))
	setString(&cfg.DatabaseURL, strings.TrimSpace(os.Getenv("DATABASE_URL")))
	setString(&cfg.MessagesDir, strings.TrimSpace(os.Getenv("MESSAGES_DIR")))

	if v := strings.TrimSpace(os.Getenv("GAME_TTL")); v != "" {
		// plain integers are seconds
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GameTTL = time.Duration(n) * time.Second
		} else if err := setDuration(&cfg.GameTTL, v, "GAME_TTL"); err != nil {
			return err
		}
	}
	if v := strings.TrimSpace(os.Getenv("SHUTDOWN_TIMEOUT")); v != "" {
		if err := setDuration(&cfg.ShutdownTimeout, v, "SHUTDOWN_TIMEOUT"); err != nil {
			return err
		}
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		cfg.AllowedOrigins = cleanList(strings.Split(v, ","))
	}

	setString(&cfg.Log.Level, strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	setString(&cfg.Log.Format, strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if v := strings.TrimSpace(os.Getenv("LOG_TO_CONSOLE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Console = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FILE")); v != "" {
		cfg.Log.File = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_CALLER")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Caller = b
		}
	}
	return nil
}

// Validate rejects inconsistent settings.
func (cfg *AppConfig) Validate() error {
	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis store")
		}
	case BackendBadger:
		if cfg.BadgerDir == "" {
			return errors.New("BADGER_DIR is required for the badger store")
		}
	default:
		return fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if cfg.GameTTL < 0 {
		return errors.New("game TTL must not be negative")
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		return errors.New("HTTP address is required")
	}
	return nil
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setDuration(dst *time.Duration, v, name string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}

func cleanList(in []string) []string {
	var out []string
	for _, p := range in {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
