// Package config provides YAML configuration loading with environment
// variable override, plus the hive's own configuration schema.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/llm"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/storage"
)

// Server modes.
const (
	ModeMCP  = "mcp"
	ModeREST = "rest"
	ModeDual = "dual"
)

// DevJWTSecret is the compiled-in development fallback. It must never be
// used outside development; Validate rejects it unless HIVE_ENV=dev.
const DevJWTSecret = "hive-dev-secret-do-not-ship"

// Config is the full configuration for the hive server.
type Config struct {
	Server struct {
		Name    string `yaml:"name" env:"HIVE_SERVER_NAME"`
		Version string `yaml:"version"`
		Mode    string `yaml:"mode" env:"HIVE_MODE"`
		Port    int    `yaml:"port" env:"HIVE_PORT"`
	} `yaml:"server"`

	Auth struct {
		JWTSecret     string `yaml:"jwt_secret" env:"HIVE_JWT_SECRET"`
		TokenLifetime string `yaml:"token_lifetime" env:"HIVE_TOKEN_LIFETIME"`
		CallbackBase  string `yaml:"callback_base" env:"HIVE_CALLBACK_BASE"`
	} `yaml:"auth"`

	OAuth struct {
		Google struct {
			ClientID     string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
			ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
		} `yaml:"google"`
		GitHub struct {
			ClientID     string `yaml:"client_id" env:"GITHUB_CLIENT_ID"`
			ClientSecret string `yaml:"client_secret" env:"GITHUB_CLIENT_SECRET"`
		} `yaml:"github"`
	} `yaml:"oauth"`

	LLM llm.Config `yaml:"llm"`

	Database storage.Config `yaml:"database"`

	Stripe struct {
		SecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
		WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
		FrontendURL   string `yaml:"frontend_url" env:"FRONTEND_URL"`
	} `yaml:"stripe"`

	SMTP struct {
		Host     string `yaml:"host" env:"SMTP_HOST"`
		Port     string `yaml:"port" env:"SMTP_PORT"`
		From     string `yaml:"from" env:"SMTP_FROM"`
		Password string `yaml:"password" env:"SMTP_PASSWORD"`
	} `yaml:"smtp"`

	RateLimit struct {
		WindowSeconds int `yaml:"window_seconds" env:"HIVE_RATE_WINDOW"`
		MaxRequests   int `yaml:"max_requests" env:"HIVE_RATE_MAX"`
	} `yaml:"rate_limit"`
}

// Default returns a Config with development defaults.
func Default() Config {
	var cfg Config
	cfg.Server.Name = "consulting-hive"
	cfg.Server.Version = "1.0.0"
	cfg.Server.Mode = ModeDual
	cfg.Server.Port = 8080
	cfg.Auth.JWTSecret = DevJWTSecret
	cfg.Auth.TokenLifetime = "7d"
	cfg.Auth.CallbackBase = "http://localhost:8080"
	cfg.LLM = llm.DefaultConfig()
	cfg.LLM.APIKey = os.Getenv("LLM_API_KEY")
	cfg.Database = storage.Config{Driver: storage.SQLite, DSN: "data/hive.db"}
	cfg.RateLimit.WindowSeconds = 60
	cfg.RateLimit.MaxRequests = 120
	return cfg
}

// Validate rejects configurations that must not reach production.
func (c *Config) Validate() error {
	switch c.Server.Mode {
	case ModeMCP, ModeREST, ModeDual:
	default:
		return fmt.Errorf("invalid server mode %q (want mcp, rest or dual)", c.Server.Mode)
	}
	if c.Auth.JWTSecret == DevJWTSecret && os.Getenv("HIVE_ENV") != "dev" {
		return fmt.Errorf("refusing to run with the development JWT secret; set HIVE_JWT_SECRET")
	}
	return nil
}

// Load reads a YAML configuration file into the given struct and applies
// environment variable overrides using `env` struct tags.
func Load(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	// Expand ${VAR} references inside the YAML before parsing.
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), out); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	applyEnvOverrides(out)
	return nil
}

// LoadOrDefault tries to load config from path, falling back to the given
// value when the file does not exist. Environment overrides apply either way.
func LoadOrDefault(path string, out any) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		applyEnvOverrides(out)
		return nil
	}
	return Load(path, out)
}

// applyEnvOverrides sets struct fields from environment variables named by
// the `env` struct tag, recursing into nested structs.
func applyEnvOverrides(v any) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return
	}

	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := val.Field(i)

		if fieldVal.Kind() == reflect.Struct {
			if fieldVal.CanAddr() {
				applyEnvOverrides(fieldVal.Addr().Interface())
			}
			continue
		}

		envTag := field.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envVal, ok := os.LookupEnv(envTag)
		if !ok || !fieldVal.CanSet() {
			continue
		}

		switch fieldVal.Kind() {
		case reflect.String:
			fieldVal.SetString(envVal)
		case reflect.Int, reflect.Int64:
			var n int64
			if _, err := fmt.Sscanf(envVal, "%d", &n); err == nil {
				fieldVal.SetInt(n)
			}
		case reflect.Float64:
			var f float64
			if _, err := fmt.Sscanf(envVal, "%f", &f); err == nil {
				fieldVal.SetFloat(f)
			}
		case reflect.Bool:
			fieldVal.SetBool(strings.EqualFold(envVal, "true") || envVal == "1")
		}
	}
}
