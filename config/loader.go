// Package config loads the botroom configuration from defaults, an
// optional YAML file, and environment variable overrides, in that
// order of precedence.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("BOTROOM").
//	    Load()
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"botroom/types"
)

// Config is the complete botroom configuration.
type Config struct {
	Server ServerConfig `yaml:"server" env:"SERVER"`
	Room   RoomConfig   `yaml:"room" env:"ROOM"`
	Log    LogConfig    `yaml:"log" env:"LOG"`

	// Credentials and Bots seed the room's initial settings; both can
	// be changed at runtime through the settings API.
	Credentials CredentialsConfig `yaml:"credentials" env:"CREDENTIALS"`
	Bots        BotsConfig        `yaml:"bots" env:"BOTS"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port" env:"HTTP_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// Per-client limit on message submissions.
	RateLimitRPS   float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// RoomConfig holds the orchestration timing knobs.
type RoomConfig struct {
	// SequentialDelay is the spacing between calls of the rate-limited
	// backend group within one round.
	SequentialDelay time.Duration `yaml:"sequential_delay" env:"SEQUENTIAL_DELAY"`
	// Quiescence is the pause between autonomous conversation rounds.
	Quiescence time.Duration `yaml:"quiescence" env:"QUIESCENCE"`
}

// LogConfig holds the logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console.
	Format           string   `yaml:"format" env:"FORMAT"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// CredentialsConfig holds backend credentials and endpoints.
type CredentialsConfig struct {
	GeminiAPIKey     string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	OpenRouterAPIKey string `yaml:"openrouter_api_key" env:"OPENROUTER_API_KEY"`
	LMStudioURL      string `yaml:"lmstudio_url" env:"LMSTUDIO_URL"`
}

// BotsConfig selects which bots take part in rounds at startup.
type BotsConfig struct {
	Gemini           bool     `yaml:"gemini" env:"GEMINI"`
	LMStudio         bool     `yaml:"lmstudio" env:"LMSTUDIO"`
	OpenRouterModels []string `yaml:"openrouter_models" env:"OPENROUTER_MODELS"`
}

// InitialSettings converts the configured credentials and bot selection
// into the room's starting settings.
func (c *Config) InitialSettings() types.Settings {
	s := types.Settings{
		GeminiAPIKey:     c.Credentials.GeminiAPIKey,
		OpenRouterAPIKey: c.Credentials.OpenRouterAPIKey,
		LMStudioURL:      c.Credentials.LMStudioURL,
		ActiveBots: types.ActiveBots{
			Gemini:           c.Bots.Gemini,
			LMStudio:         c.Bots.LMStudio,
			OpenRouterModels: append([]string(nil), c.Bots.OpenRouterModels...),
		},
	}
	s.Normalize()
	return s
}

// Loader loads configuration with a builder-style API.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a loader with the default env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "BOTROOM"}
}

// WithConfigPath sets the YAML file path. A missing file is not an
// error; defaults and environment apply.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a validation hook run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves the configuration: defaults, then YAML file, then
// environment overrides, then validators.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

func setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		envTag := t.Field(i).Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}
		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// Comma-separated string slices only.
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads the configuration from path, panicking on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Room.SequentialDelay < 0 {
		errs = append(errs, "sequential_delay must not be negative")
	}
	if c.Room.Quiescence < 0 {
		errs = append(errs, "quiescence must not be negative")
	}
	if c.Server.RateLimitRPS <= 0 {
		errs = append(errs, "rate_limit_rps must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
