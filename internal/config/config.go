// Package config loads runtime settings from .env files, the environment and
// an optional YAML file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"autodraft/internal/content"
	"autodraft/internal/domain"
)

const (
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
	StoreRedis    = "redis"
)

// Parameter names looked up under ParamPrefix when a secret is not set.
const (
	OpenAIKeyParameter  = "openai_api_key"
	WPPasswordParameter = "wp_password"
)

type Generation struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	// MaxRetries and RetryDelay are accepted for compatibility with older
	// deployments. Calls are never retried.
	MaxRetries int
	RetryDelay time.Duration
}

type WordPress struct {
	BaseURL         string
	Username        string
	Password        string
	Timeout         time.Duration
	DefaultStatus   string
	DefaultAuthor   int
	DefaultCategory int
}

type RateLimit struct {
	PerHour  int
	Store    string
	Table    string
	RedisURL string
}

type Logging struct {
	Level  string
	Format string
	File   string
}

type Config struct {
	Generation     Generation
	WordPress      WordPress
	RateLimit      RateLimit
	BatchDelay     time.Duration
	Renderer       content.Renderer
	Logging        Logging
	PersonasFile   string
	DefaultPersona string
	ParamPrefix    string
}

// SecretSource resolves a secret that may be absent from the environment.
type SecretSource interface {
	Resolve(ctx context.Context, explicit, name string) (string, error)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4")
	v.SetDefault("openai.max_tokens", 2000)
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("openai.timeout", "120s")
	v.SetDefault("openai.max_retries", 3)
	v.SetDefault("openai.retry_delay", "5s")

	v.SetDefault("wp.base_url", "http://localhost/wordpress")
	v.SetDefault("wp.username", "")
	v.SetDefault("wp.password", "")
	v.SetDefault("wp.timeout", "60s")
	v.SetDefault("wp.default_status", "draft")
	v.SetDefault("wp.default_author", 1)
	v.SetDefault("wp.default_category", 1)

	v.SetDefault("rate_limit.per_hour", 60)
	v.SetDefault("rate_limit.store", StoreMemory)
	v.SetDefault("rate_limit.table", "")
	v.SetDefault("rate_limit.redis_url", "")

	v.SetDefault("batch.delay", "500ms")
	v.SetDefault("content.renderer", string(content.RendererBasic))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")

	v.SetDefault("personas.file", "")
	v.SetDefault("personas.default", "gpt1")
	v.SetDefault("param_prefix", "")
}

// Load reads .env (when present), then the environment, then the YAML file at
// path (when path is not empty). Environment variables win over the file:
// openai.max_tokens is read from OPENAI_MAX_TOKENS.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	renderer, err := content.ParseRenderer(v.GetString("content.renderer"))
	if err != nil {
		return Config{}, domain.ConfigurationError("invalid_renderer", err)
	}
	durations := map[string]time.Duration{}
	for _, key := range []string{"openai.timeout", "openai.retry_delay", "wp.timeout", "batch.delay"} {
		d, err := durationOf(v, key)
		if err != nil {
			return Config{}, err
		}
		durations[key] = d
	}

	cfg := Config{
		Generation: Generation{
			APIKey:      strings.TrimSpace(v.GetString("openai.api_key")),
			BaseURL:     strings.TrimSpace(v.GetString("openai.base_url")),
			Model:       strings.TrimSpace(v.GetString("openai.model")),
			MaxTokens:   v.GetInt("openai.max_tokens"),
			Temperature: v.GetFloat64("openai.temperature"),
			Timeout:     durations["openai.timeout"],
			MaxRetries:  v.GetInt("openai.max_retries"),
			RetryDelay:  durations["openai.retry_delay"],
		},
		WordPress: WordPress{
			BaseURL:         strings.TrimSpace(v.GetString("wp.base_url")),
			Username:        strings.TrimSpace(v.GetString("wp.username")),
			Password:        v.GetString("wp.password"),
			Timeout:         durations["wp.timeout"],
			DefaultStatus:   strings.TrimSpace(v.GetString("wp.default_status")),
			DefaultAuthor:   v.GetInt("wp.default_author"),
			DefaultCategory: v.GetInt("wp.default_category"),
		},
		RateLimit: RateLimit{
			PerHour:  v.GetInt("rate_limit.per_hour"),
			Store:    strings.ToLower(strings.TrimSpace(v.GetString("rate_limit.store"))),
			Table:    strings.TrimSpace(v.GetString("rate_limit.table")),
			RedisURL: strings.TrimSpace(v.GetString("rate_limit.redis_url")),
		},
		BatchDelay: durations["batch.delay"],
		Renderer:   renderer,
		Logging: Logging{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString("log.level"))),
			Format: strings.ToLower(strings.TrimSpace(v.GetString("log.format"))),
			File:   strings.TrimSpace(v.GetString("log.file")),
		},
		PersonasFile:   strings.TrimSpace(v.GetString("personas.file")),
		DefaultPersona: strings.TrimSpace(v.GetString("personas.default")),
		ParamPrefix:    strings.TrimSpace(v.GetString("param_prefix")),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field requirements. Secrets are checked by
// ResolveSecrets.
func (c Config) Validate() error {
	switch {
	case c.Generation.Model == "":
		return invalid("openai.model must not be empty")
	case c.Generation.MaxTokens <= 0:
		return invalid("openai.max_tokens must be positive")
	case c.Generation.Temperature < 0 || c.Generation.Temperature > 2:
		return invalid("openai.temperature must be between 0 and 2")
	case c.Generation.Timeout < time.Second:
		return invalid("openai.timeout must be at least 1s")
	case c.WordPress.BaseURL == "":
		return invalid("wp.base_url must not be empty")
	case c.WordPress.Timeout < time.Second:
		return invalid("wp.timeout must be at least 1s")
	case c.RateLimit.PerHour < 0:
		return invalid("rate_limit.per_hour must not be negative")
	case c.BatchDelay < 0:
		return invalid("batch.delay must not be negative")
	}

	switch c.RateLimit.Store {
	case StoreMemory:
	case StoreDynamoDB:
		if c.RateLimit.Table == "" {
			return invalid("rate_limit.table is required for the dynamodb store")
		}
	case StoreRedis:
		if c.RateLimit.RedisURL == "" {
			return invalid("rate_limit.redis_url is required for the redis store")
		}
	default:
		return invalid(fmt.Sprintf("unknown rate_limit.store %q", c.RateLimit.Store))
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return invalid(fmt.Sprintf("unknown log.format %q", c.Logging.Format))
	}
	return nil
}

// ResolveSecrets fills the OpenAI key and WordPress password from src when
// the environment left them empty.
func (c *Config) ResolveSecrets(ctx context.Context, src SecretSource) error {
	key, err := src.Resolve(ctx, c.Generation.APIKey, OpenAIKeyParameter)
	if err != nil {
		return domain.ConfigurationError("openai_api_key_missing", err)
	}
	c.Generation.APIKey = key

	pw, err := src.Resolve(ctx, c.WordPress.Password, WPPasswordParameter)
	if err != nil {
		return domain.ConfigurationError("wp_password_missing", err)
	}
	c.WordPress.Password = pw
	return nil
}

// durationOf reads key as a Go duration ("90s", "1m30s") or as a bare number
// of seconds ("120", "0.5").
func durationOf(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, invalid(fmt.Sprintf("%s: %q is not a duration", key, raw))
	}
	return d, nil
}

func invalid(msg string) error {
	return domain.ConfigurationError("invalid_config", errors.New("config: "+msg))
}
