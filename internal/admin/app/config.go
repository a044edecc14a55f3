package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/aussiebroadwan/backoffice/pkg/cachex"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
)

const (
	// EnvPrefix is stripped from environment variables before they are
	// matched against config keys: ADMIN_JWT_TTL sets jwt.ttl.
	EnvPrefix = "ADMIN_"

	// ConfigFileEnv names an explicit YAML file. When unset the default path
	// is used if it exists.
	ConfigFileEnv     = "ADMIN_CONFIG_FILE"
	DefaultConfigFile = "config/application.yaml"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Addr                string        `koanf:"addr"`
	Env                 string        `koanf:"env"` // dev, staging, prod
	PepperFile          string        `koanf:"pepper_file"`
	ShutdownGracePeriod time.Duration `koanf:"shutdown_grace_period"`

	Log       LogConfig       `koanf:"log"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	JWT       JWTConfig       `koanf:"jwt"`
	Login     LoginConfig     `koanf:"login"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Bootstrap BootstrapConfig `koanf:"bootstrap"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or text
}

type DatabaseConfig struct {
	File string `koanf:"file"`
}

type CacheConfig struct {
	Type          string        `koanf:"type"` // mem, badger, redis
	RedisURL      string        `koanf:"redis_url"`
	BadgerDir     string        `koanf:"badger_dir"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

type JWTConfig struct {
	Secret           string        `koanf:"secret"`
	TTL              time.Duration `koanf:"ttl"`
	RefreshThreshold time.Duration `koanf:"refresh_threshold"`
}

// LoginConfig drives the per-account login throttle.
type LoginConfig struct {
	Path           string        `koanf:"path"`
	FailRetry      int           `koanf:"fail_retry"` // 0 disables the throttle
	FailRetryWait  time.Duration `koanf:"fail_retry_wait"`
	FailCounterTTL time.Duration `koanf:"fail_counter_ttl"`
}

type RateLimitConfig struct {
	LoginPerMinute int `koanf:"login_per_minute"`
	APIPerMinute   int `koanf:"api_per_minute"`
	// TrustedProxies is a comma separated list of CIDRs or addresses whose
	// X-Forwarded-For header names the client. Empty trusts no one.
	TrustedProxies string `koanf:"trusted_proxies"`
}

// BootstrapConfig seeds the super admin on first start. An empty password is
// replaced by a generated one that is logged once.
type BootstrapConfig struct {
	AdminMobile   string `koanf:"admin_mobile"`
	AdminPassword string `koanf:"admin_password"`
	AdminName     string `koanf:"admin_name"`
}

func defaultConfig() Config {
	return Config{
		Addr:                ":8080",
		Env:                 "dev",
		PepperFile:          "pepper",
		ShutdownGracePeriod: 10 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			File: "backoffice.db",
		},
		Cache: CacheConfig{
			Type:          string(cachex.KindMemory),
			SweepInterval: time.Minute,
		},
		JWT: JWTConfig{
			TTL:              8 * time.Hour,
			RefreshThreshold: 30 * time.Minute,
		},
		Login: LoginConfig{
			Path:           "/api/login",
			FailRetry:      5,
			FailRetryWait:  5 * time.Minute,
			FailCounterTTL: 15 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			LoginPerMinute: 10,
			APIPerMinute:   300,
		},
		Bootstrap: BootstrapConfig{
			AdminMobile: "13800000000",
			AdminName:   "admin",
		},
	}
}

// LoadConfig layers struct defaults, the optional YAML file and ADMIN_*
// environment variables, in that order, then validates the result.
func LoadConfig() (Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Every known key has an env name: dots become underscores, upper cased.
	known := make(map[string]string, len(k.Keys()))
	for _, key := range k.Keys() {
		known[strings.ToUpper(strings.ReplaceAll(key, ".", "_"))] = key
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return known[strings.TrimPrefix(s, EnvPrefix)]
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigFileEnv); path != "" {
		return path
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}
	return ""
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.Database.File == "" {
		errs = append(errs, errors.New("database.file is required"))
	}
	kind, err := cachex.ParseKind(c.Cache.Type)
	if err != nil {
		errs = append(errs, fmt.Errorf("cache.type: %w", err))
	}
	if kind == cachex.KindRedis && c.Cache.RedisURL == "" {
		errs = append(errs, errors.New("cache.redis_url is required for the redis cache"))
	}
	if c.JWT.Secret == "" && c.Env != "dev" {
		errs = append(errs, errors.New("jwt.secret is required outside dev"))
	}
	if c.JWT.TTL < time.Second {
		errs = append(errs, errors.New("jwt.ttl must be at least one second"))
	}
	if c.JWT.RefreshThreshold < 0 {
		errs = append(errs, errors.New("jwt.refresh_threshold must not be negative"))
	}
	if c.Login.FailRetry < 0 {
		errs = append(errs, errors.New("login.fail_retry must not be negative"))
	}
	if c.Login.FailRetry > 0 && c.Login.FailRetryWait <= 0 {
		errs = append(errs, errors.New("login.fail_retry_wait must be positive"))
	}
	if c.Login.FailCounterTTL <= 0 {
		errs = append(errs, errors.New("login.fail_counter_ttl must be positive"))
	}
	if !strings.HasPrefix(c.Login.Path, "/api/") {
		errs = append(errs, errors.New("login.path must live under /api/"))
	}
	if c.RateLimit.LoginPerMinute <= 0 || c.RateLimit.APIPerMinute <= 0 {
		errs = append(errs, errors.New("ratelimit values must be positive"))
	}
	if _, err := httpx.ParseTrustedProxies(c.RateLimit.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("ratelimit.trusted_proxies: %w", err))
	}
	if c.ShutdownGracePeriod <= 0 {
		errs = append(errs, errors.New("shutdown_grace_period must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// CacheKind returns the validated cache backend.
func (c Config) CacheKind() cachex.Kind {
	kind, _ := cachex.ParseKind(c.Cache.Type)
	return kind
}
