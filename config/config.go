// Package config loads the accounts service configuration from defaults,
// an optional YAML file, a .env file, ACCOUNTS_ environment variables and
// command line flags, in that order.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load.
// Nested keys are separated by a double underscore:
// ACCOUNTS_SESSION__SIGNING_KEY sets session.signing_key.
const EnvPrefix = "ACCOUNTS_"

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Session  SessionConfig  `koanf:"session"`
	Cookie   CookieConfig   `koanf:"cookie"`
	Tokens   TokensConfig   `koanf:"tokens"`
	Email    EmailConfig    `koanf:"email"`
	Security SecurityConfig `koanf:"security"`
	Routes   RoutesConfig   `koanf:"routes"`
	Signup   SignupConfig   `koanf:"signup"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	Prefix          string        `koanf:"prefix"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Debug           bool          `koanf:"debug"`
}

type DatabaseConfig struct {
	Driver      string `koanf:"driver"`
	DSN         string `koanf:"dsn"`
	Debug       bool   `koanf:"debug"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type SessionConfig struct {
	SigningKey string        `koanf:"signing_key"`
	Issuer     string        `koanf:"issuer"`
	Audience   []string      `koanf:"audience"`
	TTL        time.Duration `koanf:"ttl"`
}

type CookieConfig struct {
	Name     string `koanf:"name"`
	Secure   bool   `koanf:"secure"`
	SameSite string `koanf:"same_site"`
}

type TokensConfig struct {
	ResetTTL    time.Duration `koanf:"reset_ttl"`
	MaxAttempts int           `koanf:"max_attempts"`
}

type EmailConfig struct {
	From    string `koanf:"from"`
	BaseURL string `koanf:"base_url"`
}

type SecurityConfig struct {
	BcryptCost int `koanf:"bcrypt_cost"`
}

type RoutesConfig struct {
	LoginPage      string `koanf:"login_page"`
	ResetSentPage  string `koanf:"reset_sent_page"`
	ResetEntryPage string `koanf:"reset_entry_page"`
}

type SignupConfig struct {
	UseHashid bool `koanf:"use_hashid"`
}

// Defaults returns the built in configuration values
func Defaults() map[string]any {
	return map[string]any{
		"server.addr":             ":8080",
		"server.prefix":           "",
		"server.shutdown_timeout": "10s",
		"server.debug":            false,
		"database.driver":         "sqlite",
		"database.dsn":            "file:accounts.db?cache=shared",
		"database.debug":          false,
		"database.auto_migrate":   true,
		"log.level":               "info",
		"log.format":              "text",
		"session.issuer":          "go-accounts",
		"session.ttl":             "24h",
		"cookie.name":             "accounts_session",
		"cookie.secure":           true,
		"cookie.same_site":        "lax",
		"tokens.reset_ttl":        "1h",
		"tokens.max_attempts":     10,
		"email.from":              "no-reply@example.com",
		"email.base_url":          "http://localhost:8080",
		"security.bcrypt_cost":    12,
		"routes.login_page":       "/login",
		"routes.reset_sent_page":  "/password-reset/sent",
		"routes.reset_entry_page": "/password-reset/new",
		"signup.use_hashid":       false,
	}
}

// LoadOptions selects the optional sources of Load
type LoadOptions struct {
	// File is a YAML file; empty skips it.
	File string
	// EnvFile is a dotenv file; a missing file is ignored.
	EnvFile string
	// Flags are applied last; only changed flags override.
	Flags *pflag.FlagSet
}

func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load config defaults")
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to load config file").
				WithMetadata(map[string]any{"file": opts.File})
		}
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to load env file").
				WithMetadata(map[string]any{"file": opts.EnvFile})
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load environment")
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.Provider(opts.Flags, ".", k), nil); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load flags")
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode config")
	}

	if verr := goerrors.ValidateWithOzzo(cfg.Validate, "invalid configuration"); verr != nil {
		return nil, verr
	}

	return cfg, nil
}

func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if key == "session.audience" {
		parts := make([]string, 0)
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		return key, parts
	}
	return key, value
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server),
		validation.Field(&c.Database),
		validation.Field(&c.Log),
		validation.Field(&c.Session),
		validation.Field(&c.Cookie),
		validation.Field(&c.Tokens),
		validation.Field(&c.Email),
	)
}

func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

func (c DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In("sqlite", "sqlite3", "postgres", "pg", "postgresql")),
		validation.Field(&c.DSN, validation.Required),
	)
}

func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Format, validation.In("text", "json")),
	)
}

func (c SessionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.TTL, validation.Required),
	)
}

func (c CookieConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.SameSite, validation.In("lax", "strict")),
	)
}

func (c TokensConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ResetTTL, validation.Required),
		validation.Field(&c.MaxAttempts, validation.Required, validation.Min(1)),
	)
}

func (c EmailConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.From, validation.Required, is.EmailFormat),
		validation.Field(&c.BaseURL, validation.Required, is.RequestURL),
	)
}

// Environ returns the environment variable name for a config key
func Environ(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "__"))
}
