// Package config loads the backoffice configuration.
//
// Values are layered: built-in defaults, then the optional TOML file, then
// BACKOFFICE_* environment variables (a .env file is loaded first when
// present), and finally command line flags applied by the caller.
//
// Secrets are never read from the file or from flags. The file only names
// the environment variables holding them, and each variable is cleared as
// soon as its value has been read.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/andrebq/backoffice/auth"
	"github.com/andrebq/backoffice/internal/httpserver"
	"github.com/andrebq/backoffice/store"
	"github.com/joho/godotenv"
)

type (
	Duration struct {
		time.Duration
	}

	Config struct {
		Server Server `toml:"server"`
		Store  Store  `toml:"store"`
		Auth   Auth   `toml:"auth"`
		Log    Log    `toml:"log"`
	}

	Server struct {
		Bind            string   `toml:"bind"`
		AllowedOrigins  []string `toml:"allowed_origins"`
		ReadTimeout     Duration `toml:"read_timeout"`
		WriteTimeout    Duration `toml:"write_timeout"`
		IdleTimeout     Duration `toml:"idle_timeout"`
		InsecureCookies bool     `toml:"insecure_cookies"`
	}

	Store struct {
		Dialect      string   `toml:"dialect"`
		DSN          string   `toml:"dsn"`
		MaxOpenConns int      `toml:"max_open_conns"`
		QueryTimeout Duration `toml:"query_timeout"`
	}

	Auth struct {
		TokenTTL        Duration `toml:"token_ttl"`
		HashCost        int      `toml:"hash_cost"`
		JWTSecretEnv    string   `toml:"jwt_secret_env"`
		CookieSecretEnv string   `toml:"cookie_secret_env"`

		JWTSecret    []byte `toml:"-"`
		CookieSecret []byte `toml:"-"`
	}

	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	}
)

const (
	EnvPrefix = "BACKOFFICE_"

	DefaultJWTSecretEnv    = EnvPrefix + "JWT_SECRET"
	DefaultCookieSecretEnv = EnvPrefix + "COOKIE_SECRET"
)

var (
	ErrMissingSecret = errors.New("config: missing secret")
)

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() Config {
	return Config{
		Server: Server{
			Bind:         "localhost:8800",
			ReadTimeout:  Duration{time.Minute},
			WriteTimeout: Duration{time.Minute},
			IdleTimeout:  Duration{time.Minute * 5},
		},
		Store: Store{
			Dialect:      string(store.SQLite),
			DSN:          "backoffice.db",
			MaxOpenConns: 10,
			QueryTimeout: Duration{store.DefaultQueryTimeout},
		},
		Auth: Auth{
			TokenTTL:        Duration{auth.DefaultTokenTTL},
			HashCost:        auth.DefaultHashCost,
			JWTSecretEnv:    DefaultJWTSecretEnv,
			CookieSecretEnv: DefaultCookieSecretEnv,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadDotEnv loads variables from the given files into the process
// environment. Missing files are ignored, variables that are already set
// are kept.
func LoadDotEnv(files ...string) error {
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	err := godotenv.Load(present...)
	if err != nil {
		return fmt.Errorf("unable to load env files %v, cause %w", present, err)
	}
	return nil
}

// Load returns the defaults overridden by the TOML file at path (skipped
// when path is empty) and by the environment.
func Load(path string, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()
	if path != "" {
		_, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("unable to read config file %v, cause %w", path, err)
		}
	}
	err := cfg.applyEnv(getenv)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	var err error
	str := func(name string, out *string) {
		if v := getenv(EnvPrefix + name); v != "" {
			*out = v
		}
	}
	num := func(name string, out *int) {
		v := getenv(EnvPrefix + name)
		if v == "" || err != nil {
			return
		}
		*out, err = strconv.Atoi(v)
		if err != nil {
			err = fmt.Errorf("invalid value for %v%v, cause %w", EnvPrefix, name, err)
		}
	}
	dur := func(name string, out *Duration) {
		v := getenv(EnvPrefix + name)
		if v == "" || err != nil {
			return
		}
		err = out.UnmarshalText([]byte(v))
		if err != nil {
			err = fmt.Errorf("invalid value for %v%v, cause %w", EnvPrefix, name, err)
		}
	}
	flag := func(name string, out *bool) {
		v := getenv(EnvPrefix + name)
		if v == "" || err != nil {
			return
		}
		*out, err = strconv.ParseBool(v)
		if err != nil {
			err = fmt.Errorf("invalid value for %v%v, cause %w", EnvPrefix, name, err)
		}
	}

	str("BIND", &c.Server.Bind)
	if v := getenv(EnvPrefix + "ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = SplitList(v)
	}
	dur("READ_TIMEOUT", &c.Server.ReadTimeout)
	dur("WRITE_TIMEOUT", &c.Server.WriteTimeout)
	dur("IDLE_TIMEOUT", &c.Server.IdleTimeout)
	flag("INSECURE_COOKIES", &c.Server.InsecureCookies)

	str("STORE_DIALECT", &c.Store.Dialect)
	str("STORE_DSN", &c.Store.DSN)
	num("STORE_MAX_OPEN_CONNS", &c.Store.MaxOpenConns)
	dur("STORE_QUERY_TIMEOUT", &c.Store.QueryTimeout)

	dur("TOKEN_TTL", &c.Auth.TokenTTL)
	num("HASH_COST", &c.Auth.HashCost)
	str("JWT_SECRET_ENV", &c.Auth.JWTSecretEnv)
	str("COOKIE_SECRET_ENV", &c.Auth.CookieSecretEnv)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	return err
}

// LoadSecrets reads the JWT and cookie secrets from the environment
// variables named in c.Auth, and clears those variables.
func (c *Config) LoadSecrets(getenv func(string) string, setenv func(string, string) error) error {
	var err error
	c.Auth.JWTSecret, err = secretFromEnv(c.Auth.JWTSecretEnv, getenv, setenv)
	if err != nil {
		return err
	}
	c.Auth.CookieSecret, err = secretFromEnv(c.Auth.CookieSecretEnv, getenv, setenv)
	return err
}

// Validate checks the values needed to serve requests.
func (c Config) Validate() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if len(c.Auth.JWTSecret) == 0 {
		return fmt.Errorf("%w: jwt secret (env %v)", ErrMissingSecret, c.Auth.JWTSecretEnv)
	}
	if len(c.Auth.CookieSecret) == 0 {
		return fmt.Errorf("%w: cookie secret (env %v)", ErrMissingSecret, c.Auth.CookieSecretEnv)
	}
	if c.Auth.TokenTTL.Duration <= 0 {
		return fmt.Errorf("config: token ttl must be positive, got %v", c.Auth.TokenTTL.Duration)
	}
	if c.Server.Bind == "" {
		return errors.New("config: missing bind address")
	}
	return nil
}

// ValidateStore checks only the store section.
func (c Config) ValidateStore() error {
	switch store.Dialect(c.Store.Dialect) {
	case store.SQLite, store.Postgres:
	default:
		return fmt.Errorf("config: unknown store dialect %q", c.Store.Dialect)
	}
	if c.Store.DSN == "" {
		return errors.New("config: missing store dsn")
	}
	if c.Store.QueryTimeout.Duration <= 0 {
		return fmt.Errorf("config: store query timeout must be positive, got %v", c.Store.QueryTimeout.Duration)
	}
	return nil
}

func (c Config) StoreConfig() store.Config {
	return store.Config{
		Dialect:      store.Dialect(c.Store.Dialect),
		DSN:          c.Store.DSN,
		MaxOpenConns: c.Store.MaxOpenConns,
		QueryTimeout: c.Store.QueryTimeout.Duration,
	}
}

func (c Config) HTTPConfig() httpserver.Config {
	return httpserver.Config{
		Bind:         c.Server.Bind,
		ReadTimeout:  c.Server.ReadTimeout.Duration,
		WriteTimeout: c.Server.WriteTimeout.Duration,
		IdleTimeout:  c.Server.IdleTimeout.Duration,
	}
}

// SplitList splits a comma separated list, dropping empty items.
func SplitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
