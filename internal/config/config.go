// Package config loads the server configuration from defaults, an optional
// YAML file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverJSON     = "json"
	DriverPostgres = "postgres"
)

// TLS modes.
const (
	TLSOff        = "off"
	TLSSelfSigned = "self-signed"
	TLSFiles      = "files"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	TLS      TLSConfig      `yaml:"tls"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	HTTPSPort       string        `yaml:"https_port"`
	GinMode         string        `yaml:"gin_mode"`
	TrustedProxies  []string      `yaml:"trusted_proxies"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	URL             string        `yaml:"url"`
	DataFile        string        `yaml:"data_file"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

type AuthConfig struct {
	SecretKey         string        `yaml:"secret_key"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
	CookieSecure      bool          `yaml:"cookie_secure"`
	BcryptCost        int           `yaml:"bcrypt_cost"`
	SecurityLog       string        `yaml:"security_log"`
	AllowRegistration bool          `yaml:"allow_registration"`
	AdminUsername     string        `yaml:"admin_username"`
	AdminEmail        string        `yaml:"admin_email"`
	AdminPassword     string        `yaml:"admin_password"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type TLSConfig struct {
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8082",
			HTTPSPort:       "8443",
			GinMode:         "release",
			TrustedProxies:  []string{"127.0.0.1", "::1"},
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          DriverJSON,
			DataFile:        "./data.json",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		Auth: AuthConfig{
			SessionTTL:  12 * time.Hour,
			BcryptCost:  12,
			SecurityLog: "security.log",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{Enabled: true},
		TLS:     TLSConfig{Mode: TLSOff},
	}
}

// Load builds the configuration. path names an optional YAML file; a .env
// file in the working directory is read when present. Variables already set
// in the environment win over .env entries.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("PORT", &c.Server.Port)
	str("HTTPS_PORT", &c.Server.HTTPSPort)
	str("GIN_MODE", &c.Server.GinMode)
	if v, ok := lookup("TRUSTED_PROXIES"); ok {
		c.Server.TrustedProxies = splitList(v)
	}

	str("DATABASE_DRIVER", &c.Database.Driver)
	str("DATABASE_URL", &c.Database.URL)
	str("DATA_FILE", &c.Database.DataFile)
	integer("DATABASE_MAX_OPEN_CONNS", &c.Database.MaxOpenConns)
	boolean("DATABASE_AUTO_MIGRATE", &c.Database.AutoMigrate)

	str("SECRET_KEY", &c.Auth.SecretKey)
	duration("SESSION_TTL", &c.Auth.SessionTTL)
	boolean("COOKIE_SECURE", &c.Auth.CookieSecure)
	integer("BCRYPT_COST", &c.Auth.BcryptCost)
	str("SECURITY_LOG", &c.Auth.SecurityLog)
	boolean("ALLOW_REGISTRATION", &c.Auth.AllowRegistration)
	str("ADMIN_USERNAME", &c.Auth.AdminUsername)
	str("ADMIN_EMAIL", &c.Auth.AdminEmail)
	str("ADMIN_PASSWORD", &c.Auth.AdminPassword)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	boolean("METRICS_ENABLED", &c.Metrics.Enabled)

	str("TLS_MODE", &c.TLS.Mode)
	str("TLS_CERT_FILE", &c.TLS.CertFile)
	str("TLS_KEY_FILE", &c.TLS.KeyFile)

	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Auth.SecretKey) < 16 {
		errs = append(errs, errors.New("auth.secret_key must be at least 16 bytes"))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("auth.session_ttl must be positive"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost %d out of range 4-31", c.Auth.BcryptCost))
	}
	if (c.Auth.AdminUsername == "") != (c.Auth.AdminPassword == "") {
		errs = append(errs, errors.New("auth.admin_username and auth.admin_password must be set together"))
	}

	switch c.Database.Driver {
	case DriverJSON:
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	switch c.TLS.Mode {
	case TLSOff, TLSSelfSigned:
	case TLSFiles:
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			errs = append(errs, errors.New("tls.cert_file and tls.key_file are required in files mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown tls.mode %q", c.TLS.Mode))
	}

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
