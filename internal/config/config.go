package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
)

// DefaultOrigin is the browser origin allowed when app_origin is unset.
const DefaultOrigin = "https://audit-coe-poc.vercel.app"

// Config represents the server configuration.
type Config struct {
	DatabaseURL  string   `mapstructure:"database_url"`
	AppOrigin    string   `mapstructure:"app_origin"`
	HostPort     string   `mapstructure:"host_port"`
	LogLevel     string   `mapstructure:"log_level"`
	LogFormat    string   `mapstructure:"log_format"`
	HTTPCompress bool     `mapstructure:"http_compress"`
	Database     Database `mapstructure:"database"`
}

// Database holds connection pool settings.
type Database struct {
	Schema         string `mapstructure:"schema"`
	MaxConns       int32  `mapstructure:"max_conns"`
	MinConns       int32  `mapstructure:"min_conns"`
	KeyringService string `mapstructure:"keyring_service"`
}

// Connection is the parsed, password-free view of a connection string.
type Connection struct {
	Host     string
	Port     int
	Database string
	Username string
	SSLMode  string
}

// Origins splits AppOrigin on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AppOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate checks values viper cannot constrain.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log_format must be json or console, got %q", c.LogFormat)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database.max_conns must be positive, got %d", c.Database.MaxConns)
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns must be between 0 and %d, got %d",
			c.Database.MaxConns, c.Database.MinConns)
	}
	return nil
}

// DisplayString returns a human-readable summary of the connection.
func (c Connection) DisplayString() string {
	s := c.Host
	if c.Port > 0 {
		s += ":" + strconv.Itoa(c.Port)
	}
	s += "/" + c.Database
	if c.Username != "" {
		s = c.Username + "@" + s
	}
	return s
}

// ParseDSN parses a PostgreSQL URL. The password, if any, is dropped.
func ParseDSN(dsn string) (Connection, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return Connection{}, fmt.Errorf("invalid DSN: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return Connection{}, fmt.Errorf("invalid DSN: unsupported scheme %q", u.Scheme)
	}

	conn := Connection{
		Host:     u.Hostname(),
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  u.Query().Get("sslmode"),
	}
	if u.User != nil {
		conn.Username = u.User.Username()
	}

	if portStr := u.Port(); portStr != "" {
		conn.Port, _ = strconv.Atoi(portStr)
	}
	if conn.Port == 0 {
		conn.Port = 5432
	}

	return conn, nil
}

// EnsureSSLMode appends sslmode=require unless the connection string already
// names an sslmode.
func EnsureSSLMode(dsn string) string {
	if dsn == "" || strings.Contains(dsn, "sslmode=") {
		return dsn
	}
	if !strings.Contains(dsn, "://") {
		return dsn + " sslmode=require"
	}
	joiner := "?"
	if strings.Contains(dsn, "?") {
		joiner = "&"
	}
	return dsn + joiner + "sslmode=require"
}

// ResolvePassword fills in the password of a URL connection string from the
// OS keyring, looked up under service and the DSN's user name. The DSN is
// returned unchanged when service is empty, the DSN has no user, already
// carries a password, or the keyring holds no entry.
func ResolvePassword(dsn, service string) (string, error) {
	if service == "" || !strings.Contains(dsn, "://") {
		return dsn, nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid DSN: %w", err)
	}
	if u.User == nil || u.User.Username() == "" {
		return dsn, nil
	}
	if _, ok := u.User.Password(); ok {
		return dsn, nil
	}

	user := u.User.Username()
	password, err := keyring.Get(service, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return dsn, nil
	}
	if err != nil {
		return "", fmt.Errorf("keyring %s/%s: %w", service, user, err)
	}

	u.User = url.UserPassword(user, password)
	return u.String(), nil
}
