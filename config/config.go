// Package config manages the explorer's configuration file: a JSON registry
// of named database connections kept under the user's config directory with
// owner-only permissions.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/logger"
)

// Connection holds the settings of one named database connection
type Connection struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// DSN renders the connection as a pgx-compatible URL
func (c Connection) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	return u.String()
}

// Config is the persisted application configuration
type Config struct {
	path string

	Connections map[string]Connection `json:"db_connections"`
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.json")
	}
	return filepath.Join(home, ".config", "dbexplorer", "config.json")
}

// Load reads the configuration from path, creating a default file when none
// exists. An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	cfg := &Config{path: path, Connections: map[string]Connection{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := cfg.Save(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		logger.Warn("config file unreadable, using defaults", "path", path, "error", err)
		return cfg, nil
	}
	if cfg.Connections == nil {
		cfg.Connections = map[string]Connection{}
	}
	return cfg, nil
}

// Save writes the configuration with owner-only permissions; it may hold
// database passwords.
func (c *Config) Save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize config: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Chmod(c.path, 0o600)
}

// AddConnection registers or replaces a named connection and persists
func (c *Config) AddConnection(name string, conn Connection) error {
	c.Connections[name] = conn
	return c.Save()
}

// RemoveConnection drops a named connection, reporting whether it existed
func (c *Config) RemoveConnection(name string) (bool, error) {
	if _, ok := c.Connections[name]; !ok {
		return false, nil
	}
	delete(c.Connections, name)
	return true, c.Save()
}

// Connection returns the named connection, if registered
func (c *Config) Connection(name string) (Connection, bool) {
	conn, ok := c.Connections[name]
	return conn, ok
}
