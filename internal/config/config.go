package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Server configures the reference instruction store daemon.
type Server struct {
	Bind string `toml:"bind"`
	// PublicURL is advertised in notifications; empty means http://<bind>.
	PublicURL string `toml:"public_url"`
}

// Client configures the reviewer-side live sync session. Durations are seconds.
type Client struct {
	APIURL         string `toml:"api_url"`
	WSURL          string `toml:"ws_url"`
	Token          string `toml:"token"`
	PollInterval   int    `toml:"poll_interval"`
	ReconnectDelay int    `toml:"reconnect_delay"`
	// StaleAfter of 0 means three poll intervals.
	StaleAfter     int `toml:"stale_after"`
	RequestTimeout int `toml:"request_timeout"`
}

// User maps a bearer token to a caller identity on the daemon.
type User struct {
	Name  string `toml:"name"`
	Token string `toml:"token"`
	Role  string `toml:"role"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Submitted      bool   `toml:"submitted"`
	Reviewed       bool   `toml:"reviewed"`
	Outcomes       bool   `toml:"outcomes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for trimreview.
//
// Configuration sections by subsystem:
//   - Paths: database and log directories
//   - Server: daemon bind address
//   - Client: store URL, credentials, and live sync timings
//   - Users: daemon token table with roles
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Server        Server        `toml:"server"`
	Client        Client        `toml:"client"`
	Users         []User        `toml:"users"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite file backing the instruction store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "trimreview.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "trimreviewd.lock")
}

// PublicURL returns the externally reachable base URL of the daemon.
func (c *Config) PublicURL() string {
	if url := strings.TrimRight(strings.TrimSpace(c.Server.PublicURL), "/"); url != "" {
		return url
	}
	return "http://" + c.Server.Bind
}

// PollInterval returns the client poll cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Client.PollInterval) * time.Second
}

// ReconnectDelay returns the fixed wait before re-dialing the push channel.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Client.ReconnectDelay) * time.Second
}

// StaleAfter returns how long without a heartbeat before the view is stale.
func (c *Config) StaleAfter() time.Duration {
	if c.Client.StaleAfter <= 0 {
		return 3 * c.PollInterval()
	}
	return time.Duration(c.Client.StaleAfter) * time.Second
}

// RequestTimeout returns the per-request HTTP timeout used by the store client.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Client.RequestTimeout) * time.Second
}

// LookupUser returns the configured user owning token.
func (c *Config) LookupUser(token string) (User, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return User{}, false
	}
	for _, user := range c.Users {
		if user.Token == token {
			return user, true
		}
	}
	return User{}, false
}
