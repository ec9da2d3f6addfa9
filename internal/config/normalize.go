package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeClient()
	c.normalizeUsers()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	c.Server.PublicURL = strings.TrimSpace(c.Server.PublicURL)
}

func (c *Config) normalizeClient() {
	if value, ok := os.LookupEnv(envAPIURL); ok && strings.TrimSpace(value) != "" {
		c.Client.APIURL = value
	}
	if value, ok := os.LookupEnv(envToken); ok && strings.TrimSpace(value) != "" {
		c.Client.Token = value
	}
	c.Client.APIURL = strings.TrimRight(strings.TrimSpace(c.Client.APIURL), "/")
	if c.Client.APIURL == "" {
		c.Client.APIURL = defaultAPIURL
	}
	c.Client.WSURL = strings.TrimSpace(c.Client.WSURL)
	c.Client.Token = strings.TrimSpace(c.Client.Token)
	if c.Client.PollInterval <= 0 {
		c.Client.PollInterval = defaultPollIntervalSeconds
	}
	if c.Client.ReconnectDelay <= 0 {
		c.Client.ReconnectDelay = defaultReconnectDelaySeconds
	}
	if c.Client.RequestTimeout <= 0 {
		c.Client.RequestTimeout = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeUsers() {
	for i := range c.Users {
		c.Users[i].Name = strings.TrimSpace(c.Users[i].Name)
		c.Users[i].Token = strings.TrimSpace(c.Users[i].Token)
		c.Users[i].Role = strings.ToLower(strings.TrimSpace(c.Users[i].Role))
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
