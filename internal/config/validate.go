package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateClient(); err != nil {
		return err
	}
	if err := c.validateUsers(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateClient() error {
	if err := validateURL("client.api_url", c.Client.APIURL, "http", "https"); err != nil {
		return err
	}
	if c.Client.WSURL != "" {
		if err := validateURL("client.ws_url", c.Client.WSURL, "ws", "wss"); err != nil {
			return err
		}
	}
	if c.Client.StaleAfter < 0 {
		return errors.New("client.stale_after must be zero or positive")
	}
	if c.Client.StaleAfter > 0 && c.Client.StaleAfter < c.Client.PollInterval {
		return fmt.Errorf("client.stale_after (%d) must not be shorter than client.poll_interval (%d)", c.Client.StaleAfter, c.Client.PollInterval)
	}
	return nil
}

func (c *Config) validateUsers() error {
	seen := make(map[string]string, len(c.Users))
	for i, user := range c.Users {
		if user.Name == "" {
			return fmt.Errorf("users[%d].name must be set", i)
		}
		if user.Token == "" {
			return fmt.Errorf("users[%d] (%s): token must be set", i, user.Name)
		}
		switch user.Role {
		case RoleCreator, RoleApprover, RoleAdmin:
		default:
			return fmt.Errorf("users[%d] (%s): unsupported role %q (want creator, approver or admin)", i, user.Name, user.Role)
		}
		if other, ok := seen[user.Token]; ok {
			return fmt.Errorf("users %q and %q share a token", other, user.Name)
		}
		seen[user.Token] = user.Name
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	return validateURL("notifications.ntfy_topic", c.Notifications.NtfyTopic, "http", "https")
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s: missing host in %q", field, raw)
	}
	for _, scheme := range schemes {
		if strings.EqualFold(parsed.Scheme, scheme) {
			return nil
		}
	}
	return fmt.Errorf("%s: scheme must be one of %s", field, strings.Join(schemes, ", "))
}
