package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"trimreview/internal/auth"
	"trimreview/internal/config"
	"trimreview/internal/storeclient"
)

type commandContext struct {
	configFlag *string
	apiURLFlag *string
	tokenFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, apiURLFlag, tokenFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiURLFlag: apiURLFlag,
		tokenFlag:  tokenFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if value := flagValue(c.apiURLFlag); value != "" {
			cfg.Client.APIURL = strings.TrimRight(value, "/")
		}
		if value := flagValue(c.tokenFlag); value != "" {
			cfg.Client.Token = value
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) credentials() auth.CredentialProvider {
	cfg := c.configValue()
	if cfg == nil {
		return auth.StaticToken("")
	}
	return auth.StaticToken(cfg.Client.Token)
}

func (c *commandContext) storeClient() (*storeclient.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return storeclient.New(cfg.Client.APIURL, c.credentials(), cfg.RequestTimeout())
}

func (c *commandContext) withClient(fn func(*storeclient.Client) error) error {
	client, err := c.storeClient()
	if err != nil {
		return err
	}
	return wrapStoreError(fn(client), client.BaseURL())
}

func wrapStoreError(err error, baseURL string) error {
	switch {
	case err == nil:
		return nil
	case storeclient.IsUnavailable(err):
		return fmt.Errorf("connect to instruction store at %s: %w; verify trimreviewd is running", baseURL, err)
	case errors.Is(err, storeclient.ErrUnauthorized):
		return fmt.Errorf("%w: set client.token or TRIMREVIEW_TOKEN", err)
	default:
		return err
	}
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
