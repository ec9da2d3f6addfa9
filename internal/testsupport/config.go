package testsupport

import (
	"path/filepath"
	"testing"

	"trimreview/internal/config"
)

// Tokens seeded into every test config by NewConfig.
const (
	CreatorToken  = "creator-token"
	ApproverToken = "approver-token"
	AdminToken    = "admin-token"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test,
// one user per role, and a loopback bind with an ephemeral port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Users = []config.User{
		{Name: "casey", Token: CreatorToken, Role: config.RoleCreator},
		{Name: "morgan", Token: ApproverToken, Role: config.RoleApprover},
		{Name: "agent", Token: AdminToken, Role: config.RoleAdmin},
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithNtfyTopic points notifications at the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithAPIURL sets the client store URL.
func WithAPIURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Client.APIURL = url
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
