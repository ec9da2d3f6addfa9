package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"trimreview/internal/config"
)

func TestApplyOverrides(t *testing.T) {
	cfg := config.Default()
	applyOverrides(&cfg, " 0.0.0.0:9000 ", "DEBUG")
	if cfg.Server.Bind != "0.0.0.0:9000" {
		t.Fatalf("bind override not applied: %q", cfg.Server.Bind)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level override not applied: %q", cfg.Logging.Level)
	}

	applyOverrides(&cfg, "", "")
	if cfg.Server.Bind != "0.0.0.0:9000" {
		t.Fatal("blank override must keep existing value")
	}
}

func TestRootCommandStopsOnCancel(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", base)
	configPath := filepath.Join(base, "trimreview.toml")
	contents := fmt.Sprintf("[paths]\ndata_dir = %q\nlog_dir = %q\n\n[server]\nbind = \"127.0.0.1:0\"\n",
		filepath.Join(base, "data"), filepath.Join(base, "logs"))
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", configPath, "--log-level", "error"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(filepath.Join(base, "data", "trimreview.db")); err == nil {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("daemon did not create its database")
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop after cancel")
	}
}

func TestRootCommandRejectsInvalidConfig(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", base)
	configPath := filepath.Join(base, "bad.toml")
	if err := os.WriteFile(configPath, []byte("[logging]\nformat = \"xml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", configPath})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected invalid config to fail")
	}
}
