package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trimreview/internal/config"
	"trimreview/internal/logging"
)

func TestNewFromConfigWritesDaemonLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon started")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.DaemonLogFile))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "daemon started") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func readLog(t *testing.T, opts logging.Options, emit func(*slog.Logger)) string {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "out.log")
	opts.OutputPaths = []string{logPath}
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	emit(logger)
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	content := readLog(t, logging.Options{Format: "console", Level: "info"}, func(l *slog.Logger) {
		l.Info("message without caller")
	})
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	content := readLog(t, logging.Options{Format: "console", Level: "debug"}, func(l *slog.Logger) {
		l.Info("message with caller")
	})
	if !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerPrefixesComponentAndInstruction(t *testing.T) {
	content := readLog(t, logging.Options{Format: "console", Level: "info"}, func(l *slog.Logger) {
		logging.NewComponentLogger(l, "reconcile").Info("applied",
			logging.Instruction("ins-1"),
			logging.String("status", "approved"))
	})
	if !strings.Contains(content, "reconcile [ins-1]: applied") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	if !strings.Contains(content, "status=approved") {
		t.Fatalf("expected trailing attrs, got %q", content)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	content := readLog(t, logging.Options{Format: "json", Level: "info"}, func(l *slog.Logger) {
		l.Info("json message", logging.String("k", "v"))
	})
	var decoded map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &decoded); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if decoded["msg"] != "json message" || decoded["level"] != "info" || decoded["k"] != "v" {
		t.Fatalf("unexpected json log %v", decoded)
	}
	if _, ok := decoded["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", decoded)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	content := readLog(t, logging.Options{Format: "console", Level: "invalid"}, func(l *slog.Logger) {
		l.Debug("hidden")
		l.Info("visible")
	})
	if strings.Contains(content, "hidden") || !strings.Contains(content, "visible") {
		t.Fatalf("expected info threshold, got %q", content)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := logging.WithInstructionID(context.Background(), "ins-42")
	ctx = logging.WithRequestID(ctx, "req-xyz")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, logger).Info("contextual log")

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded[logging.FieldInstructionID] != "ins-42" {
		t.Fatalf("instruction id = %v", decoded[logging.FieldInstructionID])
	}
	if decoded[logging.FieldCorrelationID] != "req-xyz" {
		t.Fatalf("correlation id = %v", decoded[logging.FieldCorrelationID])
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "poll failed", "poll_failed", logging.String(logging.FieldImpact, "view may be stale"))

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded[logging.FieldEventType] != "poll_failed" {
		t.Fatalf("event_type = %v", decoded[logging.FieldEventType])
	}
	if decoded[logging.FieldImpact] != "view may be stale" {
		t.Fatalf("impact overwritten: %v", decoded[logging.FieldImpact])
	}
	if decoded[logging.FieldErrorHint] == nil {
		t.Fatal("expected default error hint")
	}
}

func TestWithLevelOverrideSuppressesLowerLevels(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	quiet := logging.WithLevelOverride(base, slog.LevelWarn)
	quiet.Info("suppressed")
	quiet.Warn("kept")
	if strings.Contains(buf.String(), "suppressed") || !strings.Contains(buf.String(), "kept") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestWithLevelOverrideReplacesPreviousFloor(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	quiet := logging.WithLevelOverride(base, slog.LevelWarn)
	loud := logging.WithLevelOverride(quiet, slog.LevelDebug)
	loud.Debug("reconnect scheduled")
	if !strings.Contains(buf.String(), "reconnect scheduled") {
		t.Fatalf("expected debug record after lowering the floor, got %q", buf.String())
	}
}

func TestJSONLoggerRenamesCaller(t *testing.T) {
	content := readLog(t, logging.Options{Format: "json", Level: "debug"}, func(l *slog.Logger) {
		l.Debug("with caller")
	})
	var decoded map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &decoded); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	caller, _ := decoded["caller"].(string)
	if !strings.Contains(caller, ".go:") {
		t.Fatalf("expected caller file:line, got %v", decoded)
	}
}
