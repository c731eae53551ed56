package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{
		"api_key", "sk-live-123",
		"Authorization", "Bearer abc",
		"session_id", "0f8c1e2a",
		"paragraph_id", "q1",
		"dangling",
	})

	if got[1] != "[REDACTED]" {
		t.Errorf("api_key = %v, want redacted", got[1])
	}
	if got[3] != "[REDACTED]" {
		t.Errorf("Authorization = %v, want redacted", got[3])
	}
	if s, _ := got[5].(string); !strings.HasPrefix(s, "hash:") || len(s) != len("hash:")+12 {
		t.Errorf("session_id = %v, want hash:<12 hex>", got[5])
	}
	if got[7] != "q1" {
		t.Errorf("paragraph_id = %v, want q1", got[7])
	}
	if got[8] != "dangling" {
		t.Errorf("dangling key = %v, want kept as-is", got[8])
	}
}

func TestLogger_WithRedactsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("api_key", "secret-value").Info("configured", "model", "gpt-4o-mini")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["api_key"] != "[REDACTED]" {
		t.Errorf("api_key field = %v, want redacted", fields["api_key"])
	}
	if fields["model"] != "gpt-4o-mini" {
		t.Errorf("model field = %v", fields["model"])
	}
}

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", ""} {
		l, err := New(mode, zapcore.DebugLevel)
		if err != nil {
			t.Fatalf("New(%q) error = %v", mode, err)
		}
		if l.SugaredLogger == nil {
			t.Fatalf("New(%q) returned nil sugared logger", mode)
		}
	}
}

func TestNew_HonoursLevel(t *testing.T) {
	l, err := New("prod", zapcore.WarnLevel)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	core := l.SugaredLogger.Desugar().Core()
	if core.Enabled(zapcore.InfoLevel) || !core.Enabled(zapcore.WarnLevel) {
		t.Errorf("info enabled = %v, warn enabled = %v", core.Enabled(zapcore.InfoLevel), core.Enabled(zapcore.WarnLevel))
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Debug("ignored", "k", "v")
	l.With("a", 1).Error("also ignored")
}
