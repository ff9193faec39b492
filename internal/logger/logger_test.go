package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"filmstack/internal/config"
)

func TestNew_DefaultsOnBadLevel(t *testing.T) {
	log, err := New(config.LogConfig{Level: "chatty"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if ce := log.Check(zapcore.InfoLevel, "at threshold"); ce == nil {
		t.Fatalf("info must be enabled when the configured level is unknown")
	}
	if ce := log.Check(zapcore.DebugLevel, "below threshold"); ce != nil {
		t.Fatalf("debug must stay disabled at the info default")
	}
}

func TestNew_ConsoleEncoding(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "debug", Encoding: "console", Sampling: true}); err != nil {
		t.Fatalf("console build: %v", err)
	}
}
