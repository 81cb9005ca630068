package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func resetLogger() {
	Init(Options{})
}

func TestInit_DefaultLevel_Info(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	Info("test info")
	if !strings.Contains(buf.String(), "test info") {
		t.Error("Info message should be logged at default level")
	}

	buf.Reset()

	Debug("test debug")
	if strings.Contains(buf.String(), "test debug") {
		t.Error("Debug message should not be logged at default level")
	}
}

func TestInit_DebugLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Output: buf})
	defer resetLogger()

	DebugContext(context.Background(), "hook ran", "page", "index.html")
	out := buf.String()
	if !strings.Contains(out, "hook ran") || !strings.Contains(out, "index.html") {
		t.Errorf("debug message missing: %q", out)
	}
}

func TestQuiet_OverridesDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Quiet: true, Output: buf})
	defer resetLogger()

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	output := buf.String()
	for _, unwanted := range []string{"debug message", "info message", "warn message"} {
		if strings.Contains(output, unwanted) {
			t.Errorf("%q should not be logged when Quiet=true", unwanted)
		}
	}
	if !strings.Contains(output, "error message") {
		t.Error("Error should be logged when Quiet=true")
	}
}

func TestInit_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{JSON: true, Output: buf})
	defer resetLogger()

	InfoContext(context.Background(), "site processed", "files", 3)

	output := buf.String()
	if !strings.HasPrefix(output, "{") {
		t.Errorf("expected JSON output, got %q", output)
	}
	if !strings.Contains(output, `"msg":"site processed"`) || !strings.Contains(output, `"files":3`) {
		t.Errorf("unexpected JSON output %q", output)
	}
}

func TestSetLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	SetLogger(slog.New(slog.NewTextHandler(buf, nil)))
	defer resetLogger()

	WarnContext(context.Background(), "custom handler")
	if !strings.Contains(buf.String(), "custom handler") {
		t.Error("expected message in custom logger output")
	}
}

func TestWith_ReturnsLoggerWithAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	With("path", "about.html").Info("rewritten")
	ErrorContext(context.Background(), "write failed")

	output := buf.String()
	if !strings.Contains(output, "path=about.html") {
		t.Errorf("expected attributes in output, got %q", output)
	}
	if !strings.Contains(output, "write failed") {
		t.Error("expected error message in output")
	}
}
