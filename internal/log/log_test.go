package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	logger := New(Config{})
	if logger == nil {
		t.Fatal("New() returned nil")
	}
}

func TestNewWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{
		Level: slog.LevelDebug,
	})

	logger.Info("document ingested", "filename", "report.pdf", "chunks", 3)

	output := buf.String()
	if !strings.Contains(output, "document ingested") {
		t.Errorf("expected output to contain the message, got: %s", output)
	}
	if !strings.Contains(output, "filename=report.pdf") {
		t.Errorf("expected output to contain 'filename=report.pdf', got: %s", output)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{
		Level: slog.LevelInfo,
		JSON:  true,
	})

	logger.Info("query executed", "top_k", 5)

	output := buf.String()
	if !strings.Contains(output, `"msg":"query executed"`) {
		t.Errorf("expected JSON output with msg field, got: %s", output)
	}
	if !strings.Contains(output, `"top_k":5`) {
		t.Errorf("expected JSON output with top_k field, got: %s", output)
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	if logger == nil {
		t.Fatal("NewNop() returned nil")
	}

	// Should not panic
	logger.Info("this should be discarded")
	logger.Error("this too")
}

func TestLogger_ComponentContext(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{
		Level: slog.LevelInfo,
	})

	pipelineLogger := logger.With("component", "pipeline")
	pipelineLogger.Info("initialized")

	output := buf.String()
	if !strings.Contains(output, "component=pipeline") {
		t.Errorf("expected output to contain 'component=pipeline', got: %s", output)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	// Only INFO and above
	logger := NewWithWriter(&buf, Config{
		Level: slog.LevelInfo,
	})

	logger.Debug("debug should not appear")
	logger.Info("info should appear")
	logger.Warn("warn should appear")

	output := buf.String()

	if strings.Contains(output, "debug should not appear") {
		t.Error("DEBUG message should be filtered out")
	}
	for _, want := range []string{"info should appear", "warn should appear"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestLoggerTypeAlias(t *testing.T) {
	// Logger must be assignable from *slog.Logger
	var logger Logger = slog.Default()
	if logger == nil {
		t.Fatal("Logger type alias should be compatible with *slog.Logger")
	}
}
