package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerEmitsServiceAndFields(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "settlement-test", Output: &buf})

	ctx := logg.WithSaleID(context.Background(), "abc-123")
	ctx = logg.WithField(ctx, "job", "settlement")
	logg.Info(ctx, "batch complete")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json log line: %v (%s)", err, buf.String())
	}
	if entry["service"] != "settlement-test" {
		t.Fatalf("missing service field: %v", entry)
	}
	if entry["sale_id"] != "abc-123" {
		t.Fatalf("missing sale_id field: %v", entry)
	}
	if entry["job"] != "settlement" {
		t.Fatalf("missing job field: %v", entry)
	}
	if entry["message"] != "batch complete" {
		t.Fatalf("missing message: %v", entry)
	}
}

func TestLoggerErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "settlement-test", Output: &buf})

	logg.Error(context.Background(), "failed", nil)

	if !strings.Contains(buf.String(), "stack") {
		t.Fatalf("expected stack field in error log: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != zerolog.DebugLevel {
		t.Fatal("debug should parse")
	}
	if ParseLevel("") != zerolog.InfoLevel {
		t.Fatal("empty should default to info")
	}
	if ParseLevel("nonsense") != zerolog.InfoLevel {
		t.Fatal("unknown should default to info")
	}
}
