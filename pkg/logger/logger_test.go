package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithUserID(ctx, "user-1")

	log.Error(ctx, "boom", errors.New("boom"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json entry: %v (%s)", err, buf.String())
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("expected request_id to be preserved; entry=%s", buf.String())
	}
	if entry["user_id"] != "user-1" {
		t.Fatalf("expected user_id to be preserved; entry=%s", buf.String())
	}
	if entry["service"] != "test" {
		t.Fatalf("expected service field; entry=%s", buf.String())
	}
	if _, ok := entry["stack"]; !ok {
		t.Fatalf("expected stack trace on error; entry=%s", buf.String())
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack when warn stack enabled")
	}

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Output: buf})
	quiet.Warn(context.Background(), "warny")
	if bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("did not expect stack when warn stack disabled")
	}
}

func TestLoggerLevelFiltersDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("info"), Output: buf})
	log.Debug(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be filtered, got %s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
	if lvl := ParseLevel(" WARN "); lvl != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", lvl)
	}
}

func TestLoggerFieldsDoNotLeakIntoParentContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, Format: FormatJSON})

	parent := log.WithOrderID(context.Background(), "order-1")
	_ = log.WithFields(parent, map[string]any{"book_id": "book-9"})
	log.Info(parent, "order.loaded")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json entry: %v (%s)", err, buf.String())
	}
	if entry["order_id"] != "order-1" {
		t.Fatalf("expected order_id; entry=%s", buf.String())
	}
	if _, ok := entry["book_id"]; ok {
		t.Fatalf("child fields leaked into parent; entry=%s", buf.String())
	}
}

func TestLoggerConsoleFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, Format: FormatConsole})
	log.Info(context.Background(), "catalog.seeded")

	if json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Fatalf("expected console output, got json %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("catalog.seeded")) {
		t.Fatalf("expected message in console output, got %s", buf.String())
	}
}
