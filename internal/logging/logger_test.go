package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func decodeLine(t *testing.T, line string) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, line)
	}
	return entry
}

func TestPlainMessageIsWrapped(t *testing.T) {
	var buf bytes.Buffer
	logger := New("prediction", zapcore.InfoLevel, &buf)

	logger.Info("prediction completed", zap.String("request_id", "req-1"), zap.Int("codes", 2))

	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected exactly one line, got %q", out)
	}

	entry := decodeLine(t, strings.TrimSpace(out))
	if entry["message"] != "prediction completed" {
		t.Errorf("unexpected message: %v", entry["message"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("unexpected level: %v", entry["level"])
	}
	if entry["service"] != ServiceName {
		t.Errorf("unexpected service: %v", entry["service"])
	}
	if entry["logger"] != "prediction" {
		t.Errorf("unexpected logger name: %v", entry["logger"])
	}
	if entry["request_id"] != "req-1" {
		t.Errorf("caller field missing: %v", entry)
	}
	if entry["codes"] != float64(2) {
		t.Errorf("numeric caller field missing: %v", entry)
	}

	ts, ok := entry["timestamp"].(string)
	if !ok {
		t.Fatalf("timestamp missing: %v", entry)
	}
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		t.Fatalf("timestamp %q not RFC 3339: %v", ts, err)
	}
	if parsed.Location() != time.UTC {
		t.Errorf("timestamp %q is not UTC", ts)
	}
}

func TestJSONMessagePassesThrough(t *testing.T) {
	var buf bytes.Buffer
	logger := New("prediction", zapcore.InfoLevel, &buf)

	msg := `{"timestamp":"2024-01-01T00:00:00Z","level":"INFO","message":"upstream","service":"other"}`
	logger.Info(msg, zap.String("ignored", "yes"))

	if got := buf.String(); got != msg+"\n" {
		t.Fatalf("expected message unchanged\nwant %q\n got %q", msg+"\n", got)
	}
}

func TestPassThroughIsIdempotent(t *testing.T) {
	var first bytes.Buffer
	New("a", zapcore.InfoLevel, &first).Info("hello")

	var second bytes.Buffer
	New("b", zapcore.InfoLevel, &second).Info(first.String())

	if first.String() != second.String() {
		t.Fatalf("re-logging an emitted line changed it\nfirst  %q\nsecond %q", first.String(), second.String())
	}
}

func TestAnyJSONValuePassesThrough(t *testing.T) {
	tests := []struct {
		name string
		msg  string
	}{
		{"number", `42`},
		{"array", `[1,2,3]`},
		{"string", `"quoted"`},
		{"literal", `null`},
		{"object with surrounding whitespace", `  {"a":1}  `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			New("test", zapcore.InfoLevel, &buf).Info(tt.msg, zap.String("ignored", "yes"))

			if got := buf.String(); got != tt.msg+"\n" {
				t.Errorf("expected message unchanged\nwant %q\n got %q", tt.msg+"\n", got)
			}
		})
	}
}

func TestInvalidJSONMessagesAreWrapped(t *testing.T) {
	tests := []struct {
		name string
		msg  string
	}{
		{"broken object", `{"message": `},
		{"bare word", `hello`},
		{"blank", `   `},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			New("test", zapcore.InfoLevel, &buf).Info(tt.msg)

			entry := decodeLine(t, strings.TrimSpace(buf.String()))
			if entry["message"] != tt.msg {
				t.Errorf("expected wrapped message %q, got %v", tt.msg, entry["message"])
			}
			if entry["service"] != ServiceName {
				t.Errorf("expected service field, got %v", entry)
			}
		})
	}
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New("levels", zapcore.InfoLevel, &buf)

	logger.Debug("hidden")
	logger.Warning("careful")
	logger.Error("failed", zap.Error(errors.New("boom")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines (debug filtered), got %d: %q", len(lines), buf.String())
	}
	if lvl := decodeLine(t, lines[0])["level"]; lvl != "WARNING" {
		t.Errorf("expected WARNING, got %v", lvl)
	}
	errEntry := decodeLine(t, lines[1])
	if errEntry["level"] != "ERROR" {
		t.Errorf("expected ERROR, got %v", errEntry["level"])
	}
	if errEntry["error"] != "boom" {
		t.Errorf("expected error field, got %v", errEntry)
	}
}

func TestWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New("with", zapcore.InfoLevel, &buf).With(zap.String("component", "cache"))

	logger.Info("miss")

	if entry := decodeLine(t, strings.TrimSpace(buf.String())); entry["component"] != "cache" {
		t.Errorf("expected component field, got %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"DEBUG", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"WARNING", zapcore.WarnLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"ERROR", zapcore.ErrorLevel, false},
		{"CRITICAL", zapcore.FatalLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRedirectStdLog(t *testing.T) {
	var buf bytes.Buffer
	logger := New("stdlib", zapcore.InfoLevel, &buf)

	restore := logger.RedirectStdLog()
	log.Print("plain stdlib line")
	log.Print(`{"source":"stdlib"}`)
	restore()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if entry := decodeLine(t, lines[0]); entry["message"] != "plain stdlib line" {
		t.Errorf("expected wrapped stdlib message, got %v", entry)
	}
	if lines[1] != `{"source":"stdlib"}` {
		t.Errorf("expected JSON stdlib line unchanged, got %q", lines[1])
	}
}
