// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(42), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestFileLogging(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelDebug,
		LogDir:  dir,
		Service: "testsvc",
		Quiet:   true,
	})

	logger.Info("message one", "key", "value")
	logger.Debug("message two")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	filename := "testsvc_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2", len(lines))
	}

	// File logs are JSON and carry the service attribute.
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "message one" {
		t.Errorf("msg = %v, want %q", entry["msg"], "message one")
	}
	if entry["service"] != "testsvc" {
		t.Errorf("service = %v, want %q", entry["service"], "testsvc")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:  LevelWarn,
		LogDir: dir,
		Quiet:  true,
	})

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	filename := "marginwatch_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1", len(lines))
	}
	if !strings.Contains(lines[0], "kept") {
		t.Errorf("log line %q missing message", lines[0])
	}
}

func TestWithAddsAttributes(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Service: "attrs", Quiet: true})

	child := logger.With("rule", "rule_cost")
	child.Info("evaluating")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	filename := "attrs_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["rule"] != "rule_cost" {
		t.Errorf("rule = %v, want %q", entry["rule"], "rule_cost")
	}
}

func TestCloseWithoutFile(t *testing.T) {
	logger := New(Config{Quiet: true})
	if err := logger.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}

func TestMultiHandlerEnabled(t *testing.T) {
	restrictive := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})
	permissive := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := &multiHandler{handlers: []slog.Handler{restrictive, permissive}}
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled(Debug) = false, want true when any handler accepts")
	}

	strict := &multiHandler{handlers: []slog.Handler{restrictive}}
	if strict.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled(Debug) = true, want false when no handler accepts")
	}
}
