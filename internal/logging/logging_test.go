package logging

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewOperationErrorNil(t *testing.T) {
	if err := NewOperationError("store.save", "req-1", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestOperationErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewOperationError("store.save", "req-1", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the cause")
	}
	if got, want := err.Error(), "store.save [req-1]: connection reset"; got != want {
		t.Fatalf("unexpected message %q, want %q", got, want)
	}
	if got := NewOperationError("store.save", "", cause).Error(); got != "store.save: connection reset" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	logger, err := NewLogger("debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected debug level to be enabled")
	}
}

func TestWithOperationFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	WithOperation(zap.New(core), "usecase.verify", "req-9", "").Info("done")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["operation"] != "usecase.verify" || fields["request_id"] != "req-9" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if _, ok := fields["user_id"]; ok {
		t.Fatal("empty user id must be omitted")
	}
}
