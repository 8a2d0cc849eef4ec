package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext_NoLogger(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatal("Expected no-op logger, got nil")
	}
	logger.Info("dropped")
}

func TestWithLogger_RoundTrip(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := WithLogger(context.Background(), zap.New(core))

	FromContext(ctx).Info("tick completed", zap.Uint64(FieldTick, 7))

	if logs.Len() != 1 {
		t.Fatalf("Expected 1 entry, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()[FieldTick]; got != uint64(7) {
		t.Errorf("Expected tick 7, got %v", got)
	}
}

func TestWithLogger_NilKeepsContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := WithLogger(context.Background(), zap.New(core))

	ctx = WithLogger(ctx, nil)
	FromContext(ctx).Warn("still here")

	if logs.Len() != 1 {
		t.Errorf("Expected the stored logger to survive a nil logger, got %d entries", logs.Len())
	}
}
