package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func resetDB(t *testing.T) {
	t.Helper()
	reset := func() {
		Close()
		pool, initErr, once = nil, nil, sync.Once{}
	}
	reset()
	t.Cleanup(reset)
}

func TestInitDB_SchemaFailureIsRemembered(t *testing.T) {
	resetDB(t)
	ctx := context.Background()

	// Nothing listens on port 1: the pool is created lazily and the schema
	// statement is the first to dial.
	first := InitDB(ctx, "postgres://ga:ga@127.0.0.1:1/ga?connect_timeout=2")
	if first == nil {
		t.Fatal("expected an error from an unreachable server")
	}
	if !strings.Contains(first.Error(), "failed to create schema") {
		t.Errorf("expected the schema step to fail, got %v", first)
	}
	if GetPool() != nil {
		t.Error("pool should not be kept after a failed schema step")
	}

	second := InitDB(ctx, "postgres://ga:ga@localhost:5432/ga")
	if !errors.Is(second, first) {
		t.Errorf("expected the first error again, got %v", second)
	}
	if GetPool() != nil {
		t.Error("a later call must not install a pool")
	}
}

func TestInitDB_MissingURL(t *testing.T) {
	resetDB(t)
	t.Setenv("DATABASE_URL", "")

	if err := InitDB(context.Background(), ""); err == nil {
		t.Fatal("expected an error without a database URL")
	}
	if err := InitDB(context.Background(), ""); err == nil {
		t.Error("second call should still report the failure")
	}
}
