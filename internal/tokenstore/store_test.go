package tokenstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func writeShortFile(path string) error {
	return os.WriteFile(path, []byte("short"), 0o600)
}

func TestRedisStoreRoundtrip(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	store := NewRedisStore(client)
	ctx := context.Background()

	if _, err := store.Get(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := store.Set(ctx, "abc123"); err != nil {
		t.Fatalf("set: %v", err)
	}
	token, err := store.Get(ctx)
	if err != nil || token != "abc123" {
		t.Fatalf("get: %q %v", token, err)
	}

	if err := store.Delete(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestRedisStoreServerDown(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	s.Close()
	defer client.Close()

	store := NewRedisStore(client)
	if _, err := store.Get(context.Background()); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestFileStoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.bin")
	store := NewFileStore(path, "unit-secret")
	ctx := context.Background()

	if _, err := store.Get(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := store.Set(ctx, "abc123"); err != nil {
		t.Fatalf("set: %v", err)
	}
	token, err := store.Get(ctx)
	if err != nil || token != "abc123" {
		t.Fatalf("get: %q %v", token, err)
	}

	if err := store.Delete(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	// Deleting again is a no-op.
	if err := store.Delete(ctx); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestFileStoreWrongSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.bin")
	ctx := context.Background()

	if err := NewFileStore(path, "secret-a").Set(ctx, "abc123"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := NewFileStore(path, "secret-b").Get(ctx); err == nil {
		t.Fatalf("expected failure with wrong secret")
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.bin")
	store := NewFileStore(path, "secret")
	if err := writeShortFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Get(context.Background()); err == nil {
		t.Fatalf("expected corrupt file error")
	}
}
