package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"logoforge/internal/domain"
)

func TestUploadBufferWritesAndReturnsURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	url, err := store.UploadBuffer(context.Background(), []byte("png"), UploadOptions{Key: "/logos/abc/white.png", ContentType: "image/png"})
	if err != nil {
		t.Fatalf("UploadBuffer: %v", err)
	}
	if url != "http://localhost:8080/static/logos/abc/white.png" {
		t.Fatalf("url = %q", url)
	}
	data, err := os.ReadFile(filepath.Join(dir, "logos", "abc", "white.png"))
	if err != nil || string(data) != "png" {
		t.Fatalf("stored data = %q, err = %v", data, err)
	}
	// Same key twice is an overwrite, which keeps retries idempotent.
	if _, err := store.UploadBuffer(context.Background(), []byte("png2"), UploadOptions{Key: "logos/abc/white.png"}); err != nil {
		t.Fatalf("second upload: %v", err)
	}
	got, err := store.Read(context.Background(), "logos/abc/white.png")
	if err != nil || string(got) != "png2" {
		t.Fatalf("Read = %q, err = %v", got, err)
	}
}

func TestUploadBufferRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	for _, key := range []string{"", "../escape.png", "a/../../escape.png"} {
		_, err := store.UploadBuffer(context.Background(), []byte("x"), UploadOptions{Key: key})
		if !errors.Is(err, domain.ErrStorage) {
			t.Fatalf("key %q: err = %v, want storage error", key, err)
		}
	}
}

func TestUploadBufferHonorsCanceledContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.UploadBuffer(ctx, []byte("x"), UploadOptions{Key: "a.png"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestReadMissingKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Read(context.Background(), "nope.png"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
