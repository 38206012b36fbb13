package storage

import (
	"bytes"
	"context"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	data := []byte{0x89, 'P', 'N', 'G'}
	key, err := store.Write(context.Background(), "jobs/abc/cleaned.png", data)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if key != "jobs/abc/cleaned.png" {
		t.Fatalf("key = %q", key)
	}

	got, err := store.Read(context.Background(), key)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("read back %v, want %v", got, data)
	}

	if url := store.URL(key); url != "http://localhost:8080/static/jobs/abc/cleaned.png" {
		t.Fatalf("url = %q", url)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	cases := []string{"", "../escape.png", "a/../../b.png"}
	for _, key := range cases {
		if _, err := store.Write(context.Background(), key, []byte{1}); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
}

func TestFileStoreNormalizesKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	key, err := store.Write(context.Background(), "./jobs//x/../y/render.jpg", []byte{1})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if key != "jobs/y/render.jpg" {
		t.Fatalf("key = %q, want jobs/y/render.jpg", key)
	}
}

func TestFileStoreReadMissingKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Read(context.Background(), "jobs/nope.png"); err == nil {
		t.Fatal("expected error for missing key")
	}
}
