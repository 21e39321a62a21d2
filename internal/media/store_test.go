package media_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/pingonet/pingo-core/internal/media"
)

func newTestStore(t *testing.T) *media.Store {
	t.Helper()
	s, err := media.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func TestStoreDataURLDecodesAndIndexes(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	payload := base64.StdEncoding.EncodeToString([]byte("hello world"))
	dataURL := "data:image/png;base64," + payload

	entry, err := s.StoreDataURL("abc123", dataURL, "pic.png")
	if err != nil {
		t.Fatalf("StoreDataURL() error = %v", err)
	}
	if filepath.Ext(entry.LocalPath) != ".png" {
		t.Errorf("LocalPath ext = %q, want .png", filepath.Ext(entry.LocalPath))
	}

	raw, err := os.ReadFile(entry.LocalPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(raw) != "hello world" {
		t.Errorf("file content = %q, want %q", raw, "hello world")
	}

	got, ok := s.Lookup("abc123")
	if !ok || got.Mime != "image/png" {
		t.Errorf("Lookup() = (%+v, %v), want indexed entry", got, ok)
	}
}

func TestStoreDataURLRejectsMalformed(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if _, err := s.StoreDataURL("x", "not-a-data-url", ""); err == nil {
		t.Fatal("StoreDataURL() error = nil, want parse failure")
	}
}

func TestRegisterFileIndexesPreExistingPath(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	path := filepath.Join(s.Root(), "preexisting.jpg")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	entry, err := s.RegisterFile("fid1", path, "photo.jpg")
	if err != nil {
		t.Fatalf("RegisterFile() error = %v", err)
	}
	if entry.Mime != "image/jpeg" {
		t.Errorf("Mime = %q, want image/jpeg", entry.Mime)
	}
}

func TestLookupFallsBackToDiskPrefixScan(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	path := filepath.Join(s.Root(), "unindexed123.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	entry, ok := s.Lookup("unindexed123")
	if !ok {
		t.Fatal("Lookup() did not find unindexed file via disk prefix scan")
	}
	if entry.Mime != "video/mp4" {
		t.Errorf("Mime = %q, want video/mp4", entry.Mime)
	}
}

func TestLookupUnknownIDReturnsFalse(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if _, ok := s.Lookup("nonexistent"); ok {
		t.Error("Lookup() found an entry for a nonexistent id")
	}
}
