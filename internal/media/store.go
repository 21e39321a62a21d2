// Package media implements Pingo's MediaServer: a local HTTP file server
// that serves registered blobs by stable identifier and caches inbound
// media under a private storage root.
package media

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileEntry indexes one blob served by the MediaServer.
type FileEntry struct {
	ID          string
	LocalPath   string
	Mime        string
	DisplayName string
}

// Store owns the shared-files storage root and the id -> FileEntry index.
// Guarded by a single reader-writer mutex; spec.md invariant 6: only paths registered
// here, or paths under root, may be served.
type Store struct {
	mu      sync.RWMutex
	root    string
	entries map[string]FileEntry
}

// NewStore creates root (and any missing parents) and returns an empty Store.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("media: create storage root %s: %w", root, err)
	}
	return &Store{root: root, entries: make(map[string]FileEntry)}, nil
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// StoreDataURL parses a `data:<mime>;base64,<payload>` URL, decodes it, and
// writes `<id>.<ext>` under root, indexing the entry under id.
func (s *Store) StoreDataURL(id, dataURL, displayName string) (FileEntry, error) {
	mime, payload, err := parseDataURL(dataURL)
	if err != nil {
		return FileEntry{}, fmt.Errorf("media: parse data url: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return FileEntry{}, fmt.Errorf("media: decode base64 payload: %w", err)
	}

	return s.StoreBytes(id, raw, mime, displayName)
}

// StoreBytes writes raw bytes as `<id>.<ext>` under root, indexing the entry.
func (s *Store) StoreBytes(id string, data []byte, mime, displayName string) (FileEntry, error) {
	path := filepath.Join(s.root, id+extForMime(mime))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return FileEntry{}, fmt.Errorf("media: write %s: %w", path, err)
	}

	entry := FileEntry{ID: id, LocalPath: path, Mime: mime, DisplayName: displayName}
	s.mu.Lock()
	s.entries[id] = entry
	s.mu.Unlock()
	return entry, nil
}

// RegisterFile indexes a pre-existing path under id, without copying it.
// Used for receivers of auto-downloads that already live on disk.
func (s *Store) RegisterFile(id, path, displayName string) (FileEntry, error) {
	if _, err := os.Stat(path); err != nil {
		return FileEntry{}, fmt.Errorf("media: register %s: %w", path, err)
	}

	entry := FileEntry{ID: id, LocalPath: path, Mime: mimeFromExt(filepath.Ext(path)), DisplayName: displayName}
	s.mu.Lock()
	s.entries[id] = entry
	s.mu.Unlock()
	return entry, nil
}

// Lookup returns the indexed entry for id, then falls back to scanning
// root for a file whose name starts with id (spec.md §4.6 unknown-id
// disk-prefix fallback).
func (s *Store) Lookup(id string) (FileEntry, bool) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		return entry, true
	}

	matches, err := filepath.Glob(filepath.Join(s.root, id+"*"))
	if err != nil || len(matches) == 0 {
		return FileEntry{}, false
	}

	path := matches[0]
	return FileEntry{ID: id, LocalPath: path, Mime: mimeFromExt(filepath.Ext(path))}, true
}

func parseDataURL(dataURL string) (mime, payload string, err error) {
	const prefix = "data:"
	if !strings.HasPrefix(dataURL, prefix) {
		return "", "", fmt.Errorf("missing %q prefix", prefix)
	}
	rest := dataURL[len(prefix):]

	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return "", "", fmt.Errorf("missing comma separator")
	}
	meta, payload := rest[:comma], rest[comma+1:]

	meta = strings.TrimSuffix(meta, ";base64")
	if meta == "" {
		meta = "application/octet-stream"
	}
	return meta, payload, nil
}

var mimeToExt = map[string]string{
	"image/png":         ".png",
	"image/jpeg":        ".jpg",
	"image/gif":         ".gif",
	"image/webp":        ".webp",
	"video/mp4":         ".mp4",
	"video/webm":        ".webm",
	"audio/mpeg":        ".mp3",
	"audio/wav":         ".wav",
	"application/pdf":   ".pdf",
	"text/plain":        ".txt",
	"application/octet-stream": ".bin",
}

func extForMime(mime string) string {
	if ext, ok := mimeToExt[mime]; ok {
		return ext
	}
	return ".bin"
}

func mimeFromExt(ext string) string {
	ext = strings.ToLower(ext)
	for mime, e := range mimeToExt {
		if e == ext {
			return mime
		}
	}
	return "application/octet-stream"
}
