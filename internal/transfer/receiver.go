package transfer

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pingonet/pingo-core/internal/crypto"
)

// PrepareReceive chooses a collision-safe destination path under root for
// meta.FileName, creates the file, pre-extends it to the full expected
// length (to support sparse random-order writes), and registers a
// receiver-side Transfer entry. It returns the chosen local path.
func (m *Manager) PrepareReceive(meta Meta, root string) (string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("transfer: prepare receive: mkdir: %w", err)
	}

	path, err := uniquePath(root, meta.FileName)
	if err != nil {
		return "", fmt.Errorf("transfer: prepare receive: unique path: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("transfer: prepare receive: create: %w", err)
	}
	if meta.FileSize > 0 {
		if err := f.Truncate(meta.FileSize); err != nil {
			f.Close()
			return "", fmt.Errorf("transfer: prepare receive: truncate: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("transfer: prepare receive: close: %w", err)
	}

	m.mu.Lock()
	m.transfers[meta.ID] = &transferState{
		meta:      meta,
		role:      RoleReceiver,
		localPath: path,
		bitmap:    newBitmap(meta.TotalChunks),
	}
	m.mu.Unlock()
	m.metrics.IncTransfersActive(string(RoleReceiver))

	return path, nil
}

// uniquePath appends "(n)" before the extension on collision, the same
// scheme a save-as dialog uses, starting from the bare requested name.
func uniquePath(root, name string) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	candidate := filepath.Join(root, name)
	for n := 1; ; n++ {
		_, err := os.Stat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = filepath.Join(root, fmt.Sprintf("%s (%d)%s", base, n, ext))
	}
}

// ReceiveChunk decodes payloadB64, verifies it against checksum, and on
// match writes it at index*ChunkSize and sets the bitmap bit. On
// mismatch, nothing is written and success is false. Repeated delivery
// of the same index is idempotent.
func (m *Manager) ReceiveChunk(id string, index int, payloadB64, checksum string) (bool, error) {
	m.mu.RLock()
	t, ok := m.transfers[id]
	m.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrTransferNotFound, id)
	}
	if index < 0 || index >= t.meta.TotalChunks {
		return false, fmt.Errorf("%w: %d", ErrChunkOutOfRange, index)
	}

	payload, err := base64.StdEncoding.DecodeString(payloadB64)
	if err != nil {
		m.metrics.IncChunksRejected()
		return false, nil
	}
	if crypto.ChecksumBytes(payload) != checksum {
		m.metrics.IncChunksRejected()
		return false, nil
	}

	f, err := os.OpenFile(t.localPath, os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("transfer: receive chunk: open: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(index)*ChunkSize, io.SeekStart); err != nil {
		return false, fmt.Errorf("transfer: receive chunk: seek: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		return false, fmt.Errorf("transfer: receive chunk: write: %w", err)
	}

	m.mu.Lock()
	t.bitmap.set(index)
	m.mu.Unlock()
	m.metrics.IncChunksReceived()

	return true, nil
}

// CompleteTransfer streams the local file through SHA-256 and compares it
// to the expected whole-file checksum, flipping the completion flag only
// on match.
func (m *Manager) CompleteTransfer(id string) (bool, string, error) {
	m.mu.RLock()
	t, ok := m.transfers[id]
	m.mu.RUnlock()
	if !ok {
		return false, "", fmt.Errorf("%w: %s", ErrTransferNotFound, id)
	}

	f, err := os.Open(t.localPath)
	if err != nil {
		return false, "", fmt.Errorf("transfer: complete transfer: open: %w", err)
	}
	actual, err := crypto.StreamChecksum(f, 8192)
	f.Close()
	if err != nil {
		return false, "", fmt.Errorf("transfer: complete transfer: checksum: %w", err)
	}

	success := actual == t.meta.Checksum
	if success {
		m.mu.Lock()
		t.complete = true
		m.mu.Unlock()
		m.metrics.DecTransfersActive(string(t.role))
		m.metrics.IncTransfersComplete()
	}

	return success, actual, nil
}
