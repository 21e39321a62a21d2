package transfer

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pingonet/pingo-core/internal/crypto"
)

// PrepareSend opens path, measures its size, streams it through SHA-256 to
// compute the whole-file checksum, registers a sender-side Transfer entry
// under id, and returns the metadata to advertise to the receiver.
func (m *Manager) PrepareSend(id, path string) (Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return Meta{}, fmt.Errorf("transfer: prepare send: open: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Meta{}, fmt.Errorf("transfer: prepare send: stat: %w", err)
	}

	checksum, err := crypto.StreamChecksum(f, 8192)
	if err != nil {
		return Meta{}, fmt.Errorf("transfer: prepare send: checksum: %w", err)
	}

	size := info.Size()
	totalChunks := int((size + ChunkSize - 1) / ChunkSize)
	if size == 0 {
		totalChunks = 0
	}

	meta := Meta{
		ID:          id,
		FileName:    filepath.Base(path),
		FileSize:    size,
		TotalChunks: totalChunks,
		Checksum:    checksum,
	}

	m.mu.Lock()
	m.transfers[id] = &transferState{
		meta:      meta,
		role:      RoleSender,
		localPath: path,
		bitmap:    newBitmap(totalChunks),
	}
	m.mu.Unlock()
	m.metrics.IncTransfersActive(string(RoleSender))

	return meta, nil
}

// GetChunk seeks to index*ChunkSize in the sender-side file, reads up to
// ChunkSize bytes, and returns the base64-encoded payload with its own
// SHA-256 checksum.
func (m *Manager) GetChunk(id string, index int) (Chunk, error) {
	m.mu.RLock()
	t, ok := m.transfers[id]
	m.mu.RUnlock()
	if !ok {
		return Chunk{}, fmt.Errorf("%w: %s", ErrTransferNotFound, id)
	}
	if index < 0 || index >= t.meta.TotalChunks {
		return Chunk{}, fmt.Errorf("%w: %d", ErrChunkOutOfRange, index)
	}

	f, err := os.Open(t.localPath)
	if err != nil {
		return Chunk{}, fmt.Errorf("transfer: get chunk: open: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(index)*ChunkSize, io.SeekStart); err != nil {
		return Chunk{}, fmt.Errorf("transfer: get chunk: seek: %w", err)
	}

	bufp := chunkBufPool.Get().(*[]byte)
	defer chunkBufPool.Put(bufp)
	buf := *bufp

	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Chunk{}, fmt.Errorf("transfer: get chunk: read: %w", err)
	}
	buf = buf[:n]

	m.metrics.IncChunksSent()

	return Chunk{
		ID:         id,
		Index:      index,
		PayloadB64: base64.StdEncoding.EncodeToString(buf),
		Checksum:   crypto.ChecksumBytes(buf),
	}, nil
}
