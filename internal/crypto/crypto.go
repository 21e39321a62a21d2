// Package crypto implements Pingo's cryptographic session layer: ephemeral
// X25519 Diffie-Hellman key agreement per peer and AES-256-GCM authenticated
// encryption of payloads exchanged over Signaling.
//
// Session keys are derived once per peer via EstablishSession and cached in
// a reader-writer-locked map (readers dominate: every Encrypt/Decrypt call
// takes a read lock; only EstablishSession and ClearSession take a write
// lock).
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/curve25519"
)

// Sentinel errors. ErrDecryptionFailed is deliberately generic: spec.md
// §4.2/§7 require that tag failure, wrong key, and malformed ciphertext are
// indistinguishable to the caller, to avoid a padding/decryption oracle.
var (
	ErrSessionNotFound   = errors.New("crypto: no session established for peer")
	ErrDecryptionFailed  = errors.New("crypto: decryption failed")
	ErrInvalidPublicKey  = errors.New("crypto: invalid public key")
	ErrInvalidCiphertext = errors.New("crypto: invalid ciphertext")
)

const (
	keySize   = 32
	nonceSize = 12
)

// KeyPair is an X25519 keypair. Priv is the 32-byte scalar; Pub is the
// corresponding point, computed by scalar multiplication with the base point.
type KeyPair struct {
	Priv [32]byte
	Pub  [32]byte
}

// PubBase64 returns the public key base64-encoded, as exchanged over the wire.
func (kp KeyPair) PubBase64() string {
	return base64.StdEncoding.EncodeToString(kp.Pub[:])
}

// GenerateKeyPair creates a new X25519 keypair from a CSPRNG-sourced scalar.
func GenerateKeyPair() (KeyPair, error) {
	var kp KeyPair
	if _, err := io.ReadFull(rand.Reader, kp.Priv[:]); err != nil {
		return KeyPair{}, fmt.Errorf("generate private scalar: %w", err)
	}

	pub, err := curve25519.X25519(kp.Priv[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, fmt.Errorf("derive public key: %w", err)
	}
	copy(kp.Pub[:], pub)

	return kp, nil
}

// session holds the derived symmetric key and the peer's public key.
type session struct {
	sharedKey [32]byte
	peerPub   [32]byte
}

// Manager owns the peer -> session map and the local keypair.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]session
	keyPair  KeyPair
}

// NewManager creates a Manager wrapping the given local keypair.
func NewManager(kp KeyPair) *Manager {
	return &Manager{
		sessions: make(map[string]session),
		keyPair:  kp,
	}
}

// KeyPair returns the local keypair.
func (m *Manager) KeyPair() KeyPair {
	return m.keyPair
}

// EstablishSession computes the DH shared secret with the peer's
// base64-encoded public key and derives a 256-bit symmetric key as
// SHA-256(DH output). Re-establishing a session for an already-known peer
// simply replaces the cached entry; clearing is idempotent by construction.
func (m *Manager) EstablishSession(peerID string, peerPubB64 string) error {
	peerPub, err := decodePub(peerPubB64)
	if err != nil {
		return err
	}

	shared, err := curve25519.X25519(m.keyPair.Priv[:], peerPub[:])
	if err != nil {
		return fmt.Errorf("crypto: derive shared secret for %s: %w", peerID, err)
	}

	key := sha256.Sum256(shared)

	m.mu.Lock()
	m.sessions[peerID] = session{sharedKey: key, peerPub: peerPub}
	m.mu.Unlock()

	return nil
}

// ClearSession removes a peer's session, if any. Idempotent.
func (m *Manager) ClearSession(peerID string) {
	m.mu.Lock()
	delete(m.sessions, peerID)
	m.mu.Unlock()
}

// SessionCount returns the number of established sessions (for metrics).
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// HasSession reports whether a session exists for peerID.
func (m *Manager) HasSession(peerID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[peerID]
	return ok
}

// PeerIDs returns the device ids of every peer with an established
// session, for introspection surfaces (admin's session list).
func (m *Manager) PeerIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Envelope is the wire format for an encrypted payload (spec.md §4.2/§6).
// SenderPubB64 is echoed for opportunistic identification only -- the
// receiver decrypts using the session already keyed by the sender's known
// public key, it never switches keys based on this field.
type Envelope struct {
	NonceB64      string `json:"nonce_b64"`
	CiphertextB64 string `json:"ciphertext_b64"`
	SenderPubB64  string `json:"sender_pub_b64"`
}

// Encrypt encrypts plaintext for peerID using AES-256-GCM with a fresh
// random 12-byte nonce.
func (m *Manager) Encrypt(peerID string, plaintext []byte) (Envelope, error) {
	m.mu.RLock()
	sess, ok := m.sessions[peerID]
	m.mu.RUnlock()
	if !ok {
		return Envelope{}, fmt.Errorf("%w: %s", ErrSessionNotFound, peerID)
	}

	aead, err := newAEAD(sess.sharedKey)
	if err != nil {
		return Envelope{}, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Envelope{}, fmt.Errorf("crypto: generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	return Envelope{
		NonceB64:      base64.StdEncoding.EncodeToString(nonce),
		CiphertextB64: base64.StdEncoding.EncodeToString(ciphertext),
		SenderPubB64:  m.keyPair.PubBase64(),
	}, nil
}

// Decrypt decrypts env using the session established for peerID. Any
// failure -- missing session aside -- is reported as the single opaque
// ErrDecryptionFailed, never distinguishing tag failure from malformed
// input, to avoid a decryption oracle (spec.md §4.2/§7).
func (m *Manager) Decrypt(peerID string, env Envelope) ([]byte, error) {
	m.mu.RLock()
	sess, ok := m.sessions[peerID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, peerID)
	}

	nonce, err := base64.StdEncoding.DecodeString(env.NonceB64)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.CiphertextB64)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	aead, err := newAEAD(sess.sharedKey)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	if len(nonce) != aead.NonceSize() {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

func newAEAD(key [32]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new GCM: %w", err)
	}
	return aead, nil
}

func decodePub(b64 string) ([32]byte, error) {
	var pub [32]byte
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil || len(raw) != keySize {
		return pub, ErrInvalidPublicKey
	}
	copy(pub[:], raw)
	return pub, nil
}

// -------------------------------------------------------------------------
// Identifiers and checksums (spec.md §3, §4.2 "Helpers")
// -------------------------------------------------------------------------

// NewDeviceID generates a 16-byte random device id rendered as lowercase hex.
func NewDeviceID() (string, error) {
	return newHexID(16)
}

// NewID generates a random 128-bit id (message, group, note, transfer)
// rendered canonically as lowercase hex.
func NewID() (string, error) {
	return newHexID(16)
}

func newHexID(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("crypto: generate random id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ChecksumBytes returns the SHA-256 digest of b, rendered as lowercase hex.
func ChecksumBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// StreamChecksum streams r through SHA-256 in fixed-size chunks and returns
// the resulting digest as lowercase hex, without buffering the whole input.
func StreamChecksum(r io.Reader, bufSize int) (string, error) {
	if bufSize <= 0 {
		bufSize = 8192
	}
	h := sha256.New()
	buf := make([]byte, bufSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("crypto: stream checksum: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
