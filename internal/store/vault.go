package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultSalt and DefaultIterations keep blobs readable by existing SuperAxe wallets.
	DefaultSalt       = "superaxe"
	DefaultIterations = 100_000

	keyLen   = 32
	nonceLen = 12
)

var (
	// ErrInvalidPasswordOrCorruptedData is the single error returned for any failure to open a blob.
	ErrInvalidPasswordOrCorruptedData = errors.New("invalid password or corrupted wallet")
	// ErrEmptyPassword is returned when sealing with an empty password.
	ErrEmptyPassword = errors.New("empty password")
)

// Vault seals plaintext with a password-derived AES-256-GCM key into a
// nonceHex:ciphertextHex blob.
type Vault struct {
	salt       []byte
	iterations int
	rand       io.Reader
}

// VaultOption customises a Vault.
type VaultOption func(*Vault)

// WithIterations overrides the PBKDF2 iteration count.
func WithIterations(n int) VaultOption {
	return func(v *Vault) { v.iterations = n }
}

// WithRandom overrides the nonce source.
func WithRandom(r io.Reader) VaultOption {
	return func(v *Vault) { v.rand = r }
}

// NewVault returns a vault using the fixed salt and DefaultIterations unless overridden.
func NewVault(opts ...VaultOption) *Vault {
	v := &Vault{
		salt:       []byte(DefaultSalt),
		iterations: DefaultIterations,
		rand:       rand.Reader,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Vault) aead(password string) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), v.salt, v.iterations, keyLen, sha256.New)
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext under password with a fresh nonce.
func (v *Vault) Seal(plaintext []byte, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	gcm, err := v.aead(password)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(v.rand, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	ct := gcm.Seal(nil, nonce, plaintext, nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(ct), nil
}

// Open authenticates and decrypts blob. Every failure, whether a malformed
// blob or a wrong password, yields ErrInvalidPasswordOrCorruptedData.
func (v *Vault) Open(blob, password string) ([]byte, error) {
	nonceHex, ctHex, ok := strings.Cut(blob, ":")
	if !ok {
		return nil, ErrInvalidPasswordOrCorruptedData
	}
	nonce, err := hex.DecodeString(nonceHex)
	if err != nil || len(nonce) != nonceLen {
		return nil, ErrInvalidPasswordOrCorruptedData
	}
	ct, err := hex.DecodeString(ctHex)
	if err != nil {
		return nil, ErrInvalidPasswordOrCorruptedData
	}
	gcm, err := v.aead(password)
	if err != nil {
		return nil, ErrInvalidPasswordOrCorruptedData
	}
	plaintext, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, ErrInvalidPasswordOrCorruptedData
	}
	return plaintext, nil
}
