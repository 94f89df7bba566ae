// Package keys generates secp256k1 private keys and converts them to and from WIF.
package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/goodnatureofminers/axewallet/internal/address"
	"github.com/goodnatureofminers/axewallet/internal/chain"
	"github.com/goodnatureofminers/axewallet/internal/codec/base58"
)

const (
	secretLen      = 32
	compressedFlag = 0x01
	maxDraws       = 8
)

var (
	// ErrWeakRandomness is returned when the entropy source fails or keeps producing invalid scalars.
	ErrWeakRandomness = errors.New("secure random source unavailable")
	// ErrInvalidVersion is returned when a WIF was encoded for another network.
	ErrInvalidVersion = errors.New("invalid WIF version")
	// ErrInvalidKey is returned for key material that is not a valid secp256k1 scalar.
	ErrInvalidKey = errors.New("invalid private key")
)

// Key is a secp256k1 private key. It always derives the compressed public key.
type Key struct {
	priv *btcec.PrivateKey
}

// Generate draws a private key from r, which must be a cryptographically secure source.
// Candidates that are zero or not below the curve order are redrawn.
func Generate(r io.Reader) (*Key, error) {
	buf := make([]byte, secretLen)
	defer clear(buf)

	for i := 0; i < maxDraws; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWeakRandomness, err)
		}
		if key, err := FromBytes(buf); err == nil {
			return key, nil
		}
	}
	return nil, fmt.Errorf("%w: no valid scalar after %d draws", ErrWeakRandomness, maxDraws)
}

// FromBytes builds a key from a 32-byte big-endian scalar in [1, n-1].
func FromBytes(secret []byte) (*Key, error) {
	if len(secret) != secretLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidKey, len(secret))
	}
	var s btcec.ModNScalar
	if overflow := s.SetByteSlice(secret); overflow || s.IsZero() {
		return nil, fmt.Errorf("%w: scalar out of range", ErrInvalidKey)
	}
	s.Zero()

	priv, _ := btcec.PrivKeyFromBytes(secret)
	return &Key{priv: priv}, nil
}

// PublicKey returns the 33-byte compressed SEC1 public key.
func (k *Key) PublicKey() []byte {
	return k.priv.PubKey().SerializeCompressed()
}

// Sign produces a DER-encoded low-S ECDSA signature over digest using RFC6979 nonces.
func (k *Key) Sign(digest [32]byte) ([]byte, error) {
	if k == nil || k.priv == nil {
		return nil, ErrInvalidKey
	}
	return ecdsa.Sign(k.priv, digest[:]).Serialize(), nil
}

// Equal reports whether both keys hold the same secret.
func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return k.priv.Key.Equals(&other.priv.Key)
}

// Zero clears the secret from memory. The key must not be used afterwards.
func (k *Key) Zero() {
	if k != nil && k.priv != nil {
		k.priv.Zero()
	}
}

// WIF encodes the key as Base58Check(prefix, secret || 0x01).
func (k *Key) WIF(params chain.Params) string {
	payload := make([]byte, 0, secretLen+1)
	payload = append(payload, k.priv.Serialize()...)
	payload = append(payload, compressedFlag)
	defer clear(payload)
	return base58.CheckEncode(params.WIFAddrID, payload)
}

// FromWIF decodes a WIF string for params.
func FromWIF(wif string, params chain.Params) (*Key, error) {
	version, payload, err := base58.CheckDecode(wif)
	if err != nil {
		return nil, fmt.Errorf("decode WIF: %w", err)
	}
	defer clear(payload)

	if version != params.WIFAddrID {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidVersion, version, params.WIFAddrID)
	}
	switch {
	case len(payload) == secretLen+1 && payload[secretLen] == compressedFlag:
		payload = payload[:secretLen]
	case len(payload) == secretLen:
	default:
		return nil, fmt.Errorf("%w: WIF payload of %d bytes", ErrInvalidKey, len(payload))
	}
	return FromBytes(payload)
}

// LegacyAddress returns the P2PKH address of the key.
func (k *Key) LegacyAddress(params chain.Params) *address.PubKeyHash {
	return address.FromPublicKey(k.PublicKey(), params)
}

// SegWitAddress returns the P2WPKH address of the key.
func (k *Key) SegWitAddress(params chain.Params) *address.WitnessAddress {
	return address.SegWitFromPublicKey(k.PublicKey(), params)
}

// Addresses is the display form of a key's two address encodings.
type Addresses struct {
	Legacy       string `json:"legacy"`
	SegWit       string `json:"segwit"`
	PublicKeyHex string `json:"publicKey"`
}

// Addresses derives both address encodings and the hex public key.
func (k *Key) Addresses(params chain.Params) Addresses {
	pub := k.PublicKey()
	return Addresses{
		Legacy:       address.FromPublicKey(pub, params).String(),
		SegWit:       address.SegWitFromPublicKey(pub, params).String(),
		PublicKeyHex: hex.EncodeToString(pub),
	}
}

// ConvertWIFToAddresses derives the addresses of an arbitrary WIF without touching wallet state.
func ConvertWIFToAddresses(wif string, params chain.Params) (Addresses, error) {
	k, err := FromWIF(wif, params)
	if err != nil {
		return Addresses{}, err
	}
	defer k.Zero()
	return k.Addresses(params), nil
}
