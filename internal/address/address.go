// Package address parses and renders P2PKH, P2SH and witness addresses.
package address

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goodnatureofminers/axewallet/internal/chain"
	"github.com/goodnatureofminers/axewallet/internal/codec/base58"
	"github.com/goodnatureofminers/axewallet/internal/codec/bech32"
	"github.com/goodnatureofminers/axewallet/internal/hash"
)

var (
	// ErrInvalidWitnessProgram is returned for witness programs that are not 20 or 32 bytes.
	ErrInvalidWitnessProgram = errors.New("invalid witness program")
	// ErrUnsupportedWitnessVersion is returned when building a script for a witness version other than 0.
	ErrUnsupportedWitnessVersion = errors.New("unsupported witness version")
	// ErrWrongNetwork is returned when the prefix or hrp belongs to different network parameters.
	ErrWrongNetwork = errors.New("address belongs to another network")
	// ErrInvalidLength is returned when a base58 payload is not a 20-byte hash.
	ErrInvalidLength = errors.New("invalid address payload length")
)

const (
	opDup         = 0x76
	opHash160     = 0xa9
	opEqual       = 0x87
	opEqualVerify = 0x88
	opCheckSig    = 0xac
	opData20      = 0x14
)

// Address is one of *PubKeyHash, *ScriptHash or *WitnessAddress.
type Address interface {
	// String renders the address in its network text format.
	String() string
	// ScriptPubKey returns the locking script paying to the address.
	ScriptPubKey() ([]byte, error)

	isAddress()
}

// PubKeyHash is a legacy P2PKH address.
type PubKeyHash struct {
	hash   [20]byte
	prefix byte
}

// NewPubKeyHash builds a P2PKH address from a 20-byte hash.
func NewPubKeyHash(h [20]byte, params chain.Params) *PubKeyHash {
	return &PubKeyHash{hash: h, prefix: params.PubKeyHashAddrID}
}

// FromPublicKey derives the P2PKH address of a compressed public key.
func FromPublicKey(pub []byte, params chain.Params) *PubKeyHash {
	return NewPubKeyHash(hash.Hash160(pub), params)
}

// Hash160 returns the public key hash.
func (a *PubKeyHash) Hash160() [20]byte { return a.hash }

func (a *PubKeyHash) String() string { return base58.CheckEncode(a.prefix, a.hash[:]) }

// ScriptPubKey returns OP_DUP OP_HASH160 <hash> OP_EQUALVERIFY OP_CHECKSIG.
func (a *PubKeyHash) ScriptPubKey() ([]byte, error) {
	script := make([]byte, 0, 25)
	script = append(script, opDup, opHash160, opData20)
	script = append(script, a.hash[:]...)
	return append(script, opEqualVerify, opCheckSig), nil
}

func (*PubKeyHash) isAddress() {}

// ScriptHash is a P2SH address. The wallet never spends from one but can pay to it.
type ScriptHash struct {
	hash   [20]byte
	prefix byte
}

// NewScriptHash builds a P2SH address from a 20-byte script hash.
func NewScriptHash(h [20]byte, params chain.Params) *ScriptHash {
	return &ScriptHash{hash: h, prefix: params.ScriptHashAddrID}
}

func (a *ScriptHash) String() string { return base58.CheckEncode(a.prefix, a.hash[:]) }

// ScriptPubKey returns OP_HASH160 <hash> OP_EQUAL.
func (a *ScriptHash) ScriptPubKey() ([]byte, error) {
	script := make([]byte, 0, 23)
	script = append(script, opHash160, opData20)
	script = append(script, a.hash[:]...)
	return append(script, opEqual), nil
}

func (*ScriptHash) isAddress() {}

// WitnessAddress is a bech32 segwit address.
type WitnessAddress struct {
	hrp     string
	version byte
	program []byte
}

// NewWitnessAddress validates and builds a witness address.
func NewWitnessAddress(version byte, program []byte, params chain.Params) (*WitnessAddress, error) {
	if version > 16 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedWitnessVersion, version)
	}
	if version == 0 && len(program) != 20 && len(program) != 32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidWitnessProgram, len(program))
	}
	if len(program) < 2 || len(program) > 40 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidWitnessProgram, len(program))
	}
	return &WitnessAddress{hrp: params.Bech32HRP, version: version, program: bytes.Clone(program)}, nil
}

// SegWitFromPublicKey derives the P2WPKH address of a compressed public key.
func SegWitFromPublicKey(pub []byte, params chain.Params) *WitnessAddress {
	h := hash.Hash160(pub)
	return &WitnessAddress{hrp: params.Bech32HRP, version: 0, program: h[:]}
}

// Version returns the witness version.
func (a *WitnessAddress) Version() byte { return a.version }

// Program returns a copy of the witness program.
func (a *WitnessAddress) Program() []byte { return bytes.Clone(a.program) }

func (a *WitnessAddress) String() string {
	s, err := bech32.EncodeSegWit(a.hrp, a.version, a.program)
	if err != nil {
		// unreachable: version and program are validated on construction
		return ""
	}
	return s
}

// ScriptPubKey returns OP_0 <program>. Only version 0 with a 20 or 32 byte program is spendable by this wallet.
func (a *WitnessAddress) ScriptPubKey() ([]byte, error) {
	if a.version != 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedWitnessVersion, a.version)
	}
	if len(a.program) != 20 && len(a.program) != 32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidWitnessProgram, len(a.program))
	}
	script := make([]byte, 0, 2+len(a.program))
	script = append(script, 0x00, byte(len(a.program)))
	return append(script, a.program...), nil
}

func (*WitnessAddress) isAddress() {}

// Parse decodes s into an Address for params. Strings starting with the
// network hrp and separator are decoded as bech32, everything else as Base58Check.
func Parse(s string, params chain.Params) (Address, error) {
	if isBech32(s, params) {
		hrp, version, program, err := bech32.DecodeSegWit(s)
		if err != nil {
			return nil, fmt.Errorf("decode bech32 address: %w", err)
		}
		if hrp != params.Bech32HRP {
			return nil, fmt.Errorf("%w: hrp %q", ErrWrongNetwork, hrp)
		}
		return NewWitnessAddress(version, program, params)
	}

	version, payload, err := base58.CheckDecode(s)
	if err != nil {
		return nil, fmt.Errorf("decode base58 address: %w", err)
	}
	if len(payload) != 20 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(payload))
	}
	var h [20]byte
	copy(h[:], payload)

	switch version {
	case params.PubKeyHashAddrID:
		return NewPubKeyHash(h, params), nil
	case params.ScriptHashAddrID:
		return NewScriptHash(h, params), nil
	default:
		return nil, fmt.Errorf("%w: version byte %d", ErrWrongNetwork, version)
	}
}

// isBech32 reports whether s carries the network hrp or is a checksummed
// bech32 string of any hrp, so foreign witness addresses report the network.
func isBech32(s string, params chain.Params) bool {
	if params.Bech32HRP != "" && strings.HasPrefix(strings.ToLower(s), params.Bech32HRP+"1") {
		return true
	}
	_, _, err := bech32.Decode(s)
	return err == nil
}

// ToScriptPubKey parses s and returns the script paying to it.
func ToScriptPubKey(s string, params chain.Params) ([]byte, error) {
	addr, err := Parse(s, params)
	if err != nil {
		return nil, err
	}
	return addr.ScriptPubKey()
}
