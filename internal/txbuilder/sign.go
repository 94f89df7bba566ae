package txbuilder

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/goodnatureofminers/axewallet/internal/hash"
)

// Signer produces signatures for the single key owning every input.
type Signer interface {
	// PublicKey returns the compressed public key.
	PublicKey() []byte
	// Sign returns a DER-encoded low-S signature over digest.
	Sign(digest [32]byte) ([]byte, error)
}

// SignedTx is an UnsignedTx with a scriptSig or witness stack per input.
type SignedTx struct {
	tx         *UnsignedTx
	scriptSigs [][]byte
	witnesses  [][][]byte
	// prevScripts are the scripts each signature commits to
	prevScripts [][]byte
}

// pushData encodes a direct push for data shorter than OP_PUSHDATA1.
func pushData(data []byte) []byte {
	out := make([]byte, 0, 1+len(data))
	out = append(out, byte(len(data)))
	return append(out, data...)
}

// Sign signs every input of tx with signer using SIGHASH_ALL. Inputs whose
// reported scriptPubKey is not the signer's P2PKH or P2WPKH script are rejected.
func Sign(tx *UnsignedTx, signer Signer) (*SignedTx, error) {
	pub := signer.PublicKey()
	pkh := hash.Hash160(pub)

	signed := &SignedTx{
		tx:          tx,
		scriptSigs:  make([][]byte, len(tx.Inputs)),
		witnesses:   make([][][]byte, len(tx.Inputs)),
		prevScripts: make([][]byte, len(tx.Inputs)),
	}
	for i, in := range tx.Inputs {
		var (
			expected []byte
			digest   [32]byte
			err      error
		)
		switch in.Type {
		case Legacy:
			expected = p2pkhScript(pkh)
			digest, err = tx.LegacySigHash(i, pkh)
		case SegWit:
			expected = p2wpkhScript(pkh)
			digest, err = tx.WitnessSigHash(i, pkh)
		default:
			return nil, fmt.Errorf("input %d: %w: %s", i, ErrUnsupportedScript, in.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("input %d sighash: %w", i, err)
		}
		if len(in.ScriptPubKey) > 0 && !bytes.Equal(in.ScriptPubKey, expected) {
			return nil, fmt.Errorf("input %d: %w", i, ErrScriptMismatch)
		}

		der, err := signer.Sign(digest)
		if err != nil {
			return nil, fmt.Errorf("input %d sign: %w", i, err)
		}
		sig := make([]byte, 0, len(der)+1)
		sig = append(sig, der...)
		sig = append(sig, byte(SigHashAll))

		if in.Type == Legacy {
			scriptSig := pushData(sig)
			signed.scriptSigs[i] = append(scriptSig, pushData(pub)...)
			signed.witnesses[i] = [][]byte{}
		} else {
			signed.witnesses[i] = [][]byte{sig, bytes.Clone(pub)}
		}
		signed.prevScripts[i] = expected
	}
	return signed, nil
}

// Unsigned returns the transaction the signatures were produced for.
func (s *SignedTx) Unsigned() *UnsignedTx { return s.tx }

// ScriptSig returns the scriptSig of input i.
func (s *SignedTx) ScriptSig(i int) []byte { return bytes.Clone(s.scriptSigs[i]) }

// Witness returns the witness stack of input i.
func (s *SignedTx) Witness(i int) [][]byte {
	out := make([][]byte, len(s.witnesses[i]))
	for j, item := range s.witnesses[i] {
		out[j] = bytes.Clone(item)
	}
	return out
}

// Serialize returns the network encoding, with marker, flag and witness
// stacks when any input is segwit.
func (s *SignedTx) Serialize() []byte {
	var witnesses [][][]byte
	if s.tx.HasWitness() {
		witnesses = s.witnesses
	}
	var buf bytes.Buffer
	_ = writeTx(&buf, s.tx, s.scriptSigs, witnesses)
	return buf.Bytes()
}

// SerializeNoWitness returns the encoding the txid is computed over.
func (s *SignedTx) SerializeNoWitness() []byte {
	var buf bytes.Buffer
	_ = writeTx(&buf, s.tx, s.scriptSigs, nil)
	return buf.Bytes()
}

// Hex returns Serialize as lowercase hex, the form the broadcast endpoint expects.
func (s *SignedTx) Hex() string { return hex.EncodeToString(s.Serialize()) }

// TxID returns the byte-reversed hash256 of the witness-free serialization.
func (s *SignedTx) TxID() string {
	return chainhash.Hash(hash.Hash256(s.SerializeNoWitness())).String()
}
