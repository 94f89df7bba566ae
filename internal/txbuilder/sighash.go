package txbuilder

import (
	"bytes"
	"fmt"

	"github.com/goodnatureofminers/axewallet/internal/hash"
)

// p2pkhScript returns OP_DUP OP_HASH160 <pkh> OP_EQUALVERIFY OP_CHECKSIG.
func p2pkhScript(pkh [20]byte) []byte {
	s := make([]byte, 0, 25)
	s = append(s, 0x76, 0xa9, 0x14)
	s = append(s, pkh[:]...)
	return append(s, 0x88, 0xac)
}

// p2wpkhScript returns OP_0 <pkh>.
func p2wpkhScript(pkh [20]byte) []byte {
	s := make([]byte, 0, 22)
	s = append(s, 0x00, 0x14)
	return append(s, pkh[:]...)
}

func (tx *UnsignedTx) checkIndex(i int) error {
	if i < 0 || i >= len(tx.Inputs) {
		return fmt.Errorf("%w: %d of %d", ErrInputIndex, i, len(tx.Inputs))
	}
	return nil
}

// LegacyPreimage returns the SIGHASH_ALL preimage for input i: the
// witness-free serialization with the P2PKH script of pkh in input i's
// scriptSig, every other scriptSig empty, followed by the sighash type.
func (tx *UnsignedTx) LegacyPreimage(i int, pkh [20]byte) ([]byte, error) {
	if err := tx.checkIndex(i); err != nil {
		return nil, err
	}
	scriptSigs := make([][]byte, len(tx.Inputs))
	scriptSigs[i] = p2pkhScript(pkh)

	var buf bytes.Buffer
	if err := writeTx(&buf, tx, scriptSigs, nil); err != nil {
		return nil, err
	}
	if err := writeUint32(&buf, SigHashAll); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LegacySigHash returns hash256 of LegacyPreimage.
func (tx *UnsignedTx) LegacySigHash(i int, pkh [20]byte) ([32]byte, error) {
	pre, err := tx.LegacyPreimage(i, pkh)
	if err != nil {
		return [32]byte{}, err
	}
	return hash.Hash256(pre), nil
}

func (tx *UnsignedTx) hashPrevouts() [32]byte {
	var buf bytes.Buffer
	for _, in := range tx.Inputs {
		_ = writeOutPoint(&buf, in)
	}
	return hash.Hash256(buf.Bytes())
}

func (tx *UnsignedTx) hashSequence() [32]byte {
	var buf bytes.Buffer
	for _, in := range tx.Inputs {
		_ = writeUint32(&buf, in.Sequence)
	}
	return hash.Hash256(buf.Bytes())
}

func (tx *UnsignedTx) hashOutputs() [32]byte {
	var buf bytes.Buffer
	for _, out := range tx.Outputs {
		_ = writeOutput(&buf, out)
	}
	return hash.Hash256(buf.Bytes())
}

// WitnessPreimage returns the BIP143 preimage for P2WPKH input i. The input
// value is committed, so a signature is bound to the amount being spent.
func (tx *UnsignedTx) WitnessPreimage(i int, pkh [20]byte) ([]byte, error) {
	if err := tx.checkIndex(i); err != nil {
		return nil, err
	}
	in := tx.Inputs[i]
	prevouts := tx.hashPrevouts()
	sequences := tx.hashSequence()
	outputs := tx.hashOutputs()

	var buf bytes.Buffer
	buf.Grow(4 + 32 + 32 + 36 + 26 + 8 + 4 + 32 + 4 + 4)
	_ = writeUint32(&buf, uint32(tx.Version))
	buf.Write(prevouts[:])
	buf.Write(sequences[:])
	_ = writeOutPoint(&buf, in)
	// scriptCode is the P2PKH script with its length prefix
	buf.WriteByte(0x19)
	buf.Write(p2pkhScript(pkh))
	_ = writeUint64(&buf, in.Value)
	_ = writeUint32(&buf, in.Sequence)
	buf.Write(outputs[:])
	_ = writeUint32(&buf, tx.LockTime)
	_ = writeUint32(&buf, SigHashAll)
	return buf.Bytes(), nil
}

// WitnessSigHash returns hash256 of WitnessPreimage.
func (tx *UnsignedTx) WitnessSigHash(i int, pkh [20]byte) ([32]byte, error) {
	pre, err := tx.WitnessPreimage(i, pkh)
	if err != nil {
		return [32]byte{}, err
	}
	return hash.Hash256(pre), nil
}
