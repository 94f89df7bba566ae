package txbuilder

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/wire"
)

const (
	witnessMarker = 0x00
	witnessFlag   = 0x01
)

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeOutPoint(w io.Writer, in Input) error {
	if _, err := w.Write(in.PrevHash[:]); err != nil {
		return err
	}
	return writeUint32(w, in.Vout)
}

func writeOutput(w io.Writer, out Output) error {
	if err := writeUint64(w, out.Value); err != nil {
		return err
	}
	return wire.WriteVarBytes(w, 0, out.ScriptPubKey)
}

// writeTx serializes tx with the given per-input scriptSigs. A nil witness
// list produces the legacy encoding; otherwise the marker, flag and one
// stack per input (possibly empty) are written.
func writeTx(w io.Writer, tx *UnsignedTx, scriptSigs [][]byte, witnesses [][][]byte) error {
	if err := writeUint32(w, uint32(tx.Version)); err != nil {
		return err
	}
	if witnesses != nil {
		if _, err := w.Write([]byte{witnessMarker, witnessFlag}); err != nil {
			return err
		}
	}

	if err := wire.WriteVarInt(w, 0, uint64(len(tx.Inputs))); err != nil {
		return err
	}
	for i, in := range tx.Inputs {
		if err := writeOutPoint(w, in); err != nil {
			return err
		}
		var sigScript []byte
		if scriptSigs != nil {
			sigScript = scriptSigs[i]
		}
		if err := wire.WriteVarBytes(w, 0, sigScript); err != nil {
			return err
		}
		if err := writeUint32(w, in.Sequence); err != nil {
			return err
		}
	}

	if err := wire.WriteVarInt(w, 0, uint64(len(tx.Outputs))); err != nil {
		return err
	}
	for _, out := range tx.Outputs {
		if err := writeOutput(w, out); err != nil {
			return err
		}
	}

	if witnesses != nil {
		for _, stack := range witnesses {
			if err := wire.WriteVarInt(w, 0, uint64(len(stack))); err != nil {
				return err
			}
			for _, item := range stack {
				if err := wire.WriteVarBytes(w, 0, item); err != nil {
					return err
				}
			}
		}
	}
	return writeUint32(w, tx.LockTime)
}

// Serialize returns the legacy encoding with empty scriptSigs.
func (tx *UnsignedTx) Serialize() []byte {
	var buf bytes.Buffer
	_ = writeTx(&buf, tx, nil, nil)
	return buf.Bytes()
}
