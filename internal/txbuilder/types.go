// Package txbuilder selects coins, builds, signs and serializes P2PKH and P2WPKH spends.
package txbuilder

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
)

const (
	// TxVersion is the version field of every transaction built here.
	TxVersion int32 = 1
	// DefaultSequence disables relative locktime and RBF signalling.
	DefaultSequence uint32 = 0xffffffff
	// SigHashAll is the only supported signature hash type.
	SigHashAll uint32 = 1
)

var (
	// ErrInsufficientFunds is returned when the candidate inputs do not cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientFundsForFee is returned when the inputs cover the amount but not the fee.
	ErrInsufficientFundsForFee = errors.New("insufficient funds for fee")
	// ErrInvalidAmount is returned for a zero payment.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidTxID is returned for txids that are not 64 hex characters.
	ErrInvalidTxID = errors.New("invalid txid")
	// ErrUnsupportedScript is returned for scripts other than P2PKH and P2WPKH.
	ErrUnsupportedScript = errors.New("unsupported script type")
	// ErrScriptMismatch is returned when a reported scriptPubKey does not belong to the signing key.
	ErrScriptMismatch = errors.New("script does not match signing key")
	// ErrInputIndex is returned for a sighash request outside the input list.
	ErrInputIndex = errors.New("input index out of range")
)

// InputType tags the spending path of an input.
type InputType int

const (
	// Legacy inputs spend P2PKH outputs with a scriptSig.
	Legacy InputType = iota
	// SegWit inputs spend P2WPKH outputs with a witness.
	SegWit
)

func (t InputType) String() string {
	switch t {
	case Legacy:
		return "legacy"
	case SegWit:
		return "segwit"
	default:
		return fmt.Sprintf("InputType(%d)", int(t))
	}
}

// UTXO is a spendable output reported by the indexer.
type UTXO struct {
	TxID         string
	Vout         uint32
	Value        uint64
	ScriptPubKey []byte
	Address      string
	Type         InputType
}

// Output pays Value to ScriptPubKey.
type Output struct {
	Value        uint64
	ScriptPubKey []byte
}

// Input references a previous output in wire byte order.
type Input struct {
	PrevHash     chainhash.Hash
	Vout         uint32
	Value        uint64
	Type         InputType
	Sequence     uint32
	ScriptPubKey []byte
}

// ParseTxID converts a display-order hex txid into its wire byte order.
func ParseTxID(txid string) (chainhash.Hash, error) {
	if len(txid) != chainhash.MaxHashStringSize {
		return chainhash.Hash{}, fmt.Errorf("%w: %q", ErrInvalidTxID, txid)
	}
	if _, err := hex.DecodeString(txid); err != nil {
		return chainhash.Hash{}, fmt.Errorf("%w: %v", ErrInvalidTxID, err)
	}
	h, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("%w: %v", ErrInvalidTxID, err)
	}
	return *h, nil
}

// ClassifyScript maps a scriptPubKey onto the input type able to spend it.
func ClassifyScript(script []byte) (InputType, error) {
	switch class := txscript.GetScriptClass(script); class {
	case txscript.PubKeyHashTy:
		return Legacy, nil
	case txscript.WitnessV0PubKeyHashTy:
		return SegWit, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedScript, class)
	}
}
