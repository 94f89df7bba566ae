package txbuilder

import (
	"bytes"
	"fmt"
)

// UnsignedTx is a transaction with its inputs and outputs fixed but no signatures.
type UnsignedTx struct {
	Version  int32
	Inputs   []Input
	Outputs  []Output
	LockTime uint32
	// Fee is the input total minus the output total.
	Fee uint64
}

// BuildUnsigned lays out the selected inputs, the payment and, when the
// selection kept any, the change output paying changeScript.
func BuildUnsigned(sel Selection, payScript, changeScript []byte) (*UnsignedTx, error) {
	if len(sel.Inputs) == 0 {
		return nil, fmt.Errorf("%w: no inputs selected", ErrInsufficientFunds)
	}
	if len(payScript) == 0 {
		return nil, fmt.Errorf("%w: empty destination script", ErrUnsupportedScript)
	}

	tx := &UnsignedTx{
		Version: TxVersion,
		Inputs:  make([]Input, 0, len(sel.Inputs)),
		Outputs: make([]Output, 0, 2),
	}
	for _, u := range sel.Inputs {
		prev, err := ParseTxID(u.TxID)
		if err != nil {
			return nil, err
		}
		tx.Inputs = append(tx.Inputs, Input{
			PrevHash:     prev,
			Vout:         u.Vout,
			Value:        u.Value,
			Type:         u.Type,
			Sequence:     DefaultSequence,
			ScriptPubKey: bytes.Clone(u.ScriptPubKey),
		})
	}

	tx.Outputs = append(tx.Outputs, Output{Value: sel.Amount, ScriptPubKey: bytes.Clone(payScript)})
	if sel.Change > 0 {
		if len(changeScript) == 0 {
			return nil, fmt.Errorf("%w: empty change script", ErrUnsupportedScript)
		}
		tx.Outputs = append(tx.Outputs, Output{Value: sel.Change, ScriptPubKey: bytes.Clone(changeScript)})
	}

	var in, out uint64
	for _, i := range tx.Inputs {
		in += i.Value
	}
	for _, o := range tx.Outputs {
		out += o.Value
	}
	if out > in {
		return nil, fmt.Errorf("%w: outputs %d exceed inputs %d", ErrInsufficientFunds, out, in)
	}
	tx.Fee = in - out
	return tx, nil
}

// HasWitness reports whether any input spends a segwit output.
func (tx *UnsignedTx) HasWitness() bool {
	for _, in := range tx.Inputs {
		if in.Type == SegWit {
			return true
		}
	}
	return false
}
