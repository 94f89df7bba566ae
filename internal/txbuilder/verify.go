package txbuilder

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/goodnatureofminers/axewallet/pkg/safe"
)

// Verify decodes the signed transaction with btcd and runs every input
// through the script engine against the output it spends. It catches
// builder bugs; relay policy is still decided by the node.
func Verify(s *SignedTx) error {
	msg := wire.NewMsgTx(TxVersion)
	if err := msg.Deserialize(bytes.NewReader(s.Serialize())); err != nil {
		return fmt.Errorf("decode signed tx: %w", err)
	}
	if got, want := msg.TxHash().String(), s.TxID(); got != want {
		return fmt.Errorf("txid mismatch: decoded %s, built %s", got, want)
	}

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	amounts := make([]int64, len(msg.TxIn))
	for i, in := range s.tx.Inputs {
		amount, err := safe.Int64(in.Value)
		if err != nil {
			return fmt.Errorf("input %d value: %w", i, err)
		}
		amounts[i] = amount
		fetcher.AddPrevOut(msg.TxIn[i].PreviousOutPoint, wire.NewTxOut(amount, s.prevScripts[i]))
	}

	sigHashes := txscript.NewTxSigHashes(msg, fetcher)
	for i := range msg.TxIn {
		vm, err := txscript.NewEngine(
			s.prevScripts[i], msg, i, txscript.StandardVerifyFlags, nil, sigHashes, amounts[i], fetcher,
		)
		if err != nil {
			return fmt.Errorf("input %d engine: %w", i, err)
		}
		if err := vm.Execute(); err != nil {
			return fmt.Errorf("input %d script: %w", i, err)
		}
	}
	return nil
}
