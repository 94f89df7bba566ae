package txbuilder

import (
	"fmt"

	"github.com/goodnatureofminers/axewallet/pkg/safe"
)

const (
	// FeeBuffer is added to the amount when deciding how many inputs to gather.
	FeeBuffer uint64 = 1000
	// DustThreshold is the largest change value that is dropped instead of paid back.
	DustThreshold uint64 = 546

	baseSize   = 10
	inputSize  = 148
	outputSize = 34
	// selection always budgets for the payment plus a possible change output
	plannedOutputs = 2
)

// EstimateFee returns (10 + 148*inputs + 34*outputs) * feeRate. It charges
// every input as a legacy input, so segwit spends pay more than their vsize needs.
func EstimateFee(inputs, outputs int, feeRate uint64) (uint64, error) {
	in, err := safe.Uint64(inputs)
	if err != nil {
		return 0, err
	}
	out, err := safe.Uint64(outputs)
	if err != nil {
		return 0, err
	}
	return safe.Mul(baseSize+inputSize*in+outputSize*out, feeRate)
}

// Selection is the outcome of coin selection.
type Selection struct {
	Inputs []UTXO
	Total  uint64
	Amount uint64
	// EstimatedFee is the EstimateFee price of the selection.
	EstimatedFee uint64
	// Fee is what the transaction pays: Total - Amount - Change. It exceeds
	// EstimatedFee when a dust remainder is dropped.
	Fee uint64
	// Change is zero when the remainder is at or below DustThreshold.
	Change uint64
}

// Select walks utxos in order, stopping once the gathered value reaches
// amount + FeeBuffer, and prices the result with EstimateFee.
func Select(utxos []UTXO, amount, feeRate uint64) (Selection, error) {
	if amount == 0 {
		return Selection{}, ErrInvalidAmount
	}
	target, err := safe.Add(amount, FeeBuffer)
	if err != nil {
		return Selection{}, err
	}

	var (
		selected []UTXO
		total    uint64
	)
	for _, u := range utxos {
		selected = append(selected, u)
		if total, err = safe.Add(total, u.Value); err != nil {
			return Selection{}, fmt.Errorf("sum inputs: %w", err)
		}
		if total >= target {
			break
		}
	}

	if total < amount {
		return Selection{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, total, amount)
	}
	fee, err := EstimateFee(len(selected), plannedOutputs, feeRate)
	if err != nil {
		return Selection{}, err
	}
	if total-amount < fee {
		return Selection{}, fmt.Errorf("%w: have %d, need %d + fee %d", ErrInsufficientFundsForFee, total, amount, fee)
	}

	change := total - amount - fee
	if change <= DustThreshold {
		change = 0
	}
	return Selection{
		Inputs:       selected,
		Total:        total,
		Amount:       amount,
		EstimatedFee: fee,
		Fee:          total - amount - change,
		Change:       change,
	}, nil
}
