// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"math/big"

	"github.com/luxfi/geth/common"
)

// FlashSwap borrows output with no upfront payment. The requested amounts
// are delivered to [to], the callback runs with the borrowed funds, and
// the swap settles only if the callback left principal plus the regular
// swap fee in the pair's balance. There is no debt ledger: the post-
// callback invariant check is the sole repayment enforcement.
//
// Recursion is permitted: the callback may open further swaps or flash
// swaps on this or other pairs. No reentrancy flag is held across the
// callback; aborting any level unwinds that level's ledger journal.
func (p *Pair) FlashSwap(ledger TokenLedger, caller common.Address, amount0Out, amount1Out *big.Int, to common.Address, cb FlashCallback, data []byte) error {
	if cb == nil || len(data) == 0 {
		return ErrCallbackRequired
	}
	return p.Swap(ledger, caller, amount0Out, amount1Out, to, cb, data)
}

// FlashFee returns the fee owed when a flash-borrowed amount is repaid in
// the same token, rounded up. The borrowed amount is priced as the output
// leg of a regular swap, so the repayment must gross up the fee taken on
// the input side:
//
//	fee = ceil(amount * feeBps / (10000 - feeBps))
//
// Repaying amount+fee is exactly enough to satisfy the invariant check.
func FlashFee(amount *big.Int, feeBps uint16) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	keep := int64(FeeDenominator - feeBps)
	fee := new(big.Int).Mul(amount, big.NewInt(int64(feeBps)))
	fee.Add(fee, big.NewInt(keep-1))
	return fee.Div(fee, big.NewInt(keep))
}
