// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// GetAmountOut quotes the output a trade receives for amountIn against
// the given reserves, after deducting feeBps from the input. Rounds down.
//
//	out = in*(10000-fee)*reserveOut / (reserveIn*10000 + in*(10000-fee))
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int, feeBps uint16) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	inWithFee := new(big.Int).Mul(amountIn, big.NewInt(int64(FeeDenominator-feeBps)))
	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Add(
		new(big.Int).Mul(reserveIn, big.NewInt(FeeDenominator)),
		inWithFee,
	)
	return numerator.Div(numerator, denominator), nil
}

// GetAmountIn quotes the input required to receive exactly amountOut,
// rounded up so the trader never underpays. A pool can never be drained
// completely: amountOut must be strictly below reserveOut.
func GetAmountIn(amountOut, reserveIn, reserveOut *big.Int, feeBps uint16) (*big.Int, error) {
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, ErrInsufficientLiquidity
	}

	numerator := new(big.Int).Mul(reserveIn, amountOut)
	numerator.Mul(numerator, big.NewInt(FeeDenominator))
	denominator := new(big.Int).Sub(reserveOut, amountOut)
	denominator.Mul(denominator, big.NewInt(int64(FeeDenominator-feeBps)))
	amountIn := numerator.Div(numerator, denominator)
	return amountIn.Add(amountIn, big.NewInt(1)), nil
}

// QuoteOut is a read-only helper quoting a swap against current cached
// reserves. zeroForOne selects the trade direction: token0 in, token1 out
// when true.
func (p *Pair) QuoteOut(amountIn *big.Int, zeroForOne bool) (*big.Int, error) {
	if zeroForOne {
		return GetAmountOut(amountIn, p.reserve0, p.reserve1, p.feeBps)
	}
	return GetAmountOut(amountIn, p.reserve1, p.reserve0, p.feeBps)
}

// Swap sends the requested output amounts to [to] before any payment is
// observed, optionally hands control to a flash callback, then enforces
// the fee-adjusted constant-product invariant on freshly measured
// balances. The optimistic ordering is what makes flash swaps possible
// and must not be reordered.
//
// On any failure the ledger snapshot taken at entry is reverted and the
// cached pair state restored, so a failed swap leaves no trace.
func (p *Pair) Swap(ledger TokenLedger, caller common.Address, amount0Out, amount1Out *big.Int, to common.Address, cb FlashCallback, data []byte) error {
	if amount0Out == nil || amount1Out == nil || amount0Out.Sign() < 0 || amount1Out.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount0Out.Sign() == 0 && amount1Out.Sign() == 0 {
		return ErrInsufficientOutputAmount
	}
	if amount0Out.Cmp(p.reserve0) >= 0 || amount1Out.Cmp(p.reserve1) >= 0 {
		return ErrInsufficientLiquidity
	}
	if to == p.token0 || to == p.token1 || to == p.addr {
		return ErrInvalidRecipient
	}

	snap := ledger.Snapshot()
	state := p.snapshotState()

	err := p.swapInner(ledger, caller, amount0Out, amount1Out, to, cb, data)
	if err != nil {
		ledger.RevertToSnapshot(snap)
		p.restoreState(state)
	}
	return err
}

func (p *Pair) swapInner(ledger TokenLedger, caller common.Address, amount0Out, amount1Out *big.Int, to common.Address, cb FlashCallback, data []byte) error {
	// Optimistic delivery
	if amount0Out.Sign() > 0 {
		if err := ledger.Transfer(p.token0, p.addr, to, amount0Out); err != nil {
			return err
		}
	}
	if amount1Out.Sign() > 0 {
		if err := ledger.Transfer(p.token1, p.addr, to, amount1Out); err != nil {
			return err
		}
	}

	// Control leaves the trust boundary here. The callback may recurse
	// into this pair or others; repayment is enforced only by the
	// invariant check below.
	if cb != nil && len(data) > 0 {
		if err := cb.OnFlashSwap(caller, amount0Out, amount1Out, data); err != nil {
			return err
		}
	}

	balance0 := ledger.BalanceOf(p.token0, p.addr)
	balance1 := ledger.BalanceOf(p.token1, p.addr)
	if balance0.Cmp(MaxReserve) > 0 || balance1.Cmp(MaxReserve) > 0 {
		return ErrReserveOverflow
	}

	amount0In := impliedInput(balance0, p.reserve0, amount0Out)
	amount1In := impliedInput(balance1, p.reserve1, amount1Out)
	if amount0In.Sign() == 0 && amount1In.Sign() == 0 {
		return ErrInsufficientInputAmount
	}

	if err := p.checkInvariant(balance0, balance1, amount0In, amount1In); err != nil {
		return err
	}
	return p.update(balance0, balance1)
}

// impliedInput derives the input amount a swap actually paid from the
// measured balance: anything above (reserve - out) must have come in
// during the call.
func impliedInput(balance, reserve, amountOut *big.Int) *big.Int {
	floor := new(big.Int).Sub(reserve, amountOut)
	if balance.Cmp(floor) > 0 {
		return new(big.Int).Sub(balance, floor)
	}
	return big.NewInt(0)
}

// checkInvariant verifies the fee-adjusted constant product did not
// decrease:
//
//	(balance0*10000 - in0*fee) * (balance1*10000 - in1*fee)
//	  >= reserve0 * reserve1 * 10000^2
//
// All operands are bounded by the 112-bit reserve ceiling so every
// intermediate fits 256 bits; overflow therefore indicates corrupted
// state and is surfaced rather than wrapped.
func (p *Pair) checkInvariant(balance0, balance1, amount0In, amount1In *big.Int) error {
	fee := uint256.NewInt(uint64(p.feeBps))
	denom := uint256.NewInt(FeeDenominator)

	adjusted0 := adjustedBalance(balance0, amount0In, fee, denom)
	adjusted1 := adjustedBalance(balance1, amount1In, fee, denom)

	left, overflow := mulChecked(adjusted0, adjusted1)
	if overflow {
		return ErrReserveOverflow
	}

	r0, _ := uint256.FromBig(p.reserve0)
	r1, _ := uint256.FromBig(p.reserve1)
	right, overflow := mulChecked(r0, r1)
	if overflow {
		return ErrReserveOverflow
	}
	right.Mul(right, denom)
	right.Mul(right, denom)

	if left.Lt(right) {
		return ErrKInvariant
	}
	return nil
}

func adjustedBalance(balance, amountIn *big.Int, fee, denom *uint256.Int) *uint256.Int {
	b, _ := uint256.FromBig(balance)
	b.Mul(b, denom)
	in, _ := uint256.FromBig(amountIn)
	return b.Sub(b, in.Mul(in, fee))
}
