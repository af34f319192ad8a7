// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"math/big"

	"github.com/luxfi/geth/common"
)

// AddLiquidity converts tokens already transferred into the pair account
// into newly issued liquidity shares for [to]. The deposit amounts are
// measured as the delta between actual balances and cached reserves, so
// callers transfer first and mint second; nothing is taken on the pair's
// own initiative.
//
// The first deposit issues the geometric mean of the two amounts, minus
// MinimumLiquidity which is locked forever. Subsequent deposits issue the
// smaller of the two proportional ratios, so depositing off-ratio forfeits
// the excess to the pool rather than diluting existing holders.
func (p *Pair) AddLiquidity(ledger TokenLedger, to common.Address) (*big.Int, error) {
	balance0 := ledger.BalanceOf(p.token0, p.addr)
	balance1 := ledger.BalanceOf(p.token1, p.addr)
	if balance0.Cmp(MaxReserve) > 0 || balance1.Cmp(MaxReserve) > 0 {
		return nil, ErrReserveOverflow
	}

	amount0 := new(big.Int).Sub(balance0, p.reserve0)
	amount1 := new(big.Int).Sub(balance1, p.reserve1)
	if amount0.Sign() < 0 || amount1.Sign() < 0 {
		return nil, ErrInvalidAmount
	}

	var issued *big.Int
	if p.totalShares.Sign() == 0 {
		issued = new(big.Int).Sub(isqrt(new(big.Int).Mul(amount0, amount1)), MinimumLiquidity)
		if issued.Sign() <= 0 {
			return nil, ErrInsufficientLiquidityMinted
		}
		p.mintShares(lockedSharesHolder, MinimumLiquidity)
	} else {
		share0 := new(big.Int).Div(new(big.Int).Mul(amount0, p.totalShares), p.reserve0)
		share1 := new(big.Int).Div(new(big.Int).Mul(amount1, p.totalShares), p.reserve1)
		issued = new(big.Int).Set(minBig(share0, share1))
		if issued.Sign() <= 0 {
			return nil, ErrInsufficientLiquidityMinted
		}
	}

	p.mintShares(to, issued)
	if err := p.update(balance0, balance1); err != nil {
		return nil, err
	}
	return issued, nil
}

// RemoveLiquidity burns [sharesBurned] of [from]'s shares and pays out the
// pro-rata slice of both actual balances to [to]. Divisions truncate
// toward zero; the remainder stays in the pool.
func (p *Pair) RemoveLiquidity(ledger TokenLedger, from common.Address, sharesBurned *big.Int, to common.Address) (*big.Int, *big.Int, error) {
	if sharesBurned == nil || sharesBurned.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	held, ok := p.shares[from]
	if !ok || sharesBurned.Cmp(held) > 0 {
		return nil, nil, ErrInsufficientLiquidityBurned
	}

	balance0 := ledger.BalanceOf(p.token0, p.addr)
	balance1 := ledger.BalanceOf(p.token1, p.addr)

	amount0 := new(big.Int).Div(new(big.Int).Mul(sharesBurned, balance0), p.totalShares)
	amount1 := new(big.Int).Div(new(big.Int).Mul(sharesBurned, balance1), p.totalShares)
	if amount0.Sign() <= 0 || amount1.Sign() <= 0 {
		return nil, nil, ErrInsufficientLiquidityBurned
	}

	snap := ledger.Snapshot()
	state := p.snapshotState()
	p.burnShares(from, sharesBurned)

	if err := p.payoutAndSync(ledger, to, amount0, amount1); err != nil {
		ledger.RevertToSnapshot(snap)
		p.restoreState(state)
		// restoreState resets totalShares; only the holder entry needs undoing
		p.shares[from].Add(p.shares[from], sharesBurned)
		return nil, nil, err
	}
	return amount0, amount1, nil
}

func (p *Pair) payoutAndSync(ledger TokenLedger, to common.Address, amount0, amount1 *big.Int) error {
	if err := ledger.Transfer(p.token0, p.addr, to, amount0); err != nil {
		return err
	}
	if err := ledger.Transfer(p.token1, p.addr, to, amount1); err != nil {
		return err
	}
	return p.Sync(ledger)
}

func (p *Pair) mintShares(holder common.Address, value *big.Int) {
	bal, ok := p.shares[holder]
	if !ok {
		bal = big.NewInt(0)
		p.shares[holder] = bal
	}
	bal.Add(bal, value)
	p.totalShares.Add(p.totalShares, value)
}

func (p *Pair) burnShares(holder common.Address, value *big.Int) {
	p.shares[holder].Sub(p.shares[holder], value)
	p.totalShares.Sub(p.totalShares, value)
}
