// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package amm implements a constant-product automated market maker pair
// engine: reserve bookkeeping, liquidity share accounting, swap execution
// and the flash-swap callback protocol. Pairs hold their reserves in an
// external token ledger and reconcile cached state against measured
// balances after every mutating operation.
package amm

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
)

// Fee tiers in basis points (denominator 10000)
const (
	Fee005 uint16 = 5    // 0.05% - stable pairs
	Fee030 uint16 = 30   // 0.30% - standard
	Fee100 uint16 = 100  // 1.00% - exotic pairs
	FeeMax uint16 = 1000 // 10% max fee

	// FeeDenominator is the basis-point scale for all fee math.
	FeeDenominator = 10000
)

// MinimumLiquidity is the share issuance permanently locked on first
// deposit. It keeps the share-price floor non-zero so the first depositor
// cannot amplify rounding against later entrants.
var MinimumLiquidity = big.NewInt(1000)

// lockedSharesHolder receives the locked minimum liquidity. The zero
// address has no withdrawal path, so these shares are unrecoverable.
var lockedSharesHolder = common.Address{}

// TokenLedger is the fungible-asset collaborator the engine trades
// against. The engine only pushes outbound transfers and observes inbound
// balance deltas; it never pulls on its own behalf.
//
// Snapshot/RevertToSnapshot provide the all-or-nothing semantics every
// mutating pair operation relies on: a failed swap must undo its
// optimistic transfers and everything a flash callback did.
type TokenLedger interface {
	BalanceOf(token, holder common.Address) *big.Int
	Transfer(token, from, to common.Address, amount *big.Int) error

	Snapshot() int
	RevertToSnapshot(id int)
}

// FlashCallback is implemented by flash-swap borrowers. It is invoked
// after the pair has optimistically delivered the requested output and
// must leave repayment (principal plus fee) in the pair's balance before
// returning. Returning an error is the only signal it can give; any error
// aborts the whole swap.
type FlashCallback interface {
	OnFlashSwap(initiator common.Address, amount0Out, amount1Out *big.Int, data []byte) error
}

// Clock supplies the timestamp used by the price accumulators. Injected
// so tests control elapsed time.
type Clock func() uint64

// Errors - pair engine
var (
	ErrInvalidAmount               = errors.New("invalid amount")
	ErrInsufficientLiquidity       = errors.New("insufficient liquidity")
	ErrInsufficientInputAmount     = errors.New("insufficient input amount")
	ErrInsufficientOutputAmount    = errors.New("insufficient output amount")
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	ErrInsufficientLiquidityBurned = errors.New("insufficient liquidity burned")
	ErrKInvariant                  = errors.New("constant product invariant violated")
	ErrReserveOverflow             = errors.New("reserve exceeds fixed-point capacity")
	ErrInvalidRecipient            = errors.New("invalid recipient")
	ErrCallbackRequired            = errors.New("flash swap requires a callback")
)
