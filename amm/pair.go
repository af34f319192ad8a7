// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"bytes"
	"encoding/binary"
	"math/big"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Pair is one trading venue between two distinct fungible tokens. Tokens
// are held canonically sorted (token0 < token1 bytewise). The pair owns a
// synthetic ledger account, derived from its ID, in which both reserves
// live.
//
// Cached reserves are never trusted across calls: every mutating
// operation ends by re-reading actual balances (Sync), so direct
// transfers into the pair account fold in as donations rather than
// corrupting the invariant.
//
// A Pair carries no lock of its own. The host is expected to serialize
// mutating calls per pair, and the flash-swap callback may legitimately
// recurse into this or another pair; safety comes from the balance-based
// invariant check, not from mutual exclusion.
type Pair struct {
	token0 common.Address
	token1 common.Address
	addr   common.Address
	feeBps uint16

	reserve0   *big.Int
	reserve1   *big.Int
	lastUpdate uint64

	// UQ112.112 time-weighted price accumulators, wrapping mod 2^256
	priceCumulative0 *uint256.Int
	priceCumulative1 *uint256.Int

	totalShares *big.Int
	shares      map[common.Address]*big.Int

	clock Clock
}

// PairID uniquely identifies a pair by its sorted tokens and fee tier.
func PairID(token0, token1 common.Address, feeBps uint16) [32]byte {
	h := blake3.New()
	h.Write(token0.Bytes())
	h.Write(token1.Bytes())

	var feeBytes [2]byte
	binary.BigEndian.PutUint16(feeBytes[:], feeBps)
	h.Write(feeBytes[:])

	var id [32]byte
	h.Digest().Read(id[:])
	return id
}

// PairAddress derives the deterministic ledger account that holds a
// pair's reserves.
func PairAddress(id [32]byte) common.Address {
	return common.BytesToAddress(id[:20])
}

// SortTokens returns the two tokens in canonical order.
func SortTokens(tokenA, tokenB common.Address) (common.Address, common.Address) {
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) > 0 {
		return tokenB, tokenA
	}
	return tokenA, tokenB
}

// NewPair creates an empty pair for a sorted token set. Reserves start at
// zero; the pair becomes tradeable after the first AddLiquidity. The
// caller (normally the registry) is responsible for canonical ordering
// and token validation.
func NewPair(token0, token1 common.Address, feeBps uint16) *Pair {
	id := PairID(token0, token1, feeBps)
	return &Pair{
		token0:           token0,
		token1:           token1,
		addr:             PairAddress(id),
		feeBps:           feeBps,
		reserve0:         big.NewInt(0),
		reserve1:         big.NewInt(0),
		priceCumulative0: uint256.NewInt(0),
		priceCumulative1: uint256.NewInt(0),
		totalShares:      big.NewInt(0),
		shares:           make(map[common.Address]*big.Int),
		clock:            func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetClock replaces the timestamp source. Intended for tests and for
// hosts that supply block time instead of wall time.
func (p *Pair) SetClock(clock Clock) {
	p.clock = clock
}

// ID returns the pair's unique identifier.
func (p *Pair) ID() [32]byte {
	return PairID(p.token0, p.token1, p.feeBps)
}

// Address returns the ledger account holding the pair's reserves.
func (p *Pair) Address() common.Address {
	return p.addr
}

// Tokens returns the pair's tokens in canonical order.
func (p *Pair) Tokens() (common.Address, common.Address) {
	return p.token0, p.token1
}

// FeeBps returns the pair's fee tier in basis points.
func (p *Pair) FeeBps() uint16 {
	return p.feeBps
}

// GetReserves returns the cached reserves and the timestamp of the last
// reconciliation. Copies are returned; callers cannot mutate pair state.
func (p *Pair) GetReserves() (reserve0, reserve1 *big.Int, lastUpdate uint64) {
	return new(big.Int).Set(p.reserve0), new(big.Int).Set(p.reserve1), p.lastUpdate
}

// PriceCumulatives returns the current accumulator readings.
// priceCumulative0 integrates token1/token0, priceCumulative1 the
// inverse, both as UQ112.112 seconds.
func (p *Pair) PriceCumulatives() (*uint256.Int, *uint256.Int) {
	return new(uint256.Int).Set(p.priceCumulative0), new(uint256.Int).Set(p.priceCumulative1)
}

// TotalShares returns the outstanding liquidity share supply.
func (p *Pair) TotalShares() *big.Int {
	return new(big.Int).Set(p.totalShares)
}

// SharesOf returns holder's liquidity share balance.
func (p *Pair) SharesOf(holder common.Address) *big.Int {
	if bal, ok := p.shares[holder]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// Sync reconciles cached reserves with the balances actually held in the
// pair's ledger account. It is the final step of every mutating
// operation, and may also be called directly to fold in donations.
func (p *Pair) Sync(ledger TokenLedger) error {
	balance0 := ledger.BalanceOf(p.token0, p.addr)
	balance1 := ledger.BalanceOf(p.token1, p.addr)
	return p.update(balance0, balance1)
}

// update applies freshly measured balances. The accumulators advance by
// elapsed time at the previous reserve ratio before the new balances
// overwrite the cache, so a reading taken between two updates prices the
// interval correctly.
func (p *Pair) update(balance0, balance1 *big.Int) error {
	if balance0.Cmp(MaxReserve) > 0 || balance1.Cmp(MaxReserve) > 0 {
		return ErrReserveOverflow
	}

	now := p.clock()
	if elapsed := now - p.lastUpdate; elapsed > 0 && p.reserve0.Sign() > 0 && p.reserve1.Sign() > 0 {
		accumulatePrice(p.priceCumulative0, encodeUQ112(p.reserve1, p.reserve0), elapsed)
		accumulatePrice(p.priceCumulative1, encodeUQ112(p.reserve0, p.reserve1), elapsed)
	}

	p.reserve0.Set(balance0)
	p.reserve1.Set(balance1)
	p.lastUpdate = now
	return nil
}

// snapshotState captures cached pair state so a failed operation can
// restore it alongside the ledger revert.
type pairSnapshot struct {
	reserve0         *big.Int
	reserve1         *big.Int
	lastUpdate       uint64
	priceCumulative0 *uint256.Int
	priceCumulative1 *uint256.Int
	totalShares      *big.Int
}

func (p *Pair) snapshotState() pairSnapshot {
	return pairSnapshot{
		reserve0:         new(big.Int).Set(p.reserve0),
		reserve1:         new(big.Int).Set(p.reserve1),
		lastUpdate:       p.lastUpdate,
		priceCumulative0: new(uint256.Int).Set(p.priceCumulative0),
		priceCumulative1: new(uint256.Int).Set(p.priceCumulative1),
		totalShares:      new(big.Int).Set(p.totalShares),
	}
}

func (p *Pair) restoreState(s pairSnapshot) {
	p.reserve0.Set(s.reserve0)
	p.reserve1.Set(s.reserve1)
	p.lastUpdate = s.lastUpdate
	p.priceCumulative0.Set(s.priceCumulative0)
	p.priceCumulative1.Set(s.priceCumulative1)
	p.totalShares.Set(s.totalShares)
}
