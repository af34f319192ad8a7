// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"math/big"

	"github.com/holiman/uint256"
)

// MaxReserve is the largest balance a pair will cache for either token,
// mirroring a 112-bit fixed-point reserve slot. A measured balance above
// this is a fatal scale boundary for the pair, not a retryable condition.
var MaxReserve = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 112), big.NewInt(1))

// isqrt returns the integer square root of n, truncated toward zero.
// n must be non-negative.
func isqrt(n *big.Int) *big.Int {
	if n.Sign() <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Sqrt(n)
}

// minBig returns the smaller of a and b.
func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// encodeUQ112 returns numerator/denominator as a UQ112.112 fixed-point
// ratio. Both inputs must be positive and at most MaxReserve, so the
// shifted numerator always fits 224 bits.
func encodeUQ112(numerator, denominator *big.Int) *uint256.Int {
	n, _ := uint256.FromBig(numerator)
	d, _ := uint256.FromBig(denominator)
	n.Lsh(n, 112)
	return n.Div(n, d)
}

// accumulatePrice folds elapsed seconds of the given UQ112.112 price into
// acc. Accumulators wrap modulo 2^256; consumers difference two readings,
// so wrapping is harmless as long as readings are less than 2^256 apart.
func accumulatePrice(acc *uint256.Int, price *uint256.Int, elapsed uint64) {
	term := new(uint256.Int).Mul(price, uint256.NewInt(elapsed))
	acc.Add(acc, term)
}

// mulChecked multiplies a and b in 256-bit space, reporting overflow
// instead of silently wrapping. Used by the invariant check, whose
// operands are bounded well below 2^128 so overflow indicates misuse.
func mulChecked(a, b *uint256.Int) (*uint256.Int, bool) {
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	return product, overflow
}
