// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// PairState is a serializable snapshot of a pair, used by the snapshot
// store to persist and rehydrate pairs across restarts. All fields are
// deep copies; mutating a PairState never touches a live pair.
type PairState struct {
	Token0           common.Address
	Token1           common.Address
	FeeBps           uint16
	Reserve0         *big.Int
	Reserve1         *big.Int
	PriceCumulative0 *uint256.Int
	PriceCumulative1 *uint256.Int
	LastUpdate       uint64
	TotalShares      *big.Int
	Shares           map[common.Address]*big.Int
}

// State exports the pair's full persistent state.
func (p *Pair) State() PairState {
	shares := make(map[common.Address]*big.Int, len(p.shares))
	for holder, bal := range p.shares {
		shares[holder] = new(big.Int).Set(bal)
	}
	return PairState{
		Token0:           p.token0,
		Token1:           p.token1,
		FeeBps:           p.feeBps,
		Reserve0:         new(big.Int).Set(p.reserve0),
		Reserve1:         new(big.Int).Set(p.reserve1),
		PriceCumulative0: new(uint256.Int).Set(p.priceCumulative0),
		PriceCumulative1: new(uint256.Int).Set(p.priceCumulative1),
		LastUpdate:       p.lastUpdate,
		TotalShares:      new(big.Int).Set(p.totalShares),
		Shares:           shares,
	}
}

// PairFromState reconstructs a pair from persisted state.
func PairFromState(st PairState) (*Pair, error) {
	if bytes.Compare(st.Token0.Bytes(), st.Token1.Bytes()) >= 0 {
		return nil, errors.New("pair state tokens not in canonical order")
	}
	p := NewPair(st.Token0, st.Token1, st.FeeBps)
	p.reserve0.Set(st.Reserve0)
	p.reserve1.Set(st.Reserve1)
	p.priceCumulative0.Set(st.PriceCumulative0)
	p.priceCumulative1.Set(st.PriceCumulative1)
	p.lastUpdate = st.LastUpdate
	p.totalShares.Set(st.TotalShares)
	for holder, bal := range st.Shares {
		p.shares[holder] = new(big.Int).Set(bal)
	}
	return p, nil
}
