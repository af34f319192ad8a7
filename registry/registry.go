// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry tracks every pair in a deployment: one pair per
// unordered token set, canonically sorted, addressable forever once
// created. Zero-reserve pairs stay registered and can be re-seeded.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/dex/amm"
	"github.com/luxfi/dex/store"
)

var (
	ErrIdenticalTokens = errors.New("identical tokens")
	ErrZeroToken       = errors.New("zero token address")
	ErrPairExists      = errors.New("pair already exists")
	ErrPairNotFound    = errors.New("pair not found")
	ErrInvalidFee      = errors.New("invalid fee")
)

// tokenSet is an unordered token pair in canonical order.
type tokenSet struct {
	token0 common.Address
	token1 common.Address
}

// Config configures a registry.
type Config struct {
	// DefaultFeeBps applies when FindOrCreate must create. Zero means
	// amm.Fee030.
	DefaultFeeBps uint16

	// Log receives pair lifecycle events. Nil disables logging.
	Log log.Logger

	// DB, when set, persists pair snapshots and rehydrates them on New.
	DB database.Database
}

// Registry is the pair factory and lookup table. The registry mutex only
// guards the pair map; pair state itself is unguarded because the host
// serializes mutating calls per pair (and a lock held across flash
// callbacks would forbid legitimate recursion).
type Registry struct {
	mu    sync.RWMutex
	pairs map[tokenSet]*amm.Pair

	defaultFee uint16
	log        log.Logger
	store      *store.Store
}

// New creates a registry. When cfg.DB is set, previously persisted pairs
// are loaded before the registry is returned.
func New(cfg Config) (*Registry, error) {
	r := &Registry{
		pairs:      make(map[tokenSet]*amm.Pair),
		defaultFee: cfg.DefaultFeeBps,
		log:        cfg.Log,
	}
	if r.defaultFee == 0 {
		r.defaultFee = amm.Fee030
	}
	if r.defaultFee > amm.FeeMax {
		return nil, ErrInvalidFee
	}

	if cfg.DB != nil {
		r.store = store.New(cfg.DB)
		if err := r.rehydrate(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) rehydrate() error {
	ids, err := r.store.PairIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		pair, err := r.store.LoadPair(id)
		if err != nil {
			return fmt.Errorf("loading pair %x: %w", id[:4], err)
		}
		token0, token1 := pair.Tokens()
		r.pairs[tokenSet{token0, token1}] = pair
	}
	if r.log != nil && len(ids) > 0 {
		r.log.Info(fmt.Sprintf("registry rehydrated %d pairs", len(ids)))
	}
	return nil
}

// CreatePair registers a new pair for the token set at the given fee
// tier. Exactly one pair exists per token set regardless of fee.
func (r *Registry) CreatePair(tokenA, tokenB common.Address, feeBps uint16) (*amm.Pair, error) {
	if tokenA == tokenB {
		return nil, ErrIdenticalTokens
	}
	if tokenA == (common.Address{}) || tokenB == (common.Address{}) {
		return nil, ErrZeroToken
	}
	if feeBps > amm.FeeMax {
		return nil, ErrInvalidFee
	}
	token0, token1 := amm.SortTokens(tokenA, tokenB)
	key := tokenSet{token0, token1}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pairs[key]; exists {
		return nil, ErrPairExists
	}
	pair := amm.NewPair(token0, token1, feeBps)
	r.pairs[key] = pair

	if r.store != nil {
		if err := r.store.SavePair(pair); err != nil {
			delete(r.pairs, key)
			return nil, err
		}
	}
	if r.log != nil {
		r.log.Info(fmt.Sprintf("pair created token0=%s token1=%s fee=%dbps", token0.Hex(), token1.Hex(), feeBps))
	}
	return pair, nil
}

// GetPair looks up the pair for a token set in either order.
func (r *Registry) GetPair(tokenA, tokenB common.Address) (*amm.Pair, error) {
	token0, token1 := amm.SortTokens(tokenA, tokenB)

	r.mu.RLock()
	defer r.mu.RUnlock()

	pair, ok := r.pairs[tokenSet{token0, token1}]
	if !ok {
		return nil, ErrPairNotFound
	}
	return pair, nil
}

// FindOrCreate returns the existing pair for the token set or creates one
// at the registry's default fee tier.
func (r *Registry) FindOrCreate(tokenA, tokenB common.Address) (*amm.Pair, error) {
	if pair, err := r.GetPair(tokenA, tokenB); err == nil {
		return pair, nil
	}
	pair, err := r.CreatePair(tokenA, tokenB, r.defaultFee)
	if errors.Is(err, ErrPairExists) {
		return r.GetPair(tokenA, tokenB)
	}
	return pair, err
}

// AllPairs returns every registered pair. Order is unspecified.
func (r *Registry) AllPairs() []*amm.Pair {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pairs := make([]*amm.Pair, 0, len(r.pairs))
	for _, pair := range r.pairs {
		pairs = append(pairs, pair)
	}
	return pairs
}

// Len returns the number of registered pairs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pairs)
}

// Persist writes the current state of a pair to the snapshot store, if
// one is configured. Hosts call this after applying a mutating operation.
func (r *Registry) Persist(pair *amm.Pair) error {
	if r.store == nil {
		return nil
	}
	return r.store.SavePair(pair)
}
