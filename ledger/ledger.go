// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger provides an in-memory multi-token balance ledger with
// journaled snapshots. Pair operations snapshot the ledger on entry and
// revert on failure, which supplies the all-or-nothing call semantics the
// swap engine's optimistic-transfer ordering depends on.
package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrBalanceOverflow     = errors.New("balance overflow")
)

// balanceKey addresses one holder's balance of one token.
type balanceKey struct {
	token  common.Address
	holder common.Address
}

// journalEntry records one balance write so it can be undone.
type journalEntry struct {
	key  balanceKey
	prev *uint256.Int // nil = key absent before the write
}

// State is the canonical TokenLedger implementation. Balances are
// uint256, matching on-chain token units; the journal records inverse
// images of every write between snapshots.
//
// State is not safe for concurrent use. The engine's execution model is a
// single logical thread per transaction; hosts wanting parallelism run
// one State per transaction context.
type State struct {
	balances map[balanceKey]*uint256.Int
	journal  []journalEntry
	// snapshots holds journal lengths; reverting to snapshot i unwinds
	// the journal back to snapshots[i]
	snapshots []int
}

// NewState returns an empty ledger.
func NewState() *State {
	return &State{
		balances: make(map[balanceKey]*uint256.Int),
	}
}

// BalanceOf returns holder's balance of token. Missing entries read as
// zero; the returned value is a copy.
func (s *State) BalanceOf(token, holder common.Address) *big.Int {
	if bal, ok := s.balances[balanceKey{token, holder}]; ok {
		return bal.ToBig()
	}
	return big.NewInt(0)
}

// Transfer moves amount of token from one holder to another atomically.
// Zero-amount transfers succeed without a journal entry.
func (s *State) Transfer(token, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return ErrInvalidAmount
	}

	fromKey := balanceKey{token, from}
	fromBal, ok := s.balances[fromKey]
	if !ok || fromBal.Lt(value) {
		return fmt.Errorf("%w: token=%s holder=%s", ErrInsufficientBalance, token.Hex(), from.Hex())
	}

	toKey := balanceKey{token, to}
	toBal := s.balances[toKey]
	if toBal == nil {
		toBal = uint256.NewInt(0)
	}
	newTo, overflow := new(uint256.Int).AddOverflow(toBal, value)
	if overflow {
		return ErrBalanceOverflow
	}

	s.setBalance(fromKey, new(uint256.Int).Sub(fromBal, value))
	s.setBalance(toKey, newTo)
	return nil
}

// Mint credits holder with amount of token out of thin air. Test and
// genesis seeding helper; journaled like any other write.
func (s *State) Mint(token, holder common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return ErrInvalidAmount
	}
	key := balanceKey{token, holder}
	bal := s.balances[key]
	if bal == nil {
		bal = uint256.NewInt(0)
	}
	newBal, overflow := new(uint256.Int).AddOverflow(bal, value)
	if overflow {
		return ErrBalanceOverflow
	}
	s.setBalance(key, newBal)
	return nil
}

// Snapshot marks the current journal position and returns its id.
func (s *State) Snapshot() int {
	id := len(s.snapshots)
	s.snapshots = append(s.snapshots, len(s.journal))
	return id
}

// RevertToSnapshot unwinds every write made since the given snapshot.
// Snapshots taken after it are discarded; reverting an unknown id is a
// programming error and panics, matching journaled-state conventions.
func (s *State) RevertToSnapshot(id int) {
	if id < 0 || id >= len(s.snapshots) {
		panic(fmt.Sprintf("ledger: revert to unknown snapshot %d (have %d)", id, len(s.snapshots)))
	}
	mark := s.snapshots[id]
	for i := len(s.journal) - 1; i >= mark; i-- {
		entry := s.journal[i]
		if entry.prev == nil {
			delete(s.balances, entry.key)
		} else {
			s.balances[entry.key] = entry.prev
		}
	}
	s.journal = s.journal[:mark]
	s.snapshots = s.snapshots[:id]
}

func (s *State) setBalance(key balanceKey, value *uint256.Int) {
	prev, ok := s.balances[key]
	if ok {
		s.journal = append(s.journal, journalEntry{key: key, prev: prev})
	} else {
		s.journal = append(s.journal, journalEntry{key: key})
	}
	s.balances[key] = value
}
