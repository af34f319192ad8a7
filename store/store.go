// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package store persists pair snapshots to a key-value database so a
// registry can rehydrate its pairs across restarts. Encoding is
// fixed-width big-endian, one record per pair keyed by pair ID.
package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/dex/amm"
)

var pairPrefix = []byte("pair/")

var ErrCorruptRecord = errors.New("corrupt pair record")

// fixed-width section of a pair record, before the share table
const headerLen = 20 + 20 + 2 + 32 + 32 + 32 + 32 + 8 + 32 + 4

// shareRecordLen is one holder entry: address + balance
const shareRecordLen = 20 + 32

// Store wraps a database with pair snapshot persistence.
type Store struct {
	db database.Database
}

// New creates a store over db. The caller retains ownership of db.
func New(db database.Database) *Store {
	return &Store{db: db}
}

func pairKey(id [32]byte) []byte {
	return append(append([]byte{}, pairPrefix...), id[:]...)
}

// SavePair writes the pair's current state, overwriting any previous
// record.
func (s *Store) SavePair(p *amm.Pair) error {
	id := p.ID()
	return s.db.Put(pairKey(id), encodePairState(p.State()))
}

// LoadPair reads and reconstructs a pair. Returns database.ErrNotFound
// if no record exists.
func (s *Store) LoadPair(id [32]byte) (*amm.Pair, error) {
	raw, err := s.db.Get(pairKey(id))
	if err != nil {
		return nil, err
	}
	st, err := decodePairState(raw)
	if err != nil {
		return nil, err
	}
	return amm.PairFromState(st)
}

// HasPair reports whether a record exists for id.
func (s *Store) HasPair(id [32]byte) (bool, error) {
	return s.db.Has(pairKey(id))
}

// DeletePair removes the record for id. Deleting a missing record is not
// an error.
func (s *Store) DeletePair(id [32]byte) error {
	return s.db.Delete(pairKey(id))
}

// PairIDs returns the IDs of every persisted pair.
func (s *Store) PairIDs() ([][32]byte, error) {
	it := s.db.NewIteratorWithPrefix(pairPrefix)
	defer it.Release()

	var ids [][32]byte
	for it.Next() {
		key := it.Key()
		if len(key) != len(pairPrefix)+32 {
			return nil, fmt.Errorf("%w: key length %d", ErrCorruptRecord, len(key))
		}
		var id [32]byte
		copy(id[:], key[len(pairPrefix):])
		ids = append(ids, id)
	}
	return ids, it.Error()
}

func encodePairState(st amm.PairState) []byte {
	buf := make([]byte, headerLen+len(st.Shares)*shareRecordLen)
	off := 0

	copy(buf[off:], st.Token0.Bytes())
	off += 20
	copy(buf[off:], st.Token1.Bytes())
	off += 20
	binary.BigEndian.PutUint16(buf[off:], st.FeeBps)
	off += 2

	st.Reserve0.FillBytes(buf[off : off+32])
	off += 32
	st.Reserve1.FillBytes(buf[off : off+32])
	off += 32

	pc0 := st.PriceCumulative0.Bytes32()
	copy(buf[off:], pc0[:])
	off += 32
	pc1 := st.PriceCumulative1.Bytes32()
	copy(buf[off:], pc1[:])
	off += 32

	binary.BigEndian.PutUint64(buf[off:], st.LastUpdate)
	off += 8
	st.TotalShares.FillBytes(buf[off : off+32])
	off += 32
	binary.BigEndian.PutUint32(buf[off:], uint32(len(st.Shares)))
	off += 4

	// deterministic record order keeps encodings byte-comparable
	for _, holder := range sortedHolders(st.Shares) {
		copy(buf[off:], holder.Bytes())
		off += 20
		st.Shares[holder].FillBytes(buf[off : off+32])
		off += 32
	}
	return buf
}

func decodePairState(raw []byte) (amm.PairState, error) {
	if len(raw) < headerLen {
		return amm.PairState{}, fmt.Errorf("%w: %d bytes", ErrCorruptRecord, len(raw))
	}
	off := 0
	st := amm.PairState{}

	st.Token0 = common.BytesToAddress(raw[off : off+20])
	off += 20
	st.Token1 = common.BytesToAddress(raw[off : off+20])
	off += 20
	st.FeeBps = binary.BigEndian.Uint16(raw[off:])
	off += 2

	st.Reserve0 = new(big.Int).SetBytes(raw[off : off+32])
	off += 32
	st.Reserve1 = new(big.Int).SetBytes(raw[off : off+32])
	off += 32
	st.PriceCumulative0 = new(uint256.Int).SetBytes(raw[off : off+32])
	off += 32
	st.PriceCumulative1 = new(uint256.Int).SetBytes(raw[off : off+32])
	off += 32

	st.LastUpdate = binary.BigEndian.Uint64(raw[off:])
	off += 8
	st.TotalShares = new(big.Int).SetBytes(raw[off : off+32])
	off += 32
	count := int(binary.BigEndian.Uint32(raw[off:]))
	off += 4

	if len(raw) != headerLen+count*shareRecordLen {
		return amm.PairState{}, fmt.Errorf("%w: %d share records, %d bytes", ErrCorruptRecord, count, len(raw))
	}
	st.Shares = make(map[common.Address]*big.Int, count)
	for i := 0; i < count; i++ {
		holder := common.BytesToAddress(raw[off : off+20])
		off += 20
		st.Shares[holder] = new(big.Int).SetBytes(raw[off : off+32])
		off += 32
	}
	return st, nil
}

func sortedHolders(shares map[common.Address]*big.Int) []common.Address {
	holders := make([]common.Address, 0, len(shares))
	for holder := range shares {
		holders = append(holders, holder)
	}
	sort.Slice(holders, func(i, j int) bool {
		return bytes.Compare(holders[i].Bytes(), holders[j].Bytes()) < 0
	})
	return holders
}
