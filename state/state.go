// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"

	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/kv"
	"github.com/credence-net/credence/stackedmap"
)

const (
	storageKeyPrefix = "s"

	readCacheSize = 4096
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

type storageKey struct {
	addr credence.Address
	key  credence.Bytes32
}

// State is the explicit, dependency-injected storage container every contract
// operation runs against. Mutations are journaled; NewCheckpoint/RevertTo give
// all-or-nothing call semantics, Commit flushes to the backing kv store.
type State struct {
	store kv.GetPutter
	cache *lru.Cache // raw storage read cache
	sm    *stackedmap.StackedMap[storageKey, rlp.RawValue]
}

// New create a state over the given kv store.
func New(store kv.GetPutter) *State {
	cache, _ := lru.New(readCacheSize)
	s := &State{
		store: store,
		cache: cache,
	}
	s.sm = stackedmap.New(s.storeGetter)
	// the base layer holds all uncommitted writes
	s.sm.Push()
	return s
}

func persistentKey(k storageKey) []byte {
	buf := make([]byte, 0, 1+credence.AddressLength+32)
	buf = append(buf, storageKeyPrefix...)
	buf = append(buf, k.addr[:]...)
	buf = append(buf, k.key[:]...)
	return buf
}

func (s *State) storeGetter(k storageKey) (rlp.RawValue, bool, error) {
	if v, ok := s.cache.Get(k); ok {
		return v.(rlp.RawValue), true, nil
	}
	data, err := s.store.Get(persistentKey(k))
	if err != nil {
		if s.store.IsNotFound(err) {
			s.cache.Add(k, rlp.RawValue(nil))
			return nil, true, nil
		}
		return nil, false, err
	}
	s.cache.Add(k, rlp.RawValue(data))
	return data, true, nil
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr credence.Address, key credence.Bytes32) (rlp.RawValue, error) {
	data, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return data, nil
}

// SetRawStorage set storage value in rlp raw.
func (s *State) SetRawStorage(addr credence.Address, key credence.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr credence.Address, key credence.Bytes32) (credence.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return credence.Bytes32{}, err
	}
	if len(raw) == 0 {
		return credence.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return credence.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		// special case for rlp list, it should be customized storage value
		// return hash of raw data
		return credence.Blake2b(raw), nil
	}
	return credence.BytesToBytes32(content), nil
}

// SetStorage set storage value for the given address and key.
func (s *State) SetStorage(addr credence.Address, key, value credence.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	trimmed := value[:]
	for len(trimmed) > 0 && trimmed[0] == 0 {
		trimmed = trimmed[1:]
	}
	v, _ := rlp.EncodeToBytes(trimmed)
	s.SetRawStorage(addr, key, v)
}

// EncodeStorage set storage value encoded by given enc method.
// Error returned by enc will be wrapped as state error.
func (s *State) EncodeStorage(addr credence.Address, key credence.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
// Error returned by dec will be wrapped as state error.
func (s *State) DecodeStorage(addr credence.Address, key credence.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts to the checkpoint of given revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// Commit flushes all journaled writes into the backing kv store via a batch.
// The state stays usable afterwards; committed values become the new source.
func (s *State) Commit() error {
	batch := s.store.NewBatch()

	// collapse the journal to the latest value per key
	latest := make(map[storageKey]rlp.RawValue)
	s.sm.Journal(func(k storageKey, v rlp.RawValue) bool {
		latest[k] = v
		return true
	})

	for k, v := range latest {
		s.cache.Add(k, v)
		if len(v) == 0 {
			if err := batch.Delete(persistentKey(k)); err != nil {
				return &Error{err}
			}
			continue
		}
		if err := batch.Put(persistentKey(k), v); err != nil {
			return &Error{err}
		}
	}
	if err := batch.Write(); err != nil {
		return &Error{err}
	}

	// reset layers; everything is now backed by the store
	s.sm.PopTo(0)
	s.sm.Push()
	return nil
}
