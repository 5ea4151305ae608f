// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package sslot maps named contract fields onto state storage slots.
// Scalar fields live in a slot derived from the field name; mapping entries
// live in slots derived from the field name plus the RLP-encoded key.
// Values are RLP encoded; an empty slot decodes to the zero value.
package sslot

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/state"
)

// Context binds a contract address to a state container. All slots of one
// contract share a context.
type Context struct {
	addr  credence.Address
	state *state.State
}

// NewContext creates a slot context for the contract at addr.
func NewContext(addr credence.Address, st *state.State) *Context {
	return &Context{addr: addr, state: st}
}

// Address returns the contract address.
func (c *Context) Address() credence.Address { return c.addr }

// State returns the state container.
func (c *Context) State() *state.State { return c.state }

func nameToSlot(name string) credence.Bytes32 {
	return credence.Blake2b([]byte(name))
}

// Scalar is a single named storage slot holding one value of type V.
type Scalar[V any] struct {
	ctx  *Context
	slot credence.Bytes32
}

// NewScalar creates a scalar slot for the named field.
func NewScalar[V any](ctx *Context, name string) *Scalar[V] {
	return &Scalar[V]{ctx: ctx, slot: nameToSlot(name)}
}

// Get loads the value. An empty slot yields the zero value.
func (s *Scalar[V]) Get() (v V, err error) {
	err = s.ctx.state.DecodeStorage(s.ctx.addr, s.slot, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &v)
	})
	return
}

// Put stores the value.
func (s *Scalar[V]) Put(v V) error {
	return s.ctx.state.EncodeStorage(s.ctx.addr, s.slot, func() ([]byte, error) {
		return rlp.EncodeToBytes(&v)
	})
}

// Clear empties the slot.
func (s *Scalar[V]) Clear() {
	s.ctx.state.SetRawStorage(s.ctx.addr, s.slot, nil)
}

// Mapping is a named storage mapping from K to V. Entry slots are derived
// from the field slot and the RLP encoding of the key, so distinct keys
// never collide.
type Mapping[K any, V any] struct {
	ctx  *Context
	base credence.Bytes32
}

// NewMapping creates a mapping for the named field.
func NewMapping[K any, V any](ctx *Context, name string) *Mapping[K, V] {
	return &Mapping[K, V]{ctx: ctx, base: nameToSlot(name)}
}

func (m *Mapping[K, V]) entrySlot(key K) (credence.Bytes32, error) {
	kb, err := rlp.EncodeToBytes(&key)
	if err != nil {
		return credence.Bytes32{}, err
	}
	return credence.Blake2b(m.base.Bytes(), kb), nil
}

// Get loads the entry for key. A missing entry yields the zero value.
func (m *Mapping[K, V]) Get(key K) (v V, err error) {
	slot, err := m.entrySlot(key)
	if err != nil {
		return v, err
	}
	err = m.ctx.state.DecodeStorage(m.ctx.addr, slot, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &v)
	})
	return
}

// Has reports whether an entry exists for key.
func (m *Mapping[K, V]) Has(key K) (bool, error) {
	slot, err := m.entrySlot(key)
	if err != nil {
		return false, err
	}
	raw, err := m.ctx.state.GetRawStorage(m.ctx.addr, slot)
	if err != nil {
		return false, err
	}
	return len(raw) > 0, nil
}

// Put stores the entry for key.
func (m *Mapping[K, V]) Put(key K, v V) error {
	slot, err := m.entrySlot(key)
	if err != nil {
		return err
	}
	return m.ctx.state.EncodeStorage(m.ctx.addr, slot, func() ([]byte, error) {
		return rlp.EncodeToBytes(&v)
	})
}

// Delete removes the entry for key.
func (m *Mapping[K, V]) Delete(key K) error {
	slot, err := m.entrySlot(key)
	if err != nil {
		return err
	}
	m.ctx.state.SetRawStorage(m.ctx.addr, slot, nil)
	return nil
}
