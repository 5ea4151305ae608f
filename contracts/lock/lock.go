// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package lock implements the reentrancy guard. A named lock protects a
// code region that reaches an external boundary; a nested entry into the
// same region fails instead of re-running it.
package lock

import (
	"github.com/credence-net/credence/contracts/errs"
	"github.com/credence-net/credence/contracts/sslot"
	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/state"
)

// Lock is a named reentrancy guard stored in contract state.
type Lock struct {
	held *sslot.Scalar[bool]
}

// New creates the guard named name for the contract at addr.
func New(addr credence.Address, st *state.State, name string) *Lock {
	ctx := sslot.NewContext(addr, st)
	return &Lock{
		held: sslot.NewScalar[bool](ctx, "lock:"+name),
	}
}

// Do runs fn under the guard. The guard is released on every exit path,
// including when fn fails.
func (l *Lock) Do(fn func() error) error {
	held, err := l.held.Get()
	if err != nil {
		return err
	}
	if held {
		return errs.ErrReentrancyDetected
	}
	if err := l.held.Put(true); err != nil {
		return err
	}
	defer l.held.Clear()
	return fn()
}
