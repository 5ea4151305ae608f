// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package nonce implements the per-principal replay guard. Every guarded
// operation presents the principal's current counter value; consuming it
// advances the counter so the same authorization can never apply twice.
package nonce

import (
	"github.com/pkg/errors"

	"github.com/credence-net/credence/contracts/errs"
	"github.com/credence-net/credence/contracts/sslot"
	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/state"
)

// Nonces is the replay-guard binder for the contract at addr.
type Nonces struct {
	counters *sslot.Mapping[credence.Address, uint64]
}

// New creates the replay-guard binder.
func New(addr credence.Address, st *state.State) *Nonces {
	ctx := sslot.NewContext(addr, st)
	return &Nonces{
		counters: sslot.NewMapping[credence.Address, uint64](ctx, "nonces"),
	}
}

// Current returns the principal's expected nonce. New principals start at 0.
func (n *Nonces) Current(principal credence.Address) (uint64, error) {
	return n.counters.Get(principal)
}

// Consume validates the presented nonce against the principal's counter and
// advances it. A stale or future nonce fails without touching the counter.
func (n *Nonces) Consume(principal credence.Address, presented uint64) error {
	current, err := n.counters.Get(principal)
	if err != nil {
		return err
	}
	if presented != current {
		return errors.WithMessagef(errs.ErrInvalidNonce, "expected %d got %d", current, presented)
	}
	next, err := credence.SafeAddUint64(current, 1)
	if err != nil {
		return errors.WithMessage(errs.ErrArithmeticOverflow, "nonce counter")
	}
	return n.counters.Put(principal, next)
}
