// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package delegation implements scoped, expiring, revocable delegations.
// An owner grants a delegate the right to act for them within a scope;
// other contracts consult IsValid before accepting a delegated action.
package delegation

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/credence-net/credence/contracts/errs"
	"github.com/credence-net/credence/contracts/nonce"
	"github.com/credence-net/credence/contracts/sslot"
	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/xenv"
)

// Scope limits what a delegate may do for the owner.
type Scope uint8

const (
	// ScopeAll covers every delegable action.
	ScopeAll Scope = iota
	// ScopeVoting covers casting votes.
	ScopeVoting
	// ScopeAttestation covers submitting attestations.
	ScopeAttestation
)

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeVoting:
		return "voting"
	case ScopeAttestation:
		return "attestation"
	default:
		return "unknown"
	}
}

// Entry is one stored delegation. Granting the same owner/delegate/scope
// tuple again overwrites the previous entry; grants under different scopes
// coexist.
type Entry struct {
	Scope     Scope
	GrantedAt uint64
	ExpiresAt uint64
	Revoked   bool
}

type grantKey struct {
	Owner    credence.Address
	Delegate credence.Address
	Scope    Scope
}

// Delegation is the binder for the delegation contract.
type Delegation struct {
	addr    credence.Address
	env     *xenv.Environment
	nonces  *nonce.Nonces
	entries *sslot.Mapping[grantKey, Entry]
}

// New creates the delegation binder.
func New(addr credence.Address, env *xenv.Environment) *Delegation {
	ctx := sslot.NewContext(addr, env.State())
	return &Delegation{
		addr:    addr,
		env:     env,
		nonces:  nonce.New(addr, env.State()),
		entries: sslot.NewMapping[grantKey, Entry](ctx, "entries"),
	}
}

// Nonce returns the owner's next expected nonce.
func (d *Delegation) Nonce(owner credence.Address) (uint64, error) {
	return d.nonces.Current(owner)
}

// Grant delegates scope from owner to delegate for duration seconds.
func (d *Delegation) Grant(owner, delegate credence.Address, scope Scope, duration uint64, n uint64) error {
	return d.env.Atomic(func() error {
		if err := d.env.RequireAuth(owner); err != nil {
			return err
		}
		if err := d.nonces.Consume(owner, n); err != nil {
			return err
		}
		if owner == delegate {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "cannot delegate to self")
		}
		if duration == 0 {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "zero delegation duration")
		}
		now := d.env.Now()
		expires, err := credence.SafeAddUint64(now, duration)
		if err != nil {
			return errors.WithMessage(errs.ErrArithmeticOverflow, "delegation expiry")
		}
		if err := d.entries.Put(grantKey{owner, delegate, scope}, Entry{
			Scope:     scope,
			GrantedAt: now,
			ExpiresAt: expires,
		}); err != nil {
			return err
		}
		d.env.Emit(d.addr, "delegation_granted",
			"owner", owner.String(),
			"delegate", delegate.String(),
			"scope", scope.String(),
			"expires_at", strconv.FormatUint(expires, 10),
		)
		return nil
	})
}

// Revoke marks the owner's delegation to delegate under scope as revoked.
// Revocation is permanent; a new grant replaces the entry.
func (d *Delegation) Revoke(owner, delegate credence.Address, scope Scope, n uint64) error {
	return d.env.Atomic(func() error {
		if err := d.env.RequireAuth(owner); err != nil {
			return err
		}
		if err := d.nonces.Consume(owner, n); err != nil {
			return err
		}
		key := grantKey{owner, delegate, scope}
		ok, err := d.entries.Has(key)
		if err != nil {
			return err
		}
		if !ok {
			return errors.WithMessagef(errs.ErrNotFound, "no %v delegation %v -> %v", scope, owner, delegate)
		}
		entry, err := d.entries.Get(key)
		if err != nil {
			return err
		}
		entry.Revoked = true
		if err := d.entries.Put(key, entry); err != nil {
			return err
		}
		d.env.Emit(d.addr, "delegation_revoked",
			"owner", owner.String(),
			"delegate", delegate.String(),
			"scope", scope.String(),
		)
		return nil
	})
}

// Get returns the stored delegation from owner to delegate under scope.
func (d *Delegation) Get(owner, delegate credence.Address, scope Scope) (*Entry, error) {
	key := grantKey{owner, delegate, scope}
	ok, err := d.entries.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.WithMessagef(errs.ErrNotFound, "no %v delegation %v -> %v", scope, owner, delegate)
	}
	entry, err := d.entries.Get(key)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// IsValid reports whether delegate currently holds a live delegation from
// owner covering scope: granted, not revoked, not expired. A ScopeAll grant
// covers every scope.
func (d *Delegation) IsValid(owner, delegate credence.Address, scope Scope) (bool, error) {
	ok, err := d.live(grantKey{owner, delegate, scope})
	if err != nil || ok {
		return ok, err
	}
	if scope == ScopeAll {
		return false, nil
	}
	return d.live(grantKey{owner, delegate, ScopeAll})
}

func (d *Delegation) live(key grantKey) (bool, error) {
	ok, err := d.entries.Has(key)
	if err != nil || !ok {
		return false, err
	}
	entry, err := d.entries.Get(key)
	if err != nil {
		return false, err
	}
	if entry.Revoked {
		return false, nil
	}
	return d.env.Now() < entry.ExpiresAt, nil
}
