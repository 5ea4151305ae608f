// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bond

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/credence-net/credence/contracts/errs"
	"github.com/credence-net/credence/credence"
)

// Attestations: registered verifiers vouch for bonded identities. One
// attestation per (verifier, subject, data) triple; add and revoke are
// replay-guarded with the verifier's nonce.

// Attestation is one stored vouch.
type Attestation struct {
	AttestedAt uint64
	Revoked    bool
}

type attestKey struct {
	Verifier credence.Address
	Subject  credence.Address
	Data     credence.Bytes32
}

// AddAttester registers an attester. Admin only.
func (b *Bond) AddAttester(caller, attester credence.Address) error {
	return b.env.Atomic(func() error {
		if err := b.requireAdmin(caller); err != nil {
			return err
		}
		if err := b.attesters.Add(attester, big.NewInt(1)); err != nil {
			return err
		}
		b.env.Emit(b.addr, "attester_added", "attester", attester.String())
		return nil
	})
}

// RemoveAttester unregisters an attester. Admin only. Existing attestations
// stay recorded.
func (b *Bond) RemoveAttester(caller, attester credence.Address) error {
	return b.env.Atomic(func() error {
		if err := b.requireAdmin(caller); err != nil {
			return err
		}
		if err := b.attesters.Remove(attester); err != nil {
			return err
		}
		b.env.Emit(b.addr, "attester_removed", "attester", attester.String())
		return nil
	})
}

// IsAttester reports whether addr is a registered attester.
func (b *Bond) IsAttester(addr credence.Address) (bool, error) {
	return b.attesters.Contains(addr)
}

// Attest records verifier's vouch for subject over data. Re-attesting a
// revoked triple reactivates it.
func (b *Bond) Attest(verifier, subject credence.Address, data credence.Bytes32, n uint64) error {
	return b.env.Atomic(func() error {
		if err := b.env.RequireAuth(verifier); err != nil {
			return err
		}
		if err := b.nonces.Consume(verifier, n); err != nil {
			return err
		}
		return b.attest(verifier, subject, data)
	})
}

// AttestAsDelegate records a vouch under verifier's standing through
// caster's attestation delegation. The caster's nonce is consumed; the
// attestation is keyed to the verifier as if they attested themselves.
func (b *Bond) AttestAsDelegate(caster, verifier, subject credence.Address, data credence.Bytes32, n uint64) error {
	return b.env.Atomic(func() error {
		if err := b.env.RequireAuth(caster); err != nil {
			return err
		}
		if b.attestDelegation == nil {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "no attestation delegation")
		}
		if ok, err := b.attestDelegation.IsValidDelegate(verifier, caster); err != nil {
			return err
		} else if !ok {
			return errors.WithMessage(errs.ErrNotEligible, "no attestation delegation from verifier")
		}
		if err := b.nonces.Consume(caster, n); err != nil {
			return err
		}
		return b.attest(verifier, subject, data)
	})
}

func (b *Bond) attest(verifier, subject credence.Address, data credence.Bytes32) error {
	if ok, err := b.attesters.Contains(verifier); err != nil {
		return err
	} else if !ok {
		return errors.WithMessage(errs.ErrNotEligible, "not a registered attester")
	}
	if _, err := b.Get(subject); err != nil {
		return err
	}
	key := attestKey{verifier, subject, data}
	if ok, err := b.records.Has(key); err != nil {
		return err
	} else if ok {
		rec, err := b.records.Get(key)
		if err != nil {
			return err
		}
		if !rec.Revoked {
			return errors.WithMessage(errs.ErrAlreadyExists, "attestation")
		}
	}
	if err := b.records.Put(key, Attestation{AttestedAt: b.env.Now()}); err != nil {
		return err
	}
	count, err := b.attCounts.Get(subject)
	if err != nil {
		return err
	}
	next, err := credence.SafeAddUint64(count, 1)
	if err != nil {
		return errors.WithMessage(errs.ErrArithmeticOverflow, "attestation count")
	}
	if err := b.attCounts.Put(subject, next); err != nil {
		return err
	}
	b.env.Emit(b.addr, "attestation_added",
		"verifier", verifier.String(),
		"subject", subject.String(),
		"data", data.String(),
	)
	return nil
}

// RevokeAttestation withdraws verifier's vouch for (subject, data).
func (b *Bond) RevokeAttestation(verifier, subject credence.Address, data credence.Bytes32, n uint64) error {
	return b.env.Atomic(func() error {
		if err := b.env.RequireAuth(verifier); err != nil {
			return err
		}
		if err := b.nonces.Consume(verifier, n); err != nil {
			return err
		}
		key := attestKey{verifier, subject, data}
		ok, err := b.records.Has(key)
		if err != nil {
			return err
		}
		if !ok {
			return errors.WithMessage(errs.ErrNotFound, "attestation")
		}
		rec, err := b.records.Get(key)
		if err != nil {
			return err
		}
		if rec.Revoked {
			return errors.WithMessage(errs.ErrNotFound, "attestation revoked")
		}
		rec.Revoked = true
		if err := b.records.Put(key, rec); err != nil {
			return err
		}
		count, err := b.attCounts.Get(subject)
		if err != nil {
			return err
		}
		if count > 0 {
			count--
		}
		if err := b.attCounts.Put(subject, count); err != nil {
			return err
		}
		b.env.Emit(b.addr, "attestation_revoked",
			"verifier", verifier.String(),
			"subject", subject.String(),
			"data", data.String(),
		)
		return nil
	})
}

// AttestationCount returns the number of active attestations for subject.
func (b *Bond) AttestationCount(subject credence.Address) (uint64, error) {
	return b.attCounts.Get(subject)
}

// AttestationWeight applies the installed weight strategy to subject's
// effective stake and attestation count.
func (b *Bond) AttestationWeight(subject credence.Address) (*big.Int, error) {
	if b.attestWeight == nil {
		return nil, errors.WithMessage(errs.ErrInvalidConfiguration, "no attestation weight strategy")
	}
	acc, err := b.Get(subject)
	if err != nil {
		return nil, err
	}
	count, err := b.attCounts.Get(subject)
	if err != nil {
		return nil, err
	}
	return b.attestWeight(acc.Available(), count), nil
}
