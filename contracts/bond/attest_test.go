// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bond_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credence-net/credence/contracts/bond"
	"github.com/credence-net/credence/contracts/delegation"
	"github.com/credence-net/credence/contracts/errs"
	"github.com/credence-net/credence/test/datagen"
)

func TestAttesterRegistry(t *testing.T) {
	s := newSetup(t, params{})
	attester := datagen.RandAddress()

	err := s.bond.AddAttester(datagen.RandAddress(), attester)
	assert.True(t, errors.Is(err, errs.ErrNotAuthorized))

	require.NoError(t, s.bond.AddAttester(s.admin, attester))
	ok, err := s.bond.IsAttester(attester)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.bond.RemoveAttester(s.admin, attester))
	ok, err = s.bond.IsAttester(attester)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAttestLifecycle(t *testing.T) {
	s := newSetup(t, params{})
	attester := datagen.RandAddress()
	subject := datagen.RandAddress()
	data := datagen.RandBytes32()
	require.NoError(t, s.bond.AddAttester(s.admin, attester))
	s.createBond(t, subject, 1000, 3600, false)

	// strangers cannot attest
	err := s.bond.Attest(datagen.RandAddress(), subject, data, 0)
	assert.True(t, errors.Is(err, errs.ErrNotEligible))

	// subject must hold a bond
	err = s.bond.Attest(attester, datagen.RandAddress(), data, 0)
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	require.NoError(t, s.bond.Attest(attester, subject, data, 0))
	count, err := s.bond.AttestationCount(subject)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	// same triple again is a duplicate; a distinct data value is not
	err = s.bond.Attest(attester, subject, data, 1)
	assert.True(t, errors.Is(err, errs.ErrAlreadyExists))
	require.NoError(t, s.bond.Attest(attester, subject, datagen.RandBytes32(), 1))
	count, _ = s.bond.AttestationCount(subject)
	assert.Equal(t, uint64(2), count)

	require.NoError(t, s.bond.RevokeAttestation(attester, subject, data, 2))
	count, _ = s.bond.AttestationCount(subject)
	assert.Equal(t, uint64(1), count)

	// double revoke fails and leaves the nonce unconsumed
	err = s.bond.RevokeAttestation(attester, subject, data, 3)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	n, err := s.bond.Nonce(attester)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	// re-attesting a revoked triple reactivates it
	require.NoError(t, s.bond.Attest(attester, subject, data, 3))
	count, _ = s.bond.AttestationCount(subject)
	assert.Equal(t, uint64(2), count)
}

func TestDelegatedAttest(t *testing.T) {
	s := newSetup(t, params{})
	verifier := datagen.RandAddress()
	delegate := datagen.RandAddress()
	subject := datagen.RandAddress()
	require.NoError(t, s.bond.AddAttester(s.admin, verifier))
	s.createBond(t, subject, 1000, 3600, false)

	// without a grant the caster is turned away
	err := s.bond.AttestAsDelegate(delegate, verifier, subject, datagen.RandBytes32(), 0)
	assert.True(t, errors.Is(err, errs.ErrNotEligible))

	// a voting-only grant does not cover attestations
	require.NoError(t, s.deleg.Grant(verifier, delegate, delegation.ScopeVoting, 1000, 0))
	err = s.bond.AttestAsDelegate(delegate, verifier, subject, datagen.RandBytes32(), 0)
	assert.True(t, errors.Is(err, errs.ErrNotEligible))

	require.NoError(t, s.deleg.Grant(verifier, delegate, delegation.ScopeAttestation, 1000, 1))
	data := datagen.RandBytes32()
	require.NoError(t, s.bond.AttestAsDelegate(delegate, verifier, subject, data, 0))

	count, err := s.bond.AttestationCount(subject)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	// the record is keyed to the verifier: a direct duplicate is rejected
	err = s.bond.Attest(verifier, subject, data, 0)
	assert.True(t, errors.Is(err, errs.ErrAlreadyExists))

	// the caster's nonce was consumed, not the verifier's
	n, _ := s.bond.Nonce(delegate)
	assert.Equal(t, uint64(1), n)
	n, _ = s.bond.Nonce(verifier)
	assert.Equal(t, uint64(0), n)

	// the verifier can revoke what the delegate recorded
	require.NoError(t, s.bond.RevokeAttestation(verifier, subject, data, 0))
	count, _ = s.bond.AttestationCount(subject)
	assert.Equal(t, uint64(0), count)
}

func TestAttestNonceGuard(t *testing.T) {
	s := newSetup(t, params{})
	attester := datagen.RandAddress()
	subject := datagen.RandAddress()
	require.NoError(t, s.bond.AddAttester(s.admin, attester))
	s.createBond(t, subject, 1000, 3600, false)

	err := s.bond.Attest(attester, subject, datagen.RandBytes32(), 7)
	assert.True(t, errors.Is(err, errs.ErrInvalidNonce))

	data := datagen.RandBytes32()
	require.NoError(t, s.bond.Attest(attester, subject, data, 0))

	// replaying the consumed nonce fails
	err = s.bond.Attest(attester, subject, datagen.RandBytes32(), 0)
	assert.True(t, errors.Is(err, errs.ErrInvalidNonce))
	n, _ := s.bond.Nonce(attester)
	assert.Equal(t, uint64(1), n)
}

func TestAttestationWeight(t *testing.T) {
	// weight = stake + 100 per active attestation
	weigh := func(stake *big.Int, count uint64) *big.Int {
		bonus := new(big.Int).Mul(big.NewInt(100), new(big.Int).SetUint64(count))
		return new(big.Int).Add(stake, bonus)
	}
	s := newSetup(t, params{}, bond.WithAttestWeight(weigh))
	subject := datagen.RandAddress()
	s.createBond(t, subject, 1000, 3600, false)

	w, err := s.bond.AttestationWeight(subject)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), w)

	attester := datagen.RandAddress()
	require.NoError(t, s.bond.AddAttester(s.admin, attester))
	require.NoError(t, s.bond.Attest(attester, subject, datagen.RandBytes32(), 0))

	w, err = s.bond.AttestationWeight(subject)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1100), w)

	// slashed stake lowers the weight
	require.NoError(t, s.bond.Slash(s.admin, subject, big.NewInt(400)))
	w, err = s.bond.AttestationWeight(subject)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(700), w)
}

func TestAttestationWeightUnconfigured(t *testing.T) {
	s := newSetup(t, params{})
	subject := datagen.RandAddress()
	s.createBond(t, subject, 1000, 3600, false)

	_, err := s.bond.AttestationWeight(subject)
	assert.True(t, errors.Is(err, errs.ErrInvalidConfiguration))
}
