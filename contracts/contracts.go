// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package contracts wires the Credence contracts together: well-known
// contract addresses, the registry boundary, and the System bundle binding
// every contract to one execution environment.
package contracts

import (
	"github.com/credence-net/credence/contracts/bond"
	"github.com/credence-net/credence/contracts/delegation"
	"github.com/credence-net/credence/contracts/dispute"
	"github.com/credence-net/credence/contracts/gov"
	"github.com/credence-net/credence/contracts/treasury"
	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/xenv"
)

// Well-known contract addresses, derived from the contract names.
var (
	BondAddress       = credence.BytesToAddress([]byte("credence.bond"))
	TreasuryAddress   = credence.BytesToAddress([]byte("credence.treasury"))
	DisputeAddress    = credence.BytesToAddress([]byte("credence.dispute"))
	DelegationAddress = credence.BytesToAddress([]byte("credence.delegation"))
)

// Registry resolves an identity to the bond contract holding its account.
// Read-only boundary; implementations have no side effects on the core.
type Registry interface {
	ResolveBondContract(identity credence.Address) (credence.Address, error)
}

// System bundles the contract binders over one execution environment.
type System struct {
	Bond       *bond.Bond
	Treasury   *treasury.Treasury
	Disputes   *dispute.Disputes
	Delegation *delegation.Delegation
}

// NewSystem creates all binders at their well-known addresses with voting
// and attestation delegation wired into the bond contract.
func NewSystem(env *xenv.Environment) *System {
	deleg := delegation.New(DelegationAddress, env)
	return &System{
		Bond: bond.New(BondAddress, env,
			bond.WithDelegation(VotingDelegates(deleg)),
			bond.WithAttestDelegation(AttestationDelegates(deleg)),
		),
		Treasury:   treasury.New(TreasuryAddress, env),
		Disputes:   dispute.New(DisputeAddress, env),
		Delegation: deleg,
	}
}

// ResolveBondContract implements Registry. Every bonded identity lives in
// the single bond contract.
func (s *System) ResolveBondContract(identity credence.Address) (credence.Address, error) {
	if _, err := s.Bond.Get(identity); err != nil {
		return credence.Address{}, err
	}
	return BondAddress, nil
}

type votingDelegates struct {
	d *delegation.Delegation
}

// VotingDelegates adapts the delegation contract to the voting engine's
// delegate check, fixed to the voting scope.
func VotingDelegates(d *delegation.Delegation) gov.DelegateChecker {
	return votingDelegates{d}
}

func (v votingDelegates) IsValidDelegate(owner, delegate credence.Address) (bool, error) {
	return v.d.IsValid(owner, delegate, delegation.ScopeVoting)
}

type attestationDelegates struct {
	d *delegation.Delegation
}

// AttestationDelegates adapts the delegation contract to the attestation
// delegate check, fixed to the attestation scope.
func AttestationDelegates(d *delegation.Delegation) gov.DelegateChecker {
	return attestationDelegates{d}
}

func (a attestationDelegates) IsValidDelegate(owner, delegate credence.Address) (bool, error) {
	return a.d.IsValid(owner, delegate, delegation.ScopeAttestation)
}
