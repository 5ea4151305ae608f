// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bond_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/credence-net/credence/contracts/bond"
	"github.com/credence-net/credence/contracts/delegation"
	"github.com/credence-net/credence/contracts/gov"
	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/lvldb"
	"github.com/credence-net/credence/state"
	"github.com/credence-net/credence/test/datagen"
	"github.com/credence-net/credence/xenv"
)

type setup struct {
	env       *xenv.Environment
	clock     *xenv.FixedClock
	ledger    *xenv.MemLedger
	bond      *bond.Bond
	deleg     *delegation.Delegation
	bondAddr  credence.Address
	admin     credence.Address
	treasury  credence.Address
	governors []credence.Address
}

type params struct {
	feeBps       uint32
	penaltyBps   uint32
	noticePeriod uint64
}

func newSetup(t *testing.T, p params, opts ...bond.Option) *setup {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &xenv.FixedClock{Time: 1_000_000}
	ledger := xenv.NewMemLedger()
	env := xenv.New(state.New(db),
		xenv.WithClock(clock),
		xenv.WithTransferAgent(ledger),
	)

	s := &setup{
		env:      env,
		clock:    clock,
		ledger:   ledger,
		bondAddr: datagen.RandAddress(),
		admin:    datagen.RandAddress(),
		treasury: datagen.RandAddress(),
	}
	for i := 0; i < 4; i++ {
		s.governors = append(s.governors, datagen.RandAddress())
	}

	s.deleg = delegation.New(datagen.RandAddress(), env)
	base := []bond.Option{
		bond.WithDelegation(votingDelegates{s.deleg}),
		bond.WithAttestDelegation(attestationDelegates{s.deleg}),
	}
	s.bond = bond.New(s.bondAddr, env, append(base, opts...)...)

	require.NoError(t, s.bond.Initialize(bond.InitConfig{
		Admin:        s.admin,
		Treasury:     s.treasury,
		FeeBps:       p.feeBps,
		PenaltyBps:   p.penaltyBps,
		NoticePeriod: p.noticePeriod,
		Governors:    s.governors,
		QuorumBps:    5000,
		MinGovernors: 2,
	}))
	return s
}

// fund mints ledger balance so a principal can bond.
func (s *setup) fund(addr credence.Address, amount int64) {
	s.ledger.Mint(addr, big.NewInt(amount))
}

// createBond funds owner and opens a bond.
func (s *setup) createBond(t *testing.T, owner credence.Address, amount int64, duration uint64, rolling bool) {
	s.fund(owner, amount)
	require.NoError(t, s.bond.Create(owner, big.NewInt(amount), duration, rolling))
}

// lastEvent returns the most recent emitted event with the given name.
func (s *setup) lastEvent(name string) *xenv.Event {
	events := s.env.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Name == name {
			return &events[i]
		}
	}
	return nil
}

type votingDelegates struct {
	d *delegation.Delegation
}

func (v votingDelegates) IsValidDelegate(owner, delegate credence.Address) (bool, error) {
	return v.d.IsValid(owner, delegate, delegation.ScopeVoting)
}

type attestationDelegates struct {
	d *delegation.Delegation
}

func (a attestationDelegates) IsValidDelegate(owner, delegate credence.Address) (bool, error) {
	return a.d.IsValid(owner, delegate, delegation.ScopeAttestation)
}

var (
	_ gov.DelegateChecker = votingDelegates{}
	_ gov.DelegateChecker = attestationDelegates{}
)
