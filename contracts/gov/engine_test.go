// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package gov_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credence-net/credence/contracts/errs"
	"github.com/credence-net/credence/contracts/gov"
	"github.com/credence-net/credence/contracts/sslot"
	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/lvldb"
	"github.com/credence-net/credence/state"
	"github.com/credence-net/credence/test/datagen"
	"github.com/credence-net/credence/xenv"
)

type testSetup struct {
	env    *xenv.Environment
	clock  *xenv.FixedClock
	addr   credence.Address
	roster *gov.Roster
}

func newSetup(t *testing.T) *testSetup {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &xenv.FixedClock{Time: 1000}
	st := state.New(db)
	env := xenv.New(st, xenv.WithClock(clock))
	addr := datagen.RandAddress()
	return &testSetup{
		env:    env,
		clock:  clock,
		addr:   addr,
		roster: gov.NewRoster(sslot.NewContext(addr, st), "members"),
	}
}

func (s *testSetup) addMembers(t *testing.T, n int, weight int64) []credence.Address {
	members := make([]credence.Address, n)
	for i := range members {
		members[i] = datagen.RandAddress()
		require.NoError(t, s.roster.Add(members[i], big.NewInt(weight)))
	}
	return members
}

func (s *testSetup) newEngine(t *testing.T, cfg gov.Config, opts ...gov.Option) *gov.Engine {
	engine, err := gov.NewEngine(s.addr, s.env, "test", s.roster, cfg, opts...)
	require.NoError(t, err)
	return engine
}

func TestMajorityRejected(t *testing.T) {
	// quorum 50%, 2 voter floor, 4 governors: 1 approve vs 1 reject
	// meets quorum but misses the strict majority.
	s := newSetup(t)
	governors := s.addMembers(t, 4, 1)
	engine := s.newEngine(t, gov.Config{Rule: gov.RuleMajority, QuorumBps: 5000, MinVoters: 2})

	id, err := engine.Create(governors[0], gov.KindSlash, datagen.RandAddress(), big.NewInt(100), nil)
	require.NoError(t, err)

	require.NoError(t, engine.Vote(governors[0], id, gov.ChoiceApprove))
	require.NoError(t, engine.Vote(governors[1], id, gov.ChoiceReject))
	require.NoError(t, engine.Resolve(id))

	p, err := engine.Get(id)
	require.NoError(t, err)
	assert.Equal(t, gov.StatusRejected, p.Status)
}

func TestMajorityApproved(t *testing.T) {
	s := newSetup(t)
	governors := s.addMembers(t, 4, 1)
	engine := s.newEngine(t, gov.Config{Rule: gov.RuleMajority, QuorumBps: 5000, MinVoters: 2})

	id, err := engine.Create(governors[0], gov.KindSlash, datagen.RandAddress(), big.NewInt(100), nil)
	require.NoError(t, err)

	require.NoError(t, engine.Vote(governors[0], id, gov.ChoiceApprove))
	require.NoError(t, engine.Vote(governors[1], id, gov.ChoiceApprove))
	require.NoError(t, engine.Vote(governors[2], id, gov.ChoiceReject))
	require.NoError(t, engine.Resolve(id))

	p, _ := engine.Get(id)
	assert.Equal(t, gov.StatusApproved, p.Status)

	// resolving a decided proposal is a no-op
	require.NoError(t, engine.Resolve(id))
	p, _ = engine.Get(id)
	assert.Equal(t, gov.StatusApproved, p.Status)
}

func TestMajorityQuorumNotMet(t *testing.T) {
	s := newSetup(t)
	governors := s.addMembers(t, 4, 1)
	engine := s.newEngine(t, gov.Config{Rule: gov.RuleMajority, QuorumBps: 5000, MinVoters: 2})

	id, err := engine.Create(governors[0], gov.KindSlash, datagen.RandAddress(), big.NewInt(100), nil)
	require.NoError(t, err)
	require.NoError(t, engine.Vote(governors[0], id, gov.ChoiceApprove))

	err = engine.Resolve(id)
	assert.True(t, errors.Is(err, errs.ErrQuorumNotMet))
	p, _ := engine.Get(id)
	assert.Equal(t, gov.StatusOpen, p.Status)
}

func TestSnapshotImmuneToMembershipChanges(t *testing.T) {
	s := newSetup(t)
	governors := s.addMembers(t, 2, 1)
	engine := s.newEngine(t, gov.Config{Rule: gov.RuleMajority, QuorumBps: 10000, MinVoters: 1})

	id, err := engine.Create(governors[0], gov.KindSlash, datagen.RandAddress(), big.NewInt(1), nil)
	require.NoError(t, err)

	// members joining after creation do not raise the bar
	s.addMembers(t, 10, 1)

	require.NoError(t, engine.Vote(governors[0], id, gov.ChoiceApprove))
	require.NoError(t, engine.Vote(governors[1], id, gov.ChoiceApprove))
	require.NoError(t, engine.Resolve(id))
	p, _ := engine.Get(id)
	assert.Equal(t, gov.StatusApproved, p.Status)
}

func TestVoteChecks(t *testing.T) {
	s := newSetup(t)
	governors := s.addMembers(t, 3, 1)
	engine := s.newEngine(t, gov.Config{Rule: gov.RuleMajority, QuorumBps: 5000, MinVoters: 1})

	id, err := engine.Create(governors[0], gov.KindSlash, datagen.RandAddress(), big.NewInt(1), nil)
	require.NoError(t, err)

	err = engine.Vote(datagen.RandAddress(), id, gov.ChoiceApprove)
	assert.True(t, errors.Is(err, errs.ErrNotEligible))

	require.NoError(t, engine.Vote(governors[0], id, gov.ChoiceApprove))
	err = engine.Vote(governors[0], id, gov.ChoiceReject)
	assert.True(t, errors.Is(err, errs.ErrAlreadyVoted))

	_, err = engine.Get(999)
	assert.True(t, errors.Is(err, errs.ErrProposalNotFound))
	err = engine.Vote(governors[1], 999, gov.ChoiceApprove)
	assert.True(t, errors.Is(err, errs.ErrProposalNotFound))
}

func TestThresholdResolve(t *testing.T) {
	s := newSetup(t)
	signers := s.addMembers(t, 3, 1)
	engine := s.newEngine(t, gov.Config{Rule: gov.RuleThreshold, Threshold: big.NewInt(2)})

	id, err := engine.Create(signers[0], gov.KindWithdrawal, datagen.RandAddress(), big.NewInt(500), nil)
	require.NoError(t, err)

	require.NoError(t, engine.Vote(signers[0], id, gov.ChoiceApprove))
	err = engine.Resolve(id)
	assert.True(t, errors.Is(err, errs.ErrQuorumNotMet))

	require.NoError(t, engine.Vote(signers[1], id, gov.ChoiceApprove))
	require.NoError(t, engine.Resolve(id))
	p, _ := engine.Get(id)
	assert.Equal(t, gov.StatusApproved, p.Status)
}

func TestExecuteExactlyOnce(t *testing.T) {
	s := newSetup(t)
	signers := s.addMembers(t, 3, 1)
	engine := s.newEngine(t, gov.Config{Rule: gov.RuleThreshold, Threshold: big.NewInt(2)})

	id, err := engine.Create(signers[0], gov.KindWithdrawal, datagen.RandAddress(), big.NewInt(500), nil)
	require.NoError(t, err)

	ran := 0
	effect := func(*gov.Proposal) error { ran++; return nil }

	// executing before approval fails
	err = engine.Execute(id, effect)
	assert.True(t, errors.Is(err, errs.ErrProposalNotOpen))

	require.NoError(t, engine.Vote(signers[0], id, gov.ChoiceApprove))
	require.NoError(t, engine.Vote(signers[1], id, gov.ChoiceApprove))
	require.NoError(t, engine.Resolve(id))

	require.NoError(t, engine.Execute(id, effect))
	assert.Equal(t, 1, ran)

	err = engine.Execute(id, effect)
	assert.True(t, errors.Is(err, errs.ErrAlreadyExecuted))
	assert.Equal(t, 1, ran)
}

func TestPlurality(t *testing.T) {
	s := newSetup(t)
	arbs := s.addMembers(t, 3, 1)
	require.NoError(t, s.roster.Add(datagen.RandAddress(), big.NewInt(5)))
	engine := s.newEngine(t, gov.Config{Rule: gov.RulePlurality, VotingPeriod: 100})

	id, err := engine.Create(arbs[0], gov.KindDisputeOutcome, datagen.RandAddress(), big.NewInt(10), nil)
	require.NoError(t, err)

	require.NoError(t, engine.Vote(arbs[0], id, 2))
	require.NoError(t, engine.Vote(arbs[1], id, 2))
	require.NoError(t, engine.Vote(arbs[2], id, 1))

	err = engine.Resolve(id)
	assert.True(t, errors.Is(err, errs.ErrDeadlineNotReached))

	s.clock.Forward(100)
	require.NoError(t, engine.Resolve(id))
	p, _ := engine.Get(id)
	assert.Equal(t, gov.StatusApproved, p.Status)
	assert.Equal(t, uint32(2), p.Outcome)
}

func TestPluralityTie(t *testing.T) {
	s := newSetup(t)
	arbs := s.addMembers(t, 2, 1)
	engine := s.newEngine(t, gov.Config{Rule: gov.RulePlurality, VotingPeriod: 100})

	id, err := engine.Create(arbs[0], gov.KindDisputeOutcome, datagen.RandAddress(), big.NewInt(10), nil)
	require.NoError(t, err)
	require.NoError(t, engine.Vote(arbs[0], id, 1))
	require.NoError(t, engine.Vote(arbs[1], id, 2))

	s.clock.Forward(100)
	require.NoError(t, engine.Resolve(id))
	p, _ := engine.Get(id)
	assert.Equal(t, uint32(0), p.Outcome)
}

func TestPluralityNoVotes(t *testing.T) {
	s := newSetup(t)
	arbs := s.addMembers(t, 2, 1)
	engine := s.newEngine(t, gov.Config{Rule: gov.RulePlurality, VotingPeriod: 100})

	id, err := engine.Create(arbs[0], gov.KindDisputeOutcome, datagen.RandAddress(), big.NewInt(10), nil)
	require.NoError(t, err)

	s.clock.Forward(100)
	require.NoError(t, engine.Resolve(id))
	p, _ := engine.Get(id)
	assert.Equal(t, uint32(0), p.Outcome)
}

func TestVoteAfterDeadline(t *testing.T) {
	s := newSetup(t)
	arbs := s.addMembers(t, 2, 1)
	engine := s.newEngine(t, gov.Config{Rule: gov.RulePlurality, VotingPeriod: 100})

	id, err := engine.Create(arbs[0], gov.KindDisputeOutcome, datagen.RandAddress(), big.NewInt(10), nil)
	require.NoError(t, err)

	s.clock.Forward(100)
	err = engine.Vote(arbs[0], id, 1)
	assert.True(t, errors.Is(err, errs.ErrDeadlineExpired))
}

func TestExpire(t *testing.T) {
	s := newSetup(t)
	arbs := s.addMembers(t, 2, 1)
	engine := s.newEngine(t, gov.Config{Rule: gov.RulePlurality, VotingPeriod: 100})

	id, err := engine.Create(arbs[0], gov.KindDisputeOutcome, datagen.RandAddress(), big.NewInt(10), nil)
	require.NoError(t, err)

	err = engine.Expire(id)
	assert.True(t, errors.Is(err, errs.ErrDeadlineNotReached))

	s.clock.Forward(100)
	require.NoError(t, engine.Expire(id))
	p, _ := engine.Get(id)
	assert.Equal(t, gov.StatusExpired, p.Status)

	err = engine.Resolve(id)
	assert.NoError(t, err) // decided proposals resolve to a no-op
	err = engine.Execute(id, func(*gov.Proposal) error { return nil })
	assert.True(t, errors.Is(err, errs.ErrProposalNotOpen))
}

type delegateMap map[[2]credence.Address]bool

func (m delegateMap) IsValidDelegate(owner, delegate credence.Address) (bool, error) {
	return m[[2]credence.Address{owner, delegate}], nil
}

func TestDelegatedVote(t *testing.T) {
	s := newSetup(t)
	governors := s.addMembers(t, 3, 1)
	owner := governors[0]
	delegate := datagen.RandAddress()

	checker := delegateMap{{owner, delegate}: true}
	engine := s.newEngine(t,
		gov.Config{Rule: gov.RuleMajority, QuorumBps: 5000, MinVoters: 1},
		gov.WithDelegation(checker),
	)

	id, err := engine.Create(owner, gov.KindSlash, datagen.RandAddress(), big.NewInt(1), nil)
	require.NoError(t, err)

	require.NoError(t, engine.VoteFor(delegate, owner, id, gov.ChoiceApprove))

	// the vote landed on the owner's slot with the caster recorded
	v, err := engine.GetVote(id, owner)
	require.NoError(t, err)
	assert.Equal(t, delegate, v.Caster)

	// the owner cannot double vote
	err = engine.Vote(owner, id, gov.ChoiceApprove)
	assert.True(t, errors.Is(err, errs.ErrAlreadyVoted))

	// a caster without a live delegation is not eligible
	err = engine.VoteFor(datagen.RandAddress(), governors[1], id, gov.ChoiceApprove)
	assert.True(t, errors.Is(err, errs.ErrNotEligible))
}

func TestInvalidConfiguration(t *testing.T) {
	s := newSetup(t)

	_, err := gov.NewEngine(s.addr, s.env, "bad", s.roster, gov.Config{Rule: gov.RuleMajority, QuorumBps: 10001})
	assert.True(t, errors.Is(err, errs.ErrInvalidConfiguration))

	_, err = gov.NewEngine(s.addr, s.env, "bad", s.roster, gov.Config{Rule: gov.RuleThreshold})
	assert.True(t, errors.Is(err, errs.ErrInvalidConfiguration))

	_, err = gov.NewEngine(s.addr, s.env, "bad", s.roster, gov.Config{Rule: gov.RulePlurality})
	assert.True(t, errors.Is(err, errs.ErrInvalidConfiguration))
}
