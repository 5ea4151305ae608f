// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package gov

import (
	"math/big"
	"strconv"

	"github.com/pkg/errors"

	"github.com/credence-net/credence/contracts/errs"
	"github.com/credence-net/credence/contracts/sslot"
	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/xenv"
)

// Electorate supplies voter weights and the electorate snapshot taken at
// proposal creation. A weight of zero means not eligible.
type Electorate interface {
	Weight(voter credence.Address) (*big.Int, error)
	Snapshot() (Snapshot, error)
}

// DelegateChecker answers whether delegate currently holds a live voting
// delegation from owner. The scope is fixed by whoever wires the checker.
type DelegateChecker interface {
	IsValidDelegate(owner, delegate credence.Address) (bool, error)
}

// Config fixes the decision rule of an Engine.
type Config struct {
	Rule Rule

	// QuorumBps is the share of the snapshot membership that must have
	// voted before a majority proposal can resolve.
	QuorumBps uint32

	// MinVoters is a floor on the number of cast ballots, applied on top
	// of QuorumBps.
	MinVoters uint64

	// Threshold is the approve weight that decides a threshold proposal.
	Threshold *big.Int

	// VotingPeriod is the proposal lifetime; 0 means open-ended.
	// Plurality proposals require one.
	VotingPeriod uint64
}

func (c Config) validate() error {
	switch c.Rule {
	case RuleMajority:
		if c.QuorumBps > credence.MaxQuorumBps {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "quorum above 100%")
		}
	case RuleThreshold:
		if c.Threshold == nil || c.Threshold.Sign() <= 0 {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "threshold must be positive")
		}
	case RulePlurality:
		if c.VotingPeriod == 0 {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "plurality vote needs a voting period")
		}
	default:
		return errors.WithMessage(errs.ErrInvalidConfiguration, "unknown decision rule")
	}
	return nil
}

type voteKey struct {
	ID    uint64
	Voter credence.Address
}

// Engine is the proposal store and voting machinery of one contract,
// bound to an electorate and a decision rule.
type Engine struct {
	addr       credence.Address
	env        *xenv.Environment
	electorate Electorate
	cfg        Config

	delegation DelegateChecker

	seq       *sslot.Scalar[uint64]
	proposals *sslot.Mapping[uint64, Proposal]
	votes     *sslot.Mapping[voteKey, Vote]
}

// Option configures an Engine beyond its decision rule.
type Option func(*Engine)

// WithDelegation enables delegated voting through the given checker.
func WithDelegation(checker DelegateChecker) Option {
	return func(e *Engine) { e.delegation = checker }
}

// NewEngine creates an engine whose slots live under the named field of the
// contract at addr.
func NewEngine(addr credence.Address, env *xenv.Environment, name string, electorate Electorate, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	ctx := sslot.NewContext(addr, env.State())
	e := &Engine{
		addr:       addr,
		env:        env,
		electorate: electorate,
		cfg:        cfg,
		seq:        sslot.NewScalar[uint64](ctx, name+".seq"),
		proposals:  sslot.NewMapping[uint64, Proposal](ctx, name+".proposals"),
		votes:      sslot.NewMapping[voteKey, Vote](ctx, name+".votes"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Create opens a new proposal and snapshots the electorate. Returns the
// proposal ID, starting from 1.
func (e *Engine) Create(proposer credence.Address, kind uint8, target credence.Address, amount *big.Int, data []byte) (uint64, error) {
	snap, err := e.electorate.Snapshot()
	if err != nil {
		return 0, err
	}
	snap.QuorumBps = e.cfg.QuorumBps
	snap.MinVoters = e.cfg.MinVoters
	if snap.Threshold = e.cfg.Threshold; snap.Threshold == nil {
		snap.Threshold = new(big.Int)
	}
	last, err := e.seq.Get()
	if err != nil {
		return 0, err
	}
	id, err := credence.SafeAddUint64(last, 1)
	if err != nil {
		return 0, errors.WithMessage(errs.ErrArithmeticOverflow, "proposal sequence")
	}
	now := e.env.Now()
	var deadline uint64
	if e.cfg.VotingPeriod > 0 {
		if deadline, err = credence.SafeAddUint64(now, e.cfg.VotingPeriod); err != nil {
			return 0, errors.WithMessage(errs.ErrArithmeticOverflow, "proposal deadline")
		}
	}
	if amount == nil {
		amount = new(big.Int)
	}
	p := Proposal{
		ID:        id,
		Kind:      kind,
		Proposer:  proposer,
		Target:    target,
		Amount:    amount,
		Data:      data,
		CreatedAt: now,
		Deadline:  deadline,
		Status:    StatusOpen,
		Snapshot:  snap,
		Tally:     Tally{CastWeight: new(big.Int)},
	}
	if err := e.proposals.Put(id, p); err != nil {
		return 0, err
	}
	if err := e.seq.Put(id); err != nil {
		return 0, err
	}
	e.env.Emit(e.addr, "proposal_created",
		"id", strconv.FormatUint(id, 10),
		"proposer", proposer.String(),
		"target", target.String(),
		"amount", amount.String(),
	)
	return id, nil
}

// Get returns the proposal with the given ID.
func (e *Engine) Get(id uint64) (*Proposal, error) {
	ok, err := e.proposals.Has(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.WithMessagef(errs.ErrProposalNotFound, "id %d", id)
	}
	p, err := e.proposals.Get(id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Vote casts voter's own ballot.
func (e *Engine) Vote(voter credence.Address, id uint64, choice uint32) error {
	return e.cast(voter, voter, id, choice)
}

// VoteFor casts a ballot on behalf of owner through a delegation. The vote
// is recorded under the owner with the caster noted, uses the owner's weight
// and eligibility, and blocks the owner from also voting directly.
func (e *Engine) VoteFor(caster, owner credence.Address, id uint64, choice uint32) error {
	if e.delegation == nil {
		return errors.WithMessage(errs.ErrNotEligible, "delegated voting not enabled")
	}
	ok, err := e.delegation.IsValidDelegate(owner, caster)
	if err != nil {
		return err
	}
	if !ok {
		return errors.WithMessagef(errs.ErrNotEligible, "%v is not a valid delegate of %v", caster, owner)
	}
	return e.cast(owner, caster, id, choice)
}

func (e *Engine) cast(voter, caster credence.Address, id uint64, choice uint32) error {
	p, err := e.Get(id)
	if err != nil {
		return err
	}
	if p.Status != StatusOpen {
		return errors.WithMessagef(errs.ErrProposalNotOpen, "id %d status %v", id, p.Status)
	}
	now := e.env.Now()
	if p.Deadline > 0 && now >= p.Deadline {
		return errors.WithMessagef(errs.ErrDeadlineExpired, "id %d", id)
	}
	if voted, err := e.votes.Has(voteKey{id, voter}); err != nil {
		return err
	} else if voted {
		return errors.WithMessage(errs.ErrAlreadyVoted, voter.String())
	}
	// Weight is read live; only the quorum denominator is snapshotted.
	weight, err := e.electorate.Weight(voter)
	if err != nil {
		return err
	}
	if weight == nil || weight.Sign() <= 0 {
		return errors.WithMessage(errs.ErrNotEligible, voter.String())
	}
	if err := e.votes.Put(voteKey{id, voter}, Vote{
		Choice: choice,
		Weight: weight,
		Caster: caster,
		CastAt: now,
	}); err != nil {
		return err
	}
	p.Tally.add(choice, weight)
	if err := e.proposals.Put(id, *p); err != nil {
		return err
	}
	e.env.Emit(e.addr, "vote_cast",
		"id", strconv.FormatUint(id, 10),
		"voter", voter.String(),
		"caster", caster.String(),
		"choice", strconv.FormatUint(uint64(choice), 10),
		"weight", weight.String(),
	)
	return nil
}

// GetVote returns the ballot owner cast (or had cast for them) on id.
func (e *Engine) GetVote(id uint64, owner credence.Address) (*Vote, error) {
	ok, err := e.votes.Has(voteKey{id, owner})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.WithMessagef(errs.ErrNotFound, "no vote by %v on %d", owner, id)
	}
	v, err := e.votes.Get(voteKey{id, owner})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Resolve applies the decision rule to an open proposal. Already decided
// proposals resolve to a no-op. A majority proposal short of quorum and a
// threshold proposal short of its threshold stay open.
func (e *Engine) Resolve(id uint64) error {
	p, err := e.Get(id)
	if err != nil {
		return err
	}
	if p.Status != StatusOpen {
		return nil
	}
	switch e.cfg.Rule {
	case RuleMajority:
		if err := e.checkQuorum(p); err != nil {
			return err
		}
		approve := p.Tally.choiceWeight(ChoiceApprove)
		// Strict majority of cast weight.
		if new(big.Int).Lsh(approve, 1).Cmp(p.Tally.CastWeight) > 0 {
			p.Status, p.Outcome = StatusApproved, ChoiceApprove
		} else {
			p.Status, p.Outcome = StatusRejected, ChoiceReject
		}
	case RuleThreshold:
		approve := p.Tally.choiceWeight(ChoiceApprove)
		if approve.Cmp(p.Snapshot.Threshold) < 0 {
			return errors.WithMessagef(errs.ErrQuorumNotMet, "approvals %v of %v", approve, p.Snapshot.Threshold)
		}
		p.Status, p.Outcome = StatusApproved, ChoiceApprove
	case RulePlurality:
		if e.env.Now() < p.Deadline {
			return errors.WithMessagef(errs.ErrDeadlineNotReached, "id %d", id)
		}
		p.Status, p.Outcome = StatusApproved, pluralityWinner(&p.Tally)
	}
	if err := e.proposals.Put(id, *p); err != nil {
		return err
	}
	name := "proposal_approved"
	if p.Status == StatusRejected {
		name = "proposal_rejected"
	}
	e.env.Emit(e.addr, name,
		"id", strconv.FormatUint(id, 10),
		"outcome", strconv.FormatUint(uint64(p.Outcome), 10),
	)
	return nil
}

// checkQuorum judges turnout against the snapshot: the voter count must
// reach quorum share of the snapshot membership, floored by MinVoters.
func (e *Engine) checkQuorum(p *Proposal) error {
	need := p.Snapshot.MemberCount * uint64(p.Snapshot.QuorumBps) / credence.BpsDenominator
	if need < p.Snapshot.MinVoters {
		need = p.Snapshot.MinVoters
	}
	if p.Tally.VotedCount < need {
		return errors.WithMessagef(errs.ErrQuorumNotMet, "voters %d below %d", p.Tally.VotedCount, need)
	}
	return nil
}

// pluralityWinner picks the choice with the most weight. No votes or a tie
// for first place falls back to choice 0.
func pluralityWinner(t *Tally) uint32 {
	var (
		winner uint32
		best   *big.Int
		tied   bool
	)
	for _, c := range t.Choices {
		switch {
		case best == nil || c.Weight.Cmp(best) > 0:
			winner, best, tied = c.Choice, c.Weight, false
		case c.Weight.Cmp(best) == 0:
			tied = true
		}
	}
	if best == nil || tied {
		return 0
	}
	return winner
}

// Expire marks an open proposal past its deadline as expired. Distinct from
// Resolve: no winner is picked; the proposal becomes dead.
func (e *Engine) Expire(id uint64) error {
	p, err := e.Get(id)
	if err != nil {
		return err
	}
	if p.Status != StatusOpen {
		return errors.WithMessagef(errs.ErrProposalNotOpen, "id %d status %v", id, p.Status)
	}
	if p.Deadline == 0 || e.env.Now() < p.Deadline {
		return errors.WithMessagef(errs.ErrDeadlineNotReached, "id %d", id)
	}
	p.Status = StatusExpired
	if err := e.proposals.Put(id, *p); err != nil {
		return err
	}
	e.env.Emit(e.addr, "proposal_expired", "id", strconv.FormatUint(id, 10))
	return nil
}

// Execute runs the effect of an approved proposal exactly once. The
// proposal is marked executed before the effect runs, so a reentrant call
// observes the final state; if the effect fails, the enclosing atomic call
// rolls everything back.
func (e *Engine) Execute(id uint64, effect func(*Proposal) error) error {
	p, err := e.Get(id)
	if err != nil {
		return err
	}
	switch p.Status {
	case StatusExecuted:
		return errors.WithMessagef(errs.ErrAlreadyExecuted, "id %d", id)
	case StatusApproved:
	default:
		return errors.WithMessagef(errs.ErrProposalNotOpen, "id %d status %v", id, p.Status)
	}
	p.Status = StatusExecuted
	if err := e.proposals.Put(id, *p); err != nil {
		return err
	}
	if err := effect(p); err != nil {
		return err
	}
	e.env.Emit(e.addr, "proposal_executed", "id", strconv.FormatUint(id, 10))
	return nil
}
