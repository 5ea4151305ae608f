// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bond

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/credence-net/credence/contracts/errs"
	"github.com/credence-net/credence/contracts/gov"
	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/metrics"
)

// Governor-gated slashing: any governor proposes, governors vote one vote
// each, and a strict majority above quorum approves. Execution is reserved
// for the proposer.

func (b *Bond) slashEngine() (*gov.Engine, error) {
	quorum, err := b.quorumBps.Get()
	if err != nil {
		return nil, err
	}
	minVoters, err := b.minGovernors.Get()
	if err != nil {
		return nil, err
	}
	var opts []gov.Option
	if b.delegation != nil {
		opts = append(opts, gov.WithDelegation(b.delegation))
	}
	return gov.NewEngine(b.addr, b.env, "slash", b.governors, gov.Config{
		Rule:      gov.RuleMajority,
		QuorumBps: quorum,
		MinVoters: minVoters,
	}, opts...)
}

// ProposeSlash opens a slash proposal against target. Governors only;
// replay-guarded.
func (b *Bond) ProposeSlash(proposer, target credence.Address, amount *big.Int, n uint64) (id uint64, err error) {
	err = b.env.Atomic(func() error {
		if err := b.env.RequireAuth(proposer); err != nil {
			return err
		}
		if ok, err := b.governors.Contains(proposer); err != nil {
			return err
		} else if !ok {
			return errors.WithMessage(errs.ErrNotEligible, "not a governor")
		}
		if err := b.nonces.Consume(proposer, n); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "slash amount must be positive")
		}
		if _, err := b.Get(target); err != nil {
			return err
		}
		engine, err := b.slashEngine()
		if err != nil {
			return err
		}
		if id, err = engine.Create(proposer, gov.KindSlash, target, amount, nil); err != nil {
			return err
		}
		metrics.Counter("bond_slash_proposal_count").Add(1)
		return nil
	})
	return
}

// VoteSlash casts voter's own ballot on a slash proposal.
func (b *Bond) VoteSlash(voter credence.Address, id uint64, approve bool) error {
	return b.env.Atomic(func() error {
		if err := b.env.RequireAuth(voter); err != nil {
			return err
		}
		engine, err := b.slashEngine()
		if err != nil {
			return err
		}
		if err := engine.Vote(voter, id, choiceOf(approve)); err != nil {
			return err
		}
		metrics.Counter("bond_slash_vote_count").Add(1)
		return nil
	})
}

// VoteSlashAsDelegate casts a ballot for owner through caster's voting
// delegation. The vote lands on the owner's slot with the owner's weight.
func (b *Bond) VoteSlashAsDelegate(caster, owner credence.Address, id uint64, approve bool) error {
	return b.env.Atomic(func() error {
		if err := b.env.RequireAuth(caster); err != nil {
			return err
		}
		engine, err := b.slashEngine()
		if err != nil {
			return err
		}
		if err := engine.VoteFor(caster, owner, id, choiceOf(approve)); err != nil {
			return err
		}
		metrics.Counter("bond_slash_vote_count").Add(1)
		return nil
	})
}

// ResolveSlash applies the majority rule to an open slash proposal.
// Callable by anyone.
func (b *Bond) ResolveSlash(id uint64) error {
	return b.env.Atomic(func() error {
		engine, err := b.slashEngine()
		if err != nil {
			return err
		}
		return engine.Resolve(id)
	})
}

// ExecuteSlash applies an approved slash proposal. Only the proposer may
// execute; the applied amount is re-capped against the live account.
func (b *Bond) ExecuteSlash(caller credence.Address, id uint64) error {
	return b.env.Atomic(func() error {
		if err := b.env.RequireAuth(caller); err != nil {
			return err
		}
		engine, err := b.slashEngine()
		if err != nil {
			return err
		}
		p, err := engine.Get(id)
		if err != nil {
			return err
		}
		if p.Proposer != caller {
			return errors.WithMessage(errs.ErrNotAuthorized, "proposer may execute")
		}
		if err := engine.Execute(id, func(p *gov.Proposal) error {
			_, err := b.applySlash(p.Target, p.Amount)
			return err
		}); err != nil {
			return err
		}
		metrics.Counter("bond_slash_execution_count").Add(1)
		return nil
	})
}

// GetSlashProposal returns a slash proposal by ID.
func (b *Bond) GetSlashProposal(id uint64) (*gov.Proposal, error) {
	engine, err := b.slashEngine()
	if err != nil {
		return nil, err
	}
	return engine.Get(id)
}

func choiceOf(approve bool) uint32 {
	if approve {
		return gov.ChoiceApprove
	}
	return gov.ChoiceReject
}
