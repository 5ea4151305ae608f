// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package dispute implements staked arbitration: a claimant pledges a stake
// to open a dispute, weighted arbitrators vote on the outcome until a
// deadline, and the outcome with the most weight decides where the stake
// goes. An exact tie, or no votes at all, resolves to no winner.
package dispute

import (
	"math/big"
	"strconv"

	"github.com/pkg/errors"

	"github.com/credence-net/credence/contracts/errs"
	"github.com/credence-net/credence/contracts/gov"
	"github.com/credence-net/credence/contracts/lock"
	"github.com/credence-net/credence/contracts/sslot"
	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/log"
	"github.com/credence-net/credence/metrics"
	"github.com/credence-net/credence/xenv"
)

var logger = log.WithContext("pkg", "dispute")

// Dispute outcomes.
const (
	OutcomeNone       uint32 = 0
	OutcomeClaimant   uint32 = 1
	OutcomeRespondent uint32 = 2
)

// Dispute is the stored dispute record. Lifecycle state lives on the
// underlying proposal; the record carries the parties and the stake.
type Dispute struct {
	Claimant   credence.Address
	Respondent credence.Address
	Stake      *big.Int
	OpenedAt   uint64
}

// Config is the deployment configuration of the dispute contract.
type Config struct {
	Admin        credence.Address
	Treasury     credence.Address
	MinStake     *big.Int
	VotingPeriod uint64
	ExpiryPeriod uint64
}

// Arbitrator pairs an address with its voting weight.
type Arbitrator struct {
	Address credence.Address
	Weight  *big.Int
}

// Disputes is the binder for the dispute contract.
type Disputes struct {
	addr credence.Address
	env  *xenv.Environment

	fundsLock *lock.Lock

	initialized  *sslot.Scalar[bool]
	admin        *sslot.Scalar[credence.Address]
	treasury     *sslot.Scalar[credence.Address]
	minStake     *sslot.Scalar[*big.Int]
	votingPeriod *sslot.Scalar[uint64]
	expiryPeriod *sslot.Scalar[uint64]

	arbitrators *gov.Roster
	records     *sslot.Mapping[uint64, Dispute]
}

// New creates the dispute binder for the contract at addr.
func New(addr credence.Address, env *xenv.Environment) *Disputes {
	ctx := sslot.NewContext(addr, env.State())
	return &Disputes{
		addr:      addr,
		env:       env,
		fundsLock: lock.New(addr, env.State(), "funds"),

		initialized:  sslot.NewScalar[bool](ctx, "initialized"),
		admin:        sslot.NewScalar[credence.Address](ctx, "admin"),
		treasury:     sslot.NewScalar[credence.Address](ctx, "treasury"),
		minStake:     sslot.NewScalar[*big.Int](ctx, "min-stake"),
		votingPeriod: sslot.NewScalar[uint64](ctx, "voting-period"),
		expiryPeriod: sslot.NewScalar[uint64](ctx, "expiry-period"),

		arbitrators: gov.NewRoster(ctx, "arbitrators"),
		records:     sslot.NewMapping[uint64, Dispute](ctx, "disputes"),
	}
}

func (d *Disputes) engine() (*gov.Engine, error) {
	period, err := d.votingPeriod.Get()
	if err != nil {
		return nil, err
	}
	return gov.NewEngine(d.addr, d.env, "outcome", d.arbitrators, gov.Config{
		Rule:         gov.RulePlurality,
		VotingPeriod: period,
	})
}

// Initialize applies the deployment configuration. Callable once.
func (d *Disputes) Initialize(cfg Config, arbitrators []Arbitrator) error {
	return d.env.Atomic(func() error {
		if done, err := d.initialized.Get(); err != nil {
			return err
		} else if done {
			return errors.WithMessage(errs.ErrAlreadyExists, "dispute contract initialized")
		}
		if cfg.VotingPeriod == 0 {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "zero voting period")
		}
		if cfg.MinStake == nil || cfg.MinStake.Sign() < 0 {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "negative minimum stake")
		}
		if err := d.admin.Put(cfg.Admin); err != nil {
			return err
		}
		if err := d.treasury.Put(cfg.Treasury); err != nil {
			return err
		}
		if err := d.minStake.Put(cfg.MinStake); err != nil {
			return err
		}
		if err := d.votingPeriod.Put(cfg.VotingPeriod); err != nil {
			return err
		}
		if err := d.expiryPeriod.Put(cfg.ExpiryPeriod); err != nil {
			return err
		}
		for _, a := range arbitrators {
			if err := d.arbitrators.Add(a.Address, a.Weight); err != nil {
				return err
			}
		}
		return d.initialized.Put(true)
	})
}

func (d *Disputes) requireAdmin(caller credence.Address) error {
	if err := d.env.RequireAuth(caller); err != nil {
		return err
	}
	admin, err := d.admin.Get()
	if err != nil {
		return err
	}
	if caller != admin {
		return errors.WithMessage(errs.ErrNotAuthorized, "admin only")
	}
	return nil
}

// AddArbitrator registers an arbitrator with its voting weight. Admin only.
// Open disputes keep the electorate snapshotted at their creation.
func (d *Disputes) AddArbitrator(caller credence.Address, arb Arbitrator) error {
	return d.env.Atomic(func() error {
		if err := d.requireAdmin(caller); err != nil {
			return err
		}
		if err := d.arbitrators.Add(arb.Address, arb.Weight); err != nil {
			return err
		}
		d.env.Emit(d.addr, "arbitrator_added",
			"arbitrator", arb.Address.String(),
			"weight", arb.Weight.String(),
		)
		return nil
	})
}

// RemoveArbitrator unregisters an arbitrator. Admin only.
func (d *Disputes) RemoveArbitrator(caller, arbitrator credence.Address) error {
	return d.env.Atomic(func() error {
		if err := d.requireAdmin(caller); err != nil {
			return err
		}
		if err := d.arbitrators.Remove(arbitrator); err != nil {
			return err
		}
		d.env.Emit(d.addr, "arbitrator_removed", "arbitrator", arbitrator.String())
		return nil
	})
}

// Open pledges stake and opens a dispute between claimant and respondent.
// Returns the dispute ID.
func (d *Disputes) Open(claimant, respondent credence.Address, stake *big.Int) (id uint64, err error) {
	err = d.env.Atomic(func() error {
		if err := d.env.RequireAuth(claimant); err != nil {
			return err
		}
		if claimant == respondent {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "self dispute")
		}
		min, err := d.minStake.Get()
		if err != nil {
			return err
		}
		if stake == nil || stake.Sign() <= 0 || stake.Cmp(min) < 0 {
			return errors.WithMessagef(errs.ErrInsufficientAvailableBalance,
				"stake below minimum %v", min)
		}
		engine, err := d.engine()
		if err != nil {
			return err
		}
		if id, err = engine.Create(claimant, gov.KindDisputeOutcome, respondent, stake, nil); err != nil {
			return err
		}
		if err := d.records.Put(id, Dispute{
			Claimant:   claimant,
			Respondent: respondent,
			Stake:      stake,
			OpenedAt:   d.env.Now(),
		}); err != nil {
			return err
		}
		// The stake is pulled in only after the dispute is recorded.
		if err := d.fundsLock.Do(func() error {
			return d.env.Transfer(claimant, d.addr, stake)
		}); err != nil {
			return err
		}
		d.env.Emit(d.addr, "dispute_opened",
			"id", strconv.FormatUint(id, 10),
			"claimant", claimant.String(),
			"respondent", respondent.String(),
			"stake", stake.String(),
		)
		metrics.Counter("dispute_opened_count").Add(1)
		logger.Info("dispute opened", "id", id, "claimant", claimant, "respondent", respondent)
		return nil
	})
	return
}

// Get returns the dispute record for id.
func (d *Disputes) Get(id uint64) (*Dispute, error) {
	ok, err := d.records.Has(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.WithMessagef(errs.ErrProposalNotFound, "dispute %d", id)
	}
	rec, err := d.records.Get(id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Proposal returns the underlying voting proposal of a dispute.
func (d *Disputes) Proposal(id uint64) (*gov.Proposal, error) {
	engine, err := d.engine()
	if err != nil {
		return nil, err
	}
	return engine.Get(id)
}

// Vote records an arbitrator's outcome vote, weighted by its registry
// weight.
func (d *Disputes) Vote(arbitrator credence.Address, id uint64, outcome uint32) error {
	return d.env.Atomic(func() error {
		if err := d.env.RequireAuth(arbitrator); err != nil {
			return err
		}
		if outcome > OutcomeRespondent {
			return errors.WithMessagef(errs.ErrInvalidConfiguration, "unknown outcome %d", outcome)
		}
		engine, err := d.engine()
		if err != nil {
			return err
		}
		return engine.Vote(arbitrator, id, outcome)
	})
}

// Resolve decides a dispute at or after its deadline and pays out the
// stake: the winner takes it back (claimant) or receives it (respondent);
// with no winner it goes to the treasury. Callable by anyone.
func (d *Disputes) Resolve(caller credence.Address, id uint64) error {
	return d.env.Atomic(func() error {
		if err := d.env.RequireAuth(caller); err != nil {
			return err
		}
		engine, err := d.engine()
		if err != nil {
			return err
		}
		if err := engine.Resolve(id); err != nil {
			return err
		}
		if err := engine.Execute(id, func(p *gov.Proposal) error {
			rec, err := d.Get(id)
			if err != nil {
				return err
			}
			var recipient credence.Address
			switch p.Outcome {
			case OutcomeClaimant:
				recipient = rec.Claimant
			case OutcomeRespondent:
				recipient = rec.Respondent
			default:
				if recipient, err = d.treasury.Get(); err != nil {
					return err
				}
			}
			if err := d.fundsLock.Do(func() error {
				return d.env.Transfer(d.addr, recipient, rec.Stake)
			}); err != nil {
				return err
			}
			d.env.Emit(d.addr, "dispute_resolved",
				"id", strconv.FormatUint(id, 10),
				"outcome", strconv.FormatUint(uint64(p.Outcome), 10),
				"recipient", recipient.String(),
			)
			return nil
		}); err != nil {
			return err
		}
		metrics.Counter("dispute_resolved_count").Add(1)
		logger.Info("dispute resolved", "id", id)
		return nil
	})
}

// Expire voids a dispute that stayed unresolved past its expiry window and
// refunds the stake to the claimant. Callable by anyone.
func (d *Disputes) Expire(caller credence.Address, id uint64) error {
	return d.env.Atomic(func() error {
		if err := d.env.RequireAuth(caller); err != nil {
			return err
		}
		engine, err := d.engine()
		if err != nil {
			return err
		}
		p, err := engine.Get(id)
		if err != nil {
			return err
		}
		grace, err := d.expiryPeriod.Get()
		if err != nil {
			return err
		}
		cutoff, err := credence.SafeAddUint64(p.Deadline, grace)
		if err != nil {
			return errors.WithMessage(errs.ErrArithmeticOverflow, "expiry cutoff")
		}
		if d.env.Now() < cutoff {
			return errors.WithMessagef(errs.ErrDeadlineNotReached, "dispute %d not expirable", id)
		}
		if err := engine.Expire(id); err != nil {
			return err
		}
		rec, err := d.Get(id)
		if err != nil {
			return err
		}
		if err := d.fundsLock.Do(func() error {
			return d.env.Transfer(d.addr, rec.Claimant, rec.Stake)
		}); err != nil {
			return err
		}
		d.env.Emit(d.addr, "dispute_expired",
			"id", strconv.FormatUint(id, 10),
			"refund", rec.Stake.String(),
		)
		return nil
	})
}
