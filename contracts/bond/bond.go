// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package bond implements the ledger-account contract: identities lock
// collateral for a period and the contract tracks the bonded and slashed
// amounts with checked arithmetic. Slashing beyond an admin decision goes
// through governor voting; attesters vouch for bonded identities.
package bond

import (
	"math/big"
	"strconv"

	"github.com/pkg/errors"

	"github.com/credence-net/credence/contracts/errs"
	"github.com/credence-net/credence/contracts/gov"
	"github.com/credence-net/credence/contracts/lock"
	"github.com/credence-net/credence/contracts/nonce"
	"github.com/credence-net/credence/contracts/sslot"
	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/log"
	"github.com/credence-net/credence/xenv"
)

var logger = log.WithContext("pkg", "bond")

// Account is the per-identity ledger record. Available balance is always
// Bonded - Slashed, computed on demand and never stored.
type Account struct {
	Bonded                *big.Int
	Slashed               *big.Int
	PeriodStart           uint64
	PeriodDuration        uint64
	Rolling               bool
	WithdrawalRequestedAt uint64 // 0 means no pending request
	CreatedAt             uint64
}

// Available returns the withdrawable balance.
func (a *Account) Available() *big.Int {
	return new(big.Int).Sub(a.Bonded, a.Slashed)
}

func (a *Account) maturity() (uint64, error) {
	end, err := credence.SafeAddUint64(a.PeriodStart, a.PeriodDuration)
	if err != nil {
		return 0, errors.WithMessage(errs.ErrArithmeticOverflow, "bond maturity")
	}
	return end, nil
}

// InitConfig is the deployment configuration of the bond contract.
type InitConfig struct {
	Admin        credence.Address
	Treasury     credence.Address
	FeeBps       uint32
	PenaltyBps   uint32
	NoticePeriod uint64
	Governors    []credence.Address
	QuorumBps    uint32
	MinGovernors uint64
}

// AttestWeightFn derives an attestation weight from a subject's effective
// stake and attestation count. Supplied by the deployment, not defined here.
type AttestWeightFn func(stake *big.Int, count uint64) *big.Int

// Bond is the binder for the bond contract.
type Bond struct {
	addr credence.Address
	env  *xenv.Environment

	accounts  *sslot.Mapping[credence.Address, Account]
	nonces    *nonce.Nonces
	fundsLock *lock.Lock

	initialized  *sslot.Scalar[bool]
	admin        *sslot.Scalar[credence.Address]
	treasury     *sslot.Scalar[credence.Address]
	feeBps       *sslot.Scalar[uint32]
	penaltyBps   *sslot.Scalar[uint32]
	noticePeriod *sslot.Scalar[uint64]
	feePool      *sslot.Scalar[*big.Int]

	governors    *gov.Roster
	quorumBps    *sslot.Scalar[uint32]
	minGovernors *sslot.Scalar[uint64]

	attesters *gov.Roster
	records   *sslot.Mapping[attestKey, Attestation]
	attCounts *sslot.Mapping[credence.Address, uint64]

	delegation       gov.DelegateChecker
	attestDelegation gov.DelegateChecker
	attestWeight     AttestWeightFn
}

// Option configures a Bond binder.
type Option func(*Bond)

// WithDelegation enables delegated voting on slash proposals.
func WithDelegation(checker gov.DelegateChecker) Option {
	return func(b *Bond) { b.delegation = checker }
}

// WithAttestDelegation enables attesting through a delegate.
func WithAttestDelegation(checker gov.DelegateChecker) Option {
	return func(b *Bond) { b.attestDelegation = checker }
}

// WithAttestWeight installs the attestation weight strategy.
func WithAttestWeight(fn AttestWeightFn) Option {
	return func(b *Bond) { b.attestWeight = fn }
}

// New creates the bond binder for the contract at addr.
func New(addr credence.Address, env *xenv.Environment, opts ...Option) *Bond {
	ctx := sslot.NewContext(addr, env.State())
	b := &Bond{
		addr:      addr,
		env:       env,
		accounts:  sslot.NewMapping[credence.Address, Account](ctx, "accounts"),
		nonces:    nonce.New(addr, env.State()),
		fundsLock: lock.New(addr, env.State(), "funds"),

		initialized:  sslot.NewScalar[bool](ctx, "initialized"),
		admin:        sslot.NewScalar[credence.Address](ctx, "admin"),
		treasury:     sslot.NewScalar[credence.Address](ctx, "treasury"),
		feeBps:       sslot.NewScalar[uint32](ctx, "fee-bps"),
		penaltyBps:   sslot.NewScalar[uint32](ctx, "penalty-bps"),
		noticePeriod: sslot.NewScalar[uint64](ctx, "notice-period"),
		feePool:      sslot.NewScalar[*big.Int](ctx, "fee-pool"),

		governors:    gov.NewRoster(ctx, "governors"),
		quorumBps:    sslot.NewScalar[uint32](ctx, "quorum-bps"),
		minGovernors: sslot.NewScalar[uint64](ctx, "min-governors"),

		attesters: gov.NewRoster(ctx, "attesters"),
		records:   sslot.NewMapping[attestKey, Attestation](ctx, "attestations"),
		attCounts: sslot.NewMapping[credence.Address, uint64](ctx, "attestation-counts"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Initialize applies the deployment configuration. Callable once.
func (b *Bond) Initialize(cfg InitConfig) error {
	return b.env.Atomic(func() error {
		if done, err := b.initialized.Get(); err != nil {
			return err
		} else if done {
			return errors.WithMessage(errs.ErrAlreadyExists, "bond contract initialized")
		}
		if cfg.FeeBps > credence.MaxFeeBps {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "fee above 100%")
		}
		if cfg.PenaltyBps > credence.MaxPenaltyBps {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "penalty above 100%")
		}
		if cfg.QuorumBps > credence.MaxQuorumBps {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "quorum above 100%")
		}
		if cfg.MinGovernors > uint64(len(cfg.Governors)) {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "min governors above governor count")
		}
		if err := b.admin.Put(cfg.Admin); err != nil {
			return err
		}
		if err := b.treasury.Put(cfg.Treasury); err != nil {
			return err
		}
		if err := b.feeBps.Put(cfg.FeeBps); err != nil {
			return err
		}
		if err := b.penaltyBps.Put(cfg.PenaltyBps); err != nil {
			return err
		}
		if err := b.noticePeriod.Put(cfg.NoticePeriod); err != nil {
			return err
		}
		if err := b.quorumBps.Put(cfg.QuorumBps); err != nil {
			return err
		}
		if err := b.minGovernors.Put(cfg.MinGovernors); err != nil {
			return err
		}
		one := big.NewInt(1)
		for _, g := range cfg.Governors {
			if err := b.governors.Add(g, one); err != nil {
				return err
			}
		}
		return b.initialized.Put(true)
	})
}

// Get returns the account of owner.
func (b *Bond) Get(owner credence.Address) (*Account, error) {
	acc, ok, err := b.getAccount(owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.WithMessagef(errs.ErrNotFound, "no bond for %v", owner)
	}
	return acc, nil
}

// Nonce returns the principal's next expected nonce.
func (b *Bond) Nonce(principal credence.Address) (uint64, error) {
	return b.nonces.Current(principal)
}

// FeePool returns the accrued, uncollected fees.
func (b *Bond) FeePool() (*big.Int, error) {
	pool, err := b.feePool.Get()
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return new(big.Int), nil
	}
	return pool, nil
}

func (b *Bond) getAccount(owner credence.Address) (*Account, bool, error) {
	ok, err := b.accounts.Has(owner)
	if err != nil || !ok {
		return nil, false, err
	}
	acc, err := b.accounts.Get(owner)
	if err != nil {
		return nil, false, err
	}
	return &acc, true, nil
}

func (b *Bond) requireAdmin(caller credence.Address) error {
	if err := b.env.RequireAuth(caller); err != nil {
		return err
	}
	admin, err := b.admin.Get()
	if err != nil {
		return err
	}
	if caller != admin {
		return errors.WithMessage(errs.ErrNotAuthorized, "admin only")
	}
	return nil
}

// Create opens a new bond for owner. The creation fee is deducted up front
// and accrues in the fee pool; the remainder is bonded.
func (b *Bond) Create(owner credence.Address, amount *big.Int, duration uint64, rolling bool) error {
	return b.env.Atomic(func() error {
		if err := b.env.RequireAuth(owner); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 || !credence.InAmountRange(amount) {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "bond amount out of range")
		}
		if duration == 0 {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "zero bond duration")
		}
		if ok, err := b.accounts.Has(owner); err != nil {
			return err
		} else if ok {
			return errors.WithMessagef(errs.ErrAlreadyExists, "bond for %v", owner)
		}
		feeBps, err := b.feeBps.Get()
		if err != nil {
			return err
		}
		fee := bpsOf(amount, feeBps)
		bonded := new(big.Int).Sub(amount, fee)
		if bonded.Sign() <= 0 {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "bond amount consumed by fee")
		}
		now := b.env.Now()
		acc := Account{
			Bonded:         bonded,
			Slashed:        new(big.Int),
			PeriodStart:    now,
			PeriodDuration: duration,
			Rolling:        rolling,
			CreatedAt:      now,
		}
		if err := b.accounts.Put(owner, acc); err != nil {
			return err
		}
		if err := b.accrueFee(fee); err != nil {
			return err
		}
		// Funds are pulled in only after the ledger reflects the bond.
		if err := b.fundsLock.Do(func() error {
			return b.env.Transfer(owner, b.addr, amount)
		}); err != nil {
			return err
		}
		b.env.Emit(b.addr, "bond_created",
			"owner", owner.String(),
			"amount", bonded.String(),
			"fee", fee.String(),
			"duration", strconv.FormatUint(duration, 10),
			"rolling", strconv.FormatBool(rolling),
		)
		b.emitTierChange(owner, TierOf(new(big.Int)), TierOf(bonded))
		logger.Info("bond created", "owner", owner, "amount", bonded, "rolling", rolling)
		return nil
	})
}

// TopUp adds amount to owner's bonded balance.
func (b *Bond) TopUp(owner credence.Address, amount *big.Int) error {
	return b.env.Atomic(func() error {
		if err := b.env.RequireAuth(owner); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "top-up amount must be positive")
		}
		acc, err := b.Get(owner)
		if err != nil {
			return err
		}
		before := TierOf(acc.Bonded)
		if acc.Bonded, err = credence.SafeAdd(acc.Bonded, amount); err != nil {
			return errors.WithMessage(errs.ErrArithmeticOverflow, "bonded amount")
		}
		if err := b.accounts.Put(owner, *acc); err != nil {
			return err
		}
		if err := b.fundsLock.Do(func() error {
			return b.env.Transfer(owner, b.addr, amount)
		}); err != nil {
			return err
		}
		b.env.Emit(b.addr, "bond_topped_up",
			"owner", owner.String(),
			"amount", amount.String(),
			"bonded", acc.Bonded.String(),
		)
		b.emitTierChange(owner, before, TierOf(acc.Bonded))
		return nil
	})
}

// Slash is the admin slashing path. The applied amount is capped so the
// slashed total never exceeds the bonded amount; capping is not an error.
func (b *Bond) Slash(caller, target credence.Address, amount *big.Int) error {
	return b.env.Atomic(func() error {
		if err := b.requireAdmin(caller); err != nil {
			return err
		}
		_, err := b.applySlash(target, amount)
		return err
	})
}

// applySlash mutates the ledger then moves the applied amount to the
// treasury under the reentrancy guard. Shared by admin and governance
// slashing.
func (b *Bond) applySlash(target credence.Address, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, errors.WithMessage(errs.ErrInvalidConfiguration, "slash amount must be positive")
	}
	acc, err := b.Get(target)
	if err != nil {
		return nil, err
	}
	newSlashed, err := credence.SafeAdd(acc.Slashed, amount)
	if err != nil {
		return nil, errors.WithMessage(errs.ErrArithmeticOverflow, "slashed amount")
	}
	if newSlashed.Cmp(acc.Bonded) > 0 {
		newSlashed = new(big.Int).Set(acc.Bonded)
	}
	applied := new(big.Int).Sub(newSlashed, acc.Slashed)
	acc.Slashed = newSlashed
	if err := b.accounts.Put(target, *acc); err != nil {
		return nil, err
	}
	if applied.Sign() > 0 {
		treasury, err := b.treasury.Get()
		if err != nil {
			return nil, err
		}
		if err := b.fundsLock.Do(func() error {
			return b.env.Transfer(b.addr, treasury, applied)
		}); err != nil {
			return nil, err
		}
	}
	b.env.Emit(b.addr, "bond_slashed",
		"target", target.String(),
		"applied", applied.String(),
		"slashed", acc.Slashed.String(),
	)
	logger.Info("bond slashed", "target", target, "applied", applied)
	return applied, nil
}

// Withdraw pays out amount from owner's available balance. A fixed-term
// bond must have matured; a rolling bond must have served its notice.
func (b *Bond) Withdraw(owner credence.Address, amount *big.Int) error {
	return b.env.Atomic(func() error {
		if err := b.env.RequireAuth(owner); err != nil {
			return err
		}
		acc, err := b.Get(owner)
		if err != nil {
			return err
		}
		if err := b.checkWithdrawable(acc); err != nil {
			return err
		}
		return b.payOut(owner, acc, amount, nil)
	})
}

func (b *Bond) checkWithdrawable(acc *Account) error {
	now := b.env.Now()
	if acc.Rolling {
		if acc.WithdrawalRequestedAt == 0 {
			return errors.WithMessage(errs.ErrDeadlineNotReached, "no withdrawal request")
		}
		notice, err := b.noticePeriod.Get()
		if err != nil {
			return err
		}
		served, err := credence.SafeAddUint64(acc.WithdrawalRequestedAt, notice)
		if err != nil {
			return errors.WithMessage(errs.ErrArithmeticOverflow, "notice deadline")
		}
		if now < served {
			return errors.WithMessage(errs.ErrDeadlineNotReached, "notice period not served")
		}
		return nil
	}
	end, err := acc.maturity()
	if err != nil {
		return err
	}
	if now < end {
		return errors.WithMessage(errs.ErrDeadlineNotReached, "bond not matured")
	}
	return nil
}

// WithdrawEarly pays out amount before maturity, deducting a penalty
// proportional to the remaining time. The penalty accrues in the fee pool.
func (b *Bond) WithdrawEarly(owner credence.Address, amount *big.Int) error {
	return b.env.Atomic(func() error {
		if err := b.env.RequireAuth(owner); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "withdraw amount must be positive")
		}
		acc, err := b.Get(owner)
		if err != nil {
			return err
		}
		penaltyBps, err := b.penaltyBps.Get()
		if err != nil {
			return err
		}
		end, err := acc.maturity()
		if err != nil {
			return err
		}
		now := b.env.Now()
		var remaining uint64
		if now < end {
			remaining = end - now
		}
		// A renewed period restarts the clock, so remaining time is
		// clamped to the full period length.
		if remaining > acc.PeriodDuration {
			remaining = acc.PeriodDuration
		}
		penalty := bpsOf(amount, penaltyBps)
		penalty.Mul(penalty, new(big.Int).SetUint64(remaining))
		penalty.Div(penalty, new(big.Int).SetUint64(acc.PeriodDuration))
		return b.payOut(owner, acc, amount, penalty)
	})
}

// payOut debits amount from acc and transfers amount-penalty to owner under
// the reentrancy guard. The ledger is updated before the transfer.
func (b *Bond) payOut(owner credence.Address, acc *Account, amount, penalty *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errors.WithMessage(errs.ErrInvalidConfiguration, "withdraw amount must be positive")
	}
	if acc.Available().Cmp(amount) < 0 {
		return errors.WithMessagef(errs.ErrInsufficientAvailableBalance,
			"available %v want %v", acc.Available(), amount)
	}
	before := TierOf(acc.Bonded)
	bonded, err := credence.SafeSub(acc.Bonded, amount)
	if err != nil {
		return errors.WithMessage(errs.ErrArithmeticUnderflow, "bonded amount")
	}
	acc.Bonded = bonded
	if err := b.accounts.Put(owner, *acc); err != nil {
		return err
	}
	payout := amount
	if penalty != nil && penalty.Sign() > 0 {
		payout = new(big.Int).Sub(amount, penalty)
		if err := b.accrueFee(penalty); err != nil {
			return err
		}
	}
	if err := b.fundsLock.Do(func() error {
		return b.env.Transfer(b.addr, owner, payout)
	}); err != nil {
		return err
	}
	name := "bond_withdrawn"
	args := []string{
		"owner", owner.String(),
		"amount", amount.String(),
		"bonded", acc.Bonded.String(),
	}
	if penalty != nil && penalty.Sign() > 0 {
		name = "bond_withdrawn_early"
		args = append(args, "penalty", penalty.String())
	}
	b.env.Emit(b.addr, name, args...)
	b.emitTierChange(owner, before, TierOf(acc.Bonded))
	logger.Info("bond withdrawn", "owner", owner, "amount", amount)
	return nil
}

// RequestWithdrawal starts the notice period of a rolling bond. Repeating
// the request keeps the original timestamp.
func (b *Bond) RequestWithdrawal(owner credence.Address) error {
	return b.env.Atomic(func() error {
		if err := b.env.RequireAuth(owner); err != nil {
			return err
		}
		acc, err := b.Get(owner)
		if err != nil {
			return err
		}
		if !acc.Rolling {
			return errors.WithMessage(errs.ErrNotEligible, "not a rolling bond")
		}
		if acc.WithdrawalRequestedAt != 0 {
			return nil
		}
		acc.WithdrawalRequestedAt = b.env.Now()
		if err := b.accounts.Put(owner, *acc); err != nil {
			return err
		}
		b.env.Emit(b.addr, "withdrawal_requested",
			"owner", owner.String(),
			"requested_at", strconv.FormatUint(acc.WithdrawalRequestedAt, 10),
		)
		return nil
	})
}

// Renew rolls an expired rolling bond into a new period and clears any
// pending withdrawal request. Renewing a fixed-term bond or an unexpired
// period is a defined no-op.
func (b *Bond) Renew(owner credence.Address) error {
	return b.env.Atomic(func() error {
		if err := b.env.RequireAuth(owner); err != nil {
			return err
		}
		acc, err := b.Get(owner)
		if err != nil {
			return err
		}
		if !acc.Rolling {
			return nil
		}
		end, err := acc.maturity()
		if err != nil {
			return err
		}
		now := b.env.Now()
		if now < end {
			return nil
		}
		acc.PeriodStart = now
		acc.WithdrawalRequestedAt = 0
		if err := b.accounts.Put(owner, *acc); err != nil {
			return err
		}
		b.env.Emit(b.addr, "bond_renewed",
			"owner", owner.String(),
			"period_start", strconv.FormatUint(now, 10),
		)
		return nil
	})
}

// ExtendDuration lengthens the current period by extra seconds.
func (b *Bond) ExtendDuration(owner credence.Address, extra uint64) error {
	return b.env.Atomic(func() error {
		if err := b.env.RequireAuth(owner); err != nil {
			return err
		}
		if extra == 0 {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "zero extension")
		}
		acc, err := b.Get(owner)
		if err != nil {
			return err
		}
		dur, err := credence.SafeAddUint64(acc.PeriodDuration, extra)
		if err != nil {
			return errors.WithMessage(errs.ErrArithmeticOverflow, "bond duration")
		}
		if _, err := credence.SafeAddUint64(acc.PeriodStart, dur); err != nil {
			return errors.WithMessage(errs.ErrArithmeticOverflow, "bond maturity")
		}
		acc.PeriodDuration = dur
		if err := b.accounts.Put(owner, *acc); err != nil {
			return err
		}
		b.env.Emit(b.addr, "bond_extended",
			"owner", owner.String(),
			"duration", strconv.FormatUint(dur, 10),
		)
		return nil
	})
}

// CollectFees moves the accrued fee pool to the treasury. Admin only.
func (b *Bond) CollectFees(caller credence.Address) error {
	return b.env.Atomic(func() error {
		if err := b.requireAdmin(caller); err != nil {
			return err
		}
		pool, err := b.FeePool()
		if err != nil {
			return err
		}
		if pool.Sign() == 0 {
			return nil
		}
		treasury, err := b.treasury.Get()
		if err != nil {
			return err
		}
		if err := b.feePool.Put(new(big.Int)); err != nil {
			return err
		}
		if err := b.fundsLock.Do(func() error {
			return b.env.Transfer(b.addr, treasury, pool)
		}); err != nil {
			return err
		}
		b.env.Emit(b.addr, "fees_collected", "amount", pool.String())
		logger.Info("fees collected", "amount", pool)
		return nil
	})
}

func (b *Bond) accrueFee(fee *big.Int) error {
	if fee.Sign() == 0 {
		return nil
	}
	pool, err := b.FeePool()
	if err != nil {
		return err
	}
	pool, err = credence.SafeAdd(pool, fee)
	if err != nil {
		return errors.WithMessage(errs.ErrArithmeticOverflow, "fee pool")
	}
	return b.feePool.Put(pool)
}

// bpsOf returns amount * bps / 10000, rounded down.
func bpsOf(amount *big.Int, bps uint32) *big.Int {
	v := new(big.Int).Mul(amount, big.NewInt(int64(bps)))
	return v.Div(v, big.NewInt(credence.BpsDenominator))
}
