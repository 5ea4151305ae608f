// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package treasury implements the protocol treasury: fund-source accounting
// for deposited fees and slashed funds, and a multi-sig withdrawal flow
// where a fixed number of signer approvals releases a payment.
package treasury

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/credence-net/credence/contracts/errs"
	"github.com/credence-net/credence/contracts/gov"
	"github.com/credence-net/credence/contracts/lock"
	"github.com/credence-net/credence/contracts/nonce"
	"github.com/credence-net/credence/contracts/sslot"
	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/log"
	"github.com/credence-net/credence/metrics"
	"github.com/credence-net/credence/xenv"
)

var logger = log.WithContext("pkg", "treasury")

// FundSource buckets the treasury's holdings by origin.
type FundSource uint8

const (
	SourceProtocolFee FundSource = iota
	SourceSlashedFunds
)

func (s FundSource) String() string {
	switch s {
	case SourceProtocolFee:
		return "protocol_fee"
	case SourceSlashedFunds:
		return "slashed_funds"
	default:
		return "unknown"
	}
}

// Treasury is the binder for the treasury contract.
type Treasury struct {
	addr credence.Address
	env  *xenv.Environment

	nonces    *nonce.Nonces
	fundsLock *lock.Lock

	initialized *sslot.Scalar[bool]
	admin       *sslot.Scalar[credence.Address]
	threshold   *sslot.Scalar[uint64]
	balances    *sslot.Mapping[uint8, *big.Int]

	signers    *gov.Roster
	depositors *gov.Roster
}

// New creates the treasury binder for the contract at addr.
func New(addr credence.Address, env *xenv.Environment) *Treasury {
	ctx := sslot.NewContext(addr, env.State())
	return &Treasury{
		addr:      addr,
		env:       env,
		nonces:    nonce.New(addr, env.State()),
		fundsLock: lock.New(addr, env.State(), "funds"),

		initialized: sslot.NewScalar[bool](ctx, "initialized"),
		admin:       sslot.NewScalar[credence.Address](ctx, "admin"),
		threshold:   sslot.NewScalar[uint64](ctx, "threshold"),
		balances:    sslot.NewMapping[uint8, *big.Int](ctx, "balances"),

		signers:    gov.NewRoster(ctx, "signers"),
		depositors: gov.NewRoster(ctx, "depositors"),
	}
}

// Initialize applies the deployment configuration. Callable once.
func (t *Treasury) Initialize(admin credence.Address, signers []credence.Address, threshold uint64) error {
	return t.env.Atomic(func() error {
		if done, err := t.initialized.Get(); err != nil {
			return err
		} else if done {
			return errors.WithMessage(errs.ErrAlreadyExists, "treasury initialized")
		}
		if threshold == 0 || threshold > uint64(len(signers)) {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "threshold outside signer count")
		}
		one := big.NewInt(1)
		for _, s := range signers {
			if err := t.signers.Add(s, one); err != nil {
				return err
			}
		}
		if err := t.admin.Put(admin); err != nil {
			return err
		}
		if err := t.threshold.Put(threshold); err != nil {
			return err
		}
		return t.initialized.Put(true)
	})
}

func (t *Treasury) requireAdmin(caller credence.Address) error {
	if err := t.env.RequireAuth(caller); err != nil {
		return err
	}
	admin, err := t.admin.Get()
	if err != nil {
		return err
	}
	if caller != admin {
		return errors.WithMessage(errs.ErrNotAuthorized, "admin only")
	}
	return nil
}

// Nonce returns the principal's next expected nonce.
func (t *Treasury) Nonce(principal credence.Address) (uint64, error) {
	return t.nonces.Current(principal)
}

// Threshold returns the current approval threshold.
func (t *Treasury) Threshold() (uint64, error) {
	return t.threshold.Get()
}

// IsSigner reports whether addr is a signer.
func (t *Treasury) IsSigner(addr credence.Address) (bool, error) {
	return t.signers.Contains(addr)
}

// AddSigner registers a new signer. Admin only. Open proposals keep the
// threshold snapshotted at their creation.
func (t *Treasury) AddSigner(caller, signer credence.Address) error {
	return t.env.Atomic(func() error {
		if err := t.requireAdmin(caller); err != nil {
			return err
		}
		if err := t.signers.Add(signer, big.NewInt(1)); err != nil {
			return err
		}
		t.env.Emit(t.addr, "signer_added", "signer", signer.String())
		return nil
	})
}

// RemoveSigner unregisters a signer. The threshold is capped to the
// remaining signer count so the treasury can never become unspendable.
func (t *Treasury) RemoveSigner(caller, signer credence.Address) error {
	return t.env.Atomic(func() error {
		if err := t.requireAdmin(caller); err != nil {
			return err
		}
		if err := t.signers.Remove(signer); err != nil {
			return err
		}
		n, err := t.signers.Count()
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "cannot remove last signer")
		}
		th, err := t.threshold.Get()
		if err != nil {
			return err
		}
		if th > n {
			if err := t.threshold.Put(n); err != nil {
				return err
			}
		}
		t.env.Emit(t.addr, "signer_removed", "signer", signer.String())
		return nil
	})
}

// AddDepositor authorizes addr to deposit funds. Admin only.
func (t *Treasury) AddDepositor(caller, depositor credence.Address) error {
	return t.env.Atomic(func() error {
		if err := t.requireAdmin(caller); err != nil {
			return err
		}
		return t.depositors.Add(depositor, big.NewInt(1))
	})
}

// RemoveDepositor revokes addr's deposit authorization. Admin only.
func (t *Treasury) RemoveDepositor(caller, depositor credence.Address) error {
	return t.env.Atomic(func() error {
		if err := t.requireAdmin(caller); err != nil {
			return err
		}
		return t.depositors.Remove(depositor)
	})
}

// Balance returns the holdings of one fund source.
func (t *Treasury) Balance(source FundSource) (*big.Int, error) {
	b, err := t.balances.Get(uint8(source))
	if err != nil {
		return nil, err
	}
	if b == nil {
		return new(big.Int), nil
	}
	return b, nil
}

// TotalBalance returns the holdings across all fund sources.
func (t *Treasury) TotalBalance() (*big.Int, error) {
	total := new(big.Int)
	for _, s := range []FundSource{SourceProtocolFee, SourceSlashedFunds} {
		b, err := t.Balance(s)
		if err != nil {
			return nil, err
		}
		total.Add(total, b)
	}
	return total, nil
}

// Deposit credits amount to the given fund source and pulls the funds from
// the caller. The caller must be the admin or a registered depositor.
func (t *Treasury) Deposit(caller credence.Address, source FundSource, amount *big.Int) error {
	return t.env.Atomic(func() error {
		if err := t.env.RequireAuth(caller); err != nil {
			return err
		}
		admin, err := t.admin.Get()
		if err != nil {
			return err
		}
		if caller != admin {
			if ok, err := t.depositors.Contains(caller); err != nil {
				return err
			} else if !ok {
				return errors.WithMessage(errs.ErrNotAuthorized, "not a registered depositor")
			}
		}
		if amount == nil || amount.Sign() <= 0 {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "deposit amount must be positive")
		}
		if err := t.credit(source, amount); err != nil {
			return err
		}
		if err := t.fundsLock.Do(func() error {
			return t.env.Transfer(caller, t.addr, amount)
		}); err != nil {
			return err
		}
		t.env.Emit(t.addr, "deposit",
			"depositor", caller.String(),
			"source", source.String(),
			"amount", amount.String(),
		)
		t.updateBalanceGauge()
		return nil
	})
}

func (t *Treasury) credit(source FundSource, amount *big.Int) error {
	b, err := t.Balance(source)
	if err != nil {
		return err
	}
	b, err = credence.SafeAdd(b, amount)
	if err != nil {
		return errors.WithMessage(errs.ErrArithmeticOverflow, "fund balance")
	}
	return t.balances.Put(uint8(source), b)
}

func (t *Treasury) debit(source FundSource, amount *big.Int) error {
	b, err := t.Balance(source)
	if err != nil {
		return err
	}
	if b.Cmp(amount) < 0 {
		return errors.WithMessagef(errs.ErrInsufficientAvailableBalance,
			"%v holds %v want %v", source, b, amount)
	}
	return t.balances.Put(uint8(source), new(big.Int).Sub(b, amount))
}

func (t *Treasury) updateBalanceGauge() {
	if total, err := t.TotalBalance(); err == nil && total.IsInt64() {
		metrics.Gauge("treasury_balance_gauge").Set(total.Int64())
	}
}
