// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package treasury

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/credence-net/credence/contracts/errs"
	"github.com/credence-net/credence/contracts/gov"
	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/metrics"
)

// Multi-sig withdrawals: a signer proposes, signers approve one each, and
// once the approval count snapshotted at creation is reached the withdrawal
// becomes executable by anyone.

func (t *Treasury) withdrawalEngine() (*gov.Engine, error) {
	th, err := t.threshold.Get()
	if err != nil {
		return nil, err
	}
	return gov.NewEngine(t.addr, t.env, "withdrawal", t.signers, gov.Config{
		Rule:      gov.RuleThreshold,
		Threshold: new(big.Int).SetUint64(th),
	})
}

// ProposeWithdrawal opens a withdrawal of amount from source to recipient.
// Signers only; replay-guarded. The source balance is checked best-effort
// here and re-validated at execution.
func (t *Treasury) ProposeWithdrawal(proposer, recipient credence.Address, source FundSource, amount *big.Int, n uint64) (id uint64, err error) {
	err = t.env.Atomic(func() error {
		if err := t.env.RequireAuth(proposer); err != nil {
			return err
		}
		if ok, err := t.signers.Contains(proposer); err != nil {
			return err
		} else if !ok {
			return errors.WithMessage(errs.ErrNotEligible, "not a signer")
		}
		if err := t.nonces.Consume(proposer, n); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 {
			return errors.WithMessage(errs.ErrInvalidConfiguration, "withdrawal amount must be positive")
		}
		balance, err := t.Balance(source)
		if err != nil {
			return err
		}
		if balance.Cmp(amount) < 0 {
			return errors.WithMessagef(errs.ErrInsufficientAvailableBalance,
				"%v holds %v want %v", source, balance, amount)
		}
		engine, err := t.withdrawalEngine()
		if err != nil {
			return err
		}
		if id, err = engine.Create(proposer, gov.KindWithdrawal, recipient, amount, []byte{byte(source)}); err != nil {
			return err
		}
		metrics.Counter("treasury_withdrawal_proposal_count").Add(1)
		return nil
	})
	return
}

// Approve records a signer's approval of a withdrawal.
func (t *Treasury) Approve(signer credence.Address, id uint64) error {
	return t.env.Atomic(func() error {
		if err := t.env.RequireAuth(signer); err != nil {
			return err
		}
		engine, err := t.withdrawalEngine()
		if err != nil {
			return err
		}
		return engine.Vote(signer, id, gov.ChoiceApprove)
	})
}

// Execute pays out an approved withdrawal. Callable by anyone once the
// approval count has reached the snapshotted threshold; the source balance
// is re-validated and the ledger debited before the transfer.
func (t *Treasury) Execute(caller credence.Address, id uint64) error {
	return t.env.Atomic(func() error {
		if err := t.env.RequireAuth(caller); err != nil {
			return err
		}
		engine, err := t.withdrawalEngine()
		if err != nil {
			return err
		}
		if err := engine.Resolve(id); err != nil {
			return err
		}
		if err := engine.Execute(id, func(p *gov.Proposal) error {
			source := SourceProtocolFee
			if len(p.Data) > 0 {
				source = FundSource(p.Data[0])
			}
			if err := t.debit(source, p.Amount); err != nil {
				return err
			}
			if err := t.fundsLock.Do(func() error {
				return t.env.Transfer(t.addr, p.Target, p.Amount)
			}); err != nil {
				return err
			}
			t.env.Emit(t.addr, "withdrawal_executed",
				"recipient", p.Target.String(),
				"source", source.String(),
				"amount", p.Amount.String(),
			)
			return nil
		}); err != nil {
			return err
		}
		metrics.Counter("treasury_withdrawal_execution_count").Add(1)
		t.updateBalanceGauge()
		logger.Info("withdrawal executed", "id", id)
		return nil
	})
}

// GetProposal returns a withdrawal proposal by ID.
func (t *Treasury) GetProposal(id uint64) (*gov.Proposal, error) {
	engine, err := t.withdrawalEngine()
	if err != nil {
		return nil, err
	}
	return engine.Get(id)
}
