// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/credence-net/credence/credence"
)

// MemLedger is an in-memory token ledger implementing TransferAgent.
// It backs tests and the solo tooling; a deployment wires a real agent.
type MemLedger struct {
	balances map[credence.Address]*big.Int

	// FailNext forces the next Transfer to fail, for exercising
	// rollback paths.
	FailNext bool
}

// NewMemLedger creates an empty in-memory ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{balances: make(map[credence.Address]*big.Int)}
}

// Mint credits addr with amount out of thin air.
func (l *MemLedger) Mint(addr credence.Address, amount *big.Int) {
	l.balances[addr] = new(big.Int).Add(l.BalanceOf(addr), amount)
}

// BalanceOf returns addr's balance.
func (l *MemLedger) BalanceOf(addr credence.Address) *big.Int {
	if b, ok := l.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Transfer implements TransferAgent. It fails when the sender's balance is
// insufficient or when FailNext is armed.
func (l *MemLedger) Transfer(from, to credence.Address, amount *big.Int) error {
	if l.FailNext {
		l.FailNext = false
		return errors.New("transfer agent failure")
	}
	if amount.Sign() < 0 {
		return errors.New("negative transfer amount")
	}
	fromBal := l.BalanceOf(from)
	if fromBal.Cmp(amount) < 0 {
		return errors.Errorf("insufficient balance: have %v want %v", fromBal, amount)
	}
	l.balances[from] = fromBal.Sub(fromBal, amount)
	l.balances[to] = new(big.Int).Add(l.BalanceOf(to), amount)
	return nil
}
