// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package xenv supplies the execution environment contracts run in: the
// caller-authorization capability, the clock, the asset-transfer capability
// and the ordered event log. All of them are boundaries; the contracts never
// look behind them.
package xenv

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/credence-net/credence/contracts/errs"
	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/state"
)

// Authorizer is the opaque capability check confirming that a claimed
// principal authorized the current call. Implementations range from
// always-true (tests) to real signature verification.
type Authorizer interface {
	Authorized(principal credence.Address) bool
}

// TransferAgent moves assets between principals. It either succeeds
// atomically or fails; the caller decides what to roll back.
type TransferAgent interface {
	Transfer(from, to credence.Address, amount *big.Int) error
}

// Clock sources the current time. Never caller-suppliable.
type Clock interface {
	Now() uint64
}

// Event is an immutable, ordered notification of a state transition.
// Args are flat key/value pairs.
type Event struct {
	Seq     uint64
	Address credence.Address
	Name    string
	Args    []string
}

// Environment bundles the boundary capabilities with the state container.
// One Environment serves a sequence of calls against the same state.
type Environment struct {
	state     *state.State
	auth      Authorizer
	clock     Clock
	transfers TransferAgent

	events []Event
	seq    uint64
}

// Option configures an Environment.
type Option func(*Environment)

// WithAuthorizer sets the authorization capability.
func WithAuthorizer(a Authorizer) Option {
	return func(e *Environment) { e.auth = a }
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(e *Environment) { e.clock = c }
}

// WithTransferAgent sets the asset-transfer capability.
func WithTransferAgent(t TransferAgent) Option {
	return func(e *Environment) { e.transfers = t }
}

// New create a new environment over the given state.
func New(st *state.State, opts ...Option) *Environment {
	env := &Environment{
		state: st,
		auth:  AllowAll{},
	}
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// State returns the underlying state container.
func (e *Environment) State() *state.State { return e.state }

// Now returns the current timestamp. Zero when no clock is installed.
func (e *Environment) Now() uint64 {
	if e.clock == nil {
		return 0
	}
	return e.clock.Now()
}

// RequireAuth confirms the claimed principal authorized the current call.
func (e *Environment) RequireAuth(principal credence.Address) error {
	if !e.auth.Authorized(principal) {
		return errors.WithMessage(errs.ErrNotAuthorized, principal.String())
	}
	return nil
}

// Transfer invokes the asset-transfer capability.
func (e *Environment) Transfer(from, to credence.Address, amount *big.Int) error {
	if e.transfers == nil {
		return errors.New("no transfer agent installed")
	}
	if err := e.transfers.Transfer(from, to, amount); err != nil {
		return errors.WithMessage(err, "transfer")
	}
	return nil
}

// Emit appends an event to the ordered log. Args are key/value pairs.
func (e *Environment) Emit(addr credence.Address, name string, args ...string) {
	e.events = append(e.events, Event{
		Seq:     e.seq,
		Address: addr,
		Name:    name,
		Args:    args,
	})
	e.seq++
}

// Events returns all emitted events in order.
func (e *Environment) Events() []Event { return e.events }

// DrainEvents returns all emitted events and clears the log, for handing off
// to a sink. Sequence numbers keep increasing across drains.
func (e *Environment) DrainEvents() []Event {
	evs := e.events
	e.events = nil
	return evs
}

// Atomic runs fn as an all-or-nothing call: state and event log are
// checkpointed first and both reverted when fn fails. No partial state is
// ever committed on an error path.
func (e *Environment) Atomic(fn func() error) error {
	cp := e.state.NewCheckpoint()
	evMark := len(e.events)
	seqMark := e.seq
	if err := fn(); err != nil {
		e.state.RevertTo(cp)
		e.events = e.events[:evMark]
		e.seq = seqMark
		return err
	}
	return nil
}

// AllowAll authorizes every principal. Intended for tests and tooling.
type AllowAll struct{}

// Authorized implements Authorizer.
func (AllowAll) Authorized(credence.Address) bool { return true }

// FixedClock is a settable clock for tests and deterministic tooling.
type FixedClock struct {
	Time uint64
}

// Now implements Clock.
func (c *FixedClock) Now() uint64 { return c.Time }

// Forward advances the clock by d.
func (c *FixedClock) Forward(d uint64) { c.Time += d }
