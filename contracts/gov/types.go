// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package gov implements the shared proposal machinery: the proposal store,
// the voting engine with pluggable weighting, and the exactly-once execution
// gate. Domain contracts bind an Engine to their own electorate and decide
// what an approved proposal does.
package gov

import (
	"math/big"

	"github.com/credence-net/credence/credence"
)

// Status is the lifecycle state of a proposal.
type Status uint8

const (
	// StatusOpen accepts votes.
	StatusOpen Status = iota
	// StatusApproved is decided and executable.
	StatusApproved
	// StatusRejected is decided and dead.
	StatusRejected
	// StatusExecuted has had its effect applied.
	StatusExecuted
	// StatusExpired passed its deadline without resolving.
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	case StatusExecuted:
		return "executed"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Rule selects how a proposal's tally turns into a decision.
type Rule uint8

const (
	// RuleMajority approves when the cast weight meets quorum and the
	// approve weight is a strict majority of it.
	RuleMajority Rule = iota
	// RuleThreshold approves as soon as the approve weight reaches a
	// fixed threshold, regardless of turnout.
	RuleThreshold
	// RulePlurality picks the choice with the most weight once the
	// deadline has passed. Ties fall back to choice 0.
	RulePlurality
)

// Vote choices for approve/reject rules. Plurality proposals use
// domain-defined choices.
const (
	ChoiceReject  uint32 = 0
	ChoiceApprove uint32 = 1
)

// Proposal kinds shared across the contracts.
const (
	KindWithdrawal uint8 = iota + 1
	KindSlash
	KindDisputeOutcome
)

// Snapshot freezes the electorate's shape and the quorum requirement at
// proposal creation. Resolution is always judged against these figures, so
// later membership or configuration changes cannot retroactively alter an
// open proposal's requirements.
type Snapshot struct {
	TotalWeight *big.Int
	MemberCount uint64
	QuorumBps   uint32
	MinVoters   uint64
	Threshold   *big.Int
}

// ChoiceTally accumulates the weight and voter count behind one choice.
type ChoiceTally struct {
	Choice uint32
	Weight *big.Int
	Count  uint64
}

// Tally is the running vote count of a proposal, updated on every cast.
type Tally struct {
	VotedCount uint64
	CastWeight *big.Int
	Choices    []ChoiceTally
}

func (t *Tally) choiceWeight(choice uint32) *big.Int {
	for _, c := range t.Choices {
		if c.Choice == choice {
			return c.Weight
		}
	}
	return new(big.Int)
}

func (t *Tally) add(choice uint32, weight *big.Int) {
	t.VotedCount++
	t.CastWeight = new(big.Int).Add(t.CastWeight, weight)
	for i := range t.Choices {
		if t.Choices[i].Choice == choice {
			t.Choices[i].Weight = new(big.Int).Add(t.Choices[i].Weight, weight)
			t.Choices[i].Count++
			return
		}
	}
	t.Choices = append(t.Choices, ChoiceTally{
		Choice: choice,
		Weight: new(big.Int).Set(weight),
		Count:  1,
	})
}

// Proposal is a pending or decided action subject to a vote.
type Proposal struct {
	ID        uint64
	Kind      uint8
	Proposer  credence.Address
	Target    credence.Address
	Amount    *big.Int
	Data      []byte
	CreatedAt uint64
	Deadline  uint64 // 0 means none
	Status    Status
	Outcome   uint32 // winning choice, set on resolution
	Snapshot  Snapshot
	Tally     Tally
}

// Vote records one cast ballot. Caster differs from the voter when the
// ballot was cast through a delegation.
type Vote struct {
	Choice uint32
	Weight *big.Int
	Caster credence.Address
	CastAt uint64
}
