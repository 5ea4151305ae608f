// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package errs defines the sentinel errors contracts fail with. Callers
// classify failures with errors.Is; extra context is layered on with
// errors.WithMessage so the sentinel stays matchable.
package errs

import "github.com/pkg/errors"

var (
	// Arithmetic and balance errors.
	ErrArithmeticOverflow           = errors.New("arithmetic overflow")
	ErrArithmeticUnderflow          = errors.New("arithmetic underflow")
	ErrInsufficientAvailableBalance = errors.New("insufficient available balance")

	// Guard errors.
	ErrInvalidNonce       = errors.New("invalid nonce")
	ErrReentrancyDetected = errors.New("reentrancy detected")

	// Authorization and eligibility errors.
	ErrNotAuthorized = errors.New("not authorized")
	ErrNotEligible   = errors.New("not eligible")
	ErrAlreadyVoted  = errors.New("already voted")

	// Proposal lifecycle errors.
	ErrProposalNotFound   = errors.New("proposal not found")
	ErrProposalNotOpen    = errors.New("proposal not open")
	ErrQuorumNotMet       = errors.New("quorum not met")
	ErrDeadlineNotReached = errors.New("deadline not reached")
	ErrDeadlineExpired    = errors.New("deadline expired")
	ErrAlreadyExecuted    = errors.New("already executed")

	// Configuration errors.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// Entity errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)
