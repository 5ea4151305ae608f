// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package credence

// Constants of the Credence protocol.
const (
	// BpsDenominator is the denominator for all basis-point rates.
	BpsDenominator = 10_000

	// MaxFeeBps caps the bond creation fee rate (100%).
	MaxFeeBps = BpsDenominator

	// MaxPenaltyBps caps the early exit penalty rate (100%).
	MaxPenaltyBps = BpsDenominator

	// MaxQuorumBps caps the governance quorum share (100%).
	MaxQuorumBps = BpsDenominator
)
