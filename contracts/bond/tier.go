// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bond

import (
	"math/big"

	"github.com/credence-net/credence/credence"
)

// Tier grades a bond by its bonded amount.
type Tier uint8

const (
	TierBronze Tier = iota
	TierSilver
	TierGold
	TierPlatinum
)

func (t Tier) String() string {
	switch t {
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	case TierPlatinum:
		return "platinum"
	default:
		return "unknown"
	}
}

var (
	tierSilverMin   = big.NewInt(1_000)
	tierGoldMin     = big.NewInt(10_000)
	tierPlatinumMin = big.NewInt(100_000)
)

// TierOf derives the tier from a bonded amount. Pure.
func TierOf(bonded *big.Int) Tier {
	switch {
	case bonded.Cmp(tierPlatinumMin) >= 0:
		return TierPlatinum
	case bonded.Cmp(tierGoldMin) >= 0:
		return TierGold
	case bonded.Cmp(tierSilverMin) >= 0:
		return TierSilver
	default:
		return TierBronze
	}
}

func (b *Bond) emitTierChange(owner credence.Address, before, after Tier) {
	if before == after {
		return
	}
	b.env.Emit(b.addr, "tier_changed",
		"owner", owner.String(),
		"from", before.String(),
		"to", after.String(),
	)
}
