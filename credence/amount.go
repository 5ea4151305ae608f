// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package credence

import (
	"math"
	"math/big"

	"github.com/pkg/errors"
)

// Amounts are signed 128-bit magnitudes carried as big.Int. big.Int itself
// never wraps, so the bounds are enforced explicitly after every operation.
var (
	// MaxAmount is the largest representable amount (2^127 - 1).
	MaxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	// MinAmount is the smallest representable amount (-2^127).
	MinAmount = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))

	errAmountOverflow  = errors.New("amount overflow")
	errAmountUnderflow = errors.New("amount underflow")
)

// InAmountRange reports whether v fits the signed 128-bit magnitude.
func InAmountRange(v *big.Int) bool {
	return v.Cmp(MinAmount) >= 0 && v.Cmp(MaxAmount) <= 0
}

// SafeAdd returns a + b, failing if the result leaves the amount range.
func SafeAdd(a, b *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(a, b)
	if sum.Cmp(MaxAmount) > 0 {
		return nil, errAmountOverflow
	}
	if sum.Cmp(MinAmount) < 0 {
		return nil, errAmountUnderflow
	}
	return sum, nil
}

// SafeSub returns a - b, failing if the result leaves the amount range.
func SafeSub(a, b *big.Int) (*big.Int, error) {
	diff := new(big.Int).Sub(a, b)
	if diff.Cmp(MaxAmount) > 0 {
		return nil, errAmountOverflow
	}
	if diff.Cmp(MinAmount) < 0 {
		return nil, errAmountUnderflow
	}
	return diff, nil
}

// SafeAddUint64 returns a + b, failing on uint64 wrap. Used for timestamp
// and counter arithmetic which must fail closed rather than wrap.
func SafeAddUint64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, errAmountOverflow
	}
	return a + b, nil
}
