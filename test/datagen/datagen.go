// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package datagen provides random test data.
package datagen

import (
	"math/big"
	"math/rand"

	"github.com/credence-net/credence/credence"
)

// RandAddress returns a random address.
func RandAddress() (addr credence.Address) {
	for i := range addr {
		addr[i] = byte(rand.Intn(256))
	}
	return
}

// RandBytes32 returns random 32 bytes.
func RandBytes32() (b credence.Bytes32) {
	for i := range b {
		b[i] = byte(rand.Intn(256))
	}
	return
}

// RandAmount returns a random positive amount below 1e9.
func RandAmount() *big.Int {
	return big.NewInt(rand.Int63n(1_000_000_000) + 1)
}

// RandUint64 returns a random uint64.
func RandUint64() uint64 {
	return rand.Uint64()
}
