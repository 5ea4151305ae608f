// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

// StorageEncoder allows a storage value type to customize its raw encoding.
// An empty value should encode to nil, which clears the slot.
type StorageEncoder interface {
	Encode() ([]byte, error)
}

// StorageDecoder allows a storage value type to customize its raw decoding.
// Zero-length data must decode to the empty value.
type StorageDecoder interface {
	Decode([]byte) error
}
