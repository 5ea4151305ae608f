// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/lvldb"
	"github.com/credence-net/credence/state"
	"github.com/credence-net/credence/test/datagen"
)

func TestRawStorage(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	st := state.New(db)

	addr := datagen.RandAddress()
	key := datagen.RandBytes32()

	raw, err := st.GetRawStorage(addr, key)
	assert.NoError(t, err)
	assert.Empty(t, raw)

	value := rlp.RawValue{0x83, 'f', 'o', 'o'}
	st.SetRawStorage(addr, key, value)
	raw, err = st.GetRawStorage(addr, key)
	assert.NoError(t, err)
	assert.Equal(t, value, raw)
}

func TestStorage(t *testing.T) {
	db, _ := lvldb.NewMem()
	defer db.Close()
	st := state.New(db)

	addr := datagen.RandAddress()
	key := datagen.RandBytes32()
	value := datagen.RandBytes32()

	st.SetStorage(addr, key, value)
	got, err := st.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.Equal(t, value, got)

	st.SetStorage(addr, key, credence.Bytes32{})
	got, err = st.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.Equal(t, credence.Bytes32{}, got)
}

func TestEncodeDecodeStorage(t *testing.T) {
	db, _ := lvldb.NewMem()
	defer db.Close()
	st := state.New(db)

	addr := datagen.RandAddress()
	key := datagen.RandBytes32()

	type record struct {
		A uint64
		B []byte
	}
	in := record{42, []byte("hello")}

	err := st.EncodeStorage(addr, key, func() ([]byte, error) {
		return rlp.EncodeToBytes(&in)
	})
	require.NoError(t, err)

	var out record
	err = st.DecodeStorage(addr, key, func(raw []byte) error {
		return rlp.DecodeBytes(raw, &out)
	})
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCheckpointRevert(t *testing.T) {
	db, _ := lvldb.NewMem()
	defer db.Close()
	st := state.New(db)

	addr := datagen.RandAddress()
	key := datagen.RandBytes32()
	v1 := datagen.RandBytes32()
	v2 := datagen.RandBytes32()

	st.SetStorage(addr, key, v1)
	cp := st.NewCheckpoint()
	st.SetStorage(addr, key, v2)

	got, _ := st.GetStorage(addr, key)
	assert.Equal(t, v2, got)

	st.RevertTo(cp)
	got, _ = st.GetStorage(addr, key)
	assert.Equal(t, v1, got)
}

func TestCommit(t *testing.T) {
	db, _ := lvldb.NewMem()
	defer db.Close()

	addr := datagen.RandAddress()
	key := datagen.RandBytes32()
	value := datagen.RandBytes32()

	st := state.New(db)
	st.SetStorage(addr, key, value)
	require.NoError(t, st.Commit())

	// a fresh state over the same store sees the committed value
	st2 := state.New(db)
	got, err := st2.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.Equal(t, value, got)

	// deleting commits through as well
	st2.SetStorage(addr, key, credence.Bytes32{})
	require.NoError(t, st2.Commit())
	got, err = state.New(db).GetStorage(addr, key)
	assert.NoError(t, err)
	assert.Equal(t, credence.Bytes32{}, got)
}
