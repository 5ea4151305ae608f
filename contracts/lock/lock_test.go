// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lock_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credence-net/credence/contracts/errs"
	"github.com/credence-net/credence/contracts/lock"
	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/lvldb"
	"github.com/credence-net/credence/state"
	"github.com/credence-net/credence/test/datagen"
)

func newState(t *testing.T) (*state.State, credence.Address) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return state.New(db), datagen.RandAddress()
}

func TestReentrancyDetected(t *testing.T) {
	st, addr := newState(t)
	guard := lock.New(addr, st, "funds")

	err := guard.Do(func() error {
		// a nested entry into the guarded region is blocked
		return guard.Do(func() error {
			t.Fatal("reentrant call ran")
			return nil
		})
	})
	assert.True(t, errors.Is(err, errs.ErrReentrancyDetected))
}

func TestReleaseOnError(t *testing.T) {
	st, addr := newState(t)
	guard := lock.New(addr, st, "funds")

	boom := errors.New("boom")
	err := guard.Do(func() error { return boom })
	assert.Equal(t, boom, err)

	// the guard is free again after a failed call
	err = guard.Do(func() error { return nil })
	assert.NoError(t, err)
}

func TestIndependentLocks(t *testing.T) {
	st, addr := newState(t)
	a := lock.New(addr, st, "a")
	b := lock.New(addr, st, "b")

	err := a.Do(func() error {
		return b.Do(func() error { return nil })
	})
	assert.NoError(t, err)
}
