// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credence-net/credence/contracts"
	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/genesis"
	"github.com/credence-net/credence/lvldb"
	"github.com/credence-net/credence/state"
	"github.com/credence-net/credence/xenv"
)

const sampleConfig = `
admin: "0x25df024637d4e56c1ae9563987bf3e92c9f534c0"
bond:
  feeBps: 100
  penaltyBps: 1000
  noticePeriod: 86400
  governors:
    - "0x0000000000000000000000000000000000000001"
    - "0x0000000000000000000000000000000000000002"
    - "0x0000000000000000000000000000000000000003"
  quorumBps: 5000
  minGovernors: 2
treasury:
  signers:
    - "0x0000000000000000000000000000000000000011"
    - "0x0000000000000000000000000000000000000012"
    - "0x0000000000000000000000000000000000000013"
  threshold: 2
dispute:
  minStake: "100"
  votingPeriod: 3600
  expiryPeriod: 7200
  arbitrators:
    - address: "0x0000000000000000000000000000000000000021"
      weight: "3"
    - address: "0x0000000000000000000000000000000000000022"
      weight: "1"
`

func TestLoad(t *testing.T) {
	cfg, err := genesis.Load(strings.NewReader(sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, uint32(100), cfg.Bond.FeeBps)
	assert.Len(t, cfg.Bond.Governors, 3)
	assert.Equal(t, uint64(2), cfg.Treasury.Threshold)
	assert.Equal(t, "100", cfg.Dispute.MinStake)
	assert.Len(t, cfg.Dispute.Arbitrators, 2)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := genesis.Load(strings.NewReader("admin: \"0x25df024637d4e56c1ae9563987bf3e92c9f534c0\"\nbogus: 1\n"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	cfg, err := genesis.Load(strings.NewReader(sampleConfig))
	require.NoError(t, err)

	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	env := xenv.New(state.New(db),
		xenv.WithClock(&xenv.FixedClock{Time: 1}),
		xenv.WithTransferAgent(xenv.NewMemLedger()),
	)

	sys, err := cfg.Apply(env)
	require.NoError(t, err)

	governor := credence.MustParseAddress("0x0000000000000000000000000000000000000001")
	n, err := sys.Bond.Nonce(governor)
	require.NoError(t, err)
	assert.Zero(t, n)

	th, err := sys.Treasury.Threshold()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), th)
	ok, err := sys.Treasury.IsSigner(credence.MustParseAddress("0x0000000000000000000000000000000000000012"))
	require.NoError(t, err)
	assert.True(t, ok)

	// applying twice hits the initialize-once guards
	_, err = cfg.Apply(env)
	assert.Error(t, err)
}

func TestApplyBadAddress(t *testing.T) {
	cfg, err := genesis.Load(strings.NewReader(sampleConfig))
	require.NoError(t, err)
	cfg.Admin = "not-an-address"

	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	env := xenv.New(state.New(db), xenv.WithTransferAgent(xenv.NewMemLedger()))

	_, err = cfg.Apply(env)
	assert.Error(t, err)
}

func TestApplyBadMinStake(t *testing.T) {
	cfg, err := genesis.Load(strings.NewReader(sampleConfig))
	require.NoError(t, err)
	cfg.Dispute.MinStake = "1.5"

	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	env := xenv.New(state.New(db), xenv.WithTransferAgent(xenv.NewMemLedger()))

	_, err = cfg.Apply(env)
	assert.Error(t, err)
}

func TestSystemWiring(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	env := xenv.New(state.New(db), xenv.WithTransferAgent(xenv.NewMemLedger()))

	sys := contracts.NewSystem(env)
	assert.NotNil(t, sys.Bond)
	assert.NotNil(t, sys.Treasury)
	assert.NotNil(t, sys.Disputes)
	assert.NotNil(t, sys.Delegation)

	// no bond exists for the identity, so resolution fails
	identity := credence.MustParseAddress("0x0000000000000000000000000000000000000031")
	_, err = sys.ResolveBondContract(identity)
	assert.Error(t, err)
}
