// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis turns a YAML deployment configuration into initialized
// contract state.
package genesis

import (
	"io"
	"math/big"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/credence-net/credence/contracts"
	"github.com/credence-net/credence/contracts/bond"
	"github.com/credence-net/credence/contracts/dispute"
	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/xenv"
)

// Config is the deployment configuration.
type Config struct {
	Admin string `yaml:"admin"`

	Bond struct {
		FeeBps       uint32   `yaml:"feeBps"`
		PenaltyBps   uint32   `yaml:"penaltyBps"`
		NoticePeriod uint64   `yaml:"noticePeriod"`
		Governors    []string `yaml:"governors"`
		QuorumBps    uint32   `yaml:"quorumBps"`
		MinGovernors uint64   `yaml:"minGovernors"`
	} `yaml:"bond"`

	Treasury struct {
		Signers   []string `yaml:"signers"`
		Threshold uint64   `yaml:"threshold"`
	} `yaml:"treasury"`

	Dispute struct {
		MinStake     string `yaml:"minStake"`
		VotingPeriod uint64 `yaml:"votingPeriod"`
		ExpiryPeriod uint64 `yaml:"expiryPeriod"`
		Arbitrators  []struct {
			Address string `yaml:"address"`
			Weight  string `yaml:"weight"`
		} `yaml:"arbitrators"`
	} `yaml:"dispute"`
}

// Load parses a YAML deployment configuration.
func Load(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse genesis")
	}
	return &cfg, nil
}

// Apply initializes every contract from the configuration. The caller
// commits the state afterwards.
func (c *Config) Apply(env *xenv.Environment) (*contracts.System, error) {
	admin, err := credence.ParseAddress(c.Admin)
	if err != nil {
		return nil, errors.Wrap(err, "admin")
	}
	governors, err := parseAddresses(c.Bond.Governors)
	if err != nil {
		return nil, errors.Wrap(err, "governors")
	}
	signers, err := parseAddresses(c.Treasury.Signers)
	if err != nil {
		return nil, errors.Wrap(err, "signers")
	}
	minStake, ok := new(big.Int).SetString(c.Dispute.MinStake, 10)
	if !ok {
		return nil, errors.Errorf("bad minimum stake %q", c.Dispute.MinStake)
	}
	arbitrators := make([]dispute.Arbitrator, 0, len(c.Dispute.Arbitrators))
	for _, a := range c.Dispute.Arbitrators {
		addr, err := credence.ParseAddress(a.Address)
		if err != nil {
			return nil, errors.Wrap(err, "arbitrator")
		}
		weight, ok := new(big.Int).SetString(a.Weight, 10)
		if !ok {
			return nil, errors.Errorf("bad arbitrator weight %q", a.Weight)
		}
		arbitrators = append(arbitrators, dispute.Arbitrator{Address: *addr, Weight: weight})
	}

	sys := contracts.NewSystem(env)
	if err := sys.Bond.Initialize(bond.InitConfig{
		Admin:        *admin,
		Treasury:     contracts.TreasuryAddress,
		FeeBps:       c.Bond.FeeBps,
		PenaltyBps:   c.Bond.PenaltyBps,
		NoticePeriod: c.Bond.NoticePeriod,
		Governors:    governors,
		QuorumBps:    c.Bond.QuorumBps,
		MinGovernors: c.Bond.MinGovernors,
	}); err != nil {
		return nil, errors.Wrap(err, "init bond")
	}
	if err := sys.Treasury.Initialize(*admin, signers, c.Treasury.Threshold); err != nil {
		return nil, errors.Wrap(err, "init treasury")
	}
	if err := sys.Disputes.Initialize(dispute.Config{
		Admin:        *admin,
		Treasury:     contracts.TreasuryAddress,
		MinStake:     minStake,
		VotingPeriod: c.Dispute.VotingPeriod,
		ExpiryPeriod: c.Dispute.ExpiryPeriod,
	}, arbitrators); err != nil {
		return nil, errors.Wrap(err, "init dispute")
	}
	return sys, nil
}

func parseAddresses(in []string) ([]credence.Address, error) {
	out := make([]credence.Address, 0, len(in))
	for _, s := range in {
		addr, err := credence.ParseAddress(s)
		if err != nil {
			return nil, err
		}
		out = append(out, *addr)
	}
	return out, nil
}
