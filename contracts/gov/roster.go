// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package gov

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/credence-net/credence/contracts/errs"
	"github.com/credence-net/credence/contracts/sslot"
	"github.com/credence-net/credence/credence"
)

// Roster is a stored set of weighted members. It implements Electorate and
// backs the membership of every voting contract: signers and governors carry
// weight one, arbitrators carry their assigned weight.
type Roster struct {
	count   *sslot.Scalar[uint64]
	index   *sslot.Mapping[uint64, credence.Address]
	pos     *sslot.Mapping[credence.Address, uint64] // slot index + 1, 0 means absent
	weights *sslot.Mapping[credence.Address, *big.Int]
	total   *sslot.Scalar[*big.Int]
}

// NewRoster creates the roster stored under the named field.
func NewRoster(ctx *sslot.Context, name string) *Roster {
	return &Roster{
		count:   sslot.NewScalar[uint64](ctx, name+".count"),
		index:   sslot.NewMapping[uint64, credence.Address](ctx, name+".index"),
		pos:     sslot.NewMapping[credence.Address, uint64](ctx, name+".pos"),
		weights: sslot.NewMapping[credence.Address, *big.Int](ctx, name+".weight"),
		total:   sslot.NewScalar[*big.Int](ctx, name+".total"),
	}
}

// Add inserts a member with the given positive weight.
func (r *Roster) Add(member credence.Address, weight *big.Int) error {
	if weight == nil || weight.Sign() <= 0 {
		return errors.WithMessage(errs.ErrInvalidConfiguration, "member weight must be positive")
	}
	if p, err := r.pos.Get(member); err != nil {
		return err
	} else if p != 0 {
		return errors.WithMessage(errs.ErrAlreadyExists, member.String())
	}
	n, err := r.count.Get()
	if err != nil {
		return err
	}
	total, err := r.Total()
	if err != nil {
		return err
	}
	newTotal, err := credence.SafeAdd(total, weight)
	if err != nil {
		return errors.WithMessage(errs.ErrArithmeticOverflow, "roster total weight")
	}
	if err := r.index.Put(n, member); err != nil {
		return err
	}
	if err := r.pos.Put(member, n+1); err != nil {
		return err
	}
	if err := r.weights.Put(member, weight); err != nil {
		return err
	}
	if err := r.count.Put(n + 1); err != nil {
		return err
	}
	return r.total.Put(newTotal)
}

// Remove deletes a member, compacting the index by moving the last member
// into the freed slot.
func (r *Roster) Remove(member credence.Address) error {
	p, err := r.pos.Get(member)
	if err != nil {
		return err
	}
	if p == 0 {
		return errors.WithMessage(errs.ErrNotFound, member.String())
	}
	n, err := r.count.Get()
	if err != nil {
		return err
	}
	weight, err := r.Weight(member)
	if err != nil {
		return err
	}
	total, err := r.Total()
	if err != nil {
		return err
	}
	if last := n - 1; p-1 != last {
		moved, err := r.index.Get(last)
		if err != nil {
			return err
		}
		if err := r.index.Put(p-1, moved); err != nil {
			return err
		}
		if err := r.pos.Put(moved, p); err != nil {
			return err
		}
	}
	if err := r.index.Delete(n - 1); err != nil {
		return err
	}
	if err := r.pos.Delete(member); err != nil {
		return err
	}
	if err := r.weights.Delete(member); err != nil {
		return err
	}
	if err := r.count.Put(n - 1); err != nil {
		return err
	}
	return r.total.Put(new(big.Int).Sub(total, weight))
}

// Contains reports membership.
func (r *Roster) Contains(member credence.Address) (bool, error) {
	p, err := r.pos.Get(member)
	return p != 0, err
}

// Weight implements Electorate. Non-members weigh zero.
func (r *Roster) Weight(member credence.Address) (*big.Int, error) {
	w, err := r.weights.Get(member)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return new(big.Int), nil
	}
	return w, nil
}

// Total returns the summed weight of all members.
func (r *Roster) Total() (*big.Int, error) {
	t, err := r.total.Get()
	if err != nil {
		return nil, err
	}
	if t == nil {
		return new(big.Int), nil
	}
	return t, nil
}

// Count returns the number of members.
func (r *Roster) Count() (uint64, error) {
	return r.count.Get()
}

// Snapshot implements Electorate.
func (r *Roster) Snapshot() (Snapshot, error) {
	total, err := r.Total()
	if err != nil {
		return Snapshot{}, err
	}
	n, err := r.count.Get()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{TotalWeight: total, MemberCount: n}, nil
}

// Members returns all members in index order.
func (r *Roster) Members() ([]credence.Address, error) {
	n, err := r.count.Get()
	if err != nil {
		return nil, err
	}
	members := make([]credence.Address, 0, n)
	for i := uint64(0); i < n; i++ {
		m, err := r.index.Get(i)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}
