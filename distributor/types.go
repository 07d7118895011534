// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package distributor

import (
	"math/big"

	"github.com/vechain/hoard/accumulator"
	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/token"
)

// Stash is a reward source. RequestPayout sends whatever is due to the distributor and reports
// how much was sent.
type Stash interface {
	Address() hoard.Address
	RequestPayout() (*big.Int, error)
	PendingPayout() (*big.Int, error)
}

// RewardHook is notified after every balance change in a pool. Notifications are best effort:
// errors and panics are logged and never fail the triggering operation.
type RewardHook interface {
	OnBalanceChange(pid int, user, recipient hoard.Address, rewardPaid, newBalance *big.Int) error
}

// PoolInfo is a snapshot of a pool.
type PoolInfo struct {
	ID                 int           `json:"id"`
	StakingToken       hoard.Address `json:"stakingToken"`
	AllocWeight        uint64        `json:"allocWeight"`
	AccRewardsPerShare *big.Int      `json:"accRewardsPerShare"`
	TotalStaked        *big.Int      `json:"totalStaked"`
	HasHook            bool          `json:"hasHook"`
}

// UserInfo is a snapshot of a user's position in a pool.
type UserInfo struct {
	Amount     *big.Int `json:"amount"`
	RewardDebt *big.Int `json:"rewardDebt"`
}

type user struct {
	amount *big.Int
	debt   *big.Int
}

type pool struct {
	token  token.Token
	weight uint64
	acc    *accumulator.Accumulator
	total  *big.Int
	hook   RewardHook
	users  map[hoard.Address]*user
}

// enroll returns addr's record, creating it. Only deposits enroll.
func (p *pool) enroll(addr hoard.Address) *user {
	u, ok := p.users[addr]
	if !ok {
		u = &user{amount: new(big.Int), debt: new(big.Int)}
		p.users[addr] = u
	}
	return u
}

// lookup returns addr's record without registering it. An unknown address gets a detached empty
// record, so writes to it are dropped.
func (p *pool) lookup(addr hoard.Address) *user {
	if u, ok := p.users[addr]; ok {
		return u
	}
	return &user{amount: new(big.Int), debt: new(big.Int)}
}

func (p *pool) info(id int) PoolInfo {
	return PoolInfo{
		ID:                 id,
		StakingToken:       p.token.Address(),
		AllocWeight:        p.weight,
		AccRewardsPerShare: p.acc.Value(),
		TotalStaked:        new(big.Int).Set(p.total),
		HasHook:            p.hook != nil,
	}
}
