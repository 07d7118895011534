// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math/big"

	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/mine"
)

// Config holds the coordinator's tunables. Everything but Lock can be changed later by the owner.
type Config struct {
	Lock           mine.Lock
	FeeBPS         uint64
	IncentiveBPS   uint64
	MinStakingWait uint64
	Windows        []uint8
}

// DefaultConfig has no fee, no incentive and no accrual window.
func DefaultConfig() Config {
	return Config{
		Lock:           mine.LockTwoWeeks,
		MinStakingWait: hoard.DefaultMinStakingWait,
	}
}

// Deposit is one user deposit. Drained deposits are kept so that later reads resolve to zero.
type Deposit struct {
	ID       uint64   `json:"id"`
	Amount   *big.Int `json:"amount"`
	UnlockAt uint64   `json:"unlockAt"`
	Debt     *big.Int `json:"debt"`
}

func (d *Deposit) clone() Deposit {
	return Deposit{
		ID:       d.ID,
		Amount:   new(big.Int).Set(d.Amount),
		UnlockAt: d.UnlockAt,
		Debt:     new(big.Int).Set(d.Debt),
	}
}

type account struct {
	nextID   uint64
	deposits map[uint64]*Deposit
}

// ordered returns deposits in id order.
func (a *account) ordered() []*Deposit {
	out := make([]*Deposit, 0, len(a.deposits))
	for id := range a.nextID {
		if d, ok := a.deposits[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

// AccrueResult breaks down one accrual.
type AccrueResult struct {
	Harvested   *big.Int `json:"harvested"`
	Fee         *big.Int `json:"fee"`
	Incentive   *big.Int `json:"incentive"`
	Distributed *big.Int `json:"distributed"`
	Carried     *big.Int `json:"carried"`
}

// Settings is a snapshot of the owner controlled settings.
type Settings struct {
	Lock           mine.Lock `json:"lock"`
	FeeBPS         uint64    `json:"feeBps"`
	IncentiveBPS   uint64    `json:"incentiveBps"`
	MinStakingWait uint64    `json:"minStakingWait"`
	Windows        []int     `json:"windows"`
	Paused         bool      `json:"paused"`
}

const (
	BoostTreasure = "treasure"
	BoostLegion   = "legion"
)

// Boost is an NFT staked into the mine through the coordinator.
type Boost struct {
	Kind   string        `json:"kind"`
	ID     uint64        `json:"id"`
	Amount uint64        `json:"amount"`
	Hoard  hoard.Address `json:"hoard"`
}
