// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package distributors

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/hoard/api/utils"
	"github.com/vechain/hoard/distributor"
	"github.com/vechain/hoard/hoard"
)

type Pool struct {
	ID                 int                   `json:"id"`
	StakingToken       hoard.Address         `json:"stakingToken"`
	AllocWeight        uint64                `json:"allocWeight"`
	AccRewardsPerShare *math.HexOrDecimal256 `json:"accRewardsPerShare"`
	TotalStaked        *math.HexOrDecimal256 `json:"totalStaked"`
	HasHook            bool                  `json:"hasHook"`
}

type Summary struct {
	Address          hoard.Address         `json:"address"`
	RewardToken      hoard.Address         `json:"rewardToken"`
	TotalAllocWeight uint64                `json:"totalAllocWeight"`
	Undistributed    *math.HexOrDecimal256 `json:"undistributed"`
	Pools            []Pool                `json:"pools"`
	Stashes          []hoard.Address       `json:"stashes"`
}

type User struct {
	Amount     *math.HexOrDecimal256 `json:"amount"`
	RewardDebt *math.HexOrDecimal256 `json:"rewardDebt"`
	Pending    *math.HexOrDecimal256 `json:"pending"`
}

type Result struct {
	Amount *math.HexOrDecimal256 `json:"amount"`
}

type AddPoolRequest struct {
	Caller *hoard.Address `json:"caller"`
	Weight uint64         `json:"weight"`
	// Token is the symbol of the staking token.
	Token string `json:"token"`
}

type SetPoolRequest struct {
	Caller *hoard.Address `json:"caller"`
	Weight uint64         `json:"weight"`
}

type StashRequest struct {
	Caller *hoard.Address `json:"caller"`
	Stash  *hoard.Address `json:"stash"`
}

// PoolRequest is the body of the per pool user operations. To defaults to the caller; Amount is
// ignored by harvest and emergency withdraw.
type PoolRequest struct {
	Caller *hoard.Address        `json:"caller"`
	Amount *math.HexOrDecimal256 `json:"amount"`
	To     *hoard.Address        `json:"to"`
}

func convertPool(p distributor.PoolInfo) Pool {
	return Pool{
		ID:                 p.ID,
		StakingToken:       p.StakingToken,
		AllocWeight:        p.AllocWeight,
		AccRewardsPerShare: utils.Hex(p.AccRewardsPerShare),
		TotalStaked:        utils.Hex(p.TotalStaked),
		HasHook:            p.HasHook,
	}
}
