// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakers

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/staker"
	"github.com/vechain/hoard/staker/ledger"
)

type Summary struct {
	Address             hoard.Address         `json:"address"`
	Settings            staker.Settings       `json:"settings"`
	TotalStaked         *math.HexOrDecimal256 `json:"totalStaked"`
	UnstakedPending     *math.HexOrDecimal256 `json:"unstakedPending"`
	TotalCommitted      *math.HexOrDecimal256 `json:"totalCommitted"`
	FeeReserve          *math.HexOrDecimal256 `json:"feeReserve"`
	PendingDistribution *math.HexOrDecimal256 `json:"pendingDistribution"`
	HarvestCarry        *math.HexOrDecimal256 `json:"harvestCarry"`
	AccRewardsPerShare  *math.HexOrDecimal256 `json:"accRewardsPerShare"`
	MinePendingRewards  *math.HexOrDecimal256 `json:"minePendingRewards"`
	IsAccrualTime       bool                  `json:"isAccrualTime"`
	NextStakeAt         uint64                `json:"nextStakeAt"`
}

type Position struct {
	ID       uint64                `json:"id"`
	Amount   *math.HexOrDecimal256 `json:"amount"`
	UnlockAt uint64                `json:"unlockAt"`
	Active   bool                  `json:"active"`
}

type Deposit struct {
	ID       uint64                `json:"id"`
	Amount   *math.HexOrDecimal256 `json:"amount"`
	UnlockAt uint64                `json:"unlockAt"`
	Pending  *math.HexOrDecimal256 `json:"pending"`
}

type Account struct {
	Deposits     []Deposit             `json:"deposits"`
	PendingTotal *math.HexOrDecimal256 `json:"pendingTotal"`
}

type Accrued struct {
	Harvested   *math.HexOrDecimal256 `json:"harvested"`
	Fee         *math.HexOrDecimal256 `json:"fee"`
	Incentive   *math.HexOrDecimal256 `json:"incentive"`
	Distributed *math.HexOrDecimal256 `json:"distributed"`
	Carried     *math.HexOrDecimal256 `json:"carried"`
}

type Staked struct {
	PositionID uint64                `json:"positionId"`
	Amount     *math.HexOrDecimal256 `json:"amount"`
}

type Paid struct {
	DepositID *uint64               `json:"depositId,omitempty"`
	Amount    *math.HexOrDecimal256 `json:"amount"`
}

type DepositRequest struct {
	Caller *hoard.Address        `json:"caller"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

type WithdrawRequest struct {
	Caller *hoard.Address        `json:"caller"`
	ID     uint64                `json:"id"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

type ClaimRequest struct {
	Caller *hoard.Address `json:"caller"`
	ID     uint64         `json:"id"`
}

// CallerRequest is the body of operations that take no argument besides the caller.
type CallerRequest struct {
	Caller *hoard.Address `json:"caller"`
}

type AccrueRequest struct {
	Caller *hoard.Address `json:"caller"`
	// Positions defaults to every active position.
	Positions []uint64 `json:"positions"`
}

type BoostRequest struct {
	Caller *hoard.Address `json:"caller"`
	ID     uint64         `json:"id"`
	Amount uint64         `json:"amount"`
}

type SettingRequest struct {
	Caller  *hoard.Address `json:"caller"`
	Value   *uint64        `json:"value,omitempty"`
	Paused  *bool          `json:"paused,omitempty"`
	Windows []int          `json:"windows,omitempty"`
}

type WithdrawFeesRequest struct {
	Caller *hoard.Address `json:"caller"`
	To     *hoard.Address `json:"to"`
}

func convertPositions(positions []ledger.Position, active []uint64) []Position {
	isActive := make(map[uint64]bool, len(active))
	for _, id := range active {
		isActive[id] = true
	}
	out := make([]Position, 0, len(positions))
	for _, p := range positions {
		out = append(out, Position{
			ID:       p.ID,
			Amount:   (*math.HexOrDecimal256)(p.Amount),
			UnlockAt: p.UnlockAt,
			Active:   isActive[p.ID],
		})
	}
	return out
}

func convertAccrued(res *staker.AccrueResult) *Accrued {
	return &Accrued{
		Harvested:   (*math.HexOrDecimal256)(res.Harvested),
		Fee:         (*math.HexOrDecimal256)(res.Fee),
		Incentive:   (*math.HexOrDecimal256)(res.Incentive),
		Distributed: (*math.HexOrDecimal256)(res.Distributed),
		Carried:     (*math.HexOrDecimal256)(res.Carried),
	}
}
