// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math/big"
	"sort"

	"github.com/pkg/errors"

	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/mine"
	"github.com/vechain/hoard/reverts"
	"github.com/vechain/hoard/staker/ledger"
)

//
// Getters - no state change
//

// Pending is the reward a claim on deposit id would pay now.
func (s *Staker) Pending(user hoard.Address, id uint64) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.deposit(user, id)
	if err != nil {
		return nil, err
	}
	return s.entitlement(d), nil
}

// PendingAll sums Pending over every deposit of user.
func (s *Staker) PendingAll(user hoard.Address) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := new(big.Int)
	if a, ok := s.accounts[user]; ok {
		for _, d := range a.deposits {
			total.Add(total, s.entitlement(d))
		}
	}
	return total
}

func (s *Staker) DepositInfo(user hoard.Address, id uint64) (Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.deposit(user, id)
	if err != nil {
		return Deposit{}, err
	}
	return d.clone(), nil
}

// Deposits returns every deposit of user in id order, drained ones included.
func (s *Staker) Deposits(user hoard.Address) []Deposit {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[user]
	if !ok {
		return nil
	}
	out := make([]Deposit, 0, len(a.deposits))
	for _, d := range a.ordered() {
		out = append(out, d.clone())
	}
	return out
}

func (s *Staker) DepositIDs(user hoard.Address) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[user]
	if !ok {
		return nil
	}
	ids := make([]uint64, 0, len(a.deposits))
	for _, d := range a.ordered() {
		ids = append(ids, d.ID)
	}
	return ids
}

func (s *Staker) TotalStaked() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return new(big.Int).Set(s.totalStaked)
}

// UnstakedPending is the deposited amount not yet committed to the mine.
func (s *Staker) UnstakedPending() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return new(big.Int).Set(s.unstakedPending)
}

func (s *Staker) FeeReserve() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return new(big.Int).Set(s.feeReserve)
}

// PendingDistribution is the net reward waiting for someone to stake.
func (s *Staker) PendingDistribution() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return new(big.Int).Set(s.pendingDistribution)
}

// HarvestCarry is the gross reward received outside accruals, to be split by the next one.
func (s *Staker) HarvestCarry() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return new(big.Int).Set(s.harvestCarry)
}

func (s *Staker) AccRewardsPerShare() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.acc.Value()
}

// Liquidity is the balance free to pay out without unwinding.
func (s *Staker) Liquidity() (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.liquidity(s.unstakedPending)
}

func (s *Staker) Positions() []ledger.Position {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger.Positions()
}

func (s *Staker) ActivePositionIDs() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger.ActivePositionIDs()
}

func (s *Staker) TotalCommitted() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger.TotalCommitted()
}

// MinePendingRewards is what harvesting every position would pay now. A holder without positions
// has nothing pending.
func (s *Staker) MinePendingRewards() (*big.Int, error) {
	pending, err := s.mine.PendingRewardsAll(s.addr)
	if errors.Is(err, mine.ErrNoPositions) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, reverts.WrapExternal(err, "mine pending rewards")
	}
	return pending, nil
}

func (s *Staker) IsAccrualTime() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.window.AcceptsAccrual(s.clock.Now())
}

func (s *Staker) IsUserActionTime() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.window.AcceptsUserActions(s.clock.Now())
}

// NextStakeAt is the earliest time StakeScheduled may run.
func (s *Staker) NextStakeAt() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.nextStakeAt()
}

func (s *Staker) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	bounds := s.window.Bounds()
	windows := make([]int, len(bounds))
	for i, b := range bounds {
		windows[i] = int(b)
	}
	return Settings{
		Lock:           s.lock,
		FeeBPS:         s.feeBPS,
		IncentiveBPS:   s.incentiveBPS,
		MinStakingWait: s.minStakingWait,
		Windows:        windows,
		Paused:         s.paused,
	}
}

// Boosts lists staked NFTs with the hoard each is returned to.
func (s *Staker) Boosts() []Boost {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Boost
	for id, owners := range s.treasureOwners {
		for h, amount := range owners {
			out = append(out, Boost{Kind: BoostTreasure, ID: id, Amount: amount, Hoard: h})
		}
	}
	for id, h := range s.legionOwners {
		out = append(out, Boost{Kind: BoostLegion, ID: id, Amount: 1, Hoard: h})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Hoard.String() < out[j].Hoard.String()
	})
	return out
}
