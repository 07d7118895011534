// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/hoard/authority"
	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/reverts"
	"github.com/vechain/hoard/window"
)

// Every operation in this file requires authority.Owner.

func (s *Staker) SetFee(caller hoard.Address, feeBPS uint64) error {
	if err := s.auth.Require(caller, authority.Owner); err != nil {
		return err
	}
	if feeBPS > hoard.MaxFeeBPS {
		return reverts.InvalidInput("fee %d bps above cap %d", feeBPS, hoard.MaxFeeBPS)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.feeBPS = feeBPS
	logger.Info("fee set", "bps", feeBPS)
	return nil
}

func (s *Staker) SetAccrueIncentive(caller hoard.Address, incentiveBPS uint64) error {
	if err := s.auth.Require(caller, authority.Owner); err != nil {
		return err
	}
	if incentiveBPS > hoard.MaxIncentiveBPS {
		return reverts.InvalidInput("incentive %d bps above cap %d", incentiveBPS, hoard.MaxIncentiveBPS)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.incentiveBPS = incentiveBPS
	logger.Info("accrue incentive set", "bps", incentiveBPS)
	return nil
}

// SetPaused stops new deposits and scheduled staking. Withdrawals, claims and the emergency
// paths keep working.
func (s *Staker) SetPaused(caller hoard.Address, paused bool) error {
	if err := s.auth.Require(caller, authority.Owner); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.paused = paused
	logger.Info("staking paused", "paused", paused)
	return nil
}

func (s *Staker) SetMinStakingWait(caller hoard.Address, wait uint64) error {
	if err := s.auth.Require(caller, authority.Owner); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.minStakingWait = wait
	logger.Info("min staking wait set", "seconds", wait)
	return nil
}

// SetAccrualWindows replaces the accrual windows. An empty list or [0, 24] turns gating off.
func (s *Staker) SetAccrualWindows(caller hoard.Address, bounds []uint8) error {
	if err := s.auth.Require(caller, authority.Owner); err != nil {
		return err
	}
	w, err := window.New(bounds)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.window = w
	logger.Info("accrual windows set", "windows", w)
	return nil
}

// UnstakeAllFromMine harvests every active position, then withdraws every unlocked one in full.
// Locked positions are left alone. It returns the principal freed.
func (s *Staker) UnstakeAllFromMine(caller hoard.Address) (*big.Int, error) {
	if err := s.auth.Require(caller, authority.Owner); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before, err := s.base.BalanceOf(s.addr)
	if err != nil {
		return nil, err
	}
	harvestErr := s.harvest(s.ledger.ActivePositionIDs())
	after, err := s.base.BalanceOf(s.addr)
	if err != nil {
		return nil, err
	}
	s.harvestCarry.Add(s.harvestCarry, after.Sub(after, before))
	if harvestErr != nil {
		return nil, harvestErr
	}

	return s.unwindAll(false)
}

// EmergencyUnstakeAllFromMine withdraws every position without harvesting first. Staking must be
// paused, and it fails without effect if any position is still locked.
func (s *Staker) EmergencyUnstakeAllFromMine(caller hoard.Address) (*big.Int, error) {
	if err := s.auth.Require(caller, authority.Owner); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.paused {
		return nil, reverts.Precondition("pause staking before an emergency unstake")
	}
	return s.unwindAll(true)
}

func (s *Staker) unwindAll(requireAll bool) (*big.Int, error) {
	committed := s.ledger.TotalCommitted()
	freed, err := s.ledger.UnwindAll(requireAll)
	if freed != nil {
		s.carrySideHarvest(committed, freed)
	}
	if err != nil {
		return nil, errors.WithMessage(err, "unstake all")
	}
	principal := committed.Sub(committed, s.ledger.TotalCommitted())

	logger.Warn("unstaked all from mine", "principal", principal, "freed", freed, "remaining", s.ledger.TotalCommitted())
	return principal, nil
}

// WithdrawFees sends the whole fee reserve to to.
func (s *Staker) WithdrawFees(caller hoard.Address, to hoard.Address) (*big.Int, error) {
	if err := s.auth.Require(caller, authority.Owner); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	amount := new(big.Int).Set(s.feeReserve)
	if amount.Sign() == 0 {
		return amount, nil
	}
	if err := s.base.Transfer(s.addr, to, amount); err != nil {
		return nil, errors.WithMessage(err, "withdraw fees")
	}
	s.feeReserve = new(big.Int)

	logger.Info("fees withdrawn", "to", to, "amount", amount)
	return amount, nil
}
