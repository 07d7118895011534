// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package mine defines the yield-bearing custodian the staking coordinator commits funds to, and an
// in-process simulation of it.
package mine

import (
	"fmt"
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/hoard/hoard"
)

var (
	// ErrNoPositions is returned by PendingRewardsAll when the holder has nothing staked.
	ErrNoPositions = errors.New("mine: holder has no positions")
	// ErrStalePosition is returned when harvesting a position that has been fully withdrawn.
	ErrStalePosition = errors.New("mine: stale position")
)

// Lock is a lock mode chosen at deposit time.
type Lock uint8

const (
	LockTwoWeeks Lock = iota
	LockOneMonth
	LockThreeMonths
	LockSixMonths
	LockTwelveMonths
)

var lockInfo = [...]struct {
	name     string
	duration uint64
	boostBPS uint64
}{
	LockTwoWeeks:     {"two-weeks", 14 * hoard.Day, 1_000},
	LockOneMonth:     {"one-month", 30 * hoard.Day, 2_500},
	LockThreeMonths:  {"three-months", 90 * hoard.Day, 8_000},
	LockSixMonths:    {"six-months", 180 * hoard.Day, 18_000},
	LockTwelveMonths: {"twelve-months", 365 * hoard.Day, 40_000},
}

func (l Lock) Valid() bool {
	return int(l) < len(lockInfo)
}

// Duration is how long a position stays locked, in seconds.
func (l Lock) Duration() uint64 {
	if !l.Valid() {
		return 0
	}
	return lockInfo[l].duration
}

// BoostBPS is the extra reward weight a lock mode earns, in basis points.
func (l Lock) BoostBPS() uint64 {
	if !l.Valid() {
		return 0
	}
	return lockInfo[l].boostBPS
}

func (l Lock) String() string {
	if !l.Valid() {
		return fmt.Sprintf("lock(%d)", uint8(l))
	}
	return lockInfo[l].name
}

// ParseLock accepts the names printed by Lock.String.
func ParseLock(s string) (Lock, error) {
	for i, info := range lockInfo {
		if info.name == s {
			return Lock(i), nil
		}
	}
	return 0, errors.Errorf("unknown lock mode %q", s)
}

func (l Lock) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Lock) UnmarshalText(text []byte) error {
	v, err := ParseLock(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Mine is the custodian. Deposits pull base tokens from the holder; withdrawals return them and
// pay out accrued rewards as a side effect.
type Mine interface {
	Address() hoard.Address

	Deposit(holder hoard.Address, amount *big.Int, lock Lock) (uint64, error)
	Withdraw(holder hoard.Address, id uint64, amount *big.Int) error
	Harvest(holder hoard.Address, id uint64) error
	PositionAmount(holder hoard.Address, id uint64) (*big.Int, error)
	// UnlockAll reports whether the custodian has lifted every lock.
	UnlockAll() bool
	PendingRewardsAll(holder hoard.Address) (*big.Int, error)
	LockDuration(lock Lock) uint64

	StakeTreasure(holder hoard.Address, id uint64, amount uint64) error
	UnstakeTreasure(holder hoard.Address, id uint64, amount uint64) error
	StakeLegion(holder hoard.Address, id uint64) error
	UnstakeLegion(holder hoard.Address, id uint64) error
}
