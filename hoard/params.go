// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package hoard

import (
	"math/big"
)

const (
	Day  uint64 = 24 * 60 * 60
	Hour uint64 = 60 * 60

	// LockBuffer is added on top of the custodian lock when computing a deposit's unlock time, so a
	// deposit never unlocks before the position it was committed with.
	LockBuffer = Day

	BasisPoints     uint64 = 10_000
	MaxFeeBPS       uint64 = 1_000 // 10%
	MaxIncentiveBPS uint64 = 500   // 5%

	DefaultMinStakingWait = 12 * Hour
)

// Fixed-point scales. Each component uses exactly one.
var (
	CoordinatorPrecision = big.NewInt(1e18)
	DistributorPrecision = big.NewInt(1e12)
	StreamPrecision      = big.NewInt(1e18)
)

// Ether is 1e18 base units, handy for configs and tests.
var Ether = big.NewInt(1e18)

// Units returns n whole tokens in base units.
func Units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Ether)
}
