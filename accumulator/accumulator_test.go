// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package accumulator

import (
	"math/big"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scale = big.NewInt(1e18)

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func TestPending(t *testing.T) {
	tests := []struct {
		name               string
		balance, debt, acc *big.Int
		expected           *big.Int
	}{
		{"zero", big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0)},
		{"no debt", big.NewInt(10), big.NewInt(0), units(3), big.NewInt(30)},
		{"with debt", big.NewInt(10), big.NewInt(20), units(3), big.NewInt(10)},
		{"negative", big.NewInt(10), big.NewInt(40), units(3), big.NewInt(-10)},
		{"floor", big.NewInt(3), big.NewInt(0), big.NewInt(5e17), big.NewInt(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Pending(tt.balance, tt.debt, tt.acc, scale))
		})
	}
}

func TestShave(t *testing.T) {
	assert.Equal(t, big.NewInt(9), Shave(big.NewInt(10)))
	assert.Equal(t, big.NewInt(0), Shave(big.NewInt(1)))
	assert.Equal(t, 0, Shave(big.NewInt(0)).Sign())
	assert.Equal(t, 0, Shave(big.NewInt(-5)).Sign())
}

func TestDistributeZeroTotal(t *testing.T) {
	acc := big.NewInt(7)
	next, ok := Distribute(units(100), big.NewInt(0), acc, scale)
	assert.False(t, ok)
	assert.Equal(t, acc, next)

	a := New(scale)
	assert.False(t, a.Distribute(units(1), big.NewInt(0)))
	assert.Equal(t, 0, a.Value().Sign())
}

func TestIncrementalAndRecomputedDebtAgree(t *testing.T) {
	acc := new(big.Int).Mul(big.NewInt(123456789), big.NewInt(1e9))
	debt := Debt(big.NewInt(1000), acc, scale)
	debt = OnIncrease(debt, big.NewInt(500), acc, scale)
	assert.Equal(t, Debt(big.NewInt(1500), acc, scale), debt)
	debt = OnDecrease(debt, big.NewInt(1500), acc, scale)
	assert.Equal(t, 0, debt.Sign())
}

// Two equal holders split a distribution evenly.
func TestEqualHoldersSplitEvenly(t *testing.T) {
	a := New(scale)
	n := units(100)
	debtA, debtB := a.Debt(n), a.Debt(n)
	total := new(big.Int).Add(n, n)

	r := units(10)
	require.True(t, a.Distribute(r, total))

	half := new(big.Int).Div(r, big.NewInt(2))
	assert.Equal(t, half, a.Pending(n, debtA))
	assert.Equal(t, half, a.Pending(n, debtB))
}

// Pending never goes negative for a holder whose debt was checkpointed at the current value, and
// the sum of entitlements never exceeds what was distributed.
func TestEntitlementConservation(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	a := New(scale)

	balances := make([]*big.Int, 8)
	debts := make([]*big.Int, 8)
	total := new(big.Int)
	for i := range balances {
		balances[i] = big.NewInt(rng.Int64N(1e12) + 1)
		debts[i] = a.Debt(balances[i])
		total.Add(total, balances[i])
	}

	distributed := new(big.Int)
	for range 50 {
		amount := big.NewInt(rng.Int64N(1e15))
		require.True(t, a.Distribute(amount, total))
		distributed.Add(distributed, amount)

		sum := new(big.Int)
		for i := range balances {
			p := a.Pending(balances[i], debts[i])
			assert.GreaterOrEqual(t, p.Sign(), 0)
			sum.Add(sum, p)
		}
		assert.LessOrEqual(t, sum.Cmp(distributed), 0)
	}
}

func TestPreviewAndSet(t *testing.T) {
	a := New(scale)
	next := a.Preview(big.NewInt(10), big.NewInt(5))
	assert.Equal(t, 0, a.Value().Sign())
	a.Set(next)
	assert.Equal(t, units(2), a.Value())
	assert.Equal(t, scale, a.Scale())
}
