// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/hoard/authority"
	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/lvldb"
	"github.com/vechain/hoard/mine"
	"github.com/vechain/hoard/token"
)

var (
	owner  = hoard.NamedAddress("owner")
	keeper = hoard.NamedAddress("keeper")
	hoardA = hoard.NamedAddress("hoard-a")
	alice  = hoard.NamedAddress("alice")
	bob    = hoard.NamedAddress("bob")
	carol  = hoard.NamedAddress("carol")
)

// day0 is midnight UTC, so hour offsets map directly onto accrual windows.
const day0 = 19676 * hoard.Day

// scriptedMine lets tests make individual harvests and withdrawals fail.
type scriptedMine struct {
	*mine.Sim
	harvestErrs  map[uint64]error
	withdrawErrs map[uint64]error
}

func (m *scriptedMine) Harvest(holder hoard.Address, id uint64) error {
	if err, ok := m.harvestErrs[id]; ok {
		return err
	}
	return m.Sim.Harvest(holder, id)
}

func (m *scriptedMine) Withdraw(holder hoard.Address, id uint64, amount *big.Int) error {
	if err, ok := m.withdrawErrs[id]; ok {
		return err
	}
	return m.Sim.Withdraw(holder, id, amount)
}

type StakerTest struct {
	*Staker
	t         *testing.T
	mine      *scriptedMine
	magic     *token.Ledger
	treasures *token.Collection
	legions   *token.Collection
	auth      *authority.Table
	clock     *hoard.ManualClock
}

func newTest(t *testing.T, cfg Config, emission int64) *StakerTest {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bank := token.NewBank(db)
	magic := bank.Ledger("MAGIC")
	treasures := bank.Collection("treasures")
	legions := bank.Collection("legions")
	clock := hoard.NewManualClock(day0 + hoard.Hour)

	m := &scriptedMine{
		Sim:          mine.NewSim(magic, treasures, legions, clock, big.NewInt(emission)),
		harvestErrs:  make(map[uint64]error),
		withdrawErrs: make(map[uint64]error),
	}

	auth := authority.New()
	auth.Grant(owner, authority.Owner)
	auth.Grant(hoardA, authority.Hoard)

	s, err := New("test", cfg, magic, m, treasures, legions, auth, clock)
	require.NoError(t, err)

	for _, addr := range []hoard.Address{alice, bob, carol} {
		require.NoError(t, magic.Mint(addr, big.NewInt(1_000_000)))
	}

	return &StakerTest{
		Staker:    s,
		t:         t,
		mine:      m,
		magic:     magic,
		treasures: treasures,
		legions:   legions,
		auth:      auth,
		clock:     clock,
	}
}

// noWait is a config with an open gate and no staking rate limit.
func noWait() Config {
	cfg := DefaultConfig()
	cfg.MinStakingWait = 0
	return cfg
}

func (st *StakerTest) Advance(d uint64) *StakerTest {
	st.clock.Advance(d)
	return st
}

func (st *StakerTest) Deposit(from hoard.Address, amount int64) *StakerTest {
	_, err := st.Staker.Deposit(from, big.NewInt(amount))
	require.NoError(st.t, err, "deposit %d from %s", amount, from)
	return st
}

func (st *StakerTest) Stake() *StakerTest {
	_, _, err := st.StakeScheduled(keeper)
	require.NoError(st.t, err, "stake scheduled")
	return st
}

func (st *StakerTest) Accrue() *AccrueResult {
	res, err := st.Staker.Accrue(keeper, st.ActivePositionIDs())
	require.NoError(st.t, err, "accrue")
	return res
}

// UnlockDeposits moves past every deposit's unlock time.
func (st *StakerTest) UnlockDeposits() *StakerTest {
	return st.Advance(mine.LockTwoWeeks.Duration() + hoard.LockBuffer)
}

func (st *StakerTest) AssertPending(user hoard.Address, id uint64, expected int64) *StakerTest {
	pending, err := st.Pending(user, id)
	require.NoError(st.t, err)
	assert.Equal(st.t, big.NewInt(expected), pending, "pending of %s deposit %d", user, id)
	return st
}

func (st *StakerTest) AssertTotalStaked(expected int64) *StakerTest {
	assert.Equal(st.t, big.NewInt(expected), st.TotalStaked(), "total staked")
	return st
}

func (st *StakerTest) AssertUnstaked(expected int64) *StakerTest {
	assert.Equal(st.t, big.NewInt(expected), st.UnstakedPending(), "unstaked pending")
	return st
}

func (st *StakerTest) AssertBalance(holder hoard.Address, expected int64) *StakerTest {
	bal, err := st.magic.BalanceOf(holder)
	require.NoError(st.t, err)
	assert.Equal(st.t, big.NewInt(expected), bal, "balance of %s", holder)
	return st
}

// AssertConsistent checks that deposits sum to the total staked.
func (st *StakerTest) AssertConsistent(users ...hoard.Address) *StakerTest {
	sum := new(big.Int)
	for _, u := range users {
		for _, d := range st.Deposits(u) {
			assert.True(st.t, d.Amount.Sign() >= 0)
			sum.Add(sum, d.Amount)
		}
	}
	assert.Equal(st.t, st.TotalStaked(), sum, "deposits sum to total staked")
	return st
}
