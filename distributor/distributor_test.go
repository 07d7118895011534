// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package distributor

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/hoard/authority"
	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/lvldb"
	"github.com/vechain/hoard/reverts"
	"github.com/vechain/hoard/stash"
	"github.com/vechain/hoard/token"
)

var (
	owner  = hoard.NamedAddress("owner")
	puller = hoard.NamedAddress("puller")
	alice  = hoard.NamedAddress("alice")
	bob    = hoard.NamedAddress("bob")
)

type hookCall struct {
	pid        int
	user       hoard.Address
	recipient  hoard.Address
	rewardPaid *big.Int
	newBalance *big.Int
}

type recordingHook struct {
	calls []hookCall
	err   error
	panic bool
}

func (h *recordingHook) OnBalanceChange(pid int, user, recipient hoard.Address, rewardPaid, newBalance *big.Int) error {
	h.calls = append(h.calls, hookCall{pid, user, recipient, rewardPaid, newBalance})
	if h.panic {
		panic("hook exploded")
	}
	return h.err
}

type DistributorTest struct {
	*Distributor
	t      *testing.T
	bank   *token.Bank
	reward *token.Ledger
	lump   *stash.Lump
}

func newTest(t *testing.T) *DistributorTest {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	auth := authority.New()
	auth.Grant(owner, authority.Owner)
	auth.Grant(puller, authority.Puller)

	bank := token.NewBank(db)
	reward := bank.Ledger("REWARD")
	d := New("main", reward, auth)
	lump := stash.NewLump("lump", reward, d.Address(), auth)
	require.NoError(t, d.AddStash(owner, lump))

	return &DistributorTest{Distributor: d, t: t, bank: bank, reward: reward, lump: lump}
}

// AddPool creates a pool for a fresh staking token and funds alice and bob with it.
func (dt *DistributorTest) AddPool(symbol string, weight uint64, hook RewardHook) (int, *token.Ledger) {
	lp := dt.bank.Ledger(symbol)
	require.NoError(dt.t, lp.Mint(alice, big.NewInt(1_000_000)))
	require.NoError(dt.t, lp.Mint(bob, big.NewInt(1_000_000)))
	pid, err := dt.Distributor.AddPool(owner, weight, lp, hook)
	require.NoError(dt.t, err)
	return pid, lp
}

func (dt *DistributorTest) Fund(amount int64) *DistributorTest {
	require.NoError(dt.t, dt.reward.Mint(dt.lump.Address(), big.NewInt(amount)))
	return dt
}

func (dt *DistributorTest) Pull() *big.Int {
	amount, err := dt.PullRewards(puller, dt.lump.Address())
	require.NoError(dt.t, err)
	return amount
}

func (dt *DistributorTest) Deposit(pid int, from hoard.Address, amount int64) *DistributorTest {
	require.NoError(dt.t, dt.Distributor.Deposit(from, pid, big.NewInt(amount), from))
	return dt
}

func (dt *DistributorTest) AssertPending(pid int, addr hoard.Address, expected int64) *DistributorTest {
	pending, err := dt.PendingReward(pid, addr)
	require.NoError(dt.t, err)
	assert.Equal(dt.t, big.NewInt(expected), pending, "pending of %s in pool %d", addr, pid)
	return dt
}

func (dt *DistributorTest) rewardOf(addr hoard.Address) *big.Int {
	bal, err := dt.reward.BalanceOf(addr)
	require.NoError(dt.t, err)
	return bal
}

func TestPools(t *testing.T) {
	dt := newTest(t)
	pid, lp := dt.AddPool("LP", 10, nil)
	assert.Equal(t, 0, pid)
	assert.Equal(t, 1, dt.PoolLength())

	_, err := dt.Distributor.AddPool(owner, 5, lp, nil)
	assert.True(t, reverts.Is(err, reverts.KindInvalidInput), "duplicate staking token")
	_, err = dt.Distributor.AddPool(alice, 5, dt.bank.Ledger("X"), nil)
	assert.True(t, reverts.Is(err, reverts.KindUnauthorized))

	dt.AddPool("LP2", 30, nil)
	assert.Equal(t, uint64(40), dt.TotalAllocWeight())

	require.NoError(t, dt.SetPool(owner, 1, 10, nil, false))
	assert.Equal(t, uint64(20), dt.TotalAllocWeight())

	hook := &recordingHook{}
	require.NoError(t, dt.SetPool(owner, 0, 10, hook, true))
	info, err := dt.PoolInfo(0)
	require.NoError(t, err)
	assert.True(t, info.HasHook)
	assert.Equal(t, lp.Address(), info.StakingToken)

	err = dt.SetPool(owner, 7, 1, nil, false)
	assert.True(t, reverts.Is(err, reverts.KindPrecondition))
	assert.Len(t, dt.Pools(), 2)
}

func TestPullRewards(t *testing.T) {
	dt := newTest(t)
	p0, _ := dt.AddPool("LP0", 1, nil)
	p1, _ := dt.AddPool("LP1", 3, nil)

	dt.Deposit(p0, alice, 100).
		Deposit(p0, bob, 300).
		Deposit(p1, alice, 50).
		Fund(4000)

	_, err := dt.PullRewards(alice, dt.lump.Address())
	assert.True(t, reverts.Is(err, reverts.KindUnauthorized))
	_, err = dt.PullRewards(puller, hoard.NamedAddress("nowhere"))
	assert.True(t, reverts.Is(err, reverts.KindPrecondition))

	assert.Equal(t, big.NewInt(4000), dt.Pull())
	dt.AssertPending(p0, alice, 250).
		AssertPending(p0, bob, 750).
		AssertPending(p1, alice, 3000)
	assert.Zero(t, dt.Undistributed().Sign())

	// nothing new: pulling again distributes nothing
	assert.Zero(t, dt.Pull().Sign())
	dt.AssertPending(p0, alice, 250)
}

func TestZeroStakePool(t *testing.T) {
	dt := newTest(t)
	p0, _ := dt.AddPool("LP0", 1, nil)
	p1, _ := dt.AddPool("LP1", 1, nil)

	dt.Deposit(p0, alice, 100).Fund(1000)
	dt.Pull()

	dt.AssertPending(p0, alice, 500).AssertPending(p1, alice, 0)
	info, err := dt.PoolInfo(p1)
	require.NoError(t, err)
	assert.Zero(t, info.AccRewardsPerShare.Sign())
	assert.Equal(t, big.NewInt(500), dt.Undistributed())

	// the balance held is exactly claimable plus undistributed
	held := dt.rewardOf(dt.Address())
	assert.Equal(t, big.NewInt(1000), held)

	// a later depositor in the empty pool does not inherit the skipped share
	dt.Deposit(p1, bob, 100)
	dt.AssertPending(p1, bob, 0)
}

func TestHarvestAndWithdraw(t *testing.T) {
	dt := newTest(t)
	pid, lp := dt.AddPool("LP", 1, nil)

	dt.Deposit(pid, alice, 100).Fund(1000)
	dt.Pull()

	// partial withdrawal keeps earned rewards
	require.NoError(t, dt.Withdraw(alice, pid, big.NewInt(40), alice))
	dt.AssertPending(pid, alice, 1000)

	err := dt.Withdraw(alice, pid, big.NewInt(61), alice)
	assert.True(t, reverts.Is(err, reverts.KindPrecondition))

	paid, err := dt.Harvest(alice, pid, bob)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), paid)
	assert.Equal(t, big.NewInt(1000), dt.rewardOf(bob))

	paid, err = dt.Harvest(alice, pid, bob)
	require.NoError(t, err)
	assert.Zero(t, paid.Sign(), "second harvest yields nothing")

	dt.Fund(600)
	dt.Pull()
	paid, err = dt.WithdrawAndHarvest(alice, pid, big.NewInt(60), alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(600), paid)
	assert.Equal(t, big.NewInt(600), dt.rewardOf(alice))

	bal, err := lp.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000), bal)

	info, err := dt.UserInfo(pid, alice)
	require.NoError(t, err)
	assert.Zero(t, info.Amount.Sign())
	assert.Zero(t, info.RewardDebt.Sign())
}

func TestThirdPartyTargets(t *testing.T) {
	dt := newTest(t)
	pid, lp := dt.AddPool("LP", 1, nil)

	// alice stakes for bob
	require.NoError(t, dt.Distributor.Deposit(alice, pid, big.NewInt(100), bob))
	info, err := dt.UserInfo(pid, bob)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), info.Amount)

	dt.Fund(100)
	dt.Pull()
	dt.AssertPending(pid, bob, 100).AssertPending(pid, alice, 0)

	// bob withdraws to alice
	require.NoError(t, dt.Withdraw(bob, pid, big.NewInt(100), alice))
	bal, err := lp.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000), bal)
}

func TestEmergencyWithdraw(t *testing.T) {
	dt := newTest(t)
	hook := &recordingHook{panic: true}
	pid, lp := dt.AddPool("LP", 1, hook)

	dt.Deposit(pid, alice, 100).Fund(500)
	dt.Pull()

	amount, err := dt.Distributor.EmergencyWithdraw(alice, pid, alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), amount)
	dt.AssertPending(pid, alice, 0)

	bal, err := lp.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000), bal)
	assert.Zero(t, dt.rewardOf(alice).Sign(), "rewards forfeited")

	last := hook.calls[len(hook.calls)-1]
	assert.Zero(t, last.newBalance.Sign())
}

func TestHookFailuresAreSwallowed(t *testing.T) {
	dt := newTest(t)
	hook := &recordingHook{err: errors.New("boom")}
	pid, _ := dt.AddPool("LP", 1, hook)

	dt.Deposit(pid, alice, 100).Fund(10)
	dt.Pull()
	_, err := dt.Harvest(alice, pid, alice)
	require.NoError(t, err)

	require.Len(t, hook.calls, 2)
	assert.Equal(t, hookCall{pid, alice, alice, big.NewInt(0), big.NewInt(100)}, hook.calls[0])
	assert.Equal(t, big.NewInt(10), hook.calls[1].rewardPaid)
}

func TestConservation(t *testing.T) {
	dt := newTest(t)
	weights := []uint64{3, 7, 11, 0}
	pids := make([]int, len(weights))
	for i, w := range weights {
		pids[i], _ = dt.AddPool("LP"+string(rune('A'+i)), w, nil)
	}
	dt.Deposit(pids[0], alice, 17).Deposit(pids[1], bob, 29).Deposit(pids[3], alice, 5)

	total := new(big.Int)
	for _, amount := range []int64{1, 999, 123_457, 10} {
		dt.Fund(amount)
		total.Add(total, dt.Pull())
	}

	owed := new(big.Int)
	for _, pid := range pids {
		for _, addr := range []hoard.Address{alice, bob} {
			pending, err := dt.PendingReward(pid, addr)
			require.NoError(t, err)
			owed.Add(owed, pending)
		}
	}
	assert.True(t, owed.Cmp(total) <= 0, "owed %s exceeds distributed %s", owed, total)
	assert.True(t, dt.Undistributed().Sign() > 0, "pool 2 has weight but no stake")
	assert.True(t, new(big.Int).Add(owed, dt.Undistributed()).Cmp(total) <= 0)
}

func TestStashRegistry(t *testing.T) {
	dt := newTest(t)
	assert.Equal(t, []hoard.Address{dt.lump.Address()}, dt.Stashes())

	err := dt.AddStash(owner, dt.lump)
	assert.True(t, reverts.Is(err, reverts.KindInvalidInput))

	s, ok := dt.Stash(dt.lump.Address())
	assert.True(t, ok)
	assert.Equal(t, dt.lump.Address(), s.Address())

	require.NoError(t, dt.RemoveStash(owner, dt.lump.Address()))
	assert.Empty(t, dt.Stashes())
	_, err = dt.PullRewards(puller, dt.lump.Address())
	assert.True(t, reverts.Is(err, reverts.KindPrecondition))
}

// downStash fails every payout request.
type downStash struct {
	addr hoard.Address
	err  error
}

func (s *downStash) Address() hoard.Address           { return s.addr }
func (s *downStash) RequestPayout() (*big.Int, error) { return nil, s.err }
func (s *downStash) PendingPayout() (*big.Int, error) { return nil, s.err }

func TestPullFromFailingStashIsExternal(t *testing.T) {
	dt := newTest(t)
	dt.AddPool("LP0", 1, nil)
	offline := errors.New("stash offline")
	s := &downStash{addr: hoard.NamedAddress("down"), err: offline}
	require.NoError(t, dt.AddStash(owner, s))

	_, err := dt.PullRewards(puller, s.Address())
	assert.True(t, reverts.Is(err, reverts.KindExternal))
	assert.True(t, errors.Is(err, offline))

	// a stash revert is still reported as the stash's failure
	s.err = reverts.Unauthorized("not the distributor")
	_, err = dt.PullRewards(puller, s.Address())
	assert.Equal(t, reverts.KindExternal, reverts.KindOf(err))
}

func TestFailedActionsLeaveNoUserRecord(t *testing.T) {
	dt := newTest(t)
	pid, _ := dt.AddPool("LP0", 1, nil)
	require.NoError(t, dt.Distributor.Deposit(alice, pid, big.NewInt(100), alice))
	p := dt.pools[pid]

	err := dt.Withdraw(bob, pid, big.NewInt(1), bob)
	assert.True(t, reverts.Is(err, reverts.KindPrecondition))
	_, err = dt.WithdrawAndHarvest(bob, pid, big.NewInt(1), bob)
	assert.True(t, reverts.Is(err, reverts.KindPrecondition))

	paid, err := dt.Harvest(bob, pid, bob)
	require.NoError(t, err)
	assert.Zero(t, paid.Sign())
	returned, err := dt.EmergencyWithdraw(bob, pid, bob)
	require.NoError(t, err)
	assert.Zero(t, returned.Sign())

	assert.Len(t, p.users, 1)
	assert.NotContains(t, p.users, bob)
	assert.Equal(t, big.NewInt(100), p.total)
}
