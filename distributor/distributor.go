// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package distributor shares one reward token across several staking pools.
//
// Rewards arrive only when a puller asks a registered stash to pay out. Each payout is split
// across pools by allocation weight and credited to every pool's own accumulator. A pool with
// nothing staked cannot be credited; its share is recorded as undistributed and stays in the
// distributor.
package distributor

import (
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/vechain/hoard/accumulator"
	"github.com/vechain/hoard/authority"
	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/log"
	"github.com/vechain/hoard/metrics"
	"github.com/vechain/hoard/reverts"
	"github.com/vechain/hoard/token"
)

var (
	logger = log.WithContext("pkg", "distributor")

	metricPulls        = metrics.LazyLoadCounter("distributor_pulls_count")
	metricPulled       = metrics.LazyLoadCounter("distributor_pulled_amount")
	metricHookFailures = metrics.LazyLoadCounter("distributor_hook_failures_count")
	metricActions      = metrics.LazyLoadCounterVec("distributor_actions_count", []string{"action"})
)

// Distributor is safe for concurrent use.
type Distributor struct {
	mu     sync.Mutex
	addr   hoard.Address
	reward token.Token
	auth   *authority.Table
	scale  *big.Int

	pools         []*pool
	byToken       map[hoard.Address]int
	totalWeight   uint64
	stashes       map[hoard.Address]Stash
	undistributed *big.Int
}

// New creates a distributor paying out reward. Admin operations require authority.Owner and
// pulls require authority.Puller.
func New(name string, reward token.Token, auth *authority.Table) *Distributor {
	return &Distributor{
		addr:          hoard.NamedAddress("distributor:" + name),
		reward:        reward,
		auth:          auth,
		scale:         hoard.DistributorPrecision,
		byToken:       make(map[hoard.Address]int),
		stashes:       make(map[hoard.Address]Stash),
		undistributed: new(big.Int),
	}
}

func (d *Distributor) Address() hoard.Address {
	return d.addr
}

func (d *Distributor) RewardToken() token.Token {
	return d.reward
}

//
// Admin
//

// AddPool registers a pool for stakingToken and returns its id.
func (d *Distributor) AddPool(caller hoard.Address, weight uint64, stakingToken token.Token, hook RewardHook) (int, error) {
	if err := d.auth.Require(caller, authority.Owner); err != nil {
		return 0, err
	}
	if stakingToken == nil {
		return 0, reverts.InvalidInput("staking token required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if pid, ok := d.byToken[stakingToken.Address()]; ok {
		return 0, reverts.InvalidInput("staking token %s already used by pool %d", stakingToken.Address(), pid)
	}
	pid := len(d.pools)
	d.pools = append(d.pools, &pool{
		token:  stakingToken,
		weight: weight,
		acc:    accumulator.New(d.scale),
		total:  new(big.Int),
		hook:   hook,
		users:  make(map[hoard.Address]*user),
	})
	d.byToken[stakingToken.Address()] = pid
	d.totalWeight += weight

	logger.Info("pool added", "pid", pid, "token", stakingToken.Address(), "weight", weight)
	return pid, nil
}

// SetPool changes a pool's weight, and its hook when overwrite is set.
func (d *Distributor) SetPool(caller hoard.Address, pid int, weight uint64, hook RewardHook, overwrite bool) error {
	if err := d.auth.Require(caller, authority.Owner); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	p, err := d.pool(pid)
	if err != nil {
		return err
	}
	d.totalWeight = d.totalWeight - p.weight + weight
	p.weight = weight
	if overwrite {
		p.hook = hook
	}

	logger.Info("pool updated", "pid", pid, "weight", weight, "hookReplaced", overwrite)
	return nil
}

// AddStash registers a reward source.
func (d *Distributor) AddStash(caller hoard.Address, s Stash) error {
	if err := d.auth.Require(caller, authority.Owner); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.stashes[s.Address()]; ok {
		return reverts.InvalidInput("stash %s already registered", s.Address())
	}
	d.stashes[s.Address()] = s
	logger.Info("stash added", "stash", s.Address())
	return nil
}

func (d *Distributor) RemoveStash(caller hoard.Address, addr hoard.Address) error {
	if err := d.auth.Require(caller, authority.Owner); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.stashes[addr]; !ok {
		return reverts.Precondition("stash %s not registered", addr)
	}
	delete(d.stashes, addr)
	logger.Info("stash removed", "stash", addr)
	return nil
}

//
// Rewards
//

// PullRewards asks a registered stash to pay out and splits the payout across pools. It returns
// the amount received.
func (d *Distributor) PullRewards(caller hoard.Address, stashAddr hoard.Address) (*big.Int, error) {
	if err := d.auth.Require(caller, authority.Puller); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.stashes[stashAddr]
	if !ok {
		return nil, reverts.Precondition("stash %s not registered", stashAddr)
	}
	amount, err := s.RequestPayout()
	if err != nil {
		return nil, reverts.WrapExternal(err, "pull from stash %s", stashAddr)
	}

	credited := d.distribute(amount)
	metricPulls().Add(1)
	if amount.IsInt64() {
		metricPulled().Add(amount.Int64())
	}

	logger.Debug("rewards pulled", "stash", stashAddr, "amount", amount, "credited", credited, "undistributed", d.undistributed)
	return amount, nil
}

// distribute credits amount across pools by weight and returns the credited total. Shares of pools
// with nothing staked, and the rounding remainder of the split, are added to undistributed.
func (d *Distributor) distribute(amount *big.Int) *big.Int {
	credited := new(big.Int)
	if amount.Sign() == 0 {
		return credited
	}
	if d.totalWeight > 0 {
		totalWeight := new(big.Int).SetUint64(d.totalWeight)
		for _, p := range d.pools {
			if p.weight == 0 {
				continue
			}
			share := new(big.Int).Mul(amount, new(big.Int).SetUint64(p.weight))
			share.Div(share, totalWeight)
			if p.acc.Distribute(share, p.total) {
				credited.Add(credited, share)
			}
		}
	}
	d.undistributed.Add(d.undistributed, new(big.Int).Sub(amount, credited))
	return credited
}

//
// User actions
//

// Deposit stakes amount of the pool's token from caller on behalf of to.
func (d *Distributor) Deposit(caller hoard.Address, pid int, amount *big.Int, to hoard.Address) error {
	if err := positive(amount); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	p, err := d.pool(pid)
	if err != nil {
		return err
	}
	if err := p.token.Transfer(caller, d.addr, amount); err != nil {
		return errors.WithMessage(err, "deposit")
	}

	u := p.enroll(to)
	u.amount = new(big.Int).Add(u.amount, amount)
	u.debt = accumulator.OnIncrease(u.debt, amount, p.acc.Value(), d.scale)
	p.total.Add(p.total, amount)

	d.notify(p, pid, to, to, new(big.Int), u.amount)
	metricActions().AddWithLabel(1, map[string]string{"action": "deposit"})
	return nil
}

// Withdraw unstakes amount from caller's position and sends it to to. Rewards stay pending.
func (d *Distributor) Withdraw(caller hoard.Address, pid int, amount *big.Int, to hoard.Address) error {
	if err := positive(amount); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	p, err := d.pool(pid)
	if err != nil {
		return err
	}
	u := p.lookup(caller)
	if u.amount.Cmp(amount) < 0 {
		return reverts.Precondition("withdraw %s exceeds staked %s", amount, u.amount)
	}
	if err := p.token.Transfer(d.addr, to, amount); err != nil {
		return errors.WithMessage(err, "withdraw")
	}

	u.amount = new(big.Int).Sub(u.amount, amount)
	u.debt = accumulator.OnDecrease(u.debt, amount, p.acc.Value(), d.scale)
	p.total.Sub(p.total, amount)

	d.notify(p, pid, caller, to, new(big.Int), u.amount)
	metricActions().AddWithLabel(1, map[string]string{"action": "withdraw"})
	return nil
}

// Harvest pays caller's pending rewards to to and returns the amount.
func (d *Distributor) Harvest(caller hoard.Address, pid int, to hoard.Address) (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, err := d.pool(pid)
	if err != nil {
		return nil, err
	}
	u := p.lookup(caller)
	pending := nonNegative(p.acc.Pending(u.amount, u.debt))
	if err := d.pay(to, pending); err != nil {
		return nil, err
	}
	u.debt = p.acc.Debt(u.amount)

	d.notify(p, pid, caller, to, pending, u.amount)
	metricActions().AddWithLabel(1, map[string]string{"action": "harvest"})
	return pending, nil
}

// WithdrawAndHarvest unstakes amount and pays all pending rewards, both to to. It returns the
// reward paid.
func (d *Distributor) WithdrawAndHarvest(caller hoard.Address, pid int, amount *big.Int, to hoard.Address) (*big.Int, error) {
	if err := positive(amount); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	p, err := d.pool(pid)
	if err != nil {
		return nil, err
	}
	u := p.lookup(caller)
	if u.amount.Cmp(amount) < 0 {
		return nil, reverts.Precondition("withdraw %s exceeds staked %s", amount, u.amount)
	}
	pending := nonNegative(p.acc.Pending(u.amount, u.debt))
	if err := d.ensureHeld(p.token, amount); err != nil {
		return nil, err
	}
	if err := d.pay(to, pending); err != nil {
		return nil, err
	}
	if err := p.token.Transfer(d.addr, to, amount); err != nil {
		return nil, errors.WithMessage(err, "withdraw")
	}

	u.amount = new(big.Int).Sub(u.amount, amount)
	u.debt = p.acc.Debt(u.amount)
	p.total.Sub(p.total, amount)

	d.notify(p, pid, caller, to, pending, u.amount)
	metricActions().AddWithLabel(1, map[string]string{"action": "withdraw-harvest"})
	return pending, nil
}

// EmergencyWithdraw returns caller's whole stake to to and forfeits pending rewards.
func (d *Distributor) EmergencyWithdraw(caller hoard.Address, pid int, to hoard.Address) (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, err := d.pool(pid)
	if err != nil {
		return nil, err
	}
	u := p.lookup(caller)
	amount := u.amount
	if amount.Sign() > 0 {
		if err := p.token.Transfer(d.addr, to, amount); err != nil {
			return nil, errors.WithMessage(err, "emergency withdraw")
		}
	}
	u.amount = new(big.Int)
	u.debt = new(big.Int)
	p.total.Sub(p.total, amount)

	d.notify(p, pid, caller, to, new(big.Int), u.amount)
	metricActions().AddWithLabel(1, map[string]string{"action": "emergency-withdraw"})
	logger.Warn("emergency withdraw", "pid", pid, "user", caller, "to", to, "amount", amount)
	return amount, nil
}

//
// Getters - no state change
//

func (d *Distributor) PendingReward(pid int, addr hoard.Address) (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, err := d.pool(pid)
	if err != nil {
		return nil, err
	}
	u, ok := p.users[addr]
	if !ok {
		return new(big.Int), nil
	}
	return nonNegative(p.acc.Pending(u.amount, u.debt)), nil
}

func (d *Distributor) UserInfo(pid int, addr hoard.Address) (UserInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, err := d.pool(pid)
	if err != nil {
		return UserInfo{}, err
	}
	u, ok := p.users[addr]
	if !ok {
		return UserInfo{Amount: new(big.Int), RewardDebt: new(big.Int)}, nil
	}
	return UserInfo{Amount: new(big.Int).Set(u.amount), RewardDebt: new(big.Int).Set(u.debt)}, nil
}

func (d *Distributor) PoolInfo(pid int) (PoolInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, err := d.pool(pid)
	if err != nil {
		return PoolInfo{}, err
	}
	return p.info(pid), nil
}

func (d *Distributor) Pools() []PoolInfo {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]PoolInfo, 0, len(d.pools))
	for i, p := range d.pools {
		out = append(out, p.info(i))
	}
	return out
}

func (d *Distributor) PoolLength() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.pools)
}

func (d *Distributor) TotalAllocWeight() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.totalWeight
}

// Undistributed is the part of all payouts that no pool could be credited with.
func (d *Distributor) Undistributed() *big.Int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return new(big.Int).Set(d.undistributed)
}

// Stashes lists registered stash addresses in a stable order.
func (d *Distributor) Stashes() []hoard.Address {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]hoard.Address, 0, len(d.stashes))
	for addr := range d.stashes {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Stash returns a registered stash.
func (d *Distributor) Stash(addr hoard.Address) (Stash, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.stashes[addr]
	return s, ok
}

func (d *Distributor) pool(pid int) (*pool, error) {
	if pid < 0 || pid >= len(d.pools) {
		return nil, reverts.Precondition("pool %d not found", pid)
	}
	return d.pools[pid], nil
}

func (d *Distributor) pay(to hoard.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := d.reward.Transfer(d.addr, to, amount); err != nil {
		return errors.WithMessage(err, "pay reward")
	}
	return nil
}

func (d *Distributor) ensureHeld(t token.Token, amount *big.Int) error {
	bal, err := t.BalanceOf(d.addr)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return reverts.InsufficientLiquidity("distributor holds %s, needs %s", bal, amount)
	}
	return nil
}

// notify calls the pool hook, if any. It never fails.
func (d *Distributor) notify(p *pool, pid int, addr, recipient hoard.Address, rewardPaid, newBalance *big.Int) {
	if p.hook == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			metricHookFailures().Add(1)
			logger.Warn("reward hook panicked", "pid", pid, "user", addr, "panic", fmt.Sprint(r))
		}
	}()
	if err := p.hook.OnBalanceChange(pid, addr, recipient, new(big.Int).Set(rewardPaid), new(big.Int).Set(newBalance)); err != nil {
		metricHookFailures().Add(1)
		logger.Warn("reward hook failed", "pid", pid, "user", addr, "err", err)
	}
}

func positive(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.InvalidInput("amount must be positive")
	}
	return nil
}

func nonNegative(x *big.Int) *big.Int {
	if x.Sign() < 0 {
		return new(big.Int)
	}
	return x
}
