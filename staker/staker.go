// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staker pools user deposits into the mine and shares the harvested rewards.
//
// Deposits wait as unstaked funds until StakeScheduled commits them as one position. Accrue
// harvests positions and credits the net rewards to an accumulator over every staked unit,
// committed or not. Payouts come from the coordinator's own balance; when it runs short, unlocked
// positions are unwound oldest first.
//
// Time of day splits into two phases. Inside the accrual windows only Accrue may run; outside them
// only user actions may run. With no windows configured both are always allowed.
package staker

import (
	"math/big"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/vechain/hoard/accumulator"
	"github.com/vechain/hoard/authority"
	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/log"
	"github.com/vechain/hoard/metrics"
	"github.com/vechain/hoard/mine"
	"github.com/vechain/hoard/reverts"
	"github.com/vechain/hoard/staker/ledger"
	"github.com/vechain/hoard/token"
	"github.com/vechain/hoard/window"
)

var (
	logger = log.WithContext("pkg", "staker")

	metricActions   = metrics.LazyLoadCounterVec("staker_actions_count", []string{"action"})
	metricAccruals  = metrics.LazyLoadCounter("staker_accruals_count")
	metricHarvested = metrics.LazyLoadCounter("staker_harvested_amount")
	metricStale     = metrics.LazyLoadCounter("staker_stale_harvests_count")
	metricDeposits  = metrics.LazyLoadGauge("staker_deposits_gauge")
)

// Staker is the single staker coordinator. It is safe for concurrent use; every operation runs
// under one lock.
type Staker struct {
	mu        sync.Mutex
	addr      hoard.Address
	base      token.Token
	mine      mine.Mine
	treasures token.Items
	legions   token.Items
	auth      *authority.Table
	clock     hoard.Clock

	ledger *ledger.Ledger
	acc    *accumulator.Accumulator

	totalStaked     *big.Int
	unstakedPending *big.Int
	feeReserve      *big.Int
	// net rewards received while nothing was staked
	pendingDistribution *big.Int
	// gross rewards the mine paid outside of Accrue
	harvestCarry *big.Int

	lock           mine.Lock
	feeBPS         uint64
	incentiveBPS   uint64
	minStakingWait uint64
	lastStakeAt    uint64
	paused         bool
	window         window.Window

	accounts       map[hoard.Address]*account
	depositN       int
	treasureOwners map[uint64]map[hoard.Address]uint64
	legionOwners   map[uint64]hoard.Address
}

// New creates a coordinator named name. treasures and legions may be nil when boost staking is
// not used.
func New(
	name string,
	cfg Config,
	base token.Token,
	m mine.Mine,
	treasures, legions token.Items,
	auth *authority.Table,
	clock hoard.Clock,
) (*Staker, error) {
	if !cfg.Lock.Valid() {
		return nil, reverts.InvalidInput("invalid lock mode %d", cfg.Lock)
	}
	if cfg.FeeBPS > hoard.MaxFeeBPS {
		return nil, reverts.InvalidInput("fee %d bps above cap %d", cfg.FeeBPS, hoard.MaxFeeBPS)
	}
	if cfg.IncentiveBPS > hoard.MaxIncentiveBPS {
		return nil, reverts.InvalidInput("incentive %d bps above cap %d", cfg.IncentiveBPS, hoard.MaxIncentiveBPS)
	}
	w, err := window.New(cfg.Windows)
	if err != nil {
		return nil, err
	}

	addr := hoard.NamedAddress("staker:" + name)
	return &Staker{
		addr:                addr,
		base:                base,
		mine:                m,
		treasures:           treasures,
		legions:             legions,
		auth:                auth,
		clock:               clock,
		ledger:              ledger.New(m, base, addr, cfg.Lock, clock),
		acc:                 accumulator.New(hoard.CoordinatorPrecision),
		totalStaked:         new(big.Int),
		unstakedPending:     new(big.Int),
		feeReserve:          new(big.Int),
		pendingDistribution: new(big.Int),
		harvestCarry:        new(big.Int),
		lock:                cfg.Lock,
		feeBPS:              cfg.FeeBPS,
		incentiveBPS:        cfg.IncentiveBPS,
		minStakingWait:      cfg.MinStakingWait,
		window:              w,
		accounts:            make(map[hoard.Address]*account),
		treasureOwners:      make(map[uint64]map[hoard.Address]uint64),
		legionOwners:        make(map[uint64]hoard.Address),
	}, nil
}

func (s *Staker) Address() hoard.Address {
	return s.addr
}

//
// User actions - outside the accrual windows
//

// Deposit stakes amount from caller and returns the new deposit id.
func (s *Staker) Deposit(caller hoard.Address, amount *big.Int) (uint64, error) {
	if amount == nil || amount.Sign() <= 0 {
		return 0, reverts.InvalidInput("deposit amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return 0, reverts.Precondition("new staking is paused")
	}
	if err := s.requireUserPhase(); err != nil {
		return 0, err
	}
	if err := s.base.Transfer(caller, s.addr, amount); err != nil {
		return 0, errors.WithMessage(err, "deposit")
	}

	a := s.account(caller)
	d := &Deposit{
		ID:       a.nextID,
		Amount:   new(big.Int).Set(amount),
		UnlockAt: s.clock.Now() + s.mine.LockDuration(s.lock) + hoard.LockBuffer,
		Debt:     s.acc.Debt(amount),
	}
	a.deposits[d.ID] = d
	a.nextID++
	s.depositN++
	s.totalStaked.Add(s.totalStaked, amount)
	s.unstakedPending.Add(s.unstakedPending, amount)

	metricActions().AddWithLabel(1, map[string]string{"action": "deposit"})
	metricDeposits().Set(int64(s.depositN))
	logger.Debug("deposit", "user", caller, "id", d.ID, "amount", amount, "unlockAt", d.UnlockAt)
	return d.ID, nil
}

// Withdraw takes amount of principal out of an unlocked deposit, together with all of its
// rewards, and returns the total paid.
func (s *Staker) Withdraw(caller hoard.Address, id uint64, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, reverts.InvalidInput("withdraw amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUserPhase(); err != nil {
		return nil, err
	}
	d, err := s.deposit(caller, id)
	if err != nil {
		return nil, err
	}
	if now := s.clock.Now(); now < d.UnlockAt {
		return nil, reverts.Precondition("deposit %d locked until %d", id, d.UnlockAt)
	}
	if d.Amount.Cmp(amount) < 0 {
		return nil, reverts.Precondition("withdraw %s exceeds deposit %d holding %s", amount, id, d.Amount)
	}

	reward := s.entitlement(d)
	remaining := new(big.Int).Sub(d.Amount, amount)
	payout := new(big.Int).Add(amount, reward)
	unstaked := s.unstakedAfter(amount)

	if err := s.pay(caller, payout, unstaked); err != nil {
		return nil, err
	}

	d.Amount = remaining
	d.Debt = s.acc.Debt(remaining)
	s.totalStaked.Sub(s.totalStaked, amount)
	s.unstakedPending = unstaked

	metricActions().AddWithLabel(1, map[string]string{"action": "withdraw"})
	logger.Debug("withdraw", "user", caller, "id", id, "principal", amount, "reward", reward)
	return payout, nil
}

// WithdrawAll withdraws every unlocked deposit of caller in full and skips locked ones.
func (s *Staker) WithdrawAll(caller hoard.Address) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUserPhase(); err != nil {
		return nil, err
	}
	a, ok := s.accounts[caller]
	if !ok {
		return nil, reverts.Precondition("%s has no deposits", caller)
	}

	now := s.clock.Now()
	var due []*Deposit
	principal := new(big.Int)
	payout := new(big.Int)
	for _, d := range a.ordered() {
		if d.Amount.Sign() == 0 || now < d.UnlockAt {
			continue
		}
		due = append(due, d)
		principal.Add(principal, d.Amount)
		payout.Add(payout, d.Amount)
		payout.Add(payout, s.entitlement(d))
	}
	if len(due) == 0 {
		return nil, reverts.Precondition("nothing to withdraw")
	}
	unstaked := s.unstakedAfter(principal)

	if err := s.pay(caller, payout, unstaked); err != nil {
		return nil, err
	}

	for _, d := range due {
		d.Amount = new(big.Int)
		d.Debt = new(big.Int)
	}
	s.totalStaked.Sub(s.totalStaked, principal)
	s.unstakedPending = unstaked

	metricActions().AddWithLabel(1, map[string]string{"action": "withdraw-all"})
	logger.Debug("withdraw all", "user", caller, "deposits", len(due), "principal", principal, "payout", payout)
	return payout, nil
}

// Claim pays the rewards of one deposit and returns the amount.
func (s *Staker) Claim(caller hoard.Address, id uint64) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUserPhase(); err != nil {
		return nil, err
	}
	d, err := s.deposit(caller, id)
	if err != nil {
		return nil, err
	}

	reward := s.entitlement(d)
	if reward.Sign() == 0 {
		return reward, nil
	}
	if err := s.pay(caller, reward, s.unstakedPending); err != nil {
		return nil, err
	}
	d.Debt = s.acc.Debt(d.Amount)

	metricActions().AddWithLabel(1, map[string]string{"action": "claim"})
	logger.Debug("claim", "user", caller, "id", id, "reward", reward)
	return reward, nil
}

// ClaimAll pays the rewards of every deposit of caller.
func (s *Staker) ClaimAll(caller hoard.Address) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUserPhase(); err != nil {
		return nil, err
	}
	a, ok := s.accounts[caller]
	if !ok {
		return new(big.Int), nil
	}

	var due []*Deposit
	total := new(big.Int)
	for _, d := range a.ordered() {
		if reward := s.entitlement(d); reward.Sign() > 0 {
			due = append(due, d)
			total.Add(total, reward)
		}
	}
	if total.Sign() == 0 {
		return total, nil
	}
	if err := s.pay(caller, total, s.unstakedPending); err != nil {
		return nil, err
	}
	for _, d := range due {
		d.Debt = s.acc.Debt(d.Amount)
	}

	metricActions().AddWithLabel(1, map[string]string{"action": "claim-all"})
	logger.Debug("claim all", "user", caller, "deposits", len(due), "reward", total)
	return total, nil
}

//
// Staking and accrual - callable by anyone
//

// StakeScheduled commits all unstaked funds as a new mine position. It fails when there is
// nothing to stake rather than succeed without effect.
func (s *Staker) StakeScheduled(caller hoard.Address) (uint64, *big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return 0, nil, reverts.Precondition("new staking is paused")
	}
	now := s.clock.Now()
	if next := s.nextStakeAt(); now < next {
		return 0, nil, reverts.Precondition("staking not due until %d", next)
	}
	if s.unstakedPending.Sign() == 0 {
		return 0, nil, reverts.Precondition("nothing to stake")
	}

	amount := new(big.Int).Set(s.unstakedPending)
	id, err := s.ledger.Commit(amount)
	if err != nil {
		return 0, nil, err
	}
	s.unstakedPending = new(big.Int)
	s.lastStakeAt = now

	metricActions().AddWithLabel(1, map[string]string{"action": "stake"})
	logger.Info("staked scheduled", "caller", caller, "position", id, "amount", amount)
	return id, amount, nil
}

// Accrue harvests the given positions, takes the fee and the caller's incentive, and credits the
// rest to stakers. Positions are harvested in ascending id order. A position the mine reports as
// stale is skipped; any other harvest failure aborts, keeping what was already harvested for the
// next accrual.
func (s *Staker) Accrue(caller hoard.Address, positionIDs []uint64) (*AccrueResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.window.AcceptsAccrual(s.clock.Now()) {
		return nil, reverts.Precondition("outside the accrual window %s", s.window)
	}

	ids := append([]uint64(nil), positionIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	before, err := s.base.BalanceOf(s.addr)
	if err != nil {
		return nil, err
	}
	harvestErr := s.harvest(ids)
	after, err := s.base.BalanceOf(s.addr)
	if err != nil {
		return nil, err
	}
	s.harvestCarry.Add(s.harvestCarry, after.Sub(after, before))
	if harvestErr != nil {
		return nil, harvestErr
	}

	harvested := new(big.Int).Set(s.harvestCarry)
	fee := bps(harvested, s.feeBPS)
	incentive := bps(harvested, s.incentiveBPS)
	net := new(big.Int).Sub(harvested, fee)
	net.Sub(net, incentive)

	if incentive.Sign() > 0 {
		if err := s.base.Transfer(s.addr, caller, incentive); err != nil {
			return nil, errors.WithMessage(err, "pay accrual incentive")
		}
	}

	s.harvestCarry = new(big.Int)
	s.feeReserve.Add(s.feeReserve, fee)
	distributable := net.Add(net, s.pendingDistribution)
	res := &AccrueResult{
		Harvested:   harvested,
		Fee:         fee,
		Incentive:   incentive,
		Distributed: new(big.Int),
		Carried:     new(big.Int),
	}
	if s.acc.Distribute(distributable, s.totalStaked) {
		res.Distributed = distributable
		s.pendingDistribution = new(big.Int)
	} else {
		res.Carried = new(big.Int).Set(distributable)
		s.pendingDistribution = distributable
	}

	metricAccruals().Add(1)
	if harvested.IsInt64() {
		metricHarvested().Add(harvested.Int64())
	}
	logger.Debug("accrued", "caller", caller, "positions", len(ids), "harvested", harvested,
		"fee", fee, "incentive", incentive, "distributed", res.Distributed, "carried", res.Carried)
	return res, nil
}

func (s *Staker) harvest(ids []uint64) error {
	for _, id := range ids {
		err := s.mine.Harvest(s.addr, id)
		if err == nil {
			continue
		}
		if errors.Is(err, mine.ErrStalePosition) {
			metricStale().Add(1)
			logger.Warn("skipping stale position", "position", id, "err", err)
			continue
		}
		return reverts.WrapExternal(err, "harvest position %d", id)
	}
	return nil
}

//
// NFT boosts - hoards only
//

func (s *Staker) StakeTreasure(caller hoard.Address, id uint64, amount uint64) error {
	if err := s.auth.Require(caller, authority.Hoard); err != nil {
		return err
	}
	if s.treasures == nil {
		return reverts.Precondition("treasure staking not configured")
	}
	if amount == 0 {
		return reverts.InvalidInput("treasure amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.treasures.Transfer(caller, s.addr, id, amount); err != nil {
		return errors.WithMessage(err, "receive treasure")
	}
	if err := s.mine.StakeTreasure(s.addr, id, amount); err != nil {
		if rerr := s.treasures.Transfer(s.addr, caller, id, amount); rerr != nil {
			logger.Error("failed to return treasure", "hoard", caller, "id", id, "err", rerr)
		}
		return reverts.WrapExternal(err, "stake treasure")
	}
	owners, ok := s.treasureOwners[id]
	if !ok {
		owners = make(map[hoard.Address]uint64)
		s.treasureOwners[id] = owners
	}
	owners[caller] += amount

	logger.Info("treasure staked", "hoard", caller, "id", id, "amount", amount)
	return nil
}

func (s *Staker) UnstakeTreasure(caller hoard.Address, id uint64, amount uint64) error {
	if err := s.auth.Require(caller, authority.Hoard); err != nil {
		return err
	}
	if s.treasures == nil {
		return reverts.Precondition("treasure staking not configured")
	}
	if amount == 0 {
		return reverts.InvalidInput("treasure amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owners := s.treasureOwners[id]
	if owners[caller] < amount {
		return reverts.Precondition("%s staked %d of treasure %d, wants %d", caller, owners[caller], id, amount)
	}
	if err := s.mine.UnstakeTreasure(s.addr, id, amount); err != nil {
		return reverts.WrapExternal(err, "unstake treasure")
	}
	if err := s.treasures.Transfer(s.addr, caller, id, amount); err != nil {
		return errors.WithMessage(err, "return treasure")
	}
	owners[caller] -= amount
	if owners[caller] == 0 {
		delete(owners, caller)
	}
	if len(owners) == 0 {
		delete(s.treasureOwners, id)
	}

	logger.Info("treasure unstaked", "hoard", caller, "id", id, "amount", amount)
	return nil
}

func (s *Staker) StakeLegion(caller hoard.Address, id uint64) error {
	if err := s.auth.Require(caller, authority.Hoard); err != nil {
		return err
	}
	if s.legions == nil {
		return reverts.Precondition("legion staking not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.legions.Transfer(caller, s.addr, id, 1); err != nil {
		return errors.WithMessage(err, "receive legion")
	}
	if err := s.mine.StakeLegion(s.addr, id); err != nil {
		if rerr := s.legions.Transfer(s.addr, caller, id, 1); rerr != nil {
			logger.Error("failed to return legion", "hoard", caller, "id", id, "err", rerr)
		}
		return reverts.WrapExternal(err, "stake legion")
	}
	s.legionOwners[id] = caller

	logger.Info("legion staked", "hoard", caller, "id", id)
	return nil
}

func (s *Staker) UnstakeLegion(caller hoard.Address, id uint64) error {
	if err := s.auth.Require(caller, authority.Hoard); err != nil {
		return err
	}
	if s.legions == nil {
		return reverts.Precondition("legion staking not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.legionOwners[id]; !ok || owner != caller {
		return reverts.Precondition("legion %d was not staked by %s", id, caller)
	}
	if err := s.mine.UnstakeLegion(s.addr, id); err != nil {
		return reverts.WrapExternal(err, "unstake legion")
	}
	if err := s.legions.Transfer(s.addr, caller, id, 1); err != nil {
		return errors.WithMessage(err, "return legion")
	}
	delete(s.legionOwners, id)

	logger.Info("legion unstaked", "hoard", caller, "id", id)
	return nil
}

//
// helpers - callers hold s.mu
//

func (s *Staker) account(addr hoard.Address) *account {
	a, ok := s.accounts[addr]
	if !ok {
		a = &account{deposits: make(map[uint64]*Deposit)}
		s.accounts[addr] = a
	}
	return a
}

func (s *Staker) deposit(addr hoard.Address, id uint64) (*Deposit, error) {
	if a, ok := s.accounts[addr]; ok {
		if d, ok := a.deposits[id]; ok {
			return d, nil
		}
	}
	return nil, reverts.Precondition("deposit %d of %s not found", id, addr)
}

func (s *Staker) requireUserPhase() error {
	if !s.window.AcceptsUserActions(s.clock.Now()) {
		return reverts.Precondition("user actions are closed during the accrual window %s", s.window)
	}
	return nil
}

// entitlement is the shaved reward of d at the current accumulator value.
func (s *Staker) entitlement(d *Deposit) *big.Int {
	return accumulator.Shave(s.acc.Pending(d.Amount, d.Debt))
}

// unstakedAfter is the unstaked balance left once principal has been paid out; withdrawals use
// unstaked funds first.
func (s *Staker) unstakedAfter(principal *big.Int) *big.Int {
	if principal.Cmp(s.unstakedPending) >= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sub(s.unstakedPending, principal)
}

// liquidity is the balance not reserved for fees or for deposits waiting to be staked.
func (s *Staker) liquidity(unstaked *big.Int) (*big.Int, error) {
	bal, err := s.base.BalanceOf(s.addr)
	if err != nil {
		return nil, err
	}
	bal.Sub(bal, s.feeReserve)
	return bal.Sub(bal, unstaked), nil
}

// pay sends amount to to, unwinding positions first if the free balance falls short. Unwinding
// is not undone when the payment later fails.
func (s *Staker) pay(to hoard.Address, amount, unstaked *big.Int) error {
	available, err := s.liquidity(unstaked)
	if err != nil {
		return err
	}
	if available.Cmp(amount) < 0 {
		if err := s.unwind(new(big.Int).Sub(amount, available)); err != nil {
			return err
		}
		if available, err = s.liquidity(unstaked); err != nil {
			return err
		}
		if available.Cmp(amount) < 0 {
			return reverts.InsufficientLiquidity("need %s, only %s available after unwinding", amount, available)
		}
	}
	if err := s.base.Transfer(s.addr, to, amount); err != nil {
		return errors.WithMessage(err, "payout")
	}
	return nil
}

// unwind frees at least target from the mine. Rewards the mine pays out along the way are kept
// for the next accrual.
func (s *Staker) unwind(target *big.Int) error {
	committed := s.ledger.TotalCommitted()
	freed, err := s.ledger.UnwindToTarget(target)
	if freed != nil {
		s.carrySideHarvest(committed, freed)
	}
	if err != nil {
		return errors.WithMessage(err, "unwind")
	}
	logger.Debug("unwound positions", "target", target, "freed", freed)
	return nil
}

// carrySideHarvest books the part of freed that was not principal.
func (s *Staker) carrySideHarvest(committedBefore, freed *big.Int) {
	principal := new(big.Int).Sub(committedBefore, s.ledger.TotalCommitted())
	if extra := new(big.Int).Sub(freed, principal); extra.Sign() > 0 {
		s.harvestCarry.Add(s.harvestCarry, extra)
	}
}

func (s *Staker) nextStakeAt() uint64 {
	if s.lastStakeAt == 0 {
		return 0
	}
	return s.lastStakeAt + s.minStakingWait
}

func bps(amount *big.Int, points uint64) *big.Int {
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(points))
	return out.Div(out, new(big.Int).SetUint64(hoard.BasisPoints))
}
