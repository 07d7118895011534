// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mine

import (
	"math/big"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/vechain/hoard/accumulator"
	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/log"
	"github.com/vechain/hoard/reverts"
	"github.com/vechain/hoard/token"
)

var logger = log.WithContext("pkg", "mine")

const (
	TreasureBoostBPS uint64 = 100
	LegionBoostBPS   uint64 = 1_000
	MaxTreasures     uint64 = 20
	MaxLegions              = 3
)

var emissionScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Minter is a token the simulation can create rewards in.
type Minter interface {
	token.Token
	Mint(to hoard.Address, amount *big.Int) error
}

var _ Mine = (*Sim)(nil)

// Sim is an in-process custodian. A fixed emission per second is shared across all open positions
// by weight, where a position's weight is its amount boosted by its lock mode and by the NFTs its
// holder has staked. Rewards are minted in the base token.
type Sim struct {
	mu        sync.Mutex
	addr      hoard.Address
	base      Minter
	treasures token.Items
	legions   token.Items
	clock     hoard.Clock

	emission    *big.Int
	acc         *accumulator.Accumulator
	totalWeight *big.Int
	lastUpdate  uint64
	unlockAll   bool

	accounts map[hoard.Address]*account
}

type position struct {
	amount   *big.Int
	lock     Lock
	unlockAt uint64
	weight   *big.Int
	debt     *big.Int
	owed     *big.Int
}

type account struct {
	nextID    uint64
	positions map[uint64]*position
	treasures map[uint64]uint64
	treasureN uint64
	legions   map[uint64]struct{}
}

// NewSim creates a custodian emitting emission base units per second. treasures and legions may be
// nil, in which case boost staking is refused.
func NewSim(base Minter, treasures, legions token.Items, clock hoard.Clock, emission *big.Int) *Sim {
	if emission == nil {
		emission = new(big.Int)
	}
	return &Sim{
		addr:        hoard.NamedAddress("mine"),
		base:        base,
		treasures:   treasures,
		legions:     legions,
		clock:       clock,
		emission:    new(big.Int).Set(emission),
		acc:         accumulator.New(emissionScale),
		totalWeight: new(big.Int),
		lastUpdate:  clock.Now(),
		accounts:    make(map[hoard.Address]*account),
	}
}

func (s *Sim) Address() hoard.Address {
	return s.addr
}

// SetEmission changes the per second emission from now on.
func (s *Sim) SetEmission(emission *big.Int) error {
	if emission == nil || emission.Sign() < 0 {
		return reverts.InvalidInput("emission must not be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.update()
	s.emission = new(big.Int).Set(emission)
	logger.Info("mine emission changed", "perSecond", emission)
	return nil
}

// SetUnlockAll lifts (or restores) every lock.
func (s *Sim) SetUnlockAll(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unlockAll = v
}

func (s *Sim) UnlockAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.unlockAll
}

func (s *Sim) LockDuration(lock Lock) uint64 {
	return lock.Duration()
}

func (s *Sim) Deposit(holder hoard.Address, amount *big.Int, lock Lock) (uint64, error) {
	if !lock.Valid() {
		return 0, reverts.InvalidInput("invalid lock mode %d", lock)
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, reverts.InvalidInput("deposit amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.update()
	if err := s.base.Transfer(holder, s.addr, amount); err != nil {
		return 0, errors.WithMessage(err, "mine deposit")
	}

	a := s.account(holder)
	id := a.nextID
	a.nextID++
	p := &position{
		amount:   new(big.Int).Set(amount),
		lock:     lock,
		unlockAt: s.clock.Now() + lock.Duration(),
		weight:   new(big.Int),
		debt:     new(big.Int),
		owed:     new(big.Int),
	}
	a.positions[id] = p
	s.reweigh(a, p)

	logger.Debug("mine deposit", "holder", holder, "id", id, "amount", amount, "lock", lock)
	return id, nil
}

func (s *Sim) Withdraw(holder hoard.Address, id uint64, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.InvalidInput("withdraw amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.update()
	a, p, err := s.position(holder, id)
	if err != nil {
		return err
	}
	if p.amount.Sign() == 0 {
		return reverts.Precondition("position %d already withdrawn", id)
	}
	if !s.unlockAll && s.clock.Now() < p.unlockAt {
		return reverts.Precondition("position %d locked until %d", id, p.unlockAt)
	}

	amt := amount
	if amt.Cmp(p.amount) > 0 {
		amt = p.amount
	}
	if err := s.base.Transfer(s.addr, holder, amt); err != nil {
		return errors.WithMessage(err, "mine withdraw")
	}
	p.amount = new(big.Int).Sub(p.amount, amt)
	s.reweigh(a, p)

	// withdrawals always harvest
	return s.pay(holder, p)
}

func (s *Sim) Harvest(holder hoard.Address, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.update()
	_, p, err := s.position(holder, id)
	if err != nil {
		return err
	}
	if p.amount.Sign() == 0 {
		return errors.Wrapf(ErrStalePosition, "harvest position %d of %s", id, holder)
	}
	s.settle(p)
	return s.pay(holder, p)
}

func (s *Sim) PositionAmount(holder hoard.Address, id uint64) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, p, err := s.position(holder, id)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(p.amount), nil
}

// PendingRewardsAll sums what harvesting every position of holder would pay right now.
func (s *Sim) PendingRewardsAll(holder hoard.Address) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[holder]
	if !ok || len(a.positions) == 0 || s.totalWeight.Sign() == 0 {
		return nil, ErrNoPositions
	}

	acc := s.acc.Value()
	if now := s.clock.Now(); now > s.lastUpdate {
		emitted := new(big.Int).Mul(s.emission, new(big.Int).SetUint64(now-s.lastUpdate))
		acc = s.acc.Preview(emitted, s.totalWeight)
	}
	total := new(big.Int)
	for _, p := range a.positions {
		total.Add(total, p.owed)
		total.Add(total, accumulator.Pending(p.weight, p.debt, acc, emissionScale))
	}
	return total, nil
}

func (s *Sim) StakeTreasure(holder hoard.Address, id uint64, amount uint64) error {
	if s.treasures == nil {
		return reverts.Precondition("treasure staking not supported")
	}
	if amount == 0 {
		return reverts.InvalidInput("treasure amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.account(holder)
	if a.treasureN+amount > MaxTreasures {
		return reverts.Precondition("at most %d treasures may be staked", MaxTreasures)
	}
	s.update()
	if err := s.treasures.Transfer(holder, s.addr, id, amount); err != nil {
		return errors.WithMessage(err, "stake treasure")
	}
	a.treasures[id] += amount
	a.treasureN += amount
	s.reweighAll(a)
	return nil
}

func (s *Sim) UnstakeTreasure(holder hoard.Address, id uint64, amount uint64) error {
	if s.treasures == nil {
		return reverts.Precondition("treasure staking not supported")
	}
	if amount == 0 {
		return reverts.InvalidInput("treasure amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.account(holder)
	if a.treasures[id] < amount {
		return reverts.Precondition("%s staked %d of treasure %d, wants %d", holder, a.treasures[id], id, amount)
	}
	s.update()
	if err := s.treasures.Transfer(s.addr, holder, id, amount); err != nil {
		return errors.WithMessage(err, "unstake treasure")
	}
	a.treasures[id] -= amount
	if a.treasures[id] == 0 {
		delete(a.treasures, id)
	}
	a.treasureN -= amount
	s.reweighAll(a)
	return nil
}

func (s *Sim) StakeLegion(holder hoard.Address, id uint64) error {
	if s.legions == nil {
		return reverts.Precondition("legion staking not supported")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.account(holder)
	if len(a.legions) >= MaxLegions {
		return reverts.Precondition("at most %d legions may be staked", MaxLegions)
	}
	s.update()
	if err := s.legions.Transfer(holder, s.addr, id, 1); err != nil {
		return errors.WithMessage(err, "stake legion")
	}
	a.legions[id] = struct{}{}
	s.reweighAll(a)
	return nil
}

func (s *Sim) UnstakeLegion(holder hoard.Address, id uint64) error {
	if s.legions == nil {
		return reverts.Precondition("legion staking not supported")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.account(holder)
	if _, ok := a.legions[id]; !ok {
		return reverts.Precondition("legion %d not staked by %s", id, holder)
	}
	s.update()
	if err := s.legions.Transfer(s.addr, holder, id, 1); err != nil {
		return errors.WithMessage(err, "unstake legion")
	}
	delete(a.legions, id)
	s.reweighAll(a)
	return nil
}

// BoostBPS is the NFT boost currently applied to every position of holder, in basis points.
func (s *Sim) BoostBPS(holder hoard.Address) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[holder]
	if !ok {
		return 0
	}
	return a.boostBPS()
}

// PositionIDs lists the ids ever issued to holder, in issue order.
func (s *Sim) PositionIDs(holder hoard.Address) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[holder]
	if !ok {
		return nil
	}
	ids := make([]uint64, 0, len(a.positions))
	for id := range a.positions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Sim) account(holder hoard.Address) *account {
	a, ok := s.accounts[holder]
	if !ok {
		a = &account{
			positions: make(map[uint64]*position),
			treasures: make(map[uint64]uint64),
			legions:   make(map[uint64]struct{}),
		}
		s.accounts[holder] = a
	}
	return a
}

func (s *Sim) position(holder hoard.Address, id uint64) (*account, *position, error) {
	a, ok := s.accounts[holder]
	if !ok {
		return nil, nil, reverts.Precondition("%s has no position %d", holder, id)
	}
	p, ok := a.positions[id]
	if !ok {
		return nil, nil, reverts.Precondition("%s has no position %d", holder, id)
	}
	return a, p, nil
}

// update credits emissions since the last update to the accumulator. Emissions while nothing is
// staked are lost.
func (s *Sim) update() {
	now := s.clock.Now()
	if now <= s.lastUpdate {
		return
	}
	emitted := new(big.Int).Mul(s.emission, new(big.Int).SetUint64(now-s.lastUpdate))
	s.acc.Distribute(emitted, s.totalWeight)
	s.lastUpdate = now
}

func (s *Sim) settle(p *position) {
	if pending := s.acc.Pending(p.weight, p.debt); pending.Sign() > 0 {
		p.owed.Add(p.owed, pending)
	}
	p.debt = s.acc.Debt(p.weight)
}

// reweigh settles p and recomputes its weight with the holder's current boosts.
func (s *Sim) reweigh(a *account, p *position) {
	s.settle(p)
	s.totalWeight.Sub(s.totalWeight, p.weight)

	bps := hoard.BasisPoints + p.lock.BoostBPS() + a.boostBPS()
	w := new(big.Int).Mul(p.amount, new(big.Int).SetUint64(bps))
	p.weight = w.Div(w, new(big.Int).SetUint64(hoard.BasisPoints))

	s.totalWeight.Add(s.totalWeight, p.weight)
	p.debt = s.acc.Debt(p.weight)
}

func (s *Sim) reweighAll(a *account) {
	for _, p := range a.positions {
		s.reweigh(a, p)
	}
}

func (s *Sim) pay(holder hoard.Address, p *position) error {
	if p.owed.Sign() == 0 {
		return nil
	}
	if err := s.base.Mint(holder, p.owed); err != nil {
		return errors.WithMessage(err, "mine reward")
	}
	logger.Debug("mine harvest", "holder", holder, "amount", p.owed)
	p.owed = new(big.Int)
	return nil
}

func (a *account) boostBPS() uint64 {
	return a.treasureN*TreasureBoostBPS + uint64(len(a.legions))*LegionBoostBPS
}
