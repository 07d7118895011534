// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledger tracks the positions a holder has committed to the mine.
//
// Positions are appended in creation order, which is also unlock order since the lock mode is
// fixed per ledger. Unwinding always drains the oldest unlocked position first, so every position
// before the first non-empty one is empty. The ledger relies on this: nextActive only moves forward
// and positions behind it are never read again. A custodian that allowed positions to be drained
// out of order would leave non-empty positions behind the pointer, and TotalCommitted would
// under-count them.
package ledger

import (
	"math/big"

	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/log"
	"github.com/vechain/hoard/metrics"
	"github.com/vechain/hoard/mine"
	"github.com/vechain/hoard/reverts"
	"github.com/vechain/hoard/token"
)

var (
	logger = log.WithContext("pkg", "ledger")

	metricUnwinds   = metrics.LazyLoadCounter("ledger_unwinds_count")
	metricUnwound   = metrics.LazyLoadCounter("ledger_positions_unwound_count")
	metricCommitted = metrics.LazyLoadGauge("ledger_committed_positions_gauge")
)

// Position is one commitment to the mine.
type Position struct {
	ID       uint64   `json:"id"`
	Amount   *big.Int `json:"amount"`
	UnlockAt uint64   `json:"unlockAt"`
}

func (p *Position) clone() Position {
	return Position{ID: p.ID, Amount: new(big.Int).Set(p.Amount), UnlockAt: p.UnlockAt}
}

// Ledger is owned by a single coordinator and is not safe for concurrent use.
type Ledger struct {
	mine   mine.Mine
	base   token.Token
	holder hoard.Address
	lock   mine.Lock
	clock  hoard.Clock

	positions  []*Position
	nextActive int
}

// New creates an empty ledger for positions held by holder.
func New(m mine.Mine, base token.Token, holder hoard.Address, lock mine.Lock, clock hoard.Clock) *Ledger {
	return &Ledger{
		mine:   m,
		base:   base,
		holder: holder,
		lock:   lock,
		clock:  clock,
	}
}

// Commit deposits amount into the mine as a new position.
func (l *Ledger) Commit(amount *big.Int) (uint64, error) {
	if amount == nil || amount.Sign() <= 0 {
		return 0, reverts.InvalidInput("nothing to commit")
	}
	unlockAt := l.clock.Now() + l.mine.LockDuration(l.lock)
	id, err := l.mine.Deposit(l.holder, amount, l.lock)
	if err != nil {
		return 0, reverts.WrapExternal(err, "commit position")
	}
	l.positions = append(l.positions, &Position{
		ID:       id,
		Amount:   new(big.Int).Set(amount),
		UnlockAt: unlockAt,
	})
	metricCommitted().Set(int64(len(l.positions) - l.nextActive))

	logger.Debug("position committed", "id", id, "amount", amount, "unlockAt", unlockAt)
	return id, nil
}

// RetireSettled refreshes positions from nextActive onward with the mine's current amounts and
// advances nextActive past every leading empty position.
func (l *Ledger) RetireSettled() error {
	for l.nextActive < len(l.positions) {
		p := l.positions[l.nextActive]
		amount, err := l.mine.PositionAmount(l.holder, p.ID)
		if err != nil {
			return reverts.WrapExternal(err, "query position %d", p.ID)
		}
		p.Amount = amount
		if amount.Sign() != 0 {
			break
		}
		l.nextActive++
	}
	metricCommitted().Set(int64(len(l.positions) - l.nextActive))
	return nil
}

// UnwindToTarget withdraws from unlocked positions, oldest first, until at least target has been
// freed. Freed liquidity is measured as the change in the holder's base token balance, which
// includes any rewards the mine pays out as a side effect.
//
// It fails without touching the mine when the unlocked positions cannot cover target. Withdrawals
// that did happen are not undone if a later one fails: the positions are refreshed and the
// liquidity freed so far is returned along with the error.
func (l *Ledger) UnwindToTarget(target *big.Int) (*big.Int, error) {
	freed := new(big.Int)
	if target == nil || target.Sign() <= 0 {
		return freed, nil
	}

	unlocked, err := l.unlocked()
	if err != nil {
		return nil, err
	}
	reachable := new(big.Int)
	for _, p := range unlocked {
		reachable.Add(reachable, p.Amount)
	}
	if reachable.Cmp(target) < 0 {
		return nil, reverts.InsufficientLiquidity("cannot free %s from unlocked positions holding %s", target, reachable)
	}

	metricUnwinds().Add(1)
	for _, p := range unlocked {
		if freed.Cmp(target) >= 0 {
			break
		}
		need := new(big.Int).Sub(target, freed)
		if need.Cmp(p.Amount) > 0 {
			need.Set(p.Amount)
		}

		before, err := l.base.BalanceOf(l.holder)
		if err != nil {
			return freed, l.abort(err)
		}
		if err := l.mine.Withdraw(l.holder, p.ID, need); err != nil {
			return freed, l.abort(reverts.WrapExternal(err, "unwind position %d", p.ID))
		}
		p.Amount = new(big.Int).Sub(p.Amount, need)
		after, err := l.base.BalanceOf(l.holder)
		if err != nil {
			return freed, l.abort(err)
		}
		freed.Add(freed, after.Sub(after, before))
		metricUnwound().Add(1)

		logger.Debug("position unwound", "id", p.ID, "requested", need, "freed", freed)
	}

	if err := l.RetireSettled(); err != nil {
		return freed, err
	}
	if freed.Cmp(target) < 0 {
		return freed, reverts.InsufficientLiquidity("freed %s of %s", freed, target)
	}
	return freed, nil
}

// UnwindAll withdraws every unlocked position in full and returns the freed liquidity. With
// requireAll set it fails, before touching the mine, if any position is still locked. A withdrawal
// failing partway returns what the earlier ones freed along with the error.
func (l *Ledger) UnwindAll(requireAll bool) (*big.Int, error) {
	unlocked, err := l.unlocked()
	if err != nil {
		return nil, err
	}
	if requireAll {
		for _, p := range l.positions[l.nextActive:] {
			if p.Amount.Sign() != 0 && !l.isUnlocked(p) {
				return nil, reverts.Precondition("position %d locked until %d", p.ID, p.UnlockAt)
			}
		}
	}

	before, err := l.base.BalanceOf(l.holder)
	if err != nil {
		return nil, err
	}
	var failed error
	for _, p := range unlocked {
		if err := l.mine.Withdraw(l.holder, p.ID, p.Amount); err != nil {
			failed = reverts.WrapExternal(err, "unwind position %d", p.ID)
			break
		}
		p.Amount = new(big.Int)
		metricUnwound().Add(1)
	}
	after, err := l.base.BalanceOf(l.holder)
	if err != nil {
		if failed == nil {
			failed = err
		}
		return new(big.Int), l.abort(failed)
	}
	freed := after.Sub(after, before)
	if failed != nil {
		return freed, l.abort(failed)
	}
	if err := l.RetireSettled(); err != nil {
		return freed, err
	}
	return freed, nil
}

// abort refreshes the positions after a failed unwind so the local amounts keep mirroring the mine,
// then hands back cause.
func (l *Ledger) abort(cause error) error {
	if err := l.RetireSettled(); err != nil {
		logger.Warn("failed to refresh positions after unwind error", "err", err)
	}
	logger.Warn("unwind stopped partway", "err", cause, "committed", l.TotalCommitted())
	return cause
}

// unlocked refreshes the active positions and returns the leading run of non-empty positions whose
// lock has expired. A locked position ends the run since every later one unlocks later.
func (l *Ledger) unlocked() ([]*Position, error) {
	if err := l.RetireSettled(); err != nil {
		return nil, err
	}
	var out []*Position
	for _, p := range l.positions[l.nextActive:] {
		if !l.isUnlocked(p) {
			break
		}
		amount, err := l.mine.PositionAmount(l.holder, p.ID)
		if err != nil {
			return nil, reverts.WrapExternal(err, "query position %d", p.ID)
		}
		p.Amount = amount
		if amount.Sign() != 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (l *Ledger) isUnlocked(p *Position) bool {
	return l.mine.UnlockAll() || l.clock.Now() >= p.UnlockAt
}

//
// Getters - no state change
//

// TotalCommitted sums the last known amounts from nextActive onward.
func (l *Ledger) TotalCommitted() *big.Int {
	total := new(big.Int)
	for _, p := range l.positions[l.nextActive:] {
		total.Add(total, p.Amount)
	}
	return total
}

// Positions returns copies of every position ever committed.
func (l *Ledger) Positions() []Position {
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p.clone())
	}
	return out
}

// ActivePositionIDs returns the mine ids from nextActive onward.
func (l *Ledger) ActivePositionIDs() []uint64 {
	ids := make([]uint64, 0, len(l.positions)-l.nextActive)
	for _, p := range l.positions[l.nextActive:] {
		ids = append(ids, p.ID)
	}
	return ids
}

func (l *Ledger) NextActive() int {
	return l.nextActive
}

func (l *Ledger) Lock() mine.Lock {
	return l.lock
}
