// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package keeper periodically triggers the public maintenance operations of a coordinator and a
// distributor. It holds no privileges; it calls exactly what any other caller could.
package keeper

import (
	"context"
	"math/big"
	"time"

	"github.com/vechain/hoard/health"
	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/log"
	"github.com/vechain/hoard/metrics"
	"github.com/vechain/hoard/reverts"
	"github.com/vechain/hoard/staker"
)

var (
	logger = log.WithContext("pkg", "keeper")

	metricRounds = metrics.LazyLoadCounterVec("keeper_rounds_count", []string{"task", "result"})
)

// Staker is the part of the coordinator the keeper drives.
type Staker interface {
	StakeScheduled(caller hoard.Address) (uint64, *big.Int, error)
	Accrue(caller hoard.Address, positionIDs []uint64) (*staker.AccrueResult, error)
	ActivePositionIDs() []uint64
	NextStakeAt() uint64
	UnstakedPending() *big.Int
	IsAccrualTime() bool
	MinePendingRewards() (*big.Int, error)
	HarvestCarry() *big.Int
	PendingDistribution() *big.Int
	Settings() staker.Settings
}

// Puller is the part of the distributor the keeper drives.
type Puller interface {
	PullRewards(caller hoard.Address, stash hoard.Address) (*big.Int, error)
}

type Options struct {
	// Caller is the address the keeper acts as. It collects accrual incentives and must hold
	// authority.Puller for stash pulls.
	Caller hoard.Address
	// Interval between rounds.
	Interval time.Duration
	// AccrueEvery is the minimum time between two accruals, in seconds.
	AccrueEvery uint64
	// PullEvery is the minimum time between two pulls of the same stash, in seconds.
	PullEvery uint64
	Stashes   []hoard.Address
	// Health, when set, is told about every completed round.
	Health *health.Health
}

type Keeper struct {
	staker Staker
	puller Puller
	clock  hoard.Clock
	opts   Options

	lastAccrue uint64
	lastPull   map[hoard.Address]uint64
	failures   int
}

// New creates a keeper. staker and puller may each be nil to skip their tasks.
func New(s Staker, p Puller, clock hoard.Clock, opts Options) *Keeper {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	return &Keeper{
		staker:   s,
		puller:   p,
		clock:    clock,
		opts:     opts,
		lastPull: make(map[hoard.Address]uint64),
	}
}

// Run performs a round every interval until ctx is done.
func (k *Keeper) Run(ctx context.Context) error {
	logger.Debug("enter keeper loop", "interval", k.opts.Interval)

	ticker := time.NewTicker(k.opts.Interval)
	defer func() {
		logger.Debug("leave keeper loop")
		ticker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			k.Round()
		}
	}
}

// Round runs every task that is due. Failures are logged and retried next round.
func (k *Keeper) Round() {
	k.failures = 0
	if k.staker != nil {
		k.stake()
		k.accrue()
	}
	if k.puller != nil {
		k.pull()
	}
	if k.opts.Health != nil {
		k.opts.Health.RoundDone(k.failures)
	}
}

func (k *Keeper) stake() {
	if k.staker.Settings().Paused || k.staker.UnstakedPending().Sign() == 0 {
		return
	}
	if k.clock.Now() < k.staker.NextStakeAt() {
		return
	}
	id, amount, err := k.staker.StakeScheduled(k.opts.Caller)
	if err != nil {
		k.failed("stake", err)
		return
	}
	metricRounds().AddWithLabel(1, map[string]string{"task": "stake", "result": "ok"})
	logger.Info("staked pending deposits", "position", id, "amount", amount)
}

func (k *Keeper) accrue() {
	now := k.clock.Now()
	if !k.staker.IsAccrualTime() || (k.lastAccrue != 0 && now < k.lastAccrue+k.opts.AccrueEvery) {
		return
	}
	pending, err := k.staker.MinePendingRewards()
	if err != nil {
		k.failed("accrue", err)
		return
	}
	// carried rewards are worth a round even when the mine has nothing new
	if pending.Sign() == 0 && k.staker.HarvestCarry().Sign() == 0 && k.staker.PendingDistribution().Sign() == 0 {
		return
	}
	res, err := k.staker.Accrue(k.opts.Caller, k.staker.ActivePositionIDs())
	if err != nil {
		k.failed("accrue", err)
		return
	}
	k.lastAccrue = now
	metricRounds().AddWithLabel(1, map[string]string{"task": "accrue", "result": "ok"})
	logger.Info("accrued", "harvested", res.Harvested, "distributed", res.Distributed, "incentive", res.Incentive)
}

func (k *Keeper) pull() {
	now := k.clock.Now()
	for _, s := range k.opts.Stashes {
		if last, ok := k.lastPull[s]; ok && now < last+k.opts.PullEvery {
			continue
		}
		amount, err := k.puller.PullRewards(k.opts.Caller, s)
		if err != nil {
			k.failed("pull", err)
			continue
		}
		k.lastPull[s] = now
		metricRounds().AddWithLabel(1, map[string]string{"task": "pull", "result": "ok"})
		logger.Debug("pulled rewards", "stash", s, "amount", amount)
	}
}

func (k *Keeper) failed(task string, err error) {
	k.failures++
	metricRounds().AddWithLabel(1, map[string]string{"task": task, "result": "error"})
	if reverts.IsRevertErr(err) {
		logger.Debug("keeper task reverted", "task", task, "kind", reverts.KindOf(err), "err", err)
		return
	}
	logger.Warn("keeper task failed", "task", task, "err", err)
}
