// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/vechain/hoard/api"
	"github.com/vechain/hoard/api/stashes"
	"github.com/vechain/hoard/authority"
	"github.com/vechain/hoard/distributor"
	"github.com/vechain/hoard/health"
	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/keeper"
	"github.com/vechain/hoard/kv"
	"github.com/vechain/hoard/mine"
	"github.com/vechain/hoard/staker"
	"github.com/vechain/hoard/stash"
	"github.com/vechain/hoard/token"
)

var (
	metaBucket = kv.Bucket("m/")
	// genesisKey marks a store whose genesis balances were already minted.
	genesisKey = []byte("genesis")
)

// node is every component built from a config, not yet serving.
type node struct {
	bank        *token.Bank
	auth        *authority.Table
	mine        *mine.Sim
	staker      *staker.Staker
	distributor *distributor.Distributor
	stashes     []stashes.Source
	pulled      []hoard.Address
	keeper      *keeper.Keeper
	health      *health.Health
}

func newNode(cfg *Config, store kv.Store, clock hoard.Clock) (*node, error) {
	bank := token.NewBank(store)
	base := bank.Ledger(cfg.Tokens.Base)
	reward := bank.Ledger(cfg.Tokens.Reward)

	var treasures, legions token.Items
	if cfg.Tokens.Treasures != "" {
		treasures = bank.Collection(cfg.Tokens.Treasures)
	}
	if cfg.Tokens.Legions != "" {
		legions = bank.Collection(cfg.Tokens.Legions)
	}

	owner := mustPrincipal(cfg.Owner)
	auth := authority.New()
	auth.Grant(owner, authority.Owner)
	auth.Grant(owner, authority.StreamAdmin)
	if cfg.StreamAdmin != "" {
		auth.Grant(mustPrincipal(cfg.StreamAdmin), authority.StreamAdmin)
	}
	for _, h := range cfg.Hoards {
		auth.Grant(mustPrincipal(h), authority.Hoard)
	}

	emission := new(big.Int)
	if cfg.Mine.Emission != nil {
		emission = (*big.Int)(cfg.Mine.Emission)
	}
	sim := mine.NewSim(base, treasures, legions, clock, emission)

	st, err := staker.New(cfg.Staker.Name, staker.Config{
		Lock:           cfg.Staker.Lock,
		FeeBPS:         cfg.Staker.FeeBPS,
		IncentiveBPS:   cfg.Staker.IncentiveBPS,
		MinStakingWait: uint64(cfg.Staker.MinStakingWait / time.Second),
		Windows:        cfg.Staker.Windows,
	}, base, sim, treasures, legions, auth, clock)
	if err != nil {
		return nil, errors.WithMessage(err, "create staker")
	}

	dist := distributor.New(cfg.Distributor.Name, reward, auth)
	for _, p := range cfg.Distributor.Pools {
		if _, err := dist.AddPool(owner, p.Weight, bank.Ledger(p.Token), nil); err != nil {
			return nil, errors.WithMessagef(err, "add pool %s", p.Token)
		}
	}

	n := &node{
		bank:        bank,
		auth:        auth,
		mine:        sim,
		staker:      st,
		distributor: dist,
	}
	for _, sc := range cfg.Distributor.Stashes {
		var s interface {
			distributor.Stash
			stashes.Source
		}
		switch sc.Kind {
		case stashLump:
			s = stash.NewLump(sc.Name, reward, dist.Address(), auth)
		case stashStreaming:
			s = stash.NewStreaming(sc.Name, reward, dist.Address(), auth, clock)
		default:
			return nil, errors.Errorf("stash %s: unknown kind %q", sc.Name, sc.Kind)
		}
		if err := dist.AddStash(owner, s); err != nil {
			return nil, errors.WithMessagef(err, "add stash %s", sc.Name)
		}
		n.stashes = append(n.stashes, s)
		n.pulled = append(n.pulled, s.Address())
	}

	if err := mintGenesis(cfg, store, bank); err != nil {
		return nil, err
	}

	n.health = health.New(3 * keeperInterval(cfg))
	var keeperCaller hoard.Address
	if cfg.Keeper.Caller != "" {
		keeperCaller = mustPrincipal(cfg.Keeper.Caller)
		auth.Grant(keeperCaller, authority.Puller)
	}
	n.keeper = keeper.New(st, dist, clock, keeper.Options{
		Caller:      keeperCaller,
		Interval:    keeperInterval(cfg),
		AccrueEvery: uint64(cfg.Keeper.AccrueEvery / time.Second),
		PullEvery:   uint64(cfg.Keeper.PullEvery / time.Second),
		Stashes:     n.pulled,
		Health:      n.health,
	})
	return n, nil
}

// services is what the API exposes of the node.
func (n *node) services() api.Services {
	return api.Services{
		Bank:        n.bank,
		Staker:      n.staker,
		Distributor: n.distributor,
		Stashes:     n.stashes,
	}
}

// mintGenesis credits the configured balances once per store.
func mintGenesis(cfg *Config, store kv.Store, bank *token.Bank) error {
	meta := metaBucket.NewStore(store)
	minted, err := meta.Has(genesisKey)
	if err != nil {
		return errors.Wrap(err, "read genesis marker")
	}
	if minted {
		logger.Info("genesis balances already minted, skipping")
		return nil
	}
	for _, g := range cfg.Genesis {
		to := mustPrincipal(g.Address)
		if err := bank.Ledger(g.Token).Mint(to, (*big.Int)(g.Amount)); err != nil {
			return errors.WithMessagef(err, "mint %s to %s", g.Token, g.Address)
		}
		logger.Debug("minted genesis balance", "token", g.Token, "to", to, "amount", (*big.Int)(g.Amount))
	}
	return errors.Wrap(meta.Put(genesisKey, []byte{1}), "write genesis marker")
}

func keeperInterval(cfg *Config) time.Duration {
	if cfg.Keeper.Interval <= 0 {
		return time.Minute
	}
	return cfg.Keeper.Interval
}
