// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/mine"
	"github.com/vechain/hoard/window"
)

const (
	stashLump      = "lump"
	stashStreaming = "streaming"
)

// Config is the node's config file.
type Config struct {
	// Principals are either 0x-prefixed hex addresses or names, which map to hoard.NamedAddress.
	Owner       string   `yaml:"owner"`
	StreamAdmin string   `yaml:"streamAdmin"`
	Hoards      []string `yaml:"hoards"`

	Tokens      TokensConfig      `yaml:"tokens"`
	Mine        MineConfig        `yaml:"mine"`
	Staker      StakerConfig      `yaml:"staker"`
	Distributor DistributorConfig `yaml:"distributor"`
	Keeper      KeeperConfig      `yaml:"keeper"`
	Genesis     []GenesisBalance  `yaml:"genesis"`
}

type TokensConfig struct {
	Base      string `yaml:"base"`
	Reward    string `yaml:"reward"`
	Treasures string `yaml:"treasures"`
	Legions   string `yaml:"legions"`
}

type MineConfig struct {
	// Emission is minted per second across all open positions.
	Emission *math.HexOrDecimal256 `yaml:"emission"`
}

type StakerConfig struct {
	Name           string        `yaml:"name"`
	Lock           mine.Lock     `yaml:"lock"`
	FeeBPS         uint64        `yaml:"feeBps"`
	IncentiveBPS   uint64        `yaml:"incentiveBps"`
	MinStakingWait time.Duration `yaml:"minStakingWait"`
	Windows        []uint8       `yaml:"windows"`
}

type DistributorConfig struct {
	Name    string        `yaml:"name"`
	Pools   []PoolConfig  `yaml:"pools"`
	Stashes []StashConfig `yaml:"stashes"`
}

type PoolConfig struct {
	Token  string `yaml:"token"`
	Weight uint64 `yaml:"weight"`
}

type StashConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

type KeeperConfig struct {
	Caller      string        `yaml:"caller"`
	Interval    time.Duration `yaml:"interval"`
	AccrueEvery time.Duration `yaml:"accrueEvery"`
	PullEvery   time.Duration `yaml:"pullEvery"`
}

// GenesisBalance is minted into a fresh store.
type GenesisBalance struct {
	Address string                `yaml:"address"`
	Token   string                `yaml:"token"`
	Amount  *math.HexOrDecimal256 `yaml:"amount"`
}

func defaultConfig() *Config {
	return &Config{
		Owner:  "owner",
		Keeper: KeeperConfig{Caller: "keeper", Interval: time.Minute},
		Tokens: TokensConfig{
			Base:      "MAGIC",
			Reward:    "MAGIC",
			Treasures: "treasures",
			Legions:   "legions",
		},
		Staker: StakerConfig{
			Name:           "main",
			Lock:           mine.LockTwoWeeks,
			MinStakingWait: time.Duration(hoard.DefaultMinStakingWait) * time.Second,
		},
		Distributor: DistributorConfig{Name: "main"},
	}
}

// loadConfig reads path over the defaults. Unknown keys are rejected.
func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer f.Close()

	cfg := defaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.WithMessagef(err, "config %s", path)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := parsePrincipal(c.Owner); err != nil {
		return errors.WithMessage(err, "owner")
	}
	for _, p := range append([]string{c.StreamAdmin, c.Keeper.Caller}, c.Hoards...) {
		if p == "" {
			continue
		}
		if _, err := parsePrincipal(p); err != nil {
			return err
		}
	}
	if c.Tokens.Base == "" || c.Tokens.Reward == "" {
		return errors.New("tokens: base and reward symbols are required")
	}
	if !c.Staker.Lock.Valid() {
		return errors.Errorf("staker: invalid lock %v", c.Staker.Lock)
	}
	if c.Staker.FeeBPS > hoard.MaxFeeBPS {
		return errors.Errorf("staker: feeBps %d above %d", c.Staker.FeeBPS, hoard.MaxFeeBPS)
	}
	if c.Staker.IncentiveBPS > hoard.MaxIncentiveBPS {
		return errors.Errorf("staker: incentiveBps %d above %d", c.Staker.IncentiveBPS, hoard.MaxIncentiveBPS)
	}
	if c.Staker.MinStakingWait < 0 {
		return errors.New("staker: negative minStakingWait")
	}
	if _, err := window.New(c.Staker.Windows); err != nil {
		return errors.WithMessage(err, "staker: windows")
	}
	if c.Mine.Emission != nil && (*big.Int)(c.Mine.Emission).Sign() < 0 {
		return errors.New("mine: negative emission")
	}

	seen := make(map[string]bool)
	for i, p := range c.Distributor.Pools {
		if p.Token == "" {
			return errors.Errorf("distributor: pool %d has no token", i)
		}
		if p.Token == c.Tokens.Reward {
			return errors.Errorf("distributor: pool %d stakes the reward token", i)
		}
		if seen[p.Token] {
			return errors.Errorf("distributor: token %s pooled twice", p.Token)
		}
		seen[p.Token] = true
	}
	names := make(map[string]bool)
	for _, s := range c.Distributor.Stashes {
		if s.Name == "" {
			return errors.New("distributor: stash without name")
		}
		if names[s.Name] {
			return errors.Errorf("distributor: stash %s declared twice", s.Name)
		}
		names[s.Name] = true
		if s.Kind != stashLump && s.Kind != stashStreaming {
			return errors.Errorf("distributor: stash %s has unknown kind %q", s.Name, s.Kind)
		}
	}

	for i, g := range c.Genesis {
		if _, err := parsePrincipal(g.Address); err != nil {
			return errors.WithMessagef(err, "genesis %d", i)
		}
		if g.Token == "" || g.Amount == nil || (*big.Int)(g.Amount).Sign() <= 0 {
			return errors.Errorf("genesis %d: token and positive amount required", i)
		}
	}
	return nil
}

// parsePrincipal resolves a config principal. Hex strings are taken as is, anything else is a name.
func parsePrincipal(s string) (hoard.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return hoard.Address{}, errors.New("empty principal")
	}
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		addr, err := hoard.ParseAddress(s)
		if err != nil {
			return hoard.Address{}, errors.Wrapf(err, "principal %s", s)
		}
		return *addr, nil
	}
	return hoard.NamedAddress(s), nil
}

func mustPrincipal(s string) hoard.Address {
	addr, err := parsePrincipal(s)
	if err != nil {
		panic(err)
	}
	return addr
}
