// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stash implements reward sources the distributor pulls from.
package stash

import (
	"math/big"
	"sync"

	"github.com/pkg/errors"

	"github.com/vechain/hoard/authority"
	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/log"
	"github.com/vechain/hoard/metrics"
	"github.com/vechain/hoard/reverts"
	"github.com/vechain/hoard/token"
)

var (
	logger = log.WithContext("pkg", "stash")

	metricPayouts = metrics.LazyLoadCounterVec("stash_payouts_count", []string{"kind"})
)

const (
	KindLump      = "lump"
	KindStreaming = "streaming"
)

// base is what both stash kinds share: an address holding the reward token, a single recipient
// and an owner allowed to rescue stray assets.
type base struct {
	mu        sync.Mutex
	name      string
	addr      hoard.Address
	reward    token.Token
	recipient hoard.Address
	auth      *authority.Table
}

func newBase(kind, name string, reward token.Token, recipient hoard.Address, auth *authority.Table) base {
	return base{
		name:      name,
		addr:      hoard.NamedAddress("stash:" + kind + ":" + name),
		reward:    reward,
		recipient: recipient,
		auth:      auth,
	}
}

func (b *base) Address() hoard.Address {
	return b.addr
}

func (b *base) Name() string {
	return b.name
}

// Recipient is the address every payout goes to.
func (b *base) Recipient() hoard.Address {
	return b.recipient
}

// Rescue sends a stray asset held by the stash to to. The reward token is protected.
func (b *base) Rescue(caller hoard.Address, t token.Token, to hoard.Address, amount *big.Int) error {
	if err := b.auth.Require(caller, authority.Owner); err != nil {
		return err
	}
	if t.Address() == b.reward.Address() {
		return reverts.InvalidInput("cannot rescue the reward token")
	}
	if amount == nil || amount.Sign() <= 0 {
		return reverts.InvalidInput("rescue amount must be positive")
	}
	if err := t.Transfer(b.addr, to, amount); err != nil {
		return errors.WithMessage(err, "rescue")
	}
	logger.Info("stash rescue", "stash", b.name, "token", t.Address(), "to", to, "amount", amount)
	return nil
}

func (b *base) balance() (*big.Int, error) {
	return b.reward.BalanceOf(b.addr)
}

// Lump pays out its whole reward balance on every request.
type Lump struct {
	base
}

func NewLump(name string, reward token.Token, recipient hoard.Address, auth *authority.Table) *Lump {
	return &Lump{base: newBase(KindLump, name, reward, recipient, auth)}
}

func (l *Lump) Kind() string {
	return KindLump
}

func (l *Lump) RequestPayout() (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	amount, err := token.TransferAll(l.reward, l.addr, l.recipient)
	if err != nil {
		return nil, errors.WithMessage(err, "lump payout")
	}
	metricPayouts().AddWithLabel(1, map[string]string{"kind": KindLump})
	logger.Debug("lump payout", "stash", l.name, "amount", amount)
	return amount, nil
}

func (l *Lump) PendingPayout() (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balance()
}

// Streaming releases its reward balance linearly. Holders of authority.StreamAdmin start and stop
// streams; leftovers of a stopped stream go back to whoever stopped it.
type Streaming struct {
	base
	stream *Stream
}

func NewStreaming(name string, reward token.Token, recipient hoard.Address, auth *authority.Table, clock hoard.Clock) *Streaming {
	return &Streaming{
		base:   newBase(KindStreaming, name, reward, recipient, auth),
		stream: NewStream(clock),
	}
}

func (s *Streaming) Kind() string {
	return KindStreaming
}

// Start streams amount over duration seconds. The stash must already hold amount on top of
// anything a running stream still owes.
func (s *Streaming) Start(caller hoard.Address, amount *big.Int, duration uint64) error {
	if err := s.auth.Require(caller, authority.StreamAdmin); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	available, err := s.balance()
	if err != nil {
		return err
	}
	if err := s.stream.Start(amount, duration, available); err != nil {
		return err
	}
	logger.Info("stream started", "stash", s.name, "amount", amount, "duration", duration)
	return nil
}

// Stop ends the running stream and sends the unreleased remainder to caller.
func (s *Streaming) Stop(caller hoard.Address) (*big.Int, error) {
	if err := s.auth.Require(caller, authority.StreamAdmin); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := *s.stream
	leftover, err := s.stream.Stop()
	if err != nil {
		return nil, err
	}
	if leftover.Sign() > 0 {
		if err := s.reward.Transfer(s.addr, caller, leftover); err != nil {
			*s.stream = snapshot
			return nil, errors.WithMessage(err, "return stream leftover")
		}
	}
	logger.Info("stream stopped", "stash", s.name, "leftover", leftover)
	return leftover, nil
}

func (s *Streaming) RequestPayout() (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := *s.stream
	amount, err := s.stream.Pull()
	if err != nil {
		return nil, err
	}
	if amount.Sign() > 0 {
		if err := s.reward.Transfer(s.addr, s.recipient, amount); err != nil {
			*s.stream = snapshot
			return nil, errors.WithMessage(err, "stream payout")
		}
	}
	metricPayouts().AddWithLabel(1, map[string]string{"kind": KindStreaming})
	logger.Debug("stream payout", "stash", s.name, "amount", amount)
	return amount, nil
}

func (s *Streaming) PendingPayout() (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stream.Pending(), nil
}

// State returns a snapshot of the stream.
func (s *Streaming) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stream.State()
}
