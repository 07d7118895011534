// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stash

import (
	"math/big"

	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/reverts"
)

// StreamState is a snapshot of a Stream.
type StreamState struct {
	Rate              *big.Int `json:"rate"`
	Start             uint64   `json:"start"`
	End               uint64   `json:"end"`
	LastPull          uint64   `json:"lastPull"`
	PreviouslyAccrued *big.Int `json:"previouslyAccrued"`
	Started           bool     `json:"started"`
}

// Stream releases a funded amount linearly over a duration. The rate is fixed point, scaled by
// hoard.StreamPrecision, and every computed amount is floored so the total released never exceeds
// what was funded.
//
// Stream is not safe for concurrent use.
type Stream struct {
	clock hoard.Clock
	scale *big.Int

	rate              *big.Int
	start             uint64
	end               uint64
	lastPull          uint64
	previouslyAccrued *big.Int
	started           bool
}

func NewStream(clock hoard.Clock) *Stream {
	return &Stream{
		clock:             clock,
		scale:             hoard.StreamPrecision,
		rate:              new(big.Int),
		previouslyAccrued: new(big.Int),
	}
}

// Start begins a new stream of amount over duration seconds. When a stream is still running its
// unreleased remainder is added to amount, and whatever has accrued but not been pulled is carried
// over. available is the balance backing the stream; amount, remainder and carry must fit in it.
func (s *Stream) Start(amount *big.Int, duration uint64, available *big.Int) error {
	if duration == 0 {
		return reverts.InvalidInput("stream duration must be positive")
	}
	if amount == nil || amount.Sign() < 0 {
		return reverts.InvalidInput("stream amount must not be negative")
	}
	now := s.clock.Now()

	total := new(big.Int).Set(amount)
	if s.running(now) {
		total.Add(total, s.remaining(now))
	}
	accrued := s.pending(now)

	if need := new(big.Int).Add(total, accrued); need.Cmp(available) > 0 {
		return reverts.InsufficientLiquidity("stream needs %s, only %s available", need, available)
	}

	rate := new(big.Int).Mul(total, s.scale)
	s.rate = rate.Div(rate, new(big.Int).SetUint64(duration))
	s.previouslyAccrued = accrued
	s.lastPull = now
	s.start = now
	s.end = now + duration
	s.started = true
	return nil
}

// Pending is what Pull would release now.
func (s *Stream) Pending() *big.Int {
	return s.pending(s.clock.Now())
}

// Pull releases everything accrued so far and returns the amount.
func (s *Stream) Pull() (*big.Int, error) {
	if !s.started {
		return nil, reverts.Precondition("stream never started")
	}
	now := s.clock.Now()
	amount := s.pending(now)

	s.previouslyAccrued = new(big.Int)
	if t := min(now, s.end); t > s.lastPull {
		s.lastPull = t
	}
	return amount, nil
}

// Stop ends a running stream early and returns the unreleased remainder. Anything already accrued
// stays pullable.
func (s *Stream) Stop() (*big.Int, error) {
	now := s.clock.Now()
	if !s.running(now) {
		return nil, reverts.Precondition("stream already ended")
	}
	leftover := s.remaining(now)
	s.previouslyAccrued = s.pending(now)
	s.lastPull = now
	s.rate = new(big.Int)
	s.start = 0
	s.end = 0
	return leftover, nil
}

// Obligation is everything the stream may still release: accrued plus unreleased.
func (s *Stream) Obligation() *big.Int {
	now := s.clock.Now()
	total := s.pending(now)
	if s.running(now) {
		total.Add(total, s.remaining(now))
	}
	return total
}

func (s *Stream) State() StreamState {
	return StreamState{
		Rate:              new(big.Int).Set(s.rate),
		Start:             s.start,
		End:               s.end,
		LastPull:          s.lastPull,
		PreviouslyAccrued: new(big.Int).Set(s.previouslyAccrued),
		Started:           s.started,
	}
}

func (s *Stream) running(now uint64) bool {
	return s.started && now < s.end
}

func (s *Stream) pending(now uint64) *big.Int {
	if !s.started {
		return new(big.Int)
	}
	out := new(big.Int).Set(s.previouslyAccrued)
	if t := min(now, s.end); t > s.lastPull {
		released := new(big.Int).Mul(s.rate, new(big.Int).SetUint64(t-s.lastPull))
		out.Add(out, released.Div(released, s.scale))
	}
	return out
}

func (s *Stream) remaining(now uint64) *big.Int {
	if now >= s.end {
		return new(big.Int)
	}
	left := new(big.Int).Mul(s.rate, new(big.Int).SetUint64(s.end-now))
	return left.Div(left, s.scale)
}
