// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"sync"
	"time"
)

type KeeperRound struct {
	Timestamp *time.Time `json:"timestamp"`
	Failures  int        `json:"failures"`
}

type Status struct {
	Healthy   bool         `json:"healthy"`
	LastRound *KeeperRound `json:"lastRound"`
	Rounds    uint64       `json:"rounds"`
}

// Health tracks the keeper loop. The node is healthy once a round has completed within the
// tolerance, regardless of whether individual tasks in it failed.
type Health struct {
	lock      sync.RWMutex
	tolerance time.Duration
	lastRound time.Time
	failures  int
	rounds    uint64
}

func New(tolerance time.Duration) *Health {
	return &Health{tolerance: tolerance}
}

func (h *Health) RoundDone(failures int) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.lastRound = time.Now()
	h.failures = failures
	h.rounds++
}

func (h *Health) Status() *Status {
	h.lock.RLock()
	defer h.lock.RUnlock()

	status := &Status{Rounds: h.rounds}
	if h.rounds == 0 {
		return status
	}
	last := h.lastRound
	status.LastRound = &KeeperRound{Timestamp: &last, Failures: h.failures}
	status.Healthy = time.Since(last) <= h.tolerance
	return status
}
