// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package authority

import (
	"sort"
	"sync"

	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/reverts"
)

// Capability is a permission that can be granted to a principal.
type Capability string

const (
	Owner       Capability = "owner"        // admin setters and emergency paths
	Hoard       Capability = "hoard"        // boost NFT staking
	Puller      Capability = "puller"       // distributor reward pulls
	StreamAdmin Capability = "stream-admin" // starting and stopping reward streams
)

// Table is an explicit principal -> capability set.
type Table struct {
	mu     sync.RWMutex
	grants map[hoard.Address]map[Capability]struct{}
}

func New() *Table {
	return &Table{grants: make(map[hoard.Address]map[Capability]struct{})}
}

// Grant gives cap to principal. Granting twice is a no-op.
func (t *Table) Grant(principal hoard.Address, cap Capability) {
	t.mu.Lock()
	defer t.mu.Unlock()

	caps, ok := t.grants[principal]
	if !ok {
		caps = make(map[Capability]struct{})
		t.grants[principal] = caps
	}
	caps[cap] = struct{}{}
}

// Revoke removes cap from principal.
func (t *Table) Revoke(principal hoard.Address, cap Capability) {
	t.mu.Lock()
	defer t.mu.Unlock()

	caps, ok := t.grants[principal]
	if !ok {
		return
	}
	delete(caps, cap)
	if len(caps) == 0 {
		delete(t.grants, principal)
	}
}

func (t *Table) Has(principal hoard.Address, cap Capability) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.grants[principal][cap]
	return ok
}

// Require returns an unauthorized revert unless principal holds cap.
func (t *Table) Require(principal hoard.Address, cap Capability) error {
	if !t.Has(principal, cap) {
		return reverts.Unauthorized("%s lacks %s capability", principal, cap)
	}
	return nil
}

// Holders lists principals holding cap, sorted by address.
func (t *Table) Holders(cap Capability) []hoard.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []hoard.Address
	for principal, caps := range t.grants {
		if _, ok := caps[cap]; ok {
			out = append(out, principal)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
