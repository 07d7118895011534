// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"sync"

	"github.com/vechain/hoard/kv"
)

// Bank hands out ledgers and collections sharing one underlying store, one bucket each.
type Bank struct {
	mu          sync.Mutex
	store       kv.Store
	ledgers     map[string]*Ledger
	collections map[string]*Collection
}

func NewBank(store kv.Store) *Bank {
	return &Bank{
		store:       store,
		ledgers:     make(map[string]*Ledger),
		collections: make(map[string]*Collection),
	}
}

// Ledger returns the fungible token with the given symbol, creating its bucket on first use.
func (b *Bank) Ledger(symbol string) *Ledger {
	b.mu.Lock()
	defer b.mu.Unlock()

	if l, ok := b.ledgers[symbol]; ok {
		return l
	}
	l := newLedger(symbol, kv.Bucket("t/"+symbol+"/").NewStore(b.store))
	b.ledgers[symbol] = l
	return l
}

// Collection returns the item collection with the given name.
func (b *Bank) Collection(name string) *Collection {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.collections[name]; ok {
		return c
	}
	c := newCollection(name, kv.Bucket("i/"+name+"/").NewStore(b.store))
	b.collections[name] = c
	return c
}

// Symbols lists ledgers opened so far.
func (b *Bank) Symbols() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, 0, len(b.ledgers))
	for s := range b.ledgers {
		out = append(out, s)
	}
	return out
}
