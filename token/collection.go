// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"

	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/kv"
	"github.com/vechain/hoard/reverts"
)

var _ Items = (*Collection)(nil)

// Collection is a kv backed item collection.
type Collection struct {
	mu    sync.Mutex
	name  string
	addr  hoard.Address
	store kv.Store
}

func newCollection(name string, store kv.Store) *Collection {
	return &Collection{
		name:  name,
		addr:  hoard.NamedAddress("items:" + name),
		store: store,
	}
}

func (c *Collection) Address() hoard.Address {
	return c.addr
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) BalanceOf(holder hoard.Address, id uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.get(itemKey(holder, id))
}

func (c *Collection) Transfer(from, to hoard.Address, id uint64, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fromBal, err := c.get(itemKey(from, id))
	if err != nil {
		return err
	}
	if fromBal < amount {
		return reverts.Precondition("%s: %s holds %d of item %d, wants %d", c.name, from, fromBal, id, amount)
	}
	toBal, err := c.get(itemKey(to, id))
	if err != nil {
		return err
	}

	batch := c.store.NewBatch()
	if err := putUint64(batch, itemKey(from, id), fromBal-amount); err != nil {
		return err
	}
	if err := putUint64(batch, itemKey(to, id), toBal+amount); err != nil {
		return err
	}
	return errors.Wrap(batch.Write(), "write item transfer")
}

// Mint credits amount of item id to holder.
func (c *Collection) Mint(to hoard.Address, id uint64, amount uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	bal, err := c.get(itemKey(to, id))
	if err != nil {
		return err
	}
	return putUint64(c.store, itemKey(to, id), bal+amount)
}

func (c *Collection) get(key []byte) (uint64, error) {
	raw, err := kv.GetOrNil(c.store, key)
	if err != nil {
		return 0, errors.Wrapf(err, "%s: read", c.name)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}

func putUint64(p kv.Putter, key []byte, v uint64) error {
	if v == 0 {
		return p.Delete(key)
	}
	return p.Put(key, binary.BigEndian.AppendUint64(nil, v))
}

func itemKey(holder hoard.Address, id uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte(nil), holder.Bytes()...), id)
}
