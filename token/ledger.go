// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/kv"
	"github.com/vechain/hoard/reverts"
)

var (
	balancePrefix = []byte("b")
	supplyKey     = []byte("s")
)

var _ Token = (*Ledger)(nil)

// Ledger is a fungible token whose balances live in a kv bucket as 256-bit values.
type Ledger struct {
	mu     sync.Mutex
	symbol string
	addr   hoard.Address
	store  kv.Store
}

func newLedger(symbol string, store kv.Store) *Ledger {
	return &Ledger{
		symbol: symbol,
		addr:   hoard.NamedAddress("token:" + symbol),
		store:  store,
	}
}

func (l *Ledger) Address() hoard.Address {
	return l.addr
}

func (l *Ledger) Symbol() string {
	return l.symbol
}

func (l *Ledger) BalanceOf(holder hoard.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, err := l.get(balanceKey(holder))
	if err != nil {
		return nil, err
	}
	return bal.ToBig(), nil
}

// Supply returns the total minted amount.
func (l *Ledger) Supply() (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.get(supplyKey)
	if err != nil {
		return nil, err
	}
	return s.ToBig(), nil
}

func (l *Ledger) Transfer(from, to hoard.Address, amount *big.Int) error {
	amt, err := toUint256(amount)
	if err != nil {
		return err
	}
	if amt.IsZero() || from == to {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fromBal, err := l.get(balanceKey(from))
	if err != nil {
		return err
	}
	if fromBal.Lt(amt) {
		return reverts.Precondition("%s: transfer amount %s exceeds balance %s of %s", l.symbol, amt.Dec(), fromBal.Dec(), from)
	}
	toBal, err := l.get(balanceKey(to))
	if err != nil {
		return err
	}
	newTo, overflow := new(uint256.Int).AddOverflow(toBal, amt)
	if overflow {
		return reverts.InvalidInput("%s: balance overflow for %s", l.symbol, to)
	}

	batch := l.store.NewBatch()
	if err := putUint256(batch, balanceKey(from), new(uint256.Int).Sub(fromBal, amt)); err != nil {
		return err
	}
	if err := putUint256(batch, balanceKey(to), newTo); err != nil {
		return err
	}
	return errors.Wrap(batch.Write(), "write transfer")
}

// Mint creates amount out of thin air for to. Used for genesis allocations and simulated
// custodian emissions.
func (l *Ledger) Mint(to hoard.Address, amount *big.Int) error {
	amt, err := toUint256(amount)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	supply, err := l.get(supplyKey)
	if err != nil {
		return err
	}
	newSupply, overflow := new(uint256.Int).AddOverflow(supply, amt)
	if overflow {
		return reverts.InvalidInput("%s: supply overflow", l.symbol)
	}
	bal, err := l.get(balanceKey(to))
	if err != nil {
		return err
	}

	batch := l.store.NewBatch()
	if err := putUint256(batch, supplyKey, newSupply); err != nil {
		return err
	}
	if err := putUint256(batch, balanceKey(to), new(uint256.Int).Add(bal, amt)); err != nil {
		return err
	}
	return errors.Wrap(batch.Write(), "write mint")
}

// Holders returns every non-zero balance.
func (l *Ledger) Holders() (map[hoard.Address]*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	it := l.store.Iterate(kv.Range{Start: balancePrefix, Limit: []byte("c")})
	defer it.Release()

	out := make(map[hoard.Address]*big.Int)
	for it.Next() {
		bal := new(uint256.Int).SetBytes(it.Value())
		if bal.IsZero() {
			continue
		}
		out[hoard.BytesToAddress(it.Key()[len(balancePrefix):])] = bal.ToBig()
	}
	return out, errors.Wrap(it.Error(), "iterate balances")
}

func (l *Ledger) get(key []byte) (*uint256.Int, error) {
	raw, err := kv.GetOrNil(l.store, key)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: read", l.symbol)
	}
	return new(uint256.Int).SetBytes(raw), nil
}

func putUint256(p kv.Putter, key []byte, v *uint256.Int) error {
	if v.IsZero() {
		return p.Delete(key)
	}
	b := v.Bytes32()
	return p.Put(key, b[:])
}

func balanceKey(holder hoard.Address) []byte {
	return append(append([]byte(nil), balancePrefix...), holder.Bytes()...)
}

func toUint256(amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, reverts.InvalidInput("amount must be non-negative")
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, reverts.InvalidInput("amount %s overflows 256 bits", amount)
	}
	return v, nil
}
