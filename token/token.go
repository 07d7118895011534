// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token provides the asset transfer capability consumed by the staking core, and kv backed
// implementations of it.
package token

import (
	"math/big"

	"github.com/vechain/hoard/hoard"
)

// Token is a fungible asset.
type Token interface {
	Address() hoard.Address
	BalanceOf(holder hoard.Address) (*big.Int, error)
	// Transfer moves amount from one holder to another. It fails without effect when from holds
	// less than amount.
	Transfer(from, to hoard.Address, amount *big.Int) error
}

// Items is a collection of semi-fungible items keyed by id. A unique item is an id with a
// total supply of one.
type Items interface {
	Address() hoard.Address
	BalanceOf(holder hoard.Address, id uint64) (uint64, error)
	Transfer(from, to hoard.Address, id uint64, amount uint64) error
}

// TransferAll moves the entire balance of from to to and returns the moved amount.
func TransferAll(t Token, from, to hoard.Address) (*big.Int, error) {
	bal, err := t.BalanceOf(from)
	if err != nil {
		return nil, err
	}
	if bal.Sign() == 0 {
		return bal, nil
	}
	if err := t.Transfer(from, to, bal); err != nil {
		return nil, err
	}
	return bal, nil
}
