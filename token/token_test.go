// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/lvldb"
	"github.com/vechain/hoard/reverts"
)

func newTestBank(t *testing.T) *Bank {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBank(db)
}

func TestLedgerTransfer(t *testing.T) {
	bank := newTestBank(t)
	magic := bank.Ledger("MAGIC")
	assert.Same(t, magic, bank.Ledger("MAGIC"))

	alice, bob := hoard.NamedAddress("alice"), hoard.NamedAddress("bob")
	require.NoError(t, magic.Mint(alice, hoard.Units(100)))

	require.NoError(t, magic.Transfer(alice, bob, hoard.Units(40)))
	bal, err := magic.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, hoard.Units(60), bal)
	bal, err = magic.BalanceOf(bob)
	require.NoError(t, err)
	assert.Equal(t, hoard.Units(40), bal)

	err = magic.Transfer(bob, alice, hoard.Units(41))
	assert.True(t, reverts.Is(err, reverts.KindPrecondition))
	bal, _ = magic.BalanceOf(bob)
	assert.Equal(t, hoard.Units(40), bal)

	err = magic.Transfer(bob, alice, big.NewInt(-1))
	assert.True(t, reverts.Is(err, reverts.KindInvalidInput))

	require.NoError(t, magic.Transfer(bob, alice, big.NewInt(0)))

	supply, err := magic.Supply()
	require.NoError(t, err)
	assert.Equal(t, hoard.Units(100), supply)

	moved, err := TransferAll(magic, bob, alice)
	require.NoError(t, err)
	assert.Equal(t, hoard.Units(40), moved)

	holders, err := magic.Holders()
	require.NoError(t, err)
	assert.Equal(t, map[hoard.Address]*big.Int{alice: hoard.Units(100)}, holders)
}

func TestLedgersAreIsolated(t *testing.T) {
	bank := newTestBank(t)
	alice := hoard.NamedAddress("alice")
	require.NoError(t, bank.Ledger("MAGIC").Mint(alice, big.NewInt(5)))

	bal, err := bank.Ledger("LP").BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, 0, bal.Sign())
	assert.NotEqual(t, bank.Ledger("MAGIC").Address(), bank.Ledger("LP").Address())
	assert.ElementsMatch(t, []string{"MAGIC", "LP"}, bank.Symbols())
}

func TestMintOverflow(t *testing.T) {
	bank := newTestBank(t)
	l := bank.Ledger("X")
	maxUint := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	alice := hoard.NamedAddress("alice")
	require.NoError(t, l.Mint(alice, maxUint))
	err := l.Mint(alice, big.NewInt(1))
	assert.True(t, reverts.Is(err, reverts.KindInvalidInput))

	err = l.Mint(alice, new(big.Int).Lsh(big.NewInt(1), 256))
	assert.True(t, reverts.Is(err, reverts.KindInvalidInput))
}

func TestCollection(t *testing.T) {
	bank := newTestBank(t)
	legions := bank.Collection("legion")
	hoarder, staker := hoard.NamedAddress("hoard"), hoard.NamedAddress("staker")

	require.NoError(t, legions.Mint(hoarder, 7, 1))
	require.NoError(t, legions.Transfer(hoarder, staker, 7, 1))

	n, err := legions.BalanceOf(hoarder, 7)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = legions.BalanceOf(staker, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	err = legions.Transfer(hoarder, staker, 7, 1)
	assert.True(t, reverts.Is(err, reverts.KindPrecondition))
	assert.Equal(t, "legion", legions.Name())
}
