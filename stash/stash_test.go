// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stash

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/hoard/authority"
	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/lvldb"
	"github.com/vechain/hoard/reverts"
	"github.com/vechain/hoard/token"
)

var (
	owner       = hoard.NamedAddress("owner")
	distributor = hoard.NamedAddress("distributor")
	stranger    = hoard.NamedAddress("stranger")
)

func newBank(t *testing.T) *token.Bank {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return token.NewBank(db)
}

func newAuth() *authority.Table {
	auth := authority.New()
	auth.Grant(owner, authority.Owner)
	auth.Grant(owner, authority.StreamAdmin)
	return auth
}

func balanceOf(t *testing.T, tok token.Token, holder hoard.Address) *big.Int {
	bal, err := tok.BalanceOf(holder)
	require.NoError(t, err)
	return bal
}

func TestLump(t *testing.T) {
	bank := newBank(t)
	reward := bank.Ledger("REWARD")
	other := bank.Ledger("OTHER")

	l := NewLump("genesis", reward, distributor, newAuth())
	assert.Equal(t, KindLump, l.Kind())
	require.NoError(t, reward.Mint(l.Address(), big.NewInt(700)))
	require.NoError(t, other.Mint(l.Address(), big.NewInt(5)))

	pending, err := l.PendingPayout()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(700), pending)

	paid, err := l.RequestPayout()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(700), paid)
	assert.Equal(t, big.NewInt(700), balanceOf(t, reward, distributor))

	paid, err = l.RequestPayout()
	require.NoError(t, err)
	assert.Zero(t, paid.Sign())

	err = l.Rescue(owner, reward, owner, big.NewInt(1))
	assert.True(t, reverts.Is(err, reverts.KindInvalidInput))
	err = l.Rescue(stranger, other, stranger, big.NewInt(5))
	assert.True(t, reverts.Is(err, reverts.KindUnauthorized))
	require.NoError(t, l.Rescue(owner, other, owner, big.NewInt(5)))
	assert.Equal(t, big.NewInt(5), balanceOf(t, other, owner))
}

func TestStreaming(t *testing.T) {
	bank := newBank(t)
	reward := bank.Ledger("REWARD")
	clock := hoard.NewManualClock(1_000_000)

	s := NewStreaming("weekly", reward, distributor, newAuth(), clock)
	assert.Equal(t, KindStreaming, s.Kind())
	require.NoError(t, reward.Mint(s.Address(), big.NewInt(1000)))

	err := s.Start(stranger, big.NewInt(1000), 1000)
	assert.True(t, reverts.Is(err, reverts.KindUnauthorized))
	err = s.Start(owner, big.NewInt(1001), 1000)
	assert.True(t, reverts.Is(err, reverts.KindInsufficientLiquidity))

	require.NoError(t, s.Start(owner, big.NewInt(1000), 1000))
	clock.Advance(500)

	pending, err := s.PendingPayout()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500), pending)

	paid, err := s.RequestPayout()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500), paid)
	assert.Equal(t, big.NewInt(500), balanceOf(t, reward, distributor))

	clock.Advance(100)
	leftover, err := s.Stop(owner)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(400), leftover)
	assert.Equal(t, big.NewInt(400), balanceOf(t, reward, owner))

	paid, err = s.RequestPayout()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), paid)
	assert.Zero(t, balanceOf(t, reward, s.Address()).Sign())
	assert.Zero(t, s.State().End)
}
