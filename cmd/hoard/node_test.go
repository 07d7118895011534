// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/hoard/api"
	"github.com/vechain/hoard/authority"
	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/lvldb"
)

func TestNewNode(t *testing.T) {
	cfg, err := loadConfig("config.example.yaml")
	require.NoError(t, err)

	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	// 04:00 UTC, outside the accrual windows
	clock := hoard.NewManualClock(19676*hoard.Day + 4*hoard.Hour)
	n, err := newNode(cfg, db, clock)
	require.NoError(t, err)

	alice := hoard.NamedAddress("alice")
	magic := n.bank.Ledger("MAGIC")
	bal, err := magic.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, hoard.Units(100_000).String(), bal.String())

	assert.Equal(t, 2, n.distributor.PoolLength())
	assert.Len(t, n.distributor.Stashes(), 2)
	assert.Len(t, n.stashes, 2)
	assert.True(t, n.auth.Has(hoard.NamedAddress("keeper"), authority.Puller))
	assert.True(t, n.auth.Has(hoard.NamedAddress("hoard-one"), authority.Hoard))
	assert.True(t, n.auth.Has(hoard.NamedAddress("emissions-admin"), authority.StreamAdmin))

	_, err = n.staker.Deposit(alice, hoard.Units(1_000))
	require.NoError(t, err)

	n.keeper.Round()
	assert.Equal(t, hoard.Units(1_000).String(), n.staker.TotalCommitted().String())
	assert.Equal(t, "0", n.staker.UnstakedPending().String())
	assert.NotNil(t, n.health.Status().LastRound)

	// a second node over the same store does not mint again
	_, err = newNode(cfg, db, clock)
	require.NoError(t, err)
	bal, err = magic.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, hoard.Units(99_000).String(), bal.String())
}

func TestNodeServices(t *testing.T) {
	cfg, err := loadConfig("config.example.yaml")
	require.NoError(t, err)
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	n, err := newNode(cfg, db, hoard.NewManualClock(19676*hoard.Day))
	require.NoError(t, err)

	ts := httptest.NewServer(api.New(n.services(), api.Options{}))
	defer ts.Close()

	for _, path := range []string{
		"/tokens/MAGIC",
		"/staker",
		"/distributor",
		"/distributor/pools/1",
		"/stashes/emissions",
	} {
		res, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode, path)
	}
}
