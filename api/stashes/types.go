// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stashes

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/hoard/hoard"
)

type Stream struct {
	Rate              *math.HexOrDecimal256 `json:"rate"`
	Start             uint64                `json:"start"`
	End               uint64                `json:"end"`
	LastPull          uint64                `json:"lastPull"`
	PreviouslyAccrued *math.HexOrDecimal256 `json:"previouslyAccrued"`
	Started           bool                  `json:"started"`
}

type Stash struct {
	Name      string                `json:"name"`
	Kind      string                `json:"kind"`
	Address   hoard.Address         `json:"address"`
	Recipient hoard.Address         `json:"recipient"`
	Pending   *math.HexOrDecimal256 `json:"pending"`
	Stream    *Stream               `json:"stream,omitempty"`
}

type StartRequest struct {
	Caller   *hoard.Address        `json:"caller"`
	Amount   *math.HexOrDecimal256 `json:"amount"`
	Duration uint64                `json:"duration"`
}

type StopRequest struct {
	Caller *hoard.Address `json:"caller"`
}

type RescueRequest struct {
	Caller *hoard.Address        `json:"caller"`
	Token  string                `json:"token"`
	To     *hoard.Address        `json:"to"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}
