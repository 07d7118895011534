// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/hoard/hoard"
)

// Amount converts a required amount field of a request body.
func Amount(v *math.HexOrDecimal256, field string) (*big.Int, error) {
	if v == nil {
		return nil, BadRequest(errors.Errorf("%s: required", field))
	}
	return new(big.Int).Set((*big.Int)(v)), nil
}

// Hex converts an amount for a response body. Nil stays nil.
func Hex(v *big.Int) *math.HexOrDecimal256 {
	if v == nil {
		return nil
	}
	return (*math.HexOrDecimal256)(new(big.Int).Set(v))
}

// Caller validates the caller field of a request body.
func Caller(addr *hoard.Address) (hoard.Address, error) {
	if addr == nil || addr.IsZero() {
		return hoard.Address{}, BadRequest(errors.New("caller: required"))
	}
	return *addr, nil
}

// AddressVar parses an address path variable.
func AddressVar(r *http.Request, name string) (hoard.Address, error) {
	addr, err := hoard.ParseAddress(mux.Vars(r)[name])
	if err != nil {
		return hoard.Address{}, BadRequest(errors.WithMessage(err, name))
	}
	return *addr, nil
}

// Uint64Var parses an unsigned integer path variable.
func Uint64Var(r *http.Request, name string) (uint64, error) {
	v, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, BadRequest(errors.WithMessage(err, name))
	}
	return v, nil
}

// IntVar parses a non-negative int path variable.
func IntVar(r *http.Request, name string) (int, error) {
	v, err := strconv.ParseUint(mux.Vars(r)[name], 10, 31)
	if err != nil {
		return 0, BadRequest(errors.WithMessage(err, name))
	}
	return int(v), nil
}
