// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tokens

import (
	"net/http"
	"slices"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/hoard/api/utils"
	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/token"
)

type Token struct {
	Symbol  string                `json:"symbol"`
	Address hoard.Address         `json:"address"`
	Supply  *math.HexOrDecimal256 `json:"supply"`
}

type Balance struct {
	Balance *math.HexOrDecimal256 `json:"balance"`
}

type TransferRequest struct {
	Caller *hoard.Address        `json:"caller"`
	To     *hoard.Address        `json:"to"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

type Tokens struct {
	bank *token.Bank
}

func New(bank *token.Bank) *Tokens {
	return &Tokens{bank: bank}
}

// ledger only resolves tokens that already exist, so reads never create buckets.
func (t *Tokens) ledger(req *http.Request) (*token.Ledger, error) {
	symbol := mux.Vars(req)["symbol"]
	if !slices.Contains(t.bank.Symbols(), symbol) {
		return nil, utils.NotFound(errors.Errorf("token %q not found", symbol))
	}
	return t.bank.Ledger(symbol), nil
}

func convertToken(l *token.Ledger) (*Token, error) {
	supply, err := l.Supply()
	if err != nil {
		return nil, err
	}
	return &Token{Symbol: l.Symbol(), Address: l.Address(), Supply: utils.Hex(supply)}, nil
}

func (t *Tokens) handleGetTokens(w http.ResponseWriter, _ *http.Request) error {
	symbols := t.bank.Symbols()
	slices.Sort(symbols)

	out := make([]*Token, 0, len(symbols))
	for _, symbol := range symbols {
		tok, err := convertToken(t.bank.Ledger(symbol))
		if err != nil {
			return err
		}
		out = append(out, tok)
	}
	return utils.WriteJSON(w, out)
}

func (t *Tokens) handleGetToken(w http.ResponseWriter, req *http.Request) error {
	l, err := t.ledger(req)
	if err != nil {
		return err
	}
	tok, err := convertToken(l)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, tok)
}

func (t *Tokens) handleGetBalance(w http.ResponseWriter, req *http.Request) error {
	l, err := t.ledger(req)
	if err != nil {
		return err
	}
	addr, err := utils.AddressVar(req, "address")
	if err != nil {
		return err
	}
	bal, err := l.BalanceOf(addr)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Balance{Balance: utils.Hex(bal)})
}

func (t *Tokens) handleTransfer(w http.ResponseWriter, req *http.Request) error {
	l, err := t.ledger(req)
	if err != nil {
		return err
	}
	var body TransferRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caller, err := utils.Caller(body.Caller)
	if err != nil {
		return err
	}
	if body.To == nil {
		return utils.BadRequest(errors.New("to: required"))
	}
	amount, err := utils.Amount(body.Amount, "amount")
	if err != nil {
		return err
	}
	if err := l.Transfer(caller, *body.To, amount); err != nil {
		return err
	}
	bal, err := l.BalanceOf(caller)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Balance{Balance: utils.Hex(bal)})
}

func (t *Tokens) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("tokens_get_all").
		HandlerFunc(utils.WrapHandlerFunc(t.handleGetTokens))
	sub.Path("/{symbol}").
		Methods(http.MethodGet).
		Name("tokens_get_token").
		HandlerFunc(utils.WrapHandlerFunc(t.handleGetToken))
	sub.Path("/{symbol}/balances/{address}").
		Methods(http.MethodGet).
		Name("tokens_get_balance").
		HandlerFunc(utils.WrapHandlerFunc(t.handleGetBalance))
	sub.Path("/{symbol}/transfer").
		Methods(http.MethodPost).
		Name("tokens_post_transfer").
		HandlerFunc(utils.WrapHandlerFunc(t.handleTransfer))
}
