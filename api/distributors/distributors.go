// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package distributors

import (
	"math/big"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/hoard/api/utils"
	"github.com/vechain/hoard/distributor"
	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/token"
)

// Tokens resolves staking tokens by symbol.
type Tokens interface {
	Ledger(symbol string) *token.Ledger
}

type Distributors struct {
	dist   *distributor.Distributor
	tokens Tokens
}

func New(dist *distributor.Distributor, tokens Tokens) *Distributors {
	return &Distributors{dist: dist, tokens: tokens}
}

func (d *Distributors) handleGetSummary(w http.ResponseWriter, _ *http.Request) error {
	pools := make([]Pool, 0)
	for _, p := range d.dist.Pools() {
		pools = append(pools, convertPool(p))
	}
	return utils.WriteJSON(w, &Summary{
		Address:          d.dist.Address(),
		RewardToken:      d.dist.RewardToken().Address(),
		TotalAllocWeight: d.dist.TotalAllocWeight(),
		Undistributed:    utils.Hex(d.dist.Undistributed()),
		Pools:            pools,
		Stashes:          d.dist.Stashes(),
	})
}

func (d *Distributors) handleGetPool(w http.ResponseWriter, req *http.Request) error {
	pid, err := utils.IntVar(req, "pid")
	if err != nil {
		return err
	}
	p, err := d.dist.PoolInfo(pid)
	if err != nil {
		return utils.NotFound(err)
	}
	return utils.WriteJSON(w, convertPool(p))
}

func (d *Distributors) handleGetUser(w http.ResponseWriter, req *http.Request) error {
	pid, err := utils.IntVar(req, "pid")
	if err != nil {
		return err
	}
	addr, err := utils.AddressVar(req, "address")
	if err != nil {
		return err
	}
	info, err := d.dist.UserInfo(pid, addr)
	if err != nil {
		return utils.NotFound(err)
	}
	pending, err := d.dist.PendingReward(pid, addr)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &User{
		Amount:     utils.Hex(info.Amount),
		RewardDebt: utils.Hex(info.RewardDebt),
		Pending:    utils.Hex(pending),
	})
}

func (d *Distributors) handleAddPool(w http.ResponseWriter, req *http.Request) error {
	var body AddPoolRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caller, err := utils.Caller(body.Caller)
	if err != nil {
		return err
	}
	if body.Token == "" {
		return utils.BadRequest(errors.New("token: required"))
	}
	pid, err := d.dist.AddPool(caller, body.Weight, d.tokens.Ledger(body.Token), nil)
	if err != nil {
		return err
	}
	p, err := d.dist.PoolInfo(pid)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, convertPool(p))
}

func (d *Distributors) handleSetPool(w http.ResponseWriter, req *http.Request) error {
	pid, err := utils.IntVar(req, "pid")
	if err != nil {
		return err
	}
	var body SetPoolRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caller, err := utils.Caller(body.Caller)
	if err != nil {
		return err
	}
	if err := d.dist.SetPool(caller, pid, body.Weight, nil, false); err != nil {
		return err
	}
	p, err := d.dist.PoolInfo(pid)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, convertPool(p))
}

func (d *Distributors) handlePull(w http.ResponseWriter, req *http.Request) error {
	caller, stash, err := parseStash(req)
	if err != nil {
		return err
	}
	amount, err := d.dist.PullRewards(caller, stash)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Result{Amount: utils.Hex(amount)})
}

func (d *Distributors) handleRemoveStash(w http.ResponseWriter, req *http.Request) error {
	caller, stash, err := parseStash(req)
	if err != nil {
		return err
	}
	if err := d.dist.RemoveStash(caller, stash); err != nil {
		return err
	}
	return utils.WriteJSON(w, d.dist.Stashes())
}

func parseStash(req *http.Request) (hoard.Address, hoard.Address, error) {
	var body StashRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return hoard.Address{}, hoard.Address{}, utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caller, err := utils.Caller(body.Caller)
	if err != nil {
		return hoard.Address{}, hoard.Address{}, err
	}
	if body.Stash == nil {
		return hoard.Address{}, hoard.Address{}, utils.BadRequest(errors.New("stash: required"))
	}
	return caller, *body.Stash, nil
}

// poolOp runs one of the per pool user operations; amount is nil for those that take none.
type poolOp func(caller hoard.Address, pid int, amount *big.Int, to hoard.Address) (*big.Int, error)

func (d *Distributors) handlePoolOp(needsAmount bool, op poolOp) utils.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		pid, err := utils.IntVar(req, "pid")
		if err != nil {
			return err
		}
		var body PoolRequest
		if err := utils.ParseJSON(req.Body, &body); err != nil {
			return utils.BadRequest(errors.WithMessage(err, "body"))
		}
		caller, err := utils.Caller(body.Caller)
		if err != nil {
			return err
		}
		var amount *big.Int
		if needsAmount {
			if amount, err = utils.Amount(body.Amount, "amount"); err != nil {
				return err
			}
		}
		to := caller
		if body.To != nil {
			to = *body.To
		}
		res, err := op(caller, pid, amount, to)
		if err != nil {
			return err
		}
		if res == nil {
			res = amount
		}
		return utils.WriteJSON(w, &Result{Amount: utils.Hex(res)})
	}
}

func (d *Distributors) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("distributor_get_summary").
		HandlerFunc(utils.WrapHandlerFunc(d.handleGetSummary))
	sub.Path("/pools/{pid}").
		Methods(http.MethodGet).
		Name("distributor_get_pool").
		HandlerFunc(utils.WrapHandlerFunc(d.handleGetPool))
	sub.Path("/pools/{pid}/users/{address}").
		Methods(http.MethodGet).
		Name("distributor_get_user").
		HandlerFunc(utils.WrapHandlerFunc(d.handleGetUser))

	sub.Path("/pools").
		Methods(http.MethodPost).
		Name("distributor_post_pools").
		HandlerFunc(utils.WrapHandlerFunc(d.handleAddPool))
	sub.Path("/pools/{pid}").
		Methods(http.MethodPost).
		Name("distributor_post_pool").
		HandlerFunc(utils.WrapHandlerFunc(d.handleSetPool))
	sub.Path("/pull").
		Methods(http.MethodPost).
		Name("distributor_post_pull").
		HandlerFunc(utils.WrapHandlerFunc(d.handlePull))
	sub.Path("/stashes/remove").
		Methods(http.MethodPost).
		Name("distributor_post_stashes_remove").
		HandlerFunc(utils.WrapHandlerFunc(d.handleRemoveStash))

	sub.Path("/pools/{pid}/deposit").
		Methods(http.MethodPost).
		Name("distributor_post_deposit").
		HandlerFunc(utils.WrapHandlerFunc(d.handlePoolOp(true,
			func(caller hoard.Address, pid int, amount *big.Int, to hoard.Address) (*big.Int, error) {
				return nil, d.dist.Deposit(caller, pid, amount, to)
			})))
	sub.Path("/pools/{pid}/withdraw").
		Methods(http.MethodPost).
		Name("distributor_post_withdraw").
		HandlerFunc(utils.WrapHandlerFunc(d.handlePoolOp(true,
			func(caller hoard.Address, pid int, amount *big.Int, to hoard.Address) (*big.Int, error) {
				return nil, d.dist.Withdraw(caller, pid, amount, to)
			})))
	sub.Path("/pools/{pid}/harvest").
		Methods(http.MethodPost).
		Name("distributor_post_harvest").
		HandlerFunc(utils.WrapHandlerFunc(d.handlePoolOp(false,
			func(caller hoard.Address, pid int, _ *big.Int, to hoard.Address) (*big.Int, error) {
				return d.dist.Harvest(caller, pid, to)
			})))
	sub.Path("/pools/{pid}/withdraw-and-harvest").
		Methods(http.MethodPost).
		Name("distributor_post_withdraw_and_harvest").
		HandlerFunc(utils.WrapHandlerFunc(d.handlePoolOp(true, d.dist.WithdrawAndHarvest)))
	sub.Path("/pools/{pid}/emergency-withdraw").
		Methods(http.MethodPost).
		Name("distributor_post_emergency_withdraw").
		HandlerFunc(utils.WrapHandlerFunc(d.handlePoolOp(false,
			func(caller hoard.Address, pid int, _ *big.Int, to hoard.Address) (*big.Int, error) {
				return d.dist.EmergencyWithdraw(caller, pid, to)
			})))
}
