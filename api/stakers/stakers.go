// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakers

import (
	"math/big"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/hoard/api/utils"
	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/staker"
)

type Stakers struct {
	staker *staker.Staker
}

func New(s *staker.Staker) *Stakers {
	return &Stakers{staker: s}
}

func (s *Stakers) handleGetSummary(w http.ResponseWriter, _ *http.Request) error {
	minePending, err := s.staker.MinePendingRewards()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Summary{
		Address:             s.staker.Address(),
		Settings:            s.staker.Settings(),
		TotalStaked:         utils.Hex(s.staker.TotalStaked()),
		UnstakedPending:     utils.Hex(s.staker.UnstakedPending()),
		TotalCommitted:      utils.Hex(s.staker.TotalCommitted()),
		FeeReserve:          utils.Hex(s.staker.FeeReserve()),
		PendingDistribution: utils.Hex(s.staker.PendingDistribution()),
		HarvestCarry:        utils.Hex(s.staker.HarvestCarry()),
		AccRewardsPerShare:  utils.Hex(s.staker.AccRewardsPerShare()),
		MinePendingRewards:  utils.Hex(minePending),
		IsAccrualTime:       s.staker.IsAccrualTime(),
		NextStakeAt:         s.staker.NextStakeAt(),
	})
}

func (s *Stakers) handleGetPositions(w http.ResponseWriter, _ *http.Request) error {
	return utils.WriteJSON(w, convertPositions(s.staker.Positions(), s.staker.ActivePositionIDs()))
}

func (s *Stakers) handleGetBoosts(w http.ResponseWriter, _ *http.Request) error {
	boosts := s.staker.Boosts()
	if boosts == nil {
		boosts = []staker.Boost{}
	}
	return utils.WriteJSON(w, boosts)
}

func (s *Stakers) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := utils.AddressVar(req, "address")
	if err != nil {
		return err
	}
	account := &Account{Deposits: []Deposit{}, PendingTotal: utils.Hex(s.staker.PendingAll(addr))}
	for _, d := range s.staker.Deposits(addr) {
		dep, err := s.deposit(addr, d)
		if err != nil {
			return err
		}
		account.Deposits = append(account.Deposits, *dep)
	}
	return utils.WriteJSON(w, account)
}

func (s *Stakers) handleGetDeposit(w http.ResponseWriter, req *http.Request) error {
	addr, err := utils.AddressVar(req, "address")
	if err != nil {
		return err
	}
	id, err := utils.Uint64Var(req, "id")
	if err != nil {
		return err
	}
	d, err := s.staker.DepositInfo(addr, id)
	if err != nil {
		return utils.NotFound(err)
	}
	dep, err := s.deposit(addr, d)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, dep)
}

func (s *Stakers) deposit(addr hoard.Address, d staker.Deposit) (*Deposit, error) {
	pending, err := s.staker.Pending(addr, d.ID)
	if err != nil {
		return nil, err
	}
	return &Deposit{
		ID:       d.ID,
		Amount:   utils.Hex(d.Amount),
		UnlockAt: d.UnlockAt,
		Pending:  utils.Hex(pending),
	}, nil
}

//
// User operations
//

func (s *Stakers) handleDeposit(w http.ResponseWriter, req *http.Request) error {
	var body DepositRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caller, err := utils.Caller(body.Caller)
	if err != nil {
		return err
	}
	amount, err := utils.Amount(body.Amount, "amount")
	if err != nil {
		return err
	}
	id, err := s.staker.Deposit(caller, amount)
	if err != nil {
		return err
	}
	d, err := s.staker.DepositInfo(caller, id)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Deposit{ID: d.ID, Amount: utils.Hex(d.Amount), UnlockAt: d.UnlockAt, Pending: utils.Hex(new(big.Int))})
}

func (s *Stakers) handleWithdraw(w http.ResponseWriter, req *http.Request) error {
	var body WithdrawRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caller, err := utils.Caller(body.Caller)
	if err != nil {
		return err
	}
	amount, err := utils.Amount(body.Amount, "amount")
	if err != nil {
		return err
	}
	paid, err := s.staker.Withdraw(caller, body.ID, amount)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Paid{DepositID: &body.ID, Amount: utils.Hex(paid)})
}

func (s *Stakers) handleWithdrawAll(w http.ResponseWriter, req *http.Request) error {
	caller, err := parseCaller(req)
	if err != nil {
		return err
	}
	paid, err := s.staker.WithdrawAll(caller)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Paid{Amount: utils.Hex(paid)})
}

func (s *Stakers) handleClaim(w http.ResponseWriter, req *http.Request) error {
	var body ClaimRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caller, err := utils.Caller(body.Caller)
	if err != nil {
		return err
	}
	paid, err := s.staker.Claim(caller, body.ID)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Paid{DepositID: &body.ID, Amount: utils.Hex(paid)})
}

func (s *Stakers) handleClaimAll(w http.ResponseWriter, req *http.Request) error {
	caller, err := parseCaller(req)
	if err != nil {
		return err
	}
	paid, err := s.staker.ClaimAll(caller)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Paid{Amount: utils.Hex(paid)})
}

func (s *Stakers) handleStake(w http.ResponseWriter, req *http.Request) error {
	caller, err := parseCaller(req)
	if err != nil {
		return err
	}
	id, amount, err := s.staker.StakeScheduled(caller)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Staked{PositionID: id, Amount: utils.Hex(amount)})
}

func (s *Stakers) handleAccrue(w http.ResponseWriter, req *http.Request) error {
	var body AccrueRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caller, err := utils.Caller(body.Caller)
	if err != nil {
		return err
	}
	ids := body.Positions
	if ids == nil {
		ids = s.staker.ActivePositionIDs()
	}
	res, err := s.staker.Accrue(caller, ids)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, convertAccrued(res))
}

func (s *Stakers) handleBoost(op func(caller hoard.Address, body *BoostRequest) error) utils.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		var body BoostRequest
		if err := utils.ParseJSON(req.Body, &body); err != nil {
			return utils.BadRequest(errors.WithMessage(err, "body"))
		}
		caller, err := utils.Caller(body.Caller)
		if err != nil {
			return err
		}
		if err := op(caller, &body); err != nil {
			return err
		}
		return utils.WriteJSON(w, s.staker.Boosts())
	}
}

//
// Owner operations
//

func (s *Stakers) handleSetting(name string) utils.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		var body SettingRequest
		if err := utils.ParseJSON(req.Body, &body); err != nil {
			return utils.BadRequest(errors.WithMessage(err, "body"))
		}
		caller, err := utils.Caller(body.Caller)
		if err != nil {
			return err
		}
		switch name {
		case "fee", "incentive", "min-staking-wait":
			if body.Value == nil {
				return utils.BadRequest(errors.New("value: required"))
			}
		case "paused":
			if body.Paused == nil {
				return utils.BadRequest(errors.New("paused: required"))
			}
		}

		switch name {
		case "fee":
			err = s.staker.SetFee(caller, *body.Value)
		case "incentive":
			err = s.staker.SetAccrueIncentive(caller, *body.Value)
		case "min-staking-wait":
			err = s.staker.SetMinStakingWait(caller, *body.Value)
		case "paused":
			err = s.staker.SetPaused(caller, *body.Paused)
		case "windows":
			bounds := make([]uint8, 0, len(body.Windows))
			for _, h := range body.Windows {
				if h < 0 || h > 24 {
					return utils.BadRequest(errors.Errorf("windows: hour %d out of range", h))
				}
				bounds = append(bounds, uint8(h))
			}
			err = s.staker.SetAccrualWindows(caller, bounds)
		default:
			return utils.NotFound(errors.Errorf("unknown setting %q", name))
		}
		if err != nil {
			return err
		}
		return utils.WriteJSON(w, s.staker.Settings())
	}
}

func (s *Stakers) handleUnstakeAll(emergency bool) utils.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		caller, err := parseCaller(req)
		if err != nil {
			return err
		}
		var freed *big.Int
		if emergency {
			freed, err = s.staker.EmergencyUnstakeAllFromMine(caller)
		} else {
			freed, err = s.staker.UnstakeAllFromMine(caller)
		}
		if err != nil {
			return err
		}
		return utils.WriteJSON(w, &Paid{Amount: utils.Hex(freed)})
	}
}

func (s *Stakers) handleWithdrawFees(w http.ResponseWriter, req *http.Request) error {
	var body WithdrawFeesRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caller, err := utils.Caller(body.Caller)
	if err != nil {
		return err
	}
	to := caller
	if body.To != nil {
		to = *body.To
	}
	paid, err := s.staker.WithdrawFees(caller, to)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Paid{Amount: utils.Hex(paid)})
}

func parseCaller(req *http.Request) (hoard.Address, error) {
	var body CallerRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return hoard.Address{}, utils.BadRequest(errors.WithMessage(err, "body"))
	}
	return utils.Caller(body.Caller)
}

func (s *Stakers) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("staker_get_summary").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetSummary))
	sub.Path("/positions").
		Methods(http.MethodGet).
		Name("staker_get_positions").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetPositions))
	sub.Path("/boosts").
		Methods(http.MethodGet).
		Name("staker_get_boosts").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetBoosts))
	sub.Path("/accounts/{address}").
		Methods(http.MethodGet).
		Name("staker_get_account").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetAccount))
	sub.Path("/accounts/{address}/deposits/{id}").
		Methods(http.MethodGet).
		Name("staker_get_deposit").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetDeposit))

	sub.Path("/deposit").
		Methods(http.MethodPost).
		Name("staker_post_deposit").
		HandlerFunc(utils.WrapHandlerFunc(s.handleDeposit))
	sub.Path("/withdraw").
		Methods(http.MethodPost).
		Name("staker_post_withdraw").
		HandlerFunc(utils.WrapHandlerFunc(s.handleWithdraw))
	sub.Path("/withdraw-all").
		Methods(http.MethodPost).
		Name("staker_post_withdraw_all").
		HandlerFunc(utils.WrapHandlerFunc(s.handleWithdrawAll))
	sub.Path("/claim").
		Methods(http.MethodPost).
		Name("staker_post_claim").
		HandlerFunc(utils.WrapHandlerFunc(s.handleClaim))
	sub.Path("/claim-all").
		Methods(http.MethodPost).
		Name("staker_post_claim_all").
		HandlerFunc(utils.WrapHandlerFunc(s.handleClaimAll))
	sub.Path("/stake").
		Methods(http.MethodPost).
		Name("staker_post_stake").
		HandlerFunc(utils.WrapHandlerFunc(s.handleStake))
	sub.Path("/accrue").
		Methods(http.MethodPost).
		Name("staker_post_accrue").
		HandlerFunc(utils.WrapHandlerFunc(s.handleAccrue))

	boosts := map[string]func(hoard.Address, *BoostRequest) error{
		"/boosts/treasures/stake": func(caller hoard.Address, b *BoostRequest) error {
			return s.staker.StakeTreasure(caller, b.ID, b.Amount)
		},
		"/boosts/treasures/unstake": func(caller hoard.Address, b *BoostRequest) error {
			return s.staker.UnstakeTreasure(caller, b.ID, b.Amount)
		},
		"/boosts/legions/stake": func(caller hoard.Address, b *BoostRequest) error {
			return s.staker.StakeLegion(caller, b.ID)
		},
		"/boosts/legions/unstake": func(caller hoard.Address, b *BoostRequest) error {
			return s.staker.UnstakeLegion(caller, b.ID)
		},
	}
	for path, op := range boosts {
		sub.Path(path).
			Methods(http.MethodPost).
			Name("staker_post" + strings.ReplaceAll(strings.ReplaceAll(path, "/", "_"), "-", "_")).
			HandlerFunc(utils.WrapHandlerFunc(s.handleBoost(op)))
	}

	for _, name := range []string{"fee", "incentive", "min-staking-wait", "paused", "windows"} {
		sub.Path("/admin/" + name).
			Methods(http.MethodPost).
			Name("staker_post_admin_" + strings.ReplaceAll(name, "-", "_")).
			HandlerFunc(utils.WrapHandlerFunc(s.handleSetting(name)))
	}
	sub.Path("/admin/unstake-all").
		Methods(http.MethodPost).
		Name("staker_post_admin_unstake_all").
		HandlerFunc(utils.WrapHandlerFunc(s.handleUnstakeAll(false)))
	sub.Path("/admin/emergency-unstake-all").
		Methods(http.MethodPost).
		Name("staker_post_admin_emergency_unstake_all").
		HandlerFunc(utils.WrapHandlerFunc(s.handleUnstakeAll(true)))
	sub.Path("/admin/withdraw-fees").
		Methods(http.MethodPost).
		Name("staker_post_admin_withdraw_fees").
		HandlerFunc(utils.WrapHandlerFunc(s.handleWithdrawFees))
}
