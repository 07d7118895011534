// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stashes

import (
	"math/big"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/hoard/api/utils"
	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/stash"
	"github.com/vechain/hoard/token"
)

// Source is what every stash kind exposes.
type Source interface {
	Address() hoard.Address
	Name() string
	Kind() string
	Recipient() hoard.Address
	PendingPayout() (*big.Int, error)
	Rescue(caller hoard.Address, t token.Token, to hoard.Address, amount *big.Int) error
}

type Tokens interface {
	Ledger(symbol string) *token.Ledger
}

type Stashes struct {
	byName map[string]Source
	tokens Tokens
}

func New(sources []Source, tokens Tokens) *Stashes {
	byName := make(map[string]Source, len(sources))
	for _, s := range sources {
		byName[s.Name()] = s
	}
	return &Stashes{byName: byName, tokens: tokens}
}

func (s *Stashes) lookup(req *http.Request) (Source, error) {
	name := mux.Vars(req)["name"]
	src, ok := s.byName[name]
	if !ok {
		return nil, utils.NotFound(errors.Errorf("stash %q not found", name))
	}
	return src, nil
}

func (s *Stashes) streaming(req *http.Request) (*stash.Streaming, error) {
	src, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	st, ok := src.(*stash.Streaming)
	if !ok {
		return nil, utils.BadRequest(errors.Errorf("stash %q is not streaming", src.Name()))
	}
	return st, nil
}

func convertStash(src Source) (*Stash, error) {
	pending, err := src.PendingPayout()
	if err != nil {
		return nil, err
	}
	out := &Stash{
		Name:      src.Name(),
		Kind:      src.Kind(),
		Address:   src.Address(),
		Recipient: src.Recipient(),
		Pending:   utils.Hex(pending),
	}
	if st, ok := src.(*stash.Streaming); ok {
		state := st.State()
		out.Stream = &Stream{
			Rate:              utils.Hex(state.Rate),
			Start:             state.Start,
			End:               state.End,
			LastPull:          state.LastPull,
			PreviouslyAccrued: utils.Hex(state.PreviouslyAccrued),
			Started:           state.Started,
		}
	}
	return out, nil
}

func (s *Stashes) handleGetStashes(w http.ResponseWriter, _ *http.Request) error {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Stash, 0, len(names))
	for _, name := range names {
		st, err := convertStash(s.byName[name])
		if err != nil {
			return err
		}
		out = append(out, st)
	}
	return utils.WriteJSON(w, out)
}

func (s *Stashes) handleGetStash(w http.ResponseWriter, req *http.Request) error {
	src, err := s.lookup(req)
	if err != nil {
		return err
	}
	st, err := convertStash(src)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, st)
}

func (s *Stashes) handleStart(w http.ResponseWriter, req *http.Request) error {
	st, err := s.streaming(req)
	if err != nil {
		return err
	}
	var body StartRequest
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
	if err := st.Start(caller, amount, body.Duration); err != nil {
		return err
	}
	out, err := convertStash(st)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, out)
}

func (s *Stashes) handleStop(w http.ResponseWriter, req *http.Request) error {
	st, err := s.streaming(req)
	if err != nil {
		return err
	}
	var body StopRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caller, err := utils.Caller(body.Caller)
	if err != nil {
		return err
	}
	returned, err := st.Stop(caller)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"returned": utils.Hex(returned)})
}

func (s *Stashes) handleRescue(w http.ResponseWriter, req *http.Request) error {
	src, err := s.lookup(req)
	if err != nil {
		return err
	}
	var body RescueRequest
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
	amount, err := utils.Amount(body.Amount, "amount")
	if err != nil {
		return err
	}
	to := caller
	if body.To != nil {
		to = *body.To
	}
	if err := src.Rescue(caller, s.tokens.Ledger(body.Token), to, amount); err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"rescued": utils.Hex(amount)})
}

func (s *Stashes) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("stashes_get_all").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetStashes))
	sub.Path("/{name}").
		Methods(http.MethodGet).
		Name("stashes_get_stash").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetStash))
	sub.Path("/{name}/start").
		Methods(http.MethodPost).
		Name("stashes_post_start").
		HandlerFunc(utils.WrapHandlerFunc(s.handleStart))
	sub.Path("/{name}/stop").
		Methods(http.MethodPost).
		Name("stashes_post_stop").
		HandlerFunc(utils.WrapHandlerFunc(s.handleStop))
	sub.Path("/{name}/rescue").
		Methods(http.MethodPost).
		Name("stashes_post_rescue").
		HandlerFunc(utils.WrapHandlerFunc(s.handleRescue))
}
