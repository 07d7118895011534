// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"net/http/pprof"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/hoard/api/distributors"
	"github.com/vechain/hoard/api/middleware"
	"github.com/vechain/hoard/api/stakers"
	"github.com/vechain/hoard/api/stashes"
	"github.com/vechain/hoard/api/tokens"
	"github.com/vechain/hoard/distributor"
	"github.com/vechain/hoard/log"
	"github.com/vechain/hoard/staker"
	"github.com/vechain/hoard/token"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins       string
	PprofOn              bool
	EnableMetrics        bool
	EnableReqLogger      *atomic.Bool
	SlowQueriesThreshold time.Duration
	Log5xxErrors         bool
}

// Services are the components exposed over HTTP. A nil component is not mounted.
type Services struct {
	Bank        *token.Bank
	Staker      *staker.Staker
	Distributor *distributor.Distributor
	Stashes     []stashes.Source
}

// New return api router
func New(services Services, opts Options) http.HandlerFunc {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()
	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	if services.Bank != nil {
		tokens.New(services.Bank).
			Mount(router, "/tokens")
	}
	if services.Staker != nil {
		stakers.New(services.Staker).
			Mount(router, "/staker")
	}
	if services.Distributor != nil {
		distributors.New(services.Distributor, services.Bank).
			Mount(router, "/distributor")
	}
	if len(services.Stashes) > 0 {
		stashes.New(services.Stashes, services.Bank).
			Mount(router, "/stashes")
	}

	if opts.PprofOn {
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
	)(handler)

	if opts.EnableReqLogger != nil {
		handler = middleware.RequestLoggerMiddleware(logger, opts.EnableReqLogger, opts.SlowQueriesThreshold, opts.Log5xxErrors)(handler)
	}

	return handler.ServeHTTP
}
