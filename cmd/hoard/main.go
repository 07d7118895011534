// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/hoard/api"
	"github.com/vechain/hoard/cmd/hoard/httpserver"
	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/log"
	"github.com/vechain/hoard/metrics"
)

var (
	version   string
	gitCommit string
	gitTag    string
	logger    = log.WithContext("pkg", "hoard")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Version: fullVersion(),
		Name:    "Hoard",
		Usage:   "Pooled staking coordinator and reward distributor",
		Flags: []cli.Flag{
			configFlag,
			dataDirFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiSlowQueriesThresholdFlag,
			apiLog5xxErrorsFlag,
			enableAPILogsFlag,
			verbosityFlag,
			jsonLogsFlag,
			pprofFlag,
			enableMetricsFlag,
			metricsAddrFlag,
			enableAdminFlag,
			adminAddrFlag,
			disableKeeperFlag,
			keeperIntervalFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:  "version",
				Usage: "print version",
				Action: func(*cli.Context) error {
					fmt.Println(fullVersion())
					return nil
				},
			},
			{
				Name:      "check-config",
				Usage:     "validate a config file and exit",
				ArgsUsage: "[config]",
				Flags:     []cli.Flag{configFlag},
				Action:    checkConfigAction,
			},
		},
	}
}

func checkConfigAction(ctx *cli.Context) error {
	path := ctx.String(configFlag.Name)
	if ctx.NArg() > 0 {
		path = ctx.Args().First()
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	fmt.Printf("%s: ok (%d pools, %d stashes, %d genesis balances)\n",
		path, len(cfg.Distributor.Pools), len(cfg.Distributor.Stashes), len(cfg.Genesis))
	return nil
}

func defaultAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()
	logLevel := initLogger(ctx)

	cfg, err := loadConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}
	if ctx.IsSet(keeperIntervalFlag.Name) {
		cfg.Keeper.Interval = ctx.Duration(keeperIntervalFlag.Name)
	}

	metricsURL := ""
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
		url, closeFunc, err := httpserver.StartMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			return fmt.Errorf("unable to start metrics server - %w", err)
		}
		metricsURL = url
		defer func() { logger.Info("stopping metrics server..."); closeFunc() }()
	}

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing database..."); db.Close() }()

	n, err := newNode(cfg, db, hoard.SystemClock{})
	if err != nil {
		return err
	}

	apiLogs := &atomic.Bool{}
	apiLogs.Store(ctx.Bool(enableAPILogsFlag.Name))

	adminURL := ""
	if ctx.Bool(enableAdminFlag.Name) {
		url, closeFunc, err := httpserver.StartAdminServer(ctx.String(adminAddrFlag.Name), logLevel, n.health, apiLogs)
		if err != nil {
			return fmt.Errorf("unable to start admin server - %w", err)
		}
		adminURL = url
		defer func() { logger.Info("stopping admin server..."); closeFunc() }()
	}

	handler := api.New(n.services(), api.Options{
		AllowedOrigins:       ctx.String(apiCorsFlag.Name),
		PprofOn:              ctx.Bool(pprofFlag.Name),
		EnableMetrics:        ctx.Bool(enableMetricsFlag.Name),
		EnableReqLogger:      apiLogs,
		SlowQueriesThreshold: time.Duration(ctx.Uint64(apiSlowQueriesThresholdFlag.Name)) * time.Millisecond,
		Log5xxErrors:         ctx.Bool(apiLog5xxErrorsFlag.Name),
	})
	apiURL, srvCloser, err := httpserver.StartAPIServer(ctx.String(apiAddrFlag.Name), handler)
	if err != nil {
		return err
	}
	defer func() { logger.Info("stopping API server..."); srvCloser() }()

	printStartupMessage(cfg, n, apiURL, adminURL, metricsURL)

	group, groupCtx := errgroup.WithContext(exitSignal)
	if !ctx.Bool(disableKeeperFlag.Name) {
		group.Go(func() error { return n.keeper.Run(groupCtx) })
	}
	group.Go(func() error {
		<-groupCtx.Done()
		return nil
	})
	return group.Wait()
}

func printStartupMessage(cfg *Config, n *node, apiURL, adminURL, metricsURL string) {
	orNone := func(s string) string {
		if s == "" {
			return "Disabled"
		}
		return s
	}
	fmt.Printf(`Starting %v
    Staker         [ %v %v fee %v bps incentive %v bps ]
    Distributor    [ %v %v pools %v stashes ]
    API portal     [ %v ]
    Admin portal   [ %v ]
    Metrics        [ %v ]
`,
		fullVersion(),
		cfg.Staker.Name, n.staker.Address(), cfg.Staker.FeeBPS, cfg.Staker.IncentiveBPS,
		n.distributor.Address(), n.distributor.PoolLength(), len(n.stashes),
		apiURL,
		orNone(adminURL),
		orNone(metricsURL),
	)
}
