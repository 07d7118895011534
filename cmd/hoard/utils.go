// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/hoard/log"
	"github.com/vechain/hoard/lvldb"
)

func initLogger(ctx *cli.Context) *slog.LevelVar {
	lvl := log.FromVerbosity(int(ctx.Uint64(verbosityFlag.Name)))
	return log.Init(os.Stderr, lvl, ctx.Bool(jsonLogsFlag.Name))
}

// openStore opens the token database under data-dir, or an in-memory one when no dir is set.
func openStore(ctx *cli.Context) (*lvldb.LevelDB, error) {
	dir := ctx.String(dataDirFlag.Name)
	if dir == "" {
		logger.Info("data-dir not set, keeping balances in memory")
		return lvldb.NewMem()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create data dir %s", dir)
	}
	path := filepath.Join(dir, "tokens.db")
	db, err := lvldb.New(path, lvldb.Options{CacheSize: 16, OpenFilesCacheCapacity: 64})
	if err != nil {
		return nil, errors.WithMessagef(err, "open database [%v]", path)
	}
	logger.Info("database opened", "path", path)
	return db, nil
}

// handleExitSignal returns a context cancelled on the first SIGINT or SIGTERM.
func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(exitSignalCh)

		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}
