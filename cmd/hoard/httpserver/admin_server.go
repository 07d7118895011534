// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package httpserver

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/vechain/hoard/api/admin"
	"github.com/vechain/hoard/health"
)

func StartAdminServer(
	addr string,
	logLevel *slog.LevelVar,
	health *health.Health,
	apiLogs *atomic.Bool,
) (string, func(), error) {
	url, closeFunc, err := serve(addr, admin.New(logLevel, health, apiLogs), 5*time.Second)
	if err != nil {
		return "", nil, errors.WithMessage(err, "admin API")
	}
	return url + "/admin", closeFunc, nil
}
