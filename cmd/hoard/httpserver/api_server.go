// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package httpserver

import (
	"net/http"

	"github.com/pkg/errors"
)

// maxBodySize caps request bodies.
const maxBodySize = 64 * 1024

// StartAPIServer serves handler on addr with request bodies capped.
func StartAPIServer(addr string, handler http.Handler) (string, func(), error) {
	url, closeFunc, err := serve(addr, requestBodyLimit(handler), 0)
	if err != nil {
		return "", nil, errors.WithMessage(err, "API")
	}
	return url + "/", closeFunc, nil
}

func requestBodyLimit(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		h.ServeHTTP(w, r)
	})
}
