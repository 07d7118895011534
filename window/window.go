// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package window decides, from the UTC hour of day alone, whether the coordinator is accepting
// accruals or user actions.
package window

import (
	"fmt"
	"strings"

	"github.com/vechain/hoard/hoard"
	"github.com/vechain/hoard/reverts"
)

// MaxBounds is the maximum number of hour boundaries, i.e. two windows.
const MaxBounds = 4

// Window is a list of [start, end) hour pairs during which accrual is permitted.
type Window struct {
	bounds []uint8
}

// New validates bounds: even length, at most MaxBounds entries, strictly increasing, every entry
// below 24 except the last which may be 24.
func New(bounds []uint8) (Window, error) {
	if len(bounds)%2 != 0 {
		return Window{}, reverts.InvalidInput("accrual window needs an even number of bounds, got %d", len(bounds))
	}
	if len(bounds) > MaxBounds {
		return Window{}, reverts.InvalidInput("accrual window allows at most %d bounds, got %d", MaxBounds, len(bounds))
	}
	for i, b := range bounds {
		last := i == len(bounds)-1
		if b > 24 || (b == 24 && !last) {
			return Window{}, reverts.InvalidInput("accrual window bound %d out of range: %d", i, b)
		}
		if i > 0 && b <= bounds[i-1] {
			return Window{}, reverts.InvalidInput("accrual window bounds must increase: %d after %d", b, bounds[i-1])
		}
	}
	return Window{bounds: append([]uint8(nil), bounds...)}, nil
}

// MustNew is New for constant inputs.
func MustNew(bounds ...uint8) Window {
	w, err := New(bounds)
	if err != nil {
		panic(err)
	}
	return w
}

// Bounds returns a copy of the configured bounds.
func (w Window) Bounds() []uint8 {
	return append([]uint8(nil), w.bounds...)
}

// Disabled reports whether gating is switched off: no bounds, or a single window spanning the
// whole day. Both phases are then permitted at any time.
func (w Window) Disabled() bool {
	switch len(w.bounds) {
	case 0:
		return true
	case 2:
		return w.bounds[0] == 0 && w.bounds[1] == 24
	}
	return false
}

// Contains reports whether ts (unix seconds) falls inside one of the windows.
func (w Window) Contains(ts uint64) bool {
	hour := uint8((ts % hoard.Day) / hoard.Hour)
	for i := 0; i+1 < len(w.bounds); i += 2 {
		if hour >= w.bounds[i] && hour < w.bounds[i+1] {
			return true
		}
	}
	return false
}

// AcceptsAccrual reports whether harvest and distribute may run at ts.
func (w Window) AcceptsAccrual(ts uint64) bool {
	return w.Disabled() || w.Contains(ts)
}

// AcceptsUserActions reports whether deposits, withdrawals and claims may run at ts.
func (w Window) AcceptsUserActions(ts uint64) bool {
	return w.Disabled() || !w.Contains(ts)
}

func (w Window) String() string {
	if len(w.bounds) == 0 {
		return "[]"
	}
	parts := make([]string, 0, len(w.bounds)/2)
	for i := 0; i+1 < len(w.bounds); i += 2 {
		parts = append(parts, fmt.Sprintf("%02d:00-%02d:00", w.bounds[i], w.bounds[i+1]))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
