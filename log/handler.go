// Copyright 2017 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package log

import (
	"context"
	"io"
	"log/slog"
	"os"

	ethlog "github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
)

type discardHandler struct{}

// DiscardHandler returns a no-op handler
func DiscardHandler() slog.Handler {
	return &discardHandler{}
}

func (h *discardHandler) Handle(_ context.Context, _ slog.Record) error { return nil }
func (h *discardHandler) Enabled(_ context.Context, _ slog.Level) bool  { return false }
func (h *discardHandler) WithGroup(_ string) slog.Handler               { return h }
func (h *discardHandler) WithAttrs(_ []slog.Attr) slog.Handler          { return h }

// levelFilter drops records below a level that can be changed at runtime.
type levelFilter struct {
	inner slog.Handler
	lvl   *slog.LevelVar
}

// WithLevel wraps h so only records at or above lvl pass.
func WithLevel(h slog.Handler, lvl *slog.LevelVar) slog.Handler {
	return &levelFilter{inner: h, lvl: lvl}
}

func (h *levelFilter) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.lvl.Level() && h.inner.Enabled(ctx, level)
}

func (h *levelFilter) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h *levelFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelFilter{inner: h.inner.WithAttrs(attrs), lvl: h.lvl}
}

func (h *levelFilter) WithGroup(name string) slog.Handler {
	return &levelFilter{inner: h.inner.WithGroup(name), lvl: h.lvl}
}

// Init installs a root handler writing to wr and returns the level knob, which the admin API
// adjusts at runtime. Terminal output is coloured when wr is an interactive terminal.
func Init(wr io.Writer, level slog.Level, json bool) *slog.LevelVar {
	var lvl slog.LevelVar
	lvl.Set(level)

	var h slog.Handler
	if json {
		h = ethlog.JSONHandler(wr)
	} else {
		useColor := false
		if f, ok := wr.(*os.File); ok {
			useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
		h = ethlog.NewTerminalHandler(wr, useColor)
	}
	SetDefault(WithLevel(h, &lvl))
	return &lvl
}
