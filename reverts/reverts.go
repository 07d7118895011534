// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
)

// Kind classifies a revert so callers can decide whether to fix input, wait, or escalate.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindPrecondition
	KindUnauthorized
	KindInsufficientLiquidity
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid-input"
	case KindPrecondition:
		return "precondition"
	case KindUnauthorized:
		return "unauthorized"
	case KindInsufficientLiquidity:
		return "insufficient-liquidity"
	case KindExternal:
		return "external"
	default:
		return "unknown"
	}
}

// ErrRevert aborts an operation without any state change.
type ErrRevert struct {
	kind    Kind
	message string
	cause   error
}

func New(kind Kind, message string) *ErrRevert {
	return &ErrRevert{
		kind:    kind,
		message: message,
	}
}

func InvalidInput(format string, args ...any) *ErrRevert {
	return New(KindInvalidInput, fmt.Sprintf(format, args...))
}

func Precondition(format string, args ...any) *ErrRevert {
	return New(KindPrecondition, fmt.Sprintf(format, args...))
}

func Unauthorized(format string, args ...any) *ErrRevert {
	return New(KindUnauthorized, fmt.Sprintf(format, args...))
}

func InsufficientLiquidity(format string, args ...any) *ErrRevert {
	return New(KindInsufficientLiquidity, fmt.Sprintf(format, args...))
}

func External(format string, args ...any) *ErrRevert {
	return New(KindExternal, fmt.Sprintf(format, args...))
}

// WrapExternal tags a failure of an outside collaborator as KindExternal. The cause stays reachable
// through errors.Is and errors.As. A nil err yields nil.
func WrapExternal(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &ErrRevert{
		kind:    KindExternal,
		message: fmt.Sprintf(format, args...) + ": " + err.Error(),
		cause:   err,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

func (e *ErrRevert) Kind() Kind {
	return e.kind
}

func (e *ErrRevert) Unwrap() error {
	return e.cause
}

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// KindOf returns the kind of the first revert in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var ve *ErrRevert
	if errors.As(err, &ve) {
		return ve.kind
	}
	return KindUnknown
}

// Is reports whether err carries a revert of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
