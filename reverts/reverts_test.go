// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func Test_Reverts(t *testing.T) {
	revert := Precondition("deposit %d locked", 3)
	assert.Equal(t, "deposit 3 locked", revert.message)
	assert.Equal(t, revert.Error(), revert.message)
	assert.Equal(t, KindPrecondition, revert.Kind())

	assert.True(t, IsRevertErr(revert))
	assert.False(t, IsRevertErr(nil))
	assert.False(t, IsRevertErr(fmt.Errorf("test")))
	assert.False(t, IsRevertErr(big.NewInt(0)))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
	}{
		{InvalidInput("zero"), KindInvalidInput},
		{Unauthorized("no"), KindUnauthorized},
		{InsufficientLiquidity("short"), KindInsufficientLiquidity},
		{External("mine"), KindExternal},
		{errors.Wrap(Precondition("locked"), "withdraw"), KindPrecondition},
		{errors.New("disk"), KindUnknown},
		{nil, KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, KindOf(tt.err))
	}
	assert.True(t, Is(errors.WithMessage(External("x"), "wrapped"), KindExternal))
	assert.False(t, Is(nil, KindUnknown))
	assert.Equal(t, "insufficient-liquidity", KindInsufficientLiquidity.String())
}

func TestWrapExternal(t *testing.T) {
	assert.Nil(t, WrapExternal(nil, "mine"))

	down := errors.New("custodian down")
	err := WrapExternal(down, "withdraw position %d", 4)
	assert.Equal(t, "withdraw position 4: custodian down", err.Error())
	assert.Equal(t, KindExternal, KindOf(err))
	assert.True(t, errors.Is(err, down))

	// the outer kind wins over a revert raised by the collaborator itself
	err = errors.WithMessage(WrapExternal(Precondition("position locked"), "withdraw"), "unwind")
	assert.Equal(t, KindExternal, KindOf(err))
	var inner *ErrRevert
	assert.True(t, errors.As(errors.Unwrap(errors.Cause(err)), &inner))
	assert.Equal(t, KindPrecondition, inner.Kind())
}
