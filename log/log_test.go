// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithContextFollowsRoot(t *testing.T) {
	logger := WithContext("pkg", "test")

	var buf bytes.Buffer
	lvl := Init(&buf, LevelInfo, true)

	logger.Debug("hidden")
	logger.Info("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), `"pkg":"test"`)

	buf.Reset()
	lvl.Set(LevelDebug)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")

	SetDefault(DiscardHandler())
	buf.Reset()
	logger.Error("dropped")
	assert.Empty(t, buf.String())
}

func TestFromVerbosity(t *testing.T) {
	assert.Equal(t, LevelInfo, FromVerbosity(3))
	assert.Equal(t, LevelTrace, FromVerbosity(5))
}
