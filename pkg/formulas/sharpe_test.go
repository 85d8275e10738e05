package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharpeRatio(t *testing.T) {
	sharpe := SharpeRatio(0.12, 0.02, 0.2)
	require.NotNil(t, sharpe)
	assert.InDelta(t, 0.5, *sharpe, 1e-12)

	assert.Nil(t, SharpeRatio(0.12, 0.02, 0))
}
