package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqualCents(t *testing.T) {
	require.True(t, EqualCents(0.1+0.2, 0.3))
	require.True(t, EqualCents(150.004, 150.0))
	require.False(t, EqualCents(150.01, 150.0))
}

func TestWithinTolerance(t *testing.T) {
	require.True(t, WithinTolerance(1000.00, 1000.005))
	require.False(t, WithinTolerance(1000.00, 995.00))
	// Exactly one cent apart is not reconciled; the bound is strict.
	require.False(t, WithinTolerance(1000.00, 1000.01))
}

func TestRoundCents(t *testing.T) {
	require.Equal(t, 99.5, RoundCents(99.499999))
	require.Equal(t, 0.0, RoundCents(0.0049))
}
