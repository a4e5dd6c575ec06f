package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApproxEqual(t *testing.T) {
	require.True(t, ApproxEqual(50.0, 50.00005, Tolerance))
	require.False(t, ApproxEqual(50.0, 50.001, Tolerance))
	require.True(t, ApproxEqual(float32(1), float32(1), float32(0)))
}

func TestFormat(t *testing.T) {
	require.Equal(t, "50.00", FormatAmount(50))
	require.Equal(t, "-0.33", FormatAmount(-1.0/3))
	require.Equal(t, "0.5", FormatLiteral(0.5))
	require.Equal(t, "100", FormatLiteral(100))
}
