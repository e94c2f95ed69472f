package sipd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMonthName(t *testing.T) {
	name, err := MonthName(1)
	require.NoError(t, err)
	require.Equal(t, "Januari", name)

	name, err = MonthName(12)
	require.NoError(t, err)
	require.Equal(t, "Desember", name)

	_, err = MonthName(0)
	require.ErrorIs(t, err, ErrInvalidMonth)
	_, err = MonthName(13)
	require.ErrorIs(t, err, ErrInvalidMonth)
}
