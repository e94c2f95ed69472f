package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "dinaspendidikan", NormalizeName("  Dinas\tPendidikan \n"))
	require.Equal(t, "", NormalizeName(" \n\t"))
}

func TestMatchName(t *testing.T) {
	matchers := []string{"bendaharaumum", "bud"}

	require.True(t, MatchName("Bendahara Umum Daerah", matchers))
	require.True(t, MatchName("Kuasa BUD", matchers))
	require.False(t, MatchName("Bendahara Pengeluaran", matchers))
}

func TestCollapseWhitespace(t *testing.T) {
	require.Equal(
		t,
		"Laporan Realisasi 2024",
		CollapseWhitespace("\n  Laporan \n\t Realisasi 2024  "),
	)
}
