package places

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegionCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Singapore", "SG", true},
		{"  united kingdom ", "GB", true},
		{"SG", "SG", true},
		{"us-ny", "US-NY", true},
		{"US-NY-109", "US-NY-109", true},
		{"Atlantis", "", false},
		{"-NY", "", false},
		{"U$-NY", "", false},
	}
	for _, tc := range tests {
		got, ok := RegionCode(tc.in)
		require.Equal(t, tc.ok, ok, "input %q", tc.in)
		require.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestSpeciesCode(t *testing.T) {
	code, ok := SpeciesCode("  Javan Myna ")
	require.True(t, ok)
	require.Equal(t, "javmyn", code)

	_, ok = SpeciesCode("Definitely Not A Bird")
	require.False(t, ok)
}
