package resultcache

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"birdbot/internal/domain"
)

func TestRenderPage_HeaderAndCursor(t *testing.T) {
	set := makeSet(1, domain.QuerySightings, 12)
	page, err := Paginate(set, 5, 1)
	require.NoError(t, err)

	out := RenderPage(set, page)
	require.Contains(t, out, "Testville — Last week (UTC)")
	require.Contains(t, out, "Showing 6–10 of 12")
	require.Contains(t, out, "Page 2 of 3")
	require.Contains(t, out, "6. Species 6")
	require.NotContains(t, out, "Species 5\n")
}

func TestRenderSummary_GroupsAndAggregates(t *testing.T) {
	day := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	set := domain.CachedResultSet{
		DisplayName: "Testville",
		DateLabel:   "Today (UTC)",
		Items: []domain.Observation{
			{SpeciesCode: "orimag", CommonName: "Oriental Magpie-Robin", Count: 2, LocationName: "Park A", ObservedAt: day.Add(8 * time.Hour)},
			{SpeciesCode: "orimag", CommonName: "Oriental Magpie-Robin", Count: 1, LocationName: "Park A", ObservedAt: day.Add(10 * time.Hour)},
			{SpeciesCode: "orimag", CommonName: "Oriental Magpie-Robin", Count: 3, LocationName: "Park B", ObservedAt: day.Add(9 * time.Hour)},
			{SpeciesCode: "javmyn", CommonName: "Javan Myna", Count: 5, LocationName: "Park A", ObservedAt: day.Add(8 * time.Hour)},
		},
	}

	out := RenderSummary(set)
	require.Contains(t, out, "4 observations, 2 species")
	require.Contains(t, out, "Oriental Magpie-Robin — 6")
	require.Contains(t, out, "20 Feb: 3 at 08:00, 10:00")
	require.Contains(t, out, "Javan Myna — 5")
	require.NotContains(t, out, "more species")
}

func TestRenderSummary_BudgetCutoffAppendsNote(t *testing.T) {
	items := make([]domain.Observation, 0, 400)
	for i := 0; i < 400; i++ {
		items = append(items, domain.Observation{
			SpeciesCode:  fmt.Sprintf("species%03d", i),
			CommonName:   fmt.Sprintf("Very Long Winded Species Name Number %03d", i),
			Count:        1,
			LocationName: "An Extremely Descriptive Wetland Reserve Name",
			ObservedAt:   time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC),
		})
	}
	set := domain.CachedResultSet{DisplayName: "Testville", DateLabel: "Today", Items: items}

	out := RenderSummary(set)
	require.LessOrEqual(t, len(out), 3800)
	require.Contains(t, out, "more species")
}

func TestRenderFullList_SplitsWithPartHeaders(t *testing.T) {
	set := makeSet(1, domain.QuerySightings, 400)
	msgs := RenderFullList(set)
	require.Greater(t, len(msgs), 1)
	for i, m := range msgs {
		require.LessOrEqual(t, len(m), 4000, "message %d over budget", i)
		if i > 0 {
			require.True(t, strings.HasPrefix(m, fmt.Sprintf("(Part %d)", i+1)))
		}
	}
	require.Contains(t, msgs[0], "400 observations")
}

func TestRenderShare_AppendsForwardFooterWithRef(t *testing.T) {
	set := makeSet(1, domain.QuerySightings, 3)
	msgs := RenderShare(set, "feedc0de")
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[len(msgs)-1], "Forward this message")
	require.Contains(t, msgs[len(msgs)-1], "Ref: feedc0de")

	plain := RenderFullList(set)
	require.NotContains(t, plain[len(plain)-1], "Forward this message")
	require.NotContains(t, plain[len(plain)-1], "Ref:")
}
