package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"birdbot/internal/daterange"
	"birdbot/internal/domain"
)

var fixedNow = time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fetchCall struct {
	method  string
	region  string
	species string
	back    int
	dist    int
}

type fakeFetcher struct {
	obs     []domain.Observation
	spots   []domain.Hotspot
	obsErr  error
	spotErr error
	calls   []fetchCall
}

func (f *fakeFetcher) RecentObservations(_ context.Context, regionCode string, back int) ([]domain.Observation, error) {
	f.calls = append(f.calls, fetchCall{method: "recent", region: regionCode, back: back})
	return f.obs, f.obsErr
}

func (f *fakeFetcher) NotableObservations(_ context.Context, regionCode string, back int) ([]domain.Observation, error) {
	f.calls = append(f.calls, fetchCall{method: "notable", region: regionCode, back: back})
	return f.obs, f.obsErr
}

func (f *fakeFetcher) SpeciesObservations(_ context.Context, regionCode, speciesCode string, back int) ([]domain.Observation, error) {
	f.calls = append(f.calls, fetchCall{method: "species", region: regionCode, species: speciesCode, back: back})
	return f.obs, f.obsErr
}

func (f *fakeFetcher) NearbyObservations(_ context.Context, _, _ float64, distKm, back int) ([]domain.Observation, error) {
	f.calls = append(f.calls, fetchCall{method: "nearby_obs", dist: distKm, back: back})
	return f.obs, f.obsErr
}

func (f *fakeFetcher) NearbyHotspots(_ context.Context, _, _ float64, distKm int) ([]domain.Hotspot, error) {
	f.calls = append(f.calls, fetchCall{method: "nearby_spots", dist: distKm})
	return f.spots, f.spotErr
}

func (f *fakeFetcher) RegionHotspots(_ context.Context, regionCode string) ([]domain.Hotspot, error) {
	f.calls = append(f.calls, fetchCall{method: "region_spots", region: regionCode})
	return f.spots, f.spotErr
}

type sentMessage struct {
	chatID    int64
	messageID int64
	text      string
	kb        Keyboard
}

type fakeTransport struct {
	sent    []sentMessage
	edits   []sentMessage
	nextID  int64
	sendErr error
	editErr error
}

func (t *fakeTransport) Send(_ context.Context, chatID int64, text string, kb Keyboard) (int64, error) {
	if t.sendErr != nil {
		return 0, t.sendErr
	}
	t.nextID++
	t.sent = append(t.sent, sentMessage{chatID: chatID, messageID: t.nextID, text: text, kb: kb})
	return t.nextID, nil
}

func (t *fakeTransport) Edit(_ context.Context, chatID, messageID int64, text string, kb Keyboard) error {
	if t.editErr != nil {
		return t.editErr
	}
	t.edits = append(t.edits, sentMessage{chatID: chatID, messageID: messageID, text: text, kb: kb})
	return nil
}

func (t *fakeTransport) lastSent() sentMessage { return t.sent[len(t.sent)-1] }

type fakeSearchLog struct {
	records []SearchRecord
}

func (l *fakeSearchLog) LogSearch(r SearchRecord) { l.records = append(l.records, r) }

func newTestOrchestrator(t *testing.T, f *fakeFetcher, tr *fakeTransport, opts ...OrchestratorOption) *Orchestrator {
	t.Helper()
	resolver := daterange.NewResolver(
		daterange.WithNow(func() time.Time { return fixedNow }),
		daterange.WithFallbackLocation(time.UTC),
	)
	opts = append(opts, WithClock(func() time.Time { return fixedNow }))
	o, err := NewOrchestrator(NewSessionContext(), f, tr, resolver, opts...)
	require.NoError(t, err)
	return o
}

// makeObs builds n observations from the day before fixedNow, well inside
// every preset window used in these tests.
func makeObs(n int) []domain.Observation {
	items := make([]domain.Observation, n)
	for i := range items {
		items[i] = domain.Observation{
			SpeciesCode:  fmt.Sprintf("sp%d", i),
			CommonName:   fmt.Sprintf("Species %d", i),
			Count:        1,
			ObservedAt:   time.Date(2026, 2, 19, 10, 0, 0, 0, time.UTC),
			LocationName: "Test Park",
		}
	}
	return items
}

func payloads(kb Keyboard) []string {
	var out []string
	for _, row := range kb {
		for _, b := range row {
			out = append(out, b.Data)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Region dialog
// ---------------------------------------------------------------------------

func TestHandleText_RegionStartsDateSelection(t *testing.T) {
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, &fakeFetcher{}, tr)

	require.NoError(t, o.HandleText(context.Background(), 7, "Singapore"))

	require.Len(t, tr.sent, 1)
	require.Equal(t, "Searching Singapore. Which dates?", tr.sent[0].text)
	require.Contains(t, payloads(tr.sent[0].kb), "date_sightings_last_week_SG")
	require.Contains(t, payloads(tr.sent[0].kb), "date_sightings_custom_SG")

	st, ok := o.Session().Store.State(7)
	require.True(t, ok)
	require.Equal(t, domain.StepDateSelection, st.Step)
	require.Equal(t, "SG", st.RegionCode)
	require.Equal(t, domain.QuerySightings, st.QueryType)
}

func TestHandleText_UnknownRegion(t *testing.T) {
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, &fakeFetcher{}, tr)

	err := o.HandleText(context.Background(), 7, "Atlantis!")

	var uerr *Error
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ErrorInvalidInput, uerr.Code)
	require.Equal(t, msgUnknownRegion, tr.lastSent().text)
}

func TestDatePreset_RunsSearchAndCachesResults(t *testing.T) {
	f := &fakeFetcher{obs: makeObs(12)}
	tr := &fakeTransport{}
	logged := &fakeSearchLog{}
	o := newTestOrchestrator(t, f, tr, WithSearchLogger(logged))

	ctx := context.Background()
	require.NoError(t, o.HandleText(ctx, 7, "Singapore"))
	require.NoError(t, o.HandleCallback(ctx, 7, 0, "date_sightings_last_week_SG"))

	require.Len(t, f.calls, 1)
	require.Equal(t, fetchCall{method: "recent", region: "SG", back: 7}, f.calls[0])

	last := tr.lastSent()
	require.Contains(t, last.text, "Showing 1–5 of 12")
	require.Contains(t, last.text, "Page 1 of 3")
	require.Contains(t, payloads(last.kb), "page_sightings_1")

	set, ok := o.Session().Cache.Get(domain.QuerySightings, 7)
	require.True(t, ok)
	require.Len(t, set.Items, 12)

	_, ok = o.Session().Store.State(7)
	require.False(t, ok, "completed search must return the chat to idle")

	require.Len(t, logged.records, 1)
	require.Equal(t, 12, logged.records[0].ResultCount)
	require.Equal(t, "SG", logged.records[0].RegionCode)
}

func TestDatePreset_NoResults(t *testing.T) {
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, &fakeFetcher{}, tr)

	ctx := context.Background()
	require.NoError(t, o.HandleText(ctx, 7, "Singapore"))
	require.NoError(t, o.HandleCallback(ctx, 7, 0, "date_sightings_today_SG"))

	require.Equal(t, msgNoResults, tr.lastSent().text)
	_, ok := o.Session().Store.State(7)
	require.False(t, ok)
}

// ---------------------------------------------------------------------------
// Pagination
// ---------------------------------------------------------------------------

func TestPageNav_ServedFromCacheWithoutRefetch(t *testing.T) {
	f := &fakeFetcher{obs: makeObs(12)}
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, f, tr)

	ctx := context.Background()
	require.NoError(t, o.HandleText(ctx, 7, "Singapore"))
	require.NoError(t, o.HandleCallback(ctx, 7, 0, "date_sightings_last_week_SG"))
	resultMsgID := tr.lastSent().messageID

	require.NoError(t, o.HandleCallback(ctx, 7, resultMsgID, "page_sightings_1"))

	require.Len(t, f.calls, 1, "page navigation must not re-fetch")
	require.Len(t, tr.edits, 1)
	require.Equal(t, resultMsgID, tr.edits[0].messageID)
	require.Contains(t, tr.edits[0].text, "Showing 6–10 of 12")
	require.Contains(t, tr.edits[0].text, "Page 2 of 3")
}

func TestPageNav_MissingCacheExpiresSearch(t *testing.T) {
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, &fakeFetcher{}, tr)

	require.NoError(t, o.HandleCallback(context.Background(), 7, 42, "page_sightings_1"))

	require.Len(t, tr.edits, 1)
	require.Equal(t, msgSearchExpired, tr.edits[0].text)
}

func TestPageNav_EditFailureFallsBackToSend(t *testing.T) {
	f := &fakeFetcher{obs: makeObs(12)}
	tr := &fakeTransport{editErr: errors.New("message too old")}
	o := newTestOrchestrator(t, f, tr)

	ctx := context.Background()
	require.NoError(t, o.HandleText(ctx, 7, "Singapore"))
	require.NoError(t, o.HandleCallback(ctx, 7, 0, "date_sightings_last_week_SG"))
	require.NoError(t, o.HandleCallback(ctx, 7, tr.lastSent().messageID, "page_sightings_2"))

	require.Contains(t, tr.lastSent().text, "Showing 11–12 of 12")
}

func TestJumpPage_Flow(t *testing.T) {
	f := &fakeFetcher{obs: makeObs(12)}
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, f, tr)

	ctx := context.Background()
	require.NoError(t, o.HandleText(ctx, 7, "Singapore"))
	require.NoError(t, o.HandleCallback(ctx, 7, 0, "date_sightings_last_week_SG"))

	require.NoError(t, o.HandleCallback(ctx, 7, 0, "jump_sightings"))
	require.Equal(t, fmt.Sprintf(promptJumpPage, 3), tr.lastSent().text)

	st, ok := o.Session().Store.State(7)
	require.True(t, ok)
	require.Equal(t, domain.StepAwaitingJumpPage, st.Step)

	require.NoError(t, o.HandleText(ctx, 7, "3"))
	require.Contains(t, tr.lastSent().text, "Showing 11–12 of 12")
	_, ok = o.Session().Store.State(7)
	require.False(t, ok)
}

func TestJumpPage_OutOfRange(t *testing.T) {
	f := &fakeFetcher{obs: makeObs(12)}
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, f, tr)

	ctx := context.Background()
	require.NoError(t, o.HandleText(ctx, 7, "Singapore"))
	require.NoError(t, o.HandleCallback(ctx, 7, 0, "date_sightings_last_week_SG"))
	require.NoError(t, o.HandleCallback(ctx, 7, 0, "jump_sightings"))

	err := o.HandleText(ctx, 7, "9")
	var uerr *Error
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ErrorInvalidInput, uerr.Code)
	require.Equal(t, msgInvalidPage, tr.lastSent().text)

	// The step survives so the user can type a valid number.
	st, ok := o.Session().Store.State(7)
	require.True(t, ok)
	require.Equal(t, domain.StepAwaitingJumpPage, st.Step)
}

// ---------------------------------------------------------------------------
// Failure recovery
// ---------------------------------------------------------------------------

func TestDatePreset_UpstreamFailureRecoversPrompt(t *testing.T) {
	f := &fakeFetcher{obsErr: errors.New("upstream 503")}
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, f, tr)

	ctx := context.Background()
	require.NoError(t, o.HandleText(ctx, 7, "Singapore"))

	err := o.HandleCallback(ctx, 7, 0, "date_sightings_today_SG")
	var uerr *Error
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ErrorUpstream, uerr.Code)

	n := len(tr.sent)
	require.GreaterOrEqual(t, n, 3)
	require.Equal(t, msgGenericApology, tr.sent[n-2].text)
	require.Equal(t, "Searching Singapore. Which dates?", tr.sent[n-1].text)
	require.Contains(t, payloads(tr.sent[n-1].kb), "date_sightings_today_SG", "recovered date prompt must carry its buttons")

	st, ok := o.Session().Store.State(7)
	require.True(t, ok)
	require.Equal(t, domain.StepDateSelection, st.Step)
}

// ---------------------------------------------------------------------------
// Hotspots
// ---------------------------------------------------------------------------

func TestHotspotSearch_Disambiguation(t *testing.T) {
	f := &fakeFetcher{spots: []domain.Hotspot{
		{LocationID: "L100", Name: "Gardens by the Bay", SpeciesCount: 210},
		{LocationID: "L200", Name: "Botanic Gardens", SpeciesCount: 180},
		{LocationID: "L300", Name: "Changi Beach"},
	}}
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, f, tr)

	ctx := context.Background()
	require.NoError(t, o.HandleText(ctx, 7, "Gardens, Singapore"))

	require.Equal(t, fetchCall{method: "region_spots", region: "SG"}, f.calls[0])
	require.Equal(t, hotspotPromptText("Gardens", "Singapore", 2), tr.lastSent().text)
	require.Contains(t, payloads(tr.lastSent().kb), "hotspot_sightings_L200")

	st, ok := o.Session().Store.State(7)
	require.True(t, ok)
	require.Equal(t, domain.StepHotspotSelection, st.Step)
	require.Len(t, st.Candidates, 2)

	require.NoError(t, o.HandleCallback(ctx, 7, 0, "hotspot_sightings_L200"))
	require.Equal(t, "Searching Botanic Gardens. Which dates?", tr.lastSent().text)

	st, ok = o.Session().Store.State(7)
	require.True(t, ok)
	require.Equal(t, "L200", st.RegionCode)
	require.True(t, st.IsHotspot)
	require.Nil(t, st.Candidates)
}

func TestHotspotSearch_SingleMatchSkipsPick(t *testing.T) {
	f := &fakeFetcher{spots: []domain.Hotspot{
		{LocationID: "L100", Name: "Sungei Buloh Wetland Reserve"},
		{LocationID: "L300", Name: "Changi Beach"},
	}}
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, f, tr)

	require.NoError(t, o.HandleText(context.Background(), 7, "Sungei Buloh, Singapore"))

	require.Equal(t, "Searching Sungei Buloh Wetland Reserve. Which dates?", tr.lastSent().text)
	st, _ := o.Session().Store.State(7)
	require.Equal(t, "L100", st.RegionCode)
	require.True(t, st.IsHotspot)
}

// ---------------------------------------------------------------------------
// Species dialog
// ---------------------------------------------------------------------------

func TestSpeciesFlow_EndToEnd(t *testing.T) {
	f := &fakeFetcher{obs: makeObs(2)}
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, f, tr)

	ctx := context.Background()
	require.NoError(t, o.HandleCommand(ctx, 7, "species"))
	require.Equal(t, promptSpeciesName, tr.lastSent().text)

	require.NoError(t, o.HandleText(ctx, 7, "Javan Myna"))
	require.Equal(t, promptSpeciesLocation, tr.lastSent().text)

	require.NoError(t, o.HandleText(ctx, 7, "Singapore"))
	require.Contains(t, payloads(tr.lastSent().kb), "date_species_last_week_SG")

	require.NoError(t, o.HandleCallback(ctx, 7, 0, "date_species_last_week_SG"))
	require.Equal(t, fetchCall{method: "species", region: "SG", species: "javmyn", back: 7}, f.calls[0])
}

func TestSpeciesPreset_WithoutStoredSpeciesExpires(t *testing.T) {
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, &fakeFetcher{}, tr)

	require.NoError(t, o.HandleCallback(context.Background(), 7, 0, "date_species_today_SG"))
	require.Equal(t, msgSearchExpired, tr.lastSent().text)
}

// ---------------------------------------------------------------------------
// Custom dates
// ---------------------------------------------------------------------------

func TestCustomDate_Flow(t *testing.T) {
	f := &fakeFetcher{obs: makeObs(3)}
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, f, tr)

	ctx := context.Background()
	require.NoError(t, o.HandleText(ctx, 7, "Singapore"))
	require.NoError(t, o.HandleCallback(ctx, 7, 0, "date_sightings_custom_SG"))
	require.Equal(t, promptCustomDate, tr.lastSent().text)

	// Unparseable input keeps the step and explains the formats.
	err := o.HandleText(ctx, 7, "next tuesday")
	var uerr *Error
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ErrorInvalidInput, uerr.Code)
	require.Equal(t, msgBadDate, tr.lastSent().text)

	// Too old is a distinct failure naming the earliest allowed date.
	err = o.HandleText(ctx, 7, "01/01/2025")
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ErrorRangeLimit, uerr.Code)
	require.Contains(t, tr.lastSent().text, "21 Jan 2026")

	st, ok := o.Session().Store.State(7)
	require.True(t, ok)
	require.Equal(t, domain.StepAwaitingCustomDate, st.Step)

	require.NoError(t, o.HandleText(ctx, 7, "14/02/2026 to 19/02/2026"))
	require.Equal(t, fetchCall{method: "recent", region: "SG", back: 7}, f.calls[0])
	require.Contains(t, tr.lastSent().text, "14 Feb 2026 – 19 Feb 2026")
}

// ---------------------------------------------------------------------------
// Nearby dialog
// ---------------------------------------------------------------------------

func TestNearbyFlow_EndToEnd(t *testing.T) {
	f := &fakeFetcher{
		obs:   makeObs(3),
		spots: []domain.Hotspot{{LocationID: "L9", Name: "Kranji Marshes", SpeciesCount: 120}},
	}
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, f, tr)

	ctx := context.Background()
	require.NoError(t, o.HandleLocation(ctx, 7, 1.35, 103.82))
	require.Equal(t, promptNearbyDistance, tr.lastSent().text)

	require.NoError(t, o.HandleText(ctx, 7, "10 km"))

	require.Len(t, f.calls, 2)
	require.Equal(t, fetchCall{method: "nearby_obs", dist: 10, back: 14}, f.calls[0])
	require.Equal(t, fetchCall{method: "nearby_spots", dist: 10}, f.calls[1])

	require.Contains(t, tr.lastSent().text, "Kranji Marshes")
	require.Contains(t, tr.sent[len(tr.sent)-2].text, "Within 10 km of your location")

	_, ok := o.Session().Store.State(7)
	require.False(t, ok)
}

func TestNearbyFlow_BadDistance(t *testing.T) {
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, &fakeFetcher{}, tr)

	ctx := context.Background()
	require.NoError(t, o.HandleLocation(ctx, 7, 1.35, 103.82))

	err := o.HandleText(ctx, 7, "900")
	var uerr *Error
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ErrorInvalidInput, uerr.Code)
	require.Equal(t, msgBadDistance, tr.lastSent().text)
}

func TestNearbyFlow_HotspotsSurviveObservationFailure(t *testing.T) {
	f := &fakeFetcher{
		obsErr: errors.New("upstream 500"),
		spots:  []domain.Hotspot{{LocationID: "L9", Name: "Kranji Marshes"}},
	}
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, f, tr)

	ctx := context.Background()
	require.NoError(t, o.HandleLocation(ctx, 7, 1.35, 103.82))
	require.NoError(t, o.HandleText(ctx, 7, "5"))

	require.Contains(t, tr.lastSent().text, "Kranji Marshes")
}

// ---------------------------------------------------------------------------
// Summary, full list, share
// ---------------------------------------------------------------------------

func TestSummaryAndShare_Buttons(t *testing.T) {
	f := &fakeFetcher{obs: makeObs(6)}
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, f, tr)

	ctx := context.Background()
	require.NoError(t, o.HandleText(ctx, 7, "Singapore"))
	require.NoError(t, o.HandleCallback(ctx, 7, 0, "date_sightings_last_week_SG"))

	require.NoError(t, o.HandleCallback(ctx, 7, 0, "specsummary_sightings"))
	require.Contains(t, tr.lastSent().text, "6 observations, 6 species")

	require.NoError(t, o.HandleCallback(ctx, 7, 0, "fulllist_sightings"))
	require.Contains(t, tr.lastSent().text, "Species 5")

	require.NoError(t, o.HandleCallback(ctx, 7, 0, "share_sightings"))
	require.Equal(t, msgShareConfirm, tr.lastSent().text)
	require.Contains(t, payloads(tr.lastSent().kb), "generate_share_sightings")

	o.shareID = func() string { return "feedc0de-0000-4000-8000-000000000000" }
	require.NoError(t, o.HandleCallback(ctx, 7, 0, "generate_share_sightings"))
	require.Contains(t, tr.lastSent().text, "Forward this message to share these sightings.")
	require.Contains(t, tr.lastSent().text, "Ref: feedc0de", "share message must carry the logged reference")

	require.NoError(t, o.HandleCallback(ctx, 7, 5, "cancel_share"))
	require.Equal(t, msgShareCancelled, tr.edits[len(tr.edits)-1].text)
}

// ---------------------------------------------------------------------------
// Commands and housekeeping buttons
// ---------------------------------------------------------------------------

func TestCommands(t *testing.T) {
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, &fakeFetcher{}, tr)
	ctx := context.Background()

	require.NoError(t, o.HandleCommand(ctx, 7, "notable"))
	st, _ := o.Session().Store.State(7)
	require.Equal(t, domain.QueryNotable, st.QueryType)
	require.Equal(t, domain.StepAwaitingRegion, st.Step)

	require.NoError(t, o.HandleCommand(ctx, 7, "cancel"))
	require.Equal(t, msgCancelled, tr.lastSent().text)
	_, ok := o.Session().Store.State(7)
	require.False(t, ok)

	require.NoError(t, o.HandleCommand(ctx, 7, "help"))
	require.Equal(t, helpText, tr.lastSent().text)
}

func TestCallback_UnknownPayloadIgnored(t *testing.T) {
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, &fakeFetcher{}, tr)

	require.NoError(t, o.HandleCallback(context.Background(), 7, 0, "bogus_thing"))
	require.Empty(t, tr.sent)
}

func TestCallback_NewSearchResetsDialog(t *testing.T) {
	tr := &fakeTransport{}
	o := newTestOrchestrator(t, &fakeFetcher{}, tr)
	ctx := context.Background()

	require.NoError(t, o.HandleCommand(ctx, 7, "species"))
	require.NoError(t, o.HandleCallback(ctx, 7, 0, "new_search"))

	require.Equal(t, promptRegion, tr.lastSent().text)
	st, ok := o.Session().Store.State(7)
	require.True(t, ok)
	require.Equal(t, domain.StepAwaitingRegion, st.Step)
	require.Equal(t, domain.QuerySightings, st.QueryType)
}
