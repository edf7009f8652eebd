package usecase

import (
	"fmt"
	"strings"

	"birdbot/internal/button"
	"birdbot/internal/daterange"
	"birdbot/internal/domain"
	"birdbot/internal/resultcache"
)

const (
	msgGenericApology = "Sorry, something went wrong on our side. Please try again."
	msgSearchExpired  = "That search has expired. Start a new one?"
	msgNoResults      = "No sightings found for that search. Try a wider date range or another location."
	msgInvalidPage    = "That page number isn't valid."
	msgUnknownRegion  = "I couldn't find that region. Try a country name like \"Singapore\", a region code like \"US-NY\", or \"place, region\" for a hotspot."
	msgUnknownSpecies = "I couldn't find that species. Try its common name, e.g. \"Oriental Magpie-Robin\"."
	msgBadDate        = "I couldn't read that date. Use DD/MM/YYYY, YYYY-MM-DD or DD-MM-YYYY, optionally as \"from to until\", e.g. \"10/02/2026 to 18/02/2026\"."
	msgBadDistance    = "Please send a search radius in kilometres, between 1 and 50."
	msgShareCancelled = "Share cancelled."
	msgShareConfirm   = "Generate a forwardable copy of these results?"
	msgCancelled      = "Search cancelled."
	msgDone           = "Happy birding!"

	promptRegion          = "Where would you like to search? Send a country or region name, a region code, or \"place, region\" for a specific hotspot."
	promptSpeciesName     = "Which species are you looking for? Send its common name."
	promptSpeciesLocation = "Where should I look for it? Send a country or region name."
	promptCustomDate      = "Send a date or date range (DD/MM/YYYY, YYYY-MM-DD or DD-MM-YYYY, join two dates with \"to\")."
	promptNearbyDistance  = "Got your location. What search radius in kilometres (1–50)?"
	promptJumpPage        = "Which page would you like? Send a number between 1 and %d."
	promptShareLocation   = "Share your location (attachment menu → Location) and I'll look for sightings around it."

	helpText = "I can look up bird sightings for you.\n\n" +
		"/sightings – recent sightings in a region\n" +
		"/notable – notable (rare) sightings in a region\n" +
		"/species – recent sightings of one species\n" +
		"/nearby – sightings around a shared location\n" +
		"/cancel – abandon the current search\n\n" +
		"You can also send \"place, region\" (e.g. \"Gardens, Singapore\") to search a hotspot."
)

var presetButtonTitles = map[string]string{
	daterange.PresetToday:      "Today",
	daterange.PresetYesterday:  "Yesterday",
	daterange.PresetLast3Days:  "Last 3 days",
	daterange.PresetLastWeek:   "Last week",
	daterange.PresetLast14Days: "Last 14 days",
	daterange.PresetLastMonth:  "Last month",
}

// dateKeyboard offers the six presets plus custom entry for a query.
func dateKeyboard(qt domain.QueryType, regionCode string) Keyboard {
	var kb Keyboard
	row := make([]Button, 0, 2)
	for _, preset := range daterange.PresetNames {
		row = append(row, Button{
			Text: presetButtonTitles[preset],
			Data: button.DatePreset(qt, preset, regionCode),
		})
		if len(row) == 2 {
			kb = append(kb, row)
			row = make([]Button, 0, 2)
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	kb = append(kb, []Button{{Text: "Custom range", Data: button.DatePreset(qt, daterange.PresetCustom, regionCode)}})
	return kb
}

// pageKeyboard is the control row set under a paginated result message.
func pageKeyboard(qt domain.QueryType, page resultcache.Page) Keyboard {
	var nav []Button
	if page.Index > 0 {
		nav = append(nav, Button{Text: "‹ Prev", Data: button.Page(qt, page.Index-1)})
	}
	nav = append(nav, Button{
		Text: fmt.Sprintf("%d/%d", page.Index+1, page.TotalPages),
		Data: "page_info",
	})
	if page.Index < page.TotalPages-1 {
		nav = append(nav, Button{Text: "Next ›", Data: button.Page(qt, page.Index+1)})
	}

	return Keyboard{
		nav,
		{
			{Text: "Jump to page", Data: button.Jump(qt)},
			{Text: "Summary", Data: button.Summary(qt)},
		},
		{
			{Text: "Full list", Data: button.FullList(qt)},
			{Text: "Share", Data: button.Share(qt)},
		},
		{
			{Text: "New search", Data: "new_search"},
			{Text: "Done", Data: "done"},
		},
	}
}

// hotspotKeyboard lists candidate hotspots, one per row.
func hotspotKeyboard(qt domain.QueryType, spots []domain.Hotspot) Keyboard {
	kb := make(Keyboard, 0, len(spots))
	for _, h := range spots {
		title := h.Name
		if h.SpeciesCount > 0 {
			title = fmt.Sprintf("%s (%d species)", h.Name, h.SpeciesCount)
		}
		kb = append(kb, []Button{{Text: title, Data: button.Hotspot(qt, h.LocationID)}})
	}
	return kb
}

// helpKeyboard offers the command shortcuts under the help text.
func helpKeyboard() Keyboard {
	return Keyboard{
		{
			{Text: "Sightings", Data: button.Command("sightings")},
			{Text: "Notable", Data: button.Command("notable")},
		},
		{
			{Text: "Species", Data: button.Command("species")},
			{Text: "Nearby", Data: button.Command("nearby")},
		},
	}
}

func retryKeyboard() Keyboard {
	return Keyboard{{
		{Text: "New search", Data: "new_search"},
		{Text: "Help", Data: "help"},
	}}
}

func newSearchKeyboard() Keyboard {
	return Keyboard{{{Text: "New search", Data: "new_search"}}}
}

func shareConfirmKeyboard(qt domain.QueryType) Keyboard {
	return Keyboard{{
		{Text: "Generate", Data: button.GenerateShare(qt)},
		{Text: "Cancel", Data: "cancel_share"},
	}}
}

func hotspotPromptText(place, region string, n int) string {
	return fmt.Sprintf("I found %d hotspots matching %q in %s. Pick one:", n, place, region)
}

func hotspotNoneText(place, region string) string {
	return fmt.Sprintf("I couldn't find a hotspot matching %q in %s. Try another name, or send just the region.", place, region)
}

func datePromptText(displayName string) string {
	return fmt.Sprintf("Searching %s. Which dates?", displayName)
}

func rangeLimitText(oldest string) string {
	return fmt.Sprintf("Dates can go back at most 30 days. The earliest allowed start date is %s.", oldest)
}

func queryTitle(qt domain.QueryType) string {
	switch qt {
	case domain.QueryNotable:
		return "Notable sightings"
	case domain.QuerySpecies:
		return "Species sightings"
	case domain.QueryNearby:
		return "Nearby sightings"
	default:
		return "Sightings"
	}
}

func nearbyHotspotsText(spots []domain.Hotspot) string {
	var b strings.Builder
	b.WriteString("Birding hotspots near you:\n")
	for i, h := range spots {
		if i == 10 {
			break
		}
		fmt.Fprintf(&b, "%d. %s", i+1, h.Name)
		if h.SpeciesCount > 0 {
			fmt.Fprintf(&b, " — %d species recorded", h.SpeciesCount)
		}
		b.WriteString("\n")
	}
	return b.String()
}
