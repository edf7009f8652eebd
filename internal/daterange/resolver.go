// Package daterange turns relative date presets and typed custom ranges into
// absolute date windows, resolving each region to its local timezone.
package daterange

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"birdbot/internal/domain"
)

const (
	// PresetToday through PresetLastMonth are the date-filter button names.
	PresetToday      = "today"
	PresetYesterday  = "yesterday"
	PresetLast3Days  = "last_3_days"
	PresetLastWeek   = "last_week"
	PresetLast14Days = "last_14_days"
	PresetLastMonth  = "last_month"
	// PresetCustom routes to the custom-date entry step instead of a window.
	PresetCustom = "custom"

	// maxLookbackDays is the upstream API limit on how far back a search may go.
	maxLookbackDays = 30

	endOfDay = 24*time.Hour - time.Millisecond
)

// ErrBadFormat indicates a custom date that matched none of the accepted
// formats. Distinct from ErrRangeLimit so callers can report the two
// failures differently.
var ErrBadFormat = errors.New("daterange: unrecognized date format")

// ErrRangeLimit indicates a parseable custom range whose start is older than
// the upstream 30-day window.
var ErrRangeLimit = errors.New("daterange: range exceeds upstream 30-day limit")

// PresetNames lists the window presets in display order (custom excluded).
var PresetNames = []string{
	PresetToday, PresetYesterday, PresetLast3Days,
	PresetLastWeek, PresetLast14Days, PresetLastMonth,
}

var presetLookback = map[string]int{
	PresetToday: 1,
	// The upstream fetch window must include an extra day so yesterday's
	// records are guaranteed to be present.
	PresetYesterday:  2,
	PresetLast3Days:  3,
	PresetLastWeek:   7,
	PresetLast14Days: 14,
	PresetLastMonth:  30,
}

var presetTitles = map[string]string{
	PresetToday:      "Today",
	PresetYesterday:  "Yesterday",
	PresetLast3Days:  "Last 3 days",
	PresetLastWeek:   "Last week",
	PresetLast14Days: "Last 14 days",
	PresetLastMonth:  "Last month",
}

var customDateFormats = []string{"02/01/2006", "2006-01-02", "02-01-2006"}

var rangeSeparator = regexp.MustCompile(`(?i)\s+to\s+`)

// Resolver computes absolute date windows in region-local time.
type Resolver struct {
	now      func() time.Time
	fallback *time.Location
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithFallbackLocation overrides the zone used when a region cannot be
// resolved, and the zone custom ranges are interpreted in.
func WithFallbackLocation(loc *time.Location) Option {
	return func(r *Resolver) { r.fallback = loc }
}

// NewResolver creates a Resolver using the real clock and host zone.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{now: time.Now, fallback: time.Local}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Preset resolves a named relative window in the region's local time.
// Unknown names behave as last_14_days.
func (r *Resolver) Preset(name, regionCode string) domain.DateFilter {
	lookback, ok := presetLookback[name]
	if !ok {
		name = PresetLast14Days
		lookback = presetLookback[name]
	}

	loc := r.Timezone(regionCode)
	now := r.now().In(loc)
	today := midnight(now)

	start := today.AddDate(0, 0, -(lookback - 1))
	end := now
	if name == PresetYesterday {
		start = today.AddDate(0, 0, -1)
		end = start.Add(endOfDay)
	}

	return domain.DateFilter{
		Start:        start,
		End:          end,
		LookbackDays: lookback,
		Label:        fmt.Sprintf("%s (%s)", presetTitles[name], zoneAbbrev(now)),
	}
}

// ParseCustomRange parses one date or two dates joined by "to". Accepted
// formats are DD/MM/YYYY, YYYY-MM-DD and DD-MM-YYYY. A reversed range is
// swapped silently. Returns ErrBadFormat for unparseable input and
// ErrRangeLimit when the start is older than the upstream window.
func (r *Resolver) ParseCustomRange(text string) (domain.DateFilter, error) {
	parts := rangeSeparator.Split(strings.TrimSpace(text), -1)
	if len(parts) == 0 || len(parts) > 2 {
		return domain.DateFilter{}, ErrBadFormat
	}

	start, err := parseDate(parts[0], r.fallback)
	if err != nil {
		return domain.DateFilter{}, err
	}
	end := start
	if len(parts) == 2 {
		end, err = parseDate(parts[1], r.fallback)
		if err != nil {
			return domain.DateFilter{}, err
		}
	}
	if start.After(end) {
		start, end = end, start
	}

	today := midnight(r.now().In(r.fallback))
	oldest := today.AddDate(0, 0, -maxLookbackDays)
	if start.Before(oldest) {
		return domain.DateFilter{}, ErrRangeLimit
	}

	lookback := int(today.Sub(start).Hours()/24) + 1
	if lookback > maxLookbackDays {
		lookback = maxLookbackDays
	}
	if lookback < 1 {
		lookback = 1
	}

	return domain.DateFilter{
		Start:        start,
		End:          end.Add(endOfDay),
		LookbackDays: lookback,
		Label:        rangeLabel(start, end),
	}, nil
}

// OldestAllowed returns the earliest custom start date accepted right now,
// for reporting the valid window back to the user.
func (r *Resolver) OldestAllowed() time.Time {
	return midnight(r.now().In(r.fallback)).AddDate(0, 0, -maxLookbackDays)
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range customDateFormats {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrBadFormat
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func rangeLabel(start, end time.Time) string {
	if start.Year() == end.Year() && start.YearDay() == end.YearDay() {
		return start.Format("02 Jan 2006")
	}
	return start.Format("02 Jan 2006") + " – " + end.Format("02 Jan 2006")
}
