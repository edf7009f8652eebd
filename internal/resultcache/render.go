package resultcache

import (
	"fmt"
	"strings"

	"birdbot/internal/domain"
)

const (
	// summaryBudget caps the single-message species summary.
	summaryBudget = 3800
	// messageBudget caps each message of a multi-part full list.
	messageBudget = 4000

	shareFooter = "\nForward this message to share these sightings."
)

// RenderPage renders one page of a cached set with a position header and
// page cursor line.
func RenderPage(set domain.CachedResultSet, page Page) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s\n", set.DisplayName, set.DateLabel)
	fmt.Fprintf(&b, "Showing %d–%d of %d\n\n", page.StartIndex+1, page.EndIndex, len(set.Items))
	for i, obs := range page.Items {
		b.WriteString(observationLine(page.StartIndex+i+1, obs))
	}
	fmt.Fprintf(&b, "\nPage %d of %d", page.Index+1, page.TotalPages)
	return b.String()
}

// RenderSummary renders the whole set grouped by species, then location,
// then date, in one message. When the character budget would be exceeded it
// stops and appends a "…and N more species" note, omitted when every
// species fit.
func RenderSummary(set domain.CachedResultSet) string {
	groups := groupBySpecies(set.Items)

	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s\n", set.DisplayName, set.DateLabel)
	fmt.Fprintf(&b, "%d observations, %d species\n", len(set.Items), len(groups))

	emitted := 0
	for _, g := range groups {
		block := "\n" + g.render()
		// Reserve room for a worst-case trailing note so the cutoff never
		// pushes the message over budget.
		if b.Len()+len(block) > summaryBudget-64 {
			break
		}
		b.WriteString(block)
		emitted++
	}

	if remaining := len(groups) - emitted; remaining > 0 {
		fmt.Fprintf(&b, "\n…and %d more species", remaining)
	}
	return b.String()
}

// RenderFullList renders every item in full detail, split across messages at
// the per-message budget. Continuation messages carry a "(Part N)" header.
func RenderFullList(set domain.CachedResultSet) []string {
	header := fmt.Sprintf("%s — %s\n%d observations\n", set.DisplayName, set.DateLabel, len(set.Items))
	return splitIntoMessages(header, set.Items, "")
}

// RenderShare renders the forwardable variant: same full detail, no
// interactive controls, with a forwarding footer on the final message. The
// share reference rides in the footer so a forwarded copy can be matched to
// the log line that recorded its generation.
func RenderShare(set domain.CachedResultSet, shareRef string) []string {
	header := fmt.Sprintf("%s — %s\n%d observations\n", set.DisplayName, set.DateLabel, len(set.Items))
	footer := shareFooter
	if shareRef != "" {
		footer += "\nRef: " + shareRef
	}
	return splitIntoMessages(header, set.Items, footer)
}

func splitIntoMessages(header string, items []domain.Observation, footer string) []string {
	var messages []string
	var b strings.Builder
	b.WriteString(header)

	for i, obs := range items {
		line := "\n" + observationLine(i+1, obs)
		if b.Len()+len(line) > messageBudget {
			messages = append(messages, b.String())
			b.Reset()
			fmt.Fprintf(&b, "(Part %d)\n", len(messages)+1)
		}
		b.WriteString(line)
	}

	if footer != "" {
		if b.Len()+len(footer) > messageBudget {
			messages = append(messages, b.String())
			b.Reset()
			fmt.Fprintf(&b, "(Part %d)\n", len(messages)+1)
		}
		b.WriteString(footer)
	}
	messages = append(messages, b.String())
	return messages
}

func observationLine(n int, o domain.Observation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s", n, o.CommonName)
	if o.ScientificName != "" {
		fmt.Fprintf(&b, " (%s)", o.ScientificName)
	}
	if o.Count > 0 {
		fmt.Fprintf(&b, " ×%d", o.Count)
	}
	b.WriteString("\n   ")
	b.WriteString(o.LocationName)
	if !o.ObservedAt.IsZero() {
		b.WriteString(" — " + o.ObservedAt.Format("02 Jan 15:04"))
	}
	b.WriteString("\n")
	return b.String()
}

type dateGroup struct {
	day   string
	count int
	times []string
}

type locationGroup struct {
	name  string
	dates []*dateGroup
}

type speciesGroup struct {
	common     string
	scientific string
	total      int
	locations  []*locationGroup
}

// groupBySpecies aggregates items by species, then location, then date,
// preserving first-appearance order at every level.
func groupBySpecies(items []domain.Observation) []*speciesGroup {
	var groups []*speciesGroup
	byCode := make(map[string]*speciesGroup)

	for _, obs := range items {
		code := obs.SpeciesCode
		if code == "" {
			code = obs.CommonName
		}
		sp, ok := byCode[code]
		if !ok {
			sp = &speciesGroup{common: obs.CommonName, scientific: obs.ScientificName}
			byCode[code] = sp
			groups = append(groups, sp)
		}
		if obs.Count > 0 {
			sp.total += obs.Count
		} else {
			sp.total++
		}

		var loc *locationGroup
		for _, l := range sp.locations {
			if l.name == obs.LocationName {
				loc = l
				break
			}
		}
		if loc == nil {
			loc = &locationGroup{name: obs.LocationName}
			sp.locations = append(sp.locations, loc)
		}

		day := obs.ObservedAt.Format("02 Jan")
		var dg *dateGroup
		for _, d := range loc.dates {
			if d.day == day {
				dg = d
				break
			}
		}
		if dg == nil {
			dg = &dateGroup{day: day}
			loc.dates = append(loc.dates, dg)
		}
		if obs.Count > 0 {
			dg.count += obs.Count
		} else {
			dg.count++
		}
		hhmm := obs.ObservedAt.Format("15:04")
		if !contains(dg.times, hhmm) {
			dg.times = append(dg.times, hhmm)
		}
	}
	return groups
}

func (g *speciesGroup) render() string {
	var b strings.Builder
	b.WriteString("• " + g.common)
	if g.scientific != "" {
		fmt.Fprintf(&b, " (%s)", g.scientific)
	}
	fmt.Fprintf(&b, " — %d\n", g.total)
	for _, loc := range g.locations {
		fmt.Fprintf(&b, "  %s\n", loc.name)
		for _, d := range loc.dates {
			fmt.Fprintf(&b, "    %s: %d at %s\n", d.day, d.count, strings.Join(d.times, ", "))
		}
	}
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
