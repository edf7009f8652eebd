package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"birdbot/internal/daterange"
	"birdbot/internal/domain"
	"birdbot/internal/places"
	"birdbot/internal/resultcache"
)

const maxHotspotCandidates = 8

// HandleText routes a free-text message according to the step the chat is on.
// Text from an idle chat starts a plain sightings search with it as the
// region, which keeps "Singapore" working as a first message.
func (o *Orchestrator) HandleText(ctx context.Context, chatID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	st, ok := o.sess.Store.State(chatID)
	if !ok {
		st = domain.ConversationState{ChatID: chatID, Step: domain.StepIdle, QueryType: domain.QuerySightings}
	}

	switch st.Step {
	case domain.StepAwaitingCustomDate:
		return o.handleCustomDate(ctx, chatID, st, text)
	case domain.StepAwaitingNearbyDistance:
		return o.handleNearbyDistance(ctx, chatID, st, text)
	case domain.StepAwaitingSpeciesName:
		return o.handleSpeciesName(ctx, chatID, st, text)
	case domain.StepAwaitingJumpPage:
		return o.handleJumpPage(ctx, chatID, st, text)
	case domain.StepAwaitingRegion, domain.StepAwaitingSpeciesLocation:
		return o.handlePlaceSearch(ctx, chatID, st, text)
	default:
		if st.QueryType == "" {
			st.QueryType = domain.QuerySightings
		}
		return o.handlePlaceSearch(ctx, chatID, st, text)
	}
}

// HandleLocation starts a nearby search from a shared location.
func (o *Orchestrator) HandleLocation(ctx context.Context, chatID int64, lat, lng float64) error {
	st := domain.ConversationState{
		ChatID:    chatID,
		QueryType: domain.QueryNearby,
		Latitude:  lat,
		Longitude: lng,
	}
	return o.prompt(ctx, chatID, promptNearbyDistance, nil, st, domain.StepAwaitingNearbyDistance)
}

// HandleCommand handles a slash command or its button shortcut. Commands
// always abandon whatever flow was in progress.
func (o *Orchestrator) HandleCommand(ctx context.Context, chatID int64, name string) error {
	o.resetToIdle(chatID)

	switch name {
	case "sightings", "notable":
		qt := domain.QuerySightings
		if name == "notable" {
			qt = domain.QueryNotable
		}
		st := domain.ConversationState{ChatID: chatID, QueryType: qt}
		return o.prompt(ctx, chatID, promptRegion, nil, st, domain.StepAwaitingRegion)

	case "species":
		st := domain.ConversationState{ChatID: chatID, QueryType: domain.QuerySpecies}
		return o.prompt(ctx, chatID, promptSpeciesName, nil, st, domain.StepAwaitingSpeciesName)

	case "nearby":
		if _, err := o.transport.Send(ctx, chatID, promptShareLocation, nil); err != nil {
			return newError(ErrorInternal, "send_location_prompt", err)
		}
		return nil

	case "cancel":
		if _, err := o.transport.Send(ctx, chatID, msgCancelled, newSearchKeyboard()); err != nil {
			return newError(ErrorInternal, "send_cancelled", err)
		}
		return nil

	default:
		// start, help and anything unrecognized all get the help text.
		if _, err := o.transport.Send(ctx, chatID, helpText, helpKeyboard()); err != nil {
			return newError(ErrorInternal, "send_help", err)
		}
		return nil
	}
}

// handlePlaceSearch resolves typed place input. Plain input is a region name
// or code; "place, region" narrows to hotspots within the region.
func (o *Orchestrator) handlePlaceSearch(ctx context.Context, chatID int64, st domain.ConversationState, text string) error {
	if place, region, ok := splitPlaceRegion(text); ok {
		return o.handleHotspotSearch(ctx, chatID, st, place, region)
	}

	code, ok := places.RegionCode(text)
	if !ok {
		if _, err := o.transport.Send(ctx, chatID, msgUnknownRegion, nil); err != nil {
			return newError(ErrorInternal, "send_unknown_region", err)
		}
		return newError(ErrorInvalidInput, "unknown_region", nil)
	}

	st.RegionCode = code
	st.DisplayName = text
	st.IsHotspot = false
	return o.toDateSelection(ctx, chatID, st)
}

// handleHotspotSearch matches "place, region" against the region's hotspot
// list: one match proceeds straight to date selection, several become a pick
// list capped at maxHotspotCandidates.
func (o *Orchestrator) handleHotspotSearch(ctx context.Context, chatID int64, st domain.ConversationState, place, region string) error {
	code, ok := places.RegionCode(region)
	if !ok {
		if _, err := o.transport.Send(ctx, chatID, msgUnknownRegion, nil); err != nil {
			return newError(ErrorInternal, "send_unknown_region", err)
		}
		return newError(ErrorInvalidInput, "unknown_region", nil)
	}

	spots, err := o.fetcher.RegionHotspots(ctx, code)
	if err != nil {
		return o.upstreamFailure(ctx, chatID, st.QueryType, err)
	}

	var matches []domain.Hotspot
	needle := strings.ToLower(place)
	for _, h := range spots {
		if strings.Contains(strings.ToLower(h.Name), needle) {
			matches = append(matches, h)
			if len(matches) == maxHotspotCandidates {
				break
			}
		}
	}

	switch len(matches) {
	case 0:
		if _, err := o.transport.Send(ctx, chatID, hotspotNoneText(place, region), nil); err != nil {
			return newError(ErrorInternal, "send_no_hotspots", err)
		}
		return newError(ErrorInvalidInput, "no_hotspot_match", nil)
	case 1:
		st.RegionCode = matches[0].LocationID
		st.DisplayName = matches[0].Name
		st.IsHotspot = true
		return o.toDateSelection(ctx, chatID, st)
	default:
		st.Candidates = matches
		return o.prompt(ctx, chatID, hotspotPromptText(place, region, len(matches)), hotspotKeyboard(st.QueryType, matches), st, domain.StepHotspotSelection)
	}
}

func (o *Orchestrator) handleSpeciesName(ctx context.Context, chatID int64, st domain.ConversationState, text string) error {
	code, ok := places.SpeciesCode(text)
	if !ok {
		if _, err := o.transport.Send(ctx, chatID, msgUnknownSpecies, nil); err != nil {
			return newError(ErrorInternal, "send_unknown_species", err)
		}
		return newError(ErrorInvalidInput, "unknown_species", nil)
	}

	st.SpeciesCode = code
	st.SpeciesName = strings.TrimSpace(text)
	return o.prompt(ctx, chatID, promptSpeciesLocation, nil, st, domain.StepAwaitingSpeciesLocation)
}

// handleCustomDate parses a typed date or range. Both failure modes keep the
// step so the user can just type again, but each gets its own message: a
// format error repeats the accepted formats, a range-limit error names the
// earliest allowed date.
func (o *Orchestrator) handleCustomDate(ctx context.Context, chatID int64, st domain.ConversationState, text string) error {
	filter, err := o.resolver.ParseCustomRange(text)
	if err != nil {
		msg := msgBadDate
		if errors.Is(err, daterange.ErrRangeLimit) {
			msg = rangeLimitText(o.resolver.OldestAllowed().Format("02 Jan 2006"))
		}
		if _, sendErr := o.transport.Send(ctx, chatID, msg, nil); sendErr != nil {
			return newError(ErrorInternal, "send_bad_date", sendErr)
		}
		if errors.Is(err, daterange.ErrRangeLimit) {
			return newError(ErrorRangeLimit, "custom_range_too_old", err)
		}
		return newError(ErrorInvalidInput, "bad_custom_date", err)
	}
	return o.runRegionSearch(ctx, chatID, st, filter)
}

func (o *Orchestrator) handleNearbyDistance(ctx context.Context, chatID int64, st domain.ConversationState, text string) error {
	raw := strings.TrimSpace(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(text)), "km"))
	dist, err := strconv.Atoi(raw)
	if err != nil || dist < 1 || dist > 50 {
		if _, sendErr := o.transport.Send(ctx, chatID, msgBadDistance, nil); sendErr != nil {
			return newError(ErrorInternal, "send_bad_distance", sendErr)
		}
		return newError(ErrorInvalidInput, "bad_distance", err)
	}
	return o.runNearbySearch(ctx, chatID, st, dist)
}

// handleJumpPage turns a typed one-based page number into a rendered page.
// A vanished cache entry (e.g. after a restart) expires the whole search.
func (o *Orchestrator) handleJumpPage(ctx context.Context, chatID int64, st domain.ConversationState, text string) error {
	set, ok := o.sess.Cache.Get(st.QueryType, chatID)
	if !ok {
		o.metrics.CacheMissesTotal.WithLabelValues(string(st.QueryType)).Inc()
		o.resetToIdle(chatID)
		if _, err := o.transport.Send(ctx, chatID, msgSearchExpired, newSearchKeyboard()); err != nil {
			return newError(ErrorInternal, "send_expired", err)
		}
		return nil
	}

	userPage, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		if _, sendErr := o.transport.Send(ctx, chatID, msgInvalidPage, nil); sendErr != nil {
			return newError(ErrorInternal, "send_invalid_page", sendErr)
		}
		return newError(ErrorInvalidInput, "bad_page_number", err)
	}
	idx, err := resultcache.UserPageIndex(set, o.pageSize, userPage)
	if err != nil {
		if _, sendErr := o.transport.Send(ctx, chatID, msgInvalidPage, nil); sendErr != nil {
			return newError(ErrorInternal, "send_invalid_page", sendErr)
		}
		return newError(ErrorInvalidInput, "page_out_of_range", err)
	}

	page, err := resultcache.Paginate(set, o.pageSize, idx)
	if err != nil {
		return newError(ErrorInternal, "paginate_jump", err)
	}
	o.metrics.CacheHitsTotal.WithLabelValues(string(st.QueryType)).Inc()
	if _, err := o.transport.Send(ctx, chatID, resultcache.RenderPage(set, page), pageKeyboard(set.QueryType, page)); err != nil {
		return newError(ErrorInternal, "send_jump_page", err)
	}
	o.resetToIdle(chatID)
	return nil
}

// toDateSelection moves a resolved place into the date-preset step.
func (o *Orchestrator) toDateSelection(ctx context.Context, chatID int64, st domain.ConversationState) error {
	return o.prompt(ctx, chatID, datePromptText(st.DisplayName), dateKeyboard(st.QueryType, st.RegionCode), st, domain.StepDateSelection)
}

// splitPlaceRegion splits "place, region" input at the last comma.
func splitPlaceRegion(text string) (place, region string, ok bool) {
	i := strings.LastIndex(text, ",")
	if i < 0 {
		return "", "", false
	}
	place = strings.TrimSpace(text[:i])
	region = strings.TrimSpace(text[i+1:])
	if place == "" || region == "" {
		return "", "", false
	}
	return place, region, true
}
