package usecase

import (
	"context"
	"fmt"
	"time"

	"birdbot/internal/daterange"
	"birdbot/internal/domain"
	"birdbot/internal/resultcache"
)

// runRegionSearch executes a region-scoped search for the state's query type,
// caches the result set and renders the first page. The dialog completes here:
// success and the empty-result case both return the chat to idle.
func (o *Orchestrator) runRegionSearch(ctx context.Context, chatID int64, st domain.ConversationState, filter domain.DateFilter) error {
	var (
		items []domain.Observation
		err   error
	)
	switch st.QueryType {
	case domain.QueryNotable:
		items, err = o.fetcher.NotableObservations(ctx, st.RegionCode, filter.LookbackDays)
	case domain.QuerySpecies:
		items, err = o.fetcher.SpeciesObservations(ctx, st.RegionCode, st.SpeciesCode, filter.LookbackDays)
	default:
		items, err = o.fetcher.RecentObservations(ctx, st.RegionCode, filter.LookbackDays)
	}
	if err != nil {
		return o.upstreamFailure(ctx, chatID, st.QueryType, err)
	}

	items = filterByWindow(items, filter)
	if len(items) == 0 {
		o.resetToIdle(chatID)
		if _, sendErr := o.transport.Send(ctx, chatID, msgNoResults, newSearchKeyboard()); sendErr != nil {
			return newError(ErrorInternal, "send_no_results", sendErr)
		}
		return nil
	}

	displayName := st.DisplayName
	if displayName == "" {
		displayName = st.RegionCode
	}
	set := domain.CachedResultSet{
		QueryType:   st.QueryType,
		ChatID:      chatID,
		Items:       items,
		DisplayName: displayName,
		RegionCode:  st.RegionCode,
		DateLabel:   filter.Label,
		Filter:      filter,
		IsHotspot:   st.IsHotspot,
	}
	o.sess.Cache.Put(set)

	page, err := resultcache.Paginate(set, o.pageSize, 0)
	if err != nil {
		return newError(ErrorInternal, "paginate_first_page", err)
	}
	if _, err := o.transport.Send(ctx, chatID, resultcache.RenderPage(set, page), pageKeyboard(set.QueryType, page)); err != nil {
		return newError(ErrorInternal, "send_results", err)
	}

	o.metrics.SearchesTotal.WithLabelValues(string(set.QueryType)).Inc()
	o.log.Info("search completed",
		"chat_id", chatID,
		"query", queryTitle(set.QueryType),
		"region", set.RegionCode,
		"results", len(set.Items),
	)
	if o.searchLog != nil {
		o.searchLog.LogSearch(SearchRecord{
			ChatID:      chatID,
			QueryType:   set.QueryType,
			RegionCode:  set.RegionCode,
			DisplayName: set.DisplayName,
			DateLabel:   set.DateLabel,
			ResultCount: len(set.Items),
			SearchedAt:  o.now(),
		})
	}
	o.resetToIdle(chatID)
	return nil
}

// runNearbySearch runs the observation and hotspot lookups around a shared
// location independently, so one failing does not hide the other.
func (o *Orchestrator) runNearbySearch(ctx context.Context, chatID int64, st domain.ConversationState, distKm int) error {
	filter := o.resolver.Preset(daterange.PresetLast14Days, "")

	items, obsErr := o.fetcher.NearbyObservations(ctx, st.Latitude, st.Longitude, distKm, filter.LookbackDays)
	spots, spotErr := o.fetcher.NearbyHotspots(ctx, st.Latitude, st.Longitude, distKm)
	if obsErr != nil && spotErr != nil {
		return o.upstreamFailure(ctx, chatID, domain.QueryNearby, obsErr)
	}

	st.DisplayName = fmt.Sprintf("Within %d km of your location", distKm)
	st.RegionCode = ""

	if obsErr != nil {
		o.metrics.FetchFailuresTotal.WithLabelValues(string(domain.QueryNearby)).Inc()
		o.log.Error("nearby observations fetch failed", "chat_id", chatID, "err", obsErr)
		if _, err := o.transport.Send(ctx, chatID, msgGenericApology, nil); err != nil {
			return newError(ErrorInternal, "send_nearby_apology", err)
		}
	} else {
		items = filterByWindow(items, filter)
		if len(items) == 0 {
			if _, err := o.transport.Send(ctx, chatID, msgNoResults, nil); err != nil {
				return newError(ErrorInternal, "send_no_results", err)
			}
		} else {
			set := domain.CachedResultSet{
				QueryType:   domain.QueryNearby,
				ChatID:      chatID,
				Items:       items,
				DisplayName: st.DisplayName,
				DateLabel:   filter.Label,
				Filter:      filter,
			}
			o.sess.Cache.Put(set)

			page, err := resultcache.Paginate(set, o.pageSize, 0)
			if err != nil {
				return newError(ErrorInternal, "paginate_first_page", err)
			}
			if _, err := o.transport.Send(ctx, chatID, resultcache.RenderPage(set, page), pageKeyboard(set.QueryType, page)); err != nil {
				return newError(ErrorInternal, "send_results", err)
			}
			o.metrics.SearchesTotal.WithLabelValues(string(domain.QueryNearby)).Inc()
			if o.searchLog != nil {
				o.searchLog.LogSearch(SearchRecord{
					ChatID:      chatID,
					QueryType:   domain.QueryNearby,
					DisplayName: set.DisplayName,
					DateLabel:   set.DateLabel,
					ResultCount: len(set.Items),
					SearchedAt:  o.now(),
				})
			}
		}
	}

	if spotErr != nil {
		o.log.Warn("nearby hotspots fetch failed", "chat_id", chatID, "err", spotErr)
	} else if len(spots) > 0 {
		if _, err := o.transport.Send(ctx, chatID, nearbyHotspotsText(spots), nil); err != nil {
			return newError(ErrorInternal, "send_nearby_hotspots", err)
		}
	}

	o.resetToIdle(chatID)
	return nil
}

// upstreamFailure reports a data-fetch failure, then re-issues the last prompt
// so the user can simply answer again instead of restarting the flow.
func (o *Orchestrator) upstreamFailure(ctx context.Context, chatID int64, qt domain.QueryType, err error) error {
	o.metrics.FetchFailuresTotal.WithLabelValues(string(qt)).Inc()
	o.log.Error("upstream fetch failed", "chat_id", chatID, "query_type", qt, "err", err)
	if _, sendErr := o.transport.Send(ctx, chatID, msgGenericApology, retryKeyboard()); sendErr != nil {
		o.log.Warn("apology send failed", "chat_id", chatID, "err", sendErr)
	}
	o.recoverPrompt(ctx, chatID)
	return newError(ErrorUpstream, "fetch_"+string(qt), err)
}

// filterByWindow keeps observations whose wall-clock time falls inside the
// filter window. The upstream fetch granularity is whole days, so presets
// like "yesterday" over-fetch and are trimmed here. Observation timestamps
// are already region-local wall times; comparing by rebased wall clock keeps
// the filter independent of the zone they were parsed in.
func filterByWindow(items []domain.Observation, filter domain.DateFilter) []domain.Observation {
	if filter.Start.IsZero() {
		return items
	}
	kept := items[:0:0]
	for _, obs := range items {
		if obs.ObservedAt.IsZero() {
			kept = append(kept, obs)
			continue
		}
		t := rebase(obs.ObservedAt, filter.Start.Location())
		if t.Before(filter.Start) || t.After(filter.End) {
			continue
		}
		kept = append(kept, obs)
	}
	return kept
}

func rebase(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
