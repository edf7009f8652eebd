package usecase

import (
	"context"
	"fmt"

	"birdbot/internal/button"
	"birdbot/internal/daterange"
	"birdbot/internal/domain"
	"birdbot/internal/resultcache"
)

// HandleCallback routes a decoded button press. messageID is the message the
// button was attached to; page navigation edits it in place, everything else
// sends fresh messages. Unknown payloads (buttons from an old deployment) are
// logged and dropped.
func (o *Orchestrator) HandleCallback(ctx context.Context, chatID, messageID int64, payload string) error {
	act, err := button.Parse(payload)
	if err != nil {
		o.log.Warn("unparseable callback payload", "chat_id", chatID, "payload", payload)
		return nil
	}

	switch act.Kind {
	case button.KindDatePreset:
		return o.handleDatePreset(ctx, chatID, act)

	case button.KindPage:
		return o.handlePageNav(ctx, chatID, messageID, act)

	case button.KindJump:
		return o.handleJumpRequest(ctx, chatID, act)

	case button.KindSummary:
		return o.handleSummary(ctx, chatID, act)

	case button.KindFullList:
		return o.handleFullList(ctx, chatID, act)

	case button.KindShare:
		if _, err := o.transport.Send(ctx, chatID, msgShareConfirm, shareConfirmKeyboard(act.QueryType)); err != nil {
			return newError(ErrorInternal, "send_share_confirm", err)
		}
		return nil

	case button.KindGenerateShare:
		return o.handleGenerateShare(ctx, chatID, act)

	case button.KindCancelShare:
		return o.sendOrEdit(ctx, chatID, messageID, msgShareCancelled, nil)

	case button.KindHotspot:
		return o.handleHotspotPick(ctx, chatID, act)

	case button.KindPageInfo:
		// Cursor label; pressing it does nothing.
		return nil

	case button.KindNewSearch:
		o.resetToIdle(chatID)
		st := domain.ConversationState{ChatID: chatID, QueryType: domain.QuerySightings}
		return o.prompt(ctx, chatID, promptRegion, nil, st, domain.StepAwaitingRegion)

	case button.KindDone:
		o.resetToIdle(chatID)
		if _, err := o.transport.Send(ctx, chatID, msgDone, nil); err != nil {
			return newError(ErrorInternal, "send_done", err)
		}
		return nil

	case button.KindHelp:
		if _, err := o.transport.Send(ctx, chatID, helpText, helpKeyboard()); err != nil {
			return newError(ErrorInternal, "send_help", err)
		}
		return nil

	case button.KindRequestLocation:
		if _, err := o.transport.Send(ctx, chatID, promptShareLocation, nil); err != nil {
			return newError(ErrorInternal, "send_location_prompt", err)
		}
		return nil

	case button.KindCommand:
		return o.HandleCommand(ctx, chatID, act.Command)
	}

	o.log.Warn("unhandled callback kind", "chat_id", chatID, "payload", payload)
	return nil
}

// handleDatePreset resolves a preset button into a date window and runs the
// search. The payload alone carries enough to run sightings and notable
// searches even when the dialog state is gone; species searches also need the
// stored species code, so without state they expire.
func (o *Orchestrator) handleDatePreset(ctx context.Context, chatID int64, act button.Action) error {
	st, ok := o.sess.Store.State(chatID)
	if !ok {
		st = domain.ConversationState{ChatID: chatID}
	}
	st.QueryType = act.QueryType
	if st.RegionCode != act.RegionCode {
		// Stale state from a different search; trust the payload.
		st.RegionCode = act.RegionCode
		st.DisplayName = act.RegionCode
		st.IsHotspot = false
	}

	if act.QueryType == domain.QuerySpecies && st.SpeciesCode == "" {
		o.resetToIdle(chatID)
		if _, err := o.transport.Send(ctx, chatID, msgSearchExpired, newSearchKeyboard()); err != nil {
			return newError(ErrorInternal, "send_expired", err)
		}
		return nil
	}

	if act.Preset == daterange.PresetCustom {
		return o.prompt(ctx, chatID, promptCustomDate, nil, st, domain.StepAwaitingCustomDate)
	}

	filter := o.resolver.Preset(act.Preset, st.RegionCode)
	return o.runRegionSearch(ctx, chatID, st, filter)
}

// handlePageNav serves a Prev/Next press from the cache, editing the result
// message in place. A missing cache entry expires the search.
func (o *Orchestrator) handlePageNav(ctx context.Context, chatID, messageID int64, act button.Action) error {
	set, ok := o.sess.Cache.Get(act.QueryType, chatID)
	if !ok {
		o.metrics.CacheMissesTotal.WithLabelValues(string(act.QueryType)).Inc()
		o.resetToIdle(chatID)
		return o.sendOrEdit(ctx, chatID, messageID, msgSearchExpired, newSearchKeyboard())
	}

	page, err := resultcache.Paginate(set, o.pageSize, act.PageIndex)
	if err != nil {
		if _, sendErr := o.transport.Send(ctx, chatID, msgInvalidPage, nil); sendErr != nil {
			return newError(ErrorInternal, "send_invalid_page", sendErr)
		}
		return newError(ErrorInvalidInput, "page_out_of_range", err)
	}
	o.metrics.CacheHitsTotal.WithLabelValues(string(act.QueryType)).Inc()
	return o.sendOrEdit(ctx, chatID, messageID, resultcache.RenderPage(set, page), pageKeyboard(set.QueryType, page))
}

func (o *Orchestrator) handleJumpRequest(ctx context.Context, chatID int64, act button.Action) error {
	set, ok := o.sess.Cache.Get(act.QueryType, chatID)
	if !ok {
		o.metrics.CacheMissesTotal.WithLabelValues(string(act.QueryType)).Inc()
		o.resetToIdle(chatID)
		if _, err := o.transport.Send(ctx, chatID, msgSearchExpired, newSearchKeyboard()); err != nil {
			return newError(ErrorInternal, "send_expired", err)
		}
		return nil
	}

	total := resultcache.TotalPages(len(set.Items), o.pageSize)
	st := domain.ConversationState{ChatID: chatID, QueryType: act.QueryType}
	return o.prompt(ctx, chatID, fmt.Sprintf(promptJumpPage, total), nil, st, domain.StepAwaitingJumpPage)
}

func (o *Orchestrator) handleSummary(ctx context.Context, chatID int64, act button.Action) error {
	set, ok := o.sess.Cache.Get(act.QueryType, chatID)
	if !ok {
		o.metrics.CacheMissesTotal.WithLabelValues(string(act.QueryType)).Inc()
		if _, err := o.transport.Send(ctx, chatID, msgSearchExpired, newSearchKeyboard()); err != nil {
			return newError(ErrorInternal, "send_expired", err)
		}
		return nil
	}
	o.metrics.CacheHitsTotal.WithLabelValues(string(act.QueryType)).Inc()
	if _, err := o.transport.Send(ctx, chatID, resultcache.RenderSummary(set), newSearchKeyboard()); err != nil {
		return newError(ErrorInternal, "send_summary", err)
	}
	return nil
}

func (o *Orchestrator) handleFullList(ctx context.Context, chatID int64, act button.Action) error {
	set, ok := o.sess.Cache.Get(act.QueryType, chatID)
	if !ok {
		o.metrics.CacheMissesTotal.WithLabelValues(string(act.QueryType)).Inc()
		if _, err := o.transport.Send(ctx, chatID, msgSearchExpired, newSearchKeyboard()); err != nil {
			return newError(ErrorInternal, "send_expired", err)
		}
		return nil
	}
	o.metrics.CacheHitsTotal.WithLabelValues(string(act.QueryType)).Inc()

	msgs := resultcache.RenderFullList(set)
	for i, msg := range msgs {
		var kb Keyboard
		if i == len(msgs)-1 {
			kb = newSearchKeyboard()
		}
		if _, err := o.transport.Send(ctx, chatID, msg, kb); err != nil {
			return newError(ErrorInternal, "send_full_list", err)
		}
	}
	return nil
}

// handleGenerateShare sends the forwardable rendition stamped with a share
// id, logged alongside it so a forwarded copy showing up elsewhere can be
// traced back by its footer reference.
func (o *Orchestrator) handleGenerateShare(ctx context.Context, chatID int64, act button.Action) error {
	set, ok := o.sess.Cache.Get(act.QueryType, chatID)
	if !ok {
		o.metrics.CacheMissesTotal.WithLabelValues(string(act.QueryType)).Inc()
		if _, err := o.transport.Send(ctx, chatID, msgSearchExpired, newSearchKeyboard()); err != nil {
			return newError(ErrorInternal, "send_expired", err)
		}
		return nil
	}
	o.metrics.CacheHitsTotal.WithLabelValues(string(act.QueryType)).Inc()

	shareID := o.shareID()
	for _, msg := range resultcache.RenderShare(set, shareRef(shareID)) {
		if _, err := o.transport.Send(ctx, chatID, msg, nil); err != nil {
			return newError(ErrorInternal, "send_share", err)
		}
	}
	o.log.Info("share generated",
		"share_id", shareID,
		"share_ref", shareRef(shareID),
		"chat_id", chatID,
		"query_type", act.QueryType,
		"result_count", len(set.Items),
	)
	return nil
}

// shareRef shortens a share id to the footer-sized reference token.
func shareRef(shareID string) string {
	if len(shareID) > 8 {
		return shareID[:8]
	}
	return shareID
}

// handleHotspotPick resolves a hotspot button against the stored candidate
// list. The candidates live only in dialog state, so after a restart past the
// snapshot staleness window the pick expires.
func (o *Orchestrator) handleHotspotPick(ctx context.Context, chatID int64, act button.Action) error {
	st, ok := o.sess.Store.State(chatID)
	if !ok || st.Step != domain.StepHotspotSelection {
		o.resetToIdle(chatID)
		if _, err := o.transport.Send(ctx, chatID, msgSearchExpired, newSearchKeyboard()); err != nil {
			return newError(ErrorInternal, "send_expired", err)
		}
		return nil
	}

	for _, h := range st.Candidates {
		if h.LocationID == act.LocationID {
			st.QueryType = act.QueryType
			st.RegionCode = h.LocationID
			st.DisplayName = h.Name
			st.IsHotspot = true
			st.Candidates = nil
			return o.toDateSelection(ctx, chatID, st)
		}
	}

	o.resetToIdle(chatID)
	if _, err := o.transport.Send(ctx, chatID, msgSearchExpired, newSearchKeyboard()); err != nil {
		return newError(ErrorInternal, "send_expired", err)
	}
	return nil
}
