// Package button encodes and decodes inline-button callback payloads. The
// wire strings are positional for compatibility, but parsing goes through a
// tagged Action so preset names containing underscores (last_3_days,
// last_14_days) need no segment-count special cases: the preset segment is
// matched against the closed preset set.
package button

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"birdbot/internal/domain"
)

// Kind discriminates the parsed payload variants.
type Kind int

const (
	KindUnknown Kind = iota
	KindDatePreset
	KindPage
	KindJump
	KindSummary
	KindFullList
	KindShare
	KindGenerateShare
	KindHotspot
	KindPageInfo
	KindCancelShare
	KindNewSearch
	KindDone
	KindHelp
	KindRequestLocation
	KindCommand
)

// ErrUnknownPayload indicates a callback payload matching no known grammar.
var ErrUnknownPayload = errors.New("button: unknown payload")

// Action is a decoded callback payload. Only the fields relevant to Kind
// are populated.
type Action struct {
	Kind       Kind
	QueryType  domain.QueryType
	Preset     string
	RegionCode string
	PageIndex  int
	LocationID string
	Command    string
}

var knownPresets = map[string]bool{
	"today": true, "yesterday": true, "last_3_days": true,
	"last_week": true, "last_14_days": true, "last_month": true,
	"custom": true,
}

var fixedTokens = map[string]Kind{
	"page_info":        KindPageInfo,
	"cancel_share":     KindCancelShare,
	"new_search":       KindNewSearch,
	"done":             KindDone,
	"help":             KindHelp,
	"request_location": KindRequestLocation,
}

// Parse decodes a callback payload into a tagged Action.
func Parse(payload string) (Action, error) {
	if kind, ok := fixedTokens[payload]; ok {
		return Action{Kind: kind}, nil
	}

	switch {
	case strings.HasPrefix(payload, "cmd_"):
		name := strings.TrimPrefix(payload, "cmd_")
		if name == "" {
			return Action{}, fmt.Errorf("%w: %q", ErrUnknownPayload, payload)
		}
		return Action{Kind: KindCommand, Command: name}, nil

	case strings.HasPrefix(payload, "date_"):
		return parseDate(payload)

	case strings.HasPrefix(payload, "page_"):
		return parsePage(payload)

	case strings.HasPrefix(payload, "hotspot_"):
		return parseHotspot(payload)

	case strings.HasPrefix(payload, "generate_share_"):
		return queryTypeAction(KindGenerateShare, strings.TrimPrefix(payload, "generate_share_"), payload)

	case strings.HasPrefix(payload, "jump_"):
		return queryTypeAction(KindJump, strings.TrimPrefix(payload, "jump_"), payload)

	case strings.HasPrefix(payload, "specsummary_"):
		return queryTypeAction(KindSummary, strings.TrimPrefix(payload, "specsummary_"), payload)

	case strings.HasPrefix(payload, "fulllist_"):
		return queryTypeAction(KindFullList, strings.TrimPrefix(payload, "fulllist_"), payload)

	case strings.HasPrefix(payload, "share_"):
		return queryTypeAction(KindShare, strings.TrimPrefix(payload, "share_"), payload)
	}

	return Action{}, fmt.Errorf("%w: %q", ErrUnknownPayload, payload)
}

// parseDate decodes date_{queryType}_{preset}_{regionCode}. The region code
// never contains underscores, so the preset is everything between the query
// type and the final segment; it must be a member of the closed preset set.
func parseDate(payload string) (Action, error) {
	rest := strings.TrimPrefix(payload, "date_")
	parts := strings.Split(rest, "_")
	if len(parts) < 3 {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownPayload, payload)
	}
	qt := domain.QueryType(parts[0])
	region := parts[len(parts)-1]
	preset := strings.Join(parts[1:len(parts)-1], "_")
	if !qt.Valid() || region == "" || !knownPresets[preset] {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownPayload, payload)
	}
	return Action{Kind: KindDatePreset, QueryType: qt, Preset: preset, RegionCode: region}, nil
}

func parsePage(payload string) (Action, error) {
	rest := strings.TrimPrefix(payload, "page_")
	parts := strings.Split(rest, "_")
	if len(parts) != 2 {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownPayload, payload)
	}
	qt := domain.QueryType(parts[0])
	idx, err := strconv.Atoi(parts[1])
	if !qt.Valid() || err != nil || idx < 0 {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownPayload, payload)
	}
	return Action{Kind: KindPage, QueryType: qt, PageIndex: idx}, nil
}

func parseHotspot(payload string) (Action, error) {
	rest := strings.TrimPrefix(payload, "hotspot_")
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownPayload, payload)
	}
	qt := domain.QueryType(parts[0])
	if !qt.Valid() || parts[1] == "" {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownPayload, payload)
	}
	return Action{Kind: KindHotspot, QueryType: qt, LocationID: parts[1]}, nil
}

func queryTypeAction(kind Kind, rawType, payload string) (Action, error) {
	qt := domain.QueryType(rawType)
	if !qt.Valid() {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownPayload, payload)
	}
	return Action{Kind: kind, QueryType: qt}, nil
}

// DatePreset encodes a date-preset button payload.
func DatePreset(qt domain.QueryType, preset, regionCode string) string {
	return fmt.Sprintf("date_%s_%s_%s", qt, preset, regionCode)
}

// Page encodes a zero-based page-navigation payload.
func Page(qt domain.QueryType, pageIndex int) string {
	return fmt.Sprintf("page_%s_%d", qt, pageIndex)
}

// Jump encodes a jump-to-page payload.
func Jump(qt domain.QueryType) string { return "jump_" + string(qt) }

// Summary encodes a species-summary payload.
func Summary(qt domain.QueryType) string { return "specsummary_" + string(qt) }

// FullList encodes a full-list payload.
func FullList(qt domain.QueryType) string { return "fulllist_" + string(qt) }

// Share encodes a share payload.
func Share(qt domain.QueryType) string { return "share_" + string(qt) }

// GenerateShare encodes a generate-share payload.
func GenerateShare(qt domain.QueryType) string { return "generate_share_" + string(qt) }

// Hotspot encodes a hotspot-selection payload.
func Hotspot(qt domain.QueryType, locationID string) string {
	return fmt.Sprintf("hotspot_%s_%s", qt, locationID)
}

// Command encodes a command-shortcut payload.
func Command(name string) string { return "cmd_" + name }
