// Package ebird is a focused client for the eBird API 2.0 observation and
// hotspot endpoints used by the bot.
package ebird

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"birdbot/internal/domain"
	"birdbot/internal/integrations/paramstore"
)

// observationRecord is the minimal response shape of the observation endpoints.
type observationRecord struct {
	SpeciesCode string  `json:"speciesCode"`
	ComName     string  `json:"comName"`
	SciName     string  `json:"sciName"`
	HowMany     int     `json:"howMany"`
	ObsDt       string  `json:"obsDt"`
	LocID       string  `json:"locId"`
	LocName     string  `json:"locName"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	CountryCode string  `json:"countryCode"`
}

// hotspotRecord is the minimal response shape of the hotspot endpoints.
type hotspotRecord struct {
	LocID             string  `json:"locId"`
	LocName           string  `json:"locName"`
	SubnationalCode   string  `json:"subnational1Code"`
	Lat               float64 `json:"lat"`
	Lng               float64 `json:"lng"`
	NumSpeciesAllTime int     `json:"numSpeciesAllTime"`
}

// Getter resolves named parameters, e.g. from SSM Parameter Store.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("ebird: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client calls the eBird API. The API token comes either from a static key
// or, on first use, from the paramstore Getter, and is reused for the
// process lifetime.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      Getter
	paramPrefix string

	keyOnce sync.Once
	apiKey  string
	keyErr  error
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithAPIKey sets a static API token, bypassing the paramstore lookup.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = strings.TrimSpace(key) }
}

// NewClient creates a Client. Either a static key (WithAPIKey) or a
// paramstore getter with a parameter prefix must be provided.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:     "https://api.ebird.org/v2",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		getter:      ps,
		paramPrefix: strings.TrimRight(strings.TrimSpace(paramPrefix), "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiKey == "" && (c.getter == nil || c.paramPrefix == "") {
		return nil, errors.New("ebird: either an API key or a paramstore getter with prefix is required")
	}
	return c, nil
}

// RecentObservations fetches recent observations for a region.
func (c *Client) RecentObservations(ctx context.Context, regionCode string, back int) ([]domain.Observation, error) {
	path := fmt.Sprintf("/data/obs/%s/recent", url.PathEscape(regionCode))
	return c.fetchObservations(ctx, path, url.Values{"back": {clampBack(back)}})
}

// NotableObservations fetches recent notable (rare) observations for a region.
func (c *Client) NotableObservations(ctx context.Context, regionCode string, back int) ([]domain.Observation, error) {
	path := fmt.Sprintf("/data/obs/%s/recent/notable", url.PathEscape(regionCode))
	return c.fetchObservations(ctx, path, url.Values{"back": {clampBack(back)}})
}

// SpeciesObservations fetches recent observations of one species in a region.
func (c *Client) SpeciesObservations(ctx context.Context, regionCode, speciesCode string, back int) ([]domain.Observation, error) {
	path := fmt.Sprintf("/data/obs/%s/recent/%s", url.PathEscape(regionCode), url.PathEscape(speciesCode))
	return c.fetchObservations(ctx, path, url.Values{"back": {clampBack(back)}})
}

// NearbyObservations fetches recent observations around a coordinate.
func (c *Client) NearbyObservations(ctx context.Context, lat, lng float64, distKm, back int) ([]domain.Observation, error) {
	q := url.Values{
		"lat":  {formatCoord(lat)},
		"lng":  {formatCoord(lng)},
		"dist": {strconv.Itoa(distKm)},
		"back": {clampBack(back)},
	}
	return c.fetchObservations(ctx, "/data/obs/geo/recent", q)
}

// NearbyHotspots fetches hotspots around a coordinate.
func (c *Client) NearbyHotspots(ctx context.Context, lat, lng float64, distKm int) ([]domain.Hotspot, error) {
	q := url.Values{
		"lat":  {formatCoord(lat)},
		"lng":  {formatCoord(lng)},
		"dist": {strconv.Itoa(distKm)},
		"fmt":  {"json"},
	}
	return c.fetchHotspots(ctx, "/ref/hotspot/geo", q)
}

// RegionHotspots fetches all hotspots of a region, for place-name matching.
func (c *Client) RegionHotspots(ctx context.Context, regionCode string) ([]domain.Hotspot, error) {
	path := "/ref/hotspot/" + url.PathEscape(regionCode)
	return c.fetchHotspots(ctx, path, url.Values{"fmt": {"json"}})
}

func (c *Client) fetchObservations(ctx context.Context, path string, q url.Values) ([]domain.Observation, error) {
	raw, err := c.get(ctx, path, q)
	if err != nil {
		return nil, err
	}
	var records []observationRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("ebird: decode observations: %w", err)
	}
	obs := make([]domain.Observation, 0, len(records))
	for _, r := range records {
		obs = append(obs, domain.Observation{
			SpeciesCode:    r.SpeciesCode,
			CommonName:     r.ComName,
			ScientificName: r.SciName,
			Count:          r.HowMany,
			ObservedAt:     parseObsDt(r.ObsDt),
			LocationID:     r.LocID,
			LocationName:   r.LocName,
			Latitude:       r.Lat,
			Longitude:      r.Lng,
			CountryCode:    r.CountryCode,
		})
	}
	return obs, nil
}

func (c *Client) fetchHotspots(ctx context.Context, path string, q url.Values) ([]domain.Hotspot, error) {
	raw, err := c.get(ctx, path, q)
	if err != nil {
		return nil, err
	}
	var records []hotspotRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("ebird: decode hotspots: %w", err)
	}
	spots := make([]domain.Hotspot, 0, len(records))
	for _, r := range records {
		spots = append(spots, domain.Hotspot{
			LocationID:   r.LocID,
			Name:         r.LocName,
			RegionCode:   r.SubnationalCode,
			Latitude:     r.Lat,
			Longitude:    r.Lng,
			SpeciesCount: r.NumSpeciesAllTime,
		})
	}
	return spots, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("ebird: create request: %w", err)
	}
	req.Header.Set("X-eBirdApiToken", apiKey)

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("ebird: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, URL: u, Body: string(buf)}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("ebird: read response body: %w", err)
	}
	return buf, nil
}

// resolveAPIKey returns the static key, or fetches the token from the
// paramstore on the first call and caches it.
func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	c.keyOnce.Do(func() {
		c.apiKey, c.keyErr = c.getter.GetParameter(ctx, paramstore.TokenPath(c.paramPrefix, paramstore.EBirdTokenName))
		c.apiKey = strings.TrimSpace(c.apiKey)
		if c.keyErr == nil && c.apiKey == "" {
			c.keyErr = errors.New("ebird: API token parameter is empty")
		}
	})
	return c.apiKey, c.keyErr
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// clampBack keeps the lookback inside the API's accepted 1..30 range.
func clampBack(back int) string {
	if back < 1 {
		back = 1
	}
	if back > 30 {
		back = 30
	}
	return strconv.Itoa(back)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// parseObsDt parses eBird's observation timestamps, which come with or
// without a time of day.
func parseObsDt(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
