package sheetlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WebhookSink posts entries as JSON to a spreadsheet webhook (e.g. an Apps
// Script endpoint that appends a row).
type WebhookSink struct {
	url        string
	httpClient *http.Client
}

// NewWebhookSink creates a WebhookSink for the given endpoint URL.
func NewWebhookSink(url string, httpClient *http.Client) (*WebhookSink, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("sheetlog: webhook url must not be empty")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookSink{url: url, httpClient: httpClient}, nil
}

// Append posts one entry. Non-2xx responses are errors so the outbox can
// log them.
func (s *WebhookSink) Append(ctx context.Context, e Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("sheetlog: marshal entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sheetlog: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sheetlog: post entry: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("sheetlog: webhook returned status %d", res.StatusCode)
	}
	return nil
}
