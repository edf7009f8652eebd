// Package telegram is a minimal Bot API client covering the calls the bot
// needs: long-poll updates, sending and editing messages with inline
// keyboards, and acknowledging callback queries.
package telegram

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

// Update is one inbound event from getUpdates.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message is an inbound or outbound chat message.
type Message struct {
	MessageID int64     `json:"message_id"`
	Chat      Chat      `json:"chat"`
	Text      string    `json:"text,omitempty"`
	Location  *Location `json:"location,omitempty"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID int64 `json:"id"`
}

// Location is a shared-location payload.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CallbackQuery is a button press carrying an opaque data payload.
type CallbackQuery struct {
	ID      string   `json:"id"`
	Data    string   `json:"data"`
	Message *Message `json:"message,omitempty"`
}

// Button is one inline keyboard button.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
}

// Keyboard is an inline keyboard layout, rows of buttons.
type Keyboard [][]Button

// Row builds a single keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// Btn builds a callback button.
func Btn(text, data string) Button { return Button{Text: text, CallbackData: data} }

// APIError captures a non-ok Bot API response.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %s failed with %d: %s", e.Method, e.Code, e.Description)
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// Client calls the Telegram Bot API over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/") }
}

// WithHTTPClient overrides the HTTP client. Long polling needs a timeout
// larger than the poll window, which NewClient sets by default.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a Client for the given bot token.
func NewClient(token string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("telegram: bot token must not be empty")
	}
	c := &Client{
		baseURL:    "https://api.telegram.org",
		token:      token,
		httpClient: &http.Client{Timeout: 70 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetUpdates long-polls for new updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, "getUpdates", map[string]any{
		"offset":  offset,
		"timeout": int(timeout.Seconds()),
	}, &updates)
	if err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends text to a chat, optionally with an inline keyboard, and
// returns the new message ID.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard Keyboard) (int64, error) {
	params := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if len(keyboard) > 0 {
		params["reply_markup"] = map[string]any{"inline_keyboard": keyboard}
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", params, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// EditMessageText replaces the text (and keyboard) of an existing message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard Keyboard) error {
	params := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if len(keyboard) > 0 {
		params["reply_markup"] = map[string]any{"inline_keyboard": keyboard}
	}
	return c.call(ctx, "editMessageText", params, nil)
}

// AnswerCallback acknowledges a button press so the client stops its spinner.
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{"callback_query_id": callbackID}, nil)
}

func (c *Client) call(ctx context.Context, method string, params map[string]any, result any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("telegram: marshal %s request: %w", method, err)
	}

	u := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s request failed: %w", method, err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("telegram: read %s response: %w", method, err)
	}

	var payload apiResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("telegram: decode %s response: %w", method, err)
	}
	if !payload.OK {
		return &APIError{Method: method, Code: payload.ErrorCode, Description: payload.Description}
	}
	if result != nil && len(payload.Result) > 0 {
		if err := json.Unmarshal(payload.Result, result); err != nil {
			return fmt.Errorf("telegram: decode %s result: %w", method, err)
		}
	}
	return nil
}
