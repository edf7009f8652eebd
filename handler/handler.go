// Package handler dispatches inbound Bot API updates to the dialog
// orchestrator, applying the per-chat rate-limit gate and a panic safety net
// so one bad update can never take the poll loop down.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"birdbot/internal/integrations/telegram"
	"birdbot/internal/metrics"
	"birdbot/internal/usecase"
)

const (
	throttledText = "You're sending requests a little too fast. Give it a minute and try again."
	apologyText   = "Sorry, something went wrong on our side. Please try again."
)

// Dialog is the orchestrator surface the dispatcher routes into.
type Dialog interface {
	HandleText(ctx context.Context, chatID int64, text string) error
	HandleLocation(ctx context.Context, chatID int64, lat, lng float64) error
	HandleCommand(ctx context.Context, chatID int64, name string) error
	HandleCallback(ctx context.Context, chatID, messageID int64, payload string) error
}

// Limiter gates updates per chat.
type Limiter interface {
	IsLimited(chatID int64) bool
}

// BotAPI is the slice of the Bot API client the handler layer uses.
type BotAPI interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb telegram.Keyboard) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, kb telegram.Keyboard) error
	AnswerCallback(ctx context.Context, callbackID string) error
}

// Dispatcher routes one update at a time into the dialog.
type Dispatcher struct {
	dialog  Dialog
	limiter Limiter
	api     BotAPI
	metrics *metrics.Metrics
	log     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics attaches dispatch metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(dialog Dialog, limiter Limiter, api BotAPI, opts ...Option) (*Dispatcher, error) {
	if dialog == nil {
		return nil, errors.New("handler: dialog must not be nil")
	}
	if limiter == nil {
		return nil, errors.New("handler: limiter must not be nil")
	}
	if api == nil {
		return nil, errors.New("handler: bot api must not be nil")
	}
	d := &Dispatcher{
		dialog:  dialog,
		limiter: limiter,
		api:     api,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = metrics.New(prometheus.NewRegistry())
	}
	return d, nil
}

// Dispatch handles one update end to end. It never returns an error: every
// failure mode ends in a logged message to the user, and a panic in the
// dialog is downgraded to an apology.
func (d *Dispatcher) Dispatch(ctx context.Context, upd telegram.Update) {
	d.metrics.UpdatesInFlight.Inc()
	defer d.metrics.UpdatesInFlight.Dec()

	chatID, ok := chatOf(upd)
	if !ok {
		d.log.Debug("update without a chat, skipping", "update_id", upd.UpdateID)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("panic while handling update", "update_id", upd.UpdateID, "chat_id", chatID, "panic", r)
			if _, err := d.api.SendMessage(ctx, chatID, apologyText, nil); err != nil {
				d.log.Warn("apology send failed", "chat_id", chatID, "err", err)
			}
		}
	}()

	if upd.CallbackQuery != nil {
		// Answer even when throttled so the client spinner always stops.
		if err := d.api.AnswerCallback(ctx, upd.CallbackQuery.ID); err != nil {
			d.log.Warn("answer callback failed", "chat_id", chatID, "err", err)
		}
	}

	if d.limiter.IsLimited(chatID) {
		d.metrics.RateLimitedTotal.Inc()
		if _, err := d.api.SendMessage(ctx, chatID, throttledText, nil); err != nil {
			d.log.Warn("throttle notice send failed", "chat_id", chatID, "err", err)
		}
		return
	}

	var err error
	switch {
	case upd.CallbackQuery != nil:
		var messageID int64
		if upd.CallbackQuery.Message != nil {
			messageID = upd.CallbackQuery.Message.MessageID
		}
		err = d.dialog.HandleCallback(ctx, chatID, messageID, upd.CallbackQuery.Data)
	case upd.Message != nil && upd.Message.Location != nil:
		err = d.dialog.HandleLocation(ctx, chatID, upd.Message.Location.Latitude, upd.Message.Location.Longitude)
	case upd.Message != nil && strings.HasPrefix(upd.Message.Text, "/"):
		err = d.dialog.HandleCommand(ctx, chatID, commandName(upd.Message.Text))
	case upd.Message != nil:
		err = d.dialog.HandleText(ctx, chatID, upd.Message.Text)
	}
	if err != nil {
		d.log.Warn("update handling failed", "update_id", upd.UpdateID, "chat_id", chatID, "err", err)
	}
}

func chatOf(upd telegram.Update) (int64, bool) {
	switch {
	case upd.Message != nil:
		return upd.Message.Chat.ID, true
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		return upd.CallbackQuery.Message.Chat.ID, true
	}
	return 0, false
}

// commandName extracts the bare command from "/sightings@BirdBot args".
func commandName(text string) string {
	cmd := strings.Fields(text)[0]
	cmd = strings.TrimPrefix(cmd, "/")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd
}

// Transport adapts the Bot API client to the orchestrator's transport,
// translating keyboards between the two layouts.
type Transport struct {
	api BotAPI
}

// NewTransport creates a Transport over the given Bot API client.
func NewTransport(api BotAPI) (*Transport, error) {
	if api == nil {
		return nil, errors.New("handler: bot api must not be nil")
	}
	return &Transport{api: api}, nil
}

// Send sends a message and returns its ID.
func (t *Transport) Send(ctx context.Context, chatID int64, text string, kb usecase.Keyboard) (int64, error) {
	return t.api.SendMessage(ctx, chatID, text, toTelegramKeyboard(kb))
}

// Edit replaces a message's text and keyboard in place.
func (t *Transport) Edit(ctx context.Context, chatID, messageID int64, text string, kb usecase.Keyboard) error {
	return t.api.EditMessageText(ctx, chatID, messageID, text, toTelegramKeyboard(kb))
}

func toTelegramKeyboard(kb usecase.Keyboard) telegram.Keyboard {
	if len(kb) == 0 {
		return nil
	}
	out := make(telegram.Keyboard, 0, len(kb))
	for _, row := range kb {
		buttons := make([]telegram.Button, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, telegram.Btn(b.Text, b.Data))
		}
		out = append(out, buttons)
	}
	return out
}
