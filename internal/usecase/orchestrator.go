// Package usecase contains the dialog orchestrator: the finite state machine
// that interprets free text and button presses according to the step a chat
// is on, drives searches, and recovers prompts after downstream failures.
package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"birdbot/internal/daterange"
	"birdbot/internal/domain"
	"birdbot/internal/metrics"
	"birdbot/internal/ratelimit"
	"birdbot/internal/resultcache"
	"birdbot/internal/session"
)

// Button is one transport-agnostic inline button.
type Button struct {
	Text string
	Data string
}

// Keyboard is rows of buttons attached to an outbound message.
type Keyboard [][]Button

// Transport sends and edits chat messages. Edit failures are recovered by
// the orchestrator, so implementations should return them rather than retry.
type Transport interface {
	Send(ctx context.Context, chatID int64, text string, kb Keyboard) (int64, error)
	Edit(ctx context.Context, chatID, messageID int64, text string, kb Keyboard) error
}

// Fetcher is the upstream biodiversity data collaborator.
type Fetcher interface {
	RecentObservations(ctx context.Context, regionCode string, back int) ([]domain.Observation, error)
	NotableObservations(ctx context.Context, regionCode string, back int) ([]domain.Observation, error)
	SpeciesObservations(ctx context.Context, regionCode, speciesCode string, back int) ([]domain.Observation, error)
	NearbyObservations(ctx context.Context, lat, lng float64, distKm, back int) ([]domain.Observation, error)
	NearbyHotspots(ctx context.Context, lat, lng float64, distKm int) ([]domain.Hotspot, error)
	RegionHotspots(ctx context.Context, regionCode string) ([]domain.Hotspot, error)
}

// SearchRecord is one completed search, published fire-and-forget.
type SearchRecord struct {
	ChatID      int64
	QueryType   domain.QueryType
	RegionCode  string
	DisplayName string
	DateLabel   string
	ResultCount int
	SearchedAt  time.Time
}

// SearchLogger records completed searches. It must never block.
type SearchLogger interface {
	LogSearch(r SearchRecord)
}

// SessionContext bundles the per-chat stores the orchestrator owns: dialog
// state, prompt records, cached result sets and rate windows. Passing it
// explicitly (instead of package globals) keeps handlers testable.
type SessionContext struct {
	Store   *session.Store
	Cache   *resultcache.Cache
	Limiter *ratelimit.Limiter
}

// NewSessionContext creates a SessionContext with fresh stores.
func NewSessionContext() *SessionContext {
	return &SessionContext{
		Store:   session.NewStore(),
		Cache:   resultcache.NewCache(),
		Limiter: ratelimit.NewLimiter(),
	}
}

// Orchestrator drives the conversation state machine.
type Orchestrator struct {
	sess      *SessionContext
	fetcher   Fetcher
	transport Transport
	resolver  *daterange.Resolver

	searchLog SearchLogger
	metrics   *metrics.Metrics
	log       *slog.Logger
	pageSize  int
	now       func() time.Time
	shareID   func() string
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithSearchLogger attaches a completed-search logger.
func WithSearchLogger(l SearchLogger) OrchestratorOption {
	return func(o *Orchestrator) { o.searchLog = l }
}

// WithMetrics attaches dialog metrics.
func WithMetrics(m *metrics.Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = log }
}

// WithPageSize overrides the results-per-page count.
func WithPageSize(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(sess *SessionContext, fetcher Fetcher, transport Transport, resolver *daterange.Resolver, opts ...OrchestratorOption) (*Orchestrator, error) {
	if sess == nil {
		return nil, errors.New("usecase: session context must not be nil")
	}
	if fetcher == nil {
		return nil, errors.New("usecase: fetcher must not be nil")
	}
	if transport == nil {
		return nil, errors.New("usecase: transport must not be nil")
	}
	if resolver == nil {
		return nil, errors.New("usecase: date resolver must not be nil")
	}
	o := &Orchestrator{
		sess:      sess,
		fetcher:   fetcher,
		transport: transport,
		resolver:  resolver,
		log:       slog.Default(),
		pageSize:  resultcache.DefaultPageSize,
		now:       time.Now,
		shareID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = metrics.New(prometheus.NewRegistry())
	}
	return o, nil
}

// Session exposes the session context, e.g. for the rate-limit gate in the
// update dispatcher.
func (o *Orchestrator) Session() *SessionContext { return o.sess }

// prompt sends a prompt that may need re-issuing later, records it for
// recovery, and moves the chat to the given step, preserving the other
// state fields.
func (o *Orchestrator) prompt(ctx context.Context, chatID int64, text string, kb Keyboard, st domain.ConversationState, step domain.Step) error {
	if _, err := o.transport.Send(ctx, chatID, text, kb); err != nil {
		return newError(ErrorInternal, "send_prompt", err)
	}
	st.ChatID = chatID
	st.Step = step
	st.UpdatedAt = o.now()
	o.sess.Store.SetState(st)
	o.sess.Store.SetPrompt(domain.PromptRecord{ChatID: chatID, Prompt: text, Step: step})
	return nil
}

// recoverPrompt re-sends the last recorded prompt and restores its step so a
// failed fetch leaves the user back where they can continue, not stuck on an
// error message.
func (o *Orchestrator) recoverPrompt(ctx context.Context, chatID int64) {
	rec, ok := o.sess.Store.Prompt(chatID)
	if !ok {
		return
	}
	st, ok := o.sess.Store.State(chatID)
	if !ok {
		st = domain.ConversationState{ChatID: chatID}
	}

	// A restored date-selection prompt needs its preset buttons back.
	var kb Keyboard
	if rec.Step == domain.StepDateSelection && st.RegionCode != "" {
		kb = dateKeyboard(st.QueryType, st.RegionCode)
	}

	o.metrics.PromptRecoveriesTotal.Inc()
	if _, err := o.transport.Send(ctx, chatID, rec.Prompt, kb); err != nil {
		o.log.Warn("prompt recovery send failed", "chat_id", chatID, "err", err)
		return
	}
	st.Step = rec.Step
	st.UpdatedAt = o.now()
	o.sess.Store.SetState(st)
}

// resetToIdle completes or abandons a flow: state and recovery prompt are
// dropped together.
func (o *Orchestrator) resetToIdle(chatID int64) {
	o.sess.Store.DeleteState(chatID)
	o.sess.Store.DeletePrompt(chatID)
}

// sendOrEdit prefers editing the message in place and falls back to sending
// a brand-new message when the edit fails.
func (o *Orchestrator) sendOrEdit(ctx context.Context, chatID, messageID int64, text string, kb Keyboard) error {
	if messageID != 0 {
		if err := o.transport.Edit(ctx, chatID, messageID, text, kb); err == nil {
			return nil
		} else {
			o.log.Warn("in-place edit failed, sending new message", "chat_id", chatID, "err", err)
		}
	}
	if _, err := o.transport.Send(ctx, chatID, text, kb); err != nil {
		return newError(ErrorRender, "send_after_edit_failure", err)
	}
	return nil
}
