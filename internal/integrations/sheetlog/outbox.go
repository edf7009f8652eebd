// Package sheetlog appends one summary row per completed search to a
// spreadsheet-style sink. Delivery goes through an outbox worker so a slow
// or failing sink can never perturb dialog handling.
package sheetlog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"birdbot/internal/domain"
)

const defaultBufferSize = 64

// Entry is one completed-search row.
type Entry struct {
	ChatID      int64            `json:"chat_id"`
	QueryType   domain.QueryType `json:"query_type"`
	RegionCode  string           `json:"region_code,omitempty"`
	DisplayName string           `json:"display_name,omitempty"`
	DateLabel   string           `json:"date_label,omitempty"`
	ResultCount int              `json:"result_count"`
	SearchedAt  time.Time        `json:"searched_at"`
}

// Sink delivers one entry to the spreadsheet backend.
type Sink interface {
	Append(ctx context.Context, e Entry) error
}

// Outbox buffers entries and delivers them on a background worker. Publish
// never blocks; when the buffer is full the entry is dropped and counted.
type Outbox struct {
	sink    Sink
	ch      chan Entry
	log     *slog.Logger
	timeout time.Duration
	done    chan struct{}
}

// Option configures an Outbox.
type Option func(*Outbox)

// WithBufferSize overrides the outbox buffer length.
func WithBufferSize(n int) Option {
	return func(o *Outbox) { o.ch = make(chan Entry, n) }
}

// WithDeliveryTimeout overrides the per-entry delivery timeout.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(o *Outbox) { o.timeout = d }
}

// NewOutbox creates an Outbox for the given sink.
func NewOutbox(sink Sink, log *slog.Logger, opts ...Option) (*Outbox, error) {
	if sink == nil {
		return nil, errors.New("sheetlog: sink must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	o := &Outbox{
		sink:    sink,
		ch:      make(chan Entry, defaultBufferSize),
		log:     log,
		timeout: 10 * time.Second,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Publish enqueues an entry without blocking. A full buffer drops the entry.
func (o *Outbox) Publish(e Entry) {
	select {
	case o.ch <- e:
	default:
		o.log.Warn("search log entry dropped, outbox full", "chat_id", e.ChatID)
	}
}

// Run delivers entries until ctx is cancelled. Delivery errors are logged
// and the entry is discarded; the log is best effort.
func (o *Outbox) Run(ctx context.Context) {
	defer close(o.done)
	for {
		select {
		case e := <-o.ch:
			o.deliver(ctx, e)
		case <-ctx.Done():
			// Drain whatever is already buffered, then stop.
			for {
				select {
				case e := <-o.ch:
					o.deliver(context.Background(), e)
				default:
					return
				}
			}
		}
	}
}

// Done is closed once Run has returned, for shutdown sequencing.
func (o *Outbox) Done() <-chan struct{} { return o.done }

func (o *Outbox) deliver(ctx context.Context, e Entry) {
	dctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if err := o.sink.Append(dctx, e); err != nil {
		o.log.Warn("search log append failed", "chat_id", e.ChatID, "err", err)
	}
}
