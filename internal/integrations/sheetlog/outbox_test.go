package sheetlog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"birdbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeSink struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (f *fakeSink) Append(_ context.Context, e Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func TestOutbox_DeliversPublishedEntries(t *testing.T) {
	sink := &fakeSink{}
	o, err := NewOutbox(sink, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go o.Run(ctx)

	o.Publish(Entry{ChatID: 1, QueryType: domain.QuerySightings, ResultCount: 12})
	o.Publish(Entry{ChatID: 2, QueryType: domain.QueryNearby, ResultCount: 3})

	require.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 10*time.Millisecond)

	cancel()
	<-o.Done()
}

func TestOutbox_PublishNeverBlocksWhenFull(t *testing.T) {
	sink := &fakeSink{err: errors.New("sink down")}
	o, err := NewOutbox(sink, testLogger(), WithBufferSize(1))
	require.NoError(t, err)

	// No worker running: the second publish must drop, not block.
	done := make(chan struct{})
	go func() {
		o.Publish(Entry{ChatID: 1})
		o.Publish(Entry{ChatID: 2})
		o.Publish(Entry{ChatID: 3})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full outbox")
	}
}

func TestOutbox_SinkErrorsAreSwallowed(t *testing.T) {
	sink := &fakeSink{err: errors.New("boom")}
	o, err := NewOutbox(sink, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go o.Run(ctx)

	o.Publish(Entry{ChatID: 1})
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-o.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestWebhookSink_PostsJSON(t *testing.T) {
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := NewWebhookSink(srv.URL, nil)
	require.NoError(t, err)
	require.NoError(t, sink.Append(context.Background(), Entry{ChatID: 1}))
	require.Equal(t, "application/json", gotContentType)
}

func TestWebhookSink_NonOKIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink, err := NewWebhookSink(srv.URL, nil)
	require.NoError(t, err)
	require.Error(t, sink.Append(context.Background(), Entry{ChatID: 1}))
}
