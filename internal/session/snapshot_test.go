package session

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"birdbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSnapshot_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialog.json")
	now := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)

	src := NewStore()
	for _, id := range []int64{1, 2, 3} {
		src.SetState(domain.ConversationState{
			ChatID:     id,
			Step:       domain.StepDateSelection,
			QueryType:  domain.QuerySightings,
			RegionCode: "SG",
			UpdatedAt:  now,
		})
	}
	src.SetPrompt(domain.PromptRecord{ChatID: 2, Prompt: "Enter a location:", Step: domain.StepAwaitingRegion})

	snap, err := NewSnapshotter(src, path, testLogger(), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	require.NoError(t, snap.Save())

	dst := NewStore()
	restore, err := NewSnapshotter(dst, path, testLogger(), WithClock(func() time.Time { return now.Add(time.Minute) }))
	require.NoError(t, err)
	require.NoError(t, restore.Restore())

	require.Equal(t, 3, dst.Len())
	st, ok := dst.State(2)
	require.True(t, ok)
	require.Equal(t, domain.StepDateSelection, st.Step)
	require.Equal(t, "SG", st.RegionCode)

	p, ok := dst.Prompt(2)
	require.True(t, ok)
	require.Equal(t, "Enter a location:", p.Prompt)
	require.Equal(t, domain.StepAwaitingRegion, p.Step)
}

func TestSnapshot_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialog.json")
	store := NewStore()
	snap, err := NewSnapshotter(store, path, testLogger())
	require.NoError(t, err)
	require.NoError(t, snap.Restore())
	require.Equal(t, 0, store.Len())
}

func TestSnapshot_StaleIsDiscardedAndFileRemoved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialog.json")
	now := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)

	src := NewStore()
	src.SetState(domain.ConversationState{ChatID: 1, Step: domain.StepAwaitingRegion})
	snap, err := NewSnapshotter(src, path, testLogger(), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	require.NoError(t, snap.Save())

	dst := NewStore()
	later := now.Add(time.Hour + time.Minute)
	restore, err := NewSnapshotter(dst, path, testLogger(), WithClock(func() time.Time { return later }))
	require.NoError(t, err)
	require.NoError(t, restore.Restore())

	require.Equal(t, 0, dst.Len())
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr), "stale snapshot file should be deleted")
}

func TestSnapshot_CorruptIsDiscardedAndFileRemoved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialog.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := NewStore()
	snap, err := NewSnapshotter(store, path, testLogger())
	require.NoError(t, err)
	require.NoError(t, snap.Restore())

	require.Equal(t, 0, store.Len())
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr), "corrupt snapshot file should be deleted")
}

func TestSnapshot_RunFlushesOnceOnShutdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialog.json")
	store := NewStore()
	store.SetState(domain.ConversationState{ChatID: 1, Step: domain.StepAwaitingRegion})

	// A long interval ensures the only write is the shutdown flush.
	snap, err := NewSnapshotter(store, path, testLogger(), WithInterval(time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go snap.Run(ctx)
	cancel()

	select {
	case <-snap.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("snapshotter did not stop after cancellation")
	}

	dst := NewStore()
	restore, err := NewSnapshotter(dst, path, testLogger())
	require.NoError(t, err)
	require.NoError(t, restore.Restore())
	_, ok := dst.State(1)
	require.True(t, ok, "shutdown flush must persist the store")
}

func TestNewSnapshotter_Validation(t *testing.T) {
	_, err := NewSnapshotter(nil, "x", testLogger())
	require.Error(t, err)
	_, err = NewSnapshotter(NewStore(), "", testLogger())
	require.Error(t, err)
}
