package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"birdbot/internal/domain"
)

const (
	// DefaultSnapshotInterval is how often dialog state is flushed to disk.
	DefaultSnapshotInterval = 30 * time.Second
	// DefaultMaxSnapshotAge is the restore cutoff: stale conversation state
	// is worse than no state, so older snapshots are discarded.
	DefaultMaxSnapshotAge = time.Hour
)

// snapshotDoc is the on-disk JSON shape. Chat IDs are stringified because
// JSON object keys must be strings.
type snapshotDoc struct {
	SavedAt            time.Time                           `json:"savedAt"`
	ConversationStates map[string]domain.ConversationState `json:"conversationStates"`
	PromptRecords      map[string]domain.PromptRecord      `json:"promptRecords"`
}

// Snapshotter periodically serializes a Store to a single JSON document and
// restores it once at startup. Writes are best effort: failures are logged
// and never surfaced to dialog handling.
type Snapshotter struct {
	store    *Store
	path     string
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
	log      *slog.Logger
	done     chan struct{}
}

// SnapshotOption configures a Snapshotter.
type SnapshotOption func(*Snapshotter)

// WithInterval overrides the flush interval.
func WithInterval(d time.Duration) SnapshotOption {
	return func(s *Snapshotter) { s.interval = d }
}

// WithMaxAge overrides the restore staleness cutoff.
func WithMaxAge(d time.Duration) SnapshotOption {
	return func(s *Snapshotter) { s.maxAge = d }
}

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) SnapshotOption {
	return func(s *Snapshotter) { s.now = now }
}

// NewSnapshotter creates a Snapshotter for the given store and file path.
func NewSnapshotter(store *Store, path string, log *slog.Logger, opts ...SnapshotOption) (*Snapshotter, error) {
	if store == nil {
		return nil, errors.New("session: store must not be nil")
	}
	if path == "" {
		return nil, errors.New("session: snapshot path must not be empty")
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Snapshotter{
		store:    store,
		path:     path,
		interval: DefaultSnapshotInterval,
		maxAge:   DefaultMaxSnapshotAge,
		now:      time.Now,
		log:      log,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Restore loads the snapshot into the store. A missing file starts empty; a
// corrupt or stale file is deleted and also starts empty. Called once at
// startup, before any updates are handled.
func (s *Snapshotter) Restore() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.log.Warn("snapshot unreadable, starting empty", "path", s.path, "err", err)
		s.removeFile()
		return nil
	}

	var doc snapshotDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.log.Warn("snapshot corrupt, starting empty", "path", s.path, "err", err)
		s.removeFile()
		return nil
	}

	age := s.now().Sub(doc.SavedAt)
	if age > s.maxAge {
		s.log.Info("snapshot stale, discarding", "path", s.path, "age", age)
		s.removeFile()
		return nil
	}

	states := make(map[int64]domain.ConversationState, len(doc.ConversationStates))
	for key, st := range doc.ConversationStates {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			s.log.Warn("snapshot corrupt, starting empty", "path", s.path, "err", err)
			s.removeFile()
			return nil
		}
		states[id] = st
	}
	prompts := make(map[int64]domain.PromptRecord, len(doc.PromptRecords))
	for key, p := range doc.PromptRecords {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			s.log.Warn("snapshot corrupt, starting empty", "path", s.path, "err", err)
			s.removeFile()
			return nil
		}
		prompts[id] = p
	}

	s.store.replaceMaps(states, prompts)
	s.log.Info("snapshot restored", "states", len(states), "prompts", len(prompts))
	return nil
}

// Save writes the current store contents, overwriting the previous snapshot.
func (s *Snapshotter) Save() error {
	states, prompts := s.store.copyMaps()

	doc := snapshotDoc{
		SavedAt:            s.now(),
		ConversationStates: make(map[string]domain.ConversationState, len(states)),
		PromptRecords:      make(map[string]domain.PromptRecord, len(prompts)),
	}
	for id, st := range states {
		doc.ConversationStates[strconv.FormatInt(id, 10)] = st
	}
	for id, p := range prompts {
		doc.PromptRecords[strconv.FormatInt(id, 10)] = p
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("session: marshal snapshot: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("session: write snapshot: %w", err)
	}
	return nil
}

// Run flushes on a timer until ctx is cancelled, then flushes once more for
// graceful shutdown. It never blocks dialog handling and swallows write
// errors after logging them. Run is the only snapshot writer once started;
// shutdown waits on Done instead of saving again.
func (s *Snapshotter) Run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Save(); err != nil {
				s.log.Warn("periodic snapshot failed", "err", err)
			}
		case <-ctx.Done():
			if err := s.Save(); err != nil {
				s.log.Warn("shutdown snapshot failed", "err", err)
			}
			return
		}
	}
}

// Done is closed once Run has written its final snapshot and returned, for
// shutdown sequencing.
func (s *Snapshotter) Done() <-chan struct{} { return s.done }

func (s *Snapshotter) removeFile() {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("could not remove snapshot file", "path", s.path, "err", err)
	}
}
