package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"saraban/internal/model"
)

// ErrFetchInFlight is returned by Fetch when another fetch has not finished.
var ErrFetchInFlight = errors.New("notification fetch already in flight")

const DefaultPollInterval = 30 * time.Second

// NotificationSource is implemented by *Client.
type NotificationSource interface {
	Notifications(ctx context.Context, limit int) ([]model.AuditLog, error)
}

// WatermarkStore persists the id of the newest entry the user has read.
type WatermarkStore interface {
	LoadWatermark() (int64, error)
	SaveWatermark(id int64) error
}

type Snapshot struct {
	Notifications []model.AuditLog
	Unread        int
	LastReadID    int64
	FetchedAt     time.Time

	unread map[int64]struct{}
}

// IsUnread reports whether the entry with id counts toward Unread.
func (s Snapshot) IsUnread(id int64) bool {
	_, ok := s.unread[id]
	return ok
}

// Tracker derives the unread count from the newest audit entries and a
// locally persisted watermark.
type Tracker struct {
	source NotificationSource
	marks  WatermarkStore
	logger *zap.Logger

	inFlight atomic.Bool
	closed   atomic.Bool

	// markMu serializes MarkAsRead so the watermark is saved before it
	// moves in memory.
	markMu sync.Mutex

	mu            sync.Mutex
	notifications []model.AuditLog
	lastReadID    int64
	fetchedAt     time.Time
	// readIDs holds the entries on screen at the last MarkAsRead. An id at
	// or below the watermark that is not in it committed late and is still
	// unread. readFloor is the oldest of them.
	readIDs   map[int64]struct{}
	readFloor int64
	listeners     []func(Snapshot)
}

// NewTracker loads the watermark; a store with nothing saved yields 0.
func NewTracker(source NotificationSource, marks WatermarkStore, logger *zap.Logger) (*Tracker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	lastRead, err := marks.LoadWatermark()
	if err != nil {
		return nil, err
	}
	return &Tracker{
		source:     source,
		marks:      marks,
		logger:     logger,
		lastReadID: max(lastRead, 0),
	}, nil
}

// Fetch replaces the snapshot with the server's newest entries. A call
// overlapping another returns ErrFetchInFlight and leaves state alone.
func (t *Tracker) Fetch(ctx context.Context) error {
	if !t.inFlight.CompareAndSwap(false, true) {
		return ErrFetchInFlight
	}
	defer t.inFlight.Store(false)

	logs, err := t.source.Notifications(ctx, 0)
	if err != nil {
		return err
	}
	if t.closed.Load() {
		return nil
	}

	t.mu.Lock()
	t.notifications = logs
	t.fetchedAt = time.Now()
	snap := t.snapshotLocked()
	listeners := append([]func(Snapshot){}, t.listeners...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	return nil
}

// Refresh is Fetch for on-demand triggers; an overlapping fetch is not an
// error.
func (t *Tracker) Refresh(ctx context.Context) error {
	if err := t.Fetch(ctx); err != nil && !errors.Is(err, ErrFetchInFlight) {
		return err
	}
	return nil
}

// MarkAsRead moves the watermark to the newest held entry. It never calls
// the server and is a no-op when nothing has been fetched. The watermark
// only moves once it has been saved.
func (t *Tracker) MarkAsRead() error {
	t.markMu.Lock()
	defer t.markMu.Unlock()

	t.mu.Lock()
	if len(t.notifications) == 0 {
		t.mu.Unlock()
		return nil
	}
	newest := t.notifications[0].ID
	current := t.lastReadID
	unread := t.unreadLocked()
	held := make(map[int64]struct{}, len(t.notifications))
	for _, l := range t.notifications {
		held[l.ID] = struct{}{}
	}
	floor := t.notifications[len(t.notifications)-1].ID
	t.mu.Unlock()
	if unread == 0 {
		return nil
	}

	if newest > current {
		if err := t.marks.SaveWatermark(newest); err != nil {
			return err
		}
	}

	t.mu.Lock()
	t.lastReadID = max(newest, current)
	t.readIDs = held
	t.readFloor = floor
	snap := t.snapshotLocked()
	listeners := append([]func(Snapshot){}, t.listeners...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	return nil
}

func (t *Tracker) Unread() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unreadLocked()
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// OnChange registers fn to be called after every successful fetch and
// every watermark move.
func (t *Tracker) OnChange(fn func(Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// Run fetches immediately and then every interval until ctx is done.
// Fetch errors are logged and polling continues.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := t.Refresh(ctx); err != nil && ctx.Err() == nil {
			t.logger.Warn("Notification fetch failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if t.closed.Load() {
			return
		}
	}
}

// Close drops results of fetches still in flight.
func (t *Tracker) Close() {
	t.closed.Store(true)
}

func (t *Tracker) snapshotLocked() Snapshot {
	unread := make(map[int64]struct{})
	for _, l := range t.notifications {
		if t.isUnreadLocked(l.ID) {
			unread[l.ID] = struct{}{}
		}
	}
	return Snapshot{
		Notifications: append([]model.AuditLog(nil), t.notifications...),
		Unread:        len(unread),
		LastReadID:    t.lastReadID,
		FetchedAt:     t.fetchedAt,
		unread:        unread,
	}
}

func (t *Tracker) unreadLocked() int {
	n := 0
	for _, l := range t.notifications {
		if t.isUnreadLocked(l.ID) {
			n++
		}
	}
	return n
}

// isUnreadLocked treats ids above the watermark as unread. Audit ids are
// assigned at insert but become visible at commit, so a lower id can show
// up after a higher one was already marked read.
func (t *Tracker) isUnreadLocked(id int64) bool {
	if id > t.lastReadID {
		return true
	}
	if t.readIDs == nil || id <= t.readFloor {
		return false
	}
	_, seen := t.readIDs[id]
	return !seen
}
