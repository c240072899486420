package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"saraban/internal/model"
)

type memWatermark struct {
	id    int64
	saves int
	err   error
}

func (m *memWatermark) LoadWatermark() (int64, error) { return m.id, nil }
func (m *memWatermark) SaveWatermark(id int64) error {
	if m.err != nil {
		return m.err
	}
	m.id = id
	m.saves++
	return nil
}

type fakeSource struct {
	mu    sync.Mutex
	logs  []model.AuditLog
	calls int
	gate  chan struct{}
}

func (f *fakeSource) Notifications(ctx context.Context, _ int) ([]model.AuditLog, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return append([]model.AuditLog(nil), f.logs...), nil
}

func (f *fakeSource) push(ids ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.logs = append([]model.AuditLog{{ID: id, Action: model.ActionUpdate}}, f.logs...)
	}
}

func TestTrackerFirstRunCountsEverything(t *testing.T) {
	src := &fakeSource{}
	src.push(1, 2, 3)
	tr, err := NewTracker(src, &memWatermark{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Fetch(context.Background()); err != nil {
		t.Fatal(err)
	}
	if tr.Unread() != 3 {
		t.Fatalf("unread = %d, want 3", tr.Unread())
	}
}

func TestTrackerMarkAsReadThenNewerEntries(t *testing.T) {
	src := &fakeSource{}
	src.push(10, 11)
	marks := &memWatermark{id: 10}
	tr, _ := NewTracker(src, marks, nil)

	_ = tr.Fetch(context.Background())
	if tr.Unread() != 1 {
		t.Fatalf("unread = %d, want 1", tr.Unread())
	}

	if err := tr.MarkAsRead(); err != nil {
		t.Fatal(err)
	}
	if tr.Unread() != 0 || marks.id != 11 {
		t.Fatalf("after mark: unread=%d watermark=%d", tr.Unread(), marks.id)
	}
	if err := tr.MarkAsRead(); err != nil || marks.saves != 1 {
		t.Fatalf("second mark should be a no-op: err=%v saves=%d", err, marks.saves)
	}

	src.push(12, 13)
	_ = tr.Fetch(context.Background())
	if tr.Unread() != 2 {
		t.Fatalf("unread = %d, want 2", tr.Unread())
	}
}

func TestTrackerMarkAsReadEmptyIsNoop(t *testing.T) {
	marks := &memWatermark{id: 5}
	tr, _ := NewTracker(&fakeSource{}, marks, nil)
	if err := tr.MarkAsRead(); err != nil {
		t.Fatal(err)
	}
	if marks.saves != 0 || tr.Snapshot().LastReadID != 5 {
		t.Fatalf("empty mark changed state: %+v", tr.Snapshot())
	}
}

func TestTrackerMarkAsReadKeepsWatermarkWhenSaveFails(t *testing.T) {
	src := &fakeSource{}
	src.push(4, 5, 6)
	marks := &memWatermark{id: 4, err: errors.New("read-only file system")}
	tr, _ := NewTracker(src, marks, nil)
	_ = tr.Fetch(context.Background())

	notified := 0
	tr.OnChange(func(Snapshot) { notified++ })
	if err := tr.MarkAsRead(); err == nil {
		t.Fatal("save failure must be returned")
	}
	if snap := tr.Snapshot(); snap.LastReadID != 4 || snap.Unread != 2 {
		t.Fatalf("watermark moved without being saved: %+v", snap)
	}
	if notified != 0 {
		t.Fatalf("listeners notified %d times for an unsaved mark", notified)
	}

	marks.err = nil
	if err := tr.MarkAsRead(); err != nil {
		t.Fatal(err)
	}
	if tr.Snapshot().LastReadID != 6 || marks.id != 6 {
		t.Fatalf("retry did not move the watermark: %+v", tr.Snapshot())
	}
}

func TestTrackerCountsLateCommittedEntry(t *testing.T) {
	src := &fakeSource{}
	src.push(7, 8, 10)
	marks := &memWatermark{}
	tr, _ := NewTracker(src, marks, nil)
	_ = tr.Fetch(context.Background())
	if err := tr.MarkAsRead(); err != nil {
		t.Fatal(err)
	}

	// id 9 was allocated before 10 but committed after it was read.
	src.mu.Lock()
	src.logs = []model.AuditLog{{ID: 10}, {ID: 9}, {ID: 8}, {ID: 7}}
	src.mu.Unlock()
	_ = tr.Fetch(context.Background())

	snap := tr.Snapshot()
	if snap.Unread != 1 || !snap.IsUnread(9) || snap.IsUnread(10) {
		t.Fatalf("late entry not counted: %+v", snap)
	}
	if err := tr.MarkAsRead(); err != nil {
		t.Fatal(err)
	}
	if tr.Unread() != 0 || marks.id != 10 || marks.saves != 1 {
		t.Fatalf("after second mark: unread=%d watermark=%d saves=%d", tr.Unread(), marks.id, marks.saves)
	}
}

func TestTrackerOverlappingFetch(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{})}
	src.push(1)
	tr, _ := NewTracker(src, &memWatermark{}, nil)

	done := make(chan error)
	go func() { done <- tr.Fetch(context.Background()) }()

	// wait until the first fetch holds the in-flight flag
	deadline := time.Now().Add(2 * time.Second)
	for !tr.inFlight.Load() {
		if time.Now().After(deadline) {
			t.Fatal("first fetch never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := tr.Fetch(context.Background()); !errors.Is(err, ErrFetchInFlight) {
		t.Fatalf("overlapping fetch err = %v", err)
	}
	if err := tr.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh should swallow overlap: %v", err)
	}

	close(src.gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if tr.Unread() != 1 {
		t.Fatalf("unread = %d", tr.Unread())
	}
}

func TestTrackerCloseDropsLateResults(t *testing.T) {
	src := &fakeSource{}
	src.push(1)
	tr, _ := NewTracker(src, &memWatermark{}, nil)
	tr.Close()
	if err := tr.Fetch(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(tr.Snapshot().Notifications) != 0 {
		t.Fatal("fetch after Close updated the snapshot")
	}
}

func TestTrackerRunNotifiesListeners(t *testing.T) {
	src := &fakeSource{}
	src.push(1, 2)
	tr, _ := NewTracker(src, &memWatermark{}, nil)

	got := make(chan Snapshot, 4)
	tr.OnChange(func(s Snapshot) { got <- s })

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		tr.Run(ctx, time.Hour)
		close(finished)
	}()

	select {
	case s := <-got:
		if s.Unread != 2 {
			t.Fatalf("snapshot unread = %d", s.Unread)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not fetch immediately")
	}
	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
