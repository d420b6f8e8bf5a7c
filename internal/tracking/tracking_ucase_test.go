package tracking

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type memoryRepo struct {
	mu        sync.Mutex
	snapshots map[string]*UserTimeStore
	saves     int
	loadErr   error
	saveErr   error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{snapshots: map[string]*UserTimeStore{}}
}

func (r *memoryRepo) Load(ctx context.Context, userID string) (*UserTimeStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	store, ok := r.snapshots[userID]
	if !ok {
		return nil, nil
	}
	return store.Clone(), nil
}

func (r *memoryRepo) Save(ctx context.Context, userID string, store *UserTimeStore) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.snapshots[userID] = store.Clone()
	r.saves++
	return nil
}

func (r *memoryRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

var _ SnapshotRepository = &memoryRepo{}

func newTestUseCase(repo SnapshotRepository) (*UseCaseImpl, *Broker) {
	broker := NewBroker()
	u := NewUseCase(repo, broker, nil, zap.NewNop(), UseCaseConfig{
		SessionTimeout: 30 * time.Minute,
		SaveDebounce:   10 * time.Millisecond,
		MaxTickDelta:   600,
	})
	return u, broker
}

func TestUseCaseIngestThenQuery(t *testing.T) {
	u, _ := newTestUseCase(newMemoryRepo())
	defer u.Close()
	ctx := context.Background()

	batch := &ActivityBatch{UserID: "u1", Domain: "example.com", ActiveSeconds: 5, Icon: "ico"}
	if err := u.Ingest(ctx, batch); err != nil {
		t.Fatal(err)
	}
	if err := u.Ingest(ctx, batch); err != nil {
		t.Fatal(err)
	}

	view, err := u.Query(ctx, "u1", ViewToday)
	if err != nil {
		t.Fatal(err)
	}
	entry := view.Stats["example.com"]
	if entry == nil || entry.ActiveTime != 10 {
		t.Fatalf("example.com = %+v, want ActiveTime 10", entry)
	}
	if entry.SessionCount != 1 {
		t.Errorf("SessionCount = %d, want 1", entry.SessionCount)
	}
	if entry.Icon != "ico" {
		t.Errorf("Icon = %q, want ico", entry.Icon)
	}
	if view.Stats[BrowserTimeKey] == nil {
		t.Error("browser_time bucket missing from today view")
	}
	if view.History == nil {
		t.Error("today view must carry the history map")
	}
}

func TestUseCaseIngestIgnoresMissingIdentifiers(t *testing.T) {
	repo := newMemoryRepo()
	u, _ := newTestUseCase(repo)
	defer u.Close()
	ctx := context.Background()

	for _, batch := range []*ActivityBatch{
		nil,
		{Domain: "a.com", ActiveSeconds: 5},
		{UserID: "u1", ActiveSeconds: 5},
	} {
		if err := u.Ingest(ctx, batch); err != nil {
			t.Fatalf("batch %+v returned %v", batch, err)
		}
	}
	u.mu.Lock()
	loaded := len(u.users)
	u.mu.Unlock()
	if loaded != 0 {
		t.Errorf("loaded %d user states, want none", loaded)
	}
}

func TestUseCaseQueryViews(t *testing.T) {
	u, _ := newTestUseCase(newMemoryRepo())
	defer u.Close()
	ctx := context.Background()

	u.Ingest(ctx, &ActivityBatch{UserID: "u1", Domain: "a.com", ActiveSeconds: 10})

	for _, view := range []string{ViewToday, "", ViewWeekly, ViewMonthly} {
		got, err := u.Query(ctx, "u1", view)
		if err != nil {
			t.Fatalf("view %q: %v", view, err)
		}
		if got.Stats["a.com"] == nil || got.Stats["a.com"].ActiveTime != 10 {
			t.Errorf("view %q stats = %+v", view, got.Stats["a.com"])
		}
	}

	if _, err := u.Query(ctx, "u1", "yearly"); err != ErrUnknownView {
		t.Errorf("err = %v, want ErrUnknownView", err)
	}

	empty, err := u.Query(ctx, "", ViewToday)
	if err != nil || len(empty.Stats) != 0 {
		t.Errorf("anonymous query = %+v, %v; want empty view", empty, err)
	}
}

func TestUseCaseQueryResultIsDetached(t *testing.T) {
	u, _ := newTestUseCase(newMemoryRepo())
	defer u.Close()
	ctx := context.Background()

	u.Ingest(ctx, &ActivityBatch{UserID: "u1", Domain: "a.com", ActiveSeconds: 10})
	view, _ := u.Query(ctx, "u1", ViewToday)
	view.Stats["a.com"].ActiveTime = 0

	again, _ := u.Query(ctx, "u1", ViewToday)
	if again.Stats["a.com"].ActiveTime != 10 {
		t.Error("query result shares state with the live store")
	}
}

func TestUseCaseAchievementEvent(t *testing.T) {
	u, broker := newTestUseCase(newMemoryRepo())
	defer u.Close()
	ctx := context.Background()

	ch, cancel := broker.Subscribe("u1")
	defer cancel()

	u.UpdateRules(ctx, "u1", map[string]AchievementRule{
		"a.com": {Limit: 10, Message: "enough"},
	})
	u.Ingest(ctx, &ActivityBatch{UserID: "u1", Domain: "a.com", ActiveSeconds: 10})

	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type != EventAchievementUnlocked {
				continue
			}
			n, ok := ev.Payload.(*Notification)
			if !ok {
				t.Fatalf("payload = %T, want *Notification", ev.Payload)
			}
			if n.Domain != "a.com" || n.Message != "enough" || n.TriggerType != CheckpointLimit {
				t.Errorf("notification = %+v", n)
			}
			return
		case <-deadline:
			t.Fatal("achievement event never published")
		}
	}
}

func TestUseCaseStatsEventOnIngest(t *testing.T) {
	u, broker := newTestUseCase(newMemoryRepo())
	defer u.Close()
	ctx := context.Background()

	ch, cancel := broker.Subscribe("u1")
	defer cancel()

	u.Ingest(ctx, &ActivityBatch{UserID: "u1", Domain: "a.com", ActiveSeconds: 3})

	select {
	case ev := <-ch:
		if ev.Type != EventStatsUpdated {
			t.Errorf("Type = %q, want %q", ev.Type, EventStatsUpdated)
		}
		stats, ok := ev.Payload.(DayStats)
		if !ok {
			t.Fatalf("payload = %T, want DayStats", ev.Payload)
		}
		if stats["a.com"] == nil || stats["a.com"].ActiveTime != 3 {
			t.Errorf("payload stats = %+v", stats["a.com"])
		}
	case <-time.After(time.Second):
		t.Fatal("stats event never published")
	}
}

func TestUseCaseHeartbeat(t *testing.T) {
	u, _ := newTestUseCase(newMemoryRepo())
	defer u.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := u.Heartbeat(ctx, "u1"); err != nil {
			t.Fatal(err)
		}
	}
	if err := u.Heartbeat(ctx, ""); err != nil {
		t.Fatal(err)
	}

	view, _ := u.Query(ctx, "u1", ViewToday)
	browser := view.Stats[BrowserTimeKey]
	if browser == nil || browser.ActiveTime != 3 {
		t.Errorf("browser_time = %+v, want ActiveTime 3", browser)
	}
}

func TestUseCaseResetKeepsRules(t *testing.T) {
	repo := newMemoryRepo()
	u, _ := newTestUseCase(repo)
	defer u.Close()
	ctx := context.Background()

	rules := map[string]AchievementRule{"a.com": {Limit: 60}}
	u.UpdateRules(ctx, "u1", rules)
	u.Ingest(ctx, &ActivityBatch{UserID: "u1", Domain: "a.com", ActiveSeconds: 30})

	if err := u.Reset(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	view, _ := u.Query(ctx, "u1", ViewToday)
	if len(view.Stats) != 0 {
		t.Errorf("stats after reset = %+v, want empty", view.Stats)
	}
	if len(view.History) != 0 {
		t.Errorf("history after reset = %+v, want empty", view.History)
	}

	repo.mu.Lock()
	saved := repo.snapshots["u1"]
	repo.mu.Unlock()
	if saved == nil {
		t.Fatal("reset must persist immediately")
	}
	if saved.Rules["a.com"].Limit != 60 {
		t.Errorf("persisted rules = %+v, reset must keep them", saved.Rules)
	}
}

func TestUseCaseDebouncedPersistence(t *testing.T) {
	repo := newMemoryRepo()
	u, _ := newTestUseCase(repo)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		u.Ingest(ctx, &ActivityBatch{UserID: "u1", Domain: "a.com", ActiveSeconds: 1})
	}
	if got := repo.saveCount(); got != 0 {
		t.Errorf("saves before the debounce window = %d, want 0", got)
	}

	time.Sleep(50 * time.Millisecond)
	if got := repo.saveCount(); got != 1 {
		t.Errorf("saves after the debounce window = %d, want 1", got)
	}

	u.Close()
	saved := repo.snapshots["u1"]
	if saved == nil || saved.TodayStats["a.com"].ActiveTime != 5 {
		t.Errorf("persisted snapshot = %+v, want full accumulation", saved)
	}
}

func TestUseCaseLoadsExistingSnapshot(t *testing.T) {
	repo := newMemoryRepo()
	now := time.Now()
	seeded := NewUserTimeStore(now)
	seeded.TodayStats["a.com"] = &DomainStatEntry{ActiveTime: 100}
	repo.snapshots["u1"] = seeded

	u, _ := newTestUseCase(repo)
	defer u.Close()

	view, _ := u.Query(context.Background(), "u1", ViewToday)
	if view.Stats["a.com"] == nil || view.Stats["a.com"].ActiveTime != 100 {
		t.Errorf("loaded stats = %+v, want seeded snapshot", view.Stats["a.com"])
	}
}

func TestUseCaseLoadFailureStartsFresh(t *testing.T) {
	repo := newMemoryRepo()
	repo.loadErr = context.DeadlineExceeded
	u, _ := newTestUseCase(repo)
	defer u.Close()
	ctx := context.Background()

	if err := u.Ingest(ctx, &ActivityBatch{UserID: "u1", Domain: "a.com", ActiveSeconds: 5}); err != nil {
		t.Fatal(err)
	}
	repo.mu.Lock()
	repo.loadErr = nil
	repo.mu.Unlock()

	view, _ := u.Query(ctx, "u1", ViewToday)
	if view.Stats["a.com"] == nil || view.Stats["a.com"].ActiveTime != 5 {
		t.Errorf("stats = %+v, tracking must continue on load failure", view.Stats["a.com"])
	}
}
