package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/clicksand/clicksand/internal/infrastructure/logging"
	"github.com/clicksand/clicksand/internal/infrastructure/uuid"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// ErrUnknownView query asked for a view other than today/weekly/monthly
var ErrUnknownView = errors.New("unknown stats view")

// UseCaseConfig tunables for the tracking engine
type UseCaseConfig struct {
	SessionTimeout time.Duration
	SaveDebounce   time.Duration
	MaxTickDelta   float64
}

// UseCaseImpl drives accumulation, session detection, achievements, day
// rollover and debounced persistence.
//
// All mutating operations for one user are serialized behind that user's
// mutex; different users proceed independently. Persistence is
// fire-and-forget: a crash loses at most one debounce window, the
// in-memory store stays authoritative for live queries
type UseCaseImpl struct {
	repo      SnapshotRepository
	broker    *Broker
	logger    *zap.Logger
	acc       Accumulator
	sessions  SessionTracker
	engine    *AchievementEngine
	scheduler *SaveScheduler

	mu    sync.Mutex
	users map[string]*userState
}

type userState struct {
	mu    sync.Mutex
	store *UserTimeStore
}

var _ UseCase = &UseCaseImpl{}

// NewUseCase create the tracking engine
func NewUseCase(
	repo SnapshotRepository,
	broker *Broker,
	ids uuid.Generator,
	logger *zap.Logger,
	cfg UseCaseConfig,
) *UseCaseImpl {
	u := &UseCaseImpl{
		repo:     repo,
		broker:   broker,
		logger:   logger,
		acc:      Accumulator{MaxTickDelta: cfg.MaxTickDelta},
		sessions: SessionTracker{Timeout: cfg.SessionTimeout},
		engine:   NewAchievementEngine(ids),
		users:    map[string]*userState{},
	}
	u.scheduler = NewSaveScheduler(cfg.SaveDebounce, u.persist)
	return u
}

// Close flush every pending snapshot write
func (u *UseCaseImpl) Close() {
	u.scheduler.Close()
}

// Ingest apply one accumulation tick. Missing user or domain identifiers
// are dropped silently, never an error
func (u *UseCaseImpl) Ingest(ctx context.Context, batch *ActivityBatch) error {
	apmSpan, ctx := apm.StartSpan(ctx, "TrackingUseCase.Ingest", "service")
	defer apmSpan.End()

	if batch == nil || batch.UserID == "" || batch.Domain == "" {
		u.logger.Debug("Ignoring activity batch without identifiers")
		return nil
	}

	now := time.Now()
	var (
		notif   *Notification
		stats   DayStats
		rotated bool
	)
	u.withStore(ctx, batch.UserID, now, func(store *UserTimeStore) {
		rotated = CheckAndRotate(store, now)
		entry, inc := u.acc.Apply(store, batch.Domain, batch.ActiveSeconds, batch.VideoSeconds, batch.Icon, now)
		if entry == nil {
			return
		}
		if u.sessions.Advance(store, batch.Domain, entry, inc, now) {
			u.logger.Debug("Session started",
				zap.String("user.id", batch.UserID),
				zap.String("tracking.domain", batch.Domain),
				zap.Int("tracking.session", entry.SessionCount),
			)
		}
		if inc > 0 {
			notif = u.engine.Evaluate(batch.Domain, entry, store.Rules)
		}
		stats = store.TodayStats.Clone()
	})

	if rotated {
		u.persist(batch.UserID)
	}
	u.scheduler.Schedule(batch.UserID)

	if notif != nil {
		u.logger.Info("Achievement unlocked",
			zap.String("user.id", batch.UserID),
			zap.String("tracking.domain", notif.Domain),
			zap.String("tracking.checkpoint", notif.TriggerType),
		)
		u.broker.Publish(batch.UserID, Event{Type: EventAchievementUnlocked, Payload: notif})
	}
	u.broker.Publish(batch.UserID, Event{Type: EventStatsUpdated, Payload: stats})
	return nil
}

// Heartbeat add one browser-open second, independent of any domain
func (u *UseCaseImpl) Heartbeat(ctx context.Context, userID string) error {
	apmSpan, ctx := apm.StartSpan(ctx, "TrackingUseCase.Heartbeat", "service")
	defer apmSpan.End()

	if userID == "" {
		return nil
	}

	now := time.Now()
	var stats DayStats
	u.withStore(ctx, userID, now, func(store *UserTimeStore) {
		CheckAndRotate(store, now)
		u.acc.Tick(store, now)
		stats = store.TodayStats.Clone()
	})
	u.scheduler.Schedule(userID)
	u.broker.Publish(userID, Event{Type: EventStatsUpdated, Payload: stats})
	return nil
}

// Query read the live bucket or an aggregated window. Never blocks on
// pending writes
func (u *UseCaseImpl) Query(ctx context.Context, userID string, view string) (*StatsView, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "TrackingUseCase.Query", "service")
	defer apmSpan.End()

	now := time.Now()
	if userID == "" {
		return &StatsView{Stats: DayStats{}, CurrentDate: now.UTC().Format(DateLayout)}, nil
	}

	var (
		result *StatsView
		err    error
	)
	u.withStore(ctx, userID, now, func(store *UserTimeStore) {
		CheckAndRotate(store, now)
		switch view {
		case ViewToday, "":
			history := make(map[string]DayStats, len(store.History))
			for date, day := range store.History {
				history[date] = day.Clone()
			}
			result = &StatsView{
				Stats:       store.TodayStats.Clone(),
				History:     history,
				CurrentDate: store.CurrentDate,
			}
		case ViewWeekly:
			result = &StatsView{
				Stats:       Aggregate(store.History, store.TodayStats, 7, now),
				CurrentDate: store.CurrentDate,
			}
		case ViewMonthly:
			result = &StatsView{
				Stats:       Aggregate(store.History, store.TodayStats, 30, now),
				CurrentDate: store.CurrentDate,
			}
		default:
			err = ErrUnknownView
		}
	})
	return result, err
}

// Reset clear today's bucket and all history, keep the rule config
func (u *UseCaseImpl) Reset(ctx context.Context, userID string) error {
	apmSpan, ctx := apm.StartSpan(ctx, "TrackingUseCase.Reset", "service")
	defer apmSpan.End()

	if userID == "" {
		return nil
	}

	now := time.Now()
	var stats DayStats
	u.withStore(ctx, userID, now, func(store *UserTimeStore) {
		CheckAndRotate(store, now)
		store.TodayStats = DayStats{}
		store.History = map[string]DayStats{}
		store.LastActiveDomain = ""
		stats = store.TodayStats.Clone()
	})
	u.persist(userID)
	u.broker.Publish(userID, Event{Type: EventStatsUpdated, Payload: stats})
	return nil
}

// UpdateRules replace the achievement rule set and schedule persistence
func (u *UseCaseImpl) UpdateRules(ctx context.Context, userID string, rules map[string]AchievementRule) error {
	apmSpan, ctx := apm.StartSpan(ctx, "TrackingUseCase.UpdateRules", "service")
	defer apmSpan.End()

	if userID == "" {
		return nil
	}
	if rules == nil {
		rules = map[string]AchievementRule{}
	}

	now := time.Now()
	u.withStore(ctx, userID, now, func(store *UserTimeStore) {
		store.Rules = rules
	})
	u.scheduler.Schedule(userID)
	return nil
}

// withStore run fn with exclusive access to the user's loaded store,
// creating or loading it on first touch
func (u *UseCaseImpl) withStore(ctx context.Context, userID string, now time.Time, fn func(store *UserTimeStore)) {
	u.mu.Lock()
	state, ok := u.users[userID]
	if !ok {
		state = &userState{}
		u.users[userID] = state
	}
	u.mu.Unlock()

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.store == nil {
		state.store = u.load(ctx, userID, now)
	}
	fn(state.store)
}

func (u *UseCaseImpl) load(ctx context.Context, userID string, now time.Time) *UserTimeStore {
	store, err := u.repo.Load(ctx, userID)
	if err != nil {
		// fall back to a fresh state, a broken snapshot must not block tracking
		u.logger.Error("Failed to load snapshot, starting fresh",
			zap.String("user.id", userID), zap.Error(err))
		return NewUserTimeStore(now)
	}
	if store == nil {
		return NewUserTimeStore(now)
	}
	return store
}

// persist write the user's current snapshot now. Failures are logged only;
// the next debounce cycle retries
func (u *UseCaseImpl) persist(userID string) {
	u.mu.Lock()
	state, ok := u.users[userID]
	u.mu.Unlock()
	if !ok {
		return
	}

	state.mu.Lock()
	if state.store == nil {
		state.mu.Unlock()
		return
	}
	snapshot := state.store.Clone()
	state.mu.Unlock()

	ctx := logging.SetLoggerInContext(context.Background(), u.logger)
	if err := u.repo.Save(ctx, userID, snapshot); err != nil {
		u.logger.Error("Failed to save snapshot",
			zap.String("user.id", userID), zap.Error(err))
	}
}
