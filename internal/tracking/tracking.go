package tracking

import (
	"context"
	"time"
)

// BrowserTimeKey synthetic stats bucket measuring total browser-open time,
// stored next to regular domains
const BrowserTimeKey = "browser_time"

// query views
const (
	ViewToday   = "today"
	ViewWeekly  = "weekly"
	ViewMonthly = "monthly"
)

// DateLayout layout of day bucket keys
const DateLayout = "2006-01-02"

// DomainStatEntry per-domain counters for a single day.
//
// JSON tags match the snapshot document the browser extension and the
// original backend wrote, so existing user files stay loadable.
type DomainStatEntry struct {
	ActiveTime          float64         `json:"time"`
	VideoTime           float64         `json:"video_time,omitempty"`
	TotalTabTime        *float64        `json:"total_tab_time,omitempty"` // present only for video-capable domains
	SessionCount        int             `json:"sessions,omitempty"`
	CurrentSessionTime  float64         `json:"currentSessionTime,omitempty"`
	LastActiveAt        int64           `json:"lastActiveTime,omitempty"`   // unix milliseconds
	LastSessionUpdateAt int64           `json:"lastSessionUpdate,omitempty"` // unix milliseconds
	Icon                string          `json:"icon,omitempty"`
	Checkpoints         map[string]bool `json:"triggeredAchievements,omitempty"`
}

// VideoCapable report whether the domain carries the dual tab/video metric
func (e *DomainStatEntry) VideoCapable() bool {
	return e.TotalTabTime != nil
}

// Clone deep copy, checkpoint set included
func (e *DomainStatEntry) Clone() *DomainStatEntry {
	out := *e
	if e.TotalTabTime != nil {
		v := *e.TotalTabTime
		out.TotalTabTime = &v
	}
	if e.Checkpoints != nil {
		out.Checkpoints = make(map[string]bool, len(e.Checkpoints))
		for k, v := range e.Checkpoints {
			out.Checkpoints[k] = v
		}
	}
	return &out
}

// DayStats stats bucket of one calendar day
type DayStats map[string]*DomainStatEntry

// Clone deep copy
func (d DayStats) Clone() DayStats {
	out := make(DayStats, len(d))
	for k, v := range d {
		out[k] = v.Clone()
	}
	return out
}

// AchievementRule threshold configuration for one domain pattern.
//
// Limit is the initial gate in seconds; Limit == 0 means interval
// checkpoints start counting from zero session time
type AchievementRule struct {
	Limit    float64 `json:"limit"`
	Interval float64 `json:"interval"`
	Message  string  `json:"message"`
}

// Notification one-shot achievement event
type Notification struct {
	ID          string `json:"id,omitempty"`
	Domain      string `json:"domain"`
	Message     string `json:"message"`
	TriggerType string `json:"type"`
}

// UserTimeStore whole per-user tracking state; persisted as one snapshot
type UserTimeStore struct {
	TodayStats       DayStats                   `json:"todayStats"`
	History          map[string]DayStats        `json:"history"`
	CurrentDate      string                     `json:"currentDate"`
	Rules            map[string]AchievementRule `json:"achievements"`
	LastActiveDomain string                     `json:"lastActiveDomain,omitempty"`
}

// NewUserTimeStore fresh store seeded with the built-in rule set
func NewUserTimeStore(now time.Time) *UserTimeStore {
	return &UserTimeStore{
		TodayStats:  DayStats{},
		History:     map[string]DayStats{},
		CurrentDate: now.UTC().Format(DateLayout),
		Rules:       DefaultRules(),
	}
}

// DefaultRules built-in achievement rule set
func DefaultRules() map[string]AchievementRule {
	return map[string]AchievementRule{
		"youtube.com":  {Limit: 120, Interval: 60, Message: "YouTube Limit Reached!"},
		"goclasses.in": {Limit: 300, Interval: 0, Message: "Study Break!"},
	}
}

// Clone deep copy of the whole store, safe to hand to async persistence
func (s *UserTimeStore) Clone() *UserTimeStore {
	out := &UserTimeStore{
		TodayStats:       s.TodayStats.Clone(),
		History:          make(map[string]DayStats, len(s.History)),
		CurrentDate:      s.CurrentDate,
		Rules:            make(map[string]AchievementRule, len(s.Rules)),
		LastActiveDomain: s.LastActiveDomain,
	}
	for date, day := range s.History {
		out.History[date] = day.Clone()
	}
	for pattern, rule := range s.Rules {
		out.Rules[pattern] = rule
	}
	return out
}

func (s *UserTimeStore) ensure(domain string, now time.Time) *DomainStatEntry {
	if s.TodayStats == nil {
		s.TodayStats = DayStats{}
	}
	entry, ok := s.TodayStats[domain]
	if !ok {
		entry = &DomainStatEntry{LastActiveAt: now.UnixNano() / int64(time.Millisecond)}
		s.TodayStats[domain] = entry
	}
	return entry
}

// ActivityBatch one extracted activity tick from the signal collaborator
type ActivityBatch struct {
	UserID        string
	Domain        string
	ActiveSeconds float64
	VideoSeconds  float64
	Icon          string
}

// StatsView read-side query result
type StatsView struct {
	Stats       DayStats            `json:"todayStats"`
	History     map[string]DayStats `json:"history,omitempty"`
	CurrentDate string              `json:"currentDate"`
}

// SnapshotRepository durable load/save of per-user snapshots.
//
// Load returns (nil, nil) when no snapshot exists for the user
type SnapshotRepository interface {
	Load(ctx context.Context, userID string) (*UserTimeStore, error)
	Save(ctx context.Context, userID string, store *UserTimeStore) error
}

// UseCase operations the core exposes to transports
type UseCase interface {
	Ingest(ctx context.Context, batch *ActivityBatch) error
	Heartbeat(ctx context.Context, userID string) error
	Query(ctx context.Context, userID string, view string) (*StatsView, error)
	Reset(ctx context.Context, userID string) error
	UpdateRules(ctx context.Context, userID string, rules map[string]AchievementRule) error
}
