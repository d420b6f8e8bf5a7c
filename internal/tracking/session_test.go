package tracking

import (
	"testing"
	"time"
)

func TestSessionTrackerAdvance(t *testing.T) {
	base := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

	t.Run("zero increment is a no-op", func(t *testing.T) {
		store := NewUserTimeStore(base)
		entry := store.ensure("a.com", base)
		if (SessionTracker{}).Advance(store, "a.com", entry, 0, base) {
			t.Error("zero increment must not start a session")
		}
		if entry.SessionCount != 0 || entry.CurrentSessionTime != 0 {
			t.Errorf("state changed on zero tick: %+v", entry)
		}
	})

	t.Run("first tick starts a session", func(t *testing.T) {
		store := NewUserTimeStore(base)
		entry := store.ensure("a.com", base)
		if !(SessionTracker{}).Advance(store, "a.com", entry, 5, base) {
			t.Fatal("first tick must start a session")
		}
		if entry.SessionCount != 1 || entry.CurrentSessionTime != 5 {
			t.Errorf("sessions=%d time=%v, want 1 and 5", entry.SessionCount, entry.CurrentSessionTime)
		}
		if store.LastActiveDomain != "a.com" {
			t.Errorf("LastActiveDomain = %q, want a.com", store.LastActiveDomain)
		}
	})

	t.Run("ticks within the timeout extend the session", func(t *testing.T) {
		store := NewUserTimeStore(base)
		entry := store.ensure("a.com", base)
		st := SessionTracker{Timeout: 30 * time.Minute}
		st.Advance(store, "a.com", entry, 10, base)
		if st.Advance(store, "a.com", entry, 10, base.Add(10*time.Minute)) {
			t.Error("tick inside the timeout must not start a new session")
		}
		if entry.SessionCount != 1 || entry.CurrentSessionTime != 20 {
			t.Errorf("sessions=%d time=%v, want 1 and 20", entry.SessionCount, entry.CurrentSessionTime)
		}
	})

	t.Run("gaps beyond the timeout split sessions", func(t *testing.T) {
		store := NewUserTimeStore(base)
		entry := store.ensure("a.com", base)
		st := SessionTracker{Timeout: 30 * time.Minute}
		st.Advance(store, "a.com", entry, 30, base)
		st.Advance(store, "a.com", entry, 20, base.Add(31*time.Minute))
		st.Advance(store, "a.com", entry, 70, base.Add(62*time.Minute))
		if entry.SessionCount != 3 {
			t.Errorf("SessionCount = %d, want 3", entry.SessionCount)
		}
		if entry.CurrentSessionTime != 70 {
			t.Errorf("CurrentSessionTime = %v, want 70", entry.CurrentSessionTime)
		}
	})

	t.Run("switching domains starts a new session", func(t *testing.T) {
		store := NewUserTimeStore(base)
		a := store.ensure("a.com", base)
		b := store.ensure("b.com", base)
		st := SessionTracker{Timeout: 30 * time.Minute}
		st.Advance(store, "a.com", a, 10, base)
		st.Advance(store, "b.com", b, 10, base.Add(time.Minute))
		if !st.Advance(store, "a.com", a, 10, base.Add(2*time.Minute)) {
			t.Error("returning to a domain after visiting another must start a new session")
		}
		if a.SessionCount != 2 {
			t.Errorf("a.com SessionCount = %d, want 2", a.SessionCount)
		}
		if a.CurrentSessionTime != 10 {
			t.Errorf("a.com CurrentSessionTime = %v, want 10", a.CurrentSessionTime)
		}
	})

	t.Run("new session clears triggered checkpoints", func(t *testing.T) {
		store := NewUserTimeStore(base)
		entry := store.ensure("a.com", base)
		st := SessionTracker{Timeout: 30 * time.Minute}
		st.Advance(store, "a.com", entry, 10, base)
		entry.Checkpoints = map[string]bool{CheckpointLimit: true}
		st.Advance(store, "a.com", entry, 10, base.Add(time.Hour))
		if entry.Checkpoints != nil {
			t.Errorf("Checkpoints = %v, want nil after session reset", entry.Checkpoints)
		}
	})
}
