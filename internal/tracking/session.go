package tracking

import "time"

// DefaultSessionTimeout inactivity gap that closes a session
const DefaultSessionTimeout = 30 * time.Minute

// SessionTracker detects session boundaries per domain and tracks elapsed
// time within the current session. Sessions are the unit achievement
// thresholds evaluate against
type SessionTracker struct {
	Timeout time.Duration
}

func (st SessionTracker) timeout() time.Duration {
	if st.Timeout > 0 {
		return st.Timeout
	}
	return DefaultSessionTimeout
}

// Advance update session state for one positive tick. Returns true when a
// new session started.
//
// A session starts on first sight of the domain, when the attended domain
// changed since the previous tick, or when the inactivity gap exceeded the
// timeout. Ticks with zero effective increment leave all state untouched
func (st SessionTracker) Advance(store *UserTimeStore, domain string, entry *DomainStatEntry, effectiveIncrement float64, now time.Time) bool {
	if effectiveIncrement <= 0 {
		return false
	}

	nowMs := now.UnixNano() / int64(time.Millisecond)
	gap := time.Duration(nowMs-entry.LastSessionUpdateAt) * time.Millisecond

	isNew := entry.LastSessionUpdateAt == 0 ||
		store.LastActiveDomain != domain ||
		gap > st.timeout()
	if isNew {
		entry.SessionCount++
		entry.CurrentSessionTime = 0
		entry.Checkpoints = nil
	}

	entry.CurrentSessionTime += effectiveIncrement
	entry.LastSessionUpdateAt = nowMs
	store.LastActiveDomain = domain
	return isNew
}
