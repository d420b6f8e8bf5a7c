package tracking

import "time"

// CheckAndRotate archive yesterday's bucket and start a fresh one when the
// calendar date advanced. Returns true when a rotation happened.
//
// Driven by date-string equality, not elapsed-time arithmetic, so process
// suspension or clock drift cannot double-archive a day. Idempotent per
// date. Must run before any accumulation on every entry point
func CheckAndRotate(store *UserTimeStore, now time.Time) bool {
	todayStr := now.UTC().Format(DateLayout)
	if store.CurrentDate == "" {
		// first sight of this user, nothing to archive
		store.CurrentDate = todayStr
		if store.TodayStats == nil {
			store.TodayStats = DayStats{}
		}
		return false
	}
	if todayStr == store.CurrentDate {
		return false
	}

	if store.History == nil {
		store.History = map[string]DayStats{}
	}
	if store.TodayStats != nil {
		store.History[store.CurrentDate] = store.TodayStats
	}
	store.TodayStats = DayStats{}
	store.CurrentDate = todayStr
	return true
}
