package tracking

import "time"

// Accumulator applies activity deltas to a user's per-domain counters
type Accumulator struct {
	// MaxTickDelta caps a single tick's seconds; guards against clock
	// jumps after suspend/resume
	MaxTickDelta float64
}

func (a Accumulator) clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if a.MaxTickDelta > 0 && v > a.MaxTickDelta {
		return a.MaxTickDelta
	}
	return v
}

// Apply one activity tick for a domain. Returns the touched entry and the
// effective increment, nil when the domain is empty.
//
// Watching video counts as engaged time even without input activity, hence
// the max() fusion of the two signals
func (a Accumulator) Apply(store *UserTimeStore, domain string, activeSeconds, videoSeconds float64, icon string, now time.Time) (*DomainStatEntry, float64) {
	if domain == "" {
		return nil, 0
	}
	activeSeconds = a.clamp(activeSeconds)
	videoSeconds = a.clamp(videoSeconds)

	entry := store.ensure(domain, now)
	effective := activeSeconds
	if videoSeconds > effective {
		effective = videoSeconds
	}

	entry.ActiveTime += effective
	entry.VideoTime += videoSeconds
	entry.LastActiveAt = now.UnixNano() / int64(time.Millisecond)
	if icon != "" {
		entry.Icon = icon
	}

	// A domain turns video-capable the first time playback is observed and
	// keeps the dual metric from then on. The tab counter starts from the
	// engaged time gathered while the domain was still a standard site.
	if !entry.VideoCapable() && videoSeconds > 0 {
		seed := entry.ActiveTime - effective
		entry.TotalTabTime = &seed
	}
	if entry.VideoCapable() {
		*entry.TotalTabTime += effective
	}

	if effective > 0 {
		browser := store.ensure(BrowserTimeKey, now)
		browser.ActiveTime += effective
		browser.LastActiveAt = now.UnixNano() / int64(time.Millisecond)
	}
	return entry, effective
}

// Tick add one browser-open heartbeat unit, independent of any domain
func (a Accumulator) Tick(store *UserTimeStore, now time.Time) {
	browser := store.ensure(BrowserTimeKey, now)
	browser.ActiveTime++
	browser.LastActiveAt = now.UnixNano() / int64(time.Millisecond)
}
