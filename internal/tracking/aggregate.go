package tracking

import (
	"math"
	"time"
)

// Aggregate merge every archived day within windowDays of now (inclusive)
// plus the live day into per-domain totals. Pure read-side combinator: the
// inputs are never mutated
func Aggregate(history map[string]DayStats, today DayStats, windowDays int, now time.Time) DayStats {
	out := DayStats{}
	for dateStr, day := range history {
		d, err := time.Parse(DateLayout, dateStr)
		if err != nil {
			continue
		}
		diff := now.UTC().Sub(d)
		if diff < 0 {
			diff = -diff
		}
		days := int(math.Ceil(diff.Hours() / 24))
		if days <= windowDays {
			mergeStats(out, day)
		}
	}
	if today != nil {
		mergeStats(out, today)
	}
	return out
}

func mergeStats(target, source DayStats) {
	for domain, info := range source {
		acc, ok := target[domain]
		if !ok {
			acc = &DomainStatEntry{}
			target[domain] = acc
		}
		acc.ActiveTime += info.ActiveTime
		acc.VideoTime += info.VideoTime
		acc.SessionCount += info.SessionCount
		if info.TotalTabTime != nil {
			if acc.TotalTabTime == nil {
				var zero float64
				acc.TotalTabTime = &zero
			}
			*acc.TotalTabTime += *info.TotalTabTime
		}
		if info.Icon != "" {
			acc.Icon = info.Icon
		}
		if info.LastActiveAt > acc.LastActiveAt {
			acc.LastActiveAt = info.LastActiveAt
		}
	}
}
