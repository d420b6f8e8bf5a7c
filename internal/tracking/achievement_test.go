package tracking

import (
	"fmt"
	"testing"
)

func TestResolveRule(t *testing.T) {
	rules := map[string]AchievementRule{
		"youtube.com":  {Limit: 120, Interval: 60},
		"goclasses.in": {Limit: 300},
	}
	cases := []struct {
		name   string
		domain string
		found  bool
		limit  float64
	}{
		{"exact match", "youtube.com", true, 120},
		{"www variant", "www.youtube.com", true, 120},
		{"subdomain scan", "music.youtube.com", true, 120},
		{"other rule", "goclasses.in", true, 300},
		{"no rule", "example.com", false, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rule, ok := ResolveRule(rules, c.domain)
			if ok != c.found {
				t.Fatalf("found = %v, want %v", ok, c.found)
			}
			if ok && rule.Limit != c.limit {
				t.Errorf("Limit = %v, want %v", rule.Limit, c.limit)
			}
		})
	}

	if _, ok := ResolveRule(nil, "youtube.com"); ok {
		t.Error("nil rule set must resolve nothing")
	}
}

func TestAchievementEngineEvaluate(t *testing.T) {
	rules := map[string]AchievementRule{
		"youtube.com": {Limit: 120, Interval: 60, Message: "YouTube Limit Reached!"},
	}

	t.Run("checkpoint ladder fires each step exactly once", func(t *testing.T) {
		engine := NewAchievementEngine(nil)
		entry := &DomainStatEntry{}
		var fired []string

		// walk the session one second at a time past two intervals
		for s := 1.0; s <= 250; s++ {
			entry.CurrentSessionTime = s
			if n := engine.Evaluate("youtube.com", entry, rules); n != nil {
				fired = append(fired, fmt.Sprintf("%s@%v", n.TriggerType, s))
			}
		}

		expect := []string{"limit_reached@120", "interval_1@180", "interval_2@240"}
		if len(fired) != len(expect) {
			t.Fatalf("fired %v, want %v", fired, expect)
		}
		for i := range expect {
			if fired[i] != expect[i] {
				t.Errorf("fired[%d] = %s, want %s", i, fired[i], expect[i])
			}
		}
	})

	t.Run("below the limit nothing fires", func(t *testing.T) {
		engine := NewAchievementEngine(nil)
		entry := &DomainStatEntry{CurrentSessionTime: 119}
		if n := engine.Evaluate("youtube.com", entry, rules); n != nil {
			t.Errorf("fired %+v below the limit", n)
		}
	})

	t.Run("custom message carried on limit", func(t *testing.T) {
		engine := NewAchievementEngine(nil)
		entry := &DomainStatEntry{CurrentSessionTime: 120}
		n := engine.Evaluate("youtube.com", entry, rules)
		if n == nil || n.Message != "YouTube Limit Reached!" {
			t.Errorf("notification = %+v, want the configured message", n)
		}
	})

	t.Run("default messages when rule has none", func(t *testing.T) {
		bare := map[string]AchievementRule{"a.com": {Limit: 60, Interval: 60}}
		engine := NewAchievementEngine(nil)
		entry := &DomainStatEntry{CurrentSessionTime: 60}
		if n := engine.Evaluate("a.com", entry, bare); n == nil || n.Message != DefaultLimitMessage {
			t.Errorf("limit notification = %+v, want default message", n)
		}
		entry.CurrentSessionTime = 120
		n := engine.Evaluate("a.com", entry, bare)
		if n == nil || n.Message != "You've been here for 2 minutes" {
			t.Errorf("interval notification = %+v, want derived minute message", n)
		}
	})

	t.Run("zero limit counts intervals from session start", func(t *testing.T) {
		intervalOnly := map[string]AchievementRule{"a.com": {Interval: 60}}
		engine := NewAchievementEngine(nil)
		entry := &DomainStatEntry{CurrentSessionTime: 59}
		if n := engine.Evaluate("a.com", entry, intervalOnly); n != nil {
			t.Errorf("fired %+v before the first interval", n)
		}
		entry.CurrentSessionTime = 60
		n := engine.Evaluate("a.com", entry, intervalOnly)
		if n == nil || n.TriggerType != "interval_1" {
			t.Errorf("notification = %+v, want interval_1", n)
		}
	})

	t.Run("limit only rule never fires intervals", func(t *testing.T) {
		limitOnly := map[string]AchievementRule{"goclasses.in": {Limit: 300, Message: "Study Break!"}}
		engine := NewAchievementEngine(nil)
		entry := &DomainStatEntry{CurrentSessionTime: 300}
		n := engine.Evaluate("goclasses.in", entry, limitOnly)
		if n == nil || n.TriggerType != CheckpointLimit {
			t.Fatalf("notification = %+v, want limit_reached", n)
		}
		entry.CurrentSessionTime = 5000
		if n := engine.Evaluate("goclasses.in", entry, limitOnly); n != nil {
			t.Errorf("fired %+v, limit-only rule must fire once per session", n)
		}
	})

	t.Run("unmatched domain fires nothing", func(t *testing.T) {
		engine := NewAchievementEngine(nil)
		entry := &DomainStatEntry{CurrentSessionTime: 9999}
		if n := engine.Evaluate("example.com", entry, rules); n != nil {
			t.Errorf("fired %+v for a domain without a rule", n)
		}
	})
}
