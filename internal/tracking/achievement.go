package tracking

import (
	"fmt"
	"math"

	"github.com/clicksand/clicksand/internal/infrastructure/uuid"
)

// CheckpointLimit identifier of the initial limit checkpoint
const CheckpointLimit = "limit_reached"

// DefaultLimitMessage fallback notification text
const DefaultLimitMessage = "Time Limit Reached!"

// AchievementEngine evaluates session time against threshold rules and
// fires at most one notification per distinct checkpoint per session
type AchievementEngine struct {
	ids uuid.Generator
}

// NewAchievementEngine create an engine; ids may be nil, notifications then
// carry no id
func NewAchievementEngine(ids uuid.Generator) *AchievementEngine {
	return &AchievementEngine{ids: ids}
}

// ResolveRule find the rule governing a domain: exact match first, then the
// normalized root, then a subdomain/suffix scan over every pattern
func ResolveRule(rules map[string]AchievementRule, domain string) (AchievementRule, bool) {
	if len(rules) == 0 {
		return AchievementRule{}, false
	}
	if rule, ok := rules[domain]; ok {
		return rule, true
	}
	if rule, ok := rules[NormalizeDomain(domain)]; ok {
		return rule, true
	}
	for pattern, rule := range rules {
		if MatchesDomain(domain, pattern) {
			return rule, true
		}
	}
	return AchievementRule{}, false
}

// Evaluate check the entry's current session against the rule set. Firing
// records the checkpoint on the entry, so each checkpoint fires exactly once
// per session
func (ae *AchievementEngine) Evaluate(domain string, entry *DomainStatEntry, rules map[string]AchievementRule) *Notification {
	rule, ok := ResolveRule(rules, domain)
	if !ok {
		return nil
	}

	session := entry.CurrentSessionTime
	limit := rule.Limit
	interval := rule.Interval

	gated := (limit > 0 && session >= limit) ||
		(limit == 0 && interval > 0 && session >= interval)
	if !gated {
		return nil
	}

	var trigger, message string
	switch {
	case limit > 0 && !entry.Checkpoints[CheckpointLimit]:
		trigger = CheckpointLimit
		message = rule.Message
		if message == "" {
			message = DefaultLimitMessage
		}
	case interval > 0:
		step := int(math.Floor((session - limit) / interval))
		if step <= 0 {
			return nil
		}
		key := fmt.Sprintf("interval_%d", step)
		if entry.Checkpoints[key] {
			return nil
		}
		trigger = key
		message = rule.Message
		if message == "" {
			minutes := int((limit + float64(step)*interval) / 60)
			message = fmt.Sprintf("You've been here for %d minutes", minutes)
		}
	default:
		return nil
	}

	if entry.Checkpoints == nil {
		entry.Checkpoints = map[string]bool{}
	}
	entry.Checkpoints[trigger] = true

	n := &Notification{
		Domain:      domain,
		Message:     message,
		TriggerType: trigger,
	}
	if ae.ids != nil {
		if id, err := ae.ids.Generate(); err == nil {
			n.ID = id
		}
	}
	return n
}
