package tracking

import (
	"bytes"
	"encoding/json"
)

// Early extension builds persisted a domain entry as a bare number of
// active seconds. The boundary normalizes that shape into the canonical
// record so nothing deeper in the pipeline branches on it.
func (e *DomainStatEntry) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		var n float64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return err
		}
		*e = DomainStatEntry{ActiveTime: n}
		return nil
	}
	type alias DomainStatEntry
	var a alias
	if err := json.Unmarshal(raw, &a); err != nil {
		return err
	}
	*e = DomainStatEntry(a)
	return nil
}

// storedSnapshot snapshot document plus the legacy "Simple Mode" settings
// the popup used to write: a flat site list with one global limit/interval
// in minutes
type storedSnapshot struct {
	UserTimeStore
	AchievementSites    []string `json:"achievement_sites,omitempty"`
	AchievementLimit    float64  `json:"achievement_limit,omitempty"`
	AchievementInterval float64  `json:"achievement_interval,omitempty"`
}

// DecodeSnapshot parse a persisted snapshot, migrating legacy shapes into
// the canonical store
func DecodeSnapshot(raw []byte) (*UserTimeStore, error) {
	var doc storedSnapshot
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	store := doc.UserTimeStore

	if len(doc.AchievementSites) > 0 {
		// popup inputs are minutes, the engine counts seconds
		store.Rules = make(map[string]AchievementRule, len(doc.AchievementSites))
		for _, site := range doc.AchievementSites {
			store.Rules[site] = AchievementRule{
				Limit:    doc.AchievementLimit * 60,
				Interval: doc.AchievementInterval * 60,
				Message:  DefaultLimitMessage,
			}
		}
	}

	if store.TodayStats == nil {
		store.TodayStats = DayStats{}
	}
	if store.History == nil {
		store.History = map[string]DayStats{}
	}
	if store.Rules == nil {
		store.Rules = DefaultRules()
	}
	return &store, nil
}

// EncodeSnapshot serialize a store for persistence
func EncodeSnapshot(store *UserTimeStore) ([]byte, error) {
	return json.Marshal(store)
}
