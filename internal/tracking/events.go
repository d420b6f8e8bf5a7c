package tracking

import "sync"

// event types pushed to live clients
const (
	EventStatsUpdated        = "stats_updated"
	EventAchievementUnlocked = "achievement_unlocked"
)

// Event one live update for a single user
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const subscriberBuffer = 16

// Broker in-process per-user event fan-out. Publishing never blocks:
// events for a slow subscriber are dropped, live queries always have the
// authoritative in-memory state anyway
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

// NewBroker .
func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

// Subscribe register for a user's events. The returned cancel func must be
// called to release the subscription; it closes the channel
func (b *Broker) Subscribe(userID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	set, ok := b.subs[userID]
	if !ok {
		set = map[chan Event]struct{}{}
		b.subs[userID] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if set, ok := b.subs[userID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(b.subs, userID)
				}
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish deliver an event to every subscriber of the user
func (b *Broker) Publish(userID string, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[userID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
