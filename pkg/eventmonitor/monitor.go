package eventmonitor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
)

// Event is one committed status change.
type Event struct {
	Timestamp   time.Time             `json:"timestamp"`
	ChannelID   string                `json:"channel_id"`
	ChatbotID   string                `json:"chatbot_id"`
	ChannelType channel.ChannelType   `json:"channel_type"`
	From        channel.ChannelStatus `json:"from"`
	To          channel.ChannelStatus `json:"to"`
	Message     string                `json:"message,omitempty"`
	Generation  uint64                `json:"generation"`
}

type Stats struct {
	TotalTransitions int64   `json:"total_transitions"`
	TotalConnected   int64   `json:"total_connected"`
	TotalErrors      int64   `json:"total_errors"`
	TotalDisconnects int64   `json:"total_disconnects"`
	RecentEvents     []Event `json:"recent_events"`
}

// Monitor keeps a ring buffer of recent transitions plus running totals.
type Monitor struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	events []Event
	idx    int
	count  int

	totalTransitions int64
	totalConnected   int64
	totalErrors      int64
	totalDisconnects int64
}

func New(size int, ttl time.Duration) *Monitor {
	if size <= 0 {
		size = 200
	}
	return &Monitor{
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
		events: make([]Event, size),
	}
}

// Listen records ev when the status actually changed. It is cheap enough to
// run as a store listener.
func (m *Monitor) Listen(ev channel.ChangeEvent) {
	if ev.Previous == ev.Channel.Status {
		return
	}
	m.Record(Event{
		ChannelID:   ev.Channel.ID,
		ChatbotID:   ev.Channel.ChatbotID,
		ChannelType: ev.Channel.Type,
		From:        ev.Previous,
		To:          ev.Channel.Status,
		Message:     ev.Channel.ErrorMessage,
		Generation:  ev.Channel.Generation,
	})
}

func (m *Monitor) Record(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = m.now()
	}

	atomic.AddInt64(&m.totalTransitions, 1)
	switch e.To {
	case channel.StatusConnected:
		atomic.AddInt64(&m.totalConnected, 1)
	case channel.StatusError:
		atomic.AddInt64(&m.totalErrors, 1)
	case channel.StatusDisconnected:
		if e.From != "" {
			atomic.AddInt64(&m.totalDisconnects, 1)
		}
	}

	m.mu.Lock()
	m.events[m.idx] = e
	m.idx = (m.idx + 1) % len(m.events)
	if m.count < len(m.events) {
		m.count++
	}
	m.mu.Unlock()
}

// Recent returns buffered events oldest first. An empty chatbotID matches
// every chatbot; limit <= 0 means no limit.
func (m *Monitor) Recent(chatbotID string, limit int) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cutoff time.Time
	if m.ttl > 0 {
		cutoff = m.now().Add(-m.ttl)
	}
	start := (m.idx - m.count + len(m.events)) % len(m.events)
	out := make([]Event, 0, m.count)
	for i := 0; i < m.count; i++ {
		e := m.events[(start+i)%len(m.events)]
		if !cutoff.IsZero() && e.Timestamp.Before(cutoff) {
			continue
		}
		if chatbotID != "" && e.ChatbotID != chatbotID {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (m *Monitor) Stats() Stats {
	return Stats{
		TotalTransitions: atomic.LoadInt64(&m.totalTransitions),
		TotalConnected:   atomic.LoadInt64(&m.totalConnected),
		TotalErrors:      atomic.LoadInt64(&m.totalErrors),
		TotalDisconnects: atomic.LoadInt64(&m.totalDisconnects),
		RecentEvents:     m.Recent("", 0),
	}
}
