package growth

import (
	"time"

	"combo-snake/server/internal/grid"
	"combo-snake/server/logging"
)

// Reason classifies why growth was requested.
type Reason string

const (
	ReasonFood   Reason = "food"
	ReasonBonus  Reason = "bonus"
	ReasonManual Reason = "manual"
)

// DefaultMaxPending caps how many queued segments can await application.
const DefaultMaxPending = 10

// historyCap bounds the audit ledger; the oldest half is dropped on overflow.
const historyCap = 512

// Event is one audit entry. Segments records the requested amount even when
// the pending counter clipped it, so history totals can exceed what was
// physically applied.
type Event struct {
	Segments int       `json:"segments"`
	Time     time.Time `json:"timestamp"`
	Reason   Reason    `json:"reason"`
}

// TailGrower is the snake surface needed for immediate growth.
type TailGrower interface {
	TailPosition() (grid.Position, bool)
	AppendTail(pos grid.Position, n int)
}

// State is the exportable manager state for round-tripping.
type State struct {
	Pending int     `json:"pending"`
	History []Event `json:"history"`
}

// Manager queues growth and applies it one segment per movement tick.
type Manager struct {
	max     int
	pending int
	growing bool
	clock   logging.Clock
	history []Event
}

func NewManager(maxPending int, clock logging.Clock) *Manager {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	if clock == nil {
		clock = logging.SystemClock{}
	}
	return &Manager{max: maxPending, clock: clock}
}

// Add records the requested amount to history and queues as much of it as
// the pending cap allows. It returns the applied amount.
func (m *Manager) Add(n int, reason Reason) int {
	if n <= 0 {
		return 0
	}
	m.record(n, reason)
	applied := n
	if room := m.max - m.pending; applied > room {
		applied = room
	}
	if applied < 0 {
		applied = 0
	}
	m.pending += applied
	return applied
}

// Process consumes one pending unit for this movement tick. While it
// returns true the tail segment must not be removed during the move.
func (m *Manager) Process() bool {
	if m.pending > 0 {
		m.pending--
		m.growing = true
		return true
	}
	m.growing = false
	return false
}

// GrowImmediate appends n segments at the current tail, bypassing the
// pending queue. No-op on an empty snake.
func (m *Manager) GrowImmediate(s TailGrower, n int) bool {
	if s == nil || n <= 0 {
		return false
	}
	tail, ok := s.TailPosition()
	if !ok {
		return false
	}
	s.AppendTail(tail, n)
	m.record(n, ReasonManual)
	return true
}

// Pending reports the queued segment count.
func (m *Manager) Pending() int {
	return m.pending
}

// Growing reports whether the current tick keeps the tail.
func (m *Manager) Growing() bool {
	return m.growing
}

// TotalByReason sums the requested segments recorded for one reason.
func (m *Manager) TotalByReason(reason Reason) int {
	total := 0
	for _, e := range m.history {
		if e.Reason == reason {
			total += e.Segments
		}
	}
	return total
}

// TotalRequested sums every requested segment in the ledger.
func (m *Manager) TotalRequested() int {
	total := 0
	for _, e := range m.history {
		total += e.Segments
	}
	return total
}

// Rate derives segments per minute from the first and last history
// timestamps. It returns 0 until the ledger spans a measurable window.
func (m *Manager) Rate() float64 {
	if len(m.history) < 2 {
		return 0
	}
	span := m.history[len(m.history)-1].Time.Sub(m.history[0].Time)
	if span <= 0 {
		return 0
	}
	return float64(m.TotalRequested()) / span.Minutes()
}

// WouldExceedMax reports whether applying all pending growth would push the
// snake past maxLength. Callers with no length cap pass 0 to skip it.
func (m *Manager) WouldExceedMax(currentLength, maxLength int) bool {
	if maxLength <= 0 {
		return false
	}
	return currentLength+m.pending > maxLength
}

// History returns a copy of the audit ledger.
func (m *Manager) History() []Event {
	if len(m.history) == 0 {
		return nil
	}
	return append([]Event(nil), m.history...)
}

// Export captures pending growth and the ledger for round-tripping.
func (m *Manager) Export() State {
	return State{Pending: m.pending, History: m.History()}
}

// Import restores exported state, clamping pending to the configured cap.
func (m *Manager) Import(state State) {
	m.pending = state.Pending
	if m.pending < 0 {
		m.pending = 0
	}
	if m.pending > m.max {
		m.pending = m.max
	}
	m.growing = false
	m.history = append([]Event(nil), state.History...)
}

// Reset clears pending growth and the ledger for a new session.
func (m *Manager) Reset() {
	m.pending = 0
	m.growing = false
	m.history = nil
}

func (m *Manager) record(n int, reason Reason) {
	m.history = append(m.history, Event{Segments: n, Time: m.clock.Now(), Reason: reason})
	if len(m.history) > historyCap {
		keep := len(m.history) / 2
		m.history = append([]Event(nil), m.history[len(m.history)-keep:]...)
	}
}
