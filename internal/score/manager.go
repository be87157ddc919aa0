package score

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"combo-snake/server/logging"
)

// DefaultLedgerCap bounds the breakdown ledger; the oldest half is dropped
// when the cap is exceeded.
const DefaultLedgerCap = 1000

// sequenceLength is the span of one combo run over the numbered foods.
const sequenceLength = 5

// comboPointUnit is the per-step bonus unit. Average combo length is
// defined as comboBonusTotal / comboPointUnit / totalCombos; keep the
// literal formula, it is the documented contract.
const comboPointUnit = 5

// CompletionBonus is the bonus awarded for finishing a run of the given
// length in order.
func CompletionBonus(runLength int) int {
	if runLength <= 0 {
		return 0
	}
	return comboPointUnit * runLength
}

// Breakdown is one append-only ledger entry for a score change.
type Breakdown struct {
	ID          string    `json:"id"`
	BasePoints  int       `json:"basePoints"`
	ComboBonus  int       `json:"comboBonus"`
	TotalPoints int       `json:"totalPoints"`
	Time        time.Time `json:"timestamp"`
}

// Totals is the aggregate view handed to subscribers on every change.
type Totals struct {
	Score              int     `json:"score"`
	TotalCombos        int     `json:"totalCombos"`
	ComboBonusTotal    int     `json:"comboBonusTotal"`
	AverageComboLength float64 `json:"averageComboLength"`
}

// ComboKind tags the outcome of feeding one consumption into the tracker.
type ComboKind string

const (
	ComboAdvanced  ComboKind = "advanced"
	ComboCompleted ComboKind = "completed"
	ComboBroken    ComboKind = "broken"
)

// ComboOutcome reports how a consumed number related to the expected
// 1..5 sequence position.
type ComboOutcome struct {
	Kind             ComboKind `json:"kind"`
	Number           int       `json:"number"`
	SequencePosition int       `json:"sequencePosition"`
	Expected         int       `json:"expected"`
	RunLength        int       `json:"runLength"`
}

// Subscription identifies a registered callback for unsubscribing.
type Subscription struct {
	id int
}

// State is the exportable manager state for round-tripping.
type State struct {
	Score           int         `json:"score"`
	TotalCombos     int         `json:"totalCombos"`
	ComboBonusTotal int         `json:"comboBonusTotal"`
	ExpectedNext    int         `json:"expectedNext"`
	RunLength       int         `json:"runLength"`
	Breakdowns      []Breakdown `json:"breakdowns"`
}

// Manager accumulates score, maintains the capped breakdown ledger, and
// tracks the in-progress combo run. It is driven synchronously from the
// engine tick, so it carries no lock; subscriber callbacks run inline.
type Manager struct {
	clock     logging.Clock
	ledgerCap int

	score           int
	breakdowns      []Breakdown
	totalCombos     int
	comboBonusTotal int

	expectedNext int
	runLength    int

	scoreSubs map[int]func(Totals, Breakdown)
	comboSubs map[int]func(ComboOutcome)
	nextSub   int
}

func NewManager(clock logging.Clock) *Manager {
	return NewManagerWithLedgerCap(DefaultLedgerCap, clock)
}

func NewManagerWithLedgerCap(ledgerCap int, clock logging.Clock) *Manager {
	if ledgerCap <= 0 {
		ledgerCap = DefaultLedgerCap
	}
	if clock == nil {
		clock = logging.SystemClock{}
	}
	return &Manager{
		clock:        clock,
		ledgerCap:    ledgerCap,
		expectedNext: 1,
		scoreSubs:    make(map[int]func(Totals, Breakdown)),
		comboSubs:    make(map[int]func(ComboOutcome)),
	}
}

// AddScore is the atomic unit of score change. A positive comboBonus counts
// one completed combo toward the totals.
func (m *Manager) AddScore(basePoints, comboBonus int) Breakdown {
	total := basePoints + comboBonus
	m.score += total
	if comboBonus > 0 {
		m.totalCombos++
		m.comboBonusTotal += comboBonus
	}
	entry := Breakdown{
		ID:          uuid.NewString(),
		BasePoints:  basePoints,
		ComboBonus:  comboBonus,
		TotalPoints: total,
		Time:        m.clock.Now(),
	}
	m.breakdowns = append(m.breakdowns, entry)
	if len(m.breakdowns) > m.ledgerCap {
		keep := len(m.breakdowns) / 2
		m.breakdowns = append([]Breakdown(nil), m.breakdowns[len(m.breakdowns)-keep:]...)
	}

	totals := m.Totals()
	for _, id := range sortedKeys(m.scoreSubs) {
		m.notifyScore(m.scoreSubs[id], totals, entry)
	}
	return entry
}

// RecordConsumption feeds one consumed food number into the combo tracker.
// Sequence position is ((number-1) mod 5)+1, so +5 replacement numbers
// continue a run at the same slot as the number they replaced.
func (m *Manager) RecordConsumption(number int) ComboOutcome {
	position := (number-1)%sequenceLength + 1
	if number < 1 {
		position = 0
	}
	outcome := ComboOutcome{
		Number:           number,
		SequencePosition: position,
		Expected:         m.expectedNext,
	}
	if position == m.expectedNext {
		m.runLength++
		outcome.RunLength = m.runLength
		if position == sequenceLength {
			outcome.Kind = ComboCompleted
			m.expectedNext = 1
			m.runLength = 0
		} else {
			outcome.Kind = ComboAdvanced
			m.expectedNext++
		}
	} else {
		outcome.Kind = ComboBroken
		outcome.RunLength = m.runLength
		m.expectedNext = 1
		m.runLength = 0
	}

	for _, id := range sortedKeys(m.comboSubs) {
		m.notifyCombo(m.comboSubs[id], outcome)
	}
	return outcome
}

// Totals returns the aggregate score view. Average combo length divides the
// combo bonus total by the per-combo point unit, as documented.
func (m *Manager) Totals() Totals {
	totals := Totals{
		Score:           m.score,
		TotalCombos:     m.totalCombos,
		ComboBonusTotal: m.comboBonusTotal,
	}
	if m.totalCombos > 0 {
		totals.AverageComboLength = float64(m.comboBonusTotal) / comboPointUnit / float64(m.totalCombos)
	}
	return totals
}

// Score reports the running total.
func (m *Manager) Score() int {
	return m.score
}

// Breakdowns returns a copy of the ledger, oldest first.
func (m *Manager) Breakdowns() []Breakdown {
	if len(m.breakdowns) == 0 {
		return nil
	}
	return append([]Breakdown(nil), m.breakdowns...)
}

// ExpectedNext reports the sequence position the tracker expects next.
func (m *Manager) ExpectedNext() int {
	return m.expectedNext
}

// RunLength reports the in-progress combo run length.
func (m *Manager) RunLength() int {
	return m.runLength
}

// Subscribe registers a score-change callback and returns its handle.
func (m *Manager) Subscribe(fn func(Totals, Breakdown)) Subscription {
	m.nextSub++
	m.scoreSubs[m.nextSub] = fn
	return Subscription{id: m.nextSub}
}

// Unsubscribe removes a score-change callback.
func (m *Manager) Unsubscribe(sub Subscription) {
	delete(m.scoreSubs, sub.id)
}

// SubscribeCombo registers a combo-event callback and returns its handle.
func (m *Manager) SubscribeCombo(fn func(ComboOutcome)) Subscription {
	m.nextSub++
	m.comboSubs[m.nextSub] = fn
	return Subscription{id: m.nextSub}
}

// UnsubscribeCombo removes a combo-event callback.
func (m *Manager) UnsubscribeCombo(sub Subscription) {
	delete(m.comboSubs, sub.id)
}

// Export captures totals, tracker state, and the ledger for round-tripping.
func (m *Manager) Export() State {
	return State{
		Score:           m.score,
		TotalCombos:     m.totalCombos,
		ComboBonusTotal: m.comboBonusTotal,
		ExpectedNext:    m.expectedNext,
		RunLength:       m.runLength,
		Breakdowns:      m.Breakdowns(),
	}
}

// Import restores exported state. Subscribers are untouched.
func (m *Manager) Import(state State) {
	m.score = state.Score
	m.totalCombos = state.TotalCombos
	m.comboBonusTotal = state.ComboBonusTotal
	m.expectedNext = state.ExpectedNext
	if m.expectedNext < 1 || m.expectedNext > sequenceLength {
		m.expectedNext = 1
	}
	m.runLength = state.RunLength
	if m.runLength < 0 {
		m.runLength = 0
	}
	m.breakdowns = append([]Breakdown(nil), state.Breakdowns...)
}

// Reset clears all accumulated state for a new session.
func (m *Manager) Reset() {
	m.score = 0
	m.breakdowns = nil
	m.totalCombos = 0
	m.comboBonusTotal = 0
	m.expectedNext = 1
	m.runLength = 0
}

// notifyScore isolates a panicking subscriber so the remaining callbacks
// and the triggering tick still run.
func (m *Manager) notifyScore(fn func(Totals, Breakdown), totals Totals, entry Breakdown) {
	if fn == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	fn(totals, entry)
}

func (m *Manager) notifyCombo(fn func(ComboOutcome), outcome ComboOutcome) {
	if fn == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	fn(outcome)
}

func sortedKeys[V any](subs map[int]V) []int {
	keys := make([]int, 0, len(subs))
	for id := range subs {
		keys = append(keys, id)
	}
	sort.Ints(keys)
	return keys
}
