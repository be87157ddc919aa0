package gamestate

import (
	"errors"
	"fmt"
	"time"

	"combo-snake/server/internal/grid"
	"combo-snake/server/logging"
)

// State enumerates the game lifecycle states.
type State string

const (
	StateMenu     State = "menu"
	StatePlaying  State = "playing"
	StatePaused   State = "paused"
	StateGameOver State = "gameover"
)

// ActionKind enumerates the lifecycle actions.
type ActionKind string

const (
	ActionStart    ActionKind = "start"
	ActionPause    ActionKind = "pause"
	ActionResume   ActionKind = "resume"
	ActionGameOver ActionKind = "game_over"
	ActionRestart  ActionKind = "restart"
	ActionMenu     ActionKind = "menu"
)

// Cause names the fatal collision that ended the session.
type Cause string

const (
	CauseBoundary Cause = "boundary"
	CauseSelf     Cause = "self"
)

// GameOverContext is the payload required by ActionGameOver.
type GameOverContext struct {
	Cause      Cause
	Position   grid.Position
	FinalScore int
}

// Action is a tagged request against the machine. Only ActionGameOver
// carries a payload.
type Action struct {
	Kind     ActionKind
	GameOver *GameOverContext
}

// Statistics is the one-shot session summary captured at game over.
type Statistics struct {
	Duration     time.Duration `json:"duration"`
	FoodEaten    int           `json:"foodEaten"`
	MaxLength    int           `json:"maxLength"`
	AverageSpeed float64       `json:"averageSpeed"`
}

// GameOverDetails is captured exactly once, at the terminal transition.
type GameOverDetails struct {
	Cause             Cause         `json:"cause"`
	CollisionPosition grid.Position `json:"collisionPosition"`
	FinalScore        int           `json:"finalScore"`
	Stats             Statistics    `json:"gameStats"`
}

// Result reports a transition attempt. Failed attempts leave the machine
// untouched.
type Result struct {
	OK   bool
	From State
	To   State
	Err  error
}

var (
	ErrInvalidAction  = errors.New("action not valid in current state")
	ErrMissingPayload = errors.New("action requires a payload")
)

var transitions = map[State]map[ActionKind]State{
	StateMenu: {
		ActionStart: StatePlaying,
	},
	StatePlaying: {
		ActionPause:    StatePaused,
		ActionGameOver: StateGameOver,
	},
	StatePaused: {
		ActionResume:   StatePlaying,
		ActionGameOver: StateGameOver,
	},
	StateGameOver: {
		ActionRestart: StatePlaying,
		ActionMenu:    StateMenu,
	},
}

// Machine validates lifecycle actions against a per-state allow-list and
// accumulates the counters behind the game-over statistics snapshot.
type Machine struct {
	clock   logging.Clock
	current State

	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration

	ticksMoved int
	foodEaten  int
	maxLength  int

	over *GameOverDetails
}

func NewMachine(clock logging.Clock) *Machine {
	if clock == nil {
		clock = logging.SystemClock{}
	}
	return &Machine{clock: clock, current: StateMenu}
}

// Current reports the single current state.
func (m *Machine) Current() State {
	return m.current
}

// Apply validates and executes one action. Invalid actions return a failed
// Result without mutating state.
func (m *Machine) Apply(action Action) Result {
	next, ok := transitions[m.current][action.Kind]
	if !ok {
		return Result{
			From: m.current,
			To:   m.current,
			Err:  fmt.Errorf("%w: %s in %s", ErrInvalidAction, action.Kind, m.current),
		}
	}

	now := m.clock.Now()
	switch action.Kind {
	case ActionStart, ActionRestart:
		m.startedAt = now
		m.pausedAt = time.Time{}
		m.pausedTotal = 0
		m.ticksMoved = 0
		m.foodEaten = 0
		m.maxLength = 0
		m.over = nil
	case ActionPause:
		m.pausedAt = now
	case ActionResume:
		if !m.pausedAt.IsZero() {
			m.pausedTotal += now.Sub(m.pausedAt)
			m.pausedAt = time.Time{}
		}
	case ActionGameOver:
		if action.GameOver == nil {
			return Result{
				From: m.current,
				To:   m.current,
				Err:  fmt.Errorf("%w: %s", ErrMissingPayload, action.Kind),
			}
		}
		if m.current == StatePaused && !m.pausedAt.IsZero() {
			m.pausedTotal += now.Sub(m.pausedAt)
			m.pausedAt = time.Time{}
		}
		details := GameOverDetails{
			Cause:             action.GameOver.Cause,
			CollisionPosition: action.GameOver.Position,
			FinalScore:        action.GameOver.FinalScore,
			Stats:             m.statistics(now),
		}
		m.over = &details
	}

	from := m.current
	m.current = next
	return Result{OK: true, From: from, To: next}
}

// NoteTick records one committed movement tick.
func (m *Machine) NoteTick() {
	m.ticksMoved++
}

// NoteFood records one consumed food.
func (m *Machine) NoteFood() {
	m.foodEaten++
}

// NoteLength tracks the maximum snake length reached.
func (m *Machine) NoteLength(length int) {
	if length > m.maxLength {
		m.maxLength = length
	}
}

// PlayDuration reports active play time, excluding paused spans.
func (m *Machine) PlayDuration() time.Duration {
	if m.startedAt.IsZero() {
		return 0
	}
	now := m.clock.Now()
	elapsed := now.Sub(m.startedAt) - m.pausedTotal
	if m.current == StatePaused && !m.pausedAt.IsZero() {
		elapsed -= now.Sub(m.pausedAt)
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// GameOverDetails returns the snapshot captured at the terminal transition.
func (m *Machine) GameOverDetails() (GameOverDetails, bool) {
	if m.over == nil {
		return GameOverDetails{}, false
	}
	return *m.over, true
}

func (m *Machine) statistics(now time.Time) Statistics {
	duration := time.Duration(0)
	if !m.startedAt.IsZero() {
		duration = now.Sub(m.startedAt) - m.pausedTotal
		if duration < 0 {
			duration = 0
		}
	}
	stats := Statistics{
		Duration:  duration,
		FoodEaten: m.foodEaten,
		MaxLength: m.maxLength,
	}
	if seconds := duration.Seconds(); seconds > 0 {
		stats.AverageSpeed = float64(m.ticksMoved) / seconds
	}
	return stats
}
