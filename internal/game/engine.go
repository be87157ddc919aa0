package game

import (
	"context"
	"fmt"

	"combo-snake/server/internal/collision"
	"combo-snake/server/internal/food"
	"combo-snake/server/internal/gamestate"
	"combo-snake/server/internal/grid"
	"combo-snake/server/internal/growth"
	"combo-snake/server/internal/score"
	"combo-snake/server/internal/sim"
	"combo-snake/server/logging"
	"combo-snake/server/logging/gameplay"
)

const (
	metricFoodConsumed   = "game_food_consumed_total"
	metricComboCompleted = "game_combo_completed_total"
	metricComboBroken    = "game_combo_broken_total"
	metricGameOver       = "game_over_total"
)

// Config tunes the orchestrated session.
type Config struct {
	Grid             grid.Config
	InitialLength    int
	GrowthPerFood    int
	MaxPendingGrowth int
	ScoreLedgerCap   int
}

func DefaultConfig() Config {
	return Config{
		Grid:             grid.DefaultConfig(),
		InitialLength:    3,
		GrowthPerFood:    1,
		MaxPendingGrowth: growth.DefaultMaxPending,
		ScoreLedgerCap:   score.DefaultLedgerCap,
	}
}

// Engine composes the snake, collision detector, food, growth, score, and
// state machine into one per-tick update. It is the only component the
// external world talks to, and it advances exactly one tick per call —
// scheduling belongs to the driver.
type Engine struct {
	cfg  Config
	deps sim.Deps

	detector *collision.Detector
	foods    *food.Manager
	growth   *growth.Manager
	scores   *score.Manager
	machine  *gamestate.Machine
	snake    *Snake

	tick         uint64
	gameOverSubs []func(gamestate.GameOverDetails)
}

// NewEngine wires the sub-managers from the injected dependencies. Missing
// dependencies fall back to safe defaults so tests can pass a zero Deps.
func NewEngine(cfg Config, deps sim.Deps) *Engine {
	if cfg.Grid.GridSize <= 0 {
		cfg.Grid = grid.DefaultConfig()
	}
	if cfg.InitialLength < 1 {
		cfg.InitialLength = 3
	}
	if cfg.GrowthPerFood < 1 {
		cfg.GrowthPerFood = 1
	}
	if deps.Clock == nil {
		deps.Clock = logging.SystemClock{}
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.RNG == nil {
		deps.RNG = grid.NewDeterministicRNG(grid.DefaultSeed, "food")
	}
	return &Engine{
		cfg:      cfg,
		deps:     deps,
		detector: collision.NewDetector(cfg.Grid),
		foods:    food.NewManager(cfg.Grid, deps.RNG, deps.Clock, deps.Publisher, deps.Metrics),
		growth:   growth.NewManager(cfg.MaxPendingGrowth, deps.Clock),
		scores:   score.NewManagerWithLedgerCap(cfg.ScoreLedgerCap, deps.Clock),
		machine:  gamestate.NewMachine(deps.Clock),
	}
}

// Deps exposes the injected dependencies to the loop driver.
func (e *Engine) Deps() sim.Deps {
	return e.deps
}

// State reports the current lifecycle state.
func (e *Engine) State() gamestate.State {
	return e.machine.Current()
}

// Start begins a fresh session from the menu.
func (e *Engine) Start() gamestate.Result {
	result := e.machine.Apply(gamestate.Action{Kind: gamestate.ActionStart})
	if result.OK {
		e.newSession()
	}
	return result
}

// Pause suspends the session; time spent paused is excluded from stats.
func (e *Engine) Pause() gamestate.Result {
	return e.machine.Apply(gamestate.Action{Kind: gamestate.ActionPause})
}

// Resume continues a paused session.
func (e *Engine) Resume() gamestate.Result {
	return e.machine.Apply(gamestate.Action{Kind: gamestate.ActionResume})
}

// Restart begins a fresh session directly from game over.
func (e *Engine) Restart() gamestate.Result {
	result := e.machine.Apply(gamestate.Action{Kind: gamestate.ActionRestart})
	if result.OK {
		e.newSession()
	}
	return result
}

// Reset tears the session down to the menu and clears every sub-manager.
func (e *Engine) Reset() {
	e.machine = gamestate.NewMachine(e.deps.Clock)
	e.foods.Reset()
	e.growth.Reset()
	e.scores.Reset()
	e.snake = nil
	e.tick = 0
}

func (e *Engine) newSession() {
	cols := e.cfg.Grid.Cols()
	rows := e.cfg.Grid.Rows()
	start := e.cfg.Grid.Cell(cols/2, rows/2)
	e.snake = NewSnake(e.cfg.Grid, start, e.cfg.InitialLength, grid.DirectionRight)
	e.growth.Reset()
	e.scores.Reset()
	e.tick = 0
	e.machine.NoteLength(e.snake.Len())
	e.foods.Initialize(e.tick, e.snake.Positions())
}

// ChangeDirection buffers a directional intent. Reversals are rejected at
// input time against the buffered direction, not the applied one.
func (e *Engine) ChangeDirection(d grid.Direction) bool {
	if e.snake == nil {
		return false
	}
	switch e.machine.Current() {
	case gamestate.StatePlaying, gamestate.StatePaused:
		return e.snake.SetNextDirection(d)
	}
	return false
}

// Apply consumes commands staged since the previous tick.
func (e *Engine) Apply(commands []sim.Command) error {
	for _, cmd := range commands {
		switch cmd.Type {
		case sim.CommandChangeDirection:
			if cmd.Direction == nil {
				return fmt.Errorf("%s command without payload", cmd.Type)
			}
			e.ChangeDirection(cmd.Direction.Direction)
		case sim.CommandPause:
			e.Pause()
		case sim.CommandResume:
			e.Resume()
		case sim.CommandRestart:
			e.Restart()
		default:
			return fmt.Errorf("unknown command type %q", cmd.Type)
		}
	}
	return nil
}

// Tick advances the simulation one step. Menu and paused states are no-ops
// that keep the loop alive; only the terminal game-over state returns
// false.
func (e *Engine) Tick() bool {
	switch e.machine.Current() {
	case gamestate.StateGameOver:
		return false
	case gamestate.StatePlaying:
	default:
		return true
	}

	e.tick++
	e.snake.ApplyBufferedDirection()
	newHead := e.snake.NextHead()

	if e.detector.WallCollision(newHead) {
		e.endGame(gamestate.CauseBoundary, newHead)
		return false
	}
	// Self collision is evaluated against the body before the move
	// commits; boundary already won the tie-break above.
	if e.detector.SelfCollision(newHead, e.snake.Positions()) {
		e.endGame(gamestate.CauseSelf, newHead)
		return false
	}

	e.snake.Advance(newHead, e.growth.Process())
	e.machine.NoteTick()
	e.machine.NoteLength(e.snake.Len())

	if matched, ok := e.detector.FirstFoodMatch(newHead, e.foods.Foods()); ok {
		e.consume(matched)
	}
	return true
}

func (e *Engine) consume(matched food.NumberedFood) {
	result, ok := e.foods.Consume(e.tick, matched.Number, e.snake.Positions())
	if !ok {
		return
	}
	e.machine.NoteFood()
	if e.deps.Metrics != nil {
		e.deps.Metrics.Add(metricFoodConsumed, 1)
	}

	outcome := e.scores.RecordConsumption(matched.Number)
	bonus := 0
	switch outcome.Kind {
	case score.ComboCompleted:
		bonus = score.CompletionBonus(outcome.RunLength)
		if e.deps.Metrics != nil {
			e.deps.Metrics.Add(metricComboCompleted, 1)
		}
		gameplay.ComboCompleted(context.Background(), e.deps.Publisher, e.tick, gameplay.ComboPayload{
			Number:           outcome.Number,
			SequencePosition: outcome.SequencePosition,
			RunLength:        outcome.RunLength,
			Bonus:            bonus,
		})
	case score.ComboBroken:
		if e.deps.Metrics != nil {
			e.deps.Metrics.Add(metricComboBroken, 1)
		}
		gameplay.ComboBroken(context.Background(), e.deps.Publisher, e.tick, gameplay.ComboPayload{
			Number:           outcome.Number,
			SequencePosition: outcome.SequencePosition,
			ExpectedPosition: outcome.Expected,
			RunLength:        outcome.RunLength,
		})
		// A break discards the whole active set, replacement included.
		e.foods.ResetToInitial(e.tick, e.snake.Positions())
	}

	e.scores.AddScore(matched.Value, bonus)
	e.growth.Add(e.cfg.GrowthPerFood, growth.ReasonFood)

	gameplay.FoodConsumed(context.Background(), e.deps.Publisher, e.tick, gameplay.FoodConsumedPayload{
		Number:            matched.Number,
		Value:             matched.Value,
		ReplacementNumber: result.Replacement.Number,
		FoodID:            matched.ID,
	})
}

func (e *Engine) endGame(cause gamestate.Cause, position grid.Position) {
	result := e.machine.Apply(gamestate.Action{
		Kind: gamestate.ActionGameOver,
		GameOver: &gamestate.GameOverContext{
			Cause:      cause,
			Position:   position,
			FinalScore: e.scores.Score(),
		},
	})
	if !result.OK {
		return
	}
	details, _ := e.machine.GameOverDetails()
	if e.deps.Metrics != nil {
		e.deps.Metrics.Add(metricGameOver, 1)
	}
	gameplay.GameOver(context.Background(), e.deps.Publisher, e.tick, gameplay.GameOverPayload{
		Cause:      string(details.Cause),
		X:          details.CollisionPosition.X,
		Y:          details.CollisionPosition.Y,
		FinalScore: details.FinalScore,
		FoodEaten:  details.Stats.FoodEaten,
		MaxLength:  details.Stats.MaxLength,
		DurationMS: details.Stats.Duration.Milliseconds(),
		AvgSpeed:   details.Stats.AverageSpeed,
	})
	for _, fn := range e.gameOverSubs {
		e.notifyGameOver(fn, details)
	}
}

// notifyGameOver keeps a panicking listener from breaking the others.
func (e *Engine) notifyGameOver(fn func(gamestate.GameOverDetails), details gamestate.GameOverDetails) {
	if fn == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	fn(details)
}

// OnGameOver registers a listener for the terminal transition.
func (e *Engine) OnGameOver(fn func(gamestate.GameOverDetails)) {
	e.gameOverSubs = append(e.gameOverSubs, fn)
}

// SubscribeScore registers a score-change callback on the score manager.
func (e *Engine) SubscribeScore(fn func(score.Totals, score.Breakdown)) score.Subscription {
	return e.scores.Subscribe(fn)
}

// SubscribeCombo registers a combo-event callback on the score manager.
func (e *Engine) SubscribeCombo(fn func(score.ComboOutcome)) score.Subscription {
	return e.scores.SubscribeCombo(fn)
}

// Foods returns a copy of the active food set.
func (e *Engine) Foods() []food.NumberedFood {
	return e.foods.Foods()
}

// Breakdowns returns a copy of the score ledger.
func (e *Engine) Breakdowns() []score.Breakdown {
	return e.scores.Breakdowns()
}

// Totals returns the aggregate score view.
func (e *Engine) Totals() score.Totals {
	return e.scores.Totals()
}

// Snapshot assembles the plain-data view for rendering and persistence.
func (e *Engine) Snapshot() sim.Snapshot {
	snapshot := sim.Snapshot{
		Tick:   e.tick,
		State:  e.machine.Current(),
		Score:  e.scores.Score(),
		Totals: e.scores.Totals(),
	}
	if e.snake != nil {
		segments := e.snake.Segments()
		views := make([]sim.SegmentView, len(segments))
		for i, segment := range segments {
			views[i] = sim.SegmentView{ID: segment.ID, X: segment.Position.X, Y: segment.Position.Y}
		}
		snapshot.Snake = sim.SnakeView{
			Segments:      views,
			Direction:     e.snake.Direction(),
			NextDirection: e.snake.BufferedDirection(),
			Growing:       e.snake.Growing(),
		}
	}
	for _, f := range e.foods.Foods() {
		snapshot.Foods = append(snapshot.Foods, sim.FoodView{
			ID:     f.ID,
			Number: f.Number,
			X:      f.Position.X,
			Y:      f.Position.Y,
			Color:  f.Color,
			Value:  f.Value,
		})
	}
	if details, ok := e.machine.GameOverDetails(); ok {
		snapshot.GameOver = &details
	}
	return snapshot
}

var _ sim.EngineCore = (*Engine)(nil)
