package gameplay

import (
	"context"

	"combo-snake/server/logging"
)

const (
	// EventFoodConsumed is emitted when the snake eats a numbered food.
	EventFoodConsumed logging.EventType = "gameplay.food_consumed"
	// EventComboCompleted is emitted when the 1..5 sequence finishes in order.
	EventComboCompleted logging.EventType = "gameplay.combo_completed"
	// EventComboBroken is emitted when a consumption breaks the expected sequence.
	EventComboBroken logging.EventType = "gameplay.combo_broken"
	// EventGameOver is emitted once per session on the terminal transition.
	EventGameOver logging.EventType = "gameplay.game_over"
	// EventSpawnFallback is emitted when random food placement exhausts its
	// attempt budget and falls back to the row-major scan.
	EventSpawnFallback logging.EventType = "gameplay.food_spawn_fallback"
)

// FoodConsumedPayload captures the consumed food and its replacement.
type FoodConsumedPayload struct {
	Number            int    `json:"number"`
	Value             int    `json:"value"`
	ReplacementNumber int    `json:"replacementNumber"`
	FoodID            string `json:"foodId"`
}

// FoodConsumed publishes an info event for a successful consumption.
func FoodConsumed(ctx context.Context, pub logging.Publisher, tick uint64, payload FoodConsumedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventFoodConsumed,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: payload.FoodID, Kind: logging.EntityKindFood},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

// ComboPayload captures the state of a combo run when it completes or breaks.
type ComboPayload struct {
	Number           int `json:"number"`
	SequencePosition int `json:"sequencePosition"`
	ExpectedPosition int `json:"expectedPosition,omitempty"`
	RunLength        int `json:"runLength"`
	Bonus            int `json:"bonus,omitempty"`
}

// ComboCompleted publishes the completion of an in-order 1..5 run.
func ComboCompleted(ctx context.Context, pub logging.Publisher, tick uint64, payload ComboPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventComboCompleted,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindGame},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

// ComboBroken publishes an out-of-order consumption that reset the run.
func ComboBroken(ctx context.Context, pub logging.Publisher, tick uint64, payload ComboPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventComboBroken,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindGame},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

// GameOverPayload mirrors the terminal transition details.
type GameOverPayload struct {
	Cause      string  `json:"cause"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	FinalScore int     `json:"finalScore"`
	FoodEaten  int     `json:"foodEaten"`
	MaxLength  int     `json:"maxLength"`
	DurationMS int64   `json:"durationMillis"`
	AvgSpeed   float64 `json:"averageSpeed"`
}

// GameOver publishes the one-shot terminal event for the session.
func GameOver(ctx context.Context, pub logging.Publisher, tick uint64, payload GameOverPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventGameOver,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindSnake},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

// SpawnFallbackPayload records where the deterministic scan placed a food.
type SpawnFallbackPayload struct {
	Number   int `json:"number"`
	Attempts int `json:"attempts"`
	X        int `json:"x"`
	Y        int `json:"y"`
}

// SpawnFallback publishes a low-severity warning for placement exhaustion.
func SpawnFallback(ctx context.Context, pub logging.Publisher, tick uint64, payload SpawnFallbackPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSpawnFallback,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindFood},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}
