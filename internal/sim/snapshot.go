package sim

import (
	"combo-snake/server/internal/gamestate"
	"combo-snake/server/internal/grid"
	"combo-snake/server/internal/score"
)

// SegmentView mirrors one snake segment for rendering and persistence.
type SegmentView struct {
	ID string `json:"id"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
}

// SnakeView mirrors the snake entity as plain data.
type SnakeView struct {
	Segments      []SegmentView  `json:"segments"`
	Direction     grid.Direction `json:"direction"`
	NextDirection grid.Direction `json:"nextDirection"`
	Growing       bool           `json:"isGrowing"`
}

// FoodView mirrors one active numbered food.
type FoodView struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Color  string `json:"color"`
	Value  int    `json:"value"`
}

// Snapshot captures the state exposed to non-simulation callers. It holds
// no live references; consumers may retain or serialize it freely.
type Snapshot struct {
	Tick     uint64                     `json:"tick"`
	State    gamestate.State            `json:"state"`
	Score    int                        `json:"score"`
	Totals   score.Totals               `json:"totals"`
	Snake    SnakeView                  `json:"snake"`
	Foods    []FoodView                 `json:"foods"`
	GameOver *gamestate.GameOverDetails `json:"gameOver,omitempty"`
}
