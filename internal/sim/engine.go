package sim

import "combo-snake/server/internal/grid"

// Engine defines the minimal surface area exposed to non-simulation callers.
type Engine interface {
	// ChangeDirection buffers a directional intent, reporting whether it
	// was accepted. A 180° reversal of the buffered direction is rejected.
	ChangeDirection(grid.Direction) bool
	// Tick advances the simulation by one step. A false return means the
	// terminal game-over transition has already fired and the caller
	// should stop driving the loop.
	Tick() bool
	// Snapshot returns a plain-data view of the current state.
	Snapshot() Snapshot
	// Reset reinitializes every sub-manager and returns to the menu state.
	Reset()
}

// EngineCore extends Engine with the surface the loop driver needs.
type EngineCore interface {
	Engine
	Apply([]Command) error
	Deps() Deps
}
