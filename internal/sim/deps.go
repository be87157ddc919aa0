package sim

import (
	"math/rand"

	"combo-snake/server/internal/telemetry"
	"combo-snake/server/logging"
)

// Deps carries shared infrastructure dependencies required by the engine.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Clock     logging.Clock
	RNG       *rand.Rand
	Publisher logging.Publisher
}
