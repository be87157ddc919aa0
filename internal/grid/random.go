package grid

import (
	"hash/fnv"
	"math/rand"
)

// DefaultSeed anchors subsystem RNGs when no session seed is supplied.
const DefaultSeed = "combo-snake"

// DeterministicSeedValue hashes a root seed and subsystem label into a
// stable RNG seed so independent subsystems never share a stream.
func DeterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

// NewDeterministicRNG builds a subsystem RNG from the root seed and label.
func NewDeterministicRNG(rootSeed, label string) *rand.Rand {
	return rand.New(rand.NewSource(DeterministicSeedValue(rootSeed, label)))
}

// RandomCell draws a uniformly random grid-aligned cell from the board.
func RandomCell(rng *rand.Rand, cfg Config) Position {
	if rng == nil {
		rng = NewDeterministicRNG(DefaultSeed, "grid")
	}
	cols := cfg.Cols()
	rows := cfg.Rows()
	if cols <= 0 || rows <= 0 {
		return Position{}
	}
	return cfg.Cell(rng.Intn(cols), rng.Intn(rows))
}
