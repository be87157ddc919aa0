package food

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"combo-snake/server/internal/grid"
	"combo-snake/server/internal/telemetry"
	"combo-snake/server/logging"
	"combo-snake/server/logging/gameplay"
)

// ActiveCount is the number of foods present at all times while playing.
const ActiveCount = 5

// placementAttempts bounds the random spawn search before falling back to
// the deterministic row-major scan.
const placementAttempts = 100

const metricSpawnFallback = "food_spawn_fallback_total"

// NumberedFood is one spawned food. Number values grow without bound via
// the +5 replacement rule; Color and Value derive from the number.
type NumberedFood struct {
	ID        string        `json:"id"`
	Number    int           `json:"number"`
	Position  grid.Position `json:"position"`
	Color     string        `json:"color"`
	Value     int           `json:"value"`
	SpawnedAt time.Time     `json:"spawnedAt"`
}

// ConsumeResult pairs the removed food with its freshly spawned replacement.
type ConsumeResult struct {
	Consumed    NumberedFood
	Replacement NumberedFood
}

var palette = [ActiveCount]struct {
	Color string
	Value int
}{
	{Color: "#e74c3c", Value: 10},
	{Color: "#e67e22", Value: 20},
	{Color: "#f1c40f", Value: 30},
	{Color: "#2ecc71", Value: 40},
	{Color: "#3498db", Value: 50},
}

// SequencePosition maps any food number onto its 1..5 combo slot.
func SequencePosition(number int) int {
	if number < 1 {
		return 0
	}
	return (number-1)%ActiveCount + 1
}

// ProgressionLevel scales food value for numbers beyond the first five.
func ProgressionLevel(number int) int {
	if number < 1 {
		return 1
	}
	return (number-1)/ActiveCount + 1
}

// ColorFor returns the palette color for a food number.
func ColorFor(number int) string {
	return palette[SequencePosition(number)-1].Color
}

// ValueFor returns the palette value scaled by progression level.
func ValueFor(number int) int {
	return palette[SequencePosition(number)-1].Value * ProgressionLevel(number)
}

// Manager owns the active set of five numbered foods and their placement.
type Manager struct {
	cfg     grid.Config
	rng     *rand.Rand
	clock   logging.Clock
	pub     logging.Publisher
	metrics telemetry.Metrics

	foods  map[int]NumberedFood
	active []int
}

func NewManager(cfg grid.Config, rng *rand.Rand, clock logging.Clock, pub logging.Publisher, metrics telemetry.Metrics) *Manager {
	if clock == nil {
		clock = logging.SystemClock{}
	}
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Manager{
		cfg:     cfg,
		rng:     rng,
		clock:   clock,
		pub:     pub,
		metrics: metrics,
		foods:   make(map[int]NumberedFood, ActiveCount),
		active:  make([]int, 0, ActiveCount),
	}
}

// Initialize discards any current set and spawns foods numbered 1..5,
// avoiding the provided occupied cells and each other.
func (m *Manager) Initialize(tick uint64, occupied []grid.Position) {
	m.foods = make(map[int]NumberedFood, ActiveCount)
	m.active = m.active[:0]
	taken := occupancy(occupied)
	for number := 1; number <= ActiveCount; number++ {
		pos := m.place(tick, number, taken)
		taken[pos] = struct{}{}
		m.active = append(m.active, number)
		m.foods[number] = m.newFood(number, pos)
	}
}

// ResetToInitial reinstates the exact {1,2,3,4,5} set after a combo break.
func (m *Manager) ResetToInitial(tick uint64, occupied []grid.Position) {
	m.Initialize(tick, occupied)
}

// Reset empties the manager entirely. Used when the session is torn down;
// the next session spawns a fresh set via Initialize.
func (m *Manager) Reset() {
	m.foods = make(map[int]NumberedFood, ActiveCount)
	m.active = m.active[:0]
}

// Consume removes the numbered food and spawns its +5 replacement. It
// returns false if the number is not currently active, which a correctly
// driven engine never triggers.
func (m *Manager) Consume(tick uint64, number int, occupied []grid.Position) (ConsumeResult, bool) {
	consumed, ok := m.foods[number]
	if !ok {
		return ConsumeResult{}, false
	}
	delete(m.foods, number)
	for i, n := range m.active {
		if n == number {
			m.active = append(m.active[:i], m.active[i+1:]...)
			break
		}
	}

	replacement := number + ActiveCount
	m.active = append(m.active, replacement)
	sort.Ints(m.active)

	taken := occupancy(occupied)
	for _, f := range m.foods {
		taken[f.Position] = struct{}{}
	}
	pos := m.place(tick, replacement, taken)
	spawned := m.newFood(replacement, pos)
	m.foods[replacement] = spawned

	return ConsumeResult{Consumed: consumed, Replacement: spawned}, true
}

// Foods returns the active foods in ascending number order. The slice is a
// copy safe for the caller to retain.
func (m *Manager) Foods() []NumberedFood {
	foods := make([]NumberedFood, 0, len(m.active))
	for _, n := range m.active {
		foods = append(foods, m.foods[n])
	}
	return foods
}

// ActiveNumbers returns a copy of the sorted active number set.
func (m *Manager) ActiveNumbers() []int {
	return append([]int(nil), m.active...)
}

// Validate checks the continuously-checkable invariant: exactly five foods,
// pairwise distinct cells, and numbers matching the active set.
func (m *Manager) Validate() error {
	if len(m.active) != ActiveCount {
		return fmt.Errorf("active set has %d numbers, want %d", len(m.active), ActiveCount)
	}
	if len(m.foods) != ActiveCount {
		return fmt.Errorf("food map has %d entries, want %d", len(m.foods), ActiveCount)
	}
	cells := make(map[grid.Position]int, ActiveCount)
	for _, n := range m.active {
		f, ok := m.foods[n]
		if !ok {
			return fmt.Errorf("active number %d has no food", n)
		}
		if other, dup := cells[f.Position]; dup {
			return fmt.Errorf("foods %d and %d share cell (%d,%d)", other, n, f.Position.X, f.Position.Y)
		}
		cells[f.Position] = n
	}
	return nil
}

func (m *Manager) newFood(number int, pos grid.Position) NumberedFood {
	return NumberedFood{
		ID:        uuid.NewString(),
		Number:    number,
		Position:  pos,
		Color:     ColorFor(number),
		Value:     ValueFor(number),
		SpawnedAt: m.clock.Now(),
	}
}

// place tries bounded random placement, then scans row-major for the first
// free cell. Exhaustion is rare on sane board sizes and logged as a warn.
func (m *Manager) place(tick uint64, number int, taken map[grid.Position]struct{}) grid.Position {
	for attempt := 0; attempt < placementAttempts; attempt++ {
		pos := grid.RandomCell(m.rng, m.cfg)
		if _, occupied := taken[pos]; !occupied {
			return pos
		}
	}
	for row := 0; row < m.cfg.Rows(); row++ {
		for col := 0; col < m.cfg.Cols(); col++ {
			pos := m.cfg.Cell(col, row)
			if _, occupied := taken[pos]; occupied {
				continue
			}
			if m.metrics != nil {
				m.metrics.Add(metricSpawnFallback, 1)
			}
			gameplay.SpawnFallback(context.Background(), m.pub, tick, gameplay.SpawnFallbackPayload{
				Number:   number,
				Attempts: placementAttempts,
				X:        pos.X,
				Y:        pos.Y,
			})
			return pos
		}
	}
	// Board completely full. Callers cap snake length well below this.
	return m.cfg.Cell(0, 0)
}

func occupancy(positions []grid.Position) map[grid.Position]struct{} {
	taken := make(map[grid.Position]struct{}, len(positions)+ActiveCount)
	for _, p := range positions {
		taken[p] = struct{}{}
	}
	return taken
}
