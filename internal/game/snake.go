package game

import (
	"github.com/google/uuid"

	"combo-snake/server/internal/grid"
)

// Segment is one cell of the snake body with a stable identity the
// rendering layer can key animations on.
type Segment struct {
	ID       string
	Position grid.Position
}

// Snake is the ordered segment list plus the double-buffered direction
// state. Index 0 is the head.
type Snake struct {
	cfg           grid.Config
	segments      []Segment
	direction     grid.Direction
	nextDirection grid.Direction
	growing       bool
}

// NewSnake builds a snake of the given length with its head at start and
// the body trailing opposite the movement direction.
func NewSnake(cfg grid.Config, start grid.Position, length int, direction grid.Direction) *Snake {
	if length < 1 {
		length = 1
	}
	dx, dy := direction.Delta()
	segments := make([]Segment, 0, length)
	for i := 0; i < length; i++ {
		segments = append(segments, Segment{
			ID: uuid.NewString(),
			Position: grid.Position{
				X: start.X - i*dx*cfg.GridSize,
				Y: start.Y - i*dy*cfg.GridSize,
			},
		})
	}
	return &Snake{
		cfg:           cfg,
		segments:      segments,
		direction:     direction,
		nextDirection: direction,
	}
}

// Head returns the head cell.
func (s *Snake) Head() grid.Position {
	return s.segments[0].Position
}

// Len reports the segment count.
func (s *Snake) Len() int {
	return len(s.segments)
}

// Segments returns a copy of the segment list, head first.
func (s *Snake) Segments() []Segment {
	return append([]Segment(nil), s.segments...)
}

// Positions returns every occupied cell, head first.
func (s *Snake) Positions() []grid.Position {
	positions := make([]grid.Position, len(s.segments))
	for i, segment := range s.segments {
		positions[i] = segment.Position
	}
	return positions
}

// Direction reports the applied movement direction.
func (s *Snake) Direction() grid.Direction {
	return s.direction
}

// BufferedDirection reports the direction staged for the next tick.
func (s *Snake) BufferedDirection() grid.Direction {
	return s.nextDirection
}

// Growing reports whether the last advance kept the tail.
func (s *Snake) Growing() bool {
	return s.growing
}

// SetNextDirection buffers a direction change. The exact opposite of the
// currently buffered direction is rejected, never stored; validating
// against the buffer rather than the applied direction is what prevents a
// same-tick 180° reversal under rapid repeated input.
func (s *Snake) SetNextDirection(d grid.Direction) bool {
	if !d.Valid() {
		return false
	}
	if d == s.nextDirection.Opposite() {
		return false
	}
	s.nextDirection = d
	return true
}

// ApplyBufferedDirection commits the buffered direction at tick start.
func (s *Snake) ApplyBufferedDirection() {
	s.direction = s.nextDirection
}

// NextHead computes the cell the head moves into this tick.
func (s *Snake) NextHead() grid.Position {
	return s.cfg.Step(s.Head(), s.direction)
}

// Advance commits the move: the new head is pushed and the tail removed
// unless the growth manager signalled a growing tick.
func (s *Snake) Advance(newHead grid.Position, grow bool) {
	s.segments = append([]Segment{{ID: uuid.NewString(), Position: newHead}}, s.segments...)
	if !grow {
		s.segments = s.segments[:len(s.segments)-1]
	}
	s.growing = grow
}

// TailPosition returns the tail cell, reporting false on an empty snake.
func (s *Snake) TailPosition() (grid.Position, bool) {
	if s == nil || len(s.segments) == 0 {
		return grid.Position{}, false
	}
	return s.segments[len(s.segments)-1].Position, true
}

// AppendTail appends n segments at the given cell. They unfold naturally on
// subsequent moves as the body slides forward.
func (s *Snake) AppendTail(pos grid.Position, n int) {
	for i := 0; i < n; i++ {
		s.segments = append(s.segments, Segment{ID: uuid.NewString(), Position: pos})
	}
}
