package grid

// Position is a cell coordinate in canvas pixels. Coordinates are always
// multiples of the configured grid size.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Direction enumerates the four movement directions.
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Valid reports whether d is one of the four movement directions.
func (d Direction) Valid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return true
	}
	return false
}

// Opposite returns the 180° reversal of d.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionUp:
		return DirectionDown
	case DirectionDown:
		return DirectionUp
	case DirectionLeft:
		return DirectionRight
	case DirectionRight:
		return DirectionLeft
	}
	return d
}

// Delta returns the unit cell offset for d.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case DirectionUp:
		return 0, -1
	case DirectionDown:
		return 0, 1
	case DirectionLeft:
		return -1, 0
	case DirectionRight:
		return 1, 0
	}
	return 0, 0
}

// Config describes the fixed board geometry shared by every component.
type Config struct {
	GridSize int `json:"gridSize"`
	Width    int `json:"width"`
	Height   int `json:"height"`
}

// DefaultConfig matches the canonical 800x600 canvas with 20px cells.
func DefaultConfig() Config {
	return Config{GridSize: 20, Width: 800, Height: 600}
}

// Cols reports the number of cell columns.
func (c Config) Cols() int {
	if c.GridSize <= 0 {
		return 0
	}
	return c.Width / c.GridSize
}

// Rows reports the number of cell rows.
func (c Config) Rows() int {
	if c.GridSize <= 0 {
		return 0
	}
	return c.Height / c.GridSize
}

// Contains reports whether p lies inside [0,Width) x [0,Height).
func (c Config) Contains(p Position) bool {
	return p.X >= 0 && p.X < c.Width && p.Y >= 0 && p.Y < c.Height
}

// Cell converts column/row indices into a Position.
func (c Config) Cell(col, row int) Position {
	return Position{X: col * c.GridSize, Y: row * c.GridSize}
}

// Step returns the cell adjacent to p in direction d.
func (c Config) Step(p Position, d Direction) Position {
	dx, dy := d.Delta()
	return Position{X: p.X + dx*c.GridSize, Y: p.Y + dy*c.GridSize}
}
