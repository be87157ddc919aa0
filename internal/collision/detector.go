package collision

import (
	"combo-snake/server/internal/food"
	"combo-snake/server/internal/grid"
)

// Type tags the aggregate collision report.
type Type string

const (
	TypeNone     Type = "none"
	TypeBoundary Type = "boundary"
	TypeSelf     Type = "self"
)

// Report is the result of checking every fatal collision for one frame.
type Report struct {
	Has      bool          `json:"hasCollision"`
	Type     Type          `json:"type"`
	Position grid.Position `json:"position"`
	// SegmentIndex is the body segment hit on a self collision, -1 otherwise.
	SegmentIndex int `json:"segmentIndex"`
}

// Detector evaluates grid collision predicates. It carries only the board
// geometry, so a single instance is shared across ticks.
type Detector struct {
	cfg grid.Config
}

func NewDetector(cfg grid.Config) *Detector {
	return &Detector{cfg: cfg}
}

// WallCollision reports whether p lies outside the canvas extent.
func (d *Detector) WallCollision(p grid.Position) bool {
	return !d.cfg.Contains(p)
}

// SelfCollision reports whether head occupies the same cell as any body
// segment. Callers pass the body excluding the head itself.
func (d *Detector) SelfCollision(head grid.Position, body []grid.Position) bool {
	for _, segment := range body {
		if segment == head {
			return true
		}
	}
	return false
}

// FoodCollision reports exact-cell equality between head and one food.
func (d *Detector) FoodCollision(head grid.Position, f food.NumberedFood) bool {
	return f.Position == head
}

// FirstFoodMatch returns the first food whose cell equals head. Slice order
// defines the tie-break if the caller ever presents overlapping foods.
func (d *Detector) FirstFoodMatch(head grid.Position, foods []food.NumberedFood) (food.NumberedFood, bool) {
	for _, f := range foods {
		if f.Position == head {
			return f, true
		}
	}
	return food.NumberedFood{}, false
}

// CheckAll evaluates boundary and self collisions for the full snake.
// Boundary takes priority over self when both would fire in one frame.
func (d *Detector) CheckAll(positions []grid.Position) Report {
	report := Report{Type: TypeNone, SegmentIndex: -1}
	if len(positions) == 0 {
		return report
	}
	head := positions[0]
	if d.WallCollision(head) {
		report.Has = true
		report.Type = TypeBoundary
		report.Position = head
		return report
	}
	for i := 1; i < len(positions); i++ {
		if positions[i] == head {
			report.Has = true
			report.Type = TypeSelf
			report.Position = head
			report.SegmentIndex = i
			return report
		}
	}
	return report
}
