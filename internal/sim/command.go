package sim

import (
	"time"

	"combo-snake/server/internal/grid"
)

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandChangeDirection CommandType = "ChangeDirection"
	CommandPause           CommandType = "Pause"
	CommandResume          CommandType = "Resume"
	CommandRestart         CommandType = "Restart"
)

// DirectionCommand carries the resolved directional intent from the input
// layer. Decoding keys or gestures into a direction happens upstream.
type DirectionCommand struct {
	Direction grid.Direction `json:"direction"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64            `json:"originTick"`
	Type       CommandType       `json:"type"`
	IssuedAt   time.Time         `json:"issuedAt"`
	Direction  *DirectionCommand `json:"direction,omitempty"`
}
