package sim

import (
	"testing"

	"combo-snake/server/internal/grid"
	"combo-snake/server/internal/telemetry"
	"combo-snake/server/logging"
)

func directionCommand(tick uint64, d grid.Direction) Command {
	return Command{
		OriginTick: tick,
		Type:       CommandChangeDirection,
		Direction:  &DirectionCommand{Direction: d},
	}
}

func TestCommandBufferFIFO(t *testing.T) {
	b := NewCommandBuffer(4, nil)

	for tick := uint64(1); tick <= 3; tick++ {
		if !b.Push(directionCommand(tick, grid.DirectionUp)) {
			t.Fatalf("expected push %d to succeed", tick)
		}
	}
	if b.Len() != 3 {
		t.Fatalf("expected 3 staged commands, got %d", b.Len())
	}

	drained := b.Drain()
	if len(drained) != 3 {
		t.Fatalf("expected 3 drained commands, got %d", len(drained))
	}
	for i, cmd := range drained {
		if cmd.OriginTick != uint64(i+1) {
			t.Fatalf("expected FIFO order, got tick %d at index %d", cmd.OriginTick, i)
		}
	}
	if b.Len() != 0 {
		t.Fatalf("expected empty buffer after drain, got %d", b.Len())
	}
	if b.Drain() != nil {
		t.Fatalf("expected nil drain on empty buffer")
	}
}

func TestCommandBufferOverflowCountsMetric(t *testing.T) {
	metrics := logging.NewMetrics()
	b := NewCommandBuffer(2, telemetry.WrapMetrics(metrics))

	b.Push(directionCommand(1, grid.DirectionUp))
	b.Push(directionCommand(2, grid.DirectionLeft))
	if b.Push(directionCommand(3, grid.DirectionDown)) {
		t.Fatalf("expected push beyond capacity to fail")
	}

	if got := metrics.CounterValue("sim_command_buffer_overflow_total"); got != 1 {
		t.Fatalf("expected 1 overflow counted, got %d", got)
	}
	if got := metrics.GaugeValue("sim_command_buffer_occupancy"); got != 2 {
		t.Fatalf("expected occupancy gauge 2, got %d", got)
	}

	b.Drain()
	if got := metrics.GaugeValue("sim_command_buffer_occupancy"); got != 0 {
		t.Fatalf("expected occupancy gauge reset, got %d", got)
	}
}

func TestCommandBufferReusesSlotsAfterDrain(t *testing.T) {
	b := NewCommandBuffer(2, nil)

	for round := uint64(0); round < 3; round++ {
		b.Push(directionCommand(round*2+1, grid.DirectionUp))
		b.Push(directionCommand(round*2+2, grid.DirectionDown))
		drained := b.Drain()
		if len(drained) != 2 {
			t.Fatalf("round %d: expected 2 commands, got %d", round, len(drained))
		}
		if drained[0].OriginTick != round*2+1 {
			t.Fatalf("round %d: expected tick %d first, got %d",
				round, round*2+1, drained[0].OriginTick)
		}
	}
}

func TestNilCommandBufferIsSafe(t *testing.T) {
	var b *CommandBuffer
	if b.Push(directionCommand(1, grid.DirectionUp)) {
		t.Fatalf("expected push on nil buffer to fail")
	}
	if b.Drain() != nil || b.Len() != 0 || b.Capacity() != 0 {
		t.Fatalf("expected nil buffer to report empty")
	}
}
