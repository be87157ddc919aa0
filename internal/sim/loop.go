package sim

import (
	"time"

	"combo-snake/server/internal/telemetry"
	"combo-snake/server/logging"
)

// CommandRejectQueueFull indicates the command buffer is saturated.
const CommandRejectQueueFull = "queue_full"

// LoopConfig tunes the command buffer and tick loop orchestration.
type LoopConfig struct {
	TickRate        int
	CommandCapacity int
	WarningStep     int
}

// LoopTickContext describes one scheduled advance.
type LoopTickContext struct {
	Tick  uint64
	Now   time.Time
	Delta float64
}

// LoopStepResult reports the outcome of one advance.
type LoopStepResult struct {
	Tick     uint64
	Now      time.Time
	Delta    float64
	OK       bool
	Snapshot Snapshot
	Commands []Command
	Duration time.Duration
	Budget   time.Duration
}

// LoopHooks let the driver observe loop activity without owning it.
type LoopHooks struct {
	Prepare        func(LoopTickContext)
	AfterStep      func(LoopStepResult)
	OnCommandDrop  func(reason string, cmd Command)
	OnQueueWarning func(length int)
}

// Loop coordinates command ingestion and the fixed-timestep runner. The
// engine itself holds no timers; all scheduling lives here.
type Loop struct {
	core    EngineCore
	buffer  *CommandBuffer
	hooks   LoopHooks
	config  LoopConfig
	logger  telemetry.Logger
	metrics telemetry.Metrics

	tick       uint64
	dropsTotal uint64
}

// NewLoop wraps the provided engine core with a ring-buffer queue.
func NewLoop(core EngineCore, cfg LoopConfig, hooks LoopHooks) *Loop {
	if core == nil {
		return nil
	}
	deps := core.Deps()
	return &Loop{
		core:    core,
		buffer:  NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		hooks:   hooks,
		config:  cfg,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}
}

// Enqueue stages a command for the next tick, enforcing capacity limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	if !l.buffer.Push(cmd) {
		l.dropsTotal++
		if l.hooks.OnCommandDrop != nil {
			l.hooks.OnCommandDrop(CommandRejectQueueFull, cmd)
		}
		// Log at power-of-two counts to keep drop storms readable.
		if l.logger != nil && l.dropsTotal&(l.dropsTotal-1) == 0 {
			l.logger.Printf("[backpressure] dropping command type=%s count=%d capacity=%d",
				cmd.Type, l.dropsTotal, l.buffer.Capacity())
		}
		return false, CommandRejectQueueFull
	}
	if l.config.WarningStep > 0 {
		length := l.buffer.Len()
		if length >= l.config.WarningStep && length%l.config.WarningStep == 0 && l.hooks.OnQueueWarning != nil {
			l.hooks.OnQueueWarning(length)
		}
	}
	return true, ""
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Advance executes a single simulation step using the staged commands.
func (l *Loop) Advance(ctx LoopTickContext) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	commands := l.buffer.Drain()
	if l.hooks.Prepare != nil {
		l.hooks.Prepare(ctx)
	}
	_ = l.core.Apply(commands)
	ok := l.core.Tick()
	return LoopStepResult{
		Tick:     ctx.Tick,
		Now:      ctx.Now,
		Delta:    ctx.Delta,
		OK:       ok,
		Snapshot: l.core.Snapshot(),
		Commands: commands,
	}
}

// Run drives the fixed-timestep loop until the stop channel closes or a
// step reports the simulation has ended. The terminal step is still
// delivered to AfterStep before Run returns.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	tickRate := l.config.TickRate
	if tickRate <= 0 {
		tickRate = 15
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	clock := l.core.Deps().Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	last := clock.Now()
	budget := time.Second / time.Duration(tickRate)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := clock.Now()
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = budget.Seconds()
			}
			last = now

			l.tick++
			start := clock.Now()
			result := l.Advance(LoopTickContext{Tick: l.tick, Now: now, Delta: dt})
			result.Duration = clock.Now().Sub(start)
			result.Budget = budget

			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
			if !result.OK {
				return
			}
		}
	}
}

// Ensure the loop stays wired to the engine surface it drives.
var _ Engine = (EngineCore)(nil)
