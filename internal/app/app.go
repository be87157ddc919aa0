package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"combo-snake/server/internal/game"
	"combo-snake/server/internal/grid"
	"combo-snake/server/internal/replay"
	"combo-snake/server/internal/sim"
	"combo-snake/server/internal/telemetry"
	"combo-snake/server/logging"
	loggingSinks "combo-snake/server/logging/sinks"
)

// Config carries the headless run parameters.
type Config struct {
	Logger   telemetry.Logger
	Seed     string
	Ticks    int
	TickRate int
	// RecordDir enables replay recording when non-empty.
	RecordDir string
	// JSONLogPath enables the NDJSON event sink when non-empty.
	JSONLogPath string
}

// Run wires the logging router, metrics, engine, and loop, then drives the
// simulation headlessly with an autopilot until the tick budget runs out or
// the session ends.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}
	if cfg.Seed == "" {
		cfg.Seed = os.Getenv("SIM_SEED")
	}
	if cfg.Seed == "" {
		cfg.Seed = grid.DefaultSeed
	}
	if raw := os.Getenv("SIM_TICKS"); raw != "" && cfg.Ticks <= 0 {
		if value, err := strconv.Atoi(raw); err == nil {
			cfg.Ticks = value
		} else {
			telemetryLogger.Printf("invalid SIM_TICKS=%q: %v", raw, err)
		}
	}
	if cfg.Ticks <= 0 {
		cfg.Ticks = 1000
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 15
	}

	logConfig := logging.DefaultConfig()
	namedSinks := []logging.NamedSink{
		{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console)},
	}
	var jsonFile *os.File
	if cfg.JSONLogPath != "" {
		f, err := os.Create(cfg.JSONLogPath)
		if err != nil {
			return fmt.Errorf("open json log: %w", err)
		}
		jsonFile = f
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSON(f, time.Second),
		})
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, namedSinks)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("close logging router: %v", cerr)
		}
		if jsonFile != nil {
			jsonFile.Close()
		}
	}()

	metrics := logging.NewMetrics()
	deps := sim.Deps{
		Logger:    telemetryLogger,
		Metrics:   telemetry.WrapMetrics(metrics),
		Clock:     logging.SystemClock{},
		RNG:       grid.NewDeterministicRNG(cfg.Seed, "food"),
		Publisher: router,
	}

	gameCfg := game.DefaultConfig()
	engine := game.NewEngine(gameCfg, deps)
	loop := sim.NewLoop(engine, sim.LoopConfig{
		TickRate:        cfg.TickRate,
		CommandCapacity: 64,
		WarningStep:     32,
	}, sim.LoopHooks{})

	var recorder *replay.Recorder
	if cfg.RecordDir != "" {
		recorder, err = replay.NewRecorder(cfg.RecordDir, replay.Header{
			Seed:     cfg.Seed,
			TickRate: cfg.TickRate,
		}, telemetryLogger, deps.Metrics)
		if err != nil {
			return fmt.Errorf("open replay recorder: %w", err)
		}
		defer func() {
			if cerr := recorder.Close(); cerr != nil {
				telemetryLogger.Printf("close replay recorder: %v", cerr)
			}
		}()
		telemetryLogger.Printf("recording replay to %s", recorder.Path())
	}

	if result := engine.Start(); !result.OK {
		return fmt.Errorf("start session: %w", result.Err)
	}

	pilot := newAutopilot(gameCfg.Grid)
	now := deps.Clock.Now()
	delta := 1.0 / float64(cfg.TickRate)

	var last sim.LoopStepResult
	for tick := 1; tick <= cfg.Ticks; tick++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cmd, ok := pilot.next(engine.Snapshot(), uint64(tick), now); ok {
			loop.Enqueue(cmd)
		}
		last = loop.Advance(sim.LoopTickContext{Tick: uint64(tick), Now: now, Delta: delta})
		if recorder != nil {
			recorder.Record(replay.FrameFromSnapshot(last.Snapshot))
		}
		if !last.OK {
			break
		}
		now = now.Add(time.Second / time.Duration(cfg.TickRate))
	}

	reportRun(telemetryLogger, last.Snapshot, metrics)
	return nil
}

func reportRun(logger telemetry.Logger, snapshot sim.Snapshot, metrics *logging.Metrics) {
	totals := snapshot.Totals
	logger.Printf("run finished state=%s tick=%d score=%d combos=%d avgComboLen=%.2f",
		snapshot.State, snapshot.Tick, totals.Score, totals.TotalCombos, totals.AverageComboLength)
	if over := snapshot.GameOver; over != nil {
		logger.Printf("game over cause=%s at=(%d,%d) foodEaten=%d maxLength=%d duration=%s",
			over.Cause, over.CollisionPosition.X, over.CollisionPosition.Y,
			over.Stats.FoodEaten, over.Stats.MaxLength, over.Stats.Duration)
	}
	counters := metrics.SnapshotCounters()
	keys := make([]string, 0, len(counters))
	for key := range counters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		logger.Printf("metric %s=%d", key, counters[key])
	}
}

// autopilot greedily steers toward the lowest-numbered food while refusing
// moves into walls or the body. It exists so headless runs exercise the
// whole consumption and combo path, not to play well.
type autopilot struct {
	cfg grid.Config
}

func newAutopilot(cfg grid.Config) *autopilot {
	return &autopilot{cfg: cfg}
}

func (a *autopilot) next(snapshot sim.Snapshot, tick uint64, now time.Time) (sim.Command, bool) {
	if len(snapshot.Snake.Segments) == 0 || len(snapshot.Foods) == 0 {
		return sim.Command{}, false
	}
	head := grid.Position{X: snapshot.Snake.Segments[0].X, Y: snapshot.Snake.Segments[0].Y}
	target := grid.Position{X: snapshot.Foods[0].X, Y: snapshot.Foods[0].Y}

	body := make(map[grid.Position]struct{}, len(snapshot.Snake.Segments))
	for _, segment := range snapshot.Snake.Segments {
		body[grid.Position{X: segment.X, Y: segment.Y}] = struct{}{}
	}

	current := snapshot.Snake.NextDirection
	best := current
	bestDistance := -1
	for _, d := range []grid.Direction{grid.DirectionUp, grid.DirectionDown, grid.DirectionLeft, grid.DirectionRight} {
		if d == current.Opposite() {
			continue
		}
		next := a.cfg.Step(head, d)
		if !a.cfg.Contains(next) {
			continue
		}
		if _, hit := body[next]; hit {
			continue
		}
		distance := abs(next.X-target.X) + abs(next.Y-target.Y)
		if bestDistance < 0 || distance < bestDistance {
			best = d
			bestDistance = distance
		}
	}
	if bestDistance < 0 || best == current {
		return sim.Command{}, false
	}
	return sim.Command{
		OriginTick: tick,
		Type:       sim.CommandChangeDirection,
		IssuedAt:   now,
		Direction:  &sim.DirectionCommand{Direction: best},
	}, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
