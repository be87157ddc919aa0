package main

import (
	"context"
	"flag"
	"log"

	"combo-snake/server/internal/app"
	"combo-snake/server/internal/telemetry"
)

func main() {
	var cfg app.Config
	flag.StringVar(&cfg.Seed, "seed", "", "deterministic session seed (defaults to the built-in seed)")
	flag.IntVar(&cfg.Ticks, "ticks", 0, "maximum number of ticks to simulate (0 uses SIM_TICKS or the 1000 default)")
	flag.IntVar(&cfg.TickRate, "tickrate", 15, "nominal ticks per second used for timing math")
	flag.StringVar(&cfg.RecordDir, "record", "", "directory to write a replay file into (empty disables)")
	flag.StringVar(&cfg.JSONLogPath, "json-log", "", "path for the NDJSON event log (empty disables)")
	flag.Parse()

	cfg.Logger = telemetry.WrapLogger(log.Default())
	if err := app.Run(context.Background(), cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
