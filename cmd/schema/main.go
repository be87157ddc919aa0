package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"combo-snake/server/internal/gamestate"
	"combo-snake/server/internal/score"
	"combo-snake/server/internal/sim"
)

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write the JSON schemas into")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	for name, schema := range buildSchemas() {
		path := filepath.Join(outDir, name+".schema.json")
		if err := writeSchema(path, schema); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", path, err)
			os.Exit(1)
		}
	}
}

func buildSchemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}

	snapshot := reflector.Reflect(new(sim.Snapshot))
	snapshot.Title = "Simulation Snapshot"
	snapshot.Description = "Plain-data view of one tick as exposed to renderers and persistence layers"

	gameOver := reflector.Reflect(new(gamestate.GameOverDetails))
	gameOver.Title = "Game Over Details"
	gameOver.Description = "One-shot summary captured at the terminal lifecycle transition"

	breakdown := reflector.Reflect(new(score.Breakdown))
	breakdown.Title = "Score Breakdown Entry"
	breakdown.Description = "One entry of the capped score ledger"

	return map[string]*jsonschema.Schema{
		"snapshot":  snapshot,
		"game_over": gameOver,
		"breakdown": breakdown,
	}
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
