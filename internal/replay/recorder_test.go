package replay

import (
	"testing"

	"combo-snake/server/internal/gamestate"
	"combo-snake/server/internal/sim"
)

func TestRecorderRoundTrip(t *testing.T) {
	dir := t.TempDir()

	recorder, err := NewRecorder(dir, Header{Seed: "round-trip", TickRate: 15}, nil, nil)
	if err != nil {
		t.Fatalf("expected recorder to open, got %v", err)
	}

	frames := []Frame{
		{Tick: 1, State: "playing", Direction: "right", Score: 0, Length: 3, HeadX: 420, HeadY: 300, Foods: []int{1, 2, 3, 4, 5}},
		{Tick: 2, State: "playing", Direction: "right", Score: 10, Length: 3, HeadX: 440, HeadY: 300, Foods: []int{2, 3, 4, 5, 6}},
		{Tick: 3, State: "gameover", Direction: "right", Score: 10, Length: 4, HeadX: 780, HeadY: 300, Foods: []int{2, 3, 4, 5, 6}},
	}
	for _, frame := range frames {
		recorder.Record(frame)
	}
	if err := recorder.Close(); err != nil {
		t.Fatalf("expected clean close, got %v", err)
	}

	header, decoded, err := ReadFile(recorder.Path())
	if err != nil {
		t.Fatalf("expected readable replay, got %v", err)
	}
	if header.Version != FormatVersion {
		t.Fatalf("expected version %d, got %d", FormatVersion, header.Version)
	}
	if header.Seed != "round-trip" || header.TickRate != 15 {
		t.Fatalf("expected header fields preserved, got seed=%q rate=%d", header.Seed, header.TickRate)
	}
	if header.SessionID == "" {
		t.Fatalf("expected generated session id")
	}

	if len(decoded) != len(frames) {
		t.Fatalf("expected %d frames, got %d", len(frames), len(decoded))
	}
	for i, frame := range frames {
		got := decoded[i]
		if got.Tick != frame.Tick || got.Score != frame.Score || got.State != frame.State {
			t.Fatalf("frame %d mismatch: got %+v want %+v", i, got, frame)
		}
		if len(got.Foods) != len(frame.Foods) {
			t.Fatalf("frame %d: expected %d foods, got %d", i, len(frame.Foods), len(got.Foods))
		}
		for j, n := range frame.Foods {
			if got.Foods[j] != n {
				t.Fatalf("frame %d: expected food %d at slot %d, got %d", i, n, j, got.Foods[j])
			}
		}
	}
}

func TestRecorderCloseIsIdempotent(t *testing.T) {
	recorder, err := NewRecorder(t.TempDir(), Header{}, nil, nil)
	if err != nil {
		t.Fatalf("expected recorder to open, got %v", err)
	}
	if err := recorder.Close(); err != nil {
		t.Fatalf("expected first close to succeed, got %v", err)
	}
	if err := recorder.Close(); err != nil {
		t.Fatalf("expected second close to be a no-op, got %v", err)
	}

	// Recording after close is silently ignored.
	recorder.Record(Frame{Tick: 99})
	_, frames, err := ReadFile(recorder.Path())
	if err != nil {
		t.Fatalf("expected readable replay, got %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no frames after close, got %d", len(frames))
	}
}

func TestFrameFromSnapshot(t *testing.T) {
	snapshot := sim.Snapshot{
		Tick:  12,
		State: gamestate.StatePlaying,
		Score: 30,
		Snake: sim.SnakeView{
			Segments: []sim.SegmentView{
				{ID: "head", X: 420, Y: 300},
				{ID: "tail", X: 400, Y: 300},
			},
			Direction: "right",
		},
		Foods: []sim.FoodView{
			{Number: 2, X: 100, Y: 100},
			{Number: 3, X: 200, Y: 200},
		},
	}

	frame := FrameFromSnapshot(snapshot)
	if frame.Tick != 12 || frame.Score != 30 || frame.State != "playing" {
		t.Fatalf("expected snapshot fields carried over, got %+v", frame)
	}
	if frame.Length != 2 || frame.HeadX != 420 || frame.HeadY != 300 {
		t.Fatalf("expected head and length projection, got %+v", frame)
	}
	if len(frame.Foods) != 2 || frame.Foods[0] != 2 || frame.Foods[1] != 3 {
		t.Fatalf("expected food numbers projected, got %v", frame.Foods)
	}
}

func TestReadFileRejectsUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	recorder, err := NewRecorder(dir, Header{Version: FormatVersion}, nil, nil)
	if err != nil {
		t.Fatalf("expected recorder to open, got %v", err)
	}
	recorder.Close()

	if _, _, err := ReadFile(recorder.Path()); err != nil {
		t.Fatalf("expected current version to read, got %v", err)
	}

	bad, err := NewRecorder(dir, Header{Version: 99}, nil, nil)
	if err != nil {
		t.Fatalf("expected recorder to open, got %v", err)
	}
	bad.Close()
	if _, _, err := ReadFile(bad.Path()); err == nil {
		t.Fatalf("expected version 99 to be rejected")
	}
}
