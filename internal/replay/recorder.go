package replay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"combo-snake/server/internal/sim"
	"combo-snake/server/internal/telemetry"
)

const (
	// FormatVersion is written in the header frame so readers can reject
	// files produced by an incompatible encoder.
	FormatVersion = 1

	queueCapacity = 1024

	metricFramesRecorded = "replay_frames_recorded_total"
	metricFramesDropped  = "replay_frames_dropped_total"
)

// Header is the first record of every replay file.
type Header struct {
	Version   int       `msgpack:"version"`
	SessionID string    `msgpack:"sessionId"`
	Seed      string    `msgpack:"seed"`
	TickRate  int       `msgpack:"tickRate"`
	StartedAt time.Time `msgpack:"startedAt"`
}

// Frame is one recorded tick. It is a compact projection of the snapshot,
// enough to replay the session headlessly without the live engine state.
type Frame struct {
	Tick      uint64 `msgpack:"tick"`
	State     string `msgpack:"state"`
	Direction string `msgpack:"direction"`
	Score     int    `msgpack:"score"`
	Length    int    `msgpack:"length"`
	HeadX     int    `msgpack:"headX"`
	HeadY     int    `msgpack:"headY"`
	Foods     []int  `msgpack:"foods"`
}

// FrameFromSnapshot projects a snapshot into its recorded form.
func FrameFromSnapshot(snapshot sim.Snapshot) Frame {
	frame := Frame{
		Tick:      snapshot.Tick,
		State:     string(snapshot.State),
		Direction: string(snapshot.Snake.Direction),
		Score:     snapshot.Score,
		Length:    len(snapshot.Snake.Segments),
	}
	if len(snapshot.Snake.Segments) > 0 {
		frame.HeadX = snapshot.Snake.Segments[0].X
		frame.HeadY = snapshot.Snake.Segments[0].Y
	}
	for _, f := range snapshot.Foods {
		frame.Foods = append(frame.Foods, f.Number)
	}
	return frame
}

// Recorder writes frames to disk from a background goroutine so the tick
// loop never blocks on IO. Frames are dropped, not queued unbounded, when
// the writer falls behind.
type Recorder struct {
	file    *os.File
	writer  *bufio.Writer
	frames  chan Frame
	wg      sync.WaitGroup
	logger  telemetry.Logger
	metrics telemetry.Metrics

	mu     sync.Mutex
	closed bool
	path   string
}

// NewRecorder creates the output directory if needed and opens a session
// file named replay_<sessionID>.msgpack.
func NewRecorder(dir string, header Header, logger telemetry.Logger, metrics telemetry.Metrics) (*Recorder, error) {
	if dir == "" {
		dir = "replays"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create replay dir: %w", err)
	}
	if header.SessionID == "" {
		header.SessionID = uuid.NewString()
	}
	if header.Version == 0 {
		header.Version = FormatVersion
	}
	if header.StartedAt.IsZero() {
		header.StartedAt = time.Now()
	}

	path := filepath.Join(dir, fmt.Sprintf("replay_%s.msgpack", header.SessionID))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create replay file: %w", err)
	}

	r := &Recorder{
		file:    f,
		writer:  bufio.NewWriter(f),
		frames:  make(chan Frame, queueCapacity),
		logger:  logger,
		metrics: metrics,
		path:    path,
	}
	if err := msgpack.NewEncoder(r.writer).Encode(header); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write replay header: %w", err)
	}

	r.wg.Add(1)
	go r.writeLoop()
	return r, nil
}

// Path returns the file the recorder writes to.
func (r *Recorder) Path() string {
	return r.path
}

// Record queues one frame. It never blocks; a full queue drops the frame
// to protect the tick budget.
func (r *Recorder) Record(frame Frame) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	select {
	case r.frames <- frame:
		if r.metrics != nil {
			r.metrics.Add(metricFramesRecorded, 1)
		}
	default:
		if r.metrics != nil {
			r.metrics.Add(metricFramesDropped, 1)
		}
	}
}

// Close drains the queue, flushes, and closes the file. Safe to call twice.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.frames)
	r.wg.Wait()
	if err := r.writer.Flush(); err != nil {
		r.file.Close()
		return fmt.Errorf("flush replay: %w", err)
	}
	return r.file.Close()
}

func (r *Recorder) writeLoop() {
	defer r.wg.Done()
	encoder := msgpack.NewEncoder(r.writer)
	for frame := range r.frames {
		if err := encoder.Encode(frame); err != nil {
			if r.logger != nil {
				r.logger.Printf("replay: encode frame tick=%d: %v", frame.Tick, err)
			}
		}
	}
}

// ReadFile decodes a replay file back into its header and frames.
func ReadFile(path string) (Header, []Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("open replay: %w", err)
	}
	defer f.Close()

	decoder := msgpack.NewDecoder(bufio.NewReader(f))
	var header Header
	if err := decoder.Decode(&header); err != nil {
		return Header{}, nil, fmt.Errorf("decode replay header: %w", err)
	}
	if header.Version != FormatVersion {
		return Header{}, nil, fmt.Errorf("unsupported replay version %d", header.Version)
	}

	var frames []Frame
	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return header, frames, nil
			}
			return Header{}, nil, fmt.Errorf("decode replay frame: %w", err)
		}
		frames = append(frames, frame)
	}
}
