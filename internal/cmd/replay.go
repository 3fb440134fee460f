package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Alia5/keyscan/input"
	"github.com/Alia5/keyscan/internal/log"
	"github.com/Alia5/keyscan/key"
	"github.com/Alia5/keyscan/tick"
)

// Replay runs a key script through the scanner and prints every event.
type Replay struct {
	Script string        `arg:"" name:"script" help:"Script file (.json, .yaml, .toml)" type:"existingfile"`
	Keys   key.Config    `embed:"" prefix:"key."`
	Format string        `help:"Output format" enum:"text,json" default:"text" env:"KEYSCAN_REPLAY_FORMAT"`
	Tail   time.Duration `help:"Released time appended to the script so pending presses are classified" default:"1s" env:"KEYSCAN_REPLAY_TAIL"`

	out io.Writer
}

// ReplayEvent is one line of JSON replay output.
type ReplayEvent struct {
	Tick   uint64 `json:"tick"`
	TimeMs int64  `json:"timeMs"`
	Key    *int   `json:"key,omitempty"`
	Event  string `json:"event"`
	State  string `json:"state"`
	Mask   []int  `json:"mask,omitempty"`
}

// Run is called by Kong when the replay command is executed.
func (r *Replay) Run(logger *slog.Logger, trace *log.Trace) error {
	s, err := input.LoadScript(r.Script)
	if err != nil {
		return err
	}
	if r.Tail > 0 {
		s.Segments = append(s.Segments, input.Segment{Millis: int(r.Tail / time.Millisecond)})
	}
	out := r.out
	if out == nil {
		out = os.Stdout
	}
	n, err := r.play(s, out, logger, trace)
	if err != nil {
		return err
	}
	logger.Debug("replay finished", "script", s.Name, "events", n)
	return nil
}

// play steps the script one tick at a time and writes each event as it is
// raised. The queue is large enough that nothing is dropped between ticks.
func (r *Replay) play(s *input.Script, out io.Writer, logger *slog.Logger, trace *log.Trace) (int, error) {
	if err := r.Keys.Validate(); err != nil {
		return 0, err
	}
	player, err := input.NewPlayer(s, r.Keys.Keys, r.Keys.ScanInterval)
	if err != nil {
		return 0, err
	}

	queue := key.NewQueue(r.Keys.Keys + 1)
	opts := []key.Option{key.WithLogger(logger)}
	if trace.Enabled() {
		opts = append(opts, key.WithSampleHook(trace.Sample))
	}
	scanner, err := key.New(r.Keys, player, queue, opts...)
	if err != nil {
		return 0, err
	}
	var ticks tick.Manual
	if err := scanner.Attach(&ticks); err != nil {
		return 0, err
	}

	enc := json.NewEncoder(out)
	count := 0
	for !player.Done() {
		ticks.Step()
		for {
			rec, ok := queue.Pop()
			if !ok {
				break
			}
			count++
			if err := r.write(out, enc, scanner.Tick(), rec); err != nil {
				return count, err
			}
		}
		player.Advance()
	}
	return count, nil
}

func (r *Replay) write(out io.Writer, enc *json.Encoder, t uint64, rec key.Record) error {
	ms := (time.Duration(t) * r.Keys.ScanInterval).Milliseconds()
	if r.Format == "json" {
		ev := ReplayEvent{Tick: t, TimeMs: ms, Event: rec.Event.String(), State: rec.State.String()}
		if rec.Key != key.NoKey {
			k := int(rec.Key)
			ev.Key = &k
		} else {
			ev.Mask = rec.Mask.Keys()
		}
		return enc.Encode(ev)
	}
	_, err := fmt.Fprintf(out, "%6d %7dms  %s\n", t, ms, rec)
	return err
}
