package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"

	"github.com/Alia5/keyscan/input"
	"github.com/Alia5/keyscan/internal/log"
	"github.com/Alia5/keyscan/key"
)

func quietLogger() *slog.Logger {
	return log.NewLogger(slog.LevelError, &bytes.Buffer{}, &bytes.Buffer{}, nil)
}

func replayKeys() key.Config {
	cfg := key.DefaultConfig()
	cfg.Keys = 2
	return cfg
}

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

const doubleClickScript = `
segments:
  - keys: [1]
    ms: 100
  - ms: 100
  - keys: [1]
    ms: 100
`

func TestReplayText(t *testing.T) {
	var out bytes.Buffer
	r := &Replay{
		Script: writeScript(t, "dc.yaml", doubleClickScript),
		Keys:   replayKeys(),
		Format: "text",
		Tail:   time.Second,
		out:    &out,
	}
	require.NoError(t, r.Run(quietLogger(), log.NewTrace(nil)))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "key 1 short-press state=pressed")
	assert.Contains(t, lines[1], "key 1 short-press state=pressed")
	assert.Contains(t, lines[2], "key 1 double-click state=idle")
}

func TestReplayJSONChord(t *testing.T) {
	var out bytes.Buffer
	r := &Replay{
		Script: writeScript(t, "chord.json", `{"segments":[{"keys":[0,1],"ms":200},{"ms":10}]}`),
		Keys:   replayKeys(),
		Format: "json",
		Tail:   time.Second,
		out:    &out,
	}
	var trace bytes.Buffer
	require.NoError(t, r.Run(quietLogger(), log.NewTrace(&trace)))

	var events []ReplayEvent
	dec := json.NewDecoder(&out)
	for dec.More() {
		var ev ReplayEvent
		require.NoError(t, dec.Decode(&ev))
		events = append(events, ev)
	}
	require.Len(t, events, 4)

	// Confirmed on the seventh scan: one to start debouncing, six to confirm.
	assert.EqualValues(t, 7, events[2].Tick)
	assert.EqualValues(t, 70, events[2].TimeMs)
	assert.Nil(t, events[2].Key)
	assert.Equal(t, "combination", events[2].Event)
	assert.Equal(t, []int{0, 1}, events[2].Mask)
	assert.Equal(t, "combined-hold", events[2].State)

	assert.Equal(t, "combination", events[3].Event)
	assert.Equal(t, "idle", events[3].State)
	assert.Empty(t, events[3].Mask)

	assert.Contains(t, trace.String(), "samples 0x0003 {0,1}")
}

func TestReplaySubMillisecondInterval(t *testing.T) {
	var out bytes.Buffer
	keys := replayKeys()
	keys.ScanInterval = 500 * time.Microsecond
	r := &Replay{
		Script: writeScript(t, "fast.json", `{"segments":[{"keys":[0],"ms":100}]}`),
		Keys:   keys,
		Format: "json",
		Tail:   time.Second,
		out:    &out,
	}
	require.NoError(t, r.Run(quietLogger(), log.NewTrace(nil)))

	var ev ReplayEvent
	require.NoError(t, json.NewDecoder(&out).Decode(&ev))
	// 60ms debounce is 120 ticks, confirmed on tick 121.
	assert.EqualValues(t, 121, ev.Tick)
	assert.EqualValues(t, 60, ev.TimeMs)
	assert.Equal(t, "short-press", ev.Event)
}

func TestReplayRejectsScriptKeys(t *testing.T) {
	r := &Replay{
		Script: writeScript(t, "bad.toml", "[[segments]]\nkeys = [5]\nms = 10\n"),
		Keys:   replayKeys(),
		out:    &bytes.Buffer{},
	}
	assert.ErrorIs(t, r.Run(quietLogger(), log.NewTrace(nil)), input.ErrScriptFormat)
}

func TestTemplate(t *testing.T) {
	root, err := Template("run")
	require.NoError(t, err)

	keys, ok := root["key"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 16, keys["keys"])
	assert.Equal(t, "10ms", keys["scan_interval"])
	assert.Equal(t, "3s", keys["long_press_1"])
	assert.Equal(t, "term", root["source"])
	assert.EqualValues(t, 0, root["queue_size"])

	gpio, ok := root["gpio"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "4,17,27,22,5,6,13,19,26,23,24,25,12,16,20,21", gpio["pins"])

	matrix, ok := root["matrix"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "10us", matrix["settle"])

	logs, ok := root["log"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "info", logs["level"])

	root, err = Template("replay")
	require.NoError(t, err)
	assert.NotContains(t, root, "script")
	assert.Equal(t, "text", root["format"])

	_, err = Template("server")
	assert.Error(t, err)
}

func TestSnakeCase(t *testing.T) {
	for in, want := range map[string]string{
		"Keys":         "keys",
		"ScanInterval": "scan_interval",
		"LongPress3":   "long_press_3",
		"GPIO":         "gpio",
		"TraceFile":    "trace_file",
		"HTTPServer":   "http_server",
	} {
		assert.Equal(t, want, snakeCase(in), in)
	}
}

func TestConfigInitWritesFormats(t *testing.T) {
	dir := t.TempDir()

	yml := filepath.Join(dir, "run.yaml")
	require.NoError(t, (&ConfigInit{Command: "run", Format: "yaml", Output: yml}).Run())
	data, err := os.ReadFile(yml)
	require.NoError(t, err)
	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	assert.Equal(t, "term", parsed["source"])

	assert.Error(t, (&ConfigInit{Command: "run", Format: "yaml", Output: yml}).Run(), "existing file without --force")
	assert.NoError(t, (&ConfigInit{Command: "run", Format: "yaml", Output: yml, Force: true}).Run())

	tml := filepath.Join(dir, "nested", "replay.toml")
	require.NoError(t, (&ConfigInit{Command: "replay", Format: "toml", Output: tml}).Run())
	data, err = os.ReadFile(tml)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scan_interval")

	js := filepath.Join(dir, "replay.json")
	require.NoError(t, (&ConfigInit{Command: "replay", Format: "json", Output: js}).Run())
	data, err = os.ReadFile(js)
	require.NoError(t, err)
	parsed = nil
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Contains(t, parsed, "key")
}

func TestConsumeDrainsOnCancel(t *testing.T) {
	q := key.NewQueue(4)
	q.Publish(key.Record{Key: 0, Event: key.EventShortPress, State: key.StatePressed})
	q.Publish(key.Record{Key: key.NoKey, Event: key.EventCombination, State: key.StateIdle})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var got []key.Record
	consume(ctx, q.Pop, time.Hour, func(r key.Record) { got = append(got, r) })
	assert.Len(t, got, 2)
}

func TestLogEvent(t *testing.T) {
	var out bytes.Buffer
	l := log.NewLogger(slog.LevelInfo, &out, &bytes.Buffer{}, nil)
	h := logEvent(l)
	h(key.Record{Key: 3, Event: key.EventLongPress1, State: key.StateLongPress1})
	h(key.Record{Key: key.NoKey, Event: key.EventCombination, State: key.StateCombinedHold, Mask: key.MaskOf(0, 2)})

	assert.Contains(t, out.String(), "msg=key key=3 event=long-press-1 state=long-press-1")
	assert.Contains(t, out.String(), "msg=combination mask={0,2} state=combined-hold")
}

func TestRunScanLive(t *testing.T) {
	cfg := key.DefaultConfig()
	cfg.Keys = 1
	cfg.ScanInterval = time.Millisecond
	cfg.PressDebounce = 2 * time.Millisecond

	r := &Run{Keys: cfg, Poll: time.Millisecond, QueueSize: 16}
	in := key.InputFunc(func(int) bool { return true })

	var out bytes.Buffer
	logger := log.NewLogger(slog.LevelInfo, &out, &bytes.Buffer{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, r.scan(ctx, in, nil, logger, log.NewTrace(nil)))
	assert.Contains(t, out.String(), "event=short-press state=pressed")
	assert.Contains(t, out.String(), "msg=stopped")
}

func TestRunScanStopsWhenReaderQuits(t *testing.T) {
	r := &Run{Keys: replayKeys(), Poll: time.Millisecond}
	quit := func() error { return input.ErrQuit }

	done := make(chan error, 1)
	go func() {
		done <- r.scan(context.Background(), key.InputFunc(func(int) bool { return false }), quit, quietLogger(), log.NewTrace(nil))
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scan did not stop")
	}
}

func TestRunScanRejectsBadPoll(t *testing.T) {
	r := &Run{Keys: replayKeys()}
	assert.Error(t, r.scan(context.Background(), key.InputFunc(func(int) bool { return false }), nil, quietLogger(), log.NewTrace(nil)))
}
