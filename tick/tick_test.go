package tick_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keyscan/key"
	"github.com/Alia5/keyscan/tick"
)

func TestTimerRunsUntilCancelled(t *testing.T) {
	tm := tick.New(time.Millisecond, nil)
	var calls atomic.Int64
	tm.Register(func() { calls.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tm.Run(ctx) }()

	assert.Eventually(t, func() bool { return calls.Load() >= 5 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timer did not stop")
	}
	assert.EqualValues(t, calls.Load(), tm.Ticks())
}

func TestTimerWithoutCallback(t *testing.T) {
	tm := tick.New(time.Millisecond, nil)
	assert.ErrorIs(t, tm.Run(context.Background()), tick.ErrNoCallback)
}

func TestTimerRejectsZeroInterval(t *testing.T) {
	tm := tick.New(0, nil)
	tm.Register(func() {})
	assert.Error(t, tm.Run(context.Background()))
}

func TestManual(t *testing.T) {
	var m tick.Manual
	assert.False(t, m.Step())

	n := 0
	m.Register(func() { n++ })
	m.StepN(7)
	assert.Equal(t, 7, n)
	assert.EqualValues(t, 7, m.Ticks())
}

func TestDrivesScanner(t *testing.T) {
	mb := key.NewMailbox()
	cfg := key.DefaultConfig()
	cfg.Keys = 1
	cfg.ScanInterval = time.Millisecond
	s, err := key.New(cfg, key.InputFunc(func(int) bool { return true }), mb)
	require.NoError(t, err)

	var m tick.Manual
	require.NoError(t, s.Attach(&m))

	tm, err := cfg.Ticks()
	require.NoError(t, err)
	m.StepN(int(tm.PressDebounce) + 1)

	r, ok := mb.Poll()
	require.True(t, ok)
	assert.Equal(t, key.EventShortPress, r.Event)
}
