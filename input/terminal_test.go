package input

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyForByte(t *testing.T) {
	tests := []struct {
		in   byte
		want int
		ok   bool
	}{
		{'0', 0, true},
		{'9', 9, true},
		{'a', 10, true},
		{'F', 15, true},
		{'g', 0, false},
		{' ', 0, false},
	}
	for _, tt := range tests {
		k, ok := KeyForByte(tt.in)
		assert.Equal(t, tt.ok, ok, "byte %q", tt.in)
		assert.Equal(t, tt.want, k, "byte %q", tt.in)
	}
}

func TestTerminalHoldWindow(t *testing.T) {
	now := time.Unix(100, 0)
	tm := NewTerminal(strings.NewReader(""), 4, 200*time.Millisecond)
	tm.now = func() time.Time { return now }

	tm.Press('2')
	tm.Press('7') // not configured
	assert.True(t, tm.IsPressed(2))
	assert.False(t, tm.IsPressed(7))
	assert.False(t, tm.IsPressed(-1))

	now = now.Add(150 * time.Millisecond)
	tm.Press('2') // autorepeat extends the hold
	now = now.Add(150 * time.Millisecond)
	assert.True(t, tm.IsPressed(2))

	now = now.Add(60 * time.Millisecond)
	assert.False(t, tm.IsPressed(2))
}

func TestTerminalRun(t *testing.T) {
	tm := NewTerminal(strings.NewReader("01"), 4, time.Hour)
	assert.NoError(t, tm.Run())
	assert.True(t, tm.IsPressed(0))
	assert.True(t, tm.IsPressed(1))

	tm = NewTerminal(strings.NewReader("1q2"), 4, time.Hour)
	assert.ErrorIs(t, tm.Run(), ErrQuit)
	assert.True(t, tm.IsPressed(1))
	assert.False(t, tm.IsPressed(2))

	boom := errors.New("boom")
	tm = NewTerminal(io.MultiReader(strings.NewReader("3"), errReader{boom}), 4, time.Hour)
	assert.ErrorIs(t, tm.Run(), boom)
	assert.NoError(t, tm.Close())
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
