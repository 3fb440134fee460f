package key_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alia5/keyscan/key"
)

func chord(st key.State, m key.Mask) key.Record {
	return key.Record{Key: key.NoKey, Event: key.EventCombination, State: st, Mask: m}
}

// Both presses, then the chord, then the chord release once both keys have
// confirmed their release.
func TestCombinationPressAndRelease(t *testing.T) {
	b := newBench(t, 2)

	b.Run(confirmScans, key.MaskOf(0, 1))
	assert.Equal(t, []key.Record{
		rec(0, key.EventShortPress, key.StatePressed),
		rec(1, key.EventShortPress, key.StatePressed),
		chord(key.StateCombinedHold, 0b11),
	}, b.Events())
	assert.Equal(t, key.StateCombinedHold, b.Scanner.State(0))
	assert.Equal(t, key.StateCombinedHold, b.Scanner.State(1))
	assert.True(t, b.Scanner.ChordActive())

	// Held well past every long press stage: nothing from the members.
	b.Run(100, key.MaskOf(0, 1))
	assert.Empty(t, b.Events())

	b.Run(2, 0)
	assert.Empty(t, b.Events(), "release is reported only after the debounce")
	b.Run(1, 0)
	assert.Equal(t, []key.Record{chord(key.StateIdle, 0)}, b.Events())
	assert.False(t, b.Scanner.ChordActive())

	// Members go straight to idle, no double click or solo classification.
	b.Run(settleScans, 0)
	assert.Empty(t, b.Events())
	for _, st := range b.Scanner.Snapshot() {
		assert.Equal(t, key.StateIdle, st.State)
		assert.Zero(t, st.Clicks)
		assert.Zero(t, st.Held)
	}
}

func TestCombinationMailboxKeepsLatest(t *testing.T) {
	mb := key.NewMailbox()
	var samples key.Mask
	s, err := key.New(testConfig(2), key.InputFunc(func(i int) bool { return samples.Has(i) }), mb)
	if !assert.NoError(t, err) {
		return
	}

	samples = key.MaskOf(0, 1)
	for i := 0; i < confirmScans; i++ {
		s.Scan()
	}
	r, ok := mb.Take()
	assert.True(t, ok)
	assert.Equal(t, chord(key.StateCombinedHold, 0b11), r)

	samples = 0
	for i := 0; i < 3; i++ {
		s.Scan()
	}
	r, ok = mb.Take()
	assert.True(t, ok)
	assert.Equal(t, chord(key.StateIdle, 0), r)
}

func TestCombinationStaggeredPress(t *testing.T) {
	b := newBench(t, 2)

	b.Run(2, key.MaskOf(0))
	b.Run(2, key.MaskOf(0, 1))
	assert.Equal(t, []key.Record{rec(0, key.EventShortPress, key.StatePressed)}, b.Events())

	b.Run(2, key.MaskOf(0, 1))
	assert.Equal(t, []key.Record{
		rec(1, key.EventShortPress, key.StatePressed),
		chord(key.StateCombinedHold, 0b11),
	}, b.Events())
}

func TestCombinationShrinkingIsSilent(t *testing.T) {
	b := newBench(t, 3)

	b.Run(confirmScans, key.MaskOf(0, 1, 2))
	assert.Equal(t, chord(key.StateCombinedHold, 0b111), b.Events()[3])

	b.Run(20, key.MaskOf(1, 2))
	assert.Empty(t, b.Events())
	assert.Equal(t, key.StateIdle, b.Scanner.State(0))

	b.Run(20, key.MaskOf(2))
	assert.Empty(t, b.Events())

	b.Run(3, 0)
	assert.Equal(t, []key.Record{chord(key.StateIdle, 0)}, b.Events())
}

func TestCombinationLateJoiner(t *testing.T) {
	b := newBench(t, 3)

	b.Run(confirmScans, key.MaskOf(0, 1))
	b.Events()

	b.Run(confirmScans, key.MaskOf(0, 1, 2))
	assert.Equal(t, []key.Record{
		rec(2, key.EventShortPress, key.StatePressed),
		chord(key.StateCombinedHold, 0b111),
	}, b.Events())
	assert.Equal(t, key.StateCombinedHold, b.Scanner.State(2))

	b.Run(50, key.MaskOf(0, 1, 2))
	assert.Empty(t, b.Events(), "joined key raises no long press")
}

func TestSingleKeyIsNotACombination(t *testing.T) {
	b := newBench(t, 4)

	b.Run(confirmScans+10, key.MaskOf(3))
	assert.Equal(t, []key.Record{
		rec(3, key.EventShortPress, key.StatePressed),
		rec(3, key.EventLongPress1, key.StateLongPress1),
	}, b.Events())
	assert.False(t, b.Scanner.ChordActive())
	assert.Equal(t, key.MaskOf(3), b.Scanner.Held())
}

func TestCombinationReleaseBounce(t *testing.T) {
	b := newBench(t, 2)

	b.Run(confirmScans, key.MaskOf(0, 1))
	b.Events()

	// One released sample then pressed again: members resume the hold.
	b.Run(1, 0)
	b.Run(1, key.MaskOf(0, 1))
	assert.Empty(t, b.Events())
	assert.Equal(t, key.StateCombinedHold, b.Scanner.State(0))
	assert.Equal(t, key.StateCombinedHold, b.Scanner.State(1))
	assert.True(t, b.Scanner.ChordActive())
}

func TestCombinationJoinSkipsReleasingMember(t *testing.T) {
	b := newBench(t, 3)

	b.Run(confirmScans, key.MaskOf(0, 1))
	b.Events()

	// Key 2 starts debouncing, then key 0 lets go one scan before key 2
	// confirms.
	b.Run(confirmScans-2, key.MaskOf(0, 1, 2))
	b.Run(1, key.MaskOf(1, 2))
	b.Run(1, key.MaskOf(1, 2))
	assert.Equal(t, key.StateReleaseDebounce, b.Scanner.State(0))
	assert.Equal(t, []key.Record{
		rec(2, key.EventShortPress, key.StatePressed),
		chord(key.StateCombinedHold, key.MaskOf(1, 2)),
	}, b.Events())

	b.Run(1, key.MaskOf(1, 2))
	assert.Equal(t, key.StateIdle, b.Scanner.State(0))
	assert.Empty(t, b.Events())
	assert.True(t, b.Scanner.ChordActive())
}
