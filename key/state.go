// Package key classifies raw push-button samples into press events.
//
// One state machine runs per key index. After every key has been stepped
// for a tick, a combination detector looks at which keys are held together
// and reports chords. Results land in a Sink, normally a single-slot
// Mailbox polled by the application.
package key

import (
	"math/bits"
	"strconv"
	"strings"
)

// MaxKeys is the number of keys a Mask can describe.
const MaxKeys = 16

// NoKey is the Record.Key value for events that do not belong to a single
// key (combination press and release).
const NoKey uint8 = 0xFF

// State is the position of a key in its state machine.
type State uint8

const (
	StateIdle State = iota
	StatePressDebounce
	StatePressed
	StateLongPress1
	StateLongPress2
	StateLongPress3
	StateCombinedHold
	StateReleaseDebounce
	StateWaitSecondPress
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StatePressDebounce:   "press-debounce",
	StatePressed:         "pressed",
	StateLongPress1:      "long-press-1",
	StateLongPress2:      "long-press-2",
	StateLongPress3:      "long-press-3",
	StateCombinedHold:    "combined-hold",
	StateReleaseDebounce: "release-debounce",
	StateWaitSecondPress: "wait-second-press",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Confirmed reports whether the key is down and counted as a solo press.
// CombinedHold is not included: chord members belong to the detector.
func (s State) Confirmed() bool {
	switch s {
	case StatePressed, StateLongPress1, StateLongPress2, StateLongPress3:
		return true
	}
	return false
}

// Event is the kind of classification reported for a key or chord.
type Event uint8

const (
	EventNone Event = iota
	EventShortPress
	EventLongPress1
	EventLongPress2
	EventLongPress3
	EventDoubleClick
	EventCombination
)

var eventNames = [...]string{
	EventNone:        "none",
	EventShortPress:  "short-press",
	EventLongPress1:  "long-press-1",
	EventLongPress2:  "long-press-2",
	EventLongPress3:  "long-press-3",
	EventDoubleClick: "double-click",
	EventCombination: "combination",
}

func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return "event(" + strconv.Itoa(int(e)) + ")"
}

// Mask is a held-key bitmap: bit i set means key i.
type Mask uint16

// Has reports whether key i is in the mask.
func (m Mask) Has(i int) bool {
	return i >= 0 && i < MaxKeys && m&(1<<uint(i)) != 0
}

// Count returns the number of keys in the mask.
func (m Mask) Count() int {
	return bits.OnesCount16(uint16(m))
}

// Keys lists the key indices in ascending order.
func (m Mask) Keys() []int {
	keys := make([]int, 0, m.Count())
	for i := 0; i < MaxKeys; i++ {
		if m.Has(i) {
			keys = append(keys, i)
		}
	}
	return keys
}

func (m Mask) String() string {
	if m == 0 {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for n, i := range m.Keys() {
		if n > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(i))
	}
	sb.WriteByte('}')
	return sb.String()
}

// MaskOf builds a mask from key indices. Indices outside 0..15 are ignored.
func MaskOf(keys ...int) Mask {
	var m Mask
	for _, k := range keys {
		if k >= 0 && k < MaxKeys {
			m |= 1 << uint(k)
		}
	}
	return m
}
