package key

// machine is the per-key record. Only its own step and the combination
// detector write to it.
type machine struct {
	state  State
	prior  State  // state the current one was entered from
	idle   uint32 // ticks in the current debounce or wait window
	held   uint32 // ticks since the press was confirmed
	clicks uint32 // confirmed presses since the last return to idle
}

func (m *machine) reset() {
	m.state = StateIdle
	m.prior = StateIdle
	m.idle = 0
	m.held = 0
	m.clicks = 0
}

func (m *machine) enter(s State) {
	m.prior = m.state
	m.state = s
}

// toIdle clears every counter; held and clicks are only zeroed here.
func (m *machine) toIdle() {
	m.idle = 0
	m.held = 0
	m.clicks = 0
	m.enter(StateIdle)
}

// step advances the machine by one tick and returns the event it raised,
// if any.
func (m *machine) step(pressed bool, t *Timing) (Event, State) {
	switch m.state {
	case StateIdle:
		if pressed {
			m.enter(StatePressDebounce)
			m.idle = 0
		}

	case StatePressDebounce:
		if !pressed {
			// Noise: resume whatever was interrupted.
			m.state = m.prior
			m.idle = 0
			return EventNone, m.state
		}
		m.idle++
		if m.idle >= t.PressDebounce {
			m.idle = 0
			m.held = 0
			m.clicks++
			m.enter(StatePressed)
			return EventShortPress, StatePressed
		}

	case StatePressed:
		if !pressed {
			m.release()
			return EventNone, m.state
		}
		m.held++
		if m.clicks == 1 && m.held == t.LongPress1 {
			m.enter(StateLongPress1)
			return EventLongPress1, StateLongPress1
		}

	case StateLongPress1:
		if !pressed {
			m.release()
			return EventNone, m.state
		}
		m.held++
		if m.held == t.LongPress2 {
			m.enter(StateLongPress2)
			return EventLongPress2, StateLongPress2
		}

	case StateLongPress2:
		if !pressed {
			m.release()
			return EventNone, m.state
		}
		m.held++
		if m.held == t.LongPress3 {
			m.enter(StateLongPress3)
			return EventLongPress3, StateLongPress3
		}

	case StateLongPress3, StateCombinedHold:
		if !pressed {
			m.release()
		}

	case StateReleaseDebounce:
		if pressed {
			m.state = m.prior
			m.idle = 0
			return EventNone, m.state
		}
		m.idle++
		if m.idle >= t.ReleaseDebounce {
			if m.prior == StateCombinedHold {
				m.toIdle()
				return EventNone, m.state
			}
			m.enter(StateWaitSecondPress)
			m.idle = 0
		}

	case StateWaitSecondPress:
		if pressed {
			m.enter(StatePressDebounce)
			m.idle = 0
			return EventNone, m.state
		}
		m.idle++
		if m.idle > t.DoubleClick {
			ev := m.classify(t)
			m.toIdle()
			return ev, StateIdle
		}
	}
	return EventNone, m.state
}

func (m *machine) release() {
	m.enter(StateReleaseDebounce)
	m.idle = 0
}

// classify names a finished press sequence from its click count and the
// hold time of its last press.
func (m *machine) classify(t *Timing) Event {
	switch {
	case m.clicks >= 2:
		return EventDoubleClick
	case m.clicks == 1:
		switch {
		case m.held < t.LongPress1:
			return EventShortPress
		case m.held < t.LongPress2:
			return EventLongPress1
		case m.held < t.LongPress3:
			return EventLongPress2
		default:
			return EventLongPress3
		}
	}
	return EventNone
}
