package key

// combo tracks the single active chord.
type combo struct {
	active bool
}

// member reports whether m still belongs to a chord: held in CombinedHold
// or confirming its release from it.
func member(m *machine) bool {
	return m.state == StateCombinedHold ||
		(m.state == StateReleaseDebounce && m.prior == StateCombinedHold)
}

// detect runs after every machine has stepped for the tick. The membership
// it reads is written back within the same call.
func (c *combo) detect(keys []machine) (Record, bool) {
	var pressed, members, holding Mask
	for i := range keys {
		switch {
		case keys[i].state.Confirmed():
			pressed |= 1 << uint(i)
		case member(&keys[i]):
			members |= 1 << uint(i)
			if keys[i].state == StateCombinedHold {
				holding |= 1 << uint(i)
			}
		}
	}

	if c.active {
		if members == 0 {
			// Every member has finished releasing. Keys confirmed in the
			// meantime stay solo; two or more of them start a new chord on
			// the next pass.
			c.active = false
			return Record{Key: NoKey, Event: EventCombination, State: StateIdle, Mask: 0}, true
		}
		if pressed == 0 {
			return Record{}, false
		}
		// A key pressed while the chord is held joins it. Members already
		// releasing are left out of the reported mask.
		c.hold(keys, pressed)
		return Record{Key: NoKey, Event: EventCombination, State: StateCombinedHold, Mask: holding | pressed}, true
	}

	if pressed.Count() >= 2 {
		c.hold(keys, pressed)
		c.active = true
		return Record{Key: NoKey, Event: EventCombination, State: StateCombinedHold, Mask: pressed}, true
	}
	return Record{}, false
}

func (c *combo) hold(keys []machine, pressed Mask) {
	for i := range keys {
		if pressed.Has(i) {
			keys[i].enter(StateCombinedHold)
		}
	}
}
