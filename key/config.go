package key

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidConfig is returned (wrapped) for any configuration that cannot
// be turned into a working scanner.
var ErrInvalidConfig = errors.New("invalid key configuration")

// Config describes the key bank and its timing. Durations are converted to
// tick counts once, by integer division by ScanInterval.
type Config struct {
	Keys            int           `help:"Number of keys to scan (1-16)" default:"16" env:"KEYSCAN_KEYS"`
	ScanInterval    time.Duration `help:"Period between scans" default:"10ms" env:"KEYSCAN_SCAN_INTERVAL"`
	PressDebounce   time.Duration `help:"Time a press must be stable before it is confirmed" default:"60ms" env:"KEYSCAN_PRESS_DEBOUNCE"`
	ReleaseDebounce time.Duration `help:"Time a release must be stable before it is confirmed" default:"60ms" env:"KEYSCAN_RELEASE_DEBOUNCE"`
	LongPress1      time.Duration `help:"Hold time for the first long press stage" default:"3s" env:"KEYSCAN_LONG_PRESS1"`
	LongPress2      time.Duration `help:"Hold time for the second long press stage" default:"6s" env:"KEYSCAN_LONG_PRESS2"`
	LongPress3      time.Duration `help:"Hold time for the third long press stage" default:"10s" env:"KEYSCAN_LONG_PRESS3"`
	DoubleClick     time.Duration `help:"Longest gap between release and second press for a double click" default:"300ms" env:"KEYSCAN_DOUBLE_CLICK"`
}

// DefaultConfig returns the stock timing of the key board firmware.
func DefaultConfig() Config {
	return Config{
		Keys:            16,
		ScanInterval:    10 * time.Millisecond,
		PressDebounce:   60 * time.Millisecond,
		ReleaseDebounce: 60 * time.Millisecond,
		LongPress1:      3 * time.Second,
		LongPress2:      6 * time.Second,
		LongPress3:      10 * time.Second,
		DoubleClick:     300 * time.Millisecond,
	}
}

// MaxTicks is the longest window in ticks. Counters are 32 bits wide and
// the double click window is left by exceeding it, so one tick is kept
// in reserve.
const MaxTicks = math.MaxUint32 - 1

// Timing holds the configured windows expressed in ticks.
type Timing struct {
	PressDebounce   uint32
	ReleaseDebounce uint32
	LongPress1      uint32
	LongPress2      uint32
	LongPress3      uint32
	DoubleClick     uint32
}

// Validate checks the configuration without converting it.
func (c Config) Validate() error {
	_, err := c.Ticks()
	return err
}

// Ticks validates the configuration and converts every window to ticks.
func (c Config) Ticks() (Timing, error) {
	if c.Keys < 1 || c.Keys > MaxKeys {
		return Timing{}, fmt.Errorf("%w: key count %d outside 1..%d", ErrInvalidConfig, c.Keys, MaxKeys)
	}
	if c.ScanInterval <= 0 {
		return Timing{}, fmt.Errorf("%w: scan interval must be positive, got %s", ErrInvalidConfig, c.ScanInterval)
	}

	var t Timing
	windows := []struct {
		name string
		d    time.Duration
		dst  *uint32
	}{
		{"press debounce", c.PressDebounce, &t.PressDebounce},
		{"release debounce", c.ReleaseDebounce, &t.ReleaseDebounce},
		{"long press 1", c.LongPress1, &t.LongPress1},
		{"long press 2", c.LongPress2, &t.LongPress2},
		{"long press 3", c.LongPress3, &t.LongPress3},
		{"double click", c.DoubleClick, &t.DoubleClick},
	}
	for _, w := range windows {
		if w.d < 0 {
			return Timing{}, fmt.Errorf("%w: %s must not be negative, got %s", ErrInvalidConfig, w.name, w.d)
		}
	}
	if !(c.LongPress1 < c.LongPress2 && c.LongPress2 < c.LongPress3) {
		return Timing{}, fmt.Errorf("%w: long press thresholds must increase (%s, %s, %s)",
			ErrInvalidConfig, c.LongPress1, c.LongPress2, c.LongPress3)
	}

	for _, w := range windows {
		n := w.d / c.ScanInterval
		if n > MaxTicks {
			return Timing{}, fmt.Errorf("%w: %s (%s) exceeds %d ticks at scan interval %s",
				ErrInvalidConfig, w.name, w.d, uint32(MaxTicks), c.ScanInterval)
		}
		*w.dst = uint32(n)
	}

	// Stages are matched by equality against a counter that starts at 1.
	if t.LongPress1 == 0 {
		return Timing{}, fmt.Errorf("%w: long press 1 (%s) is shorter than one scan interval (%s)",
			ErrInvalidConfig, c.LongPress1, c.ScanInterval)
	}
	if !(t.LongPress1 < t.LongPress2 && t.LongPress2 < t.LongPress3) {
		return Timing{}, fmt.Errorf("%w: long press thresholds collapse at scan interval %s (%d, %d, %d ticks)",
			ErrInvalidConfig, c.ScanInterval, t.LongPress1, t.LongPress2, t.LongPress3)
	}
	return t, nil
}
