package input

import (
	"fmt"

	rpio "github.com/stianeikeland/go-rpio/v4"
)

// GPIOConfig maps keys to BCM pin numbers on a Raspberry Pi. The default
// pins avoid the I2C, SPI and UART pins and cover all 16 keys.
type GPIOConfig struct {
	Pins        []int `help:"BCM pin per key, in key order" default:"4,17,27,22,5,6,13,19,26,23,24,25,12,16,20,21" env:"KEYSCAN_GPIO_PINS"`
	ActiveLevel int   `help:"Pin level of a pressed key (0 = low with pull-up, 1 = high with pull-down)" default:"0" env:"KEYSCAN_GPIO_ACTIVE_LEVEL"`
}

// pin is the part of rpio.Pin the source uses.
type pin interface {
	Read() rpio.State
}

// GPIO reads key levels from Raspberry Pi pins and normalises polarity.
type GPIO struct {
	pins   []pin
	active rpio.State
	opened bool
}

// OpenGPIO maps the GPIO memory and configures one input pin per key,
// with a pull resistor toward the inactive level.
func OpenGPIO(cfg GPIOConfig, keys int) (*GPIO, error) {
	if len(cfg.Pins) < keys {
		return nil, fmt.Errorf("gpio: %d pins configured for %d keys", len(cfg.Pins), keys)
	}
	if cfg.ActiveLevel != 0 && cfg.ActiveLevel != 1 {
		return nil, fmt.Errorf("gpio: active level must be 0 or 1, got %d", cfg.ActiveLevel)
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("gpio: %w", err)
	}

	g := &GPIO{active: levelState(cfg.ActiveLevel), opened: true}
	for _, n := range cfg.Pins[:keys] {
		p := rpio.Pin(n)
		p.Input()
		if g.active == rpio.Low {
			p.PullUp()
		} else {
			p.PullDown()
		}
		g.pins = append(g.pins, p)
	}
	return g, nil
}

// newGPIO wraps already configured pins.
func newGPIO(pins []pin, activeLevel int) *GPIO {
	return &GPIO{pins: pins, active: levelState(activeLevel)}
}

func levelState(level int) rpio.State {
	if level == 0 {
		return rpio.Low
	}
	return rpio.High
}

// IsPressed implements key.Input.
func (g *GPIO) IsPressed(i int) bool {
	if i < 0 || i >= len(g.pins) {
		return false
	}
	return g.pins[i].Read() == g.active
}

// Close unmaps the GPIO memory.
func (g *GPIO) Close() error {
	if !g.opened {
		return nil
	}
	g.opened = false
	return rpio.Close()
}
