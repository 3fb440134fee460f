// Package input provides raw key sources for the scanner: scripted
// timelines, a terminal keyboard and Raspberry Pi GPIO pins.
package input

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"

	"github.com/Alia5/keyscan/key"
)

// ErrScriptFormat is returned (wrapped) for scripts that cannot be played.
var ErrScriptFormat = errors.New("invalid key script")

// Segment holds a set of keys pressed for a duration. An empty key list is
// a pause with every key released.
type Segment struct {
	Keys   []int `json:"keys,omitempty" yaml:"keys,omitempty" toml:"keys,omitempty"`
	Millis int   `json:"ms" yaml:"ms" toml:"ms"`
}

// Script is a timeline of raw key samples.
type Script struct {
	Name     string    `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Segments []Segment `json:"segments" yaml:"segments" toml:"segments"`
}

// LoadScript reads a script, picking the decoder by file extension
// (.json, .yaml/.yml, .toml).
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	s, err := ParseScript(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// ParseScript decodes a script in the given format.
func ParseScript(data []byte, format string) (*Script, error) {
	var s Script
	var err error
	switch format {
	case "json":
		err = json.Unmarshal(data, &s)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &s)
	case "toml":
		err = toml.Unmarshal(data, &s)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrScriptFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScriptFormat, err)
	}
	return &s, nil
}

// Validate checks every segment against the number of keys.
func (s *Script) Validate(keys int) error {
	if len(s.Segments) == 0 {
		return fmt.Errorf("%w: no segments", ErrScriptFormat)
	}
	for i, seg := range s.Segments {
		if seg.Millis < 0 {
			return fmt.Errorf("%w: segment %d has negative duration", ErrScriptFormat, i)
		}
		for _, k := range seg.Keys {
			if k < 0 || k >= keys {
				return fmt.Errorf("%w: segment %d names key %d, only %d configured", ErrScriptFormat, i, k, keys)
			}
		}
	}
	return nil
}

// Player steps through a script one tick at a time and serves its samples
// as a key.Input.
type Player struct {
	masks []key.Mask
	ticks []uint32
	seg   int
	pos   uint32
	tick  uint64
}

// NewPlayer converts each segment to ticks of the given interval. Segments
// shorter than one tick are dropped.
func NewPlayer(s *Script, keys int, interval time.Duration) (*Player, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: scan interval must be positive", ErrScriptFormat)
	}
	if err := s.Validate(keys); err != nil {
		return nil, err
	}
	p := &Player{}
	for _, seg := range s.Segments {
		n := uint32(time.Duration(seg.Millis) * time.Millisecond / interval)
		if n == 0 {
			continue
		}
		p.masks = append(p.masks, key.MaskOf(seg.Keys...))
		p.ticks = append(p.ticks, n)
	}
	return p, nil
}

// IsPressed implements key.Input for the current tick.
func (p *Player) IsPressed(i int) bool {
	return p.Current().Has(i)
}

// Current returns the sample mask of the current tick.
func (p *Player) Current() key.Mask {
	if p.Done() {
		return 0
	}
	return p.masks[p.seg]
}

// Advance moves to the next tick.
func (p *Player) Advance() {
	if p.Done() {
		return
	}
	p.tick++
	p.pos++
	if p.pos >= p.ticks[p.seg] {
		p.seg++
		p.pos = 0
	}
}

// Done reports whether the timeline is exhausted.
func (p *Player) Done() bool {
	return p.seg >= len(p.masks)
}

// Tick returns the number of ticks played.
func (p *Player) Tick() uint64 { return p.tick }

// Len returns the total length of the timeline in ticks.
func (p *Player) Len() uint64 {
	var n uint64
	for _, t := range p.ticks {
		n += uint64(t)
	}
	return n
}
