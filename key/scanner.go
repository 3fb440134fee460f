package key

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrAlreadyAttached is returned when a scanner is handed to a second tick
// source.
var ErrAlreadyAttached = errors.New("scanner already attached to a tick source")

// Input reports the raw, undebounced level of a key with polarity already
// normalised: true means physically pressed. It is called once per key per
// scan and must not block.
type Input interface {
	IsPressed(key int) bool
}

// Latcher is an Input that reads every key at once. Latch is called at the
// start of each scan, before any IsPressed of that scan.
type Latcher interface {
	Input
	Latch()
}

// InputFunc adapts a plain function to Input.
type InputFunc func(key int) bool

func (f InputFunc) IsPressed(key int) bool { return f(key) }

// TickSource is a periodic timer facility. Register hands it the scan entry
// point once; the facility then calls it at the configured interval.
type TickSource interface {
	Register(scan func())
}

// Status is a read-only copy of one key's record.
type Status struct {
	State  State
	Prior  State
	Idle   uint32
	Held   uint32
	Clicks uint32
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger logs every published record at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSampleHook calls fn once per scan with the tick number and the raw
// samples read during it.
func WithSampleHook(fn func(tick uint64, samples Mask)) Option {
	return func(s *Scanner) { s.sampleHook = fn }
}

// Scanner owns the per-key machines and the combination detector.
type Scanner struct {
	mu       sync.Mutex
	cfg      Config
	timing   Timing
	input    Input
	sink     Sink
	keys     []machine
	combo    combo
	tick     uint64
	attached bool

	logger     *slog.Logger
	sampleHook func(uint64, Mask)
}

// New validates cfg, converts its windows to ticks and returns a scanner
// with every key idle. The sink is cleared if it supports it.
func New(cfg Config, in Input, sink Sink, opts ...Option) (*Scanner, error) {
	timing, err := cfg.Ticks()
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, fmt.Errorf("%w: nil input", ErrInvalidConfig)
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: nil sink", ErrInvalidConfig)
	}
	s := &Scanner{
		cfg:    cfg,
		timing: timing,
		input:  in,
		sink:   sink,
		keys:   make([]machine, cfg.Keys),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.Reset()
	return s, nil
}

// Reset puts every key back to idle and clears the sink.
func (s *Scanner) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.keys {
		s.keys[i].reset()
	}
	s.combo = combo{}
	s.tick = 0
	if c, ok := s.sink.(interface{ Clear() }); ok {
		c.Clear()
	}
}

// Attach registers Scan with the tick source. It may be called once.
func (s *Scanner) Attach(src TickSource) error {
	s.mu.Lock()
	if s.attached {
		s.mu.Unlock()
		return ErrAlreadyAttached
	}
	s.attached = true
	s.mu.Unlock()
	src.Register(s.Scan)
	return nil
}

// Scan runs one tick: every key machine in index order, then the
// combination detector.
func (s *Scanner) Scan() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++
	if l, ok := s.input.(Latcher); ok {
		l.Latch()
	}
	var samples Mask
	for i := range s.keys {
		pressed := s.input.IsPressed(i)
		if pressed {
			samples |= 1 << uint(i)
		}
		ev, st := s.keys[i].step(pressed, &s.timing)
		if ev != EventNone {
			s.publish(Record{Key: uint8(i), Event: ev, State: st})
		}
	}
	if rec, ok := s.combo.detect(s.keys); ok {
		s.publish(rec)
	}
	if s.sampleHook != nil {
		s.sampleHook(s.tick, samples)
	}
}

func (s *Scanner) publish(r Record) {
	s.sink.Publish(r)
	if s.logger.Enabled(context.Background(), slog.LevelDebug) {
		s.logger.Debug("key event", "tick", s.tick, "key", r.Key, "event", r.Event, "state", r.State, "mask", r.Mask)
	}
}

// Config returns the configuration the scanner was built with.
func (s *Scanner) Config() Config { return s.cfg }

// Timing returns the configured windows in ticks.
func (s *Scanner) Timing() Timing { return s.timing }

// Tick returns the number of scans run since the last reset.
func (s *Scanner) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// State returns the current state of key i. Out of range keys read idle.
func (s *Scanner) State(i int) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.keys) {
		return StateIdle
	}
	return s.keys[i].state
}

// Status returns a copy of key i's record.
func (s *Scanner) Status(i int) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.keys) {
		return Status{}
	}
	m := s.keys[i]
	return Status{State: m.state, Prior: m.prior, Idle: m.idle, Held: m.held, Clicks: m.clicks}
}

// Snapshot returns a copy of every key's record.
func (s *Scanner) Snapshot() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, len(s.keys))
	for i, m := range s.keys {
		out[i] = Status{State: m.state, Prior: m.prior, Idle: m.idle, Held: m.held, Clicks: m.clicks}
	}
	return out
}

// Held returns the keys currently confirmed pressed or held in a chord.
func (s *Scanner) Held() Mask {
	s.mu.Lock()
	defer s.mu.Unlock()
	var m Mask
	for i := range s.keys {
		if s.keys[i].state.Confirmed() || s.keys[i].state == StateCombinedHold {
			m |= 1 << uint(i)
		}
	}
	return m
}

// ChordActive reports whether a combination is being held.
func (s *Scanner) ChordActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.combo.active
}
