package testing

import (
	"sync"
	"testing"

	"github.com/Alia5/keyscan/key"
)

// Samples is a key.Input whose levels the test sets directly. It is safe
// to change from one goroutine while a scanner reads from another.
type Samples struct {
	mu   sync.Mutex
	held key.Mask
}

// Set replaces the pressed keys.
func (s *Samples) Set(m key.Mask) {
	s.mu.Lock()
	s.held = m
	s.mu.Unlock()
}

// IsPressed implements key.Input.
func (s *Samples) IsPressed(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held.Has(i)
}

// Drain pops every queued record.
func Drain(q *key.Queue) []key.Record {
	var out []key.Record
	for {
		r, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, r)
	}
}

// Bench drives a scanner tick by tick from settable samples and collects
// every record it raises.
type Bench struct {
	Scanner *key.Scanner
	Queue   *key.Queue
	Samples *Samples
}

// NewBench builds a scanner for cfg with a queue large enough that no
// record is dropped between calls to Events.
func NewBench(t *testing.T, cfg key.Config) *Bench {
	t.Helper()
	b := &Bench{Queue: key.NewQueue(256), Samples: &Samples{}}
	s, err := key.New(cfg, b.Samples, b.Queue)
	if err != nil {
		t.Fatalf("scanner: %v", err)
	}
	b.Scanner = s
	return b
}

// Run scans n ticks with held as the raw samples.
func (b *Bench) Run(n int, held key.Mask) {
	b.Samples.Set(held)
	for i := 0; i < n; i++ {
		b.Scanner.Scan()
	}
}

// Events returns and clears the collected records.
func (b *Bench) Events() []key.Record {
	return Drain(b.Queue)
}
