package log

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Alia5/keyscan/key"
)

// Trace writes the raw key samples of each tick in which they changed.
// A Trace with a nil writer discards everything.
type Trace struct {
	w   io.Writer
	now func() time.Time

	mu    sync.Mutex
	last  key.Mask
	begun bool
}

// NewTrace returns a trace writing to w.
func NewTrace(w io.Writer) *Trace {
	return &Trace{w: w, now: time.Now}
}

// Enabled reports whether the trace writes anywhere.
func (t *Trace) Enabled() bool { return t != nil && t.w != nil }

// Sample records the samples of one tick. It has the signature of a
// key.WithSampleHook callback.
func (t *Trace) Sample(tick uint64, samples key.Mask) {
	if !t.Enabled() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.begun && samples == t.last {
		return
	}
	t.begun = true
	t.last = samples
	_, _ = fmt.Fprintf(t.w, "%s tick %d samples 0x%04x %s\n",
		t.now().Format("2006/01/02 15:04:05.000"), tick, uint16(samples), samples)
}
