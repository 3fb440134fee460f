package key

import (
	"fmt"
	"sync"
)

// Record is one classified event.
type Record struct {
	Key   uint8 // key index, or NoKey for combination events
	Event Event
	State State // state of the key (or chord) right after the event
	Mask  Mask  // keys held in the chord; combination events only
}

// EmptyRecord is the "no event" value a cleared record holds.
var EmptyRecord = Record{Key: NoKey, Event: EventNone, State: StateIdle}

// Empty reports whether r carries no event.
func (r Record) Empty() bool {
	return r.Event == EventNone
}

func (r Record) String() string {
	if r.Key == NoKey {
		return fmt.Sprintf("%s mask=%s state=%s", r.Event, r.Mask, r.State)
	}
	return fmt.Sprintf("key %d %s state=%s", r.Key, r.Event, r.State)
}

// Sink receives records from a scan pass. Publish is called from the
// scanning goroutine and must not block.
type Sink interface {
	Publish(Record)
}

// Mailbox is a single-slot, last-write-wins event record. A consumer that
// polls slower than events arrive loses the older ones.
type Mailbox struct {
	mu  sync.Mutex
	rec Record
}

// NewMailbox returns a cleared mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{rec: EmptyRecord}
}

// Publish overwrites the slot.
func (m *Mailbox) Publish(r Record) {
	m.mu.Lock()
	m.rec = r
	m.mu.Unlock()
}

// Poll returns the current record without clearing it. ok is false when
// the slot holds no event.
func (m *Mailbox) Poll() (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec, !m.rec.Empty()
}

// Take returns the current record and clears the slot.
func (m *Mailbox) Take() (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.rec
	m.rec = EmptyRecord
	return r, !r.Empty()
}

// Clear resets the slot to EmptyRecord.
func (m *Mailbox) Clear() {
	m.mu.Lock()
	m.rec = EmptyRecord
	m.mu.Unlock()
}

// Queue is a bounded FIFO of records. When full, the oldest record is
// overwritten and counted as dropped. Use it instead of a Mailbox when the
// consumer must not miss closely spaced events.
type Queue struct {
	mu      sync.Mutex
	buf     []Record
	head    int
	n       int
	dropped uint64
}

// NewQueue returns a queue holding up to size records. size < 1 is
// treated as 1.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{buf: make([]Record, size)}
}

// Publish appends r, overwriting the oldest record when the queue is full.
func (q *Queue) Publish(r Record) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == len(q.buf) {
		q.buf[q.head] = r
		q.head = (q.head + 1) % len(q.buf)
		q.dropped++
		return
	}
	q.buf[(q.head+q.n)%len(q.buf)] = r
	q.n++
}

// Pop removes and returns the oldest record.
func (q *Queue) Pop() (Record, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == 0 {
		return EmptyRecord, false
	}
	r := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return r, true
}

// Len returns the number of queued records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Dropped returns how many records were overwritten before being popped.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Clear discards every queued record. The drop counter is kept.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.head = 0
	q.n = 0
	q.mu.Unlock()
}
