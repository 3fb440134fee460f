package input

import (
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/term"

	"github.com/Alia5/keyscan/key"
)

// ErrQuit is returned by Terminal.Run when the user asked to stop.
var ErrQuit = errors.New("quit requested")

// Terminal turns keystrokes into key samples. A terminal only reports key
// presses, so each keystroke holds its key down for a hold window;
// autorepeat of a held key keeps extending it.
//
// Keys 0-9 and a-f select key 0..15. q, Esc and Ctrl-C quit.
type Terminal struct {
	r    io.Reader
	keys int
	hold time.Duration
	now  func() time.Time

	until [key.MaxKeys]atomic.Int64

	closeOnce sync.Once
	restore   func() error
}

// NewTerminal reads keystrokes from r. r is used as is; see OpenTerminal
// for a raw-mode stdin.
func NewTerminal(r io.Reader, keys int, hold time.Duration) *Terminal {
	return &Terminal{r: r, keys: keys, hold: hold, now: time.Now}
}

// OpenTerminal puts stdin into raw mode and reads keystrokes from it.
// Close restores the terminal.
func OpenTerminal(keys int, hold time.Duration) (*Terminal, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	t := NewTerminal(os.Stdin, keys, hold)
	t.restore = func() error { return term.Restore(fd, state) }
	return t, nil
}

// KeyForByte maps a keystroke to a key index.
func KeyForByte(b byte) (int, bool) {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0'), true
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10, true
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10, true
	}
	return 0, false
}

// Run reads keystrokes until EOF, a read error or a quit key.
func (t *Terminal) Run() error {
	buf := make([]byte, 32)
	for {
		n, err := t.r.Read(buf)
		for _, b := range buf[:n] {
			if b == 'q' || b == 0x03 || b == 0x1b {
				return ErrQuit
			}
			t.Press(b)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Press registers one keystroke. Bytes that map to no configured key are
// ignored.
func (t *Terminal) Press(b byte) {
	k, ok := KeyForByte(b)
	if !ok || k >= t.keys {
		return
	}
	t.until[k].Store(t.now().Add(t.hold).UnixNano())
}

// IsPressed implements key.Input.
func (t *Terminal) IsPressed(i int) bool {
	if i < 0 || i >= key.MaxKeys {
		return false
	}
	return t.now().UnixNano() < t.until[i].Load()
}

// Close restores the terminal mode if OpenTerminal changed it.
func (t *Terminal) Close() error {
	var err error
	t.closeOnce.Do(func() {
		if t.restore != nil {
			err = t.restore()
		}
	})
	return err
}
