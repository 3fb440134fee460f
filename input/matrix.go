package input

import (
	"fmt"
	"time"

	rpio "github.com/stianeikeland/go-rpio/v4"

	"github.com/Alia5/keyscan/key"
)

// MatrixConfig describes a key matrix: rows are driven low one at a time
// and the columns, pulled up, read low where a key closes the circuit.
type MatrixConfig struct {
	Rows   []int         `help:"BCM pins driving the matrix rows" default:"5,6,13,19" env:"KEYSCAN_MATRIX_ROWS"`
	Cols   []int         `help:"BCM pins reading the matrix columns" default:"12,16,20,21" env:"KEYSCAN_MATRIX_COLS"`
	Settle time.Duration `help:"Delay between driving a row and reading its columns" default:"10us" env:"KEYSCAN_MATRIX_SETTLE"`
}

// rowPin is the part of rpio.Pin a matrix row uses.
type rowPin interface {
	Low()
	High()
}

// Matrix reads a row/column key matrix. Key index is row*cols+col.
// Every column is read once per scan in Latch; IsPressed answers from
// that snapshot.
type Matrix struct {
	rows   []rowPin
	cols   []pin
	settle time.Duration
	held   key.Mask
	opened bool
}

// OpenMatrix maps the GPIO memory, sets the rows as outputs idling high and
// the columns as inputs with pull-ups.
func OpenMatrix(cfg MatrixConfig, keys int) (*Matrix, error) {
	cells := len(cfg.Rows) * len(cfg.Cols)
	if cells > key.MaxKeys {
		return nil, fmt.Errorf("matrix: %dx%d has more than %d cells", len(cfg.Rows), len(cfg.Cols), key.MaxKeys)
	}
	if cells < keys {
		return nil, fmt.Errorf("matrix: %d cells configured for %d keys", cells, keys)
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("matrix: %w", err)
	}

	var (
		rows []rowPin
		cols []pin
	)
	for _, n := range cfg.Rows {
		p := rpio.Pin(n)
		p.Output()
		p.High()
		rows = append(rows, p)
	}
	for _, n := range cfg.Cols {
		p := rpio.Pin(n)
		p.Input()
		p.PullUp()
		cols = append(cols, p)
	}
	m := newMatrix(rows, cols, cfg.Settle)
	m.opened = true
	return m, nil
}

func newMatrix(rows []rowPin, cols []pin, settle time.Duration) *Matrix {
	return &Matrix{rows: rows, cols: cols, settle: settle}
}

// Latch implements key.Latcher.
func (m *Matrix) Latch() {
	var held key.Mask
	for r, row := range m.rows {
		row.Low()
		if m.settle > 0 {
			time.Sleep(m.settle)
		}
		for c, col := range m.cols {
			if col.Read() == rpio.Low {
				held |= 1 << uint(r*len(m.cols)+c)
			}
		}
		row.High()
	}
	m.held = held
}

// IsPressed implements key.Input from the last Latch.
func (m *Matrix) IsPressed(i int) bool {
	return m.held.Has(i)
}

// Close unmaps the GPIO memory.
func (m *Matrix) Close() error {
	if !m.opened {
		return nil
	}
	m.opened = false
	return rpio.Close()
}
