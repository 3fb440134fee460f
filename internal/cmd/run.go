package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alia5/keyscan/input"
	"github.com/Alia5/keyscan/internal/log"
	"github.com/Alia5/keyscan/key"
	"github.com/Alia5/keyscan/tick"
)

// Run scans a live key source until interrupted.
type Run struct {
	Keys      key.Config         `embed:"" prefix:"key."`
	Source    string             `help:"Raw key source" enum:"term,gpio,matrix" default:"term" env:"KEYSCAN_SOURCE"`
	Hold      time.Duration      `help:"How long one keystroke holds its key down (term source)" default:"600ms" env:"KEYSCAN_TERM_HOLD"`
	GPIO      input.GPIOConfig   `embed:"" prefix:"gpio."`
	Matrix    input.MatrixConfig `embed:"" prefix:"matrix."`
	Poll      time.Duration      `help:"Interval at which the event record is polled" default:"5ms" env:"KEYSCAN_POLL"`
	QueueSize int                `help:"Queue events instead of keeping only the latest; 0 keeps only the latest" default:"0" env:"KEYSCAN_QUEUE_SIZE"`
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, trace *log.Trace) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.Start(ctx, logger, trace)
}

// Start opens the configured source and scans it until ctx is done or the
// source ends.
func (r *Run) Start(ctx context.Context, logger *slog.Logger, trace *log.Trace) error {
	if err := r.Keys.Validate(); err != nil {
		return err
	}

	var (
		in       key.Input
		closer   io.Closer
		readKeys func() error
	)
	switch r.Source {
	case "gpio":
		g, err := input.OpenGPIO(r.GPIO, r.Keys.Keys)
		if err != nil {
			return err
		}
		in, closer = g, g
	case "matrix":
		m, err := input.OpenMatrix(r.Matrix, r.Keys.Keys)
		if err != nil {
			return err
		}
		in, closer = m, m
	case "term", "":
		t, err := input.OpenTerminal(r.Keys.Keys, r.Hold)
		if err != nil {
			return err
		}
		in, closer, readKeys = t, t, t.Run
		logger.Info("press 0-9 / a-f for keys, q to quit")
	default:
		return fmt.Errorf("unknown source %q", r.Source)
	}
	defer func() { _ = closer.Close() }()

	return r.scan(ctx, in, readKeys, logger, trace)
}

// scan wires a source to a scanner on a real-time tick and consumes the
// events until ctx is done or readKeys returns.
func (r *Run) scan(ctx context.Context, in key.Input, readKeys func() error, logger *slog.Logger, trace *log.Trace) error {
	if r.Poll <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", r.Poll)
	}
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		sink  key.Sink
		src   eventSource
		queue *key.Queue
	)
	if r.QueueSize > 0 {
		queue = key.NewQueue(r.QueueSize)
		sink, src = queue, queue.Pop
	} else {
		mb := key.NewMailbox()
		sink, src = mb, mb.Take
	}

	opts := []key.Option{key.WithLogger(logger)}
	if trace.Enabled() {
		opts = append(opts, key.WithSampleHook(trace.Sample))
	}
	scanner, err := key.New(r.Keys, in, sink, opts...)
	if err != nil {
		return err
	}

	timer := tick.New(r.Keys.ScanInterval, logger)
	if err := scanner.Attach(timer); err != nil {
		return err
	}

	timerErr := make(chan error, 1)
	go func() {
		err := timer.Run(ctx)
		if err != nil {
			cancel(err)
		}
		timerErr <- err
	}()
	if readKeys != nil {
		// readKeys may stay blocked in a read after ctx is done; the
		// goroutine then lives until the process exits.
		go func() {
			err := readKeys()
			if err == nil || errors.Is(err, input.ErrQuit) {
				cancel(nil)
				return
			}
			cancel(err)
		}()
	}

	logger.Info("scanning", "keys", r.Keys.Keys, "interval", r.Keys.ScanInterval, "source", r.Source)
	consume(ctx, src, r.Poll, logEvent(logger))

	<-timerErr
	if queue != nil && queue.Dropped() > 0 {
		logger.Warn("events dropped", "count", queue.Dropped())
	}
	logger.Info("stopped", "ticks", timer.Ticks())

	// Cancellation and deadlines are normal stops; anything else came from
	// the timer or the key reader.
	err = context.Cause(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
