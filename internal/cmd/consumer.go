package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/Alia5/keyscan/key"
)

// eventSource hands out the next pending record, if any.
type eventSource func() (key.Record, bool)

// consume polls src every interval until ctx is done and passes each
// record to handle. A source backed by a Mailbox yields at most one record
// per poll; anything published in between is lost.
func consume(ctx context.Context, src eventSource, every time.Duration, handle func(key.Record)) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			drain(src, handle)
			return
		case <-t.C:
			drain(src, handle)
		}
	}
}

func drain(src eventSource, handle func(key.Record)) {
	for {
		r, ok := src()
		if !ok {
			return
		}
		handle(r)
	}
}

// logEvent is the default dispatcher: one info record per event.
func logEvent(logger *slog.Logger) func(key.Record) {
	return func(r key.Record) {
		if r.Key == key.NoKey {
			logger.Info("combination", "mask", r.Mask, "state", r.State)
			return
		}
		logger.Info("key", "key", r.Key, "event", r.Event, "state", r.State)
	}
}
