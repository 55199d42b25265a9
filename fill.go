package lrfs

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// fillChunkSize bounds a single promotion issued by the background fill
// worker per hole-list iteration.
const fillChunkSize = 4 * 1024

// filler walks open handles' hole lists in the background, promoting one
// chunk at a time from source until each handle is complete. The number
// of concurrent fill workers is bounded by the mount's configured maximum.
type filler struct {
	group    *errgroup.Group
	ctx      context.Context
	panicked atomic.Bool
	log      *logrus.Entry
}

func newFiller(ctx context.Context, maxWorkers int, log *logrus.Entry) *filler {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	return &filler{group: g, ctx: gctx, log: log}
}

// markPanic records that the connection has entered a panic state; any
// fill loop observes this at the top of its next iteration and aborts.
func (fl *filler) markPanic() { fl.panicked.Store(true) }

// fill schedules the background draining of h's hole list. It is a no-op
// for handles with no source (already complete).
func (fl *filler) fill(h *Handle) {
	if h.complete || h.src == nil {
		return
	}
	fl.group.Go(func() error {
		return fl.fillHandle(h)
	})
}

func (fl *filler) fillHandle(h *Handle) error {
	for {
		if fl.panicked.Load() {
			return nil
		}
		select {
		case <-fl.ctx.Done():
			return nil
		default:
		}

		h.fsys.locks.Lock(h.name)
		if h.closed {
			h.fsys.locks.Unlock(h.name)
			return nil
		}
		off, length, ok := h.holes.firstHole()
		if !ok {
			h.fsys.locks.Unlock(h.name)
			return nil
		}
		if length > fillChunkSize {
			length = fillChunkSize
		}

		buf := make([]byte, length)
		n, err := h.src.ReadAt(buf, off)
		if err != nil && n == 0 {
			h.fsys.locks.Unlock(h.name)
			fl.log.WithError(err).WithField("name", h.name).Warn("live-restore: background fill read failed")
			return err
		}

		werr := h.writeLocked(off, buf[:n])
		h.fsys.locks.Unlock(h.name)
		if werr != nil {
			fl.log.WithError(werr).WithField("name", h.name).Warn("live-restore: background fill write failed")
			return werr
		}
	}
}

// wait blocks until every scheduled fill worker has finished.
func (fl *filler) wait() error {
	return fl.group.Wait()
}
