package lrfs

import (
	"io"
	"os"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// FileType distinguishes regular files from directories on open. Only
// FileTypeRegular is implemented; directory opens are rejected with
// NotSupported before either layer's OS handle is touched.
type FileType uint8

const (
	FileTypeRegular FileType = iota
	FileTypeDirectory
)

// OpenFlags mirrors the flags accepted by an open-file call.
type OpenFlags uint8

const (
	FlagCreate OpenFlags = 1 << iota
	FlagReadOnly
	FlagDurable
	FlagExclusive
)

// LockMode selects the advisory lock mode forwarded to destination by
// Handle.Lock.
type LockMode uint8

const (
	LockShared LockMode = iota
	LockExclusive
)

// Handle wraps a destination OS handle and optionally a source OS handle
// for one open file. It is exclusively owned by its opener and destroyed
// on Close.
type Handle struct {
	fsys *FS
	name string
	typ  FileType

	dst afero.File
	src afero.File

	holes    *extentList
	complete bool
	closed   bool
}

// Name returns the handle's logical path.
func (h *Handle) Name() string { return h.name }

// Size returns the destination size, which is always authoritative.
func (h *Handle) Size() (int64, error) {
	info, err := h.dst.Stat()
	if err != nil {
		return 0, newError(KindIOFailed, "size", h.name, err)
	}
	return info.Size(), nil
}

// Sync flushes destination only; source is read-only and never synced.
func (h *Handle) Sync() error {
	h.fsys.locks.Lock(h.name)
	defer h.fsys.locks.Unlock(h.name)
	if err := h.dst.Sync(); err != nil {
		return newError(KindIOFailed, "sync", h.name, err)
	}
	return nil
}

// Lock forwards an advisory lock request to the destination handle only.
// Backings that cannot provide OS-level advisory locks (e.g. an in-memory
// test filesystem) silently no-op.
func (h *Handle) Lock(mode LockMode) error {
	osFile, ok := h.dst.(*os.File)
	if !ok {
		return nil
	}
	how := unix.LOCK_SH
	if mode == LockExclusive {
		how = unix.LOCK_EX
	}
	if err := unix.Flock(int(osFile.Fd()), how); err != nil {
		return newError(KindIOFailed, "lock", h.name, err)
	}
	return nil
}

// Read services [offset, offset+len(p)) from destination when possible,
// otherwise promotes the range from source. The hole-list mutation and
// the read-then-promote sequence are serialized under the handle's
// per-name lock, so a concurrent reader never observes a can_service=true
// window for bytes whose promoting write hasn't completed.
func (h *Handle) Read(offset int64, p []byte) (int, error) {
	h.fsys.locks.Lock(h.name)
	defer h.fsys.locks.Unlock(h.name)
	return h.readLocked(offset, p)
}

func (h *Handle) readLocked(offset int64, p []byte) (int, error) {
	if h.closed {
		return 0, newError(KindIOFailed, "read", h.name, os.ErrClosed)
	}

	if h.complete || h.src == nil || h.holes.canService(offset, int64(len(p))) {
		n, err := readAtFull(h.dst, offset, p)
		if err != nil {
			return n, newError(KindIOFailed, "read", h.name, err)
		}
		return n, nil
	}

	n, err := readAtFull(h.src, offset, p)
	if err != nil {
		return n, newError(KindIOFailed, "read", h.name, err)
	}

	if err := h.writeLocked(offset, p[:n]); err != nil {
		return n, err
	}
	return n, nil
}

// Write always targets destination; writes are never forwarded to
// source. Durability ordering is mandatory: data must be durable on
// destination before the hole list records the range as filled, else a
// crash could leave the destination claiming completeness for bytes that
// never made it to disk.
func (h *Handle) Write(offset int64, p []byte) (int, error) {
	h.fsys.locks.Lock(h.name)
	defer h.fsys.locks.Unlock(h.name)
	if h.closed {
		return 0, newError(KindIOFailed, "write", h.name, os.ErrClosed)
	}
	if err := h.writeLocked(offset, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// writeLocked performs the write path assuming the caller already holds
// the per-name lock.
func (h *Handle) writeLocked(offset int64, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if _, err := h.dst.WriteAt(p, offset); err != nil {
		return newError(KindIOFailed, "write", h.name, err)
	}
	if err := h.dst.Sync(); err != nil {
		return newError(KindIOFailed, "write", h.name, err)
	}
	if !h.complete {
		h.holes.removeRange(offset, int64(len(p)))
	}
	return nil
}

// Truncate resizes destination. Source is never truncated; any range
// newly exposed by growing the file reads as zeros from destination from
// then on, so it is removed from the hole list rather than left pending.
func (h *Handle) Truncate(newLen int64) error {
	h.fsys.locks.Lock(h.name)
	defer h.fsys.locks.Unlock(h.name)
	if h.closed {
		return newError(KindIOFailed, "truncate", h.name, os.ErrClosed)
	}

	info, err := h.dst.Stat()
	if err != nil {
		return newError(KindIOFailed, "truncate", h.name, err)
	}
	curLen := info.Size()
	if newLen == curLen {
		return nil
	}

	lo, hi := curLen, newLen
	if newLen < curLen {
		lo, hi = newLen, curLen
	}
	if !h.complete {
		h.holes.removeRange(lo, hi-lo)
	}

	if err := h.dst.Truncate(newLen); err != nil {
		return newError(KindIOFailed, "truncate", h.name, err)
	}
	return nil
}

// fillAllLocked drains every remaining hole by promoting it from source.
// The caller must already hold the handle's per-name lock (it is used by
// Close's fill_holes_on_close debug path, which cannot re-lock).
func (h *Handle) fillAllLocked() error {
	if h.complete || h.src == nil {
		return nil
	}
	for {
		off, length, ok := h.holes.firstHole()
		if !ok {
			return nil
		}
		if length > fillChunkSize {
			length = fillChunkSize
		}
		buf := make([]byte, length)
		n, err := h.src.ReadAt(buf, off)
		if err != nil && err != io.EOF {
			return newError(KindIOFailed, "fill", h.name, err)
		}
		if err := h.writeLocked(off, buf[:n]); err != nil {
			return err
		}
	}
}

// Close optionally fills all remaining holes (debug.fill_holes_on_close),
// then closes destination and, if present, source, and frees the hole
// list.
func (h *Handle) Close() error {
	h.fsys.locks.Lock(h.name)
	defer h.fsys.locks.Unlock(h.name)
	if h.closed {
		return nil
	}
	h.closed = true

	if h.fsys.cfg.DebugFlags&DebugFillHolesOnClose != 0 {
		if err := h.fillAllLocked(); err != nil {
			h.fsys.log.WithError(err).WithField("name", h.name).Warn("live-restore: fill-on-close failed")
		}
	}

	var firstErr error
	if h.src != nil {
		if err := h.src.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := h.dst.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	h.holes = nil

	if firstErr != nil {
		return newError(KindIOFailed, "close", h.name, firstErr)
	}
	return nil
}
