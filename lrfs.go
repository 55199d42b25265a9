// Package lrfs implements a layered "live restore" file system: it
// presents a single logical tree to a storage engine while data
// progressively migrates from a read-only source layer to a writable
// destination layer, servicing reads transparently from either side and
// tracking per-file un-migrated byte ranges until a background pass
// eliminates them.
package lrfs

import (
	"context"
	"os"

	"github.com/moby/locker"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// FileSystem is the engine-facing contract of one mount.
type FileSystem interface {
	DirList(dir, prefix string) ([]DirEntry, error)
	DirListSingle(dir, prefix string) (DirEntry, bool, error)
	Exist(name string) bool
	OpenFile(name string, typ FileType, flags OpenFlags) (*Handle, error)
	Remove(name string, flags OpenFlags) error
	Rename(from, to string, flags OpenFlags) error
	Size(name string) (int64, error)
	Terminate() error
}

// FS is one live-restore mount, exposed as an explicit handle rather than
// ambient global state.
type FS struct {
	destination LayerDescriptor
	source      LayerDescriptor
	cfg         Config

	locks      *locker.Locker
	tombstones *tombstoneRegistry
	fill       *filler
	cancel     context.CancelFunc
	log        *logrus.Entry
}

var _ FileSystem = (*FS)(nil)

// New mounts a live-restore file system rooted at destinationHome, backed
// by destinationFS, layered over cfg.SourceHome on sourceFS.
func New(cfg Config, destinationHome string, destinationFS, sourceFS afero.Fs) (*FS, error) {
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logrus.WithField("component", "lrfs")

	fsys := &FS{
		destination: LayerDescriptor{Home: destinationHome, Kind: LayerDestination, FS: destinationFS},
		source:      LayerDescriptor{Home: cfg.SourceHome, Kind: LayerSource, FS: sourceFS},
		cfg:         cfg,
		locks:       locker.New(),
		log:         log,
	}
	fsys.tombstones = &tombstoneRegistry{destination: destinationFS}

	ctx, cancel := context.WithCancel(context.Background())
	fsys.cancel = cancel
	fsys.fill = newFiller(ctx, cfg.ThreadsMax, log)

	log.WithFields(logrus.Fields{
		"destination": destinationHome,
		"source":      cfg.SourceHome,
		"threads_max": cfg.ThreadsMax,
		"debug_flags": cfg.DebugFlags,
	}).Info("live-restore mount initialized")

	return fsys, nil
}

// OpenFile opens name, materializing a destination-side shell backed by
// source when the destination copy doesn't exist yet. Directory opens are
// rejected with NotSupported.
func (fs *FS) OpenFile(name string, typ FileType, flags OpenFlags) (*Handle, error) {
	if typ == FileTypeDirectory {
		return nil, newError(KindNotSupported, "open", name, errNotSupportedDirectory)
	}

	destPath, err := fs.resolve(name, LayerDestination)
	if err != nil {
		return nil, err
	}
	srcPath, err := fs.resolve(name, LayerSource)
	if err != nil {
		return nil, err
	}

	fs.locks.Lock(name)
	defer fs.locks.Unlock(name)

	tombstoned := fs.tombstones.exists(destPath)

	destInfo, destErr := fs.destination.FS.Stat(destPath)
	destExists := destErr == nil
	if destErr != nil && !os.IsNotExist(destErr) {
		return nil, newError(KindIOFailed, "open", name, destErr)
	}

	var srcInfo os.FileInfo
	srcExists := false
	if !tombstoned {
		var srcErr error
		srcInfo, srcErr = fs.source.FS.Stat(srcPath)
		srcExists = srcErr == nil
		if srcErr != nil && !os.IsNotExist(srcErr) {
			return nil, newError(KindIOFailed, "open", name, srcErr)
		}
	}

	if !destExists {
		return fs.openFresh(name, destPath, srcPath, flags, srcExists, srcInfo)
	}
	return fs.openExisting(name, destPath, srcPath, tombstoned, destInfo, srcExists, srcInfo)
}

// openFresh creates a brand-new destination file, either empty (no source
// backing) or shadowing a whole source file with a single full-file hole.
func (fs *FS) openFresh(name, destPath, srcPath string, flags OpenFlags, srcExists bool, srcInfo os.FileInfo) (*Handle, error) {
	if flags&FlagExclusive != 0 && srcExists {
		return nil, newError(KindIOFailed, "open", name, os.ErrExist)
	}
	if !srcExists && flags&FlagCreate == 0 {
		return nil, newError(KindNotFound, "open", name, os.ErrNotExist)
	}

	destFile, err := fs.destination.FS.OpenFile(destPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, newError(KindIOFailed, "open", name, err)
	}

	h := &Handle{fsys: fs, name: name, typ: FileTypeRegular, dst: destFile, holes: newExtentList()}

	if !srcExists {
		h.complete = true
		fs.log.WithField("name", name).Debug("live-restore: opened fresh destination-only file")
		return h, nil
	}

	srcFile, err := fs.source.FS.Open(srcPath)
	if err != nil {
		destFile.Close()
		return nil, newError(KindIOFailed, "open", name, err)
	}
	h.src = srcFile

	// The shell must be sized to source up front: destination size is
	// authoritative, and the un-migrated range has to be a real filesystem
	// hole so a close-before-fill reopen can rediscover it instead of
	// silently truncating it away.
	if err := destFile.Truncate(srcInfo.Size()); err != nil {
		h.Close()
		return nil, newError(KindIOFailed, "open", name, err)
	}
	h.holes.init(0, srcInfo.Size())

	if err := verifyHoleBound(h.holes, srcInfo.Size()); err != nil {
		h.Close()
		return nil, err
	}

	fs.log.WithField("name", name).Debug("live-restore: opened fresh destination shell over source")
	return h, nil
}

// openExisting reopens a destination file that already exists, rediscovering
// its hole list from the sparse layout unless the source is no longer
// reachable (tombstoned or gone), in which case the handle is complete.
func (fs *FS) openExisting(name, destPath, srcPath string, tombstoned bool, destInfo os.FileInfo, srcExists bool, srcInfo os.FileInfo) (*Handle, error) {
	destFile, err := fs.destination.FS.OpenFile(destPath, os.O_RDWR, 0o644)
	if err != nil {
		return nil, newError(KindIOFailed, "open", name, err)
	}

	h := &Handle{fsys: fs, name: name, typ: FileTypeRegular, dst: destFile}

	if tombstoned || !srcExists {
		h.complete = true
		h.holes = newExtentList()
		fs.log.WithField("name", name).Debug("live-restore: opened existing destination-only file")
		return h, nil
	}

	srcFile, err := fs.source.FS.Open(srcPath)
	if err != nil {
		destFile.Close()
		return nil, newError(KindIOFailed, "open", name, err)
	}
	h.src = srcFile

	holes, err := discoverHoles(destFile, destInfo.Size())
	if err != nil {
		h.Close()
		return nil, newError(KindIOFailed, "open", name, err)
	}
	h.holes = holes

	if err := verifyHoleBound(h.holes, srcInfo.Size()); err != nil {
		h.Close()
		return nil, err
	}

	fs.log.WithField("name", name).WithField("holes", len(h.holes.holes())).Debug("live-restore: opened existing destination file")
	return h, nil
}

// Remove deletes name in destination if present, and unconditionally
// creates a tombstone so any same-named source file is henceforth ignored.
func (fs *FS) Remove(name string, flags OpenFlags) error {
	destPath, err := fs.resolve(name, LayerDestination)
	if err != nil {
		return err
	}

	fs.locks.Lock(name)
	defer fs.locks.Unlock(name)

	if _, err := fs.destination.FS.Stat(destPath); err == nil {
		if err := fs.destination.FS.Remove(destPath); err != nil {
			return newError(KindIOFailed, "remove", name, err)
		}
	} else if !os.IsNotExist(err) {
		return newError(KindIOFailed, "remove", name, err)
	}

	if err := fs.tombstones.create(destPath, flags&FlagDurable != 0); err != nil {
		return newError(KindIOFailed, "remove", name, err)
	}
	return nil
}

// Rename moves from to to. If destination has from, it is renamed on the
// destination side; tombstones are then created for both from and to,
// regardless, so neither name can resolve to a stale source entry.
func (fs *FS) Rename(from, to string, flags OpenFlags) error {
	fromDest, err := fs.resolve(from, LayerDestination)
	if err != nil {
		return err
	}
	toDest, err := fs.resolve(to, LayerDestination)
	if err != nil {
		return err
	}

	first, second := from, to
	if second < first {
		first, second = second, first
	}
	fs.locks.Lock(first)
	defer fs.locks.Unlock(first)
	if second != first {
		fs.locks.Lock(second)
		defer fs.locks.Unlock(second)
	}

	_, statErr := fs.destination.FS.Stat(fromDest)
	switch {
	case statErr == nil:
		if err := fs.destination.FS.Rename(fromDest, toDest); err != nil {
			return newError(KindIOFailed, "rename", from, err)
		}
	case os.IsNotExist(statErr):
		if !fs.Exist(from) {
			return newError(KindNotFound, "rename", from, os.ErrNotExist)
		}
	default:
		return newError(KindIOFailed, "rename", from, statErr)
	}

	durable := flags&FlagDurable != 0
	if err := fs.tombstones.create(fromDest, durable); err != nil {
		return newError(KindIOFailed, "rename", from, err)
	}
	if err := fs.tombstones.create(toDest, durable); err != nil {
		return newError(KindIOFailed, "rename", to, err)
	}
	return nil
}

// Size returns the destination-side size of name; name must already be
// materialized in destination.
func (fs *FS) Size(name string) (int64, error) {
	destPath, err := fs.resolve(name, LayerDestination)
	if err != nil {
		return 0, err
	}
	info, err := fs.destination.FS.Stat(destPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, newError(KindNotFound, "size", name, err)
		}
		return 0, newError(KindIOFailed, "size", name, err)
	}
	return info.Size(), nil
}

// Fill schedules background promotion of h's remaining holes, bounded by
// the mount's background_threads_max worker pool.
func (fs *FS) Fill(h *Handle) { fs.fill.fill(h) }

// MarkPanic records that the connection has entered a panic state;
// in-flight and future background fill iterations observe this and
// abort promptly.
func (fs *FS) MarkPanic() { fs.fill.markPanic() }

// Terminate waits for every scheduled background fill to finish, then
// cancels the fill pool's context and releases mount state.
func (fs *FS) Terminate() error {
	err := fs.fill.wait()
	fs.cancel()
	fs.log.Info("live-restore mount terminated")
	return err
}
