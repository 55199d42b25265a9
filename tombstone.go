package lrfs

import (
	"os"

	"github.com/spf13/afero"
)

// tombstoneSuffix is appended to a destination-side path to mark the
// same-named source file as deleted. There is no persistent index: a
// tombstone is solely the presence of this file, which makes recovery
// implicit after a crash or restart.
const tombstoneSuffix = ".lr-tombstone"

// tombstoneRegistry creates and queries tombstone marker files in the
// destination layer. It caches nothing: every exists() call is a fresh
// stat, so a tombstone created by one handle is immediately visible to
// every other caller without invalidation.
type tombstoneRegistry struct {
	destination afero.Fs
}

func (r *tombstoneRegistry) path(destPath string) string {
	return destPath + tombstoneSuffix
}

// create marks destPath as deleted. durable propagates the caller's
// durable-open flag as O_SYNC on the tombstone file itself.
func (r *tombstoneRegistry) create(destPath string, durable bool) error {
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if durable {
		flag |= os.O_SYNC
	}
	f, err := r.destination.OpenFile(r.path(destPath), flag, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// exists reports whether destPath has been tombstoned.
func (r *tombstoneRegistry) exists(destPath string) bool {
	_, err := r.destination.Stat(r.path(destPath))
	return err == nil
}
