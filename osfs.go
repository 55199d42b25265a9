package lrfs

import (
	"io"
	"os"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// scanDataHole locates the next populated (data) byte range at or after
// from, using SEEK_DATA/SEEK_HOLE when the destination file is backed by a
// real *os.File. Backings that cannot report sparse layout (notably
// afero.MemMapFs, used in tests) fall back to treating the whole
// remaining file as one data range, i.e. reporting no holes beyond what
// the caller already tracks — see DESIGN.md for the rationale.
func scanDataHole(f afero.File, from int64) (dataOff, dataEnd int64, found bool, err error) {
	osFile, ok := f.(*os.File)
	if !ok {
		return scanDataHoleFallback(f, from)
	}

	fd := int(osFile.Fd())

	off, serr := unix.Seek(fd, from, unix.SEEK_DATA)
	if serr != nil {
		if serr == unix.ENXIO {
			return 0, 0, false, nil
		}
		return 0, 0, false, serr
	}

	end, serr := unix.Seek(fd, off, unix.SEEK_HOLE)
	if serr != nil {
		if serr == unix.ENXIO {
			info, statErr := osFile.Stat()
			if statErr != nil {
				return 0, 0, false, statErr
			}
			return off, info.Size(), true, nil
		}
		return 0, 0, false, serr
	}

	return off, end, true, nil
}

func scanDataHoleFallback(f afero.File, from int64) (dataOff, dataEnd int64, found bool, err error) {
	info, err := f.Stat()
	if err != nil {
		return 0, 0, false, err
	}
	if from >= info.Size() {
		return 0, 0, false, nil
	}
	return from, info.Size(), true, nil
}

// readAtFull reads exactly len(p) bytes at off unless EOF is reached first.
func readAtFull(f afero.File, off int64, p []byte) (int, error) {
	n, err := f.ReadAt(p, off)
	if err == io.EOF {
		err = nil
	}
	return n, err
}
