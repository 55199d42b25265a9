package lrfs

import "github.com/spf13/afero"

// discoverHoles reconstructs the hole list of an existing destination file
// by walking its sparse layout: the list starts as a single hole covering
// the whole file, and every data range reported by scanDataHole is
// subtracted from it. Termination is reaching size or finding no further
// data range.
func discoverHoles(f afero.File, size int64) (*extentList, error) {
	holes := newExtentList()
	if size > 0 {
		holes.init(0, size)
	}

	offset := int64(0)
	for offset < size {
		dataOff, dataEnd, found, err := scanDataHole(f, offset)
		if err != nil {
			return nil, err
		}
		if !found {
			break
		}
		holes.removeRange(dataOff, dataEnd-dataOff)
		offset = dataEnd
	}

	return holes, nil
}

// verifyHoleBound checks that the last hole ends strictly before source's
// length; a hole extending past source would make reads past source end
// undefined, so this returns an InvalidInput Error the caller treats as
// fatal to the open.
func verifyHoleBound(holes *extentList, sourceSize int64) error {
	if last := holes.lastEnd(); last >= sourceSize {
		return &Error{
			Kind: KindInvalidInput,
			Op:   "open",
			Err:  errHoleBeyondSource(last, sourceSize),
		}
	}
	return nil
}
