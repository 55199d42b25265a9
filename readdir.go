package lrfs

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/xtgo/set"
)

// DirEntry is one merged directory entry; it deliberately does not
// implement io/fs.DirEntry since the engine-facing contract is its own
// directory-listing operation, not a path-addressed fs.FS.
type DirEntry struct {
	Name    string
	IsDir   bool
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
}

func newDirEntry(info os.FileInfo) DirEntry {
	return DirEntry{
		Name:    info.Name(),
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
	}
}

// DirList produces a deduplicated listing combining destination entries
// (minus tombstone markers) with source entries that are neither present
// in destination nor tombstoned. A directory missing on either side is
// treated as empty, not fatal.
func (fs *FS) DirList(dir, prefix string) ([]DirEntry, error) {
	destDir, err := fs.resolve(dir, LayerDestination)
	if err != nil {
		return nil, err
	}
	srcDir, err := fs.resolve(dir, LayerSource)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]DirEntry)
	var names []string

	destEntries, err := afero.ReadDir(fs.destination.FS, destDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, newError(KindIOFailed, "readdir", dir, err)
	}
	for _, info := range destEntries {
		name := info.Name()
		if strings.HasSuffix(name, tombstoneSuffix) {
			continue
		}
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		names = append(names, name)
		byName[name] = newDirEntry(info)
	}

	srcEntries, err := afero.ReadDir(fs.source.FS, srcDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, newError(KindIOFailed, "readdir", dir, err)
	}
	for _, info := range srcEntries {
		name := info.Name()
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		if _, shadowed := byName[name]; shadowed {
			continue
		}
		if fs.tombstones.exists(joinLayer(destDir, name)) {
			continue
		}
		names = append(names, name)
		byName[name] = newDirEntry(info)
	}

	sorted := sort.StringSlice(names)
	sort.Sort(sorted)
	n := set.Uniq(sorted)
	names = []string(sorted)[:n]

	result := make([]DirEntry, 0, len(names))
	for _, name := range names {
		result = append(result, byName[name])
	}
	return result, nil
}

// DirListSingle returns the first entry, in name order, of the merged
// listing DirList produces. It builds the whole listing before picking
// that entry; it does not stop at the first eligible name.
func (fs *FS) DirListSingle(dir, prefix string) (DirEntry, bool, error) {
	entries, err := fs.DirList(dir, prefix)
	if err != nil {
		return DirEntry{}, false, err
	}
	if len(entries) == 0 {
		return DirEntry{}, false, nil
	}
	return entries[0], true, nil
}
