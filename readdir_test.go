package lrfs

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(entries []DirEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestDirListMergesBothLayers(t *testing.T) {
	fsys := newTestFS(t)
	require.NoError(t, afero.WriteFile(fsys.source.FS, "/src/shared.dat", []byte("s"), 0o644))
	require.NoError(t, afero.WriteFile(fsys.source.FS, "/src/srconly.dat", []byte("s"), 0o644))

	h, err := fsys.OpenFile("/dst/shared.dat", FileTypeRegular, FlagCreate)
	require.NoError(t, err)
	require.NoError(t, h.Close())
	h2, err := fsys.OpenFile("/dst/destonly.dat", FileTypeRegular, FlagCreate)
	require.NoError(t, err)
	require.NoError(t, h2.Close())

	entries, err := fsys.DirList("/dst", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"shared.dat", "srconly.dat", "destonly.dat"}, names(entries))
}

func TestDirListDestinationEntryShadowsSource(t *testing.T) {
	fsys := newTestFS(t)
	require.NoError(t, afero.WriteFile(fsys.source.FS, "/src/x.dat", []byte("source-version"), 0o644))

	h, err := fsys.OpenFile("/dst/x.dat", FileTypeRegular, FlagCreate)
	require.NoError(t, err)
	_, err = h.Write(0, []byte("dest-version-longer"))
	require.NoError(t, err)
	require.NoError(t, h.Close())

	entries, err := fsys.DirList("/dst", "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(len("dest-version-longer")), entries[0].Size)
}

func TestDirListExcludesTombstonedNames(t *testing.T) {
	fsys := newTestFS(t)
	require.NoError(t, afero.WriteFile(fsys.source.FS, "/src/gone.dat", []byte("x"), 0o644))
	require.NoError(t, fsys.Remove("/dst/gone.dat", 0))

	entries, err := fsys.DirList("/dst", "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDirListExcludesTombstoneMarkerFilesThemselves(t *testing.T) {
	fsys := newTestFS(t)
	h, err := fsys.OpenFile("/dst/keep.dat", FileTypeRegular, FlagCreate)
	require.NoError(t, err)
	require.NoError(t, h.Close())
	require.NoError(t, fsys.Remove("/dst/removed.dat", 0))

	entries, err := fsys.DirList("/dst", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"keep.dat"}, names(entries))
}

func TestDirListPrefixFilter(t *testing.T) {
	fsys := newTestFS(t)
	for _, n := range []string{"/dst/apple.dat", "/dst/avocado.dat", "/dst/banana.dat"} {
		h, err := fsys.OpenFile(n, FileTypeRegular, FlagCreate)
		require.NoError(t, err)
		require.NoError(t, h.Close())
	}

	entries, err := fsys.DirList("/dst", "a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"apple.dat", "avocado.dat"}, names(entries))
}

func TestDirListOnMissingDirectoryIsEmptyNotError(t *testing.T) {
	fsys := newTestFS(t)
	entries, err := fsys.DirList("/dst/nosuchdir", "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDirListSingleReturnsFalseWhenEmpty(t *testing.T) {
	fsys := newTestFS(t)
	_, ok, err := fsys.DirListSingle("/dst", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDirListSingleReturnsOneMatch(t *testing.T) {
	fsys := newTestFS(t)
	h, err := fsys.OpenFile("/dst/only.dat", FileTypeRegular, FlagCreate)
	require.NoError(t, err)
	require.NoError(t, h.Close())

	entry, ok, err := fsys.DirListSingle("/dst", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "only.dat", entry.Name)
}
