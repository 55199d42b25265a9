package lrfs

// find probes destination then source for name, never consulting
// tombstones: Exist, the directory merger and OpenFile each check
// tombstones themselves where source visibility matters.
func (fs *FS) find(name string) (LayerKind, bool) {
	destPath, err := fs.resolve(name, LayerDestination)
	if err != nil {
		panic(err)
	}
	if _, err := fs.destination.FS.Stat(destPath); err == nil {
		return LayerDestination, true
	}

	srcPath, err := fs.resolve(name, LayerSource)
	if err != nil {
		panic(err)
	}
	if _, err := fs.source.FS.Stat(srcPath); err == nil {
		return LayerSource, true
	}

	return LayerUnknown, false
}

// Exist reports whether name is visible anywhere in the merged namespace,
// honoring tombstones on top of the raw layer locate.
func (fs *FS) Exist(name string) bool {
	kind, ok := fs.find(name)
	if !ok {
		return false
	}
	if kind == LayerSource {
		destPath, err := fs.resolve(name, LayerDestination)
		if err != nil {
			panic(err)
		}
		if fs.tombstones.exists(destPath) {
			return false
		}
	}
	return true
}
