package lrfs

import (
	"fmt"
	"path"
	"strings"
)

// resolve translates a logical name (always rooted at destination.home,
// per the engine's contract) into an absolute path within the requested
// layer. A name not rooted at destination.home is a programmer error and
// panics, matching the "assert/fatal" language of the live-restore
// contract this implements.
func (fs *FS) resolve(name string, kind LayerKind) (string, error) {
	if !strings.HasPrefix(name, fs.destination.Home) {
		panic(fmt.Sprintf("lrfs: name %q does not start with destination home %q", name, fs.destination.Home))
	}
	suffix := strings.TrimPrefix(name, fs.destination.Home)
	suffix = strings.TrimPrefix(suffix, "/")

	switch kind {
	case LayerDestination:
		return name, nil
	case LayerSource:
		return joinLayer(fs.source.Home, suffix), nil
	default:
		return "", fmt.Errorf("lrfs: unknown layer kind %v", kind)
	}
}

// joinLayer builds a layer-local path from a bare basename.
func joinLayer(home, basename string) string {
	if basename == "" {
		return home
	}
	return path.Join(home, basename)
}
