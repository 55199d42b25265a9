package lrfs

import "github.com/spf13/afero"

// LayerKind identifies which of the two layers a name resolves to.
type LayerKind uint8

const (
	// LayerUnknown means neither layer holds the name.
	LayerUnknown LayerKind = iota
	// LayerDestination is the writable, eventually-authoritative layer.
	LayerDestination
	// LayerSource is the read-only layer providing initial data.
	LayerSource
)

func (k LayerKind) String() string {
	switch k {
	case LayerDestination:
		return "destination"
	case LayerSource:
		return "source"
	default:
		return "unknown"
	}
}

// LayerDescriptor is immutable for the lifetime of a mount.
type LayerDescriptor struct {
	Home string
	Kind LayerKind
	FS   afero.Fs
}
