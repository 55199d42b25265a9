package lrfs

import "github.com/pkg/errors"

// DebugFlags mirrors the live_restore.debug.* configuration keys.
type DebugFlags uint8

const (
	// DebugFillHolesOnClose forces a handle to fill every remaining hole
	// from source before its destination and source handles are closed.
	DebugFillHolesOnClose DebugFlags = 1 << iota
)

// Config holds the three live_restore.* keys read once at mount.
type Config struct {
	// SourceHome is live_restore.path: the absolute source layer home.
	SourceHome string
	// ThreadsMax is live_restore.threads_max: the background fill worker cap.
	ThreadsMax int
	// DebugFlags is live_restore.debug.*.
	DebugFlags DebugFlags
}

func (c *Config) normalize() {
	if c.ThreadsMax <= 0 {
		c.ThreadsMax = 1
	}
}

// Validate checks that the configuration is usable for a mount.
func (c Config) Validate() error {
	if c.SourceHome == "" {
		return errors.New("lrfs: live_restore.path must not be empty")
	}
	return nil
}
