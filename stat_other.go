//go:build !linux

package rapfiles

// fillTimes is a no-op on platforms without statx; access and creation
// times keep their modification-time fallback.
func (fsys *FS) fillTimes(path string, snap *Snapshot) {}
