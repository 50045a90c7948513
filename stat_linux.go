//go:build linux

package rapfiles

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// fillTimes fills the access and birth times for a local path via statx.
// Fields whose bits the kernel or filesystem does not set keep their
// modification-time fallback.
func (fsys *FS) fillTimes(path string, snap *Snapshot) {
	var stx unix.Statx_t
	real := filepath.Join(fsys.root, path)
	err := unix.Statx(unix.AT_FDCWD, real, 0, unix.STATX_ATIME|unix.STATX_BTIME, &stx)
	if err != nil {
		return
	}
	if stx.Mask&unix.STATX_ATIME != 0 {
		snap.Accessed = statxSeconds(stx.Atime)
	}
	if stx.Mask&unix.STATX_BTIME != 0 {
		snap.Created = statxSeconds(stx.Btime)
	}
}

func statxSeconds(ts unix.StatxTimestamp) float64 {
	return float64(ts.Sec) + float64(ts.Nsec)/1e9
}
