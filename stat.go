package rapfiles

import (
	"context"
	"time"
)

// Snapshot is an immutable point-in-time capture of one stat() result. It
// is a plain value with no back-reference to any Handle or path; copies
// are independent and freely shareable without synchronization.
type Snapshot struct {
	Size   uint64
	IsFile bool
	IsDir  bool

	// Modified, Accessed and Created are POSIX epoch seconds with
	// sub-second precision. When the backend does not report an access
	// or creation/birth time, the field falls back to the modification
	// time; that is a documented normalization, not an error.
	Modified float64
	Accessed float64
	Created  float64
}

// Stat returns a metadata snapshot for the named path. Each call issues a
// fresh metadata syscall and builds a new Snapshot; no Handle is involved
// and no relation to any open Handle exists.
func (fsys *FS) Stat(ctx context.Context, path string) (Snapshot, error) {
	if err := validatePath("stat", path); err != nil {
		return Snapshot{}, err
	}
	return dispatch(ctx, fsys.pool, func() (Snapshot, error) {
		info, err := fsys.bfs.Stat(path)
		if err != nil {
			return Snapshot{}, newIOError("stat", path, err)
		}
		mtime := epochSeconds(info.ModTime())
		snap := Snapshot{
			Size:     uint64(info.Size()),
			IsFile:   info.Mode().IsRegular(),
			IsDir:    info.IsDir(),
			Modified: mtime,
			Accessed: mtime,
			Created:  mtime,
		}
		if fsys.root != "" {
			fsys.fillTimes(path, &snap)
		}
		return snap, nil
	})
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
