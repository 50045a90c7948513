// Package rapfiles provides non-blocking filesystem operations for callers
// that must never stall on a blocking syscall. Every filesystem call is
// handed to a bounded background execution pool; the caller suspends at the
// hand-off and resumes when the OS call completes.
//
// The core abstraction is the Handle: an open file with Python-style mode
// semantics (r, w, a and friends), a mutex-guarded sequential operation set
// (read/write/seek/tell/line iteration), and a guarantee that concurrent
// calls on one handle never interleave or corrupt the cursor position.
//
// Two backends are provided: NewLocal for the OS filesystem and NewMemory
// for an ephemeral in-memory filesystem, mirroring the go-billy osfs and
// memfs providers they wrap.
package rapfiles

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/natefinch/atomic"
)

const filePerm = 0o666

// FS is a filesystem bound to one backend and one execution pool. All
// Handles opened through an FS share its pool; each Handle still has its
// own exclusive lock, so there is no global ordering across handles.
type FS struct {
	bfs  billy.Filesystem
	root string // real directory backing a local FS; empty for memory
	pool *pool
}

type config struct {
	workers int
	root    string
}

// Option configures filesystem creation.
type Option func(*config)

// WithWorkers bounds the number of concurrently executing filesystem
// calls. Defaults to the number of CPUs.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithRoot roots a local filesystem at dir instead of the OS root. All
// paths passed to the FS are then relative to dir. Ignored by NewMemory.
func WithRoot(dir string) Option {
	return func(c *config) { c.root = dir }
}

func newConfig(opts []Option) *config {
	c := &config{root: string(os.PathSeparator)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewLocal creates an FS backed by the OS filesystem, rooted at "/" unless
// WithRoot overrides it.
func NewLocal(opts ...Option) *FS {
	c := newConfig(opts)
	return &FS{
		bfs:  osfs.New(c.root),
		root: c.root,
		pool: newPool(c.workers),
	}
}

// NewMemory creates an FS backed by an initially empty in-memory
// filesystem. Useful for tests and ephemeral scratch space.
func NewMemory(opts ...Option) *FS {
	c := newConfig(opts)
	return &FS{
		bfs:  memfs.New(),
		pool: newPool(c.workers),
	}
}

// Open opens the named file with a Python-style mode token ("r", "r+",
// "w", "w+", "a", "a+", or their b-suffixed binary counterparts) and
// returns a Handle. The path is validated (non-empty, no NUL byte) and
// the mode parsed before any filesystem access; an unsupported token
// therefore has no side effect (no file is created). An OS failure is
// surfaced as an I/O error wrapping the path and the underlying cause.
func (fsys *FS) Open(ctx context.Context, path, mode string) (*Handle, error) {
	if err := validatePath("open", path); err != nil {
		return nil, err
	}
	m, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return dispatch(ctx, fsys.pool, func() (*Handle, error) {
		f, err := fsys.bfs.OpenFile(path, m.flags(), filePerm)
		if err != nil {
			return nil, newIOError("open", path, err)
		}
		h := &Handle{fs: fsys, path: path, mode: m, file: f}
		runtime.SetFinalizer(h, (*Handle).finalize)
		return h, nil
	})
}

// With opens the named file, passes the Handle to fn, and closes it on
// every exit path. The Handle fn receives aliases the same descriptor the
// open produced, not a duplicate. An error from fn is never suppressed: it
// wins over any close error. Close runs even when ctx is already done.
func (fsys *FS) With(ctx context.Context, path, mode string, fn func(*Handle) error) error {
	h, err := fsys.Open(ctx, path, mode)
	if err != nil {
		return err
	}
	fnErr := fn(h)
	closeErr := h.Close(context.WithoutCancel(ctx))
	if fnErr != nil {
		return fnErr
	}
	return closeErr
}

// ReadFile reads the whole named file in one shot. It is a stateless
// pass-through with no handle or cursor involved.
func (fsys *FS) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := validatePath("read", path); err != nil {
		return nil, err
	}
	return dispatch(ctx, fsys.pool, func() ([]byte, error) {
		data, err := util.ReadFile(fsys.bfs, path)
		if err != nil {
			return nil, newIOError("read", path, err)
		}
		return data, nil
	})
}

// localPath maps a backend path to its real location under the FS root.
// Relative paths that would cross the root boundary are refused with the
// same sentinel the billy chroot layer uses, so the atomic write path
// confines paths exactly like every operation that goes through the
// backend. Absolute paths are interpreted relative to the root, as billy
// does; once cleaned they cannot contain ".." segments.
func (fsys *FS) localPath(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) {
		return "", billy.ErrCrossedBoundary
	}
	return filepath.Join(fsys.root, clean), nil
}

// WriteFile replaces the named file's contents in one shot, creating it
// and any missing parent directories if absent. On the local backend the
// replacement is atomic (write to a temporary file, then rename); the
// memory backend truncates in place.
func (fsys *FS) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := validatePath("write", path); err != nil {
		return err
	}
	_, err := dispatch(ctx, fsys.pool, func() (struct{}, error) {
		if fsys.root == "" {
			if err := util.WriteFile(fsys.bfs, path, data, filePerm); err != nil {
				return struct{}{}, newIOError("write", path, err)
			}
			return struct{}{}, nil
		}
		real, err := fsys.localPath(path)
		if err != nil {
			return struct{}{}, newIOError("write", path, err)
		}
		// Backend OpenFile creates missing parents; keep the atomic
		// path consistent with it.
		if err := os.MkdirAll(filepath.Dir(real), 0o755); err != nil {
			return struct{}{}, newIOError("write", path, err)
		}
		if err := atomic.WriteFile(real, bytes.NewReader(data)); err != nil {
			return struct{}{}, newIOError("write", path, err)
		}
		return struct{}{}, nil
	})
	return err
}

// AppendFile appends data to the named file in one shot, creating it if
// absent.
func (fsys *FS) AppendFile(ctx context.Context, path string, data []byte) error {
	if err := validatePath("append", path); err != nil {
		return err
	}
	_, err := dispatch(ctx, fsys.pool, func() (struct{}, error) {
		f, err := fsys.bfs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, filePerm)
		if err != nil {
			return struct{}{}, newIOError("append", path, err)
		}
		total := 0
		for total < len(data) {
			n, werr := f.Write(data[total:])
			total += n
			if werr != nil {
				_ = f.Close()
				return struct{}{}, newIOError("append", path, werr)
			}
		}
		if err := f.Close(); err != nil {
			return struct{}{}, newIOError("append", path, err)
		}
		return struct{}{}, nil
	})
	return err
}

// Default is the package-level FS backed by the OS filesystem, used by the
// package-level convenience functions.
var Default = NewLocal()

// Open opens a file on the Default FS. See FS.Open.
func Open(ctx context.Context, path, mode string) (*Handle, error) {
	return Default.Open(ctx, path, mode)
}

// With runs fn with a scoped Handle on the Default FS. See FS.With.
func With(ctx context.Context, path, mode string, fn func(*Handle) error) error {
	return Default.With(ctx, path, mode, fn)
}

// Stat returns a metadata snapshot from the Default FS. See FS.Stat.
func Stat(ctx context.Context, path string) (Snapshot, error) {
	return Default.Stat(ctx, path)
}

// ReadFile reads a whole file from the Default FS. See FS.ReadFile.
func ReadFile(ctx context.Context, path string) ([]byte, error) {
	return Default.ReadFile(ctx, path)
}

// WriteFile replaces a file's contents on the Default FS. See FS.WriteFile.
func WriteFile(ctx context.Context, path string, data []byte) error {
	return Default.WriteFile(ctx, path, data)
}

// AppendFile appends to a file on the Default FS. See FS.AppendFile.
func AppendFile(ctx context.Context, path string, data []byte) error {
	return Default.AppendFile(ctx, path, data)
}
