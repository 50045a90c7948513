package rapfiles

import (
	"context"
	"io"
	"runtime"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/go-git/go-billy/v5"
)

// Handle is an open file bound to one OS descriptor and one mode. Every
// operation acquires the handle's exclusive lock before touching the
// descriptor and releases it on completion, so operations on the same
// Handle are fully serialized and the cursor position is never observed
// mid-operation. Operations on different Handles are fully independent,
// even when they name the same path.
//
// The lock is a plain mutex: waiting operations are serialized but not
// guaranteed to start in first-come-first-served order.
//
// All operations run on the owning FS's background pool; see the pool
// documentation for cancellation semantics.
type Handle struct {
	fs   *FS
	path string
	mode Mode

	mu     sync.Mutex
	file   billy.File
	closed bool
}

// Name returns the path the handle was opened with.
func (h *Handle) Name() string { return h.path }

// Mode returns the open mode derived at open time.
func (h *Handle) Mode() Mode { return h.mode }

// Read reads up to size bytes from the current position. A negative size
// reads every remaining byte until end-of-file; the buffer grows without
// bound, so do not do this on files of unknown size.
//
// For size >= 0 a single bounded read is issued, and the call may
// legitimately return fewer bytes than requested even though more remain;
// this is the binding contract, not an error. Callers wanting "fill
// exactly size bytes or EOF" must loop.
//
// In binary mode the raw bytes are returned. In text mode the exact bytes
// read must form valid UTF-8; a decode error is returned otherwise. Note
// that a bounded read can split a multi-byte codepoint at the boundary,
// which is reported as a decode error rather than handled transparently.
func (h *Handle) Read(ctx context.Context, size int) ([]byte, error) {
	return dispatch(ctx, h.fs.pool, func() ([]byte, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.readLocked(size)
	})
}

// ReadString is Read with the result converted to a string. It validates
// UTF-8 regardless of the handle's binary flag.
func (h *Handle) ReadString(ctx context.Context, size int) (string, error) {
	return dispatch(ctx, h.fs.pool, func() (string, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		data, err := h.readLocked(size)
		if err != nil {
			return "", err
		}
		if h.mode.Binary && !utf8.Valid(data) {
			return "", newDecodeError("read", h.path)
		}
		return string(data), nil
	})
}

func (h *Handle) readLocked(size int) ([]byte, error) {
	if h.closed {
		return nil, errClosed("read", h.path)
	}
	if !h.mode.Read {
		return nil, errNotReadable("read", h.path)
	}

	var data []byte
	switch {
	case size < 0:
		var err error
		data, err = io.ReadAll(h.file)
		if err != nil {
			return nil, newIOError("read", h.path, err)
		}
	case size == 0:
		data = []byte{}
	default:
		buf := make([]byte, size)
		n, err := h.file.Read(buf)
		if err != nil && err != io.EOF {
			return nil, newIOError("read", h.path, err)
		}
		data = buf[:n]
	}

	if !h.mode.Binary && !utf8.Valid(data) {
		return nil, newDecodeError("read", h.path)
	}
	return data, nil
}

// Write writes the entire buffer to the current position (or to the end of
// the file in append mode), retrying partial writes internally. It returns
// the total byte count written and guarantees either "all bytes written"
// or a surfaced I/O error; never a silent partial write.
func (h *Handle) Write(ctx context.Context, data []byte) (int, error) {
	return dispatch(ctx, h.fs.pool, func() (int, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.writeLocked(data)
	})
}

// WriteString writes s encoded as UTF-8. See Write.
func (h *Handle) WriteString(ctx context.Context, s string) (int, error) {
	return h.Write(ctx, []byte(s))
}

func (h *Handle) writeLocked(data []byte) (int, error) {
	if h.closed {
		return 0, errClosed("write", h.path)
	}
	if !h.mode.Write {
		return 0, errNotWritable("write", h.path)
	}

	total := 0
	for total < len(data) {
		n, err := h.file.Write(data[total:])
		total += n
		if err != nil {
			return total, newIOError("write", h.path, err)
		}
		if n == 0 {
			return total, newIOError("write", h.path, io.ErrNoProgress)
		}
	}
	return total, nil
}

// ReadLine reads one line from the current position, scanning forward
// until a '\n' is seen, end-of-file is reached, or size bytes have been
// read (when size > 0), whichever comes first. The terminator is included
// unless the line was truncated by EOF or the size cap. An empty result
// means end-of-file. Text mode validates the returned bytes as UTF-8.
func (h *Handle) ReadLine(ctx context.Context, size int) ([]byte, error) {
	return dispatch(ctx, h.fs.pool, func() ([]byte, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.readLineLocked(size)
	})
}

func (h *Handle) readLineLocked(size int) ([]byte, error) {
	if h.closed {
		return nil, errClosed("readline", h.path)
	}
	if !h.mode.Read {
		return nil, errNotReadable("readline", h.path)
	}

	// Byte-at-a-time scan keeps the cursor exactly at the end of the
	// returned bytes, which read-ahead buffering would have to undo
	// with a seek.
	var line []byte
	buf := make([]byte, 1)
	for size < 0 || len(line) < size {
		n, err := h.file.Read(buf)
		if n > 0 {
			line = append(line, buf[0])
			if buf[0] == '\n' {
				break
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, newIOError("readline", h.path, err)
		}
	}

	if !h.mode.Binary && !utf8.Valid(line) {
		return nil, newDecodeError("readline", h.path)
	}
	return line, nil
}

// ReadLines reads lines from the current position to end-of-file,
// returning them as a slice. When hint > 0, reading stops once hint lines
// have been accumulated. A final line with no trailing terminator is
// included if non-empty. In text mode every line must independently be
// valid UTF-8; a decode failure on any line fails the whole call.
func (h *Handle) ReadLines(ctx context.Context, hint int) ([][]byte, error) {
	return dispatch(ctx, h.fs.pool, func() ([][]byte, error) {
		h.mu.Lock()
		defer h.mu.Unlock()

		var lines [][]byte
		for hint <= 0 || len(lines) < hint {
			line, err := h.readLineLocked(-1)
			if err != nil {
				return nil, err
			}
			if len(line) == 0 {
				break
			}
			lines = append(lines, line)
		}
		return lines, nil
	})
}

// ReadLinesString is ReadLines with each line converted to a string. It
// validates UTF-8 per line regardless of the handle's binary flag; a
// decode failure on any line fails the whole call.
func (h *Handle) ReadLinesString(ctx context.Context, hint int) ([]string, error) {
	return dispatch(ctx, h.fs.pool, func() ([]string, error) {
		h.mu.Lock()
		defer h.mu.Unlock()

		var lines []string
		for hint <= 0 || len(lines) < hint {
			line, err := h.readLineLocked(-1)
			if err != nil {
				return nil, err
			}
			if len(line) == 0 {
				break
			}
			if h.mode.Binary && !utf8.Valid(line) {
				return nil, newDecodeError("readlines", h.path)
			}
			lines = append(lines, string(line))
		}
		return lines, nil
	})
}

// Seek positions the cursor at offset relative to whence and returns the
// new absolute position. Whence must be io.SeekStart (0), io.SeekCurrent
// (1) or io.SeekEnd (2); any other value fails validation before any I/O.
func (h *Handle) Seek(ctx context.Context, offset int64, whence int) (int64, error) {
	if whence != io.SeekStart && whence != io.SeekCurrent && whence != io.SeekEnd {
		return 0, newValidationError("seek", h.path,
			"invalid whence "+strconv.Itoa(whence)+": must be one of 0 (start), 1 (current), 2 (end)", nil)
	}
	return dispatch(ctx, h.fs.pool, func() (int64, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.closed {
			return 0, errClosed("seek", h.path)
		}
		pos, err := h.file.Seek(offset, whence)
		if err != nil {
			return 0, newIOError("seek", h.path, err)
		}
		return pos, nil
	})
}

// Tell returns the current absolute cursor position without moving it.
func (h *Handle) Tell(ctx context.Context) (int64, error) {
	return dispatch(ctx, h.fs.pool, func() (int64, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.closed {
			return 0, errClosed("tell", h.path)
		}
		pos, err := h.file.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, newIOError("tell", h.path, err)
		}
		return pos, nil
	})
}

// Close releases the descriptor. It is idempotent: the first call closes,
// every subsequent call returns nil. The descriptor is also released when
// the last reference to the handle is garbage collected, but relying on
// that delays the release arbitrarily; prefer Close or FS.With.
func (h *Handle) Close(ctx context.Context) error {
	_, err := dispatch(ctx, h.fs.pool, func() (struct{}, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.closed {
			return struct{}{}, nil
		}
		h.closed = true
		runtime.SetFinalizer(h, nil)
		if err := h.file.Close(); err != nil {
			return struct{}{}, newIOError("close", h.path, err)
		}
		return struct{}{}, nil
	})
	return err
}

// finalize is the safety net for handles dropped without Close.
func (h *Handle) finalize() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		_ = h.file.Close()
	}
}
