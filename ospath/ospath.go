// Package ospath provides synchronous path probes against the OS
// filesystem: existence, type, and size checks. Each function is a
// stateless pass-through to a single metadata syscall with no concurrency
// contract beyond "call once, get a result or an error". Path-string
// manipulation (join, dirname, splitting) is path/filepath's job and is
// not duplicated here.
package ospath

import "os"

// Exists reports whether the named path exists. A false result with a
// non-nil error means existence could not be determined (for example,
// permission denied on a parent directory), not that the path is absent.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// IsFile reports whether the named path exists and is a regular file.
func IsFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// IsDir reports whether the named path exists and is a directory.
func IsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// GetSize returns the size in bytes of the named file.
func GetSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
