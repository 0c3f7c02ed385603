//go:build !linux && !darwin

package backing

import (
	"fmt"
	"os"
)

// Provision creates (or truncates) the file at path, sizes it to size bytes
// and keeps the region contents in an ordinary buffer. Platforms without the
// mapped path see writes reach the file on Flush and Release instead of
// continuously.
func Provision(path string, size int) (*Region, error) {
	if size <= 0 {
		return nil, ErrBadSize
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}

	if err := f.Truncate(int64(size)); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("backing: size %s: %w", path, err)
	}

	return &Region{f: f, path: path, data: make([]byte, size), size: size}, nil
}

// Remap resizes the backing file to newSize bytes and returns the
// replacement region. Growth is zero-filled; shrinking keeps the retained
// prefix. The receiver is consumed: on success the replacement owns the
// shared file, and on failure the caller owns the teardown.
func (r *Region) Remap(newSize int) (*Region, error) {
	if r.f == nil {
		return nil, ErrReleased
	}
	if newSize <= 0 {
		return nil, ErrBadSize
	}

	if err := r.f.Truncate(int64(newSize)); err != nil {
		return nil, fmt.Errorf("backing: resize %s: %w", r.path, err)
	}

	data := make([]byte, newSize)
	copy(data, r.data)
	r.data = nil

	return &Region{f: r.f, path: r.path, data: data, size: newSize}, nil
}

// Release persists the buffer when the file is being kept, closes the file
// handle and, when deleteFile is set, removes the backing file.
func (r *Region) Release(deleteFile bool) error {
	var err error
	if !deleteFile && r.data != nil && r.f != nil {
		if _, wErr := r.f.WriteAt(r.data, 0); wErr != nil {
			err = wErr
		}
	}
	r.data = nil

	if r.f != nil {
		if cErr := r.f.Close(); cErr != nil && err == nil {
			err = cErr
		}
		r.f = nil
	}

	if deleteFile && r.path != "" {
		if rmErr := os.Remove(r.path); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}

// Flush writes the buffer through to the backing file.
func (r *Region) Flush() error {
	if r.data == nil || r.f == nil {
		return ErrReleased
	}
	if _, err := r.f.WriteAt(r.data, 0); err != nil {
		return fmt.Errorf("backing: write back %s: %w", r.path, err)
	}
	return r.f.Sync()
}
