//go:build linux || darwin

package backing

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Provision creates (or truncates) the file at path, sizes it to size bytes
// and maps it read/write. Sizing the empty file is the zero-fill mechanism: a
// freshly extended file reads as zeros without writing a byte. No partial
// state survives a failure.
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

	data, err := syscall.Mmap(
		int(f.Fd()),
		0,
		size,
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_SHARED,
	)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("backing: mmap %s: %w", path, err)
	}

	return &Region{f: f, path: path, data: data, size: size}, nil
}

// Remap resizes the backing file to newSize bytes and maps it afresh,
// returning the replacement region. Growth reads as zeros; shrinking keeps
// the retained prefix untouched. The new view's base address may differ from
// the old one.
//
// The receiver is consumed either way: its mapping is dropped first
// (shrinking a file under a live mapping leaves pages that fault on touch),
// and on success the replacement owns the shared file, so the receiver must
// not be used or released afterwards. On failure the caller owns the
// teardown of the file.
func (r *Region) Remap(newSize int) (*Region, error) {
	if r.f == nil {
		return nil, ErrReleased
	}
	if newSize <= 0 {
		return nil, ErrBadSize
	}

	if r.data != nil {
		if err := syscall.Munmap(r.data); err != nil {
			return nil, fmt.Errorf("backing: unmap before resize: %w", err)
		}
		r.data = nil
	}

	if err := r.f.Truncate(int64(newSize)); err != nil {
		return nil, fmt.Errorf("backing: resize %s: %w", r.path, err)
	}

	data, err := syscall.Mmap(
		int(r.f.Fd()),
		0,
		newSize,
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_SHARED,
	)
	if err != nil {
		return nil, fmt.Errorf("backing: remap %s after resize: %w", r.path, err)
	}

	return &Region{f: r.f, path: r.path, data: data, size: newSize}, nil
}

// Release drops the mapping, closes the file handle and, when deleteFile is
// set, removes the backing file. Removal happens strictly after the mapping
// is gone and the handle is closed; deleting a still-mapped file is not safe
// everywhere.
func (r *Region) Release(deleteFile bool) error {
	if r.data != nil {
		_ = syscall.Munmap(r.data)
		r.data = nil
	}

	var err error
	if r.f != nil {
		err = r.f.Close()
		r.f = nil
	}

	if deleteFile && r.path != "" {
		if rmErr := os.Remove(r.path); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}

// Flush forces dirty pages of the region back to the backing file.
func (r *Region) Flush() error {
	if r.data == nil {
		return ErrReleased
	}
	return unix.Msync(r.data, unix.MS_SYNC)
}
