package device

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileConfig holds configuration for a file-backed device
type FileConfig struct {
	Path string // Path to the memory image
	Size int64  // Capacity in bytes
}

// File is a memory image on disk. A missing image is created erased; an
// existing image must be at least Size bytes.
type File struct {
	file   *os.File
	config FileConfig
	mutex  sync.Mutex
	dirty  bool
}

// NewFile opens or creates the image described by config
func NewFile(config FileConfig) (*File, error) {
	if config.Size <= 0 {
		return nil, fmt.Errorf("file device: size must be positive, got %d", config.Size)
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0750); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(config.Path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	if stat.Size() < config.Size {
		// Extend with erased cells so a fresh image reads like blank EEPROM.
		if _, err := file.WriteAt(erased(int(config.Size-stat.Size())), stat.Size()); err != nil {
			_ = file.Close()
			return nil, err
		}
		if err := file.Sync(); err != nil {
			_ = file.Close()
			return nil, err
		}
	}

	return &File{file: file, config: config}, nil
}

// Read reads n bytes at off
func (f *File) Read(ctx context.Context, off int64, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.file == nil {
		return nil, ErrClosed
	}
	if err := CheckRange(f.config.Size, off, n); err != nil {
		return nil, err
	}

	buf := make([]byte, n)
	if _, err := f.file.ReadAt(buf, off); err != nil {
		return nil, err
	}
	return buf, nil
}

// Write writes only the runs of p that differ from the image
func (f *File) Write(ctx context.Context, off int64, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.file == nil {
		return ErrClosed
	}
	if err := CheckRange(f.config.Size, off, len(p)); err != nil {
		return err
	}

	current := make([]byte, len(p))
	if _, err := f.file.ReadAt(current, off); err != nil {
		return err
	}

	for _, run := range changedRuns(current, p, 1) {
		if _, err := f.file.WriteAt(p[run.start:run.end], off+int64(run.start)); err != nil {
			return err
		}
		f.dirty = true
	}
	return nil
}

// WaitReady flushes outstanding writes to stable storage
func (f *File) WaitReady(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.file == nil {
		return ErrClosed
	}
	if !f.dirty {
		return nil
	}
	if err := f.file.Sync(); err != nil {
		return err
	}
	f.dirty = false
	return nil
}

// Size returns the capacity in bytes
func (f *File) Size() int64 {
	return f.config.Size
}

// Path returns the image path
func (f *File) Path() string {
	return f.config.Path
}

// Close syncs and closes the image
func (f *File) Close() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.file == nil {
		return nil
	}

	syncErr := f.file.Sync()
	closeErr := f.file.Close()
	f.file = nil
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}

type run struct {
	start, end int
}

// changedRuns returns the index ranges where next differs from current,
// widened to multiples of unit relative to the start of the slices.
func changedRuns(current, next []byte, unit int) []run {
	var runs []run
	for i := 0; i < len(next); i += unit {
		end := i + unit
		if end > len(next) {
			end = len(next)
		}
		if bytes.Equal(current[i:end], next[i:end]) {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].end == i {
			runs[n-1].end = end
			continue
		}
		runs = append(runs, run{start: i, end: end})
	}
	return runs
}
