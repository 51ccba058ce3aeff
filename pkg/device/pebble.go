package device

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// PebblePageSize is the granularity at which the image is stored. Each page
// is one key; a write that spans pages can tear between them, like a real
// page-programmed part.
const PebblePageSize = 64

var pebbleSizeKey = []byte("nvm/meta/size")

// PebbleConfig holds configuration for a pebble-backed device
type PebbleConfig struct {
	Path string // Pebble directory
	Size int64  // Capacity in bytes
	FS   vfs.FS // Optional filesystem, vfs.NewMem() in tests
}

// Pebble persists a memory image in a pebble database. Pages never written
// read as erased cells.
type Pebble struct {
	db    *pebble.DB
	size  int64
	mutex sync.Mutex
}

// NewPebble opens or creates the image. Reopening with a different size is
// rejected so records are never read through the wrong geometry.
func NewPebble(config PebbleConfig) (*Pebble, error) {
	if config.Size <= 0 {
		return nil, fmt.Errorf("pebble device: size must be positive, got %d", config.Size)
	}

	opts := &pebble.Options{}
	if config.FS != nil {
		opts.FS = config.FS
	}

	db, err := pebble.Open(config.Path, opts)
	if err != nil {
		return nil, err
	}

	d := &Pebble{db: db, size: config.Size}
	if err := d.checkSize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

func (d *Pebble) checkSize() error {
	value, closer, err := d.db.Get(pebbleSizeKey)
	if errors.Is(err, pebble.ErrNotFound) {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(d.size))
		return d.db.Set(pebbleSizeKey, buf, pebble.Sync)
	}
	if err != nil {
		return err
	}
	defer closer.Close()

	if len(value) != 8 {
		return fmt.Errorf("pebble device: malformed size record")
	}
	if stored := int64(binary.LittleEndian.Uint64(value)); stored != d.size {
		return fmt.Errorf("pebble device: image size is %d, configured %d", stored, d.size)
	}
	return nil
}

func pageKey(page int64) []byte {
	return []byte(fmt.Sprintf("nvm/page/%08x", page))
}

func (d *Pebble) readPage(page int64) ([]byte, error) {
	value, closer, err := d.db.Get(pageKey(page))
	if errors.Is(err, pebble.ErrNotFound) {
		return erased(PebblePageSize), nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	buf := erased(PebblePageSize)
	copy(buf, value)
	return buf, nil
}

// Read reads n bytes at off
func (d *Pebble) Read(ctx context.Context, off int64, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.db == nil {
		return nil, ErrClosed
	}
	if err := CheckRange(d.size, off, n); err != nil {
		return nil, err
	}

	out := make([]byte, 0, n)
	for pos := off; pos < off+int64(n); {
		page := pos / PebblePageSize
		buf, err := d.readPage(page)
		if err != nil {
			return nil, err
		}
		start := pos - page*PebblePageSize
		end := int64(PebblePageSize)
		if remaining := off + int64(n) - pos; remaining < end-start {
			end = start + remaining
		}
		out = append(out, buf[start:end]...)
		pos += end - start
	}
	return out, nil
}

// Write rewrites every page p touches whose contents change
func (d *Pebble) Write(ctx context.Context, off int64, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.db == nil {
		return ErrClosed
	}
	if err := CheckRange(d.size, off, len(p)); err != nil {
		return err
	}

	for pos := off; pos < off+int64(len(p)); {
		page := pos / PebblePageSize
		current, err := d.readPage(page)
		if err != nil {
			return err
		}

		start := pos - page*PebblePageSize
		next := append([]byte(nil), current...)
		n := copy(next[start:], p[pos-off:])

		if !bytes.Equal(current, next) {
			if err := d.db.Set(pageKey(page), next, pebble.Sync); err != nil {
				return err
			}
		}
		pos += int64(n)
	}
	return nil
}

// WaitReady returns once ctx allows; page writes are synced as they happen
func (d *Pebble) WaitReady(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.db == nil {
		return ErrClosed
	}
	return ctx.Err()
}

// Size returns the capacity in bytes
func (d *Pebble) Size() int64 {
	return d.size
}

// Close closes the database
func (d *Pebble) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}
