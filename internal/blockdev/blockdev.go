// Package blockdev implements the "Block device" component of spec.md
// §4.1: it memory-maps a fixed-size backing file as N equal-sized blocks
// and exposes block pointers, block allocation, and the two bitmap
// regions living in block 0's low bytes.
package blockdev

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/ramjsandal/FUSEFilesystem/internal/bitmap"
	"github.com/ramjsandal/FUSEFilesystem/internal/ferrors"
)

// Geometry describes the fixed layout of a backing file.
type Geometry struct {
	// BlockSize is the size of one block, in bytes (spec.md's BS).
	BlockSize int
	// NumBlocks is the total number of blocks in the image (spec.md's NB).
	NumBlocks int
	// NumInodes is the number of inode-bitmap bits to reserve. Computed by
	// the mount layer (spec.md's NIB × INODES_PER_BLOCK).
	NumInodes int
}

// Device is a backing file memory-mapped as a block device.
type Device struct {
	geo  Geometry
	file *os.File
	data []byte
}

// Open opens or creates the backing file at path, extends it to
// NumBlocks*BlockSize bytes, and memory-maps it read-write.
func Open(path string, geo Geometry) (*Device, error) {
	if geo.BlockSize <= 0 || geo.NumBlocks <= 0 {
		return nil, ferrors.Newf(
			syscall.EINVAL,
			"invalid geometry: blockSize=%d numBlocks=%d",
			geo.BlockSize,
			geo.NumBlocks,
		)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("blockdev: opening %q: %w", path, err)
	}

	size := int64(geo.BlockSize) * int64(geo.NumBlocks)
	if err := file.Truncate(size); err != nil {
		file.Close()
		return nil, fmt.Errorf("blockdev: sizing %q to %d bytes: %w", path, size, err)
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("blockdev: mmap %q: %w", path, err)
	}

	dev := &Device{geo: geo, file: file, data: data}

	// Block 0 holds the two bitmaps themselves and must never be handed
	// out by AllocBlock (spec.md §3 invariant 6's data-block analog for
	// block 0). Marking it here, rather than only in the fresh-format
	// path, keeps it set regardless of how the caller got here.
	dev.BlockBitmap().Set(0, true)

	return dev, nil
}

// Close flushes the memory map to disk, unmaps it, and closes the
// backing file.
func (d *Device) Close() error {
	if err := d.Sync(); err != nil {
		return err
	}
	if err := unix.Munmap(d.data); err != nil {
		return fmt.Errorf("blockdev: munmap: %w", err)
	}
	return d.file.Close()
}

// Sync flushes outstanding writes to the memory map back to the backing
// file.
func (d *Device) Sync() error {
	if err := unix.Msync(d.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("blockdev: msync: %w", err)
	}
	return nil
}

func (d *Device) NumBlocks() int { return d.geo.NumBlocks }
func (d *Device) BlockSize() int { return d.geo.BlockSize }
func (d *Device) NumInodes() int { return d.geo.NumInodes }

// BlockPtr returns a mutable view of block i's BlockSize bytes.
func (d *Device) BlockPtr(i int) []byte {
	if i < 0 || i >= d.geo.NumBlocks {
		panic(fmt.Sprintf("blockdev: block %d out of range [0, %d)", i, d.geo.NumBlocks))
	}
	start := i * d.geo.BlockSize
	return d.data[start : start+d.geo.BlockSize]
}

// BytesToBlocks returns the ceiling of n / BlockSize.
func (d *Device) BytesToBlocks(n int) int {
	return (n + d.geo.BlockSize - 1) / d.geo.BlockSize
}

// BlockBitmap returns the block-free bitmap: the first
// ByteSize(NumBlocks) bytes of block 0.
func (d *Device) BlockBitmap() bitmap.Map {
	n := d.geo.NumBlocks
	return bitmap.Wrap(d.BlockPtr(0)[:bitmap.ByteSize(n)], n)
}

// InodeBitmap returns the inode-free bitmap, immediately following the
// block bitmap within block 0.
func (d *Device) InodeBitmap() bitmap.Map {
	start := bitmap.ByteSize(d.geo.NumBlocks)
	n := d.geo.NumInodes
	return bitmap.Wrap(d.BlockPtr(0)[start:start+bitmap.ByteSize(n)], n)
}

// AllocBlock scans the block bitmap for the first clear bit, marks it
// allocated, and returns its index. Returns ferrors.ErrNoSpace if none
// are free.
func (d *Device) AllocBlock() (int, error) {
	bm := d.BlockBitmap()
	i, ok := bm.FindFirstClear()
	if !ok {
		return -1, ferrors.ErrNoSpace
	}
	bm.Set(i, true)
	return i, nil
}

// FreeBlock clears block i's bit in the block bitmap.
func (d *Device) FreeBlock(i int) {
	d.BlockBitmap().Set(i, false)
}
