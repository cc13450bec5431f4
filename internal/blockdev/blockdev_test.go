package blockdev

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.blockfs")
	dev, err := Open(path, Geometry{BlockSize: 512, NumBlocks: 16, NumInodes: 32})
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	return dev
}

func TestOpenSizesBackingFile(t *testing.T) {
	dev := newTestDevice(t)
	assert.Equal(t, 16, dev.NumBlocks())
	assert.Equal(t, 512, dev.BlockSize())
	assert.Len(t, dev.BlockPtr(0), 512)
}

func TestBlockPtrOutOfRangePanics(t *testing.T) {
	dev := newTestDevice(t)
	assert.Panics(t, func() { dev.BlockPtr(16) })
}

func TestBytesToBlocks(t *testing.T) {
	dev := newTestDevice(t)
	assert.Equal(t, 1, dev.BytesToBlocks(1))
	assert.Equal(t, 1, dev.BytesToBlocks(512))
	assert.Equal(t, 2, dev.BytesToBlocks(513))
}

func TestOpenReservesBlockZero(t *testing.T) {
	dev := newTestDevice(t)
	assert.True(t, dev.BlockBitmap().Get(0), "block 0 holds the bitmaps and must be reserved on open")
}

func TestAllocFreeBlock(t *testing.T) {
	dev := newTestDevice(t)

	first, err := dev.AllocBlock()
	require.NoError(t, err)
	assert.Equal(t, 1, first, "block 0 is reserved for the bitmaps, so the first free block is 1")

	second, err := dev.AllocBlock()
	require.NoError(t, err)
	assert.Equal(t, 2, second)

	dev.FreeBlock(first)
	third, err := dev.AllocBlock()
	require.NoError(t, err)
	assert.Equal(t, first, third, "freed blocks should be reused before higher indices")
}

func TestAllocBlockExhaustion(t *testing.T) {
	dev := newTestDevice(t)
	// Block 0 is reserved for the bitmaps, so only NumBlocks-1 are free.
	for i := 0; i < dev.NumBlocks()-1; i++ {
		_, err := dev.AllocBlock()
		require.NoError(t, err)
	}
	_, err := dev.AllocBlock()
	assert.Error(t, err)
}

func TestBlockAndInodeBitmapsDoNotOverlap(t *testing.T) {
	dev := newTestDevice(t)
	dev.BlockBitmap().Set(0, true)
	assert.False(t, dev.InodeBitmap().Get(0), "writing the block bitmap must not leak into the inode bitmap")
}
