package dirent

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramjsandal/FUSEFilesystem/internal/blockdev"
	"github.com/ramjsandal/FUSEFilesystem/internal/ferrors"
	"github.com/ramjsandal/FUSEFilesystem/internal/inode"
)

const testPerBlock = 512 / inode.Size

func newTestFixture(t *testing.T) (*blockdev.Device, *inode.Table, inode.Ref, []byte) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.blockfs")
	dev, err := blockdev.Open(path, blockdev.Geometry{BlockSize: 512, NumBlocks: 32, NumInodes: testPerBlock})
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })

	got, err := dev.AllocBlock()
	require.NoError(t, err)
	require.Equal(t, 1, got)

	table := inode.New(dev, 1, testPerBlock)
	dirInum, err := table.Alloc()
	require.NoError(t, err)
	dd := table.Get(dirInum)
	dd.SetMode(0o40755)
	dd.SetRefs(1)

	childInum, err := table.Alloc()
	require.NoError(t, err)
	child := table.Get(childInum)
	child.SetMode(0o100644)
	_ = child

	block := dev.BlockPtr(int(dd.Block()))
	return dev, table, dd, block
}

func TestPutThenLookup(t *testing.T) {
	_, table, dd, block := newTestFixture(t)

	require.NoError(t, Put(table, dd, block, "a", 1))

	inum, ok := Lookup(dd, block, "a")
	require.True(t, ok)
	assert.Equal(t, int32(1), inum)
	assert.Equal(t, int32(Size), dd.Size())
}

func TestPutIncrementsTargetRefs(t *testing.T) {
	_, table, dd, block := newTestFixture(t)
	target := table.Get(1)
	target.SetRefs(0)

	require.NoError(t, Put(table, dd, block, "a", 1))
	assert.Equal(t, int32(1), target.Refs())

	require.NoError(t, Put(table, dd, block, "b", 1))
	assert.Equal(t, int32(2), target.Refs())
}

func TestLookupMissing(t *testing.T) {
	_, _, dd, block := newTestFixture(t)
	_, ok := Lookup(dd, block, "missing")
	assert.False(t, ok)
}

func TestDeleteShiftsRemainingEntriesLeft(t *testing.T) {
	_, table, dd, block := newTestFixture(t)
	require.NoError(t, Put(table, dd, block, "a", 1))
	require.NoError(t, Put(table, dd, block, "b", 1))
	require.NoError(t, Put(table, dd, block, "c", 1))

	require.NoError(t, Delete(table, dd, block, "a"))

	assert.Equal(t, []string{"b", "c"}, List(dd, block))
}

func TestDeleteMissingReturnsNoEntry(t *testing.T) {
	_, table, dd, block := newTestFixture(t)
	err := Delete(table, dd, block, "missing")
	assert.ErrorIs(t, err, ferrors.ErrNoEntry)
}

func TestListPreservesInsertionOrder(t *testing.T) {
	_, table, dd, block := newTestFixture(t)
	for _, name := range []string{"x", "y", "z"} {
		require.NoError(t, Put(table, dd, block, name, 1))
	}
	assert.Equal(t, []string{"x", "y", "z"}, List(dd, block))
}
