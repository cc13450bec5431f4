package inode

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramjsandal/FUSEFilesystem/internal/blockdev"
)

const testPerBlock = 512 / Size

func newTestTable(t *testing.T) (*blockdev.Device, *Table) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.blockfs")
	dev, err := blockdev.Open(path, blockdev.Geometry{BlockSize: 512, NumBlocks: 32, NumInodes: testPerBlock * 2})
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })

	// Reserve the two inode-table blocks (1 and 2) the way mount.Init
	// does, so Alloc's data-block indices land outside the table.
	for want := 1; want <= 2; want++ {
		got, err := dev.AllocBlock()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	return dev, New(dev, 1, testPerBlock)
}

func TestAllocAssignsDistinctBlocks(t *testing.T) {
	_, table := newTestTable(t)

	a, err := table.Alloc()
	require.NoError(t, err)
	b, err := table.Alloc()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, table.Get(a).Block(), table.Get(b).Block())
}

func TestIsDirectoryMaskAndShift(t *testing.T) {
	_, table := newTestTable(t)
	i, err := table.Alloc()
	require.NoError(t, err)

	node := table.Get(i)
	node.SetMode(0o40755)
	assert.True(t, node.IsDirectory())

	node.SetMode(0o100644)
	assert.False(t, node.IsDirectory())
}

func TestOwnerPerms(t *testing.T) {
	_, table := newTestTable(t)
	i, err := table.Alloc()
	require.NoError(t, err)

	node := table.Get(i)
	node.SetMode(0o100644)
	assert.True(t, node.CanRead())
	assert.False(t, node.CanWrite())

	node.SetMode(0o100600)
	assert.True(t, node.CanWrite())
}

func TestDecrementReferencesFreesAtZero(t *testing.T) {
	dev, table := newTestTable(t)
	i, err := table.Alloc()
	require.NoError(t, err)
	node := table.Get(i)
	node.SetRefs(1)
	block := int(node.Block())

	table.DecrementReferences(i)

	assert.False(t, dev.InodeBitmap().Get(i))
	assert.False(t, dev.BlockBitmap().Get(block))
}

func TestGrowShrinkPreconditionsPanic(t *testing.T) {
	_, table := newTestTable(t)
	i, err := table.Alloc()
	require.NoError(t, err)
	node := table.Get(i)
	node.SetSize(10)

	assert.Panics(t, func() { table.Grow(node, 5) })
	assert.Panics(t, func() { table.Shrink(node, 20) })
}
