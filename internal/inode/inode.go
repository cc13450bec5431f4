// Package inode implements the "Inode table" component of spec.md §4.2:
// allocation, lookup, reference counting, and grow/shrink of fixed-size
// inode records packed into the inode-table blocks that immediately
// follow block 0.
package inode

import (
	"encoding/binary"

	"github.com/ramjsandal/FUSEFilesystem/internal/blockdev"
	"github.com/ramjsandal/FUSEFilesystem/internal/ferrors"
)

// Size is the on-disk width of one inode record: four native-endian
// int32 fields (refs, mode, size, block), per spec.md §6 ("four integer
// fields in order"). Native rather than portable endianness is
// deliberate — spec.md §6: "the format is not portable across
// architectures."
const Size = 16

// ModeDirBit is the high octal digit spec.md §3 reserves for
// directories: mode>>12 == 4.
const ModeDirBit = 4

// Ref is a view of one inode record, backed directly by the
// memory-mapped inode-table block.
type Ref struct {
	raw []byte
}

// viewAt returns a Ref over the inode record at byte offset off within
// block.
func viewAt(block []byte, off int) Ref {
	return Ref{raw: block[off : off+Size]}
}

func (r Ref) Refs() int32  { return int32(binary.NativeEndian.Uint32(r.raw[0:4])) }
func (r Ref) Mode() int32  { return int32(binary.NativeEndian.Uint32(r.raw[4:8])) }
func (r Ref) Size() int32  { return int32(binary.NativeEndian.Uint32(r.raw[8:12])) }
func (r Ref) Block() int32 { return int32(binary.NativeEndian.Uint32(r.raw[12:16])) }

func (r Ref) SetRefs(v int32)  { binary.NativeEndian.PutUint32(r.raw[0:4], uint32(v)) }
func (r Ref) SetMode(v int32)  { binary.NativeEndian.PutUint32(r.raw[4:8], uint32(v)) }
func (r Ref) SetSize(v int32)  { binary.NativeEndian.PutUint32(r.raw[8:12], uint32(v)) }
func (r Ref) SetBlock(v int32) { binary.NativeEndian.PutUint32(r.raw[12:16], uint32(v)) }

// IsDirectory reports whether the inode's type digit marks it a
// directory (spec.md §4.3: "node.mode / 010000 == 4", restated here as
// a mask-and-shift per §9's recommendation).
func (r Ref) IsDirectory() bool {
	return r.Mode()&^0o7777 == ModeDirBit<<12
}

// OwnerPerms returns the owner permission triad: mask off the type
// digit, shift the owner octal digit into place (spec.md §4.5 "Permission
// bit extraction", restated as mask-and-shift per §9).
func (r Ref) OwnerPerms() int32 {
	return (r.Mode() >> 6) & 07
}

func (r Ref) CanRead() bool  { return r.OwnerPerms()&04 != 0 }
func (r Ref) CanWrite() bool { return r.OwnerPerms()&02 != 0 }

// Table addresses inode records within the inode-table blocks of a
// block device.
type Table struct {
	dev             *blockdev.Device
	inodeBlockBegin int
	inodesPerBlock  int
}

// New returns a Table whose records begin at inodeBlockBegin and span
// the device's inode bitmap length.
func New(dev *blockdev.Device, inodeBlockBegin, inodesPerBlock int) *Table {
	return &Table{dev: dev, inodeBlockBegin: inodeBlockBegin, inodesPerBlock: inodesPerBlock}
}

// Get returns a Ref to inode i. Precondition: i >= 0 and the inode
// bitmap bit i is set (spec.md §4.2); violating it is a programming
// error, not a reportable one, so this panics rather than erroring.
func (t *Table) Get(i int) Ref {
	if i < 0 {
		panic("inode: negative inode index")
	}
	if !t.dev.InodeBitmap().Get(i) {
		panic("inode: inode index is not allocated")
	}
	blockNum := t.inodeBlockBegin + i/t.inodesPerBlock
	off := (i % t.inodesPerBlock) * Size
	return viewAt(t.dev.BlockPtr(blockNum), off)
}

// Alloc finds the lowest clear inode-bitmap bit, allocates a data block
// for it, sets the bit, and assigns the new inode's block field. On
// exhaustion of either bitmap it returns ferrors.ErrNoSpace and leaves
// both bitmaps unchanged (spec.md §4.2: "bitmap change is not made if
// block allocation fails").
func (t *Table) Alloc() (int, error) {
	bm := t.dev.InodeBitmap()
	i, ok := bm.FindFirstClear()
	if !ok {
		return -1, ferrors.ErrNoSpace
	}
	blk, err := t.dev.AllocBlock()
	if err != nil {
		return -1, err
	}
	bm.Set(i, true)
	node := t.Get(i)
	node.SetRefs(0)
	node.SetMode(0)
	node.SetSize(0)
	node.SetBlock(int32(blk))
	return i, nil
}

// Free frees inode i's data block, then clears its inode-bitmap bit.
func (t *Table) Free(i int) {
	node := t.Get(i)
	if node.Block() >= 0 {
		t.dev.FreeBlock(int(node.Block()))
	}
	t.dev.InodeBitmap().Set(i, false)
}

// DecrementReferences decreases inode i's refs by one; when it reaches
// zero, frees the inode (spec.md §4.2).
func (t *Table) DecrementReferences(i int) {
	node := t.Get(i)
	r := node.Refs() - 1
	node.SetRefs(r)
	if r <= 0 {
		t.Free(i)
	}
}

// Grow sets node's size to size. Precondition: size >= node.Size() and
// size <= BlockSize (spec.md §4.2); does not zero-fill.
func (t *Table) Grow(node Ref, size int) {
	if size < int(node.Size()) || size > t.dev.BlockSize() {
		panic("inode: grow precondition violated")
	}
	node.SetSize(int32(size))
}

// Shrink sets node's size to size. Precondition: 0 <= size <=
// node.Size(); does not erase tail bytes.
func (t *Table) Shrink(node Ref, size int) {
	if size < 0 || size > int(node.Size()) {
		panic("inode: shrink precondition violated")
	}
	node.SetSize(int32(size))
}

// GetBnum returns node's k-th data block index. Precondition: k == 0;
// reserved for future multi-block inodes (spec.md §4.2).
func (t *Table) GetBnum(node Ref, k int) int32 {
	if k != 0 {
		panic("inode: multi-block inodes are not supported")
	}
	return node.Block()
}
