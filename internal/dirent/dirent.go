// Package dirent implements the "Directory" component of spec.md §4.3:
// put/lookup/delete/list over the fixed-width directory-entry array
// that makes up a directory's single data block.
package dirent

import (
	"bytes"
	"encoding/binary"

	"github.com/ramjsandal/FUSEFilesystem/internal/ferrors"
	"github.com/ramjsandal/FUSEFilesystem/internal/inode"
)

// NameLength is DIR_NAME_LENGTH from spec.md's glossary: the maximum
// name length a directory entry can hold, including its NUL
// terminator.
const NameLength = 28

// entrySize is NameLength plus the 4-byte inum field, which immediately
// follows the name bytes (spec.md §6: "name ... inum", no extra padding
// specified).
const entrySize = NameLength + 4

// Entry is a view of one directory entry, backed directly by the
// memory-mapped data block.
type Entry struct {
	raw []byte
}

func entryAt(block []byte, off int) Entry {
	return Entry{raw: block[off : off+entrySize]}
}

// Name returns the entry's name with its NUL terminator and any
// trailing padding stripped.
func (e Entry) Name() string {
	raw := e.raw[:NameLength]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw)
}

func (e Entry) Inum() int32 {
	return int32(binary.NativeEndian.Uint32(e.raw[NameLength : NameLength+4]))
}

func (e Entry) setName(name string) {
	var buf [NameLength]byte
	copy(buf[:], name)
	copy(e.raw[:NameLength], buf[:])
}

func (e Entry) setInum(inum int32) {
	binary.NativeEndian.PutUint32(e.raw[NameLength:NameLength+4], uint32(inum))
}

// Size is the on-disk width of one directory entry.
const Size = entrySize

// Lookup performs a linear scan of dd's live entries for an exact-match
// name, returning the stored inum, or (-1, false) if not found or dd is
// not a directory (spec.md §4.3).
func Lookup(dd inode.Ref, block []byte, name string) (int32, bool) {
	if !dd.IsDirectory() {
		return -1, false
	}
	for i := 0; i < count(dd); i++ {
		e := entryAt(block, i*entrySize)
		if e.Name() == name {
			return e.Inum(), true
		}
	}
	return -1, false
}

// Put appends a new entry (name, inum) at offset dd.Size() in block,
// increments the target inode's refs, and grows dd by one entry. The
// caller must already have checked for duplicates and for the name's
// length bound; Put trusts both (spec.md §4.3: "Does not check for
// duplicates; callers must").
func Put(t *inode.Table, dd inode.Ref, block []byte, name string, inum int32) error {
	off := int(dd.Size())
	if off+entrySize > len(block) {
		return ferrors.ErrNoSpace
	}
	e := entryAt(block, off)
	e.setName(name)
	e.setInum(inum)

	target := t.Get(int(inum))
	target.SetRefs(target.Refs() + 1)

	t.Grow(dd, off+entrySize)
	return nil
}

// Delete finds the entry named name, decrements references on its
// inum, shifts the remaining entries left by one slot to preserve
// contiguity and order, and shrinks dd by one entry. Returns
// ferrors.ErrNoEntry if name is not present (spec.md §4.3).
func Delete(t *inode.Table, dd inode.Ref, block []byte, name string) error {
	n := count(dd)
	idx := -1
	for i := 0; i < n; i++ {
		if entryAt(block, i*entrySize).Name() == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ferrors.ErrNoEntry
	}

	t.DecrementReferences(int(entryAt(block, idx*entrySize).Inum()))

	for i := idx; i < n-1; i++ {
		copy(block[i*entrySize:(i+1)*entrySize], block[(i+1)*entrySize:(i+2)*entrySize])
	}
	t.Shrink(dd, (n-1)*entrySize)
	return nil
}

// List returns the names of all live entries in insertion order.
func List(dd inode.Ref, block []byte) []string {
	n := count(dd)
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		names = append(names, entryAt(block, i*entrySize).Name())
	}
	return names
}

func count(dd inode.Ref) int {
	return int(dd.Size()) / entrySize
}
