// Package blockfs is the public surface of a single-file, memory-mapped
// inode file system: stat, read, write, truncate, mknod, unlink, link,
// rename, rmdir, and list, composed from the internal block device,
// bitmap, inode-table, directory, and path-resolver layers.
//
// Every regular file and every directory occupies exactly one data
// block; there is no journaling and no multi-client concurrency. A
// single Storage value owns all mutable state — there is no package-
// level state to serialize access to.
package blockfs

import (
	"log"
	"os"

	"github.com/ramjsandal/FUSEFilesystem/internal/dirent"
	"github.com/ramjsandal/FUSEFilesystem/internal/ferrors"
	"github.com/ramjsandal/FUSEFilesystem/internal/inode"
	"github.com/ramjsandal/FUSEFilesystem/internal/mount"
	"github.com/ramjsandal/FUSEFilesystem/internal/pathutil"
)

// Re-exported error kinds, so callers never need to import
// internal/ferrors directly.
var (
	ErrNoEntry      = ferrors.ErrNoEntry
	ErrExists       = ferrors.ErrExists
	ErrNotDirectory = ferrors.ErrNotDirectory
	ErrIsDirectory  = ferrors.ErrIsDirectory
	ErrNotEmpty     = ferrors.ErrNotEmpty
	ErrNoSpace      = ferrors.ErrNoSpace
	ErrFileTooBig   = ferrors.ErrFileTooBig
	ErrBadSeek      = ferrors.ErrBadSeek
	ErrDenied       = ferrors.ErrDenied
	ErrPermDenied   = ferrors.ErrPermDenied
	ErrInvalid      = ferrors.ErrInvalid
	ErrUnsupported  = ferrors.ErrUnsupported
)

// Geometry configures a new or existing image's block size and block
// count (spec.md §3: "typical: BS = 4096, NB = 256").
type Geometry = mount.Config

// DefaultGeometry matches spec.md §3's stated typical values.
var DefaultGeometry = Geometry{BlockSize: 4096, NumBlocks: 256}

// Stat is the information storage.Stat fills for a path (spec.md
// §4.5).
type Stat struct {
	Inode int32
	Mode  int32
	Size  int64
	Refs  int32
	Uid   int
}

// Storage is a mounted image: the single value that spec.md §9's
// "Global state" note asks for in place of process-wide state.
type Storage struct {
	m *mount.Mount
}

// Open mounts path, formatting it fresh if it is a new or zeroed image,
// or verifying its consistency if it already holds a filesystem
// (spec.md §4.6).
func Open(path string, geo Geometry, logger *log.Logger) (*Storage, error) {
	m, err := mount.Init(path, geo, logger)
	if err != nil {
		return nil, err
	}
	return &Storage{m: m}, nil
}

// Close flushes and releases the backing file. There is no explicit
// unmount step beyond this (spec.md §5: "guaranteed release only via
// process exit" in the original; here Close provides it explicitly).
func (s *Storage) Close() error {
	return s.m.Close()
}

func (s *Storage) resolve(path string) (int32, inode.Ref, error) {
	inum, err := s.m.TreeLookup(path)
	if err != nil {
		return -1, inode.Ref{}, err
	}
	return inum, s.m.Inodes.Get(int(inum)), nil
}

// Stat resolves path and fills a Stat with size, mode, the effective
// uid of the running process, the inode number, and refs as link count
// (spec.md §4.5).
func (s *Storage) Stat(path string) (Stat, error) {
	inum, node, err := s.resolve(path)
	if err != nil {
		return Stat{}, err
	}
	return Stat{
		Inode: inum,
		Mode:  node.Mode(),
		Size:  int64(node.Size()),
		Refs:  node.Refs(),
		Uid:   os.Geteuid(),
	}, nil
}

// Read resolves path and reads min(size, node.Size()-offset) bytes from
// its single data block into buf, returning the count (spec.md §4.5).
func (s *Storage) Read(path string, buf []byte, size, offset int) (int, error) {
	_, node, err := s.resolve(path)
	if err != nil {
		return -1, err
	}
	if node.IsDirectory() {
		return -1, ferrors.ErrIsDirectory
	}
	if !node.CanRead() {
		return -1, ferrors.ErrDenied
	}
	if offset > int(node.Size()) {
		return -1, ferrors.ErrBadSeek
	}

	n := size
	if remaining := int(node.Size()) - offset; n > remaining {
		n = remaining
	}
	block := s.m.Dev.BlockPtr(int(node.Block()))
	copy(buf, block[offset:offset+n])
	return n, nil
}

// Write resolves path and copies size bytes from buf into its data
// block at offset, growing (never shrinking) the inode to offset+size
// (spec.md §4.5).
func (s *Storage) Write(path string, buf []byte, size, offset int) (int, error) {
	_, node, err := s.resolve(path)
	if err != nil {
		return -1, err
	}
	if offset+size > s.m.Dev.BlockSize() {
		return -1, ferrors.ErrFileTooBig
	}
	if node.IsDirectory() {
		return -1, ferrors.ErrIsDirectory
	}
	if !node.CanWrite() {
		return -1, ferrors.ErrDenied
	}

	block := s.m.Dev.BlockPtr(int(node.Block()))
	copy(block[offset:offset+size], buf[:size])
	if offset+size > int(node.Size()) {
		s.m.Inodes.Grow(node, offset+size)
	}
	return size, nil
}

// Truncate resolves path and sets its data length to size bytes (spec.md
// §4.5). A size smaller than the node's current size shrinks it; a
// larger size grows it and zero-fills the newly live bytes.
func (s *Storage) Truncate(path string, size int) error {
	_, node, err := s.resolve(path)
	if err != nil {
		return err
	}
	if size < 0 {
		return ferrors.ErrInvalid
	}
	if size > s.m.Dev.BlockSize() {
		return ferrors.ErrFileTooBig
	}
	if node.IsDirectory() {
		return ferrors.ErrIsDirectory
	}
	if !node.CanWrite() {
		return ferrors.ErrDenied
	}

	block := s.m.Dev.BlockPtr(int(node.Block()))
	if size > int(node.Size()) {
		for i := int(node.Size()); i < size; i++ {
			block[i] = 0
		}
		s.m.Inodes.Grow(node, size)
		return nil
	}
	s.m.Inodes.Shrink(node, size)
	return nil
}

// Mknod creates a new file or directory at path with the given mode
// (spec.md §4.5). If mode marks a directory, "." and ".." are inserted
// into the new directory's data block.
func (s *Storage) Mknod(path string, mode int32) error {
	if _, _, err := s.resolve(path); err == nil {
		return ferrors.ErrExists
	}

	parentPath, base := pathutil.Split(path)
	parentInum, err := s.m.TreeLookup(parentPath)
	if err != nil {
		return err
	}
	parent := s.m.Inodes.Get(int(parentInum))
	if !parent.IsDirectory() {
		return ferrors.ErrNotDirectory
	}
	if !parent.CanWrite() {
		return ferrors.ErrDenied
	}
	if int(parent.Size()) == s.m.Dev.BlockSize() {
		return ferrors.ErrNoSpace
	}
	if len(base)+1 > dirent.NameLength {
		return ferrors.ErrInvalid
	}

	childInum, err := s.m.Inodes.Alloc()
	if err != nil {
		return err
	}
	child := s.m.Inodes.Get(childInum)
	child.SetSize(0)
	child.SetMode(mode)
	// refs is finalized by dirent.Put below; mknod must not set it
	// itself, or it would overwrite the increment Put performs.

	parentBlock := s.m.Dev.BlockPtr(int(parent.Block()))
	if err := dirent.Put(s.m.Inodes, parent, parentBlock, base, int32(childInum)); err != nil {
		s.m.Inodes.Free(childInum)
		return err
	}

	if child.IsDirectory() {
		childBlock := s.m.Dev.BlockPtr(int(child.Block()))
		if err := dirent.Put(s.m.Inodes, child, childBlock, "..", parentInum); err != nil {
			return err
		}
		if err := dirent.Put(s.m.Inodes, child, childBlock, ".", int32(childInum)); err != nil {
			return err
		}
	}

	s.m.Logger.Printf("mknod: created %s (mode=%o, inode=%d)", path, mode, childInum)
	return nil
}

// Unlink removes path's entry from its parent directory. If the
// reference decrement reaches zero, the inode is freed (spec.md §4.5).
func (s *Storage) Unlink(path string) error {
	parentPath, base := pathutil.Split(path)
	parentInum, err := s.m.TreeLookup(parentPath)
	if err != nil {
		return err
	}
	parent := s.m.Inodes.Get(int(parentInum))
	if !parent.IsDirectory() {
		return ferrors.ErrNotDirectory
	}
	if !parent.CanWrite() {
		return ferrors.ErrDenied
	}

	parentBlock := s.m.Dev.BlockPtr(int(parent.Block()))
	if err := dirent.Delete(s.m.Inodes, parent, parentBlock, base); err != nil {
		return err
	}
	s.m.Logger.Printf("unlink: removed %s", path)
	return nil
}

// Link resolves from (which must exist and not be a directory — see
// spec.md §9's note on the directory-hard-linking hazard, resolved here
// by rejecting directory sources), verifies to does not exist, and
// inserts (basename(to), inum(from)) into to's parent (spec.md §4.5).
func (s *Storage) Link(from, to string) error {
	fromInum, fromNode, err := s.resolve(from)
	if err != nil {
		return err
	}
	if fromNode.IsDirectory() {
		return ferrors.ErrIsDirectory
	}
	if _, _, err := s.resolve(to); err == nil {
		return ferrors.ErrExists
	}

	parentPath, base := pathutil.Split(to)
	parentInum, err := s.m.TreeLookup(parentPath)
	if err != nil {
		return err
	}
	parent := s.m.Inodes.Get(int(parentInum))
	if !parent.IsDirectory() {
		return ferrors.ErrNotDirectory
	}
	if !parent.CanWrite() {
		return ferrors.ErrDenied
	}
	if int(parent.Size()) == s.m.Dev.BlockSize() {
		return ferrors.ErrNoSpace
	}

	parentBlock := s.m.Dev.BlockPtr(int(parent.Block()))
	if err := dirent.Put(s.m.Inodes, parent, parentBlock, base, fromInum); err != nil {
		return err
	}
	s.m.Logger.Printf("link: %s -> %s", to, from)
	return nil
}

// Rename is link(from, to) followed by unlink(from), returning the
// first error if either fails (spec.md §4.5 and §9).
func (s *Storage) Rename(from, to string) error {
	if err := s.Link(from, to); err != nil {
		return err
	}
	return s.Unlink(from)
}

// Rmdir removes an empty directory at path (spec.md §4.5). It rejects
// "/" by value comparison, unlike the original source's pointer
// comparison (spec.md §9).
func (s *Storage) Rmdir(path string) error {
	if pathutil.Clean(path) == "/" {
		return ferrors.ErrPermDenied
	}

	inum, node, err := s.resolve(path)
	if err != nil {
		return err
	}
	if !node.IsDirectory() {
		return ferrors.ErrNotDirectory
	}
	if int(node.Size()) > 2*dirent.Size {
		return ferrors.ErrNotEmpty
	}
	if !node.CanWrite() {
		return ferrors.ErrDenied
	}

	block := s.m.Dev.BlockPtr(int(node.Block()))
	if err := dirent.Delete(s.m.Inodes, node, block, "."); err != nil {
		return err
	}
	if err := dirent.Delete(s.m.Inodes, node, block, ".."); err != nil {
		return err
	}

	parentPath, base := pathutil.Split(path)
	parentInum, err := s.m.TreeLookup(parentPath)
	if err != nil {
		return err
	}
	parent := s.m.Inodes.Get(int(parentInum))
	parentBlock := s.m.Dev.BlockPtr(int(parent.Block()))
	if err := dirent.Delete(s.m.Inodes, parent, parentBlock, base); err != nil {
		return err
	}

	s.m.Logger.Printf("rmdir: removed %s (inode=%d)", path, inum)
	return nil
}

// List resolves path and returns its entry names in insertion order.
// Returns ferrors.ErrNotDirectory if path is not a directory (spec.md
// §4.5).
func (s *Storage) List(path string) ([]string, error) {
	_, node, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	if !node.IsDirectory() {
		return nil, ferrors.ErrNotDirectory
	}
	block := s.m.Dev.BlockPtr(int(node.Block()))
	return dirent.List(node, block), nil
}

// SetTime always reports ErrUnsupported; listed for interface
// completeness (spec.md §4.5).
func (s *Storage) SetTime(path string, atime, mtime int64) error {
	return ferrors.ErrUnsupported
}
