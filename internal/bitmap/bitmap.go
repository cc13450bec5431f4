// Package bitmap implements the "Bitmap" component of spec.md §3: a
// bit-addressable get/set view over a fixed byte region. It backs both
// the block-free map and the inode-free map described in spec.md §4.1
// and §4.2.
package bitmap

import "github.com/boljen/go-bitmap"

// Map is a view of n bits backed directly by a byte slice. Because
// go-bitmap's Bitmap type is itself a []byte, wrapping an existing slice
// (rather than calling bitmap.New) makes every Get/Set mutate that slice
// in place — the trick this package relies on to let the block and inode
// bitmaps live directly in the memory-mapped block 0 (spec.md §3,
// "Block 0 ... holds the two bitmaps in its low bytes").
type Map struct {
	bits bitmap.Bitmap
	n    int
}

// Wrap returns a Map of n bits backed by region. region must have at
// least ByteSize(n) bytes.
func Wrap(region []byte, n int) Map {
	return Map{bits: bitmap.Bitmap(region), n: n}
}

// ByteSize returns the number of bytes needed to store n bits.
func ByteSize(n int) int {
	return (n + 7) / 8
}

func (m Map) Get(i int) bool {
	return m.bits.Get(i)
}

func (m Map) Set(i int, v bool) {
	m.bits.Set(i, v)
}

func (m Map) Len() int {
	return m.n
}

// FindFirstClear returns the lowest-numbered clear bit in [0, Len()), or
// (-1, false) if every bit is set.
func (m Map) FindFirstClear() (int, bool) {
	for i := 0; i < m.n; i++ {
		if !m.bits.Get(i) {
			return i, true
		}
	}
	return -1, false
}
