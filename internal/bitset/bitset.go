// Package bitset defines a growable bitmap for "find an unset bit, set
// it, eventually unset it again" slot bookkeeping without an allocation
// per acquire. No other package in this module imports it: the staging
// pool and the descriptor pool ring track their slots with plain slices.
//
// Adapted from gviegas-neo3's internal/bitm package: the growth
// mechanics are the same (a slice of Uint words plus a running count of
// unset bits; the bitmap never shrinks), but the search surface is
// reshaped around slot-pool usage (FindUnset) rather than the contiguous-range packing
// that gviegas-neo3's shared mesh buffer needed, since this engine keeps
// one GPU buffer per mesh instead of packing many meshes into spans of a
// single buffer.
package bitset

import "unsafe"

// Uint is the granularity of a Bitset's backing words.
type Uint interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Bitset is a growable bitmap with custom word granularity.
type Bitset[T Uint] struct {
	words []T
	unset int
}

func (b *Bitset[T]) nbit() int { return int(unsafe.Sizeof(T(0))) * 8 }

// Len returns the total number of bits the set can currently hold.
func (b *Bitset[T]) Len() int { return len(b.words) * b.nbit() }

// Unset returns the number of currently-unset bits.
func (b *Bitset[T]) Unset() int { return b.unset }

// Grow appends nplus words of unset bits and returns the index of the
// first newly-available bit. It is valid to call with nplus <= 0, which
// is a no-op returning Len().
func (b *Bitset[T]) Grow(nplus int) (firstIndex int) {
	firstIndex = b.Len()
	if nplus > 0 {
		b.unset += nplus * b.nbit()
		b.words = append(b.words, make([]T, nplus)...)
	}
	return
}

// Set marks the bit at index as set (in use).
func (b *Bitset[T]) Set(index int) {
	n := b.nbit()
	i, m := index/n, T(1)<<uint(index&(n-1))
	if b.words[i]&m == 0 {
		b.words[i] |= m
		b.unset--
	}
}

// Clear marks the bit at index as unset (free).
func (b *Bitset[T]) Clear(index int) {
	n := b.nbit()
	i, m := index/n, T(1)<<uint(index&(n-1))
	if b.words[i]&m != 0 {
		b.words[i] &^= m
		b.unset++
	}
}

// IsSet reports whether the bit at index is set.
func (b *Bitset[T]) IsSet(index int) bool {
	n := b.nbit()
	i, m := index/n, T(1)<<uint(index&(n-1))
	return b.words[i]&m != 0
}

// FindUnset searches for the first unset bit, sets it, and returns its
// index. ok is false if every bit is set.
func (b *Bitset[T]) FindUnset() (index int, ok bool) {
	if b.unset == 0 {
		return 0, false
	}
	n := b.nbit()
	for i, w := range b.words {
		if w == T(^T(0)) {
			continue
		}
		for j := 0; j < n; j++ {
			if w&(T(1)<<uint(j)) == 0 {
				index = i*n + j
				b.Set(index)
				return index, true
			}
		}
	}
	return 0, false
}

// Reset clears every bit without shrinking the backing storage.
func (b *Bitset[T]) Reset() {
	for i := range b.words {
		b.words[i] = 0
	}
	b.unset = b.Len()
}
