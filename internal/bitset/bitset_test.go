package bitset

import "testing"

func TestGrowAndFindUnset(t *testing.T) {
	var b Bitset[uint32]
	if b.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", b.Len())
	}
	b.Grow(1)
	if b.Len() != 32 {
		t.Fatalf("Len() = %d, want 32", b.Len())
	}
	for i := 0; i < 32; i++ {
		idx, ok := b.FindUnset()
		if !ok {
			t.Fatalf("FindUnset failed at iteration %d", i)
		}
		if idx != i {
			t.Fatalf("FindUnset = %d, want %d", idx, i)
		}
	}
	if _, ok := b.FindUnset(); ok {
		t.Fatal("FindUnset should fail once full")
	}
}

func TestClearReusesSlot(t *testing.T) {
	var b Bitset[uint8]
	b.Grow(1)
	idx, _ := b.FindUnset()
	b.Clear(idx)
	idx2, ok := b.FindUnset()
	if !ok || idx2 != idx {
		t.Fatalf("expected to reuse index %d, got %d (ok=%v)", idx, idx2, ok)
	}
}

func TestResetClearsAllBits(t *testing.T) {
	var b Bitset[uint32]
	b.Grow(2)
	for i := 0; i < 10; i++ {
		b.Set(i)
	}
	b.Reset()
	if b.Unset() != b.Len() {
		t.Fatalf("Unset() = %d, want %d after Reset", b.Unset(), b.Len())
	}
}
