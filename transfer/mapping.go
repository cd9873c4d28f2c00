package transfer

import "unsafe"

// mappedSlice views a host-visible mapping of the given size as a byte
// slice, isolating the one spot in this package that needs unsafe
// pointer arithmetic (mirrors driver.Buffer.Bytes() in gviegas-neo3,
// which does the same for its own mapped buffers).
func mappedSlice(p unsafe.Pointer, size int64) []byte {
	return unsafe.Slice((*byte)(p), size)
}
