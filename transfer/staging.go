package transfer

import (
	"github.com/Shanyu-Yun/RenderV2/ferrors"
	"github.com/Shanyu-Yun/RenderV2/resource"
)

// StagingPoolConfig configures a per-thread staging buffer pool.
type StagingPoolConfig struct {
	PoolEnabled     bool
	MaxPooledBuffers int
	MinBufferSize   int64
	MaxBufferSize   int64
}

// stagingEntry is one buffer tracked by a stagingPool.
type stagingEntry struct {
	buf    *resource.ManagedBuffer
	inUse  bool
	oneOff bool // not kept in the pool after release
}

// stagingPool is a per-thread pool of host-visible staging buffers, used
// as a stepping stone for uploads to device-only memory.
//
// Grounded on gviegas-neo3's engine/staging.go stagingBuffer type, with
// the per-texture bitmap replaced by an explicit slice scan (the pool
// size here is small — on the order of MaxPooledBuffers — so a linear
// scan for a free, sufficiently large buffer is simpler than the
// bitm-based packing that repo uses for its much larger shared mesh
// buffer).
type stagingPool struct {
	cfg     StagingPoolConfig
	alloc   *resource.Allocator
	entries []*stagingEntry
}

func newStagingPool(alloc *resource.Allocator, cfg StagingPoolConfig) *stagingPool {
	return &stagingPool{cfg: cfg, alloc: alloc}
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		v = lo
	}
	if hi > 0 && v > hi {
		v = hi
	}
	return v
}

// acquire returns the index of a staging buffer with capacity >=
// requestedSize, creating one if necessary.
func (p *stagingPool) acquire(requestedSize int64) (int, error) {
	if requestedSize <= 0 {
		return 0, ferrors.New(ferrors.InvalidArgument, "transfer: ", "requested staging size must be > 0")
	}

	if p.cfg.PoolEnabled {
		for i, e := range p.entries {
			if e != nil && !e.inUse && e.buf.Size() >= requestedSize {
				e.inUse = true
				return i, nil
			}
		}
		if len(p.entries) < p.cfg.MaxPooledBuffers {
			size := clamp(requestedSize, p.cfg.MinBufferSize, p.cfg.MaxBufferSize)
			if size < requestedSize {
				size = requestedSize
			}
			buf, err := p.alloc.CreateBuffer(size, resource.UsageStagingSrc, resource.CpuToGpu, "staging")
			if err != nil {
				return 0, err
			}
			p.entries = append(p.entries, &stagingEntry{buf: buf, inUse: true})
			return len(p.entries) - 1, nil
		}
	}

	// Pool full or disabled: create a fresh one-shot buffer.
	buf, err := p.alloc.CreateBuffer(requestedSize, resource.UsageStagingSrc, resource.CpuToGpu, "staging-oneoff")
	if err != nil {
		return 0, err
	}
	p.entries = append(p.entries, &stagingEntry{buf: buf, inUse: true, oneOff: true})
	return len(p.entries) - 1, nil
}

// release marks the entry as no longer in use. One-off entries (created
// when the pool was full or disabled) are destroyed immediately instead
// of being retained.
func (p *stagingPool) release(index int) {
	if index < 0 || index >= len(p.entries) {
		return
	}
	e := p.entries[index]
	if e.oneOff {
		e.buf.Destroy()
		p.entries[index] = nil
		return
	}
	e.inUse = false
}

func (p *stagingPool) bufferAt(index int) *resource.ManagedBuffer {
	if index < 0 || index >= len(p.entries) || p.entries[index] == nil {
		return nil
	}
	return p.entries[index].buf
}

// cleanup shrinks the pool down to MaxPooledBuffers by releasing
// non-in-use entries from the tail; their backing device memory is
// freed.
func (p *stagingPool) cleanup() {
	limit := p.cfg.MaxPooledBuffers
	for len(p.entries) > limit {
		i := len(p.entries) - 1
		e := p.entries[i]
		if e != nil && e.inUse {
			break
		}
		if e != nil {
			e.buf.Destroy()
		}
		p.entries = p.entries[:i]
	}
}

func (p *stagingPool) destroyAll() {
	for _, e := range p.entries {
		if e != nil {
			e.buf.Destroy()
		}
	}
	p.entries = nil
}

func writeToHostVisible(buf *resource.ManagedBuffer, data []byte, dstOffset int64) error {
	mapped := buf.Mapped()
	if mapped == nil {
		return ferrors.New(ferrors.InvalidArgument, "transfer: ", "buffer is not host-visible")
	}
	if dstOffset < 0 || dstOffset+int64(len(data)) > buf.Size() {
		return ferrors.New(ferrors.OutOfRange, "transfer: ", "write exceeds buffer size")
	}
	dst := mappedSlice(mapped, buf.Size())
	copy(dst[dstOffset:], data)
	return nil
}
