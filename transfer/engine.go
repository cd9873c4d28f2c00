package transfer

import (
	"fmt"
	"sync"

	vk "github.com/vulkan-go/vulkan"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
	"github.com/Shanyu-Yun/RenderV2/gpuctx"
	"github.com/Shanyu-Yun/RenderV2/resource"
)

const prefix = "transfer: "

// WorkerID identifies a logical transfer thread. Go has no first-class
// notion of "the calling OS thread" (gviegas-neo3's per-thread state is
// genuinely thread-local); this engine instead asks each goroutine that
// issues transfers to name itself (e.g. "render", "loader-3"), and
// lazily creates per-worker command pools, staging pools, and
// submission tracking keyed by that name.
type WorkerID string

// submission records one submitted command list: its completion token,
// the command buffer, the pool it came from, and the staging indices to
// release once the fence signals and no external token holder remains.
type submission struct {
	token      TransferToken
	cmd        vk.CommandBuffer
	pool       vk.CommandPool
	staging    []int
}

// Worker holds one thread's transfer state: its own transfer/graphics
// command pools, staging buffer pool, list of active submissions, and a
// fence free list.
type Worker struct {
	id       WorkerID
	eng      *Engine
	transferPool vk.CommandPool
	graphicsPool vk.CommandPool
	staging      *stagingPool
	mu           sync.Mutex
	active       []*submission
	freeFences   []vk.Fence
}

// Engine is the GPU resource & transfer engine: it owns an Allocator, a
// device context, and the registry of per-thread Workers.
type Engine struct {
	ctx       *gpuctx.DeviceContext
	alloc     *resource.Allocator
	stagingCfg StagingPoolConfig

	mu      sync.Mutex
	workers map[WorkerID]*Worker
}

// NewEngine creates a transfer Engine bound to ctx, using alloc for
// buffer/image creation and the given staging pool configuration for
// every worker it creates.
func NewEngine(ctx *gpuctx.DeviceContext, alloc *resource.Allocator, stagingCfg StagingPoolConfig) (*Engine, error) {
	if ctx == nil || alloc == nil {
		return nil, ferrors.New(ferrors.NotInitialized, prefix, "nil device context or allocator")
	}
	return &Engine{ctx: ctx, alloc: alloc, stagingCfg: stagingCfg, workers: make(map[WorkerID]*Worker)}, nil
}

// Worker returns the Worker for id, creating it (and its command pools)
// lazily on first use.
func (e *Engine) Worker(id WorkerID) (*Worker, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.workers[id]; ok {
		return w, nil
	}
	w, err := e.newWorker(id)
	if err != nil {
		return nil, err
	}
	e.workers[id] = w
	return w, nil
}

func (e *Engine) newWorker(id WorkerID) (*Worker, error) {
	transferFam, ok := e.ctx.QueueFamily(gpuctx.Transfer)
	if !ok {
		transferFam, _ = e.ctx.QueueFamily(gpuctx.Graphics)
	}
	graphicsFam, _ := e.ctx.QueueFamily(gpuctx.Graphics)

	// ResetCommandBuffer|Transient: a command pool is never used from a
	// thread other than its creator (here: the goroutine that first
	// calls Engine.Worker(id)).
	flags := vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit | vk.CommandPoolCreateTransientBit)

	tp, err := createCommandPool(e.ctx.Device, transferFam, flags)
	if err != nil {
		return nil, err
	}
	gp, err := createCommandPool(e.ctx.Device, graphicsFam, flags)
	if err != nil {
		vk.DestroyCommandPool(e.ctx.Device, tp, nil)
		return nil, err
	}

	return &Worker{
		id:           id,
		eng:          e,
		transferPool: tp,
		graphicsPool: gp,
		staging:      newStagingPool(e.alloc, e.stagingCfg),
	}, nil
}

func createCommandPool(dev vk.Device, family uint32, flags vk.CommandPoolCreateFlags) (vk.CommandPool, error) {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            flags,
		QueueFamilyIndex: family,
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(dev, &info, nil, &pool); res != vk.Success {
		return vk.NullHandle, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("CreateCommandPool failed: %v", res))
	}
	return pool, nil
}

// reap scans active submissions; for any whose fence is signaled and
// whose token has no external references, it resets the fence (recycling
// it to freeFences), frees the command buffer, and releases the
// submission's staging buffers. Must be called with w.mu held.
func (w *Worker) reap() {
	kept := w.active[:0]
	for _, s := range w.active {
		if s.token.state.completed.Load() || (s.token.state.fence != vk.NullHandle && vk.GetFenceStatus(w.eng.ctx.Device, s.token.state.fence) == vk.Success) {
			if s.token.state.refs.Load() > 0 {
				// Still externally referenced: leave it alone, try
				// again on a later reap.
				kept = append(kept, s)
				continue
			}
			s.token.state.completed.Store(true)
			vk.ResetFences(w.eng.ctx.Device, 1, []vk.Fence{s.token.state.fence})
			w.freeFences = append(w.freeFences, s.token.state.fence)
			vk.FreeCommandBuffers(w.eng.ctx.Device, s.pool, 1, []vk.CommandBuffer{s.cmd})
			for _, idx := range s.staging {
				w.staging.release(idx)
			}
			continue
		}
		kept = append(kept, s)
	}
	w.active = kept
}

func (w *Worker) acquireFence() (vk.Fence, error) {
	if n := len(w.freeFences); n > 0 {
		f := w.freeFences[n-1]
		w.freeFences = w.freeFences[:n-1]
		return f, nil
	}
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	var f vk.Fence
	if res := vk.CreateFence(w.eng.ctx.Device, &info, nil, &f); res != vk.Success {
		return vk.NullHandle, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("CreateFence failed: %v", res))
	}
	return f, nil
}

func (w *Worker) allocCmd(pool vk.CommandPool) (vk.CommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cmds := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(w.eng.ctx.Device, &info, cmds); res != vk.Success {
		return nil, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("AllocateCommandBuffers failed: %v", res))
	}
	return cmds[0], nil
}

// submit reaps whatever finished, then records a new submission with a
// freshly acquired (or recycled) fence.
func (w *Worker) submit(pool vk.CommandPool, queue vk.Queue, cmd vk.CommandBuffer, staging []int) (TransferToken, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reap()

	fence, err := w.acquireFence()
	if err != nil {
		return TransferToken{}, err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}
	if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, fence); res != vk.Success {
		w.freeFences = append(w.freeFences, fence)
		return TransferToken{}, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("QueueSubmit failed: %v", res))
	}

	tok := newToken(w.eng.ctx.Device, fence)
	w.active = append(w.active, &submission{token: tok, cmd: cmd, pool: pool, staging: staging})
	return tok, nil
}

// Cleanup shrinks this worker's staging pool to its configured maximum.
func (w *Worker) Cleanup() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reap()
	w.staging.cleanup()
}

// Destroy tears down a worker's command pools and staging buffers. The
// caller must ensure no submissions from this worker are still
// in-flight.
func (w *Worker) Destroy() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.staging.destroyAll()
	for _, f := range w.freeFences {
		vk.DestroyFence(w.eng.ctx.Device, f, nil)
	}
	w.freeFences = nil
	if w.transferPool != vk.NullHandle {
		vk.DestroyCommandPool(w.eng.ctx.Device, w.transferPool, nil)
		w.transferPool = vk.NullHandle
	}
	if w.graphicsPool != vk.NullHandle {
		vk.DestroyCommandPool(w.eng.ctx.Device, w.graphicsPool, nil)
		w.graphicsPool = vk.NullHandle
	}
}
