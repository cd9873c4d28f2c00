// Package transfer implements one-shot copy/blit/barrier operations:
// per-thread staging buffer pools, command-list submission with fence
// recycling, and completion tokens.
//
// Grounded on gviegas-neo3's engine/staging.go (stagingBuffer, the
// channel-guarded work item, and the drain-and-resubmit loop in
// commitStaging), generalized from that package's texture-only upload
// path to the full set of transfer operations a rendering engine needs:
// buffer upload, image upload, buffer-to-buffer copy, buffer-to-image
// copy, uniform writes, layout transitions, mipmap generation.
package transfer

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	vk "github.com/vulkan-go/vulkan"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
)

// tokenState is the shared state behind a TransferToken: a fence, the
// device that owns it, and a completed flag. TransferTokens obtained
// from the engine are always either completed or reference a live fence.
type tokenState struct {
	device    vk.Device
	fence     vk.Fence
	completed atomic.Bool
	// refs counts external holders of this state, so the engine's
	// submission-tracking loop knows when it is safe to recycle the
	// fence (see Worker.reap in engine.go).
	refs atomic.Int32
}

// TransferToken is a cheap-to-clone handle to a submitted command list's
// completion state.
type TransferToken struct {
	state *tokenState
	// DebugID correlates a token with its submission in logs; tagged
	// with uuid the way Gekko3D-gekko tags scene entities.
	DebugID string
}

// completedToken returns a token that is already complete, used when an
// operation has nothing to submit (e.g. a synchronous host-visible
// write).
func completedToken() TransferToken {
	s := &tokenState{}
	s.completed.Store(true)
	return TransferToken{state: s, DebugID: uuid.NewString()}
}

func newToken(device vk.Device, fence vk.Fence) TransferToken {
	s := &tokenState{device: device, fence: fence}
	s.refs.Store(1)
	return TransferToken{state: s, DebugID: uuid.NewString()}
}

// Clone returns a new handle to the same underlying completion state.
// Tokens are cheap to clone: this only bumps a reference count.
func (t TransferToken) Clone() TransferToken {
	if t.state != nil {
		t.state.refs.Add(1)
	}
	return t
}

// Release drops this handle's reference to the underlying state. Callers
// that clone a token are expected to Release it once done, so the engine
// can recycle the fence once no external holder remains.
func (t TransferToken) Release() {
	if t.state != nil {
		t.state.refs.Add(-1)
	}
}

// IsComplete reports whether the submitted work has finished, without
// blocking.
func (t TransferToken) IsComplete() bool {
	if t.state == nil {
		return true
	}
	if t.state.completed.Load() {
		return true
	}
	if t.state.fence == vk.NullHandle {
		return false
	}
	if vk.GetFenceStatus(t.state.device, t.state.fence) == vk.Success {
		t.state.completed.Store(true)
		return true
	}
	return false
}

// Wait blocks until the fence signals or timeout elapses. A non-positive
// timeout waits forever.
func (t TransferToken) Wait(timeout time.Duration) error {
	if t.state == nil || t.state.completed.Load() {
		return nil
	}
	if t.state.fence == vk.NullHandle {
		return nil
	}
	var ns uint64
	if timeout <= 0 {
		ns = ^uint64(0)
	} else {
		ns = uint64(timeout.Nanoseconds())
	}
	res := vk.WaitForFences(t.state.device, 1, []vk.Fence{t.state.fence}, vk.True, ns)
	switch res {
	case vk.Success:
		t.state.completed.Store(true)
		return nil
	case vk.Timeout:
		return ferrors.New(ferrors.DeviceError, "transfer: ", "wait timed out")
	default:
		return ferrors.New(ferrors.DeviceError, "transfer: ", "fence wait failed")
	}
}
