// Package frame orchestrates per-frame command recording: render-pass
// declarations, per-frame GPU resources, a pipeline/layout cache keyed by
// shader prefix and attachment formats, and dynamic-rendering command
// recording with pluggable draw callbacks.
//
// Grounded on gviegas-neo3's engine/renderer.go (the frame-resource
// allocation and pass-iteration shape) and engine/drawable.go (the
// draw-callback precedent), adapted from that package's classic
// render-pass/framebuffer objects to vkCmdBeginRendering-style dynamic
// rendering: driver/core.go has no equivalent, since gviegas-neo3 predates
// dynamic rendering in its target API version.
package frame

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
)

const prefix = "frame: "

// SwapchainAttachment is the reserved attachment resource name that
// resolves to the current frame's swapchain image view.
const SwapchainAttachment = "Swapchain"

// AttachmentKind distinguishes a color render target from the depth/
// stencil render target within a pass.
type AttachmentKind int

const (
	ColorAttachment AttachmentKind = iota
	DepthStencilAttachment
)

// Attachment describes one render-pass attachment: the resource it binds
// to (by cache id, or SwapchainAttachment), its format, sample count, and
// load/store behavior.
type Attachment struct {
	Kind         AttachmentKind
	ResourceName string
	Format       vk.Format
	SampleCount  int
	LoadOp       vk.AttachmentLoadOp
	StoreOp      vk.AttachmentStoreOp
	ClearValue   vk.ClearValue
}

// PassResources groups the resources a pass reads from and writes to.
// SampledImages/StorageImages/BufferInputs/BufferOutputs are resource-
// cache ids the draw callback is expected to bind itself; the
// orchestrator does not resolve them into attachments.
type PassResources struct {
	ColorOutputs       []Attachment
	DepthStencilOutput *Attachment
	SampledImages      []string
	StorageImages      []string
	BufferInputs       []string
	BufferOutputs      []string
}

// PassDesc declares one render pass: its shader prefix (the name shader
// programs are registered under in the layout cache), its resources, and
// the extent to render at (the zero Extent2D means "use the current
// swapchain extent").
type PassDesc struct {
	Name         string
	ShaderPrefix string
	Resources    PassResources
	RenderExtent vk.Extent2D
}

// colorFormats returns the declared format of every color output, in
// order.
func (d *PassDesc) colorFormats() []vk.Format {
	formats := make([]vk.Format, len(d.Resources.ColorOutputs))
	for i, a := range d.Resources.ColorOutputs {
		formats[i] = a.Format
	}
	return formats
}

// depthFormat returns the pass's depth format and whether it has one.
func (d *PassDesc) depthFormat() (vk.Format, bool) {
	if d.Resources.DepthStencilOutput == nil {
		return 0, false
	}
	return d.Resources.DepthStencilOutput.Format, true
}

// PassSequence is an ordered list of passes with enforced name
// uniqueness: passes run, and their attachments resolve, in the order
// they were added.
type PassSequence struct {
	passes []*PassDesc
	names  map[string]bool
}

// NewPassSequence returns an empty pass sequence.
func NewPassSequence() *PassSequence {
	return &PassSequence{names: map[string]bool{}}
}

// Add appends desc to the sequence. Adding a pass whose name already
// exists in the sequence is an error.
func (s *PassSequence) Add(desc PassDesc) error {
	if desc.Name == "" {
		return ferrors.New(ferrors.InvalidArgument, prefix, "pass name must not be empty")
	}
	if s.names[desc.Name] {
		return ferrors.New(ferrors.InvalidArgument, prefix, "duplicate pass name "+desc.Name)
	}
	s.names[desc.Name] = true
	s.passes = append(s.passes, &desc)
	return nil
}

// Passes returns the sequence's passes in declared order.
func (s *PassSequence) Passes() []*PassDesc {
	return s.passes
}

// ByName returns the pass registered under name, if any.
func (s *PassSequence) ByName(name string) (*PassDesc, bool) {
	for _, p := range s.passes {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}
