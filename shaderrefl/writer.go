package shaderrefl

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
	"github.com/Shanyu-Yun/RenderV2/gpuctx"
	"github.com/Shanyu-Yun/RenderV2/resource"
)

// pendingWrite is one queued binding update, keyed by binding number so
// a later write to the same binding in the same session replaces the
// earlier one.
type pendingWrite struct {
	binding  uint32
	descType vk.DescriptorType
	buffers  []vk.DescriptorBufferInfo
	images   []vk.DescriptorImageInfo
}

// Writer accumulates descriptor writes by binding name against a fixed
// schema and set, then flushes them with a single vkUpdateDescriptorSets
// call.
//
// Grounded on the by-name write convenience wrapped around driver-level
// descriptor writes gviegas-neo3's engine/internal/shader package does
// not itself provide (that package's callers address descriptor heaps
// positionally); this is a thin name-resolution layer generalized from
// that positional style.
type Writer struct {
	ctx    *gpuctx.DeviceContext
	schema *DescriptorSetSchema
	set    vk.DescriptorSet

	pending map[uint32]*pendingWrite
}

// Begin returns a writer bound to schema and the given descriptor set,
// ready to accept WriteBuffer/WriteImage calls.
func Begin(ctx *gpuctx.DeviceContext, schema *DescriptorSetSchema, set vk.DescriptorSet) *Writer {
	return &Writer{ctx: ctx, schema: schema, set: set, pending: map[uint32]*pendingWrite{}}
}

// truncate keeps the last min(len(entries), capacity) entries from
// entries, discarding excess elements from the front.
func truncate[T any](entries []T, capacity int) []T {
	if len(entries) <= capacity {
		return entries
	}
	return entries[len(entries)-capacity:]
}

// WriteBuffer queues a write of one or more buffer descriptors to the
// binding named name. A single entry replaces any prior value queued
// for that binding in this session. If more entries are supplied than
// the binding's declared descriptorCount, only the last
// min(len(infos), descriptorCount) are kept (discarding the rest from
// the front). A list shorter than descriptorCount is rejected with
// InvalidArgument, since there is no dstArrayElement parameter.
func (w *Writer) WriteBuffer(name string, infos []vk.DescriptorBufferInfo) error {
	b, ok := w.schema.bindingByName(name)
	if !ok {
		return ferrors.New(ferrors.NotFound, prefix, fmt.Sprintf("no binding named %q", name))
	}
	if len(infos) == 0 {
		return ferrors.New(ferrors.InvalidArgument, prefix, "writeBuffer requires at least one entry")
	}
	if len(infos) < int(b.DescriptorCount) {
		// A caller supplying fewer entries than the binding's declared
		// count is ambiguous without a dstArrayElement parameter this
		// writer does not expose: it could mean "fill the whole array
		// with a short list" or "update elements [k..k+N) in place".
		// Only full or over-long (truncated-from-the-front) arrays are
		// accepted.
		return ferrors.New(ferrors.InvalidArgument, prefix, fmt.Sprintf("partial array write to %q is not supported", name))
	}
	w.pending[b.Binding] = &pendingWrite{binding: b.Binding, descType: b.DescriptorType, buffers: truncate(infos, int(b.DescriptorCount))}
	return nil
}

// WriteImage queues a write of one or more image descriptors to the
// binding named name, with the same array-truncation policy as
// WriteBuffer.
func (w *Writer) WriteImage(name string, infos []vk.DescriptorImageInfo) error {
	b, ok := w.schema.bindingByName(name)
	if !ok {
		return ferrors.New(ferrors.NotFound, prefix, fmt.Sprintf("no binding named %q", name))
	}
	if len(infos) == 0 {
		return ferrors.New(ferrors.InvalidArgument, prefix, "writeImage requires at least one entry")
	}
	if len(infos) < int(b.DescriptorCount) {
		return ferrors.New(ferrors.InvalidArgument, prefix, fmt.Sprintf("partial array write to %q is not supported", name))
	}
	w.pending[b.Binding] = &pendingWrite{binding: b.Binding, descType: b.DescriptorType, images: truncate(infos, int(b.DescriptorCount))}
	return nil
}

// WriteWholeBuffer is a convenience overload for an owning buffer
// handle: it synthesizes a DescriptorBufferInfo covering the whole
// buffer range.
func (w *Writer) WriteWholeBuffer(name string, buf *resource.ManagedBuffer) error {
	return w.WriteBuffer(name, []vk.DescriptorBufferInfo{{
		Buffer: buf.Handle(),
		Offset: 0,
		Range:  vk.DeviceSize(buf.Size()),
	}})
}

// WriteSampledImage is a convenience overload for an owning image handle
// and sampler, writing with the given layout (typically
// ShaderReadOnlyOptimal).
func (w *Writer) WriteSampledImage(name string, img *resource.ManagedImage, sampler *resource.ManagedSampler, layout vk.ImageLayout) error {
	info := vk.DescriptorImageInfo{ImageView: img.View(), ImageLayout: layout}
	if sampler != nil {
		info.Sampler = sampler.Handle()
	}
	return w.WriteImage(name, []vk.DescriptorImageInfo{info})
}

// Update flushes all queued writes in a single vkUpdateDescriptorSets
// call and clears the writer so it can be reused for a subsequent
// session.
func (w *Writer) Update() {
	if len(w.pending) == 0 {
		return
	}
	writes := make([]vk.WriteDescriptorSet, 0, len(w.pending))
	for _, p := range w.pending {
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          w.set,
			DstBinding:      p.binding,
			DescriptorType:  p.descType,
			DstArrayElement: 0,
		}
		switch {
		case len(p.buffers) > 0:
			write.DescriptorCount = uint32(len(p.buffers))
			write.PBufferInfo = p.buffers
		case len(p.images) > 0:
			write.DescriptorCount = uint32(len(p.images))
			write.PImageInfo = p.images
		default:
			continue
		}
		writes = append(writes, write)
	}
	vk.UpdateDescriptorSets(w.ctx.Device, uint32(len(writes)), writes, 0, nil)
	w.pending = map[uint32]*pendingWrite{}
}
