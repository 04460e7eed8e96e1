package bind_group_provider

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// BindingBonePalette is the storage binding that receives the per-draw bone palette.
const BindingBonePalette = 0

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	mu *sync.Mutex

	// label is a debug label added for convenience.
	label string

	// The following fields are GPU allocated resources and must be released when no longer needed.
	// They are created by the draw-submission layer, not by this package.

	// bindGroup is the GPU bind group created for this provider, or nil if not initialized.
	bindGroup *wgpu.BindGroup
	// bindGroupLayout is the GPU bind group layout created for this provider, or nil if not initialized.
	bindGroupLayout *wgpu.BindGroupLayout
	// buffers holds the GPU buffers created for this provider, keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// vertexBuffer is the static surface vertex buffer, or nil if not initialized.
	vertexBuffer *wgpu.Buffer
	// indexBuffers holds one GPU index buffer per detail level.
	indexBuffers []*wgpu.Buffer

	// lodIndices holds the CPU copy of each detail level's index list, the source of indexBuffers.
	lodIndices [][]uint32
	// vertexData holds the packed static vertices, the source of vertexBuffer.
	vertexData []byte
	// bufferSizes holds the byte size of each storage binding, keyed by binding index.
	bufferSizes map[int]uint64
}

// BindGroupProvider defines the interface for a skinned surface's GPU binding resources.
// A surface provider is shared by every entity drawing the surface and holds the static vertex buffer
// and one index buffer per level of detail. A palette provider belongs to one animator and holds the
// bone palette storage buffer. The animator stages palette writes against it; the draw-submission
// layer owns the device, creates the wgpu objects from the descriptors below and binds them with the setters.
//
// Usage pattern:
//  1. The GPU animator backend creates one surface provider per surface with its vertex data and per-level index lists
//  2. The submission layer creates buffers from VertexBufferDescriptor() and IndexBufferDescriptor(lod) and uploads the CPU copies
//  3. Each animator creates a palette provider per surface sized for the surface's palette
//  4. Each frame the animator stages a BufferWrite of the palette to BindingBonePalette
//  5. The submission layer draws with IndexBuffer(lod) and IndexCount(lod)
type BindGroupProvider interface {
	// Release releases any GPU resources held by this provider.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group for shader binding.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the created bind group layout for this provider.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer bound at the given binding index.
	// Returns nil if GPU resources have not been initialized.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// VertexBuffer returns the GPU vertex buffer, or nil if not initialized.
	//
	// Returns:
	//   - *wgpu.Buffer: the vertex buffer or nil
	VertexBuffer() *wgpu.Buffer

	// LodLevels returns the number of detail levels this provider carries index lists for.
	//
	// Returns:
	//   - int: the level count
	LodLevels() int

	// LodIndices returns the CPU index list of one detail level, falling back to level 0 when the requested level is empty.
	//
	// Parameters:
	//   - lod: the detail level
	//
	// Returns:
	//   - []uint32: the index list
	LodIndices(lod int) []uint32

	// IndexBuffer returns the GPU index buffer of one detail level, falling back to level 0 when the requested level has none.
	//
	// Parameters:
	//   - lod: the detail level
	//
	// Returns:
	//   - *wgpu.Buffer: the index buffer or nil
	IndexBuffer(lod int) *wgpu.Buffer

	// IndexCount returns the number of indices to draw for one detail level, with the same fallback as LodIndices.
	//
	// Parameters:
	//   - lod: the detail level
	//
	// Returns:
	//   - int: the index count
	IndexCount(lod int) int

	// VertexData returns the packed static vertices to upload into the vertex buffer.
	//
	// Returns:
	//   - []byte: the vertex bytes, nil when the provider carries no vertices
	VertexData() []byte

	// BufferSize returns the byte size of the storage buffer at the given binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - uint64: the size, 0 when the binding is unknown
	BufferSize(binding int) uint64

	// BufferDescriptor describes the storage buffer to create for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - wgpu.BufferDescriptor: the descriptor
	//   - bool: false when the binding has no size
	BufferDescriptor(binding int) (wgpu.BufferDescriptor, bool)

	// VertexBufferDescriptor describes the vertex buffer to create for VertexData().
	//
	// Returns:
	//   - wgpu.BufferDescriptor: the descriptor
	//   - bool: false when the provider carries no vertices
	VertexBufferDescriptor() (wgpu.BufferDescriptor, bool)

	// IndexBufferDescriptor describes the index buffer to create for one detail level.
	// Unlike LodIndices there is no fallback: an empty level has no buffer of its own.
	//
	// Parameters:
	//   - lod: the detail level
	//
	// Returns:
	//   - wgpu.BufferDescriptor: the descriptor
	//   - bool: false when the level is out of range or empty
	IndexBufferDescriptor(lod int) (wgpu.BufferDescriptor, bool)

	// BindGroupLayoutDescriptor describes the layout of the provider's storage bindings, ordered by binding.
	// Every binding is read-only storage visible to the vertex stage.
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor
	BindGroupLayoutDescriptor() wgpu.BindGroupLayoutDescriptor

	// SetBindGroup sets the bind group after GPU initialization.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout sets the bind group layout after GPU initialization.
	//
	// Parameters:
	//   - bgl: the created bind group layout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer sets the buffer for a specific binding index after GPU initialization.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetVertexBuffer sets the GPU vertex buffer after initialization.
	//
	// Parameters:
	//   - buf: the created vertex buffer
	SetVertexBuffer(buf *wgpu.Buffer)

	// SetIndexBuffer sets the GPU index buffer of one detail level.
	//
	// Parameters:
	//   - lod: the detail level, must be below LodLevels()
	//   - buf: the created index buffer
	SetIndexBuffer(lod int, buf *wgpu.Buffer)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the given label and options.
//
// Parameters:
//   - label: a debug label for the provider
//   - options: variadic list of BindGroupProviderOption functions to configure the provider
//
// Returns:
//   - BindGroupProvider: the newly created provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		mu:          &sync.Mutex{},
		label:       label,
		buffers:     make(map[int]*wgpu.Buffer),
		bufferSizes: make(map[int]uint64),
	}
	for _, opt := range options {
		opt(p)
	}
	if len(p.indexBuffers) < len(p.lodIndices) {
		p.indexBuffers = append(p.indexBuffers, make([]*wgpu.Buffer, len(p.lodIndices)-len(p.indexBuffers))...)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffers[binding]
}

func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vertexBuffer
}

func (p *bindGroupProvider) LodLevels() int {
	return len(p.lodIndices)
}

func (p *bindGroupProvider) level(lod int) int {
	if lod < 0 || lod >= len(p.lodIndices) || len(p.lodIndices[lod]) == 0 {
		return 0
	}
	return lod
}

func (p *bindGroupProvider) LodIndices(lod int) []uint32 {
	if len(p.lodIndices) == 0 {
		return nil
	}
	return p.lodIndices[p.level(lod)]
}

func (p *bindGroupProvider) IndexBuffer(lod int) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.indexBuffers) == 0 {
		return nil
	}
	if buf := p.indexBuffers[p.level(lod)]; buf != nil {
		return buf
	}
	return p.indexBuffers[0]
}

func (p *bindGroupProvider) IndexCount(lod int) int {
	return len(p.LodIndices(lod))
}

func (p *bindGroupProvider) VertexData() []byte {
	return p.vertexData
}

func (p *bindGroupProvider) BufferSize(binding int) uint64 {
	return p.bufferSizes[binding]
}

func (p *bindGroupProvider) BufferDescriptor(binding int) (wgpu.BufferDescriptor, bool) {
	size := p.bufferSizes[binding]
	if size == 0 {
		return wgpu.BufferDescriptor{}, false
	}
	return wgpu.BufferDescriptor{
		Label: fmt.Sprintf("%s Storage Buffer %d", p.label, binding),
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	}, true
}

func (p *bindGroupProvider) VertexBufferDescriptor() (wgpu.BufferDescriptor, bool) {
	if len(p.vertexData) == 0 {
		return wgpu.BufferDescriptor{}, false
	}
	return wgpu.BufferDescriptor{
		Label: p.label + " Vertex Buffer",
		Size:  uint64(len(p.vertexData)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	}, true
}

func (p *bindGroupProvider) IndexBufferDescriptor(lod int) (wgpu.BufferDescriptor, bool) {
	if lod < 0 || lod >= len(p.lodIndices) || len(p.lodIndices[lod]) == 0 {
		return wgpu.BufferDescriptor{}, false
	}
	return wgpu.BufferDescriptor{
		Label: fmt.Sprintf("%s Index Buffer %d", p.label, lod),
		Size:  uint64(len(p.lodIndices[lod]) * 4),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	}, true
}

func (p *bindGroupProvider) BindGroupLayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	bindings := slices.Sorted(maps.Keys(p.bufferSizes))
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(bindings))
	for _, b := range bindings {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    uint32(b),
			Visibility: wgpu.ShaderStageVertex,
		}
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		entry.Buffer.MinBindingSize = p.bufferSizes[b]
		entries = append(entries, entry)
	}
	return wgpu.BindGroupLayoutDescriptor{
		Label:   p.label + " Bind Group Layout",
		Entries: entries,
	}
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetVertexBuffer(buf *wgpu.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vertexBuffer = buf
}

func (p *bindGroupProvider) SetIndexBuffer(lod int, buf *wgpu.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if lod < 0 || lod >= len(p.indexBuffers) {
		return
	}
	p.indexBuffers[lod] = buf
}

func (p *bindGroupProvider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
			delete(p.buffers, i)
		}
	}
	for i, buf := range p.indexBuffers {
		if buf != nil {
			buf.Release()
			p.indexBuffers[i] = nil
		}
	}

	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
	if p.vertexBuffer != nil {
		p.vertexBuffer.Release()
		p.vertexBuffer = nil
	}
}
