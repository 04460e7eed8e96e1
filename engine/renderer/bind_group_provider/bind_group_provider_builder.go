package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBindGroupLayout sets the bind group layout for this provider.
//
// Parameters:
//   - bgl: the bind group layout to use for this provider
//
// Returns:
//   - BindGroupProviderOption: a function that sets the bind group layout for this provider
func WithBindGroupLayout(bgl *wgpu.BindGroupLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroupLayout = bgl
	}
}

// WithBuffer sets a buffer for a specific binding index.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified binding
func WithBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}

// WithLodIndices sets the per-level index lists, one entry per detail level starting at full detail.
//
// Parameters:
//   - levels: the index lists
//
// Returns:
//   - BindGroupProviderOption: a function that sets the index lists for this provider
func WithLodIndices(levels [][]uint32) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.lodIndices = levels
	}
}

// WithVertexData sets the packed static vertices the vertex buffer is created from.
//
// Parameters:
//   - data: the vertex bytes
//
// Returns:
//   - BindGroupProviderOption: a function that sets the vertex data for this provider
func WithVertexData(data []byte) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.vertexData = data
	}
}

// WithBufferSize declares the byte size of the storage buffer at a binding.
//
// Parameters:
//   - binding: the binding index
//   - size: the buffer size in bytes
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer size for the specified binding
func WithBufferSize(binding int, size uint64) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bufferSizes[binding] = size
	}
}
