package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLodIndices(t *testing.T) {
	p := NewBindGroupProvider("body", WithLodIndices([][]uint32{
		{0, 1, 2, 2, 1, 3},
		{0, 1, 2},
		{},
	}))
	assert.Equal(t, "body", p.Label())
	assert.Equal(t, 3, p.LodLevels())
	assert.Equal(t, 6, p.IndexCount(0))
	assert.Equal(t, 3, p.IndexCount(1))
	assert.Equal(t, 6, p.IndexCount(2), "an empty level falls back to full detail")
	assert.Equal(t, 6, p.IndexCount(9))
	assert.Nil(t, p.IndexBuffer(1), "no buffers before upload")

	empty := NewBindGroupProvider("empty")
	assert.Zero(t, empty.IndexCount(0))
	assert.Nil(t, empty.LodIndices(0))
	empty.Release()
}

func TestDrain(t *testing.T) {
	p := NewBindGroupProvider("palette")
	queue := []BufferWrite{
		{Provider: p, Binding: BindingBonePalette, Data: []byte{1}},
		{Provider: p, Binding: BindingBonePalette, Data: []byte{2}},
	}

	var out []BufferWrite
	out, queue = Drain(out, queue)
	assert.Len(t, out, 2)
	assert.Empty(t, queue)
	assert.Equal(t, 2, cap(queue), "the queue keeps its capacity")
	assert.Equal(t, []byte{2}, out[1].Data)
}

func TestSurfaceBufferDescriptors(t *testing.T) {
	p := NewBindGroupProvider("body",
		WithVertexData(make([]byte, 288)),
		WithLodIndices([][]uint32{{0, 1, 2, 2, 1, 3}, {}}),
	)
	assert.Len(t, p.VertexData(), 288)

	vb, ok := p.VertexBufferDescriptor()
	require.True(t, ok)
	assert.Equal(t, "body Vertex Buffer", vb.Label)
	assert.Equal(t, uint64(288), vb.Size)
	assert.Equal(t, wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst, vb.Usage)

	ib, ok := p.IndexBufferDescriptor(0)
	require.True(t, ok)
	assert.Equal(t, uint64(6*4), ib.Size)
	assert.Equal(t, wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst, ib.Usage)
	_, ok = p.IndexBufferDescriptor(1)
	assert.False(t, ok, "an empty level gets no buffer")
	_, ok = p.IndexBufferDescriptor(5)
	assert.False(t, ok)

	_, ok = p.BufferDescriptor(BindingBonePalette)
	assert.False(t, ok, "surface providers carry no storage bindings")
	assert.Empty(t, p.BindGroupLayoutDescriptor().Entries)
}

func TestPaletteBufferDescriptors(t *testing.T) {
	p := NewBindGroupProvider("body_palette",
		WithBufferSize(2, 32),
		WithBufferSize(BindingBonePalette, 3*64),
	)
	assert.Nil(t, p.VertexData())
	_, ok := p.VertexBufferDescriptor()
	assert.False(t, ok)
	assert.Equal(t, uint64(3*64), p.BufferSize(BindingBonePalette))
	assert.Zero(t, p.BufferSize(7))

	desc, ok := p.BufferDescriptor(BindingBonePalette)
	require.True(t, ok)
	assert.Equal(t, uint64(3*64), desc.Size)
	assert.Equal(t, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst, desc.Usage)
	assert.False(t, desc.MappedAtCreation)

	layout := p.BindGroupLayoutDescriptor()
	assert.Equal(t, "body_palette Bind Group Layout", layout.Label)
	require.Len(t, layout.Entries, 2)
	assert.Equal(t, uint32(BindingBonePalette), layout.Entries[0].Binding, "entries are ordered by binding")
	assert.Equal(t, uint32(2), layout.Entries[1].Binding)
	for _, e := range layout.Entries {
		assert.Equal(t, wgpu.ShaderStageVertex, e.Visibility)
		assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, e.Buffer.Type)
	}
	assert.Equal(t, uint64(3*64), layout.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, uint64(32), layout.Entries[1].Buffer.MinBindingSize)
}
