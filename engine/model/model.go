package model

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/bind_group_provider"
)

// model is the implementation of the Model interface.
type model struct {
	mu               *sync.Mutex
	name             string
	surfaces         []*Surface
	tags             []Tag
	lodBias          float32
	lodScale         float32
	boundingRadius   float32
	surfaceProviders []bind_group_provider.BindGroupProvider
}

// Model defines the interface for a loaded skinned mesh.
// A Model holds the surfaces with their vertex bindings and collapse maps, the attachment tags,
// and the per-model level of detail tuning. Keyframes live in separate Skeleton assets referenced
// by the entity, so one mesh can be driven by several animation sets.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Surfaces retrieves all surfaces of the mesh.
	//
	// Returns:
	//   - []*Surface: the surfaces
	Surfaces() []*Surface

	// Surface retrieves a single surface by index.
	//
	// Parameters:
	//   - index: the surface index
	//
	// Returns:
	//   - *Surface: the surface, nil if index is out of range
	Surface(index int) *Surface

	// SurfaceCount returns the number of surfaces.
	//
	// Returns:
	//   - int: the surface count
	SurfaceCount() int

	// Tags retrieves the attachment tags in lookup order.
	//
	// Returns:
	//   - []Tag: the tags
	Tags() []Tag

	// GetTagIndex returns the index of the first tag with the given name at or after start, or -1.
	//
	// Parameters:
	//   - start: the first index to consider
	//   - name: the tag name
	//
	// Returns:
	//   - int: the tag index, or -1 if not found
	GetTagIndex(start int, name string) int

	// LodBias returns the per-model bias subtracted from the detail factor.
	//
	// Returns:
	//   - float32: the bias
	LodBias() float32

	// LodScale returns the per-model multiplier applied to the projected radius.
	//
	// Returns:
	//   - float32: the scale
	LodScale() float32

	// BoundingRadius returns the radius used to project the model onto the screen.
	//
	// Returns:
	//   - float32: the radius
	BoundingRadius() float32

	// SurfaceProvider retrieves the GPU resources bound to a surface, or nil when the surface has none.
	//
	// Parameters:
	//   - index: the surface index
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider or nil
	SurfaceProvider(index int) bind_group_provider.BindGroupProvider

	// SetSurfaceProvider binds GPU resources to a surface.
	//
	// Parameters:
	//   - index: the surface index
	//   - provider: the provider to bind
	SetSurfaceProvider(index int, provider bind_group_provider.BindGroupProvider)

	// EnsureSurfaceProvider returns the provider bound to a surface, binding the result of create first when there is none.
	// It returns nil when index is out of range.
	//
	// Parameters:
	//   - index: the surface index
	//   - create: builds the provider; called at most once per surface
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the bound provider
	EnsureSurfaceProvider(index int, create func() bind_group_provider.BindGroupProvider) bind_group_provider.BindGroupProvider

	// Release frees every bound surface provider.
	Release()
}

var _ Model = &model{}

// NewModel creates a new Model with the given options.
// LodScale defaults to 1 when not set.
//
// Parameters:
//   - options: variadic list of ModelBuilderOption functions to configure the model
//
// Returns:
//   - Model: the newly created model
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{
		mu:       &sync.Mutex{},
		lodScale: 1,
	}

	for _, opt := range options {
		opt(m)
	}

	m.surfaceProviders = make([]bind_group_provider.BindGroupProvider, len(m.surfaces))
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Surfaces() []*Surface {
	return m.surfaces
}

func (m *model) Surface(index int) *Surface {
	if index < 0 || index >= len(m.surfaces) {
		return nil
	}
	return m.surfaces[index]
}

func (m *model) SurfaceCount() int {
	return len(m.surfaces)
}

func (m *model) Tags() []Tag {
	return m.tags
}

func (m *model) GetTagIndex(start int, name string) int {
	if start < 0 {
		return -1
	}
	for i := start; i < len(m.tags); i++ {
		if m.tags[i].Name == name {
			return i
		}
	}
	return -1
}

func (m *model) LodBias() float32 {
	return m.lodBias
}

func (m *model) LodScale() float32 {
	return m.lodScale
}

func (m *model) BoundingRadius() float32 {
	return m.boundingRadius
}

func (m *model) SurfaceProvider(index int) bind_group_provider.BindGroupProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.surfaceProviders) {
		return nil
	}
	return m.surfaceProviders[index]
}

func (m *model) SetSurfaceProvider(index int, provider bind_group_provider.BindGroupProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.surfaceProviders) {
		return
	}
	m.surfaceProviders[index] = provider
}

func (m *model) EnsureSurfaceProvider(index int, create func() bind_group_provider.BindGroupProvider) bind_group_provider.BindGroupProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.surfaceProviders) {
		return nil
	}
	if m.surfaceProviders[index] == nil {
		m.surfaceProviders[index] = create()
	}
	return m.surfaceProviders[index]
}

func (m *model) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.surfaceProviders {
		if p != nil {
			p.Release()
			m.surfaceProviders[i] = nil
		}
	}
}
