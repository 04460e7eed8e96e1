package loader

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-mdm/engine/model"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/animator"
)

// LoaderBackendType identifies the asset source backend to use.
type LoaderBackendType int

const (
	// BackendTypeProcedural selects the procedural humanoid backend.
	BackendTypeProcedural LoaderBackendType = iota
)

// Asset is a skinned mesh together with the animation set it was built for.
type Asset struct {
	Model    model.Model
	Skeleton *model.Skeleton
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	assetCache       map[string]Asset
	surfaceProviders bool

	backend loaderBackend
}

// Loader defines the public-facing interface for building and caching skinned assets.
// It abstracts the asset source behind a generic backend and manages a cache of previously
// built assets keyed by recipe name.
type Loader interface {
	// Load builds the asset described by the recipe and caches the result.
	// If an asset with the recipe's name is already cached, the cached version is returned.
	//
	// Parameters:
	//   - r: the recipe describing the asset
	//
	// Returns:
	//   - Asset: the built and cached asset
	//   - error: error if building fails
	Load(r Recipe) (Asset, error)

	// Get retrieves a cached asset by name.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - Asset: the cached asset
	//   - bool: false if not found
	Get(name string) (Asset, bool)

	// Assets returns a copy of the asset cache.
	//
	// Returns:
	//   - map[string]Asset: all cached assets keyed by name
	Assets() map[string]Asset

	// Release releases the GPU resources of every cached model and empties the cache.
	Release()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeProcedural)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		assetCache: make(map[string]Asset),
	}

	switch backendType {
	case BackendTypeProcedural:
		l.backend = newProceduralLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(r Recipe) (Asset, error) {
	l.mu.RLock()
	if cached, ok := l.assetCache[r.Name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	if l.backend == nil {
		return Asset{}, fmt.Errorf("loader: no backend for %q", r.Name)
	}

	imported, err := l.backend.Load(r)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to load %s: %w", r.Name, err)
	}

	asset := l.importedToAsset(imported)

	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.assetCache[r.Name]; ok {
		asset.Model.Release()
		return cached, nil
	}
	l.assetCache[r.Name] = asset
	return asset, nil
}

func (l *loader) Get(name string) (Asset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.assetCache[name]
	return a, ok
}

func (l *loader) Assets() map[string]Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]Asset, len(l.assetCache))
	for k, v := range l.assetCache {
		result[k] = v
	}
	return result
}

func (l *loader) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range l.assetCache {
		if a.Model != nil {
			a.Model.Release()
		}
	}
	l.assetCache = make(map[string]Asset)
}

// importedToAsset converts an importedAsset (CPU data) into an engine-ready Asset.
// When surface providers are enabled every surface is bound to a provider holding its
// per-level index lists, so the GPU skinning path finds them ready on first draw.
//
// Parameters:
//   - imported: the CPU-side asset data
//
// Returns:
//   - Asset: the engine-ready asset
func (l *loader) importedToAsset(imported *importedAsset) Asset {
	mdl := model.NewModel(
		model.WithName(imported.name),
		model.WithSurfaces(imported.surfaces...),
		model.WithTags(imported.tags...),
		model.WithLodBias(imported.lodBias),
		model.WithBoundingRadius(imported.radius),
	)

	if l.surfaceProviders {
		for i, surf := range imported.surfaces {
			mdl.SetSurfaceProvider(i, animator.NewSurfaceProvider(fmt.Sprintf("%s_%s", imported.name, surf.Name), surf))
		}
	}

	return Asset{Model: mdl, Skeleton: imported.skeleton}
}
