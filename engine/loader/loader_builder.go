package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithSurfaceProviders is an option builder that binds a bind group provider with precomputed
// per-level index lists to every surface of the loaded models.
//
// Parameters:
//   - enabled: true to bind providers at load time
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithSurfaceProviders(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.surfaceProviders = enabled
	}
}

// WithAsset is an option builder that pre-populates the asset cache.
//
// Parameters:
//   - key: the cache key for the asset
//   - asset: the asset to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the asset option to a loader
func WithAsset(key string, asset Asset) LoaderBuilderOption {
	return func(l *loader) {
		l.assetCache[key] = asset
	}
}
