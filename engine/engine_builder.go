package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-mdm/engine/config"
	"github.com/Carmen-Shannon/oxy-mdm/engine/profiler"
	"github.com/Carmen-Shannon/oxy-mdm/engine/scene"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the engine's profiler, so scenes can report into the same instance.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		if p != nil {
			e.profiler = p
		}
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for animation updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithConfigStore attaches a config store. Each frame checks it and applies a changed
// configuration to the registered scenes, so a watched file takes effect without a restart.
//
// Parameters:
//   - store: the config store
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfigStore(store *config.Store) EngineBuilderOption {
	return func(e *engine) {
		e.store = store
	}
}

// WithScene registers a scene at the given z-index key during engine construction.
// Scenes are prepared in ascending key order.
//
// Parameters:
//   - key: the z-index determining preparation order (lower first)
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithFrameLimit sets an optional frame rate cap in frames per second.
// Pass 0 to uncap the frame loop (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.frameLimit = 0
			return
		}
		e.frameLimit = time.Duration(float64(time.Second) / fps)
	}
}
