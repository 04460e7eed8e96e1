package scene

import (
	"github.com/Carmen-Shannon/oxy-mdm/engine/game_object"
	"github.com/Carmen-Shannon/oxy-mdm/engine/lod"
	"github.com/Carmen-Shannon/oxy-mdm/engine/profiler"
	"github.com/Carmen-Shannon/oxy-mdm/engine/renderer/animator"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithObjects adds initial objects to the scene, as Add would.
// Options are applied in order, so backend and LOD options must come first to affect these objects.
//
// Parameters:
//   - objects: the objects to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjects(objects ...game_object.GameObject) SceneBuilderOption {
	return func(s *scene) {
		for _, obj := range objects {
			s.add(obj)
		}
	}
}

// WithBackendType sets the skinning backend of the Animators the scene creates. Defaults to the CPU backend.
//
// Parameters:
//   - t: the backend type
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithBackendType(t animator.AnimatorBackendType) SceneBuilderOption {
	return func(s *scene) {
		s.backendType = t
	}
}

// WithAnimatorOptions sets extra options for the Animators the scene creates,
// such as a solver configuration or buffer capacities.
//
// Parameters:
//   - opts: the animator options
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithAnimatorOptions(opts ...animator.AnimatorBuilderOption) SceneBuilderOption {
	return func(s *scene) {
		s.animOpts = append(s.animOpts, opts...)
	}
}

// WithLodParams sets the detail tunables handed to the Animators the scene creates.
//
// Parameters:
//   - p: the tunables
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLodParams(p lod.Params) SceneBuilderOption {
	return func(s *scene) {
		s.params = p
	}
}

// WithProfiler sets the profiler that receives each object's detail reduction counters.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) SceneBuilderOption {
	return func(s *scene) {
		s.profiler = p
	}
}

// WithComputeWorkers sets the number of worker goroutines used to prepare objects
// in PrepareFrame. Defaults to runtime.NumCPU()-1.
// Higher values help scenes with many skeletal entities; lower values reduce scheduling
// overhead for small scenes.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.computeWorkers = n
	}
}

// WithQueueSize sets the task queue length of the compute pool. Defaults to 256.
//
// Parameters:
//   - n: the queue length (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithQueueSize(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.queueSize = n
	}
}
