package animator

import (
	"github.com/Carmen-Shannon/oxy-mdm/engine/lod"
	"github.com/Carmen-Shannon/oxy-mdm/engine/skeleton"
)

const (
	// DefaultMaxVertexes is the CPU backend's vertex capacity when none is configured.
	DefaultMaxVertexes = 1 << 16
	// DefaultMaxIndexes is the CPU backend's index capacity when none is configured.
	DefaultMaxIndexes = 6 << 16
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithSolver is an option builder that sets the skeleton solve context.
// Without it the Animator creates its own Solver with default settings.
//
// Parameters:
//   - s: the solver
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the solver option to an animator
func WithSolver(s skeleton.Solver) AnimatorBuilderOption {
	return func(a *animator) {
		a.solver = s
	}
}

// WithSolverOptions is an option builder that configures the Solver the Animator creates when
// none is set with WithSolver. Each Animator gets its own Solver, so the options can be shared.
//
// Parameters:
//   - opts: the solver options
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the solver options to an animator
func WithSolverOptions(opts ...skeleton.SolverBuilderOption) AnimatorBuilderOption {
	return func(a *animator) {
		a.solverOpts = append(a.solverOpts, opts...)
	}
}

// WithParams is an option builder that sets the detail tunables.
//
// Parameters:
//   - p: the tunables
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the params option to an animator
func WithParams(p lod.Params) AnimatorBuilderOption {
	return func(a *animator) {
		a.params = p
	}
}

// WithViewer is an option builder that sets the camera used for detail selection.
//
// Parameters:
//   - v: the viewer
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the viewer option to an animator
func WithViewer(v lod.Viewer) AnimatorBuilderOption {
	return func(a *animator) {
		a.viewer = v
	}
}

// WithKernel is an option builder that sets the 3x3 transform kernel of the CPU backend.
//
// Parameters:
//   - k: the kernel
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the kernel option to an animator
func WithKernel(k Kernel) AnimatorBuilderOption {
	return func(a *animator) {
		if k != nil {
			a.kernel = k
		}
	}
}

// WithCapacity is an option builder that sets the CPU backend's output buffer sizes.
// Non-positive values keep the defaults.
//
// Parameters:
//   - maxVertexes: the vertex capacity
//   - maxIndexes: the index capacity
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the capacity option to an animator
func WithCapacity(maxVertexes, maxIndexes int) AnimatorBuilderOption {
	return func(a *animator) {
		if maxVertexes > 0 {
			a.maxVertexes = maxVertexes
		}
		if maxIndexes > 0 {
			a.maxIndexes = maxIndexes
		}
	}
}

// WithPaletteBinding is an option builder that sets the binding the GPU backend stages the bone palette to.
//
// Parameters:
//   - binding: the bind group binding index
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the binding option to an animator
func WithPaletteBinding(binding int) AnimatorBuilderOption {
	return func(a *animator) {
		a.paletteBinding = binding
	}
}
