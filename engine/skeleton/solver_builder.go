package skeleton

// SolverBuilderOption is a functional option for configuring a Solver via NewSolver.
type SolverBuilderOption func(*solver)

// WithSinTable is an option builder that sets the lookup table used to decode angles.
// The table must match the quantization the keyframes were authored with.
//
// Parameters:
//   - table: the sine table
//
// Returns:
//   - SolverBuilderOption: a function that applies the table option to a solver
func WithSinTable(table *SinTable) SolverBuilderOption {
	return func(s *solver) {
		if table != nil {
			s.table = table
		}
	}
}

// WithMaxBones is an option builder that lowers the bone limit. Values outside (0, MaxBones] are ignored.
//
// Parameters:
//   - n: the largest skeleton the solver accepts
//
// Returns:
//   - SolverBuilderOption: a function that applies the limit option to a solver
func WithMaxBones(n int) SolverBuilderOption {
	return func(s *solver) {
		if n > 0 && n <= MaxBones {
			s.maxBones = n
		}
	}
}

// WithStatsLogging is an option builder that logs the detail reduction stats at the end of each cache generation.
//
// Parameters:
//   - enabled: true to log
//
// Returns:
//   - SolverBuilderOption: a function that applies the logging option to a solver
func WithStatsLogging(enabled bool) SolverBuilderOption {
	return func(s *solver) {
		s.logStats = enabled
	}
}

// WithSolveObserver is an option builder that registers a callback invoked each time a bone is freshly solved.
// The callback runs on the solving goroutine and must not call back into the Solver.
//
// Parameters:
//   - fn: the callback, receiving the bone number
//
// Returns:
//   - SolverBuilderOption: a function that applies the observer option to a solver
func WithSolveObserver(fn func(bone int32)) SolverBuilderOption {
	return func(s *solver) {
		s.observer = fn
	}
}
