package solver

import (
	"fmt"
	"math"
	"time"

	"github.com/notargets/gopde/types"
)

// Options configures Solve and the preconditioners it builds
type Options struct {
	Tolerance           float64
	Method              types.SolverMethod
	Symmetric           bool
	IterMax             int
	Restart             int // GMRES restart, 0 never restarts
	Truncation          int // GMRES Krylov dimension
	Verbose             bool
	Preconditioner      types.PreconditionerType
	Sweeps              int
	CoarseningMethod    types.CoarseningMethod
	CoarseningThreshold float64
	MinCoarseMatrixSize int
	LevelMax            int
}

func DefaultOptions() Options {
	return Options{
		Tolerance:           1e-8,
		Method:              types.SM_Default,
		IterMax:             10000,
		Restart:             0,
		Truncation:          20,
		Preconditioner:      types.PC_Jacobi,
		Sweeps:              1,
		CoarseningMethod:    types.CM_RugeStueben,
		CoarseningThreshold: 0.25,
		MinCoarseMatrixSize: 500,
		LevelMax:            5,
	}
}

// Validate reports the first option outside its range
func (o Options) Validate() error {
	switch {
	case o.Tolerance < 0 || math.IsNaN(o.Tolerance):
		return types.NewError(types.ValueError, "tolerance must be non-negative, have %g", o.Tolerance)
	case o.IterMax < 0:
		return types.NewError(types.ValueError, "iter_max must be non-negative, have %d", o.IterMax)
	case o.Restart < 0 || o.Truncation < 0:
		return types.NewError(types.ValueError, "restart %d and truncation %d must be non-negative",
			o.Restart, o.Truncation)
	case o.Sweeps < 1:
		return types.NewError(types.ValueError, "number of sweeps must be positive, have %d", o.Sweeps)
	case o.CoarseningThreshold < 0 || o.CoarseningThreshold > 1:
		return types.NewError(types.ValueError, "coarsening threshold must be in [0,1], have %g",
			o.CoarseningThreshold)
	case o.LevelMax < 0:
		return types.NewError(types.ValueError, "level_max must be non-negative, have %d", o.LevelMax)
	}
	return nil
}

// Stats reports the outcome of Solve
type Stats struct {
	Method          types.SolverMethod
	Preconditioner  types.PreconditionerType
	Status          types.SolverStatus
	Iterations      int
	Restarts        int
	ResidualNorm2   float64
	ResidualNormMax float64
	SetupTime       time.Duration
	SolveTime       time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("%v/%v: %v after %d iterations (%d restarts), |r|_2 = %.6e, |r|_max = %.6e, setup %v, solve %v",
		s.Method, s.Preconditioner, s.Status, s.Iterations, s.Restarts,
		s.ResidualNorm2, s.ResidualNormMax, s.SetupTime, s.SolveTime)
}
