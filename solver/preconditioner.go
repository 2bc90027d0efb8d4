package solver

import (
	"log"
	"time"

	"github.com/notargets/gopde/sysmat"
	"github.com/notargets/gopde/types"
)

// Preconditioner applies an approximate inverse, x := P⁻¹ b
type Preconditioner interface {
	Solve(x, b []float64)
}

type identity struct{}

func (identity) Solve(x, b []float64) { copy(x, b) }

type smoothing struct {
	sm     *Smoother
	sweeps int
}

func (s smoothing) Solve(x, b []float64) { s.sm.Solve(x, b, s.sweeps, false) }

/*
NewPreconditioner builds the preconditioner selected in options for S. Smoothers take
their defect with the whole distributed matrix, AMG works on the local main block only.
*/
func NewPreconditioner(S *sysmat.SystemMatrix, options Options) (P Preconditioner, err error) {
	start := time.Now()
	switch options.Preconditioner {
	case types.PC_None:
		P = identity{}
	case types.PC_Jacobi, types.PC_GaussSeidel:
		var sm *Smoother
		jacobi := options.Preconditioner == types.PC_Jacobi
		if sm, err = NewSystemSmoother(S, jacobi, false, options.Verbose); err != nil {
			return
		}
		P = smoothing{sm: sm, sweeps: options.Sweeps}
	case types.PC_AMG:
		var amg *AMG
		if amg, err = GetAMG(S.MainBlock, options.LevelMax, options); err != nil {
			return
		}
		if options.Verbose {
			log.Printf("AMG hierarchy with %d levels", amg.NumLevels())
		}
		P = amg
	default:
		err = types.NewError(types.ValueError, "unknown preconditioner %d", options.Preconditioner)
		return
	}
	if options.Verbose {
		log.Printf("timing: preconditioner %v setup: %v", options.Preconditioner, time.Since(start))
	}
	return
}
