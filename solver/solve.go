package solver

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/notargets/gopde/sysmat"
	"github.com/notargets/gopde/types"
	"github.com/notargets/gopde/utils"
)

// Krylov resolves the method used for options, DEFAULT picks PCG for symmetric matrices
func (o Options) Krylov() (method types.SolverMethod, krylov krylovMethod) {
	method = o.Method
	if method == types.SM_Default {
		if o.Symmetric {
			method = types.SM_PCG
		} else {
			method = types.SM_BiCGStab
		}
	}
	switch method {
	case types.SM_PCG:
		krylov = PCG
	case types.SM_GMRES:
		m := o.Truncation
		if o.Restart > 0 && o.Restart < m {
			m = o.Restart
		}
		krylov = NewGMRES(m)
	case types.SM_PRES20:
		krylov = NewGMRES(5)
	default:
		method, krylov = types.SM_BiCGStab, BiCGStab
	}
	return
}

/*
Solve solves S x = b. x is overwritten with the preconditioned initial guess P⁻¹ b and
improved by the selected Krylov method until

	|r|_2 <= tolerance |b|_2 and |r|_max <= tolerance |b|_max

with the max norms scaled by the row normalization of S. A loop without progress ends
as Diverged and exhausting IterMax as MaxIterReached, both reported as SolverWarning
errors. x and b hold the locally owned entries of a distributed S.
*/
func Solve(S *sysmat.SystemMatrix, x, b []float64, options Options) (stats Stats, err error) {
	method, krylov := options.Krylov()
	return solveWith(S, x, b, options, method, krylov)
}

// solveWith runs the outer iteration of Solve around krylov
func solveWith(S *sysmat.SystemMatrix, x, b []float64, options Options,
	method types.SolverMethod, krylov krylovMethod) (stats Stats, err error) {
	start := time.Now()
	stats.Status = types.SS_Initializing
	stats.Preconditioner = options.Preconditioner
	stats.Method = method
	fatal := func(e error) (Stats, error) {
		stats.Status = types.SS_FatalError
		return stats, e
	}
	if err = options.Validate(); err != nil {
		return fatal(err)
	}
	if err = S.Validate(); err != nil {
		return fatal(err)
	}
	n := S.LocalSize()
	if len(x) != n || len(b) != n {
		return fatal(types.NewError(types.ValueError,
			"vector lengths %d and %d do not match the %d local rows", len(x), len(b), n))
	}
	if !utils.IsFinite(b) {
		return fatal(types.NewError(types.ValueError, "right hand side has NaN or infinite entries"))
	}
	var (
		w                = S.Normalization()
		norm2B, normMaxB = S.Norms(b, w)
		tol              = math.Max(options.Tolerance, epsilon)
		r                = make([]float64, n)
		last2, lastMax   float64
		norm2R, normMaxR float64
		totIter          int
		P                Preconditioner
		verbose          = options.Verbose
	)
	if norm2B <= 0 {
		for i := range x {
			x[i] = 0
		}
		stats.Status = types.SS_Converged
		stats.SetupTime = time.Since(start)
		return
	}
	if P, err = NewPreconditioner(S, options); err != nil {
		return fatal(fmt.Errorf("preconditioner %v: %w", options.Preconditioner, err))
	}
	P.Solve(x, b)
	stats.SetupTime = time.Since(start)
	start = time.Now()
	defer func() {
		stats.Iterations = totIter
		stats.ResidualNorm2, stats.ResidualNormMax = norm2R, normMaxR
		stats.SolveTime = time.Since(start)
		if verbose {
			log.Printf("%v", stats)
		}
	}()
	stats.Status = types.SS_Iterating
	for {
		copy(r, b)
		S.MatrixVector(-1, x, 1, r)
		norm2R, normMaxR = S.Norms(r, w)
		if math.IsNaN(norm2R) {
			stats.Status = types.SS_FatalError
			err = types.NewError(types.SystemError, "residual is NaN after %d iterations", totIter)
			return
		}
		if verbose {
			log.Printf("iteration %d: |r|_2 = %e (%e), |r|_max = %e (%e)",
				totIter, norm2R, tol*norm2B, normMaxR, tol*normMaxB)
		}
		if totIter > 0 && norm2R >= last2 && normMaxR >= lastMax {
			stats.Status = types.SS_Diverged
			err = types.NewError(types.SolverWarning,
				"no improvement of the residual after %d iterations", totIter)
			return
		}
		if norm2R <= tol*norm2B && normMaxR <= tol*normMaxB {
			stats.Status = types.SS_Converged
			return
		}
		tolerance := tol * norm2B
		if normMaxR > 0 {
			tolerance = tol * math.Min(norm2B, 0.1*norm2R/normMaxR*normMaxB)
		}
		cnt, resid, kerr := krylov(S, P, x, r, options.IterMax-totIter, tolerance)
		totIter += cnt
		last2, lastMax = norm2R, normMaxR
		switch {
		case kerr == nil:
		case errors.Is(kerr, errMaxIterations):
			copy(r, b)
			S.MatrixVector(-1, x, 1, r)
			norm2R, normMaxR = S.Norms(r, w)
			stats.Status = types.SS_MaxIterReached
			err = types.NewError(types.SolverWarning,
				"maximum number of iterations %d reached, |r|_2 = %e", options.IterMax, norm2R)
			return
		case errors.Is(kerr, errBreakdown) && cnt <= 1:
			stats.Status = types.SS_FatalError
			err = types.NewError(types.ZeroDivisionError,
				"%v breakdown after %d iterations", stats.Method, cnt)
			return
		case errors.Is(kerr, errBreakdown):
			stats.Restarts++
			if verbose {
				log.Printf("%v breakdown after %d iterations, |r|_2 = %e, restarting", stats.Method, cnt, resid)
			}
		default:
			stats.Status = types.SS_FatalError
			err = types.NewError(types.SystemError, "%v failed: %v", stats.Method, kerr)
			return
		}
	}
}

const epsilon = 2.220446049250313e-16
