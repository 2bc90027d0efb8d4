package solver

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/notargets/gopde/sysmat"
	"github.com/notargets/gopde/types"
	"github.com/notargets/gopde/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// laplace2D is the 5-point stencil on an nx x nx grid of interior points with shift
// added to the diagonal
func laplace2D(t *testing.T, nx int, shift float64) (A *sysmat.SparseMatrix) {
	var (
		n   = nx * nx
		dok = utils.NewDOK(n, n, "laplace2D")
	)
	neighbours := func(i int, f func(j int, v float64)) {
		ix, iy := i%nx, i/nx
		f(i, 4+shift)
		if ix > 0 {
			f(i-1, -1)
		}
		if ix < nx-1 {
			f(i+1, -1)
		}
		if iy > 0 {
			f(i-nx, -1)
		}
		if iy < nx-1 {
			f(i+nx, -1)
		}
	}
	for i := 0; i < n; i++ {
		neighbours(i, func(j int, v float64) { dok.Insert(i, j) })
	}
	A = sysmat.NewSparseMatrix(sysmat.NewPatternFromDOK(dok), 1, 1)
	for i := 0; i < n; i++ {
		neighbours(i, func(j int, v float64) { require.True(t, A.AddAt(i, j, v)) })
	}
	return
}

// line is the stiffness matrix of n-1 equal linear elements on [0,1], block size bs
// with the stencil on the block diagonal
func line(t *testing.T, n, bs int) (A *sysmat.SparseMatrix) {
	var (
		dok = utils.NewDOK(n, n, "line")
		h   = 1. / float64(n-1)
	)
	for e := 0; e < n-1; e++ {
		for _, i := range []int{e, e + 1} {
			for _, j := range []int{e, e + 1} {
				dok.Insert(i, j)
			}
		}
	}
	A = sysmat.NewSparseMatrix(sysmat.NewPatternFromDOK(dok), bs, bs)
	for e := 0; e < n-1; e++ {
		for _, i := range []int{e, e + 1} {
			for _, j := range []int{e, e + 1} {
				v := -1 / h
				if i == j {
					v = 1 / h
				}
				for k := 0; k < bs; k++ {
					require.True(t, A.AddAt(i*bs+k, j*bs+k, v))
				}
			}
		}
	}
	return
}

func systemOf(A *sysmat.SparseMatrix) (S *sysmat.SystemMatrix) {
	S = sysmat.NewSystemMatrix(A.Pattern, A.RowBlockSize, A.ColBlockSize)
	copy(S.MainBlock.Val, A.Val)
	return
}

func denseSolve(t *testing.T, A *sysmat.SparseMatrix, b []float64) []float64 {
	var (
		x mat.VecDense
	)
	require.NoError(t, x.SolveVec(A.ToDense(), mat.NewVecDense(len(b), b)))
	return x.RawVector().Data
}

func TestSmoother(t *testing.T) {
	{ // One Jacobi sweep from zero is D⁻¹b
		A := laplace2D(t, 3, 1)
		b := utils.ConstArray(9, 10)
		x := make([]float64, 9)
		sm, err := NewSmoother(A, true, false)
		require.NoError(t, err)
		sm.Solve(x, b, 1, false)
		assert.InDeltaSlice(t, utils.ConstArray(9, 2), x, 1.e-15)
	}
	{ // Sequential and colored Gauss-Seidel reach the same fixed point
		shifted := line(t, 10, 2)
		for i := 0; i < 20; i++ {
			shifted.AddAt(i, i, 1)
		}
		for _, A := range []*sysmat.SparseMatrix{laplace2D(t, 8, 1), shifted} {
			var (
				n, _ = A.Dims()
				b    = make([]float64, n)
			)
			for i := range b {
				b[i] = math.Cos(float64(i))
			}
			exact := denseSolve(t, A, b)
			for _, colored := range []bool{false, true} {
				sm, err := NewSmoother(A, false, false)
				require.NoError(t, err)
				sm.Colored = colored
				x := make([]float64, n)
				sm.Solve(x, b, 400, false)
				assert.InDeltaSlice(t, exact, x, 1.e-8)
			}
		}
	}
	{ // Missing diagonal
		p, err := sysmat.NewPattern(2, 2, []int{0, 1, 2}, []int{1, 0})
		require.NoError(t, err)
		_, err = NewSmoother(sysmat.NewSparseMatrix(p, 1, 1), true, false)
		assert.True(t, errors.Is(err, types.ErrZeroDivision))
	}
}

func TestCoarsening(t *testing.T) {
	{ // Alternating splits of the 1D stencil
		A := line(t, 10, 1)
		even := []int{0, 2, 4, 6, 8}
		odd := []int{1, 3, 5, 7, 9}
		assert.Equal(t, utils.Index(even),
			utils.PackMask(Coarsen(A, types.CM_RugeStueben, 0.25)))
		assert.Equal(t, utils.Index(even),
			utils.PackMask(Coarsen(A, types.CM_YairShapira, 0.25)))
		assert.Equal(t, utils.Index(odd),
			utils.PackMask(Coarsen(A, types.CM_Aggregation, 0.25)))
	}
	{ // Rows without strong connections are eliminated
		A := laplace2D(t, 1, 0)
		for _, cm := range []types.CoarseningMethod{types.CM_RugeStueben, types.CM_YairShapira,
			types.CM_Aggregation} {
			assert.Equal(t, []bool{true}, Coarsen(A, cm, 0.25))
		}
	}
	{ // Every method coarsens the 2D stencil, with and without a heavier diagonal
		for _, shift := range []float64{0, 1, 10} {
			A := laplace2D(t, 30, shift)
			for _, cm := range []types.CoarseningMethod{types.CM_RugeStueben, types.CM_YairShapira,
				types.CM_Aggregation} {
				nF := len(utils.PackMask(Coarsen(A, cm, 0.25)))
				assert.True(t, nF > 0 && nF < 900, "%v shift %g: nF = %d", cm, shift, nF)
			}
		}
	}
	{ // The symmetric strength relation ignores the main diagonal
		for _, shift := range []float64{0, 100} {
			S := strongSymmetric(laplace2D(t, 3, shift), 0.25)
			assert.Equal(t, []int{1, 3, 5, 7}, S[4])
			assert.Equal(t, []int{1, 3}, S[0])
		}
	}
	{ // Every F row of Ruge-Stueben depends strongly on a C row
		A := laplace2D(t, 12, 0)
		isF := Coarsen(A, types.CM_RugeStueben, 0.25)
		S := strongNegative(A, 0.25)
		for i, f := range isF {
			if !f {
				continue
			}
			var hasC bool
			for _, j := range S[i] {
				hasC = hasC || !isF[j]
			}
			assert.True(t, hasC, "row %d", i)
		}
	}
}

func TestAMG(t *testing.T) {
	options := DefaultOptions()
	{ // Two level split of the 1D stencil
		A := line(t, 10, 1)
		options.MinCoarseMatrixSize = 2
		amg, err := GetAMG(A, 5, options)
		require.NoError(t, err)
		require.False(t, amg.CoarsestLevel)
		assert.Equal(t, utils.Index{0, 2, 4, 6, 8}, amg.RowsInF)
		assert.Equal(t, utils.Index{1, 3, 5, 7, 9}, amg.RowsInC)
		assert.Equal(t, 2, amg.MaskC[5])
		assert.Equal(t, -1, amg.MaskC[4])
		h := 1. / 9
		assert.InDeltaSlice(t, []float64{h, h / 2, h / 2, h / 2, h / 2}, amg.InvAFF, 1.e-14)
		// S = A_CC - A_CF A_FF⁻¹ A_FC
		S := amg.Schur.A
		assert.InDelta(t, 0.5/h, S.At(0, 0), 1.e-12)
		assert.InDelta(t, -0.5/h, S.At(0, 1), 1.e-12)
		assert.InDelta(t, 0, S.At(0, 2), 1.e-12)
		assert.InDelta(t, 1/h, S.At(1, 1), 1.e-12)
		assert.InDelta(t, 0.5/h, S.At(4, 4), 1.e-12)
		assert.True(t, S.IsSymmetric(1.e-12))
		assert.True(t, amg.NumLevels() > 1)
	}
	{ // All rows in F end the hierarchy with a Jacobi smoother
		A := diagonal(t, 600)
		options.MinCoarseMatrixSize = 500
		amg, err := GetAMG(A, 5, options)
		require.NoError(t, err)
		assert.True(t, amg.CoarsestLevel)
		assert.True(t, amg.Smoother.Jacobi)
		assert.Equal(t, 1, amg.NumLevels())
		x, b := make([]float64, 600), utils.ConstArray(600, 3)
		amg.Solve(x, b)
		assert.InDeltaSlice(t, utils.ConstArray(600, 1), x, 1.e-15)
	}
	{ // Level zero and small matrices are coarsest
		amg, err := GetAMG(laplace2D(t, 4, 0), 0, options)
		require.NoError(t, err)
		assert.True(t, amg.CoarsestLevel)
		options.MinCoarseMatrixSize = 16
		amg, err = GetAMG(laplace2D(t, 4, 0), 3, options)
		require.NoError(t, err)
		assert.True(t, amg.CoarsestLevel)
	}
	{ // F-restricted row sum of zero
		p, err := sysmat.NewPattern(3, 3, []int{0, 2, 4, 5}, []int{0, 1, 0, 1, 2})
		require.NoError(t, err)
		A := sysmat.NewSparseMatrix(p, 1, 1)
		copy(A.Val, []float64{1, -1, -1, 1, 1})
		isF := []bool{true, true, false}
		_, err = rowSumInverse(A, utils.PackMask(isF), isF)
		assert.True(t, errors.Is(err, types.ErrZeroDivision))
		isF = []bool{true, false, true}
		inv, err := rowSumInverse(A, utils.PackMask(isF), isF)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 1}, inv)
	}
	{ // Block matrices are rejected
		_, err := GetAMG(line(t, 4, 2), 5, options)
		assert.True(t, errors.Is(err, types.ErrMatrixType))
	}
}

func diagonal(t *testing.T, n int) (A *sysmat.SparseMatrix) {
	p, err := sysmat.NewPattern(n, n, utils.NewRange(0, n), utils.NewRange(0, n-1))
	require.NoError(t, err)
	A = sysmat.NewSparseMatrix(p, 1, 1)
	A.SetValues(3)
	return
}

// dirichletLine is the 5 node line with the first row and column replaced by the identity
func dirichletLine(t *testing.T) (S *sysmat.SystemMatrix, b []float64) {
	S = systemOf(line(t, 5, 1))
	mask := []float64{1, 0, 0, 0, 0}
	S.NullifyRowsAndCols(mask, mask, 1)
	b = []float64{0, 0, 0, 0, 1}
	return
}

func TestSolve(t *testing.T) {
	ramp := []float64{0, 0.25, 0.5, 0.75, 1}
	{ // Every method and preconditioner solves the Dirichlet line
		for _, method := range []types.SolverMethod{types.SM_Default, types.SM_PCG, types.SM_BiCGStab,
			types.SM_GMRES, types.SM_PRES20} {
			for _, pc := range []types.PreconditionerType{types.PC_Jacobi, types.PC_GaussSeidel,
				types.PC_AMG, types.PC_None} {
				S, b := dirichletLine(t)
				options := DefaultOptions()
				options.Method, options.Preconditioner = method, pc
				options.Symmetric = true
				options.Tolerance = 1.e-10
				x := make([]float64, 5)
				stats, err := Solve(S, x, b, options)
				require.NoError(t, err, "%v/%v", method, pc)
				assert.Equal(t, types.SS_Converged, stats.Status)
				assert.InDeltaSlice(t, ramp, x, 1.e-8, "%v/%v", method, pc)
				for i := 1; i < 5; i++ {
					assert.True(t, x[i] > x[i-1])
				}
			}
		}
	}
	{ // Default method selection
		options := DefaultOptions()
		m, _ := options.Krylov()
		assert.Equal(t, types.SM_BiCGStab, m)
		options.Symmetric = true
		m, _ = options.Krylov()
		assert.Equal(t, types.SM_PCG, m)
		options.Method = types.SM_PRES20
		m, _ = options.Krylov()
		assert.Equal(t, types.SM_PRES20, m)
	}
	{ // Zero right hand side
		S, _ := dirichletLine(t)
		x := utils.ConstArray(5, 7)
		stats, err := Solve(S, x, make([]float64, 5), DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, types.SS_Converged, stats.Status)
		assert.Equal(t, 0, stats.Iterations)
		assert.Equal(t, make([]float64, 5), x)
	}
	{ // No iterations leave the preconditioned initial guess
		S, b := dirichletLine(t)
		options := DefaultOptions()
		options.IterMax = 0
		x := make([]float64, 5)
		stats, err := Solve(S, x, b, options)
		assert.Equal(t, types.SS_MaxIterReached, stats.Status)
		assert.True(t, types.IsWarning(err))
		assert.Equal(t, 0, stats.Iterations)
		assert.InDeltaSlice(t, []float64{0, 0, 0, 0, 0.25}, x, 1.e-15)
	}
	{ // An inner solve leaving the residual unchanged ends as Diverged
		S, b := dirichletLine(t)
		options := DefaultOptions()
		stall := func(S *sysmat.SystemMatrix, P Preconditioner, x, r []float64,
			maxIter int, tol float64) (int, float64, error) {
			return 1, 1, nil
		}
		x := make([]float64, 5)
		stats, err := solveWith(S, x, b, options, types.SM_PCG, stall)
		assert.Equal(t, types.SS_Diverged, stats.Status)
		assert.True(t, types.IsWarning(err))
		assert.True(t, errors.Is(err, types.ErrSolverWarning))
		assert.Equal(t, 1, stats.Iterations)
		// x keeps the preconditioned initial guess
		assert.InDeltaSlice(t, []float64{0, 0, 0, 0, 0.25}, x, 1.e-15)
	}
	{ // A breakdown after several inner iterations restarts the outer loop
		S, b := dirichletLine(t)
		options := DefaultOptions()
		options.Tolerance = 1.e-10
		var calls int
		breakOnce := func(S *sysmat.SystemMatrix, P Preconditioner, x, r []float64,
			maxIter int, tol float64) (int, float64, error) {
			calls++
			iter, resid, err := PCG(S, P, x, r, maxIter, tol)
			if calls == 1 {
				return 2, resid, errBreakdown
			}
			return iter, resid, err
		}
		x := make([]float64, 5)
		stats, err := solveWith(S, x, b, options, types.SM_PCG, breakOnce)
		require.NoError(t, err)
		assert.Equal(t, types.SS_Converged, stats.Status)
		assert.Equal(t, 1, stats.Restarts)
		assert.True(t, stats.Iterations >= 2)
		assert.InDeltaSlice(t, ramp, x, 1.e-8)
	}
	{ // Fatal errors
		options := DefaultOptions()
		S := systemOf(line(t, 4, 1))
		_, err := Solve(S, make([]float64, 3), make([]float64, 4), options)
		assert.True(t, errors.Is(err, types.ErrValue))
		_, err = Solve(S, make([]float64, 4), []float64{0, math.NaN(), 0, 0}, options)
		assert.True(t, errors.Is(err, types.ErrValue))

		p, _ := sysmat.NewPattern(2, 2, []int{0, 1, 2}, []int{1, 0})
		S = sysmat.NewSystemMatrix(p, 1, 1)
		S.MainBlock.SetValues(1)
		stats, err := Solve(S, make([]float64, 2), []float64{1, 1}, options)
		assert.True(t, errors.Is(err, types.ErrZeroDivision))
		assert.Equal(t, types.SS_FatalError, stats.Status)

		S = sysmat.NewSystemMatrix(p, 2, 1)
		_, err = Solve(S, make([]float64, 4), make([]float64, 4), options)
		assert.True(t, errors.Is(err, types.ErrMatrixType))

		options.Sweeps = 0
		S = systemOf(line(t, 4, 1))
		_, err = Solve(S, make([]float64, 4), make([]float64, 4), options)
		assert.True(t, errors.Is(err, types.ErrValue))
	}
}

func TestSolveAMG(t *testing.T) {
	var (
		A       = laplace2D(t, 30, 1)
		n, _    = A.Dims()
		b       = make([]float64, n)
		x       = make([]float64, n)
		options = DefaultOptions()
	)
	for i := range b {
		b[i] = math.Sin(float64(i) / 10)
	}
	options.Preconditioner = types.PC_AMG
	options.Method = types.SM_GMRES
	options.MinCoarseMatrixSize = 50
	options.Tolerance = 1.e-10
	for _, cm := range []types.CoarseningMethod{types.CM_RugeStueben, types.CM_YairShapira,
		types.CM_Aggregation} {
		options.CoarseningMethod = cm
		amg, err := GetAMG(A, options.LevelMax, options)
		require.NoError(t, err, "%v", cm)
		assert.True(t, amg.NumLevels() > 1, "%v", cm)
		assert.Equal(t, n, len(amg.RowsInF)+len(amg.RowsInC))
		stats, err := Solve(systemOf(A), x, b, options)
		require.NoError(t, err, "%v", cm)
		assert.Equal(t, types.SS_Converged, stats.Status)
		assert.InDeltaSlice(t, denseSolve(t, A, b), x, 1.e-8)
	}
}

func TestSolveDistributed(t *testing.T) {
	var (
		np      = 2
		n       = 12
		A       = line(t, n, 1)
		options = DefaultOptions()
	)
	// reaction term
	for i := 0; i < n; i++ {
		A.AddAt(i, i, 1)
	}
	b := make([]float64, n)
	for i := range b {
		b[i] = float64(i%3) - 1
	}
	exact := denseSolve(t, A, b)
	partition := []int{0, 0, 1, 1, 1, 0, 0, 1, 1, 0, 0, 1}
	d, err := sysmat.NewDistribution(partition, np)
	require.NoError(t, err)
	for _, method := range []types.SolverMethod{types.SM_PCG, types.SM_BiCGStab, types.SM_GMRES} {
		parts, err := sysmat.Distribute(A, d, sysmat.NewThreadComms(np))
		require.NoError(t, err)
		options.Method = method
		options.Tolerance = 1.e-10
		var (
			locals = make([][]float64, np)
			stats  = make([]Stats, np)
			errs   = make([]error, np)
			wg     sync.WaitGroup
		)
		for r := 0; r < np; r++ {
			wg.Add(1)
			go func(r int) {
				defer wg.Done()
				locals[r] = make([]float64, d.LocalSize(r))
				stats[r], errs[r] = Solve(parts[r], locals[r], d.Scatter(b, r, 1), options)
			}(r)
		}
		wg.Wait()
		for r := 0; r < np; r++ {
			require.NoError(t, errs[r], "%v rank %d", method, r)
			assert.Equal(t, stats[0].Iterations, stats[r].Iterations)
		}
		assert.InDeltaSlice(t, exact, d.Gather(locals, 1), 1.e-8, "%v", method)
	}
}
