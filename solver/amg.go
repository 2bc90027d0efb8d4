package solver

import (
	"log"
	"time"

	"github.com/notargets/gopde/sysmat"
	"github.com/notargets/gopde/types"
	"github.com/notargets/gopde/utils"
)

/*
AMG is one level of an algebraic multigrid hierarchy. With the rows split into F and C

	A = | A_FF A_FC |
	    | A_CF A_CC |

A_FF is approximated by its row sums and the next level works on the Schur complement
A_CC - A_CF A_FF⁻¹ A_FC. The coarsest level only smooths.
*/
type AMG struct {
	Level            int
	A                *sysmat.SparseMatrix
	CoarsestLevel    bool
	RowsInF, RowsInC utils.Index
	MaskF, MaskC     utils.Index // row to position in F or C, -1 outside
	InvAFF           []float64
	AFC, ACF         *sysmat.SparseMatrix
	Smoother         *Smoother
	Schur            *AMG
	sweeps           int
	xF, bF, xC, bC   []float64
	r                []float64
}

// GetAMG builds the hierarchy below A with at most level further levels
func GetAMG(A *sysmat.SparseMatrix, level int, options Options) (amg *AMG, err error) {
	if A.RowBlockSize != 1 || A.ColBlockSize != 1 {
		err = types.NewError(types.MatrixTypeError,
			"AMG requires block size 1, have %dx%d", A.RowBlockSize, A.ColBlockSize)
		return
	}
	var (
		n     = A.NumRows()
		start = time.Now()
	)
	amg = &AMG{
		Level:  level,
		A:      A,
		sweeps: options.Sweeps,
		r:      make([]float64, n),
	}
	if amg.sweeps < 1 {
		amg.sweeps = 1
	}
	if amg.Smoother, err = NewSmoother(A, true, options.Verbose); err != nil {
		return nil, err
	}
	if level == 0 || n <= options.MinCoarseMatrixSize {
		amg.CoarsestLevel = true
		if options.Verbose {
			log.Printf("AMG level %d: coarsest level with %d unknowns", level, n)
		}
		return
	}
	isF := Coarsen(A, options.CoarseningMethod, options.CoarseningThreshold)
	amg.RowsInF = utils.PackMask(isF)
	nF := len(amg.RowsInF)
	if nF == 0 || nF == n {
		amg.CoarsestLevel = true
		if options.Verbose {
			log.Printf("AMG level %d: no coarsening possible, %d of %d unknowns in F", level, nF, n)
		}
		return
	}
	isC := make([]bool, n)
	for i, f := range isF {
		isC[i] = !f
	}
	amg.RowsInC = utils.PackMask(isC)
	nC := len(amg.RowsInC)
	amg.MaskF, amg.MaskC = utils.NewFilled(n, -1), utils.NewFilled(n, -1)
	for k, i := range amg.RowsInF {
		amg.MaskF[i] = k
	}
	for k, i := range amg.RowsInC {
		amg.MaskC[i] = k
	}
	if amg.InvAFF, err = rowSumInverse(A, amg.RowsInF, isF); err != nil {
		return nil, err
	}
	if options.Verbose {
		log.Printf("AMG level %d: %d unknowns, %d in F, %d in C, %v coarsening",
			level, n, nF, nC, options.CoarseningMethod)
	}
	// a weak coarsening ends the hierarchy on the next level
	if nF*100/n < 30 {
		level = 1
	}
	var (
		ACC, schur *sysmat.SparseMatrix
		product    *sysmat.Pattern
		sp         *sysmat.Pattern
	)
	if amg.ACF, err = A.GetSubmatrix(amg.RowsInC, amg.MaskF, nF); err != nil {
		return nil, err
	}
	if amg.AFC, err = A.GetSubmatrix(amg.RowsInF, amg.MaskC, nC); err != nil {
		return nil, err
	}
	if ACC, err = A.GetSubmatrix(amg.RowsInC, amg.MaskC, nC); err != nil {
		return nil, err
	}
	if product, err = amg.ACF.Pattern.Multiply(amg.AFC.Pattern); err != nil {
		return nil, err
	}
	if sp, err = ACC.Pattern.Union(product); err != nil {
		return nil, err
	}
	schur = sysmat.NewSparseMatrix(sp, 1, 1)
	if err = ACC.CopyInto(schur); err != nil {
		return nil, err
	}
	amg.updateSchur(schur)
	if options.Verbose {
		log.Printf("timing: AMG level %d setup: %v", amg.Level, time.Since(start))
	}
	if amg.Schur, err = GetAMG(schur, level-1, options); err != nil {
		return nil, err
	}
	amg.xF, amg.bF = make([]float64, nF), make([]float64, nF)
	amg.xC, amg.bC = make([]float64, nC), make([]float64, nC)
	return
}

/*
rowSumInverse approximates A_FF⁻¹ by the inverse of the F-restricted row sums. A zero
row sum is a ZeroDivisionError.
*/
func rowSumInverse(A *sysmat.SparseMatrix, rowsInF utils.Index, isF []bool) (inv []float64, err error) {
	var (
		p = A.Pattern
	)
	inv = make([]float64, len(rowsInF))
	for k, i := range rowsInF {
		var sum float64
		for iptr := p.Ptr[i]; iptr < p.Ptr[i+1]; iptr++ {
			if isF[p.Index[iptr]] {
				sum += A.Val[iptr]
			}
		}
		if sum == 0 {
			err = types.NewError(types.ZeroDivisionError,
				"F-restricted row sum of row %d is zero", i)
			return
		}
		inv[k] = 1. / sum
	}
	return
}

// updateSchur subtracts A_CF A_FF⁻¹ A_FC from schur, C rows are independent
func (amg *AMG) updateSchur(schur *sysmat.SparseMatrix) {
	var (
		pCF, pFC = amg.ACF.Pattern, amg.AFC.Pattern
	)
	utils.ParallelFor(0, pCF.NumOutput, func(bn, kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			for iptr := pCF.Ptr[i]; iptr < pCF.Ptr[i+1]; iptr++ {
				k := pCF.Index[iptr]
				f := amg.ACF.Val[iptr] * amg.InvAFF[k]
				for kptr := pFC.Ptr[k]; kptr < pFC.Ptr[k+1]; kptr++ {
					schur.AddAt(i, pFC.Index[kptr], -f*amg.AFC.Val[kptr])
				}
			}
		}
	})
}

// NumLevels counts this level and all levels below it
func (amg *AMG) NumLevels() (n int) {
	for l := amg; l != nil; l = l.Schur {
		n++
	}
	return
}

// Solve applies one V-cycle to b, x is overwritten
func (amg *AMG) Solve(x, b []float64) {
	if amg.CoarsestLevel {
		amg.Smoother.Solve(x, b, amg.sweeps, false)
		return
	}
	amg.Smoother.Solve(x, b, amg.sweeps, false)
	// r = b - A x restricted to F and C
	copy(amg.r, b)
	amg.A.MatrixVector(-1, x, 1, amg.r)
	for k, i := range amg.RowsInF {
		amg.bF[k] = amg.r[i]
		amg.xF[k] = amg.InvAFF[k] * amg.bF[k]
	}
	for k, i := range amg.RowsInC {
		amg.bC[k] = amg.r[i]
	}
	// b_C -= A_CF x_F
	amg.ACF.MatrixVector(-1, amg.xF, 1, amg.bC)
	for k := range amg.xC {
		amg.xC[k] = 0
	}
	amg.Schur.Solve(amg.xC, amg.bC)
	// b_F -= A_FC x_C
	amg.AFC.MatrixVector(-1, amg.xC, 1, amg.bF)
	for k, i := range amg.RowsInF {
		x[i] += amg.InvAFF[k] * amg.bF[k]
	}
	for k, i := range amg.RowsInC {
		x[i] += amg.xC[k]
	}
	amg.Smoother.Solve(x, b, amg.sweeps, true)
}
