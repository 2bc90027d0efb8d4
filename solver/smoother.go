package solver

import (
	"log"
	"runtime"
	"time"

	"github.com/notargets/gopde/sysmat"
	"github.com/notargets/gopde/utils"
)

/*
Smoother performs sweeps of S (x_k - x_{k-1}) = b - A x_{k-1} where S is the block
diagonal of A (Jacobi) or its lower and upper triangle (symmetric Gauss-Seidel). S is
always built from the local main block. When System is set the defect is taken with the
full distributed matrix, else with A alone.
*/
type Smoother struct {
	A       *sysmat.SparseMatrix
	System  *sysmat.SystemMatrix
	Jacobi  bool
	Colored bool // Gauss-Seidel sweeps color by color in parallel
	diag    []float64
	buffer  []float64
	mainPtr []int
	byColor []utils.Index
	colorOf []int
}

func NewSmoother(A *sysmat.SparseMatrix, jacobi, verbose bool) (sm *Smoother, err error) {
	start := time.Now()
	sm = &Smoother{
		A:       A,
		Jacobi:  jacobi,
		Colored: runtime.NumCPU() > 1,
		buffer:  make([]float64, A.NumRows()*A.RowBlockSize),
	}
	if sm.diag, err = A.InvMain(); err != nil {
		return nil, err
	}
	sm.mainPtr = A.Pattern.MainDiagonalPointer()
	if !jacobi {
		var numColors int
		sm.colorOf, numColors = A.Pattern.Coloring()
		sm.byColor = make([]utils.Index, numColors)
		for i, c := range sm.colorOf {
			sm.byColor[c] = append(sm.byColor[c], i)
		}
	}
	if verbose {
		name := "Gauss-Seidel"
		if jacobi {
			name = "Jacobi"
		}
		log.Printf("timing: %s preparation: %v", name, time.Since(start))
	}
	return
}

// NewSystemSmoother smooths the main block of S, local smoothers ignore the coupling in the defect
func NewSystemSmoother(S *sysmat.SystemMatrix, jacobi, isLocal, verbose bool) (sm *Smoother, err error) {
	if sm, err = NewSmoother(S.MainBlock, jacobi, verbose); err != nil {
		return
	}
	if !isLocal {
		sm.System = S
	}
	return
}

/*
Solve performs sweeps iterations. If xIsInitial is false x is taken as zero, so the
first sweep is applied to b directly.
*/
func (sm *Smoother) Solve(x, b []float64, sweeps int, xIsInitial bool) {
	bNew := sm.buffer
	if !xIsInitial {
		copy(x, b)
		sm.Sweep(x)
		sweeps--
	}
	for ; sweeps > 0; sweeps-- {
		copy(bNew, b)
		// b_new = b - A*x
		if sm.System != nil {
			sm.System.MatrixVector(-1, x, 1, bNew)
		} else {
			sm.A.MatrixVector(-1, x, 1, bNew)
		}
		sm.Sweep(bNew)
		for i, v := range bNew {
			x[i] += v
		}
	}
}

// Sweep overwrites x with S⁻¹x
func (sm *Smoother) Sweep(x []float64) {
	switch {
	case sm.Jacobi:
		sm.sweepJacobi(x)
	case sm.Colored:
		sm.sweepColored(x)
	default:
		sm.sweepSequential(x)
	}
}

func (sm *Smoother) sweepJacobi(x []float64) {
	var (
		n  = sm.A.NumRows()
		bs = sm.A.RowBlockSize
		bb = sm.A.BlockSize
	)
	utils.ParallelFor(0, n, func(bn, kMin, kMax int) {
		tmp := make([]float64, bs)
		for i := kMin; i < kMax; i++ {
			utils.ApplyBlock(bs, sm.diag[i*bb:(i+1)*bb], x[i*bs:(i+1)*bs], tmp)
		}
	})
}

// subtractBlock does x_i -= A[iptr] x_k
func (sm *Smoother) subtractBlock(x []float64, i, k, iptr int) {
	var (
		bs = sm.A.RowBlockSize
		a  = sm.A.Block(iptr)
		xi = x[i*bs : (i+1)*bs]
		xk = x[k*bs : (k+1)*bs]
	)
	for ir := 0; ir < bs; ir++ {
		var sum float64
		for ic := 0; ic < bs; ic++ {
			sum += a[ir*bs+ic] * xk[ic]
		}
		xi[ir] -= sum
	}
}

func (sm *Smoother) sweepSequential(x []float64) {
	var (
		p   = sm.A.Pattern
		n   = sm.A.NumRows()
		bs  = sm.A.RowBlockSize
		bb  = sm.A.BlockSize
		tmp = make([]float64, bs)
	)
	// forward substitution, x_i = D_i⁻¹ (x_i - sum_{k<i} a_ik x_k)
	for i := 0; i < n; i++ {
		for iptr := p.Ptr[i]; iptr < sm.mainPtr[i]; iptr++ {
			sm.subtractBlock(x, i, p.Index[iptr], iptr)
		}
		utils.ApplyBlock(bs, sm.diag[i*bb:(i+1)*bb], x[i*bs:(i+1)*bs], tmp)
	}
	// backward substitution, row n-1 is final after the forward pass
	for i := n - 2; i >= 0; i-- {
		mm := sm.mainPtr[i]
		utils.ApplyBlock(bs, sm.A.Block(mm), x[i*bs:(i+1)*bs], tmp)
		for iptr := mm + 1; iptr < p.Ptr[i+1]; iptr++ {
			sm.subtractBlock(x, i, p.Index[iptr], iptr)
		}
		utils.ApplyBlock(bs, sm.diag[i*bb:(i+1)*bb], x[i*bs:(i+1)*bs], tmp)
	}
}

func (sm *Smoother) sweepColored(x []float64) {
	var (
		p         = sm.A.Pattern
		bs        = sm.A.RowBlockSize
		bb        = sm.A.BlockSize
		numColors = len(sm.byColor)
	)
	pass := func(color int, backward bool) {
		rows := sm.byColor[color]
		utils.ParallelFor(0, len(rows), func(bn, kMin, kMax int) {
			tmp := make([]float64, bs)
			for _, i := range rows[kMin:kMax] {
				xi := x[i*bs : (i+1)*bs]
				if backward {
					utils.ApplyBlock(bs, sm.A.Block(sm.mainPtr[i]), xi, tmp)
				}
				for iptr := p.Ptr[i]; iptr < p.Ptr[i+1]; iptr++ {
					k := p.Index[iptr]
					if (!backward && sm.colorOf[k] < color) || (backward && sm.colorOf[k] > color) {
						sm.subtractBlock(x, i, k, iptr)
					}
				}
				utils.ApplyBlock(bs, sm.diag[i*bb:(i+1)*bb], xi, tmp)
			}
		})
	}
	for color := 0; color < numColors; color++ {
		pass(color, false)
	}
	// the last color is final after the forward pass
	for color := numColors - 2; color >= 0; color-- {
		pass(color, true)
	}
}
