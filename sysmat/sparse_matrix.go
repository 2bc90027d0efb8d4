package sysmat

import (
	"fmt"
	"math"

	"github.com/notargets/gopde/types"
	"github.com/notargets/gopde/utils"
	"gonum.org/v1/gonum/mat"
)

/*
SparseMatrix stores a RowBlockSize x ColBlockSize dense block, row-major, for every
entry of its Pattern. Rows and columns of the pattern count blocks.
*/
type SparseMatrix struct {
	Pattern                    *Pattern
	RowBlockSize, ColBlockSize int
	BlockSize                  int
	Val                        []float64
}

func NewSparseMatrix(p *Pattern, rowBlockSize, colBlockSize int) (A *SparseMatrix) {
	A = &SparseMatrix{
		Pattern:      p,
		RowBlockSize: rowBlockSize,
		ColBlockSize: colBlockSize,
		BlockSize:    rowBlockSize * colBlockSize,
	}
	A.Val = make([]float64, p.Len()*A.BlockSize)
	return
}

func (A *SparseMatrix) NumRows() int { return A.Pattern.NumOutput }
func (A *SparseMatrix) NumCols() int { return A.Pattern.NumInput }

// Dims is the scalar size of the matrix
func (A *SparseMatrix) Dims() (r, c int) {
	return A.Pattern.NumOutput * A.RowBlockSize, A.Pattern.NumInput * A.ColBlockSize
}

func (A *SparseMatrix) Block(iptr int) []float64 {
	return A.Val[iptr*A.BlockSize : (iptr+1)*A.BlockSize]
}

func (A *SparseMatrix) SetValues(v float64) {
	for i := range A.Val {
		A.Val[i] = v
	}
}

// At returns the scalar entry (i,j), zero outside the pattern
func (A *SparseMatrix) At(i, j int) float64 {
	var (
		ib, ir = i / A.RowBlockSize, i % A.RowBlockSize
		jb, jc = j / A.ColBlockSize, j % A.ColBlockSize
	)
	if iptr := A.Pattern.Find(ib, jb); iptr >= 0 {
		return A.Val[iptr*A.BlockSize+ir*A.ColBlockSize+jc]
	}
	return 0
}

// AddAt adds v to the scalar entry (i,j), which must be in the pattern
func (A *SparseMatrix) AddAt(i, j int, v float64) (ok bool) {
	var (
		ib, ir = i / A.RowBlockSize, i % A.RowBlockSize
		jb, jc = j / A.ColBlockSize, j % A.ColBlockSize
	)
	if iptr := A.Pattern.Find(ib, jb); iptr >= 0 {
		utils.AtomicAddFloat64(&A.Val[iptr*A.BlockSize+ir*A.ColBlockSize+jc], v)
		return true
	}
	return false
}

// AddBlock adds a full block into entry (row, col), which must be in the pattern
func (A *SparseMatrix) AddBlock(row, col int, block []float64) (ok bool) {
	iptr := A.Pattern.Find(row, col)
	if iptr < 0 {
		return false
	}
	b := A.Block(iptr)
	for k, v := range block {
		utils.AtomicAddFloat64(&b[k], v)
	}
	return true
}

// ToDense expands the matrix, used for diagnostics and small direct solves
func (A *SparseMatrix) ToDense() (D *mat.Dense) {
	var (
		nr, nc = A.Dims()
	)
	D = mat.NewDense(nr, nc, nil)
	for i := 0; i < A.NumRows(); i++ {
		for iptr := A.Pattern.Ptr[i]; iptr < A.Pattern.Ptr[i+1]; iptr++ {
			j := A.Pattern.Index[iptr]
			b := A.Block(iptr)
			for ir := 0; ir < A.RowBlockSize; ir++ {
				for ic := 0; ic < A.ColBlockSize; ic++ {
					D.Set(i*A.RowBlockSize+ir, j*A.ColBlockSize+ic, b[ir*A.ColBlockSize+ic])
				}
			}
		}
	}
	return
}

// MatrixVector computes y := beta*y + alpha*A*x over block rows in parallel
func (A *SparseMatrix) MatrixVector(alpha float64, x []float64, beta float64, y []float64) {
	var (
		rbs, cbs = A.RowBlockSize, A.ColBlockSize
		p        = A.Pattern
	)
	utils.ParallelFor(0, A.NumRows(), func(bn, kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			yi := y[i*rbs : (i+1)*rbs]
			if beta == 0 {
				for ir := range yi {
					yi[ir] = 0
				}
			} else if beta != 1 {
				for ir := range yi {
					yi[ir] *= beta
				}
			}
			if alpha == 0 {
				continue
			}
			for iptr := p.Ptr[i]; iptr < p.Ptr[i+1]; iptr++ {
				var (
					xj = x[p.Index[iptr]*cbs:]
					b  = A.Val[iptr*A.BlockSize:]
				)
				for ir := 0; ir < rbs; ir++ {
					var sum float64
					for ic := 0; ic < cbs; ic++ {
						sum += b[ir*cbs+ic] * xj[ic]
					}
					yi[ir] += alpha * sum
				}
			}
		}
	})
}

/*
GetSubmatrix keeps the listed block rows and relabels columns through colMap, a column
mapped to -1 is dropped. numCols is the column count of the result.
*/
func (A *SparseMatrix) GetSubmatrix(rows utils.Index, colMap utils.Index, numCols int) (R *SparseMatrix, err error) {
	var (
		p *Pattern
	)
	if p, err = A.Pattern.Submatrix(rows, colMap, numCols); err != nil {
		return
	}
	R = NewSparseMatrix(p, A.RowBlockSize, A.ColBlockSize)
	for ii, i := range rows {
		for iptr := A.Pattern.Ptr[i]; iptr < A.Pattern.Ptr[i+1]; iptr++ {
			if jn := colMap[A.Pattern.Index[iptr]]; jn >= 0 {
				copy(R.Block(p.Find(ii, jn)), A.Block(iptr))
			}
		}
	}
	return
}

// CopyInto adds the values of A into entries of the larger pattern of R
func (A *SparseMatrix) CopyInto(R *SparseMatrix) (err error) {
	for i := 0; i < A.NumRows(); i++ {
		for iptr := A.Pattern.Ptr[i]; iptr < A.Pattern.Ptr[i+1]; iptr++ {
			if !R.AddBlock(i, A.Pattern.Index[iptr], A.Block(iptr)) {
				return types.NewError(types.SystemError,
					"entry (%d,%d) missing from the target pattern", i, A.Pattern.Index[iptr])
			}
		}
	}
	return
}

// NullifyRows zeroes every scalar row i with mask[i] > 0 and, if hasDiagonal, puts
// diagonalValue on its main diagonal. Coupling blocks pass hasDiagonal false.
func (A *SparseMatrix) NullifyRows(mask []float64, diagonalValue float64, hasDiagonal bool) {
	A.NullifyRowsAndCols(mask, nil, diagonalValue, hasDiagonal)
}

// NullifyRowsAndCols also zeroes every scalar column j with colMask[j] > 0
func (A *SparseMatrix) NullifyRowsAndCols(rowMask, colMask []float64, diagonalValue float64, hasDiagonal bool) {
	var (
		rbs, cbs = A.RowBlockSize, A.ColBlockSize
		p        = A.Pattern
	)
	utils.ParallelFor(0, A.NumRows(), func(bn, kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			for iptr := p.Ptr[i]; iptr < p.Ptr[i+1]; iptr++ {
				j := p.Index[iptr]
				b := A.Block(iptr)
				for ir := 0; ir < rbs; ir++ {
					irow := i*rbs + ir
					for ic := 0; ic < cbs; ic++ {
						icol := j*cbs + ic
						if rowMask[irow] > 0 || (colMask != nil && colMask[icol] > 0) {
							if hasDiagonal && irow == icol {
								b[ir*cbs+ic] = diagonalValue
							} else {
								b[ir*cbs+ic] = 0
							}
						}
					}
				}
			}
		}
	})
}

/*
InvMain returns the inverse of every main diagonal block. A missing diagonal entry or a
singular block is a ZeroDivisionError naming the row.
*/
func (A *SparseMatrix) InvMain() (inv []float64, err error) {
	if A.RowBlockSize != A.ColBlockSize {
		err = types.NewError(types.MatrixTypeError,
			"block diagonal inverse needs square blocks, have %dx%d", A.RowBlockSize, A.ColBlockSize)
		return
	}
	var (
		n    = A.NumRows()
		bs   = A.BlockSize
		diag = A.Pattern.MainDiagonalPointer()
	)
	inv = make([]float64, n*bs)
	for i := 0; i < n; i++ {
		if diag[i] < 0 {
			err = types.NewError(types.ZeroDivisionError, "row %d has no main diagonal entry", i)
			return
		}
		if e := utils.InvertBlock(A.RowBlockSize, A.Block(diag[i]), inv[i*bs:(i+1)*bs]); e != nil {
			err = fmt.Errorf("main diagonal block of row %d: %w", i, e)
			return
		}
	}
	return
}

// RowAbsSums returns sum_j |a_ij| for every scalar row
func (A *SparseMatrix) RowAbsSums(out []float64) {
	var (
		rbs, cbs = A.RowBlockSize, A.ColBlockSize
		p        = A.Pattern
	)
	for i := 0; i < A.NumRows(); i++ {
		for iptr := p.Ptr[i]; iptr < p.Ptr[i+1]; iptr++ {
			b := A.Block(iptr)
			for ir := 0; ir < rbs; ir++ {
				for ic := 0; ic < cbs; ic++ {
					out[i*rbs+ir] += math.Abs(b[ir*cbs+ic])
				}
			}
		}
	}
}

// IsSymmetric compares every entry with its transpose, only meaningful for square patterns
func (A *SparseMatrix) IsSymmetric(tol float64) bool {
	var (
		nr, nc = A.Dims()
	)
	if nr != nc {
		return false
	}
	for i := 0; i < A.NumRows(); i++ {
		for iptr := A.Pattern.Ptr[i]; iptr < A.Pattern.Ptr[i+1]; iptr++ {
			j := A.Pattern.Index[iptr]
			for ir := 0; ir < A.RowBlockSize; ir++ {
				for ic := 0; ic < A.ColBlockSize; ic++ {
					gi, gj := i*A.RowBlockSize+ir, j*A.ColBlockSize+ic
					if math.Abs(A.At(gi, gj)-A.At(gj, gi)) > tol {
						return false
					}
				}
			}
		}
	}
	return true
}
