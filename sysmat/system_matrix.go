package sysmat

import (
	"math"

	"github.com/notargets/gopde/types"
	"github.com/notargets/gopde/utils"
)

/*
SystemMatrix is the rank-local part of a distributed matrix. MainBlock couples local
rows to local columns, ColCoupleBlock couples local rows to the remote columns delivered
by Coupler. LogicalRowBlockSize/LogicalColBlockSize are the number of equations and
components per DOF; they differ from the storage block sizes when a system is stored
expanded with scalar blocks.
*/
type SystemMatrix struct {
	MainBlock           *SparseMatrix
	ColCoupleBlock      *SparseMatrix
	Coupler             *Coupler
	Comm                Comm
	LogicalRowBlockSize int
	LogicalColBlockSize int
	normalization       []float64
}

// NewSystemMatrix is a serial matrix over pattern with the given storage block sizes
func NewSystemMatrix(pattern *Pattern, rowBlockSize, colBlockSize int) (S *SystemMatrix) {
	empty, _ := NewPattern(pattern.NumOutput, 0, make([]int, pattern.NumOutput+1), nil)
	S = &SystemMatrix{
		MainBlock:           NewSparseMatrix(pattern, rowBlockSize, colBlockSize),
		ColCoupleBlock:      NewSparseMatrix(empty, rowBlockSize, colBlockSize),
		Comm:                SerialComm{},
		LogicalRowBlockSize: rowBlockSize,
		LogicalColBlockSize: colBlockSize,
	}
	S.Coupler = NewCoupler(&Connector{}, colBlockSize, S.Comm)
	return
}

/*
NewExpandedSystemMatrix stores a numEqu x numComp system over a DOF pattern with scalar
blocks, row DOF i equation k becomes scalar row i*numEqu+k. AMG needs this layout.
*/
func NewExpandedSystemMatrix(dofPattern *Pattern, numEqu, numComp int) (S *SystemMatrix, err error) {
	var (
		ptr   = make([]int, dofPattern.NumOutput*numEqu+1)
		index = make([]int, 0, dofPattern.Len()*numEqu*numComp)
	)
	for i := 0; i < dofPattern.NumOutput; i++ {
		for k := 0; k < numEqu; k++ {
			for _, j := range dofPattern.Row(i) {
				for m := 0; m < numComp; m++ {
					index = append(index, j*numComp+m)
				}
			}
			ptr[i*numEqu+k+1] = len(index)
		}
	}
	var p *Pattern
	if p, err = NewPattern(dofPattern.NumOutput*numEqu, dofPattern.NumInput*numComp, ptr, index); err != nil {
		return
	}
	S = NewSystemMatrix(p, 1, 1)
	S.LogicalRowBlockSize, S.LogicalColBlockSize = numEqu, numComp
	return
}

func (S *SystemMatrix) RowBlockSize() int { return S.MainBlock.RowBlockSize }
func (S *SystemMatrix) ColBlockSize() int { return S.MainBlock.ColBlockSize }

// NumRows is the number of local block rows
func (S *SystemMatrix) NumRows() int { return S.MainBlock.NumRows() }

// NumMainCols is the number of local block columns, remote columns follow them
func (S *SystemMatrix) NumMainCols() int { return S.MainBlock.NumCols() }

// LocalSize is the number of scalar unknowns owned by this rank
func (S *SystemMatrix) LocalSize() int { return S.NumRows() * S.RowBlockSize() }

func (S *SystemMatrix) IsExpanded() bool {
	return S.RowBlockSize() == 1 && S.ColBlockSize() == 1 &&
		(S.LogicalRowBlockSize > 1 || S.LogicalColBlockSize > 1)
}

func (S *SystemMatrix) SetValues(v float64) {
	S.MainBlock.SetValues(v)
	S.ColCoupleBlock.SetValues(v)
	S.normalization = nil
}

// Validate checks the square, equal block size layout the solvers need
func (S *SystemMatrix) Validate() error {
	if S.RowBlockSize() != S.ColBlockSize() {
		return types.NewError(types.MatrixTypeError, "row block size %d and column block size %d differ",
			S.RowBlockSize(), S.ColBlockSize())
	}
	if S.ColCoupleBlock.RowBlockSize != S.RowBlockSize() || S.ColCoupleBlock.ColBlockSize != S.ColBlockSize() {
		return types.NewError(types.MatrixTypeError, "block sizes of main and coupling blocks differ")
	}
	if S.MainBlock.NumRows() != S.MainBlock.NumCols() {
		return types.NewError(types.MatrixTypeError, "matrix is not square: %d rows, %d local columns",
			S.MainBlock.NumRows(), S.MainBlock.NumCols())
	}
	return nil
}

// MatrixVector computes y := beta*y + alpha*A*x, x holds local values only
func (S *SystemMatrix) MatrixVector(alpha float64, x []float64, beta float64, y []float64) {
	remote := S.Coupler.Collect(x)
	S.MainBlock.MatrixVector(alpha, x, beta, y)
	if S.ColCoupleBlock.Pattern.Len() > 0 {
		S.ColCoupleBlock.MatrixVector(alpha, remote, 1, y)
	}
}

/*
AddToSystemMatrix adds the element matrix values for row DOFs rowIndex and column DOFs
colIndex, laid out as ((k*numComp+m)*len(rowIndex)+s)*len(colIndex)+r for equation k,
component m, row node s and column node r. Rows at or above rowUpperBound belong to
other ranks and are skipped, column DOFs at or above NumMainCols address the coupling
block. Entries outside the pattern are ignored.
*/
func (S *SystemMatrix) AddToSystemMatrix(rowIndex []int, numEqu int, colIndex []int, numComp int,
	rowUpperBound int, values []float64) (err error) {
	var (
		nRow, nCol = len(rowIndex), len(colIndex)
		nMain      = S.NumMainCols()
		mi         = utils.NewMultiIndex(numEqu, numComp, nRow, nCol)
		expanded   = S.RowBlockSize() == 1 && S.ColBlockSize() == 1
		block      []float64
	)
	if !expanded && (S.RowBlockSize() != numEqu || S.ColBlockSize() != numComp) {
		return types.NewError(types.MatrixTypeError,
			"element matrix of %dx%d blocks does not fit a matrix of %dx%d blocks",
			numEqu, numComp, S.RowBlockSize(), S.ColBlockSize())
	}
	if !expanded {
		block = make([]float64, numEqu*numComp)
	}
	for s := 0; s < nRow; s++ {
		iRow := rowIndex[s]
		if iRow < 0 || iRow >= rowUpperBound {
			continue
		}
		for r := 0; r < nCol; r++ {
			var (
				iCol   = colIndex[r]
				target = S.MainBlock
			)
			if iCol >= nMain {
				target, iCol = S.ColCoupleBlock, iCol-nMain
			}
			if expanded {
				// scalar storage of a system, the pattern holds DOF*numEqu+k rows
				for k := 0; k < numEqu; k++ {
					for m := 0; m < numComp; m++ {
						target.AddAt(iRow*numEqu+k, iCol*numComp+m, values[mi.I4(k, m, s, r)])
					}
				}
				continue
			}
			for k := 0; k < numEqu; k++ {
				for m := 0; m < numComp; m++ {
					block[k*numComp+m] = values[mi.I4(k, m, s, r)]
				}
			}
			target.AddBlock(iRow, iCol, block)
		}
	}
	return
}

// NullifyRows constrains the scalar rows with mask > 0, mask covers the local rows
func (S *SystemMatrix) NullifyRows(mask []float64, diagonalValue float64) {
	S.MainBlock.NullifyRows(mask, diagonalValue, true)
	S.ColCoupleBlock.NullifyRows(mask, 0, false)
	S.normalization = nil
}

/*
NullifyRowsAndCols constrains rows and columns with mask > 0, keeping the matrix symmetric
when the right hand side is corrected by the caller. The column mask of the coupling
block is collected from the neighbours.
*/
func (S *SystemMatrix) NullifyRowsAndCols(rowMask, colMask []float64, diagonalValue float64) {
	remoteMask := S.Coupler.Collect(colMask)
	S.MainBlock.NullifyRowsAndCols(rowMask, colMask, diagonalValue, true)
	S.ColCoupleBlock.NullifyRowsAndCols(rowMask, remoteMask, 0, false)
	S.normalization = nil
}

/*
Normalization returns the row scaling 1/sum_j |a_ij| over main and coupling blocks,
rows without entries scale by 1. The result is cached until the values change through
this type.
*/
func (S *SystemMatrix) Normalization() []float64 {
	if S.normalization != nil {
		return S.normalization
	}
	var (
		n    = S.LocalSize()
		sums = make([]float64, n)
	)
	S.MainBlock.RowAbsSums(sums)
	S.ColCoupleBlock.RowAbsSums(sums)
	S.normalization = make([]float64, n)
	for i, s := range sums {
		if s > 0 {
			S.normalization[i] = 1. / s
		} else {
			S.normalization[i] = 1
		}
	}
	return S.normalization
}

// Dot is the global inner product of two local vectors
func (S *SystemMatrix) Dot(a, b []float64) float64 {
	var (
		v = []float64{0}
	)
	for i := range a {
		v[0] += a[i] * b[i]
	}
	S.Comm.AllReduceSum(v)
	return v[0]
}

// Norms returns the global 2-norm of a and the max norm of a weighted by w, w may be nil
func (S *SystemMatrix) Norms(a, w []float64) (norm2, normMax float64) {
	var (
		v = []float64{0}
		m = []float64{0}
	)
	for i, ai := range a {
		v[0] += ai * ai
		if w != nil {
			ai *= w[i]
		}
		if x := math.Abs(ai); x > m[0] || math.IsNaN(x) {
			m[0] = x
		}
	}
	S.Comm.AllReduceSum(v)
	S.Comm.AllReduceMax(m)
	return math.Sqrt(v[0]), m[0]
}

// IsSymmetric is true when every rank's main block is symmetric
func (S *SystemMatrix) IsSymmetric(tol float64) bool {
	v := []float64{0}
	if !S.MainBlock.IsSymmetric(tol) {
		v[0] = 1
	}
	S.Comm.AllReduceMax(v)
	return v[0] == 0
}
