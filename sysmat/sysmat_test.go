package sysmat

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/notargets/gopde/types"
	"github.com/notargets/gopde/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tridiagonal returns the 1D Laplacian stencil [-1 2 -1] on n rows, block size bs with
// the stencil on the block diagonal
func tridiagonal(t *testing.T, n, bs int) (A *SparseMatrix) {
	dok := utils.NewDOK(n, n, "tridiagonal")
	for i := 0; i < n; i++ {
		for j := i - 1; j <= i+1; j++ {
			if j >= 0 && j < n {
				dok.Insert(i, j)
			}
		}
	}
	A = NewSparseMatrix(NewPatternFromDOK(dok), bs, bs)
	for i := 0; i < n; i++ {
		for j := i - 1; j <= i+1; j++ {
			if j < 0 || j >= n {
				continue
			}
			v := -1.
			if i == j {
				v = 2
			}
			for k := 0; k < bs; k++ {
				require.True(t, A.AddAt(i*bs+k, j*bs+k, v))
			}
		}
	}
	return
}

func TestPattern(t *testing.T) {
	{ // Construction rejects unsorted and out of range structures
		_, err := NewPattern(2, 2, []int{0, 2, 3}, []int{1, 0, 1})
		assert.True(t, errors.Is(err, types.ErrSystem))
		_, err = NewPattern(2, 2, []int{0, 1, 2}, []int{0, 2})
		assert.Error(t, err)
		p, err := NewPattern(2, 3, []int{0, 2, 3}, []int{0, 2, 1})
		require.NoError(t, err)
		assert.Equal(t, 1, p.Find(0, 2))
		assert.Equal(t, -1, p.Find(1, 2))
		assert.Equal(t, []int{0, 2}, p.Row(0))
	}
	{ // Union and product
		a, _ := NewPattern(3, 3, []int{0, 1, 2, 3}, []int{0, 1, 2})
		b, _ := NewPattern(3, 3, []int{0, 1, 3, 4}, []int{2, 0, 1, 0})
		u, err := a.Union(b)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 2, 4, 6}, u.Ptr)
		assert.Equal(t, []int{0, 2, 0, 1, 0, 2}, u.Index)
		ab, err := a.Multiply(b)
		require.NoError(t, err)
		assert.Equal(t, b.Ptr, ab.Ptr)
		assert.Equal(t, b.Index, ab.Index)
		c, _ := NewPattern(2, 2, []int{0, 0, 0}, nil)
		_, err = a.Union(c)
		assert.Error(t, err)
		_, err = a.Multiply(c)
		assert.Error(t, err)
	}
	{ // Coloring separates every coupled pair
		A := tridiagonal(t, 9, 1)
		colorOf, numColors := A.Pattern.Coloring()
		assert.Equal(t, 2, numColors)
		for i := 0; i < 9; i++ {
			for _, j := range A.Pattern.Row(i) {
				if j != i {
					assert.NotEqual(t, colorOf[i], colorOf[j])
				}
			}
		}
		// Non-symmetric structure is colored through both directions
		p, _ := NewPattern(3, 3, []int{0, 1, 2, 4}, []int{0, 1, 0, 2})
		colorOf, _ = p.Coloring()
		assert.NotEqual(t, colorOf[0], colorOf[2])
		assert.True(t, A.Pattern.HasFullDiagonal())
		assert.Equal(t, []int{0, 1, 3}, p.MainDiagonalPointer())
	}
}

func TestSparseMatrix(t *testing.T) {
	{ // Matrix vector product against the dense expansion
		A := tridiagonal(t, 6, 2)
		var (
			x = make([]float64, 12)
			y = make([]float64, 12)
		)
		for i := range x {
			x[i] = float64(i*i) / 7
			y[i] = 1
		}
		D := A.ToDense()
		expected := make([]float64, 12)
		for i := 0; i < 12; i++ {
			for j := 0; j < 12; j++ {
				expected[i] += 2 * D.At(i, j) * x[j]
			}
			expected[i] += 3
		}
		A.MatrixVector(2, x, 3, y)
		assert.InDeltaSlice(t, expected, y, 1.e-12)
		assert.True(t, A.IsSymmetric(0))
		assert.Equal(t, -1., A.At(2, 4))
		assert.Equal(t, 0., A.At(2, 5))
	}
	{ // Submatrix extraction relabels columns
		A := tridiagonal(t, 5, 1)
		colMap := utils.Index{-1, 0, -1, 1, -1}
		R, err := A.GetSubmatrix(utils.Index{0, 2, 4}, colMap, 2)
		require.NoError(t, err)
		assert.Equal(t, 3, R.NumRows())
		assert.Equal(t, -1., R.At(0, 0))
		assert.Equal(t, -1., R.At(1, 0))
		assert.Equal(t, -1., R.At(1, 1))
		assert.Equal(t, -1., R.At(2, 1))
		assert.Equal(t, 4, R.Pattern.Len())
	}
	{ // Dirichlet constraints
		A := tridiagonal(t, 4, 1)
		A.NullifyRowsAndCols([]float64{1, 0, 0, 0}, []float64{1, 0, 0, 0}, 1, true)
		assert.Equal(t, 1., A.At(0, 0))
		assert.Equal(t, 0., A.At(0, 1))
		assert.Equal(t, 0., A.At(1, 0))
		assert.Equal(t, 2., A.At(1, 1))
		B := tridiagonal(t, 4, 1)
		B.NullifyRows([]float64{0, 0, 0, 1}, 5, true)
		assert.Equal(t, 5., B.At(3, 3))
		assert.Equal(t, 0., B.At(3, 2))
		assert.Equal(t, -1., B.At(2, 3))
	}
	{ // Block diagonal inverse
		A := tridiagonal(t, 3, 2)
		A.AddAt(0, 1, 1)
		inv, err := A.InvMain()
		require.NoError(t, err)
		// [[2,1],[0,2]]^-1
		assert.InDeltaSlice(t, []float64{0.5, -0.25, 0, 0.5}, inv[:4], 1.e-15)
		Z := NewSparseMatrix(A.Pattern, 2, 2)
		_, err = Z.InvMain()
		assert.True(t, errors.Is(err, types.ErrZeroDivision))
		R := NewSparseMatrix(A.Pattern, 2, 1)
		_, err = R.InvMain()
		assert.True(t, errors.Is(err, types.ErrMatrixType))
	}
}

func TestSystemMatrix(t *testing.T) {
	{ // Element blocks go to the right entries for block and expanded storage
		dok := utils.NewDOK(3, 3, "dofs")
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if i-j <= 1 && j-i <= 1 {
					dok.Insert(i, j)
				}
			}
		}
		dofs := NewPatternFromDOK(dok)
		var (
			numEqu, numComp = 2, 2
			rows            = []int{1, 2}
			mi              = utils.NewMultiIndex(numEqu, numComp, 2, 2)
			EM              = make([]float64, mi.Size)
		)
		for k := 0; k < numEqu; k++ {
			for m := 0; m < numComp; m++ {
				for s := 0; s < 2; s++ {
					for r := 0; r < 2; r++ {
						EM[mi.I4(k, m, s, r)] = float64(1000*k + 100*m + 10*s + r)
					}
				}
			}
		}
		Sb := NewSystemMatrix(dofs, numEqu, numComp)
		require.NoError(t, Sb.AddToSystemMatrix(rows, numEqu, rows, numComp, 3, EM))
		Se, err := NewExpandedSystemMatrix(dofs, numEqu, numComp)
		require.NoError(t, err)
		assert.True(t, Se.IsExpanded())
		require.NoError(t, Se.AddToSystemMatrix(rows, numEqu, rows, numComp, 3, EM))
		// Both layouts describe the same scalar matrix
		for i := 0; i < 6; i++ {
			for j := 0; j < 6; j++ {
				assert.Equal(t, Sb.MainBlock.At(i, j), Se.MainBlock.At(i, j))
			}
		}
		// Row DOF 2 equation 1, column DOF 1 component 0: s=1, r=0
		assert.Equal(t, 1010., Sb.MainBlock.At(5, 2))
		// Rows at or above the upper bound are skipped
		Sb.SetValues(0)
		require.NoError(t, Sb.AddToSystemMatrix(rows, numEqu, rows, numComp, 2, EM))
		assert.Equal(t, 0., Sb.MainBlock.At(5, 2))
		assert.Equal(t, 1., Sb.MainBlock.At(2, 4))
		Sw := NewSystemMatrix(dofs, 3, 3)
		err = Sw.AddToSystemMatrix(rows, numEqu, rows, numComp, 3, EM)
		assert.True(t, errors.Is(err, types.ErrMatrixType))
	}
	{ // Normalization and norms
		S := NewSystemMatrix(tridiagonal(t, 3, 1).Pattern, 1, 1)
		S.MainBlock = tridiagonal(t, 3, 1)
		assert.InDeltaSlice(t, []float64{1. / 3, 0.25, 1. / 3}, S.Normalization(), 1.e-15)
		n2, nMax := S.Norms([]float64{3, -4, 0}, []float64{1, 2, 1})
		assert.Equal(t, 5., n2)
		assert.Equal(t, 8., nMax)
		assert.NoError(t, S.Validate())
		assert.True(t, S.IsSymmetric(0))
	}
}

func TestDistributedMatrixVector(t *testing.T) {
	var (
		n, bs = 10, 2
		np    = 3
		A     = tridiagonal(t, n, bs)
		x     = make([]float64, n*bs)
		y     = make([]float64, n*bs)
	)
	for i := range x {
		x[i] = math.Sin(float64(i))
	}
	A.MatrixVector(1, x, 0, y)
	// Interleaved ownership forces couplings in both directions
	partition := []int{0, 1, 2, 0, 1, 2, 2, 1, 0, 0}
	d, err := NewDistribution(partition, np)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4, 7, 10}, d.Offsets)
	assert.Equal(t, 2, d.Owner(9))
	assert.Equal(t, 1, d.Owner(4))
	comms := NewThreadComms(np)
	parts, err := Distribute(A, d, comms)
	require.NoError(t, err)
	var (
		locals = make([][]float64, np)
		dots   = make([]float64, np)
		wg     sync.WaitGroup
	)
	for r := 0; r < np; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			S := parts[r]
			xl := d.Scatter(x, r, bs)
			locals[r] = make([]float64, len(xl))
			S.MatrixVector(1, xl, 0, locals[r])
			dots[r] = S.Dot(xl, xl)
		}(r)
	}
	wg.Wait()
	assert.InDeltaSlice(t, y, d.Gather(locals, bs), 1.e-14)
	var xx float64
	for _, v := range x {
		xx += v * v
	}
	for r := 0; r < np; r++ {
		assert.InDelta(t, xx, dots[r], 1.e-12)
		assert.Equal(t, dots[0], dots[r])
	}
	_, err = NewDistribution([]int{0, 3}, 2)
	assert.True(t, errors.Is(err, types.ErrValue))
}
