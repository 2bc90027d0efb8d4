package utils

import (
	"errors"
	"math"
	"testing"

	"github.com/notargets/gopde/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmallMatrix(t *testing.T) {
	{ // Inverse times matrix is the identity for 1..3
		mats := map[int][]float64{
			1: {4},
			2: {4, 1, 2, 3},
			3: {4, 1, 0, 1, 3, 1, 0, 1, 2},
		}
		for dim, A := range mats {
			invA := make([]float64, dim*dim)
			det, err := InvertSmallMat(dim, A, invA)
			require.NoError(t, err)
			assert.InDelta(t, DetOfSmallMat(dim, A), det, 1.e-14)
			I := SmallMatMult(dim, dim, dim, A, invA)
			for i := 0; i < dim; i++ {
				for j := 0; j < dim; j++ {
					var expected float64
					if i == j {
						expected = 1
					}
					assert.InDelta(t, expected, I[i*dim+j], 1.e-14)
				}
			}
		}
		assert.Equal(t, 18., DetOfSmallMat(3, []float64{4, 1, 0, 1, 3, 1, 0, 1, 2}))
	}
	{ // Singular small matrices are a ZeroDivisionError
		_, err := InvertSmallMat(2, []float64{1, 2, 2, 4}, make([]float64, 4))
		assert.True(t, errors.Is(err, types.ErrZeroDivision))
		_, err = InvertSmallMat(1, []float64{0}, make([]float64, 1))
		assert.True(t, errors.Is(err, types.ErrZeroDivision))
	}
	{ // Block inverse above 3 uses LU with pivoting
		var (
			bs   = 4
			A    = []float64{0, 2, 0, 0, 1, 0, 0, 0, 0, 0, 3, 1, 0, 0, 1, 3}
			invA = make([]float64, bs*bs)
			x    = []float64{2, 2, 4, 4}
		)
		require.NoError(t, InvertBlock(bs, A, invA))
		ApplyBlock(bs, invA, x, make([]float64, bs))
		assert.InDeltaSlice(t, []float64{2, 1, 1, 1}, x, 1.e-14)
		err := InvertBlock(bs, make([]float64, bs*bs), invA)
		assert.True(t, errors.Is(err, types.ErrZeroDivision))
	}
	{ // Closed form application matches the product
		var (
			A    = []float64{4, 1, 0, 1, 3, 1, 0, 1, 2}
			invA = make([]float64, 9)
			b    = []float64{5, 5, 3}
		)
		require.NoError(t, InvertBlock(3, A, invA))
		ApplyBlock(3, invA, b, nil)
		assert.InDeltaSlice(t, []float64{1, 1, 1}, b, 1.e-14)
	}
	{ // Normals and surface scaling
		n, err := NormalVector(2, []float64{0, 2})
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{1, 0}, n, 1.e-15)
		assert.InDelta(t, 2., LengthOfNormalVector(2, []float64{0, 2}), 1.e-15)
		// Columns (1,0,0) and (0,1,0) span the xy plane
		J := []float64{1, 0, 0, 1, 0, 0}
		n, err = NormalVector(3, J)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{0, 0, 1}, n, 1.e-15)
		assert.InDelta(t, 1., LengthOfNormalVector(3, J), 1.e-15)
		_, err = NormalVector(3, make([]float64, 6))
		assert.True(t, errors.Is(err, types.ErrZeroDivision))
	}
	{ // Symmetric eigenvalues
		vals, vecs, err := EigenSym(2, []float64{2, 1, 1, 2}, true)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{1, 3}, vals, 1.e-14)
		// Second column is the eigenvector of 3
		assert.InDelta(t, math.Sqrt(0.5), math.Abs(vecs[1]), 1.e-14)
		assert.InDelta(t, math.Sqrt(0.5), math.Abs(vecs[3]), 1.e-14)
		vals, _, err = EigenSym(3, []float64{3, 0, 0, 0, 1, 0, 0, 0, 2}, false)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{1, 2, 3}, vals, 1.e-14)
		vals, _, err = EigenSym(1, []float64{-5}, false)
		require.NoError(t, err)
		assert.Equal(t, []float64{-5}, vals)
	}
}

func TestTensorOps(t *testing.T) {
	var (
		left  = []float64{1, 2, 3, 4, 5, 6}
		right = []float64{2, 3}
		out   = make([]float64, 6)
	)
	// Two points of size 3, right side is one scalar per point
	BinaryOp(OpMul, 2, 3, left, false, right, true, out)
	assert.Equal(t, []float64{2, 4, 6, 12, 15, 18}, out)
	BinaryOp(OpSub, 2, 3, left, false, left, false, out)
	assert.Equal(t, make([]float64, 6), out)
	BinaryOp(OpMax, 2, 3, right, true, left, false, out)
	assert.Equal(t, []float64{2, 2, 3, 4, 5, 6}, out)
	UnaryOp(math.Sqrt, []float64{4, 9}, out[:2])
	assert.Equal(t, []float64{2, 3}, out[:2])
	tr := make([]float64, 1)
	Trace(2, 1, []float64{1, 7, 7, 2}, tr)
	assert.Equal(t, 3., tr[0])
	T := make([]float64, 6)
	Transpose(2, 3, 1, left, T)
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, T)
}

func TestIndexing(t *testing.T) {
	{
		mi := NewMultiIndex(2, 3, 4, 5)
		assert.Equal(t, 120, mi.Size)
		assert.Equal(t, mi.Offset(1, 2, 3, 4), mi.I4(1, 2, 3, 4))
		assert.Equal(t, 119, mi.I4(1, 2, 3, 4))
		assert.Equal(t, ((1*3+2)*4+3)*5+4, mi.Offset(1, 2, 3, 4))
		assert.Panics(t, func() { mi.Offset(2, 0, 0, 0) })
		m3 := NewMultiIndex(3, 2, 2)
		assert.Equal(t, 11, m3.I3(2, 1, 1))
		m2 := NewMultiIndex(3, 2)
		assert.Equal(t, 5, m2.I2(2, 1))
	}
	{
		I := Index{3, 0, 2, 1}
		assert.Equal(t, 6, I.Cumsum())
		assert.Equal(t, Index{0, 3, 3, 5}, I)
		assert.Equal(t, Index{1, 3}, PackMask([]bool{false, true, false, true}))
		inv, err := InvertMap(5, Index{4, 0, 2})
		assert.NoError(t, err)
		assert.Equal(t, Index{1, -1, 2, -1, 0}, inv)
		_, err = InvertMap(5, Index{4, 4})
		assert.Error(t, err)
		assert.Equal(t, Index{2, 3, 4}, NewRange(2, 4))
		assert.Equal(t, 0, len(NewRange(3, 1)))
	}
	{ // Scatter with a block size of two, rows past the bound are dropped
		F := make([]float64, 6)
		AddScatter(Index{2, 0, 1}, 2, []float64{1, 2, 3, 4, 5, 6}, F, 2)
		assert.Equal(t, []float64{3, 4, 5, 6, 0, 0}, F)
	}
}

func TestSparsePattern(t *testing.T) {
	var (
		a = NewDOK(3, 3, "a")
		b = NewDOK(3, 2, "b")
	)
	a.Insert(0, 2)
	a.Insert(0, 0)
	a.Insert(1, 1)
	a.Insert(2, 0)
	b.Insert(0, 1)
	b.Insert(2, 0)
	b.Insert(1, 1)
	assert.Panics(t, func() { a.Insert(3, 0) })
	ptr, index := a.ToCSR().Structure()
	assert.Equal(t, []int{0, 2, 3, 4}, ptr)
	assert.Equal(t, []int{0, 2, 1, 0}, index)
	// Row 0 of a touches rows 0 and 2 of b
	ptr, index = a.ToCSR().Mul(b.ToCSR(), "ab").Structure()
	assert.Equal(t, []int{0, 2, 3, 4}, ptr)
	assert.Equal(t, []int{0, 1, 1, 1}, index)
	ab := a.ToCSR().Mul(b.ToCSR(), "ab")
	assert.Equal(t, "ab", ab.Name())
	assert.PanicsWithError(t, `cannot multiply "b" (2 columns) by "a" (3x3)`,
		func() { b.ToCSR().Mul(a.ToCSR(), "ba") })
}
