package utils

import (
	"errors"
	"fmt"
	"math"

	"github.com/notargets/gopde/types"
	"gonum.org/v1/gonum/mat"
)

// All small matrices are row-major dim x dim unless noted otherwise.

func DetOfSmallMat(dim int, A []float64) (det float64) {
	switch dim {
	case 1:
		det = A[0]
	case 2:
		det = A[0]*A[3] - A[1]*A[2]
	case 3:
		det = A[0]*(A[4]*A[8]-A[5]*A[7]) -
			A[1]*(A[3]*A[8]-A[5]*A[6]) +
			A[2]*(A[3]*A[7]-A[4]*A[6])
	default:
		panic(fmt.Errorf("small matrix determinant requires dim in [1,3], have %d", dim))
	}
	return
}

// InvertSmallMat writes the inverse of A into invA, a zero determinant is a ZeroDivisionError
func InvertSmallMat(dim int, A, invA []float64) (det float64, err error) {
	det = DetOfSmallMat(dim, A)
	if det == 0 {
		err = types.NewError(types.ZeroDivisionError, "non-regular %dx%d matrix", dim, dim)
		return
	}
	var (
		r = 1. / det
	)
	switch dim {
	case 1:
		invA[0] = r
	case 2:
		invA[0], invA[1] = A[3]*r, -A[1]*r
		invA[2], invA[3] = -A[2]*r, A[0]*r
	case 3:
		invA[0] = (A[4]*A[8] - A[5]*A[7]) * r
		invA[1] = (A[2]*A[7] - A[1]*A[8]) * r
		invA[2] = (A[1]*A[5] - A[2]*A[4]) * r
		invA[3] = (A[5]*A[6] - A[3]*A[8]) * r
		invA[4] = (A[0]*A[8] - A[2]*A[6]) * r
		invA[5] = (A[2]*A[3] - A[0]*A[5]) * r
		invA[6] = (A[3]*A[7] - A[4]*A[6]) * r
		invA[7] = (A[1]*A[6] - A[0]*A[7]) * r
		invA[8] = (A[0]*A[4] - A[1]*A[3]) * r
	}
	return
}

// InvertBlock inverts a bs x bs block, closed form up to 3 and LU with partial pivoting above
func InvertBlock(bs int, A, invA []float64) (err error) {
	if bs <= 3 {
		_, err = InvertSmallMat(bs, A, invA)
		return
	}
	var (
		inv  mat.Dense
		cond mat.Condition
	)
	if err = inv.Inverse(mat.NewDense(bs, bs, append([]float64{}, A...))); err != nil {
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return types.NewError(types.ZeroDivisionError, "singular %dx%d block: %v", bs, bs, err)
		}
		err = nil
	}
	copy(invA, inv.RawMatrix().Data)
	return
}

// ApplyBlock overwrites x with invA*x, tmp must hold bs values for bs > 3
func ApplyBlock(bs int, invA, x, tmp []float64) {
	switch bs {
	case 1:
		x[0] *= invA[0]
	case 2:
		x0, x1 := x[0], x[1]
		x[0] = invA[0]*x0 + invA[1]*x1
		x[1] = invA[2]*x0 + invA[3]*x1
	case 3:
		x0, x1, x2 := x[0], x[1], x[2]
		x[0] = invA[0]*x0 + invA[1]*x1 + invA[2]*x2
		x[1] = invA[3]*x0 + invA[4]*x1 + invA[5]*x2
		x[2] = invA[6]*x0 + invA[7]*x1 + invA[8]*x2
	default:
		copy(tmp[:bs], x[:bs])
		for i := 0; i < bs; i++ {
			var sum float64
			for j := 0; j < bs; j++ {
				sum += invA[i*bs+j] * tmp[j]
			}
			x[i] = sum
		}
	}
}

// SmallMatMult returns C = A*B with A n x m and B m x k
func SmallMatMult(n, m, k int, A, B []float64) (C []float64) {
	C = make([]float64, n*k)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			var sum float64
			for l := 0; l < m; l++ {
				sum += A[i*m+l] * B[l*k+j]
			}
			C[i*k+j] = sum
		}
	}
	return
}

// NormalVector returns the unit normal of the manifold spanned by the columns of the dim x (dim-1) matrix A
func NormalVector(dim int, A []float64) (n []float64, err error) {
	n = make([]float64, dim)
	switch dim {
	case 1:
		n[0] = 1
	case 2:
		n[0], n[1] = A[1], -A[0]
	case 3:
		// columns are (A[0],A[2],A[4]) and (A[1],A[3],A[5])
		n[0] = A[2]*A[5] - A[4]*A[3]
		n[1] = A[4]*A[1] - A[0]*A[5]
		n[2] = A[0]*A[3] - A[2]*A[1]
	default:
		panic(fmt.Errorf("normal vector requires dim in [1,3], have %d", dim))
	}
	length := math.Sqrt(dot(n, n))
	if length == 0 {
		err = types.NewError(types.ZeroDivisionError, "area of a surface element is zero")
		return
	}
	for i := range n {
		n[i] /= length
	}
	return
}

// LengthOfNormalVector is the area scaling of the manifold spanned by the columns of A
func LengthOfNormalVector(dim int, A []float64) (length float64) {
	switch dim {
	case 1:
		length = 1
	case 2:
		length = math.Sqrt(A[0]*A[0] + A[1]*A[1])
	case 3:
		n0 := A[2]*A[5] - A[4]*A[3]
		n1 := A[4]*A[1] - A[0]*A[5]
		n2 := A[0]*A[3] - A[2]*A[1]
		length = math.Sqrt(n0*n0 + n1*n1 + n2*n2)
	default:
		panic(fmt.Errorf("normal vector requires dim in [1,3], have %d", dim))
	}
	return
}

// EigenSym returns ascending eigenvalues and, if requested, the row-major matrix of column eigenvectors
func EigenSym(dim int, A []float64, vectors bool) (vals, vecs []float64, err error) {
	if dim < 1 || dim > 3 {
		panic(fmt.Errorf("symmetric eigen decomposition requires dim in [1,3], have %d", dim))
	}
	if dim == 1 {
		vals = []float64{A[0]}
		if vectors {
			vecs = []float64{1}
		}
		return
	}
	var (
		sym = mat.NewSymDense(dim, nil)
		es  mat.EigenSym
	)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			sym.SetSym(i, j, 0.5*(A[i*dim+j]+A[j*dim+i]))
		}
	}
	if ok := es.Factorize(sym, vectors); !ok {
		err = types.NewError(types.SystemError, "eigen decomposition of a %dx%d matrix failed", dim, dim)
		return
	}
	vals = es.Values(nil)
	if vectors {
		var ev mat.Dense
		es.VectorsTo(&ev)
		vecs = append([]float64{}, ev.RawMatrix().Data...)
	}
	return
}

func dot(a, b []float64) (sum float64) {
	for i := range a {
		sum += a[i] * b[i]
	}
	return
}
