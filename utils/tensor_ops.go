package utils

import (
	"fmt"
	"math"
)

type TensorOp uint8

const (
	OpAdd TensorOp = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpMin
	OpMax
)

func (op TensorOp) apply(a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	case OpPow:
		return math.Pow(a, b)
	case OpMin:
		return math.Min(a, b)
	case OpMax:
		return math.Max(a, b)
	}
	panic(fmt.Errorf("unknown tensor operation %d", op))
}

// BinaryOp applies op element-wise over numPoints data points of size dpSize, a scalar
// side holds one value per point which is broadcast over that point
func BinaryOp(op TensorOp, numPoints, dpSize int,
	left []float64, leftScalar bool, right []float64, rightScalar bool, out []float64) {
	for p := 0; p < numPoints; p++ {
		for i := 0; i < dpSize; i++ {
			var (
				li, ri = p*dpSize + i, p*dpSize + i
			)
			if leftScalar {
				li = p
			}
			if rightScalar {
				ri = p
			}
			out[p*dpSize+i] = op.apply(left[li], right[ri])
		}
	}
}

// UnaryOp applies f to every entry of in, writing to out
func UnaryOp(f func(float64) float64, in, out []float64) {
	for i, v := range in {
		out[i] = f(v)
	}
}

// Trace of each dim x dim point in a flat buffer
func Trace(dim, numPoints int, in, out []float64) {
	for p := 0; p < numPoints; p++ {
		var sum float64
		for i := 0; i < dim; i++ {
			sum += in[p*dim*dim+i*dim+i]
		}
		out[p] = sum
	}
}

// Transpose each n x m point in a flat buffer into m x n
func Transpose(n, m, numPoints int, in, out []float64) {
	for p := 0; p < numPoints; p++ {
		off := p * n * m
		for i := 0; i < n; i++ {
			for j := 0; j < m; j++ {
				out[off+j*n+i] = in[off+i*m+j]
			}
		}
	}
}
