package utils

import (
	"fmt"
)

type Index []int

func NewIndex(N int) (I Index) {
	return make(Index, N)
}

func NewRange(rmin, rmax int) (r Index) {
	size := rmax - rmin + 1 // inclusive
	if size < 0 {
		size = 0
	}
	r = make(Index, size)
	for i := range r {
		r[i] = i + rmin
	}
	return
}

func NewFilled(N, val int) (r Index) {
	r = make(Index, N)
	for i := range r {
		r[i] = val
	}
	return
}

// Cumsum replaces I by its exclusive prefix sum and returns the total
func (I Index) Cumsum() (total int) {
	for i, val := range I {
		I[i] = total
		total += val
	}
	return
}

// PackMask returns the positions i with mask[i] set
func PackMask(mask []bool) (index Index) {
	index = make(Index, 0, len(mask))
	for i, m := range mask {
		if m {
			index = append(index, i)
		}
	}
	return
}

// InvertMap builds the inverse of a one to one map into [0,N), unmapped entries are -1
func InvertMap(N int, m Index) (inv Index, err error) {
	inv = NewFilled(N, -1)
	for i, j := range m {
		if j < 0 || j >= N {
			err = fmt.Errorf("map entry %d = %d out of range [0,%d)", i, j, N)
			return
		}
		if inv[j] != -1 {
			err = fmt.Errorf("map is not one to one, %d is hit by %d and %d", j, inv[j], i)
			return
		}
		inv[j] = i
	}
	return
}

/*
MultiIndex computes row-major offsets into a flat buffer with a fixed shape, the last
index varies fastest. Offsets for rank 2..4 have fixed arity helpers for inner loops.
*/
type MultiIndex struct {
	Dims    []int
	Strides []int
	Size    int
}

func NewMultiIndex(dims ...int) (mi MultiIndex) {
	mi = MultiIndex{
		Dims:    append([]int{}, dims...),
		Strides: make([]int, len(dims)),
		Size:    1,
	}
	for n := len(dims) - 1; n >= 0; n-- {
		mi.Strides[n] = mi.Size
		mi.Size *= dims[n]
	}
	return
}

func (mi MultiIndex) Offset(idx ...int) (off int) {
	if len(idx) != len(mi.Dims) {
		panic(fmt.Errorf("index rank %d does not match shape rank %d", len(idx), len(mi.Dims)))
	}
	for n, i := range idx {
		if i < 0 || i >= mi.Dims[n] {
			panic(fmt.Errorf("index %d out of range [0,%d) in position %d", i, mi.Dims[n], n))
		}
		off += i * mi.Strides[n]
	}
	return
}

func (mi MultiIndex) I2(i, j int) int { return i*mi.Strides[0] + j }

func (mi MultiIndex) I3(i, j, k int) int { return i*mi.Strides[0] + j*mi.Strides[1] + k }

func (mi MultiIndex) I4(i, j, k, l int) int {
	return i*mi.Strides[0] + j*mi.Strides[1] + k*mi.Strides[2] + l
}

// AddScatter adds blocks of values into out at the listed rows, rows >= upperBound are dropped
func AddScatter(index Index, blockSize int, values, out []float64, upperBound int) {
	for s, row := range index {
		if row < 0 || row >= upperBound {
			continue
		}
		for k := 0; k < blockSize; k++ {
			AtomicAddFloat64(&out[row*blockSize+k], values[s*blockSize+k])
		}
	}
}
