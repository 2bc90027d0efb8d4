package sysmat

import (
	"fmt"
	"sort"
	"sync"

	"github.com/notargets/gopde/types"
	"github.com/notargets/gopde/utils"
)

/*
Pattern is the fixed CSR structure of a sparse matrix, NumOutput rows by NumInput
columns, with the column indices of every row sorted ascending. A Pattern is never
modified after construction and may be shared by several matrices.
*/
type Pattern struct {
	NumOutput, NumInput int
	Ptr                 []int
	Index               []int

	diagOnce  sync.Once
	mainDiag  []int
	colorOnce sync.Once
	coloring  []int
	numColors int
}

func NewPattern(numOutput, numInput int, ptr, index []int) (p *Pattern, err error) {
	if len(ptr) != numOutput+1 || ptr[0] != 0 || ptr[numOutput] != len(index) {
		err = types.NewError(types.SystemError,
			"row pointer of length %d does not describe %d rows over %d entries", len(ptr), numOutput, len(index))
		return
	}
	for i := 0; i < numOutput; i++ {
		for iptr := ptr[i]; iptr < ptr[i+1]; iptr++ {
			j := index[iptr]
			if j < 0 || j >= numInput {
				err = types.NewError(types.SystemError, "column %d of row %d outside [0,%d)", j, i, numInput)
				return
			}
			if iptr > ptr[i] && index[iptr-1] >= j {
				err = types.NewError(types.SystemError, "columns of row %d are not strictly ascending", i)
				return
			}
		}
	}
	p = &Pattern{
		NumOutput: numOutput,
		NumInput:  numInput,
		Ptr:       ptr,
		Index:     index,
	}
	return
}

// NewPatternFromDOK takes the structure accumulated in a DOK
func NewPatternFromDOK(dok utils.DOK) (p *Pattern) {
	var (
		nr, nc     = dok.Dims()
		ptr, index = dok.ToCSR().Structure()
	)
	p, _ = NewPattern(nr, nc, ptr, index)
	return
}

func (p *Pattern) Len() int { return len(p.Index) }

func (p *Pattern) Row(i int) []int { return p.Index[p.Ptr[i]:p.Ptr[i+1]] }

// Find returns the position of (row, col) in Index or -1
func (p *Pattern) Find(row, col int) int {
	var (
		r = p.Row(row)
		k = sort.SearchInts(r, col)
	)
	if k < len(r) && r[k] == col {
		return p.Ptr[row] + k
	}
	return -1
}

// MainDiagonalPointer returns the position of (i,i) for every row, -1 where it is absent
func (p *Pattern) MainDiagonalPointer() []int {
	p.diagOnce.Do(func() {
		p.mainDiag = make([]int, p.NumOutput)
		for i := range p.mainDiag {
			p.mainDiag[i] = p.Find(i, i)
		}
	})
	return p.mainDiag
}

func (p *Pattern) HasFullDiagonal() bool {
	if p.NumOutput != p.NumInput {
		return false
	}
	for _, d := range p.MainDiagonalPointer() {
		if d < 0 {
			return false
		}
	}
	return true
}

/*
Coloring assigns every row the smallest color not used by a row it is coupled to in
either direction, so rows of one color never reference each other.
*/
func (p *Pattern) Coloring() (colorOf []int, numColors int) {
	p.colorOnce.Do(func() {
		var (
			n       = p.NumOutput
			colOf   = utils.NewFilled(n, -1)
			used    = utils.NewFilled(n+1, -1)
			tPtr, t = p.transposeSquare()
		)
		for i := 0; i < n; i++ {
			mark := func(j int) {
				if j != i && j < n && colOf[j] >= 0 {
					used[colOf[j]] = i
				}
			}
			for _, j := range p.Row(i) {
				mark(j)
			}
			for _, j := range t[tPtr[i]:tPtr[i+1]] {
				mark(j)
			}
			c := 0
			for used[c] == i {
				c++
			}
			colOf[i] = c
			if c+1 > p.numColors {
				p.numColors = c + 1
			}
		}
		p.coloring = colOf
	})
	return p.coloring, p.numColors
}

// transposeSquare returns the transpose structure restricted to the leading square part
func (p *Pattern) transposeSquare() (ptr, index []int) {
	var (
		n = p.NumOutput
	)
	ptr = make([]int, n+1)
	for _, j := range p.Index {
		if j < n {
			ptr[j+1]++
		}
	}
	for i := 0; i < n; i++ {
		ptr[i+1] += ptr[i]
	}
	index = make([]int, ptr[n])
	fill := append([]int{}, ptr[:n]...)
	for i := 0; i < n; i++ {
		for _, j := range p.Row(i) {
			if j < n {
				index[fill[j]] = i
				fill[j]++
			}
		}
	}
	return
}

func (p *Pattern) toDOK(name string) (dok utils.DOK) {
	dok = utils.NewDOK(p.NumOutput, p.NumInput, name)
	for i := 0; i < p.NumOutput; i++ {
		for _, j := range p.Row(i) {
			dok.Insert(i, j)
		}
	}
	return
}

// Multiply returns the structure of the product p*b
func (p *Pattern) Multiply(b *Pattern) (r *Pattern, err error) {
	if p.NumInput != b.NumOutput {
		err = types.NewError(types.SystemError, "cannot multiply %dx%d and %dx%d patterns",
			p.NumOutput, p.NumInput, b.NumOutput, b.NumInput)
		return
	}
	if p.Len() == 0 || b.Len() == 0 {
		return NewPattern(p.NumOutput, b.NumInput, make([]int, p.NumOutput+1), nil)
	}
	var (
		prod       = p.toDOK("left").ToCSR().Mul(b.toDOK("right").ToCSR(), "product")
		ptr, index = prod.Structure()
	)
	return NewPattern(p.NumOutput, b.NumInput, ptr, index)
}

// Union merges the structure of two patterns of equal shape
func (p *Pattern) Union(b *Pattern) (r *Pattern, err error) {
	if p.NumOutput != b.NumOutput || p.NumInput != b.NumInput {
		err = types.NewError(types.SystemError, "cannot merge %dx%d and %dx%d patterns",
			p.NumOutput, p.NumInput, b.NumOutput, b.NumInput)
		return
	}
	var (
		ptr   = make([]int, p.NumOutput+1)
		index = make([]int, 0, p.Len()+b.Len())
	)
	for i := 0; i < p.NumOutput; i++ {
		var (
			ra, rb = p.Row(i), b.Row(i)
			ia, ib int
		)
		for ia < len(ra) || ib < len(rb) {
			switch {
			case ib == len(rb) || (ia < len(ra) && ra[ia] < rb[ib]):
				index = append(index, ra[ia])
				ia++
			case ia == len(ra) || rb[ib] < ra[ia]:
				index = append(index, rb[ib])
				ib++
			default:
				index = append(index, ra[ia])
				ia++
				ib++
			}
		}
		ptr[i+1] = len(index)
	}
	return NewPattern(p.NumOutput, p.NumInput, ptr, index)
}

// Submatrix keeps the listed rows and relabels columns through colMap, entries mapped to -1 are dropped
func (p *Pattern) Submatrix(rows utils.Index, colMap utils.Index, numCols int) (r *Pattern, err error) {
	var (
		ptr   = make([]int, len(rows)+1)
		index = make([]int, 0)
	)
	for ii, i := range rows {
		start := len(index)
		for _, j := range p.Row(i) {
			if jn := colMap[j]; jn >= 0 {
				index = append(index, jn)
			}
		}
		sort.Ints(index[start:])
		ptr[ii+1] = len(index)
	}
	return NewPattern(len(rows), numCols, ptr, index)
}

func (p *Pattern) String() string {
	return fmt.Sprintf("Pattern(%dx%d, %d entries)", p.NumOutput, p.NumInput, p.Len())
}
