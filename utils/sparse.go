package utils

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
)

/*
DOK accumulates the structure of a sparse matrix one (row, column) pair at a time. Entries
carry the value 1 so products of patterns never cancel to an absent entry.
*/
type DOK struct {
	M    *sparse.DOK
	name string
}

func NewDOK(nr, nc int, name string) (R DOK) {
	R = DOK{
		M:    sparse.NewDOK(nr, nc),
		name: name,
	}
	return
}

func (m DOK) Dims() (r, c int) { return m.M.Dims() }

func (m DOK) Insert(i, j int) {
	var (
		nr, nc = m.Dims()
	)
	if i < 0 || i >= nr || j < 0 || j >= nc {
		panic(fmt.Errorf("entry (%d,%d) outside %dx%d pattern %q", i, j, nr, nc, m.name))
	}
	m.M.Set(i, j, 1)
}

func (m DOK) ToCSR() CSR {
	return CSR{
		M:    m.M.ToCSR(),
		name: m.name,
	}
}

type CSR struct {
	M    *sparse.CSR
	name string
}

func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }
func (m CSR) Name() string                  { return m.name }

// Mul returns the structural product m*b
func (m CSR) Mul(b CSR, name string) (R CSR) {
	var (
		prod   sparse.CSR
		_, mc  = m.Dims()
		br, bc = b.Dims()
	)
	if mc != br {
		panic(fmt.Errorf("cannot multiply %q (%d columns) by %q (%dx%d)", m.Name(), mc, b.Name(), br, bc))
	}
	prod.Mul(m.M, b.M)
	R = CSR{M: &prod, name: name}
	return
}

// Structure returns row pointers and column indices with every row sorted ascending
func (m CSR) Structure() (ptr, index []int) {
	var (
		raw = m.RawMatrix()
		nr  = raw.I
	)
	ptr = make([]int, nr+1)
	index = make([]int, 0, len(raw.Ind))
	for i := 0; i < nr; i++ {
		row := append([]int{}, raw.Ind[raw.Indptr[i]:raw.Indptr[i+1]]...)
		sort.Ints(row)
		index = append(index, row...)
		ptr[i+1] = len(index)
	}
	return
}
