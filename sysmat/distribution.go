package sysmat

import (
	"sort"

	"github.com/notargets/gopde/types"
	"github.com/notargets/gopde/utils"
)

/*
Distribution renumbers block rows so that the rows of rank r are the contiguous range
[Offsets[r], Offsets[r+1]) of the new numbering. Perm maps old to new row numbers.
*/
type Distribution struct {
	NP      int
	Offsets []int
	Perm    utils.Index
	InvPerm utils.Index
}

// NewDistribution orders rows by rank, keeping the original order within a rank
func NewDistribution(partition []int, np int) (d *Distribution, err error) {
	d = &Distribution{
		NP:      np,
		Offsets: make([]int, np+1),
		Perm:    utils.NewIndex(len(partition)),
	}
	for i, r := range partition {
		if r < 0 || r >= np {
			err = types.NewError(types.ValueError, "row %d assigned to rank %d outside [0,%d)", i, r, np)
			return
		}
		d.Offsets[r+1]++
	}
	for r := 0; r < np; r++ {
		d.Offsets[r+1] += d.Offsets[r]
	}
	fill := append([]int{}, d.Offsets[:np]...)
	for i, r := range partition {
		d.Perm[i] = fill[r]
		fill[r]++
	}
	d.InvPerm, err = utils.InvertMap(len(partition), d.Perm)
	return
}

func (d *Distribution) Owner(newRow int) int {
	return sort.SearchInts(d.Offsets[1:], newRow+1)
}

func (d *Distribution) LocalSize(rank int) int { return d.Offsets[rank+1] - d.Offsets[rank] }

// Scatter returns the values of rank's rows from a vector in the original numbering
func (d *Distribution) Scatter(global []float64, rank, bs int) (local []float64) {
	local = make([]float64, d.LocalSize(rank)*bs)
	for i := 0; i < d.LocalSize(rank); i++ {
		old := d.InvPerm[d.Offsets[rank]+i]
		copy(local[i*bs:(i+1)*bs], global[old*bs:(old+1)*bs])
	}
	return
}

// Gather assembles a vector in the original numbering from the local parts of all ranks
func (d *Distribution) Gather(locals [][]float64, bs int) (global []float64) {
	global = make([]float64, len(d.Perm)*bs)
	for rank, local := range locals {
		for i := 0; i < d.LocalSize(rank); i++ {
			old := d.InvPerm[d.Offsets[rank]+i]
			copy(global[old*bs:(old+1)*bs], local[i*bs:(i+1)*bs])
		}
	}
	return
}

/*
Distribute splits a square matrix in the original numbering into one SystemMatrix per
rank. Columns owned by other ranks are numbered in ascending global order after the
local ones and reach the rank through a Coupler on comms[rank].
*/
func Distribute(A *SparseMatrix, d *Distribution, comms []Comm) (parts []*SystemMatrix, err error) {
	if A.NumRows() != A.NumCols() || A.NumRows() != len(d.Perm) {
		err = types.NewError(types.MatrixTypeError, "cannot distribute a %dx%d block matrix over %d rows",
			A.NumRows(), A.NumCols(), len(d.Perm))
		return
	}
	var (
		np        = d.NP
		remoteOf  = make([][]int, np) // per rank, ascending new global columns it needs
		connector = make([]*Connector, np)
		slotOf    = make([]map[int]int, np)
	)
	for r := 0; r < np; r++ {
		need := make(map[int]bool)
		for i := d.Offsets[r]; i < d.Offsets[r+1]; i++ {
			for _, j := range A.Pattern.Row(d.InvPerm[i]) {
				if jn := d.Perm[j]; jn < d.Offsets[r] || jn >= d.Offsets[r+1] {
					need[jn] = true
				}
			}
		}
		for jn := range need {
			remoteOf[r] = append(remoteOf[r], jn)
		}
		sort.Ints(remoteOf[r])
		slotOf[r] = make(map[int]int, len(remoteOf[r]))
		for slot, jn := range remoteOf[r] {
			slotOf[r][jn] = slot
		}
		connector[r] = &Connector{NumRemote: len(remoteOf[r])}
	}
	// remoteOf is sorted, so per owner the slots and the sent blocks line up
	for r := 0; r < np; r++ {
		byOwner := make(map[int][]int)
		for _, jn := range remoteOf[r] {
			q := d.Owner(jn)
			byOwner[q] = append(byOwner[q], jn)
		}
		owners := make([]int, 0, len(byOwner))
		for q := range byOwner {
			owners = append(owners, q)
		}
		sort.Ints(owners)
		for _, q := range owners {
			var slots, locals []int
			for _, jn := range byOwner[q] {
				slots = append(slots, slotOf[r][jn])
				locals = append(locals, jn-d.Offsets[q])
			}
			connector[r].RecvNeighbors = append(connector[r].RecvNeighbors, q)
			connector[r].RecvShared = append(connector[r].RecvShared, slots)
			connector[q].SendNeighbors = append(connector[q].SendNeighbors, r)
			connector[q].SendShared = append(connector[q].SendShared, locals)
		}
	}
	parts = make([]*SystemMatrix, np)
	for r := 0; r < np; r++ {
		var (
			nLocal                  = d.LocalSize(r)
			mainDOK                 = utils.NewDOK(nLocal, nLocal, "main")
			coupleDOK               = utils.NewDOK(nLocal, len(remoteOf[r]), "couple")
			mainPattern, couplePatt *Pattern
		)
		for i := 0; i < nLocal; i++ {
			for _, j := range A.Pattern.Row(d.InvPerm[d.Offsets[r]+i]) {
				if jn := d.Perm[j]; jn >= d.Offsets[r] && jn < d.Offsets[r+1] {
					mainDOK.Insert(i, jn-d.Offsets[r])
				} else {
					coupleDOK.Insert(i, slotOf[r][jn])
				}
			}
		}
		mainPattern = emptyOr(mainDOK, nLocal, nLocal)
		couplePatt = emptyOr(coupleDOK, nLocal, len(remoteOf[r]))
		S := &SystemMatrix{
			MainBlock:           NewSparseMatrix(mainPattern, A.RowBlockSize, A.ColBlockSize),
			ColCoupleBlock:      NewSparseMatrix(couplePatt, A.RowBlockSize, A.ColBlockSize),
			Comm:                comms[r],
			LogicalRowBlockSize: A.RowBlockSize,
			LogicalColBlockSize: A.ColBlockSize,
		}
		S.Coupler = NewCoupler(connector[r], A.ColBlockSize, comms[r])
		for i := 0; i < nLocal; i++ {
			old := d.InvPerm[d.Offsets[r]+i]
			for iptr := A.Pattern.Ptr[old]; iptr < A.Pattern.Ptr[old+1]; iptr++ {
				jn := d.Perm[A.Pattern.Index[iptr]]
				if jn >= d.Offsets[r] && jn < d.Offsets[r+1] {
					S.MainBlock.AddBlock(i, jn-d.Offsets[r], A.Block(iptr))
				} else {
					S.ColCoupleBlock.AddBlock(i, slotOf[r][jn], A.Block(iptr))
				}
			}
		}
		parts[r] = S
	}
	return
}

func emptyOr(dok utils.DOK, nr, nc int) (p *Pattern) {
	if nr == 0 || nc == 0 || dok.M.NNZ() == 0 {
		p, _ = NewPattern(nr, nc, make([]int, nr+1), nil)
		return
	}
	return NewPatternFromDOK(dok)
}
