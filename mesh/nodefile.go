package mesh

import (
	"fmt"

	"github.com/notargets/gopde/utils"
)

// NodeFile holds node coordinates, row-major (node, dim), and the node to DOF map
type NodeFile struct {
	NumDim      int
	NumNodes    int
	Coordinates []float64
	Id          []int
	Tag         []int
	GlobalDOF   utils.Index
	NumDOF      int
}

func NewNodeFile(numDim int, coordinates []float64) (nf *NodeFile, err error) {
	if numDim < 1 || len(coordinates)%numDim != 0 {
		err = fmt.Errorf("%d coordinates do not describe nodes of dimension %d", len(coordinates), numDim)
		return
	}
	n := len(coordinates) / numDim
	nf = &NodeFile{
		NumDim:      numDim,
		NumNodes:    n,
		Coordinates: coordinates,
		Id:          utils.NewRange(0, n-1),
		Tag:         make([]int, n),
		GlobalDOF:   utils.NewRange(0, n-1),
		NumDOF:      n,
	}
	return
}

func (nf *NodeFile) Coordinate(i int) []float64 {
	return nf.Coordinates[i*nf.NumDim : (i+1)*nf.NumDim]
}

// RenumberDOFs applies perm (old DOF to new DOF) to the node to DOF map
func (nf *NodeFile) RenumberDOFs(perm utils.Index) {
	for i, dof := range nf.GlobalDOF {
		nf.GlobalDOF[i] = perm[dof]
	}
}

// TagNodes sets tag on every node whose coordinates satisfy f
func (nf *NodeFile) TagNodes(tag int, f func(x []float64) bool) (count int) {
	for i := 0; i < nf.NumNodes; i++ {
		if f(nf.Coordinate(i)) {
			nf.Tag[i] = tag
			count++
		}
	}
	return
}

// DOFMask returns, per scalar unknown, 1 where the node carries tag and 0 elsewhere
func (nf *NodeFile) DOFMask(tag, numEqu int) (mask []float64) {
	mask = make([]float64, nf.NumDOF*numEqu)
	for i := 0; i < nf.NumNodes; i++ {
		if nf.Tag[i] == tag {
			for k := 0; k < numEqu; k++ {
				mask[nf.GlobalDOF[i]*numEqu+k] = 1
			}
		}
	}
	return
}
