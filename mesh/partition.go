package mesh

import (
	"fmt"
	"log"

	metis "github.com/notargets/go-metis"

	"github.com/notargets/gopde/types"
	"github.com/notargets/gopde/utils"
)

/*
PartitionDOFs splits the DOF graph into nparts with METIS and returns the rank of every
DOF. Edge weights count the elements that couple two DOFs.
*/
func (m *Mesh) PartitionDOFs(nparts int) (partition []int, err error) {
	n := m.Nodes.NumDOF
	if nparts < 1 {
		err = types.NewError(types.ValueError, "number of partitions must be positive, have %d", nparts)
		return
	}
	partition = make([]int, n)
	if nparts == 1 || n == 0 {
		return
	}
	if nparts > n {
		err = types.NewError(types.ValueError, "cannot split %d DOFs into %d partitions", n, nparts)
		return
	}
	log.Printf("Partitioning %d DOFs into %d parts", n, nparts)

	xadj, adjncy, adjwgt := m.dofGraph()
	opts := make([]int32, metis.NoOptions)
	if err = metis.SetDefaultOptions(opts); err != nil {
		return nil, fmt.Errorf("failed to set METIS options: %w", err)
	}
	opts[metis.OptionObjType] = metis.ObjTypeCut
	ubvec := []float32{1.05}

	part, objval, err := metis.PartGraphKwayWeighted(
		xadj, adjncy, nil, adjwgt,
		int32(nparts), nil, ubvec, opts,
	)
	if err != nil {
		return nil, fmt.Errorf("METIS partitioning failed: %w", err)
	}
	sizes := make([]int, nparts)
	for i := range partition {
		partition[i] = int(part[i])
		sizes[partition[i]]++
	}
	log.Printf("Edge cut %d, partition sizes %v", objval, sizes)
	return
}

// dofGraph is the CSR adjacency of the DOF graph without self loops
func (m *Mesh) dofGraph() (xadj, adjncy, adjwgt []int32) {
	var (
		n       = m.Nodes.NumDOF
		weights = make(map[types.PairKey]int32)
	)
	for e := 0; e < m.Elements.NumElements; e++ {
		el := m.Elements.Element(e)
		for a := 0; a < len(el); a++ {
			for b := a + 1; b < len(el); b++ {
				i, j := m.Nodes.GlobalDOF[el[a]], m.Nodes.GlobalDOF[el[b]]
				if i != j {
					weights[types.NewPairKey(i, j)]++
				}
			}
		}
	}
	dok := utils.NewDOK(n, n, "DOFGraph")
	for key := range weights {
		i, j := key.GetIndices()
		dok.Insert(i, j)
		dok.Insert(j, i)
	}
	ptr, index := dok.ToCSR().Structure()
	xadj = make([]int32, n+1)
	adjncy = make([]int32, len(index))
	adjwgt = make([]int32, len(index))
	for i := 0; i < n; i++ {
		xadj[i+1] = int32(ptr[i+1])
		for iptr := ptr[i]; iptr < ptr[i+1]; iptr++ {
			adjncy[iptr] = int32(index[iptr])
			adjwgt[iptr] = weights[types.NewPairKey(i, index[iptr])]
		}
	}
	return
}
