package mesh

import (
	"github.com/notargets/gopde/sysmat"
	"github.com/notargets/gopde/utils"
)

// GetPattern is the DOF coupling of every element, face element and point of the mesh
func (m *Mesh) GetPattern() (p *sysmat.Pattern) {
	var (
		n   = m.Nodes.NumDOF
		dok = utils.NewDOK(n, n, "Pattern")
	)
	for _, ef := range []*ElementFile{m.Elements, m.FaceElements, m.Points} {
		if ef == nil {
			continue
		}
		for e := 0; e < ef.NumElements; e++ {
			for _, ni := range ef.Element(e) {
				for _, nj := range ef.Element(e) {
					dok.Insert(m.Nodes.GlobalDOF[ni], m.Nodes.GlobalDOF[nj])
				}
			}
		}
	}
	return sysmat.NewPatternFromDOK(dok)
}

/*
NewSystemMatrix allocates a zero matrix over the mesh pattern for numEqu equations in
numComp components. Block storage keeps one numEqu x numComp block per DOF pair, expanded
storage uses scalar entries.
*/
func (m *Mesh) NewSystemMatrix(numEqu, numComp int, expanded bool) (S *sysmat.SystemMatrix, err error) {
	p := m.GetPattern()
	if expanded && (numEqu > 1 || numComp > 1) {
		return sysmat.NewExpandedSystemMatrix(p, numEqu, numComp)
	}
	S = sysmat.NewSystemMatrix(p, numEqu, numComp)
	return
}
