package assemble

import (
	"github.com/notargets/gopde/data"
	"github.com/notargets/gopde/mesh"
	"github.com/notargets/gopde/sysmat"
	"github.com/notargets/gopde/utils"
)

// assemblePoints adds the Dirac terms D_km u_m and Y_k at the node of every point element
func (a Assembler) assemblePoints(p *AssembleParameters, points *mesh.ElementFile,
	S *sysmat.SystemMatrix, F []float64, D, Y *data.Data) (err error) {
	var (
		np   = a.workers()
		errs = make([]error, np)
	)
	for color := points.MinColor; color <= points.MaxColor; color++ {
		elems := points.ElementsOfColor(color)
		utils.ParallelFor(np, len(elems), func(bn, kMin, kMax int) {
			rowIndex := utils.NewIndex(1)
			for _, e := range elems[kMin:kMax] {
				p.elementDOFs(points, e, rowIndex)
				if !Y.IsEmpty() {
					utils.AddScatter(rowIndex, p.NumEqu, Y.GetSampleDataRO(e), F, p.RowDOFUpperBound)
				}
				if !D.IsEmpty() {
					if e2 := S.AddToSystemMatrix(rowIndex, p.NumEqu, rowIndex, p.NumComp,
						p.RowDOFUpperBound, D.GetSampleDataRO(e)); e2 != nil && errs[bn] == nil {
						errs[bn] = e2
					}
				}
			}
		})
		for _, e := range errs {
			if e != nil {
				return e
			}
		}
	}
	return
}
