package mesh

import (
	"fmt"

	"github.com/notargets/gopde/utils"
)

/*
NewRectangle is a structured nx x ny mesh of [0,lx]x[0,ly], every cell split into two
counterclockwise triangles along the diagonal from its lower left corner.
*/
func NewRectangle(nx, ny int, lx, ly float64) (m *Mesh, err error) {
	if nx < 1 || ny < 1 {
		err = fmt.Errorf("rectangle needs at least one cell per direction, have %dx%d", nx, ny)
		return
	}
	var (
		coords = make([]float64, 0, 2*(nx+1)*(ny+1))
		elems  = make([]int, 0, 6*nx*ny)
		node   = func(i, j int) int { return j*(nx+1) + i }
	)
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			coords = append(coords, lx*float64(i)/float64(nx), ly*float64(j)/float64(ny))
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			n0, n1, n2, n3 := node(i, j), node(i+1, j), node(i+1, j+1), node(i, j+1)
			elems = append(elems, n0, n1, n2, n0, n2, n3)
		}
	}
	return newStructured(2, coords, utils.Triangle, elems)
}

// NewBox is a structured mesh of [0,lx]x[0,ly]x[0,lz], every cell split into six tets
func NewBox(nx, ny, nz int, lx, ly, lz float64) (m *Mesh, err error) {
	if nx < 1 || ny < 1 || nz < 1 {
		err = fmt.Errorf("box needs at least one cell per direction, have %dx%dx%d", nx, ny, nz)
		return
	}
	var (
		coords = make([]float64, 0, 3*(nx+1)*(ny+1)*(nz+1))
		elems  = make([]int, 0, 24*nx*ny*nz)
		node   = func(i, j, k int) int { return (k*(ny+1)+j)*(nx+1) + i }
		// Kuhn subdivision along the diagonal from corner 0 to corner 7, corners by bits zyx
		paths = [6][3]int{{1, 2, 4}, {1, 4, 2}, {2, 1, 4}, {2, 4, 1}, {4, 1, 2}, {4, 2, 1}}
	)
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				coords = append(coords,
					lx*float64(i)/float64(nx), ly*float64(j)/float64(ny), lz*float64(k)/float64(nz))
			}
		}
	}
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				corner := func(c int) int { return node(i+c&1, j+(c>>1)&1, k+(c>>2)&1) }
				for _, p := range paths {
					elems = append(elems, corner(0), corner(p[0]), corner(p[0]+p[1]), corner(7))
				}
			}
		}
	}
	return newStructured(3, coords, utils.Tet, elems)
}

func newStructured(numDim int, coords []float64, et utils.ElementType, elems []int) (m *Mesh, err error) {
	var (
		nodes *NodeFile
		ef    *ElementFile
	)
	if nodes, err = NewNodeFile(numDim, coords); err != nil {
		return
	}
	if ef, err = NewElementFile(et, elems); err != nil {
		return
	}
	return NewMesh(nodes, ef)
}
