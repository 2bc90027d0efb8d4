package mesh

import (
	"fmt"
	"sort"

	"github.com/notargets/gopde/data"
	"github.com/notargets/gopde/types"
	"github.com/notargets/gopde/utils"
)

// Mesh owns the nodes and the volume, face and point element files built on them
type Mesh struct {
	Nodes        *NodeFile
	Elements     *ElementFile
	FaceElements *ElementFile
	Points       *ElementFile
}

// NewMesh builds the face elements from the faces that belong to a single volume element
func NewMesh(nodes *NodeFile, elements *ElementFile) (m *Mesh, err error) {
	if elements.Type.GetDimension() != nodes.NumDim {
		err = fmt.Errorf("%v elements do not fill a %d dimensional domain", elements.Type, nodes.NumDim)
		return
	}
	for _, n := range elements.Nodes {
		if n < 0 || n >= nodes.NumNodes {
			err = fmt.Errorf("element references node %d, have %d nodes", n, nodes.NumNodes)
			return
		}
	}
	m = &Mesh{
		Nodes:    nodes,
		Elements: elements,
	}
	if m.FaceElements, err = boundaryFaces(elements); err != nil {
		return
	}
	m.Points, err = NewElementFile(utils.Point, []int{})
	return
}

func faceKey(face []int) (key [3]int) {
	key = [3]int{-1, -1, -1}
	copy(key[:], face)
	sort.Ints(key[:len(face)])
	return
}

func boundaryFaces(ef *ElementFile) (faces *ElementFile, err error) {
	var (
		ft    = ef.Type.GetFaceType()
		count = make(map[[3]int]int)
		order [][]int
	)
	for e := 0; e < ef.NumElements; e++ {
		for _, f := range utils.GetElementFaces(ef.Type, ef.Element(e)) {
			key := faceKey(f)
			if count[key] == 0 {
				order = append(order, f)
			}
			count[key]++
		}
	}
	nodes := make([]int, 0, len(order)*ft.GetNumNodes())
	for _, f := range order {
		if count[faceKey(f)] == 1 {
			nodes = append(nodes, f...)
		}
	}
	return NewElementFile(ft, nodes)
}

// AddPoints replaces the point elements by one Dirac point on each of the given nodes
func (m *Mesh) AddPoints(nodeIDs []int) (err error) {
	for _, n := range nodeIDs {
		if n < 0 || n >= m.Nodes.NumNodes {
			return fmt.Errorf("point on node %d, have %d nodes", n, m.Nodes.NumNodes)
		}
	}
	m.Points, err = NewElementFile(utils.Point, append([]int{}, nodeIDs...))
	return
}

// ElementsOf returns the element file a function space is defined on
func (m *Mesh) ElementsOf(fsType types.FunctionSpaceType) (ef *ElementFile, reduced bool, err error) {
	reduced = fsType.IsReduced()
	switch fsType {
	case types.FS_Elements, types.FS_ReducedElements:
		ef = m.Elements
	case types.FS_FaceElements, types.FS_ReducedFaceElements:
		ef = m.FaceElements
	case types.FS_Points:
		ef = m.Points
	default:
		err = types.NewError(types.FunctionSpaceMismatchError, "function space %v has no element file", fsType)
	}
	return
}

// FunctionSpace returns the sample layout of fsType on this mesh
func (m *Mesh) FunctionSpace(fsType types.FunctionSpaceType) (fs data.FunctionSpace, err error) {
	fs.Type = fsType
	switch fsType {
	case types.FS_Nodes:
		fs.NumSamples, fs.NumDPPS = m.Nodes.NumNodes, 1
	case types.FS_DegreesOfFreedom:
		fs.NumSamples, fs.NumDPPS = m.Nodes.NumDOF, 1
	default:
		var (
			ef      *ElementFile
			reduced bool
		)
		if ef, reduced, err = m.ElementsOf(fsType); err != nil {
			return
		}
		fs.NumSamples = ef.NumElements
		fs.NumDPPS = GetReferenceElement(ef.Type, reduced).NumQuad
	}
	return
}

// QuadCoordinates returns the physical coordinates of the quadrature points, (element, quad, dim)
func (m *Mesh) QuadCoordinates(fsType types.FunctionSpaceType) (x []float64, err error) {
	var (
		ef      *ElementFile
		reduced bool
	)
	if ef, reduced, err = m.ElementsOf(fsType); err != nil {
		return
	}
	var (
		ref    = GetReferenceElement(ef.Type, reduced)
		numDim = m.Nodes.NumDim
	)
	x = make([]float64, ef.NumElements*ref.NumQuad*numDim)
	for e := 0; e < ef.NumElements; e++ {
		elNodes := ef.Element(e)
		for q := 0; q < ref.NumQuad; q++ {
			xq := x[(e*ref.NumQuad+q)*numDim : (e*ref.NumQuad+q+1)*numDim]
			for s := 0; s < ref.NumShapes; s++ {
				xs := m.Nodes.Coordinate(elNodes[s])
				for d := range xq {
					xq[d] += ref.S[q*ref.NumShapes+s] * xs[d]
				}
			}
		}
	}
	return
}
