package mesh

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gopde/types"
	"github.com/notargets/gopde/utils"
)

func sum(a []float64) (s float64) {
	for _, v := range a {
		s += v
	}
	return
}

func TestReferenceElements(t *testing.T) {
	volumes := map[utils.ElementType]float64{
		utils.Point: 1, utils.Line: 1, utils.Triangle: 0.5, utils.Tet: 1. / 6,
	}
	for et, vol := range volumes {
		for _, reduced := range []bool{false, true} {
			re := GetReferenceElement(et, reduced)
			assert.InDelta(t, vol, sum(re.QuadWeights), 1e-14, "%v", et)
			if reduced {
				assert.Equal(t, 1, re.NumQuad)
			}
			for q := 0; q < re.NumQuad; q++ {
				// Partition of unity and its derivative
				assert.InDelta(t, 1, sum(re.S[q*re.NumShapes:(q+1)*re.NumShapes]), 1e-14)
				for l := 0; l < re.NumLocalDim; l++ {
					var ds float64
					for s := 0; s < re.NumShapes; s++ {
						ds += re.DSDv[(q*re.NumShapes+s)*re.NumLocalDim+l]
					}
					assert.InDelta(t, 0, ds, 1e-14)
				}
			}
		}
	}
	assert.Panics(t, func() { GetReferenceElement(utils.Unknown, false) })
}

func TestMesh(t *testing.T) {
	{ // 2D rectangle
		m, err := NewRectangle(2, 2, 2, 1)
		require.NoError(t, err)
		assert.Equal(t, 9, m.Nodes.NumNodes)
		assert.Equal(t, 8, m.Elements.NumElements)
		assert.Equal(t, 8, m.FaceElements.NumElements)
		assert.Equal(t, 0, m.Points.NumElements)
		assert.NoError(t, m.Elements.ValidateColoring())
		assert.NoError(t, m.FaceElements.ValidateColoring())
		var colored int
		for c := m.Elements.MinColor; c <= m.Elements.MaxColor; c++ {
			colored += len(m.Elements.ElementsOfColor(c))
		}
		assert.Equal(t, m.Elements.NumElements, colored)

		jac, err := ComputeJacobians(m.Nodes, m.Elements, false)
		require.NoError(t, err)
		assert.InDelta(t, 2., sum(jac.Vol), 1e-13)
		// Gradients of the coordinate functions are the unit vectors
		for e := 0; e < m.Elements.NumElements; e++ {
			dsdx := jac.ElementDSDX(e)
			for q := 0; q < jac.Ref.NumQuad; q++ {
				for d := 0; d < 2; d++ {
					for dd := 0; dd < 2; dd++ {
						var g float64
						for s, n := range m.Elements.Element(e) {
							g += m.Nodes.Coordinate(n)[dd] * dsdx[(q*3+s)*2+d]
						}
						expected := 0.
						if d == dd {
							expected = 1
						}
						assert.InDelta(t, expected, g, 1e-13)
					}
				}
			}
		}
		fjac, err := ComputeJacobians(m.Nodes, m.FaceElements, true)
		require.NoError(t, err)
		assert.InDelta(t, 6., sum(fjac.Vol), 1e-13)

		fs, err := m.FunctionSpace(types.FS_Elements)
		require.NoError(t, err)
		assert.Equal(t, [2]int{8, 3}, [2]int{fs.NumSamples, fs.NumDPPS})
		fs, err = m.FunctionSpace(types.FS_ReducedFaceElements)
		require.NoError(t, err)
		assert.Equal(t, [2]int{8, 1}, [2]int{fs.NumSamples, fs.NumDPPS})
		fs, err = m.FunctionSpace(types.FS_Nodes)
		require.NoError(t, err)
		assert.Equal(t, [2]int{9, 1}, [2]int{fs.NumSamples, fs.NumDPPS})
		_, err = m.FunctionSpace(types.FS_Unknown)
		assert.True(t, errors.Is(err, types.ErrFunctionSpaceMismatch))

		x, err := m.QuadCoordinates(types.FS_ReducedElements)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{2. / 3, 1. / 6}, x[:2], 1e-14)

		p := m.GetPattern()
		assert.Equal(t, []int{0, 1, 3, 4}, p.Row(0))
		assert.Equal(t, []int{0, 1, 3, 4, 5, 7, 8}, p.Row(4))
		assert.True(t, p.HasFullDiagonal())

		require.NoError(t, m.AddPoints([]int{4}))
		assert.Equal(t, 1, m.Points.NumElements)
		assert.Error(t, m.AddPoints([]int{9}))
	}
	{ // 3D box
		m, err := NewBox(1, 1, 1, 1, 2, 3)
		require.NoError(t, err)
		assert.Equal(t, 8, m.Nodes.NumNodes)
		assert.Equal(t, 6, m.Elements.NumElements)
		assert.Equal(t, 12, m.FaceElements.NumElements)
		assert.Equal(t, 6, m.Elements.MaxColor-m.Elements.MinColor+1)

		jac, err := ComputeJacobians(m.Nodes, m.Elements, false)
		require.NoError(t, err)
		assert.InDelta(t, 6., sum(jac.Vol), 1e-12)
		fjac, err := ComputeJacobians(m.Nodes, m.FaceElements, false)
		require.NoError(t, err)
		assert.InDelta(t, 2*(2.+6.+3.), sum(fjac.Vol), 1e-12)
	}
	{ // Degenerate element
		nodes, err := NewNodeFile(2, []float64{0, 0, 1, 1, 2, 2})
		require.NoError(t, err)
		ef, err := NewElementFile(utils.Triangle, []int{0, 1, 2})
		require.NoError(t, err)
		_, err = ComputeJacobians(nodes, ef, false)
		assert.True(t, errors.Is(err, types.ErrZeroDivision))

		_, err = NewElementFile(utils.Triangle, []int{0, 1})
		assert.Error(t, err)
		_, err = NewMesh(nodes, ef)
		require.NoError(t, err)
		line, _ := NewElementFile(utils.Line, []int{0, 1})
		_, err = NewMesh(nodes, line)
		assert.Error(t, err)
	}
	{ // Node tags become DOF masks
		m, err := NewRectangle(2, 1, 1, 1)
		require.NoError(t, err)
		n := m.Nodes.TagNodes(1, func(x []float64) bool { return math.Abs(x[0]) < utils.NODETOL })
		assert.Equal(t, 2, n)
		assert.Equal(t, []float64{1, 1, 0, 0, 0, 0, 1, 1, 0, 0, 0, 0}, m.Nodes.DOFMask(1, 2))
	}
}

func TestPartitionDOFs(t *testing.T) {
	m, err := NewBox(2, 2, 2, 1, 1, 1)
	require.NoError(t, err)
	part, err := m.PartitionDOFs(2)
	require.NoError(t, err)
	require.Len(t, part, m.Nodes.NumDOF)
	counts := make([]int, 2)
	for _, p := range part {
		require.True(t, p == 0 || p == 1)
		counts[p]++
	}
	assert.Equal(t, m.Nodes.NumDOF, counts[0]+counts[1])

	part, err = m.PartitionDOFs(1)
	require.NoError(t, err)
	assert.Equal(t, make([]int, m.Nodes.NumDOF), part)
	_, err = m.PartitionDOFs(0)
	assert.True(t, errors.Is(err, types.ErrValue))
}
