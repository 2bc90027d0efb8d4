package mesh

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unit square split along its diagonal, point ids given out of order
const squareSU2 = `
% two triangles
NDIME= 2
NELEM= 2
5 0 1 2 0
5 0 2 3 1
NPOIN= 4
0.0 0.0 0
1.0 1.0 2
1.0 0.0 1
0.0 1.0 3
NMARK= 2
MARKER_TAG= left
MARKER_ELEMS= 1
3 3 0
MARKER_TAG= bottom_right
MARKER_ELEMS= 2
3 0 1
3 1 2
`

func TestReadSU2(t *testing.T) {
	{ // 2D triangles with line markers
		m, markers, err := ReadSU2(strings.NewReader(squareSU2))
		require.NoError(t, err)
		assert.Equal(t, 4, m.Nodes.NumNodes)
		assert.Equal(t, 2, m.Elements.NumElements)
		assert.Equal(t, 4, m.FaceElements.NumElements)
		assert.Equal(t, []float64{1, 1}, m.Nodes.Coordinate(2))
		assert.Equal(t, []int{0, 3}, markers["left"])
		assert.Equal(t, []int{0, 1, 2}, markers["bottom_right"])
		jac, err := ComputeJacobians(m.Nodes, m.Elements, false)
		require.NoError(t, err)
		assert.InDelta(t, 1., sum(jac.Vol), 1e-14)
	}
	{ // Single tet from a file, point ids implied by order
		file := filepath.Join(t.TempDir(), "tet.su2")
		require.NoError(t, os.WriteFile(file, []byte(`NDIME=3
NPOIN=4
0 0 0
1 0 0
0 1 0
0 0 1
NELEM=1
10 0 1 2 3 0
NMARK=1
MARKER_TAG=base
MARKER_ELEMS=1
5 0 1 2
`), 0644))
		m, markers, err := ReadSU2File(file)
		require.NoError(t, err)
		assert.Equal(t, 4, m.FaceElements.NumElements)
		assert.Equal(t, []int{0, 1, 2}, markers["base"])
	}
	{ // Malformed files
		for _, content := range []string{
			"NDIME= 1\n",
			"NPOIN= 1\n0 0\n",
			"NDIME= 2\nNPOIN= 2\n0 0\n",
			"NDIME= 2\nNELEM= 1\n9 0 1 2 3\n",
			"NDIME= 2\nNPOIN= 3\n0 0\n1 0\n0 1\nNELEM= 1\n5 0 1 2\nNMARK= 1\nMARKER_ELEMS= 1\n",
		} {
			_, _, err := ReadSU2(strings.NewReader(content))
			assert.Error(t, err, content)
		}
	}
}
