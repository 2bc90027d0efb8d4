package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/notargets/gopde/utils"
)

// SU2 element type codes
const (
	su2Line     = 3
	su2Triangle = 5
	su2Tet      = 10
)

// ReadSU2File reads a linear triangle or tetrahedral mesh in SU2 native format
func ReadSU2File(filename string) (m *Mesh, markers map[string][]int, err error) {
	var file *os.File
	if file, err = os.Open(filename); err != nil {
		return
	}
	defer file.Close()
	return ReadSU2(file)
}

/*
ReadSU2 reads NDIME, NPOIN, NELEM and NMARK sections. Volume elements must be triangles
in 2D and tets in 3D. Markers are returned as the sorted node numbers of their boundary
elements, keyed by MARKER_TAG.
*/
func ReadSU2(r io.Reader) (m *Mesh, markers map[string][]int, err error) {
	var (
		scanner = bufio.NewScanner(r)
		ndime   int
		coords  []float64
		elems   []int
		lineNum int
	)
	markers = make(map[string][]int)
	next := func() (fields []string, ok bool) {
		for scanner.Scan() {
			lineNum++
			line := strings.TrimSpace(scanner.Text())
			if i := strings.Index(line, "%"); i >= 0 {
				line = strings.TrimSpace(line[:i])
			}
			if line != "" {
				return strings.Fields(strings.ReplaceAll(line, "=", "= ")), true
			}
		}
		return nil, false
	}
	count := func(fields []string) (n int, e error) {
		if len(fields) < 2 {
			return 0, fmt.Errorf("line %d: missing value after %s", lineNum, fields[0])
		}
		n, e = strconv.Atoi(fields[1])
		return
	}
	readElement := func(want int, fields []string) (nodes []int, e error) {
		var code int
		if code, e = strconv.Atoi(fields[0]); e != nil {
			return
		}
		nn := map[int]int{su2Line: 2, su2Triangle: 3, su2Tet: 4}[code]
		if code != want || len(fields) < nn+1 {
			return nil, fmt.Errorf("line %d: expected SU2 element type %d, have %v", lineNum, want, fields)
		}
		nodes = make([]int, nn)
		for i := range nodes {
			if nodes[i], e = strconv.Atoi(fields[1+i]); e != nil {
				return
			}
		}
		return
	}
	for {
		fields, ok := next()
		if !ok {
			break
		}
		var n int
		switch fields[0] {
		case "NDIME=":
			if ndime, err = count(fields); err != nil {
				return
			}
			if ndime != 2 && ndime != 3 {
				err = fmt.Errorf("only 2D and 3D meshes are supported, got NDIME=%d", ndime)
				return
			}
		case "NPOIN=":
			if n, err = count(fields); err != nil {
				return
			}
			if ndime == 0 {
				err = fmt.Errorf("line %d: NPOIN before NDIME", lineNum)
				return
			}
			coords = make([]float64, n*ndime)
			for i := 0; i < n; i++ {
				if fields, ok = next(); !ok || len(fields) < ndime {
					err = fmt.Errorf("line %d: expected %d points, file ended", lineNum, n)
					return
				}
				id := i
				if len(fields) > ndime {
					if id, err = strconv.Atoi(fields[ndime]); err != nil {
						return
					}
				}
				if id < 0 || id >= n {
					err = fmt.Errorf("line %d: point id %d outside [0,%d)", lineNum, id, n)
					return
				}
				for d := 0; d < ndime; d++ {
					if coords[id*ndime+d], err = strconv.ParseFloat(fields[d], 64); err != nil {
						return
					}
				}
			}
		case "NELEM=":
			if n, err = count(fields); err != nil {
				return
			}
			want := su2Triangle
			if ndime == 3 {
				want = su2Tet
			}
			for i := 0; i < n; i++ {
				var nodes []int
				if fields, ok = next(); !ok {
					err = fmt.Errorf("line %d: expected %d elements, file ended", lineNum, n)
					return
				}
				if nodes, err = readElement(want, fields); err != nil {
					return
				}
				elems = append(elems, nodes...)
			}
		case "NMARK=":
			var nmark int
			if nmark, err = count(fields); err != nil {
				return
			}
			want := su2Line
			if ndime == 3 {
				want = su2Triangle
			}
			for k := 0; k < nmark; k++ {
				var tag string
				if fields, ok = next(); !ok || fields[0] != "MARKER_TAG=" || len(fields) < 2 {
					err = fmt.Errorf("line %d: expected MARKER_TAG", lineNum)
					return
				}
				tag = fields[1]
				if fields, ok = next(); !ok || fields[0] != "MARKER_ELEMS=" {
					err = fmt.Errorf("line %d: expected MARKER_ELEMS for marker %s", lineNum, tag)
					return
				}
				if n, err = count(fields); err != nil {
					return
				}
				seen := make(map[int]bool)
				for i := 0; i < n; i++ {
					var nodes []int
					if fields, ok = next(); !ok {
						err = fmt.Errorf("line %d: marker %s ended early", lineNum, tag)
						return
					}
					if nodes, err = readElement(want, fields); err != nil {
						return
					}
					for _, node := range nodes {
						seen[node] = true
					}
				}
				for node := range seen {
					markers[tag] = append(markers[tag], node)
				}
				sort.Ints(markers[tag])
			}
		}
	}
	if err = scanner.Err(); err != nil {
		return
	}
	et := utils.Triangle
	if ndime == 3 {
		et = utils.Tet
	}
	var (
		nodes *NodeFile
		ef    *ElementFile
	)
	if nodes, err = NewNodeFile(ndime, coords); err != nil {
		return
	}
	if ef, err = NewElementFile(et, elems); err != nil {
		return
	}
	m, err = NewMesh(nodes, ef)
	return
}
