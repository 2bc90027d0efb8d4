package mesh

import (
	"fmt"

	"github.com/notargets/gopde/utils"
)

/*
ElementFile is a set of elements of one type. Nodes is row-major (element, NN). Color
is a coloring in which elements sharing a node never have the same color.
*/
type ElementFile struct {
	Type        utils.ElementType
	NumElements int
	NumNodes    int
	Nodes       []int
	Tag         []int
	Owner       []int
	Color       []int
	MinColor    int
	MaxColor    int
	byColor     []utils.Index
}

func NewElementFile(et utils.ElementType, nodes []int) (ef *ElementFile, err error) {
	var (
		nn = et.GetNumNodes()
	)
	if nn == 0 || len(nodes)%nn != 0 {
		err = fmt.Errorf("%d node indices do not describe %v elements", len(nodes), et)
		return
	}
	ne := len(nodes) / nn
	ef = &ElementFile{
		Type:        et,
		NumElements: ne,
		NumNodes:    nn,
		Nodes:       nodes,
		Tag:         make([]int, ne),
		Owner:       make([]int, ne),
		Color:       make([]int, ne),
	}
	ef.CreateColoring()
	return
}

func (ef *ElementFile) Element(e int) []int {
	return ef.Nodes[e*ef.NumNodes : (e+1)*ef.NumNodes]
}

/*
CreateColoring assigns colors greedily: each pass takes, in element order, every
uncolored element that shares no node with an element already given the pass color.
*/
func (ef *ElementFile) CreateColoring() {
	var (
		maxNode = -1
	)
	for _, n := range ef.Nodes {
		if n > maxNode {
			maxNode = n
		}
	}
	var (
		used      = make([]bool, maxNode+1)
		remaining = ef.NumElements
		color     int
	)
	for e := range ef.Color {
		ef.Color[e] = -1
	}
	for remaining > 0 {
		for i := range used {
			used[i] = false
		}
		for e := 0; e < ef.NumElements; e++ {
			if ef.Color[e] >= 0 {
				continue
			}
			var free = true
			for _, n := range ef.Element(e) {
				if used[n] {
					free = false
					break
				}
			}
			if free {
				for _, n := range ef.Element(e) {
					used[n] = true
				}
				ef.Color[e] = color
				remaining--
			}
		}
		color++
	}
	ef.MinColor, ef.MaxColor = 0, color-1
	ef.indexColors()
}

// SetColoring installs an externally computed coloring
func (ef *ElementFile) SetColoring(color []int) (err error) {
	if len(color) != ef.NumElements {
		return fmt.Errorf("coloring of %d elements given for %d elements", len(color), ef.NumElements)
	}
	ef.Color = color
	ef.MinColor, ef.MaxColor = 0, -1
	if len(color) > 0 {
		ef.MinColor, ef.MaxColor = color[0], color[0]
	}
	for _, c := range color {
		if c < ef.MinColor {
			ef.MinColor = c
		}
		if c > ef.MaxColor {
			ef.MaxColor = c
		}
	}
	ef.indexColors()
	return
}

func (ef *ElementFile) indexColors() {
	ef.byColor = make([]utils.Index, ef.MaxColor-ef.MinColor+1)
	for e, col := range ef.Color {
		ef.byColor[col-ef.MinColor] = append(ef.byColor[col-ef.MinColor], e)
	}
}

// ElementsOfColor lists the elements of color c in ascending order
func (ef *ElementFile) ElementsOfColor(c int) utils.Index {
	return ef.byColor[c-ef.MinColor]
}

// ValidateColoring reports the first pair of same colored elements sharing a node
func (ef *ElementFile) ValidateColoring() (err error) {
	for c := ef.MinColor; c <= ef.MaxColor; c++ {
		owner := make(map[int]int)
		for _, e := range ef.ElementsOfColor(c) {
			for _, n := range ef.Element(e) {
				if other, ok := owner[n]; ok {
					return fmt.Errorf("elements %d and %d share node %d and color %d", other, e, n, c)
				}
				owner[n] = e
			}
		}
	}
	return
}
