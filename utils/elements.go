package utils

// ElementType enumerates the linear simplex shapes, the value is one more than the dimension
type ElementType int

const (
	Unknown ElementType = iota
	Point
	Line
	Triangle
	Tet
)

var elementNames = [...]string{"Unknown", "Point", "Line", "Triangle", "Tet"}

func (e ElementType) String() string {
	if e >= 0 && int(e) < len(elementNames) {
		return elementNames[e]
	}
	return "Invalid"
}

// GetDimension is the local dimension of the simplex, -1 for Unknown
func (e ElementType) GetDimension() int {
	if e < Point || e > Tet {
		return -1
	}
	return int(e) - 1
}

// GetNumNodes is the vertex count, a simplex of dimension d has d+1 vertices
func (e ElementType) GetNumNodes() int {
	if e < Point || e > Tet {
		return 0
	}
	return int(e)
}

func (e ElementType) GetFaceType() ElementType {
	if e < Line || e > Tet {
		return Unknown
	}
	return e - 1
}

/*
GetElementFaces lists the faces of the element with vertices v. Faces point outward for
counterclockwise triangles and positively oriented tets.
*/
func GetElementFaces(elemType ElementType, v []int) [][]int {
	switch elemType {
	case Line:
		return [][]int{{v[0]}, {v[1]}}
	case Triangle:
		return [][]int{{v[0], v[1]}, {v[1], v[2]}, {v[2], v[0]}}
	case Tet:
		return [][]int{
			{v[0], v[2], v[1]},
			{v[0], v[1], v[3]},
			{v[0], v[3], v[2]},
			{v[1], v[2], v[3]},
		}
	}
	return [][]int{}
}
