package types

//go:generate stringer -type=FunctionSpaceType

// FunctionSpaceType is the sample layout a coefficient lives on
type FunctionSpaceType uint8

const (
	FS_Unknown FunctionSpaceType = iota
	FS_Nodes
	FS_DegreesOfFreedom
	FS_Elements
	FS_ReducedElements
	FS_FaceElements
	FS_ReducedFaceElements
	FS_Points
)

var FunctionSpaceNameMap = map[string]FunctionSpaceType{
	"nodes":               FS_Nodes,
	"dof":                 FS_DegreesOfFreedom,
	"elements":            FS_Elements,
	"reducedelements":     FS_ReducedElements,
	"faceelements":        FS_FaceElements,
	"reducedfaceelements": FS_ReducedFaceElements,
	"points":              FS_Points,
}

func (fs FunctionSpaceType) String() string {
	switch fs {
	case FS_Nodes:
		return "Nodes"
	case FS_DegreesOfFreedom:
		return "DegreesOfFreedom"
	case FS_Elements:
		return "Elements"
	case FS_ReducedElements:
		return "ReducedElements"
	case FS_FaceElements:
		return "FaceElements"
	case FS_ReducedFaceElements:
		return "ReducedFaceElements"
	case FS_Points:
		return "Points"
	}
	return "Unknown"
}

// IsReduced is true for the spaces integrated with the low order quadrature
func (fs FunctionSpaceType) IsReduced() bool {
	return fs == FS_ReducedElements || fs == FS_ReducedFaceElements
}

// IsFace is true for the spaces living on the boundary element file
func (fs FunctionSpaceType) IsFace() bool {
	return fs == FS_FaceElements || fs == FS_ReducedFaceElements
}
