package data

import (
	"fmt"

	"github.com/notargets/gopde/types"
	"github.com/notargets/gopde/utils"
)

// FunctionSpace locates the samples of a Data object, one sample per element of the
// owning element file, NumDPPS data points per sample
type FunctionSpace struct {
	Type       types.FunctionSpaceType
	NumSamples int
	NumDPPS    int
}

func (fs FunctionSpace) GetTypeCode() types.FunctionSpaceType { return fs.Type }

type storage uint8

const (
	uniform   storage = iota // one data point shared by every sample
	perSample                // one data point per sample
	expanded                 // NumDPPS data points per sample
)

/*
Data is a coefficient on a function space. Data points are row-major with the shape
given at construction, expanded samples are NumDPPS consecutive data points. A nil
*Data is empty.
*/
type Data struct {
	fs     FunctionSpace
	shape  []int
	dpSize int
	store  storage
	values []float64
}

func newData(fs FunctionSpace, shape []int, store storage, values []float64) (d *Data, err error) {
	var (
		dpSize = 1
		n      int
	)
	for _, dim := range shape {
		if dim < 1 {
			err = types.NewError(types.ShapeMismatchError, "illegal data point shape %v", shape)
			return
		}
		dpSize *= dim
	}
	switch store {
	case uniform:
		n = dpSize
	case perSample:
		n = dpSize * fs.NumSamples
	case expanded:
		n = dpSize * fs.NumSamples * fs.NumDPPS
	}
	if len(values) != n {
		err = types.NewError(types.ShapeMismatchError,
			"data of shape %v on %v needs %d values, have %d", shape, fs.Type, n, len(values))
		return
	}
	d = &Data{
		fs:     fs,
		shape:  append([]int{}, shape...),
		dpSize: dpSize,
		store:  store,
		values: values,
	}
	return
}

// NewConstant places the same data point on every sample
func NewConstant(fs FunctionSpace, shape []int, value []float64) (*Data, error) {
	return newData(fs, shape, uniform, append([]float64{}, value...))
}

// NewScalar is a rank 0 constant
func NewScalar(fs FunctionSpace, value float64) (*Data, error) {
	return newData(fs, nil, uniform, []float64{value})
}

// NewPerSample holds one data point per sample, values are sample-major
func NewPerSample(fs FunctionSpace, shape []int, values []float64) (*Data, error) {
	return newData(fs, shape, perSample, values)
}

// NewExpanded holds one data point per quadrature point of every sample
func NewExpanded(fs FunctionSpace, shape []int, values []float64) (*Data, error) {
	return newData(fs, shape, expanded, values)
}

// NewExpandedFromFunc evaluates f at every data point, f writes the point into dp
func NewExpandedFromFunc(fs FunctionSpace, shape []int,
	f func(sample, point int, dp []float64)) (d *Data, err error) {
	var (
		dpSize = 1
	)
	for _, dim := range shape {
		dpSize *= dim
	}
	values := make([]float64, dpSize*fs.NumSamples*fs.NumDPPS)
	for e := 0; e < fs.NumSamples; e++ {
		for q := 0; q < fs.NumDPPS; q++ {
			off := (e*fs.NumDPPS + q) * dpSize
			f(e, q, values[off:off+dpSize])
		}
	}
	return NewExpanded(fs, shape, values)
}

func (d *Data) IsEmpty() bool { return d == nil }

func (d *Data) ActsExpanded() bool { return d != nil && d.store == expanded }

func (d *Data) GetFunctionSpace() FunctionSpace { return d.fs }

func (d *Data) GetShape() []int { return d.shape }

func (d *Data) GetRank() int { return len(d.shape) }

func (d *Data) GetDataPointSize() int { return d.dpSize }

// GetSampleDataRO returns the data of sample e, NumDPPS points if expanded, else one point
func (d *Data) GetSampleDataRO(e int) []float64 {
	switch d.store {
	case uniform:
		return d.values
	case perSample:
		return d.values[e*d.dpSize : (e+1)*d.dpSize]
	default:
		n := d.dpSize * d.fs.NumDPPS
		return d.values[e*n : (e+1)*n]
	}
}

// GetDataPointRO returns data point q of sample e for every storage variant
func (d *Data) GetDataPointRO(e, q int) []float64 {
	sample := d.GetSampleDataRO(e)
	if d.store != expanded {
		return sample
	}
	return sample[q*d.dpSize : (q+1)*d.dpSize]
}

func (d *Data) NumSamplesEqual(numDPPS, numSamples int) bool {
	return d.fs.NumDPPS == numDPPS && d.fs.NumSamples == numSamples
}

func (d *Data) IsDataPointShapeEqual(rank int, dims []int) bool {
	if len(d.shape) != rank || len(dims) < rank {
		return false
	}
	for i := 0; i < rank; i++ {
		if d.shape[i] != dims[i] {
			return false
		}
	}
	return true
}

// Expand returns an expanded copy of d
func (d *Data) Expand() (r *Data) {
	var (
		nq     = d.fs.NumDPPS
		values = make([]float64, d.dpSize*d.fs.NumSamples*nq)
	)
	for e := 0; e < d.fs.NumSamples; e++ {
		for q := 0; q < nq; q++ {
			copy(values[(e*nq+q)*d.dpSize:], d.GetDataPointRO(e, q))
		}
	}
	r, _ = NewExpanded(d.fs, d.shape, values)
	return
}

func (d *Data) String() string {
	if d == nil {
		return "Data(empty)"
	}
	kind := [...]string{"constant", "per-sample", "expanded"}[d.store]
	return fmt.Sprintf("Data(%s, shape %v, %s, %d samples x %d points)",
		kind, d.shape, d.fs.Type, d.fs.NumSamples, d.fs.NumDPPS)
}

func sameFS(a, b *Data) error {
	if a.fs != b.fs {
		return types.NewError(types.FunctionSpaceMismatchError,
			"cannot combine data on %v with data on %v", a.fs.Type, b.fs.Type)
	}
	return nil
}

/*
Binary combines two Data objects element-wise. Shapes must match unless one side is
rank 0, which is broadcast. The result is expanded if either side is.
*/
func Binary(op utils.TensorOp, a, b *Data) (r *Data, err error) {
	if err = sameFS(a, b); err != nil {
		return
	}
	var (
		aScalar = a.GetRank() == 0 && b.GetRank() != 0
		bScalar = b.GetRank() == 0 && a.GetRank() != 0
		shape   = a.shape
	)
	if aScalar {
		shape = b.shape
	}
	if !aScalar && !bScalar && !a.IsDataPointShapeEqual(b.GetRank(), b.shape) {
		err = types.NewError(types.ShapeMismatchError, "shapes %v and %v do not match", a.shape, b.shape)
		return
	}
	dpSize := a.dpSize
	if aScalar {
		dpSize = b.dpSize
	}
	switch {
	case a.store == uniform && b.store == uniform:
		out := make([]float64, dpSize)
		utils.BinaryOp(op, 1, dpSize, a.values, aScalar, b.values, bScalar, out)
		return NewConstant(a.fs, shape, out)
	case !a.ActsExpanded() && !b.ActsExpanded():
		var (
			n   = a.fs.NumSamples
			out = make([]float64, dpSize*n)
		)
		for e := 0; e < n; e++ {
			utils.BinaryOp(op, 1, dpSize, a.GetSampleDataRO(e), aScalar,
				b.GetSampleDataRO(e), bScalar, out[e*dpSize:])
		}
		return NewPerSample(a.fs, shape, out)
	default:
		var (
			n, nq = a.fs.NumSamples, a.fs.NumDPPS
			out   = make([]float64, dpSize*n*nq)
		)
		for e := 0; e < n; e++ {
			for q := 0; q < nq; q++ {
				utils.BinaryOp(op, 1, dpSize, a.GetDataPointRO(e, q), aScalar,
					b.GetDataPointRO(e, q), bScalar, out[(e*nq+q)*dpSize:])
			}
		}
		return NewExpanded(a.fs, shape, out)
	}
}

// Eigenvalues of a rank 2 symmetric square Data of dimension 1..3, ascending per point
func (d *Data) Eigenvalues() (r *Data, err error) {
	if d.GetRank() != 2 || d.shape[0] != d.shape[1] || d.shape[0] > 3 {
		err = types.NewError(types.ShapeMismatchError,
			"eigenvalues need a square rank 2 data point of dimension at most 3, have %v", d.shape)
		return
	}
	var (
		dim = d.shape[0]
		e   = d.Expand()
	)
	values := make([]float64, dim*d.fs.NumSamples*d.fs.NumDPPS)
	for p := 0; p < d.fs.NumSamples*d.fs.NumDPPS; p++ {
		var vals []float64
		if vals, _, err = utils.EigenSym(dim, e.values[p*d.dpSize:(p+1)*d.dpSize], false); err != nil {
			return
		}
		copy(values[p*dim:], vals)
	}
	return NewExpanded(d.fs, []int{dim}, values)
}

// Trace of a rank 2 square Data, per data point
func (d *Data) Trace() (r *Data, err error) {
	if d.GetRank() != 2 || d.shape[0] != d.shape[1] {
		err = types.NewError(types.ShapeMismatchError, "trace needs a square rank 2 data point, have %v", d.shape)
		return
	}
	var (
		e      = d.Expand()
		n      = d.fs.NumSamples * d.fs.NumDPPS
		values = make([]float64, n)
	)
	utils.Trace(d.shape[0], n, e.values, values)
	return NewExpanded(d.fs, nil, values)
}

// MinMax returns the smallest and largest entries over all data points
func (d *Data) MinMax() (min, max float64) {
	if len(d.values) == 0 {
		return
	}
	min, max = d.values[0], d.values[0]
	for _, v := range d.values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return
}
