package types

import (
	"fmt"
	"math"
)

/*
PairKey stores an unordered pair of non-negative indices (two DOFs or two nodes) packed
into one word, smallest index in the low 32 bits, so {4,0} and {0,4} hash identically
*/
type PairKey uint64

func NewPairKey(i, j int) (packed PairKey) {
	var (
		limit = math.MaxUint32
	)
	if i < 0 || i > limit || j < 0 || j > limit {
		panic(fmt.Errorf("unable to pack two ints into a uint64, have %d and %d as inputs", i, j))
	}
	if i > j {
		i, j = j, i
	}
	packed = PairKey(uint64(i) + uint64(j)<<32)
	return
}

func (pk PairKey) GetIndices() (i, j int) {
	j = int(pk >> 32)
	i = int(pk & math.MaxUint32)
	return
}
