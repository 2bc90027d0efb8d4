package sysmat

/*
Connector lists, per neighbouring rank, which local blocks are sent and which remote
slots are filled by what that rank sends. The k-th entries of a sender's SendShared and
the receiver's RecvShared for the same pair refer to the same unknown.
*/
type Connector struct {
	SendNeighbors []int
	SendShared    [][]int
	RecvNeighbors []int
	RecvShared    [][]int
	NumRemote     int
}

// Coupler performs the halo exchange of a distributed vector
type Coupler struct {
	Connector *Connector
	BlockSize int
	Comm      Comm
}

func NewCoupler(conn *Connector, blockSize int, comm Comm) *Coupler {
	return &Coupler{Connector: conn, BlockSize: blockSize, Comm: comm}
}

// Collect returns the remote values x needs on this rank, NumRemote blocks
func (c *Coupler) Collect(x []float64) (remote []float64) {
	var (
		bs    = c.BlockSize
		conn  = c.Connector
		sends = make(map[int][]float64, len(conn.SendNeighbors))
	)
	remote = make([]float64, conn.NumRemote*bs)
	if c.Comm.Size() == 1 {
		return
	}
	for n, nbr := range conn.SendNeighbors {
		buf := make([]float64, 0, len(conn.SendShared[n])*bs)
		for _, i := range conn.SendShared[n] {
			buf = append(buf, x[i*bs:(i+1)*bs]...)
		}
		sends[nbr] = buf
	}
	recv := c.Comm.Exchange(sends)
	for n, nbr := range conn.RecvNeighbors {
		buf := recv[nbr]
		for k, slot := range conn.RecvShared[n] {
			copy(remote[slot*bs:(slot+1)*bs], buf[k*bs:(k+1)*bs])
		}
	}
	return
}
