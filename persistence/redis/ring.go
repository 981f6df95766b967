package redis

import (
	"hash"
	"sync"

	"github.com/buraksezer/consistent"
	"github.com/spaolacci/murmur3"
)

const DEFAULT_PARTITION_COUNT = 16

type hasher struct {
	mu sync.Mutex
	hf hash.Hash64
}

func newHasher() *hasher {
	return &hasher{
		hf: murmur3.New64(),
	}
}

func (h *hasher) Sum64(data []byte) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hf.Write(data)
	out := h.hf.Sum64()
	h.hf.Reset()
	return out
}

// ring maps entity ids onto a fixed number of storage partitions.
type ring struct {
	partitionCount int
	hring          *consistent.Consistent
}

func newRing(partitionCount int) *ring {
	if partitionCount <= 0 {
		partitionCount = DEFAULT_PARTITION_COUNT
	}
	cfg := consistent.Config{
		PartitionCount:    partitionCount,
		ReplicationFactor: 20,
		Load:              1.25,
		Hasher:            newHasher(),
	}
	return &ring{
		partitionCount: partitionCount,
		hring:          consistent.New(nil, cfg),
	}
}

func (r *ring) GetPartition(key string) int {
	return r.hring.FindPartitionID([]byte(key))
}
