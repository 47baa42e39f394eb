package mediator

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// orderLocks serialize operations on the same order
type orderLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *orderLocks) lock(orderID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(orderID))
	mu := &l.stripes[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}
