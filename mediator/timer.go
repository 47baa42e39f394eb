package mediator

import (
	"sync"

	"github.com/google/btree"

	"github.com/anyswap/CrossChain-HTLC/types"
)

const timerTreeDegree = 16

type timerItem struct {
	fireAt  int64
	orderID string
}

// Less order by (fireAt, orderID)
func (t *timerItem) Less(than btree.Item) bool {
	other := than.(*timerItem)
	if t.fireAt != other.fireAt {
		return t.fireAt < other.fireAt
	}
	return t.orderID < other.orderID
}

// TimerQueue grace timers keyed by (fireAt, orderID), at most one per order
type TimerQueue struct {
	mu      sync.Mutex
	tree    *btree.BTree
	byOrder map[string]*timerItem
}

// NewTimerQueue new timer queue
func NewTimerQueue() *TimerQueue {
	return &TimerQueue{
		tree:    btree.New(timerTreeDegree),
		byOrder: make(map[string]*timerItem),
	}
}

// Schedule add a timer, ErrDuplicateTimer if the order already has one
func (q *TimerQueue) Schedule(orderID string, fireAt int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exist := q.byOrder[orderID]; exist {
		return types.ErrDuplicateTimer
	}
	item := &timerItem{fireAt: fireAt, orderID: orderID}
	q.tree.ReplaceOrInsert(item)
	q.byOrder[orderID] = item
	return nil
}

// Cancel remove the timer of order
func (q *TimerQueue) Cancel(orderID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, exist := q.byOrder[orderID]
	if !exist {
		return false
	}
	q.tree.Delete(item)
	delete(q.byOrder, orderID)
	return true
}

// Has is timer of order scheduled
func (q *TimerQueue) Has(orderID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, exist := q.byOrder[orderID]
	return exist
}

// FireAt scheduled fire time of order
func (q *TimerQueue) FireAt(orderID string) (int64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, exist := q.byOrder[orderID]
	if !exist {
		return 0, false
	}
	return item.fireAt, true
}

// PopDue remove and return orders whose timers fire at or before now
func (q *TimerQueue) PopDue(now int64) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var due []*timerItem
	q.tree.AscendLessThan(&timerItem{fireAt: now + 1}, func(i btree.Item) bool {
		due = append(due, i.(*timerItem))
		return true
	})
	orderIDs := make([]string, 0, len(due))
	for _, item := range due {
		q.tree.Delete(item)
		delete(q.byOrder, item.orderID)
		orderIDs = append(orderIDs, item.orderID)
	}
	return orderIDs
}

// Len count of scheduled timers
func (q *TimerQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tree.Len()
}
