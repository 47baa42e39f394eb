package leveldb

import (
	"encoding/json"
	"fmt"
	"sync"

	goleveldb "github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"

	"github.com/anyswap/CrossChain-HTLC/log"
	"github.com/anyswap/CrossChain-HTLC/registry"
	"github.com/anyswap/CrossChain-HTLC/types"
)

// key layout
//
//	r/<orderId>                   -> swap record
//	s/<status>/<orderId>          -> status index
//	u/<userDeadline>/<orderId>    -> active swaps only
//	c/<cancelAfter>/<orderId>     -> active swaps only
//	g/<secretSharedAt>/<orderId>  -> secret_shared swaps only
//	k/<chain>                     -> chain cursor
const (
	prefixRecord       = "r/"
	prefixStatus       = "s/"
	prefixUserDeadline = "u/"
	prefixCancelAfter  = "c/"
	prefixSharedAt     = "g/"
	prefixCursor       = "k/"
)

var _ registry.Registry = (*Registry)(nil)

// Registry swap registry on leveldb
type Registry struct {
	db *Database
	// serialize read-modify-write of records
	mu sync.Mutex
}

// NewRegistry new leveldb registry
func NewRegistry(db *Database) *Registry {
	return &Registry{db: db}
}

func timeKey(prefix string, t int64, orderID string) string {
	return fmt.Sprintf("%s%020d/%s", prefix, t, orderID)
}

func timeBound(prefix string, t int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefix, t))
}

func indexKeys(rec *types.SwapRecord) []string {
	keys := []string{prefixStatus + string(rec.Status) + "/" + rec.OrderID}
	if !rec.Status.IsTerminal() {
		keys = append(keys,
			timeKey(prefixUserDeadline, rec.UserDeadline, rec.OrderID),
			timeKey(prefixCancelAfter, rec.CancelAfter, rec.OrderID),
		)
	}
	if rec.Status == types.StatusSecretShared {
		keys = append(keys, timeKey(prefixSharedAt, rec.SecretSharedAt, rec.OrderID))
	}
	return keys
}

// CreateSwap add new swap record
func (r *Registry) CreateSwap(rec *types.SwapRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := []byte(prefixRecord + rec.OrderID)
	exist, err := r.db.Has(key)
	if err != nil {
		return fmt.Errorf("leveldb has swap: %w", err)
	}
	if exist {
		return registry.ErrItemIsDup
	}
	return r.writeRecord(nil, rec)
}

func (r *Registry) writeRecord(old, rec *types.SwapRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	batch := new(goleveldb.Batch)
	if old != nil {
		for _, key := range indexKeys(old) {
			batch.Delete([]byte(key))
		}
	}
	batch.Put([]byte(prefixRecord+rec.OrderID), data)
	for _, key := range indexKeys(rec) {
		batch.Put([]byte(key), nil)
	}
	if err = r.db.Write(batch); err != nil {
		return fmt.Errorf("leveldb write swap: %w", err)
	}
	return nil
}

// GetSwap get swap record
func (r *Registry) GetSwap(orderID string) (*types.SwapRecord, error) {
	data, err := r.db.Get([]byte(prefixRecord + orderID))
	if err != nil {
		if IsNotFoundErr(err) {
			return nil, registry.ErrSwapNotFound
		}
		return nil, fmt.Errorf("leveldb get swap: %w", err)
	}
	rec := &types.SwapRecord{}
	if err = json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("leveldb decode swap %v: %w", orderID, err)
	}
	return rec, nil
}

// UpdateSwap status guarded update
func (r *Registry) UpdateSwap(orderID string, from types.SwapStatus, update *registry.SwapUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, err := r.GetSwap(orderID)
	if err != nil {
		return err
	}
	if old.Status != from {
		return fmt.Errorf("%w: expect %v, current %v", registry.ErrStatusMismatch, from, old.Status)
	}
	rec := old.Clone()
	update.Apply(rec)
	return r.writeRecord(old, rec)
}

// SetEscrow set escrow address of leg
func (r *Registry) SetEscrow(orderID string, leg types.SwapLeg, escrow string, timestamp int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, err := r.GetSwap(orderID)
	if err != nil {
		return err
	}
	rec := old.Clone()
	if leg == types.LegSource {
		rec.SrcEscrow = escrow
	} else {
		rec.DstEscrow = escrow
	}
	rec.UpdatedAt = timestamp
	return r.writeRecord(old, rec)
}

// time index keys are <prefix><20 digits>/<orderId>
const timeKeyLen = 20 + 1

func orderIDOfKey(key []byte, skip int) (string, bool) {
	if len(key) <= skip {
		return "", false
	}
	return string(key[skip:]), true
}

// findByIndex collect records of index keys, skip is the length of the key part before the order id
func (r *Registry) findByIndex(iter iterator.Iterator, skip int) ([]*types.SwapRecord, error) {
	var orderIDs []string
	for iter.Next() {
		orderID, ok := orderIDOfKey(iter.Key(), skip)
		if !ok {
			continue
		}
		orderIDs = append(orderIDs, orderID)
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("leveldb iterate: %w", err)
	}
	result := make([]*types.SwapRecord, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		rec, err := r.GetSwap(orderID)
		if err != nil {
			if registry.IsNotFound(err) {
				log.Warn("[leveldb] index refers to missing swap", "orderId", orderID)
				continue
			}
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}

func (r *Registry) findByTime(prefix string, from, to int64) ([]*types.SwapRecord, error) {
	if from < 0 {
		from = 0
	}
	if to <= from {
		return nil, nil
	}
	iter := r.db.NewIterator(timeBound(prefix, from), timeBound(prefix, to))
	return r.findByIndex(iter, len(prefix)+timeKeyLen)
}

// FindSwapsByStatus find swaps with status
func (r *Registry) FindSwapsByStatus(status types.SwapStatus) ([]*types.SwapRecord, error) {
	prefix := []byte(prefixStatus + string(status) + "/")
	return r.findByIndex(r.db.NewPrefixIterator(prefix), len(prefix))
}

// FindActiveSwaps find non terminal swaps
func (r *Registry) FindActiveSwaps() ([]*types.SwapRecord, error) {
	var result []*types.SwapRecord
	for _, status := range types.ActiveStatuses {
		swaps, err := r.FindSwapsByStatus(status)
		if err != nil {
			return nil, err
		}
		result = append(result, swaps...)
	}
	return result, nil
}

// FindByUserDeadline active swaps with userDeadline in [from, to)
func (r *Registry) FindByUserDeadline(from, to int64) ([]*types.SwapRecord, error) {
	return r.findByTime(prefixUserDeadline, from, to)
}

// FindByCancelAfter active swaps with cancelAfter in [from, to)
func (r *Registry) FindByCancelAfter(from, to int64) ([]*types.SwapRecord, error) {
	return r.findByTime(prefixCancelAfter, from, to)
}

// FindBySecretSharedAt secret_shared swaps with secretSharedAt in [from, to)
func (r *Registry) FindBySecretSharedAt(from, to int64) ([]*types.SwapRecord, error) {
	return r.findByTime(prefixSharedAt, from, to)
}

// GetCursor get chain cursor, nil if not exist
func (r *Registry) GetCursor(chain string) (*types.ChainCursor, error) {
	data, err := r.db.Get([]byte(prefixCursor + chain))
	if err != nil {
		if IsNotFoundErr(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("leveldb get cursor: %w", err)
	}
	cursor := &types.ChainCursor{}
	if err = json.Unmarshal(data, cursor); err != nil {
		return nil, err
	}
	return cursor, nil
}

// SetCursor save chain cursor
func (r *Registry) SetCursor(cursor *types.ChainCursor) error {
	data, err := json.Marshal(cursor)
	if err != nil {
		return err
	}
	if err = r.db.Put([]byte(prefixCursor+cursor.Chain), data); err != nil {
		return fmt.Errorf("leveldb put cursor: %w", err)
	}
	return nil
}

// Close close database
func (r *Registry) Close() error {
	return r.db.Close()
}
