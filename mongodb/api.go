package mongodb

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anyswap/CrossChain-HTLC/registry"
	"github.com/anyswap/CrossChain-HTLC/types"
)

// results are fetched in batches, a query always returns every match
const findBatchSize = 1000

// CreateSwap add new swap record
func (r *Registry) CreateSwap(rec *types.SwapRecord) error {
	ctx, cancel := opContext()
	defer cancel()
	_, err := r.collSwaps.InsertOne(ctx, rec)
	return mgoError(err)
}

// GetSwap get swap record
func (r *Registry) GetSwap(orderID string) (*types.SwapRecord, error) {
	ctx, cancel := opContext()
	defer cancel()
	result := &types.SwapRecord{}
	err := r.collSwaps.FindOne(ctx, bson.M{"_id": orderID}).Decode(result)
	if err != nil {
		return nil, mgoError(err)
	}
	return result, nil
}

func getUpdateItems(update *registry.SwapUpdate) bson.M {
	updates := bson.M{"updatedat": update.Timestamp}
	if update.Status != "" {
		updates["status"] = update.Status
	}
	if update.Secret != "" {
		updates["secret"] = update.Secret
	}
	if update.SecretSharedAt != 0 {
		updates["secretsharedat"] = update.SecretSharedAt
	}
	if update.Resolver != "" {
		updates["resolver"] = update.Resolver
	}
	if update.Resolution != "" {
		updates["resolution"] = update.Resolution
	}
	if update.DisclosureRef != "" {
		updates["disclosureref"] = update.DisclosureRef
	}
	if update.DisclosedAt != 0 {
		updates["disclosedat"] = update.DisclosedAt
	}
	if update.Memo != "" {
		updates["memo"] = update.Memo
	}
	return updates
}

// UpdateSwap status guarded update
func (r *Registry) UpdateSwap(orderID string, from types.SwapStatus, update *registry.SwapUpdate) error {
	ctx, cancel := opContext()
	defer cancel()
	filter := bson.M{"_id": orderID, "status": from}
	res, err := r.collSwaps.UpdateOne(ctx, filter, bson.M{"$set": getUpdateItems(update)})
	if err != nil {
		return mgoError(err)
	}
	if res.MatchedCount == 0 {
		current, err := r.GetSwap(orderID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: expect %v, current %v", registry.ErrStatusMismatch, from, current.Status)
	}
	return nil
}

// SetEscrow set escrow address of leg
func (r *Registry) SetEscrow(orderID string, leg types.SwapLeg, escrow string, timestamp int64) error {
	ctx, cancel := opContext()
	defer cancel()
	key := "dstescrow"
	if leg == types.LegSource {
		key = "srcescrow"
	}
	res, err := r.collSwaps.UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{"$set": bson.M{key: escrow, "updatedat": timestamp}})
	if err != nil {
		return mgoError(err)
	}
	if res.MatchedCount == 0 {
		return registry.ErrSwapNotFound
	}
	return nil
}

func (r *Registry) findSwaps(filter bson.M, sortKey string) ([]*types.SwapRecord, error) {
	ctx, cancel := opContext()
	defer cancel()
	opts := options.Find().SetBatchSize(findBatchSize)
	if sortKey != "" {
		opts.SetSort(bson.D{{Key: sortKey, Value: 1}})
	}
	cur, err := r.collSwaps.Find(ctx, filter, opts)
	if err != nil {
		return nil, mgoError(err)
	}
	result := make([]*types.SwapRecord, 0)
	if err = cur.All(ctx, &result); err != nil {
		return nil, mgoError(err)
	}
	return result, nil
}

func activeStatusFilter() bson.M {
	return bson.M{"$in": types.ActiveStatuses}
}

// FindSwapsByStatus find swaps with status
func (r *Registry) FindSwapsByStatus(status types.SwapStatus) ([]*types.SwapRecord, error) {
	return r.findSwaps(bson.M{"status": status}, "createdat")
}

// FindActiveSwaps find non terminal swaps
func (r *Registry) FindActiveSwaps() ([]*types.SwapRecord, error) {
	return r.findSwaps(bson.M{"status": activeStatusFilter()}, "createdat")
}

// FindByUserDeadline active swaps with userDeadline in [from, to)
func (r *Registry) FindByUserDeadline(from, to int64) ([]*types.SwapRecord, error) {
	filter := bson.M{
		"status":       activeStatusFilter(),
		"userdeadline": bson.M{"$gte": from, "$lt": to},
	}
	return r.findSwaps(filter, "userdeadline")
}

// FindByCancelAfter active swaps with cancelAfter in [from, to)
func (r *Registry) FindByCancelAfter(from, to int64) ([]*types.SwapRecord, error) {
	filter := bson.M{
		"status":      activeStatusFilter(),
		"cancelafter": bson.M{"$gte": from, "$lt": to},
	}
	return r.findSwaps(filter, "cancelafter")
}

// FindBySecretSharedAt secret_shared swaps with secretSharedAt in [from, to)
func (r *Registry) FindBySecretSharedAt(from, to int64) ([]*types.SwapRecord, error) {
	filter := bson.M{
		"status":         types.StatusSecretShared,
		"secretsharedat": bson.M{"$gte": from, "$lt": to},
	}
	return r.findSwaps(filter, "secretsharedat")
}

// GetCursor get chain cursor, nil if not exist
func (r *Registry) GetCursor(chain string) (*types.ChainCursor, error) {
	ctx, cancel := opContext()
	defer cancel()
	result := &types.ChainCursor{}
	err := r.collCursors.FindOne(ctx, bson.M{"_id": chain}).Decode(result)
	if err != nil {
		err = mgoError(err)
		if registry.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

// SetCursor save chain cursor
func (r *Registry) SetCursor(cursor *types.ChainCursor) error {
	ctx, cancel := opContext()
	defer cancel()
	opts := options.Update().SetUpsert(true)
	updates := bson.M{"height": cursor.Height, "timestamp": cursor.Timestamp}
	_, err := r.collCursors.UpdateOne(ctx, bson.M{"_id": cursor.Chain}, bson.M{"$set": updates}, opts)
	return mgoError(err)
}
