package mongodb

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/anyswap/CrossChain-HTLC/log"
)

const (
	tbSwaps        string = "Swaps"
	tbChainCursors string = "ChainCursors"
)

func (r *Registry) initCollections() {
	r.collSwaps = r.initCollection(tbSwaps, "status")
	r.createOneIndex(r.collSwaps, "status", "userdeadline")
	r.createOneIndex(r.collSwaps, "status", "cancelafter")
	r.createOneIndex(r.collSwaps, "status", "secretsharedat")
	r.collCursors = r.initCollection(tbChainCursors)
}

func (r *Registry) initCollection(table string, indexKey ...string) *mongo.Collection {
	coll := r.database.Collection(table)
	if len(indexKey) != 0 {
		r.createOneIndex(coll, indexKey...)
	}
	return coll
}

func (r *Registry) createOneIndex(coll *mongo.Collection, indexes ...string) {
	keys := make(bson.D, len(indexes))
	for i, index := range indexes {
		keys[i] = bson.E{Key: index, Value: 1}
	}
	model := mongo.IndexModel{Keys: keys}
	ctx, cancel := opContext()
	defer cancel()
	_, err := coll.Indexes().CreateOne(ctx, model)
	if err != nil {
		log.Error("[mongodb] create indexes failed", "collection", coll.Name(), "indexes", indexes, "err", err)
	}
}
