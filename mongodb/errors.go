package mongodb

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/anyswap/CrossChain-HTLC/registry"
)

func mgoError(err error) error {
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return registry.ErrSwapNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return registry.ErrItemIsDup
		}
		return fmt.Errorf("mgoError: %w", err)
	}
	return nil
}
