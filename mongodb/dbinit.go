// Package mongodb is the mongodb backend of the swap registry.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/anyswap/CrossChain-HTLC/log"
	"github.com/anyswap/CrossChain-HTLC/params"
	"github.com/anyswap/CrossChain-HTLC/registry"
)

const (
	connectTimeout = 10 * time.Second
	opTimeout      = 10 * time.Second
	maxDialRetries = 10
)

var _ registry.Registry = (*Registry)(nil)

// Registry swap registry on mongodb
type Registry struct {
	client   *mongo.Client
	database *mongo.Database

	collSwaps   *mongo.Collection
	collCursors *mongo.Collection
}

// MongoServerInit connect mongodb and init collections
func MongoServerInit(config *params.MongoDBConfig) (*Registry, error) {
	clientOpts := options.Client().
		ApplyURI(config.GetURL()).
		SetConnectTimeout(connectTimeout).
		SetWriteConcern(writeconcern.New(writeconcern.WMajority(), writeconcern.J(true)))
	if config.UserName != "" {
		clientOpts.SetAuth(options.Credential{
			AuthSource: config.DBName,
			Username:   config.UserName,
			Password:   config.Password,
		})
	}

	log.Info("[mongodb] connect database start.", "dbName", config.DBName)
	var (
		client *mongo.Client
		err    error
	)
	for i := 0; i < maxDialRetries; i++ {
		client, err = connect(clientOpts)
		if err == nil {
			break
		}
		log.Warn("[mongodb] dial error", "err", err)
		time.Sleep(1 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	r := &Registry{
		client:   client,
		database: client.Database(config.DBName),
	}
	r.initCollections()
	log.Info("[mongodb] connect database finished.", "dbName", config.DBName)
	return r, nil
}

func connect(clientOpts *options.ClientOptions) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

// Close disconnect
func (r *Registry) Close() error {
	ctx, cancel := opContext()
	defer cancel()
	return r.client.Disconnect(ctx)
}
