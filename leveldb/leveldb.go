// Package leveldb is a wrapper of goleveldb and the default swap registry backend.
package leveldb

import (
	"errors"

	goleveldb "github.com/syndtr/goleveldb/leveldb"
	dberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/anyswap/CrossChain-HTLC/log"
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate to leveldb
	// read and write caching, split half and half.
	minCache = 16

	// minHandles is the minimum number of files handles to allocate to the open
	// database files.
	minHandles = 16
)

// IsNotFoundErr is err 'ErrNotFound'
func IsNotFoundErr(err error) bool {
	return errors.Is(err, dberrors.ErrNotFound)
}

// Database is a persistent key-value store. Apart from basic data storage
// functionality it also supports batch writes and iterating over the keyspace in
// binary-alphabetical order.
type Database struct {
	path  string        // filename
	lvldb *goleveldb.DB // LevelDB instance
}

// New returns a wrapped LevelDB object.
func New(path string, cache, handles int) (*Database, error) {
	if cache < minCache {
		cache = minCache
	}
	if handles < minHandles {
		handles = minHandles
	}
	options := &opt.Options{
		Filter:                 filter.NewBloomFilter(10),
		DisableSeeksCompaction: true,
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB, // Two of these are used internally
	}
	log.Info("[leveldb] open database", "path", path, "cache", cache, "handles", handles)

	// Open the db and recover any potential corruptions
	db, err := goleveldb.OpenFile(path, options)
	if dberrors.IsCorrupted(err) {
		db, err = goleveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, err
	}
	return &Database{path: path, lvldb: db}, nil
}

// NewMemory returns a wrapped LevelDB object backed by memory storage.
func NewMemory() (*Database, error) {
	db, err := goleveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &Database{path: ":memory:", lvldb: db}, nil
}

// Close flushes any pending data to disk and closes
// all io accesses to the underlying key-value store.
func (db *Database) Close() error {
	log.Info("[leveldb] close database", "path", db.path)
	return db.lvldb.Close()
}

// Has retrieves if a key is present in the key-value store.
func (db *Database) Has(key []byte) (bool, error) {
	return db.lvldb.Has(key, nil)
}

// Get retrieves the given key if it's present in the key-value store.
func (db *Database) Get(key []byte) ([]byte, error) {
	return db.lvldb.Get(key, nil)
}

// Put inserts the given value into the key-value store.
func (db *Database) Put(key, value []byte) error {
	return db.lvldb.Put(key, value, nil)
}

// Write commits the batch atomically.
func (db *Database) Write(batch *goleveldb.Batch) error {
	return db.lvldb.Write(batch, &opt.WriteOptions{Sync: true})
}

// NewIterator creates a binary-alphabetical iterator over keys in [start, limit).
func (db *Database) NewIterator(start, limit []byte) iterator.Iterator {
	return db.lvldb.NewIterator(&util.Range{Start: start, Limit: limit}, nil)
}

// NewPrefixIterator creates an iterator over keys with the given prefix.
func (db *Database) NewPrefixIterator(prefix []byte) iterator.Iterator {
	return db.lvldb.NewIterator(util.BytesPrefix(prefix), nil)
}
