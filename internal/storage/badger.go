package storage

import (
	"bytes"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/grafodb/grafo/pkg/store"
)

// BadgerStorage implements store.Storage on top of BadgerDB
type BadgerStorage struct {
	db *badger.DB
}

// NewBadgerStorage opens (or creates) a BadgerDB-backed storage at path
func NewBadgerStorage(path string) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable default logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	return &BadgerStorage{db: db}, nil
}

// Begin starts a new transaction
func (s *BadgerStorage) Begin(writable bool) (store.Transaction, error) {
	return &badgerTxn{
		txn:      s.db.NewTransaction(writable),
		writable: writable,
	}, nil
}

// Close closes the storage
func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

// Sync flushes writes to disk
func (s *BadgerStorage) Sync() error {
	return s.db.Sync()
}

// badgerTxn implements store.Transaction
type badgerTxn struct {
	txn      *badger.Txn
	writable bool
}

// Get retrieves a value by key
func (t *badgerTxn) Get(table store.Table, key []byte) ([]byte, error) {
	item, err := t.txn.Get(store.PrefixKey(table, key))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Set stores a key-value pair
func (t *badgerTxn) Set(table store.Table, key, value []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}
	return t.txn.Set(store.PrefixKey(table, key), value)
}

// Delete removes a key
func (t *badgerTxn) Delete(table store.Table, key []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}
	return t.txn.Delete(store.PrefixKey(table, key))
}

// Scan iterates a table in ascending key order with the table prefix
// stripped. With a nil end the scan covers the keys sharing start as a
// prefix; otherwise it covers the half-open range [start, end).
func (t *badgerTxn) Scan(table store.Table, start, end []byte) (store.Iterator, error) {
	tablePrefix := store.TablePrefix(table)

	seekKey := tablePrefix
	if start != nil {
		seekKey = store.PrefixKey(table, start)
	}

	opts := badger.DefaultIteratorOptions
	var endKey []byte
	if end != nil {
		// Range scan: badger only bounds the table, the end key bounds
		// the range
		opts.Prefix = tablePrefix
		endKey = store.PrefixKey(table, end)
	} else {
		// Prefix scan
		opts.Prefix = seekKey
	}

	return &badgerIterator{
		it:          t.txn.NewIterator(opts),
		tablePrefix: tablePrefix,
		seekKey:     seekKey,
		endKey:      endKey,
	}, nil
}

// Commit commits the transaction
func (t *badgerTxn) Commit() error {
	return t.txn.Commit()
}

// Rollback rolls back the transaction
func (t *badgerTxn) Rollback() error {
	t.txn.Discard()
	return nil
}

// badgerIterator implements store.Iterator
type badgerIterator struct {
	it          *badger.Iterator
	tablePrefix []byte
	seekKey     []byte
	endKey      []byte
	started     bool
	valid       bool
}

// Next advances to the next item
func (i *badgerIterator) Next() bool {
	if !i.started {
		i.it.Seek(i.seekKey)
		i.started = true
	} else {
		i.it.Next()
	}

	if !i.it.Valid() {
		i.valid = false
		return false
	}

	// Half-open range: stop once the end key is reached
	if i.endKey != nil && bytes.Compare(i.it.Item().Key(), i.endKey) >= 0 {
		i.valid = false
		return false
	}

	i.valid = true
	return true
}

// Key returns the current key without the table prefix
func (i *badgerIterator) Key() []byte {
	if !i.valid {
		return nil
	}
	key := i.it.Item().Key()
	if len(key) <= len(i.tablePrefix) {
		return nil
	}
	return key[len(i.tablePrefix):]
}

// Value returns the current value
func (i *badgerIterator) Value() ([]byte, error) {
	if !i.valid {
		return nil, store.ErrNotFound
	}
	return i.it.Item().ValueCopy(nil)
}

// Close closes the iterator
func (i *badgerIterator) Close() error {
	i.it.Close()
	return nil
}
