package store

import (
	"errors"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrTransactionRO = errors.New("transaction is read-only")
)

// Storage is the interface for the underlying key-value store
type Storage interface {
	// Begin starts a new transaction
	Begin(writable bool) (Transaction, error)

	// Close closes the storage
	Close() error

	// Sync flushes writes to disk
	Sync() error
}

// Transaction represents a database transaction with snapshot isolation
type Transaction interface {
	// Get retrieves a value by key
	Get(table Table, key []byte) ([]byte, error)

	// Set stores a key-value pair
	Set(table Table, key, value []byte) error

	// Delete removes a key
	Delete(table Table, key []byte) error

	// Scan iterates a table in ascending key order.
	// With end set it covers the half-open range [start, end); with a
	// nil end it covers the keys sharing start as a prefix (the whole
	// table when start is nil too).
	Scan(table Table, start, end []byte) (Iterator, error)

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error
}

// Iterator iterates over key-value pairs
type Iterator interface {
	// Next advances to the next item
	Next() bool

	// Key returns the current key
	Key() []byte

	// Value returns the current value
	Value() ([]byte, error)

	// Close closes the iterator
	Close() error
}

// Table represents a logical table/column family in the storage
type Table byte

const (
	// Counters and per-graph metadata
	TableMeta Table = iota

	// Interned strings: hash -> label / relationship type
	TableID2Str

	// Node records: graph | node id -> record
	TableNodes

	// Label index: graph | label hash | node id
	TableLabels

	// Label cardinality stats: graph | label hash -> count
	TableStats

	// Edge records: graph | edge id -> record
	TableEdges

	// Outgoing adjacency: graph | src | relation hash | dst | edge id
	TableOutEdges

	// Incoming adjacency: graph | dst | relation hash | src | edge id
	TableInEdges

	// Total number of tables
	TableCount
)

func (t Table) String() string {
	switch t {
	case TableMeta:
		return "meta"
	case TableID2Str:
		return "id2str"
	case TableNodes:
		return "nodes"
	case TableLabels:
		return "labels"
	case TableStats:
		return "stats"
	case TableEdges:
		return "edges"
	case TableOutEdges:
		return "outedges"
	case TableInEdges:
		return "inedges"
	default:
		return "unknown"
	}
}

// TablePrefix returns a byte prefix for a table to namespace keys
func TablePrefix(table Table) []byte {
	return []byte{byte(table)}
}

// PrefixKey adds a table prefix to a key
func PrefixKey(table Table, key []byte) []byte {
	prefix := TablePrefix(table)
	result := make([]byte, len(prefix)+len(key))
	copy(result, prefix)
	copy(result[len(prefix):], key)
	return result
}
