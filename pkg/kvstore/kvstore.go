// Package kvstore implements a single-file, whole-object key-value store.
//
// A FileStore keeps its entries in memory and writes all of them to one
// backing file on Flush, or on every mutation when autosync is enabled. Load
// replaces the in-memory entries with the full content of the file.
//
// A FileStore is not safe for concurrent use. Callers sharing one across
// goroutines must synchronize access themselves. Nothing coordinates
// multiple processes writing the same backing file; doing so is unsupported
// and the last flush wins.
package kvstore

// KVStore defines the operations surface of a key-value store.
type KVStore[K comparable, V any] interface {
	// Set stores a key-value pair. With autosync on, the returned error
	// reports the result of the triggered flush.
	Set(key K, value V) error

	// Get retrieves the value associated with a key. ErrKeyNotFound is
	// returned when the key is absent.
	Get(key K) (V, error)

	// Delete removes a key-value pair. ErrKeyNotFound is returned when the key is absent.
	Delete(key K) error

	// Size returns the number of entries held in memory.
	Size() int

	// Load replaces the in-memory entries with the content of the backing
	// file. It reports false with a nil error when there was nothing to load.
	Load() (bool, error)

	// Flush writes every entry to the backing file.
	Flush() error
}
