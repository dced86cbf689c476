package db

// DatabaseProvider abstracts the key-value backend the stores write through.
// Get returns nil, nil for a missing key.
type DatabaseProvider interface {
	// Get retrieves a value by key
	Get(key []byte) ([]byte, error)

	// GetBatch retrieves multiple values; missing keys are absent from the result
	GetBatch(keys [][]byte) (map[string][]byte, error)

	Put(key, value []byte) error

	Delete(key []byte) error

	Has(key []byte) (bool, error)

	Close() error

	// Batch returns a new batch for atomic operations
	Batch() DatabaseBatch
}

// DatabaseBatch buffers writes that are applied all together or not at all.
type DatabaseBatch interface {
	Put(key, value []byte)

	Delete(key []byte)

	// Write commits all operations in the batch
	Write() error

	// Reset drops the buffered operations
	Reset()

	// Close releases batch resources
	Close() error
}
