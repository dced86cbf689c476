package store

import (
	"fmt"
	"os"

	"github.com/mezonai/cubix/db"
	stackerrors "github.com/mezonai/cubix/errors"
)

// StoreType represents the type of store implementation
type StoreType string

const (
	// BoltStoreType uses a single bbolt file, the default
	BoltStoreType StoreType = "bolt"

	// LevelDBStoreType uses the LevelDB implementation
	LevelDBStoreType StoreType = "leveldb"

	// RedisStoreType uses a Redis server, for debugging only
	RedisStoreType StoreType = "redis"
)

// StoreConfig holds configuration for creating store instances
type StoreConfig struct {
	Type StoreType `json:"type" yaml:"type"`

	// Directory is the database directory path (for file-based databases)
	Directory string `json:"directory" yaml:"directory"`

	RedisAddr string `json:"redis_addr" yaml:"redis_addr"`
}

// Validate validates the store configuration
func (sc *StoreConfig) Validate() error {
	switch sc.Type {
	case BoltStoreType, LevelDBStoreType:
		if sc.Directory == "" {
			return fmt.Errorf("directory cannot be empty")
		}
		return nil
	case RedisStoreType:
		if sc.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty")
		}
		return nil
	case "":
		return fmt.Errorf("store type cannot be empty")
	default:
		return fmt.Errorf("unsupported store type: %s", sc.Type)
	}
}

// CreateProvider creates a database provider based on the configuration. File-based
// backends get their directory created first.
func CreateProvider(config *StoreConfig) (db.DatabaseProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if config.Type != RedisStoreType {
		if err := os.MkdirAll(config.Directory, 0o755); err != nil {
			return nil, stackerrors.Wrap(stackerrors.ErrCodeIO, stackerrors.ErrMsgIO, err)
		}
	}

	var (
		provider db.DatabaseProvider
		err      error
	)
	switch config.Type {
	case BoltStoreType:
		provider, err = db.NewBoltProvider(config.Directory)
	case LevelDBStoreType:
		provider, err = db.NewLevelDBProvider(config.Directory)
	case RedisStoreType:
		provider, err = db.NewRedisProvider(config.RedisAddr)
	}
	if err != nil {
		return nil, stackerrors.Wrap(stackerrors.ErrCodeDatabase, stackerrors.ErrMsgDatabase, err)
	}
	return provider, nil
}

// OpenStackStore creates the provider and the stack store on top of it.
func OpenStackStore(config *StoreConfig) (*GenericStackStore, error) {
	provider, err := CreateProvider(config)
	if err != nil {
		return nil, err
	}
	s, err := NewGenericStackStore(provider)
	if err != nil {
		_ = provider.Close()
		return nil, err
	}
	return s, nil
}
