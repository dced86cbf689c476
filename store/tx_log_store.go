package store

import (
	"encoding/binary"
	"fmt"

	"github.com/mezonai/cubix/db"
	"github.com/mezonai/cubix/jsonx"
	"github.com/mezonai/cubix/types"
)

const txLogReadChunk = 256

// TxLogStore reads the append-only log of accepted transactions. Entries are written
// by the stack store in the same batch as the snapshot that includes them.
type TxLogStore interface {
	Get(seq uint64) (*types.Transaction, bool, error)
	Count() (uint64, error)
	Iterate(fn func(seq uint64, tx *types.Transaction) bool) error
}

type GenericTxLogStore struct {
	dbProvider db.DatabaseProvider
}

func NewGenericTxLogStore(dbProvider db.DatabaseProvider) (*GenericTxLogStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &GenericTxLogStore{dbProvider: dbProvider}, nil
}

// Get returns the transaction at seq, or false when the log is shorter.
func (ls *GenericTxLogStore) Get(seq uint64) (*types.Transaction, bool, error) {
	data, err := ls.dbProvider.Get(txLogKey(seq))
	if err != nil {
		return nil, false, fmt.Errorf("could not get log entry %d from db: %w", seq, err)
	}
	if data == nil {
		return nil, false, nil
	}

	var tx types.Transaction
	if err := jsonx.Unmarshal(data, &tx); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal log entry %d: %w", seq, err)
	}
	return &tx, true, nil
}

// Count is the number of entries, which is also the next sequence to write.
func (ls *GenericTxLogStore) Count() (uint64, error) {
	data, err := ls.dbProvider.Get([]byte(KeyTxLogNextSeq))
	if err != nil {
		return 0, fmt.Errorf("could not read log length: %w", err)
	}
	if data == nil {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("invalid log length encoding: %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// Iterate visits entries in sequence order until fn returns false.
func (ls *GenericTxLogStore) Iterate(fn func(seq uint64, tx *types.Transaction) bool) error {
	count, err := ls.Count()
	if err != nil {
		return err
	}

	for start := uint64(0); start < count; start += txLogReadChunk {
		end := min(start+txLogReadChunk, count)
		keys := make([][]byte, 0, end-start)
		for seq := start; seq < end; seq++ {
			keys = append(keys, txLogKey(seq))
		}
		values, err := ls.dbProvider.GetBatch(keys)
		if err != nil {
			return fmt.Errorf("could not read log entries %d..%d: %w", start, end, err)
		}

		for i, key := range keys {
			seq := start + uint64(i)
			data, ok := values[string(key)]
			if !ok {
				return fmt.Errorf("log entry %d is missing", seq)
			}
			var tx types.Transaction
			if err := jsonx.Unmarshal(data, &tx); err != nil {
				return fmt.Errorf("failed to unmarshal log entry %d: %w", seq, err)
			}
			if !fn(seq, &tx) {
				return nil
			}
		}
	}
	return nil
}

// stage adds txs to batch starting at seq and returns the next sequence.
func (ls *GenericTxLogStore) stage(batch db.DatabaseBatch, seq uint64, txs []types.Transaction) (uint64, error) {
	for i := range txs {
		data, err := jsonx.Marshal(&txs[i])
		if err != nil {
			return seq, fmt.Errorf("failed to marshal transaction: %w", err)
		}
		batch.Put(txLogKey(seq), data)
		seq++
	}
	batch.Put([]byte(KeyTxLogNextSeq), encodeSeq(seq))
	return seq, nil
}

func txLogKey(seq uint64) []byte {
	key := make([]byte, len(PrefixTxLog)+8)
	copy(key, PrefixTxLog)
	binary.BigEndian.PutUint64(key[len(PrefixTxLog):], seq)
	return key
}

func encodeSeq(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, seq)
}
