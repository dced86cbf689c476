package store

import (
	"fmt"
	"sync"

	"github.com/mezonai/cubix/db"
	stackerrors "github.com/mezonai/cubix/errors"
	"github.com/mezonai/cubix/jsonx"
	"github.com/mezonai/cubix/logx"
	"github.com/mezonai/cubix/monitoring"
	"github.com/mezonai/cubix/stack"
	"github.com/mezonai/cubix/types"
)

// GenericStackStore persists the level map under a single key and appends accepted
// transactions to the log, both in one batch per save.
type GenericStackStore struct {
	mu         sync.Mutex
	dbProvider db.DatabaseProvider
	txManager  *db.DBTxManager
	txLog      *GenericTxLogStore
	nextSeq    uint64
}

func NewGenericStackStore(dbProvider db.DatabaseProvider) (*GenericStackStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	txLog, err := NewGenericTxLogStore(dbProvider)
	if err != nil {
		return nil, err
	}
	next, err := txLog.Count()
	if err != nil {
		return nil, stackerrors.Wrap(stackerrors.ErrCodeDatabase, stackerrors.ErrMsgDatabase, err)
	}

	return &GenericStackStore{
		dbProvider: dbProvider,
		txManager:  db.NewDBTxManager(dbProvider),
		txLog:      txLog,
		nextSeq:    next,
	}, nil
}

// Load returns the persisted level map. found is false when nothing was ever saved.
func (ss *GenericStackStore) Load() (map[uint32]*stack.Stack, bool, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	data, err := ss.dbProvider.Get([]byte(KeyStackState))
	if err != nil {
		return nil, false, stackerrors.Wrap(stackerrors.ErrCodeDatabase, stackerrors.ErrMsgDatabase, err)
	}
	if data == nil {
		return nil, false, nil
	}

	var stacks map[uint32]*stack.Stack
	if err := jsonx.Unmarshal(data, &stacks); err != nil {
		return nil, false, stackerrors.Wrap(stackerrors.ErrCodeDatabase, "Stored stack state is corrupt", err)
	}
	logx.Info("STACK_STORE", fmt.Sprintf("Loaded stack state | levels=%d | bytes=%d | log_entries=%d", len(stacks), len(data), ss.nextSeq))
	return stacks, true, nil
}

// Save writes the snapshot, the appended log entries and the new log length atomically.
func (ss *GenericStackStore) Save(stacks map[uint32]*stack.Stack, appended []types.Transaction) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	data, err := jsonx.Marshal(stacks)
	if err != nil {
		return stackerrors.Wrap(stackerrors.ErrCodeDatabase, "Failed to encode stack state", err)
	}

	var next uint64
	err = ss.txManager.WithBatch(func(batch db.DatabaseBatch) error {
		batch.Put([]byte(KeyStackState), data)
		var stageErr error
		next, stageErr = ss.txLog.stage(batch, ss.nextSeq, appended)
		return stageErr
	})
	if err != nil {
		return stackerrors.Wrap(stackerrors.ErrCodeDatabase, stackerrors.ErrMsgDatabase, err)
	}

	ss.nextSeq = next
	monitoring.RecordSnapshotSizeBytes(len(data))
	return nil
}

// TxLog exposes the read side of the transaction log.
func (ss *GenericStackStore) TxLog() TxLogStore {
	return ss.txLog
}

func (ss *GenericStackStore) Close() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if err := ss.dbProvider.Close(); err != nil {
		logx.Error("STACK_STORE", "Failed to close provider:", err)
		return err
	}
	return nil
}
