package stack

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/mezonai/cubix/digest"
	stackerrors "github.com/mezonai/cubix/errors"
	"github.com/mezonai/cubix/events"
	"github.com/mezonai/cubix/logx"
	"github.com/mezonai/cubix/monitoring"
	"github.com/mezonai/cubix/types"
)

// StateStore persists the whole level map. Save must be atomic: either the snapshot
// and the appended transactions are all durable or none are.
type StateStore interface {
	Load() (map[uint32]*Stack, bool, error)
	Save(stacks map[uint32]*Stack, appended []types.Transaction) error
	Close() error
}

// Publisher receives events after each successful commit.
type Publisher interface {
	Publish(event events.StackEvent)
}

type Option func(*Manager)

func WithHasher(hasher digest.Hasher) Option {
	return func(m *Manager) {
		if hasher != nil {
			m.hasher = hasher
		}
	}
}

func WithPublisher(publisher Publisher) Option {
	return func(m *Manager) {
		m.publisher = publisher
	}
}

// Manager owns the level map. Mutations are serialized; each one is computed on a
// working copy and only becomes visible after the store has committed it.
type Manager struct {
	mu        sync.RWMutex
	stacks    map[uint32]*Stack
	store     StateStore
	hasher    digest.Hasher
	publisher Publisher
}

// NewManager restores the level map from store, or seeds an empty level 0.
func NewManager(store StateStore, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("state store cannot be nil")
	}

	m := &Manager{
		store:  store,
		hasher: digest.SHA256,
	}
	for _, opt := range opts {
		opt(m)
	}

	stacks, found, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load stack state: %w", err)
	}
	if !found || stacks == nil {
		stacks = make(map[uint32]*Stack)
	}
	for level, s := range stacks {
		if s == nil {
			return nil, stackerrors.NewError(stackerrors.ErrCodeInvalidStack, fmt.Sprintf("level %d is empty", level))
		}
		if err := s.Validate(level); err != nil {
			return nil, err
		}
	}
	if _, ok := stacks[0]; !ok {
		stacks[0] = NewStack(0)
	}
	m.stacks = stacks

	logx.Info("STACK", fmt.Sprintf("Stack manager ready | restored=%t | levels=%d | blocks=%d | hasher=%s",
		found, len(stacks), len(stacks[0].Blocks), m.hasher.Name()))
	monitoring.SetLevelCount(len(stacks))
	return m, nil
}

// AddTransaction appends tx to level 0, runs the insertion cascade and persists the
// resulting level map in one store transaction. On error nothing changes.
func (m *Manager) AddTransaction(ctx context.Context, tx types.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Validate(); err != nil {
		monitoring.RecordRejectedTx(monitoring.TxMalformed)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	work := make(map[uint32]*Stack, len(m.stacks))
	for level, s := range m.stacks {
		work[level] = s.workingCopy()
	}
	c := &cascade{stacks: work, hasher: m.hasher}

	accepted := tx.Clone()
	txHash := accepted.HashWith(m.hasher)
	slot := digest.FaceSlot(txHash)

	base := c.level(0)
	base.Blocks = append(base.Blocks, accepted)
	if err := c.insertFace(0, slot, txHash); err != nil {
		return fmt.Errorf("failed to place transaction %s: %w", txHash.Short(), err)
	}

	start := time.Now()
	if err := m.store.Save(work, []types.Transaction{accepted}); err != nil {
		monitoring.RecordRejectedTx(monitoring.TxPersistFailed)
		logx.Error("STACK", fmt.Sprintf("Failed to persist stack state | tx=%s | err=%v", txHash.Short(), err))
		if stackerrors.CodeOf(err) == "" {
			err = stackerrors.Wrap(stackerrors.ErrCodeDatabase, stackerrors.ErrMsgDatabase, err)
		}
		return err
	}
	monitoring.RecordPersistDuration(time.Since(start))

	m.stacks = work
	m.publish(txHash, slot, c.events)
	return nil
}

func (m *Manager) publish(txHash digest.Hash, slot int, cascaded []events.StackEvent) {
	monitoring.IncreaseAcceptedTxCount()
	monitoring.SetLevelCount(len(m.stacks))
	for _, e := range cascaded {
		switch e.Type() {
		case events.EventFaceCompleted:
			monitoring.IncreaseFaceCompletions(strconv.FormatUint(uint64(e.Level()), 10))
		case events.EventCubeCompleted:
			monitoring.IncreaseCubeCompletions(strconv.FormatUint(uint64(e.Level()), 10))
			logx.Info("STACK", fmt.Sprintf("Cube promoted | level=%d | digest=%s", e.Level(), e.Hash().Short()))
		case events.EventLevelCreated:
			logx.Info("STACK", fmt.Sprintf("Level created | level=%d", e.Level()))
		}
	}

	if m.publisher == nil {
		return
	}
	m.publisher.Publish(events.NewTransactionAccepted(txHash, slot))
	for _, e := range cascaded {
		m.publisher.Publish(e)
	}
}

// Snapshot returns a deep copy of the level map.
func (m *Manager) Snapshot() map[uint32]*Stack {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[uint32]*Stack, len(m.stacks))
	for level, s := range m.stacks {
		out[level] = s.Clone()
	}
	return out
}

// Stack returns a copy of one level.
func (m *Manager) Stack(level uint32) (*Stack, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stacks[level]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Levels returns the materialized levels in ascending order.
func (m *Manager) Levels() []uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedLevels(m.stacks)
}

func (m *Manager) BlockCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.stacks[0].Blocks)
}

func (m *Manager) Hasher() digest.Hasher {
	return m.hasher
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store.Close()
}

func sortedLevels(stacks map[uint32]*Stack) []uint32 {
	levels := make([]uint32, 0, len(stacks))
	for level := range stacks {
		levels = append(levels, level)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	return levels
}
