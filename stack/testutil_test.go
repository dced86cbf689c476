package stack

import (
	"fmt"
	"sync"
	"testing"

	"github.com/mezonai/cubix/digest"
	"github.com/mezonai/cubix/events"
	"github.com/mezonai/cubix/jsonx"
	"github.com/mezonai/cubix/types"
)

// memStore keeps the last saved snapshot as JSON so restores go through the same
// encoding as the real stores.
type memStore struct {
	mu       sync.Mutex
	snapshot []byte
	log      []types.Transaction
	saves    int
	failNext error
	closed   bool
}

func (s *memStore) Load() (map[uint32]*Stack, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		return nil, false, nil
	}
	var stacks map[uint32]*Stack
	if err := jsonx.Unmarshal(s.snapshot, &stacks); err != nil {
		return nil, false, err
	}
	return stacks, true, nil
}

func (s *memStore) Save(stacks map[uint32]*Stack, appended []types.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	data, err := jsonx.Marshal(stacks)
	if err != nil {
		return err
	}
	s.snapshot = data
	s.log = append(s.log, appended...)
	s.saves++
	return nil
}

func (s *memStore) Close() error {
	s.closed = true
	return nil
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []events.StackEvent
}

func (r *recorder) Publish(e events.StackEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(t events.EventType, level uint32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type() == t && e.Level() == level {
			n++
		}
	}
	return n
}

// txSource hands out distinct transactions, optionally steering them to a face slot.
type txSource struct {
	prefix string
	next   int
}

func (src *txSource) any() types.Transaction {
	i := src.next
	src.next++
	return types.Transaction{
		From: []string{fmt.Sprintf("%sfrom%d", src.prefix, i)},
		To:   []string{fmt.Sprintf("%sto%d", src.prefix, i)},
		Meta: types.TransactionMeta{TxType: types.TxTypeTransfer, Signature: []byte(fmt.Sprintf("sig%d", i))},
	}
}

func (src *txSource) forSlot(t *testing.T, slot int) types.Transaction {
	t.Helper()
	for attempts := 0; attempts < 10000; attempts++ {
		tx := src.any()
		if digest.FaceSlot(tx.Hash()) == slot {
			return tx
		}
	}
	t.Fatalf("no transaction found for slot %d", slot)
	return types.Transaction{}
}

// fullFace returns nine transactions covering face slots 0..8, in slot order.
func (src *txSource) fullFace(t *testing.T) []types.Transaction {
	t.Helper()
	txs := make([]types.Transaction, FaceSize)
	for slot := 0; slot < FaceSize; slot++ {
		txs[slot] = src.forSlot(t, slot)
	}
	return txs
}

func faceDigestOf(txs []types.Transaction) digest.Hash {
	slots := make([]digest.Hash, FaceSize)
	for _, tx := range txs {
		h := tx.Hash()
		slots[digest.FaceSlot(h)] = h
	}
	return digest.SumHashes(digest.SHA256, slots)
}

func checkContainerInvariants(t *testing.T, stacks map[uint32]*Stack) {
	t.Helper()
	for level, s := range stacks {
		for i := range s.Faces {
			if n := s.Faces[i].Filled(); n >= FaceSize {
				t.Fatalf("face %d at level %d left complete (%d slots)", i, level, n)
			}
		}
		for i := range s.Cubes {
			if n := s.Cubes[i].Filled(); n >= CubeSize {
				t.Fatalf("cube %d at level %d left complete (%d slots)", i, level, n)
			}
		}
		if level != 0 && len(s.Blocks) != 0 {
			t.Fatalf("level %d holds blocks", level)
		}
	}
}
