package mempool

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mezonai/cubix/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink remembers the order transactions arrive in and can be paused.
type recordingSink struct {
	mu      sync.Mutex
	applied []string
	active  int
	maxSeen int
	gate    chan struct{}
	fail    map[string]error
}

func (s *recordingSink) AddTransaction(ctx context.Context, tx types.Transaction) error {
	s.mu.Lock()
	s.active++
	if s.active > s.maxSeen {
		s.maxSeen = s.active
	}
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
	if err := s.fail[tx.From[0]]; err != nil {
		return err
	}
	s.applied = append(s.applied, tx.From[0])
	return nil
}

func tx(name string) types.Transaction {
	return types.Transaction{From: []string{name}, To: []string{"to"}, Meta: types.TransactionMeta{TxType: types.TxTypeTransfer}}
}

func TestWriterAppliesSerially(t *testing.T) {
	sink := &recordingSink{}
	w := NewWriter(sink, 16)
	w.Start()
	defer w.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, w.Submit(context.Background(), tx(fmt.Sprintf("p%d", i))))
		}(i)
	}
	wg.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.applied, 50)
	assert.Equal(t, 1, sink.maxSeen, "sink never runs concurrently")
}

func TestWriterPreservesOrderFromOneProducer(t *testing.T) {
	sink := &recordingSink{}
	w := NewWriter(sink, 4)
	w.Start()

	var want []string
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("tx%d", i)
		want = append(want, name)
		require.NoError(t, w.Submit(context.Background(), tx(name)))
	}
	w.Stop()
	assert.Equal(t, want, sink.applied)
}

func TestSubmitReturnsSinkError(t *testing.T) {
	boom := fmt.Errorf("boom")
	sink := &recordingSink{fail: map[string]error{"bad": boom}}
	w := NewWriter(sink, 4)
	w.Start()
	defer w.Stop()

	assert.ErrorIs(t, w.Submit(context.Background(), tx("bad")), boom)
	assert.NoError(t, w.Submit(context.Background(), tx("good")))
}

func TestTrySubmitReportsFullQueue(t *testing.T) {
	sink := &recordingSink{gate: make(chan struct{})}
	w := NewWriter(sink, 2)
	w.Start()

	first, err := w.TrySubmit(tx("a"))
	require.NoError(t, err)

	// wait until the writer holds "a" so the queue itself is empty
	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return sink.active == 1
	}, time.Second, 5*time.Millisecond)

	_, err = w.TrySubmit(tx("b"))
	require.NoError(t, err)
	_, err = w.TrySubmit(tx("c"))
	require.NoError(t, err)
	assert.Equal(t, 2, w.Len())

	_, err = w.TrySubmit(tx("d"))
	assert.ErrorIs(t, err, ErrQueueFull)

	close(sink.gate)
	assert.NoError(t, <-first)
	w.Stop()
	assert.Equal(t, []string{"a", "b", "c"}, sink.applied)
}

func TestSubmitAfterStop(t *testing.T) {
	w := NewWriter(&recordingSink{}, 1)
	w.Start()
	w.Stop()
	w.Stop()

	assert.ErrorIs(t, w.Submit(context.Background(), tx("late")), ErrWriterStopped)
	_, err := w.TrySubmit(tx("late"))
	assert.ErrorIs(t, err, ErrWriterStopped)
}

func TestSubmitHonoursContext(t *testing.T) {
	sink := &recordingSink{gate: make(chan struct{})}
	w := NewWriter(sink, 1)
	w.Start()
	defer func() {
		close(sink.gate)
		w.Stop()
	}()

	_, err := w.TrySubmit(tx("blocking"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Submit(ctx, tx("waiting")), context.DeadlineExceeded)
}

func TestStopWithoutStartAnswersQueuedJobs(t *testing.T) {
	w := NewWriter(&recordingSink{}, 4)

	queued, err := w.TrySubmit(tx("queued"))
	require.NoError(t, err)
	waiting := make(chan error, 1)
	go func() {
		waiting <- w.Submit(context.Background(), tx("waiting"))
	}()
	require.Eventually(t, func() bool { return w.Len() == 2 }, time.Second, time.Millisecond)

	w.Stop()

	assert.ErrorIs(t, <-queued, ErrWriterStopped)
	select {
	case err := <-waiting:
		assert.ErrorIs(t, err, ErrWriterStopped)
	case <-time.After(time.Second):
		t.Fatal("Submit still blocked after Stop")
	}
}
