package mempool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mezonai/cubix/exception"
	"github.com/mezonai/cubix/logx"
	"github.com/mezonai/cubix/monitoring"
	"github.com/mezonai/cubix/types"
)

const DefaultQueueSize = 1024

var (
	ErrQueueFull     = errors.New("writer queue is full")
	ErrWriterStopped = errors.New("writer is stopped")
)

// TransactionSink applies one transaction. The stack manager is the production sink.
type TransactionSink interface {
	AddTransaction(ctx context.Context, tx types.Transaction) error
}

type job struct {
	ctx  context.Context
	tx   types.Transaction
	done chan error
}

// Writer funnels transactions from many producers into a single goroutine that feeds
// the sink one at a time, in arrival order.
type Writer struct {
	sink  TransactionSink
	queue chan job

	mu      sync.RWMutex
	stopped bool

	startOnce sync.Once
	started   bool
	finished  chan struct{}
}

func NewWriter(sink TransactionSink, queueSize int) *Writer {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Writer{
		sink:     sink,
		queue:    make(chan job, queueSize),
		finished: make(chan struct{}),
	}
}

// Start launches the writer goroutine. Calling it again has no effect.
func (w *Writer) Start() {
	w.startOnce.Do(func() {
		w.mu.Lock()
		w.started = true
		w.mu.Unlock()
		exception.SafeGoWithPanic("StackWriter", w.loop)
	})
}

func (w *Writer) loop() {
	defer close(w.finished)
	for j := range w.queue {
		monitoring.SetQueueSize(len(w.queue))
		if err := j.ctx.Err(); err != nil {
			j.done <- err
			continue
		}
		err := w.sink.AddTransaction(j.ctx, j.tx)
		if err != nil {
			logx.Warn("WRITER", fmt.Sprintf("Transaction rejected | from=%v | err=%v", j.tx.From, err))
		}
		j.done <- err
	}
}

// Submit enqueues tx and waits until it has been applied or ctx is done.
func (w *Writer) Submit(ctx context.Context, tx types.Transaction) error {
	j := job{ctx: ctx, tx: tx, done: make(chan error, 1)}

	w.mu.RLock()
	if w.stopped {
		w.mu.RUnlock()
		return ErrWriterStopped
	}
	select {
	case w.queue <- j:
		monitoring.SetQueueSize(len(w.queue))
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	w.mu.RUnlock()

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit enqueues tx without waiting. The returned channel yields the outcome once
// the writer has processed it.
func (w *Writer) TrySubmit(tx types.Transaction) (<-chan error, error) {
	j := job{ctx: context.Background(), tx: tx, done: make(chan error, 1)}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return nil, ErrWriterStopped
	}
	select {
	case w.queue <- j:
		monitoring.SetQueueSize(len(w.queue))
		return j.done, nil
	default:
		monitoring.RecordRejectedTx(monitoring.TxQueueFull)
		return nil, ErrQueueFull
	}
}

// Len returns the number of queued transactions.
func (w *Writer) Len() int {
	return len(w.queue)
}

// Stop rejects new submissions, lets the writer drain what is queued and waits for it.
func (w *Writer) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.queue)
	started := w.started
	w.mu.Unlock()

	if started {
		<-w.finished
	} else {
		for j := range w.queue {
			j.done <- ErrWriterStopped
		}
	}
	logx.Info("WRITER", "Writer stopped")
}
