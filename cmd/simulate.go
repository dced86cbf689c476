package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/mezonai/cubix/events"
	"github.com/mezonai/cubix/logx"
	"github.com/mezonai/cubix/mempool"
	"github.com/mezonai/cubix/stack"
	"github.com/mezonai/cubix/types"
	"github.com/spf13/cobra"
)

var (
	simulateCheckpoints []int
	simulateProducers   int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Feed synthetic transactions through the writer and report each checkpoint",
	Long: `This command submits transactions with distinct from/to strings until each
checkpoint count is reached, printing the level report after each one. Without
--data-dir it works in a throwaway directory.

Examples:
  simulate
  simulate --checkpoints 500,1000 --producers 8 -d ./sim-data`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if engineFlags.DataDir == "" && engineFlags.StoreType != "redis" {
			dir, err := os.MkdirTemp("", "cubix-sim-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(dir)
			engineFlags.DataDir = dir
		}

		bus := events.NewEventBus()
		e, err := openEngine(stack.WithPublisher(bus))
		if err != nil {
			return err
		}
		defer e.Close()

		counter := newCompletionCounter(bus)
		defer counter.stop()

		results, err := runScenario(cmd.Context(), e.manager, simulateCheckpoints, simulateProducers)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("== after %d transactions ==\n", r.Submitted)
			if err := stack.WriteReport(os.Stdout, r.Reports, false); err != nil {
				return err
			}
		}
		counter.stop()
		faces, cubes := counter.totals()
		fmt.Printf("Face completions: %d, cube completions: %d\n", faces, cubes)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().IntSliceVar(&simulateCheckpoints, "checkpoints", []int{130, 140, 150}, "cumulative transaction counts to report at")
	simulateCmd.Flags().IntVar(&simulateProducers, "producers", 4, "concurrent submitters")
}

type checkpoint struct {
	Submitted int
	Reports   []stack.LevelReport
}

// runScenario drives manager through a writer until each checkpoint is reached and
// checks that the level 0 blocks, faces and cubes never shrink between checkpoints.
func runScenario(ctx context.Context, manager *stack.Manager, checkpoints []int, producers int) ([]checkpoint, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if producers <= 0 {
		producers = 1
	}
	targets := append([]int(nil), checkpoints...)
	sort.Ints(targets)

	writer := mempool.NewWriter(manager, 0)
	writer.Start()
	defer writer.Stop()

	var results []checkpoint
	next := 0
	for _, target := range targets {
		if err := submitRange(ctx, writer, next, target, producers); err != nil {
			return results, err
		}
		next = max(next, target)

		reports := manager.Inspect()
		if len(results) > 0 {
			if err := checkMonotonic(results[len(results)-1].Reports[0], reports[0]); err != nil {
				return results, err
			}
		}
		results = append(results, checkpoint{Submitted: next, Reports: reports})
		logx.Info("SIMULATE", fmt.Sprintf("Checkpoint | submitted=%d | levels=%d", next, len(reports)))
	}
	return results, nil
}

func submitRange(ctx context.Context, writer *mempool.Writer, from, to, producers int) error {
	work := make(chan int)
	errs := make(chan error, producers)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				if err := writer.Submit(ctx, syntheticTx(i)); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	var sendErr error
	for i := from; i < to && sendErr == nil; i++ {
		select {
		case work <- i:
		case sendErr = <-errs:
		}
	}
	close(work)
	wg.Wait()
	close(errs)

	if sendErr != nil {
		return sendErr
	}
	return <-errs
}

func syntheticTx(i int) types.Transaction {
	return types.Transaction{
		From: []string{fmt.Sprintf("from%d", i)},
		To:   []string{fmt.Sprintf("to%d", i)},
		Meta: types.TransactionMeta{
			TxType:    types.TxTypeTransfer,
			Signature: []byte(fmt.Sprintf("sig%d", i)),
		},
		Timestamp: uint64(i),
	}
}

func checkMonotonic(prev, cur stack.LevelReport) error {
	if cur.Blocks < prev.Blocks || len(cur.Faces) < len(prev.Faces) || len(cur.Cubes) < len(prev.Cubes) {
		return fmt.Errorf("level 0 shrank: blocks %d->%d faces %d->%d cubes %d->%d",
			prev.Blocks, cur.Blocks, len(prev.Faces), len(cur.Faces), len(prev.Cubes), len(cur.Cubes))
	}
	if cur.FilledFaceSlots > cur.Blocks {
		return fmt.Errorf("%d filled face slots exceed %d blocks", cur.FilledFaceSlots, cur.Blocks)
	}
	return nil
}

// completionCounter tallies face and cube completions from the event bus.
type completionCounter struct {
	bus   *events.EventBus
	id    events.SubscriberID
	mu    sync.Mutex
	faces int
	cubes int
	done  chan struct{}
	once  sync.Once
}

func newCompletionCounter(bus *events.EventBus) *completionCounter {
	id, ch := bus.Subscribe()
	c := &completionCounter{bus: bus, id: id, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		for e := range ch {
			c.mu.Lock()
			switch e.Type() {
			case events.EventFaceCompleted:
				c.faces++
			case events.EventCubeCompleted:
				c.cubes++
			}
			c.mu.Unlock()
		}
	}()
	return c
}

// stop unsubscribes and waits until every buffered event has been counted.
func (c *completionCounter) stop() {
	c.once.Do(func() {
		c.bus.Unsubscribe(c.id)
	})
	<-c.done
}

func (c *completionCounter) totals() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.faces, c.cubes
}
