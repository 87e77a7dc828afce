package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/spaneval/internal/model"
)

// ErrInvalidPartitionSize indicates a non-positive partition size
var ErrInvalidPartitionSize = errors.New("partition size must be positive")

// EssayTask is one essay with the raw model output produced for it
type EssayTask struct {
	Essay     model.Essay
	Output    string
	HasOutput bool
}

// EssayOutcome is everything one essay contributed to a run.
// Index is the position of the essay's task in the batch.
type EssayOutcome struct {
	Index   int
	EssayID string
	Rows    []model.ResultRow
	Stats   model.Statistics
	Error   error
}

// GetError returns the error from the essay outcome
func (o *EssayOutcome) GetError() error {
	return o.Error
}

// EssayProcessor parses, locates and labels the spans of one essay
type EssayProcessor interface {
	ProcessEssay(ctx context.Context, task EssayTask) *EssayOutcome
}

// EssayJob adapts one task to the pool
type EssayJob struct {
	Index     int
	Task      EssayTask
	Processor EssayProcessor
}

// Execute processes the essay
func (j *EssayJob) Execute(ctx context.Context) Result {
	out := j.Processor.ProcessEssay(ctx, j.Task)
	out.Index = j.Index
	return out
}

// BatchProcessor processes essays concurrently
type BatchProcessor struct {
	processor   EssayProcessor
	concurrency int
	progress    *Progress
}

// NewBatchProcessor creates a new batch processor. progress may be nil.
func NewBatchProcessor(processor EssayProcessor, concurrency int, progress *Progress) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
		progress:    progress,
	}
}

// Process runs every task and returns the outcomes in task order. Per-essay
// failures are carried in the outcomes; the returned error is only set when
// ctx was cancelled before every essay finished.
func (b *BatchProcessor) Process(ctx context.Context, tasks []EssayTask) ([]*EssayOutcome, error) {
	if len(tasks) == 0 {
		return []*EssayOutcome{}, nil
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()
	defer pool.Shutdown()

	go func() {
		defer pool.Close()
		for i, task := range tasks {
			if !pool.Submit(&EssayJob{Index: i, Task: task, Processor: b.processor}) {
				return
			}
		}
	}()

	outcomes := make([]*EssayOutcome, len(tasks))
	received := 0
	for result := range pool.Results() {
		out := result.(*EssayOutcome)
		outcomes[out.Index] = out
		received++
		if b.progress != nil {
			b.progress.Done(out.EssayID, out.Error)
		}
	}

	if received < len(tasks) {
		if err := ctx.Err(); err != nil {
			return outcomes, fmt.Errorf("processed %d of %d essays: %w", received, len(tasks), err)
		}
		return outcomes, fmt.Errorf("processed %d of %d essays", received, len(tasks))
	}
	return outcomes, nil
}

// Partition splits items into consecutive chunks of at most size items
func Partition[T any](items []T, size int) ([][]T, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidPartitionSize, size)
	}

	var parts [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		parts = append(parts, items[start:end])
	}
	return parts, nil
}
