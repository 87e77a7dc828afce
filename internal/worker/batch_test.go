package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/spaneval/internal/model"
)

// mockProcessor implements EssayProcessor
type mockProcessor struct {
	delay   time.Duration
	failing map[string]bool
}

func (m *mockProcessor) ProcessEssay(ctx context.Context, task EssayTask) *EssayOutcome {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return &EssayOutcome{EssayID: task.Essay.ID, Error: ctx.Err()}
		}
	}
	if m.failing[task.Essay.ID] {
		return &EssayOutcome{EssayID: task.Essay.ID, Error: errors.New("unparsable")}
	}
	return &EssayOutcome{
		EssayID: task.Essay.ID,
		Stats:   model.Statistics{Essays: 1},
	}
}

func tasks(n int) []EssayTask {
	out := make([]EssayTask, n)
	for i := range out {
		out[i] = EssayTask{Essay: model.Essay{ID: fmt.Sprintf("E%03d", i)}, HasOutput: true}
	}
	return out
}

func TestBatchProcessor_PreservesOrder(t *testing.T) {
	processor := NewBatchProcessor(&mockProcessor{}, 4, nil)

	outcomes, err := processor.Process(context.Background(), tasks(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcomes) != 100 {
		t.Fatalf("expected 100 outcomes, got %d", len(outcomes))
	}
	for i, out := range outcomes {
		want := fmt.Sprintf("E%03d", i)
		if out.EssayID != want || out.Index != i {
			t.Errorf("outcome %d: got essay %s index %d", i, out.EssayID, out.Index)
		}
	}
}

func TestBatchProcessor_IsolatesFailures(t *testing.T) {
	mock := &mockProcessor{failing: map[string]bool{"E001": true}}
	progress := NewProgress(zap.NewNop(), 3, time.Hour)
	processor := NewBatchProcessor(mock, 2, progress)

	outcomes, err := processor.Process(context.Background(), tasks(3))
	if err != nil {
		t.Fatalf("per-essay failures must not fail the batch: %v", err)
	}
	if outcomes[1].GetError() == nil {
		t.Error("expected E001 to carry its error")
	}
	if outcomes[0].GetError() != nil || outcomes[2].GetError() != nil {
		t.Error("other essays should succeed")
	}

	done, failed := progress.Counts()
	if done != 3 || failed != 1 {
		t.Errorf("expected 3 done and 1 failed, got %d and %d", done, failed)
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	outcomes, err := NewBatchProcessor(&mockProcessor{}, 2, nil).Process(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("expected no outcomes, got %d", len(outcomes))
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBatchProcessor(&mockProcessor{delay: time.Second}, 2, nil).Process(ctx, tasks(20))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPartition(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	parts, err := Partition(items, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parts) != 3 || len(parts[2]) != 1 || parts[2][0] != 5 {
		t.Errorf("unexpected partitions: %v", parts)
	}

	parts, err = Partition(items, 10)
	if err != nil || len(parts) != 1 {
		t.Errorf("expected a single partition, got %v (%v)", parts, err)
	}

	for _, size := range []int{0, -1} {
		if _, err := Partition(items, size); !errors.Is(err, ErrInvalidPartitionSize) {
			t.Errorf("size %d: expected ErrInvalidPartitionSize, got %v", size, err)
		}
	}
}
