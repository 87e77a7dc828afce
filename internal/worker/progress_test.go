package worker

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestProgress_ThrottlesInfo(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewProgress(zap.New(core), 10, time.Hour)

	for i := 0; i < 10; i++ {
		p.Done("E", nil)
	}

	if n := logs.FilterMessage("progress").Len(); n != 1 {
		t.Errorf("expected 1 throttled progress line, got %d", n)
	}
	if n := logs.FilterMessage("all essays processed").Len(); n != 1 {
		t.Errorf("expected 1 completion line, got %d", n)
	}
}

func TestProgress_ReportsEveryFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewProgress(zap.New(core), 5, time.Hour)

	p.Done("E1", errors.New("boom"))
	p.Done("E2", errors.New("boom"))
	p.Done("E3", nil)

	failures := logs.FilterMessage("essay failed")
	if failures.Len() != 2 {
		t.Fatalf("expected 2 failure lines, got %d", failures.Len())
	}
	if got := failures.All()[0].ContextMap()["essay_id"]; got != "E1" {
		t.Errorf("expected essay_id E1, got %v", got)
	}

	done, failed := p.Counts()
	if done != 3 || failed != 2 {
		t.Errorf("expected 3 done and 2 failed, got %d and %d", done, failed)
	}
}
