package worker

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Progress logs essay completion without flooding the log: the first few
// completions are reported, then at most one line per interval. Failures
// are always reported.
type Progress struct {
	logger    *zap.Logger
	total     int
	done      atomic.Int64
	failed    atomic.Int64
	sometimes *rate.Sometimes
}

// NewProgress creates a progress reporter for total essays
func NewProgress(logger *zap.Logger, total int, interval time.Duration) *Progress {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Progress{
		logger:    logger,
		total:     total,
		sometimes: &rate.Sometimes{First: 1, Interval: interval},
	}
}

// Done records one finished essay
func (p *Progress) Done(essayID string, err error) {
	done := p.done.Add(1)
	if err != nil {
		p.failed.Add(1)
		p.logger.Warn("essay failed",
			zap.String("essay_id", essayID),
			zap.Error(err),
		)
	}

	if int(done) == p.total {
		p.logger.Info("all essays processed",
			zap.Int("total", p.total),
			zap.Int64("failed", p.failed.Load()),
		)
		return
	}

	p.sometimes.Do(func() {
		p.logger.Info("progress",
			zap.Int64("done", done),
			zap.Int("total", p.total),
		)
	})
}

// Counts returns how many essays finished and how many of those failed
func (p *Progress) Counts() (done, failed int) {
	return int(p.done.Load()), int(p.failed.Load())
}
