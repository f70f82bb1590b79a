package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ExpiredPostStore hard-deletes posts whose expiry fell behind the
// retention window.
type ExpiredPostStore interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DecisionPruner trims old moderation decisions.
type DecisionPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job purges expired reports and prunes the moderation decision log. The
// bot process runs it on a timer.
type Job struct {
	posts             ExpiredPostStore
	decisions         DecisionPruner
	postRetention     time.Duration
	decisionRetention time.Duration
	now               func() time.Time
	logger            *zap.Logger
}

func New(posts ExpiredPostStore, postRetention time.Duration, logger *zap.Logger) *Job {
	if postRetention <= 0 {
		postRetention = 48 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		posts:             posts,
		postRetention:     postRetention,
		decisionRetention: 30 * 24 * time.Hour,
		now:               time.Now,
		logger:            logger,
	}
}

func (j *Job) AttachDecisionPruning(decisions DecisionPruner, retention time.Duration) {
	j.decisions = decisions
	if retention > 0 {
		j.decisionRetention = retention
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.posts != nil {
		cutoff := j.now().Add(-j.postRetention)
		deleted, err := j.posts.DeleteExpiredBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("cleanup expired posts: %w", err)
		}
		if deleted > 0 {
			j.logger.Info("cleanup expired posts completed", zap.Int64("deleted", deleted))
		}
	}

	if j.decisions != nil {
		cutoff := j.now().Add(-j.decisionRetention)
		pruned, err := j.decisions.PruneBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("prune moderation decisions: %w", err)
		}
		if pruned > 0 {
			j.logger.Info("decision log pruning completed", zap.Int64("pruned", pruned))
		}
	}

	return nil
}

// RunEvery loops Run on the interval until the context ends. Failures are
// logged and the loop keeps going.
func (j *Job) RunEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Warn("cleanup run failed", zap.Error(err))
			}
		}
	}
}
