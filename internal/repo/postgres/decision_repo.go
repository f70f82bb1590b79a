package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
	"github.com/Iornfire12211221/KNG-sub001/internal/services/moderation"
)

// DecisionRepo is the append-only moderation decision log.
type DecisionRepo struct {
	pool *pgxpool.Pool
}

func NewDecisionRepo(pool *pgxpool.Pool) *DecisionRepo {
	return &DecisionRepo{pool: pool}
}

func (r *DecisionRepo) Append(ctx context.Context, decision model.ModerationDecision) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO moderation_decisions
	(post_id, action, confidence, toxicity, relevance, quality, context, image,
	 total_score, approve_threshold, reject_threshold, created_at_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`, decision.PostID, string(decision.Action), decision.Confidence,
		decision.Scores.Toxicity, decision.Scores.Relevance, decision.Scores.Quality,
		decision.Scores.Context, decision.Scores.Image,
		decision.TotalScore, decision.ApproveThreshold, decision.RejectThreshold,
		decision.CreatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("append moderation decision: %w", err)
	}
	return nil
}

func (r *DecisionRepo) Latest(ctx context.Context, postID string) (model.ModerationDecision, error) {
	if r.pool == nil {
		return model.ModerationDecision{}, fmt.Errorf("postgres pool is nil")
	}

	var (
		decision  model.ModerationDecision
		action    string
		createdMs int64
	)
	err := r.pool.QueryRow(ctx, `
SELECT post_id, action, confidence, toxicity, relevance, quality, context, image,
	total_score, approve_threshold, reject_threshold, created_at_ms
FROM moderation_decisions
WHERE post_id = $1
ORDER BY created_at_ms DESC
LIMIT 1
`, postID).Scan(
		&decision.PostID, &action, &decision.Confidence,
		&decision.Scores.Toxicity, &decision.Scores.Relevance, &decision.Scores.Quality,
		&decision.Scores.Context, &decision.Scores.Image,
		&decision.TotalScore, &decision.ApproveThreshold, &decision.RejectThreshold,
		&createdMs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ModerationDecision{}, moderation.ErrDecisionNotFound
		}
		return model.ModerationDecision{}, fmt.Errorf("get latest decision: %w", err)
	}
	decision.Action = enums.ModerationAction(action)
	decision.CreatedAt = time.UnixMilli(createdMs).UTC()
	return decision, nil
}

// PruneBefore trims old decisions so the log does not grow unbounded.
func (r *DecisionRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM moderation_decisions
WHERE created_at_ms < $1
`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune moderation decisions: %w", err)
	}
	return tag.RowsAffected(), nil
}
