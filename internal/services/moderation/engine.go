package moderation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/rules"
)

var ErrMissingPostFields = errors.New("post is missing required fields")

// DecisionLog persists decisions for audit and learning. Append-only;
// Latest is used to judge feedback against what the engine decided.
type DecisionLog interface {
	Append(ctx context.Context, decision model.ModerationDecision) error
	Latest(ctx context.Context, postID string) (model.ModerationDecision, error)
}

var ErrDecisionNotFound = errors.New("decision not found")

// RecentPostsProvider supplies nearby approved posts for the context factor.
type RecentPostsProvider interface {
	CountRecentNearby(ctx context.Context, lat, lon, radiusKM float64, since time.Time) (int, error)
}

type Config struct {
	ContextRadiusKM float64
	ContextWindow   time.Duration
}

// Engine scores candidates against weighted factors and emits
// approve/reject/flag decisions. Scoring itself is pure; only the decision
// log append and the statistics accumulator carry state.
type Engine struct {
	settings Settings
	scorer   Scorer
	log      DecisionLog
	recent   RecentPostsProvider
	cfg      Config
	stats    *Stats
	logger   *zap.Logger
	now      func() time.Time
}

func NewEngine(settings Settings, scorer Scorer, decisionLog DecisionLog, recent RecentPostsProvider, cfg Config, logger *zap.Logger) *Engine {
	if scorer == nil {
		scorer = NewRuleScorer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ContextRadiusKM <= 0 {
		cfg.ContextRadiusKM = 5
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = time.Hour
	}

	return &Engine{
		settings: settings,
		scorer:   scorer,
		log:      decisionLog,
		recent:   recent,
		cfg:      cfg,
		stats:    NewStats(),
		logger:   logger,
		now:      time.Now,
	}
}

// Evaluate scores the candidate and produces a decision. It does not
// persist anything; call RecordDecision with the result for that.
func (e *Engine) Evaluate(ctx context.Context, candidate Candidate) (model.ModerationDecision, error) {
	if strings.TrimSpace(candidate.Description) == "" {
		return model.ModerationDecision{}, fmt.Errorf("description is required: %w", ErrMissingPostFields)
	}
	if err := rules.ValidateCoordinates(candidate.Latitude, candidate.Longitude); err != nil {
		return model.ModerationDecision{}, fmt.Errorf("coordinates: %w", ErrMissingPostFields)
	}

	nearbyCount := 0
	if e.recent != nil {
		since := e.now().Add(-e.cfg.ContextWindow)
		count, err := e.recent.CountRecentNearby(ctx, candidate.Latitude, candidate.Longitude, e.cfg.ContextRadiusKM, since)
		if err != nil {
			// context is a soft signal; fall back to no corroboration
			e.logger.Warn("count recent nearby posts failed", zap.Error(err))
		} else {
			nearbyCount = count
		}
	}

	scores := e.scorer.Score(candidate, nearbyCount)
	total := scores.Toxicity*e.settings.Weights.Toxicity +
		scores.Relevance*e.settings.Weights.Relevance +
		scores.Quality*e.settings.Weights.Quality +
		scores.Context*e.settings.Weights.Context +
		scores.Image*e.settings.Weights.Image

	action, confidence := e.decide(total)

	return model.ModerationDecision{
		PostID:           candidate.PostID,
		Action:           action,
		Confidence:       confidence,
		Scores:           scores,
		TotalScore:       total,
		ApproveThreshold: e.settings.ApproveThreshold,
		RejectThreshold:  e.settings.RejectThreshold,
		CreatedAt:        e.now().UTC(),
	}, nil
}

func (e *Engine) decide(total float64) (enums.ModerationAction, float64) {
	switch {
	case total >= e.settings.ApproveThreshold:
		return enums.ModerationActionApprove, total
	case total <= e.settings.RejectThreshold:
		return enums.ModerationActionReject, 1 - total
	default:
		return enums.ModerationActionFlag, 1 - math.Abs(total-e.settings.FlagMidpoint())
	}
}

// RecordDecision appends the decision to the audit log and folds it into
// the rolling statistics. Log failures are reported but do not invalidate
// the decision itself.
func (e *Engine) RecordDecision(ctx context.Context, decision model.ModerationDecision) error {
	e.stats.Observe(decision)

	if e.log == nil {
		return nil
	}
	if err := e.log.Append(ctx, decision); err != nil {
		return fmt.Errorf("append decision log: %w", err)
	}
	return nil
}

// LearnFromFeedback records a human correction for a past decision. It
// bumps the learning-cycle counter and the accuracy estimate; it never
// rewrites past decisions.
func (e *Engine) LearnFromFeedback(ctx context.Context, postID string, correctAction enums.ModerationAction) error {
	if strings.TrimSpace(postID) == "" {
		return fmt.Errorf("post id is required: %w", ErrMissingPostFields)
	}

	// When the original decision is unavailable the correction still counts
	// as a learning cycle, but cannot move the accuracy estimate.
	known := false
	correct := false
	if e.log != nil {
		decision, err := e.log.Latest(ctx, postID)
		if err != nil && !errors.Is(err, ErrDecisionNotFound) {
			return fmt.Errorf("look up decision for feedback: %w", err)
		}
		if err == nil {
			known = true
			correct = decision.Action == correctAction
		}
	}

	if known {
		e.stats.ObserveFeedback(correct)
	} else {
		e.stats.ObserveFeedbackCycle()
	}
	e.logger.Info("moderation feedback recorded",
		zap.String("post_id", postID),
		zap.String("correct_action", string(correctAction)),
		zap.Int64("learning_cycles", e.stats.LearningCycles()),
	)
	return nil
}

func (e *Engine) Stats() StatsSnapshot {
	return e.stats.Snapshot()
}

func (e *Engine) Settings() Settings {
	return e.settings
}
