package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
)

type fixedScorer struct {
	scores model.FactorScores
}

func (s fixedScorer) Score(_ Candidate, _ int) model.FactorScores {
	return s.scores
}

type memDecisionLog struct {
	appended []model.ModerationDecision
}

func (l *memDecisionLog) Append(_ context.Context, decision model.ModerationDecision) error {
	l.appended = append(l.appended, decision)
	return nil
}

func (l *memDecisionLog) Latest(_ context.Context, postID string) (model.ModerationDecision, error) {
	for i := len(l.appended) - 1; i >= 0; i-- {
		if l.appended[i].PostID == postID {
			return l.appended[i], nil
		}
	}
	return model.ModerationDecision{}, ErrDecisionNotFound
}

func defaultSettings(t *testing.T) Settings {
	t.Helper()
	settings, err := NewSettings(Weights{
		Toxicity:  0.25,
		Relevance: 0.25,
		Quality:   0.20,
		Context:   0.15,
		Image:     0.15,
	}, 0.7, 0.3)
	if err != nil {
		t.Fatalf("build settings: %v", err)
	}
	return settings
}

func uniformScores(v float64) model.FactorScores {
	return model.FactorScores{Toxicity: v, Relevance: v, Quality: v, Context: v, Image: v}
}

func candidate() Candidate {
	return Candidate{
		PostID:      "post-1",
		Description: "экипаж дпс стоит на трассе у поворота",
		Latitude:    59.3733,
		Longitude:   28.6134,
		Category:    enums.PostCategoryDPS,
	}
}

func TestNewSettingsRejectsBadWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		approve float64
		reject  float64
	}{
		{name: "weights sum below one", weights: Weights{Toxicity: 0.2, Relevance: 0.2, Quality: 0.2, Context: 0.2, Image: 0.1}, approve: 0.7, reject: 0.3},
		{name: "weights sum above one", weights: Weights{Toxicity: 0.4, Relevance: 0.3, Quality: 0.2, Context: 0.15, Image: 0.15}, approve: 0.7, reject: 0.3},
		{name: "thresholds out of order", weights: Weights{Toxicity: 0.2, Relevance: 0.2, Quality: 0.2, Context: 0.2, Image: 0.2}, approve: 0.3, reject: 0.7},
		{name: "threshold above one", weights: Weights{Toxicity: 0.2, Relevance: 0.2, Quality: 0.2, Context: 0.2, Image: 0.2}, approve: 1.3, reject: 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSettings(tt.weights, tt.approve, tt.reject); err == nil {
				t.Fatalf("expected ErrInvalidSettings")
			}
		})
	}
}

func TestNewSettingsToleratesFloatNoise(t *testing.T) {
	weights := Weights{Toxicity: 0.1, Relevance: 0.2, Quality: 0.3, Context: 0.2, Image: 0.2}
	if _, err := NewSettings(weights, 0.7, 0.3); err != nil {
		t.Fatalf("settings within tolerance rejected: %v", err)
	}
}

func TestEvaluateDecisionBands(t *testing.T) {
	tests := []struct {
		name       string
		factor     float64
		action     enums.ModerationAction
		confidence float64
	}{
		{name: "approve", factor: 0.9, action: enums.ModerationActionApprove, confidence: 0.9},
		{name: "reject", factor: 0.25, action: enums.ModerationActionReject, confidence: 0.75},
		{name: "flag", factor: 0.5, action: enums.ModerationActionFlag, confidence: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(defaultSettings(t), fixedScorer{scores: uniformScores(tt.factor)}, nil, nil, Config{}, nil)

			decision, err := engine.Evaluate(context.Background(), candidate())
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if decision.Action != tt.action {
				t.Fatalf("unexpected action: got %s want %s", decision.Action, tt.action)
			}
			if diff := decision.Confidence - tt.confidence; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("unexpected confidence: got %f want %f", decision.Confidence, tt.confidence)
			}
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	engine := NewEngine(defaultSettings(t), nil, nil, nil, Config{}, nil)

	first, err := engine.Evaluate(context.Background(), candidate())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	for i := 0; i < 10; i++ {
		next, err := engine.Evaluate(context.Background(), candidate())
		if err != nil {
			t.Fatalf("evaluate #%d: %v", i, err)
		}
		if next.TotalScore != first.TotalScore || next.Action != first.Action || next.Scores != first.Scores {
			t.Fatalf("evaluate not deterministic: %+v vs %+v", next, first)
		}
	}
}

func TestEvaluateRejectsMissingFields(t *testing.T) {
	engine := NewEngine(defaultSettings(t), nil, nil, nil, Config{}, nil)

	c := candidate()
	c.Description = "   "
	if _, err := engine.Evaluate(context.Background(), c); err == nil {
		t.Fatalf("expected error for empty description")
	}

	c = candidate()
	c.Latitude = 120
	if _, err := engine.Evaluate(context.Background(), c); err == nil {
		t.Fatalf("expected error for out-of-range latitude")
	}
}

func TestRecordDecisionFeedsLogAndStats(t *testing.T) {
	log := &memDecisionLog{}
	engine := NewEngine(defaultSettings(t), fixedScorer{scores: uniformScores(0.9)}, log, nil, Config{}, nil)

	decision, err := engine.Evaluate(context.Background(), candidate())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if err := engine.RecordDecision(context.Background(), decision); err != nil {
		t.Fatalf("record decision: %v", err)
	}

	if len(log.appended) != 1 {
		t.Fatalf("expected 1 logged decision, got %d", len(log.appended))
	}
	stats := engine.Stats()
	if stats.Approved != 1 || stats.AvgConfidence == 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestLearnFromFeedbackCountsCyclesAndAccuracy(t *testing.T) {
	log := &memDecisionLog{}
	engine := NewEngine(defaultSettings(t), fixedScorer{scores: uniformScores(0.9)}, log, nil, Config{}, nil)

	decision, err := engine.Evaluate(context.Background(), candidate())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if err := engine.RecordDecision(context.Background(), decision); err != nil {
		t.Fatalf("record decision: %v", err)
	}

	if err := engine.LearnFromFeedback(context.Background(), "post-1", enums.ModerationActionApprove); err != nil {
		t.Fatalf("feedback (correct): %v", err)
	}
	if err := engine.LearnFromFeedback(context.Background(), "post-1", enums.ModerationActionReject); err != nil {
		t.Fatalf("feedback (incorrect): %v", err)
	}
	// unknown post: cycle advances, accuracy untouched
	if err := engine.LearnFromFeedback(context.Background(), "unknown", enums.ModerationActionApprove); err != nil {
		t.Fatalf("feedback (unknown): %v", err)
	}

	stats := engine.Stats()
	if stats.LearningCycles != 3 {
		t.Fatalf("unexpected learning cycles: %d", stats.LearningCycles)
	}
	if stats.Accuracy != 0.5 {
		t.Fatalf("unexpected accuracy: %f", stats.Accuracy)
	}

	// feedback never rewrites the logged decision
	logged, err := log.Latest(context.Background(), "post-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if logged.Action != enums.ModerationActionApprove {
		t.Fatalf("decision log mutated by feedback: %s", logged.Action)
	}
}

type staticRecent struct {
	count int
}

func (s staticRecent) CountRecentNearby(_ context.Context, _, _, _ float64, _ time.Time) (int, error) {
	return s.count, nil
}

func TestContextFactorUsesNearbyCorroboration(t *testing.T) {
	settings := defaultSettings(t)

	quiet := NewEngine(settings, nil, nil, staticRecent{count: 0}, Config{}, nil)
	busy := NewEngine(settings, nil, nil, staticRecent{count: 4}, Config{}, nil)

	base, err := quiet.Evaluate(context.Background(), candidate())
	if err != nil {
		t.Fatalf("evaluate quiet: %v", err)
	}
	corroborated, err := busy.Evaluate(context.Background(), candidate())
	if err != nil {
		t.Fatalf("evaluate busy: %v", err)
	}

	if corroborated.Scores.Context <= base.Scores.Context {
		t.Fatalf("corroborated context should score higher: %f vs %f",
			corroborated.Scores.Context, base.Scores.Context)
	}
	if corroborated.TotalScore <= base.TotalScore {
		t.Fatalf("corroborated total should be higher: %f vs %f",
			corroborated.TotalScore, base.TotalScore)
	}
}
