package moderation

import (
	"sync"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
)

// Stats is the rolling accumulator behind the engine. Every engine owns
// its own instance so tests can run independent engines side by side.
type Stats struct {
	mu sync.Mutex

	approved int64
	rejected int64
	flagged  int64

	confidenceSum float64
	decisions     int64

	learningCycles  int64
	feedbackTotal   int64
	feedbackCorrect int64
}

type StatsSnapshot struct {
	Approved       int64   `json:"approved"`
	Rejected       int64   `json:"rejected"`
	Flagged        int64   `json:"flagged"`
	AvgConfidence  float64 `json:"avg_confidence"`
	LearningCycles int64   `json:"learning_cycles"`
	Accuracy       float64 `json:"accuracy"`
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) Observe(decision model.ModerationDecision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch decision.Action {
	case enums.ModerationActionApprove:
		s.approved++
	case enums.ModerationActionReject:
		s.rejected++
	case enums.ModerationActionFlag:
		s.flagged++
	}
	s.confidenceSum += decision.Confidence
	s.decisions++
}

// ObserveFeedback folds one human correction into the accuracy estimate.
// correct indicates whether the engine's original action matched.
func (s *Stats) ObserveFeedback(correct bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.learningCycles++
	s.feedbackTotal++
	if correct {
		s.feedbackCorrect++
	}
}

// ObserveFeedbackCycle counts a correction whose original decision is
// unknown: it advances the learning counter without touching accuracy.
func (s *Stats) ObserveFeedbackCycle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.learningCycles++
}

func (s *Stats) LearningCycles() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.learningCycles
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := StatsSnapshot{
		Approved:       s.approved,
		Rejected:       s.rejected,
		Flagged:        s.flagged,
		LearningCycles: s.learningCycles,
	}
	if s.decisions > 0 {
		snapshot.AvgConfidence = s.confidenceSum / float64(s.decisions)
	}
	if s.feedbackTotal > 0 {
		snapshot.Accuracy = float64(s.feedbackCorrect) / float64(s.feedbackTotal)
	}
	return snapshot
}
